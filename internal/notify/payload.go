package notify

import (
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/admission-watch/internal/model"
)

// TimestampLayout is the ISO-8601 UTC layout used in payload timestamps.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Format selects a payload shape.
type Format string

const (
	FormatRaw  Format = "raw"
	FormatCard Format = "card"
)

// DefaultCardTitle heads adaptive-card messages when no title is configured.
const DefaultCardTitle = "접수인원 변동 알림"

const adaptiveCardContentType = "application/vnd.microsoft.card.adaptive"

// Builder turns one change sequence into a JSON-serializable payload.
type Builder interface {
	Build(source string, detectedAt time.Time, changes []model.ChangeRecord) any
}

// NewBuilder returns the builder for format.
func NewBuilder(format Format, cardTitle string) (Builder, error) {
	switch format {
	case FormatRaw, "":
		return RawBuilder{}, nil
	case FormatCard:
		return CardBuilder{Title: cardTitle}, nil
	default:
		return nil, eris.Errorf("notify: unknown payload format %q", format)
	}
}

// RawPayload carries the structured change records.
type RawPayload struct {
	File       string               `json:"file"`
	DetectedAt string               `json:"detectedAt"`
	Changes    []model.ChangeRecord `json:"changes"`
}

// RawBuilder builds RawPayload values.
type RawBuilder struct{}

// Build implements Builder.
func (RawBuilder) Build(source string, detectedAt time.Time, changes []model.ChangeRecord) any {
	if changes == nil {
		changes = []model.ChangeRecord{}
	}
	return RawPayload{
		File:       source,
		DetectedAt: detectedAt.UTC().Format(TimestampLayout),
		Changes:    changes,
	}
}

// CardPayload is an adaptive-card message envelope for chat-style endpoints.
type CardPayload struct {
	Message     string       `json:"message"`
	SentAt      string       `json:"sentAt"`
	Attachments []Attachment `json:"attachments"`
}

// Attachment wraps one card.
type Attachment struct {
	ContentType string       `json:"contentType"`
	Content     AdaptiveCard `json:"content"`
}

// AdaptiveCard is the minimal card document the endpoint renders.
type AdaptiveCard struct {
	Type    string      `json:"type"`
	Version string      `json:"version"`
	Body    []TextBlock `json:"body"`
}

// TextBlock is one card text element.
type TextBlock struct {
	Type   string `json:"type"`
	Text   string `json:"text"`
	Weight string `json:"weight,omitempty"`
	Size   string `json:"size,omitempty"`
	Wrap   bool   `json:"wrap,omitempty"`
}

// CardBuilder renders changes into an adaptive-card message.
type CardBuilder struct {
	Title string
}

// Build implements Builder.
func (b CardBuilder) Build(source string, detectedAt time.Time, changes []model.ChangeRecord) any {
	title := b.Title
	if title == "" {
		title = DefaultCardTitle
	}
	return CardPayload{
		Message: source,
		SentAt:  detectedAt.UTC().Format(TimestampLayout),
		Attachments: []Attachment{{
			ContentType: adaptiveCardContentType,
			Content: AdaptiveCard{
				Type:    "AdaptiveCard",
				Version: "1.4",
				Body: []TextBlock{
					{Type: "TextBlock", Text: title, Weight: "Bolder", Size: "Medium"},
					{Type: "TextBlock", Text: RenderSummary(changes), Wrap: true},
				},
			},
		}},
	}
}
