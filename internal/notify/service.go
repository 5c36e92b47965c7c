package notify

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/admission-watch/internal/config"
	"github.com/sells-group/admission-watch/internal/model"
	"github.com/sells-group/admission-watch/internal/resilience"
)

// Poster delivers one payload.
type Poster interface {
	Dispatch(ctx context.Context, payload any) error
}

// Service builds a payload from a change sequence and delivers it.
type Service struct {
	builder Builder
	poster  Poster
	now     func() time.Time
}

// NewService pairs a builder with a poster.
func NewService(builder Builder, poster Poster) *Service {
	return &Service{builder: builder, poster: poster, now: time.Now}
}

// NewServiceFromConfig builds a Service for the configured endpoint using
// format as the payload shape.
func NewServiceFromConfig(cfg config.NotifyConfig, format Format) (*Service, error) {
	builder, err := NewBuilder(format, cfg.CardTitle)
	if err != nil {
		return nil, err
	}
	d := NewDispatcher(cfg.WebhookURL, DispatcherOptions{
		Timeout:       time.Duration(cfg.TimeoutSecs) * time.Second,
		RatePerMinute: cfg.RatePerMinute,
	})
	return NewService(builder, d), nil
}

// Notify delivers changes detected in source. An empty sequence sends
// nothing.
func (s *Service) Notify(ctx context.Context, source string, changes []model.ChangeRecord) error {
	if len(changes) == 0 {
		return nil
	}

	payload := s.builder.Build(source, s.now(), changes)
	if err := s.poster.Dispatch(ctx, payload); err != nil {
		fields := []zap.Field{
			zap.String("source", source),
			zap.Int("changes", len(changes)),
			zap.Bool("transient", resilience.IsTransient(err)),
			zap.Error(err),
		}
		var derr *DeliveryError
		if errors.As(err, &derr) {
			fields = append(fields, zap.Int("status", derr.StatusCode), zap.String("body", derr.Body))
		}
		zap.L().Error("notify: delivery failed", fields...)
		return eris.Wrapf(err, "notify: deliver %s", source)
	}

	zap.L().Info("notify: delivered",
		zap.String("source", source),
		zap.Int("changes", len(changes)),
	)
	return nil
}
