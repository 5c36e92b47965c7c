package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/admission-watch/internal/resilience"
)

// maxErrorBody bounds how much of a failed response body is kept.
const maxErrorBody = 4096

// DeliveryError reports a non-success HTTP response from the endpoint.
type DeliveryError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("notify: webhook returned %s: %s", e.Status, e.Body)
}

// DispatcherOptions tunes a Dispatcher.
type DispatcherOptions struct {
	// Timeout bounds each POST. Default: 10s.
	Timeout time.Duration
	// RatePerMinute caps outbound requests; 0 means unlimited.
	RatePerMinute int
	// Client overrides the HTTP client (its Timeout is left as is).
	Client *http.Client
}

// Dispatcher posts JSON payloads to a single webhook endpoint. It makes one
// attempt per payload and never retries.
type Dispatcher struct {
	url     string
	client  *http.Client
	limiter *rate.Limiter
}

// NewDispatcher creates a Dispatcher for url.
func NewDispatcher(url string, opts DispatcherOptions) *Dispatcher {
	client := opts.Client
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	d := &Dispatcher{url: url, client: client}
	if opts.RatePerMinute > 0 {
		d.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RatePerMinute)), 1)
	}
	return d
}

// Dispatch POSTs payload as JSON. A non-2xx response yields a *DeliveryError
// carrying the response body; 408/429/5xx responses are additionally marked
// transient.
func (d *Dispatcher) Dispatch(ctx context.Context, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return eris.Wrap(err, "notify: marshal payload")
	}

	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return eris.Wrap(err, "notify: rate limit wait")
		}
	}

	deliveryID := uuid.NewString()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return eris.Wrap(err, "notify: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Delivery-Id", deliveryID)

	start := time.Now()
	resp, err := d.client.Do(req)
	if err != nil {
		return eris.Wrapf(err, "notify: webhook request %s", deliveryID)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		derr := &DeliveryError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(raw)),
		}
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return resilience.NewTransientError(derr, resp.StatusCode)
		}
		return derr
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	zap.L().Debug("notify: webhook delivered",
		zap.String("delivery_id", deliveryID),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(body)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}
