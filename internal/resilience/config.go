package resilience

import (
	"time"
)

// FromPollConfig converts millisecond config values into a fixed-interval
// RetryConfig. attempts <= 0 polls without limit.
func FromPollConfig(intervalMs, attempts int) RetryConfig {
	interval := time.Duration(intervalMs) * time.Millisecond
	if interval <= 0 {
		interval = 3 * time.Second
	}
	return FixedInterval(interval, attempts)
}
