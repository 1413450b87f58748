package store

import (
	"fmt"
	"time"
)

// WithRetry runs fn up to attempts times with linear backoff (base, 2*base,
// ...) between failures, absorbing transient datastore errors. The exhausted
// error wraps the last failure so callers can surface a 500 and let the
// provider's at-least-once delivery redeliver.
func WithRetry(attempts int, base time.Duration, fn func() error) error {
	var err error
	for i := 1; i <= attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i < attempts {
			time.Sleep(time.Duration(i) * base)
		}
	}
	return fmt.Errorf("persistence failed after %d attempts: %w", attempts, err)
}
