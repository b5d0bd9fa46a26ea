package migration

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// transientMarker is implemented by errors DataMover/VerificationStrategy/
// MapSwapper implementations return to declare a failure transient
// (timeouts, network blips, write conflicts). Anything else is permanent
// (spec §4.9 "Retry classification").
type transientMarker interface {
	Transient() bool
}

// transientError wraps a cause and marks it transient.
type transientError struct{ cause error }

func (e *transientError) Error() string   { return e.cause.Error() }
func (e *transientError) Unwrap() error   { return e.cause }
func (e *transientError) Transient() bool { return true }

// MarkTransient wraps err so the executor classifies it as transient and
// retries with backoff instead of failing the key permanently.
func MarkTransient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{cause: err}
}

func isTransient(err error) bool {
	var marker transientMarker
	if errors.As(err, &marker) {
		return marker.Transient()
	}
	return false
}

// newBackoff builds a bounded ExponentialBackOff seeded from base, per the
// spec's "base × 2^attempt" wording (spec §4.9's RetryBaseDelay row).
func newBackoff(base time.Duration) *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = base
	b.Multiplier = 2
	b.MaxElapsedTime = 0 // the executor itself bounds attempt count via MaxRetries
	b.Reset()
	return b
}

// withRetry invokes op up to maxRetries+1 times, sleeping on the supplied
// backoff between transient failures, and reports every backed-off retry
// via onRetry (wired to the executor's Retries metric). A permanent
// failure or exhausted retries returns the last error.
func withRetry(ctx context.Context, b *backoff.ExponentialBackOff, maxRetries int, onRetry func(), op func() error) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err := op()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isTransient(err) {
			return err
		}
		if attempt == maxRetries {
			break
		}
		onRetry()
		wait := b.NextBackOff()
		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
	return lastErr
}
