// Package retry provides the retry policy applied at every external-call
// boundary: a fixed attempt ceiling over an exponential backoff schedule
// with a pluggable retryable-error predicate.
package retry

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/caddvault/vault-updater/internal/domain"
)

// Policy describes how an operation is retried: total attempt ceiling,
// backoff schedule, and the predicate deciding which errors are worth
// another try.
type Policy struct {
	// MaxAttempts is the total number of attempts including the first.
	// Zero or negative means a single attempt.
	MaxAttempts int

	// InitialInterval is the delay before the first retry.
	InitialInterval time.Duration

	// MaxInterval caps the delay between consecutive attempts.
	MaxInterval time.Duration

	// MaxElapsed bounds the total time spent retrying. Zero means the
	// attempt ceiling alone terminates the loop.
	MaxElapsed time.Duration

	// Multiplier scales the interval after each attempt.
	Multiplier float64

	// Retryable reports whether an error is worth another attempt.
	// A nil predicate retries every error.
	Retryable func(error) bool
}

// Default returns the policy used at external API boundaries: three attempts
// with a 1s/2x exponential schedule, retrying transient failures only.
func Default() Policy {
	return Policy{
		MaxAttempts:     3,
		InitialInterval: time.Second,
		MaxInterval:     30 * time.Second,
		MaxElapsed:      2 * time.Minute,
		Multiplier:      2.0,
		Retryable:       IsTransient,
	}
}

// Do runs op until it succeeds, the attempt ceiling is reached, the schedule
// is exhausted, or an error fails the Retryable predicate. A rate-limit error
// carrying a server-supplied retry-after hint stretches the next delay to at
// least that hint. Context cancellation aborts the wait and returns ctx.Err().
func (p Policy) Do(ctx context.Context, op func() error) error {
	bo := p.newBackOff()

	ceiling := p.MaxAttempts
	if ceiling < 1 {
		ceiling = 1
	}

	attempts := 0
	for {
		err := op()
		if err == nil {
			return nil
		}

		attempts++
		if attempts >= ceiling {
			return err
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}

		wait := bo.NextBackOff()
		if wait == backoff.Stop {
			return err
		}
		if hint := retryAfterHint(err); hint > wait {
			wait = hint
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (p Policy) newBackOff() *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		bo.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		bo.MaxInterval = p.MaxInterval
	}
	if p.Multiplier > 0 {
		bo.Multiplier = p.Multiplier
	}
	bo.MaxElapsedTime = p.MaxElapsed
	bo.Reset()
	return bo
}

func retryAfterHint(err error) time.Duration {
	var rle *domain.RateLimitError
	if errors.As(err, &rle) {
		return rle.RetryAfter
	}
	return 0
}

// IsTransient reports whether err looks like a passing failure: rate
// limiting, upstream unavailability, timeouts, transport-level errors, and
// 5xx responses. Cancellation and not-found are never transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, domain.ErrNotFound) {
		return false
	}
	if errors.Is(err, domain.ErrRateLimited) || errors.Is(err, domain.ErrServiceUnavailable) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var apiErr *domain.ExternalAPIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 0 ||
			apiErr.StatusCode == 429 ||
			apiErr.StatusCode >= 500
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	return false
}
