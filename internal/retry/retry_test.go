package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caddvault/vault-updater/internal/domain"
)

func fastPolicy(attempts int) Policy {
	return Policy{
		MaxAttempts:     attempts,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		Multiplier:      2.0,
		Retryable:       IsTransient,
	}
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := fastPolicy(3).Do(context.Background(), func() error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoRetriesTransientErrors(t *testing.T) {
	calls := 0
	err := fastPolicy(3).Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return domain.NewExternalAPIError("crossref", 503, "unavailable", nil)
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoExhaustsAttempts(t *testing.T) {
	calls := 0
	wantErr := domain.NewExternalAPIError("github", 500, "boom", nil)
	err := fastPolicy(3).Do(context.Background(), func() error {
		calls++
		return wantErr
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.ErrorContains(t, err, "boom")
}

func TestDoStopsOnPermanentError(t *testing.T) {
	calls := 0
	err := fastPolicy(5).Do(context.Background(), func() error {
		calls++
		return domain.NewNotFoundError("work", "10.1021/acs.jcim.0c00000")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDoHonorsRetryAfterHint(t *testing.T) {
	calls := 0
	start := time.Now()
	err := fastPolicy(2).Do(context.Background(), func() error {
		calls++
		if calls == 1 {
			return domain.NewRateLimitError("github", 30*time.Millisecond)
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestDoAbortsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	policy := Policy{
		MaxAttempts:     5,
		InitialInterval: time.Second,
		Retryable:       func(error) bool { return true },
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- policy.Do(ctx, func() error {
			calls++
			return errors.New("keep trying")
		})
	}()

	cancel()
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Do did not return after cancellation")
	}
}

func TestDoSingleAttemptWhenCeilingUnset(t *testing.T) {
	calls := 0
	policy := Policy{Retryable: func(error) bool { return true }}
	err := policy.Do(context.Background(), func() error {
		calls++
		return errors.New("nope")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestIsTransient(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"cancellation", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, true},
		{"not found", domain.ErrNotFound, false},
		{"typed not found", domain.NewNotFoundError("record", "x"), false},
		{"rate limited", domain.NewRateLimitError("github", time.Second), true},
		{"service unavailable", domain.ErrServiceUnavailable, true},
		{"server error", domain.NewExternalAPIError("s", 502, "bad gateway", nil), true},
		{"too many requests", domain.NewExternalAPIError("s", 429, "slow down", nil), true},
		{"client error", domain.NewExternalAPIError("s", 400, "bad request", nil), false},
		{"transport error", domain.NewExternalAPIError("s", 0, "connection refused", nil), true},
		{"plain error", errors.New("parse failure"), false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsTransient(tc.err))
		})
	}
}
