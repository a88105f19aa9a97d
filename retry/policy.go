package retry

import (
	"context"
	"net/http"
	"time"
)

// DefaultMaxRetries is the number of additional attempts made after the
// initial request fails with a retryable outcome.
const DefaultMaxRetries = 3

// Policy describes how failed requests are retried. The zero value retries
// nothing; DefaultPolicy returns the standard schedule.
type Policy struct {
	// MaxRetries is the number of retries after the initial attempt.
	MaxRetries int
	// Backoff computes the delay before each retry. Nil falls back to
	// exponential backoff starting at two seconds and doubling.
	Backoff BackoffStrategy
	// RetryableStatus reports whether a response status warrants another
	// attempt. Nil falls back to DefaultRetryableStatus.
	RetryableStatus func(status int) bool
}

// DefaultPolicy returns the standard retry schedule: three retries waiting
// 2s, 4s and 8s, triggered by transient status codes.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries: DefaultMaxRetries,
		Backoff: ExponentialBackoff{
			InitialInterval: 2 * time.Second,
			Multiplier:      2,
		},
		RetryableStatus: DefaultRetryableStatus,
	}
}

// DefaultRetryableStatus reports whether a status code is worth retrying.
// Only transient conditions qualify: 408 Request Timeout, 429 Too Many
// Requests and 503 Service Unavailable. Other server errors are treated as
// deterministic failures.
func DefaultRetryableStatus(status int) bool {
	switch status {
	case http.StatusRequestTimeout, http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return true
	default:
		return false
	}
}

// ShouldRetry reports whether another attempt should be made after the given
// zero-based attempt finished with the given status code.
func (p Policy) ShouldRetry(attempt, status int) bool {
	if attempt >= p.MaxRetries {
		return false
	}
	if p.RetryableStatus == nil {
		return DefaultRetryableStatus(status)
	}
	return p.RetryableStatus(status)
}

// Delay returns the wait before the given retry attempt (starting at 1).
func (p Policy) Delay(attempt int) time.Duration {
	backoff := p.Backoff
	if backoff == nil {
		backoff = ExponentialBackoff{}
	}
	return backoff.NextInterval(attempt)
}

// Wait blocks for the delay of the given retry attempt or until the context
// is done, whichever comes first.
func (p Policy) Wait(ctx context.Context, attempt int) error {
	return Sleep(ctx, p.Delay(attempt))
}

// Sleep blocks for the given duration or until the context is done. It
// returns the context error when the wait was interrupted.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
