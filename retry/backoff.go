// Package retry decides when a failed request is attempted again and how
// long to wait between attempts.
package retry

import (
	"math"
	"math/rand"
	"time"
)

// BackoffStrategy defines the interface for calculating retry delays.
// Implementations should be safe for concurrent use.
type BackoffStrategy interface {
	// NextInterval returns the next backoff duration based on the attempt number.
	// Attempt starts at 1 for the first retry.
	NextInterval(attempt int) time.Duration
}

// ExponentialBackoff implements exponential backoff with optional jitter.
// Jitter prevents thundering herd when multiple clients retry simultaneously.
type ExponentialBackoff struct {
	InitialInterval time.Duration
	// MaxInterval caps the computed delay. Zero means uncapped.
	MaxInterval time.Duration
	Multiplier  float64
	// JitterFactor spreads delays by up to the given fraction in either
	// direction. Zero keeps the schedule deterministic.
	JitterFactor float64
}

// NextInterval calculates the exponential backoff delay for a retry attempt.
// Formula: InitialInterval * (Multiplier ^ (attempt-1)) * (1 ± JitterFactor),
// capped at MaxInterval when one is set.
func (e ExponentialBackoff) NextInterval(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	initial := e.InitialInterval
	if initial <= 0 {
		initial = 2 * time.Second
	}

	multiplier := e.Multiplier
	if multiplier == 0 {
		multiplier = 2
	}

	// Calculate exponential growth: initial * (multiplier ^ (attempt-1))
	interval := float64(initial) * math.Pow(multiplier, float64(attempt-1))

	// Apply jitter to spread retry times across concurrent clients
	if e.JitterFactor > 0 {
		randomJitter := (rand.Float64()*2 - 1) * e.JitterFactor
		interval = interval * (1 + randomJitter)
	}

	if e.MaxInterval > 0 && interval > float64(e.MaxInterval) {
		interval = float64(e.MaxInterval)
	}
	if interval < 0 {
		interval = 0
	}

	return time.Duration(interval)
}

// LinearBackoff implements simple linear backoff without jitter.
type LinearBackoff struct {
	Interval time.Duration
	// MaxInterval caps the computed delay. Zero means uncapped.
	MaxInterval time.Duration
}

// NextInterval returns linearly increasing delays.
// Formula: Interval * attempt, capped at MaxInterval when one is set.
func (l LinearBackoff) NextInterval(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	interval := l.Interval
	if interval <= 0 {
		interval = time.Second
	}

	delay := interval * time.Duration(attempt)
	if l.MaxInterval > 0 && delay > l.MaxInterval {
		delay = l.MaxInterval
	}

	return delay
}

// FixedBackoff implements a constant delay between retries.
type FixedBackoff struct {
	// Interval is the fixed delay between retries
	Interval time.Duration
}

// NextInterval always returns the same interval regardless of attempt number.
func (f FixedBackoff) NextInterval(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return f.Interval
}
