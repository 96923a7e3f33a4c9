package httpclient

import (
	"math"
	"math/rand"
	"time"
)

// BackoffStrategy calculates the delay before a retry attempt.
// Implementations must be safe for concurrent use.
type BackoffStrategy interface {
	// NextInterval returns the backoff duration for the given attempt.
	// Attempt starts at 1 for the first retry.
	NextInterval(attempt int) time.Duration
}

// ExponentialBackoff implements exponential backoff with optional jitter.
type ExponentialBackoff struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	JitterFactor    float64
}

// NextInterval returns min(InitialInterval * Multiplier^(attempt-1), MaxInterval),
// spread by ±JitterFactor when jitter is configured. Zero jitter keeps the
// schedule deterministic, which the SDK relies on for its documented
// 1s/2s/4s default.
func (e ExponentialBackoff) NextInterval(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	initial := e.InitialInterval
	if initial == 0 {
		initial = time.Second
	}

	limit := e.MaxInterval
	if limit == 0 {
		limit = 30 * time.Second
	}

	multiplier := e.Multiplier
	if multiplier == 0 {
		multiplier = 2
	}

	interval := float64(initial) * math.Pow(multiplier, float64(attempt-1))

	if e.JitterFactor > 0 {
		randomJitter := (rand.Float64()*2 - 1) * e.JitterFactor
		interval = interval * (1 + randomJitter)
	}

	if interval > float64(limit) {
		interval = float64(limit)
	}

	return time.Duration(interval)
}

// FixedBackoff implements a constant delay between retries.
type FixedBackoff struct {
	Interval time.Duration
}

// NextInterval always returns the same interval regardless of attempt number.
func (f FixedBackoff) NextInterval(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return f.Interval
}

// DefaultBackoffStrategy returns the SDK's stock retry schedule: 1s, 2s, 4s.
func DefaultBackoffStrategy() BackoffStrategy {
	return ExponentialBackoff{
		InitialInterval: time.Second,
		MaxInterval:     30 * time.Second,
		Multiplier:      2,
	}
}
