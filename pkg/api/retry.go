package api

import (
	"math"
	"time"
)

// RetryPolicy controls how an activity is retried when it returns an error.
// MaximumAttempts includes the first attempt. For example:
//
//	MaximumAttempts = 1 => no retries (just the initial call)
//	MaximumAttempts = 3 => initial call + up to 2 retries
//
// The delay before retry n (1-indexed) is
// min(InitialInterval * BackoffCoefficient^(n-1), MaximumInterval).
// A nil *RetryPolicy means a single attempt.
type RetryPolicy struct {
	InitialInterval time.Duration
	MaximumInterval time.Duration

	// BackoffCoefficient defaults to 2.0 when <= 0.
	BackoffCoefficient float64

	MaximumAttempts int
}

// Attempts returns the attempt budget. A nil policy or a non-positive
// MaximumAttempts yields 1.
func (p *RetryPolicy) Attempts() int {
	if p == nil || p.MaximumAttempts <= 0 {
		return 1
	}
	return p.MaximumAttempts
}

// Delay returns how long to wait after the given failed attempt (1-indexed)
// before trying again.
func (p *RetryPolicy) Delay(attempt int) time.Duration {
	if p == nil || p.InitialInterval <= 0 {
		return 0
	}
	if attempt < 1 {
		attempt = 1
	}

	coeff := p.BackoffCoefficient
	if coeff <= 0 {
		coeff = 2.0
	}

	d := float64(p.InitialInterval) * math.Pow(coeff, float64(attempt-1))
	if p.MaximumInterval > 0 && d > float64(p.MaximumInterval) {
		return p.MaximumInterval
	}
	// Guard against float overflow for very large attempt counts.
	if d > float64(math.MaxInt64) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(d)
}

// RetryBuilder provides a fluent way to construct RetryPolicy values.
type RetryBuilder struct {
	policy RetryPolicy
}

// Retry creates a RetryBuilder with the given maxAttempts.
//
// maxAttempts <= 0 is treated as 1 (no retries).
func Retry(maxAttempts int) RetryBuilder {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return RetryBuilder{
		policy: RetryPolicy{
			MaximumAttempts: maxAttempts,
		},
	}
}

// WithExponentialBackoff configures exponential backoff:
//
//   - initial is the delay before the first retry.
//   - multiplier > 1 grows the delay each attempt (default 2.0 if <= 0).
//   - max caps the delay; if <= 0, there is no cap.
//
// Example:
//
//	Retry(3).WithExponentialBackoff(5*time.Second, 2.0, 30*time.Second)
func (r RetryBuilder) WithExponentialBackoff(initial time.Duration, multiplier float64, max time.Duration) RetryBuilder {
	p := r.policy
	p.InitialInterval = initial
	p.MaximumInterval = max
	if multiplier <= 0 {
		multiplier = 2.0
	}
	p.BackoffCoefficient = multiplier
	return RetryBuilder{policy: p}
}

// WithConstantBackoff configures a constant backoff between retries.
func (r RetryBuilder) WithConstantBackoff(delay time.Duration) RetryBuilder {
	p := r.policy
	p.InitialInterval = delay
	p.MaximumInterval = 0
	p.BackoffCoefficient = 1.0
	return RetryBuilder{policy: p}
}

// Immediate disables any sleep between retries.
// Retries will still respect MaximumAttempts.
func (r RetryBuilder) Immediate() RetryBuilder {
	p := r.policy
	p.InitialInterval = 0
	p.MaximumInterval = 0
	p.BackoffCoefficient = 0
	return RetryBuilder{policy: p}
}

// Policy returns a pointer to a copy of the built RetryPolicy, ready to be
// placed in ActivityOptions.
func (r RetryBuilder) Policy() *RetryPolicy {
	p := r.policy
	return &p
}
