package export

import (
	"math"
	"time"
)

// #region policy

// RetryPolicy decides whether another attempt is allowed and how long to wait first.
type RetryPolicy struct {
	maxRetries int
	base       float64
	unit       time.Duration
	max        time.Duration
}

// NewRetryPolicy builds a policy from config, filling defaults.
func NewRetryPolicy(config Config) RetryPolicy {
	c := config.withDefaults()
	return RetryPolicy{
		maxRetries: c.MaxRetries,
		base:       c.BackoffBase,
		unit:       c.BackoffUnit,
		max:        c.MaxBackoff,
	}
}

// #endregion policy

// #region should-retry

// ShouldRetry reports whether another attempt follows after attempts failures.
func (p RetryPolicy) ShouldRetry(attempts int) bool {
	return attempts < p.maxRetries
}

// Delay returns unit * base^(attempts-1), capped at the policy maximum.
// attempts is the number of failures so far (>= 1).
func (p RetryPolicy) Delay(attempts int) time.Duration {
	if attempts <= 0 {
		attempts = 1
	}
	d := float64(p.unit) * math.Pow(p.base, float64(attempts-1))
	if math.IsInf(d, 0) || d > float64(p.max) {
		return p.max
	}
	return time.Duration(d)
}

// MaxRetries returns the attempt budget per cycle.
func (p RetryPolicy) MaxRetries() int {
	return p.maxRetries
}

// #endregion should-retry
