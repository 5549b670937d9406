// Package backoff computes reconnection delays for the supervisor. It is
// deliberately a pure function rather than a stateful ticker (contrast
// github.com/cenkalti/backoff/v5, which the relay client uses for one-shot
// setup retries) so the formula can be property-tested without a clock.
package backoff

import (
	"math"
	"math/rand/v2"
	"time"
)

// Config holds the parameters of the exponential-backoff-with-jitter
// formula (spec.md §4.8).
type Config struct {
	Initial     time.Duration
	Max         time.Duration
	Factor      float64
	Jitter      float64 // fraction in [0,1); delay is scaled by uniform(1-Jitter, 1+Jitter)
	MaxAttempts int     // 0 means unlimited
}

// Default mirrors the teacher's hub-client tuning (1s -> 60s, 2x, ±20%)
// with no attempt ceiling; the supervisor overrides MaxAttempts when the
// operator configures one.
func Default() Config {
	return Config{
		Initial: 1 * time.Second,
		Max:     60 * time.Second,
		Factor:  2.0,
		Jitter:  0.2,
	}
}

// Compute returns the delay before the given attempt (1-indexed: the delay
// before the *first* retry is Compute(1)). It applies no jitter when
// Jitter is zero, which keeps tests deterministic.
func (c Config) Compute(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	raw := float64(c.Initial) * math.Pow(c.Factor, float64(attempt-1))
	if max := float64(c.Max); raw > max {
		raw = max
	}
	if c.Jitter > 0 {
		lo := 1 - c.Jitter
		hi := 1 + c.Jitter
		raw *= lo + rand.Float64()*(hi-lo)
	}
	return time.Duration(raw)
}

// IsMaxAttemptsReached reports whether attempt has exhausted the configured
// retry budget. MaxAttempts == 0 means unlimited.
func (c Config) IsMaxAttemptsReached(attempt int) bool {
	return c.MaxAttempts != 0 && attempt >= c.MaxAttempts
}
