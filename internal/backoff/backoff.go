// Package backoff provides delay strategies for retry middleware.
package backoff

import (
	"math/rand"
	"time"
)

// Config bounds the delays a strategy may produce.
type Config struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
	Jitter     float64
}

// Strategy computes the delay before retry attempt n (0-based: the delay
// after the first failure is Delay(0)).
type Strategy interface {
	Delay(attempt int, cfg Config) time.Duration
}

// Exponential grows the delay by cfg.Multiplier per attempt and adds uniform
// jitter of up to cfg.Jitter of the delay.
type Exponential struct{}

func (Exponential) Delay(attempt int, cfg Config) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	// Beyond 30 doublings every practical Max has been hit.
	if attempt > 30 {
		attempt = 30
	}

	delay := time.Duration(float64(cfg.Initial) * pow(cfg.Multiplier, attempt))
	if delay < 0 || delay > cfg.Max {
		delay = cfg.Max
	}

	jitter := clampJitter(cfg.Jitter)
	if jitter > 0 {
		bump := time.Duration(float64(delay) * jitter * rand.Float64())
		if delay+bump > cfg.Max {
			delay = cfg.Max
		} else {
			delay += bump
		}
	}
	return delay
}

// Decorrelated implements AWS-style decorrelated jitter: each delay is drawn
// uniformly between the base and three times the previous upper bound, which
// smooths tail latencies compared to plain exponential jitter.
type Decorrelated struct{}

func (Decorrelated) Delay(attempt int, cfg Config) time.Duration {
	if attempt <= 0 {
		return cfg.Initial
	}
	if attempt > 10 {
		attempt = 10
	}

	base := float64(cfg.Initial)
	upper := base * pow(3.0, attempt)
	if max := float64(cfg.Max); upper > max || upper < 0 {
		upper = max
	}
	if upper <= base {
		return cfg.Max
	}
	return time.Duration(base + rand.Float64()*(upper-base))
}

func pow(base float64, exponent int) float64 {
	result := 1.0
	for i := 0; i < exponent; i++ {
		result *= base
	}
	return result
}

func clampJitter(jitter float64) float64 {
	if jitter < 0 {
		return 0
	}
	if jitter > 1 {
		return 1
	}
	return jitter
}
