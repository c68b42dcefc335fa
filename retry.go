package mappersmith

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/ryo12122/mappersmith/internal/backoff"
)

// RetryConfig tunes RetryMiddleware. Zero values fall back to the defaults
// noted per field.
type RetryConfig struct {
	// Retries is the number of re-issues after the first attempt (default 3).
	Retries int
	// InitialBackoff is the first delay (default 100ms).
	InitialBackoff time.Duration
	// MaxBackoff caps every delay (default 10s).
	MaxBackoff time.Duration
	// Multiplier grows the delay per attempt (default 2.0).
	Multiplier float64
	// Jitter adds up to this fraction of random delay, 0..1 (default 0.1).
	Jitter float64
	// Strategy computes delays (default backoff.Exponential).
	Strategy backoff.Strategy
	// RetryResponse decides whether a completed response warrants a retry
	// (default: 429 or 5xx on an idempotent verb, honoring Retry-After).
	RetryResponse func(resp *Response) bool
	// RetryError decides whether a failed outcome warrants a retry
	// (default: IsTransient).
	RetryError func(err error) bool
}

func (cfg RetryConfig) withDefaults() RetryConfig {
	if cfg.Retries <= 0 {
		cfg.Retries = 3
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 100 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 10 * time.Second
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = 2.0
	}
	if cfg.Jitter < 0 {
		cfg.Jitter = 0
	}
	if cfg.Strategy == nil {
		cfg.Strategy = backoff.Exponential{}
	}
	if cfg.RetryResponse == nil {
		cfg.RetryResponse = DefaultRetryResponse
	}
	if cfg.RetryError == nil {
		cfg.RetryError = IsTransient
	}
	return cfg
}

// DefaultRetryResponse retries 429 and 5xx responses to idempotent verbs.
func DefaultRetryResponse(resp *Response) bool {
	if !isIdempotent(resp.Request().Method()) {
		return false
	}
	return resp.Status() == http.StatusTooManyRequests || resp.ServerError()
}

// RetryMiddleware re-issues failed calls through the pipeline's renew
// capability, backing off between attempts and honoring Retry-After on 429
// and 503. Each renew consumes one stack execution, so size the client's
// MaxMiddlewareStackExecutions to at least Retries+1 for the full budget.
func RetryMiddleware(cfg RetryConfig) MiddlewareFactory {
	cfg = cfg.withDefaults()
	return func(env Env) Middleware {
		attempt := 0
		delayFor := func(resp *Response) time.Duration {
			if resp != nil {
				if after := parseRetryAfter(resp.Header("Retry-After")); after > 0 {
					return after
				}
			}
			return cfg.Strategy.Delay(attempt, backoff.Config{
				Initial:    cfg.InitialBackoff,
				Max:        cfg.MaxBackoff,
				Multiplier: cfg.Multiplier,
				Jitter:     cfg.Jitter,
			})
		}
		return Middleware{
			Name: "retry",
			TransformResponse: func(ctx context.Context, resp *Response, renew Renew) (*Response, error) {
				if attempt >= cfg.Retries || !cfg.RetryResponse(resp) {
					return resp, nil
				}
				delay := delayFor(resp)
				attempt++
				if err := sleep(ctx, delay); err != nil {
					return nil, err
				}
				return renew(ctx)
			},
			TransformError: func(ctx context.Context, err error, renew Renew) (*Response, error) {
				if attempt >= cfg.Retries || !cfg.RetryError(err) {
					return nil, err
				}
				delay := delayFor(nil)
				attempt++
				if sleepErr := sleep(ctx, delay); sleepErr != nil {
					return nil, sleepErr
				}
				return renew(ctx)
			},
		}
	}
}

// parseRetryAfter understands the delay-seconds form of Retry-After.
// HTTP-date values are ignored.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	seconds, err := strconv.Atoi(value)
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
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
