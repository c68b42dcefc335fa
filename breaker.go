package mappersmith

import (
	"context"
	"sync/atomic"
	"time"
)

// BreakerConfig tunes BreakerMiddleware. Zero values mean 5 failures to
// open, 60s recovery, 2 successes to close.
type BreakerConfig struct {
	FailureThreshold int
	RecoveryTimeout  time.Duration
	SuccessThreshold int
}

// Circuit states.
type circuitState int64

const (
	stateClosed circuitState = iota
	stateOpen
	stateHalfOpen
)

// breaker is a lock-free circuit breaker; all fields are manipulated with
// atomics.
type breaker struct {
	config      BreakerConfig
	state       int64
	failures    int64
	lastFailure int64
	successes   int64
}

func newBreaker(config BreakerConfig) *breaker {
	if config.FailureThreshold == 0 {
		config.FailureThreshold = 5
	}
	if config.RecoveryTimeout == 0 {
		config.RecoveryTimeout = 60 * time.Second
	}
	if config.SuccessThreshold == 0 {
		config.SuccessThreshold = 2
	}
	return &breaker{config: config}
}

func (b *breaker) allow() bool {
	now := time.Now().UnixNano()
	switch circuitState(atomic.LoadInt64(&b.state)) {
	case stateClosed:
		return true
	case stateOpen:
		lastFailure := atomic.LoadInt64(&b.lastFailure)
		if now-lastFailure >= int64(b.config.RecoveryTimeout) {
			if atomic.CompareAndSwapInt64(&b.state, int64(stateOpen), int64(stateHalfOpen)) {
				atomic.StoreInt64(&b.successes, 0)
				return true
			}
		}
		return false
	case stateHalfOpen:
		return true
	default:
		return false
	}
}

func (b *breaker) recordFailure() {
	atomic.StoreInt64(&b.lastFailure, time.Now().UnixNano())
	switch circuitState(atomic.LoadInt64(&b.state)) {
	case stateClosed:
		if atomic.AddInt64(&b.failures, 1) >= int64(b.config.FailureThreshold) {
			atomic.StoreInt64(&b.state, int64(stateOpen))
		}
	case stateHalfOpen:
		// A probe failure re-opens the circuit immediately.
		atomic.AddInt64(&b.failures, 1)
		atomic.StoreInt64(&b.state, int64(stateOpen))
		atomic.StoreInt64(&b.successes, 0)
	}
}

func (b *breaker) recordSuccess() {
	if circuitState(atomic.LoadInt64(&b.state)) != stateHalfOpen {
		return
	}
	if atomic.AddInt64(&b.successes, 1) >= int64(b.config.SuccessThreshold) {
		atomic.StoreInt64(&b.state, int64(stateClosed))
		atomic.StoreInt64(&b.failures, 0)
		atomic.StoreInt64(&b.successes, 0)
	}
}

// BreakerMiddleware shares one circuit breaker across every call that goes
// through the returned factory. While the circuit is open the request phase
// fails fast with ErrCircuitOpen; 5xx responses and pipeline errors count as
// failures, everything else as success.
func BreakerMiddleware(config BreakerConfig) MiddlewareFactory {
	shared := newBreaker(config)
	return func(env Env) Middleware {
		return Middleware{
			Name: "breaker",
			TransformRequest: func(ctx context.Context, req *Request) (*Request, error) {
				if !shared.allow() {
					return nil, &ClientError{
						Type:       ErrorTypeGateway,
						Message:    "circuit breaker is open",
						Cause:      ErrCircuitOpen,
						Resource:   env.ResourceName,
						MethodName: env.MethodName,
						Method:     req.Method(),
						URL:        req.URL(),
						Timestamp:  time.Now(),
					}
				}
				return req, nil
			},
			TransformResponse: func(ctx context.Context, resp *Response, _ Renew) (*Response, error) {
				if resp.ServerError() {
					shared.recordFailure()
				} else {
					shared.recordSuccess()
				}
				return resp, nil
			},
			TransformError: func(ctx context.Context, err error, _ Renew) (*Response, error) {
				shared.recordFailure()
				return nil, err
			},
		}
	}
}
