package mappersmith

import (
	"context"

	"golang.org/x/time/rate"
)

// ThrottleMiddleware blocks the request phase on a token bucket shared by
// every call through the returned factory: limit tokens per second with the
// given burst. The wait respects the call's context deadline; exceeding it
// fails the call with the context error.
func ThrottleMiddleware(limit rate.Limit, burst int) MiddlewareFactory {
	limiter := rate.NewLimiter(limit, burst)
	return func(env Env) Middleware {
		return Middleware{
			Name: "throttle",
			TransformRequest: func(ctx context.Context, req *Request) (*Request, error) {
				if err := limiter.Wait(ctx); err != nil {
					return nil, err
				}
				return req, nil
			},
		}
	}
}
