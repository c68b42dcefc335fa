package mappersmith

import (
	"context"
	"time"
)

// TimeoutMiddleware applies a default timeout to requests that have none.
// Method specs and call-time Args keep precedence.
func TimeoutMiddleware(timeout time.Duration) MiddlewareFactory {
	return func(env Env) Middleware {
		return Middleware{
			Name: "timeout",
			TransformRequest: func(ctx context.Context, req *Request) (*Request, error) {
				if req.Timeout() > 0 {
					return req, nil
				}
				return req.Enhance(RequestSpec{Timeout: timeout}), nil
			},
		}
	}
}
