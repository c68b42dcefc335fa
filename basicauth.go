package mappersmith

import (
	"context"
)

// BasicAuthMiddleware fills in basic-auth credentials on requests that carry
// no auth of their own; call-time Args.Auth always wins.
func BasicAuthMiddleware(username, password string) MiddlewareFactory {
	return func(env Env) Middleware {
		return Middleware{
			Name: "basic-auth",
			TransformRequest: func(ctx context.Context, req *Request) (*Request, error) {
				if req.Auth() != nil {
					return req, nil
				}
				return req.Enhance(RequestSpec{
					Auth: Auth{"username": username, "password": password},
				}), nil
			},
		}
	}
}
