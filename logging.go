package mappersmith

import (
	"context"

	"github.com/google/uuid"
)

// RequestIDExtra is the Request extra field under which LogMiddleware stores
// the generated request ID, so downstream middleware and gateways can
// correlate their own output.
const RequestIDExtra = "requestId"

// LogMiddleware logs every phase of a call through logger with a per-call
// request ID. Response status 5xx and error outcomes log at warn, the rest
// at debug.
func LogMiddleware(logger Logger) MiddlewareFactory {
	return func(env Env) Middleware {
		requestID := uuid.NewString()
		return Middleware{
			Name: "log",
			TransformRequest: func(ctx context.Context, req *Request) (*Request, error) {
				logger.Debug("request",
					"requestId", requestID,
					"resource", env.ResourceName,
					"methodName", env.MethodName,
					"method", req.Method(),
					"url", req.URL())
				return req.Enhance(RequestSpec{Extra: map[string]any{RequestIDExtra: requestID}}), nil
			},
			TransformResponse: func(ctx context.Context, resp *Response, _ Renew) (*Response, error) {
				if resp.ServerError() {
					logger.Warn("response", "requestId", requestID, "status", resp.Status())
				} else {
					logger.Debug("response", "requestId", requestID, "status", resp.Status())
				}
				return resp, nil
			},
			TransformError: func(ctx context.Context, err error, _ Renew) (*Response, error) {
				logger.Warn("request failed", "requestId", requestID, "error", err.Error())
				return nil, err
			},
		}
	}
}
