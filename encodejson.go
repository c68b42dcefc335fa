package mappersmith

import (
	"context"
	"encoding/json"
	"io"
)

// EncodeJSONMiddleware serializes struct and map bodies to JSON in the
// request phase and sets the content type, so the payload is final before
// any signing or logging middleware sees it. String, byte-slice, reader and
// empty bodies pass through untouched.
func EncodeJSONMiddleware() MiddlewareFactory {
	return func(env Env) Middleware {
		return Middleware{
			Name: "encode-json",
			TransformRequest: func(ctx context.Context, req *Request) (*Request, error) {
				switch req.Body().(type) {
				case nil, string, []byte, io.Reader:
					return req, nil
				}
				encoded, err := json.Marshal(req.Body())
				if err != nil {
					return nil, &ClientError{
						Type:       ErrorTypeConfiguration,
						Message:    "request body is not JSON-encodable",
						Cause:      err,
						Resource:   env.ResourceName,
						MethodName: env.MethodName,
					}
				}
				spec := RequestSpec{Body: encoded}
				if req.Header("Content-Type") == "" {
					spec.Headers = Headers{"Content-Type": jsonContentType}
				}
				return req.Enhance(spec), nil
			},
		}
	}
}
