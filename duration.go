package mappersmith

import (
	"context"
	"strconv"
	"time"
)

// Headers stamped by DurationMiddleware on every successful response.
const (
	StartedAtHeader = "X-Started-At"
	EndedAtHeader   = "X-Ended-At"
	DurationHeader  = "X-Duration-Ms"
)

const startedAtExtra = "durationStartedAt"

// DurationMiddleware measures each call and stamps the timing onto the
// response headers: start and end as Unix milliseconds plus the elapsed
// duration. The start instant rides through the pipeline as a Request extra
// field, so the measurement spans every downstream hook and the gateway.
func DurationMiddleware() MiddlewareFactory {
	return func(env Env) Middleware {
		return Middleware{
			Name: "duration",
			TransformRequest: func(ctx context.Context, req *Request) (*Request, error) {
				return req.Enhance(RequestSpec{
					Extra: map[string]any{startedAtExtra: time.Now()},
				}), nil
			},
			TransformResponse: func(ctx context.Context, resp *Response, _ Renew) (*Response, error) {
				value, ok := resp.Request().Extra(startedAtExtra)
				if !ok {
					return resp, nil
				}
				started, ok := value.(time.Time)
				if !ok {
					return resp, nil
				}
				ended := time.Now()
				return resp.Enhance(ResponseSpec{Headers: Headers{
					StartedAtHeader: strconv.FormatInt(started.UnixMilli(), 10),
					EndedAtHeader:   strconv.FormatInt(ended.UnixMilli(), 10),
					DurationHeader:  strconv.FormatInt(ended.Sub(started).Milliseconds(), 10),
				}}), nil
			},
		}
	}
}
