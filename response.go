package mappersmith

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/tidwall/gjson"
)

// ResponseSpec is a partial response used by Enhance to derive replacement
// responses inside middleware.
type ResponseSpec struct {
	Status  int
	Headers Headers
	Body    []byte
	Err     error
}

// Response is an immutable wrapper around a gateway result. Exactly one of
// status or Err is the terminal outcome; both coexist only when a gateway
// supplies a status alongside an error marker.
type Response struct {
	request *Request
	status  int
	headers Headers
	body    []byte
	err     error

	decodeOnce sync.Once
	decoded    any
}

// NewResponse builds a successful Response for the given originating Request.
func NewResponse(req *Request, status int, headers Headers, body []byte) *Response {
	return &Response{
		request: req,
		status:  status,
		headers: cloneHeaders(headers),
		body:    body,
	}
}

// NewResponseError builds a Response representing a transport-level failure
// observed before any status was received.
func NewResponseError(req *Request, err error) *Response {
	return &Response{request: req, err: err}
}

// Request returns the Request that produced this response.
func (r *Response) Request() *Request { return r.request }

// Status returns the HTTP status code, zero on transport failure.
func (r *Response) Status() int { return r.status }

// Err returns the transport error, nil on a completed exchange.
func (r *Response) Err() error { return r.err }

// Headers returns a copy of the response headers.
func (r *Response) Headers() Headers { return cloneHeaders(r.headers) }

// Header returns a header value, matching case-insensitively.
func (r *Response) Header(name string) string {
	return r.headers[http.CanonicalHeaderKey(name)]
}

// RawBody returns the unparsed body bytes.
func (r *Response) RawBody() []byte { return r.body }

// Data returns the decoded body: parsed JSON (into map/slice/primitive) when
// the content type indicates JSON, the raw body as a string otherwise.
// Decoding is advisory: a body that fails to parse comes back as its raw
// string rather than an error. The result is computed once and memoized.
func (r *Response) Data() any {
	r.decodeOnce.Do(func() {
		if len(r.body) == 0 {
			r.decoded = ""
			return
		}
		if !strings.Contains(strings.ToLower(r.Header("Content-Type")), "json") {
			r.decoded = string(r.body)
			return
		}
		var parsed any
		if err := json.Unmarshal(r.body, &parsed); err != nil {
			r.decoded = string(r.body)
			return
		}
		r.decoded = parsed
	})
	return r.decoded
}

// Get looks a gjson path up in the body, e.g. resp.Get("user.name").
func (r *Response) Get(path string) gjson.Result {
	return gjson.GetBytes(r.body, path)
}

// Success reports a completed exchange with a 2xx status.
func (r *Response) Success() bool {
	return r.err == nil && r.status >= 200 && r.status < 300
}

// ClientError reports a 4xx status.
func (r *Response) ClientError() bool {
	return r.status >= 400 && r.status < 500
}

// ServerError reports a 5xx status.
func (r *Response) ServerError() bool {
	return r.status >= 500 && r.status < 600
}

// TimedOut reports whether the transport error was a timeout.
func (r *Response) TimedOut() bool {
	return IsTimeout(r.err)
}

// CanRetry reports whether re-issuing the request is presumed safe: the verb
// is idempotent and the outcome was a transport failure, a 429 or a 5xx.
// Whether to actually retry is retry-middleware policy, not a contract.
func (r *Response) CanRetry() bool {
	if r.request != nil && !isIdempotent(r.request.Method()) {
		return false
	}
	return r.err != nil || r.status == http.StatusTooManyRequests || r.ServerError()
}

// Enhance returns a new Response with spec merged over the receiver: headers
// merge key-wise, status/body/err replace when set, the originating request
// is carried over. Decoded-body memoization restarts on the copy.
func (r *Response) Enhance(spec ResponseSpec) *Response {
	next := &Response{
		request: r.request,
		status:  r.status,
		headers: cloneHeaders(r.headers),
		body:    r.body,
		err:     r.err,
	}
	if spec.Status != 0 {
		next.status = spec.Status
	}
	if spec.Body != nil {
		next.body = spec.Body
	}
	if spec.Err != nil {
		next.err = spec.Err
	}
	for key, value := range spec.Headers {
		if next.headers == nil {
			next.headers = Headers{}
		}
		next.headers[http.CanonicalHeaderKey(key)] = value
	}
	return next
}

func isIdempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodPut, http.MethodDelete:
		return true
	default:
		return false
	}
}
