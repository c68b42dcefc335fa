package mappersmith

import (
	"net/http"
	"reflect"
	"strings"
	"time"
)

// RequestSpec is the raw material for constructing or deriving a Request.
// Zero-valued fields are ignored by Enhance, so a partial spec only touches
// what it names.
type RequestSpec struct {
	Method  string
	Host    string
	Path    string
	Params  Params
	Headers Headers
	Auth    Auth
	Body    any
	Timeout time.Duration
	Extra   map[string]any
}

// Request is an immutable description of one HTTP call. Every derivation
// returns a new Request; the original is never touched, so a Request may be
// shared freely across goroutines.
type Request struct {
	method     string
	host       string
	path       string
	params     Params
	headers    Headers
	auth       Auth
	body       any
	timeout    time.Duration
	extra      map[string]any
	serializer ParamsSerializer
}

// NewRequest builds a Request from spec. The method defaults to GET and is
// normalized to upper case; header keys are canonicalized; maps are copied
// so later mutation of spec cannot leak in.
func NewRequest(spec RequestSpec) *Request {
	method := strings.ToUpper(spec.Method)
	if method == "" {
		method = http.MethodGet
	}
	return &Request{
		method:     method,
		host:       spec.Host,
		path:       spec.Path,
		params:     cloneParams(spec.Params),
		headers:    cloneHeaders(spec.Headers),
		auth:       cloneAuth(spec.Auth),
		body:       spec.Body,
		timeout:    spec.Timeout,
		extra:      cloneExtra(spec.Extra),
		serializer: DefaultParamsSerializer,
	}
}

// Enhance returns a new Request with spec merged over the receiver. Params,
// Headers, Auth and Extra merge key-wise (later wins per key); Method, Host,
// Path, Body and Timeout replace only when set in spec.
func (r *Request) Enhance(spec RequestSpec) *Request {
	next := &Request{
		method:     r.method,
		host:       r.host,
		path:       r.path,
		params:     cloneParams(r.params),
		headers:    cloneHeaders(r.headers),
		auth:       cloneAuth(r.auth),
		body:       r.body,
		timeout:    r.timeout,
		extra:      cloneExtra(r.extra),
		serializer: r.serializer,
	}
	if spec.Method != "" {
		next.method = strings.ToUpper(spec.Method)
	}
	if spec.Host != "" {
		next.host = spec.Host
	}
	if spec.Path != "" {
		next.path = spec.Path
	}
	if spec.Body != nil {
		next.body = spec.Body
	}
	if spec.Timeout > 0 {
		next.timeout = spec.Timeout
	}
	for key, value := range spec.Params {
		if next.params == nil {
			next.params = Params{}
		}
		next.params[key] = value
	}
	for key, value := range spec.Headers {
		if next.headers == nil {
			next.headers = Headers{}
		}
		next.headers[http.CanonicalHeaderKey(key)] = value
	}
	for key, value := range spec.Auth {
		if next.auth == nil {
			next.auth = Auth{}
		}
		next.auth[key] = value
	}
	for key, value := range spec.Extra {
		if next.extra == nil {
			next.extra = map[string]any{}
		}
		next.extra[key] = value
	}
	return next
}

// Method returns the upper-cased HTTP verb.
func (r *Request) Method() string { return r.method }

// Host returns the base host, possibly empty.
func (r *Request) Host() string { return r.host }

// Path returns the path template, placeholders unresolved.
func (r *Request) Path() string { return r.path }

// Body returns the opaque payload; serialization is the gateway's concern.
func (r *Request) Body() any { return r.body }

// Timeout returns the requested timeout, zero when unset.
func (r *Request) Timeout() time.Duration { return r.timeout }

// Params returns a copy of the params map.
func (r *Request) Params() Params { return cloneParams(r.params) }

// Param returns a single param value.
func (r *Request) Param(name string) (any, bool) {
	value, ok := r.params[name]
	return value, ok
}

// Headers returns a copy of the headers map.
func (r *Request) Headers() Headers { return cloneHeaders(r.headers) }

// Header returns a header value, matching case-insensitively.
func (r *Request) Header(name string) string {
	return r.headers[http.CanonicalHeaderKey(name)]
}

// Auth returns a copy of the credentials map, nil when none were set.
func (r *Request) Auth() Auth { return cloneAuth(r.auth) }

// Extra returns an arbitrary named field carried by the Request; custom
// middleware uses these to thread call-scoped values through the pipeline.
func (r *Request) Extra(name string) (any, bool) {
	value, ok := r.extra[name]
	return value, ok
}

// URL resolves path placeholders against params and appends the remaining
// params as a query string using the configured serializer. Placeholders
// with no matching param stay verbatim and are surfaced by the gateway.
func (r *Request) URL() string {
	resolved, used := expandPath(r.path, r.params)

	host := strings.TrimSuffix(r.host, "/")
	if host != "" && resolved != "" && !strings.HasPrefix(resolved, "/") {
		resolved = "/" + resolved
	}

	leftover := Params{}
	for key, value := range r.params {
		if !used[key] {
			leftover[key] = value
		}
	}

	full := host + resolved
	if len(leftover) > 0 {
		query := r.serializer(leftover)
		if query != "" {
			separator := "?"
			if strings.Contains(full, "?") {
				separator = "&"
			}
			full += separator + query
		}
	}
	return full
}

// Equal reports deep equality of every request field.
func (r *Request) Equal(other *Request) bool {
	if r == nil || other == nil {
		return r == other
	}
	return r.method == other.method &&
		r.host == other.host &&
		r.path == other.path &&
		r.timeout == other.timeout &&
		reflect.DeepEqual(r.params, other.params) &&
		reflect.DeepEqual(r.headers, other.headers) &&
		reflect.DeepEqual(r.auth, other.auth) &&
		reflect.DeepEqual(r.extra, other.extra) &&
		reflect.DeepEqual(r.body, other.body)
}

// withSerializer returns a copy bound to a different query serializer.
func (r *Request) withSerializer(serializer ParamsSerializer) *Request {
	if serializer == nil {
		return r
	}
	next := *r
	next.serializer = serializer
	return &next
}

func cloneParams(params Params) Params {
	if params == nil {
		return nil
	}
	copied := make(Params, len(params))
	for key, value := range params {
		copied[key] = value
	}
	return copied
}

func cloneHeaders(headers Headers) Headers {
	if headers == nil {
		return nil
	}
	copied := make(Headers, len(headers))
	for key, value := range headers {
		copied[http.CanonicalHeaderKey(key)] = value
	}
	return copied
}

func cloneAuth(auth Auth) Auth {
	if auth == nil {
		return nil
	}
	copied := make(Auth, len(auth))
	for key, value := range auth {
		copied[key] = value
	}
	return copied
}

func cloneExtra(extra map[string]any) map[string]any {
	if extra == nil {
		return nil
	}
	copied := make(map[string]any, len(extra))
	for key, value := range extra {
		copied[key] = value
	}
	return copied
}
