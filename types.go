package mappersmith

import (
	"context"
	"net/http"
)

// Params maps parameter names to values. Values may be primitives, nested
// maps or slices; how they render into a query string is decided by the
// configured ParamsSerializer.
type Params map[string]any

// Headers maps header names to values. Lookups are case-insensitive; keys
// are stored in canonical MIME form.
type Headers map[string]string

// Auth carries transport-specific credentials. The HTTP gateway understands
// the "username" and "password" keys; custom gateways and middleware may
// define their own.
type Auth map[string]string

// GatewayConfig is the transport-specific configuration handed to a Gateway
// on every call, merged per key from global, resource and method scope.
type GatewayConfig map[string]any

// Gateway dispatches a built Request over some transport. Implementations
// must return a typed error rather than panic on network failure, and must
// resolve normally for 4xx/5xx responses.
type Gateway interface {
	Call(ctx context.Context, req *Request, config GatewayConfig) (*Response, error)
}

// GatewayFactory constructs a Gateway. Factories are registered by name and
// resolved once at client build time.
type GatewayFactory func() Gateway

// Env is passed to every MiddlewareFactory invocation. Context is the
// client-scoped shared value map; treat it as read-only across calls.
type Env struct {
	ClientID     string
	ResourceName string
	MethodName   string
	Context      map[string]any
}

// Renew re-enters the pipeline from the request phase and returns the new
// outcome. The executor bounds re-entries; past the limit Renew fails with
// ErrStackExceeded.
type Renew func(ctx context.Context) (*Response, error)

// Middleware is a hook set. Any subset of the three capabilities may be set;
// nil funcs are skipped. Hooks must return replacements, never mutate their
// input, and run in declared order in every phase.
type Middleware struct {
	Name string

	// TransformRequest produces the Request consumed by the next hook and
	// ultimately the gateway. An error rejects the call before dispatch.
	TransformRequest func(ctx context.Context, req *Request) (*Request, error)

	// TransformResponse inspects or replaces a successful outcome. Returning
	// an error moves the cycle to the error phase.
	TransformResponse func(ctx context.Context, resp *Response, renew Renew) (*Response, error)

	// TransformError may recover a failed outcome into a Response, or
	// propagate (the same or a different) error to the next error hook.
	TransformError func(ctx context.Context, err error, renew Renew) (*Response, error)
}

// MiddlewareFactory builds one Middleware instance per client call, so hook
// state (attempt counters, timers) is call-local by construction.
type MiddlewareFactory func(env Env) Middleware

// ParamsSerializer renders leftover params (those not consumed by path
// placeholders) into an encoded query string, without the leading '?'.
type ParamsSerializer func(params Params) string

// Logger receives structured debug output from the pipeline and middleware.
// Key/value pairs alternate in kv.
type Logger interface {
	Debug(msg string, kv ...any)
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Error(msg string, kv ...any)
}

// Option configures a Client at construction.
type Option func(*Client)

var knownVerbs = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodPost:    true,
	http.MethodPut:     true,
	http.MethodPatch:   true,
	http.MethodDelete:  true,
	http.MethodOptions: true,
}
