package mappersmith

import (
	"context"
	"time"
)

// Args carries the call-time arguments of one invocation. Params not
// consumed by path placeholders become query params; Headers and Auth merge
// over the method spec's defaults; Timeout overrides the spec's timeout.
type Args struct {
	Params  Params
	Headers Headers
	Body    any
	Auth    Auth
	Timeout time.Duration
}

// Client is built once from a Manifest and turns every declared method into
// a callable operation. It holds no per-call state and is safe for
// concurrent use; no network I/O happens before the first call.
type Client struct {
	manifest      *Manifest
	gateway       Gateway
	gatewayName   string
	clientID      string
	context       map[string]any
	middleware    []MiddlewareFactory
	serializer    ParamsSerializer
	maxExecutions int
	logger        Logger
}

// New validates the manifest, resolves the gateway and returns a ready
// client. All configuration errors surface here, synchronously: a nil or
// invalid manifest, or an unregistered gateway name.
func New(manifest *Manifest, options ...Option) (*Client, error) {
	if manifest == nil {
		return nil, configError("manifest is required")
	}

	client := &Client{
		manifest:      manifest,
		gatewayName:   manifest.Gateway,
		clientID:      manifest.ClientID,
		context:       manifest.Context,
		serializer:    DefaultParamsSerializer,
		maxExecutions: manifest.MaxMiddlewareStackExecutions,
	}
	for _, option := range options {
		option(client)
	}

	if err := manifest.Validate(); err != nil {
		return nil, err
	}
	if client.maxExecutions <= 0 {
		client.maxExecutions = DefaultMaxMiddlewareStackExecutions
	}
	if client.gatewayName == "" {
		client.gatewayName = GatewayHTTP
	}
	if client.gateway == nil {
		gateway, err := gatewayByName(client.gatewayName)
		if err != nil {
			return nil, err
		}
		client.gateway = gateway
	}
	return client, nil
}

// ResourceClient exposes the methods of one declared resource.
type ResourceClient struct {
	client *Client
	name   string
}

// Resource selects a declared resource by name. Lookup is deferred to Call
// so the return is always usable in a chain; an unknown name fails there
// with a configuration error.
func (c *Client) Resource(name string) *ResourceClient {
	return &ResourceClient{client: c, name: name}
}

// Call invokes one method of this resource.
func (rc *ResourceClient) Call(ctx context.Context, method string, args Args) (*Response, error) {
	return rc.client.Call(ctx, rc.name, method, args)
}

// Call builds the Request for resource.method from the manifest and args,
// assembles the middleware stack, and runs one pipeline execution. The
// returned Response (or error) is the pipeline's single terminal outcome.
func (c *Client) Call(ctx context.Context, resourceName, methodName string, args Args) (*Response, error) {
	spec, err := c.manifest.methodSpec(resourceName, methodName)
	if err != nil {
		return nil, err
	}

	req := c.buildRequest(spec, args)

	env := Env{
		ClientID:     c.clientID,
		ResourceName: resourceName,
		MethodName:   methodName,
		Context:      c.context,
	}
	factories := append([]MiddlewareFactory(nil), c.middleware...)
	factories = append(factories, c.manifest.middlewareFor(resourceName, methodName)...)
	stack := make([]Middleware, 0, len(factories))
	for _, factory := range factories {
		stack = append(stack, factory(env))
	}

	exec := &execution{
		request:       req,
		stack:         stack,
		gateway:       c.gateway,
		config:        c.manifest.gatewayConfig(c.gatewayName, resourceName, methodName),
		maxExecutions: c.maxExecutions,
		resource:      resourceName,
		methodName:    methodName,
	}

	if c.logger != nil {
		c.logger.Debug("dispatching request",
			"resource", resourceName, "methodName", methodName,
			"method", req.Method(), "url", req.URL())
	}
	resp, err := exec.run(ctx)
	if c.logger != nil {
		if err != nil {
			c.logger.Warn("request failed",
				"resource", resourceName, "methodName", methodName,
				"executions", exec.executions, "error", err.Error())
		} else {
			c.logger.Debug("request completed",
				"resource", resourceName, "methodName", methodName,
				"status", resp.Status(), "executions", exec.executions)
		}
	}
	return resp, err
}

// buildRequest merges the method spec with call-time args into a fresh
// Request. Maps are copied on construction, so mutating args after the call
// cannot affect the Request, and two sequential calls never share state.
func (c *Client) buildRequest(spec MethodSpec, args Args) *Request {
	host := spec.Host
	if host == "" {
		host = c.manifest.Host
	}
	base := NewRequest(RequestSpec{
		Method:  spec.Method,
		Host:    host,
		Path:    spec.Path,
		Params:  spec.Params,
		Headers: spec.Headers,
		Timeout: spec.Timeout,
	}).withSerializer(c.serializer)

	return base.Enhance(RequestSpec{
		Params:  args.Params,
		Headers: args.Headers,
		Auth:    args.Auth,
		Body:    args.Body,
		Timeout: args.Timeout,
	})
}
