package mappersmith

// WithGateway binds a concrete gateway instance, bypassing the registry.
func WithGateway(gateway Gateway) Option {
	return func(c *Client) {
		c.gateway = gateway
	}
}

// WithGatewayName selects a registered gateway by name, overriding the
// manifest's choice. Resolution happens once, inside New.
func WithGatewayName(name string) Option {
	return func(c *Client) {
		c.gatewayName = name
		c.gateway = nil
	}
}

// WithMiddleware appends factories that run ahead of manifest-scoped
// middleware, in the given order. Client-level middleware is the outermost
// layer, which suits observability concerns like logging and metrics.
func WithMiddleware(factories ...MiddlewareFactory) Option {
	return func(c *Client) {
		c.middleware = append(c.middleware, factories...)
	}
}

// WithContext sets the shared value map handed to middleware factories,
// replacing the manifest's. Treat it as read-only across calls.
func WithContext(context map[string]any) Option {
	return func(c *Client) {
		c.context = context
	}
}

// WithClientID overrides the manifest's client identifier, visible to
// middleware through Env.
func WithClientID(id string) Option {
	return func(c *Client) {
		c.clientID = id
	}
}

// WithMaxMiddlewareStackExecutions overrides the pipeline re-entry bound.
func WithMaxMiddlewareStackExecutions(n int) Option {
	return func(c *Client) {
		c.maxExecutions = n
	}
}

// WithParamsSerializer replaces the query string encoding strategy for every
// Request the client builds.
func WithParamsSerializer(serializer ParamsSerializer) Option {
	return func(c *Client) {
		if serializer != nil {
			c.serializer = serializer
		}
	}
}

// WithLogger makes the client emit a debug line per call with the outcome.
// Without a logger the client stays quiet.
func WithLogger(logger Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithSimpleLogger enables console debug logging.
func WithSimpleLogger() Option {
	return func(c *Client) {
		c.logger = NewSimpleLogger()
	}
}

// WithMetrics appends metrics middleware on a fresh collector registered
// with the default Prometheus registerer.
func WithMetrics() Option {
	return WithMetricsCollector(NewMetricsCollector())
}

// WithMetricsCollector appends metrics middleware on the supplied collector.
func WithMetricsCollector(collector *MetricsCollector) Option {
	return func(c *Client) {
		c.middleware = append(c.middleware, MetricsMiddleware(collector))
	}
}
