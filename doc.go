// Package mappersmith builds declarative HTTP clients: a Manifest describes
// hosts, resources and methods once, and the client turns every method spec
// into a callable operation backed by a middleware pipeline and a pluggable
// gateway.
//
//   - Immutable Request / Response values (Enhance derives, never mutates)
//   - Middleware hook sets with optional request / response / error phases
//   - Bounded pipeline re-entry so retry middleware can never loop forever
//   - Gateways selected by name (net/http, in-memory test stub, caching
//     decorator) and resolved once at client build time
//   - Built-in middleware: retry with backoff, circuit breaker, throttling,
//     structured logging, Prometheus metrics, basic auth, JSON encoding
//
// Design goals:
//   - Misconfiguration fails at construction, not on the first request
//   - A single Client is safe for concurrent use; calls share nothing but
//     the read-only Manifest
//   - Small surface area: functional options configure everything
//
// Typical usage:
//
//	manifest := &mappersmith.Manifest{
//	    Host: "https://api.example.org",
//	    Resources: map[string]mappersmith.Resource{
//	        "User": {Methods: map[string]mappersmith.MethodSpec{
//	            "byId": {Path: "/users/:id"},
//	            "create": {Path: "/users", Method: "POST"},
//	        }},
//	    },
//	}
//	client, err := mappersmith.New(manifest,
//	    mappersmith.WithMiddleware(mappersmith.RetryMiddleware(mappersmith.RetryConfig{})),
//	    mappersmith.WithSimpleLogger(),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	resp, err := client.Resource("User").Call(ctx, "byId", mappersmith.Args{
//	    Params: mappersmith.Params{"id": 1},
//	})
//
// The library avoids opinionated logging: provide a Logger (e.g. via
// WithSimpleLogger) to see what the pipeline is doing without noise.
package mappersmith
