package mappersmith

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector provides Prometheus metrics for the request pipeline.
// Safe for concurrent use; share one collector across clients that report
// to the same registry.
type MetricsCollector struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight *prometheus.GaugeVec
	restartsTotal    *prometheus.CounterVec
	errorsTotal      *prometheus.CounterVec
}

// NewMetricsCollector creates a collector on the default registerer.
func NewMetricsCollector() *MetricsCollector {
	return NewMetricsCollectorWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsCollectorWithRegistry creates a collector using the supplied
// registerer.
func NewMetricsCollectorWithRegistry(registry prometheus.Registerer) *MetricsCollector {
	return &MetricsCollector{
		requestsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "mappersmith_requests_total",
				Help: "Total number of pipeline executions that completed",
			},
			[]string{"resource", "method", "status"},
		),
		requestDuration: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mappersmith_request_duration_seconds",
				Help:    "Duration of pipeline executions in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"resource", "method", "status"},
		),
		requestsInFlight: promauto.With(registry).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "mappersmith_requests_in_flight",
				Help: "Number of pipeline executions currently in flight",
			},
			[]string{"resource", "method"},
		),
		restartsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "mappersmith_pipeline_restarts_total",
				Help: "Total number of middleware-requested pipeline restarts",
			},
			[]string{"resource", "method"},
		),
		errorsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "mappersmith_errors_total",
				Help: "Total number of pipeline executions that failed",
			},
			[]string{"resource", "method", "type"},
		),
	}
}

// MetricsMiddleware observes every pipeline cycle through collector: totals
// and durations per resource/method/status, in-flight gauge, restart counter
// and an error counter keyed by the ClientError type. Register it ahead of
// retry-style middleware (e.g. via WithMetrics, which runs before manifest
// middleware) so each cycle is observed exactly once.
func MetricsMiddleware(collector *MetricsCollector) MiddlewareFactory {
	return func(env Env) Middleware {
		var start time.Time
		executions := 0
		// A cycle whose response hooks reject runs both terminal hooks;
		// settled makes sure only the first one observes it.
		settled := false
		return Middleware{
			Name: "metrics",
			TransformRequest: func(ctx context.Context, req *Request) (*Request, error) {
				executions++
				start = time.Now()
				settled = false
				collector.requestsInFlight.WithLabelValues(env.ResourceName, env.MethodName).Inc()
				if executions > 1 {
					collector.restartsTotal.WithLabelValues(env.ResourceName, env.MethodName).Inc()
				}
				return req, nil
			},
			TransformResponse: func(ctx context.Context, resp *Response, _ Renew) (*Response, error) {
				if settled {
					return resp, nil
				}
				settled = true
				status := strconv.Itoa(resp.Status())
				collector.requestsTotal.WithLabelValues(env.ResourceName, env.MethodName, status).Inc()
				collector.requestDuration.WithLabelValues(env.ResourceName, env.MethodName, status).Observe(time.Since(start).Seconds())
				collector.requestsInFlight.WithLabelValues(env.ResourceName, env.MethodName).Dec()
				return resp, nil
			},
			TransformError: func(ctx context.Context, err error, _ Renew) (*Response, error) {
				if settled {
					return nil, err
				}
				settled = true
				collector.errorsTotal.WithLabelValues(env.ResourceName, env.MethodName, errorLabel(err)).Inc()
				collector.requestsInFlight.WithLabelValues(env.ResourceName, env.MethodName).Dec()
				return nil, err
			},
		}
	}
}

func errorLabel(err error) string {
	if clientErr, ok := err.(*ClientError); ok {
		return clientErr.Type
	}
	return "Unknown"
}
