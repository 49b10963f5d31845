// Package metrics exposes Prometheus collectors for the HTTP surface and the
// translation pipeline.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/satriahrh/lingua/internal/pipeline"
)

const namespace = "lingua"

var latencyBuckets = []float64{0.05, 0.1, 0.2, 0.5, 1, 2, 5, 10, 30}

// Recorder owns a private registry so tests can create as many as they like.
type Recorder struct {
	registry        *prometheus.Registry
	httpRequests    *prometheus.CounterVec
	httpLatency     *prometheus.HistogramVec
	stageLatency    *prometheus.HistogramVec
	pipelineResults *prometheus.CounterVec
}

var _ pipeline.Observer = (*Recorder)(nil)

// NewRecorder registers all collectors on a fresh registry
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed.",
			},
			[]string{"method", "route", "status"},
		),
		httpLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency in seconds.",
				Buckets:   latencyBuckets,
			},
			[]string{"method", "route", "status"},
		),
		stageLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Duration of individual pipeline stages in seconds.",
				Buckets:   latencyBuckets,
			},
			[]string{"mode", "stage", "status"},
		),
		pipelineResults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pipeline_total",
				Help:      "Total number of finished pipeline executions.",
			},
			[]string{"mode", "status", "failed_stage"},
		),
	}

	r.registry.MustRegister(
		r.httpRequests,
		r.httpLatency,
		r.stageLatency,
		r.pipelineResults,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Registry returns the underlying registry
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// RecordHTTPRequest counts one request and observes its latency
func (r *Recorder) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	statusLabel := strconv.Itoa(status)
	r.httpRequests.WithLabelValues(method, route, statusLabel).Inc()
	r.httpLatency.WithLabelValues(method, route, statusLabel).Observe(duration.Seconds())
}

// StepFinished implements pipeline.Observer
func (r *Recorder) StepFinished(exec *pipeline.Execution, step pipeline.StepExecution) {
	r.stageLatency.
		WithLabelValues(string(exec.Mode), string(step.Stage), string(step.State)).
		Observe(step.Duration().Seconds())
}

// ExecutionFinished implements pipeline.Observer
func (r *Recorder) ExecutionFinished(exec *pipeline.Execution) {
	failedStage := ""
	if exec.Failure != nil {
		failedStage = string(exec.Failure.Stage)
	}
	r.pipelineResults.WithLabelValues(string(exec.Mode), string(exec.State), failedStage).Inc()
}

// Middleware records every request routed through echo. The route label is
// the registered path, so unmatched URLs do not explode cardinality.
func (r *Recorder) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				} else if !c.Response().Committed {
					status = http.StatusInternalServerError
				}
			}

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			r.RecordHTTPRequest(c.Request().Method, route, status, time.Since(start))
			return err
		}
	}
}
