// Package metrics provides Prometheus metrics for preparation runs and the
// HTTP surface.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JonMunkholm/paraprep/internal/core"
	"github.com/JonMunkholm/paraprep/internal/prepare"
)

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Manager owns every metric and the registry they are registered on.
type Manager struct {
	namespace        string
	histogramBuckets []float64
	registry         *prometheus.Registry

	runs          *prometheus.CounterVec
	runErrors     *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec
	stepDuration  *prometheus.HistogramVec
	rowsIn        *prometheus.CounterVec
	rowsOut       *prometheus.CounterVec
	joinMisses    *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
	httpDurations *prometheus.HistogramVec
}

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// WithNamespace sets the namespace for all metrics.
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithHistogramBuckets sets custom histogram buckets for duration metrics.
func WithHistogramBuckets(buckets []float64) Option {
	return func(m *Manager) {
		if len(buckets) > 0 {
			m.histogramBuckets = buckets
		}
	}
}

// WithRegistry sets the registry metrics are registered on and served from.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(m *Manager) {
		if registry != nil {
			m.registry = registry
		}
	}
}

// NewManager creates a manager on a fresh registry unless WithRegistry is given.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "paraprep",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.runs = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "runs_total",
		Help:      "Preparation runs by recipe and outcome",
	}, []string{"recipe", "outcome"})

	m.runErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "run_errors_total",
		Help:      "Failed preparation runs by recipe and error code",
	}, []string{"recipe", "code"})

	m.runDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "run_duration_seconds",
		Help:      "Duration of successful preparation runs",
		Buckets:   m.histogramBuckets,
	}, []string{"recipe"})

	m.stepDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "step_duration_seconds",
		Help:      "Duration of individual preparation steps",
		Buckets:   m.histogramBuckets,
	}, []string{"recipe", "step"})

	m.rowsIn = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "rows_in_total",
		Help:      "Raw rows read by successful runs",
	}, []string{"recipe"})

	m.rowsOut = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "rows_out_total",
		Help:      "Prepared rows written by successful runs",
	}, []string{"recipe"})

	m.joinMisses = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "join_misses_total",
		Help:      "Distinct join keys without a reference entry",
	}, []string{"recipe"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by method, route and status",
	}, []string{"method", "route", "status"})

	m.httpDurations = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by route",
		Buckets:   m.histogramBuckets,
	}, []string{"route"})
}

// Registry returns the registry the metrics are registered on.
func (m *Manager) Registry() *prometheus.Registry { return m.registry }

// ObserveStep implements prepare.Observer.
func (m *Manager) ObserveStep(recipe string, step prepare.StepResult) {
	m.stepDuration.WithLabelValues(recipe, step.Name).Observe(step.Elapsed.Seconds())
}

// ObserveRun implements prepare.Observer.
func (m *Manager) ObserveRun(recipe string, res *prepare.Result, err error) {
	if err != nil {
		m.runs.WithLabelValues(recipe, OutcomeFailure).Inc()
		m.runErrors.WithLabelValues(recipe, core.MapError(err).Code).Inc()
		return
	}
	m.runs.WithLabelValues(recipe, OutcomeSuccess).Inc()
	m.runDuration.WithLabelValues(recipe).Observe(res.Elapsed.Seconds())
	m.rowsIn.WithLabelValues(recipe).Add(float64(res.RowsIn))
	m.rowsOut.WithLabelValues(recipe).Add(float64(res.RowsOut))
	m.joinMisses.WithLabelValues(recipe).Add(float64(len(res.JoinMisses)))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency by chi route pattern, so
// path parameters do not explode label cardinality.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.httpDurations.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
