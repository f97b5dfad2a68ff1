package telemetry

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for Platforge.
type Metrics struct {
	config MetricsConfig

	// Run metrics
	runsStarted   *prometheus.CounterVec
	runsCompleted *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec

	// Target resolution metrics
	targetsResolved  *prometheus.CounterVec
	targetDuration   *prometheus.HistogramVec
	groupResolutions *prometheus.CounterVec

	// Diagnostic metrics
	diagnostics *prometheus.CounterVec

	// Transition cache metrics
	transitionCacheHits   prometheus.Gauge
	transitionCacheMisses prometheus.Gauge
	transitionCacheSize   prometheus.Gauge

	// System metrics
	activeEvaluations prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		// Return a no-op metrics instance
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		runsStarted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_started_total",
				Help:      "Total number of evaluation runs started",
			},
			[]string{"user"},
		),
		runsCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_completed_total",
				Help:      "Total number of evaluation runs completed",
			},
			[]string{"status"},
		),
		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Duration of evaluation runs in seconds",
				Buckets:   buckets,
			},
			[]string{"status"},
		),

		targetsResolved: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "targets_resolved_total",
				Help:      "Total number of targets evaluated",
			},
			[]string{"status"},
		),
		targetDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "target_resolution_duration_seconds",
				Help:      "Duration of per-target resolution in seconds",
				Buckets:   buckets,
			},
			[]string{"status"},
		),
		groupResolutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "exec_group_resolutions_total",
				Help:      "Total number of exec group resolutions",
			},
			[]string{"status"},
		),

		diagnostics: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "diagnostics_total",
				Help:      "Total number of diagnostics by kind",
			},
			[]string{"kind"},
		),

		transitionCacheHits: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "transition_cache_hits",
				Help:      "Exec transition cache hits since startup",
			},
		),
		transitionCacheMisses: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "transition_cache_misses",
				Help:      "Exec transition cache misses since startup",
			},
		),
		transitionCacheSize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "transition_cache_configurations",
				Help:      "Distinct configurations held by the transition cache",
			},
		),

		activeEvaluations: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_evaluations",
				Help:      "Current number of active evaluation runs",
			},
		),
	}

	registry.MustRegister(
		m.runsStarted,
		m.runsCompleted,
		m.runDuration,
		m.targetsResolved,
		m.targetDuration,
		m.groupResolutions,
		m.diagnostics,
		m.transitionCacheHits,
		m.transitionCacheMisses,
		m.transitionCacheSize,
		m.activeEvaluations,
	)

	return m, nil
}

// Run Metrics

// RecordRunStarted increments the counter for started evaluation runs.
func (m *Metrics) RecordRunStarted(user string) {
	if m.runsStarted == nil {
		return
	}
	m.runsStarted.WithLabelValues(user).Inc()
	m.activeEvaluations.Inc()
}

// RecordRunCompleted records a completed evaluation run with its status and
// duration.
func (m *Metrics) RecordRunCompleted(status string, duration time.Duration) {
	if m.runsCompleted == nil {
		return
	}
	m.runsCompleted.WithLabelValues(status).Inc()
	m.runDuration.WithLabelValues(status).Observe(duration.Seconds())
	m.activeEvaluations.Dec()
}

// Resolution Metrics

// RecordTargetResolution records one target's evaluation outcome.
func (m *Metrics) RecordTargetResolution(status string, duration time.Duration) {
	if m.targetsResolved == nil {
		return
	}
	m.targetsResolved.WithLabelValues(status).Inc()
	m.targetDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordGroupResolution records one exec group's resolution outcome.
func (m *Metrics) RecordGroupResolution(status string) {
	if m.groupResolutions == nil {
		return
	}
	m.groupResolutions.WithLabelValues(status).Inc()
}

// Diagnostic Metrics

// RecordDiagnostic records a produced diagnostic by kind.
func (m *Metrics) RecordDiagnostic(kind string) {
	if m.diagnostics == nil {
		return
	}
	m.diagnostics.WithLabelValues(kind).Inc()
}

// Transition Cache Metrics

// SetTransitionCacheStats publishes the transition cache counters.
func (m *Metrics) SetTransitionCacheStats(hits, misses uint64, size int) {
	if m.transitionCacheHits == nil {
		return
	}
	m.transitionCacheHits.Set(float64(hits))
	m.transitionCacheMisses.Set(float64(misses))
	m.transitionCacheSize.Set(float64(size))
}

// Timer provides a convenient way to time operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// ObserveDuration is a helper to time an operation and record it.
func (t *Timer) ObserveDuration(observer prometheus.Observer) {
	observer.Observe(t.Duration().Seconds())
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// StartMetricsServer starts an HTTP server to expose metrics.
func (m *Metrics) StartMetricsServer() error {
	if !m.config.Enabled {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(m.config.Path, m.Handler())

	server := &http.Server{
		Addr:              m.config.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			// Log error but don't fail the application
			fmt.Printf("metrics server error: %v\n", err)
		}
	}()

	return nil
}
