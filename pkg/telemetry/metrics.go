package telemetry

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome label values for retry sequence and invocation metrics.
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeRejected = "rejected"
	OutcomeTimeout  = "timeout"
)

// Metrics provides Prometheus metrics for shellbridge.
type Metrics struct {
	config MetricsConfig

	// Retry metrics
	retryAttempts  *prometheus.CounterVec
	retrySequences *prometheus.CounterVec
	retryDelay     *prometheus.HistogramVec

	// Circuit breaker metrics
	breakerTransitions *prometheus.CounterVec
	breakerState       *prometheus.GaugeVec

	// Invocation metrics
	invocations        *prometheus.CounterVec
	invocationDuration *prometheus.HistogramVec

	// Error metrics
	errorsByCategory *prometheus.CounterVec
	errorsByCode     *prometheus.CounterVec

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

	// Create a new registry
	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		// Retry metrics
		retryAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "retry_attempts_total",
				Help:      "Total number of failed attempts by error category",
			},
			[]string{"dependency", "category"},
		),
		retrySequences: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "retry_sequences_total",
				Help:      "Total number of retry sequences by outcome (success, failure, rejected)",
			},
			[]string{"dependency", "outcome"},
		),
		retryDelay: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "retry_total_delay_seconds",
				Help:      "Total backoff delay accumulated across a retry sequence in seconds",
				Buckets:   buckets,
			},
			[]string{"dependency"},
		),

		// Circuit breaker metrics
		breakerTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "breaker_transitions_total",
				Help:      "Total number of circuit breaker state transitions",
			},
			[]string{"dependency", "state"},
		),
		breakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "breaker_state",
				Help:      "Current circuit breaker state (0=closed, 1=half_open, 2=open)",
			},
			[]string{"dependency"},
		),

		// Invocation metrics
		invocations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "invocations_total",
				Help:      "Total number of shell invocations by outcome (success, failure, timeout)",
			},
			[]string{"operation", "outcome"},
		),
		invocationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "invocation_duration_seconds",
				Help:      "Duration of shell invocations in seconds",
				Buckets:   buckets,
			},
			[]string{"operation"},
		),

		// Error metrics
		errorsByCategory: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_by_category_total",
				Help:      "Total number of errors by error category",
			},
			[]string{"category"},
		),
		errorsByCode: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_by_code_total",
				Help:      "Total number of errors by error code",
			},
			[]string{"code"},
		),
	}

	// Register all metrics
	registry.MustRegister(
		m.retryAttempts,
		m.retrySequences,
		m.retryDelay,
		m.breakerTransitions,
		m.breakerState,
		m.invocations,
		m.invocationDuration,
		m.errorsByCategory,
		m.errorsByCode,
	)

	return m, nil
}

// Retry Metrics

// RecordRetryAttempt records a failed attempt within a retry sequence.
func (m *Metrics) RecordRetryAttempt(dependency, category string) {
	if m.retryAttempts == nil {
		return
	}
	m.retryAttempts.WithLabelValues(dependency, category).Inc()
}

// RecordSequenceOutcome records the terminal outcome of a retry sequence
// along with the total backoff delay it accumulated.
func (m *Metrics) RecordSequenceOutcome(dependency, outcome string, totalDelay time.Duration) {
	if m.retrySequences == nil {
		return
	}
	m.retrySequences.WithLabelValues(dependency, outcome).Inc()
	if outcome != OutcomeRejected {
		m.retryDelay.WithLabelValues(dependency).Observe(totalDelay.Seconds())
	}
}

// Circuit Breaker Metrics

// RecordBreakerTransition records a circuit breaker state transition and
// updates the state gauge for the dependency.
func (m *Metrics) RecordBreakerTransition(dependency, state string) {
	if m.breakerTransitions == nil {
		return
	}
	m.breakerTransitions.WithLabelValues(dependency, state).Inc()
	m.breakerState.WithLabelValues(dependency).Set(breakerStateValue(state))
}

// breakerStateValue maps a breaker state name to its gauge value.
func breakerStateValue(state string) float64 {
	switch state {
	case "open":
		return 2
	case "half_open":
		return 1
	default:
		return 0
	}
}

// Invocation Metrics

// RecordInvocation records a shell invocation with its outcome and duration.
func (m *Metrics) RecordInvocation(operation, outcome string, duration time.Duration) {
	if m.invocations == nil {
		return
	}
	m.invocations.WithLabelValues(operation, outcome).Inc()
	m.invocationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// Error Metrics

// RecordError records an error by category and optionally by code.
func (m *Metrics) RecordError(category, code string) {
	if m.errorsByCategory == nil {
		return
	}
	m.errorsByCategory.WithLabelValues(category).Inc()
	if code != "" && m.errorsByCode != nil {
		m.errorsByCode.WithLabelValues(code).Inc()
	}
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
