package telemetry

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func enabledMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:       true,
		ListenAddress: ":9090",
		Path:          "/metrics",
		Namespace:     "shellbridge",
	}
}

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	m.Handler().ServeHTTP(rec, req)
	return rec.Body.String()
}

func TestNewMetrics_Disabled(t *testing.T) {
	m, err := NewMetrics(MetricsConfig{Enabled: false})
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}

	// All recorders must be safe no-ops on a disabled instance.
	m.RecordRetryAttempt("ms_graph", "rate_limit")
	m.RecordSequenceOutcome("ms_graph", OutcomeSuccess, time.Second)
	m.RecordBreakerTransition("ms_graph", "open")
	m.RecordInvocation("Get-MgUser", OutcomeSuccess, time.Second)
	m.RecordError("transient", "TIMEOUT")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	m.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("disabled Handler() status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestMetrics_RecordAndExpose(t *testing.T) {
	m, err := NewMetrics(enabledMetricsConfig())
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}

	m.RecordRetryAttempt("ms_graph", "rate_limit")
	m.RecordSequenceOutcome("ms_graph", OutcomeSuccess, 6*time.Second)
	m.RecordBreakerTransition("exchange", "open")
	m.RecordInvocation("Get-MgUser", OutcomeSuccess, 850*time.Millisecond)
	m.RecordError("rate_limit", "HTTP_429")

	body := scrape(t, m)

	wantLines := []string{
		`shellbridge_retry_attempts_total{category="rate_limit",dependency="ms_graph"} 1`,
		`shellbridge_retry_sequences_total{dependency="ms_graph",outcome="success"} 1`,
		`shellbridge_retry_total_delay_seconds_count{dependency="ms_graph"} 1`,
		`shellbridge_breaker_transitions_total{dependency="exchange",state="open"} 1`,
		`shellbridge_breaker_state{dependency="exchange"} 2`,
		`shellbridge_invocations_total{operation="Get-MgUser",outcome="success"} 1`,
		`shellbridge_invocation_duration_seconds_count{operation="Get-MgUser"} 1`,
		`shellbridge_errors_by_category_total{category="rate_limit"} 1`,
		`shellbridge_errors_by_code_total{code="HTTP_429"} 1`,
	}
	for _, want := range wantLines {
		if !strings.Contains(body, want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}

func TestMetrics_BreakerStateGaugeFollowsTransitions(t *testing.T) {
	m, err := NewMetrics(enabledMetricsConfig())
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}

	m.RecordBreakerTransition("ms_graph", "open")
	if got := testutil.ToFloat64(m.breakerState.WithLabelValues("ms_graph")); got != 2 {
		t.Errorf("breaker_state after open = %v, want 2", got)
	}

	m.RecordBreakerTransition("ms_graph", "half_open")
	if got := testutil.ToFloat64(m.breakerState.WithLabelValues("ms_graph")); got != 1 {
		t.Errorf("breaker_state after half_open = %v, want 1", got)
	}

	m.RecordBreakerTransition("ms_graph", "closed")
	if got := testutil.ToFloat64(m.breakerState.WithLabelValues("ms_graph")); got != 0 {
		t.Errorf("breaker_state after closed = %v, want 0", got)
	}
}

func TestMetrics_RejectedSkipsDelayHistogram(t *testing.T) {
	m, err := NewMetrics(enabledMetricsConfig())
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}

	m.RecordSequenceOutcome("ms_graph", OutcomeRejected, 0)

	if got := testutil.CollectAndCount(m.retryDelay); got != 0 {
		t.Errorf("retry delay histogram has %d series after rejection, want 0", got)
	}
	if got := testutil.ToFloat64(m.retrySequences.WithLabelValues("ms_graph", OutcomeRejected)); got != 1 {
		t.Errorf("rejected sequence counter = %v, want 1", got)
	}
}

func TestMetrics_RecordErrorWithoutCode(t *testing.T) {
	m, err := NewMetrics(enabledMetricsConfig())
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}

	m.RecordError("network", "")

	if got := testutil.ToFloat64(m.errorsByCategory.WithLabelValues("network")); got != 1 {
		t.Errorf("errors_by_category_total = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(m.errorsByCode); got != 0 {
		t.Errorf("errors_by_code_total has %d series, want 0", got)
	}
}

func TestBreakerStateValue(t *testing.T) {
	tests := []struct {
		state string
		want  float64
	}{
		{"closed", 0},
		{"half_open", 1},
		{"open", 2},
		{"unknown", 0},
	}

	for _, tt := range tests {
		if got := breakerStateValue(tt.state); got != tt.want {
			t.Errorf("breakerStateValue(%q) = %v, want %v", tt.state, got, tt.want)
		}
	}
}

func TestTimer(t *testing.T) {
	timer := NewTimer()
	time.Sleep(10 * time.Millisecond)
	if d := timer.Duration(); d < 10*time.Millisecond {
		t.Errorf("Timer.Duration() = %v, want at least 10ms", d)
	}
}
