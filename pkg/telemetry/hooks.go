package telemetry

import (
	"errors"
	"time"

	"github.com/shellbridge/shellbridge/pkg/bridge"
	"github.com/shellbridge/shellbridge/pkg/resilience"
)

// ExecutionHook feeds retry lifecycle callbacks from the executor into
// metrics and events. Register it with resilience.WithHook.
type ExecutionHook struct {
	metrics *Metrics
	events  *EventPublisher
}

var _ resilience.Hook = (*ExecutionHook)(nil)

// NewExecutionHook creates an execution hook backed by the given telemetry
// instance.
func NewExecutionHook(tel *Telemetry) *ExecutionHook {
	return &ExecutionHook{
		metrics: tel.Metrics,
		events:  tel.Events,
	}
}

// OnAttemptFailure records a failed attempt and, when a retry is scheduled,
// the delay before it.
func (h *ExecutionHook) OnAttemptFailure(dependency, operation string, attempt resilience.Attempt) {
	h.metrics.RecordRetryAttempt(dependency, string(attempt.Category))
	h.metrics.RecordError(string(attempt.Category), attempt.Code)
	_ = h.events.PublishAttemptFailed(dependency, operation, attempt.Number, string(attempt.Category), attempt.Code, attempt.Message, attempt.Delay)
	if attempt.Delay > 0 {
		_ = h.events.PublishRetryScheduled(dependency, operation, attempt.Number, string(attempt.Category), attempt.Delay)
	}
}

// OnSuccess records a retry sequence that ultimately succeeded.
func (h *ExecutionHook) OnSuccess(dependency, operation string, attempts int, totalDelay time.Duration) {
	h.metrics.RecordSequenceOutcome(dependency, OutcomeSuccess, totalDelay)
	_ = h.events.PublishSequenceSucceeded(dependency, operation, attempts, totalDelay)
}

// OnFailure records a retry sequence that ended in a terminal error.
func (h *ExecutionHook) OnFailure(dependency, operation string, terminal *resilience.Error) {
	h.metrics.RecordSequenceOutcome(dependency, OutcomeFailure, terminal.TotalDelay)
	_ = h.events.PublishSequenceFailed(dependency, operation, terminal.Message, terminal.Attempts)
}

// OnRejected records an operation rejected by an open circuit breaker.
func (h *ExecutionHook) OnRejected(dependency, operation string) {
	h.metrics.RecordSequenceOutcome(dependency, OutcomeRejected, 0)
	_ = h.events.PublishSequenceRejected(dependency, operation)
}

// BreakerObserver returns a transition callback for
// resilience.WithTransitionObserver that records breaker transitions as
// metrics and events.
func BreakerObserver(tel *Telemetry) func(dependency string, from, to resilience.BreakerState) {
	metrics := tel.Metrics
	events := tel.Events
	return func(dependency string, from, to resilience.BreakerState) {
		metrics.RecordBreakerTransition(dependency, string(to))
		_ = events.PublishBreakerStateChanged(dependency, string(from), string(to))
	}
}

// InvocationObserver returns a bridge observer for bridge.WithObserver that
// records invocation outcomes as metrics and events.
func InvocationObserver(tel *Telemetry) func(operation string, result *bridge.Result, err error) {
	metrics := tel.Metrics
	events := tel.Events
	return func(operation string, result *bridge.Result, err error) {
		var (
			elapsed      time.Duration
			invocationID string
			exitCode     int
		)
		if result != nil {
			elapsed = result.Elapsed
			invocationID = result.InvocationID
			exitCode = result.ExitCode
		}

		outcome := OutcomeSuccess
		if err != nil {
			outcome = OutcomeFailure
			var rerr *resilience.Error
			if errors.As(err, &rerr) && rerr.Code == resilience.ErrCodeInvocationTimeout {
				outcome = OutcomeTimeout
			}
		}

		metrics.RecordInvocation(operation, outcome, elapsed)

		if err != nil {
			_ = events.PublishInvocationFailed(operation, invocationID, err.Error(), exitCode, elapsed)
			return
		}
		_ = events.PublishInvocationCompleted(operation, invocationID, exitCode, elapsed)
	}
}
