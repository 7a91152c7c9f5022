package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event represents a telemetry event in the shellbridge system.
type Event struct {
	// ID is the unique identifier for this event.
	ID string `json:"id"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Type is the event type.
	Type string `json:"type"`

	// Source identifies where the event originated.
	Source string `json:"source"`

	// Dependency is the associated dependency name, if applicable.
	Dependency string `json:"dependency,omitempty"`

	// Operation is the associated operation name, if applicable.
	Operation string `json:"operation,omitempty"`

	// InvocationID is the associated invocation ID, if applicable.
	InvocationID string `json:"invocation_id,omitempty"`

	// Message is a human-readable event message.
	Message string `json:"message"`

	// Level is the event severity level (info, warning, error).
	Level string `json:"level"`

	// Data contains additional event-specific data.
	Data map[string]interface{} `json:"data,omitempty"`
}

// EventType constants for common event types.
const (
	EventTypeAttemptFailed       = "retry.attempt_failed"
	EventTypeRetryScheduled      = "retry.scheduled"
	EventTypeSequenceSucceeded   = "retry.succeeded"
	EventTypeSequenceFailed      = "retry.failed"
	EventTypeSequenceRejected    = "retry.rejected"
	EventTypeBreakerStateChanged = "breaker.state_changed"
	EventTypeInvocationCompleted = "invocation.completed"
	EventTypeInvocationFailed    = "invocation.failed"
	EventTypeInterpreterResolved = "interpreter.resolved"
	EventTypeError               = "error"
)

// EventLevel constants for event severity.
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// EventSubscriber is a function that handles events.
type EventSubscriber func(event Event)

// EventFilter determines if an event should be processed.
type EventFilter func(event Event) bool

// EventPublisher manages event publishing and subscriptions.
type EventPublisher struct {
	config      EventsConfig
	buffer      chan Event
	subscribers []subscriberEntry
	filters     []EventFilter
	wg          sync.WaitGroup
	mu          sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
}

type subscriberEntry struct {
	subscriber EventSubscriber
	filter     EventFilter
}

// NewEventPublisher creates a new event publisher with the given configuration.
func NewEventPublisher(cfg EventsConfig) (*EventPublisher, error) {
	if !cfg.Enabled {
		return &EventPublisher{config: cfg}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())

	ep := &EventPublisher{
		config:      cfg,
		buffer:      make(chan Event, cfg.BufferSize),
		subscribers: make([]subscriberEntry, 0),
		filters:     make([]EventFilter, 0),
		ctx:         ctx,
		cancel:      cancel,
	}

	// Start the event processing goroutine
	if cfg.EnableAsync {
		ep.wg.Add(1)
		go ep.processEvents()
	}

	return ep, nil
}

// Publish publishes an event to all subscribers.
func (ep *EventPublisher) Publish(event Event) error {
	if !ep.config.Enabled {
		return nil
	}

	// Set ID and timestamp if not already set
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	// Apply global filters
	ep.mu.RLock()
	for _, filter := range ep.filters {
		if !filter(event) {
			ep.mu.RUnlock()
			return nil // Event filtered out
		}
	}
	ep.mu.RUnlock()

	// Send to buffer if async, otherwise deliver immediately
	if ep.config.EnableAsync {
		select {
		case ep.buffer <- event:
			return nil
		case <-ep.ctx.Done():
			return fmt.Errorf("event publisher stopped")
		default:
			// Buffer full, drop event
			return fmt.Errorf("event buffer full, event dropped")
		}
	}

	// Synchronous publishing
	ep.deliverEvent(event)
	return nil
}

// PublishAttemptFailed publishes an event for a failed attempt within a
// retry sequence. delay is the wait scheduled before the next attempt,
// zero when the attempt was terminal.
func (ep *EventPublisher) PublishAttemptFailed(dependency, operation string, attempt int, category, code, reason string, delay time.Duration) error {
	return ep.Publish(Event{
		Type:       EventTypeAttemptFailed,
		Source:     "executor",
		Dependency: dependency,
		Operation:  operation,
		Message:    fmt.Sprintf("Attempt %d of %s against %s failed: %s", attempt, operation, dependency, reason),
		Level:      EventLevelWarning,
		Data: map[string]interface{}{
			"attempt":  attempt,
			"category": category,
			"code":     code,
			"reason":   reason,
			"delay":    delay.Seconds(),
		},
	})
}

// PublishRetryScheduled publishes an event for a scheduled retry.
func (ep *EventPublisher) PublishRetryScheduled(dependency, operation string, attempt int, category string, delay time.Duration) error {
	return ep.Publish(Event{
		Type:       EventTypeRetryScheduled,
		Source:     "executor",
		Dependency: dependency,
		Operation:  operation,
		Message:    fmt.Sprintf("Retry of %s against %s scheduled in %s after attempt %d", operation, dependency, delay, attempt),
		Level:      EventLevelInfo,
		Data: map[string]interface{}{
			"attempt":  attempt,
			"category": category,
			"delay":    delay.Seconds(),
		},
	})
}

// PublishSequenceSucceeded publishes an event for a retry sequence that
// ultimately succeeded.
func (ep *EventPublisher) PublishSequenceSucceeded(dependency, operation string, attempts int, totalDelay time.Duration) error {
	return ep.Publish(Event{
		Type:       EventTypeSequenceSucceeded,
		Source:     "executor",
		Dependency: dependency,
		Operation:  operation,
		Message:    fmt.Sprintf("Operation %s against %s succeeded after %d attempt(s)", operation, dependency, attempts),
		Level:      EventLevelInfo,
		Data: map[string]interface{}{
			"attempts":    attempts,
			"total_delay": totalDelay.Seconds(),
		},
	})
}

// PublishSequenceFailed publishes an event for a retry sequence that
// exhausted its attempts or hit a non-retryable failure.
func (ep *EventPublisher) PublishSequenceFailed(dependency, operation, reason string, attempts int) error {
	return ep.Publish(Event{
		Type:       EventTypeSequenceFailed,
		Source:     "executor",
		Dependency: dependency,
		Operation:  operation,
		Message:    fmt.Sprintf("Operation %s against %s failed after %d attempt(s): %s", operation, dependency, attempts, reason),
		Level:      EventLevelError,
		Data: map[string]interface{}{
			"attempts": attempts,
			"reason":   reason,
		},
	})
}

// PublishSequenceRejected publishes an event for an operation rejected by an
// open circuit breaker.
func (ep *EventPublisher) PublishSequenceRejected(dependency, operation string) error {
	return ep.Publish(Event{
		Type:       EventTypeSequenceRejected,
		Source:     "executor",
		Dependency: dependency,
		Operation:  operation,
		Message:    fmt.Sprintf("Operation %s rejected: circuit breaker open for %s", operation, dependency),
		Level:      EventLevelWarning,
	})
}

// PublishBreakerStateChanged publishes a circuit breaker transition event.
func (ep *EventPublisher) PublishBreakerStateChanged(dependency, oldState, newState string) error {
	level := EventLevelInfo
	if newState == "open" {
		level = EventLevelWarning
	}
	return ep.Publish(Event{
		Type:       EventTypeBreakerStateChanged,
		Source:     "breaker",
		Dependency: dependency,
		Message:    fmt.Sprintf("Circuit breaker for %s changed from %s to %s", dependency, oldState, newState),
		Level:      level,
		Data: map[string]interface{}{
			"old_state": oldState,
			"new_state": newState,
		},
	})
}

// PublishInvocationCompleted publishes an event for a completed shell
// invocation.
func (ep *EventPublisher) PublishInvocationCompleted(operation, invocationID string, exitCode int, elapsed time.Duration) error {
	return ep.Publish(Event{
		Type:         EventTypeInvocationCompleted,
		Source:       "bridge",
		Operation:    operation,
		InvocationID: invocationID,
		Message:      fmt.Sprintf("Invocation of %s completed in %s", operation, elapsed),
		Level:        EventLevelInfo,
		Data: map[string]interface{}{
			"exit_code": exitCode,
			"elapsed":   elapsed.Seconds(),
		},
	})
}

// PublishInvocationFailed publishes an event for a failed shell invocation.
// exitCode is the interpreter exit code, -1 when the process did not run to
// completion.
func (ep *EventPublisher) PublishInvocationFailed(operation, invocationID, reason string, exitCode int, elapsed time.Duration) error {
	return ep.Publish(Event{
		Type:         EventTypeInvocationFailed,
		Source:       "bridge",
		Operation:    operation,
		InvocationID: invocationID,
		Message:      fmt.Sprintf("Invocation of %s failed: %s", operation, reason),
		Level:        EventLevelError,
		Data: map[string]interface{}{
			"reason":    reason,
			"exit_code": exitCode,
			"elapsed":   elapsed.Seconds(),
		},
	})
}

// PublishInterpreterResolved publishes an event for a resolved shell
// interpreter.
func (ep *EventPublisher) PublishInterpreterResolved(name, version string) error {
	return ep.Publish(Event{
		Type:    EventTypeInterpreterResolved,
		Source:  "bridge",
		Message: fmt.Sprintf("Resolved shell interpreter %s (version %s)", name, version),
		Level:   EventLevelInfo,
		Data: map[string]interface{}{
			"interpreter": name,
			"version":     version,
		},
	})
}

// Subscribe adds a new event subscriber.
func (ep *EventPublisher) Subscribe(subscriber EventSubscriber, filter EventFilter) {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	ep.subscribers = append(ep.subscribers, subscriberEntry{
		subscriber: subscriber,
		filter:     filter,
	})
}

// AddFilter adds a global event filter.
func (ep *EventPublisher) AddFilter(filter EventFilter) {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	ep.filters = append(ep.filters, filter)
}

// processEvents processes events from the buffer asynchronously.
func (ep *EventPublisher) processEvents() {
	defer ep.wg.Done()

	for {
		select {
		case event := <-ep.buffer:
			ep.deliverEvent(event)

		case <-ep.ctx.Done():
			// Drain remaining events before shutting down
			for {
				select {
				case event := <-ep.buffer:
					ep.deliverEvent(event)
				default:
					return
				}
			}
		}
	}
}

// deliverEvent delivers an event to all subscribers.
func (ep *EventPublisher) deliverEvent(event Event) {
	ep.mu.RLock()
	defer ep.mu.RUnlock()

	for _, entry := range ep.subscribers {
		// Apply subscriber-specific filter
		if entry.filter != nil && !entry.filter(event) {
			continue
		}

		entry.subscriber(event)
	}
}

// Shutdown gracefully shuts down the event publisher.
func (ep *EventPublisher) Shutdown(ctx context.Context) error {
	if !ep.config.Enabled {
		return nil
	}

	// Signal shutdown
	ep.cancel()

	// Wait for processing to complete with timeout
	done := make(chan struct{})
	go func() {
		ep.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("event publisher shutdown timeout")
	}
}

// Common event filters.

// FilterByLevel creates a filter that only allows events of a specific level or higher.
func FilterByLevel(minLevel string) EventFilter {
	levels := map[string]int{
		EventLevelInfo:    0,
		EventLevelWarning: 1,
		EventLevelError:   2,
	}

	minLevelValue := levels[minLevel]

	return func(event Event) bool {
		return levels[event.Level] >= minLevelValue
	}
}

// FilterByType creates a filter that only allows events of specific types.
func FilterByType(types ...string) EventFilter {
	typeSet := make(map[string]bool)
	for _, t := range types {
		typeSet[t] = true
	}

	return func(event Event) bool {
		return typeSet[event.Type]
	}
}

// FilterByDependency creates a filter that only allows events for a specific dependency.
func FilterByDependency(dependency string) EventFilter {
	return func(event Event) bool {
		return event.Dependency == dependency
	}
}

// FilterByOperation creates a filter that only allows events for a specific operation.
func FilterByOperation(operation string) EventFilter {
	return func(event Event) bool {
		return event.Operation == operation
	}
}
