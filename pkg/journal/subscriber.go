package journal

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/shellbridge/shellbridge/pkg/telemetry"
)

// writeTimeout bounds each journal write so a stuck database can never
// stall event delivery indefinitely.
const writeTimeout = 5 * time.Second

// Subscriber returns a telemetry event subscriber that records invocation
// and attempt events in the store. Write failures are logged and dropped:
// the journal is diagnostics, not a source of truth, and must never fail
// the operation it observes.
//
// Wire it up with:
//
//	tel.Events.Subscribe(journal.Subscriber(store, logger), nil)
func Subscriber(store Store, logger zerolog.Logger) telemetry.EventSubscriber {
	logger = logger.With().Str("component", "journal").Logger()

	return func(event telemetry.Event) {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()

		var err error
		switch event.Type {
		case telemetry.EventTypeAttemptFailed:
			err = store.RecordAttempt(ctx, attemptFromEvent(event))
		case telemetry.EventTypeInvocationCompleted:
			err = store.RecordInvocation(ctx, invocationFromEvent(event, "success"))
		case telemetry.EventTypeInvocationFailed:
			err = store.RecordInvocation(ctx, invocationFromEvent(event, "failure"))
		default:
			return
		}

		if err != nil {
			logger.Warn().
				Err(err).
				Str("event_type", event.Type).
				Msg("Failed to journal event")
		}
	}
}

// attemptFromEvent maps a failed-attempt event onto an attempt row.
func attemptFromEvent(event telemetry.Event) *Attempt {
	return &Attempt{
		Dependency: event.Dependency,
		Operation:  event.Operation,
		Number:     dataInt(event.Data, "attempt"),
		Category:   dataString(event.Data, "category"),
		Code:       dataString(event.Data, "code"),
		Message:    dataString(event.Data, "reason"),
		Delay:      dataSeconds(event.Data, "delay"),
		RecordedAt: event.Timestamp,
	}
}

// invocationFromEvent maps an invocation event onto an invocation row.
func invocationFromEvent(event telemetry.Event, outcome string) *Invocation {
	inv := &Invocation{
		ID:        event.InvocationID,
		Operation: event.Operation,
		Outcome:   outcome,
		ExitCode:  dataInt(event.Data, "exit_code"),
		Elapsed:   dataSeconds(event.Data, "elapsed"),
		CreatedAt: event.Timestamp,
	}
	if outcome == "failure" {
		inv.ErrorText = dataString(event.Data, "reason")
	}
	return inv
}

func dataString(data map[string]interface{}, key string) string {
	s, _ := data[key].(string)
	return s
}

func dataInt(data map[string]interface{}, key string) int {
	switch v := data[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

func dataSeconds(data map[string]interface{}, key string) time.Duration {
	f, _ := data[key].(float64)
	return time.Duration(f * float64(time.Second))
}
