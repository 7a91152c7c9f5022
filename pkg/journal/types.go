package journal

import (
	"context"
	"time"
)

// Invocation is one recorded bridge invocation.
type Invocation struct {
	// ID is the invocation ID assigned by the bridge.
	ID string `json:"id"`

	// Operation is the invoked command name.
	Operation string `json:"operation"`

	// Outcome is the invocation outcome (success, failure, timeout).
	Outcome string `json:"outcome"`

	// ExitCode is the interpreter exit code. -1 when the process did not
	// run to completion.
	ExitCode int `json:"exit_code"`

	// ErrorText is the failure reason, empty on success.
	ErrorText string `json:"error_text,omitempty"`

	// Elapsed is the wall-clock invocation time.
	Elapsed time.Duration `json:"elapsed"`

	// CreatedAt is when the row was recorded.
	CreatedAt time.Time `json:"created_at"`
}

// Attempt is one recorded failed retry attempt.
type Attempt struct {
	// ID is the row ID, assigned on insert.
	ID int64 `json:"id"`

	// Dependency is the downstream dependency the operation ran against.
	Dependency string `json:"dependency"`

	// Operation is the retried operation name.
	Operation string `json:"operation"`

	// Number is the 1-indexed attempt number within its sequence.
	Number int `json:"number"`

	// Category is the failure classification.
	Category string `json:"category"`

	// Code is the failure's error code, when one was set.
	Code string `json:"code,omitempty"`

	// Message is the failure text.
	Message string `json:"message,omitempty"`

	// Delay is the wait scheduled after the attempt. Zero when the attempt
	// was terminal.
	Delay time.Duration `json:"delay"`

	// RecordedAt is when the row was recorded.
	RecordedAt time.Time `json:"recorded_at"`
}

// Store persists invocation and attempt diagnostics.
type Store interface {
	// RecordInvocation appends one invocation row.
	RecordInvocation(ctx context.Context, inv *Invocation) error

	// RecordAttempt appends one attempt row and fills in its ID.
	RecordAttempt(ctx context.Context, att *Attempt) error

	// ListInvocations returns invocations newest first.
	ListInvocations(ctx context.Context, limit, offset int) ([]*Invocation, error)

	// ListAttempts returns attempts newest first, optionally filtered by
	// dependency. An empty dependency matches everything.
	ListAttempts(ctx context.Context, dependency string, limit, offset int) ([]*Attempt, error)

	// PruneBefore deletes rows recorded before the cutoff and returns how
	// many were removed.
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// HealthCheck verifies the store is reachable.
	HealthCheck(ctx context.Context) error

	// Close releases the store's resources.
	Close() error
}
