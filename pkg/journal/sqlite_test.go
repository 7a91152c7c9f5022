package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := NewSQLiteStore(Config{
		Path: filepath.Join(t.TempDir(), "journal.db"),
	})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func TestNewSQLiteStore_RequiresPath(t *testing.T) {
	if _, err := NewSQLiteStore(Config{}); err == nil {
		t.Error("Expected an error for an empty path, got nil")
	}
}

func TestSQLiteStore_InvocationRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	in := &Invocation{
		ID:        "inv-1",
		Operation: "Get-MgUser",
		Outcome:   "success",
		ExitCode:  0,
		Elapsed:   420 * time.Millisecond,
		CreatedAt: time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC),
	}
	if err := store.RecordInvocation(ctx, in); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	got, err := store.ListInvocations(ctx, 10, 0)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("ListInvocations() returned %d rows, want 1", len(got))
	}

	out := got[0]
	if out.ID != in.ID || out.Operation != in.Operation || out.Outcome != in.Outcome {
		t.Errorf("Invocation = %+v, want %+v", out, in)
	}
	if out.Elapsed != in.Elapsed {
		t.Errorf("Elapsed = %v, want %v", out.Elapsed, in.Elapsed)
	}
	if !out.CreatedAt.Equal(in.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", out.CreatedAt, in.CreatedAt)
	}
}

func TestSQLiteStore_FailedInvocationKeepsErrorText(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	in := &Invocation{
		ID:        "inv-2",
		Operation: "Get-MgUser",
		Outcome:   "failure",
		ExitCode:  1,
		ErrorText: "Insufficient privileges to complete the operation",
		Elapsed:   90 * time.Millisecond,
	}
	if err := store.RecordInvocation(ctx, in); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	got, err := store.ListInvocations(ctx, 1, 0)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if got[0].ErrorText != in.ErrorText {
		t.Errorf("ErrorText = %q, want %q", got[0].ErrorText, in.ErrorText)
	}
	if got[0].ExitCode != 1 {
		t.Errorf("ExitCode = %d, want 1", got[0].ExitCode)
	}
	if got[0].CreatedAt.IsZero() {
		t.Error("CreatedAt was not defaulted on insert")
	}
}

func TestSQLiteStore_AttemptRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	att := &Attempt{
		Dependency: "ms_graph",
		Operation:  "Get-MgUser",
		Number:     2,
		Category:   "rate_limit",
		Code:       "RATE_LIMITED",
		Message:    "HTTP 429 too many requests",
		Delay:      4 * time.Second,
		RecordedAt: time.Date(2026, 3, 14, 10, 31, 0, 0, time.UTC),
	}
	if err := store.RecordAttempt(ctx, att); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if att.ID == 0 {
		t.Error("RecordAttempt did not fill in the row ID")
	}

	got, err := store.ListAttempts(ctx, "", 10, 0)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("ListAttempts() returned %d rows, want 1", len(got))
	}

	out := got[0]
	if out.Dependency != att.Dependency || out.Number != att.Number || out.Category != att.Category {
		t.Errorf("Attempt = %+v, want %+v", out, att)
	}
	if out.Delay != att.Delay {
		t.Errorf("Delay = %v, want %v", out.Delay, att.Delay)
	}
	if !out.RecordedAt.Equal(att.RecordedAt) {
		t.Errorf("RecordedAt = %v, want %v", out.RecordedAt, att.RecordedAt)
	}
}

func TestSQLiteStore_ListAttemptsFiltersByDependency(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, dep := range []string{"ms_graph", "exchange", "ms_graph"} {
		if err := store.RecordAttempt(ctx, &Attempt{
			Dependency: dep,
			Operation:  "Get-Something",
			Number:     1,
			Category:   "network",
		}); err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
	}

	got, err := store.ListAttempts(ctx, "ms_graph", 10, 0)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ListAttempts(ms_graph) returned %d rows, want 2", len(got))
	}
	for _, a := range got {
		if a.Dependency != "ms_graph" {
			t.Errorf("Dependency = %q, want ms_graph", a.Dependency)
		}
	}

	all, err := store.ListAttempts(ctx, "", 10, 0)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("ListAttempts(\"\") returned %d rows, want 3", len(all))
	}
}

func TestSQLiteStore_PruneBefore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	old := time.Now().Add(-48 * time.Hour)
	recent := time.Now()

	if err := store.RecordInvocation(ctx, &Invocation{
		ID: "inv-old", Operation: "Get-MgUser", Outcome: "success", CreatedAt: old,
	}); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if err := store.RecordInvocation(ctx, &Invocation{
		ID: "inv-new", Operation: "Get-MgUser", Outcome: "success", CreatedAt: recent,
	}); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if err := store.RecordAttempt(ctx, &Attempt{
		Dependency: "ms_graph", Operation: "Get-MgUser", Number: 1, Category: "network", RecordedAt: old,
	}); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	pruned, err := store.PruneBefore(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if pruned != 2 {
		t.Errorf("PruneBefore() = %d, want 2", pruned)
	}

	invs, err := store.ListInvocations(ctx, 10, 0)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(invs) != 1 || invs[0].ID != "inv-new" {
		t.Errorf("ListInvocations() after prune = %+v, want only inv-new", invs)
	}
}

func TestSQLiteStore_HealthCheck(t *testing.T) {
	store := newTestStore(t)

	if err := store.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() = %v, want nil", err)
	}

	uninitialized := &SQLiteStore{path: "unused.db"}
	if err := uninitialized.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() on an uninitialized store = nil, want error")
	}
}

func TestSQLiteStore_InitIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	for i := 0; i < 2; i++ {
		store, err := NewSQLiteStore(Config{Path: path})
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if err := store.Init(context.Background()); err != nil {
			t.Fatalf("Init() run %d failed: %v", i+1, err)
		}
		if err := store.Close(); err != nil {
			t.Fatalf("Close() run %d failed: %v", i+1, err)
		}
	}
}
