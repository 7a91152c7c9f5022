package resilience

import (
	"sync"
	"testing"
	"time"
)

func TestBreaker_StartsClosed(t *testing.T) {
	b := NewBreaker(5, 30*time.Second)

	if got := b.State(); got != BreakerClosed {
		t.Errorf("State() = %v, want %v", got, BreakerClosed)
	}
	if !b.CanExecute() {
		t.Error("CanExecute() = false, want true for a new breaker")
	}
}

func TestBreaker_OpensAtThreshold(t *testing.T) {
	b := NewBreaker(3, 30*time.Second)

	b.RecordFailure()
	b.RecordFailure()
	if got := b.State(); got != BreakerClosed {
		t.Fatalf("State() after 2 failures = %v, want %v", got, BreakerClosed)
	}
	if !b.CanExecute() {
		t.Fatal("CanExecute() = false below the failure threshold")
	}

	b.RecordFailure()
	if got := b.State(); got != BreakerOpen {
		t.Errorf("State() after 3 failures = %v, want %v", got, BreakerOpen)
	}
	if b.CanExecute() {
		t.Error("CanExecute() = true for an open breaker")
	}
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	b := NewBreaker(3, 30*time.Second)

	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()

	if got := b.ConsecutiveFailures(); got != 0 {
		t.Errorf("ConsecutiveFailures() = %d, want 0", got)
	}

	// A fresh run of failures is needed to open the breaker.
	b.RecordFailure()
	b.RecordFailure()
	if got := b.State(); got != BreakerClosed {
		t.Errorf("State() = %v, want %v after interleaved success", got, BreakerClosed)
	}
	b.RecordFailure()
	if got := b.State(); got != BreakerOpen {
		t.Errorf("State() = %v, want %v", got, BreakerOpen)
	}
}

func TestBreaker_RecoveryCycle(t *testing.T) {
	b := NewBreaker(5, 50*time.Millisecond)

	for i := 0; i < 5; i++ {
		b.RecordFailure()
	}
	if got := b.State(); got != BreakerOpen {
		t.Fatalf("State() after 5 failures = %v, want %v", got, BreakerOpen)
	}
	if b.CanExecute() {
		t.Fatal("CanExecute() = true immediately after opening")
	}

	time.Sleep(70 * time.Millisecond)

	// The recovery timeout has elapsed: the next check admits a trial call
	// and moves the breaker to half-open.
	if !b.CanExecute() {
		t.Fatal("CanExecute() = false after the recovery timeout")
	}
	if got := b.State(); got != BreakerHalfOpen {
		t.Fatalf("State() = %v, want %v", got, BreakerHalfOpen)
	}

	b.RecordSuccess()
	if got := b.State(); got != BreakerClosed {
		t.Errorf("State() after trial success = %v, want %v", got, BreakerClosed)
	}
	if got := b.ConsecutiveFailures(); got != 0 {
		t.Errorf("ConsecutiveFailures() = %d, want 0", got)
	}
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	b := NewBreaker(2, 50*time.Millisecond)

	b.RecordFailure()
	b.RecordFailure()
	time.Sleep(70 * time.Millisecond)

	if !b.CanExecute() {
		t.Fatal("CanExecute() = false after the recovery timeout")
	}
	b.RecordFailure()

	if got := b.State(); got != BreakerOpen {
		t.Errorf("State() after half-open failure = %v, want %v", got, BreakerOpen)
	}
	if b.CanExecute() {
		t.Error("CanExecute() = true immediately after reopening")
	}
}

func TestBreaker_ReopenRestartsRecoveryWindow(t *testing.T) {
	b := NewBreaker(1, 60*time.Millisecond)

	b.RecordFailure()
	time.Sleep(80 * time.Millisecond)
	if !b.CanExecute() {
		t.Fatal("CanExecute() = false after the recovery timeout")
	}

	// The trial fails. The breaker must stay open for another full window.
	b.RecordFailure()
	time.Sleep(20 * time.Millisecond)
	if b.CanExecute() {
		t.Error("CanExecute() = true before the restarted recovery window elapsed")
	}
}

func TestBreaker_DefaultsApplied(t *testing.T) {
	b := NewBreaker(0, 0)

	for i := 0; i < DefaultFailureThreshold-1; i++ {
		b.RecordFailure()
	}
	if got := b.State(); got != BreakerClosed {
		t.Fatalf("State() below default threshold = %v, want %v", got, BreakerClosed)
	}
	b.RecordFailure()
	if got := b.State(); got != BreakerOpen {
		t.Errorf("State() at default threshold = %v, want %v", got, BreakerOpen)
	}
}

func TestBreaker_Concurrent(t *testing.T) {
	b := NewBreaker(5, 10*time.Millisecond)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				b.CanExecute()
				if (n+j)%3 == 0 {
					b.RecordSuccess()
				} else {
					b.RecordFailure()
				}
				b.State()
				b.ConsecutiveFailures()
			}
		}(i)
	}
	wg.Wait()

	// The breaker must settle in a valid state.
	switch b.State() {
	case BreakerClosed, BreakerOpen, BreakerHalfOpen:
	default:
		t.Errorf("State() = %v, not a valid breaker state", b.State())
	}
}

func TestRegistry_PerDependency(t *testing.T) {
	r := NewRegistry(2, 30*time.Second)

	graph := r.Get("graph")
	exchange := r.Get("exchange")

	graph.RecordFailure()
	graph.RecordFailure()

	if got := graph.State(); got != BreakerOpen {
		t.Fatalf("graph breaker state = %v, want %v", got, BreakerOpen)
	}
	if got := exchange.State(); got != BreakerClosed {
		t.Errorf("exchange breaker state = %v, want %v", got, BreakerClosed)
	}

	if r.Get("graph") != graph {
		t.Error("Get() returned a different breaker for the same dependency")
	}
}

func TestRegistry_States(t *testing.T) {
	r := NewRegistry(1, 30*time.Second)

	r.Get("graph")
	r.Get("exchange").RecordFailure()

	states := r.States()
	if len(states) != 2 {
		t.Fatalf("States() returned %d entries, want 2", len(states))
	}
	if states["graph"] != BreakerClosed {
		t.Errorf("states[graph] = %v, want %v", states["graph"], BreakerClosed)
	}
	if states["exchange"] != BreakerOpen {
		t.Errorf("states[exchange] = %v, want %v", states["exchange"], BreakerOpen)
	}
}

type transitionRecord struct {
	dependency string
	from       BreakerState
	to         BreakerState
}

func TestRegistry_TransitionObserver(t *testing.T) {
	var mu sync.Mutex
	var transitions []transitionRecord

	r := NewRegistry(2, 40*time.Millisecond, WithTransitionObserver(func(dep string, from, to BreakerState) {
		mu.Lock()
		defer mu.Unlock()
		transitions = append(transitions, transitionRecord{dependency: dep, from: from, to: to})
	}))

	b := r.Get("graph")
	b.RecordFailure()
	b.RecordFailure()
	time.Sleep(60 * time.Millisecond)
	b.CanExecute()
	b.RecordSuccess()

	mu.Lock()
	defer mu.Unlock()

	want := []transitionRecord{
		{dependency: "graph", from: BreakerClosed, to: BreakerOpen},
		{dependency: "graph", from: BreakerOpen, to: BreakerHalfOpen},
		{dependency: "graph", from: BreakerHalfOpen, to: BreakerClosed},
	}
	if len(transitions) != len(want) {
		t.Fatalf("observed %d transitions, want %d: %v", len(transitions), len(want), transitions)
	}
	for i, tr := range transitions {
		if tr != want[i] {
			t.Errorf("transition %d = %+v, want %+v", i, tr, want[i])
		}
	}
}
