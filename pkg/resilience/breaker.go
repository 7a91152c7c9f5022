package resilience

import (
	"sync"
	"time"
)

// BreakerState is the circuit breaker state machine position.
type BreakerState string

const (
	// BreakerClosed admits all calls.
	BreakerClosed BreakerState = "closed"

	// BreakerOpen rejects all calls until the recovery timeout elapses.
	BreakerOpen BreakerState = "open"

	// BreakerHalfOpen admits trial calls to probe whether the dependency
	// has recovered.
	BreakerHalfOpen BreakerState = "half_open"
)

// Breaker defaults.
const (
	DefaultFailureThreshold = 5
	DefaultRecoveryTimeout  = 30 * time.Second
)

// Breaker is a consecutive-failure circuit breaker. It opens after
// failureThreshold consecutive failures, rejects calls while open, admits
// trial calls once the recovery timeout has elapsed, and closes again on
// the first success. All methods are safe for concurrent use.
type Breaker struct {
	mu               sync.Mutex
	state            BreakerState
	failures         int
	lastFailure      time.Time
	failureThreshold int
	recoveryTimeout  time.Duration
	onTransition     func(from, to BreakerState)
}

// NewBreaker creates a closed breaker. Non-positive arguments fall back to
// the defaults.
func NewBreaker(failureThreshold int, recoveryTimeout time.Duration) *Breaker {
	if failureThreshold <= 0 {
		failureThreshold = DefaultFailureThreshold
	}
	if recoveryTimeout <= 0 {
		recoveryTimeout = DefaultRecoveryTimeout
	}
	return &Breaker{
		state:            BreakerClosed,
		failureThreshold: failureThreshold,
		recoveryTimeout:  recoveryTimeout,
	}
}

// CanExecute reports whether a call may proceed. While open it performs the
// open to half-open transition once the recovery timeout has elapsed since
// the last recorded failure, admitting the trial call that made the check.
func (b *Breaker) CanExecute() bool {
	b.mu.Lock()

	switch b.state {
	case BreakerOpen:
		if time.Since(b.lastFailure) < b.recoveryTimeout {
			b.mu.Unlock()
			return false
		}
		b.state = BreakerHalfOpen
		cb := b.onTransition
		b.mu.Unlock()
		if cb != nil {
			cb(BreakerOpen, BreakerHalfOpen)
		}
		return true
	default:
		b.mu.Unlock()
		return true
	}
}

// RecordSuccess resets the failure count and closes the breaker.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	b.failures = 0
	from := b.state
	b.state = BreakerClosed
	cb := b.onTransition
	b.mu.Unlock()

	if from != BreakerClosed && cb != nil {
		cb(from, BreakerClosed)
	}
}

// RecordFailure counts a failure and stamps its time. A failure during a
// half-open trial reopens the breaker immediately; in the closed state the
// breaker opens once the consecutive failure count reaches the threshold.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	b.failures++
	b.lastFailure = time.Now()

	from := b.state
	opened := false
	switch {
	case b.state == BreakerHalfOpen:
		b.state = BreakerOpen
		opened = true
	case b.state == BreakerClosed && b.failures >= b.failureThreshold:
		b.state = BreakerOpen
		opened = true
	}
	cb := b.onTransition
	b.mu.Unlock()

	if opened && cb != nil {
		cb(from, BreakerOpen)
	}
}

// State returns the current state without side effects.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// ConsecutiveFailures returns the current consecutive failure count.
func (b *Breaker) ConsecutiveFailures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// Registry hands out one breaker per dependency so that failures in one
// external service never trip the circuit for another.
type Registry struct {
	mu               sync.Mutex
	breakers         map[string]*Breaker
	failureThreshold int
	recoveryTimeout  time.Duration
	observer         func(dependency string, from, to BreakerState)
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithTransitionObserver registers a callback invoked on every breaker state
// transition. The callback runs outside the breaker lock and must not block.
func WithTransitionObserver(fn func(dependency string, from, to BreakerState)) RegistryOption {
	return func(r *Registry) {
		r.observer = fn
	}
}

// NewRegistry creates a breaker registry. Non-positive arguments fall back
// to the breaker defaults.
func NewRegistry(failureThreshold int, recoveryTimeout time.Duration, opts ...RegistryOption) *Registry {
	r := &Registry{
		breakers:         make(map[string]*Breaker),
		failureThreshold: failureThreshold,
		recoveryTimeout:  recoveryTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get returns the breaker for a dependency, creating it on first use.
func (r *Registry) Get(dependency string) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.breakers[dependency]; ok {
		return b
	}

	b := NewBreaker(r.failureThreshold, r.recoveryTimeout)
	if r.observer != nil {
		observer := r.observer
		b.onTransition = func(from, to BreakerState) {
			observer(dependency, from, to)
		}
	}
	r.breakers[dependency] = b
	return b
}

// States snapshots the current state of every known breaker.
func (r *Registry) States() map[string]BreakerState {
	r.mu.Lock()
	defer r.mu.Unlock()

	states := make(map[string]BreakerState, len(r.breakers))
	for dep, b := range r.breakers {
		states[dep] = b.State()
	}
	return states
}
