package resilience

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog"
)

// Operation is a single invocation of an external dependency. The executor
// calls it once per attempt; it must honor ctx cancellation.
type Operation func(ctx context.Context) error

// Attempt records one failed invocation within a retry sequence.
type Attempt struct {
	// Number is the 1-indexed attempt number.
	Number int `json:"number"`

	// Category is the failure classification.
	Category Category `json:"category"`

	// Code is the failure's error code, when one was set.
	Code string `json:"code,omitempty"`

	// Message is the failure text as produced by the dependency.
	Message string `json:"message"`

	// Delay is the wait scheduled after this attempt. Zero when the
	// attempt was terminal.
	Delay time.Duration `json:"delay"`

	// At is when the failure was recorded.
	At time.Time `json:"at"`
}

// Hook observes the retry lifecycle. Implementations must be safe for
// concurrent use and must not block; the executor calls them inline.
type Hook interface {
	// OnAttemptFailure runs after each failed attempt has been classified.
	OnAttemptFailure(dependency, operation string, attempt Attempt)

	// OnSuccess runs when an invocation succeeds, with the number of
	// attempts consumed and the total time spent waiting between them.
	OnSuccess(dependency, operation string, attempts int, totalDelay time.Duration)

	// OnFailure runs when the executor gives up and returns err.
	OnFailure(dependency, operation string, err *Error)

	// OnRejected runs when the circuit breaker denies execution before the
	// first attempt.
	OnRejected(dependency, operation string)
}

// BaseHook is a no-op Hook for embedding in partial implementations.
type BaseHook struct{}

func (BaseHook) OnAttemptFailure(string, string, Attempt)     {}
func (BaseHook) OnSuccess(string, string, int, time.Duration) {}
func (BaseHook) OnFailure(string, string, *Error)             {}
func (BaseHook) OnRejected(string, string)                    {}

// Executor runs operations against external dependencies with classified
// retries behind per-dependency circuit breakers. It is safe for concurrent
// use; independent sequences share only the breaker registry.
type Executor struct {
	classifier *Classifier
	calc       *Calculator
	breakers   *Registry
	logger     zerolog.Logger
	hooks      []Hook
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithClassifier replaces the default error classifier.
func WithClassifier(c *Classifier) ExecutorOption {
	return func(e *Executor) {
		e.classifier = c
	}
}

// WithCalculator replaces the default delay calculator.
func WithCalculator(c *Calculator) ExecutorOption {
	return func(e *Executor) {
		e.calc = c
	}
}

// WithBreakers shares a breaker registry across executors.
func WithBreakers(r *Registry) ExecutorOption {
	return func(e *Executor) {
		e.breakers = r
	}
}

// WithLogger attaches a logger. The default discards everything.
func WithLogger(logger zerolog.Logger) ExecutorOption {
	return func(e *Executor) {
		e.logger = logger
	}
}

// WithHook appends a lifecycle hook.
func WithHook(h Hook) ExecutorOption {
	return func(e *Executor) {
		e.hooks = append(e.hooks, h)
	}
}

// NewExecutor creates an executor with the default classifier, calculator
// and a fresh breaker registry using the standard breaker thresholds.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{
		classifier: NewClassifier(),
		calc:       NewCalculator(),
		breakers:   NewRegistry(DefaultFailureThreshold, DefaultRecoveryTimeout),
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Breakers returns the executor's breaker registry.
func (e *Executor) Breakers() *Registry {
	return e.breakers
}

// Execute runs op under the circuit breaker for dependency, retrying
// failures according to cfg and the failure classification.
//
// The breaker is consulted before every attempt. A rejection before the
// first attempt fails fast with a service unavailable error without
// consuming an attempt; a breaker that opens mid-sequence, from this
// sequence's own failures or from concurrent callers, terminates the
// remaining retries with the history recorded so far. Otherwise op runs up
// to cfg.MaxAttempts times; each failure is classified, recorded on the
// breaker, and either retried after a computed delay or returned as a
// terminal error carrying the full attempt history. Waits between attempts
// are interruptible through ctx.
func (e *Executor) Execute(ctx context.Context, dependency, operation string, cfg Config, op Operation) error {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}

	breaker := e.breakers.Get(dependency)

	var (
		records    []Attempt
		totalDelay time.Duration
	)

	for attempt := 1; ; attempt++ {
		if !breaker.CanExecute() {
			e.logger.Warn().
				Str("dependency", dependency).
				Str("operation", operation).
				Int("attempts", len(records)).
				Msg("circuit breaker rejected invocation")
			if len(records) == 0 {
				for _, h := range e.hooks {
					h.OnRejected(dependency, operation)
				}
				return NewTransientError(fmt.Sprintf("circuit breaker open for dependency %q", dependency), nil).
					WithCode(ErrCodeServiceUnavailable)
			}
			terminal := NewTransientError(fmt.Sprintf("circuit breaker opened for dependency %q during retries", dependency), nil).
				WithCode(ErrCodeServiceUnavailable)
			terminal.Attempts = len(records)
			terminal.TotalDelay = totalDelay
			terminal.History = records
			for _, h := range e.hooks {
				h.OnFailure(dependency, operation, terminal)
			}
			return terminal
		}

		err := op(ctx)
		if err == nil {
			breaker.RecordSuccess()
			if attempt > 1 {
				e.logger.Info().
					Str("dependency", dependency).
					Str("operation", operation).
					Int("attempts", attempt).
					Dur("total_delay", totalDelay).
					Msg("operation recovered after retry")
			}
			for _, h := range e.hooks {
				h.OnSuccess(dependency, operation, attempt, totalDelay)
			}
			return nil
		}

		breaker.RecordFailure()
		classified := e.classifier.ClassifyError(err)
		msg := err.Error()

		record := Attempt{
			Number:   attempt,
			Category: classified.Category,
			Code:     classified.Code,
			Message:  msg,
			At:       time.Now().UTC(),
		}

		if !retryDecision(attempt, cfg, classified) {
			records = append(records, record)
			for _, h := range e.hooks {
				h.OnAttemptFailure(dependency, operation, record)
			}
			terminal := terminalError(classified, records, totalDelay)
			e.logger.Error().
				Err(err).
				Str("dependency", dependency).
				Str("operation", operation).
				Str("category", string(terminal.Category)).
				Int("attempts", terminal.Attempts).
				Dur("total_delay", terminal.TotalDelay).
				Msg("operation failed")
			for _, h := range e.hooks {
				h.OnFailure(dependency, operation, terminal)
			}
			return terminal
		}

		var delay time.Duration
		if cfg.Strategy != StrategyImmediate {
			delay = e.calc.Delay(attempt, classified.Category, msg, cfg)
		}
		record.Delay = delay
		records = append(records, record)
		for _, h := range e.hooks {
			h.OnAttemptFailure(dependency, operation, record)
		}

		e.logger.Warn().
			Err(err).
			Str("dependency", dependency).
			Str("operation", operation).
			Int("attempt", attempt).
			Int("max_attempts", cfg.MaxAttempts).
			Str("category", string(classified.Category)).
			Dur("delay", delay).
			Msg("attempt failed, retrying")

		if delay > 0 {
			select {
			case <-time.After(delay):
				totalDelay += delay
			case <-ctx.Done():
				terminal := &Error{
					Category:   classified.Category,
					Message:    fmt.Sprintf("retry wait interrupted: %s", classified.Message),
					Code:       classified.Code,
					Permanent:  true,
					Attempts:   len(records),
					TotalDelay: totalDelay,
					History:    records,
					Err:        ctx.Err(),
				}
				e.logger.Warn().
					Str("dependency", dependency).
					Str("operation", operation).
					Int("attempts", terminal.Attempts).
					Msg("retry wait interrupted")
				for _, h := range e.hooks {
					h.OnFailure(dependency, operation, terminal)
				}
				return terminal
			}
		}
	}
}

// Do runs fn with retries and returns its result. It is the typed wrapper
// around Execute for operations that produce a value.
func Do[T any](ctx context.Context, e *Executor, dependency, operation string, cfg Config, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := e.Execute(ctx, dependency, operation, cfg, func(ctx context.Context) error {
		v, ferr := fn(ctx)
		if ferr != nil {
			return ferr
		}
		out = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// retryDecision applies the retry policy in fixed precedence order:
// attempt budget, non-retryable codes, authorization, retryable codes,
// permanent failures, retryable categories, connectivity faults.
func retryDecision(attempt int, cfg Config, classified *Error) bool {
	if attempt >= cfg.MaxAttempts {
		return false
	}
	if classified.Code != "" && slices.Contains(cfg.NonRetryableCodes, classified.Code) {
		return false
	}
	if classified.Category == CategoryAuthorization {
		return false
	}
	if classified.Code != "" && slices.Contains(cfg.RetryableCodes, classified.Code) {
		return true
	}
	if classified.Permanent {
		return false
	}
	switch classified.Category {
	case CategoryRateLimit, CategoryNetwork, CategoryTransient:
		return true
	}
	return classified.Err != nil && IsConnectivityError(classified.Err)
}

// terminalError enriches the final classified failure with the sequence
// totals so callers and logs see the whole retry history.
func terminalError(classified *Error, records []Attempt, totalDelay time.Duration) *Error {
	terminal := *classified
	terminal.Attempts = len(records)
	terminal.TotalDelay = totalDelay
	terminal.History = records
	return &terminal
}
