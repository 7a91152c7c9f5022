package bridge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"github.com/shellbridge/shellbridge/pkg/resilience"
)

const (
	// DefaultTimeout bounds an invocation when the request does not set
	// its own.
	DefaultTimeout = 60 * time.Second

	// DefaultMaxConcurrent caps simultaneous interpreter processes.
	DefaultMaxConcurrent = 8

	probeTimeout = 10 * time.Second
)

// Bridge invokes operations in an external shell interpreter and returns
// their JSON output. The interpreter is resolved once at construction and
// never changes afterwards; all methods are safe for concurrent use.
type Bridge struct {
	interp        Candidate
	version       string
	timeout       time.Duration
	maxConcurrent int64
	candidates    []Candidate
	limiter       *semaphore.Weighted
	observers     []func(operation string, result *Result, err error)
	build         func(Request) (string, error)
}

// Option configures a Bridge before interpreter resolution.
type Option func(*Bridge)

// WithTimeout sets the default per-invocation timeout.
func WithTimeout(d time.Duration) Option {
	return func(b *Bridge) {
		if d > 0 {
			b.timeout = d
		}
	}
}

// WithMaxConcurrent caps the number of simultaneous interpreter processes.
func WithMaxConcurrent(n int) Option {
	return func(b *Bridge) {
		if n > 0 {
			b.maxConcurrent = int64(n)
		}
	}
}

// WithCandidates replaces the interpreter resolution order.
func WithCandidates(candidates ...Candidate) Option {
	return func(b *Bridge) {
		b.candidates = candidates
	}
}

// WithObserver registers a callback invoked after every invocation with
// its outcome. Observers must not block.
func WithObserver(fn func(operation string, result *Result, err error)) Option {
	return func(b *Bridge) {
		b.observers = append(b.observers, fn)
	}
}

// New resolves a working interpreter by probing each candidate in order and
// returns a bridge bound to the first one that responds. When no candidate
// works it returns an interpreter-not-found error; there is no degraded
// mode, so callers should treat that as fatal.
func New(ctx context.Context, opts ...Option) (*Bridge, error) {
	b := &Bridge{
		timeout:       DefaultTimeout,
		maxConcurrent: DefaultMaxConcurrent,
		candidates:    DefaultCandidates(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.build = BuildCommand
	b.limiter = semaphore.NewWeighted(b.maxConcurrent)

	var probeErrs []error
	for _, cand := range b.candidates {
		version, err := probeCandidate(ctx, cand)
		if err != nil {
			log.Debug().
				Str("interpreter", cand.Name).
				Err(err).
				Msg("interpreter probe failed")
			probeErrs = append(probeErrs, fmt.Errorf("%s: %w", cand.Name, err))
			continue
		}

		b.interp = cand
		b.version = version
		log.Info().
			Str("interpreter", cand.Name).
			Str("version", version).
			Msg("resolved shell interpreter")
		return b, nil
	}

	return nil, resilience.NewPermanentError("no usable shell interpreter found", errors.Join(probeErrs...)).
		WithCode(resilience.ErrCodeInterpreterNotFound)
}

// Interpreter returns the resolved interpreter candidate.
func (b *Bridge) Interpreter() Candidate {
	return b.interp
}

// Version returns the resolved interpreter version string.
func (b *Bridge) Version() string {
	return b.version
}

// probeCandidate runs the candidate's probe expression and returns its
// trimmed stdout.
func probeCandidate(ctx context.Context, cand Candidate) (string, error) {
	if _, err := exec.LookPath(cand.Path); err != nil {
		return "", err
	}

	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	args := append(slices.Clone(cand.Args), cand.Probe)
	cmd := exec.CommandContext(probeCtx, cand.Path, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("probe failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	version := strings.TrimSpace(stdout.String())
	if version == "" {
		version = "unknown"
	}
	return version, nil
}

// Invoke runs one operation in a fresh interpreter process and decodes its
// JSON output. It never retries; callers wanting resilience wrap it in a
// retry executor. The returned Result is non-nil whenever a process ran,
// including on failure, so the exit code, captured streams and elapsed
// time are always available.
func (b *Bridge) Invoke(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, resilience.NewPermanentError("invalid invocation request", err).
			WithCode(resilience.ErrCodeValidation)
	}

	command, err := b.build(req)
	if err != nil {
		return nil, resilience.NewPermanentError("invalid invocation request", err).
			WithCode(resilience.ErrCodeValidation)
	}

	if err := b.limiter.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("waiting for interpreter slot: %w", err)
	}
	defer b.limiter.Release(1)

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = b.timeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	id := uuid.NewString()
	args := append(slices.Clone(b.interp.Args), command)
	cmd := exec.CommandContext(runCtx, b.interp.Path, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log.Debug().
		Str("invocation_id", id).
		Str("operation", req.Operation).
		Str("interpreter", b.interp.Name).
		Dur("timeout", timeout).
		Msg("invoking operation")

	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)

	result := &Result{
		InvocationID: id,
		ExitCode:     0,
		Stdout:       stdout.String(),
		Stderr:       stderr.String(),
		Elapsed:      elapsed,
	}

	outcome := func(err error) (*Result, error) {
		for _, fn := range b.observers {
			fn(req.Operation, result, err)
		}
		return result, err
	}

	if runErr != nil {
		switch {
		case errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
			result.ExitCode = -1
			log.Warn().
				Str("invocation_id", id).
				Str("operation", req.Operation).
				Dur("elapsed", elapsed).
				Msg("invocation timed out, interpreter killed")
			return outcome(resilience.NewNetworkError(
				fmt.Sprintf("operation %s timed out after %s", req.Operation, timeout), runErr).
				WithCode(resilience.ErrCodeInvocationTimeout))

		case ctx.Err() != nil:
			result.ExitCode = -1
			return outcome(fmt.Errorf("invocation aborted: %w", ctx.Err()))

		default:
			var exitErr *exec.ExitError
			if errors.As(runErr, &exitErr) {
				result.ExitCode = exitErr.ExitCode()
				errText := strings.TrimSpace(stderr.String())
				if errText == "" {
					errText = fmt.Sprintf("interpreter exited with code %d", result.ExitCode)
				}
				log.Debug().
					Str("invocation_id", id).
					Str("operation", req.Operation).
					Int("exit_code", result.ExitCode).
					Dur("elapsed", elapsed).
					Msg("operation reported failure")
				return outcome(fmt.Errorf("operation %s failed: %s", req.Operation, errText))
			}

			result.ExitCode = -1
			return outcome(fmt.Errorf("starting interpreter: %w", runErr))
		}
	}

	trimmed := strings.TrimSpace(stdout.String())
	if trimmed == "" {
		// Operations with no output are successful and carry no data.
		result.Success = true
		return outcome(nil)
	}

	data, err := DecodeOutput(trimmed)
	if err != nil {
		return outcome(resilience.NewPermanentError(
			fmt.Sprintf("operation %s produced malformed output", req.Operation), err).
			WithCode(resilience.ErrCodeMalformedOutput))
	}

	result.Success = true
	result.Data = data

	log.Debug().
		Str("invocation_id", id).
		Str("operation", req.Operation).
		Dur("elapsed", elapsed).
		Msg("operation succeeded")

	return outcome(nil)
}
