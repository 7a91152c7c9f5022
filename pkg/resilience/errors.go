package resilience

import (
	"errors"
	"fmt"
	"time"
)

// Category represents the classification of a failure for retry and backoff logic.
type Category string

const (
	// CategoryRateLimit indicates quota exhaustion or throttling by the
	// downstream service. Retried with exponential backoff and the longest cap.
	CategoryRateLimit Category = "rate_limit"

	// CategoryAuthentication indicates a failed or expired credential.
	// Examples: rejected tokens, expired sessions. May recover after refresh.
	CategoryAuthentication Category = "authentication"

	// CategoryAuthorization indicates missing permissions. Never retried,
	// since permission problems do not self-heal.
	CategoryAuthorization Category = "authorization"

	// CategoryNetwork indicates a connectivity fault.
	// Examples: timeouts, DNS failures, connection resets.
	CategoryNetwork Category = "network"

	// CategoryTransient indicates a temporary server-side failure that may
	// succeed on retry. Examples: 5xx responses, service unavailable.
	CategoryTransient Category = "transient"

	// CategoryOther is the fallback for failures matching no known pattern.
	CategoryOther Category = "other"
)

// Error represents a classified failure with context.
type Error struct {
	// Category is the failure classification for retry logic.
	Category Category `json:"category"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Code is an optional error code for programmatic handling, matched
	// against the retryable and non-retryable code sets of a retry config.
	Code string `json:"code,omitempty"`

	// Description carries additional operator-facing detail, surfaced by
	// upper layers instead of the raw low-level error.
	Description string `json:"description,omitempty"`

	// Permanent marks failures that must never be retried regardless of
	// category, such as a missing interpreter or a broken output contract.
	Permanent bool `json:"permanent,omitempty"`

	// Attempts is the number of invocation attempts performed before this
	// error became terminal. Zero unless set by the retry executor.
	Attempts int `json:"attempts,omitempty"`

	// TotalDelay is the cumulative time spent waiting between attempts.
	TotalDelay time.Duration `json:"total_delay,omitempty"`

	// History records every failed attempt of the retry sequence that
	// produced this error, in order. Populated by the retry executor.
	History []Attempt `json:"history,omitempty"`

	// Err is the underlying error that caused this error.
	Err error `json:"-"`

	// Details contains additional context-specific information.
	Details map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if cause := e.unwrapMessage(); cause != "" && cause != e.Message {
		msg = fmt.Sprintf("%s: %s", msg, cause)
	}
	if e.Attempts > 0 {
		return fmt.Sprintf("[%s] %s (attempts=%d, total_delay=%s)", e.Category, msg, e.Attempts, e.TotalDelay)
	}
	if e.Code != "" {
		return fmt.Sprintf("[%s] %s (code=%s)", e.Category, msg, e.Code)
	}
	return fmt.Sprintf("[%s] %s", e.Category, msg)
}

// Unwrap returns the underlying error for error chain inspection.
func (e *Error) Unwrap() error {
	return e.Err
}

// unwrapMessage returns the error message from the underlying error chain.
func (e *Error) unwrapMessage() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return ""
}

// Is implements error equality checking for errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Category == t.Category && e.Code == t.Code
}

// NewRateLimitError creates a new rate-limit error.
func NewRateLimitError(message string, err error) *Error {
	return &Error{
		Category: CategoryRateLimit,
		Message:  message,
		Code:     ErrCodeRateLimited,
		Err:      err,
	}
}

// NewAuthenticationError creates a new authentication error.
func NewAuthenticationError(message string, err error) *Error {
	return &Error{
		Category: CategoryAuthentication,
		Message:  message,
		Err:      err,
	}
}

// NewAuthorizationError creates a new authorization error.
// Authorization failures are permanent: the retry executor never retries them.
func NewAuthorizationError(message string, err error) *Error {
	return &Error{
		Category:  CategoryAuthorization,
		Message:   message,
		Code:      ErrCodePermissionDenied,
		Permanent: true,
		Err:       err,
	}
}

// NewNetworkError creates a new network error.
func NewNetworkError(message string, err error) *Error {
	return &Error{
		Category: CategoryNetwork,
		Message:  message,
		Err:      err,
	}
}

// NewTransientError creates a new transient error.
func NewTransientError(message string, err error) *Error {
	return &Error{
		Category: CategoryTransient,
		Message:  message,
		Err:      err,
	}
}

// NewPermanentError creates a new permanent, unclassified error.
// Used for contract bugs and configuration faults that retrying cannot fix.
func NewPermanentError(message string, err error) *Error {
	return &Error{
		Category:  CategoryOther,
		Message:   message,
		Permanent: true,
		Err:       err,
	}
}

// WithCode adds an error code to an error.
func (e *Error) WithCode(code string) *Error {
	e.Code = code
	return e
}

// WithDescription adds an operator-facing description to an error.
func (e *Error) WithDescription(description string) *Error {
	e.Description = description
	return e
}

// WithDetail adds a detail field to the error context.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// CategoryOf returns the category of a classified error, or CategoryOther
// for errors that carry no classification.
func CategoryOf(err error) Category {
	var e *Error
	if errors.As(err, &e) {
		return e.Category
	}
	return CategoryOther
}

// IsRateLimit returns true if the error is classified as a rate limit.
func IsRateLimit(err error) bool {
	return CategoryOf(err) == CategoryRateLimit
}

// IsAuthentication returns true if the error is classified as an authentication failure.
func IsAuthentication(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Category == CategoryAuthentication
	}
	return false
}

// IsAuthorization returns true if the error is classified as an authorization failure.
func IsAuthorization(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Category == CategoryAuthorization
	}
	return false
}

// IsNetwork returns true if the error is classified as a network fault.
func IsNetwork(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Category == CategoryNetwork
	}
	return false
}

// IsTransient returns true if the error is classified as transient.
func IsTransient(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Category == CategoryTransient
	}
	return false
}

// IsPermanent returns true if the error must never be retried: either it is
// explicitly marked permanent or it is an authorization failure.
func IsPermanent(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Permanent || e.Category == CategoryAuthorization
	}
	return false
}

// Common error codes.
const (
	ErrCodeValidation          = "VALIDATION_ERROR"
	ErrCodeTimeout             = "TIMEOUT"
	ErrCodeRateLimited         = "RATE_LIMITED"
	ErrCodePermissionDenied    = "PERMISSION_DENIED"
	ErrCodeServiceUnavailable  = "SERVICE_UNAVAILABLE"
	ErrCodeInterpreterNotFound = "INTERPRETER_NOT_FOUND"
	ErrCodeMalformedOutput     = "MALFORMED_OUTPUT"
	ErrCodeInvocationTimeout   = "INVOCATION_TIMEOUT"
	ErrCodeInvocationFailed    = "INVOCATION_FAILED"
	ErrCodeInternal            = "INTERNAL_ERROR"
)
