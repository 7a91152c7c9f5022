package resilience

import (
	"regexp"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Strategy selects the delay family for a retry sequence.
type Strategy string

const (
	// StrategyExponential applies the category-specific backoff algorithm.
	StrategyExponential Strategy = "exponential"

	// StrategyLinear grows the delay linearly with the attempt number.
	StrategyLinear Strategy = "linear"

	// StrategyFixed waits BaseDelay between every attempt.
	StrategyFixed Strategy = "fixed"

	// StrategyImmediate retries without any delay.
	StrategyImmediate Strategy = "immediate"
)

// Config controls one retry sequence. It is owned by the caller and
// treated as immutable for the lifetime of the sequence.
type Config struct {
	// MaxAttempts is the total number of invocation attempts, including
	// the first one. 1 means a single attempt with no retries.
	MaxAttempts int `json:"max_attempts"`

	// BaseDelay is the starting delay for the backoff families.
	BaseDelay time.Duration `json:"base_delay"`

	// MaxDelay caps the computed delay for the linear and fixed strategies.
	// The category-specific algorithm applies its own per-category caps.
	MaxDelay time.Duration `json:"max_delay"`

	// BackoffMultiplier is the growth factor for exponential families.
	BackoffMultiplier float64 `json:"backoff_multiplier"`

	// Strategy selects the delay family.
	Strategy Strategy `json:"strategy"`

	// RetryableCodes lists error codes that are always retried.
	RetryableCodes []string `json:"retryable_codes,omitempty"`

	// NonRetryableCodes lists error codes that are never retried.
	NonRetryableCodes []string `json:"non_retryable_codes,omitempty"`
}

// DefaultConfig returns the standard retry configuration.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:       3,
		BaseDelay:         time.Second,
		MaxDelay:          60 * time.Second,
		BackoffMultiplier: 2,
		Strategy:          StrategyExponential,
	}
}

// Per-category delay caps. Different failure classes have different natural
// recovery times: quota windows are long, DNS flaps are short.
const (
	rateLimitDelayCap      = 120 * time.Second
	transientDelayCap      = 60 * time.Second
	authenticationDelayCap = 30 * time.Second
	networkDelayCap        = 60 * time.Second
	fallbackDelayCap       = 30 * time.Second
	serverHintDelayCap     = 300 * time.Second

	jitterFraction = 0.1
)

// retryAfterPattern extracts the seconds value from server-provided
// backpressure hints such as "retry after 30 seconds" or "Retry-After: 30".
var retryAfterPattern = regexp.MustCompile(`(?i)retry[-\s]*after[:\s]*(\d+)`)

// Calculator computes the wait before the next retry attempt.
type Calculator struct{}

// NewCalculator creates a delay calculator.
func NewCalculator() *Calculator {
	return &Calculator{}
}

// Delay returns the wait before the next attempt. attempt is 1-indexed:
// the delay after the first failed attempt is Delay(1, ...).
//
// A server-provided "retry after N seconds" hint in the message wins over
// every computed family and returns min(N+1s, 300s). Otherwise the delay
// is category-specific: RateLimit and Transient use exponential backoff
// with ±10% jitter capped at 120s and 60s, Authentication and Network grow
// linearly capped at 30s and 60s, everything else uses plain exponential
// backoff capped at 30s. The result is never zero or negative for a
// retried attempt; only StrategyImmediate bypasses the wait entirely.
func (c *Calculator) Delay(attempt int, category Category, message string, cfg Config) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	if hint, ok := ParseRetryAfterHint(message); ok {
		return min(hint+time.Second, serverHintDelayCap)
	}

	if cfg.Strategy == StrategyImmediate {
		return 0
	}

	base := cfg.BaseDelay
	if base <= 0 {
		base = time.Second
	}

	var d time.Duration
	switch cfg.Strategy {
	case StrategyFixed:
		d = clampDelay(base, cfg.MaxDelay)
	case StrategyLinear:
		d = linearDelay(base, attempt, cfg.MaxDelay)
	default:
		d = categoryDelay(attempt, category, base, cfg.BackoffMultiplier)
	}

	if d <= 0 {
		d = time.Second
	}
	return d
}

// categoryDelay applies the per-category backoff families.
func categoryDelay(attempt int, category Category, base time.Duration, multiplier float64) time.Duration {
	if multiplier < 1 {
		multiplier = 2
	}

	switch category {
	case CategoryRateLimit:
		return exponentialDelay(base, multiplier, jitterFraction, rateLimitDelayCap, attempt)
	case CategoryTransient:
		return exponentialDelay(base, multiplier, jitterFraction, transientDelayCap, attempt)
	case CategoryAuthentication:
		return linearDelay(base, attempt, authenticationDelayCap)
	case CategoryNetwork:
		return linearDelay(base, attempt, networkDelayCap)
	default:
		return exponentialDelay(base, multiplier, 0, fallbackDelayCap, attempt)
	}
}

// exponentialDelay steps an exponential backoff to the given attempt and
// clamps the jittered result so the per-category cap is a hard ceiling.
func exponentialDelay(base time.Duration, multiplier, jitter float64, limit time.Duration, attempt int) time.Duration {
	bo := &backoff.ExponentialBackOff{
		InitialInterval:     base,
		RandomizationFactor: jitter,
		Multiplier:          multiplier,
		MaxInterval:         limit,
	}
	bo.Reset()

	d := bo.NextBackOff()
	for i := 1; i < attempt; i++ {
		d = bo.NextBackOff()
	}
	return clampDelay(d, limit)
}

// linearDelay grows the delay linearly with the attempt number.
func linearDelay(base time.Duration, attempt int, limit time.Duration) time.Duration {
	return clampDelay(base*time.Duration(attempt), limit)
}

// clampDelay bounds d to limit when a limit is set.
func clampDelay(d, limit time.Duration) time.Duration {
	if limit > 0 && d > limit {
		return limit
	}
	return d
}

// ParseRetryAfterHint extracts a server-provided backpressure hint from an
// error message. It returns the advertised wait and whether one was found.
func ParseRetryAfterHint(message string) (time.Duration, bool) {
	m := retryAfterPattern.FindStringSubmatch(message)
	if m == nil {
		return 0, false
	}
	secs, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return time.Duration(secs) * time.Second, true
}
