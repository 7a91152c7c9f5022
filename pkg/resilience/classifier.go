package resilience

import (
	"context"
	"errors"
	"net"
	"strings"
)

// categoryRule binds a category to the keyword set that selects it.
type categoryRule struct {
	category Category
	keywords []string
}

// defaultRules holds the curated keyword sets in fixed priority order.
// A message matching several sets resolves to the first matching category,
// so the order here is part of the classification contract.
func defaultRules() []categoryRule {
	return []categoryRule{
		{CategoryRateLimit, []string{
			"429", "too many requests", "throttl", "quota", "rate limit",
		}},
		{CategoryAuthentication, []string{
			"401", "unauthorized", "unauthenticated", "token", "expired",
			"credential", "login", "authentication",
		}},
		{CategoryAuthorization, []string{
			"403", "forbidden", "insufficient privileges", "access denied",
			"access is denied", "permission", "authorization",
		}},
		{CategoryNetwork, []string{
			"timeout", "timed out", "dns", "connection reset",
			"connection refused", "no such host", "unreachable",
			"broken pipe", "network",
		}},
		{CategoryTransient, []string{
			"500", "502", "503", "504", "service unavailable", "bad gateway",
			"internal server error", "temporarily unavailable",
		}},
	}
}

// Classifier maps raw error text onto a Category by case-insensitive
// substring matching. Classification is pure: the same message always
// yields the same category.
type Classifier struct {
	rules []categoryRule
}

// NewClassifier creates a classifier with the default keyword sets.
func NewClassifier() *Classifier {
	return &Classifier{rules: defaultRules()}
}

// AddKeywords appends extra keywords to the rule for the given category,
// preserving its priority position. Unknown categories are ignored.
func (c *Classifier) AddKeywords(category Category, keywords ...string) {
	for i := range c.rules {
		if c.rules[i].category == category {
			for _, kw := range keywords {
				c.rules[i].keywords = append(c.rules[i].keywords, strings.ToLower(kw))
			}
			return
		}
	}
}

// Classify returns the category for an error message. Matching is
// case-insensitive and checked in priority order: RateLimit before
// Authentication before Authorization before Network before Transient.
// Messages matching nothing fall through to CategoryOther.
func (c *Classifier) Classify(message string) Category {
	msg := strings.ToLower(message)
	for _, rule := range c.rules {
		for _, kw := range rule.keywords {
			if strings.Contains(msg, kw) {
				return rule.category
			}
		}
	}
	return CategoryOther
}

// ClassifyError converts an arbitrary error into a classified *Error.
// Already-classified errors pass through unchanged. Connectivity faults
// from the standard library are recognized as network errors even when
// their text matches no keyword.
func (c *Classifier) ClassifyError(err error) *Error {
	if err == nil {
		return nil
	}

	var classified *Error
	if errors.As(err, &classified) {
		return classified
	}

	if IsConnectivityError(err) {
		return NewNetworkError("network fault", err)
	}

	switch c.Classify(err.Error()) {
	case CategoryRateLimit:
		return NewRateLimitError("rate limit reported by dependency", err)
	case CategoryAuthentication:
		return NewAuthenticationError("authentication failure", err)
	case CategoryAuthorization:
		return NewAuthorizationError("authorization failure", err)
	case CategoryNetwork:
		return NewNetworkError("network fault", err)
	case CategoryTransient:
		return NewTransientError("transient dependency failure", err)
	default:
		return &Error{Category: CategoryOther, Message: "unclassified failure", Err: err}
	}
}

// defaultClassifier serves the package-level Classify helpers.
var defaultClassifier = NewClassifier()

// Classify classifies an error message using the default keyword sets.
func Classify(message string) Category {
	return defaultClassifier.Classify(message)
}

// ClassifyError classifies an error using the default keyword sets.
func ClassifyError(err error) *Error {
	return defaultClassifier.ClassifyError(err)
}

// IsConnectivityError reports whether err is a generic connectivity or
// timeout fault from the standard library. Caller cancellation is not a
// connectivity fault: context.Canceled means the caller gave up.
func IsConnectivityError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}
