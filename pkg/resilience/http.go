package resilience

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// MapHTTPStatus builds a classified error from an HTTP response so HTTP
// callers feed the same retry machinery as subprocess callers. retryAfter
// is the Retry-After header value; a seconds value is folded into the
// message as a canonical "retry after N seconds" clause so the delay
// calculator picks the server hint up. body is the response detail
// reported by the dependency.
func MapHTTPStatus(status int, retryAfter string, body string) *Error {
	message := fmt.Sprintf("HTTP %d %s", status, http.StatusText(status))
	if body != "" {
		message = fmt.Sprintf("%s: %s", message, body)
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(retryAfter)); err == nil && secs >= 0 {
		message = fmt.Sprintf("%s, retry after %d seconds", message, secs)
	}
	return &Error{
		Category: statusCategory(status),
		Message:  message,
		Code:     fmt.Sprintf("HTTP_%d", status),
	}
}

// NewHTTPStatusError builds a classified error from an HTTP status and the
// response detail, for responses that carried no Retry-After header.
func NewHTTPStatusError(status int, detail string) *Error {
	return MapHTTPStatus(status, "", detail)
}

// statusCategory maps an HTTP response status onto the taxonomy. Statuses
// that carry no classification signal map to CategoryOther.
func statusCategory(status int) Category {
	switch {
	case status == http.StatusTooManyRequests:
		return CategoryRateLimit
	case status == http.StatusUnauthorized:
		return CategoryAuthentication
	case status == http.StatusForbidden:
		return CategoryAuthorization
	case status == http.StatusRequestTimeout:
		return CategoryNetwork
	case status >= 500:
		return CategoryTransient
	default:
		return CategoryOther
	}
}
