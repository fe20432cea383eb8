package source

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrAuthentication = errors.New("authentication failed")
	ErrNotFound       = errors.New("resource not found")
	ErrRateLimit      = errors.New("rate limit exceeded")
	ErrRequest        = errors.New("request failed")
)

// APIError describes a failed fleet API call. It matches exactly one of the
// sentinel errors above via errors.Is, plus the underlying cause if any.
type APIError struct {
	Op     string // e.g. "GET vehicles"
	Status int    // 0 when no response was received
	Err    error  // one of the sentinels
	Cause  error
}

func (e *APIError) Error() string {
	switch {
	case e.Status != 0 && e.Cause != nil:
		return fmt.Sprintf("%s: %v: status %d: %v", e.Op, e.Err, e.Status, e.Cause)
	case e.Status != 0:
		return fmt.Sprintf("%s: %v: status %d", e.Op, e.Err, e.Status)
	case e.Cause != nil:
		return fmt.Sprintf("%s: %v: %v", e.Op, e.Err, e.Cause)
	default:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
}

func (e *APIError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

// retryable reports whether a response status is worth another attempt.
func retryable(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

func classify(status int) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrAuthentication
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusTooManyRequests:
		return ErrRateLimit
	default:
		return ErrRequest
	}
}
