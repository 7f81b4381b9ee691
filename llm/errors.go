package llm

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies gateway failures for the retry policy.
type ErrorKind string

const (
	// KindRateLimited maps from provider HTTP 429 responses.
	KindRateLimited ErrorKind = "rate_limited"
	// KindUnavailable maps from provider 5xx responses.
	KindUnavailable ErrorKind = "provider_unavailable"
	// KindTimeout covers request deadlines and network timeouts.
	KindTimeout ErrorKind = "timeout"
	// KindClientError maps from non-429 4xx responses. Never retried.
	KindClientError ErrorKind = "client_error"
	// KindUnknown covers everything else. Never retried.
	KindUnknown ErrorKind = "unknown"
)

// GatewayError is a classified provider invocation failure.
type GatewayError struct {
	Kind       ErrorKind
	StatusCode int
	err        error
}

func (e *GatewayError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s (status %d): %v", e.Kind, e.StatusCode, e.err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.err)
}

func (e *GatewayError) Unwrap() error {
	return e.err
}

// NewGatewayError wraps err with an explicit classification.
func NewGatewayError(kind ErrorKind, err error) *GatewayError {
	return &GatewayError{Kind: kind, err: err}
}

// KindOf returns the classification of err, or KindUnknown for
// errors that did not come from the gateway.
func KindOf(err error) ErrorKind {
	var ge *GatewayError
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return KindUnknown
}

// IsTransient reports whether err may succeed on retry.
// Rate limiting, provider unavailability and timeouts are transient;
// client errors are programmer/config mistakes and are not.
func IsTransient(err error) bool {
	switch KindOf(err) {
	case KindRateLimited, KindUnavailable, KindTimeout:
		return true
	default:
		return false
	}
}

// classifyHTTPError converts an HTTP error status into a GatewayError.
func classifyHTTPError(statusCode int, body []byte) error {
	bodyStr := string(body)
	if len(bodyStr) > 200 {
		bodyStr = bodyStr[:200] + "..."
	}
	err := fmt.Errorf("provider error: %s", bodyStr)

	switch {
	case statusCode == http.StatusTooManyRequests:
		return &GatewayError{Kind: KindRateLimited, StatusCode: statusCode, err: err}
	case statusCode == http.StatusRequestTimeout, statusCode == http.StatusGatewayTimeout:
		return &GatewayError{Kind: KindTimeout, StatusCode: statusCode, err: err}
	case statusCode >= 500:
		return &GatewayError{Kind: KindUnavailable, StatusCode: statusCode, err: err}
	case statusCode >= 400:
		return &GatewayError{Kind: KindClientError, StatusCode: statusCode, err: err}
	default:
		return &GatewayError{Kind: KindUnknown, StatusCode: statusCode, err: err}
	}
}
