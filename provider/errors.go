package provider

import "fmt"

// ErrorCode classifies provider failures for callers and retry logic.
type ErrorCode string

const (
	ErrCodeAuth           ErrorCode = "AUTH"
	ErrCodeRateLimit      ErrorCode = "RATE_LIMIT"
	ErrCodeInvalidRequest ErrorCode = "INVALID_REQUEST"
	ErrCodeContentBlocked ErrorCode = "CONTENT_BLOCKED"
	ErrCodeUnavailable    ErrorCode = "UNAVAILABLE"
	ErrCodeNetwork        ErrorCode = "NETWORK"
)

// Error is the typed error surfaced by provider adapters. Retryable guides
// retry/circuit-breaker plugins; the underlying SDK error is preserved for
// unwrapping.
type Error struct {
	Provider  string
	Code      ErrorCode
	Message   string
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s provider error [%s]: %s: %v", e.Provider, e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s provider error [%s]: %s", e.Provider, e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// ClassifyStatus maps an HTTP status code from a provider SDK to an error
// code and retryability. Shared by the concrete adapters.
func ClassifyStatus(status int) (ErrorCode, bool) {
	switch {
	case status == 401 || status == 403:
		return ErrCodeAuth, false
	case status == 429:
		return ErrCodeRateLimit, true
	case status >= 400 && status < 500:
		return ErrCodeInvalidRequest, false
	case status >= 500:
		return ErrCodeUnavailable, true
	default:
		return ErrCodeNetwork, true
	}
}
