package diskstore

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for the remote store's error taxonomy. Callers
// classify failures with errors.Is against these, never by inspecting
// status codes directly.
var (
	ErrBadRequest    = errors.New("diskstore: bad request")
	ErrUnauthorized  = errors.New("diskstore: unauthorized")
	ErrForbidden     = errors.New("diskstore: forbidden")
	ErrNotFound      = errors.New("diskstore: not found")
	ErrConflict      = errors.New("diskstore: conflict")
	ErrGone          = errors.New("diskstore: resource gone")
	ErrThrottled     = errors.New("diskstore: rate limited")
	ErrLocked        = errors.New("diskstore: resource locked")
	ErrServerError   = errors.New("diskstore: server error")
	ErrQuotaExceeded = errors.New("diskstore: quota exceeded")
)

// StoreError wraps a failed remote store call with the HTTP status code
// and response body that produced it, while still satisfying errors.Is
// against the sentinel above via Unwrap.
type StoreError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("diskstore: status %d: %s: %s", e.StatusCode, e.Err, e.Message)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// classifyStatus maps an HTTP status code onto a sentinel error kind.
func classifyStatus(code int) error {
	switch {
	case code == http.StatusBadRequest:
		return ErrBadRequest
	case code == http.StatusUnauthorized:
		return ErrUnauthorized
	case code == http.StatusForbidden:
		return ErrForbidden
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusConflict:
		return ErrConflict
	case code == http.StatusGone:
		return ErrGone
	case code == http.StatusTooManyRequests:
		return ErrThrottled
	case code == http.StatusLocked:
		return ErrLocked
	case code == 507: // Insufficient Storage — disk quota exceeded.
		return ErrQuotaExceeded
	case code >= 500:
		return ErrServerError
	default:
		return fmt.Errorf("diskstore: unclassified status %d", code)
	}
}

// isRetryable reports whether a failed call should be retried: 5xx, 429
// (throttled) and network failures are retryable; other 4xx are not. 409
// retryability is call-site specific (see retryOpts.retry409) since
// ensureDir treats it as success while move treats it as a terminal,
// caller-visible conflict.
func isRetryable(code int) bool {
	return code >= 500 || code == http.StatusTooManyRequests
}
