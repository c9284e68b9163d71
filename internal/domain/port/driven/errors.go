package driven

import "errors"

// Error classes adapters translate backend responses into. Callers classify
// with errors.Is; the wrapped message carries the backend's own text.
var (
	// ErrValidation indicates malformed input, rejected before or by the backend.
	ErrValidation = errors.New("validation failed")

	// ErrAuth indicates an invalid or expired credential.
	ErrAuth = errors.New("authorization failed")

	// ErrNotFound indicates the resource or credential does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a duplicate registration.
	ErrConflict = errors.New("already exists")

	// ErrNetwork indicates a transient failure or an unreachable backend.
	ErrNetwork = errors.New("backend unreachable")

	// ErrServer indicates the backend failed internally.
	ErrServer = errors.New("backend error")
)

// BackendError carries the backend's structured error body alongside the
// class sentinel it maps to, so classification stays on the machine-readable
// Code while the human-readable Message survives for display.
type BackendError struct {
	Status  int    // HTTP status code
	Code    string // backend error code, empty when the body had none
	Message string // backend display text
	Class   error  // one of the sentinel errors above
}

func (e *BackendError) Error() string {
	if e.Code != "" {
		return "backend " + e.Code + ": " + e.Message
	}
	return "backend: " + e.Message
}

// Unwrap exposes the class sentinel to errors.Is.
func (e *BackendError) Unwrap() error { return e.Class }

// ErrorMessage returns the backend's display text when err carries a
// BackendError, and err's own message otherwise. Orchestrators use it to
// surface backend failures verbatim.
func ErrorMessage(err error) string {
	var be *BackendError
	if errors.As(err, &be) {
		return be.Message
	}
	return err.Error()
}
