package backends

import "errors"

var (
	// ErrBackendNotFound is returned when a backend is not registered
	ErrBackendNotFound = errors.New("backend not found")

	// ErrBackendAlreadyRegistered is returned when trying to register a duplicate backend
	ErrBackendAlreadyRegistered = errors.New("backend already registered")
)

// Error codes shared across adapters.
const (
	CodeAuth         = "AUTH_ERROR"
	CodeNotFound     = "NOT_FOUND"
	CodeValidation   = "VALIDATION_ERROR"
	CodeRateLimit    = "RATE_LIMITED"
	CodeTransport    = "HTTP_ERROR"
	CodeDecode       = "DECODE_ERROR"
	CodeNotSupported = "NOT_SUPPORTED"
)

// BackendError represents an error from an annotation backend
type BackendError struct {
	// Backend that generated the error
	Backend string

	// Code is the error code
	Code string

	// Message is the error message
	Message string

	// StatusCode is the HTTP status code (if applicable)
	StatusCode int

	// Retryable indicates if the request can be retried
	Retryable bool

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface
func (e *BackendError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap implements error unwrapping
func (e *BackendError) Unwrap() error {
	return e.Cause
}

// NewBackendError creates a new backend error
func NewBackendError(backend, code, message string, statusCode int, retryable bool, cause error) *BackendError {
	return &BackendError{
		Backend:    backend,
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Retryable:  retryable,
		Cause:      cause,
	}
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	var be *BackendError
	if errors.As(err, &be) {
		return be.Retryable
	}
	return false
}

// IsNotFound checks if an error reports a missing remote object
func IsNotFound(err error) bool {
	var be *BackendError
	if errors.As(err, &be) {
		return be.Code == CodeNotFound
	}
	return false
}

// IsNotSupported checks if an error reports an operation the backend lacks
func IsNotSupported(err error) bool {
	var be *BackendError
	if errors.As(err, &be) {
		return be.Code == CodeNotSupported
	}
	return false
}
