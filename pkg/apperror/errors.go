package apperror

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound         = errors.New("resource not found")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrPermissionDenied = errors.New("permission denied")
	ErrBadRequest       = errors.New("bad request")
	ErrInternal         = errors.New("internal server error")
	ErrValidation       = errors.New("validation failed")
	ErrStoreUnavailable = errors.New("notification store unavailable")
	ErrRateLimited      = errors.New("too many requests")
)

// Error kinds reported to API clients alongside success=false.
const (
	KindValidation       = "ValidationError"
	KindStoreUnavailable = "StoreUnavailable"
	KindPermissionDenied = "PermissionDenied"
	KindNotFound         = "NotFound"
	KindUnauthorized     = "Unauthorized"
	KindBadRequest       = "BadRequest"
	KindRateLimited      = "RateLimited"
	KindInternal         = "Internal"
)

// AppError is a custom error type that can hold an HTTP status code
type AppError struct {
	Code    int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return http.StatusText(e.Code)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError
func New(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Validation wraps a human readable message as a validation failure.
func Validation(message string) *AppError {
	return New(http.StatusBadRequest, message, ErrValidation)
}

// Kind maps an error onto the taxonomy reported to clients.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrStoreUnavailable):
		return KindStoreUnavailable
	case errors.Is(err, ErrPermissionDenied):
		return KindPermissionDenied
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	case errors.Is(err, ErrBadRequest):
		return KindBadRequest
	case errors.Is(err, ErrRateLimited):
		return KindRateLimited
	}
	return KindInternal
}

// MapErrorToStatus maps common errors to HTTP status codes
func MapErrorToStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Code != 0 {
		return appErr.Code
	}
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrUnauthorized) {
		return http.StatusUnauthorized
	}
	if errors.Is(err, ErrPermissionDenied) {
		return http.StatusForbidden
	}
	if errors.Is(err, ErrBadRequest) || errors.Is(err, ErrValidation) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrStoreUnavailable) {
		return http.StatusServiceUnavailable
	}
	if errors.Is(err, ErrRateLimited) {
		return http.StatusTooManyRequests
	}
	// Default to internal server error
	return http.StatusInternalServerError
}
