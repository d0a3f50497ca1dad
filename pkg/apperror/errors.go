package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound     = errors.New("resource not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")
	ErrInternal     = errors.New("internal server error")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("conflict")
	ErrTimeout      = errors.New("request timed out")
	ErrUnavailable  = errors.New("backend unavailable")

	// ErrSessionRevoked marks an error after which the identity session was
	// signed out and the caller must log in again.
	ErrSessionRevoked = errors.New("session revoked")
)

// AppError is a custom error type that can hold an HTTP status code
type AppError struct {
	Code    int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
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

// FromStatus builds the AppError for a non-2xx status returned by an upstream
// service, wrapping the sentinel that matches the status.
func FromStatus(code int, message string) *AppError {
	if message == "" {
		message = http.StatusText(code)
	}
	return New(code, message, fmt.Errorf("%w: %s", sentinelFor(code), message))
}

// Revoked wraps err so that it matches both ErrSessionRevoked and the
// original error chain.
func Revoked(err error) error {
	return fmt.Errorf("%w: %w", ErrSessionRevoked, err)
}

// Message returns the user-facing message carried by err.
func Message(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return err.Error()
}

func sentinelFor(code int) error {
	switch code {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	case http.StatusGatewayTimeout, http.StatusRequestTimeout:
		return ErrTimeout
	case http.StatusBadGateway, http.StatusServiceUnavailable:
		return ErrUnavailable
	default:
		return ErrInternal
	}
}

// MapErrorToStatus maps common errors to HTTP status codes
func MapErrorToStatus(err error) int {
	if errors.Is(err, ErrSessionRevoked) {
		return http.StatusUnauthorized
	}
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
	if errors.Is(err, ErrForbidden) {
		return http.StatusForbidden
	}
	if errors.Is(err, ErrBadRequest) || errors.Is(err, ErrInvalidInput) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrConflict) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrTimeout) {
		return http.StatusGatewayTimeout
	}
	if errors.Is(err, ErrUnavailable) {
		return http.StatusBadGateway
	}
	// Default to internal server error
	return http.StatusInternalServerError
}
