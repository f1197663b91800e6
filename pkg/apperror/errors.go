package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Webhook authentication (SEC) ----

// ErrInvalidSignature is returned when the gateway signature header is missing
// or does not match. The gateway must not retry these.
func ErrInvalidSignature() *AppError {
	return New("SEC_001", "Invalid webhook signature", http.StatusBadRequest)
}

// ---- Gateway events (EVT) ----

func ErrMalformedEvent(err error) *AppError {
	return Wrap("EVT_001", "Malformed webhook payload", http.StatusBadRequest, err)
}

func ErrUnreadableBody(err error) *AppError {
	return Wrap("EVT_002", "Cannot read request body", http.StatusBadRequest, err)
}

func ErrPayloadTooLarge() *AppError {
	return New("EVT_003", "Request body too large", http.StatusRequestEntityTooLarge)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

// ErrStorageFailure wraps any failed read or write against the backing store.
func ErrStorageFailure(err error) *AppError {
	return Wrap("SYS_001", "Internal storage error", http.StatusInternalServerError, err)
}

// InternalError wraps an unexpected internal error.
func InternalError(err error) *AppError {
	return Wrap("SYS_000", "Internal server error", http.StatusInternalServerError, err)
}
