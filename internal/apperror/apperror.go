package apperror

import (
	"errors"
	"fmt"
)

// Sentinel errors classify every failure the application can surface.
// Callers test with errors.Is; the HTTP layer maps each kind to a status code.
var (
	ErrNotFound      = errors.New("not found")
	ErrValidation    = errors.New("validation error")
	ErrConflict      = errors.New("conflict")
	ErrPersistence   = errors.New("persistence error")
	ErrConfiguration = errors.New("configuration error")
	ErrRemote        = errors.New("remote error")
	ErrDataFormat    = errors.New("data format error")
)

type AppError struct {
	Err     error  // sentinel classifying the error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// PersistenceFailed wraps a storage read/write failure. The underlying cause
// is folded into the message; classification stays ErrPersistence.
func PersistenceFailed(op string, cause error) *AppError {
	return &AppError{
		Err:     ErrPersistence,
		Message: fmt.Sprintf("%s: %v", op, cause),
	}
}

// NotConfigured signals a sync operation attempted before the credential or
// the remote binding was set up. HTTP handlers map this to 412.
func NotConfigured(message string) *AppError {
	return &AppError{
		Err:     ErrConfiguration,
		Message: message,
	}
}

// RemoteFailed classifies network, HTTP and decoding failures from the remote
// document store. HTTP handlers map this to 502.
func RemoteFailed(message string) *AppError {
	return &AppError{
		Err:     ErrRemote,
		Message: message,
	}
}

// SyncInProgress rejects a sync operation while another one is still running.
func SyncInProgress() *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: "a sync operation is already running",
	}
}

// BadDataFormat signals a malformed document (import payload or a corrupt
// stored value).
func BadDataFormat(message string) *AppError {
	return &AppError{
		Err:     ErrDataFormat,
		Message: message,
	}
}
