// Package apperrors defines the application error taxonomy. Every service
// operation surfaces failures as an *AppError with a stable Type discriminant
// so handlers can map them to HTTP codes without string matching.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorType string

const (
	TypeValidation       ErrorType = "validation_error"
	TypeNotFound         ErrorType = "not_found"
	TypeInvalidActor     ErrorType = "invalid_actor"
	TypeConflict         ErrorType = "conflict"
	TypeStateConflict    ErrorType = "state_conflict"
	TypePermissionDenied ErrorType = "permission_denied"
	TypeStoreFailure     ErrorType = "store_failure"
)

type AppError struct {
	Type    ErrorType `json:"error"`
	Message string    `json:"message"`
	Code    int       `json:"-"`
	Details string    `json:"details,omitempty"`
	cause   error
}

func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error { return e.cause }

func NewValidation(msg string) *AppError {
	return &AppError{Type: TypeValidation, Message: msg, Code: http.StatusBadRequest}
}

func NewNotFound(msg string) *AppError {
	return &AppError{Type: TypeNotFound, Message: msg, Code: http.StatusNotFound}
}

func NewInvalidActor(msg string) *AppError {
	return &AppError{Type: TypeInvalidActor, Message: msg, Code: http.StatusUnprocessableEntity}
}

func NewConflict(msg string) *AppError {
	return &AppError{Type: TypeConflict, Message: msg, Code: http.StatusConflict}
}

// NewStateConflict carries the current status in Details so stale clients can
// resync without a second read.
func NewStateConflict(msg, currentStatus string) *AppError {
	return &AppError{Type: TypeStateConflict, Message: msg, Code: http.StatusConflict, Details: currentStatus}
}

func NewPermissionDenied(msg string) *AppError {
	return &AppError{Type: TypePermissionDenied, Message: msg, Code: http.StatusForbidden}
}

// NewStoreFailure wraps an opaque persistence error.
func NewStoreFailure(err error) *AppError {
	return &AppError{
		Type:    TypeStoreFailure,
		Message: "persistence failure",
		Code:    http.StatusInternalServerError,
		cause:   err,
	}
}

// As extracts an *AppError from err, if any.
func As(err error) (*AppError, bool) {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// IsType reports whether err is an *AppError of the given type.
func IsType(err error, t ErrorType) bool {
	ae, ok := As(err)
	return ok && ae.Type == t
}

// HTTPStatus maps err to the status code handlers should write.
func HTTPStatus(err error) int {
	if ae, ok := As(err); ok {
		return ae.Code
	}
	return http.StatusInternalServerError
}
