// Package apperror defines the domain error taxonomy shared by every layer.
//
// Errors are plain values: callers branch with errors.Is against the sentinels
// below instead of parsing messages. The HTTP layer is the only place these are
// translated to status codes.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation error")
	// ErrIntegrity marks stored data that breaks a structural invariant,
	// such as a reply chain deeper than the traversal bound.
	ErrIntegrity = errors.New("data integrity error")
)

type AppError struct {
	Err     error  // sentinel this error matches with errors.Is
	Message string // human-readable error message
	Field   string // optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound reports an absent resource. id is formatted with %v so both
// numeric paste ids and tag names read naturally.
func NotFound(resource string, id any) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %v", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// DepthExceeded reports a parent chain that did not reach a root within limit steps.
func DepthExceeded(resource string, id any, limit int) *AppError {
	return &AppError{
		Err:     ErrIntegrity,
		Message: fmt.Sprintf("%s %v: parent chain exceeds depth %d", resource, id, limit),
	}
}
