// Package apperror defines the typed failures the service layer returns and
// the HTTP status each of them maps to.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindValidation     Kind = "validation"
	KindConflict       Kind = "conflict"
	KindNotFound       Kind = "not_found"
	KindAuthentication Kind = "authentication"
	KindAuthorization  Kind = "authorization"
	KindInternal       Kind = "internal"
)

// FieldError is a single field-level validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error carries a status and a caller-safe message. Err holds the cause and
// is never exposed to the caller.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Fields  []FieldError
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Validation(message string, fields ...FieldError) *Error {
	return &Error{Kind: KindValidation, Status: http.StatusBadRequest, Message: message, Fields: fields}
}

// Conflict is reported as 403 to match the public API contract.
func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Status: http.StatusForbidden, Message: message}
}

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Status: http.StatusNotFound, Message: message}
}

func Unauthorized(message string) *Error {
	return &Error{Kind: KindAuthentication, Status: http.StatusUnauthorized, Message: message}
}

func Forbidden(message string) *Error {
	return &Error{Kind: KindAuthorization, Status: http.StatusForbidden, Message: message}
}

func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Status: http.StatusInternalServerError, Message: "Internal Server Error", Err: err}
}

// InternalMessage is Internal with a caller-safe message of its own.
func InternalMessage(message string, err error) *Error {
	return &Error{Kind: KindInternal, Status: http.StatusInternalServerError, Message: message, Err: err}
}

// As extracts an *Error from err. Anything else is treated as internal.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Kind == kind
}
