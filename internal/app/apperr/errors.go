// Package apperr holds the application-layer error shape shared by the use-case packages.
// The HTTP adapter maps Status/Code straight into its error envelope.
package apperr

import (
	"errors"
	"fmt"
)

const (
	CodeValidation       = "VALIDATION_ERROR"
	CodeStoreUnavailable = "STORE_UNAVAILABLE"
)

// ErrStoreUnavailable marks infrastructure failures. It must never be reported as a
// business outcome such as "not found" or "payment overdue".
var ErrStoreUnavailable = errors.New("store unavailable")

// Error is an application-layer error that can be mapped to an HTTP response.
type Error struct {
	Status  int
	Code    string
	Message string
	Details map[string]any

	Err error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if msg == "" {
		msg = e.Code
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// StoreUnavailable wraps a persistence failure. errors.Is(err, ErrStoreUnavailable) holds for the result.
func StoreUnavailable(err error) *Error {
	return &Error{
		Status:  503,
		Code:    CodeStoreUnavailable,
		Message: "storage is temporarily unavailable, try again",
		Err:     fmt.Errorf("%w: %w", ErrStoreUnavailable, err),
	}
}

func IsStoreUnavailable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}

func Validation(field, problem string) *Error {
	return &Error{
		Status:  422,
		Code:    CodeValidation,
		Message: "invalid " + field,
		Details: map[string]any{field: problem},
	}
}

func NotFound(code, message string) *Error {
	return &Error{Status: 404, Code: code, Message: message}
}

func Conflict(code, message string) *Error {
	return &Error{Status: 409, Code: code, Message: message}
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}
