package shipment

import (
	"errors"
	"fmt"
)

// Error codes returned by the workflow. The HTTP layer maps them to status codes.
const (
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeValidation        = "VALIDATION_ERROR"
	CodeNotFound          = "NOT_FOUND"
	CodeConflict          = "CONFLICT"
	CodeStorage           = "STORAGE_ERROR"

	ReasonQuantityMismatch = "QUANTITY_MISMATCH"
)

// Error is a typed workflow error. Reason refines Code where callers need to
// tell validation failures apart.
type Error struct {
	Code    string `json:"code"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on Code, and on Reason when the target carries one
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Code != e.Code {
		return false
	}
	return t.Reason == "" || t.Reason == e.Reason
}

// Sentinels for errors.Is
var (
	ErrUnauthorized      = &Error{Code: CodeUnauthorized, Message: "unauthorized"}
	ErrInvalidTransition = &Error{Code: CodeInvalidTransition, Message: "invalid transition"}
	ErrValidation        = &Error{Code: CodeValidation, Message: "validation failed"}
	ErrQuantityMismatch  = &Error{Code: CodeValidation, Reason: ReasonQuantityMismatch, Message: "quantity mismatch"}
	ErrNotFound          = &Error{Code: CodeNotFound, Message: "not found"}
	ErrConflict          = &Error{Code: CodeConflict, Message: "conflict"}
	ErrStorage           = &Error{Code: CodeStorage, Message: "storage error"}
)

func Unauthorized(msg string) *Error {
	return &Error{Code: CodeUnauthorized, Message: msg}
}

func InvalidTransition(msg string) *Error {
	return &Error{Code: CodeInvalidTransition, Message: msg}
}

func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

func QuantityMismatch(msg string) *Error {
	return &Error{Code: CodeValidation, Reason: ReasonQuantityMismatch, Message: msg}
}

func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

// Conflict reports a lost compare-and-swap. Callers should re-fetch and retry.
func Conflict(msg string) *Error {
	return &Error{Code: CodeConflict, Message: msg}
}

// Storage wraps a persistence failure, keeping the cause as Detail
func Storage(msg string, err error) *Error {
	e := &Error{Code: CodeStorage, Message: msg, Err: err}
	if err != nil {
		e.Detail = err.Error()
	}
	return e
}

// AsError returns the workflow error carried by err, or a STORAGE_ERROR wrapping
// it when err did not come from the workflow.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var target *Error
	if errors.As(err, &target) {
		return target
	}
	return Storage("unexpected error", err)
}
