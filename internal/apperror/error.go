// Package apperror defines the structured errors returned across the ledger
// engine. Every storage backend and service method reports failures as an
// *AppError (possibly wrapped), so callers can branch with errors.Is on the
// sentinels below without knowing which backend produced them.
package apperror

import (
	"errors"
	"fmt"
)

const (
	CodeValidation     = "VALIDATION_ERROR"
	CodeNotFound       = "NOT_FOUND"
	CodeConflict       = "CONFLICT"
	CodeInternal       = "INTERNAL_ERROR"
	CodePartialFailure = "PARTIAL_FAILURE"
)

// Sentinels for errors.Is. Matching is by Code, so a detailed error such as
// NewNotFound("item", 7) satisfies errors.Is(err, ErrNotFound).
var (
	ErrValidation     = &AppError{Code: CodeValidation, Message: "validation failed"}
	ErrNotFound       = &AppError{Code: CodeNotFound, Message: "not found"}
	ErrConflict       = &AppError{Code: CodeConflict, Message: "conflict"}
	ErrInternal       = &AppError{Code: CodeInternal, Message: "internal error"}
	ErrPartialFailure = &AppError{Code: CodePartialFailure, Message: "partial failure"}
)

type AppError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Err     error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// Public returns a copy safe to hand to an outer layer. Outside development
// the cause is dropped and internal errors lose their message detail.
func (e *AppError) Public(development bool) *AppError {
	out := &AppError{Code: e.Code, Message: e.Message, Details: e.Details}
	if development {
		if e.Err != nil {
			out.WithDetail("cause", e.Err.Error())
		}
		return out
	}
	if e.Code == CodeInternal {
		out.Message = "internal error"
		out.Details = nil
	}
	return out
}

func NewValidation(message string) *AppError {
	return &AppError{Code: CodeValidation, Message: message}
}

func NewNotFound(entity string, id any) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s %v not found", entity, id),
		Details: map[string]any{"entity": entity, "id": id},
	}
}

func NewConflict(entity, field string, value any) *AppError {
	return &AppError{
		Code:    CodeConflict,
		Message: fmt.Sprintf("%s with %s %v already exists", entity, field, value),
		Details: map[string]any{"entity": entity, "field": field, "value": value},
	}
}

// NewInternal wraps an unexpected backend fault. Already-structured errors are
// returned unchanged so wrapping twice is harmless.
func NewInternal(err error) *AppError {
	if ae, ok := AsAppError(err); ok {
		return ae
	}
	return &AppError{Code: CodeInternal, Message: "storage backend failure", Err: err}
}

func NewPartialFailure(message string, cause error) *AppError {
	return &AppError{Code: CodePartialFailure, Message: message, Err: cause}
}

func AsAppError(err error) (*AppError, bool) {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

func IsNotFound(err error) bool   { return errors.Is(err, ErrNotFound) }
func IsConflict(err error) bool   { return errors.Is(err, ErrConflict) }
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

// CodeOf reports the code of the outermost AppError in err's chain, or
// CodeInternal for plain errors.
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	if ae, ok := AsAppError(err); ok {
		return ae.Code
	}
	return CodeInternal
}
