package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a domain error so the transport layer can map it to a
// wire status without inspecting codes.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindValidation
	KindConflict
	KindTransaction
	KindExternal
)

// Error is the single error type raised by all services. It replaces the
// per-service exception trees of earlier revisions: one tag, one stable
// machine-readable code, optional field details for client display.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Details map[string]string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// WithDetail attaches a key/value detail and returns the error for chaining.
func (e *Error) WithDetail(key, value string) *Error {
	if e.Details == nil {
		e.Details = map[string]string{}
	}
	e.Details[key] = value
	return e
}

// NotFound reports a missing entity. The resource name feeds the code,
// e.g. NotFound("invoice", 42) -> INVOICE_NOT_FOUND.
func NotFound(resource string, id uint) *Error {
	return &Error{
		Kind:    KindNotFound,
		Code:    strings.ToUpper(resource) + "_NOT_FOUND",
		Message: fmt.Sprintf("%s with id %d not found", resource, id),
	}
}

// Validation reports malformed or out-of-range input.
func Validation(message string, details map[string]string) *Error {
	return &Error{Kind: KindValidation, Code: "VALIDATION_ERROR", Message: message, Details: details}
}

// Conflict reports a state conflict: duplicates, illegal transitions,
// deletes blocked by dependents.
func Conflict(code, message string) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: message}
}

// Transaction wraps an unexpected storage-layer failure so engine-specific
// error types never leak to callers.
func Transaction(op string, cause error) *Error {
	return &Error{
		Kind:    KindTransaction,
		Code:    "TRANSACTION_ERROR",
		Message: op + " failed",
		cause:   cause,
	}
}

// External reports a downstream collaborator failure (email, PDF).
// The core never raises this itself; job handlers do.
func External(service string, cause error) *Error {
	return &Error{
		Kind:    KindExternal,
		Code:    strings.ToUpper(service) + "_ERROR",
		Message: service + " call failed",
		cause:   cause,
	}
}

// KindOf extracts the Kind from any error in the chain, KindUnknown otherwise.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// CodeOf extracts the stable code, empty string for foreign errors.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
