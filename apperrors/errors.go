// Package apperrors defines the error taxonomy shared by the catalog
// services and their HTTP handlers. Every failure surfaced to a caller is
// an *Error carrying a kind, a message, and optional field-level detail.
package apperrors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Kind classifies an application error.
type Kind string

const (
	// KindValidation marks malformed or missing input.
	KindValidation Kind = "validation_error"
	// KindConflict marks a uniqueness collision (name, sku, slug).
	KindConflict Kind = "constraint_violation"
	// KindNotFound marks a reference to an entity id that does not exist.
	KindNotFound Kind = "not_found"
	// KindTimeout marks a store operation that exceeded its bound.
	KindTimeout Kind = "timeout"
	// KindUpstream marks a failed call to an external collaborator.
	KindUpstream Kind = "upstream_failure"
)

// Error is a structured application error.
type Error struct {
	Kind    Kind              `json:"kind"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
	Err     error             `json:"-"`
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

// Validation builds a validation error with per-field detail.
func Validation(message string, fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: message, Fields: fields}
}

// Conflict builds a uniqueness-collision error. field may be empty when
// the colliding column is unknown.
func Conflict(message, field string) *Error {
	e := &Error{Kind: KindConflict, Message: message}
	if field != "" {
		e.Fields = map[string]string{field: "already exists"}
	}
	return e
}

// NotFound builds a missing-entity error.
func NotFound(entity string) *Error {
	return &Error{Kind: KindNotFound, Message: entity + " not found"}
}

// Timeout wraps a deadline failure on a store operation.
func Timeout(op string, err error) *Error {
	return &Error{Kind: KindTimeout, Message: op + " timed out", Err: err}
}

// Upstream wraps a failure from an external collaborator.
func Upstream(message string, err error) *Error {
	return &Error{Kind: KindUpstream, Message: message, Err: err}
}

// Internal wraps an unexpected failure that has no caller-facing kind.
func Internal(message string, err error) *Error {
	return &Error{Kind: "internal", Message: message, Err: err}
}

// KindOf returns the kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// IsConflict reports whether err is a constraint violation.
func IsConflict(err error) bool { return KindOf(err) == KindConflict }

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool { return KindOf(err) == KindValidation }

// FromValidator converts go-playground/validator output into a validation
// error with a lowercase field → reason map. Non-validator errors are
// passed through as an internal error.
func FromValidator(err error) *Error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return Internal("invalid input", err)
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[strings.ToLower(fe.Field())] = reason(fe)
	}
	return Validation("validation failed", fields)
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "gte":
		return fmt.Sprintf("must be %s or greater", fe.Param())
	default:
		return "is invalid"
	}
}

// WriteJSON writes err as a JSON response with the status matching its kind.
func WriteJSON(w http.ResponseWriter, err error) {
	appErr := &Error{Kind: "internal", Message: "internal server error", Err: err}
	var e *Error
	if errors.As(err, &e) {
		appErr = e
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusFor(appErr.Kind))
	_ = json.NewEncoder(w).Encode(appErr)
}

func statusFor(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
