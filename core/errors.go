package core

import (
	stderrors "errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

var (
	// ErrNotFound is returned when a resource does not exist, or when an
	// ownership-scoped write affected no row.
	ErrNotFound = errors.New("not found")

	// ErrAuthenticationFailed covers bad credentials as well as invalid or expired session tokens.
	ErrAuthenticationFailed = errors.New("authentication failed")
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return "validation failed"
	}
	return err.Err.Error()
}

// ConflictError reports a uniqueness violation, or a delete refused because the row is still referenced.
type ConflictError struct {
	Field string
	Msg   string
}

func NewConflictError(field, msg string) error {
	return &ConflictError{Field: field, Msg: msg}
}

func (err ConflictError) Error() string { return err.Msg }

// ReferentialError reports a write whose foreign key target does not exist.
type ReferentialError struct {
	Field string
}

func NewReferentialError(field string) error {
	return &ReferentialError{Field: field}
}

func (err ReferentialError) Error() string {
	return fmt.Sprintf("%s does not reference an existing record", err.Field)
}

// AuthorizationError is a denial by role or ownership.
// It never leaves the process as such: FailureOf reports it as FailureNotFound.
type AuthorizationError struct {
	Reason string
}

func (err AuthorizationError) Error() string { return "permission denied: " + err.Reason }

// IntakeError is an attachment rejected before anything was stored.
type IntakeError struct {
	Reason string // too_large | bad_type | missing
	Msg    string
}

func (err IntakeError) Error() string { return err.Msg }

// Failure is the status class a transport derives a response from.
type Failure int

const (
	FailureNone Failure = iota
	FailureUnauthorized
	FailureNotFound
	FailureConflict
	FailureValidation
	FailureInternal
)

func (f Failure) String() string {
	switch f {
	case FailureNone:
		return "none"
	case FailureUnauthorized:
		return "unauthorized"
	case FailureNotFound:
		return "not_found"
	case FailureConflict:
		return "conflict"
	case FailureValidation:
		return "validation"
	default:
		return "internal"
	}
}

// FailureOf classifies err. Authorization failures are indistinguishable from missing resources.
func FailureOf(err error) Failure {
	if err == nil {
		return FailureNone
	}
	var (
		valErr    *ValidationError
		conflict  *ConflictError
		refErr    *ReferentialError
		authzErr  *AuthorizationError
		intakeErr *IntakeError
		fldErrs   validator.ValidationErrors
	)
	switch {
	case stderrors.Is(err, ErrAuthenticationFailed):
		return FailureUnauthorized
	case stderrors.Is(err, ErrNotFound), stderrors.As(err, &authzErr):
		return FailureNotFound
	case stderrors.As(err, &conflict):
		return FailureConflict
	case stderrors.As(err, &valErr), stderrors.As(err, &refErr), stderrors.As(err, &intakeErr),
		stderrors.As(err, &fldErrs):
		return FailureValidation
	default:
		return FailureInternal
	}
}
