package service

import (
	"errors"
	"fmt"

	"github.com/okian/tally/internal/adapters/repository"
	"github.com/okian/tally/internal/domain/authz"
	"github.com/okian/tally/internal/domain/validate"
)

// Non-standard success status preserved from the upstream API: a replace
// that returns the refreshed representation reports 209 instead of 200.
const StatusContentReturned = 209

// Sentinel kinds for terminal outcomes. NotModified is a short-circuit
// success with an empty body, not a failure; it travels the error path
// only because that is the natural way to abort an operation early.
var (
	ErrNotFound           = errors.New("not found")
	ErrPreconditionFailed = errors.New("precondition failed")
	ErrNotModified        = errors.New("not modified")
)

// StatusError is a terminal failure carrying the numeric status-equivalent
// code and the human-readable wire message. The wrapped kind keeps
// errors.Is working for callers that branch on outcome class.
type StatusError struct {
	Code    int
	Message string
	kind    error
}

func (e *StatusError) Error() string { return e.Message }
func (e *StatusError) Unwrap() error { return e.kind }

func errUnauthenticated() error {
	return &StatusError{
		Code:    401,
		Message: "`Unauthorized`: Invalid credentials.",
		kind:    authz.ErrUnauthenticated,
	}
}

func errForbidden() error {
	return &StatusError{
		Code:    403,
		Message: "`Forbidden`: you don't have permission to access",
		kind:    authz.ErrForbidden,
	}
}

func errNotFound(format string, args ...any) error {
	return &StatusError{
		Code:    404,
		Message: fmt.Sprintf(format, args...),
		kind:    ErrNotFound,
	}
}

func errPreconditionFailed() error {
	return &StatusError{
		Code:    412,
		Message: "PRECONDITION FAILED: one or more conditions given evaluated to false",
		kind:    ErrPreconditionFailed,
	}
}

func errValidation(violations []string) error {
	return &StatusError{
		Code:    422,
		Message: validate.Message(violations),
		kind:    &validate.Error{Violations: violations},
	}
}

// errorsIsNotFound reports whether a store error is a plain lookup miss.
func errorsIsNotFound(err error) bool {
	return errors.Is(err, repository.ErrResultNotFound) ||
		errors.Is(err, repository.ErrUserNotFound)
}

// fromAuthz translates an ownership guard decision into a StatusError.
func fromAuthz(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, authz.ErrUnauthenticated):
		return errUnauthenticated()
	default:
		return errForbidden()
	}
}
