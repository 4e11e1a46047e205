package services

import (
	"errors"
	"fmt"

	"github.com/sahilchouksey/student-records/model"
	"github.com/sahilchouksey/student-records/utils/validation"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrDuplicate         = errors.New("duplicate submission")
	ErrNotFound          = errors.New("not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrServer            = errors.New("server error")
)

// ValidationError is returned for a missing required field or a malformed value.
// Field names the first offending field; Fields lists every problem found.
type ValidationError struct {
	Field   string
	Message string
	Fields  []validation.FieldError
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// DuplicateError is returned when an active request already holds the natural key
type DuplicateError struct {
	Key string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("a registration request for AISHE code %s already exists", e.Key)
}

func (e *DuplicateError) Is(target error) bool { return target == ErrDuplicate }

// NotFoundError is returned when no request has the given id
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("institute request %s not found", e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// AuthorizationError is returned for privileged operations without credentials
// (Forbidden false) or with credentials that lack the admin role (Forbidden true).
type AuthorizationError struct {
	Forbidden bool
}

func (e *AuthorizationError) Error() string {
	if e.Forbidden {
		return "admin access required"
	}
	return "authentication required"
}

func (e *AuthorizationError) Is(target error) bool { return target == ErrUnauthorized }

// TransitionError is returned when a review targets a request that already left pending
type TransitionError struct {
	ID   string
	From model.RequestStatus
	To   model.RequestStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("institute request %s is already %s and cannot become %s", e.ID, e.From, e.To)
}

func (e *TransitionError) Is(target error) bool { return target == ErrInvalidTransition }

// ServerError wraps persistence and infrastructure failures, including timeouts
type ServerError struct {
	Op  string
	Err error
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServerError) Unwrap() error { return e.Err }

func (e *ServerError) Is(target error) bool { return target == ErrServer }

// IsClientError reports whether err was caused by the caller's input or credentials
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrDuplicate) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrInvalidTransition)
}
