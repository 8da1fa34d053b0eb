package apperrors

import (
	"errors"
	"net/http"
)

// Kinds. Every error returned by the service layer unwraps to exactly one of these.
var (
	ErrAlreadyExists = errors.New("already exists")
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrBadRequest    = errors.New("bad request")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrInternal      = errors.New("internal error")
)

var kinds = []error{
	ErrAlreadyExists,
	ErrNotFound,
	ErrConflict,
	ErrBadRequest,
	ErrUnauthorized,
	ErrForbidden,
	ErrInternal,
}

type domainError struct {
	kind error
	msg  string
}

func (e *domainError) Error() string { return e.msg }

func (e *domainError) Unwrap() error { return e.kind }

// New returns a sentinel error that matches both itself and kind under errors.Is.
func New(kind error, msg string) error {
	return &domainError{kind: kind, msg: msg}
}

// Kind reports the class of err. Unclassified errors are ErrInternal.
func Kind(err error) error {
	if err == nil {
		return nil
	}
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return ErrInternal
}

// Message returns the text safe to show a client: the sentinel's own message
// for classified errors, a generic one otherwise.
func Message(err error) string {
	var de *domainError
	if errors.As(err, &de) {
		return de.msg
	}
	switch Kind(err) {
	case ErrInternal:
		return "internal error"
	default:
		return Kind(err).Error()
	}
}

// Code is the machine-readable name of err's kind used in error bodies.
func Code(err error) string {
	switch Kind(err) {
	case nil:
		return ""
	case ErrAlreadyExists:
		return "ALREADY_EXISTS"
	case ErrNotFound:
		return "NOT_FOUND"
	case ErrConflict:
		return "CONFLICT"
	case ErrBadRequest:
		return "BAD_REQUEST"
	case ErrUnauthorized:
		return "UNAUTHORIZED"
	case ErrForbidden:
		return "FORBIDDEN"
	default:
		return "INTERNAL_ERROR"
	}
}

func HTTPStatus(err error) int {
	switch Kind(err) {
	case nil:
		return http.StatusOK
	case ErrAlreadyExists, ErrConflict:
		return http.StatusConflict
	case ErrNotFound:
		return http.StatusNotFound
	case ErrForbidden:
		return http.StatusForbidden
	case ErrUnauthorized:
		return http.StatusUnauthorized
	case ErrBadRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
