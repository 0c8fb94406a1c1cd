package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so transports can map it without string matching.
type Kind string

const (
	KindValidation          Kind = "VALIDATION"
	KindInsufficientStock   Kind = "INSUFFICIENT_STOCK"
	KindInsufficientBalance Kind = "INSUFFICIENT_BALANCE"
	KindNotFound            Kind = "NOT_FOUND"
	KindAlreadyResolved     Kind = "ALREADY_RESOLVED"
	KindAuthorization       Kind = "AUTHORIZATION"
	KindInternal            Kind = "INTERNAL"
)

// Error is the single error type returned by the ledger services.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return e.Message
}

// Is matches any *Error of the same kind, so callers can write
// errors.Is(err, apperror.ErrNotFound).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrValidation          = &Error{Kind: KindValidation}
	ErrInsufficientStock   = &Error{Kind: KindInsufficientStock}
	ErrInsufficientBalance = &Error{Kind: KindInsufficientBalance}
	ErrNotFound            = &Error{Kind: KindNotFound}
	ErrAlreadyResolved     = &Error{Kind: KindAlreadyResolved}
	ErrAuthorization       = &Error{Kind: KindAuthorization}
)

func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...interface{}) *Error {
	return New(KindValidation, format, args...)
}

func NotFound(format string, args ...interface{}) *Error {
	return New(KindNotFound, format, args...)
}

// KindOf returns the kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// HTTPStatus maps an error to the status code the API answers with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return 400
	case KindAuthorization:
		return 403
	case KindNotFound:
		return 404
	case KindInsufficientStock, KindInsufficientBalance, KindAlreadyResolved:
		return 409
	default:
		return 500
	}
}
