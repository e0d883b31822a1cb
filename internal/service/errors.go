package service

import (
	"errors"
	"fmt"
)

// Kind classifies service errors so the HTTP layer can map them to status
// codes without string matching.
type Kind string

const (
	KindValidation      Kind = "VALIDATION_ERROR"
	KindInvalidState    Kind = "INVALID_STATE"
	KindNotFound        Kind = "NOT_FOUND"
	KindExpired         Kind = "EXPIRED"
	KindGatewayMismatch Kind = "GATEWAY_MISMATCH"
	KindUnauthorized    Kind = "UNAUTHORIZED"
)

// Error is a classified service error. GATEWAY_MISMATCH is deliberately its
// own kind: a gateway success with a failed internal apply must never be
// collapsed into plain success or plain failure.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func wrapError(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

func ErrValidation(format string, args ...interface{}) *Error {
	return newError(KindValidation, format, args...)
}

func ErrInvalidState(format string, args ...interface{}) *Error {
	return newError(KindInvalidState, format, args...)
}

func ErrNotFound(format string, args ...interface{}) *Error {
	return newError(KindNotFound, format, args...)
}

func ErrExpired(format string, args ...interface{}) *Error {
	return newError(KindExpired, format, args...)
}

func ErrGatewayMismatch(err error, format string, args ...interface{}) *Error {
	return wrapError(KindGatewayMismatch, err, format, args...)
}

func ErrUnauthorized(format string, args ...interface{}) *Error {
	return newError(KindUnauthorized, format, args...)
}

// KindOf returns the classification of err, or an empty Kind for
// unclassified errors.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}
