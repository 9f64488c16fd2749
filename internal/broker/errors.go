package broker

import (
	"errors"
	"fmt"
)

// ErrorKind tags an adapter failure with its outcome class.
type ErrorKind string

// Error kinds.
const (
	KindInvalidArgument   ErrorKind = "invalid_argument"
	KindNotConnected      ErrorKind = "not_connected"
	KindNotFound          ErrorKind = "not_found"
	KindDecode            ErrorKind = "decode"
	KindAlreadySubscribed ErrorKind = "already_subscribed"
	KindCancelled         ErrorKind = "cancelled"
	KindTransport         ErrorKind = "transport"
	KindInternal          ErrorKind = "internal"
)

// Error is the tagged outcome every adapter operation reports on failure.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the cause for errors.Is/As chains.
func (e *Error) Unwrap() error { return e.Cause }

// Errorf builds a tagged error from a format string.
func Errorf(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap tags an underlying error with a kind and message. Returns nil when
// err is nil. An err that is already a *Error keeps its original kind.
func Wrap(kind ErrorKind, err error, message string) error {
	if err == nil {
		return nil
	}
	var be *Error
	if errors.As(err, &be) {
		return err
	}
	return &Error{Kind: kind, Message: message, Cause: err}
}

// KindOf returns the kind of err, or "" when err is not a tagged error.
func KindOf(err error) ErrorKind {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool { return KindOf(err) == kind }
