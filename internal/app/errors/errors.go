package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind classifies an error for callers across the API boundary
type Kind string

const (
	KindUnauthenticated Kind = "unauthenticated"
	KindInvalidArgument Kind = "invalid_argument"
	KindNotFound        Kind = "not_found"
	KindUnavailable     Kind = "unavailable"
	KindInternal        Kind = "internal"
)

// Common error values
var (
	ErrUnauthenticated = New(KindUnauthenticated, "the function must be called while authenticated")
	ErrJobNotFound     = New(KindNotFound, "job not found")
	ErrSessionNotFound = New(KindNotFound, "chat session not found")
	ErrJobTerminal     = New(KindInvalidArgument, "job already reached a terminal state")
	ErrUnexpectedState = New(KindInvalidArgument, "job is not in the expected state")
)

// Error represents a standardized, kinded error
type Error struct {
	kind    Kind
	message string
	fields  map[string]string
	cause   error
}

// New creates a new error of the given kind
func New(kind Kind, message string) *Error {
	return &Error{kind: kind, message: message}
}

// Newf creates a new formatted error of the given kind
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{kind: kind, message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an error with a kind and additional context
func Wrap(err error, kind Kind, message string) error {
	if err == nil {
		return nil
	}
	return &Error{kind: kind, message: message, cause: err}
}

// Wrapf wraps an error with a kind and formatted context
func Wrapf(err error, kind Kind, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return &Error{kind: kind, message: fmt.Sprintf(format, args...), cause: err}
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches errors of the same kind and message
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.kind == t.kind && e.message == t.message
}

// Kind returns the error classification
func (e *Error) Kind() Kind {
	return e.kind
}

// Message returns the message without the cause chain
func (e *Error) Message() string {
	return e.message
}

// Fields returns per-field validation details, if any
func (e *Error) Fields() map[string]string {
	return e.fields
}

// KindOf returns the kind of the outermost kinded error in err's chain.
// Errors that carry no kind are internal; a nil error has no kind.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e.kind
	}
	return KindInternal
}

// Is reports whether err has the given kind
func Is(err error, kind Kind) bool {
	return kind != "" && KindOf(err) == kind
}

// Unauthenticated returns an error for calls without a caller identity
func Unauthenticated(message string) error {
	return New(KindUnauthenticated, message)
}

// InvalidArgument returns an error for missing, malformed or over-limit input
func InvalidArgument(message string, fields map[string]string) error {
	return &Error{kind: KindInvalidArgument, message: message, fields: fields}
}

// RequiredFields returns an InvalidArgument error naming the missing fields
func RequiredFields(message string, names ...string) error {
	fields := make(map[string]string, len(names))
	for _, n := range names {
		fields[n] = "is required"
	}
	return InvalidArgument(message, fields)
}

// TooLong returns an error for values that are too long
func TooLong(field string, maxLength int) error {
	return InvalidArgument(
		fmt.Sprintf("%s is too long. Max %d characters.", field, maxLength),
		map[string]string{field: fmt.Sprintf("must be at most %d characters", maxLength)},
	)
}

// NotFound returns an error for items that were not found
func NotFound(itemType string, identifier string) error {
	return Newf(KindNotFound, "%s not found: %s", itemType, identifier)
}

// Unavailable returns an error for a capability whose client was never initialized
func Unavailable(capability string) error {
	return Newf(KindUnavailable, "%s client not available", capability)
}

// Internal wraps any other failure
func Internal(err error, message string) error {
	if err == nil {
		return New(KindInternal, message)
	}
	return Wrap(err, KindInternal, message)
}
