package dbhost

import (
	"errors"
	"fmt"
)

// ErrorKind tags every failure the connection layer can produce. The kind is
// carried across the request boundary alongside the message so callers can
// match on it programmatically instead of parsing display text.
type ErrorKind string

const (
	// KindIO is a host filesystem failure.
	KindIO ErrorKind = "io"
	// KindEngine wraps whatever the embedded engine reported.
	KindEngine ErrorKind = "engine"
	// KindInvalidDBURL covers malformed targets, paths escaping the base
	// directory, invalid encryption configuration, and panics converted at
	// the engine builder boundary.
	KindInvalidDBURL ErrorKind = "invalid_db_url"
	// KindNotLoaded is an operation referencing a target with no open
	// connection.
	KindNotLoaded ErrorKind = "not_loaded"
	// KindUnsupportedDatatype is a bound value or result column that cannot
	// be mapped to an engine type.
	KindUnsupportedDatatype ErrorKind = "unsupported_datatype"
	// KindNotSupported is a capability-gated operation with no meaningful
	// fallback. No current command emits it: capability-absent builds fail
	// at connect time as KindInvalidDBURL, and sync without a replica is a
	// successful no-op. The kind stays in the taxonomy and the HTTP status
	// mapping because callers match on the full set.
	KindNotSupported ErrorKind = "operation_not_supported"
	// KindSerialization is a failure encoding or decoding a boundary message.
	KindSerialization ErrorKind = "serialization"
)

// Error is the single error type surfaced by this package.
type Error struct {
	Kind    ErrorKind
	Message string
	cause   error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindInvalidDBURL:
		return fmt.Sprintf("invalid connection url: %s", e.Message)
	case KindNotLoaded:
		return fmt.Sprintf("database %s not loaded", e.Message)
	case KindUnsupportedDatatype:
		return fmt.Sprintf("unsupported datatype: %s", e.Message)
	default:
		return e.Message
	}
}

func (e *Error) Unwrap() error { return e.cause }

// NewError builds a tagged error with a formatted message.
func NewError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError tags an underlying error, preserving it for errors.Is/As chains.
func WrapError(kind ErrorKind, err error, context string) *Error {
	msg := err.Error()
	if context != "" {
		msg = fmt.Sprintf("%s: %v", context, err)
	}
	return &Error{Kind: kind, Message: msg, cause: err}
}

// KindOf reports the taxonomy kind of err, or KindEngine for errors that did
// not originate in this package.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindEngine
}
