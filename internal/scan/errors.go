package scan

import (
	"errors"
	"fmt"
)

// Kind classifies a scan failure.
type Kind string

const (
	KindNotFound          Kind = "not_found"
	KindUnsupportedEngine Kind = "unsupported_engine"
	KindInvalidConfig     Kind = "invalid_config"
	KindConnection        Kind = "connection"
	KindIntrospection     Kind = "introspection"
)

// ClientError reports whether the failure is attributed to the caller's
// input rather than the service or its environment.
func (k Kind) ClientError() bool {
	switch k {
	case KindNotFound, KindUnsupportedEngine, KindInvalidConfig, KindConnection:
		return true
	default:
		return false
	}
}

// Error is returned by Service for every expected failure.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of a scan error, or "" for anything else.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

func notFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}
