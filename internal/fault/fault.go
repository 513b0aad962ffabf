// Package fault carries categorized errors from the engine and stores to the
// edge, where each kind maps to a user-facing status.
package fault

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind int

const (
	Unknown Kind = iota
	NotFound
	Forbidden
	Conflict
	InvalidArgument
	IllegalState
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	case Forbidden:
		return "forbidden"
	case Conflict:
		return "conflict"
	case InvalidArgument:
		return "invalid_argument"
	case IllegalState:
		return "illegal_state"
	default:
		return "unknown"
	}
}

// Error is a categorized failure.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	return e.Msg
}

// Errorf builds a categorized error.
func Errorf(kind Kind, format string, a ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, a...)}
}

// KindOf returns the kind of err, or Unknown for uncategorized errors.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return Unknown
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
