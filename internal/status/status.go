// Package status defines the error kinds shared by the buffer context and the
// plugin locator/loader. Every failure returned by those packages carries one
// of these kinds so callers can branch on it with the Is helpers.
package status

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind int

const (
	// Unknown is the kind of any error not produced by this package.
	Unknown Kind = iota
	// NotFound signals a lookup against an unregistered key or a missing search root.
	NotFound
	// InvalidArgument signals a malformed requirement or buffer.
	InvalidArgument
	// AllocationError signals that no buffer satisfying a requirement could be produced.
	AllocationError
	// DynamicLoadError signals that a shared library failed to open or close.
	DynamicLoadError
	// TraversalLimit signals a directory cycle or a search deeper than allowed.
	TraversalLimit
	// Closed signals use of a buffer context after teardown.
	Closed
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not found"
	case InvalidArgument:
		return "invalid argument"
	case AllocationError:
		return "allocation error"
	case DynamicLoadError:
		return "dynamic load error"
	case TraversalLimit:
		return "traversal limit"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Error is a classified failure. Op names the operation, Msg adds detail and
// Err is the optional underlying cause.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	s := e.Kind.String()
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error { return e.Err }

// New returns an Error of the given kind.
func New(kind Kind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Wrap returns an Error of the given kind caused by err.
func Wrap(kind Kind, op string, err error, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or Unknown.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return Unknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

func IsNotFound(err error) bool         { return Is(err, NotFound) }
func IsInvalidArgument(err error) bool  { return Is(err, InvalidArgument) }
func IsAllocationError(err error) bool  { return Is(err, AllocationError) }
func IsDynamicLoadError(err error) bool { return Is(err, DynamicLoadError) }
func IsTraversalLimit(err error) bool   { return Is(err, TraversalLimit) }
func IsClosed(err error) bool           { return Is(err, Closed) }
