package runtime

import (
	"fmt"
	"strings"
)

// Kind categorizes a runtime error
type Kind string

const (
	KindBounds          Kind = "bounds"
	KindOverflow        Kind = "overflow"
	KindIllegalState    Kind = "illegal_state"
	KindIllegalArgument Kind = "illegal_argument"
	KindAllocation      Kind = "allocation"
	KindNoSuchMethod    Kind = "no_such_method"
	KindUnsupported     Kind = "unsupported"
	KindContract        Kind = "contract" // invariant violations; always raised by panic
)

// Error is the structured error type returned by runtime operations.
type Error struct {
	Kind   Kind
	Op     string // operation that failed, e.g. "String.charAt"
	Detail string
	Value  any
	Cause  error
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("rjava: ")
	b.WriteString(string(e.Kind))
	if e.Op != "" {
		b.WriteString(" in ")
		b.WriteString(e.Op)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}
	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error of the same kind
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

// Sentinels for use with errors.Is.
var (
	ErrBounds          = &Error{Kind: KindBounds}
	ErrOverflow        = &Error{Kind: KindOverflow}
	ErrIllegalState    = &Error{Kind: KindIllegalState}
	ErrIllegalArgument = &Error{Kind: KindIllegalArgument}
	ErrAllocation      = &Error{Kind: KindAllocation}
	ErrNoSuchMethod    = &Error{Kind: KindNoSuchMethod}
	ErrUnsupported     = &Error{Kind: KindUnsupported}
	ErrContract        = &Error{Kind: KindContract}
)

func newError(kind Kind, op, format string, args ...any) *Error {
	detail := format
	if len(args) > 0 {
		detail = fmt.Sprintf(format, args...)
	}
	return &Error{Kind: kind, Op: op, Detail: detail}
}

// boundsError creates an index out of range error
func boundsError(op string, index, length int) *Error {
	return &Error{
		Kind:   KindBounds,
		Op:     op,
		Detail: fmt.Sprintf("index %d out of bounds for length %d", index, length),
		Value:  index,
	}
}

// overflowError creates a capacity overflow error
func overflowError(op string, length, limit int) *Error {
	return &Error{
		Kind:   KindOverflow,
		Op:     op,
		Detail: fmt.Sprintf("length %d exceeds maximum %d", length, limit),
		Value:  length,
	}
}

// contractViolation panics with a KindContract error. It is reserved for
// defects in generated code, never for conditions a program can recover from.
func contractViolation(op, format string, args ...any) {
	panic(newError(KindContract, op, format, args...))
}
