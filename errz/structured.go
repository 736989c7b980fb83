package errz

import (
	"bytes"
	"fmt"
	"strings"
)

// ErrorKind represents the category of an error.
type ErrorKind int

const (
	// ErrSyntax indicates malformed assembly text.
	ErrSyntax ErrorKind = iota
	// ErrValidation indicates a structurally invalid program.
	ErrValidation
	// ErrRuntime indicates a trap raised while executing a program.
	ErrRuntime
	// ErrInvariant indicates a monitor observed an impossible event sequence.
	ErrInvariant
)

// String returns the string representation of the error kind.
func (k ErrorKind) String() string {
	switch k {
	case ErrSyntax:
		return "syntax error"
	case ErrValidation:
		return "validation error"
	case ErrRuntime:
		return "runtime error"
	case ErrInvariant:
		return "invariant violation"
	default:
		return "error"
	}
}

// Location identifies an instruction within a program. Line is the line of
// the instruction in its assembly source, when known.
type Location struct {
	Function string
	PC       int
	Line     int
	Source   string
}

// IsZero reports whether the location carries no information.
func (l Location) IsZero() bool {
	return l.Function == "" && l.PC == 0 && l.Line == 0
}

func (l Location) String() string {
	var s string
	if l.Function != "" {
		s = l.Function
	}
	if l.Line > 0 {
		return fmt.Sprintf("%s:%d", s, l.Line)
	}
	return fmt.Sprintf("%s+%d", s, l.PC)
}

// StackFrame is one entry of a VM call stack captured at the time of an error.
type StackFrame struct {
	Function string
	PC       int
}

// FormatStackTrace renders frames innermost first.
func FormatStackTrace(frames []StackFrame) string {
	var b strings.Builder
	b.WriteString("Stack trace:\n")
	for i := len(frames) - 1; i >= 0; i-- {
		f := frames[i]
		name := f.Function
		if name == "" {
			name = "<anonymous>"
		}
		fmt.Fprintf(&b, "  at %s (pc %d)\n", name, f.PC)
	}
	return b.String()
}

// StructuredError is a rich error type with a program location and an
// optional VM stack trace.
type StructuredError struct {
	Message  string
	Kind     ErrorKind
	Location Location
	Stack    []StackFrame
	Cause    error
}

// Error implements the error interface.
func (e *StructuredError) Error() string {
	if e.Location.IsZero() {
		return fmt.Sprintf("%s: %s", e.Kind.String(), e.Message)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Kind.String(), e.Message, e.Location)
}

// Unwrap returns the underlying cause of the error.
func (e *StructuredError) Unwrap() error {
	return e.Cause
}

// FriendlyErrorMessage returns a human-friendly error message with the
// offending source line and stack trace, when available.
func (e *StructuredError) FriendlyErrorMessage() string {
	var msg bytes.Buffer

	msg.WriteString(e.Error())
	msg.WriteString("\n")

	if e.Location.Source != "" {
		msg.WriteString(" | ")
		msg.WriteString(e.Location.Source)
		msg.WriteString("\n")
	}

	if len(e.Stack) > 0 {
		msg.WriteString("\n")
		msg.WriteString(FormatStackTrace(e.Stack))
	}

	return msg.String()
}

// NewStructuredError creates a new StructuredError with the given parameters.
func NewStructuredError(kind ErrorKind, message string, loc Location, stack []StackFrame) *StructuredError {
	return &StructuredError{
		Message:  message,
		Kind:     kind,
		Location: loc,
		Stack:    stack,
	}
}

// NewStructuredErrorf creates a new StructuredError with a formatted message.
func NewStructuredErrorf(kind ErrorKind, loc Location, stack []StackFrame, format string, args ...any) *StructuredError {
	return &StructuredError{
		Message:  fmt.Sprintf(format, args...),
		Kind:     kind,
		Location: loc,
		Stack:    stack,
	}
}

// WithCause wraps the error with a cause.
func (e *StructuredError) WithCause(cause error) *StructuredError {
	e.Cause = cause
	return e
}
