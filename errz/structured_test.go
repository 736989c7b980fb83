package errz

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStructuredErrorMessage(t *testing.T) {
	err := NewStructuredErrorf(ErrSyntax, Location{Function: "main", Line: 3}, nil, "unknown opcode %q", "jmp")
	require.Equal(t, `syntax error: unknown opcode "jmp" (main:3)`, err.Error())

	err = NewStructuredError(ErrRuntime, "integer divide by zero", Location{}, nil)
	require.Equal(t, "runtime error: integer divide by zero", err.Error())

	err = NewStructuredError(ErrRuntime, "trap", Location{Function: "f", PC: 7}, nil)
	require.Equal(t, "runtime error: trap (f+7)", err.Error())
}

func TestStructuredErrorUnwrap(t *testing.T) {
	sentinel := errors.New("boom")
	err := NewStructuredError(ErrRuntime, "trap", Location{}, nil).WithCause(sentinel)
	require.True(t, errors.Is(err, sentinel))

	var structured *StructuredError
	require.True(t, errors.As(error(err), &structured))
	require.Equal(t, ErrRuntime, structured.Kind)
}

func TestFriendlyErrorMessage(t *testing.T) {
	err := NewStructuredError(ErrRuntime, "unreachable executed", Location{
		Function: "inner",
		PC:       4,
		Source:   "unreachable",
	}, []StackFrame{
		{Function: "main", PC: 2},
		{Function: "inner", PC: 4},
	})
	expected := "runtime error: unreachable executed (inner+4)\n" +
		" | unreachable\n" +
		"\n" +
		"Stack trace:\n" +
		"  at inner (pc 4)\n" +
		"  at main (pc 2)\n"
	require.Equal(t, expected, err.FriendlyErrorMessage())
}

func TestErrorKindString(t *testing.T) {
	require.Equal(t, "invariant violation", ErrInvariant.String())
	require.Equal(t, "validation error", ErrValidation.String())
	require.Equal(t, "error", ErrorKind(42).String())
}
