package op

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetInfo(t *testing.T) {
	info := GetInfo(BrTable)
	require.Equal(t, "br_table", info.Name)
	require.Equal(t, Variadic, info.OperandCount)
	require.Equal(t, BrTable, info.Code)
}

func TestGetInfoAllOpcodes(t *testing.T) {
	tests := []struct {
		code     Code
		name     string
		operands int
	}{
		{Nop, "nop", 0},
		{Unreachable, "unreachable", 0},
		{Block, "block", 0},
		{Loop, "loop", 0},
		{If, "if", 0},
		{Else, "else", 0},
		{End, "end", 0},
		{Br, "br", 1},
		{BrIf, "br_if", 1},
		{Return, "return", 0},
		{Call, "call", 1},
		{Try, "try", 0},
		{Catch, "catch", 0},
		{Throw, "throw", 0},
		{Rethrow, "rethrow", 0},
		{Delegate, "delegate", 1},
		{Drop, "drop", 0},
		{Select, "select", 0},
		{LocalGet, "local.get", 1},
		{LocalSet, "local.set", 1},
		{LocalTee, "local.tee", 1},
		{GlobalGet, "global.get", 1},
		{GlobalSet, "global.set", 1},
		{Const, "i64.const", 1},
		{Add, "i64.add", 0},
		{DivS, "i64.div_s", 0},
		{LtS, "i64.lt_s", 0},
		{Print, "print", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := GetInfo(tt.code)
			require.Equal(t, tt.name, info.Name)
			require.Equal(t, tt.operands, info.OperandCount)
		})
	}
}

func TestLookup(t *testing.T) {
	code, ok := Lookup("I64.ADD")
	require.True(t, ok)
	require.Equal(t, Add, code)

	_, ok = Lookup("jump")
	require.False(t, ok)
}

func TestAllOpcodesRoundTripByName(t *testing.T) {
	for _, code := range All() {
		found, ok := Lookup(code.String())
		require.True(t, ok, code.String())
		require.Equal(t, code, found)
	}
}

func TestUnknownOpcode(t *testing.T) {
	require.Equal(t, "invalid", Code(200).String())
	require.Equal(t, "invalid", Code(1000).String())
	require.False(t, Code(1000).IsBlockStart())
	require.True(t, Try.IsBlockStart())
}
