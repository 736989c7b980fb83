// Package op defines the opcodes executed by the pathprof virtual machine.
//
// The instruction set is a small structured stack machine. Control flow is
// expressed with nested block, loop, if and try constructs closed by end, and
// branches name their target by label depth rather than by offset.
package op

import "strings"

// Code is an integer opcode that indicates an operation to execute.
type Code uint16

const (
	Invalid Code = 0

	// Control
	Nop         Code = 1
	Unreachable Code = 2
	Block       Code = 3
	Loop        Code = 4
	If          Code = 5
	Else        Code = 6
	End         Code = 7
	Br          Code = 8
	BrIf        Code = 9
	BrTable     Code = 10
	Return      Code = 11
	Call        Code = 12

	// Exception handling
	Try      Code = 20
	Catch    Code = 21
	Throw    Code = 22
	Rethrow  Code = 23
	Delegate Code = 24 // Closes a try block, forwarding its exceptions outward

	// Parametric
	Drop   Code = 30
	Select Code = 31

	// Variables
	LocalGet  Code = 40
	LocalSet  Code = 41
	LocalTee  Code = 42
	GlobalGet Code = 43
	GlobalSet Code = 44

	// Constants
	Const Code = 50

	// Arithmetic
	Add  Code = 60
	Sub  Code = 61
	Mul  Code = 62
	DivS Code = 63
	RemS Code = 64

	// Comparison
	Eqz Code = 70
	Eq  Code = 71
	Ne  Code = 72
	LtS Code = 73
	GtS Code = 74
	LeS Code = 75
	GeS Code = 76

	// Host
	Print Code = 90
)

// Variadic is the OperandCount of opcodes taking one or more operands.
const Variadic = -1

// Info contains information about an opcode.
type Info struct {
	Code         Code
	Name         string
	OperandCount int
}

var (
	infos   = make([]Info, 256)
	byName  = map[string]Code{}
	ordered []Code
)

func init() {
	type opInfo struct {
		op    Code
		name  string
		count int
	}
	ops := []opInfo{
		{Nop, "nop", 0},
		{Unreachable, "unreachable", 0},
		{Block, "block", 0},
		{Loop, "loop", 0},
		{If, "if", 0},
		{Else, "else", 0},
		{End, "end", 0},
		{Br, "br", 1},
		{BrIf, "br_if", 1},
		{BrTable, "br_table", Variadic},
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
		{Sub, "i64.sub", 0},
		{Mul, "i64.mul", 0},
		{DivS, "i64.div_s", 0},
		{RemS, "i64.rem_s", 0},
		{Eqz, "i64.eqz", 0},
		{Eq, "i64.eq", 0},
		{Ne, "i64.ne", 0},
		{LtS, "i64.lt_s", 0},
		{GtS, "i64.gt_s", 0},
		{LeS, "i64.le_s", 0},
		{GeS, "i64.ge_s", 0},
		{Print, "print", 0},
	}
	for _, o := range ops {
		infos[o.op] = Info{
			Name:         o.name,
			Code:         o.op,
			OperandCount: o.count,
		}
		byName[o.name] = o.op
		ordered = append(ordered, o.op)
	}
}

// GetInfo returns information about the given opcode. Unknown opcodes yield
// an Info with an empty Name.
func GetInfo(op Code) Info {
	if int(op) >= len(infos) {
		return Info{}
	}
	return infos[op]
}

// Lookup resolves an opcode mnemonic such as "br_if" or "i64.add".
func Lookup(name string) (Code, bool) {
	code, ok := byName[strings.ToLower(name)]
	return code, ok
}

// All returns every defined opcode in declaration order.
func All() []Code {
	result := make([]Code, len(ordered))
	copy(result, ordered)
	return result
}

// String returns the mnemonic of the opcode.
func (c Code) String() string {
	if name := GetInfo(c).Name; name != "" {
		return name
	}
	return "invalid"
}

// IsBlockStart reports whether the opcode opens a structured block that is
// closed by a matching end (or delegate for try).
func (c Code) IsBlockStart() bool {
	switch c {
	case Block, Loop, If, Try:
		return true
	}
	return false
}
