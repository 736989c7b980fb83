package profiler

import (
	"github.com/risor-io/pathprof/bytecode"
	"github.com/risor-io/pathprof/op"
)

// Kind is the role an instruction plays in path reconstruction.
type Kind uint8

const (
	// KindNone instructions have no effect on paths.
	KindNone Kind = iota

	// KindEnter marks offset 0 of a function. It starts a new path.
	KindEnter

	// KindLoopHeader marks a loop instruction. Reaching it completes the
	// current path and starts a new one at the header.
	KindLoopHeader

	// KindReturn marks return and the end that closes the function body.
	KindReturn

	// KindBranch marks unconditional and conditional jumps, branch tables and
	// exception transfers. The instruction executed next is a landing point.
	KindBranch

	// KindIf marks an if. The outcome of its condition decides whether the
	// matching else is a landing point.
	KindIf

	// KindElse marks an else reached from the end of a then-arm.
	KindElse
)

var kindNames = [...]string{
	KindNone:       "",
	KindEnter:      "enter",
	KindLoopHeader: "loop-header",
	KindReturn:     "return",
	KindBranch:     "branch",
	KindIf:         "if",
	KindElse:       "else",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return ""
}

// Classify returns the kind of the instruction at pc. Function entry is a
// property of the offset rather than of the opcode and is reported by Kinds.
func Classify(fn *bytecode.Function, pc int) Kind {
	switch fn.InstructionAt(pc).Code {
	case op.Loop:
		return KindLoopHeader
	case op.Return:
		return KindReturn
	case op.End:
		if fn.IsFinalEnd(pc) {
			return KindReturn
		}
	case op.Br, op.BrIf, op.BrTable, op.Throw, op.Rethrow, op.Delegate:
		return KindBranch
	case op.If:
		return KindIf
	case op.Else:
		return KindElse
	}
	return KindNone
}

// Kinds returns every kind that applies at pc, in the order their handlers
// run. Offset 0 always carries KindEnter first.
func Kinds(fn *bytecode.Function, pc int) []Kind {
	var kinds []Kind
	if pc == 0 {
		kinds = append(kinds, KindEnter)
	}
	if kind := Classify(fn, pc); kind != KindNone {
		kinds = append(kinds, kind)
	}
	return kinds
}
