package bytecode

import (
	"strconv"
	"strings"

	"github.com/risor-io/pathprof/op"
)

// Instruction is a single decoded instruction.
type Instruction struct {
	Code op.Code
	Args []int64
}

// NewInstruction creates an instruction, copying the operands.
func NewInstruction(code op.Code, args ...int64) Instruction {
	return Instruction{Code: code, Args: copyArgs(args)}
}

// Arg returns operand i, or zero when the instruction has fewer operands.
func (i Instruction) Arg(n int) int64 {
	if n < 0 || n >= len(i.Args) {
		return 0
	}
	return i.Args[n]
}

// String returns the instruction in assembly form, e.g. "br_if 1".
func (i Instruction) String() string {
	var b strings.Builder
	b.WriteString(i.Code.String())
	for _, arg := range i.Args {
		b.WriteByte(' ')
		b.WriteString(strconv.FormatInt(arg, 10))
	}
	return b.String()
}
