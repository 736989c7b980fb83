package bytecode

import "github.com/risor-io/pathprof/op"

// Stats contains statistics about a loaded program.
// This is useful for auditing programs before execution.
type Stats struct {
	// InstructionCount is the total number of instructions in all functions.
	InstructionCount int

	// FunctionCount is the number of functions defined in the program.
	FunctionCount int

	// GlobalCount is the number of global slots.
	GlobalCount int

	// LoopCount is the number of loop instructions (loop headers).
	LoopCount int

	// BranchCount is the number of branch, throw and delegate instructions.
	BranchCount int

	// ConditionalCount is the number of if instructions.
	ConditionalCount int
}

// Stats computes statistics for the program.
func (p *Program) Stats() Stats {
	stats := Stats{
		FunctionCount: len(p.functions),
		GlobalCount:   p.globals,
	}
	for _, fn := range p.functions {
		stats.InstructionCount += len(fn.instructions)
		for _, ins := range fn.instructions {
			switch ins.Code {
			case op.Loop:
				stats.LoopCount++
			case op.If:
				stats.ConditionalCount++
			case op.Br, op.BrIf, op.BrTable, op.Throw, op.Rethrow, op.Delegate:
				stats.BranchCount++
			}
		}
	}
	return stats
}
