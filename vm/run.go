package vm

import (
	"context"

	"github.com/risor-io/pathprof/bytecode"
)

// Run executes the program's entry function in a new Virtual Machine and
// returns its result.
func Run(ctx context.Context, program *bytecode.Program, args []int64, options ...Option) (int64, error) {
	machine, err := New(program, options...)
	if err != nil {
		return 0, err
	}
	return machine.Run(ctx, args...)
}
