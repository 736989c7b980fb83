package vm

import (
	"io"

	"github.com/rs/zerolog"
)

// Option is a configuration function for a Virtual Machine.
type Option func(*VirtualMachine)

// WithContextCheckInterval sets how often the VM checks ctx.Done() during
// execution. The interval is specified in number of instructions. A value of 0
// disables checking. The default is DefaultContextCheckInterval (1000).
//
// Lower values provide more responsive cancellation but may slightly impact
// performance due to more frequent checks.
func WithContextCheckInterval(interval int) Option {
	return func(vm *VirtualMachine) {
		vm.contextCheckInterval = interval
	}
}

// WithMaxFrameDepth limits the call stack depth. Exceeding it traps with
// ErrStackOverflow. Values <= 0 are ignored.
func WithMaxFrameDepth(depth int) Option {
	return func(vm *VirtualMachine) {
		if depth > 0 {
			vm.maxFrameDepth = depth
		}
	}
}

// WithOutput sets the writer used by the print instruction. The default
// discards output.
func WithOutput(w io.Writer) Option {
	return func(vm *VirtualMachine) {
		vm.out = w
	}
}

// WithLogger sets the logger used for run lifecycle messages.
func WithLogger(logger zerolog.Logger) Option {
	return func(vm *VirtualMachine) {
		vm.logger = logger
	}
}

// WithProbe attaches a local probe at the given function and offset when the
// VM is created. Invalid locations make New fail.
func WithProbe(fn uint32, pc int, probe Probe) Option {
	return func(vm *VirtualMachine) {
		vm.pending = append(vm.pending, pendingProbe{fn: fn, pc: pc, probe: probe})
	}
}

// WithGlobalProbe attaches a probe that fires before every instruction.
func WithGlobalProbe(probe Probe) Option {
	return func(vm *VirtualMachine) {
		vm.global = append(vm.global, probe)
	}
}
