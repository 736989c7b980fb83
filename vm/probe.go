package vm

// Signal is returned by a probe to tell the VM how to proceed.
type Signal uint8

const (
	// Continue resumes execution with the probed instruction.
	Continue Signal = iota

	// Halt stops the run immediately; Run returns ErrHalted.
	Halt
)

// Probe is a callback attached to the VM. Local probes fire before the
// instruction at one (function, pc) location executes. Global probes fire
// before every instruction, ahead of any local probe at the same location.
//
// Probes are called synchronously from the dispatch loop. Implementations
// should be fast; they must not retain the ProbeContext after returning.
type Probe interface {
	Fire(ctx *ProbeContext) Signal
}

// ProbeFunc adapts an ordinary function to the Probe interface.
type ProbeFunc func(ctx *ProbeContext) Signal

// Fire calls f(ctx).
func (f ProbeFunc) Fire(ctx *ProbeContext) Signal { return f(ctx) }

// ProbeContext gives a probe read access to the state of the VM at the
// probed instruction. It is reused between firings.
type ProbeContext struct {
	vm    *VirtualMachine
	frame *frame
}

// Func returns the index of the executing function.
func (c *ProbeContext) Func() uint32 { return c.frame.fn.Index() }

// PC returns the offset of the instruction about to execute.
func (c *ProbeContext) PC() int { return c.frame.pc }

// Entry reports whether the instruction about to execute is the first one
// of a newly pushed frame. It is false when a back-edge returns to offset 0.
func (c *ProbeContext) Entry() bool { return !c.frame.started }

// Top returns the operand on top of the current frame's stack. The boolean is
// false when the frame's operand stack is empty.
func (c *ProbeContext) Top() (int64, bool) {
	stack := c.vm.stack
	if len(stack) <= c.frame.base {
		return 0, false
	}
	return stack[len(stack)-1], true
}

// Depth returns the number of active call frames.
func (c *ProbeContext) Depth() int { return len(c.vm.frames) }

// NoOpProbe is a Probe that does nothing.
type NoOpProbe struct{}

func (NoOpProbe) Fire(*ProbeContext) Signal { return Continue }

// Ensure NoOpProbe implements Probe.
var _ Probe = NoOpProbe{}
