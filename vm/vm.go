// Package vm provides a VirtualMachine that executes bytecode programs and
// lets monitors observe execution through probes.
package vm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/rs/zerolog"

	"github.com/risor-io/pathprof/bytecode"
	"github.com/risor-io/pathprof/errz"
	"github.com/risor-io/pathprof/op"
)

const (
	MaxFrameDepth = 1024
	MaxStackDepth = 64 * 1024

	// DefaultContextCheckInterval is the number of instructions between
	// checks of ctx.Done(). Set to 0 to disable.
	DefaultContextCheckInterval = 1000
)

var (
	ErrStackOverflow     = errors.New("call stack exhausted")
	ErrStackUnderflow    = errors.New("operand stack underflow")
	ErrUnreachable       = errors.New("unreachable executed")
	ErrDivideByZero      = errors.New("integer divide by zero")
	ErrIntegerOverflow   = errors.New("integer overflow")
	ErrUncaughtException = errors.New("uncaught exception")
	ErrHalted            = errors.New("execution halted by probe")
)

type pendingProbe struct {
	fn    uint32
	pc    int
	probe Probe
}

type VirtualMachine struct {
	program  *bytecode.Program
	controls []*bytecode.ControlMap
	stack    []int64
	frames   []frame
	globals  []int64
	steps    uint64
	out      io.Writer
	logger   zerolog.Logger
	running  bool
	runMutex sync.Mutex

	maxFrameDepth        int
	contextCheckInterval int

	// global probes fire before every instruction; local probes are indexed
	// by function and then by offset, allocated on first use.
	global   []Probe
	local    [][][]Probe
	pending  []pendingProbe
	probeCtx ProbeContext
}

// New creates a Virtual Machine for the given program. Every function body
// is analyzed up front; programs that fail analysis are rejected.
func New(program *bytecode.Program, options ...Option) (*VirtualMachine, error) {
	vm := &VirtualMachine{
		program:              program,
		controls:             make([]*bytecode.ControlMap, program.FunctionCount()),
		local:                make([][][]Probe, program.FunctionCount()),
		out:                  io.Discard,
		logger:               zerolog.Nop(),
		maxFrameDepth:        MaxFrameDepth,
		contextCheckInterval: DefaultContextCheckInterval,
	}
	for i := 0; i < program.FunctionCount(); i++ {
		control, err := bytecode.Analyze(program.FunctionAt(i))
		if err != nil {
			return nil, err
		}
		vm.controls[i] = control
	}
	for _, opt := range options {
		opt(vm)
	}
	for _, p := range vm.pending {
		if err := vm.InsertProbe(p.fn, p.pc, p.probe); err != nil {
			return nil, err
		}
	}
	vm.pending = nil
	vm.probeCtx.vm = vm
	return vm, nil
}

// Program returns the program executed by the VM.
func (vm *VirtualMachine) Program() *bytecode.Program { return vm.program }

// Control returns the control map of the function with the given index.
func (vm *VirtualMachine) Control(fn uint32) *bytecode.ControlMap {
	return vm.controls[fn]
}

// InsertProbe attaches a probe that fires before the instruction at pc of
// function fn executes. Several probes may share a location; they fire in
// insertion order.
func (vm *VirtualMachine) InsertProbe(fn uint32, pc int, probe Probe) error {
	vm.runMutex.Lock()
	defer vm.runMutex.Unlock()
	if vm.running {
		return fmt.Errorf("vm is already running")
	}
	if int(fn) >= vm.program.FunctionCount() {
		return fmt.Errorf("probe target function %d does not exist", fn)
	}
	f := vm.program.FunctionAt(int(fn))
	if pc < 0 || pc >= f.InstructionCount() {
		return fmt.Errorf("probe offset %d out of range for %s", pc, f.Name())
	}
	if vm.local[fn] == nil {
		vm.local[fn] = make([][]Probe, f.InstructionCount())
	}
	vm.local[fn][pc] = append(vm.local[fn][pc], probe)
	return nil
}

// InsertGlobalProbe attaches a probe that fires before every instruction.
func (vm *VirtualMachine) InsertGlobalProbe(probe Probe) {
	vm.runMutex.Lock()
	defer vm.runMutex.Unlock()
	vm.global = append(vm.global, probe)
}

// Steps returns the number of instructions executed by the last run.
func (vm *VirtualMachine) Steps() uint64 { return vm.steps }

// Global returns the value of global slot i.
func (vm *VirtualMachine) Global(i int) int64 { return vm.globals[i] }

func (vm *VirtualMachine) start() error {
	vm.runMutex.Lock()
	defer vm.runMutex.Unlock()
	if vm.running {
		return fmt.Errorf("vm is already running")
	}
	vm.running = true
	return nil
}

func (vm *VirtualMachine) stop() {
	vm.runMutex.Lock()
	defer vm.runMutex.Unlock()
	vm.running = false
}

// Run executes the program's entry function with the given arguments and
// returns its result (zero for functions without a result).
func (vm *VirtualMachine) Run(ctx context.Context, args ...int64) (result int64, err error) {
	// Set up some guarantees:
	// 1. It is an error to call Run on a VM that is already running
	// 2. The running flag will always be set to false when Run returns
	// 3. Any panics, including those raised by probes, are translated to
	//    errors and the VM is stopped
	if err := vm.start(); err != nil {
		return 0, err
	}
	defer func() {
		if r := recover(); r != nil {
			if rerr, ok := r.(error); ok {
				err = fmt.Errorf("panic: %w", rerr)
			} else {
				err = fmt.Errorf("panic: %v", r)
			}
		}
		vm.stop()
	}()

	vm.reset()
	entry := vm.program.FunctionAt(int(vm.program.Entry()))
	if len(args) != entry.ParamCount() {
		return 0, fmt.Errorf("entry function %s takes %d argument(s) (%d given)",
			entry.Name(), entry.ParamCount(), len(args))
	}
	vm.stack = append(vm.stack, args...)
	if err := vm.pushFrame(entry); err != nil {
		return 0, err
	}

	vm.logger.Debug().Str("entry", entry.Name()).Int("args", len(args)).Msg("run started")
	result, err = vm.eval(ctx)
	vm.logger.Debug().Uint64("steps", vm.steps).Err(err).Msg("run finished")
	return result, err
}

func (vm *VirtualMachine) reset() {
	vm.stack = vm.stack[:0]
	vm.frames = vm.frames[:0]
	vm.globals = make([]int64, vm.program.GlobalCount())
	vm.steps = 0
}

// Evaluate until the entry frame returns. The caller must have pushed the
// entry frame.
func (vm *VirtualMachine) eval(ctx context.Context) (int64, error) {
	var instructionCount int
	checkInterval := vm.contextCheckInterval
	doneChan := ctx.Done()

	for {
		if checkInterval > 0 && doneChan != nil {
			instructionCount++
			if instructionCount >= checkInterval {
				instructionCount = 0
				select {
				case <-doneChan:
					return 0, ctx.Err()
				default:
				}
			}
		}

		f := &vm.frames[len(vm.frames)-1]
		pc := f.pc
		ins := f.fn.InstructionAt(pc)
		vm.steps++

		if len(vm.global) > 0 || vm.local[f.fn.Index()] != nil {
			if err := vm.fireProbes(f); err != nil {
				return 0, err
			}
		}
		f.started = true

		switch ins.Code {
		case op.Nop:
			f.pc++
		case op.Unreachable:
			return 0, vm.trap(f, ErrUnreachable, "unreachable executed")
		case op.Block, op.Loop, op.Try:
			f.pushLabel(ins.Code, pc, len(vm.stack))
			f.pc++
		case op.If:
			cond, err := vm.pop(f)
			if err != nil {
				return 0, err
			}
			f.pushLabel(op.If, pc, len(vm.stack))
			if cond != 0 {
				f.pc++
			} else if elsePC := f.control.Else(pc); elsePC >= 0 {
				f.pc = elsePC + 1
			} else {
				f.popLabel()
				f.pc = f.control.End(pc) + 1
			}
		case op.Else, op.Catch:
			// Reached by falling out of the then-arm or the try body.
			f.popLabel()
			f.pc = f.control.End(f.control.Opener(pc)) + 1
		case op.Delegate:
			f.popLabel()
			f.pc++
		case op.End:
			if len(f.labels) == 0 {
				result, done, err := vm.doReturn(f)
				if err != nil || done {
					return result, err
				}
				continue
			}
			f.popLabel()
			f.pc++
		case op.Br:
			vm.branch(f, int(ins.Args[0]))
		case op.BrIf:
			cond, err := vm.pop(f)
			if err != nil {
				return 0, err
			}
			if cond != 0 {
				vm.branch(f, int(ins.Args[0]))
			} else {
				f.pc++
			}
		case op.BrTable:
			idx, err := vm.pop(f)
			if err != nil {
				return 0, err
			}
			targets := ins.Args
			depth := targets[len(targets)-1]
			if idx >= 0 && idx < int64(len(targets)-1) {
				depth = targets[idx]
			}
			vm.branch(f, int(depth))
		case op.Return:
			result, done, err := vm.doReturn(f)
			if err != nil || done {
				return result, err
			}
		case op.Call:
			callee := vm.program.FunctionAt(int(ins.Args[0]))
			if err := vm.pushFrame(callee); err != nil {
				return 0, err
			}
		case op.Throw:
			value, err := vm.pop(f)
			if err != nil {
				return 0, err
			}
			if err := vm.raise(f, value); err != nil {
				return 0, err
			}
		case op.Rethrow:
			if err := vm.rethrow(f); err != nil {
				return 0, err
			}
		case op.Drop:
			if _, err := vm.pop(f); err != nil {
				return 0, err
			}
			f.pc++
		case op.Select:
			cond, err := vm.pop(f)
			if err != nil {
				return 0, err
			}
			b, err := vm.pop(f)
			if err != nil {
				return 0, err
			}
			a, err := vm.pop(f)
			if err != nil {
				return 0, err
			}
			if cond != 0 {
				vm.stack = append(vm.stack, a)
			} else {
				vm.stack = append(vm.stack, b)
			}
			f.pc++
		case op.LocalGet:
			if err := vm.push(f, f.locals[ins.Args[0]]); err != nil {
				return 0, err
			}
			f.pc++
		case op.LocalSet:
			value, err := vm.pop(f)
			if err != nil {
				return 0, err
			}
			f.locals[ins.Args[0]] = value
			f.pc++
		case op.LocalTee:
			value, err := vm.pop(f)
			if err != nil {
				return 0, err
			}
			f.locals[ins.Args[0]] = value
			vm.stack = append(vm.stack, value)
			f.pc++
		case op.GlobalGet:
			if err := vm.push(f, vm.globals[ins.Args[0]]); err != nil {
				return 0, err
			}
			f.pc++
		case op.GlobalSet:
			value, err := vm.pop(f)
			if err != nil {
				return 0, err
			}
			vm.globals[ins.Args[0]] = value
			f.pc++
		case op.Const:
			if err := vm.push(f, ins.Args[0]); err != nil {
				return 0, err
			}
			f.pc++
		case op.Eqz:
			value, err := vm.pop(f)
			if err != nil {
				return 0, err
			}
			vm.stack = append(vm.stack, boolValue(value == 0))
			f.pc++
		case op.Add, op.Sub, op.Mul, op.DivS, op.RemS,
			op.Eq, op.Ne, op.LtS, op.GtS, op.LeS, op.GeS:
			if err := vm.binaryOp(f, ins.Code); err != nil {
				return 0, err
			}
			f.pc++
		case op.Print:
			value, err := vm.pop(f)
			if err != nil {
				return 0, err
			}
			fmt.Fprintln(vm.out, value)
			f.pc++
		default:
			return 0, vm.trap(f, nil, "unknown opcode %d", ins.Code)
		}
	}
}

func (vm *VirtualMachine) fireProbes(f *frame) error {
	ctx := &vm.probeCtx
	ctx.frame = f
	for _, probe := range vm.global {
		if probe.Fire(ctx) == Halt {
			return vm.trap(f, ErrHalted, "execution halted by probe")
		}
	}
	if probes := vm.local[f.fn.Index()]; probes != nil {
		for _, probe := range probes[f.pc] {
			if probe.Fire(ctx) == Halt {
				return vm.trap(f, ErrHalted, "execution halted by probe")
			}
		}
	}
	return nil
}

func (vm *VirtualMachine) pushFrame(fn *bytecode.Function) error {
	if len(vm.frames) >= vm.maxFrameDepth {
		var caller *frame
		if len(vm.frames) > 0 {
			caller = &vm.frames[len(vm.frames)-1]
		}
		return vm.trap(caller, ErrStackOverflow, "call stack exhausted calling %s", fn.Name())
	}
	base := 0
	if len(vm.frames) > 0 {
		base = vm.frames[len(vm.frames)-1].base
	}
	n := fn.ParamCount()
	if len(vm.stack)-base < n {
		var caller *frame
		if len(vm.frames) > 0 {
			caller = &vm.frames[len(vm.frames)-1]
		}
		return vm.trap(caller, ErrStackUnderflow, "%s expects %d argument(s)", fn.Name(), n)
	}
	locals := make([]int64, n+fn.LocalCount())
	copy(locals, vm.stack[len(vm.stack)-n:])
	vm.stack = vm.stack[:len(vm.stack)-n]
	vm.frames = append(vm.frames, frame{
		fn:      fn,
		control: vm.controls[fn.Index()],
		base:    len(vm.stack),
		locals:  locals,
	})
	return nil
}

// doReturn pops the active frame. It reports done when the entry frame
// returned, in which case result is the value returned by the program.
func (vm *VirtualMachine) doReturn(f *frame) (result int64, done bool, err error) {
	hasResult := f.fn.ResultCount() > 0
	if hasResult {
		if result, err = vm.pop(f); err != nil {
			return 0, true, err
		}
	}
	vm.stack = vm.stack[:f.base]
	vm.frames = vm.frames[:len(vm.frames)-1]
	if len(vm.frames) == 0 {
		return result, true, nil
	}
	if hasResult {
		vm.stack = append(vm.stack, result)
	}
	vm.frames[len(vm.frames)-1].pc++
	return 0, false, nil
}

// branch transfers control to the label at the given depth. Branches to a
// loop land on the loop instruction itself; branches to any other construct
// continue after its end. Depth equal to the number of open labels targets
// the function body, continuing at its final end.
func (vm *VirtualMachine) branch(f *frame, depth int) {
	if depth >= len(f.labels) {
		f.labels = f.labels[:0]
		vm.unwind(f.base, f.fn.ResultCount())
		f.pc = f.fn.InstructionCount() - 1
		return
	}
	target := f.labels[len(f.labels)-1-depth]
	f.labels = f.labels[:len(f.labels)-1-depth]
	vm.unwind(target.height, 0)
	if target.kind == op.Loop {
		f.pc = target.start
	} else {
		f.pc = f.control.End(target.start) + 1
	}
}

// unwind truncates the operand stack to height, preserving the top keep
// values.
func (vm *VirtualMachine) unwind(height, keep int) {
	if len(vm.stack)-keep < height {
		return
	}
	kept := vm.stack[len(vm.stack)-keep:]
	vm.stack = append(vm.stack[:height], kept...)
}

// raise searches the open labels of the current function for a handler,
// innermost first. A try closed by delegate forwards the search to the label
// named by the delegate.
func (vm *VirtualMachine) raise(f *frame, value int64) error {
	for len(f.labels) > 0 {
		l := f.popLabel()
		if l.kind != op.Try || l.inCatch {
			continue
		}
		end := f.control.End(l.start)
		if closing := f.fn.InstructionAt(end); closing.Code == op.Delegate {
			depth := int(closing.Args[0])
			if depth >= len(f.labels) {
				break
			}
			f.labels = f.labels[:len(f.labels)-depth]
			continue
		}
		if catch := f.control.Catch(l.start); catch >= 0 {
			vm.unwind(l.height, 0)
			l.inCatch = true
			l.exception = value
			f.labels = append(f.labels, l)
			vm.stack = append(vm.stack, value)
			f.pc = catch + 1
			return nil
		}
	}
	return vm.trap(f, ErrUncaughtException, "uncaught exception %d", value)
}

func (vm *VirtualMachine) rethrow(f *frame) error {
	for i := len(f.labels) - 1; i >= 0; i-- {
		if f.labels[i].inCatch {
			value := f.labels[i].exception
			f.labels = f.labels[:i]
			return vm.raise(f, value)
		}
	}
	return vm.trap(f, ErrUncaughtException, "rethrow outside of catch")
}

func (vm *VirtualMachine) binaryOp(f *frame, code op.Code) error {
	b, err := vm.pop(f)
	if err != nil {
		return err
	}
	a, err := vm.pop(f)
	if err != nil {
		return err
	}
	var result int64
	switch code {
	case op.Add:
		result = a + b
	case op.Sub:
		result = a - b
	case op.Mul:
		result = a * b
	case op.DivS, op.RemS:
		if b == 0 {
			return vm.trap(f, ErrDivideByZero, "integer divide by zero")
		}
		if code == op.DivS {
			if a == math.MinInt64 && b == -1 {
				return vm.trap(f, ErrIntegerOverflow, "integer overflow")
			}
			result = a / b
		} else {
			result = a % b
		}
	case op.Eq:
		result = boolValue(a == b)
	case op.Ne:
		result = boolValue(a != b)
	case op.LtS:
		result = boolValue(a < b)
	case op.GtS:
		result = boolValue(a > b)
	case op.LeS:
		result = boolValue(a <= b)
	case op.GeS:
		result = boolValue(a >= b)
	}
	vm.stack = append(vm.stack, result)
	return nil
}

func (vm *VirtualMachine) push(f *frame, value int64) error {
	if len(vm.stack) >= MaxStackDepth {
		return vm.trap(f, ErrStackOverflow, "operand stack exhausted")
	}
	vm.stack = append(vm.stack, value)
	return nil
}

func (vm *VirtualMachine) pop(f *frame) (int64, error) {
	if len(vm.stack) <= f.base {
		return 0, vm.trap(f, ErrStackUnderflow, "%s needs an operand", f.fn.InstructionAt(f.pc).Code)
	}
	value := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:len(vm.stack)-1]
	return value, nil
}

func boolValue(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func (vm *VirtualMachine) captureStack() []errz.StackFrame {
	frames := make([]errz.StackFrame, len(vm.frames))
	for i := range vm.frames {
		frames[i] = errz.StackFrame{Function: vm.frames[i].fn.Name(), PC: vm.frames[i].pc}
	}
	return frames
}

func (vm *VirtualMachine) trap(f *frame, cause error, format string, args ...any) error {
	var loc errz.Location
	if f != nil {
		loc = errz.Location{
			Function: f.fn.Name(),
			PC:       f.pc,
			Line:     f.fn.LineAt(f.pc),
			Source:   f.fn.SourceAt(f.pc),
		}
	}
	err := errz.NewStructuredErrorf(errz.ErrRuntime, loc, vm.captureStack(), format, args...)
	if cause != nil {
		err = err.WithCause(cause)
	}
	return err
}
