// Package profiler reconstructs the intraprocedural control-flow paths a
// program exercises while it runs.
//
// An Engine is driven by probes attached to a host virtual machine. Each
// live invocation of a function owns a buffer of program counters that
// starts at the function entry and grows with every landing point, the
// first instruction executed after a branch. Buffers are completed when a
// loop header is reached again or when the function returns; completed
// buffers are deduplicated and counted per function.
//
// The engine is single threaded. Use one Engine per monitored run.
package profiler

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/risor-io/pathprof/bytecode"
	"github.com/risor-io/pathprof/errz"
	"github.com/risor-io/pathprof/vm"
)

// PC is an offset in a function's instruction sequence.
type PC uint32

// Host is the instrumentation surface of a virtual machine.
type Host interface {
	InsertProbe(fn uint32, pc int, probe vm.Probe) error
	InsertGlobalProbe(probe vm.Probe)
	Control(fn uint32) *bytecode.ControlMap
}

// Frame is the view of the executing instruction a probe receives.
type Frame interface {
	Func() uint32
	PC() int
	Top() (int64, bool)
	Entry() bool
}

var _ Frame = (*vm.ProbeContext)(nil)

// InvariantError reports an event stream the engine cannot reconcile with
// its state. The engine panics with it; the host converts the panic into a
// run error.
type InvariantError struct {
	Op      string
	Func    uint32
	Message string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("%s: path profiler %s in function %d: %s", errz.ErrInvariant, e.Op, e.Func, e.Message)
}

func violation(opName string, fn uint32, format string, args ...any) {
	panic(&InvariantError{Op: opName, Func: fn, Message: fmt.Sprintf(format, args...)})
}

type function struct {
	name   string
	kinds  []Kind
	loops  map[PC]struct{}
	frames frameStack
	paths  pathSet
}

// Engine is a path profiler.
type Engine struct {
	functions []*function
	calls     callStack
	logger    zerolog.Logger

	// branch is set when the last executed instruction transferred control,
	// so the next instruction is a landing point.
	branch bool

	// elsePending is set when the last if took its then-arm, so reaching the
	// matching else is itself a jump.
	elsePending bool

	// armEntry is set between an if and the first instruction of the arm it
	// selects. That landing keeps elsePending.
	armEntry bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for instrumentation and path events.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New returns an Engine with no recorded paths.
func New(options ...Option) *Engine {
	e := &Engine{logger: zerolog.Nop()}
	for _, opt := range options {
		opt(e)
	}
	return e
}

func (e *Engine) function(fn uint32) *function {
	for int(fn) >= len(e.functions) {
		e.functions = append(e.functions, nil)
	}
	f := e.functions[fn]
	if f == nil {
		f = &function{loops: map[PC]struct{}{}}
		e.functions[fn] = f
	}
	return f
}

// Instrument classifies every instruction of program and attaches the
// matching probes to host, plus one global probe for landing points.
func (e *Engine) Instrument(host Host, program *bytecode.Program) error {
	var probes int
	for i := 0; i < program.FunctionCount(); i++ {
		fn := program.FunctionAt(i)
		index := uint32(i)
		f := e.function(index)
		f.name = fn.Name()
		f.kinds = make([]Kind, fn.InstructionCount())
		if control := host.Control(index); control != nil {
			for _, pc := range control.LoopHeaders() {
				f.loops[PC(pc)] = struct{}{}
			}
		}
		for pc := 0; pc < fn.InstructionCount(); pc++ {
			f.kinds[pc] = Classify(fn, pc)
			for _, kind := range Kinds(fn, pc) {
				if err := host.InsertProbe(index, pc, e.probe(kind)); err != nil {
					return err
				}
				probes++
			}
		}
		e.logger.Debug().
			Str("function", f.name).
			Int("instructions", fn.InstructionCount()).
			Int("loop_headers", len(f.loops)).
			Msg("function instrumented")
	}
	host.InsertGlobalProbe(vm.ProbeFunc(func(ctx *vm.ProbeContext) vm.Signal {
		e.Land(PC(ctx.PC()))
		return vm.Continue
	}))
	e.logger.Debug().Int("functions", program.FunctionCount()).Int("probes", probes).Msg("instrumentation complete")
	return nil
}

func (e *Engine) probe(kind Kind) vm.Probe {
	return vm.ProbeFunc(func(ctx *vm.ProbeContext) vm.Signal {
		e.Handle(kind, ctx)
		return vm.Continue
	})
}

// Handle dispatches the event of the given kind observed at frame.
func (e *Engine) Handle(kind Kind, frame Frame) {
	switch kind {
	case KindEnter:
		// Offset 0 is also reached by a back-edge when it is a loop.
		if frame.Entry() {
			e.Enter(frame.Func())
		}
	case KindLoopHeader:
		e.LoopHeader(frame.Func(), PC(frame.PC()))
	case KindReturn:
		e.Return(frame.Func())
	case KindBranch:
		e.Branch()
	case KindIf:
		top, ok := frame.Top()
		if !ok {
			violation("if", frame.Func(), "no condition on the stack at offset %d", frame.PC())
		}
		e.If(top != 0)
	case KindElse:
		e.Else()
	}
}

// AddLoopHeader registers pc as a loop header of fn. Instrument does this for
// every loop instruction.
func (e *Engine) AddLoopHeader(fn uint32, pc PC) {
	e.function(fn).loops[pc] = struct{}{}
}

// KindAt returns the cached kind of an instrumented instruction.
func (e *Engine) KindAt(fn uint32, pc PC) Kind {
	if int(fn) >= len(e.functions) || e.functions[fn] == nil {
		return KindNone
	}
	kinds := e.functions[fn].kinds
	if int(pc) >= len(kinds) {
		return KindNone
	}
	return kinds[pc]
}

// Depth returns the number of live invocations.
func (e *Engine) Depth() int {
	return len(e.calls)
}

// Enter starts a path for a new invocation of fn.
func (e *Engine) Enter(fn uint32) {
	e.function(fn).frames.push(0)
	e.calls.push(fn)
	e.branch = false
}

// LoopHeader completes the current path of fn at the loop header pc and
// starts a new one there.
func (e *Engine) LoopHeader(fn uint32, pc PC) {
	if top, ok := e.calls.top(); ok && top != fn {
		violation("loop header", fn, "function %d is on top of the call stack", top)
	}
	f := e.function(fn)
	if !f.frames.append(pc) {
		violation("loop header", fn, "no live invocation")
	}
	buffer, _ := f.frames.pop()
	e.finalize(fn, f, buffer)
	f.frames.push(pc)
}

// Return completes the current path of fn and ends its invocation.
func (e *Engine) Return(fn uint32) {
	top, ok := e.calls.top()
	if !ok {
		violation("return", fn, "call stack is empty")
	}
	if top != fn {
		violation("return", fn, "function %d is on top of the call stack", top)
	}
	f := e.function(fn)
	buffer, ok := f.frames.pop()
	if !ok {
		violation("return", fn, "no live invocation")
	}
	e.finalize(fn, f, buffer)
	e.calls.pop()
}

// Branch records that the instruction about to execute transfers control.
func (e *Engine) Branch() {
	e.branch = true
}

// If records an if whose condition evaluated to taken.
func (e *Engine) If(taken bool) {
	e.branch = true
	e.elsePending = taken
	e.armEntry = true
}

// Else records that an else is about to execute. It is a jump only when the
// then-arm of its if was taken.
func (e *Engine) Else() {
	if e.elsePending {
		e.branch = true
		e.elsePending = false
	}
}

// Land is called before every instruction. When the previous instruction
// transferred control, pc is appended to the current path, unless it is a
// loop header, which LoopHeader records itself.
func (e *Engine) Land(pc PC) {
	if !e.branch {
		return
	}
	fn, ok := e.calls.top()
	if !ok {
		violation("landing", 0, "call stack is empty at offset %d", pc)
	}
	f := e.function(fn)
	if _, header := f.loops[pc]; !header {
		if !f.frames.append(pc) {
			violation("landing", fn, "no live invocation")
		}
	}
	e.branch = false
	if !e.armEntry {
		e.elsePending = false
	}
	e.armEntry = false
}

func (e *Engine) finalize(fn uint32, f *function, buffer []PC) {
	count := f.paths.record(buffer)
	if e.logger.GetLevel() <= zerolog.TraceLevel {
		e.logger.Trace().
			Uint32("function", fn).
			Interface("path", buffer).
			Uint64("count", count).
			Msg("path completed")
	}
}
