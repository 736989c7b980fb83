package bytecode

import (
	"github.com/risor-io/pathprof/errz"
	"github.com/risor-io/pathprof/op"
)

// ControlMap records, for every structured construct of a function, the
// offsets of the instructions that continue or close it. All slices are
// indexed by program counter and hold -1 where not applicable.
type ControlMap struct {
	ends    []int // block/loop/if/try -> matching end (or delegate)
	elses   []int // if -> else
	catches []int // try -> catch
	openers []int // else/catch/end/delegate -> opening instruction
	depths  []int // number of enclosing labels at each instruction
	loops   []int // offsets of loop instructions, ascending
}

// End returns the offset of the end (or delegate) closing the construct
// opened at pc.
func (m *ControlMap) End(pc int) int { return m.ends[pc] }

// Else returns the offset of the else of the if at pc, or -1.
func (m *ControlMap) Else(pc int) int { return m.elses[pc] }

// Catch returns the offset of the catch of the try at pc, or -1.
func (m *ControlMap) Catch(pc int) int { return m.catches[pc] }

// Opener returns the offset of the construct closed or continued at pc.
// It is -1 for the end that closes the function body.
func (m *ControlMap) Opener(pc int) int { return m.openers[pc] }

// Depth returns the number of labels enclosing the instruction at pc.
func (m *ControlMap) Depth(pc int) int { return m.depths[pc] }

// LoopHeaders returns the offsets of all loop instructions in ascending order.
func (m *ControlMap) LoopHeaders() []int {
	return copyInts(m.loops)
}

// Analyze matches the structured constructs of a function body. It fails on
// the first nesting error, since offsets after it are meaningless.
func Analyze(fn *Function) (*ControlMap, error) {
	n := len(fn.instructions)
	if n == 0 {
		return nil, fnError(fn, 0, "function body is empty")
	}
	m := &ControlMap{
		ends:    filled(n),
		elses:   filled(n),
		catches: filled(n),
		openers: filled(n),
		depths:  make([]int, n),
	}
	var stack []int
	for pc, ins := range fn.instructions {
		m.depths[pc] = len(stack)
		switch ins.Code {
		case op.Block, op.Loop, op.If, op.Try:
			if ins.Code == op.Loop {
				m.loops = append(m.loops, pc)
			}
			stack = append(stack, pc)
		case op.Else:
			if len(stack) == 0 {
				return nil, fnError(fn, pc, "else outside of if")
			}
			top := stack[len(stack)-1]
			if fn.instructions[top].Code != op.If || m.elses[top] >= 0 {
				return nil, fnError(fn, pc, "else does not match an open if")
			}
			m.elses[top] = pc
			m.openers[pc] = top
			m.depths[pc] = len(stack) - 1
		case op.Catch:
			if len(stack) == 0 {
				return nil, fnError(fn, pc, "catch outside of try")
			}
			top := stack[len(stack)-1]
			if fn.instructions[top].Code != op.Try || m.catches[top] >= 0 {
				return nil, fnError(fn, pc, "catch does not match an open try")
			}
			m.catches[top] = pc
			m.openers[pc] = top
			m.depths[pc] = len(stack) - 1
		case op.Delegate:
			if len(stack) == 0 {
				return nil, fnError(fn, pc, "delegate outside of try")
			}
			top := stack[len(stack)-1]
			if fn.instructions[top].Code != op.Try || m.catches[top] >= 0 {
				return nil, fnError(fn, pc, "delegate must close a try without catch")
			}
			stack = stack[:len(stack)-1]
			m.ends[top] = pc
			m.openers[pc] = top
			m.depths[pc] = len(stack)
		case op.End:
			if len(stack) == 0 {
				if pc != n-1 {
					return nil, fnError(fn, pc, "end closes the function before its last instruction")
				}
				continue
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			m.ends[top] = pc
			m.openers[pc] = top
			m.depths[pc] = len(stack)
		}
	}
	if len(stack) > 0 {
		return nil, fnError(fn, stack[len(stack)-1], "%s is never closed", fn.instructions[stack[len(stack)-1]].Code)
	}
	if last := fn.instructions[n-1]; last.Code != op.End || m.openers[n-1] >= 0 {
		return nil, fnError(fn, n-1, "function body must finish with end")
	}
	return m, nil
}

func filled(n int) []int {
	s := make([]int, n)
	for i := range s {
		s[i] = -1
	}
	return s
}

func fnError(fn *Function, pc int, format string, args ...any) *errz.StructuredError {
	return errz.NewStructuredErrorf(errz.ErrValidation, errz.Location{
		Function: fn.Name(),
		PC:       pc,
		Line:     fn.LineAt(pc),
		Source:   fn.SourceAt(pc),
	}, nil, format, args...)
}
