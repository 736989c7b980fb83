package vm

import (
	"github.com/risor-io/pathprof/bytecode"
	"github.com/risor-io/pathprof/op"
)

// label is an open structured construct of the active function.
type label struct {
	kind      op.Code // Block, Loop, If or Try
	start     int     // offset of the opening instruction
	height    int     // operand stack height when the construct was entered
	inCatch   bool    // a try whose catch clause is executing
	exception int64   // payload being handled when inCatch is set
}

type frame struct {
	fn      *bytecode.Function
	control *bytecode.ControlMap
	pc      int
	base    int // operand stack height below which this frame may not pop
	locals  []int64
	labels  []label
	started bool // set once the first instruction has been dispatched
}

func (f *frame) pushLabel(kind op.Code, start, height int) {
	f.labels = append(f.labels, label{kind: kind, start: start, height: height})
}

func (f *frame) popLabel() label {
	l := f.labels[len(f.labels)-1]
	f.labels = f.labels[:len(f.labels)-1]
	return l
}
