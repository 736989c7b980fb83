package bytecode

import (
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/require"

	"github.com/risor-io/pathprof/errz"
	"github.com/risor-io/pathprof/op"
)

func ins(code op.Code, args ...int64) Instruction {
	return NewInstruction(code, args...)
}

func newFn(index uint32, name string, body ...Instruction) *Function {
	return NewFunction(FunctionParams{Index: index, Name: name, Instructions: body})
}

func TestAnalyzeNesting(t *testing.T) {
	fn := newFn(0, "f",
		ins(op.Block),             // 0
		ins(op.Loop),              // 1
		ins(op.Const, 1),          // 2
		ins(op.If),                // 3
		ins(op.Br, 1),             // 4
		ins(op.Else),              // 5
		ins(op.Nop),               // 6
		ins(op.End),               // 7 closes if
		ins(op.End),               // 8 closes loop
		ins(op.End),               // 9 closes block
		ins(op.End),               // 10 function end
	)
	m, err := Analyze(fn)
	require.Nil(t, err)
	require.Equal(t, 9, m.End(0))
	require.Equal(t, 8, m.End(1))
	require.Equal(t, 7, m.End(3))
	require.Equal(t, 5, m.Else(3))
	require.Equal(t, 3, m.Opener(5))
	require.Equal(t, -1, m.Opener(10))
	require.Equal(t, 3, m.Depth(4))
	require.Equal(t, 2, m.Depth(5))
	require.Equal(t, 0, m.Depth(10))
	require.Equal(t, []int{1}, m.LoopHeaders())
}

func TestAnalyzeTryCatchDelegate(t *testing.T) {
	fn := newFn(0, "f",
		ins(op.Try),         // 0
		ins(op.Try),         // 1
		ins(op.Throw),       // 2
		ins(op.Delegate, 0), // 3
		ins(op.Catch),       // 4
		ins(op.Drop),        // 5
		ins(op.End),         // 6
		ins(op.End),         // 7
	)
	m, err := Analyze(fn)
	require.Nil(t, err)
	require.Equal(t, 3, m.End(1))
	require.Equal(t, 4, m.Catch(0))
	require.Equal(t, 6, m.End(0))
	require.Equal(t, -1, m.Catch(1))
}

func TestAnalyzeErrors(t *testing.T) {
	tests := []struct {
		name string
		body []Instruction
		msg  string
	}{
		{"empty", nil, "function body is empty"},
		{"stray else", []Instruction{ins(op.Else), ins(op.End)}, "else outside of if"},
		{"unclosed", []Instruction{ins(op.Block), ins(op.Block), ins(op.End)}, "block is never closed"},
		{"early end", []Instruction{ins(op.End), ins(op.Nop), ins(op.End)}, "end closes the function before its last instruction"},
		{"missing end", []Instruction{ins(op.Nop)}, "function body must finish with end"},
		{"catch in block", []Instruction{ins(op.Block), ins(op.Catch), ins(op.End), ins(op.End)}, "catch does not match an open try"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Analyze(newFn(0, "f", tt.body...))
			require.NotNil(t, err)
			require.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	program := NewProgram(ProgramParams{
		Functions: []*Function{
			newFn(0, "main",
				ins(op.Call, 7),
				ins(op.LocalGet, 0),
				ins(op.Br, 3),
				ins(op.End),
			),
			newFn(1, "other", ins(op.GlobalGet, 0), ins(op.Rethrow), ins(op.End)),
		},
	})
	err := program.Validate()
	require.NotNil(t, err)
	merr, ok := err.(*multierror.Error)
	require.True(t, ok)
	require.Len(t, merr.Errors, 5)
	for _, e := range merr.Errors {
		structured, ok := e.(*errz.StructuredError)
		require.True(t, ok)
		require.Equal(t, errz.ErrValidation, structured.Kind)
	}
	require.Contains(t, err.Error(), "call to unknown function 7")
	require.Contains(t, err.Error(), "rethrow outside of catch")
}

func TestValidateOK(t *testing.T) {
	program := NewProgram(ProgramParams{
		Name:    "ok",
		Globals: 1,
		Functions: []*Function{
			NewFunction(FunctionParams{
				Index:  0,
				Name:   "main",
				Params: 1,
				Instructions: []Instruction{
					ins(op.LocalGet, 0),
					ins(op.GlobalSet, 0),
					ins(op.Block),
					ins(op.BrTable, 0, 1),
					ins(op.End),
					ins(op.End),
				},
			}),
		},
	})
	require.Nil(t, program.Validate())

	fn, ok := program.FunctionByName("main")
	require.True(t, ok)
	require.Equal(t, uint32(0), fn.Index())
	require.True(t, fn.IsFinalEnd(5))
	require.Equal(t, []string{"main"}, program.FunctionNames())
}

func TestValidateOperandCounts(t *testing.T) {
	program := NewProgram(ProgramParams{
		Functions: []*Function{
			newFn(0, "", ins(op.Const), ins(op.BrTable), ins(op.End)),
		},
	})
	err := program.Validate()
	require.NotNil(t, err)
	require.Contains(t, err.Error(), "i64.const takes 1 operand(s) (0 given)")
	require.Contains(t, err.Error(), "br_table requires at least one operand")
	require.Contains(t, err.Error(), "func[0]")
}

func TestStats(t *testing.T) {
	program := NewProgram(ProgramParams{
		Globals: 2,
		Functions: []*Function{
			newFn(0, "main",
				ins(op.Loop),
				ins(op.Const, 0),
				ins(op.If),
				ins(op.Br, 1),
				ins(op.End),
				ins(op.End),
				ins(op.End),
			),
		},
	})
	stats := program.Stats()
	require.Equal(t, 7, stats.InstructionCount)
	require.Equal(t, 1, stats.FunctionCount)
	require.Equal(t, 2, stats.GlobalCount)
	require.Equal(t, 1, stats.LoopCount)
	require.Equal(t, 1, stats.ConditionalCount)
	require.Equal(t, 1, stats.BranchCount)
}

func TestInstructionString(t *testing.T) {
	require.Equal(t, "br_table 0 2 1", ins(op.BrTable, 0, 2, 1).String())
	require.Equal(t, int64(0), ins(op.Nop).Arg(3))
}
