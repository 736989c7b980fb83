// Package dis disassembles bytecode functions and shows how the path
// profiler classifies each instruction.
package dis

import (
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/risor-io/pathprof/bytecode"
	"github.com/risor-io/pathprof/profiler"
)

// Instruction is one disassembled instruction.
type Instruction struct {
	Offset int
	Line   int
	Name   string
	Args   []int64
	Depth  int
	Kinds  []profiler.Kind
}

// Disassemble decodes the instructions of fn.
func Disassemble(fn *bytecode.Function) ([]Instruction, error) {
	control, err := bytecode.Analyze(fn)
	if err != nil {
		return nil, err
	}
	instructions := make([]Instruction, 0, fn.InstructionCount())
	for pc := 0; pc < fn.InstructionCount(); pc++ {
		ins := fn.InstructionAt(pc)
		instructions = append(instructions, Instruction{
			Offset: pc,
			Line:   fn.LineAt(pc),
			Name:   ins.Code.String(),
			Args:   ins.Args,
			Depth:  control.Depth(pc),
			Kinds:  profiler.Kinds(fn, pc),
		})
	}
	return instructions, nil
}

func (i Instruction) operands() string {
	parts := make([]string, len(i.Args))
	for n, arg := range i.Args {
		parts[n] = fmt.Sprint(arg)
	}
	return strings.Join(parts, " ")
}

func (i Instruction) kinds() string {
	parts := make([]string, len(i.Kinds))
	for n, kind := range i.Kinds {
		parts[n] = kind.String()
	}
	return strings.Join(parts, ",")
}

// Print writes the instructions as a table.
func Print(instructions []Instruction, writer io.Writer) {
	table := tablewriter.NewWriter(writer)
	table.SetHeader([]string{"Offset", "Line", "Opcode", "Operands", "Path"})
	table.SetAutoWrapText(false)
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_LEFT,
	})
	for _, ins := range instructions {
		line := ""
		if ins.Line > 0 {
			line = fmt.Sprint(ins.Line)
		}
		table.Append([]string{
			fmt.Sprint(ins.Offset),
			line,
			strings.Repeat("  ", ins.Depth) + ins.Name,
			ins.operands(),
			ins.kinds(),
		})
	}
	table.Render()
}

// PrintProgram disassembles every function of program, or only the one
// named fn when it is not empty.
func PrintProgram(program *bytecode.Program, fn string, writer io.Writer) error {
	found := false
	for i := 0; i < program.FunctionCount(); i++ {
		f := program.FunctionAt(i)
		if fn != "" && f.Name() != fn {
			continue
		}
		found = true
		instructions, err := Disassemble(f)
		if err != nil {
			return err
		}
		fmt.Fprintf(writer, "%s (func %d, params %d, locals %d, results %d)\n",
			f.Name(), f.Index(), f.ParamCount(), f.LocalCount(), f.ResultCount())
		Print(instructions, writer)
		fmt.Fprintln(writer)
	}
	if fn != "" && !found {
		return fmt.Errorf("function not found: %s", fn)
	}
	return nil
}
