package bytecode

import "fmt"

// Function is an immutable function body. Its index is the identity used by
// the VM and by monitors to refer to it.
type Function struct {
	index        uint32
	name         string
	params       int
	locals       int
	results      int
	instructions []Instruction
	lines        []int    // assembly line per instruction, 0 if unknown
	source       []string // assembly text per instruction, "" if unknown
}

// FunctionParams contains parameters for creating a new Function.
type FunctionParams struct {
	Index        uint32
	Name         string
	Params       int
	Locals       int
	Results      int
	Instructions []Instruction
	Lines        []int
	Source       []string
}

// NewFunction creates a new immutable Function from the given parameters.
// Input slices are copied to ensure immutability.
func NewFunction(params FunctionParams) *Function {
	return &Function{
		index:        params.Index,
		name:         params.Name,
		params:       params.Params,
		locals:       params.Locals,
		results:      params.Results,
		instructions: copyInstructions(params.Instructions),
		lines:        copyInts(params.Lines),
		source:       copyStrings(params.Source),
	}
}

// Index returns the position of the function within its program.
func (f *Function) Index() uint32 { return f.index }

// Name returns the function name. Unnamed functions report "func[N]".
func (f *Function) Name() string {
	if f.name == "" {
		return fmt.Sprintf("func[%d]", f.index)
	}
	return f.name
}

// ParamCount returns the number of parameters.
func (f *Function) ParamCount() int { return f.params }

// LocalCount returns the number of non-parameter locals.
func (f *Function) LocalCount() int { return f.locals }

// ResultCount returns 0 or 1.
func (f *Function) ResultCount() int { return f.results }

// InstructionCount returns the number of instructions in the body.
func (f *Function) InstructionCount() int { return len(f.instructions) }

// InstructionAt returns the instruction at the given program counter.
func (f *Function) InstructionAt(pc int) Instruction {
	return f.instructions[pc]
}

// LineAt returns the assembly line of the instruction at pc, or 0.
func (f *Function) LineAt(pc int) int {
	if pc < 0 || pc >= len(f.lines) {
		return 0
	}
	return f.lines[pc]
}

// SourceAt returns the assembly text of the instruction at pc, or "".
func (f *Function) SourceAt(pc int) string {
	if pc < 0 || pc >= len(f.source) {
		return ""
	}
	return f.source[pc]
}

// IsFinalEnd reports whether pc is the end instruction that closes the
// function body.
func (f *Function) IsFinalEnd(pc int) bool {
	n := len(f.instructions)
	return n > 0 && pc == n-1
}
