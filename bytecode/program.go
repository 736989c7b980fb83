package bytecode

// Program is an immutable collection of functions plus global storage size.
type Program struct {
	name      string
	functions []*Function
	globals   int
	entry     uint32
	byName    map[string]uint32
}

// ProgramParams contains parameters for creating a new Program.
type ProgramParams struct {
	Name      string
	Functions []*Function
	Globals   int
	Entry     uint32
}

// NewProgram creates a new immutable Program. Functions are addressed by
// their position in params.Functions, which must match each Function's Index.
func NewProgram(params ProgramParams) *Program {
	functions := make([]*Function, len(params.Functions))
	copy(functions, params.Functions)
	byName := make(map[string]uint32, len(functions))
	for i, fn := range functions {
		if fn != nil && fn.name != "" {
			if _, exists := byName[fn.name]; !exists {
				byName[fn.name] = uint32(i)
			}
		}
	}
	return &Program{
		name:      params.Name,
		functions: functions,
		globals:   params.Globals,
		entry:     params.Entry,
		byName:    byName,
	}
}

// Name returns the program name.
func (p *Program) Name() string { return p.name }

// FunctionCount returns the number of functions.
func (p *Program) FunctionCount() int { return len(p.functions) }

// FunctionAt returns the function with the given index.
func (p *Program) FunctionAt(index int) *Function {
	return p.functions[index]
}

// FunctionByName looks a function up by name.
func (p *Program) FunctionByName(name string) (*Function, bool) {
	index, ok := p.byName[name]
	if !ok {
		return nil, false
	}
	return p.functions[index], true
}

// FunctionNames returns the names of all functions in index order.
func (p *Program) FunctionNames() []string {
	names := make([]string, len(p.functions))
	for i, fn := range p.functions {
		names[i] = fn.Name()
	}
	return names
}

// GlobalCount returns the number of global slots.
func (p *Program) GlobalCount() int { return p.globals }

// Entry returns the index of the function executed by a run.
func (p *Program) Entry() uint32 { return p.entry }
