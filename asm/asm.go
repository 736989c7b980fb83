// Package asm loads programs written in the pathprof assembly format.
//
// A program file is a YAML document listing functions. Each function body is
// plain text with one instruction per line, a mnemonic followed by integer
// operands. Semicolons start comments. The call instruction also accepts a
// function name in place of an index.
//
//	name: countdown
//	entry: main
//	functions:
//	  - name: main
//	    locals: 1
//	    code: |
//	      i64.const 3
//	      local.set 0
//	      loop            ; header
//	        local.get 0
//	        i64.eqz
//	        br_if 1
//	        ...
package asm

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/hashicorp/go-multierror"

	"github.com/risor-io/pathprof/bytecode"
	"github.com/risor-io/pathprof/errz"
	"github.com/risor-io/pathprof/op"
)

// DefaultEntry is the function executed when a program does not name one.
const DefaultEntry = "main"

type programDoc struct {
	Name      string     `yaml:"name"`
	Entry     string     `yaml:"entry"`
	Globals   int        `yaml:"globals"`
	Functions []Function `yaml:"functions"`
}

// Function is the source of one function in a program document.
type Function struct {
	Name    string `yaml:"name"`
	Params  int    `yaml:"params"`
	Locals  int    `yaml:"locals"`
	Results int    `yaml:"results"`
	Code    string `yaml:"code"`
}

// LoadFile reads and assembles the program at path. The program name
// defaults to the file name.
func LoadFile(path string) (*bytecode.Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return load(data, path)
}

// Load assembles a program from a YAML document.
func Load(data []byte) (*bytecode.Program, error) {
	return load(data, "")
}

func load(data []byte, defaultName string) (*bytecode.Program, error) {
	var doc programDoc
	if err := yaml.UnmarshalWithOptions(data, &doc, yaml.DisallowUnknownField()); err != nil {
		return nil, errz.NewStructuredError(errz.ErrSyntax, yaml.FormatError(err, false, true), errz.Location{}, nil).WithCause(err)
	}
	if doc.Name == "" {
		doc.Name = defaultName
	}
	return Assemble(doc.Name, doc.Entry, doc.Globals, doc.Functions...)
}

// Assemble builds a program from function sources. Entry names the entry
// function; it may be empty (see DefaultEntry) or a decimal index.
func Assemble(name, entry string, globals int, functions ...Function) (*bytecode.Program, error) {
	var result *multierror.Error

	indexes := make(map[string]int64, len(functions))
	for i, fn := range functions {
		if fn.Name == "" {
			continue
		}
		if _, exists := indexes[fn.Name]; exists {
			result = multierror.Append(result, errz.NewStructuredErrorf(errz.ErrSyntax,
				errz.Location{Function: fn.Name}, nil, "duplicate function name %q", fn.Name))
			continue
		}
		indexes[fn.Name] = int64(i)
	}

	built := make([]*bytecode.Function, len(functions))
	for i, fn := range functions {
		params, err := assembleFunction(uint32(i), fn, indexes)
		if err != nil {
			result = multierror.Append(result, err)
		}
		built[i] = bytecode.NewFunction(params)
	}

	entryIndex, err := resolveEntry(entry, indexes, len(functions))
	if err != nil {
		result = multierror.Append(result, err)
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	return bytecode.NewProgram(bytecode.ProgramParams{
		Name:      name,
		Functions: built,
		Globals:   globals,
		Entry:     entryIndex,
	}), nil
}

func resolveEntry(entry string, indexes map[string]int64, count int) (uint32, error) {
	if entry == "" {
		if index, ok := indexes[DefaultEntry]; ok {
			return uint32(index), nil
		}
		return 0, nil
	}
	if index, ok := indexes[entry]; ok {
		return uint32(index), nil
	}
	if index, err := strconv.ParseUint(entry, 10, 32); err == nil && int(index) < count {
		return uint32(index), nil
	}
	return 0, errz.NewStructuredErrorf(errz.ErrSyntax, errz.Location{}, nil, "entry function %q not found", entry)
}

func assembleFunction(index uint32, fn Function, indexes map[string]int64) (bytecode.FunctionParams, error) {
	params := bytecode.FunctionParams{
		Index:   index,
		Name:    fn.Name,
		Params:  fn.Params,
		Locals:  fn.Locals,
		Results: fn.Results,
	}
	displayName := fn.Name
	if displayName == "" {
		displayName = fmt.Sprintf("func[%d]", index)
	}

	var errs *multierror.Error
	for lineNo, raw := range strings.Split(fn.Code, "\n") {
		text := raw
		if i := strings.IndexByte(text, ';'); i >= 0 {
			text = text[:i]
		}
		fields := strings.Fields(text)
		if len(fields) == 0 {
			continue
		}
		loc := errz.Location{Function: displayName, Line: lineNo + 1, Source: strings.TrimSpace(text)}
		code, ok := op.Lookup(fields[0])
		if !ok {
			errs = multierror.Append(errs, errz.NewStructuredErrorf(errz.ErrSyntax, loc, nil, "unknown opcode %q", fields[0]))
			continue
		}
		args, err := parseOperands(code, fields[1:], indexes)
		if err != nil {
			errs = multierror.Append(errs, errz.NewStructuredError(errz.ErrSyntax, err.Error(), loc, nil))
			continue
		}
		params.Instructions = append(params.Instructions, bytecode.NewInstruction(code, args...))
		params.Lines = append(params.Lines, lineNo+1)
		params.Source = append(params.Source, loc.Source)
	}
	return params, errs.ErrorOrNil()
}

func parseOperands(code op.Code, fields []string, indexes map[string]int64) ([]int64, error) {
	if len(fields) == 0 {
		return nil, nil
	}
	args := make([]int64, 0, len(fields))
	for _, field := range fields {
		if code == op.Call {
			if index, ok := indexes[field]; ok {
				args = append(args, index)
				continue
			}
		}
		value, err := strconv.ParseInt(field, 0, 64)
		if err != nil {
			if code == op.Call {
				return nil, fmt.Errorf("unknown function %q", field)
			}
			return nil, fmt.Errorf("invalid operand %q", field)
		}
		args = append(args, value)
	}
	return args, nil
}
