package bytecode

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/risor-io/pathprof/errz"
	"github.com/risor-io/pathprof/op"
)

// Validate checks that the program can be executed: every function body is
// well nested, operands are in range and call targets exist. All problems
// found are reported together.
func (p *Program) Validate() error {
	var result *multierror.Error
	if len(p.functions) == 0 {
		return multierror.Append(result, errz.NewStructuredError(
			errz.ErrValidation, "program has no functions", errz.Location{}, nil))
	}
	if int(p.entry) >= len(p.functions) {
		result = multierror.Append(result, errz.NewStructuredErrorf(
			errz.ErrValidation, errz.Location{}, nil, "entry function %d does not exist", p.entry))
	}
	if p.globals < 0 {
		result = multierror.Append(result, errz.NewStructuredErrorf(
			errz.ErrValidation, errz.Location{}, nil, "negative global count %d", p.globals))
	}
	for i, fn := range p.functions {
		if fn == nil {
			result = multierror.Append(result, errz.NewStructuredErrorf(
				errz.ErrValidation, errz.Location{}, nil, "function %d is missing", i))
			continue
		}
		if fn.index != uint32(i) {
			result = multierror.Append(result, fnError(fn, 0, "function index %d does not match position %d", fn.index, i))
		}
		for _, err := range p.validateFunction(fn) {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

func (p *Program) validateFunction(fn *Function) []error {
	var errs []error
	if fn.params < 0 || fn.locals < 0 {
		errs = append(errs, fnError(fn, 0, "negative parameter or local count"))
	}
	if fn.results != 0 && fn.results != 1 {
		errs = append(errs, fnError(fn, 0, "functions return at most one value (got %d)", fn.results))
	}
	control, err := Analyze(fn)
	if err != nil {
		return append(errs, err)
	}
	localCount := int64(fn.params + fn.locals)
	for pc, ins := range fn.instructions {
		info := op.GetInfo(ins.Code)
		if info.Name == "" {
			errs = append(errs, fnError(fn, pc, "unknown opcode %d", ins.Code))
			continue
		}
		if msg := checkOperandCount(info, len(ins.Args)); msg != "" {
			errs = append(errs, fnError(fn, pc, "%s %s", info.Name, msg))
			continue
		}
		depth := int64(control.Depth(pc))
		switch ins.Code {
		case op.Br, op.BrIf:
			if d := ins.Args[0]; d < 0 || d > depth {
				errs = append(errs, fnError(fn, pc, "branch depth %d out of range [0, %d]", d, depth))
			}
		case op.BrTable:
			for _, d := range ins.Args {
				if d < 0 || d > depth {
					errs = append(errs, fnError(fn, pc, "branch depth %d out of range [0, %d]", d, depth))
				}
			}
		case op.Delegate:
			if d := ins.Args[0]; d < 0 || d > depth {
				errs = append(errs, fnError(fn, pc, "delegate depth %d out of range [0, %d]", d, depth))
			}
		case op.Call:
			if target := ins.Args[0]; target < 0 || target >= int64(len(p.functions)) {
				errs = append(errs, fnError(fn, pc, "call to unknown function %d", target))
			}
		case op.LocalGet, op.LocalSet, op.LocalTee:
			if idx := ins.Args[0]; idx < 0 || idx >= localCount {
				errs = append(errs, fnError(fn, pc, "local %d out of range (function has %d)", idx, localCount))
			}
		case op.GlobalGet, op.GlobalSet:
			if idx := ins.Args[0]; idx < 0 || idx >= int64(p.globals) {
				errs = append(errs, fnError(fn, pc, "global %d out of range (program has %d)", idx, p.globals))
			}
		case op.Rethrow:
			if !insideCatch(fn, control, pc) {
				errs = append(errs, fnError(fn, pc, "rethrow outside of catch"))
			}
		}
	}
	return errs
}

func checkOperandCount(info op.Info, got int) string {
	if info.OperandCount == op.Variadic {
		if got < 1 {
			return "requires at least one operand"
		}
		return ""
	}
	if got != info.OperandCount {
		return fmt.Sprintf("takes %d operand(s) (%d given)", info.OperandCount, got)
	}
	return ""
}

// insideCatch reports whether pc lies between a catch and the end of its try.
func insideCatch(fn *Function, control *ControlMap, pc int) bool {
	for start := 0; start < pc; start++ {
		if fn.instructions[start].Code != op.Try {
			continue
		}
		catch := control.Catch(start)
		if catch >= 0 && catch < pc && pc < control.End(start) {
			return true
		}
	}
	return false
}
