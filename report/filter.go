package report

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Filter is a compiled boolean expression evaluated against each path.
//
// The expression sees these variables:
//
//	function  index of the function (int)
//	name      name of the function (string)
//	length    number of entries in the path (int)
//	count     number of completions (int)
//	pcs       the path entries ([]int)
//
// For example: `length > 2 && count >= 10` or `name == "main" && 40 in pcs`.
type Filter struct {
	source  string
	program *vm.Program
}

func filterEnv(f Function, p Path) map[string]any {
	pcs := make([]int, len(p.PCs))
	for i, pc := range p.PCs {
		pcs[i] = int(pc)
	}
	return map[string]any{
		"function": int(f.Index),
		"name":     f.Name,
		"length":   len(p.PCs),
		"count":    int(p.Count),
		"pcs":      pcs,
	}
}

// CompileFilter compiles source into a Filter.
func CompileFilter(source string) (*Filter, error) {
	program, err := expr.Compile(source, expr.Env(filterEnv(Function{}, Path{})), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("invalid filter %q: %w", source, err)
	}
	return &Filter{source: source, program: program}, nil
}

// String returns the source of the filter.
func (f *Filter) String() string { return f.source }

// Match reports whether path p of function fn satisfies the filter.
func (f *Filter) Match(fn Function, p Path) (bool, error) {
	result, err := expr.Run(f.program, filterEnv(fn, p))
	if err != nil {
		return false, fmt.Errorf("evaluating filter %q: %w", f.source, err)
	}
	matched, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("filter %q returned %T", f.source, result)
	}
	return matched, nil
}
