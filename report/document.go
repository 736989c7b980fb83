// Package report turns the paths recorded by a profiler into documents that
// can be filtered and rendered as text, JSON or YAML.
package report

import (
	"fmt"
	"slices"
	"time"

	"github.com/gofrs/uuid"

	"github.com/risor-io/pathprof/profiler"
)

// Document is the result of one profiling run.
type Document struct {
	RunID     string     `json:"run_id" yaml:"run_id"`
	Program   string     `json:"program" yaml:"program"`
	CreatedAt time.Time  `json:"created_at" yaml:"created_at"`
	Result    int64      `json:"result" yaml:"result"`
	Steps     uint64     `json:"steps" yaml:"steps"`
	Functions []Function `json:"functions" yaml:"functions"`
}

// Function lists the ranked paths of one function.
type Function struct {
	Index uint32 `json:"index" yaml:"index"`
	Name  string `json:"name" yaml:"name"`
	Paths []Path `json:"paths" yaml:"paths"`
}

// Path is one distinct path and the number of times it completed.
type Path struct {
	PCs   []uint32 `json:"pcs" yaml:"pcs"`
	Count uint64   `json:"count" yaml:"count"`
}

// Option configures a new Document.
type Option func(*Document)

// WithResult records the value returned by the program.
func WithResult(result int64) Option {
	return func(d *Document) {
		d.Result = result
	}
}

// WithSteps records the number of instructions executed.
func WithSteps(steps uint64) Option {
	return func(d *Document) {
		d.Steps = steps
	}
}

// WithTime overrides the creation time of the document.
func WithTime(t time.Time) Option {
	return func(d *Document) {
		d.CreatedAt = t
	}
}

// New builds a Document from an engine report. Every document gets a fresh
// run ID.
func New(program string, r *profiler.Report, options ...Option) (*Document, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("generating run id: %w", err)
	}
	d := &Document{
		RunID:     id.String(),
		Program:   program,
		CreatedAt: time.Now().UTC(),
		Functions: make([]Function, 0, len(r.Functions)),
	}
	for _, f := range r.Functions {
		name := f.Name
		if name == "" {
			name = fmt.Sprintf("func[%d]", f.Index)
		}
		fn := Function{Index: f.Index, Name: name, Paths: make([]Path, 0, len(f.Paths))}
		for _, p := range f.Paths {
			pcs := make([]uint32, len(p.PCs))
			for i, pc := range p.PCs {
				pcs[i] = uint32(pc)
			}
			fn.Paths = append(fn.Paths, Path{PCs: pcs, Count: p.Count})
		}
		d.Functions = append(d.Functions, fn)
	}
	for _, opt := range options {
		opt(d)
	}
	return d, nil
}

// PathCount returns the number of paths across all functions.
func (d *Document) PathCount() int {
	var n int
	for _, f := range d.Functions {
		n += len(f.Paths)
	}
	return n
}

// FunctionNames returns the names of the functions in the document.
func (d *Document) FunctionNames() []string {
	names := make([]string, len(d.Functions))
	for i, f := range d.Functions {
		names[i] = f.Name
	}
	return names
}

// Selection narrows a Document. Zero values select everything.
type Selection struct {
	// Functions restricts the document to functions with these names.
	Functions []string
	// MinCount drops paths completed fewer times.
	MinCount uint64
	// Filter drops paths for which the expression is false.
	Filter *Filter
}

// Select returns a copy of the document holding only the selected paths.
// Functions left without paths are dropped. Ranking is preserved.
func (d *Document) Select(sel Selection) (*Document, error) {
	out := *d
	out.Functions = nil
	for _, f := range d.Functions {
		if len(sel.Functions) > 0 && !slices.Contains(sel.Functions, f.Name) {
			continue
		}
		kept := Function{Index: f.Index, Name: f.Name}
		for _, p := range f.Paths {
			if p.Count < sel.MinCount {
				continue
			}
			if sel.Filter != nil {
				ok, err := sel.Filter.Match(f, p)
				if err != nil {
					return nil, err
				}
				if !ok {
					continue
				}
			}
			kept.Paths = append(kept.Paths, p)
		}
		if len(kept.Paths) > 0 {
			out.Functions = append(out.Functions, kept)
		}
	}
	return &out, nil
}
