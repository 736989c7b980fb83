package profiler

import (
	"cmp"
	"slices"
)

// Path is a distinct path with the number of times it was completed.
type Path struct {
	PCs   []PC
	Count uint64
}

// Len returns the number of entries in the path.
func (p Path) Len() int { return len(p.PCs) }

// FunctionPaths lists the ranked paths of one function.
type FunctionPaths struct {
	Index uint32
	Name  string
	Paths []Path
}

// Report is the ranked result of a profiling run.
type Report struct {
	Functions []FunctionPaths
}

// Function returns the paths of the function with the given index.
func (r *Report) Function(index uint32) (FunctionPaths, bool) {
	for _, f := range r.Functions {
		if f.Index == index {
			return f, true
		}
	}
	return FunctionPaths{}, false
}

// PathCount returns the number of distinct paths across all functions.
func (r *Report) PathCount() int {
	var n int
	for _, f := range r.Functions {
		n += len(f.Paths)
	}
	return n
}

// comparePaths orders longer paths first, then by offsets ascending.
func comparePaths(a, b Path) int {
	if c := cmp.Compare(len(b.PCs), len(a.PCs)); c != 0 {
		return c
	}
	return slices.Compare(a.PCs, b.PCs)
}

// Report ranks the recorded paths. Functions appear in ascending index
// order; functions without a non-empty path are omitted. The engine keeps
// recording after a report is taken.
func (e *Engine) Report() *Report {
	report := &Report{}
	for index, f := range e.functions {
		if f == nil {
			continue
		}
		var paths []Path
		for _, p := range f.paths.paths {
			if len(p.PCs) == 0 {
				continue
			}
			paths = append(paths, Path{PCs: slices.Clone(p.PCs), Count: p.Count})
		}
		if len(paths) == 0 {
			continue
		}
		slices.SortFunc(paths, comparePaths)
		report.Functions = append(report.Functions, FunctionPaths{
			Index: uint32(index),
			Name:  f.name,
			Paths: paths,
		})
	}
	e.logger.Debug().
		Int("functions", len(report.Functions)).
		Int("paths", report.PathCount()).
		Msg("report ready")
	return report
}
