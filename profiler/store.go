package profiler

import "slices"

// pathSet holds the distinct paths of one function in first-seen order.
type pathSet struct {
	paths []Path
}

// record counts one completion of pcs, adding it if it was never seen.
// It returns the updated count.
func (s *pathSet) record(pcs []PC) uint64 {
	for i := range s.paths {
		if slices.Equal(s.paths[i].PCs, pcs) {
			s.paths[i].Count++
			return s.paths[i].Count
		}
	}
	s.paths = append(s.paths, Path{PCs: slices.Clone(pcs), Count: 1})
	return 1
}
