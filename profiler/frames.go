package profiler

// frameStack holds the in-progress path buffers of every live invocation of
// one function, innermost last.
type frameStack struct {
	buffers [][]PC
}

func (s *frameStack) push(pc PC) {
	s.buffers = append(s.buffers, []PC{pc})
}

func (s *frameStack) depth() int {
	return len(s.buffers)
}

func (s *frameStack) append(pc PC) bool {
	n := len(s.buffers)
	if n == 0 {
		return false
	}
	s.buffers[n-1] = append(s.buffers[n-1], pc)
	return true
}

func (s *frameStack) pop() ([]PC, bool) {
	n := len(s.buffers)
	if n == 0 {
		return nil, false
	}
	top := s.buffers[n-1]
	s.buffers[n-1] = nil
	s.buffers = s.buffers[:n-1]
	return top, true
}

// callStack records which function each live invocation belongs to.
type callStack []uint32

func (s *callStack) push(fn uint32) {
	*s = append(*s, fn)
}

func (s callStack) top() (uint32, bool) {
	if len(s) == 0 {
		return 0, false
	}
	return s[len(s)-1], true
}

func (s *callStack) pop() {
	*s = (*s)[:len(*s)-1]
}
