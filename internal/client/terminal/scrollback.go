package terminal

import "sync"

// defaultScrollbackSize bounds the output kept for replay on re-attach.
const defaultScrollbackSize = 256 * 1024

// scrollback keeps the most recent output of a connection so a re-attached
// view can be repainted. Older data is trimmed from the front.
type scrollback struct {
	mu     sync.Mutex
	data   []byte
	maxLen int
}

func newScrollback(maxLen int) *scrollback {
	if maxLen <= 0 {
		maxLen = defaultScrollbackSize
	}
	return &scrollback{maxLen: maxLen}
}

func (s *scrollback) Write(p []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = append(s.data, p...)
	if len(s.data) > s.maxLen {
		s.data = append([]byte(nil), s.data[len(s.data)-s.maxLen:]...)
	}
}

// Snapshot returns a copy of the buffered output.
func (s *scrollback) Snapshot() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]byte, len(s.data))
	copy(out, s.data)
	return out
}

func (s *scrollback) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}
