//go:build windows

package terminal

func (s *Session) watchResize() func() { return func() {} }
