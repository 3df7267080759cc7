package terminal

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/muesli/cancelreader"
	"go.uber.org/zap"
	"golang.org/x/term"
)

// DefaultDetachKey is Ctrl-].
const DefaultDetachKey byte = 0x1d

// Session hands the local terminal to a mounted connection. It implements
// tea.ExecCommand so the TUI can suspend itself while the remote shell owns
// the screen.
type Session struct {
	conn      *Conn
	log       *zap.Logger
	DetachKey byte

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// NewSession prepares an attach to conn.
func NewSession(conn *Conn, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{
		conn:      conn,
		log:       log,
		DetachKey: DefaultDetachKey,
		stdin:     os.Stdin,
		stdout:    os.Stdout,
		stderr:    os.Stderr,
	}
}

func (s *Session) SetStdin(r io.Reader)  { s.stdin = r }
func (s *Session) SetStdout(w io.Writer) { s.stdout = w }
func (s *Session) SetStderr(w io.Writer) { s.stderr = w }

// Run streams the connection to stdout and stdin to the connection until the
// detach key is pressed or stdin ends, in which case it returns nil, or the
// connection ends, in which case it returns the connection error.
func (s *Session) Run() error {
	if f, ok := s.stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		state, err := term.MakeRaw(int(f.Fd()))
		if err != nil {
			s.log.Warn("failed to enter raw mode", zap.Error(err))
		} else {
			defer func() {
				if err := term.Restore(int(f.Fd()), state); err != nil {
					s.log.Error("failed to restore terminal", zap.Error(err))
				}
			}()
		}
	}
	s.syncSize()

	stopResize := s.watchResize()
	defer stopResize()

	if err := s.conn.Attach(s.stdout); err != nil {
		return fmt.Errorf("%w: %w", ErrAttach, err)
	}
	defer s.conn.Detach()

	cr, err := cancelreader.NewReader(s.stdin)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrAttach, err)
	}
	defer cr.Close()

	detached := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(detached)
		s.pump(cr)
	}()

	var result error
	select {
	case <-detached:
		if result = s.conn.Err(); result == nil {
			s.log.Info("detached from terminal")
		}
	case <-s.conn.Done():
		result = s.conn.Err()
		if result == nil {
			result = ErrClosed
		}
	}

	// A reader that cannot be cancelled finishes on its next read.
	if cr.Cancel() {
		wg.Wait()
	}
	return result
}

func (s *Session) pump(r io.Reader) {
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			i := bytes.IndexByte(chunk, s.DetachKey)
			if i >= 0 {
				chunk = chunk[:i]
			}
			if len(chunk) > 0 {
				if _, werr := s.conn.Write(chunk); werr != nil {
					return
				}
			}
			if i >= 0 {
				return
			}
		}
		if err != nil {
			if !errors.Is(err, cancelreader.ErrCanceled) && !errors.Is(err, io.EOF) {
				s.log.Debug("stdin read failed", zap.Error(err))
			}
			return
		}
	}
}

func (s *Session) syncSize() {
	f, ok := s.stdout.(*os.File)
	if !ok {
		return
	}
	cols, rows, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return
	}
	if err := s.conn.Resize(cols, rows); err != nil {
		s.log.Debug("failed to send resize", zap.Error(err))
	}
}
