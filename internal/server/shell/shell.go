// Package shell starts the gateway's per-connection programs on a
// pseudo-terminal.
package shell

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/creack/pty"
)

// Spawner starts a command line on a fresh pseudo-terminal.
type Spawner struct {
	args []string
	// Env is appended to the gateway's environment.
	Env []string
}

// New returns a Spawner for command, which is split on whitespace.
func New(command string) (*Spawner, error) {
	args := strings.Fields(command)
	if len(args) == 0 {
		return nil, errors.New("empty command")
	}
	return &Spawner{args: args, Env: []string{"TERM=xterm-256color"}}, nil
}

// Command returns the command line the Spawner runs.
func (s *Spawner) Command() string {
	return strings.Join(s.args, " ")
}

// Spawn starts the command sized cols x rows. Cancelling ctx kills it.
func (s *Spawner) Spawn(ctx context.Context, cols, rows uint16) (*Process, error) {
	cmd := exec.CommandContext(ctx, s.args[0], s.args[1:]...)
	cmd.Env = append(os.Environ(), s.Env...)

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Cols: cols, Rows: rows})
	if err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", s.args[0], err)
	}
	p := &Process{cmd: cmd, ptmx: ptmx, done: make(chan struct{})}
	go func() {
		p.err = cmd.Wait()
		close(p.done)
	}()
	return p, nil
}

// Process is a running command attached to a pseudo-terminal.
type Process struct {
	cmd  *exec.Cmd
	ptmx *os.File
	done chan struct{}
	err  error

	closeOnce sync.Once
}

// Read reads the terminal's output.
func (p *Process) Read(b []byte) (int, error) {
	return p.ptmx.Read(b)
}

// Write sends input to the terminal.
func (p *Process) Write(b []byte) (int, error) {
	return p.ptmx.Write(b)
}

// Resize changes the terminal's window size.
func (p *Process) Resize(cols, rows uint16) error {
	return pty.Setsize(p.ptmx, &pty.Winsize{Cols: cols, Rows: rows})
}

// Done is closed once the command has exited.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the command exits and returns its exit error.
func (p *Process) Wait() error {
	<-p.done
	return p.err
}

// Close kills the command if it is still running and releases the terminal.
func (p *Process) Close() error {
	var err error
	p.closeOnce.Do(func() {
		select {
		case <-p.done:
		default:
			if p.cmd.Process != nil {
				_ = p.cmd.Process.Kill()
			}
		}
		err = p.ptmx.Close()
		<-p.done
	})
	return err
}
