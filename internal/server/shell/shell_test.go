package shell

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readUntil(t *testing.T, r io.Reader, want string) string {
	t.Helper()
	var out bytes.Buffer
	buf := make([]byte, 1024)
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		n, err := r.Read(buf)
		out.Write(buf[:n])
		if strings.Contains(out.String(), want) {
			return out.String()
		}
		if err != nil {
			break
		}
	}
	t.Fatalf("output %q does not contain %q", out.String(), want)
	return ""
}

func TestNew(t *testing.T) {
	_, err := New("   ")
	assert.Error(t, err)

	s, err := New("/bin/sh  -i")
	require.NoError(t, err)
	assert.Equal(t, "/bin/sh -i", s.Command())
}

func TestSpawn_SizeAndIO(t *testing.T) {
	s, err := New("/bin/sh")
	require.NoError(t, err)

	p, err := s.Spawn(context.Background(), 100, 30)
	require.NoError(t, err)
	defer p.Close()

	_, err = p.Write([]byte("stty size; echo $TERM\n"))
	require.NoError(t, err)
	out := readUntil(t, p, "xterm-256color")
	assert.Contains(t, out, "30 100")

	require.NoError(t, p.Resize(90, 20))
	_, err = p.Write([]byte("stty size\n"))
	require.NoError(t, err)
	readUntil(t, p, "20 90")
}

func TestSpawn_Exit(t *testing.T) {
	s, err := New("/bin/sh -c true")
	require.NoError(t, err)

	p, err := s.Spawn(context.Background(), 80, 24)
	require.NoError(t, err)

	select {
	case <-p.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("process did not exit")
	}
	assert.NoError(t, p.Wait())
	assert.NoError(t, p.Close())
}

func TestClose_KillsRunning(t *testing.T) {
	s, err := New("sleep 30")
	require.NoError(t, err)

	p, err := s.Spawn(context.Background(), 80, 24)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		_ = p.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not return")
	}
	assert.Error(t, p.Wait())
}

func TestSpawn_MissingProgram(t *testing.T) {
	s, err := New("/nonexistent/program")
	require.NoError(t, err)
	_, err = s.Spawn(context.Background(), 80, 24)
	assert.Error(t, err)
}
