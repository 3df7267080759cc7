package terminal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Transfers moves files over a connection with ZModem, delegating the
// protocol itself to the lrzsz programs.
type Transfers struct {
	conn *Conn
	dir  string
	log  *zap.Logger

	// SendProgram and ReceiveProgram name the local lrzsz binaries.
	SendProgram    string
	ReceiveProgram string
}

// NewTransfers returns transfers over conn that store downloads in dir.
func NewTransfers(conn *Conn, dir string, log *zap.Logger) *Transfers {
	if log == nil {
		log = zap.NewNop()
	}
	return &Transfers{
		conn:           conn,
		dir:            dir,
		log:            log,
		SendProgram:    "sz",
		ReceiveProgram: "rz",
	}
}

// Upload starts rz in the remote shell and feeds it localPath with sz.
func (t *Transfers) Upload(ctx context.Context, localPath string) error {
	if localPath == "" {
		return errors.New("no file provided for upload")
	}
	abs, err := filepath.Abs(localPath)
	if err != nil {
		return fmt.Errorf("failed to resolve %q: %w", localPath, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("failed to stat %q: %w", abs, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%q is not a regular file", abs)
	}

	prog, err := exec.LookPath(t.SendProgram)
	if err != nil {
		return fmt.Errorf("'%s' command not found, upload unavailable", t.SendProgram)
	}
	cmd := exec.CommandContext(ctx, prog, "-b", abs)

	t.log.Info("starting upload", zap.String("file", abs))
	if err := t.bridge(cmd, "rz\r"); err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}
	t.log.Info("upload completed", zap.String("file", abs))
	return nil
}

// Download starts sz for remotePath in the remote shell and receives it with
// rz into the download directory. It returns that directory.
func (t *Transfers) Download(ctx context.Context, remotePath string) (string, error) {
	remotePath = strings.TrimSpace(remotePath)
	if remotePath == "" {
		return "", errors.New("no file provided for download")
	}
	dir, err := filepath.Abs(t.dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve download directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create download directory %q: %w", dir, err)
	}

	prog, err := exec.LookPath(t.ReceiveProgram)
	if err != nil {
		return "", fmt.Errorf("'%s' command not found, download unavailable", t.ReceiveProgram)
	}
	cmd := exec.CommandContext(ctx, prog, "-b", "-E")
	cmd.Dir = dir

	t.log.Info("starting download", zap.String("file", remotePath), zap.String("dir", dir))
	if err := t.bridge(cmd, "sz "+shellQuote(remotePath)+"\r"); err != nil {
		return "", fmt.Errorf("download failed: %w", err)
	}
	t.log.Info("download completed", zap.String("file", remotePath))
	return dir, nil
}

// bridge types trigger into the remote shell and connects cmd to the
// connection until cmd exits.
func (t *Transfers) bridge(cmd *exec.Cmd, trigger string) error {
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return err
	}
	cmd.Stdout = connInput{t.conn}
	var stderr strings.Builder
	cmd.Stderr = &stderr

	release, err := t.conn.capture(stdin)
	if err != nil {
		stdin.Close()
		return err
	}
	defer release()

	if _, err := t.conn.Write([]byte(trigger)); err != nil {
		stdin.Close()
		return err
	}
	if err := cmd.Start(); err != nil {
		return err
	}

	waitErr := make(chan error, 1)
	go func() { waitErr <- cmd.Wait() }()

	select {
	case err = <-waitErr:
	case <-t.conn.Done():
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		<-waitErr
		err = t.conn.Err()
	}
	if err != nil && stderr.Len() > 0 {
		t.log.Debug("transfer program output", zap.String("stderr", stderr.String()))
	}
	return err
}

type connInput struct{ c *Conn }

func (w connInput) Write(p []byte) (int, error) { return w.c.Write(p) }

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
