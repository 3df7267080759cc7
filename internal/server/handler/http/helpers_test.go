package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/cloudtty/internal/models"
	"github.com/atinyakov/cloudtty/internal/protocol"
	"github.com/atinyakov/cloudtty/internal/service"
)

const waitTimeout = 5 * time.Second

// fakeTerminal is an in-memory Terminal driven by the test.
type fakeTerminal struct {
	outR *io.PipeReader
	outW *io.PipeWriter

	input   chan []byte
	resized chan [2]uint16
	closed  chan struct{}
	once    sync.Once
}

func newFakeTerminal() *fakeTerminal {
	r, w := io.Pipe()
	return &fakeTerminal{
		outR:    r,
		outW:    w,
		input:   make(chan []byte, 16),
		resized: make(chan [2]uint16, 16),
		closed:  make(chan struct{}),
	}
}

func (f *fakeTerminal) Read(b []byte) (int, error) { return f.outR.Read(b) }

func (f *fakeTerminal) Write(b []byte) (int, error) {
	f.input <- append([]byte(nil), b...)
	return len(b), nil
}

func (f *fakeTerminal) Resize(cols, rows uint16) error {
	f.resized <- [2]uint16{cols, rows}
	return nil
}

func (f *fakeTerminal) Close() error {
	f.once.Do(func() {
		_ = f.outR.Close()
		close(f.closed)
	})
	return nil
}

func (f *fakeTerminal) emit(s string) {
	go func() { _, _ = f.outW.Write([]byte(s)) }()
}

func (f *fakeTerminal) exit() {
	_ = f.outW.Close()
}

type spawnArgs struct {
	login      string
	cols, rows uint16
}

// fakeTokens implements TokenConsumer and TokenIssuer.
type fakeTokens struct {
	mu     sync.Mutex
	logins map[string]string
	err    error
}

func (f *fakeTokens) ConsumeToken(ctx context.Context, value string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	login, ok := f.logins[value]
	if !ok {
		return "", service.ErrInvalidToken
	}
	delete(f.logins, value)
	return login, nil
}

func (f *fakeTokens) IssueToken(ctx context.Context, login string) (models.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return models.Token{}, f.err
	}
	value := "tok-" + login
	if f.logins == nil {
		f.logins = map[string]string{}
	}
	f.logins[value] = login
	return models.Token{Value: value, Login: login, ExpiresAt: time.Now().Add(time.Minute)}, nil
}

// fakeAuth implements middleware.Authenticator.
type fakeAuth map[string]string

func (f fakeAuth) Authenticate(ctx context.Context, login, password string) error {
	if login == "broken" {
		return errors.New("db down")
	}
	if pw, ok := f[login]; ok && pw == password {
		return nil
	}
	return service.ErrInvalidCredentials
}

// wsClient reads frames in the background so tests can wait with timeouts
// without cancelling a Read.
type wsClient struct {
	conn   *websocket.Conn
	frames chan []byte
	err    chan error
}

func dialTerminal(t *testing.T, url string, protocols ...string) *wsClient {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(url, "http")
	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{Subprotocols: protocols})
	require.NoError(t, err)
	t.Cleanup(func() { conn.CloseNow() })

	c := &wsClient{conn: conn, frames: make(chan []byte, 64), err: make(chan error, 1)}
	go func() {
		for {
			_, data, err := conn.Read(context.Background())
			if err != nil {
				c.err <- err
				close(c.frames)
				return
			}
			c.frames <- data
		}
	}()
	return c
}

func (c *wsClient) send(t *testing.T, cmd byte, payload string) {
	t.Helper()
	err := c.conn.Write(context.Background(), websocket.MessageBinary, protocol.Frame(cmd, []byte(payload)))
	require.NoError(t, err)
}

func (c *wsClient) handshake(t *testing.T, token string, cols, rows int) {
	t.Helper()
	b, err := json.Marshal(protocol.InitMessage{AuthToken: token, Columns: cols, Rows: rows})
	require.NoError(t, err)
	require.NoError(t, c.conn.Write(context.Background(), websocket.MessageBinary, b))
}

func (c *wsClient) next(t *testing.T) []byte {
	t.Helper()
	select {
	case f, ok := <-c.frames:
		if !ok {
			t.Fatalf("connection closed: %v", <-c.err)
		}
		return f
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for a frame")
	}
	return nil
}

// closeStatus drains frames until the connection ends and returns the close
// code the server sent.
func (c *wsClient) closeStatus(t *testing.T) websocket.StatusCode {
	t.Helper()
	deadline := time.After(waitTimeout)
	for {
		select {
		case _, ok := <-c.frames:
			if !ok {
				return websocket.CloseStatus(<-c.err)
			}
		case <-deadline:
			t.Fatal("timed out waiting for close")
			return -1
		}
	}
}
