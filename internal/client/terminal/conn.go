package terminal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/atinyakov/cloudtty/internal/credential"
	"github.com/atinyakov/cloudtty/internal/protocol"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var (
	// ErrAuthFailed is the only signal a connection sends back to the session
	// controller: the server rejected the credential.
	ErrAuthFailed = errors.New("terminal: authentication failed")
	// ErrClosed reports a connection that was closed normally, by either side.
	ErrClosed = errors.New("terminal: connection closed")
	// ErrBusy is returned when output already has a consumer.
	ErrBusy = errors.New("terminal: connection output already in use")
	// ErrAttach wraps failures on the local side of an attach. The
	// connection itself is still usable.
	ErrAttach = errors.New("terminal: cannot attach")
)

const writeTimeout = 10 * time.Second

// Params configure Mount.
type Params struct {
	Endpoints  Endpoints
	Credential credential.Credential
	Options    ClientOptions
	Columns    int
	Rows       int
	// ScrollbackSize bounds the replay buffer; zero means the default.
	ScrollbackSize int
	HTTPClient     *http.Client
	Dialer         *websocket.Dialer
	Logger         *zap.Logger
}

// Conn is a mounted terminal connection. Output is either delivered to the
// attached writer or buffered for replay on the next Attach.
type Conn struct {
	ws   *websocket.Conn
	log  *zap.Logger
	opts ClientOptions

	writeMu sync.Mutex

	mu      sync.Mutex
	sink    io.Writer
	record  bool
	history *scrollback
	title   string
	prefs   json.RawMessage

	closing   atomic.Bool
	closeOnce sync.Once
	done      chan struct{}
	err       error
}

// FetchToken exchanges cred for a connection token at tokenURL.
func FetchToken(ctx context.Context, client *http.Client, tokenURL string, cred credential.Credential) (string, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, tokenURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	if !cred.IsZero() {
		req.Header.Set("Authorization", cred.Authorization())
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return "", ErrAuthFailed
	default:
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("token request: unexpected status %d: %s", resp.StatusCode, string(data))
	}

	var tr protocol.TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	return tr.Token, nil
}

// Mount fetches a token, dials the websocket and sends the handshake. The
// returned connection reads in the background until it is closed.
func Mount(ctx context.Context, p Params) (*Conn, error) {
	log := p.Logger
	if log == nil {
		log = zap.NewNop()
	}

	token, err := FetchToken(ctx, p.HTTPClient, p.Endpoints.Token, p.Credential)
	if err != nil {
		return nil, err
	}

	dialer := websocket.DefaultDialer
	if p.Dialer != nil {
		dialer = p.Dialer
	}
	d := *dialer
	d.Subprotocols = []string{protocol.Subprotocol}

	// The handshake token authenticates the websocket; the credential stays
	// on the token request.
	ws, resp, err := d.DialContext(ctx, p.Endpoints.WS, nil)
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, ErrAuthFailed
		}
		return nil, fmt.Errorf("dial %s: %w", p.Endpoints.WS, err)
	}

	c := &Conn{
		ws:      ws,
		log:     log,
		opts:    p.Options,
		record:  true,
		history: newScrollback(p.ScrollbackSize),
		done:    make(chan struct{}),
	}

	handshake, _ := json.Marshal(protocol.InitMessage{AuthToken: token, Columns: p.Columns, Rows: p.Rows})
	if err := c.send(handshake); err != nil {
		ws.Close()
		return nil, fmt.Errorf("send handshake: %w", err)
	}

	log.Info("terminal connected",
		zap.String("url", p.Endpoints.WS),
		zap.Int("columns", p.Columns),
		zap.Int("rows", p.Rows),
		zap.String("renderer", p.Options.RendererType),
	)

	go c.readLoop()
	return c, nil
}

func (c *Conn) readLoop() {
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			c.finish(c.classify(err))
			return
		}
		if len(data) == 0 {
			continue
		}
		switch data[0] {
		case protocol.CmdOutput:
			c.output(data[1:])
		case protocol.CmdSetWindowTitle:
			c.mu.Lock()
			c.title = string(data[1:])
			c.mu.Unlock()
		case protocol.CmdSetPreferences:
			c.mu.Lock()
			c.prefs = append(json.RawMessage(nil), data[1:]...)
			c.mu.Unlock()
		default:
			c.log.Debug("unknown server command", zap.ByteString("cmd", data[:1]))
		}
	}
}

func (c *Conn) classify(err error) error {
	switch {
	case websocket.IsCloseError(err, websocket.ClosePolicyViolation):
		return ErrAuthFailed
	case c.closing.Load():
		return ErrClosed
	case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
		return ErrClosed
	default:
		return fmt.Errorf("read: %w", err)
	}
}

func (c *Conn) finish(err error) {
	c.closeOnce.Do(func() {
		c.err = err
		c.ws.Close()
		close(c.done)
		if errors.Is(err, ErrClosed) {
			c.log.Info("terminal disconnected")
		} else {
			c.log.Warn("terminal disconnected", zap.Error(err))
		}
	})
}

func (c *Conn) output(p []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.record {
		c.history.Write(p)
	}
	if c.sink == nil {
		return
	}
	if _, err := c.sink.Write(p); err != nil {
		c.log.Debug("failed to write terminal output", zap.Error(err))
	}
}

func (c *Conn) send(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.ws.WriteMessage(websocket.BinaryMessage, data)
}

// Write sends p as terminal input.
func (c *Conn) Write(p []byte) (int, error) {
	if err := c.send(protocol.Frame(protocol.CmdInput, p)); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Resize reports the local terminal size to the server.
func (c *Conn) Resize(cols, rows int) error {
	if cols <= 0 || rows <= 0 {
		return nil
	}
	return c.send(protocol.ResizeFrame(cols, rows))
}

// Pause asks the server to stop sending output.
func (c *Conn) Pause() error { return c.send([]byte{protocol.CmdPause}) }

// Resume undoes Pause.
func (c *Conn) Resume() error { return c.send([]byte{protocol.CmdResume}) }

// Attach replays the buffered output to w and then streams new output to it
// until Detach.
func (c *Conn) Attach(w io.Writer) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sink != nil {
		return ErrBusy
	}
	if snap := c.history.Snapshot(); len(snap) > 0 {
		if _, err := w.Write(snap); err != nil {
			return fmt.Errorf("replay scrollback: %w", err)
		}
	}
	c.sink = w
	c.record = true
	return nil
}

// Detach stops streaming output. Later output is buffered.
func (c *Conn) Detach() {
	c.mu.Lock()
	c.sink = nil
	c.record = true
	c.mu.Unlock()
}

// capture routes raw output to w without recording it, for protocol
// bridges such as file transfers. The returned func restores buffering.
func (c *Conn) capture(w io.Writer) (func(), error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sink != nil {
		return nil, ErrBusy
	}
	c.sink = w
	c.record = false
	return c.Detach, nil
}

// Scrollback returns a copy of the buffered output.
func (c *Conn) Scrollback() []byte { return c.history.Snapshot() }

// Title returns the window title, preferring the fixed one from the options.
func (c *Conn) Title() string {
	if c.opts.TitleFixed != "" {
		return c.opts.TitleFixed
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.title
}

// Preferences returns the last preferences payload the server sent.
func (c *Conn) Preferences() json.RawMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.prefs
}

// Options returns the client options the connection was mounted with.
func (c *Conn) Options() ClientOptions { return c.opts }

// Done is closed when the connection has ended.
func (c *Conn) Done() <-chan struct{} { return c.done }

// Err reports why the connection ended. It is nil until Done is closed.
func (c *Conn) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}

// Close ends the connection and waits for the reader to stop.
func (c *Conn) Close() error {
	c.closing.Store(true)
	c.writeMu.Lock()
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.writeMu.Unlock()
	err := c.ws.Close()
	<-c.done
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}
