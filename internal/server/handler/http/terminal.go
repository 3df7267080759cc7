package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atinyakov/cloudtty/internal/protocol"
	"github.com/atinyakov/cloudtty/internal/service"
)

const (
	defaultColumns = 80
	defaultRows    = 24
	maxDimension   = 1000

	handshakeTimeout = 10 * time.Second
	readLimit        = 1 << 20
	outputChunk      = 32 * 1024
)

// TokenConsumer redeems single-use connection tokens.
type TokenConsumer interface {
	// ConsumeToken returns service.ErrInvalidToken for unknown or used tokens.
	ConsumeToken(ctx context.Context, value string) (string, error)
}

// Terminal is a program running on a pseudo-terminal.
type Terminal interface {
	io.ReadWriteCloser
	Resize(cols, rows uint16) error
}

// SpawnFunc starts a Terminal sized cols x rows for login.
type SpawnFunc func(ctx context.Context, login string, cols, rows uint16) (Terminal, error)

// TerminalHandler serves ttyd-compatible terminal websockets.
//
// The first message must be the handshake carrying a token from the token
// endpoint and the initial window size. Each later message starts with a
// command byte: input, resize, pause or resume.
type TerminalHandler struct {
	Tokens TokenConsumer
	Spawn  SpawnFunc
	// Title is sent to every client after the handshake.
	Title string
	// Preferences are forwarded verbatim to every client.
	Preferences map[string]any
	Logger      *zap.Logger
}

// ServeHTTP implements http.Handler.
func (h *TerminalHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols: []string{protocol.Subprotocol},
	})
	if err != nil {
		h.Logger.Warn("failed to accept terminal websocket", zap.Error(err))
		return
	}
	defer ws.CloseNow()

	log := h.Logger.With(zap.String("conn", uuid.NewString()))
	if ws.Subprotocol() != protocol.Subprotocol {
		ws.Close(websocket.StatusProtocolError, "unsupported subprotocol")
		return
	}
	ws.SetReadLimit(readLimit)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	hs, err := readHandshake(ctx, ws)
	if err != nil {
		log.Info("invalid handshake", zap.Error(err))
		ws.Close(websocket.StatusUnsupportedData, "invalid handshake")
		return
	}

	login, err := h.Tokens.ConsumeToken(ctx, hs.AuthToken)
	if errors.Is(err, service.ErrInvalidToken) {
		log.Info("rejected terminal token")
		ws.Close(websocket.StatusPolicyViolation, "authentication failed")
		return
	}
	if err != nil {
		log.Error("failed to check terminal token", zap.Error(err))
		ws.Close(websocket.StatusInternalError, "internal error")
		return
	}
	log = log.With(zap.String("login", login))

	cols, rows := dimension(hs.Columns, defaultColumns), dimension(hs.Rows, defaultRows)
	tty, err := h.Spawn(ctx, login, cols, rows)
	if err != nil {
		log.Error("failed to spawn terminal", zap.Error(err))
		ws.Close(websocket.StatusInternalError, "failed to start process")
		return
	}
	defer tty.Close()
	log.Info("terminal started", zap.Uint16("columns", cols), zap.Uint16("rows", rows))

	if err := h.sendGreeting(ctx, ws); err != nil {
		log.Info("failed to send greeting", zap.Error(err))
		return
	}

	flow := newGate()
	exited := make(chan struct{})
	pumpDone := make(chan struct{})
	go func() {
		defer close(pumpDone)
		if pumpOutput(ctx, ws, tty, flow) {
			close(exited)
			// Closing the websocket ends relayInput.
			ws.Close(websocket.StatusNormalClosure, "process exited")
		}
	}()

	err = h.relayInput(ctx, ws, tty, flow, log)
	flow.close()

	select {
	case <-exited:
		log.Info("terminal process exited")
	default:
		log.Info("terminal client disconnected", zap.Error(err))
		cancel()
		_ = tty.Close()
	}
	<-pumpDone
}

func (h *TerminalHandler) sendGreeting(ctx context.Context, ws *websocket.Conn) error {
	if err := ws.Write(ctx, websocket.MessageBinary, protocol.Frame(protocol.CmdSetWindowTitle, []byte(h.Title))); err != nil {
		return err
	}
	prefs := h.Preferences
	if prefs == nil {
		prefs = map[string]any{}
	}
	b, err := json.Marshal(prefs)
	if err != nil {
		return err
	}
	return ws.Write(ctx, websocket.MessageBinary, protocol.Frame(protocol.CmdSetPreferences, b))
}

// relayInput applies client commands to tty until the client goes away or the
// output pump stops. The returned error describes why it stopped.
func (h *TerminalHandler) relayInput(ctx context.Context, ws *websocket.Conn, tty Terminal, flow *gate, log *zap.Logger) error {
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			return err
		}
		if len(data) == 0 {
			continue
		}
		switch data[0] {
		case protocol.CmdInput:
			if _, err := tty.Write(data[1:]); err != nil {
				return err
			}
		case protocol.CmdResizeTerminal:
			var msg protocol.ResizeMessage
			if err := json.Unmarshal(data[1:], &msg); err != nil {
				log.Debug("invalid resize message", zap.Error(err))
				continue
			}
			if err := tty.Resize(dimension(msg.Columns, defaultColumns), dimension(msg.Rows, defaultRows)); err != nil {
				log.Debug("failed to resize terminal", zap.Error(err))
			}
		case protocol.CmdPause:
			flow.pause()
		case protocol.CmdResume:
			flow.resume()
		default:
			log.Debug("unknown command", zap.Int("command", int(data[0])))
		}
	}
}

// pumpOutput relays tty output to the client. It reports whether it stopped
// because tty reached its end.
func pumpOutput(ctx context.Context, ws *websocket.Conn, tty Terminal, flow *gate) bool {
	buf := make([]byte, outputChunk)
	for {
		n, err := tty.Read(buf)
		if n > 0 {
			if !flow.wait() {
				return false
			}
			if werr := ws.Write(ctx, websocket.MessageBinary, protocol.Frame(protocol.CmdOutput, buf[:n])); werr != nil {
				return false
			}
		}
		if err != nil {
			return ctx.Err() == nil
		}
	}
}

func readHandshake(ctx context.Context, ws *websocket.Conn) (protocol.InitMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, handshakeTimeout)
	defer cancel()

	var msg protocol.InitMessage
	_, data, err := ws.Read(ctx)
	if err != nil {
		return msg, err
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		return msg, err
	}
	return msg, nil
}

func dimension(v, def int) uint16 {
	switch {
	case v <= 0:
		return uint16(def)
	case v > maxDimension:
		return maxDimension
	}
	return uint16(v)
}

// gate holds output while the client has paused the stream.
type gate struct {
	mu     sync.Mutex
	cond   *sync.Cond
	paused bool
	closed bool
}

func newGate() *gate {
	g := &gate{}
	g.cond = sync.NewCond(&g.mu)
	return g
}

func (g *gate) pause() {
	g.mu.Lock()
	g.paused = true
	g.mu.Unlock()
}

func (g *gate) resume() {
	g.mu.Lock()
	g.paused = false
	g.mu.Unlock()
	g.cond.Broadcast()
}

func (g *gate) close() {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()
	g.cond.Broadcast()
}

// wait blocks while paused. It returns false once the gate is closed.
func (g *gate) wait() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	for g.paused && !g.closed {
		g.cond.Wait()
	}
	return !g.closed
}
