package terminal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/cloudtty/internal/credential"
	"github.com/atinyakov/cloudtty/internal/protocol"
)

const testToken = "tok-123"

// fakeGateway is a minimal ttyd-compatible server.
type fakeGateway struct {
	srv        *httptest.Server
	cred       credential.Credential
	wantToken  string
	handshakes chan protocol.InitMessage
	frames     chan []byte
	conns      chan *websocket.Conn

	// upgradeAuth records the Authorization header of each websocket upgrade.
	upgradeAuth   chan string
	rejectUpgrade atomic.Bool
}

func newFakeGateway(t *testing.T) *fakeGateway {
	t.Helper()
	cred, err := credential.Encode("alice", "secret")
	require.NoError(t, err)

	g := &fakeGateway{
		cred:        cred,
		wantToken:   testToken,
		handshakes:  make(chan protocol.InitMessage, 4),
		frames:      make(chan []byte, 64),
		conns:       make(chan *websocket.Conn, 4),
		upgradeAuth: make(chan string, 4),
	}
	upgrader := websocket.Upgrader{Subprotocols: []string{protocol.Subprotocol}}

	mux := http.NewServeMux()
	mux.HandleFunc("/term/token", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != g.cred.Authorization() {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(protocol.TokenResponse{Token: testToken})
	})
	mux.HandleFunc("/term/ws", func(w http.ResponseWriter, r *http.Request) {
		select {
		case g.upgradeAuth <- r.Header.Get("Authorization"):
		default:
		}
		if g.rejectUpgrade.Load() {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		_, data, err := ws.ReadMessage()
		if err != nil {
			ws.Close()
			return
		}
		var hello protocol.InitMessage
		_ = json.Unmarshal(data, &hello)
		g.handshakes <- hello
		if hello.AuthToken != g.wantToken {
			_ = ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "auth"),
				time.Now().Add(time.Second))
			ws.Close()
			return
		}
		g.conns <- ws
		for {
			_, frame, err := ws.ReadMessage()
			if err != nil {
				return
			}
			g.frames <- frame
		}
	})
	g.srv = httptest.NewServer(mux)
	t.Cleanup(g.srv.Close)
	return g
}

func (g *fakeGateway) endpoints(t *testing.T) Endpoints {
	t.Helper()
	ep, err := ParseEndpoints(g.srv.URL + "/term/")
	require.NoError(t, err)
	return ep
}

func (g *fakeGateway) mount(t *testing.T, opts ClientOptions) (*Conn, *websocket.Conn) {
	t.Helper()
	conn, err := Mount(context.Background(), Params{
		Endpoints:  g.endpoints(t),
		Credential: g.cred,
		Options:    opts,
		Columns:    120,
		Rows:       40,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	select {
	case server := <-g.conns:
		return conn, server
	case <-time.After(2 * time.Second):
		t.Fatal("server never accepted the connection")
		return nil, nil
	}
}

func (g *fakeGateway) nextFrame(t *testing.T) []byte {
	t.Helper()
	select {
	case f := <-g.frames:
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("no frame received")
		return nil
	}
}

func serverSend(t *testing.T, ws *websocket.Conn, cmd byte, payload string) {
	t.Helper()
	require.NoError(t, ws.WriteMessage(websocket.BinaryMessage, protocol.Frame(cmd, []byte(payload))))
}

func waitDone(t *testing.T, c *Conn) error {
	t.Helper()
	select {
	case <-c.Done():
		return c.Err()
	case <-time.After(2 * time.Second):
		t.Fatal("connection did not end")
		return nil
	}
}

// syncBuffer is a bytes.Buffer safe for the reader goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestFetchToken(t *testing.T) {
	g := newFakeGateway(t)
	ep := g.endpoints(t)

	t.Run("success", func(t *testing.T) {
		tok, err := FetchToken(context.Background(), nil, ep.Token, g.cred)
		require.NoError(t, err)
		assert.Equal(t, testToken, tok)
	})

	t.Run("rejected", func(t *testing.T) {
		bad, err := credential.Encode("alice", "wrong")
		require.NoError(t, err)
		_, err = FetchToken(context.Background(), nil, ep.Token, bad)
		assert.ErrorIs(t, err, ErrAuthFailed)
	})

	t.Run("server error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer srv.Close()
		_, err := FetchToken(context.Background(), nil, srv.URL+"/token", g.cred)
		require.Error(t, err)
		assert.False(t, errors.Is(err, ErrAuthFailed))
	})
}

func TestMount_SendsHandshake(t *testing.T) {
	g := newFakeGateway(t)
	g.mount(t, DefaultClientOptions())

	hello := <-g.handshakes
	assert.Equal(t, testToken, hello.AuthToken)
	assert.Equal(t, 120, hello.Columns)
	assert.Equal(t, 40, hello.Rows)
}

func TestMount_UpgradeCarriesNoCredential(t *testing.T) {
	g := newFakeGateway(t)
	g.mount(t, DefaultClientOptions())

	select {
	case auth := <-g.upgradeAuth:
		assert.Empty(t, auth)
	case <-time.After(2 * time.Second):
		t.Fatal("no websocket upgrade seen")
	}
}

func TestMount_UpgradeRejected(t *testing.T) {
	g := newFakeGateway(t)
	g.rejectUpgrade.Store(true)

	_, err := Mount(context.Background(), Params{
		Endpoints:  g.endpoints(t),
		Credential: g.cred,
	})
	assert.ErrorIs(t, err, ErrAuthFailed)
}

func TestMount_TokenRejected(t *testing.T) {
	g := newFakeGateway(t)
	bad, err := credential.Encode("bob", "nope")
	require.NoError(t, err)

	_, err = Mount(context.Background(), Params{Endpoints: g.endpoints(t), Credential: bad})
	assert.ErrorIs(t, err, ErrAuthFailed)
}

func TestConn_PolicyViolationIsAuthFailure(t *testing.T) {
	g := newFakeGateway(t)
	g.wantToken = "something-else"

	conn, err := Mount(context.Background(), Params{Endpoints: g.endpoints(t), Credential: g.cred})
	require.NoError(t, err)
	defer conn.Close()

	assert.ErrorIs(t, waitDone(t, conn), ErrAuthFailed)
}

func TestConn_NormalCloseIsNotAuthFailure(t *testing.T) {
	g := newFakeGateway(t)
	conn, server := g.mount(t, DefaultClientOptions())

	require.NoError(t, server.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second)))

	err := waitDone(t, conn)
	assert.ErrorIs(t, err, ErrClosed)
	assert.False(t, errors.Is(err, ErrAuthFailed))
}

func TestConn_BuffersUntilAttachThenStreams(t *testing.T) {
	g := newFakeGateway(t)
	conn, server := g.mount(t, DefaultClientOptions())

	serverSend(t, server, protocol.CmdOutput, "hello ")
	require.Eventually(t, func() bool {
		return string(conn.Scrollback()) == "hello "
	}, 2*time.Second, 10*time.Millisecond)

	var out syncBuffer
	require.NoError(t, conn.Attach(&out))
	assert.Equal(t, "hello ", out.String())

	serverSend(t, server, protocol.CmdOutput, "world")
	require.Eventually(t, func() bool {
		return out.String() == "hello world"
	}, 2*time.Second, 10*time.Millisecond)

	assert.ErrorIs(t, conn.Attach(&syncBuffer{}), ErrBusy)

	conn.Detach()
	serverSend(t, server, protocol.CmdOutput, "!")
	require.Eventually(t, func() bool {
		return string(conn.Scrollback()) == "hello world!"
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "hello world", out.String())
}

func TestConn_TitleAndPreferences(t *testing.T) {
	g := newFakeGateway(t)
	conn, server := g.mount(t, DefaultClientOptions())

	serverSend(t, server, protocol.CmdSetWindowTitle, "bash (host)")
	serverSend(t, server, protocol.CmdSetPreferences, `{"fontSize":14}`)
	require.Eventually(t, func() bool {
		return conn.Title() == "bash (host)" && string(conn.Preferences()) == `{"fontSize":14}`
	}, 2*time.Second, 10*time.Millisecond)
}

func TestConn_FixedTitleWins(t *testing.T) {
	g := newFakeGateway(t)
	conn, server := g.mount(t, ClientOptions{TitleFixed: "prod"})

	serverSend(t, server, protocol.CmdSetWindowTitle, "bash")
	serverSend(t, server, protocol.CmdOutput, "x")
	require.Eventually(t, func() bool { return len(conn.Scrollback()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "prod", conn.Title())
}

func TestConn_InputAndResizeFrames(t *testing.T) {
	g := newFakeGateway(t)
	conn, _ := g.mount(t, DefaultClientOptions())

	n, err := conn.Write([]byte("ls\r"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, "0ls\r", string(g.nextFrame(t)))

	require.NoError(t, conn.Resize(80, 24))
	frame := g.nextFrame(t)
	require.Equal(t, protocol.CmdResizeTerminal, frame[0])
	var rm protocol.ResizeMessage
	require.NoError(t, json.Unmarshal(frame[1:], &rm))
	assert.Equal(t, protocol.ResizeMessage{Columns: 80, Rows: 24}, rm)

	require.NoError(t, conn.Pause())
	assert.Equal(t, []byte{protocol.CmdPause}, g.nextFrame(t))
	require.NoError(t, conn.Resume())
	assert.Equal(t, []byte{protocol.CmdResume}, g.nextFrame(t))
}

func TestConn_CloseEndsWithErrClosed(t *testing.T) {
	g := newFakeGateway(t)
	conn, _ := g.mount(t, DefaultClientOptions())

	require.NoError(t, conn.Close())
	assert.ErrorIs(t, conn.Err(), ErrClosed)

	_, err := conn.Write([]byte("x"))
	assert.ErrorIs(t, err, ErrClosed)
}
