// Package protocol defines the ttyd websocket framing shared by the client
// and the gateway.
//
// Every message after the handshake starts with a command byte followed by
// its payload.
package protocol

import "encoding/json"

// Subprotocol is the websocket subprotocol spoken by ttyd-compatible servers.
const Subprotocol = "tty"

// Client to server commands.
const (
	CmdInput          byte = '0'
	CmdResizeTerminal byte = '1'
	CmdPause          byte = '2'
	CmdResume         byte = '3'
)

// Server to client commands.
const (
	CmdOutput         byte = '0'
	CmdSetWindowTitle byte = '1'
	CmdSetPreferences byte = '2'
)

// InitMessage is the first frame a client sends after the websocket opens.
type InitMessage struct {
	AuthToken string `json:"AuthToken"`
	Columns   int    `json:"columns"`
	Rows      int    `json:"rows"`
}

// ResizeMessage is the payload of CmdResizeTerminal.
type ResizeMessage struct {
	Columns int `json:"columns"`
	Rows    int `json:"rows"`
}

// TokenResponse is the body returned by the token endpoint.
type TokenResponse struct {
	Token string `json:"token"`
}

// Frame prefixes payload with cmd.
func Frame(cmd byte, payload []byte) []byte {
	out := make([]byte, 0, len(payload)+1)
	out = append(out, cmd)
	return append(out, payload...)
}

// ResizeFrame builds a CmdResizeTerminal frame.
func ResizeFrame(cols, rows int) []byte {
	b, _ := json.Marshal(ResizeMessage{Columns: cols, Rows: rows})
	return Frame(CmdResizeTerminal, b)
}
