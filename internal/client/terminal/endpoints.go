package terminal

import (
	"fmt"
	"net/url"
	"strings"
)

// Endpoints are the two URLs a connection needs: the websocket that carries
// the terminal and the companion endpoint that exchanges a credential for a
// connection token.
type Endpoints struct {
	WS    string
	Token string
}

// DeriveEndpoints builds the endpoints from the page URL the terminal is
// served at. The websocket uses wss when the page is https and ws otherwise;
// trailing slashes are dropped from the path and the page query is forwarded
// to the websocket.
func DeriveEndpoints(page *url.URL) Endpoints {
	wsScheme := "ws"
	if page.Scheme == "https" {
		wsScheme = "wss"
	}
	path := strings.TrimRight(page.Path, "/")

	ws := wsScheme + "://" + page.Host + path + "/ws"
	if page.RawQuery != "" {
		ws += "?" + page.RawQuery
	}
	return Endpoints{
		WS:    ws,
		Token: page.Scheme + "://" + page.Host + path + "/token",
	}
}

// ParseEndpoints parses a page URL and derives its endpoints. Only http and
// https pages are accepted.
func ParseEndpoints(raw string) (Endpoints, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Endpoints{}, fmt.Errorf("parse url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Endpoints{}, fmt.Errorf("url %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return Endpoints{}, fmt.Errorf("url %q: missing host", raw)
	}
	return DeriveEndpoints(u), nil
}
