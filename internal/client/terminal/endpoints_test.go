package terminal

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveEndpoints(t *testing.T) {
	tests := []struct {
		name      string
		page      string
		wantWS    string
		wantToken string
	}{
		{"http root", "http://host:7681/", "ws://host:7681/ws", "http://host:7681/token"},
		{"https", "https://example.com/term", "wss://example.com/term/ws", "https://example.com/term/token"},
		{"trailing slashes", "http://h/a/b///", "ws://h/a/b/ws", "http://h/a/b/token"},
		{"query forwarded", "https://h/t/?arg=1&arg=2", "wss://h/t/ws?arg=1&arg=2", "https://h/t/token"},
		{"no path", "http://h", "ws://h/ws", "http://h/token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := url.Parse(tt.page)
			require.NoError(t, err)
			got := DeriveEndpoints(u)
			assert.Equal(t, tt.wantWS, got.WS)
			assert.Equal(t, tt.wantToken, got.Token)
		})
	}
}

func TestParseEndpoints_Invalid(t *testing.T) {
	for _, raw := range []string{"ftp://h/", "http://", "://bad"} {
		_, err := ParseEndpoints(raw)
		assert.Error(t, err, raw)
	}
}

func TestShellQuote(t *testing.T) {
	assert.Equal(t, "'plain'", shellQuote("plain"))
	assert.Equal(t, `'it'\''s'`, shellQuote("it's"))
}

func TestScrollback_TrimsFromFront(t *testing.T) {
	sb := newScrollback(5)
	sb.Write([]byte("abc"))
	sb.Write([]byte("defg"))
	assert.Equal(t, "cdefg", string(sb.Snapshot()))
	assert.Equal(t, 5, sb.Len())

	snap := sb.Snapshot()
	snap[0] = 'x'
	assert.Equal(t, "cdefg", string(sb.Snapshot()))
}

func TestScrollback_DefaultSize(t *testing.T) {
	sb := newScrollback(0)
	assert.Equal(t, defaultScrollbackSize, sb.maxLen)
}
