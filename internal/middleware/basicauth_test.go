package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/atinyakov/cloudtty/internal/credential"
)

var errRejected = errors.New("rejected")

// dummyHandler is a placeholder that records if it was called and the context it received.
type dummyHandler struct {
	called bool
	ctx    context.Context
}

func (d *dummyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d.called = true
	d.ctx = r.Context()
	w.WriteHeader(http.StatusOK)
}

type fakeAuthenticator map[string]string

func (f fakeAuthenticator) Authenticate(ctx context.Context, login, password string) error {
	if login == "broken" {
		return errors.New("db down")
	}
	if pw, ok := f[login]; ok && pw == password {
		return nil
	}
	return errRejected
}

func authHeader(t *testing.T, login, password string) string {
	t.Helper()
	c, err := credential.Encode(login, password)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return c.Authorization()
}

func TestBasicAuth(t *testing.T) {
	auth := fakeAuthenticator{"alice": "secret"}

	tests := []struct {
		name       string
		header     string
		wantCode   int
		wantCalled bool
	}{
		{"no header", "", http.StatusUnauthorized, false},
		{"other scheme", "Bearer abc", http.StatusUnauthorized, false},
		{"malformed", "Basic !!!", http.StatusUnauthorized, false},
		{"wrong password", authHeader(t, "alice", "nope"), http.StatusUnauthorized, false},
		{"backend error", authHeader(t, "broken", "x"), http.StatusInternalServerError, false},
		{"valid", authHeader(t, "alice", "secret"), http.StatusOK, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dummy := &dummyHandler{}
			h := BasicAuth(auth, errRejected)(dummy)
			rec := httptest.NewRecorder()
			req := httptest.NewRequest("GET", "/token", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Errorf("expected %d, got %d", tt.wantCode, rec.Code)
			}
			if dummy.called != tt.wantCalled {
				t.Errorf("next called = %v; want %v", dummy.called, tt.wantCalled)
			}
			if tt.wantCode == http.StatusUnauthorized {
				if got := rec.Header().Get("WWW-Authenticate"); got != `Basic realm="cloudtty"` {
					t.Errorf("unexpected challenge %q", got)
				}
			}
			if tt.wantCalled {
				if got := GetLoginFromContext(dummy.ctx); got != "alice" {
					t.Errorf("expected context user 'alice', got '%s'", got)
				}
			}
		})
	}
}

func TestGetLoginFromContext(t *testing.T) {
	if empty := GetLoginFromContext(context.Background()); empty != "" {
		t.Errorf("expected empty string for missing user, got '%s'", empty)
	}
	ctx := context.WithValue(context.Background(), userKey, "bob")
	if val := GetLoginFromContext(ctx); val != "bob" {
		t.Errorf("expected 'bob', got '%s'", val)
	}
}
