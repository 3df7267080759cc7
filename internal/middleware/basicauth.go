// Package middleware provides HTTP middlewares for authentication and logging.
package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/atinyakov/cloudtty/internal/credential"
)

type ctxKey string

const userKey ctxKey = "user"

// Realm is announced in the WWW-Authenticate challenge.
const Realm = "cloudtty"

// Authenticator checks a login and password pair.
type Authenticator interface {
	Authenticate(ctx context.Context, login, password string) error
}

// BasicAuth is a middleware that enforces HTTP basic authentication.
//
// The Authorization header carries the encoded credential. On success the
// login is stored in the request context so it can be used downstream as the
// authenticated user. Missing or rejected credentials get a 401 with a basic
// challenge; errors from the authenticator other than a rejection get a 500.
func BasicAuth(auth Authenticator, rejected error) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			encoded, ok := credential.FromAuthorization(r.Header.Get("Authorization"))
			if !ok {
				challenge(w)
				return
			}
			login, password, err := encoded.Decode()
			if err != nil {
				challenge(w)
				return
			}
			err = auth.Authenticate(r.Context(), login, password)
			if errors.Is(err, rejected) {
				challenge(w)
				return
			}
			if err != nil {
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			ctx := context.WithValue(r.Context(), userKey, login)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func challenge(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="`+Realm+`"`)
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}

// GetLoginFromContext extracts the authenticated login from the request
// context. Returns an empty string if not found.
func GetLoginFromContext(ctx context.Context) string {
	val := ctx.Value(userKey)
	if s, ok := val.(string); ok {
		return s
	}
	return ""
}
