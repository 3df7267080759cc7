// Package http provides HTTP routing and handlers for the cloudtty gateway.
package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/atinyakov/cloudtty/internal/middleware"
	"github.com/atinyakov/cloudtty/internal/service"
)

// NewRouter constructs and returns an HTTP handler that serves the terminal
// endpoints under basePath.
//
// Routes:
//
//	GET <base>/token → tokenHandler.Token (protected by BasicAuth)
//	GET <base>/ws    → terminalHandler (token checked in the handshake)
//
// Middleware chain (applied in order):
//  1. RequestID
//  2. WithRequestLogging(logger)
//  3. Recoverer
func NewRouter(
	basePath string,
	auth middleware.Authenticator,
	tokenHandler *TokenHandler,
	terminalHandler *TerminalHandler,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(middleware.WithRequestLogging(logger))
	r.Use(chiMiddleware.Recoverer)

	prefix := strings.TrimRight(basePath, "/")

	r.Group(func(r chi.Router) {
		r.Use(chiMiddleware.NoCache)
		r.Use(middleware.BasicAuth(auth, service.ErrInvalidCredentials))
		r.Get(prefix+"/token", tokenHandler.Token)
	})
	r.Get(prefix+"/ws", terminalHandler.ServeHTTP)

	return r
}
