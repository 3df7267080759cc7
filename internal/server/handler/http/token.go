package http

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/atinyakov/cloudtty/internal/middleware"
	"github.com/atinyakov/cloudtty/internal/models"
	"github.com/atinyakov/cloudtty/internal/protocol"
)

// TokenIssuer creates single-use connection tokens.
type TokenIssuer interface {
	IssueToken(ctx context.Context, login string) (models.Token, error)
}

// TokenHandler hands out connection tokens to authenticated users.
type TokenHandler struct {
	Tokens TokenIssuer
	Logger *zap.Logger
}

// Token responds with {"token": "..."} for the login BasicAuth stored in the
// request context.
func (h *TokenHandler) Token(w http.ResponseWriter, r *http.Request) {
	login := middleware.GetLoginFromContext(r.Context())
	if login == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	tok, err := h.Tokens.IssueToken(r.Context(), login)
	if err != nil {
		h.Logger.Error("failed to issue token", zap.String("login", login), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(protocol.TokenResponse{Token: tok.Value})
}
