// Package authapi implements session sign-in and sign-out.
//
// GET /connect exchanges Basic credentials for a session token; GET
// /disconnect destroys the token named in the X-Token header. Credential
// failures never distinguish "no such account" from "wrong password".
package authapi

import (
	"errors"
	"net/http"

	"github.com/dalemusser/stratafiles/internal/app/store/tokens"
	"github.com/dalemusser/stratafiles/internal/app/store/users"
	"github.com/dalemusser/stratafiles/internal/app/system/apierr"
	"github.com/dalemusser/stratafiles/internal/app/system/authutil"
	"github.com/dalemusser/stratafiles/internal/app/system/jsonutil"
	"go.uber.org/zap"
)

// TokenHeader carries the session token for sign-out.
const TokenHeader = "X-Token"

// Handler handles authentication requests.
type Handler struct {
	userStore  *users.Store
	tokenStore *tokens.Store
	logger     *zap.Logger
}

// NewHandler creates a new authapi handler.
func NewHandler(userStore *users.Store, tokenStore *tokens.Store, logger *zap.Logger) *Handler {
	return &Handler{
		userStore:  userStore,
		tokenStore: tokenStore,
		logger:     logger,
	}
}

// connectResponse is the body of a successful sign-in.
type connectResponse struct {
	Token string `json:"token"`
}

// connect handles GET /connect.
func (h *Handler) connect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	email, password, ok := r.BasicAuth()
	if !ok {
		apierr.Write(w, apierr.Unauthenticated())
		return
	}

	user, err := h.userStore.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			apierr.Write(w, apierr.Unauthenticated())
			return
		}
		h.logger.Error("user lookup failed during sign-in", zap.Error(err))
		apierr.Write(w, apierr.Internal())
		return
	}

	if !authutil.CheckPassword(user.PasswordHash, password) {
		apierr.Write(w, apierr.Unauthenticated())
		return
	}

	token, err := h.tokenStore.Create(ctx, user.ID)
	if err != nil {
		h.logger.Error("failed to create session token",
			zap.String("user_id", user.ID.Hex()),
			zap.Error(err))
		apierr.Write(w, apierr.Internal())
		return
	}

	jsonutil.OK(w, connectResponse{Token: token})
}

// disconnect handles GET /disconnect.
//
// The token must resolve before it is destroyed: an unknown or expired
// token is 401, not a silent success.
func (h *Handler) disconnect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	raw := r.Header.Get(TokenHeader)
	if raw == "" {
		apierr.Write(w, apierr.Unauthenticated())
		return
	}

	if _, err := h.tokenStore.Resolve(ctx, raw); err != nil {
		if errors.Is(err, tokens.ErrNotFound) {
			apierr.Write(w, apierr.Unauthenticated())
			return
		}
		h.logger.Error("token lookup failed during sign-out", zap.Error(err))
		apierr.Write(w, apierr.Internal())
		return
	}

	if err := h.tokenStore.Destroy(ctx, raw); err != nil {
		h.logger.Error("failed to destroy session token", zap.Error(err))
		apierr.Write(w, apierr.Internal())
		return
	}

	jsonutil.NoContent(w)
}
