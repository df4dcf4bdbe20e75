// Package usersapi implements account registration and identity lookup.
package usersapi

import (
	"errors"
	"net/http"

	"github.com/dalemusser/stratafiles/internal/app/store/users"
	"github.com/dalemusser/stratafiles/internal/app/system/apierr"
	"github.com/dalemusser/stratafiles/internal/app/system/authutil"
	"github.com/dalemusser/stratafiles/internal/app/system/gate"
	"github.com/dalemusser/stratafiles/internal/app/system/jsonutil"
	"go.uber.org/zap"
)

// TokenHeader carries the session token for identity lookup.
const TokenHeader = "X-Token"

// Handler handles user account requests.
type Handler struct {
	userStore *users.Store
	gate      *gate.Gate
	logger    *zap.Logger
}

// NewHandler creates a new usersapi handler.
func NewHandler(userStore *users.Store, g *gate.Gate, logger *zap.Logger) *Handler {
	return &Handler{
		userStore: userStore,
		gate:      g,
		logger:    logger,
	}
}

type createInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserVM is the API projection of an account. The password hash never
// crosses this boundary.
type UserVM struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// create handles POST /users.
func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var in createInput
	if err := jsonutil.Decode(r, &in); err != nil {
		apierr.Write(w, apierr.Validation("Invalid JSON payload"))
		return
	}

	if in.Email == "" {
		apierr.Write(w, apierr.Validation("Missing email"))
		return
	}
	if in.Password == "" {
		apierr.Write(w, apierr.Validation("Missing password"))
		return
	}

	hash, err := authutil.HashPassword(in.Password)
	if err != nil {
		if errors.Is(err, authutil.ErrPasswordTooLong) {
			apierr.Write(w, apierr.Validation("Password too long"))
			return
		}
		h.logger.Error("failed to hash password", zap.Error(err))
		apierr.Write(w, apierr.Internal())
		return
	}

	user, err := h.userStore.Create(ctx, in.Email, hash)
	if err != nil {
		if errors.Is(err, users.ErrDuplicateEmail) {
			apierr.Write(w, apierr.Validation("Already exist"))
			return
		}
		h.logger.Error("failed to create user", zap.Error(err))
		apierr.Write(w, apierr.Internal())
		return
	}

	jsonutil.Created(w, UserVM{ID: user.ID.Hex(), Email: user.Email})
}

// me handles GET /users/me.
func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := h.gate.Authenticate(ctx, r.Header.Get(TokenHeader))
	if err != nil {
		apierr.Write(w, err)
		return
	}

	user, err := h.userStore.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			// Token outlived the account; treat the session as dead.
			apierr.Write(w, apierr.Unauthenticated())
			return
		}
		h.logger.Error("user lookup failed", zap.Error(err))
		apierr.Write(w, apierr.Internal())
		return
	}

	jsonutil.OK(w, UserVM{ID: user.ID.Hex(), Email: user.Email})
}
