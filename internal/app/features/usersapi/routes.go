package usersapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes builds the router for the account endpoints, mounted at /users.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Post("/", h.create)
	r.Get("/me", h.me)

	return r
}
