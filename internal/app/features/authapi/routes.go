package authapi

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes adds the session endpoints directly on the root router, since
// /connect and /disconnect live at the top level rather than under a prefix.
func MountRoutes(r chi.Router, h *Handler) {
	r.Get("/connect", h.connect)
	r.Get("/disconnect", h.disconnect)
}
