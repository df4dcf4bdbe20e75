package status

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes adds the status endpoints directly on the root router.
func MountRoutes(r chi.Router, h *Handler) {
	r.Get("/status", h.status)
	r.Get("/stats", h.stats)
}
