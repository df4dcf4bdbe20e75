package filesapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes builds the router for the file endpoints, mounted at /files.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Post("/", h.upload)
	r.Get("/", h.index)
	r.Get("/{id}", h.show)
	r.Put("/{id}/publish", h.publish)
	r.Put("/{id}/unpublish", h.unpublish)
	r.Get("/{id}/data", h.data)

	return r
}
