package journals

import "github.com/go-chi/chi/v5"

// MountRoutes registers journal routes on r.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Post("/{id}/post", h.Post)
	r.Post("/{id}/void", h.Void)
	r.Post("/{id}/reverse", h.Reverse)
}
