package profile

import "github.com/go-chi/chi/v5"

// Routes returns the subrouter mounted under /api/users/me.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeMe)
	r.Put("/", h.HandleUpdateMe)
	return r
}
