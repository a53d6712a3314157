package faculty

import "github.com/go-chi/chi/v5"

// Routes returns the subrouter mounted under /api/faculty.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeList)
	r.Get("/available", h.ServeAvailable)
	return r
}
