package submissions

import "github.com/go-chi/chi/v5"

// Routes mounts the submission endpoints. Mounted under /api/submissions
// behind the signed-in middleware.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.HandleCreate)
	r.Get("/", h.ServeList)
	r.Get("/mine", h.ServeMine)
	r.Get("/tracks", h.ServeTracks)
	r.Get("/stats", h.ServeStats)
	r.Get("/{submissionID}", h.ServeSubmission)
	r.Put("/{submissionID}", h.HandleUpdate)
	r.Delete("/{submissionID}", h.HandleDelete)
	r.Patch("/{submissionID}/status", h.HandleSetStatus)

	return r
}
