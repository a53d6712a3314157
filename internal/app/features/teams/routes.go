package teams

import "github.com/go-chi/chi/v5"

// Routes returns the subrouter mounted under /api/teams.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.HandleCreate)
	r.Get("/", h.ServeList)
	r.Get("/me", h.ServeMine)
	r.Get("/{teamID}", h.ServeTeam)
	r.Put("/{teamID}", h.HandleUpdate)
	r.Delete("/{teamID}", h.HandleDisband)
	r.Delete("/{teamID}/leave", h.HandleLeave)
	r.Post("/{teamID}/members", h.HandleAddMember)
	r.Delete("/{teamID}/members/{memberID}", h.HandleRemoveMember)
	r.Get("/{teamID}/available-faculty", h.ServeAvailableFaculty)
	r.Get("/{teamID}/eligibility", h.ServeEligibility)
	return r
}
