package invitations

import "github.com/go-chi/chi/v5"

// Routes returns the subrouter mounted under /api/invitations. The join
// request endpoint lives under /api/teams and is registered by bootstrap.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.HandleInvite)
	r.Get("/", h.ServeMine)
	r.Get("/team/{teamID}", h.ServeForTeam)
	r.Post("/decline-all", h.HandleDeclineAll)
	r.Post("/{invitationID}/accept", h.HandleAccept)
	r.Post("/{invitationID}/decline", h.HandleDecline)
	r.Post("/{invitationID}/cancel", h.HandleCancel)
	return r
}
