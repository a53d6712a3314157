// Package faculty serves the read-only directory of registered faculty.
package faculty

import (
	"context"
	"net/http"

	userstore "github.com/dalemusser/teamforge/internal/app/store/users"
	"github.com/dalemusser/teamforge/internal/app/system/paging"
	"github.com/dalemusser/teamforge/internal/app/system/respond"
	"github.com/dalemusser/teamforge/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler owns the directory endpoints.
type Handler struct {
	Users *userstore.Store
	Log   *zap.Logger
}

// NewHandler constructs a faculty Handler.
func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{Users: userstore.New(db), Log: logger}
}

// ServeList handles GET /api/faculty with department/search filters.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, false)
}

// ServeAvailable handles GET /api/faculty/available: team-free faculty
// only, the candidate pool for invitations.
func (h *Handler) ServeAvailable(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, true)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, availableOnly bool) {
	p := paging.Parse(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	users, total, err := h.Users.List(ctx, userstore.ListFilter{
		Department: query.Get(r, "department"),
		Available:  availableOnly,
		Search:     query.Get(r, "search"),
		Page:       p.Page,
		PerPage:    p.PerPage,
	})
	if err != nil {
		respond.Internal(w, h.Log, "faculty: list failed", err)
		return
	}

	respond.JSON(w, http.StatusOK, map[string]any{
		"faculty":    users,
		"pagination": p.MetaFor(total),
	})
}
