// Package invitations serves the solicitation flow: leader invites,
// member join requests, and the accept/decline/cancel transitions.
package invitations

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/teamforge/internal/app/roster"
	invitationstore "github.com/dalemusser/teamforge/internal/app/store/invitations"
	"github.com/dalemusser/teamforge/internal/app/system/auth"
	"github.com/dalemusser/teamforge/internal/app/system/htmlsanitize"
	"github.com/dalemusser/teamforge/internal/app/system/inputval"
	"github.com/dalemusser/teamforge/internal/app/system/mailer"
	"github.com/dalemusser/teamforge/internal/app/system/respond"
	"github.com/dalemusser/teamforge/internal/app/system/timeouts"
	"github.com/dalemusser/teamforge/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler owns the invitation endpoints.
type Handler struct {
	Engine *roster.Engine
	Mail   *mailer.Mailer
	Log    *zap.Logger

	SiteName string
	// NotifyOnDecline mails the sender when their invitation is declined.
	NotifyOnDecline bool
}

// NewHandler constructs an invitations Handler.
func NewHandler(engine *roster.Engine, mail *mailer.Mailer, siteName string, notifyOnDecline bool, logger *zap.Logger) *Handler {
	return &Handler{
		Engine:          engine,
		Mail:            mail,
		Log:             logger,
		SiteName:        siteName,
		NotifyOnDecline: notifyOnDecline,
	}
}

type inviteRequest struct {
	TeamID  string `json:"team_id" validate:"required,objectid" label:"Team"`
	ToID    string `json:"to_id" validate:"required,objectid" label:"Recipient"`
	Message string `json:"message" validate:"max=500" label:"Message"`
}

// HandleInvite handles POST /api/invitations: the leader solicits a
// candidate.
func (h *Handler) HandleInvite(w http.ResponseWriter, r *http.Request) {
	uid, ok := auth.CurrentUserID(r)
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "Sign in required.")
		return
	}

	var req inviteRequest
	if err := respond.Decode(w, r, &req); err != nil {
		return
	}
	if res := inputval.Validate(req); res.HasErrors() {
		respond.Violations(w, "Validation failed.", res.Messages())
		return
	}
	teamID, _ := primitive.ObjectIDFromHex(req.TeamID)
	toID, _ := primitive.ObjectIDFromHex(req.ToID)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	inv, err := h.Engine.Invite(ctx, uid, teamID, toID, htmlsanitize.StripTags(req.Message))
	if err != nil {
		h.writeEngineError(w, r, err, "invite")
		return
	}
	respond.JSON(w, http.StatusCreated, inv)
}

type joinRequest struct {
	Message string `json:"message" validate:"max=500" label:"Message"`
}

// HandleRequestJoin handles POST /api/teams/{teamID}/join: a team-free
// user asks the leader for a slot.
func (h *Handler) HandleRequestJoin(w http.ResponseWriter, r *http.Request) {
	uid, ok := auth.CurrentUserID(r)
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "Sign in required.")
		return
	}
	teamID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "teamID"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid ID in URL.")
		return
	}

	var req joinRequest
	if err := respond.Decode(w, r, &req); err != nil {
		return
	}
	if res := inputval.Validate(req); res.HasErrors() {
		respond.Violations(w, "Validation failed.", res.Messages())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	inv, err := h.Engine.RequestJoin(ctx, uid, teamID, htmlsanitize.StripTags(req.Message))
	if err != nil {
		h.writeEngineError(w, r, err, "request join")
		return
	}
	respond.JSON(w, http.StatusCreated, inv)
}

// ServeMine handles GET /api/invitations: everything addressed to or sent
// by the caller, newest first. ?pending=true narrows to open ones.
func (h *Handler) ServeMine(w http.ResponseWriter, r *http.Request) {
	uid, ok := auth.CurrentUserID(r)
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "Sign in required.")
		return
	}
	pendingOnly := query.Get(r, "pending") == "true"

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	invs, err := h.Engine.Invitations().ListForUser(ctx, uid, pendingOnly)
	if err != nil {
		respond.Internal(w, h.Log, "invitations: list failed", err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"invitations": invs})
}

// ServeForTeam handles GET /api/invitations/team/{teamID}. Leader only.
func (h *Handler) ServeForTeam(w http.ResponseWriter, r *http.Request) {
	uid, ok := auth.CurrentUserID(r)
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "Sign in required.")
		return
	}
	teamID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "teamID"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid ID in URL.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	team, err := h.Engine.Teams().GetByID(ctx, teamID)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			respond.Error(w, http.StatusNotFound, "Team not found.")
			return
		}
		respond.Internal(w, h.Log, "invitations: load team failed", err)
		return
	}
	if team.LeaderID != uid {
		respond.Error(w, http.StatusForbidden, "Only the team leader may do this.")
		return
	}

	invs, err := h.Engine.Invitations().ListForTeam(ctx, teamID, query.Get(r, "pending") == "true")
	if err != nil {
		respond.Internal(w, h.Log, "invitations: team list failed", err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"invitations": invs})
}

// HandleAccept handles POST /api/invitations/{invitationID}/accept.
func (h *Handler) HandleAccept(w http.ResponseWriter, r *http.Request) {
	uid, ok := auth.CurrentUserID(r)
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "Sign in required.")
		return
	}
	invID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "invitationID"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid ID in URL.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	team, inv, err := h.Engine.Accept(ctx, uid, invID)
	if err != nil {
		h.writeEngineError(w, r, err, "accept invitation")
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{
		"invitation": inv,
		"team":       team,
	})
}

// HandleDecline handles POST /api/invitations/{invitationID}/decline.
func (h *Handler) HandleDecline(w http.ResponseWriter, r *http.Request) {
	uid, ok := auth.CurrentUserID(r)
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "Sign in required.")
		return
	}
	invID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "invitationID"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid ID in URL.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	inv, err := h.Engine.Decline(ctx, uid, invID)
	if err != nil {
		h.writeEngineError(w, r, err, "decline invitation")
		return
	}

	if h.NotifyOnDecline && inv.Kind == models.KindInvite {
		h.notifyDecline(inv)
	}
	respond.JSON(w, http.StatusOK, inv)
}

// HandleDeclineAll handles POST /api/invitations/decline-all: declines
// every pending invitation addressed to the caller.
func (h *Handler) HandleDeclineAll(w http.ResponseWriter, r *http.Request) {
	uid, ok := auth.CurrentUserID(r)
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "Sign in required.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	pending, err := h.Engine.Invitations().ListForUser(ctx, uid, true)
	if err != nil {
		respond.Internal(w, h.Log, "invitations: list failed", err)
		return
	}

	declined := 0
	for _, inv := range pending {
		if inv.ToID != uid {
			continue
		}
		if _, err := h.Engine.Decline(ctx, uid, inv.ID); err != nil {
			// Raced with another resolution; skip and keep going.
			if errors.Is(err, invitationstore.ErrNotPending) {
				continue
			}
			respond.Internal(w, h.Log, "invitations: decline-all failed", err)
			return
		}
		declined++
	}
	respond.JSON(w, http.StatusOK, map[string]int{"declined": declined})
}

// HandleCancel handles POST /api/invitations/{invitationID}/cancel: the
// sender withdraws a pending solicitation.
func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	uid, ok := auth.CurrentUserID(r)
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "Sign in required.")
		return
	}
	invID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "invitationID"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid ID in URL.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	inv, err := h.Engine.Cancel(ctx, uid, invID)
	if err != nil {
		h.writeEngineError(w, r, err, "cancel invitation")
		return
	}
	respond.JSON(w, http.StatusOK, inv)
}

func (h *Handler) notifyDecline(inv models.Invitation) {
	go func() {
		msg := mailer.BuildDeclineEmail(mailer.DeclineEmailData{
			SiteName:     h.SiteName,
			TeamName:     inv.TeamName,
			DeclinerName: inv.ToName,
		})
		ctx, cancel := context.WithTimeout(context.Background(), timeouts.Short())
		defer cancel()

		sender, err := h.Engine.Users().GetByID(ctx, inv.FromID)
		if err != nil {
			h.Log.Warn("decline mail: load sender failed", zap.Error(err))
			return
		}
		msg.To = sender.Email
		if err := h.Mail.Send(msg); err != nil {
			h.Log.Error("decline mail failed", zap.String("to", sender.Email), zap.Error(err))
		}
	}()
}

// writeEngineError maps roster sentinel errors onto the HTTP taxonomy. A
// terminal invitation conflict names its current status.
func (h *Handler) writeEngineError(w http.ResponseWriter, r *http.Request, err error, op string) {
	var rv *roster.RuleViolationError
	switch {
	case errors.As(err, &rv):
		respond.Violations(w, "Team composition rules violated.", rv.Violations)
	case errors.Is(err, invitationstore.ErrNotPending):
		h.writeTerminalConflict(w, r)
	case errors.Is(err, invitationstore.ErrDuplicatePending):
		respond.Error(w, http.StatusConflict, "There is already a pending invitation for this user and team.")
	case errors.Is(err, roster.ErrNotRecipient):
		respond.Error(w, http.StatusForbidden, "This invitation is not addressed to you.")
	case errors.Is(err, roster.ErrNotSender):
		respond.Error(w, http.StatusForbidden, "Only the sender may cancel an invitation.")
	case errors.Is(err, roster.ErrNotLeader):
		respond.Error(w, http.StatusForbidden, "Only the team leader may do this.")
	case errors.Is(err, roster.ErrAlreadyOnTeam):
		respond.Error(w, http.StatusConflict, "The user already belongs to a team.")
	case errors.Is(err, roster.ErrTeamFull):
		respond.Error(w, http.StatusConflict, "This team is already at capacity.")
	case errors.Is(err, roster.ErrTeamInactive):
		respond.Error(w, http.StatusConflict, "This team has been disbanded.")
	case errors.Is(err, roster.ErrMemberNotFound):
		respond.Error(w, http.StatusNotFound, "The referenced user does not exist.")
	case errors.Is(err, mongo.ErrNoDocuments):
		respond.Error(w, http.StatusNotFound, "Invitation not found.")
	default:
		respond.Internal(w, h.Log, op+" failed", err)
	}
}

// writeTerminalConflict reloads the invitation so the 409 can name the
// status that foreclosed the transition.
func (h *Handler) writeTerminalConflict(w http.ResponseWriter, r *http.Request) {
	msg := "Invitation is no longer pending."
	if invID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "invitationID")); err == nil {
		ctx, cancel := context.WithTimeout(context.Background(), timeouts.Short())
		defer cancel()
		if inv, gerr := h.Engine.Invitations().GetByID(ctx, invID); gerr == nil {
			msg = "Invitation is already " + inv.Status + "."
		}
	}
	respond.Error(w, http.StatusConflict, msg)
}
