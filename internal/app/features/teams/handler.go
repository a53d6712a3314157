// Package teams serves team formation and roster management. All
// mutations route through the roster engine; handlers translate its
// sentinel errors into the HTTP error taxonomy.
package teams

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/teamforge/internal/app/policy/teampolicy"
	"github.com/dalemusser/teamforge/internal/app/roster"
	teamstore "github.com/dalemusser/teamforge/internal/app/store/teams"
	userstore "github.com/dalemusser/teamforge/internal/app/store/users"
	"github.com/dalemusser/teamforge/internal/app/system/auth"
	"github.com/dalemusser/teamforge/internal/app/system/htmlsanitize"
	"github.com/dalemusser/teamforge/internal/app/system/inputval"
	"github.com/dalemusser/teamforge/internal/app/system/mailer"
	"github.com/dalemusser/teamforge/internal/app/system/paging"
	"github.com/dalemusser/teamforge/internal/app/system/respond"
	"github.com/dalemusser/teamforge/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler owns the team endpoints.
type Handler struct {
	Engine   *roster.Engine
	Users    *userstore.Store
	Mail     *mailer.Mailer
	Log      *zap.Logger
	SiteName string
}

// NewHandler constructs a teams Handler.
func NewHandler(db *mongo.Database, engine *roster.Engine, mail *mailer.Mailer, siteName string, logger *zap.Logger) *Handler {
	return &Handler{
		Engine:   engine,
		Users:    userstore.New(db),
		Mail:     mail,
		Log:      logger,
		SiteName: siteName,
	}
}

type createRequest struct {
	Name        string   `json:"name" validate:"required,min=3,max=60" label:"Team name"`
	Description string   `json:"description" validate:"max=1000" label:"Description"`
	MemberIDs   []string `json:"member_ids" validate:"required,dive,objectid" label:"Members"`
}

// HandleCreate forms a complete team in one request: the caller becomes
// leader, the listed users fill the remaining slots.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	uid, ok := auth.CurrentUserID(r)
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "Sign in required.")
		return
	}

	var req createRequest
	if err := respond.Decode(w, r, &req); err != nil {
		return
	}
	if res := inputval.Validate(req); res.HasErrors() {
		respond.Violations(w, "Validation failed.", res.Messages())
		return
	}

	memberIDs := make([]primitive.ObjectID, 0, len(req.MemberIDs))
	for _, s := range req.MemberIDs {
		id, err := primitive.ObjectIDFromHex(s)
		if err != nil {
			respond.Error(w, http.StatusBadRequest, "Members contains an invalid ID.")
			return
		}
		memberIDs = append(memberIDs, id)
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	team, err := h.Engine.CreateTeam(ctx, uid, req.Name, htmlsanitize.StripTags(req.Description), memberIDs)
	if err != nil {
		h.writeEngineError(w, err, "create team")
		return
	}

	h.notifyTeamCreated(team.ID, team.Name, team.LeaderName, team.MemberIDs, team.MemberNames)
	respond.JSON(w, http.StatusCreated, team)
}

// ServeList handles GET /api/teams.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	p := paging.Parse(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	teams, total, err := h.Engine.Teams().List(ctx, teamstore.ListFilter{
		EligibleOnly: query.Get(r, "eligible") == "true",
		Search:       query.Get(r, "search"),
		Page:         p.Page,
		PerPage:      p.PerPage,
	})
	if err != nil {
		respond.Internal(w, h.Log, "teams: list failed", err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{
		"teams":      teams,
		"pagination": p.MetaFor(total),
	})
}

// ServeMine handles GET /api/teams/me.
func (h *Handler) ServeMine(w http.ResponseWriter, r *http.Request) {
	uid, ok := auth.CurrentUserID(r)
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "Sign in required.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	user, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		respond.Internal(w, h.Log, "teams: load user failed", err)
		return
	}
	if !user.OnTeam() {
		respond.Error(w, http.StatusNotFound, "You are not on a team.")
		return
	}

	team, err := h.Engine.Teams().GetByID(ctx, *user.TeamID)
	if err != nil {
		respond.Internal(w, h.Log, "teams: load team failed", err)
		return
	}
	respond.JSON(w, http.StatusOK, team)
}

// ServeTeam handles GET /api/teams/{teamID}.
func (h *Handler) ServeTeam(w http.ResponseWriter, r *http.Request) {
	teamID, ok := pathID(w, r, "teamID")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	team, err := h.Engine.Teams().GetByID(ctx, teamID)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			respond.Error(w, http.StatusNotFound, "Team not found.")
			return
		}
		respond.Internal(w, h.Log, "teams: load failed", err)
		return
	}
	respond.JSON(w, http.StatusOK, team)
}

type updateRequest struct {
	Name        string `json:"name" validate:"required,min=3,max=60" label:"Team name"`
	Description string `json:"description" validate:"max=1000" label:"Description"`
}

// HandleUpdate lets the leader rename the team or edit its description.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	uid, ok := auth.CurrentUserID(r)
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "Sign in required.")
		return
	}
	teamID, ok := pathID(w, r, "teamID")
	if !ok {
		return
	}

	var req updateRequest
	if err := respond.Decode(w, r, &req); err != nil {
		return
	}
	if res := inputval.Validate(req); res.HasErrors() {
		respond.Violations(w, "Validation failed.", res.Messages())
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
		respond.Internal(w, h.Log, "teams: load failed", err)
		return
	}
	if !teampolicy.IsLeader(team, uid) {
		respond.Error(w, http.StatusForbidden, "Only the team leader may do this.")
		return
	}
	if !teampolicy.CanManage(team, uid) {
		respond.Error(w, http.StatusConflict, "This team has been disbanded.")
		return
	}

	if err := h.Engine.Teams().UpdateInfo(ctx, teamID, req.Name, htmlsanitize.StripTags(req.Description)); err != nil {
		if err == teamstore.ErrDuplicateTeamName {
			respond.Error(w, http.StatusConflict, "A team with this name already exists.")
			return
		}
		respond.Internal(w, h.Log, "teams: update failed", err)
		return
	}

	team, err = h.Engine.Teams().GetByID(ctx, teamID)
	if err != nil {
		respond.Internal(w, h.Log, "teams: reload failed", err)
		return
	}
	respond.JSON(w, http.StatusOK, team)
}

// HandleDisband handles DELETE /api/teams/{teamID}.
func (h *Handler) HandleDisband(w http.ResponseWriter, r *http.Request) {
	uid, ok := auth.CurrentUserID(r)
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "Sign in required.")
		return
	}
	teamID, ok := pathID(w, r, "teamID")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	if _, err := h.Engine.Disband(ctx, uid, teamID); err != nil {
		h.writeEngineError(w, err, "disband team")
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"message": "Team disbanded."})
}

// HandleLeave handles DELETE /api/teams/{teamID}/leave.
func (h *Handler) HandleLeave(w http.ResponseWriter, r *http.Request) {
	uid, ok := auth.CurrentUserID(r)
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "Sign in required.")
		return
	}
	teamID, ok := pathID(w, r, "teamID")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	user, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		respond.Internal(w, h.Log, "teams: load user failed", err)
		return
	}
	if user.TeamID == nil || *user.TeamID != teamID {
		respond.Error(w, http.StatusForbidden, "You are not a member of this team.")
		return
	}

	if _, err := h.Engine.Leave(ctx, uid); err != nil {
		h.writeEngineError(w, err, "leave team")
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"message": "You have left the team."})
}

type addMemberRequest struct {
	UserID string `json:"user_id" validate:"required,objectid" label:"User"`
}

// HandleAddMember handles POST /api/teams/{teamID}/members.
func (h *Handler) HandleAddMember(w http.ResponseWriter, r *http.Request) {
	uid, ok := auth.CurrentUserID(r)
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "Sign in required.")
		return
	}
	teamID, ok := pathID(w, r, "teamID")
	if !ok {
		return
	}

	var req addMemberRequest
	if err := respond.Decode(w, r, &req); err != nil {
		return
	}
	if res := inputval.Validate(req); res.HasErrors() {
		respond.Violations(w, "Validation failed.", res.Messages())
		return
	}
	userID, _ := primitive.ObjectIDFromHex(req.UserID)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	team, err := h.Engine.AddMember(ctx, uid, teamID, userID)
	if err != nil {
		h.writeEngineError(w, err, "add member")
		return
	}
	respond.JSON(w, http.StatusOK, team)
}

// HandleRemoveMember handles DELETE /api/teams/{teamID}/members/{memberID}.
func (h *Handler) HandleRemoveMember(w http.ResponseWriter, r *http.Request) {
	uid, ok := auth.CurrentUserID(r)
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "Sign in required.")
		return
	}
	teamID, ok := pathID(w, r, "teamID")
	if !ok {
		return
	}
	memberID, ok := pathID(w, r, "memberID")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	team, err := h.Engine.RemoveMember(ctx, uid, teamID, memberID)
	if err != nil {
		h.writeEngineError(w, err, "remove member")
		return
	}
	respond.JSON(w, http.StatusOK, team)
}

// ServeAvailableFaculty handles GET /api/teams/{teamID}/available-faculty:
// the team-free candidates a leader could still invite.
func (h *Handler) ServeAvailableFaculty(w http.ResponseWriter, r *http.Request) {
	if _, ok := pathID(w, r, "teamID"); !ok {
		return
	}
	p := paging.Parse(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	users, total, err := h.Users.List(ctx, userstore.ListFilter{
		Department: query.Get(r, "department"),
		Available:  true,
		Search:     query.Get(r, "search"),
		Page:       p.Page,
		PerPage:    p.PerPage,
	})
	if err != nil {
		respond.Internal(w, h.Log, "teams: available faculty failed", err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{
		"faculty":    users,
		"pagination": p.MetaFor(total),
	})
}

// ServeEligibility handles GET /api/teams/{teamID}/eligibility: recompute
// from the live roster and return the cached verdict.
func (h *Handler) ServeEligibility(w http.ResponseWriter, r *http.Request) {
	teamID, ok := pathID(w, r, "teamID")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	team, err := h.Engine.Recompute(ctx, teamID)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			respond.Error(w, http.StatusNotFound, "Team not found.")
			return
		}
		respond.Internal(w, h.Log, "teams: eligibility failed", err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{
		"is_eligible":         team.IsEligible,
		"eligibility_details": team.EligibilityDetails,
	})
}

// notifyTeamCreated mails the formation notice to every member.
// Fire-and-forget: failures never unwind the created team.
func (h *Handler) notifyTeamCreated(teamID primitive.ObjectID, teamName, leaderName string, memberIDs []primitive.ObjectID, memberNames []string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeouts.Medium())
		defer cancel()

		members, err := h.Users.GetMany(ctx, memberIDs)
		if err != nil {
			h.Log.Error("team-created mail: load members failed",
				zap.String("team_id", teamID.Hex()), zap.Error(err))
			return
		}
		for _, m := range members {
			msg := mailer.BuildTeamCreatedEmail(mailer.TeamCreatedEmailData{
				SiteName:   h.SiteName,
				TeamName:   teamName,
				LeaderName: leaderName,
				Members:    memberNames,
			})
			msg.To = m.Email
			if err := h.Mail.Send(msg); err != nil {
				h.Log.Error("team-created mail failed",
					zap.String("to", m.Email), zap.Error(err))
			}
		}
	}()
}

// writeEngineError maps roster sentinel errors onto the HTTP taxonomy.
func (h *Handler) writeEngineError(w http.ResponseWriter, err error, op string) {
	var rv *roster.RuleViolationError
	switch {
	case errors.As(err, &rv):
		respond.Violations(w, "Team composition rules violated.", rv.Violations)
	case errors.Is(err, roster.ErrAlreadyOnTeam):
		respond.Error(w, http.StatusConflict, "A participant already belongs to a team.")
	case errors.Is(err, roster.ErrNotOnTeam):
		respond.Error(w, http.StatusBadRequest, "The user is not on this team.")
	case errors.Is(err, roster.ErrNotLeader):
		respond.Error(w, http.StatusForbidden, "Only the team leader may do this.")
	case errors.Is(err, roster.ErrLeaderCannotLeave):
		respond.Error(w, http.StatusBadRequest, "The leader cannot leave the team. Disband it instead.")
	case errors.Is(err, roster.ErrTeamInactive):
		respond.Error(w, http.StatusConflict, "This team has been disbanded.")
	case errors.Is(err, roster.ErrTeamFull):
		respond.Error(w, http.StatusConflict, "This team is already at capacity.")
	case errors.Is(err, roster.ErrMemberNotFound):
		respond.Error(w, http.StatusNotFound, "One or more referenced users do not exist.")
	case errors.Is(err, teamstore.ErrDuplicateTeamName):
		respond.Error(w, http.StatusConflict, "A team with this name already exists.")
	case errors.Is(err, teamstore.ErrVersionConflict):
		respond.Error(w, http.StatusConflict, "The team changed while processing. Try again.")
	case errors.Is(err, mongo.ErrNoDocuments):
		respond.Error(w, http.StatusNotFound, "Not found.")
	default:
		respond.Internal(w, h.Log, op+" failed", err)
	}
}

// pathID parses an ObjectID URL parameter, writing a 400 when malformed.
func pathID(w http.ResponseWriter, r *http.Request, param string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, param))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid ID in URL.")
		return primitive.NilObjectID, false
	}
	return id, true
}
