// Package profile serves the signed-in user's own record.
package profile

import (
	"context"
	"net/http"

	teamstore "github.com/dalemusser/teamforge/internal/app/store/teams"
	userstore "github.com/dalemusser/teamforge/internal/app/store/users"
	"github.com/dalemusser/teamforge/internal/app/system/auth"
	"github.com/dalemusser/teamforge/internal/app/system/htmlsanitize"
	"github.com/dalemusser/teamforge/internal/app/system/inputval"
	"github.com/dalemusser/teamforge/internal/app/system/respond"
	"github.com/dalemusser/teamforge/internal/app/system/timeouts"
	"github.com/dalemusser/teamforge/internal/domain/composition"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler owns the profile endpoints.
type Handler struct {
	Users *userstore.Store
	Teams *teamstore.Store
	Log   *zap.Logger
}

// NewHandler constructs a profile Handler.
func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{
		Users: userstore.New(db),
		Teams: teamstore.New(db),
		Log:   logger,
	}
}

// ServeMe returns the caller's full profile.
func (h *Handler) ServeMe(w http.ResponseWriter, r *http.Request) {
	uid, ok := auth.CurrentUserID(r)
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "Sign in required.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	user, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			respond.Error(w, http.StatusNotFound, "Account no longer exists.")
			return
		}
		respond.Internal(w, h.Log, "profile: load failed", err)
		return
	}
	respond.JSON(w, http.StatusOK, user)
}

type updateRequest struct {
	Name        string `json:"name" validate:"required,max=100" label:"Full name"`
	Designation string `json:"designation" validate:"required,max=100" label:"Designation"`
	Department  string `json:"department" validate:"required,max=100" label:"Department"`
	Gender      string `json:"gender" validate:"omitempty,gender" label:"Gender"`
	Skills      string `json:"skills" validate:"max=500" label:"Skills"`
	Experience  int    `json:"experience" validate:"min=0,max=60" label:"Experience"`
	Bio         string `json:"bio" validate:"max=2000" label:"Bio"`
	AvatarURL   string `json:"avatar_url" validate:"omitempty,httpurl" label:"Avatar URL"`
}

// HandleUpdateMe updates the caller's profile. A name change is pushed
// through to the team's projected names.
func (h *Handler) HandleUpdateMe(w http.ResponseWriter, r *http.Request) {
	uid, ok := auth.CurrentUserID(r)
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "Sign in required.")
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

	err := h.Users.UpdateProfile(ctx, uid, userstore.ProfileUpdate{
		Name:        req.Name,
		Designation: req.Designation,
		Department:  req.Department,
		Gender:      composition.NormalizeGender(req.Gender),
		Skills:      htmlsanitize.StripTags(req.Skills),
		Experience:  req.Experience,
		Bio:         htmlsanitize.Sanitize(req.Bio),
		AvatarURL:   req.AvatarURL,
	})
	if err != nil {
		respond.Internal(w, h.Log, "profile: update failed", err)
		return
	}

	user, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		respond.Internal(w, h.Log, "profile: reload failed", err)
		return
	}

	if user.OnTeam() {
		h.refreshTeamNames(ctx, *user.TeamID)
	}

	respond.JSON(w, http.StatusOK, user)
}

// refreshTeamNames re-projects leader_name and member_names from the
// current user records. Failures are logged only; the projections mend on
// the next roster change.
func (h *Handler) refreshTeamNames(ctx context.Context, teamID primitive.ObjectID) {
	team, err := h.Teams.GetByID(ctx, teamID)
	if err != nil {
		h.Log.Warn("profile: team reload failed", zap.Error(err))
		return
	}
	members, err := h.Users.GetMany(ctx, team.MemberIDs)
	if err != nil {
		h.Log.Warn("profile: members reload failed", zap.Error(err))
		return
	}

	byID := make(map[primitive.ObjectID]string, len(members))
	for _, m := range members {
		byID[m.ID] = m.Name
	}
	names := make([]string, 0, len(team.MemberIDs))
	for _, id := range team.MemberIDs {
		names = append(names, byID[id])
	}

	if err := h.Teams.SetMemberNames(ctx, team.ID, names); err != nil {
		h.Log.Warn("profile: refresh member names failed", zap.Error(err))
	}
	if leaderName, ok := byID[team.LeaderID]; ok && leaderName != team.LeaderName {
		if err := h.Teams.RefreshLeaderName(ctx, team.ID, leaderName); err != nil {
			h.Log.Warn("profile: refresh leader name failed", zap.Error(err))
		}
	}
}
