// Package submissions serves hackathon track submissions: one entry per
// team per track, editable until review begins.
package submissions

import (
	"context"
	"net/http"
	"time"

	submissionstore "github.com/dalemusser/teamforge/internal/app/store/submissions"
	teamstore "github.com/dalemusser/teamforge/internal/app/store/teams"
	userstore "github.com/dalemusser/teamforge/internal/app/store/users"
	"github.com/dalemusser/teamforge/internal/app/policy/teampolicy"
	"github.com/dalemusser/teamforge/internal/app/system/auth"
	"github.com/dalemusser/teamforge/internal/app/system/htmlsanitize"
	"github.com/dalemusser/teamforge/internal/app/system/inputval"
	"github.com/dalemusser/teamforge/internal/app/system/paging"
	"github.com/dalemusser/teamforge/internal/app/system/respond"
	"github.com/dalemusser/teamforge/internal/app/system/timeouts"
	"github.com/dalemusser/teamforge/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler owns the submission endpoints.
type Handler struct {
	Subs  *submissionstore.Store
	Teams *teamstore.Store
	Users *userstore.Store
	Log   *zap.Logger
}

// NewHandler constructs a submissions Handler.
func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{
		Subs:  submissionstore.New(db),
		Teams: teamstore.New(db),
		Users: userstore.New(db),
		Log:   logger,
	}
}

type fileInput struct {
	Filename     string `json:"filename" validate:"required,max=255" label:"Filename"`
	OriginalName string `json:"original_name" validate:"max=255" label:"Original name"`
	Path         string `json:"path" validate:"required,max=1024" label:"Path"`
	Size         int64  `json:"size" validate:"min=0" label:"Size"`
	MimeType     string `json:"mimetype" validate:"max=255" label:"MIME type"`
}

type createRequest struct {
	TrackID     string      `json:"track_id" validate:"required" label:"Track"`
	Description string      `json:"description" validate:"max=5000" label:"Description"`
	Files       []fileInput `json:"files" validate:"dive" label:"Files"`
}

// HandleCreate handles POST /api/submissions. The caller must be on an
// active team; the entry is recorded against that team.
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
	trackName, ok := models.TrackName(req.TrackID)
	if !ok {
		respond.Error(w, http.StatusBadRequest, "Unknown track.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	user, team, ok := h.loadCallerTeam(ctx, w, uid)
	if !ok {
		return
	}

	sub, err := h.Subs.Create(ctx, models.Submission{
		TeamID:          team.ID,
		TeamName:        team.Name,
		TrackID:         req.TrackID,
		TrackName:       trackName,
		Description:     htmlsanitize.Sanitize(req.Description),
		SubmittedBy:     user.ID,
		SubmittedByName: user.Name,
		Files:           toFiles(req.Files),
	})
	if err != nil {
		if err == submissionstore.ErrDuplicateTrack {
			respond.Error(w, http.StatusConflict, "Your team has already submitted for this track.")
			return
		}
		respond.Internal(w, h.Log, "submissions: create failed", err)
		return
	}

	h.Log.Info("submission created",
		zap.String("team_id", team.ID.Hex()),
		zap.String("track_id", req.TrackID))
	respond.JSON(w, http.StatusCreated, sub)
}

// ServeMine handles GET /api/submissions/mine: the caller's team entries.
func (h *Handler) ServeMine(w http.ResponseWriter, r *http.Request) {
	uid, ok := auth.CurrentUserID(r)
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "Sign in required.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	_, team, ok := h.loadCallerTeam(ctx, w, uid)
	if !ok {
		return
	}

	subs, err := h.Subs.ListByTeam(ctx, team.ID)
	if err != nil {
		respond.Internal(w, h.Log, "submissions: list failed", err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"submissions": subs})
}

// ServeTracks handles GET /api/submissions/tracks: the fixed track list
// with per-track submission counts.
func (h *Handler) ServeTracks(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	counts, err := h.Subs.CountByTrack(ctx)
	if err != nil {
		respond.Internal(w, h.Log, "submissions: track counts failed", err)
		return
	}
	byTrack := make(map[string]int64, len(counts))
	for _, c := range counts {
		byTrack[c.TrackID] = c.Count
	}

	type trackStat struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Submissions int64  `json:"submissions"`
	}
	out := make([]trackStat, 0, len(models.Tracks))
	for _, t := range models.Tracks {
		out = append(out, trackStat{ID: t.ID, Name: t.Name, Submissions: byTrack[t.ID]})
	}
	respond.JSON(w, http.StatusOK, map[string]any{"tracks": out})
}

// ServeList handles GET /api/submissions with track/status filters.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	p := paging.Parse(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	subs, total, err := h.Subs.List(ctx, submissionstore.ListFilter{
		TrackID: query.Get(r, "track"),
		Status:  query.Get(r, "status"),
		Page:    p.Page,
		PerPage: p.PerPage,
	})
	if err != nil {
		respond.Internal(w, h.Log, "submissions: list failed", err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{
		"submissions": subs,
		"pagination":  p.MetaFor(total),
	})
}

// ServeSubmission handles GET /api/submissions/{submissionID}.
func (h *Handler) ServeSubmission(w http.ResponseWriter, r *http.Request) {
	sub, ok := h.loadSubmission(w, r)
	if !ok {
		return
	}
	respond.JSON(w, http.StatusOK, sub)
}

type updateRequest struct {
	Description string      `json:"description" validate:"max=5000" label:"Description"`
	Files       []fileInput `json:"files" validate:"dive" label:"Files"`
}

// HandleUpdate handles PUT /api/submissions/{submissionID}. Team members
// may edit until review begins.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	uid, ok := auth.CurrentUserID(r)
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "Sign in required.")
		return
	}
	sub, ok := h.loadSubmission(w, r)
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

	team, err := h.Teams.GetByID(ctx, sub.TeamID)
	if err != nil {
		respond.Internal(w, h.Log, "submissions: load team failed", err)
		return
	}
	if !teampolicy.CanEditSubmission(sub, team, uid) {
		if sub.Status != models.SubmissionSubmitted {
			respond.Error(w, http.StatusConflict, "This submission is already "+sub.Status+" and can no longer be edited.")
			return
		}
		respond.Error(w, http.StatusForbidden, "Only members of the submitting team may edit this.")
		return
	}

	if err := h.Subs.UpdateDetails(ctx, sub.ID, htmlsanitize.Sanitize(req.Description), toFiles(req.Files)); err != nil {
		respond.Internal(w, h.Log, "submissions: update failed", err)
		return
	}

	sub, err = h.Subs.GetByID(ctx, sub.ID)
	if err != nil {
		respond.Internal(w, h.Log, "submissions: reload failed", err)
		return
	}
	respond.JSON(w, http.StatusOK, sub)
}

// HandleDelete handles DELETE /api/submissions/{submissionID}: withdraw
// an entry that has not entered review.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	uid, ok := auth.CurrentUserID(r)
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "Sign in required.")
		return
	}
	sub, ok := h.loadSubmission(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	team, err := h.Teams.GetByID(ctx, sub.TeamID)
	if err != nil {
		respond.Internal(w, h.Log, "submissions: load team failed", err)
		return
	}
	if !teampolicy.IsMember(team, uid) {
		respond.Error(w, http.StatusForbidden, "Only members of the submitting team may withdraw this.")
		return
	}

	if err := h.Subs.Delete(ctx, sub.ID); err != nil {
		if err == mongo.ErrNoDocuments {
			respond.Error(w, http.StatusConflict, "This submission has entered review and can no longer be withdrawn.")
			return
		}
		respond.Internal(w, h.Log, "submissions: delete failed", err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"message": "Submission withdrawn."})
}

type statusRequest struct {
	Status      string `json:"status" validate:"required,oneof=submitted under-review approved rejected" label:"Status"`
	ReviewNotes string `json:"review_notes" validate:"max=2000" label:"Review notes"`
}

// HandleSetStatus handles PATCH /api/submissions/{submissionID}/status,
// recording the review decision and reviewer.
func (h *Handler) HandleSetStatus(w http.ResponseWriter, r *http.Request) {
	uid, ok := auth.CurrentUserID(r)
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "Sign in required.")
		return
	}
	sub, ok := h.loadSubmission(w, r)
	if !ok {
		return
	}

	var req statusRequest
	if err := respond.Decode(w, r, &req); err != nil {
		return
	}
	if res := inputval.Validate(req); res.HasErrors() {
		respond.Violations(w, "Validation failed.", res.Messages())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.Subs.SetReview(ctx, sub.ID, req.Status, htmlsanitize.StripTags(req.ReviewNotes), uid); err != nil {
		respond.Internal(w, h.Log, "submissions: set status failed", err)
		return
	}

	sub, err := h.Subs.GetByID(ctx, sub.ID)
	if err != nil {
		respond.Internal(w, h.Log, "submissions: reload failed", err)
		return
	}
	h.Log.Info("submission reviewed",
		zap.String("submission_id", sub.ID.Hex()),
		zap.String("status", req.Status))
	respond.JSON(w, http.StatusOK, sub)
}

// ServeStats handles GET /api/submissions/stats: totals by track and by
// status.
func (h *Handler) ServeStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	counts, err := h.Subs.CountByTrack(ctx)
	if err != nil {
		respond.Internal(w, h.Log, "submissions: stats failed", err)
		return
	}

	var total int64
	byTrack := make(map[string]int64, len(counts))
	for _, c := range counts {
		byTrack[c.TrackID] = c.Count
		total += c.Count
	}

	byStatus := make(map[string]int64, 4)
	for _, status := range []string{
		models.SubmissionSubmitted,
		models.SubmissionUnderReview,
		models.SubmissionApproved,
		models.SubmissionRejected,
	} {
		_, n, err := h.Subs.List(ctx, submissionstore.ListFilter{Status: status, Page: 1, PerPage: 1})
		if err != nil {
			respond.Internal(w, h.Log, "submissions: stats failed", err)
			return
		}
		byStatus[status] = n
	}

	respond.JSON(w, http.StatusOK, map[string]any{
		"total":     total,
		"by_track":  byTrack,
		"by_status": byStatus,
	})
}

// loadCallerTeam resolves the caller's active team, writing the error
// response when they have none.
func (h *Handler) loadCallerTeam(ctx context.Context, w http.ResponseWriter, uid primitive.ObjectID) (*models.User, models.Team, bool) {
	user, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		respond.Internal(w, h.Log, "submissions: load user failed", err)
		return nil, models.Team{}, false
	}
	if !user.OnTeam() {
		respond.Error(w, http.StatusForbidden, "You must be on a team to do this.")
		return nil, models.Team{}, false
	}
	team, err := h.Teams.GetByID(ctx, *user.TeamID)
	if err != nil {
		respond.Internal(w, h.Log, "submissions: load team failed", err)
		return nil, models.Team{}, false
	}
	if team.Status != models.TeamStatusActive {
		respond.Error(w, http.StatusConflict, "This team has been disbanded.")
		return nil, models.Team{}, false
	}
	return user, team, true
}

// loadSubmission parses the URL parameter and fetches the submission.
func (h *Handler) loadSubmission(w http.ResponseWriter, r *http.Request) (models.Submission, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "submissionID"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid ID in URL.")
		return models.Submission{}, false
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	sub, err := h.Subs.GetByID(ctx, id)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			respond.Error(w, http.StatusNotFound, "Submission not found.")
			return models.Submission{}, false
		}
		respond.Internal(w, h.Log, "submissions: load failed", err)
		return models.Submission{}, false
	}
	return sub, true
}

func toFiles(in []fileInput) []models.SubmissionFile {
	if len(in) == 0 {
		return nil
	}
	now := time.Now().UTC()
	out := make([]models.SubmissionFile, len(in))
	for i, f := range in {
		out[i] = models.SubmissionFile{
			Filename:     f.Filename,
			OriginalName: f.OriginalName,
			Path:         f.Path,
			Size:         f.Size,
			MimeType:     f.MimeType,
			UploadedAt:   now,
		}
	}
	return out
}
