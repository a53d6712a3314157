package submissionstore_test

import (
	"testing"

	submissionstore "github.com/dalemusser/teamforge/internal/app/store/submissions"
	"github.com/dalemusser/teamforge/internal/app/system/indexes"
	"github.com/dalemusser/teamforge/internal/domain/models"
	"github.com/dalemusser/teamforge/internal/testutil"
)

func submitFor(t *testing.T, store *submissionstore.Store, team models.Team, by models.User, trackID string) models.Submission {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	name, ok := models.TrackName(trackID)
	if !ok {
		t.Fatalf("unknown track %q", trackID)
	}
	sub, err := store.Create(ctx, models.Submission{
		TeamID:          team.ID,
		TeamName:        team.Name,
		TrackID:         trackID,
		TrackName:       name,
		Description:     "prototype",
		SubmittedBy:     by.ID,
		SubmittedByName: by.Name,
	})
	if err != nil {
		t.Fatalf("Create submission: %v", err)
	}
	return sub
}

func TestStore_Create_OnePerTrack(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := submissionstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}

	users := fixtures.FiveEligibleUsers(ctx)
	team := fixtures.CreateTeam(ctx, "Builders", users)

	sub := submitFor(t, store, team, users[0], "healthcare")
	if sub.Status != models.SubmissionSubmitted {
		t.Errorf("Status = %q", sub.Status)
	}

	// Same team, same track: rejected.
	_, err := store.Create(ctx, models.Submission{
		TeamID:      team.ID,
		TrackID:     "healthcare",
		SubmittedBy: users[0].ID,
	})
	if err != submissionstore.ErrDuplicateTrack {
		t.Errorf("expected ErrDuplicateTrack, got %v", err)
	}

	// Same team, different track: fine.
	submitFor(t, store, team, users[0], "greentech")
}

func TestStore_SetReview(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := submissionstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	users := fixtures.FiveEligibleUsers(ctx)
	team := fixtures.CreateTeam(ctx, "Reviewed", users)
	sub := submitFor(t, store, team, users[0], "edtech")

	if err := store.SetReview(ctx, sub.ID, models.SubmissionApproved, "solid work", users[1].ID); err != nil {
		t.Fatalf("SetReview: %v", err)
	}

	got, err := store.GetByID(ctx, sub.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != models.SubmissionApproved || got.ReviewNotes != "solid work" {
		t.Errorf("review not persisted: %+v", got)
	}
	if got.ReviewedBy == nil || got.ReviewedAt == nil {
		t.Error("reviewer fields not stamped")
	}
}

func TestStore_ListAndCount(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := submissionstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	users := fixtures.FiveEligibleUsers(ctx)
	teamA := fixtures.CreateTeam(ctx, "Alpha", users[:2])
	teamB := fixtures.CreateTeam(ctx, "Beta", users[2:4])

	submitFor(t, store, teamA, users[0], "healthcare")
	submitFor(t, store, teamA, users[0], "greentech")
	submitFor(t, store, teamB, users[2], "healthcare")

	byTeam, err := store.ListByTeam(ctx, teamA.ID)
	if err != nil {
		t.Fatalf("ListByTeam: %v", err)
	}
	if len(byTeam) != 2 {
		t.Errorf("team A submissions = %d, want 2", len(byTeam))
	}

	_, total, err := store.List(ctx, submissionstore.ListFilter{TrackID: "healthcare"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 2 {
		t.Errorf("healthcare submissions = %d, want 2", total)
	}

	counts, err := store.CountByTrack(ctx)
	if err != nil {
		t.Fatalf("CountByTrack: %v", err)
	}
	if len(counts) != 2 {
		t.Fatalf("track buckets = %d, want 2", len(counts))
	}
	if counts[0].TrackID != "healthcare" || counts[0].Count != 2 {
		t.Errorf("top bucket = %+v", counts[0])
	}
}
