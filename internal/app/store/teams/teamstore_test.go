package teamstore_test

import (
	"testing"

	teamstore "github.com/dalemusser/teamforge/internal/app/store/teams"
	"github.com/dalemusser/teamforge/internal/app/system/indexes"
	"github.com/dalemusser/teamforge/internal/domain/models"
	"github.com/dalemusser/teamforge/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_Create(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := teamstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	users := fixtures.FiveEligibleUsers(ctx)
	ids := make([]primitive.ObjectID, len(users))
	names := make([]string, len(users))
	for i, u := range users {
		ids[i] = u.ID
		names[i] = u.Name
	}

	team := models.Team{
		Name:        "Quantum Leap",
		LeaderID:    users[0].ID,
		LeaderName:  users[0].Name,
		MemberIDs:   ids,
		MemberNames: names,
		Capacity:    5,
	}

	created, err := store.Create(ctx, team)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.ID == primitive.NilObjectID {
		t.Error("expected ID to be assigned")
	}
	if created.NameCI != "quantum leap" {
		t.Errorf("NameCI = %q", created.NameCI)
	}
	if created.Status != models.TeamStatusActive {
		t.Errorf("Status = %q", created.Status)
	}
	if created.Version != 1 {
		t.Errorf("Version = %d, want 1", created.Version)
	}
}

func TestStore_Create_DuplicateName(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := teamstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}

	users := fixtures.FiveEligibleUsers(ctx)
	base := models.Team{Name: "Quantum Leap", LeaderID: users[0].ID, Capacity: 5}
	if _, err := store.Create(ctx, base); err != nil {
		t.Fatalf("first Create failed: %v", err)
	}

	dup := models.Team{Name: "QUANTUM LEAP", LeaderID: users[1].ID, Capacity: 5}
	if _, err := store.Create(ctx, dup); err != teamstore.ErrDuplicateTeamName {
		t.Errorf("expected ErrDuplicateTeamName, got %v", err)
	}
}

func TestStore_AddMember_VersionConflict(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := teamstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	users := fixtures.FiveEligibleUsers(ctx)
	team := fixtures.CreateTeam(ctx, "Racers", users[:3])

	newA := fixtures.CreateUser(ctx, "Farah Khan", "farah@test.edu", "MCA", models.GenderFemale)
	newB := fixtures.CreateUser(ctx, "Gauri Hegde", "gauri@test.edu", "AIML", models.GenderFemale)

	// First conditional write at version 1 succeeds and bumps to 2.
	updated, err := store.AddMember(ctx, team.ID, team.Version, newA.ID, newA.Name)
	if err != nil {
		t.Fatalf("AddMember: %v", err)
	}
	if updated.Version != team.Version+1 {
		t.Errorf("Version = %d, want %d", updated.Version, team.Version+1)
	}
	if !updated.HasMember(newA.ID) {
		t.Error("member not added")
	}

	// Second write still conditioned on the stale version loses.
	if _, err := store.AddMember(ctx, team.ID, team.Version, newB.ID, newB.Name); err != teamstore.ErrVersionConflict {
		t.Errorf("expected ErrVersionConflict, got %v", err)
	}
}

func TestStore_RemoveMember(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := teamstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	users := fixtures.FiveEligibleUsers(ctx)
	team := fixtures.CreateTeam(ctx, "Shrinkers", users[:3])

	updated, err := store.RemoveMember(ctx, team.ID, team.Version, users[2].ID)
	if err != nil {
		t.Fatalf("RemoveMember: %v", err)
	}
	if updated.HasMember(users[2].ID) {
		t.Error("member still present after removal")
	}
	if len(updated.MemberIDs) != 2 {
		t.Errorf("MemberIDs = %v", updated.MemberIDs)
	}

	// The name projection is rebuilt separately from the ids.
	if err := store.SetMemberNames(ctx, team.ID, []string{users[0].Name, users[1].Name}); err != nil {
		t.Fatalf("SetMemberNames: %v", err)
	}
	got, err := store.GetByID(ctx, team.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if len(got.MemberNames) != 2 {
		t.Errorf("MemberNames = %v", got.MemberNames)
	}
}

func TestStore_Disband(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := teamstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	users := fixtures.FiveEligibleUsers(ctx)
	team := fixtures.CreateTeam(ctx, "Ephemeral", users)

	disbanded, err := store.Disband(ctx, team.ID, team.Version)
	if err != nil {
		t.Fatalf("Disband: %v", err)
	}
	if disbanded.Status != models.TeamStatusDisbanded {
		t.Errorf("Status = %q", disbanded.Status)
	}

	// A disbanded team accepts no further conditional writes.
	extra := fixtures.CreateUser(ctx, "Farah Khan", "farah@test.edu", "MCA", models.GenderFemale)
	if _, err := store.AddMember(ctx, team.ID, disbanded.Version, extra.ID, extra.Name); err != teamstore.ErrVersionConflict {
		t.Errorf("expected ErrVersionConflict on disbanded team, got %v", err)
	}
}

func TestStore_SetEligibility(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := teamstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	users := fixtures.FiveEligibleUsers(ctx)
	team := fixtures.CreateTeam(ctx, "Evaluated", users)

	details := models.EligibilityDetails{
		Foundation: models.CohortStatus{Count: 1, Required: 1, Fulfilled: true},
		Structural: models.CohortStatus{Count: 2, Required: 1, Fulfilled: true},
		Innovation: models.CohortStatus{Count: 2, Required: 2, Fulfilled: true},
	}
	if err := store.SetEligibility(ctx, team.ID, true, details); err != nil {
		t.Fatalf("SetEligibility: %v", err)
	}

	got, err := store.GetByID(ctx, team.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !got.IsEligible {
		t.Error("IsEligible not persisted")
	}
	if got.EligibilityDetails == nil || got.EligibilityDetails.Innovation.Count != 2 {
		t.Errorf("EligibilityDetails = %+v", got.EligibilityDetails)
	}
}

func TestStore_List(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := teamstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	users := fixtures.FiveEligibleUsers(ctx)
	t1 := fixtures.CreateTeam(ctx, "Alpha", users[:2])
	fixtures.CreateTeam(ctx, "Beta", users[2:4])

	if err := store.SetEligibility(ctx, t1.ID, true, models.EligibilityDetails{}); err != nil {
		t.Fatalf("SetEligibility: %v", err)
	}

	_, total, err := store.List(ctx, teamstore.ListFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 2 {
		t.Errorf("total = %d, want 2", total)
	}

	teams, total, err := store.List(ctx, teamstore.ListFilter{EligibleOnly: true})
	if err != nil {
		t.Fatalf("List eligible: %v", err)
	}
	if total != 1 || teams[0].ID != t1.ID {
		t.Errorf("eligible filter: total=%d", total)
	}

	_, total, err = store.List(ctx, teamstore.ListFilter{Search: "alph"})
	if err != nil {
		t.Fatalf("List search: %v", err)
	}
	if total != 1 {
		t.Errorf("search total = %d, want 1", total)
	}
}

func TestStore_ListSearchEscapesMetacharacters(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := teamstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	users := fixtures.FiveEligibleUsers(ctx)
	fixtures.CreateTeam(ctx, "Alpha (Mk II)", users[:2])
	fixtures.CreateTeam(ctx, "Beta", users[2:4])

	// A dot must match literally, not as a wildcard.
	_, total, err := store.List(ctx, teamstore.ListFilter{Search: "."})
	if err != nil {
		t.Fatalf("List search: %v", err)
	}
	if total != 0 {
		t.Errorf("wildcard leaked: total = %d, want 0", total)
	}

	// An unbalanced paren is a literal character, not a syntax error.
	_, total, err = store.List(ctx, teamstore.ListFilter{Search: "(mk"})
	if err != nil {
		t.Fatalf("List search with paren: %v", err)
	}
	if total != 1 {
		t.Errorf("paren search total = %d, want 1", total)
	}
}
