package userstore_test

import (
	"testing"

	userstore "github.com/dalemusser/teamforge/internal/app/store/users"
	"github.com/dalemusser/teamforge/internal/app/system/indexes"
	"github.com/dalemusser/teamforge/internal/domain/models"
	"github.com/dalemusser/teamforge/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestStore_Create(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := models.User{
		Username:     "JSmith",
		PasswordHash: "$2a$10$fakehashfakehashfakehash",
		Name:         "  Jane Smith ",
		Email:        "Jane.Smith@Example.EDU",
		Designation:  "Professor",
		Department:   " Physics ",
		Gender:       models.GenderFemale,
	}

	created, err := store.Create(ctx, u)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if created.ID == primitive.NilObjectID {
		t.Error("expected ID to be assigned")
	}
	if created.Username != "jsmith" {
		t.Errorf("Username = %q, want folded", created.Username)
	}
	if created.Name != "Jane Smith" {
		t.Errorf("Name = %q, want trimmed", created.Name)
	}
	if created.Email != "jane.smith@example.edu" {
		t.Errorf("Email = %q, want lowercased", created.Email)
	}
	if created.Department != "Physics" {
		t.Errorf("Department = %q, want trimmed", created.Department)
	}
	if created.TeamID != nil {
		t.Error("new user must not have a team")
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be set")
	}
}

func TestStore_Create_DuplicateEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}

	base := models.User{
		Username:     "first",
		PasswordHash: "x",
		Name:         "First User",
		Email:        "taken@example.edu",
		Department:   "Physics",
	}
	if _, err := store.Create(ctx, base); err != nil {
		t.Fatalf("first Create failed: %v", err)
	}

	dup := base
	dup.Username = "second"
	dup.Email = "TAKEN@example.edu"
	if _, err := store.Create(ctx, dup); err != userstore.ErrDuplicateEmail {
		t.Errorf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestStore_Create_DuplicateUsername(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}

	base := models.User{
		Username:     "shared",
		PasswordHash: "x",
		Name:         "First User",
		Email:        "one@example.edu",
		Department:   "Physics",
	}
	if _, err := store.Create(ctx, base); err != nil {
		t.Fatalf("first Create failed: %v", err)
	}

	dup := base
	dup.Email = "two@example.edu"
	if _, err := store.Create(ctx, dup); err != userstore.ErrDuplicateUsername {
		t.Errorf("expected ErrDuplicateUsername, got %v", err)
	}
}

func TestStore_GetByEmailAndUsername(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fixtures.CreateUser(ctx, "Asha Rao", "asha@test.edu", "Physics", models.GenderFemale)

	got, err := store.GetByEmail(ctx, "ASHA@test.edu")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if got.ID != u.ID {
		t.Errorf("GetByEmail returned wrong user")
	}

	got, err = store.GetByUsername(ctx, "Asha@test.edu")
	if err != nil {
		t.Fatalf("GetByUsername: %v", err)
	}
	if got.ID != u.ID {
		t.Errorf("GetByUsername returned wrong user")
	}

	if _, err := store.GetByEmail(ctx, "nobody@test.edu"); err != mongo.ErrNoDocuments {
		t.Errorf("expected ErrNoDocuments, got %v", err)
	}
}

func TestStore_SetAndClearTeam(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a := fixtures.CreateUser(ctx, "Asha Rao", "asha@test.edu", "Physics", models.GenderFemale)
	b := fixtures.CreateUser(ctx, "Bharat Iyer", "bharat@test.edu", "Civil Engineering", models.GenderMale)
	teamID := primitive.NewObjectID()

	if err := store.SetTeam(ctx, []primitive.ObjectID{a.ID, b.ID}, teamID); err != nil {
		t.Fatalf("SetTeam: %v", err)
	}
	got, err := store.GetByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.TeamID == nil || *got.TeamID != teamID {
		t.Errorf("TeamID = %v, want %v", got.TeamID, teamID)
	}

	if err := store.ClearTeam(ctx, []primitive.ObjectID{a.ID, b.ID}); err != nil {
		t.Fatalf("ClearTeam: %v", err)
	}
	got, err = store.GetByID(ctx, b.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.TeamID != nil {
		t.Errorf("TeamID = %v, want nil", got.TeamID)
	}
}

func TestStore_List(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	users := fixtures.FiveEligibleUsers(ctx)
	fixtures.CreateTeam(ctx, "Occupied", users[:2])

	// Availability filter excludes the two teamed users.
	got, total, err := store.List(ctx, userstore.ListFilter{Available: true})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 3 || len(got) != 3 {
		t.Errorf("available: total=%d len=%d, want 3/3", total, len(got))
	}

	// Department filter.
	got, total, err = store.List(ctx, userstore.ListFilter{Department: "Physics"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 1 || got[0].Department != "Physics" {
		t.Errorf("department filter: total=%d", total)
	}

	// Name search is case-insensitive and partial.
	_, total, err = store.List(ctx, userstore.ListFilter{Search: "iyer"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 1 {
		t.Errorf("search: total=%d, want 1", total)
	}

	// Pagination.
	got, total, err = store.List(ctx, userstore.ListFilter{Page: 2, PerPage: 2})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 5 || len(got) != 2 {
		t.Errorf("pagination: total=%d len=%d, want 5/2", total, len(got))
	}
}
