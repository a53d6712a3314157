package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/dalemusser/teamforge/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

// FixturePassword is the plaintext behind every fixture user's hash.
const FixturePassword = "correct-horse-battery"

var fixtureHash = func() string {
	h, err := bcrypt.GenerateFromPassword([]byte(FixturePassword), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	return string(h)
}()

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser inserts a registered, verified user with the given profile.
// The username is derived from the email's local part.
func (f *Fixtures) CreateUser(ctx context.Context, name, email, department, gender string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	username := text.Fold(email)
	user := models.User{
		ID:           primitive.NewObjectID(),
		Username:     username,
		PasswordHash: fixtureHash,
		Name:         name,
		NameCI:       text.Fold(name),
		Email:        text.Fold(email),
		EmailCI:      text.Fold(email),
		Designation:  "Assistant Professor",
		Department:   department,
		Gender:       gender,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if _, err := f.db.Collection("users").InsertOne(ctx, user); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// FiveEligibleUsers creates a roster that satisfies every composition
// rule at capacity five: one Foundation, two Structural, two Innovation
// departments with three female and two male members. The first user is
// intended as the leader.
func (f *Fixtures) FiveEligibleUsers(ctx context.Context) []models.User {
	f.t.Helper()
	return []models.User{
		f.CreateUser(ctx, "Asha Rao", "asha@test.edu", "Physics", models.GenderFemale),
		f.CreateUser(ctx, "Bharat Iyer", "bharat@test.edu", "Mechanical Engineering", models.GenderMale),
		f.CreateUser(ctx, "Chitra Nair", "chitra@test.edu", "Civil Engineering", models.GenderFemale),
		f.CreateUser(ctx, "Divya Menon", "divya@test.edu", "Computer Science & Engineering", models.GenderFemale),
		f.CreateUser(ctx, "Eshan Kulkarni", "eshan@test.edu", "Information Science & Engineering", models.GenderMale),
	}
}

// CreateTeam inserts a team whose members are the given users (the first
// is the leader) and stamps each user's team_id.
func (f *Fixtures) CreateTeam(ctx context.Context, name string, members []models.User) models.Team {
	f.t.Helper()
	if len(members) == 0 {
		f.t.Fatal("CreateTeam needs at least one member")
	}

	now := time.Now().UTC()
	ids := make([]primitive.ObjectID, len(members))
	names := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.ID
		names[i] = m.Name
	}

	team := models.Team{
		ID:          primitive.NewObjectID(),
		Name:        name,
		NameCI:      text.Fold(name),
		LeaderID:    members[0].ID,
		LeaderName:  members[0].Name,
		MemberIDs:   ids,
		MemberNames: names,
		Capacity:    5,
		Status:      models.TeamStatusActive,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if _, err := f.db.Collection("teams").InsertOne(ctx, team); err != nil {
		f.t.Fatalf("failed to create test team: %v", err)
	}

	for _, m := range members {
		_, err := f.db.Collection("users").UpdateByID(ctx, m.ID,
			map[string]any{"$set": map[string]any{"team_id": team.ID}})
		if err != nil {
			f.t.Fatalf("failed to stamp team_id on user: %v", err)
		}
	}
	return team
}

// CreateInvitation inserts a pending invitation from a team to a user.
func (f *Fixtures) CreateInvitation(ctx context.Context, team models.Team, from, to models.User, kind string) models.Invitation {
	f.t.Helper()

	inv := models.Invitation{
		ID:        primitive.NewObjectID(),
		TeamID:    team.ID,
		TeamName:  team.Name,
		FromID:    from.ID,
		FromName:  from.Name,
		ToID:      to.ID,
		ToName:    to.Name,
		Kind:      kind,
		Status:    models.InvitationPending,
		CreatedAt: time.Now().UTC(),
	}

	if _, err := f.db.Collection("invitations").InsertOne(ctx, inv); err != nil {
		f.t.Fatalf("failed to create test invitation: %v", err)
	}
	return inv
}
