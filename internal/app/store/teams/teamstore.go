// internal/app/store/teams/teamstore.go
package teamstore

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/dalemusser/teamforge/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

var (
	// ErrDuplicateTeamName is returned when a team with the folded name
	// already exists.
	ErrDuplicateTeamName = errors.New("a team with this name already exists")
	// ErrVersionConflict is returned when a conditional membership write
	// lost a race; the caller re-reads and re-validates.
	ErrVersionConflict = errors.New("team was modified concurrently")
)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("teams")}
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Team, error) {
	var t models.Team
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&t); err != nil {
		return models.Team{}, err
	}
	return t, nil
}

// GetActiveByLeader returns the active team led by userID, or
// mongo.ErrNoDocuments.
func (s *Store) GetActiveByLeader(ctx context.Context, userID primitive.ObjectID) (models.Team, error) {
	var t models.Team
	err := s.c.FindOne(ctx, bson.M{
		"leader_id": userID,
		"status":    models.TeamStatusActive,
	}).Decode(&t)
	if err != nil {
		return models.Team{}, err
	}
	return t, nil
}

// Create inserts a fully formed team. Membership, eligibility, and
// denormalized names are the roster engine's responsibility; the store
// only normalizes the name and stamps bookkeeping fields.
func (s *Store) Create(ctx context.Context, t models.Team) (models.Team, error) {
	now := time.Now().UTC()
	t.ID = primitive.NewObjectID()
	t.NameCI = text.Fold(t.Name)
	if t.Status == "" {
		t.Status = models.TeamStatusActive
	}
	t.Version = 1
	t.CreatedAt = now
	t.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, t); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Team{}, ErrDuplicateTeamName
		}
		return models.Team{}, err
	}
	return t, nil
}

// AddMember appends a member conditionally on version. The write fails
// with ErrVersionConflict if another mutation committed since the team
// was read at version.
func (s *Store) AddMember(ctx context.Context, teamID primitive.ObjectID, version int64, memberID primitive.ObjectID, memberName string) (models.Team, error) {
	filter := bson.M{
		"_id":     teamID,
		"version": version,
		"status":  models.TeamStatusActive,
	}
	update := bson.M{
		"$push": bson.M{
			"member_ids":   memberID,
			"member_names": memberName,
		},
		"$inc": bson.M{"version": 1},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}
	return s.findOneAndUpdate(ctx, filter, update)
}

// RemoveMember removes a member conditionally on version. Only the id
// slice changes here; pulling member_names by value would strip every
// namesake, so callers rebuild the projection with SetMemberNames.
func (s *Store) RemoveMember(ctx context.Context, teamID primitive.ObjectID, version int64, memberID primitive.ObjectID) (models.Team, error) {
	filter := bson.M{
		"_id":     teamID,
		"version": version,
		"status":  models.TeamStatusActive,
	}
	update := bson.M{
		"$pull": bson.M{"member_ids": memberID},
		"$inc":  bson.M{"version": 1},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	}
	return s.findOneAndUpdate(ctx, filter, update)
}

func (s *Store) findOneAndUpdate(ctx context.Context, filter, update bson.M) (models.Team, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var t models.Team
	err := s.c.FindOneAndUpdate(ctx, filter, update, opts).Decode(&t)
	if err == mongo.ErrNoDocuments {
		return models.Team{}, ErrVersionConflict
	}
	if err != nil {
		return models.Team{}, err
	}
	return t, nil
}

// SetEligibility caches the composition verdict on the team document.
// Not version-conditional: eligibility is derived from the membership and
// recomputing it is idempotent, so last-writer-wins is correct.
func (s *Store) SetEligibility(ctx context.Context, teamID primitive.ObjectID, eligible bool, details models.EligibilityDetails) error {
	_, err := s.c.UpdateByID(ctx, teamID, bson.M{"$set": bson.M{
		"is_eligible":         eligible,
		"eligibility_details": details,
		"updated_at":          time.Now().UTC(),
	}})
	return err
}

// UpdateInfo edits the team's name and description.
func (s *Store) UpdateInfo(ctx context.Context, teamID primitive.ObjectID, name, description string) error {
	set := bson.M{
		"description": description,
		"updated_at":  time.Now().UTC(),
	}
	if name != "" {
		set["name"] = name
		set["name_ci"] = text.Fold(name)
	}
	_, err := s.c.UpdateByID(ctx, teamID, bson.M{"$set": set})
	if err != nil && wafflemongo.IsDup(err) {
		return ErrDuplicateTeamName
	}
	return err
}

// RefreshLeaderName re-stamps the denormalized leader name. Member name
// projections are refreshed by the roster engine, which also knows the
// member order.
func (s *Store) RefreshLeaderName(ctx context.Context, teamID primitive.ObjectID, leaderName string) error {
	_, err := s.c.UpdateByID(ctx, teamID, bson.M{"$set": bson.M{
		"leader_name": leaderName,
		"updated_at":  time.Now().UTC(),
	}})
	return err
}

// SetMemberNames replaces the projected member-name slice wholesale.
func (s *Store) SetMemberNames(ctx context.Context, teamID primitive.ObjectID, names []string) error {
	_, err := s.c.UpdateByID(ctx, teamID, bson.M{"$set": bson.M{
		"member_names": names,
		"updated_at":   time.Now().UTC(),
	}})
	return err
}

// Disband marks the team disbanded and bumps the version so any in-flight
// conditional write fails.
func (s *Store) Disband(ctx context.Context, teamID primitive.ObjectID, version int64) (models.Team, error) {
	filter := bson.M{
		"_id":     teamID,
		"version": version,
		"status":  models.TeamStatusActive,
	}
	update := bson.M{
		"$set": bson.M{
			"status":     models.TeamStatusDisbanded,
			"updated_at": time.Now().UTC(),
		},
		"$inc": bson.M{"version": 1},
	}
	return s.findOneAndUpdate(ctx, filter, update)
}

// ListFilter narrows team listings.
type ListFilter struct {
	EligibleOnly bool
	Search       string
	Page         int64
	PerPage      int64
}

// List returns active teams plus the total match count.
func (s *Store) List(ctx context.Context, f ListFilter) ([]models.Team, int64, error) {
	filter := bson.M{"status": models.TeamStatusActive}
	if f.EligibleOnly {
		filter["is_eligible"] = true
	}
	if f.Search != "" {
		// QuoteMeta keeps user input from being interpreted as a pattern.
		filter["name_ci"] = bson.M{"$regex": regexp.QuoteMeta(text.Fold(f.Search))}
	}

	total, err := s.c.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	if f.PerPage <= 0 {
		f.PerPage = 20
	}
	if f.Page < 1 {
		f.Page = 1
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip((f.Page - 1) * f.PerPage).
		SetLimit(f.PerPage)

	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	var teams []models.Team
	if err := cur.All(ctx, &teams); err != nil {
		return nil, 0, err
	}
	return teams, total, nil
}
