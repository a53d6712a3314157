// internal/app/store/invitations/invitationstore.go
package invitationstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/teamforge/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

var (
	// ErrDuplicatePending is returned when a pending invitation for the
	// same (team, recipient) pair already exists.
	ErrDuplicatePending = errors.New("a pending invitation for this user and team already exists")
	// ErrNotPending is returned when a status transition targets an
	// invitation that is not pending anymore.
	ErrNotPending = errors.New("invitation has already been resolved")
)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("invitations")}
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Invitation, error) {
	var inv models.Invitation
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&inv); err != nil {
		return models.Invitation{}, err
	}
	return inv, nil
}

// Create inserts a pending invitation. The partial unique index on
// (team_id, to_id, pending) rejects duplicates.
func (s *Store) Create(ctx context.Context, inv models.Invitation) (models.Invitation, error) {
	inv.ID = primitive.NewObjectID()
	inv.Status = models.InvitationPending
	inv.CreatedAt = time.Now().UTC()
	inv.RespondedAt = nil

	if _, err := s.c.InsertOne(ctx, inv); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Invitation{}, ErrDuplicatePending
		}
		return models.Invitation{}, err
	}
	return inv, nil
}

// Resolve moves a pending invitation to a terminal status. Only pending
// invitations transition; anything else returns ErrNotPending, which is
// how double-accepts and accept-after-cancel surface.
func (s *Store) Resolve(ctx context.Context, id primitive.ObjectID, status string) (models.Invitation, error) {
	now := time.Now().UTC()
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var inv models.Invitation
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": models.InvitationPending},
		bson.M{"$set": bson.M{"status": status, "responded_at": now}},
		opts,
	).Decode(&inv)
	if err == mongo.ErrNoDocuments {
		return models.Invitation{}, ErrNotPending
	}
	if err != nil {
		return models.Invitation{}, err
	}
	return inv, nil
}

// CancelAllPendingForUser cancels every pending invitation addressed to
// userID. Called when the user joins a team; the remaining solicitations
// are moot. Returns the number cancelled.
func (s *Store) CancelAllPendingForUser(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	res, err := s.c.UpdateMany(ctx,
		bson.M{"to_id": userID, "status": models.InvitationPending},
		bson.M{"$set": bson.M{
			"status":       models.InvitationCancelled,
			"responded_at": time.Now().UTC(),
		}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// CancelAllPendingForTeam cancels every pending invitation belonging to
// teamID. Called on disband and when the team fills up.
func (s *Store) CancelAllPendingForTeam(ctx context.Context, teamID primitive.ObjectID) (int64, error) {
	res, err := s.c.UpdateMany(ctx,
		bson.M{"team_id": teamID, "status": models.InvitationPending},
		bson.M{"$set": bson.M{
			"status":       models.InvitationCancelled,
			"responded_at": time.Now().UTC(),
		}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// ListForUser returns invitations addressed to userID, newest first,
// optionally restricted to pending ones.
func (s *Store) ListForUser(ctx context.Context, userID primitive.ObjectID, pendingOnly bool) ([]models.Invitation, error) {
	filter := bson.M{"to_id": userID}
	if pendingOnly {
		filter["status"] = models.InvitationPending
	}
	return s.list(ctx, filter)
}

// ListForTeam returns invitations sent by teamID, newest first.
func (s *Store) ListForTeam(ctx context.Context, teamID primitive.ObjectID, pendingOnly bool) ([]models.Invitation, error) {
	filter := bson.M{"team_id": teamID}
	if pendingOnly {
		filter["status"] = models.InvitationPending
	}
	return s.list(ctx, filter)
}

func (s *Store) list(ctx context.Context, filter bson.M) ([]models.Invitation, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var invs []models.Invitation
	if err := cur.All(ctx, &invs); err != nil {
		return nil, err
	}
	return invs, nil
}
