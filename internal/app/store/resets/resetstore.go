// internal/app/store/resets/resetstore.go
package resetstore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultExpiry is how long a reset link stays valid.
const DefaultExpiry = time.Hour

// ErrNotFound is returned when a token is unknown, expired, or already
// used.
var ErrNotFound = errors.New("reset token not found or expired")

// Reset is one password reset grant.
type Reset struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Token     string             `bson:"token"`
	UserID    primitive.ObjectID `bson:"user_id"`
	Email     string             `bson:"email"`
	ExpiresAt time.Time          `bson:"expires_at"` // TTL index field
	CreatedAt time.Time          `bson:"created_at"`
}

// Store manages password reset tokens.
type Store struct {
	c      *mongo.Collection
	expiry time.Duration
}

// New creates a Store with the given token lifetime.
func New(db *mongo.Database, expiry time.Duration) *Store {
	if expiry <= 0 {
		expiry = DefaultExpiry
	}
	return &Store{c: db.Collection("password_resets"), expiry: expiry}
}

// Expiry returns the configured token lifetime.
func (s *Store) Expiry() time.Duration {
	return s.expiry
}

// EnsureIndexes creates the TTL and token indexes.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetName("idx_resets_expires_ttl").SetExpireAfterSeconds(0),
		},
		{
			Keys:    bson.D{{Key: "token", Value: 1}},
			Options: options.Index().SetName("idx_resets_token"),
		},
	}
	_, err := s.c.Indexes().CreateMany(ctx, models)
	return err
}

// Create issues a token for the user, replacing any outstanding one.
func (s *Store) Create(ctx context.Context, userID primitive.ObjectID, email string) (string, error) {
	now := time.Now().UTC()
	r := Reset{
		ID:        primitive.NewObjectID(),
		Token:     uuid.NewString(),
		UserID:    userID,
		Email:     email,
		ExpiresAt: now.Add(s.expiry),
		CreatedAt: now,
	}

	if _, err := s.c.DeleteMany(ctx, bson.M{"user_id": userID}); err != nil {
		return "", err
	}
	if _, err := s.c.InsertOne(ctx, r); err != nil {
		return "", err
	}
	return r.Token, nil
}

// Verify looks up a live token without consuming it, so the reset form
// can be shown before the user picks a password.
func (s *Store) Verify(ctx context.Context, token string) (*Reset, error) {
	var r Reset
	err := s.c.FindOne(ctx, bson.M{
		"token":      token,
		"expires_at": bson.M{"$gt": time.Now().UTC()},
	}).Decode(&r)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &r, nil
}

// Consume deletes a live token and returns its grant. Single use.
func (s *Store) Consume(ctx context.Context, token string) (*Reset, error) {
	var r Reset
	err := s.c.FindOneAndDelete(ctx, bson.M{
		"token":      token,
		"expires_at": bson.M{"$gt": time.Now().UTC()},
	}).Decode(&r)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &r, nil
}

// CleanupExpired removes expired tokens; backup for the TTL index.
func (s *Store) CleanupExpired(ctx context.Context) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lte": time.Now().UTC()}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
