// internal/app/store/emailverify/store.go
package emailverify

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/teamforge/internal/app/system/normalize"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"
)

const (
	// CodeLength is the length of the verification code (6 digits).
	CodeLength = 6
	// DefaultExpiry is how long a verification code is valid.
	DefaultExpiry = 5 * time.Minute
	// DefaultCooldown is the minimum gap between sends to one address.
	DefaultCooldown = time.Minute
	// DefaultMaxAttempts bounds wrong-code guesses per verification.
	DefaultMaxAttempts = 3
	// BcryptCost for hashing codes.
	BcryptCost = 10
)

var (
	// ErrNotFound is returned when no live verification exists for the email.
	ErrNotFound = errors.New("verification not found or expired")
	// ErrInvalidCode is returned when the code doesn't match.
	ErrInvalidCode = errors.New("invalid verification code")
	// ErrTooManyAttempts is returned once the attempt budget is spent.
	ErrTooManyAttempts = errors.New("too many verification attempts; request a new code")
	// ErrCooldown is returned when a resend comes before the cooldown expires.
	ErrCooldown = errors.New("a code was sent recently; wait before requesting another")
	// ErrNotVerified is returned by Consume when the email has no verified
	// record.
	ErrNotVerified = errors.New("email has not been verified")
)

// Verification is one pending or completed email verification. Records
// are keyed by email because they predate the user account.
type Verification struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Email     string             `bson:"email"`
	CodeHash  string             `bson:"code_hash"` // bcrypt hash of the 6-digit code
	Verified  bool               `bson:"verified"`
	Attempts  int                `bson:"attempts"`
	ExpiresAt time.Time          `bson:"expires_at"` // TTL index field
	CreatedAt time.Time          `bson:"created_at"`
}

// Store manages email verification records.
type Store struct {
	c           *mongo.Collection
	expiry      time.Duration
	cooldown    time.Duration
	maxAttempts int
}

// New creates a Store. Zero or negative settings fall back to defaults.
func New(db *mongo.Database, expiry, cooldown time.Duration, maxAttempts int) *Store {
	if expiry <= 0 {
		expiry = DefaultExpiry
	}
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Store{
		c:           db.Collection("email_verifications"),
		expiry:      expiry,
		cooldown:    cooldown,
		maxAttempts: maxAttempts,
	}
}

// Expiry returns the configured code lifetime.
func (s *Store) Expiry() time.Duration {
	return s.expiry
}

// EnsureIndexes creates the TTL and email indexes.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetName("idx_emailverify_expires_ttl").SetExpireAfterSeconds(0),
		},
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName("idx_emailverify_email"),
		},
	}
	_, err := s.c.Indexes().CreateMany(ctx, models)
	return err
}

// Create issues a fresh code for email and returns the plaintext to send.
// Any previous record for the address is replaced; resending inside the
// cooldown window returns ErrCooldown.
func (s *Store) Create(ctx context.Context, email string) (string, error) {
	email = normalize.Email(email)
	now := time.Now().UTC()

	var existing Verification
	err := s.c.FindOne(ctx, bson.M{"email": email}).Decode(&existing)
	if err == nil && now.Before(existing.CreatedAt.Add(s.cooldown)) {
		return "", ErrCooldown
	}

	code := generateCode()
	hash, err := bcrypt.GenerateFromPassword([]byte(code), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash code: %w", err)
	}

	v := Verification{
		ID:        primitive.NewObjectID(),
		Email:     email,
		CodeHash:  string(hash),
		Verified:  false,
		Attempts:  0,
		ExpiresAt: now.Add(s.expiry),
		CreatedAt: now,
	}

	// One live record per address.
	if _, err := s.c.DeleteMany(ctx, bson.M{"email": email}); err != nil {
		return "", err
	}
	if _, err := s.c.InsertOne(ctx, v); err != nil {
		return "", fmt.Errorf("insert verification: %w", err)
	}
	return code, nil
}

// VerifyCode checks code against the live record for email and, on
// success, marks the record verified so registration can consume it.
func (s *Store) VerifyCode(ctx context.Context, email, code string) error {
	email = normalize.Email(email)

	var v Verification
	err := s.c.FindOne(ctx, bson.M{
		"email":      email,
		"expires_at": bson.M{"$gt": time.Now().UTC()},
	}).Decode(&v)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return ErrNotFound
		}
		return err
	}

	if v.Attempts >= s.maxAttempts {
		return ErrTooManyAttempts
	}

	// Count the attempt before comparing; a wrong guess always burns one.
	if _, err := s.c.UpdateOne(ctx, bson.M{"_id": v.ID}, bson.M{"$inc": bson.M{"attempts": 1}}); err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(v.CodeHash), []byte(code)); err != nil {
		return ErrInvalidCode
	}

	_, err = s.c.UpdateOne(ctx, bson.M{"_id": v.ID}, bson.M{"$set": bson.M{"verified": true}})
	return err
}

// Consume checks that email holds a verified, unexpired record and
// deletes it. Registration calls this exactly once; a second registration
// attempt with the same verification fails.
func (s *Store) Consume(ctx context.Context, email string) error {
	email = normalize.Email(email)

	res, err := s.c.DeleteOne(ctx, bson.M{
		"email":      email,
		"verified":   true,
		"expires_at": bson.M{"$gt": time.Now().UTC()},
	})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotVerified
	}
	return nil
}

// CleanupExpired removes expired records. The TTL index normally handles
// this; the background job is a backup for servers where TTL sweeps lag.
func (s *Store) CleanupExpired(ctx context.Context) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lte": time.Now().UTC()}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// generateCode generates a random 6-digit numeric code.
// Panics if the system's cryptographic random number generator fails.
func generateCode() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand.Read failed: " + err.Error())
	}
	n := int(b[0])<<24 | int(b[1])<<16 | int(b[2])<<8 | int(b[3])
	if n < 0 {
		n = -n
	}
	code := (n % 900000) + 100000
	return fmt.Sprintf("%06d", code)
}
