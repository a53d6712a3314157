package userstore

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/dalemusser/teamforge/internal/app/system/normalize"
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
	// ErrDuplicateEmail is returned when the email is already registered.
	ErrDuplicateEmail = errors.New("a user with this email already exists")
	// ErrDuplicateUsername is returned when the username is taken.
	ErrDuplicateUsername = errors.New("a user with this username already exists")
)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

// GetByID loads a user by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByEmail looks up a user by case-insensitive email. Returns
// mongo.ErrNoDocuments if not found.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"email_ci": text.Fold(email)}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByUsername looks up a user by folded username.
func (s *Store) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"username": normalize.Username(username)}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetMany loads the users for ids. Missing ids are simply absent from the
// result; callers that need all of them check the length.
func (s *Store) GetMany(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var users []models.User
	if err := cur.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// Create inserts a new user after normalizing fields. The caller has
// already verified the email and hashed the password.
func (s *Store) Create(ctx context.Context, u models.User) (models.User, error) {
	u.ID = primitive.NewObjectID()
	u.Username = normalize.Username(u.Username)
	u.Name = normalize.Name(u.Name)
	u.NameCI = text.Fold(u.Name)
	u.Email = normalize.Email(u.Email)
	u.EmailCI = text.Fold(u.Email)
	u.Department = normalize.Department(u.Department)
	u.TeamID = nil

	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, dupError(err)
		}
		return models.User{}, err
	}
	return u, nil
}

// dupError maps a duplicate-key error onto the field that collided. The
// index name appears in the error text; username is checked first since
// that index is hit first on insert.
func dupError(err error) error {
	if strings.Contains(err.Error(), "uniq_users_username") {
		return ErrDuplicateUsername
	}
	return ErrDuplicateEmail
}

// ProfileUpdate holds the fields a user can edit on their own profile.
// Email, username, and team membership are not among them.
type ProfileUpdate struct {
	Name        string
	Designation string
	Department  string
	Gender      string
	Skills      string
	Experience  int
	Bio         string
	AvatarURL   string
}

// UpdateProfile applies upd to the user's document.
func (s *Store) UpdateProfile(ctx context.Context, id primitive.ObjectID, upd ProfileUpdate) error {
	set := bson.M{
		"name":        normalize.Name(upd.Name),
		"name_ci":     text.Fold(upd.Name),
		"designation": normalize.Name(upd.Designation),
		"department":  normalize.Department(upd.Department),
		"gender":      upd.Gender,
		"skills":      upd.Skills,
		"experience":  upd.Experience,
		"bio":         upd.Bio,
		"avatar_url":  upd.AvatarURL,
		"updated_at":  time.Now().UTC(),
	}
	_, err := s.c.UpdateByID(ctx, id, bson.M{"$set": set})
	return err
}

// UpdatePassword replaces the stored bcrypt hash.
func (s *Store) UpdatePassword(ctx context.Context, id primitive.ObjectID, passwordHash string) error {
	_, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"password_hash": passwordHash,
		"updated_at":    time.Now().UTC(),
	}})
	return err
}

// SetTeam stamps team_id on every user in ids. Used by the roster engine
// only.
func (s *Store) SetTeam(ctx context.Context, ids []primitive.ObjectID, teamID primitive.ObjectID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.c.UpdateMany(ctx, bson.M{"_id": bson.M{"$in": ids}}, bson.M{"$set": bson.M{
		"team_id":    teamID,
		"updated_at": time.Now().UTC(),
	}})
	return err
}

// ClearTeam removes team_id from every user in ids.
func (s *Store) ClearTeam(ctx context.Context, ids []primitive.ObjectID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.c.UpdateMany(ctx, bson.M{"_id": bson.M{"$in": ids}}, bson.M{
		"$unset": bson.M{"team_id": ""},
		"$set":   bson.M{"updated_at": time.Now().UTC()},
	})
	return err
}

// ListFilter narrows the faculty directory.
type ListFilter struct {
	Department string
	Available  bool // only users without a team
	Search     string
	Page       int64
	PerPage    int64
}

// List returns a directory page plus the total match count.
func (s *Store) List(ctx context.Context, f ListFilter) ([]models.User, int64, error) {
	filter := bson.M{}
	if f.Department != "" {
		filter["department"] = normalize.Department(f.Department)
	}
	if f.Available {
		filter["team_id"] = bson.M{"$exists": false}
	}
	if f.Search != "" {
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
		SetSort(bson.D{{Key: "name_ci", Value: 1}}).
		SetSkip((f.Page - 1) * f.PerPage).
		SetLimit(f.PerPage)

	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	var users []models.User
	if err := cur.All(ctx, &users); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}
