// internal/app/store/submissions/submissionstore.go
package submissionstore

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

// ErrDuplicateTrack is returned when the team already submitted for the
// track.
var ErrDuplicateTrack = errors.New("this team has already submitted for this track")

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("submissions")}
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Submission, error) {
	var sub models.Submission
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&sub); err != nil {
		return models.Submission{}, err
	}
	return sub, nil
}

// Create inserts a submission. The unique index on (team_id, track_id)
// enforces one entry per team per track.
func (s *Store) Create(ctx context.Context, sub models.Submission) (models.Submission, error) {
	now := time.Now().UTC()
	sub.ID = primitive.NewObjectID()
	if sub.Status == "" {
		sub.Status = models.SubmissionSubmitted
	}
	sub.CreatedAt = now
	sub.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, sub); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Submission{}, ErrDuplicateTrack
		}
		return models.Submission{}, err
	}
	return sub, nil
}

// UpdateDetails edits the description and files of an existing
// submission. Status and review fields are changed through SetReview.
func (s *Store) UpdateDetails(ctx context.Context, id primitive.ObjectID, description string, files []models.SubmissionFile) error {
	set := bson.M{
		"description": description,
		"updated_at":  time.Now().UTC(),
	}
	if files != nil {
		set["files"] = files
	}
	_, err := s.c.UpdateByID(ctx, id, bson.M{"$set": set})
	return err
}

// SetReview records a review decision.
func (s *Store) SetReview(ctx context.Context, id primitive.ObjectID, status, notes string, reviewerID primitive.ObjectID) error {
	now := time.Now().UTC()
	_, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"status":       status,
		"review_notes": notes,
		"reviewed_by":  reviewerID,
		"reviewed_at":  now,
		"updated_at":   now,
	}})
	return err
}

// Delete withdraws a submission while it has not entered review.
// Returns mongo.ErrNoDocuments when nothing matched, so callers can tell
// a missing record from one already under review.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{
		"_id":    id,
		"status": models.SubmissionSubmitted,
	})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// ListByTeam returns a team's submissions, newest first.
func (s *Store) ListByTeam(ctx context.Context, teamID primitive.ObjectID) ([]models.Submission, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := s.c.Find(ctx, bson.M{"team_id": teamID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var subs []models.Submission
	if err := cur.All(ctx, &subs); err != nil {
		return nil, err
	}
	return subs, nil
}

// ListFilter narrows the submissions listing.
type ListFilter struct {
	TrackID string
	Status  string
	Page    int64
	PerPage int64
}

// List returns submissions plus the total match count.
func (s *Store) List(ctx context.Context, f ListFilter) ([]models.Submission, int64, error) {
	filter := bson.M{}
	if f.TrackID != "" {
		filter["track_id"] = f.TrackID
	}
	if f.Status != "" {
		filter["status"] = f.Status
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

	var subs []models.Submission
	if err := cur.All(ctx, &subs); err != nil {
		return nil, 0, err
	}
	return subs, total, nil
}

// TrackCount is one row of the per-track stats aggregation.
type TrackCount struct {
	TrackID string `bson:"_id"`
	Count   int64  `bson:"count"`
}

// CountByTrack aggregates submission counts per track.
func (s *Store) CountByTrack(ctx context.Context) ([]TrackCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$track_id"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}}}},
	}

	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var counts []TrackCount
	if err := cur.All(ctx, &counts); err != nil {
		return nil, err
	}
	return counts, nil
}
