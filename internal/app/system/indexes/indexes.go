// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

/*
EnsureAll is called at startup. Each ensure* function is idempotent.
Errors are aggregated so every problem is visible and startup can fail
fast.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	if err := ensureUsers(ctx, db); err != nil {
		problems = append(problems, "users: "+err.Error())
	}
	if err := ensureTeams(ctx, db); err != nil {
		problems = append(problems, "teams: "+err.Error())
	}
	if err := ensureInvitations(ctx, db); err != nil {
		problems = append(problems, "invitations: "+err.Error())
	}
	if err := ensureSubmissions(ctx, db); err != nil {
		problems = append(problems, "submissions: "+err.Error())
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func ensureUsers(ctx context.Context, db *mongo.Database) error {
	models := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email_ci", Value: 1}},
			Options: options.Index().SetName("uniq_users_email").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetName("uniq_users_username").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "department", Value: 1}},
			Options: options.Index().SetName("idx_users_department"),
		},
		{
			Keys:    bson.D{{Key: "team_id", Value: 1}},
			Options: options.Index().SetName("idx_users_team"),
		},
		{
			Keys:    bson.D{{Key: "name_ci", Value: 1}},
			Options: options.Index().SetName("idx_users_name_ci"),
		},
	}
	_, err := db.Collection("users").Indexes().CreateMany(ctx, models)
	return err
}

func ensureTeams(ctx context.Context, db *mongo.Database) error {
	models := []mongo.IndexModel{
		{
			// Unique among active teams only: a disbanded team's name can
			// be reused.
			Keys: bson.D{{Key: "name_ci", Value: 1}},
			Options: options.Index().
				SetName("uniq_teams_name_active").
				SetUnique(true).
				SetPartialFilterExpression(bson.D{{Key: "status", Value: "active"}}),
		},
		{
			Keys:    bson.D{{Key: "leader_id", Value: 1}},
			Options: options.Index().SetName("idx_teams_leader"),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "is_eligible", Value: 1}},
			Options: options.Index().SetName("idx_teams_status_eligible"),
		},
	}
	_, err := db.Collection("teams").Indexes().CreateMany(ctx, models)
	return err
}

func ensureInvitations(ctx context.Context, db *mongo.Database) error {
	models := []mongo.IndexModel{
		{
			// At most one pending invitation per (team, recipient).
			Keys: bson.D{{Key: "team_id", Value: 1}, {Key: "to_id", Value: 1}},
			Options: options.Index().
				SetName("uniq_invitations_pending").
				SetUnique(true).
				SetPartialFilterExpression(bson.D{{Key: "status", Value: "pending"}}),
		},
		{
			Keys:    bson.D{{Key: "to_id", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index().SetName("idx_invitations_recipient"),
		},
		{
			Keys:    bson.D{{Key: "team_id", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index().SetName("idx_invitations_team"),
		},
	}
	_, err := db.Collection("invitations").Indexes().CreateMany(ctx, models)
	return err
}

func ensureSubmissions(ctx context.Context, db *mongo.Database) error {
	models := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "team_id", Value: 1}, {Key: "track_id", Value: 1}},
			Options: options.Index().SetName("uniq_submissions_team_track").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "track_id", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index().SetName("idx_submissions_track_status"),
		},
	}
	_, err := db.Collection("submissions").Indexes().CreateMany(ctx, models)
	return err
}
