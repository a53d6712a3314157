// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/teamforge/internal/app/store/emailverify"
	resetstore "github.com/dalemusser/teamforge/internal/app/store/resets"
	"github.com/dalemusser/teamforge/internal/app/system/indexes"
	"github.com/dalemusser/teamforge/internal/app/system/validators"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// ConnectDB establishes the MongoDB connection and verifies it with a
// ping before the rest of startup proceeds.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(appCfg.MongoURI))
	if err != nil {
		logger.Error("mongo connect failed", zap.Error(err))
		return DBDeps{}, err
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		logger.Error("mongo ping failed", zap.Error(err))
		_ = client.Disconnect(ctx)
		return DBDeps{}, err
	}

	logger.Info("connected to MongoDB", zap.String("database", appCfg.MongoDatabase))
	return DBDeps{
		MongoClient:   client,
		MongoDatabase: client.Database(appCfg.MongoDatabase),
	}, nil
}

// EnsureSchema creates the indexes every collection relies on: unique
// emails and usernames, the active-only unique team name, the single
// pending invitation per (team, recipient), one submission per team and
// track, and the TTL indexes that expire verification codes and reset
// tokens.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	db := deps.MongoDatabase

	if err := validators.EnsureAll(ctx, db); err != nil {
		logger.Error("collection validator setup failed", zap.Error(err))
		return err
	}
	if err := indexes.EnsureAll(ctx, db); err != nil {
		logger.Error("index creation failed", zap.Error(err))
		return err
	}
	if err := emailverify.New(db, appCfg.OTPExpiry, appCfg.OTPCooldown, appCfg.OTPMaxAttempts).EnsureIndexes(ctx); err != nil {
		logger.Error("email verification index creation failed", zap.Error(err))
		return err
	}
	if err := resetstore.New(db, appCfg.ResetExpiry).EnsureIndexes(ctx); err != nil {
		logger.Error("password reset index creation failed", zap.Error(err))
		return err
	}

	logger.Info("database indexes ensured")
	return nil
}
