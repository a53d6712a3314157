package tasks

import (
	"context"
	"time"

	"github.com/dalemusser/teamforge/internal/app/store/emailverify"
	resetstore "github.com/dalemusser/teamforge/internal/app/store/resets"
	"go.uber.org/zap"
)

// VerificationCleanupJob removes expired email verification codes. The
// collection has a TTL index; this is the backup for when Mongo's TTL
// sweep lags.
func VerificationCleanupJob(store *emailverify.Store, logger *zap.Logger) Job {
	return Job{
		Name:     "verification-cleanup",
		Interval: 1 * time.Hour,
		Run: func(ctx context.Context) error {
			count, err := store.CleanupExpired(ctx)
			if err != nil {
				return err
			}
			if count > 0 {
				logger.Debug("cleaned up expired verification codes", zap.Int64("count", count))
			}
			return nil
		},
	}
}

// ResetCleanupJob removes expired password reset tokens, again backing up
// the TTL index.
func ResetCleanupJob(store *resetstore.Store, logger *zap.Logger) Job {
	return Job{
		Name:     "reset-cleanup",
		Interval: 1 * time.Hour,
		Run: func(ctx context.Context) error {
			count, err := store.CleanupExpired(ctx)
			if err != nil {
				return err
			}
			if count > 0 {
				logger.Debug("cleaned up expired reset tokens", zap.Int64("count", count))
			}
			return nil
		},
	}
}
