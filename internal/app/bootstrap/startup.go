// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/teamforge/internal/app/store/emailverify"
	resetstore "github.com/dalemusser/teamforge/internal/app/store/resets"
	"github.com/dalemusser/teamforge/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// cleanupWorker backs up the TTL indexes by sweeping expired
// verification codes and reset tokens. Started here, stopped in
// Shutdown.
var cleanupWorker *workers.VerifyCleanup

// Startup runs one-time application initialization after DB connections
// and schema setup are complete, but before the HTTP handler is built.
// It is the place to start background workers, warm caches, or perform
// any app-wide setup that depends on config and backends.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	db := deps.MongoDatabase

	verify := emailverify.New(db, appCfg.OTPExpiry, appCfg.OTPCooldown, appCfg.OTPMaxAttempts)
	resets := resetstore.New(db, appCfg.ResetExpiry)

	cleanupWorker = workers.NewVerifyCleanup(verify, resets, logger)
	cleanupWorker.Start()

	return nil
}
