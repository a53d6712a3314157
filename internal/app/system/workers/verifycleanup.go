// Package workers wires long-lived background loops for bootstrap to
// start and stop.
package workers

import (
	"github.com/dalemusser/teamforge/internal/app/store/emailverify"
	resetstore "github.com/dalemusser/teamforge/internal/app/store/resets"
	"github.com/dalemusser/teamforge/internal/app/system/tasks"
	"go.uber.org/zap"
)

// VerifyCleanup sweeps expired email verification codes and password
// reset tokens. Both collections carry TTL indexes; the sweep covers the
// window where Mongo's TTL monitor lags.
type VerifyCleanup struct {
	runner *tasks.Runner
	log    *zap.Logger
}

// NewVerifyCleanup creates the cleanup worker.
func NewVerifyCleanup(verify *emailverify.Store, resets *resetstore.Store, logger *zap.Logger) *VerifyCleanup {
	return &VerifyCleanup{
		runner: tasks.NewRunner(logger,
			tasks.VerificationCleanupJob(verify, logger),
			tasks.ResetCleanupJob(resets, logger),
		),
		log: logger,
	}
}

// Start launches the cleanup loops.
func (w *VerifyCleanup) Start() {
	w.runner.Start()
	w.log.Info("verification cleanup worker started")
}

// Stop signals the loops to exit and waits for them.
func (w *VerifyCleanup) Stop() {
	w.runner.Stop()
	w.log.Info("verification cleanup worker stopped")
}
