package jobs

import (
	"context"

	"station-rental-backend/internal/logger"
)

// ReconcileUnappliedPayments retries the internal side effects of SUCCESS
// payments that never got applied, the stored form of a gateway mismatch.
func (jr *JobRunner) ReconcileUnappliedPayments() {
	jr.runWithRecovery("ReconcileUnappliedPayments", func() {
		ctx := context.Background()

		repaired, err := jr.services.Payment.ReconcileUnapplied(ctx)
		if err != nil {
			logger.Error("Failed to reconcile unapplied payments", "error", err)
			return
		}
		if repaired > 0 {
			logger.Info("Reconciled unapplied payments", "count", repaired)
		}
	})
}
