package jobs

import (
	"context"
	"time"

	"station-rental-backend/internal/logger"
)

// ExpireStaleHolds flips HELD bookings past their hold deadline to EXPIRED.
// Reads already treat such bookings as expired lazily; the sweep keeps the
// table consistent for anything that queries statuses directly.
func (jr *JobRunner) ExpireStaleHolds() {
	jr.runWithRecovery("ExpireStaleHolds", func() {
		ctx := context.Background()

		expired, err := jr.store.BookingRepository.ExpireHeldBefore(ctx, time.Now())
		if err != nil {
			logger.Error("Failed to expire stale holds", "error", err)
			return
		}
		if len(expired) == 0 {
			return
		}

		for _, b := range expired {
			logger.Info("Expired stale hold",
				"booking_id", b.ID,
				"customer_id", b.CustomerID,
				"hold_expires_at", b.HoldExpiresAt)
		}
		logger.Info("Expired stale holds", "count", len(expired))
	})
}
