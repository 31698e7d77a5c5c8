package service

import (
	"context"
	"fmt"
	"time"

	"samadhan/models"
	"samadhan/repository"
)

// Intake filing limits. A citizen gets a fixed daily filing budget, and
// identical content inside the duplicate window counts as a resubmission of
// the same grievance, not a new one.
const (
	maxFilingsPerWindow   = 3
	filingRateWindow      = 24 * time.Hour
	duplicateFilingWindow = 30 * time.Minute
)

// checkFilingLimits enforces the per-citizen rate limit and the duplicate
// window. It runs inside the intake transaction.
func (s *ComplaintService) checkFilingLimits(ctx context.Context, tx repository.Store, req *CreateComplaintRequest, citizenID int64, now time.Time) error {
	count, err := tx.Complaints().CountFiledSince(ctx, citizenID, now.Add(-filingRateWindow))
	if err != nil {
		return fmt.Errorf("check filing rate: %w", err)
	}
	if count >= maxFilingsPerWindow {
		return fmt.Errorf("citizen %d filed %d complaints in the last %v: %w",
			citizenID, count, filingRateWindow, models.ErrFilingRateLimited)
	}

	dup, err := tx.Complaints().HasRecentDuplicate(ctx, citizenID, req.Title, req.Description, req.Location, now.Add(-duplicateFilingWindow))
	if err != nil {
		return fmt.Errorf("check duplicate filing: %w", err)
	}
	if dup {
		return fmt.Errorf("identical complaint filed within the last %v: %w",
			duplicateFilingWindow, models.ErrDuplicateFiling)
	}
	return nil
}
