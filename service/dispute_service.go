package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"samadhan/models"
	"samadhan/repository"
)

// SignoffRequest carries a citizen's response to a resolved complaint:
// either an acceptance with a rating or a dispute with a reason.
type SignoffRequest struct {
	ComplaintID           int64  `json:"complaint_id"`
	IsAccepted            bool   `json:"is_accepted"`
	Rating                *int   `json:"rating,omitempty"`
	Feedback              string `json:"feedback,omitempty"`
	DisputeReason         string `json:"dispute_reason,omitempty"`
	DisputeImageReference string `json:"dispute_image_reference,omitempty"`
}

// DisputeService handles the citizen rejection path: filing a dispute
// against a resolution and the department head's review of it. An approved
// review reopens the complaint through the system transition, inside the
// review's own transaction.
type DisputeService struct {
	store      repository.Store
	complaints *ComplaintService
	audit      *AuditRecorder
	notifier   *NotificationService
	clock      func() time.Time
}

// NewDisputeService creates the dispute workflow service.
func NewDisputeService(
	store repository.Store,
	complaints *ComplaintService,
	audit *AuditRecorder,
	notifier *NotificationService,
) *DisputeService {
	return &DisputeService{
		store:      store,
		complaints: complaints,
		audit:      audit,
		notifier:   notifier,
		clock:      time.Now,
	}
}

// SubmitSignoff validates ownership and routes to the accept or dispute
// path. The complaint must be RESOLVED. An acceptance records the rating;
// a dispute creates a pending review for the department head. While a
// dispute is pending no further signoff is taken: a second dispute is a
// duplicate and an acceptance must wait for the verdict. The check runs
// under the complaint's row lock so concurrent submissions cannot both pass.
func (s *DisputeService) SubmitSignoff(ctx context.Context, req *SignoffRequest, caller models.CallerContext) (*models.CitizenSignoff, error) {
	if err := caller.Validate(); err != nil {
		return nil, fmt.Errorf("invalid caller context: %w", err)
	}
	if caller.Role != models.RoleCitizen {
		return nil, fmt.Errorf("role %s may not submit a signoff: %w", caller.Role, models.ErrUnauthorized)
	}
	if req.IsAccepted {
		if req.Rating == nil || *req.Rating < 1 || *req.Rating > 5 {
			return nil, fmt.Errorf("acceptance requires a rating between 1 and 5")
		}
	} else if req.DisputeReason == "" {
		return nil, fmt.Errorf("dispute requires a reason")
	}

	var signoff *models.CitizenSignoff
	var complaint *models.Complaint
	err := s.store.RunInTransaction(ctx, func(tx repository.Store) error {
		var err error
		complaint, err = tx.Complaints().GetByIDForUpdate(ctx, req.ComplaintID)
		if err != nil {
			return err
		}
		if complaint.Status != models.StatusResolved {
			return fmt.Errorf("complaint %d is %s, signoff requires RESOLVED: %w",
				req.ComplaintID, complaint.Status, models.ErrInvalidDisputeState)
		}
		if complaint.CitizenID != *caller.UserID {
			return &models.OwnershipViolationError{ComplaintID: req.ComplaintID, CallerID: *caller.UserID}
		}

		// A pending dispute freezes the signoff slot entirely: a second
		// dispute is a duplicate, and an acceptance would let the citizen
		// close over the head of the review.
		_, err = tx.Signoffs().FindPendingDispute(ctx, req.ComplaintID)
		if err == nil {
			if req.IsAccepted {
				return fmt.Errorf("complaint %d has a dispute under review, acceptance must wait for the verdict: %w",
					req.ComplaintID, models.ErrInvalidDisputeState)
			}
			return fmt.Errorf("complaint %d already has a dispute under review: %w",
				req.ComplaintID, models.ErrDuplicateDispute)
		}
		if !errors.Is(err, models.ErrNotFound) {
			return err
		}

		now := s.clock().UTC()
		signoff = &models.CitizenSignoff{
			ComplaintID: req.ComplaintID,
			CitizenID:   *caller.UserID,
			IsAccepted:  req.IsAccepted,
			SignedOffAt: now,
		}
		var auditReason string
		if req.IsAccepted {
			signoff.Rating = sql.NullInt64{Int64: int64(*req.Rating), Valid: true}
			if req.Feedback != "" {
				signoff.Feedback = sql.NullString{String: req.Feedback, Valid: true}
			}
			auditReason = fmt.Sprintf("resolution accepted with rating %d", *req.Rating)
		} else {
			signoff.DisputeReason = sql.NullString{String: req.DisputeReason, Valid: true}
			if req.DisputeImageReference != "" {
				signoff.DisputeImageReference = sql.NullString{String: req.DisputeImageReference, Valid: true}
			}
			auditReason = req.DisputeReason
		}

		if err := tx.Signoffs().Create(ctx, signoff); err != nil {
			return err
		}
		if req.IsAccepted {
			if err := tx.Complaints().UpdateSatisfaction(ctx, req.ComplaintID, *req.Rating); err != nil {
				return err
			}
		}
		return s.audit.RecordSignoff(ctx, tx, req.ComplaintID, req.IsAccepted, caller, auditReason)
	})
	if err != nil {
		return nil, err
	}

	if req.IsAccepted {
		log.Printf("[DISPUTE] complaint %d resolution accepted by citizen %d (rating %d)", req.ComplaintID, *caller.UserID, *req.Rating)
		return signoff, nil
	}

	log.Printf("[DISPUTE] complaint %d disputed by citizen %d", req.ComplaintID, *caller.UserID)
	s.notifier.DispatchAll(s.disputeFiledNotices(ctx, complaint))
	return signoff, nil
}

// disputeFiledNotices alerts the assigned staff and the department head that
// a resolution was disputed.
func (s *DisputeService) disputeFiledNotices(ctx context.Context, complaint *models.Complaint) []*models.NotificationRequest {
	id := complaint.ComplaintID
	var notices []*models.NotificationRequest

	if complaint.StaffID.Valid {
		notices = append(notices, &models.NotificationRequest{
			UserID:      complaint.StaffID.Int64,
			Type:        models.NotificationResolutionDisputed,
			Title:       "Resolution disputed",
			Message:     fmt.Sprintf("The citizen disputed the resolution of complaint %s.", complaint.ComplaintNumber),
			ComplaintID: &id,
		})
	}

	if complaint.DepartmentID.Valid {
		head, err := s.store.Directory().DeptHeadFor(ctx, complaint.DepartmentID.Int64)
		if err != nil {
			log.Printf("[DISPUTE] no department head to notify for complaint %d: %v", id, err)
		} else {
			notices = append(notices, &models.NotificationRequest{
				UserID:      head,
				Type:        models.NotificationDisputeReceived,
				Title:       "Dispute awaiting review",
				Message:     fmt.Sprintf("A dispute on complaint %s is awaiting your review.", complaint.ComplaintNumber),
				ComplaintID: &id,
			})
		}
	}
	return notices
}

// ReviewDispute records the department head's verdict on a pending dispute.
// Approval reopens the complaint via the system transition in the same
// transaction; this is the only path from RESOLVED back to IN_PROGRESS.
func (s *DisputeService) ReviewDispute(ctx context.Context, signoffID int64, caller models.CallerContext, approved bool, rejectionReason string) (*models.CitizenSignoff, error) {
	if err := caller.Validate(); err != nil {
		return nil, fmt.Errorf("invalid caller context: %w", err)
	}
	if caller.Role != models.RoleDeptHead {
		return nil, fmt.Errorf("role %s may not review disputes: %w", caller.Role, models.ErrUnauthorized)
	}

	var signoff *models.CitizenSignoff
	var complaint *models.Complaint
	var pending []*models.NotificationRequest
	err := s.store.RunInTransaction(ctx, func(tx repository.Store) error {
		var err error
		signoff, err = tx.Signoffs().GetByID(ctx, signoffID)
		if err != nil {
			return err
		}
		complaint, err = tx.Complaints().GetByIDForUpdate(ctx, signoff.ComplaintID)
		if err != nil {
			return err
		}
		if !complaint.DepartmentID.Valid || caller.DepartmentID == nil || complaint.DepartmentID.Int64 != *caller.DepartmentID {
			var complaintDept *int64
			if complaint.DepartmentID.Valid {
				d := complaint.DepartmentID.Int64
				complaintDept = &d
			}
			return &models.DepartmentMismatchError{
				ComplaintID:         complaint.ComplaintID,
				CallerDepartment:    caller.DepartmentID,
				ComplaintDepartment: complaintDept,
			}
		}
		if !signoff.IsPendingDispute() {
			return fmt.Errorf("signoff %d is not a pending dispute: %w", signoffID, models.ErrInvalidDisputeState)
		}

		now := s.clock().UTC()
		var reasonPtr *string
		if !approved && rejectionReason != "" {
			reasonPtr = &rejectionReason
		}
		if err := tx.Signoffs().ReviewDispute(ctx, signoffID, approved, *caller.UserID, now, reasonPtr); err != nil {
			return err
		}

		auditReason := "dispute approved"
		if !approved {
			auditReason = "dispute rejected"
			if rejectionReason != "" {
				auditReason = fmt.Sprintf("dispute rejected: %s", rejectionReason)
			}
		}
		if err := s.audit.RecordDisputeReview(ctx, tx, complaint.ComplaintID, approved, caller, auditReason); err != nil {
			return err
		}

		signoff.DisputeApproved = sql.NullBool{Bool: approved, Valid: true}
		signoff.DisputeApprovedBy = sql.NullInt64{Int64: *caller.UserID, Valid: true}
		signoff.DisputeReviewedAt = sql.NullTime{Time: now, Valid: true}
		if reasonPtr != nil {
			signoff.DisputeRejectionReason = sql.NullString{String: *reasonPtr, Valid: true}
		}

		if !approved {
			pending = s.disputeRejectedNotices(complaint, rejectionReason)
			return nil
		}

		// Reopen inside this transaction; the reopen guard sees the approval
		// written above.
		_, notices, err := s.complaints.applyTransition(ctx, tx, complaint.ComplaintID, models.StatusInProgress, models.SystemCaller(), "dispute approved")
		if err != nil {
			return err
		}
		pending = append(notices, s.disputeApprovedNotices(complaint)...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	verdict := "approved"
	if !approved {
		verdict = "rejected"
	}
	log.Printf("[DISPUTE] dispute %d on complaint %d %s by department head %d", signoffID, complaint.ComplaintID, verdict, *caller.UserID)
	s.notifier.DispatchAll(pending)
	return signoff, nil
}

func (s *DisputeService) disputeApprovedNotices(complaint *models.Complaint) []*models.NotificationRequest {
	id := complaint.ComplaintID
	notices := []*models.NotificationRequest{{
		UserID:      complaint.CitizenID,
		Type:        models.NotificationDisputeApproved,
		Title:       "Dispute approved",
		Message:     fmt.Sprintf("Your dispute on complaint %s was approved. Work will resume.", complaint.ComplaintNumber),
		ComplaintID: &id,
	}}
	if complaint.StaffID.Valid {
		notices = append(notices, &models.NotificationRequest{
			UserID:      complaint.StaffID.Int64,
			Type:        models.NotificationComplaintReopened,
			Title:       "Complaint reopened",
			Message:     fmt.Sprintf("Complaint %s was reopened after a dispute was upheld.", complaint.ComplaintNumber),
			ComplaintID: &id,
		})
	}
	return notices
}

func (s *DisputeService) disputeRejectedNotices(complaint *models.Complaint, rejectionReason string) []*models.NotificationRequest {
	id := complaint.ComplaintID
	message := fmt.Sprintf("Your dispute on complaint %s was rejected.", complaint.ComplaintNumber)
	if rejectionReason != "" {
		message = fmt.Sprintf("Your dispute on complaint %s was rejected: %s", complaint.ComplaintNumber, rejectionReason)
	}
	return []*models.NotificationRequest{{
		UserID:      complaint.CitizenID,
		Type:        models.NotificationDisputeRejected,
		Title:       "Dispute rejected",
		Message:     message,
		ComplaintID: &id,
	}}
}

// PendingDisputesForDepartment lists the disputes awaiting the department
// head's review.
func (s *DisputeService) PendingDisputesForDepartment(ctx context.Context, caller models.CallerContext) ([]models.CitizenSignoff, error) {
	if err := caller.Validate(); err != nil {
		return nil, fmt.Errorf("invalid caller context: %w", err)
	}
	if caller.Role != models.RoleDeptHead {
		return nil, fmt.Errorf("role %s may not list pending disputes: %w", caller.Role, models.ErrUnauthorized)
	}
	if caller.DepartmentID == nil {
		return nil, fmt.Errorf("department head caller has no department: %w", models.ErrDepartmentMismatch)
	}
	return s.store.Signoffs().FindPendingDisputesByDepartment(ctx, *caller.DepartmentID)
}
