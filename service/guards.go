package service

import (
	"context"
	"fmt"

	"samadhan/models"
	"samadhan/repository"
)

// GuardEvaluator checks transition preconditions that go beyond the state
// machine: ownership, department membership, and the artifact each edge
// requires. It reads through the caller's transaction and never mutates.
type GuardEvaluator struct{}

// NewGuardEvaluator creates a guard evaluator.
func NewGuardEvaluator() *GuardEvaluator {
	return &GuardEvaluator{}
}

// CheckTransition validates the preconditions of from -> target for the
// caller. The complaint must already be loaded under the transaction's row
// lock. Legality of the edge and role permission are the state machine's
// concern and are checked before this.
func (g *GuardEvaluator) CheckTransition(
	ctx context.Context,
	tx repository.Store,
	complaint *models.Complaint,
	target models.ComplaintStatus,
	caller models.CallerContext,
) error {
	if err := g.checkOwnership(complaint, target, caller); err != nil {
		return err
	}
	if err := g.checkDepartment(complaint, target, caller); err != nil {
		return err
	}

	from := complaint.Status
	switch {
	case from == models.StatusInProgress && target == models.StatusResolved:
		return g.requireProof(ctx, tx, complaint.ComplaintID)
	case from == models.StatusResolved && target == models.StatusClosed:
		if caller.IsSystem() {
			// Auto-close after citizen silence skips the signoff requirement.
			return nil
		}
		return g.requireAcceptedSignoff(ctx, tx, complaint.ComplaintID)
	case from == models.StatusResolved && target == models.StatusInProgress:
		return g.requireApprovedDispute(ctx, tx, complaint.ComplaintID)
	}
	return nil
}

// checkOwnership requires a citizen closing or cancelling a complaint to be
// its owner.
func (g *GuardEvaluator) checkOwnership(complaint *models.Complaint, target models.ComplaintStatus, caller models.CallerContext) error {
	if caller.Role != models.RoleCitizen {
		return nil
	}
	if target != models.StatusCancelled && target != models.StatusClosed {
		return nil
	}
	if caller.UserID == nil || complaint.CitizenID != *caller.UserID {
		var callerID int64
		if caller.UserID != nil {
			callerID = *caller.UserID
		}
		return &models.OwnershipViolationError{ComplaintID: complaint.ComplaintID, CallerID: callerID}
	}
	return nil
}

// checkDepartment requires an operational role resolving a complaint to
// belong to the complaint's department.
func (g *GuardEvaluator) checkDepartment(complaint *models.Complaint, target models.ComplaintStatus, caller models.CallerContext) error {
	if caller.Role != models.RoleStaff && caller.Role != models.RoleDeptHead {
		return nil
	}
	if target != models.StatusResolved {
		return nil
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
	return nil
}

func (g *GuardEvaluator) requireProof(ctx context.Context, tx repository.Store, complaintID int64) error {
	exists, err := tx.Proofs().ExistsFor(ctx, complaintID)
	if err != nil {
		return fmt.Errorf("failed to check resolution proof for complaint %d: %w", complaintID, err)
	}
	if !exists {
		return fmt.Errorf("complaint %d has no resolution proof: %w", complaintID, models.ErrResolutionProofRequired)
	}
	return nil
}

func (g *GuardEvaluator) requireAcceptedSignoff(ctx context.Context, tx repository.Store, complaintID int64) error {
	exists, err := tx.Signoffs().ExistsAcceptedFor(ctx, complaintID)
	if err != nil {
		return fmt.Errorf("failed to check signoff for complaint %d: %w", complaintID, err)
	}
	if !exists {
		return fmt.Errorf("complaint %d has no accepted signoff: %w", complaintID, models.ErrSignoffRequired)
	}
	return nil
}

// requireApprovedDispute gates the reopen edge. Only an approved dispute
// justifies moving a resolved complaint back to in-progress.
func (g *GuardEvaluator) requireApprovedDispute(ctx context.Context, tx repository.Store, complaintID int64) error {
	exists, err := tx.Signoffs().ExistsApprovedDisputeFor(ctx, complaintID)
	if err != nil {
		return fmt.Errorf("failed to check dispute approval for complaint %d: %w", complaintID, err)
	}
	if !exists {
		return fmt.Errorf("complaint %d has no approved dispute to reopen from: %w", complaintID, models.ErrInvalidTransition)
	}
	return nil
}
