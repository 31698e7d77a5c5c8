package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"samadhan/models"
)

// MySQLSignoffRepository handles citizen signoffs and their dispute review
// fields. A complaint may accumulate many signoff rows; at most one dispute
// may be pending review at a time, guarded by the caller's transaction
// holding the complaint row lock.
type MySQLSignoffRepository struct {
	q DBTX
}

const signoffColumns = `
	signoff_id, complaint_id, citizen_id, is_accepted, rating, feedback,
	dispute_reason, dispute_image_reference, signed_off_at,
	dispute_approved, dispute_approved_by, dispute_reviewed_at, dispute_rejection_reason`

func scanSignoff(row rowScanner) (*models.CitizenSignoff, error) {
	var s models.CitizenSignoff
	err := row.Scan(
		&s.SignoffID, &s.ComplaintID, &s.CitizenID, &s.IsAccepted, &s.Rating, &s.Feedback,
		&s.DisputeReason, &s.DisputeImageReference, &s.SignedOffAt,
		&s.DisputeApproved, &s.DisputeApprovedBy, &s.DisputeReviewedAt, &s.DisputeRejectionReason,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Create inserts a signoff row and assigns its id.
func (r *MySQLSignoffRepository) Create(ctx context.Context, s *models.CitizenSignoff) error {
	query := `
		INSERT INTO citizen_signoffs (
			complaint_id, citizen_id, is_accepted, rating, feedback,
			dispute_reason, dispute_image_reference, signed_off_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := r.q.ExecContext(ctx, query,
		s.ComplaintID, s.CitizenID, s.IsAccepted, s.Rating, s.Feedback,
		s.DisputeReason, s.DisputeImageReference, s.SignedOffAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create signoff: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get signoff ID: %w", err)
	}
	s.SignoffID = id
	return nil
}

// GetByID retrieves a signoff by id.
func (r *MySQLSignoffRepository) GetByID(ctx context.Context, id int64) (*models.CitizenSignoff, error) {
	query := `SELECT` + signoffColumns + ` FROM citizen_signoffs WHERE signoff_id = ?`
	s, err := scanSignoff(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapRowError(err, "signoff", id)
	}
	return s, nil
}

// ExistsAcceptedFor reports whether the complaint has an accepted signoff.
func (r *MySQLSignoffRepository) ExistsAcceptedFor(ctx context.Context, complaintID int64) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM citizen_signoffs WHERE complaint_id = ? AND is_accepted = TRUE`
	if err := r.q.QueryRowContext(ctx, query, complaintID).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check accepted signoff: %w", err)
	}
	return count > 0, nil
}

// ExistsApprovedDisputeFor reports whether the complaint has an approved
// dispute on record.
func (r *MySQLSignoffRepository) ExistsApprovedDisputeFor(ctx context.Context, complaintID int64) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM citizen_signoffs WHERE complaint_id = ? AND is_accepted = FALSE AND dispute_approved = TRUE`
	if err := r.q.QueryRowContext(ctx, query, complaintID).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check approved dispute: %w", err)
	}
	return count > 0, nil
}

// FindPendingDispute returns the dispute awaiting review for the complaint,
// or ErrNotFound when none is pending.
func (r *MySQLSignoffRepository) FindPendingDispute(ctx context.Context, complaintID int64) (*models.CitizenSignoff, error) {
	query := `SELECT` + signoffColumns + `
		FROM citizen_signoffs
		WHERE complaint_id = ? AND is_accepted = FALSE AND dispute_approved IS NULL
		ORDER BY signed_off_at DESC
		LIMIT 1`
	s, err := scanSignoff(r.q.QueryRowContext(ctx, query, complaintID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("pending dispute for complaint %d: %w", complaintID, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find pending dispute: %w", err)
	}
	return s, nil
}

// FindPendingDisputesByDepartment returns disputes awaiting review across a
// department's complaints, oldest first.
func (r *MySQLSignoffRepository) FindPendingDisputesByDepartment(ctx context.Context, departmentID int64) ([]models.CitizenSignoff, error) {
	query := `
		SELECT s.signoff_id, s.complaint_id, s.citizen_id, s.is_accepted, s.rating, s.feedback,
		       s.dispute_reason, s.dispute_image_reference, s.signed_off_at,
		       s.dispute_approved, s.dispute_approved_by, s.dispute_reviewed_at, s.dispute_rejection_reason
		FROM citizen_signoffs s
		JOIN complaints c ON c.complaint_id = s.complaint_id
		WHERE c.department_id = ? AND s.is_accepted = FALSE AND s.dispute_approved IS NULL
		ORDER BY s.signed_off_at ASC
	`
	rows, err := r.q.QueryContext(ctx, query, departmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending disputes: %w", err)
	}
	defer rows.Close()

	var signoffs []models.CitizenSignoff
	for rows.Next() {
		s, err := scanSignoff(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan signoff: %w", err)
		}
		signoffs = append(signoffs, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate signoffs: %w", err)
	}
	return signoffs, nil
}

// ReviewDispute records the department head's decision on a pending dispute.
// The WHERE clause only matches a still-pending dispute; an already-reviewed
// one returns ErrInvalidDisputeState.
func (r *MySQLSignoffRepository) ReviewDispute(ctx context.Context, signoffID int64, approved bool, reviewedBy int64, reviewedAt time.Time, rejectionReason *string) error {
	query := `
		UPDATE citizen_signoffs
		SET dispute_approved = ?, dispute_approved_by = ?, dispute_reviewed_at = ?, dispute_rejection_reason = ?
		WHERE signoff_id = ? AND is_accepted = FALSE AND dispute_approved IS NULL
	`
	var reason sql.NullString
	if rejectionReason != nil {
		reason = sql.NullString{String: *rejectionReason, Valid: true}
	}
	result, err := r.q.ExecContext(ctx, query, approved, reviewedBy, reviewedAt, reason, signoffID)
	if err != nil {
		return fmt.Errorf("failed to review dispute: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("signoff %d is not a pending dispute: %w", signoffID, models.ErrInvalidDisputeState)
	}
	return nil
}
