package repository

import (
	"context"
	"fmt"

	"samadhan/models"
)

// MySQLProofRepository handles resolution proof rows.
type MySQLProofRepository struct {
	q DBTX
}

// Create inserts a resolution proof and assigns its id.
func (r *MySQLProofRepository) Create(ctx context.Context, p *models.ResolutionProof) error {
	query := `
		INSERT INTO resolution_proofs (
			complaint_id, staff_id, image_reference, latitude, longitude,
			captured_at, remarks, integrity_hash, is_verified, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := r.q.ExecContext(ctx, query,
		p.ComplaintID, p.StaffID, p.ImageReference, p.Latitude, p.Longitude,
		p.CapturedAt, p.Remarks, p.IntegrityHash, p.IsVerified, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create resolution proof: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get resolution proof ID: %w", err)
	}
	p.ProofID = id
	return nil
}

// ExistsFor reports whether at least one proof exists for the complaint.
func (r *MySQLProofRepository) ExistsFor(ctx context.Context, complaintID int64) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM resolution_proofs WHERE complaint_id = ?`
	if err := r.q.QueryRowContext(ctx, query, complaintID).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check resolution proof existence: %w", err)
	}
	return count > 0, nil
}

// FindByComplaint returns the proofs submitted for a complaint, oldest first.
func (r *MySQLProofRepository) FindByComplaint(ctx context.Context, complaintID int64) ([]models.ResolutionProof, error) {
	query := `
		SELECT proof_id, complaint_id, staff_id, image_reference, latitude, longitude,
		       captured_at, remarks, integrity_hash, is_verified, created_at
		FROM resolution_proofs
		WHERE complaint_id = ?
		ORDER BY created_at ASC, proof_id ASC
	`
	rows, err := r.q.QueryContext(ctx, query, complaintID)
	if err != nil {
		return nil, fmt.Errorf("failed to query resolution proofs: %w", err)
	}
	defer rows.Close()

	var proofs []models.ResolutionProof
	for rows.Next() {
		var p models.ResolutionProof
		err := rows.Scan(
			&p.ProofID, &p.ComplaintID, &p.StaffID, &p.ImageReference, &p.Latitude, &p.Longitude,
			&p.CapturedAt, &p.Remarks, &p.IntegrityHash, &p.IsVerified, &p.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan resolution proof: %w", err)
		}
		proofs = append(proofs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate resolution proofs: %w", err)
	}
	return proofs, nil
}
