package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"samadhan/models"
)

// MySQLComplaintRepository handles database operations for complaints.
type MySQLComplaintRepository struct {
	q DBTX
}

// GenerateComplaintNumber generates a unique complaint reference.
// Format: GRV-YYYYMMDD-{8 hex chars}
func GenerateComplaintNumber(now time.Time) string {
	return fmt.Sprintf("GRV-%s-%s", now.UTC().Format("20060102"), uuid.New().String()[:8])
}

const complaintColumns = `
	complaint_id, complaint_number, citizen_id, title, description, location,
	category_id, department_id, staff_id, priority, status, escalation_level,
	sla_deadline, needs_manual_routing, ai_confidence, citizen_satisfaction,
	created_at, started_at, resolved_at, closed_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanComplaint(row rowScanner) (*models.Complaint, error) {
	var c models.Complaint
	err := row.Scan(
		&c.ComplaintID, &c.ComplaintNumber, &c.CitizenID, &c.Title, &c.Description, &c.Location,
		&c.CategoryID, &c.DepartmentID, &c.StaffID, &c.Priority, &c.Status, &c.EscalationLevel,
		&c.SLADeadline, &c.NeedsManualRouting, &c.AIConfidence, &c.CitizenSatisfaction,
		&c.CreatedAt, &c.StartedAt, &c.ResolvedAt, &c.ClosedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *MySQLComplaintRepository) queryComplaints(ctx context.Context, query string, args ...any) ([]models.Complaint, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query complaints: %w", err)
	}
	defer rows.Close()

	var complaints []models.Complaint
	for rows.Next() {
		c, err := scanComplaint(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan complaint: %w", err)
		}
		complaints = append(complaints, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate complaints: %w", err)
	}
	return complaints, nil
}

// Create inserts a new complaint and assigns its id.
func (r *MySQLComplaintRepository) Create(ctx context.Context, c *models.Complaint) error {
	query := `
		INSERT INTO complaints (
			complaint_number, citizen_id, title, description, location,
			category_id, department_id, staff_id, priority, status,
			escalation_level, sla_deadline, needs_manual_routing, ai_confidence,
			created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := r.q.ExecContext(ctx, query,
		c.ComplaintNumber, c.CitizenID, c.Title, c.Description, c.Location,
		c.CategoryID, c.DepartmentID, c.StaffID, c.Priority, c.Status,
		int(c.EscalationLevel), c.SLADeadline, c.NeedsManualRouting, c.AIConfidence,
		c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create complaint: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get complaint ID: %w", err)
	}
	c.ComplaintID = id
	return nil
}

// GetByID retrieves a complaint by its id.
func (r *MySQLComplaintRepository) GetByID(ctx context.Context, id int64) (*models.Complaint, error) {
	query := `SELECT` + complaintColumns + ` FROM complaints WHERE complaint_id = ?`
	c, err := scanComplaint(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapRowError(err, "complaint", id)
	}
	return c, nil
}

// GetByIDForUpdate retrieves a complaint and locks its row for the rest of
// the surrounding transaction.
func (r *MySQLComplaintRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Complaint, error) {
	query := `SELECT` + complaintColumns + ` FROM complaints WHERE complaint_id = ? FOR UPDATE`
	c, err := scanComplaint(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapRowError(err, "complaint", id)
	}
	return c, nil
}

// UpdateStatus sets the status and stamps the timestamp the new status
// implies. started_at is only stamped once; resolved_at is restamped on a
// re-resolve after a reopen.
func (r *MySQLComplaintRepository) UpdateStatus(ctx context.Context, id int64, status models.ComplaintStatus, at time.Time) error {
	var query string
	switch status {
	case models.StatusInProgress:
		query = `UPDATE complaints SET status = ?, started_at = COALESCE(started_at, ?) WHERE complaint_id = ?`
	case models.StatusResolved:
		query = `UPDATE complaints SET status = ?, resolved_at = ? WHERE complaint_id = ?`
	case models.StatusClosed:
		query = `UPDATE complaints SET status = ?, closed_at = ? WHERE complaint_id = ?`
	default:
		result, err := r.q.ExecContext(ctx, `UPDATE complaints SET status = ? WHERE complaint_id = ?`, status, id)
		if err != nil {
			return fmt.Errorf("failed to update complaint status: %w", err)
		}
		return requireRow(result, "complaint", id)
	}

	result, err := r.q.ExecContext(ctx, query, status, at, id)
	if err != nil {
		return fmt.Errorf("failed to update complaint status: %w", err)
	}
	return requireRow(result, "complaint", id)
}

// RaiseEscalationLevel bumps the level, but only upward. The WHERE clause
// keeps the level monotonic under concurrent escalation attempts.
func (r *MySQLComplaintRepository) RaiseEscalationLevel(ctx context.Context, id int64, newLevel models.EscalationLevel) (bool, error) {
	query := `UPDATE complaints SET escalation_level = ? WHERE complaint_id = ? AND escalation_level < ?`
	result, err := r.q.ExecContext(ctx, query, int(newLevel), id, int(newLevel))
	if err != nil {
		return false, fmt.Errorf("failed to raise escalation level: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n > 0, nil
}

// AssignRouting routes the complaint to a department, optionally assigns
// staff, sets the deadline, and clears the manual-routing flag.
func (r *MySQLComplaintRepository) AssignRouting(ctx context.Context, id int64, departmentID int64, staffID *int64, slaDeadline time.Time) error {
	query := `
		UPDATE complaints
		SET department_id = ?, staff_id = ?, sla_deadline = ?, needs_manual_routing = FALSE
		WHERE complaint_id = ?
	`
	var staff sql.NullInt64
	if staffID != nil {
		staff = sql.NullInt64{Int64: *staffID, Valid: true}
	}
	result, err := r.q.ExecContext(ctx, query, departmentID, staff, slaDeadline, id)
	if err != nil {
		return fmt.Errorf("failed to assign routing: %w", err)
	}
	return requireRow(result, "complaint", id)
}

// UpdateSatisfaction records the citizen's rating from an accepted signoff.
func (r *MySQLComplaintRepository) UpdateSatisfaction(ctx context.Context, id int64, rating int) error {
	result, err := r.q.ExecContext(ctx,
		`UPDATE complaints SET citizen_satisfaction = ? WHERE complaint_id = ?`, rating, id)
	if err != nil {
		return fmt.Errorf("failed to update satisfaction: %w", err)
	}
	return requireRow(result, "complaint", id)
}

// FindActiveWithDeadline returns the escalation candidate set: complaints
// that are not terminal and carry an SLA deadline.
func (r *MySQLComplaintRepository) FindActiveWithDeadline(ctx context.Context) ([]models.Complaint, error) {
	query := `SELECT` + complaintColumns + `
		FROM complaints
		WHERE status IN ('FILED', 'IN_PROGRESS', 'RESOLVED') AND sla_deadline IS NOT NULL
		ORDER BY sla_deadline ASC`
	return r.queryComplaints(ctx, query)
}

// FindOverdue returns active complaints whose deadline passed before the
// given instant.
func (r *MySQLComplaintRepository) FindOverdue(ctx context.Context, before time.Time) ([]models.Complaint, error) {
	query := `SELECT` + complaintColumns + `
		FROM complaints
		WHERE status IN ('FILED', 'IN_PROGRESS', 'RESOLVED') AND sla_deadline IS NOT NULL AND sla_deadline < ?
		ORDER BY sla_deadline ASC`
	return r.queryComplaints(ctx, query, before)
}

// FindAutoCloseCandidates returns RESOLVED complaints past the silence
// cutoff. A dispute under review blocks the sweep; anything else is fair
// game for auto-close.
func (r *MySQLComplaintRepository) FindAutoCloseCandidates(ctx context.Context, resolvedBefore time.Time) ([]models.Complaint, error) {
	query := `SELECT` + complaintColumns + `
		FROM complaints c
		WHERE c.status = 'RESOLVED' AND c.resolved_at IS NOT NULL AND c.resolved_at < ?
		  AND NOT EXISTS (
			SELECT 1 FROM citizen_signoffs s
			WHERE s.complaint_id = c.complaint_id
			  AND s.is_accepted = FALSE AND s.dispute_approved IS NULL
		  )
		ORDER BY c.resolved_at ASC`
	return r.queryComplaints(ctx, query, resolvedBefore)
}

// FindByCitizen returns a citizen's complaints, newest first.
func (r *MySQLComplaintRepository) FindByCitizen(ctx context.Context, citizenID int64) ([]models.Complaint, error) {
	query := `SELECT` + complaintColumns + ` FROM complaints WHERE citizen_id = ? ORDER BY created_at DESC`
	return r.queryComplaints(ctx, query, citizenID)
}

// CountFiledSince counts the citizen's filings at or after the cutoff,
// regardless of their current status.
func (r *MySQLComplaintRepository) CountFiledSince(ctx context.Context, citizenID int64, since time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM complaints WHERE citizen_id = ? AND created_at >= ?`
	var count int
	if err := r.q.QueryRowContext(ctx, query, citizenID, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("count filings for citizen %d: %w", citizenID, err)
	}
	return count, nil
}

// HasRecentDuplicate reports whether the citizen filed a complaint with
// identical content at or after the cutoff.
func (r *MySQLComplaintRepository) HasRecentDuplicate(ctx context.Context, citizenID int64, title, description, location string, since time.Time) (bool, error) {
	query := `SELECT EXISTS(
		SELECT 1 FROM complaints
		WHERE citizen_id = ? AND title = ? AND description = ? AND location = ? AND created_at >= ?
	)`
	var exists bool
	if err := r.q.QueryRowContext(ctx, query, citizenID, title, description, location, since).Scan(&exists); err != nil {
		return false, fmt.Errorf("check duplicate filing for citizen %d: %w", citizenID, err)
	}
	return exists, nil
}

// FindByStaff returns complaints assigned to a staff member, newest first.
func (r *MySQLComplaintRepository) FindByStaff(ctx context.Context, staffID int64) ([]models.Complaint, error) {
	query := `SELECT` + complaintColumns + ` FROM complaints WHERE staff_id = ? ORDER BY created_at DESC`
	return r.queryComplaints(ctx, query, staffID)
}

// FindByDepartment returns a department's complaints, newest first.
func (r *MySQLComplaintRepository) FindByDepartment(ctx context.Context, departmentID int64) ([]models.Complaint, error) {
	query := `SELECT` + complaintColumns + ` FROM complaints WHERE department_id = ? ORDER BY created_at DESC`
	return r.queryComplaints(ctx, query, departmentID)
}

// FindUnassignedActiveByDepartment returns a department's active complaints
// with no assigned staff.
func (r *MySQLComplaintRepository) FindUnassignedActiveByDepartment(ctx context.Context, departmentID int64) ([]models.Complaint, error) {
	query := `SELECT` + complaintColumns + `
		FROM complaints
		WHERE department_id = ? AND staff_id IS NULL AND status NOT IN ('CLOSED', 'CANCELLED')
		ORDER BY created_at ASC`
	return r.queryComplaints(ctx, query, departmentID)
}

// FindNeedingManualRouting returns filed complaints awaiting an admin's
// department assignment, oldest first.
func (r *MySQLComplaintRepository) FindNeedingManualRouting(ctx context.Context) ([]models.Complaint, error) {
	query := `SELECT` + complaintColumns + `
		FROM complaints
		WHERE needs_manual_routing = TRUE AND status = 'FILED'
		ORDER BY created_at ASC`
	return r.queryComplaints(ctx, query)
}

// FindEscalated returns complaints escalated above L0, most escalated first.
func (r *MySQLComplaintRepository) FindEscalated(ctx context.Context) ([]models.Complaint, error) {
	query := `SELECT` + complaintColumns + `
		FROM complaints
		WHERE escalation_level > 0
		ORDER BY escalation_level DESC, sla_deadline ASC`
	return r.queryComplaints(ctx, query)
}

// CountByStatus groups complaints by status, optionally for one department.
func (r *MySQLComplaintRepository) CountByStatus(ctx context.Context, departmentID *int64) ([]models.StatusCount, error) {
	query := `SELECT status, COUNT(*) FROM complaints GROUP BY status`
	args := []any{}
	if departmentID != nil {
		query = `SELECT status, COUNT(*) FROM complaints WHERE department_id = ? GROUP BY status`
		args = append(args, *departmentID)
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count complaints by status: %w", err)
	}
	defer rows.Close()

	var counts []models.StatusCount
	for rows.Next() {
		var sc models.StatusCount
		if err := rows.Scan(&sc.Status, &sc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		counts = append(counts, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate status counts: %w", err)
	}
	return counts, nil
}

// requireRow converts a zero-rows-affected update into ErrNotFound.
func requireRow(result sql.Result, what string, id int64) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", what, id, models.ErrNotFound)
	}
	return nil
}
