package repository

import (
	"context"
	"fmt"

	"samadhan/models"
)

// MySQLEscalationEventRepository handles the immutable escalation event log.
// Rows are inserted once and never changed; uniqueness of
// (complaint_id, escalation_level) is enforced by the schema.
type MySQLEscalationEventRepository struct {
	q DBTX
}

// Create inserts an escalation event and assigns its id. Losing the
// unique-key race returns ErrConflictingUpdate; by then an equivalent event
// already exists, so callers treat it as a no-op success.
func (r *MySQLEscalationEventRepository) Create(ctx context.Context, e *models.EscalationEvent) error {
	query := `
		INSERT INTO escalation_events (
			complaint_id, previous_level, escalation_level, escalated_at,
			escalated_to_role, reason, days_overdue, sla_deadline_snapshot, is_automated
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := r.q.ExecContext(ctx, query,
		e.ComplaintID, int(e.PreviousLevel), int(e.EscalationLevel), e.EscalatedAt,
		e.EscalatedToRole, e.Reason, e.DaysOverdue, e.SLADeadlineSnapshot, e.IsAutomated,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("escalation event for complaint %d level %s already recorded: %w",
				e.ComplaintID, e.EscalationLevel, models.ErrConflictingUpdate)
		}
		return fmt.Errorf("failed to create escalation event: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get escalation event ID: %w", err)
	}
	e.EventID = id
	return nil
}

// ExistsFor reports whether an event is already recorded for the complaint
// at the given level.
func (r *MySQLEscalationEventRepository) ExistsFor(ctx context.Context, complaintID int64, level models.EscalationLevel) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM escalation_events WHERE complaint_id = ? AND escalation_level = ?`
	if err := r.q.QueryRowContext(ctx, query, complaintID, int(level)).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check escalation event existence: %w", err)
	}
	return count > 0, nil
}

// FindByComplaint returns the escalation history of a complaint, oldest first.
func (r *MySQLEscalationEventRepository) FindByComplaint(ctx context.Context, complaintID int64) ([]models.EscalationEvent, error) {
	query := `
		SELECT event_id, complaint_id, previous_level, escalation_level, escalated_at,
		       escalated_to_role, reason, days_overdue, sla_deadline_snapshot, is_automated
		FROM escalation_events
		WHERE complaint_id = ?
		ORDER BY escalated_at ASC, event_id ASC
	`
	rows, err := r.q.QueryContext(ctx, query, complaintID)
	if err != nil {
		return nil, fmt.Errorf("failed to query escalation events: %w", err)
	}
	defer rows.Close()

	var events []models.EscalationEvent
	for rows.Next() {
		var e models.EscalationEvent
		err := rows.Scan(
			&e.EventID, &e.ComplaintID, &e.PreviousLevel, &e.EscalationLevel, &e.EscalatedAt,
			&e.EscalatedToRole, &e.Reason, &e.DaysOverdue, &e.SLADeadlineSnapshot, &e.IsAutomated,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan escalation event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate escalation events: %w", err)
	}
	return events, nil
}
