package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"samadhan/models"
)

// MySQLAuditRepository handles the append-only audit log. Only inserts and
// reads exist here; the table is never updated or deleted from.
type MySQLAuditRepository struct {
	q DBTX
}

const auditColumns = `
	audit_id, entity_type, entity_id, action, old_value, new_value,
	actor_type, actor_id, reason, created_at`

// Create appends an audit row and assigns its id and timestamp.
func (r *MySQLAuditRepository) Create(ctx context.Context, a *models.AuditLog) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO audit_log (
			entity_type, entity_id, action, old_value, new_value,
			actor_type, actor_id, reason, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := r.q.ExecContext(ctx, query,
		a.EntityType, a.EntityID, a.Action, a.OldValue, a.NewValue,
		a.ActorType, a.ActorID, a.Reason, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create audit log entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get audit log ID: %w", err)
	}
	a.AuditID = id
	return nil
}

func (r *MySQLAuditRepository) queryAudit(ctx context.Context, query string, args ...any) ([]models.AuditLog, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	var entries []models.AuditLog
	for rows.Next() {
		var a models.AuditLog
		err := rows.Scan(
			&a.AuditID, &a.EntityType, &a.EntityID, &a.Action, &a.OldValue, &a.NewValue,
			&a.ActorType, &a.ActorID, &a.Reason, &a.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit log entry: %w", err)
		}
		entries = append(entries, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate audit log: %w", err)
	}
	return entries, nil
}

// FindByEntity returns the audit trail of one entity, oldest first.
func (r *MySQLAuditRepository) FindByEntity(ctx context.Context, entityType models.AuditEntityType, entityID int64) ([]models.AuditLog, error) {
	query := `SELECT` + auditColumns + `
		FROM audit_log
		WHERE entity_type = ? AND entity_id = ?
		ORDER BY created_at ASC, audit_id ASC`
	return r.queryAudit(ctx, query, entityType, entityID)
}

// FindByActionInWindow returns rows for one action within [from, to),
// oldest first.
func (r *MySQLAuditRepository) FindByActionInWindow(ctx context.Context, action models.AuditAction, from, to time.Time) ([]models.AuditLog, error) {
	query := `SELECT` + auditColumns + `
		FROM audit_log
		WHERE action = ? AND created_at >= ? AND created_at < ?
		ORDER BY created_at ASC, audit_id ASC`
	return r.queryAudit(ctx, query, action, from, to)
}

// FindByActor returns rows recorded for one actor, oldest first. A nil
// actorID selects SYSTEM rows.
func (r *MySQLAuditRepository) FindByActor(ctx context.Context, actorType models.ActorType, actorID *int64) ([]models.AuditLog, error) {
	if actorID == nil {
		query := `SELECT` + auditColumns + `
			FROM audit_log
			WHERE actor_type = ? AND actor_id IS NULL
			ORDER BY created_at ASC, audit_id ASC`
		return r.queryAudit(ctx, query, actorType)
	}
	query := `SELECT` + auditColumns + `
		FROM audit_log
		WHERE actor_type = ? AND actor_id = ?
		ORDER BY created_at ASC, audit_id ASC`
	return r.queryAudit(ctx, query, actorType, sql.NullInt64{Int64: *actorID, Valid: true})
}
