package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"samadhan/models"
	"samadhan/repository"
)

// AuditRecorder writes append-only audit rows. Every write helper takes the
// transaction-bound store of the business operation it describes, so the
// audit row commits or rolls back together with the state it records.
type AuditRecorder struct {
	clock func() time.Time
}

// NewAuditRecorder creates an audit recorder.
func NewAuditRecorder() *AuditRecorder {
	return &AuditRecorder{clock: time.Now}
}

// Record writes one audit row inside the caller's transaction.
func (a *AuditRecorder) Record(ctx context.Context, tx repository.Store, entry *models.AuditLog) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = a.clock().UTC()
	}
	if err := tx.Audit().Create(ctx, entry); err != nil {
		return fmt.Errorf("failed to record audit entry: %w", err)
	}
	return nil
}

// RecordStateChange writes the STATE_CHANGE row for a complaint transition.
func (a *AuditRecorder) RecordStateChange(
	ctx context.Context,
	tx repository.Store,
	complaintID int64,
	from, to models.ComplaintStatus,
	caller models.CallerContext,
	reason string,
) error {
	return a.Record(ctx, tx, &models.AuditLog{
		EntityType: models.AuditEntityComplaint,
		EntityID:   complaintID,
		Action:     models.AuditActionStateChange,
		OldValue:   sql.NullString{String: string(from), Valid: true},
		NewValue:   sql.NullString{String: string(to), Valid: true},
		ActorType:  caller.ActorType(),
		ActorID:    nullableID(caller.UserID),
		Reason:     nullableString(reason),
	})
}

// RecordEscalation writes the ESCALATION row for a level raise. Escalation is
// always a system action.
func (a *AuditRecorder) RecordEscalation(
	ctx context.Context,
	tx repository.Store,
	complaintID int64,
	from, to models.EscalationLevel,
	reason string,
) error {
	return a.Record(ctx, tx, &models.AuditLog{
		EntityType: models.AuditEntityComplaint,
		EntityID:   complaintID,
		Action:     models.AuditActionEscalation,
		OldValue:   sql.NullString{String: from.String(), Valid: true},
		NewValue:   sql.NullString{String: to.String(), Valid: true},
		ActorType:  models.ActorSystem,
		Reason:     nullableString(reason),
	})
}

// RecordAssignment writes the ASSIGNMENT row for a routing decision.
func (a *AuditRecorder) RecordAssignment(
	ctx context.Context,
	tx repository.Store,
	complaintID int64,
	departmentID int64,
	caller models.CallerContext,
	reason string,
) error {
	return a.Record(ctx, tx, &models.AuditLog{
		EntityType: models.AuditEntityComplaint,
		EntityID:   complaintID,
		Action:     models.AuditActionAssignment,
		NewValue:   sql.NullString{String: fmt.Sprintf("department:%d", departmentID), Valid: true},
		ActorType:  caller.ActorType(),
		ActorID:    nullableID(caller.UserID),
		Reason:     nullableString(reason),
	})
}

// RecordFiled writes the intake row for a newly filed complaint: a
// STATE_CHANGE with no old value, so the audit trail reads as one unbroken
// walk from filing to the terminal state.
func (a *AuditRecorder) RecordFiled(
	ctx context.Context,
	tx repository.Store,
	complaintID int64,
	caller models.CallerContext,
) error {
	return a.Record(ctx, tx, &models.AuditLog{
		EntityType: models.AuditEntityComplaint,
		EntityID:   complaintID,
		Action:     models.AuditActionStateChange,
		NewValue:   sql.NullString{String: string(models.StatusFiled), Valid: true},
		ActorType:  caller.ActorType(),
		ActorID:    nullableID(caller.UserID),
		Reason:     nullableString("complaint filed"),
	})
}

// RecordProofSubmitted writes the CREATE row for a resolution proof.
func (a *AuditRecorder) RecordProofSubmitted(
	ctx context.Context,
	tx repository.Store,
	complaintID int64,
	proofID int64,
	caller models.CallerContext,
) error {
	return a.Record(ctx, tx, &models.AuditLog{
		EntityType: models.AuditEntityComplaint,
		EntityID:   complaintID,
		Action:     models.AuditActionCreate,
		NewValue:   sql.NullString{String: fmt.Sprintf("resolution_proof:%d", proofID), Valid: true},
		ActorType:  caller.ActorType(),
		ActorID:    nullableID(caller.UserID),
	})
}

// RecordSignoff writes the ACCEPT or DISPUTE row for a citizen signoff.
func (a *AuditRecorder) RecordSignoff(
	ctx context.Context,
	tx repository.Store,
	complaintID int64,
	accepted bool,
	caller models.CallerContext,
	reason string,
) error {
	action := models.AuditActionAccept
	if !accepted {
		action = models.AuditActionDispute
	}
	return a.Record(ctx, tx, &models.AuditLog{
		EntityType: models.AuditEntityComplaint,
		EntityID:   complaintID,
		Action:     action,
		ActorType:  caller.ActorType(),
		ActorID:    nullableID(caller.UserID),
		Reason:     nullableString(reason),
	})
}

// RecordDisputeReview writes the DISPUTE row for a department head's verdict
// on a pending dispute.
func (a *AuditRecorder) RecordDisputeReview(
	ctx context.Context,
	tx repository.Store,
	complaintID int64,
	approved bool,
	caller models.CallerContext,
	reason string,
) error {
	verdict := "APPROVED"
	if !approved {
		verdict = "REJECTED"
	}
	return a.Record(ctx, tx, &models.AuditLog{
		EntityType: models.AuditEntityComplaint,
		EntityID:   complaintID,
		Action:     models.AuditActionDispute,
		NewValue:   sql.NullString{String: verdict, Valid: true},
		ActorType:  caller.ActorType(),
		ActorID:    nullableID(caller.UserID),
		Reason:     nullableString(reason),
	})
}

// TrailFor returns the full audit trail of one entity, oldest first.
func (a *AuditRecorder) TrailFor(ctx context.Context, store repository.Store, entityType models.AuditEntityType, entityID int64) ([]models.AuditLog, error) {
	return store.Audit().FindByEntity(ctx, entityType, entityID)
}

// ByActionInWindow returns audit rows of one action kind inside [from, to).
func (a *AuditRecorder) ByActionInWindow(ctx context.Context, store repository.Store, action models.AuditAction, from, to time.Time) ([]models.AuditLog, error) {
	return store.Audit().FindByActionInWindow(ctx, action, from, to)
}

// ByActor returns audit rows written by one actor. A nil actorID with
// ActorSystem selects the system's own actions.
func (a *AuditRecorder) ByActor(ctx context.Context, store repository.Store, actorType models.ActorType, actorID *int64) ([]models.AuditLog, error) {
	return store.Audit().FindByActor(ctx, actorType, actorID)
}

func nullableID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
