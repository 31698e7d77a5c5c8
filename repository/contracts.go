package repository

import (
	"context"
	"time"

	"samadhan/models"
)

// Store aggregates the entity repositories over one database handle and
// provides the transaction boundary. RunInTransaction yields a Store whose
// repositories are bound to the transaction; the business write and its
// audit row must go through that bound Store so they commit or roll back
// together. Notification writes must NOT run inside such a transaction.
type Store interface {
	Complaints() ComplaintRepository
	Proofs() ProofRepository
	Signoffs() SignoffRepository
	Events() EscalationEventRepository
	Audit() AuditRepository
	Notifications() NotificationRepository
	Categories() CategoryRepository
	Directory() PrincipalDirectory

	// RunInTransaction executes fn within a single transaction. A non-nil
	// error from fn rolls everything back and is returned unchanged.
	// Transient connection failures retry the whole closure; callers keep
	// closures idempotent or protected by unique keys. Nesting is not
	// supported.
	RunInTransaction(ctx context.Context, fn func(tx Store) error) error

	Ping(ctx context.Context) error
	Close() error
}

// ComplaintRepository is data access for complaints. Status fields are only
// ever written through UpdateStatus so the timestamp rules stay in one place.
type ComplaintRepository interface {
	Create(ctx context.Context, c *models.Complaint) error
	GetByID(ctx context.Context, id int64) (*models.Complaint, error)
	// GetByIDForUpdate takes a row lock; call it only inside a transaction.
	GetByIDForUpdate(ctx context.Context, id int64) (*models.Complaint, error)

	// UpdateStatus sets the status and the entry timestamp the new status
	// implies (started_at, resolved_at, closed_at). Escalation level is
	// never touched here.
	UpdateStatus(ctx context.Context, id int64, status models.ComplaintStatus, at time.Time) error

	// RaiseEscalationLevel bumps the level monotonically. Returns false when
	// the stored level was already at or above newLevel.
	RaiseEscalationLevel(ctx context.Context, id int64, newLevel models.EscalationLevel) (bool, error)

	// AssignRouting routes a complaint to a department (and optionally a
	// staff member), sets its deadline, and clears the manual-routing flag.
	AssignRouting(ctx context.Context, id int64, departmentID int64, staffID *int64, slaDeadline time.Time) error

	UpdateSatisfaction(ctx context.Context, id int64, rating int) error

	FindActiveWithDeadline(ctx context.Context) ([]models.Complaint, error)
	FindOverdue(ctx context.Context, before time.Time) ([]models.Complaint, error)
	FindAutoCloseCandidates(ctx context.Context, resolvedBefore time.Time) ([]models.Complaint, error)
	FindByCitizen(ctx context.Context, citizenID int64) ([]models.Complaint, error)

	// CountFiledSince counts complaints the citizen filed at or after the
	// cutoff, regardless of their current status.
	CountFiledSince(ctx context.Context, citizenID int64, since time.Time) (int, error)

	// HasRecentDuplicate reports whether the citizen filed a complaint with
	// identical content at or after the cutoff.
	HasRecentDuplicate(ctx context.Context, citizenID int64, title, description, location string, since time.Time) (bool, error)
	FindByStaff(ctx context.Context, staffID int64) ([]models.Complaint, error)
	FindByDepartment(ctx context.Context, departmentID int64) ([]models.Complaint, error)
	FindUnassignedActiveByDepartment(ctx context.Context, departmentID int64) ([]models.Complaint, error)
	FindNeedingManualRouting(ctx context.Context) ([]models.Complaint, error)
	FindEscalated(ctx context.Context) ([]models.Complaint, error)

	// CountByStatus groups active and terminal complaints by status,
	// optionally scoped to one department.
	CountByStatus(ctx context.Context, departmentID *int64) ([]models.StatusCount, error)
}

// ProofRepository is data access for resolution proofs.
type ProofRepository interface {
	Create(ctx context.Context, p *models.ResolutionProof) error
	ExistsFor(ctx context.Context, complaintID int64) (bool, error)
	FindByComplaint(ctx context.Context, complaintID int64) ([]models.ResolutionProof, error)
}

// SignoffRepository is data access for citizen signoffs and disputes.
type SignoffRepository interface {
	Create(ctx context.Context, s *models.CitizenSignoff) error
	GetByID(ctx context.Context, id int64) (*models.CitizenSignoff, error)
	ExistsAcceptedFor(ctx context.Context, complaintID int64) (bool, error)
	// ExistsApprovedDisputeFor reports whether the complaint has a dispute
	// approved by a department head; the reopen guard requires one.
	ExistsApprovedDisputeFor(ctx context.Context, complaintID int64) (bool, error)
	// FindPendingDispute returns the dispute awaiting review for the
	// complaint, or ErrNotFound.
	FindPendingDispute(ctx context.Context, complaintID int64) (*models.CitizenSignoff, error)
	FindPendingDisputesByDepartment(ctx context.Context, departmentID int64) ([]models.CitizenSignoff, error)
	// ReviewDispute records the department head's decision. It only matches
	// a still-pending dispute; a reviewed one returns ErrInvalidDisputeState.
	ReviewDispute(ctx context.Context, signoffID int64, approved bool, reviewedBy int64, reviewedAt time.Time, rejectionReason *string) error
}

// EscalationEventRepository is data access for the immutable escalation log.
// There are no update or delete operations; the unique key on
// (complaint_id, escalation_level) is the idempotency guard.
type EscalationEventRepository interface {
	// Create inserts the event. A duplicate (complaint_id, escalation_level)
	// returns ErrConflictingUpdate.
	Create(ctx context.Context, e *models.EscalationEvent) error
	ExistsFor(ctx context.Context, complaintID int64, level models.EscalationLevel) (bool, error)
	FindByComplaint(ctx context.Context, complaintID int64) ([]models.EscalationEvent, error)
}

// AuditRepository is data access for the append-only audit log. The
// interface deliberately has no update or delete.
type AuditRepository interface {
	Create(ctx context.Context, a *models.AuditLog) error
	FindByEntity(ctx context.Context, entityType models.AuditEntityType, entityID int64) ([]models.AuditLog, error)
	FindByActionInWindow(ctx context.Context, action models.AuditAction, from, to time.Time) ([]models.AuditLog, error)
	FindByActor(ctx context.Context, actorType models.ActorType, actorID *int64) ([]models.AuditLog, error)
}

// NotificationRepository is data access for user notifications.
type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	FindByUser(ctx context.Context, userID int64) ([]models.Notification, error)
	FindUnreadByUser(ctx context.Context, userID int64) ([]models.Notification, error)
	CountUnread(ctx context.Context, userID int64) (int64, error)
	// MarkRead marks one notification read; the row must belong to userID.
	MarkRead(ctx context.Context, notificationID, userID int64) error
	MarkAllRead(ctx context.Context, userID int64) (int64, error)
	MarkReadForComplaint(ctx context.Context, userID, complaintID int64) (int64, error)
}

// CategoryRepository reads categories and their SLA rules for routing.
type CategoryRepository interface {
	GetCategory(ctx context.Context, id int64) (*models.Category, error)
	// GetSLARule returns the rule for a category, or ErrNotFound when the
	// category has none.
	GetSLARule(ctx context.Context, categoryID int64) (*models.SLARule, error)
}

// PrincipalDirectory resolves notification recipients by responsibility.
// It reads a mirror of the identity service's principal records; this
// system never writes it.
type PrincipalDirectory interface {
	// DeptHeadFor returns the user id of a department head for the
	// department (any one if several), or ErrNotFound.
	DeptHeadFor(ctx context.Context, departmentID int64) (int64, error)
	// AnyCommissioner returns the user id of a municipal commissioner,
	// or ErrNotFound.
	AnyCommissioner(ctx context.Context) (int64, error)
}
