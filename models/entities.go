package models

import (
	"database/sql"
	"time"
)

// ComplaintStatus represents the lifecycle status of a complaint.
// Values are stored and transmitted as their textual names.
type ComplaintStatus string

const (
	StatusFiled      ComplaintStatus = "FILED"
	StatusInProgress ComplaintStatus = "IN_PROGRESS"
	StatusResolved   ComplaintStatus = "RESOLVED"
	StatusClosed     ComplaintStatus = "CLOSED"
	StatusCancelled  ComplaintStatus = "CANCELLED"
)

// IsTerminal reports whether the status has no outgoing transitions.
func (s ComplaintStatus) IsTerminal() bool {
	return s == StatusClosed || s == StatusCancelled
}

// IsValid reports whether the status is one of the five canonical statuses.
func (s ComplaintStatus) IsValid() bool {
	switch s {
	case StatusFiled, StatusInProgress, StatusResolved, StatusClosed, StatusCancelled:
		return true
	}
	return false
}

// Priority represents complaint priority levels
type Priority string

const (
	PriorityLow      Priority = "LOW"
	PriorityMedium   Priority = "MEDIUM"
	PriorityHigh     Priority = "HIGH"
	PriorityCritical Priority = "CRITICAL"
)

// IsValid reports whether the priority is a known level.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// ActorType represents who performed an audited action
type ActorType string

const (
	ActorUser   ActorType = "USER"
	ActorSystem ActorType = "SYSTEM"
)

// AuditEntityType identifies the kind of entity an audit row documents
type AuditEntityType string

const (
	AuditEntityComplaint  AuditEntityType = "COMPLAINT"
	AuditEntityEscalation AuditEntityType = "ESCALATION"
	AuditEntitySLA        AuditEntityType = "SLA"
	AuditEntityUser       AuditEntityType = "USER"
	AuditEntitySuspension AuditEntityType = "SUSPENSION"
)

// AuditAction identifies what happened to the entity
type AuditAction string

const (
	AuditActionStateChange AuditAction = "STATE_CHANGE"
	AuditActionEscalation  AuditAction = "ESCALATION"
	AuditActionAssignment  AuditAction = "ASSIGNMENT"
	AuditActionSLAUpdate   AuditAction = "SLA_UPDATE"
	AuditActionSuspension  AuditAction = "SUSPENSION"
	AuditActionCreate      AuditAction = "CREATE"
	AuditActionAccept      AuditAction = "ACCEPT"
	AuditActionDispute     AuditAction = "DISPUTE"
)

// Complaint represents a single grievance tracked through its lifecycle.
// Created in FILED at intake, mutated only by the state and escalation
// services, never destroyed.
type Complaint struct {
	ComplaintID        int64           `db:"complaint_id" json:"complaint_id"`
	ComplaintNumber    string          `db:"complaint_number" json:"complaint_number"`
	CitizenID          int64           `db:"citizen_id" json:"citizen_id"`
	Title              string          `db:"title" json:"title"`
	Description        string          `db:"description" json:"description"`
	Location           string          `db:"location" json:"location"`
	CategoryID         sql.NullInt64   `db:"category_id" json:"category_id"`
	DepartmentID       sql.NullInt64   `db:"department_id" json:"department_id"`
	StaffID            sql.NullInt64   `db:"staff_id" json:"staff_id"`
	Priority           Priority        `db:"priority" json:"priority"`
	Status             ComplaintStatus `db:"status" json:"status"`
	EscalationLevel    EscalationLevel `db:"escalation_level" json:"escalation_level"`
	SLADeadline        sql.NullTime    `db:"sla_deadline" json:"sla_deadline"`
	NeedsManualRouting bool            `db:"needs_manual_routing" json:"needs_manual_routing"`
	AIConfidence       sql.NullFloat64 `db:"ai_confidence" json:"ai_confidence"`
	CitizenSatisfaction sql.NullInt64  `db:"citizen_satisfaction" json:"citizen_satisfaction"`
	CreatedAt          time.Time       `db:"created_at" json:"created_at"`
	StartedAt          sql.NullTime    `db:"started_at" json:"started_at"`
	ResolvedAt         sql.NullTime    `db:"resolved_at" json:"resolved_at"`
	ClosedAt           sql.NullTime    `db:"closed_at" json:"closed_at"`
	UpdatedAt          sql.NullTime    `db:"updated_at" json:"updated_at"`
}

// Category represents a complaint category used by the external classifier.
// Immutable after creation except by admin.
type Category struct {
	CategoryID  int64          `db:"category_id" json:"category_id"`
	Name        string         `db:"name" json:"name"`
	Description sql.NullString `db:"description" json:"description"`
	Keywords    sql.NullString `db:"keywords" json:"keywords"` // comma-separated, consumed by the classifier
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
}

// SLARule drives initial deadline and routing at intake; one per category.
type SLARule struct {
	RuleID       int64     `db:"rule_id" json:"rule_id"`
	CategoryID   int64     `db:"category_id" json:"category_id"`
	SLADays      int       `db:"sla_days" json:"sla_days"`
	BasePriority Priority  `db:"base_priority" json:"base_priority"`
	DepartmentID int64     `db:"department_id" json:"department_id"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// ResolutionProof is staff evidence that work was performed on a complaint.
// A complaint cannot enter RESOLVED without at least one proof row.
type ResolutionProof struct {
	ProofID        int64           `db:"proof_id" json:"proof_id"`
	ComplaintID    int64           `db:"complaint_id" json:"complaint_id"`
	StaffID        int64           `db:"staff_id" json:"staff_id"`
	ImageReference string          `db:"image_reference" json:"image_reference"`
	Latitude       sql.NullFloat64 `db:"latitude" json:"latitude"`
	Longitude      sql.NullFloat64 `db:"longitude" json:"longitude"`
	CapturedAt     time.Time       `db:"captured_at" json:"captured_at"`
	Remarks        sql.NullString  `db:"remarks" json:"remarks"`
	IntegrityHash  string          `db:"integrity_hash" json:"integrity_hash"`
	IsVerified     bool            `db:"is_verified" json:"is_verified"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
}

// CitizenSignoff is a citizen's response to a RESOLVED complaint: an
// acceptance (with rating) or a dispute (with reason). A complaint may
// accumulate many signoffs; at most one dispute may be pending review.
type CitizenSignoff struct {
	SignoffID              int64          `db:"signoff_id" json:"signoff_id"`
	ComplaintID            int64          `db:"complaint_id" json:"complaint_id"`
	CitizenID              int64          `db:"citizen_id" json:"citizen_id"`
	IsAccepted             bool           `db:"is_accepted" json:"is_accepted"`
	Rating                 sql.NullInt64  `db:"rating" json:"rating"`
	Feedback               sql.NullString `db:"feedback" json:"feedback"`
	DisputeReason          sql.NullString `db:"dispute_reason" json:"dispute_reason"`
	DisputeImageReference  sql.NullString `db:"dispute_image_reference" json:"dispute_image_reference"`
	SignedOffAt            time.Time      `db:"signed_off_at" json:"signed_off_at"`
	DisputeApproved        sql.NullBool   `db:"dispute_approved" json:"dispute_approved"`
	DisputeApprovedBy      sql.NullInt64  `db:"dispute_approved_by" json:"dispute_approved_by"`
	DisputeReviewedAt      sql.NullTime   `db:"dispute_reviewed_at" json:"dispute_reviewed_at"`
	DisputeRejectionReason sql.NullString `db:"dispute_rejection_reason" json:"dispute_rejection_reason"`
}

// IsPendingDispute reports whether the signoff is a dispute awaiting review.
func (s CitizenSignoff) IsPendingDispute() bool {
	return !s.IsAccepted && !s.DisputeApproved.Valid
}

// AuditLog represents an audit trail entry (immutable once written).
// ActorID is null exactly when ActorType is SYSTEM.
type AuditLog struct {
	AuditID    int64           `db:"audit_id" json:"audit_id"`
	EntityType AuditEntityType `db:"entity_type" json:"entity_type"`
	EntityID   int64           `db:"entity_id" json:"entity_id"`
	Action     AuditAction     `db:"action" json:"action"`
	OldValue   sql.NullString  `db:"old_value" json:"old_value"`
	NewValue   sql.NullString  `db:"new_value" json:"new_value"`
	ActorType  ActorType       `db:"actor_type" json:"actor_type"`
	ActorID    sql.NullInt64   `db:"actor_id" json:"actor_id"`
	Reason     sql.NullString  `db:"reason" json:"reason"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}

// StatusCount is one row of a counts-by-status summary.
type StatusCount struct {
	Status ComplaintStatus `db:"status" json:"status"`
	Count  int64           `db:"count" json:"count"`
}
