package models

import (
	"fmt"
	"time"
)

// EscalationLevel is the accountability level of a complaint. It is stored
// as an integer and transmitted as a textual name (L0, L1, L2). Once raised
// above zero it is never lowered automatically.
type EscalationLevel int

const (
	LevelStaff        EscalationLevel = 0 // L0: assigned staff
	LevelDeptHead     EscalationLevel = 1 // L1: department head
	LevelCommissioner EscalationLevel = 2 // L2: municipal commissioner
)

// String returns the wire name of the level (L0, L1, L2).
func (l EscalationLevel) String() string {
	return fmt.Sprintf("L%d", int(l))
}

// IsValid reports whether the level is within the defined hierarchy.
func (l EscalationLevel) IsValid() bool {
	return l >= LevelStaff && l <= LevelCommissioner
}

// EscalatedToRole is the role accountable at this level.
func (l EscalationLevel) EscalatedToRole() string {
	switch l {
	case LevelDeptHead:
		return "DEPT_HEAD"
	case LevelCommissioner:
		return "MUNICIPAL_COMMISSIONER"
	default:
		return "STAFF"
	}
}

// ParseEscalationLevel converts a wire name (L0, L1, L2) back to a level.
func ParseEscalationLevel(s string) (EscalationLevel, error) {
	var n int
	if _, err := fmt.Sscanf(s, "L%d", &n); err != nil {
		return 0, fmt.Errorf("invalid escalation level %q", s)
	}
	l := EscalationLevel(n)
	if !l.IsValid() {
		return 0, fmt.Errorf("invalid escalation level %q", s)
	}
	return l, nil
}

// EscalationEvent is the immutable record of one escalation. At most one
// event exists per (complaint_id, escalation_level); that pair is the
// idempotency key enforced by a unique constraint.
type EscalationEvent struct {
	EventID             int64           `db:"event_id" json:"event_id"`
	ComplaintID         int64           `db:"complaint_id" json:"complaint_id"`
	PreviousLevel       EscalationLevel `db:"previous_level" json:"previous_level"`
	EscalationLevel     EscalationLevel `db:"escalation_level" json:"escalation_level"`
	EscalatedAt         time.Time       `db:"escalated_at" json:"escalated_at"`
	EscalatedToRole     string          `db:"escalated_to_role" json:"escalated_to_role"`
	Reason              string          `db:"reason" json:"reason"`
	DaysOverdue         int             `db:"days_overdue" json:"days_overdue"`
	SLADeadlineSnapshot time.Time       `db:"sla_deadline_snapshot" json:"sla_deadline_snapshot"`
	IsAutomated         bool            `db:"is_automated" json:"is_automated"`
}

// EscalationResult is the outcome of evaluating one complaint against the
// escalation thresholds. When Required is false, Reason says why not.
type EscalationResult struct {
	Required      bool
	CurrentLevel  EscalationLevel
	RequiredLevel EscalationLevel
	DaysOverdue   int
	SLADeadline   time.Time
	Reason        string
}

// OverdueComplaint annotates an active complaint with its escalation
// standing, for the overdue listing.
type OverdueComplaint struct {
	Complaint     Complaint       `json:"complaint"`
	CurrentLevel  EscalationLevel `json:"current_level"`
	RequiredLevel EscalationLevel `json:"required_level"`
	DaysOverdue   int             `json:"days_overdue"`
}
