package lifecycle

import (
	"fmt"
	"time"

	"samadhan/models"
)

// Default escalation thresholds in whole days overdue.
const (
	DefaultL1ThresholdDays = 1
	DefaultL2ThresholdDays = 3
)

// Evaluator decides the escalation level a complaint must be at, given a
// clock. Thresholds are a single configurable pair; evaluation is pure.
type Evaluator struct {
	l1ThresholdDays int
	l2ThresholdDays int
}

// NewEvaluator builds an evaluator with the given thresholds. Values below
// the defaults' ordering (l1 < l2, both >= 1) fall back to the defaults.
func NewEvaluator(l1Days, l2Days int) *Evaluator {
	if l1Days < 1 || l2Days <= l1Days {
		l1Days = DefaultL1ThresholdDays
		l2Days = DefaultL2ThresholdDays
	}
	return &Evaluator{l1ThresholdDays: l1Days, l2ThresholdDays: l2Days}
}

// DefaultEvaluator returns an evaluator with the standard 1/3 day thresholds.
func DefaultEvaluator() *Evaluator {
	return NewEvaluator(DefaultL1ThresholdDays, DefaultL2ThresholdDays)
}

// Evaluate returns the escalation standing of the complaint at the given
// date. The required level jumps straight to the deepest breached threshold;
// a complaint 5 days overdue at L0 requires L2 with no intermediate step.
func (e *Evaluator) Evaluate(c *models.Complaint, today time.Time) models.EscalationResult {
	current := c.EscalationLevel

	if !c.SLADeadline.Valid {
		return models.EscalationResult{
			Required:     false,
			CurrentLevel: current,
			Reason:       "no SLA set",
		}
	}

	deadline := c.SLADeadline.Time
	daysOverdue := daysBetween(deadline, today)
	if daysOverdue <= 0 {
		return models.EscalationResult{
			Required:     false,
			CurrentLevel: current,
			SLADeadline:  deadline,
			Reason:       "within SLA",
		}
	}

	required := e.RequiredLevel(daysOverdue)
	if required <= current {
		return models.EscalationResult{
			Required:     false,
			CurrentLevel: current,
			DaysOverdue:  daysOverdue,
			SLADeadline:  deadline,
			Reason:       fmt.Sprintf("already at or above required level %s", required),
		}
	}

	return models.EscalationResult{
		Required:      true,
		CurrentLevel:  current,
		RequiredLevel: required,
		DaysOverdue:   daysOverdue,
		SLADeadline:   deadline,
		Reason: fmt.Sprintf("Complaint overdue by %d day(s) against SLA deadline %s; escalating %s to %s",
			daysOverdue, deadline.Format("2006-01-02"), current, required),
	}
}

// RequiredLevel maps days overdue to the level the complaint must be at.
func (e *Evaluator) RequiredLevel(daysOverdue int) models.EscalationLevel {
	switch {
	case daysOverdue > e.l2ThresholdDays:
		return models.LevelCommissioner
	case daysOverdue > e.l1ThresholdDays:
		return models.LevelDeptHead
	default:
		return models.LevelStaff
	}
}

// daysBetween counts whole calendar days from a to b, comparing dates only.
// Positive when b is after a.
func daysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	aDate := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	bDate := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(bDate.Sub(aDate).Hours() / 24)
}
