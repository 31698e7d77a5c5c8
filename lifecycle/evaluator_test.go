package lifecycle

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"samadhan/models"
)

func complaintWithDeadline(level models.EscalationLevel, deadline time.Time) *models.Complaint {
	return &models.Complaint{
		ComplaintID:     1,
		Status:          models.StatusInProgress,
		EscalationLevel: level,
		SLADeadline:     sql.NullTime{Time: deadline, Valid: true},
	}
}

func TestEvaluateNoDeadline(t *testing.T) {
	c := &models.Complaint{ComplaintID: 1, EscalationLevel: models.LevelStaff}
	result := DefaultEvaluator().Evaluate(c, time.Now())
	assert.False(t, result.Required)
	assert.Equal(t, models.LevelStaff, result.CurrentLevel)
	assert.Equal(t, "no SLA set", result.Reason)
}

func TestEvaluateWithinSLA(t *testing.T) {
	today := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	e := DefaultEvaluator()

	future := complaintWithDeadline(models.LevelStaff, today.AddDate(0, 0, 3))
	result := e.Evaluate(future, today)
	assert.False(t, result.Required)
	assert.Equal(t, "within SLA", result.Reason)

	// Due today counts as within SLA, not overdue.
	dueToday := complaintWithDeadline(models.LevelStaff, today)
	result = e.Evaluate(dueToday, today)
	assert.False(t, result.Required)
	assert.Equal(t, "within SLA", result.Reason)
}

func TestEvaluateThresholds(t *testing.T) {
	today := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	e := DefaultEvaluator()

	tests := []struct {
		name        string
		daysOverdue int
		current     models.EscalationLevel
		required    bool
		level       models.EscalationLevel
	}{
		{"one day overdue stays at L0", 1, models.LevelStaff, false, 0},
		{"two days overdue needs L1", 2, models.LevelStaff, true, models.LevelDeptHead},
		{"three days overdue still L1", 3, models.LevelStaff, true, models.LevelDeptHead},
		{"four days overdue needs L2", 4, models.LevelStaff, true, models.LevelCommissioner},
		{"five days overdue jumps straight to L2", 5, models.LevelStaff, true, models.LevelCommissioner},
		{"already at L1 two days overdue", 2, models.LevelDeptHead, false, 0},
		{"at L1 five days overdue needs L2", 5, models.LevelDeptHead, true, models.LevelCommissioner},
		{"already at L2 never escalates further", 30, models.LevelCommissioner, false, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := complaintWithDeadline(tc.current, today.AddDate(0, 0, -tc.daysOverdue))
			result := e.Evaluate(c, today)
			assert.Equal(t, tc.required, result.Required)
			if tc.required {
				assert.Equal(t, tc.level, result.RequiredLevel)
				assert.Equal(t, tc.current, result.CurrentLevel)
				assert.Equal(t, tc.daysOverdue, result.DaysOverdue)
				assert.Contains(t, result.Reason, "overdue")
			}
		})
	}
}

func TestEvaluateUsesDatesNotClockTimes(t *testing.T) {
	// Deadline late on the 8th, evaluated early on the 10th: 2 whole days.
	deadline := time.Date(2026, 3, 8, 23, 30, 0, 0, time.UTC)
	today := time.Date(2026, 3, 10, 0, 15, 0, 0, time.UTC)

	result := DefaultEvaluator().Evaluate(complaintWithDeadline(models.LevelStaff, deadline), today)
	assert.True(t, result.Required)
	assert.Equal(t, 2, result.DaysOverdue)
	assert.Equal(t, models.LevelDeptHead, result.RequiredLevel)
}

func TestEvaluateCustomThresholds(t *testing.T) {
	today := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	e := NewEvaluator(2, 6)

	result := e.Evaluate(complaintWithDeadline(models.LevelStaff, today.AddDate(0, 0, -2)), today)
	assert.False(t, result.Required, "2 days within custom L1 threshold")

	result = e.Evaluate(complaintWithDeadline(models.LevelStaff, today.AddDate(0, 0, -3)), today)
	assert.True(t, result.Required)
	assert.Equal(t, models.LevelDeptHead, result.RequiredLevel)

	result = e.Evaluate(complaintWithDeadline(models.LevelStaff, today.AddDate(0, 0, -7)), today)
	assert.True(t, result.Required)
	assert.Equal(t, models.LevelCommissioner, result.RequiredLevel)
}

func TestNewEvaluatorRejectsBrokenThresholdPair(t *testing.T) {
	// l2 <= l1 falls back to defaults.
	e := NewEvaluator(5, 2)
	assert.Equal(t, models.LevelDeptHead, e.RequiredLevel(2))
	assert.Equal(t, models.LevelCommissioner, e.RequiredLevel(4))
}

func TestEscalationLevelNames(t *testing.T) {
	assert.Equal(t, "L0", models.LevelStaff.String())
	assert.Equal(t, "L1", models.LevelDeptHead.String())
	assert.Equal(t, "L2", models.LevelCommissioner.String())

	l, err := models.ParseEscalationLevel("L2")
	assert.NoError(t, err)
	assert.Equal(t, models.LevelCommissioner, l)

	_, err = models.ParseEscalationLevel("L7")
	assert.Error(t, err)
	_, err = models.ParseEscalationLevel("high")
	assert.Error(t, err)

	assert.Equal(t, "DEPT_HEAD", models.LevelDeptHead.EscalatedToRole())
	assert.Equal(t, "MUNICIPAL_COMMISSIONER", models.LevelCommissioner.EscalatedToRole())
}
