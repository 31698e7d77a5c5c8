package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDSNAppendsRequiredParams(t *testing.T) {
	d := DatabaseConfig{User: "svc", Password: "pw", Host: "db", Port: "3306", DBName: "samadhan"}

	dsn := d.DSN()

	assert.Contains(t, dsn, "svc:pw@tcp(db:3306)/samadhan?")
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "charset=utf8mb4")
	assert.Contains(t, dsn, "loc=UTC")
	assert.Contains(t, dsn, "clientFoundRows=true")
}

func TestDSNPrefersDatabaseURLAndKeepsItsParams(t *testing.T) {
	d := DatabaseConfig{
		DatabaseURL: "svc:pw@tcp(db:3306)/samadhan?parseTime=false",
		User:        "ignored",
	}

	dsn := d.DSN()

	assert.Contains(t, dsn, "parseTime=false")
	assert.NotContains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "clientFoundRows=true")
}

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{
		"ESCALATION_L1_THRESHOLD_DAYS", "ESCALATION_L2_THRESHOLD_DAYS",
		"ESCALATION_SWEEP_INTERVAL", "AUTO_CLOSE_TIMEOUT",
		"NOTIFICATION_QUEUE_SIZE", "ROUTING_CONFIDENCE_THRESHOLD",
	} {
		t.Setenv(key, "")
	}

	cfg := LoadConfig()

	assert.Equal(t, 1, cfg.Escalation.L1ThresholdDays)
	assert.Equal(t, 3, cfg.Escalation.L2ThresholdDays)
	assert.Equal(t, 6*time.Hour, cfg.Escalation.SweepInterval)
	assert.Equal(t, 72*time.Hour, cfg.AutoClose.SilenceWindow)
	assert.Equal(t, 256, cfg.Notification.QueueSize)
	assert.Equal(t, 0.7, cfg.Routing.ConfidenceThreshold)
}

func TestLoadConfigReadsOverrides(t *testing.T) {
	t.Setenv("ESCALATION_L1_THRESHOLD_DAYS", "2")
	t.Setenv("ESCALATION_SWEEP_INTERVAL", "90m")
	t.Setenv("AUTO_CLOSE_TIMEOUT", "48h")
	t.Setenv("ROUTING_CONFIDENCE_THRESHOLD", "0.85")

	cfg := LoadConfig()

	assert.Equal(t, 2, cfg.Escalation.L1ThresholdDays)
	assert.Equal(t, 90*time.Minute, cfg.Escalation.SweepInterval)
	assert.Equal(t, 48*time.Hour, cfg.AutoClose.SilenceWindow)
	assert.Equal(t, 0.85, cfg.Routing.ConfidenceThreshold)
}

func TestUnparseableIntervalFallsBackToDefault(t *testing.T) {
	t.Setenv("ESCALATION_SWEEP_INTERVAL", "whenever")

	cfg := LoadConfig()

	assert.Equal(t, 6*time.Hour, cfg.Escalation.SweepInterval)
}
