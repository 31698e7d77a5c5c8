// verify_escalation runs one end-to-end verification against a live database:
// complaint state, deadline backdate, one escalation sweep, proof.
// Usage: from project root, run: go run ./cmd/verify_escalation
// Requires .env (or env) with DB_* variables. Intended for staging databases;
// it rewrites the latest complaint's deadline to force a breach.
package main

import (
	"context"
	"database/sql"
	"log"
	"os"

	_ "github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"

	"samadhan/config"
	"samadhan/lifecycle"
	"samadhan/repository"
	"samadhan/schema"
	"samadhan/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env not found")
	}
	cfg := config.LoadConfig()

	db, err := sql.Open("mysql", cfg.Database.DSN())
	if err != nil {
		log.Fatalf("DB open: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatalf("DB ping: %v", err)
	}
	schema.ValidateRequiredColumns(db, nil)

	ctx := context.Background()

	// --- 1) Latest complaint state ---
	var complaintID int64
	var status string
	var level int
	err = db.QueryRow(`
		SELECT complaint_id, status, escalation_level
		FROM complaints ORDER BY complaint_id DESC LIMIT 1
	`).Scan(&complaintID, &status, &level)
	if err == sql.ErrNoRows {
		log.Fatalf("No complaints in DB - cannot verify escalation")
	}
	if err != nil {
		log.Fatalf("Latest complaint query: %v", err)
	}
	log.Printf("[VERIFY] Latest complaint: id=%d status=%s escalation_level=%d", complaintID, status, level)

	// --- 2) Force a breach: active status, deadline two days in the past ---
	// Two days overdue sits past the default L1 threshold but short of L2,
	// so exactly one level is expected to fire.
	if status == "CLOSED" || status == "CANCELLED" {
		log.Fatalf("[VERIFY] Complaint %d is terminal (%s); file a fresh complaint first", complaintID, status)
	}
	_, err = db.Exec(`
		UPDATE complaints
		SET status = 'IN_PROGRESS',
		    started_at = COALESCE(started_at, UTC_TIMESTAMP()),
		    sla_deadline = UTC_TIMESTAMP() - INTERVAL 2 DAY,
		    escalation_level = 0
		WHERE complaint_id = ?
	`, complaintID)
	if err != nil {
		log.Fatalf("[VERIFY] Backdate deadline: %v", err)
	}
	_, _ = db.Exec(`DELETE FROM escalation_events WHERE complaint_id = ?`, complaintID)
	log.Printf("[VERIFY] Complaint %d set IN_PROGRESS with deadline 2 days past, level reset to 0", complaintID)

	// --- 3) One escalation sweep ---
	store := repository.NewMySQLStore(db)
	audit := service.NewAuditRecorder()
	notifier := service.NewNotificationService(store, nil, nil)
	evaluator := lifecycle.NewEvaluator(cfg.Escalation.L1ThresholdDays, cfg.Escalation.L2ThresholdDays)
	escalations := service.NewEscalationService(store, evaluator, audit, notifier)

	log.Printf("[VERIFY] Running one sweep ...")
	performed, err := escalations.RunOnce(ctx, false)
	if err != nil {
		log.Fatalf("[VERIFY] Sweep failed: %v", err)
	}
	log.Printf("[VERIFY] Sweep escalated %d complaint(s)", performed)

	// --- 4) DB proof ---
	var afterLevel int
	_ = db.QueryRow(`SELECT escalation_level FROM complaints WHERE complaint_id = ?`, complaintID).Scan(&afterLevel)

	var eventID sql.NullInt64
	var eventLevel sql.NullInt64
	_ = db.QueryRow(`
		SELECT event_id, escalation_level FROM escalation_events
		WHERE complaint_id = ? ORDER BY escalated_at DESC LIMIT 1
	`, complaintID).Scan(&eventID, &eventLevel)

	var auditCount int
	_ = db.QueryRow(`
		SELECT COUNT(*) FROM audit_log
		WHERE entity_type = 'COMPLAINT' AND entity_id = ? AND action = 'ESCALATION'
	`, complaintID).Scan(&auditCount)

	log.Println("--- PROOF ---")
	log.Printf("complaints: complaint_id=%d escalation_level=%d", complaintID, afterLevel)
	if eventID.Valid {
		log.Printf("escalation_events: event_id=%d complaint_id=%d escalation_level=%d", eventID.Int64, complaintID, eventLevel.Int64)
	} else {
		log.Printf("escalation_events: no row for complaint_id=%d", complaintID)
	}
	log.Printf("audit_log: %d ESCALATION row(s) for complaint_id=%d", auditCount, complaintID)

	if afterLevel == 0 || !eventID.Valid || auditCount == 0 {
		log.Printf("[VERIFY] Escalation did NOT fire")
		os.Exit(1)
	}
	log.Printf("[VERIFY] Escalation fired: level %d with event and audit rows", afterLevel)
}
