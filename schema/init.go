// Package schema handles safe database initialization: create only missing
// tables, never drop or overwrite.
package schema

import (
	"database/sql"
	"log"
)

// tableSpec pairs a table name with its creation DDL. Order matters:
// foreign keys require referenced tables to exist first.
type tableSpec struct {
	name string
	ddl  string
}

// InitializeDatabase ensures all tables exist. Checks INFORMATION_SCHEMA.TABLES
// and creates only missing tables, in dependency order. Does not drop or
// recreate tables; does not remove data.
//
// Citizen, staff and department ids reference the identity service and carry
// no local foreign keys. The principals table is a read-only mirror of that
// service's records, synced externally.
func InitializeDatabase(db *sql.DB) {
	for _, t := range tables {
		exists, err := tableExists(db, t.name)
		if err != nil {
			log.Fatalf("[SCHEMA] Failed to check if table %s exists: %v", t.name, err)
		}
		if exists {
			log.Printf("[SCHEMA] %s table exists", t.name)
			continue
		}
		if _, err := db.Exec(t.ddl); err != nil {
			log.Fatalf("[SCHEMA] Failed to create table %s: %v", t.name, err)
		}
		log.Printf("[SCHEMA] created %s table", t.name)
	}
	log.Println("[SCHEMA] Schema check passed")
}

func tableExists(db *sql.DB, table string) (bool, error) {
	var count int
	err := db.QueryRow(
		`SELECT COUNT(*) FROM information_schema.TABLES WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ?`,
		table,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

var tables = []tableSpec{
	{name: "categories", ddl: `
CREATE TABLE IF NOT EXISTS categories (
    category_id BIGINT PRIMARY KEY AUTO_INCREMENT,
    name VARCHAR(255) UNIQUE NOT NULL COMMENT 'Grievance category name',
    description TEXT NULL,
    keywords TEXT NULL COMMENT 'Comma-separated classifier hints',
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`},

	{name: "sla_rules", ddl: `
CREATE TABLE IF NOT EXISTS sla_rules (
    rule_id BIGINT PRIMARY KEY AUTO_INCREMENT,
    category_id BIGINT NOT NULL COMMENT 'Category this rule governs',
    sla_days INT NOT NULL COMMENT 'Days allowed before the resolution deadline',
    base_priority ENUM('LOW', 'MEDIUM', 'HIGH', 'CRITICAL') NOT NULL DEFAULT 'MEDIUM',
    department_id BIGINT NOT NULL COMMENT 'Department that owns this category',
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE KEY uniq_category (category_id),
    FOREIGN KEY (category_id) REFERENCES categories(category_id) ON DELETE CASCADE
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`},

	{name: "complaints", ddl: `
CREATE TABLE IF NOT EXISTS complaints (
    complaint_id BIGINT PRIMARY KEY AUTO_INCREMENT,
    complaint_number VARCHAR(50) UNIQUE NOT NULL COMMENT 'Public-facing complaint reference',
    citizen_id BIGINT NOT NULL COMMENT 'Filing citizen',
    title VARCHAR(500) NOT NULL,
    description TEXT NOT NULL,
    location VARCHAR(500) NOT NULL COMMENT 'Free-text location description',
    category_id BIGINT NULL COMMENT 'Classified grievance category',
    department_id BIGINT NULL COMMENT 'Department accountable for resolution',
    staff_id BIGINT NULL COMMENT 'Assigned field staff',
    priority ENUM('LOW', 'MEDIUM', 'HIGH', 'CRITICAL') NOT NULL DEFAULT 'MEDIUM',
    status ENUM('FILED', 'IN_PROGRESS', 'RESOLVED', 'CLOSED', 'CANCELLED') NOT NULL DEFAULT 'FILED',
    escalation_level TINYINT NOT NULL DEFAULT 0 COMMENT '0=none, 1=department head, 2=commissioner',
    sla_deadline TIMESTAMP NULL COMMENT 'Resolution due date',
    needs_manual_routing BOOLEAN NOT NULL DEFAULT TRUE COMMENT 'Awaiting admin department assignment',
    ai_confidence DECIMAL(4, 3) NULL COMMENT 'Classifier confidence for the category',
    citizen_satisfaction TINYINT NULL COMMENT 'Rating from an accepted signoff (1-5)',
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    started_at TIMESTAMP NULL COMMENT 'First transition to IN_PROGRESS',
    resolved_at TIMESTAMP NULL COMMENT 'Latest transition to RESOLVED',
    closed_at TIMESTAMP NULL,
    updated_at TIMESTAMP NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
    FOREIGN KEY (category_id) REFERENCES categories(category_id) ON DELETE SET NULL,
    INDEX idx_citizen_id (citizen_id),
    INDEX idx_department_id (department_id),
    INDEX idx_staff_id (staff_id),
    INDEX idx_status_sla (status, sla_deadline),
    INDEX idx_status_resolved (status, resolved_at),
    INDEX idx_needs_routing (needs_manual_routing, status),
    INDEX idx_escalation_level (escalation_level)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`},

	{name: "resolution_proofs", ddl: `
CREATE TABLE IF NOT EXISTS resolution_proofs (
    proof_id BIGINT PRIMARY KEY AUTO_INCREMENT,
    complaint_id BIGINT NOT NULL,
    staff_id BIGINT NOT NULL COMMENT 'Submitting staff member',
    image_reference VARCHAR(1024) NOT NULL COMMENT 'Object store key; image bytes live outside this system',
    latitude DECIMAL(10, 8) NULL,
    longitude DECIMAL(11, 8) NULL,
    captured_at TIMESTAMP NOT NULL,
    remarks TEXT NULL,
    integrity_hash CHAR(64) NOT NULL COMMENT 'SHA-256 over reference, coordinates and capture time',
    is_verified BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (complaint_id) REFERENCES complaints(complaint_id) ON DELETE CASCADE,
    INDEX idx_complaint_id (complaint_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`},

	{name: "citizen_signoffs", ddl: `
CREATE TABLE IF NOT EXISTS citizen_signoffs (
    signoff_id BIGINT PRIMARY KEY AUTO_INCREMENT,
    complaint_id BIGINT NOT NULL,
    citizen_id BIGINT NOT NULL,
    is_accepted BOOLEAN NOT NULL COMMENT 'TRUE for acceptance, FALSE for dispute',
    rating TINYINT NULL COMMENT 'Satisfaction 1-5, acceptance only',
    feedback TEXT NULL,
    dispute_reason TEXT NULL,
    dispute_image_reference VARCHAR(1024) NULL COMMENT 'Optional counter-evidence reference',
    signed_off_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    dispute_approved BOOLEAN NULL COMMENT 'NULL while the dispute is pending review',
    dispute_approved_by BIGINT NULL COMMENT 'Reviewing department head',
    dispute_reviewed_at TIMESTAMP NULL,
    dispute_rejection_reason TEXT NULL,
    FOREIGN KEY (complaint_id) REFERENCES complaints(complaint_id) ON DELETE CASCADE,
    INDEX idx_complaint_id (complaint_id),
    INDEX idx_pending_dispute (complaint_id, is_accepted, dispute_approved)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`},

	{name: "escalation_events", ddl: `
CREATE TABLE IF NOT EXISTS escalation_events (
    event_id BIGINT PRIMARY KEY AUTO_INCREMENT,
    complaint_id BIGINT NOT NULL,
    previous_level TINYINT NOT NULL,
    escalation_level TINYINT NOT NULL,
    escalated_at TIMESTAMP NOT NULL,
    escalated_to_role VARCHAR(50) NOT NULL COMMENT 'Role accountable at the new level',
    reason TEXT NULL,
    days_overdue INT NOT NULL DEFAULT 0,
    sla_deadline_snapshot TIMESTAMP NULL COMMENT 'Deadline as it stood when the breach fired',
    is_automated BOOLEAN NOT NULL DEFAULT TRUE,
    UNIQUE KEY uniq_complaint_level (complaint_id, escalation_level),
    FOREIGN KEY (complaint_id) REFERENCES complaints(complaint_id) ON DELETE CASCADE,
    INDEX idx_escalated_at (escalated_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`},

	{name: "audit_log", ddl: `
CREATE TABLE IF NOT EXISTS audit_log (
    audit_id BIGINT PRIMARY KEY AUTO_INCREMENT,
    entity_type VARCHAR(50) NOT NULL,
    entity_id BIGINT NOT NULL,
    action VARCHAR(50) NOT NULL,
    old_value TEXT NULL,
    new_value TEXT NULL,
    actor_type VARCHAR(20) NOT NULL COMMENT 'USER or SYSTEM',
    actor_id BIGINT NULL COMMENT 'NULL for system actions',
    reason TEXT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    INDEX idx_entity (entity_type, entity_id, created_at),
    INDEX idx_action_created (action, created_at),
    INDEX idx_actor (actor_type, actor_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci COMMENT='Append-only; no update or delete path exists in code'`},

	{name: "notifications", ddl: `
CREATE TABLE IF NOT EXISTS notifications (
    notification_id BIGINT PRIMARY KEY AUTO_INCREMENT,
    user_id BIGINT NOT NULL,
    type VARCHAR(50) NOT NULL,
    title VARCHAR(255) NOT NULL,
    message TEXT NOT NULL,
    complaint_id BIGINT NULL,
    link VARCHAR(1024) NULL,
    is_read BOOLEAN NOT NULL DEFAULT FALSE,
    read_at TIMESTAMP NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    INDEX idx_user_unread (user_id, is_read),
    INDEX idx_user_complaint (user_id, complaint_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`},

	{name: "principals", ddl: `
CREATE TABLE IF NOT EXISTS principals (
    user_id BIGINT PRIMARY KEY COMMENT 'Identity service user id; not generated here',
    role VARCHAR(50) NOT NULL,
    department_id BIGINT NULL,
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    synced_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP COMMENT 'Last sync from the identity service',
    INDEX idx_role_department (role, department_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci COMMENT='Read-only mirror for notification recipient lookup'`},
}
