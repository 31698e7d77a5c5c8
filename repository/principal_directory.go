package repository

import (
	"context"
	"database/sql"
	"fmt"

	"samadhan/models"
)

// MySQLPrincipalDirectory resolves notification recipients from the
// principals table, a read-only mirror of the identity service's records.
// This system never inserts or updates principals.
type MySQLPrincipalDirectory struct {
	q DBTX
}

// DeptHeadFor returns the user id of a department head for the department.
// When a department has several, any one of them satisfies the contract.
func (d *MySQLPrincipalDirectory) DeptHeadFor(ctx context.Context, departmentID int64) (int64, error) {
	query := `
		SELECT user_id
		FROM principals
		WHERE role = 'DEPT_HEAD' AND department_id = ? AND is_active = TRUE
		ORDER BY user_id ASC
		LIMIT 1
	`
	var userID int64
	err := d.q.QueryRowContext(ctx, query, departmentID).Scan(&userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, fmt.Errorf("department head for department %d: %w", departmentID, models.ErrNotFound)
		}
		return 0, fmt.Errorf("failed to resolve department head: %w", err)
	}
	return userID, nil
}

// AnyCommissioner returns the user id of a municipal commissioner.
func (d *MySQLPrincipalDirectory) AnyCommissioner(ctx context.Context) (int64, error) {
	query := `
		SELECT user_id
		FROM principals
		WHERE role = 'COMMISSIONER' AND is_active = TRUE
		ORDER BY user_id ASC
		LIMIT 1
	`
	var userID int64
	err := d.q.QueryRowContext(ctx, query).Scan(&userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, fmt.Errorf("municipal commissioner: %w", models.ErrNotFound)
		}
		return 0, fmt.Errorf("failed to resolve commissioner: %w", err)
	}
	return userID, nil
}
