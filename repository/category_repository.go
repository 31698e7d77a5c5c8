package repository

import (
	"context"
	"database/sql"
	"fmt"

	"samadhan/models"
)

// MySQLCategoryRepository reads categories and SLA rules for routing.
type MySQLCategoryRepository struct {
	q DBTX
}

// GetCategory retrieves a category by id.
func (r *MySQLCategoryRepository) GetCategory(ctx context.Context, id int64) (*models.Category, error) {
	query := `SELECT category_id, name, description, keywords, created_at FROM categories WHERE category_id = ?`
	var c models.Category
	err := r.q.QueryRowContext(ctx, query, id).Scan(
		&c.CategoryID, &c.Name, &c.Description, &c.Keywords, &c.CreatedAt,
	)
	if err != nil {
		return nil, mapRowError(err, "category", id)
	}
	return &c, nil
}

// GetSLARule returns the SLA rule for a category. A category without a rule
// cannot be auto-routed; callers get ErrNotFound.
func (r *MySQLCategoryRepository) GetSLARule(ctx context.Context, categoryID int64) (*models.SLARule, error) {
	query := `
		SELECT rule_id, category_id, sla_days, base_priority, department_id, created_at
		FROM sla_rules
		WHERE category_id = ?
	`
	var rule models.SLARule
	err := r.q.QueryRowContext(ctx, query, categoryID).Scan(
		&rule.RuleID, &rule.CategoryID, &rule.SLADays, &rule.BasePriority, &rule.DepartmentID, &rule.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("sla rule for category %d: %w", categoryID, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get sla rule for category %d: %w", categoryID, err)
	}
	return &rule, nil
}
