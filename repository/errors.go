package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"

	"samadhan/models"
)

const mysqlDuplicateEntry = 1062

// isDuplicateKey reports whether err is a MySQL unique-constraint violation.
func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}

// mapRowError converts driver-level not-found into the domain sentinel.
func mapRowError(err error, what string, id int64) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %d: %w", what, id, models.ErrNotFound)
	}
	return fmt.Errorf("failed to get %s %d: %w", what, id, err)
}

// isRetryableError reports whether the error is a transient connection
// failure worth retrying. Matches on driver error text.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	retryable := []string{
		"driver: bad connection",
		"invalid connection",
		"broken pipe",
		"connection reset",
		"connection refused",
		"lost connection",
		"gone away",
		"i/o timeout",
		"try restarting transaction", // InnoDB deadlock / lock wait
	}
	for _, s := range retryable {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// markTransient wraps a retry-exhausted error with the transient sentinel so
// callers can classify it with errors.Is.
func markTransient(err error) error {
	return fmt.Errorf("%w: %v", models.ErrTransientIO, err)
}
