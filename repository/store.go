package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// DBTX is the subset of database/sql shared by *sql.DB and *sql.Tx. Every
// repository runs its statements through it, so the same repository code
// serves both direct access and transaction-bound access.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// MySQLStore implements Store over a MySQL database.
type MySQLStore struct {
	db *sql.DB // nil when bound to a transaction
	q  DBTX

	complaints    *MySQLComplaintRepository
	proofs        *MySQLProofRepository
	signoffs      *MySQLSignoffRepository
	events        *MySQLEscalationEventRepository
	audit         *MySQLAuditRepository
	notifications *MySQLNotificationRepository
	categories    *MySQLCategoryRepository
	directory     *MySQLPrincipalDirectory
}

// NewMySQLStore creates a store over an open database handle.
func NewMySQLStore(db *sql.DB) *MySQLStore {
	return newMySQLStore(db, db)
}

func newMySQLStore(db *sql.DB, q DBTX) *MySQLStore {
	return &MySQLStore{
		db:            db,
		q:             q,
		complaints:    &MySQLComplaintRepository{q: q},
		proofs:        &MySQLProofRepository{q: q},
		signoffs:      &MySQLSignoffRepository{q: q},
		events:        &MySQLEscalationEventRepository{q: q},
		audit:         &MySQLAuditRepository{q: q},
		notifications: &MySQLNotificationRepository{q: q},
		categories:    &MySQLCategoryRepository{q: q},
		directory:     &MySQLPrincipalDirectory{q: q},
	}
}

func (s *MySQLStore) Complaints() ComplaintRepository            { return s.complaints }
func (s *MySQLStore) Proofs() ProofRepository                    { return s.proofs }
func (s *MySQLStore) Signoffs() SignoffRepository                { return s.signoffs }
func (s *MySQLStore) Events() EscalationEventRepository          { return s.events }
func (s *MySQLStore) Audit() AuditRepository                     { return s.audit }
func (s *MySQLStore) Notifications() NotificationRepository      { return s.notifications }
func (s *MySQLStore) Categories() CategoryRepository             { return s.categories }
func (s *MySQLStore) Directory() PrincipalDirectory              { return s.directory }

// RunInTransaction runs fn inside one transaction. Transient connection
// failures retry the whole closure with exponential backoff; domain errors
// from fn stop the retry immediately and roll back.
func (s *MySQLStore) RunInTransaction(ctx context.Context, fn func(tx Store) error) error {
	if s.db == nil {
		return fmt.Errorf("nested transactions are not supported")
	}

	op := func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			if isRetryableError(err) {
				return err
			}
			return backoff.Permanent(fmt.Errorf("failed to begin transaction: %w", err))
		}
		defer tx.Rollback()

		if err := fn(newMySQLStore(nil, tx)); err != nil {
			if isRetryableError(err) {
				return err
			}
			return backoff.Permanent(err)
		}

		if err := tx.Commit(); err != nil {
			if isRetryableError(err) {
				return err
			}
			return backoff.Permanent(fmt.Errorf("failed to commit transaction: %w", err))
		}
		return nil
	}

	err := backoff.Retry(op, backoff.WithContext(newTxRetryBackoff(), ctx))
	if err != nil && isRetryableError(err) {
		return markTransient(err)
	}
	return err
}

// Ping verifies database connectivity.
func (s *MySQLStore) Ping(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("ping is not available inside a transaction")
	}
	return s.db.PingContext(ctx)
}

// Close releases the underlying database handle.
func (s *MySQLStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// newTxRetryBackoff bounds retries of a transaction closure. The window is
// short: these are request-path transactions, not batch jobs.
func newTxRetryBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = 1 * time.Second
	b.MaxElapsedTime = 5 * time.Second
	return b
}
