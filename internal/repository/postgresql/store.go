package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"payeveryone/internal/domain"
	"payeveryone/internal/port"
	"payeveryone/internal/repository"

	"github.com/lib/pq"
)

type ctxtype string

const (
	trKey ctxtype = "tx"
)

var (
	uniqueConstraint     pq.ErrorCode = "23505"
	serializationFailure pq.ErrorCode = "40001"
	deadlockDetected     pq.ErrorCode = "40P01"
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getTr(ctx context.Context) (*sql.Tx, bool) {
	tr, ok := ctx.Value(trKey).(*sql.Tx)
	return tr, ok
}

func conn(ctx context.Context, db *sql.DB) querier {
	if tr, ok := getTr(ctx); ok {
		return tr
	}
	return db
}

// lockClause makes point reads inside a transaction take a row lock so that
// concurrent settlements of the same row queue instead of aborting.
func lockClause(ctx context.Context) string {
	if _, ok := getTr(ctx); ok {
		return " FOR UPDATE"
	}
	return ""
}

type txManager struct {
	db          *sql.DB
	maxAttempts int
}

func NewTxManager(db *sql.DB, maxAttempts int) port.TxManager {
	return &txManager{db: db, maxAttempts: maxAttempts}
}

func (m *txManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := getTr(ctx); ok {
		return fn(ctx)
	}

	return repository.WithRetry(ctx, m.maxAttempts, isRetryable, func(ctx context.Context) error {
		tr, err := m.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
		if err != nil {
			return fmt.Errorf("%w: begin: %w", domain.ErrStoreFailure, err)
		}

		if err := fn(context.WithValue(ctx, trKey, tr)); err != nil {
			_ = tr.Rollback()
			return err
		}
		return tr.Commit()
	})
}

func isRetryable(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == serializationFailure || pqErr.Code == deadlockDetected
}

func uniqueViolation(err error) (string, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueConstraint {
		return pqErr.Constraint, true
	}
	return "", false
}

func affected(result sql.Result, notFound error) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return notFound
	}
	return nil
}

func NewRepositories(db *sql.DB, maxAttempts int) port.Repositories {
	return port.Repositories{
		Tx:           NewTxManager(db, maxAttempts),
		Users:        NewUserRepository(db),
		Deposits:     NewDepositRepository(db),
		Withdrawals:  NewWithdrawalRepository(db),
		Exchanges:    NewExchangeRepository(db),
		Transactions: NewTransactionRepository(db),
		Bets:         NewBetRepository(db),
		Settings:     NewSettingsRepository(db),
	}
}
