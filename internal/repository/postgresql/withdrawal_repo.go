package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"payeveryone/internal/domain"
	"payeveryone/internal/port"
)

type withdrawalRepository struct {
	db *sql.DB
}

func NewWithdrawalRepository(db *sql.DB) port.WithdrawalRepository {
	return &withdrawalRepository{db: db}
}

const withdrawalColumns = `id, user_id, amount, address, idempotency_key, status, created_at, updated_at`

func scanWithdrawal(row interface{ Scan(...any) error }) (*domain.Withdrawal, error) {
	var w domain.Withdrawal
	err := row.Scan(&w.ID, &w.UserID, &w.Amount, &w.Address, &w.IdempotencyKey, &w.Status, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *withdrawalRepository) Create(ctx context.Context, w *domain.Withdrawal) error {
	const query = `INSERT INTO withdrawals (` + withdrawalColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := conn(ctx, r.db).ExecContext(ctx, query,
		w.ID, w.UserID, w.Amount, w.Address, w.IdempotencyKey, w.Status, w.CreatedAt, w.UpdatedAt)
	if err != nil {
		if constraint, ok := uniqueViolation(err); ok && constraint == "withdrawals_user_id_idempotency_key_key" {
			return domain.ErrDuplicateRequest
		}
		return err
	}
	return nil
}

func (r *withdrawalRepository) GetByID(ctx context.Context, id string) (*domain.Withdrawal, error) {
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawals WHERE id = $1` + lockClause(ctx)

	w, err := scanWithdrawal(conn(ctx, r.db).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrRequestNotFound
	}
	return w, err
}

func (r *withdrawalRepository) GetByIdempotencyKey(ctx context.Context, userID, key string) (*domain.Withdrawal, error) {
	const query = `SELECT ` + withdrawalColumns + ` FROM withdrawals WHERE user_id = $1 AND idempotency_key = $2`

	w, err := scanWithdrawal(conn(ctx, r.db).QueryRowContext(ctx, query, userID, key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return w, err
}

func (r *withdrawalRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Withdrawal, error) {
	const query = `SELECT ` + withdrawalColumns + ` FROM withdrawals WHERE user_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, userID)
}

func (r *withdrawalRepository) ListByStatus(ctx context.Context, status domain.RequestStatus) ([]*domain.Withdrawal, error) {
	const query = `SELECT ` + withdrawalColumns + ` FROM withdrawals
	WHERE ($1 = '' OR status = $1) ORDER BY created_at ASC`
	return r.list(ctx, query, string(status))
}

func (r *withdrawalRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Withdrawal, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Withdrawal
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (r *withdrawalRepository) UpdateStatus(ctx context.Context, id string, status domain.RequestStatus) error {
	const query = `UPDATE withdrawals SET status = $1, updated_at = $2 WHERE id = $3`

	result, err := conn(ctx, r.db).ExecContext(ctx, query, status, time.Now(), id)
	if err != nil {
		return err
	}
	return affected(result, domain.ErrRequestNotFound)
}
