package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"payeveryone/internal/domain"
	"payeveryone/internal/port"
)

type depositRepository struct {
	db *sql.DB
}

func NewDepositRepository(db *sql.DB) port.DepositRepository {
	return &depositRepository{db: db}
}

const depositColumns = `id, user_id, amount, transaction_id, status, created_at, updated_at`

func scanDeposit(row interface{ Scan(...any) error }) (*domain.DepositRequest, error) {
	var d domain.DepositRequest
	if err := row.Scan(&d.ID, &d.UserID, &d.Amount, &d.TransactionID, &d.Status, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *depositRepository) Create(ctx context.Context, d *domain.DepositRequest) error {
	const query = `INSERT INTO deposit_requests (` + depositColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := conn(ctx, r.db).ExecContext(ctx, query,
		d.ID, d.UserID, d.Amount, d.TransactionID, d.Status, d.CreatedAt, d.UpdatedAt)
	if _, dup := uniqueViolation(err); dup {
		return domain.ErrDuplicateRequest
	}
	return err
}

func (r *depositRepository) GetByID(ctx context.Context, id string) (*domain.DepositRequest, error) {
	query := `SELECT ` + depositColumns + ` FROM deposit_requests WHERE id = $1` + lockClause(ctx)

	d, err := scanDeposit(conn(ctx, r.db).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrRequestNotFound
	}
	return d, err
}

func (r *depositRepository) ListByUser(ctx context.Context, userID string) ([]*domain.DepositRequest, error) {
	const query = `SELECT ` + depositColumns + ` FROM deposit_requests WHERE user_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, userID)
}

func (r *depositRepository) ListByStatus(ctx context.Context, status domain.RequestStatus) ([]*domain.DepositRequest, error) {
	const query = `SELECT ` + depositColumns + ` FROM deposit_requests
	WHERE ($1 = '' OR status = $1) ORDER BY created_at ASC`
	return r.list(ctx, query, string(status))
}

func (r *depositRepository) list(ctx context.Context, query string, args ...any) ([]*domain.DepositRequest, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.DepositRequest
	for rows.Next() {
		d, err := scanDeposit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *depositRepository) UpdateStatus(ctx context.Context, id string, status domain.RequestStatus) error {
	const query = `UPDATE deposit_requests SET status = $1, updated_at = $2 WHERE id = $3`

	result, err := conn(ctx, r.db).ExecContext(ctx, query, status, time.Now(), id)
	if err != nil {
		return err
	}
	return affected(result, domain.ErrRequestNotFound)
}
