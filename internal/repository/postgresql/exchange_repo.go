package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"payeveryone/internal/domain"
	"payeveryone/internal/port"
)

type exchangeRepository struct {
	db *sql.DB
}

func NewExchangeRepository(db *sql.DB) port.ExchangeRepository {
	return &exchangeRepository{db: db}
}

const exchangeColumns = `id, user_id, amount, payment_method, status, rate, settled_amount, error, created_at, updated_at`

func scanExchange(row interface{ Scan(...any) error }) (*domain.ExchangeRequest, error) {
	var (
		e      domain.ExchangeRequest
		method []byte
	)
	err := row.Scan(&e.ID, &e.UserID, &e.Amount, &method, &e.Status, &e.Rate, &e.SettledAmount,
		&e.Error, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(method, &e.PaymentMethod); err != nil {
		return nil, fmt.Errorf("decode payment method of exchange %s: %w", e.ID, err)
	}
	return &e, nil
}

func (r *exchangeRepository) Create(ctx context.Context, e *domain.ExchangeRequest) error {
	const query = `INSERT INTO exchange_requests (` + exchangeColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	method, err := json.Marshal(e.PaymentMethod)
	if err != nil {
		return err
	}

	_, err = conn(ctx, r.db).ExecContext(ctx, query,
		e.ID, e.UserID, e.Amount, string(method), e.Status, e.Rate, e.SettledAmount, e.Error, e.CreatedAt, e.UpdatedAt)
	if _, dup := uniqueViolation(err); dup {
		return domain.ErrDuplicateRequest
	}
	return err
}

func (r *exchangeRepository) GetByID(ctx context.Context, id string) (*domain.ExchangeRequest, error) {
	query := `SELECT ` + exchangeColumns + ` FROM exchange_requests WHERE id = $1` + lockClause(ctx)

	e, err := scanExchange(conn(ctx, r.db).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrRequestNotFound
	}
	return e, err
}

func (r *exchangeRepository) ListByUser(ctx context.Context, userID string) ([]*domain.ExchangeRequest, error) {
	const query = `SELECT ` + exchangeColumns + ` FROM exchange_requests WHERE user_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, userID)
}

func (r *exchangeRepository) ListByStatus(ctx context.Context, status domain.RequestStatus) ([]*domain.ExchangeRequest, error) {
	const query = `SELECT ` + exchangeColumns + ` FROM exchange_requests
	WHERE ($1 = '' OR status = $1) ORDER BY created_at ASC`
	return r.list(ctx, query, string(status))
}

func (r *exchangeRepository) list(ctx context.Context, query string, args ...any) ([]*domain.ExchangeRequest, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.ExchangeRequest
	for rows.Next() {
		e, err := scanExchange(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *exchangeRepository) Settle(ctx context.Context, e *domain.ExchangeRequest) error {
	const query = `UPDATE exchange_requests
	SET status = $1, rate = $2, settled_amount = $3, error = $4, updated_at = $5
	WHERE id = $6`

	result, err := conn(ctx, r.db).ExecContext(ctx, query,
		e.Status, e.Rate, e.SettledAmount, e.Error, time.Now(), e.ID)
	if err != nil {
		return err
	}
	return affected(result, domain.ErrRequestNotFound)
}
