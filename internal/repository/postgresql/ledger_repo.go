package postgresql

import (
	"context"
	"database/sql"

	"payeveryone/internal/domain"
	"payeveryone/internal/port"
)

type transactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(db *sql.DB) port.TransactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) Create(ctx context.Context, t *domain.LedgerTransaction) error {
	const query = `INSERT INTO transactions (id, user_id, type, amount, status, description, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := conn(ctx, r.db).ExecContext(ctx, query,
		t.ID, t.UserID, t.Type, t.Amount, t.Status, t.Description, t.CreatedAt)
	return err
}

func (r *transactionRepository) ListByUser(ctx context.Context, userID string) ([]*domain.LedgerTransaction, error) {
	const query = `SELECT id, user_id, type, amount, status, description, created_at
	FROM transactions WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := conn(ctx, r.db).QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.LedgerTransaction
	for rows.Next() {
		var t domain.LedgerTransaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.Type, &t.Amount, &t.Status, &t.Description, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

//--------------------Bets

type betRepository struct {
	db *sql.DB
}

func NewBetRepository(db *sql.DB) port.BetRepository {
	return &betRepository{db: db}
}

const betColumns = `id, user_id, game, selection, amount, winnings, status, created_at`

func (r *betRepository) Create(ctx context.Context, b *domain.Bet) error {
	const query = `INSERT INTO bets (` + betColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := conn(ctx, r.db).ExecContext(ctx, query,
		b.ID, b.UserID, b.Game, b.Selection, b.Amount, b.Winnings, b.Status, b.CreatedAt)
	return err
}

func (r *betRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Bet, error) {
	const query = `SELECT ` + betColumns + ` FROM bets WHERE user_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, userID)
}

func (r *betRepository) List(ctx context.Context) ([]*domain.Bet, error) {
	const query = `SELECT ` + betColumns + ` FROM bets ORDER BY created_at DESC`
	return r.list(ctx, query)
}

func (r *betRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Bet, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Bet
	for rows.Next() {
		var b domain.Bet
		if err := rows.Scan(&b.ID, &b.UserID, &b.Game, &b.Selection, &b.Amount, &b.Winnings, &b.Status, &b.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &b)
	}
	return out, rows.Err()
}
