package memory

import (
	"context"
	"time"

	"payeveryone/internal/domain"
	"payeveryone/internal/port"
)

const (
	transactionsColl = "transactions"
	betsColl         = "bets"
)

type transactionRepository struct {
	s *Store
}

func NewTransactionRepository(s *Store) port.TransactionRepository {
	return &transactionRepository{s: s}
}

func (r *transactionRepository) Create(ctx context.Context, t *domain.LedgerTransaction) error {
	return r.s.atomically(ctx, func(ctx context.Context) error {
		if _, exists := load[domain.LedgerTransaction](ctx, r.s, transactionsColl, t.ID); exists {
			return domain.ErrDuplicateRequest
		}
		save(ctx, r.s, transactionsColl, t.ID, *t)
		return nil
	})
}

func (r *transactionRepository) ListByUser(ctx context.Context, userID string) ([]*domain.LedgerTransaction, error) {
	items := collect(ctx, r.s, transactionsColl, func(t domain.LedgerTransaction) bool { return t.UserID == userID })
	newestFirst(items, func(t domain.LedgerTransaction) time.Time { return t.CreatedAt })
	return pointers(items), nil
}

type betRepository struct {
	s *Store
}

func NewBetRepository(s *Store) port.BetRepository {
	return &betRepository{s: s}
}

func betCreated(b domain.Bet) time.Time { return b.CreatedAt }

func (r *betRepository) Create(ctx context.Context, b *domain.Bet) error {
	return r.s.atomically(ctx, func(ctx context.Context) error {
		if _, exists := load[domain.Bet](ctx, r.s, betsColl, b.ID); exists {
			return domain.ErrDuplicateRequest
		}
		save(ctx, r.s, betsColl, b.ID, *b)
		return nil
	})
}

func (r *betRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Bet, error) {
	items := collect(ctx, r.s, betsColl, func(b domain.Bet) bool { return b.UserID == userID })
	newestFirst(items, betCreated)
	return pointers(items), nil
}

func (r *betRepository) List(ctx context.Context) ([]*domain.Bet, error) {
	items := collect[domain.Bet](ctx, r.s, betsColl, nil)
	newestFirst(items, betCreated)
	return pointers(items), nil
}
