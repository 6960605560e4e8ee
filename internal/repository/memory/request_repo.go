package memory

import (
	"context"
	"sort"
	"time"

	"payeveryone/internal/domain"
	"payeveryone/internal/port"
)

const (
	depositsColl     = "depositRequests"
	withdrawalsColl  = "withdrawals"
	withdrawalKeyIdx = "withdrawals.idempotency_key"
	exchangesColl    = "exchangeRequests"
)

func pointers[T any](items []T) []*T {
	out := make([]*T, len(items))
	for i := range items {
		out[i] = &items[i]
	}
	return out
}

func newestFirst[T any](items []T, created func(T) time.Time) {
	sort.SliceStable(items, func(i, j int) bool { return created(items[i]).After(created(items[j])) })
}

func oldestFirst[T any](items []T, created func(T) time.Time) {
	sort.SliceStable(items, func(i, j int) bool { return created(items[i]).Before(created(items[j])) })
}

//--------------------Deposits

type depositRepository struct {
	s *Store
}

func NewDepositRepository(s *Store) port.DepositRepository {
	return &depositRepository{s: s}
}

func depositCreated(d domain.DepositRequest) time.Time { return d.CreatedAt }

func (r *depositRepository) Create(ctx context.Context, d *domain.DepositRequest) error {
	return r.s.atomically(ctx, func(ctx context.Context) error {
		if _, exists := load[domain.DepositRequest](ctx, r.s, depositsColl, d.ID); exists {
			return domain.ErrDuplicateRequest
		}
		save(ctx, r.s, depositsColl, d.ID, *d)
		return nil
	})
}

func (r *depositRepository) GetByID(ctx context.Context, id string) (*domain.DepositRequest, error) {
	d, ok := load[domain.DepositRequest](ctx, r.s, depositsColl, id)
	if !ok {
		return nil, domain.ErrRequestNotFound
	}
	return &d, nil
}

func (r *depositRepository) ListByUser(ctx context.Context, userID string) ([]*domain.DepositRequest, error) {
	items := collect(ctx, r.s, depositsColl, func(d domain.DepositRequest) bool { return d.UserID == userID })
	newestFirst(items, depositCreated)
	return pointers(items), nil
}

func (r *depositRepository) ListByStatus(ctx context.Context, status domain.RequestStatus) ([]*domain.DepositRequest, error) {
	items := collect(ctx, r.s, depositsColl, func(d domain.DepositRequest) bool { return status == "" || d.Status == status })
	oldestFirst(items, depositCreated)
	return pointers(items), nil
}

func (r *depositRepository) UpdateStatus(ctx context.Context, id string, status domain.RequestStatus) error {
	return r.s.atomically(ctx, func(ctx context.Context) error {
		d, ok := load[domain.DepositRequest](ctx, r.s, depositsColl, id)
		if !ok {
			return domain.ErrRequestNotFound
		}
		d.Status = status
		d.UpdatedAt = time.Now()
		save(ctx, r.s, depositsColl, id, d)
		return nil
	})
}

//--------------------Withdrawals

type withdrawalRepository struct {
	s *Store
}

func NewWithdrawalRepository(s *Store) port.WithdrawalRepository {
	return &withdrawalRepository{s: s}
}

func withdrawalCreated(w domain.Withdrawal) time.Time { return w.CreatedAt }

func (r *withdrawalRepository) Create(ctx context.Context, w *domain.Withdrawal) error {
	return r.s.atomically(ctx, func(ctx context.Context) error {
		if _, exists := load[domain.Withdrawal](ctx, r.s, withdrawalsColl, w.ID); exists {
			return domain.ErrDuplicateRequest
		}
		if !r.s.claim(ctx, withdrawalKeyIdx, userKey(w.UserID, w.IdempotencyKey), w.ID) {
			return domain.ErrDuplicateRequest
		}
		save(ctx, r.s, withdrawalsColl, w.ID, *w)
		return nil
	})
}

func (r *withdrawalRepository) GetByID(ctx context.Context, id string) (*domain.Withdrawal, error) {
	w, ok := load[domain.Withdrawal](ctx, r.s, withdrawalsColl, id)
	if !ok {
		return nil, domain.ErrRequestNotFound
	}
	return &w, nil
}

// userKey scopes an idempotency key to its owner.
func userKey(userID, key string) string {
	return userID + "\x00" + key
}

func (r *withdrawalRepository) GetByIdempotencyKey(ctx context.Context, userID, key string) (*domain.Withdrawal, error) {
	id, ok := r.s.lookup(ctx, withdrawalKeyIdx, userKey(userID, key))
	if !ok {
		return nil, nil
	}
	return r.GetByID(ctx, id)
}

func (r *withdrawalRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Withdrawal, error) {
	items := collect(ctx, r.s, withdrawalsColl, func(w domain.Withdrawal) bool { return w.UserID == userID })
	newestFirst(items, withdrawalCreated)
	return pointers(items), nil
}

func (r *withdrawalRepository) ListByStatus(ctx context.Context, status domain.RequestStatus) ([]*domain.Withdrawal, error) {
	items := collect(ctx, r.s, withdrawalsColl, func(w domain.Withdrawal) bool { return status == "" || w.Status == status })
	oldestFirst(items, withdrawalCreated)
	return pointers(items), nil
}

func (r *withdrawalRepository) UpdateStatus(ctx context.Context, id string, status domain.RequestStatus) error {
	return r.s.atomically(ctx, func(ctx context.Context) error {
		w, ok := load[domain.Withdrawal](ctx, r.s, withdrawalsColl, id)
		if !ok {
			return domain.ErrRequestNotFound
		}
		w.Status = status
		w.UpdatedAt = time.Now()
		save(ctx, r.s, withdrawalsColl, id, w)
		return nil
	})
}

//--------------------Exchanges

type exchangeRepository struct {
	s *Store
}

func NewExchangeRepository(s *Store) port.ExchangeRepository {
	return &exchangeRepository{s: s}
}

func exchangeCreated(e domain.ExchangeRequest) time.Time { return e.CreatedAt }

func (r *exchangeRepository) Create(ctx context.Context, e *domain.ExchangeRequest) error {
	return r.s.atomically(ctx, func(ctx context.Context) error {
		if _, exists := load[domain.ExchangeRequest](ctx, r.s, exchangesColl, e.ID); exists {
			return domain.ErrDuplicateRequest
		}
		save(ctx, r.s, exchangesColl, e.ID, *e)
		return nil
	})
}

func (r *exchangeRepository) GetByID(ctx context.Context, id string) (*domain.ExchangeRequest, error) {
	e, ok := load[domain.ExchangeRequest](ctx, r.s, exchangesColl, id)
	if !ok {
		return nil, domain.ErrRequestNotFound
	}
	return &e, nil
}

func (r *exchangeRepository) ListByUser(ctx context.Context, userID string) ([]*domain.ExchangeRequest, error) {
	items := collect(ctx, r.s, exchangesColl, func(e domain.ExchangeRequest) bool { return e.UserID == userID })
	newestFirst(items, exchangeCreated)
	return pointers(items), nil
}

func (r *exchangeRepository) ListByStatus(ctx context.Context, status domain.RequestStatus) ([]*domain.ExchangeRequest, error) {
	items := collect(ctx, r.s, exchangesColl, func(e domain.ExchangeRequest) bool { return status == "" || e.Status == status })
	oldestFirst(items, exchangeCreated)
	return pointers(items), nil
}

func (r *exchangeRepository) Settle(ctx context.Context, e *domain.ExchangeRequest) error {
	return r.s.atomically(ctx, func(ctx context.Context) error {
		cur, ok := load[domain.ExchangeRequest](ctx, r.s, exchangesColl, e.ID)
		if !ok {
			return domain.ErrRequestNotFound
		}
		cur.Status = e.Status
		cur.Rate = e.Rate
		cur.SettledAmount = e.SettledAmount
		cur.Error = e.Error
		cur.UpdatedAt = time.Now()
		save(ctx, r.s, exchangesColl, e.ID, cur)
		return nil
	})
}
