package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"payeveryone/internal/domain"
	"payeveryone/internal/port"

	"github.com/shopspring/decimal"
)

const (
	usersColl       = "users"
	userEmailIdx    = "users.email"
	userReferralIdx = "users.referral_code"
)

type userRepository struct {
	s *Store
}

func NewUserRepository(s *Store) port.UserRepository {
	return &userRepository{s: s}
}

func (r *userRepository) Create(ctx context.Context, u *domain.User) error {
	return r.s.atomically(ctx, func(ctx context.Context) error {
		if _, exists := load[domain.User](ctx, r.s, usersColl, u.ID); exists {
			return domain.ErrDuplicateRequest
		}
		if !r.s.claim(ctx, userEmailIdx, strings.ToLower(u.Email), u.ID) {
			return domain.ErrEmailTaken
		}
		if u.ReferralCode != "" && !r.s.claim(ctx, userReferralIdx, u.ReferralCode, u.ID) {
			return domain.ErrDuplicateRequest
		}
		save(ctx, r.s, usersColl, u.ID, *u)
		return nil
	})
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	u, ok := load[domain.User](ctx, r.s, usersColl, id)
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	id, ok := r.s.lookup(ctx, userEmailIdx, strings.ToLower(email))
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *userRepository) GetByReferralCode(ctx context.Context, code string) (*domain.User, error) {
	id, ok := r.s.lookup(ctx, userReferralIdx, code)
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *userRepository) List(ctx context.Context) ([]*domain.User, error) {
	users := collect[domain.User](ctx, r.s, usersColl, nil)
	sort.Slice(users, func(i, j int) bool { return users[i].Name < users[j].Name })

	out := make([]*domain.User, len(users))
	for i := range users {
		out[i] = &users[i]
	}
	return out, nil
}

func (r *userRepository) UpdateFunds(ctx context.Context, id string, field domain.BalanceField, amount decimal.Decimal) error {
	return r.update(ctx, id, func(u *domain.User) { u.SetFunds(field, amount) })
}

func (r *userRepository) UpdateWithdrawPIN(ctx context.Context, id string, hash string) error {
	return r.update(ctx, id, func(u *domain.User) { u.WithdrawPINHash = hash })
}

func (r *userRepository) UpdatePayout(ctx context.Context, id string, m *domain.PaymentMethod) error {
	return r.update(ctx, id, func(u *domain.User) { u.Payout = m })
}

func (r *userRepository) update(ctx context.Context, id string, mutate func(u *domain.User)) error {
	return r.s.atomically(ctx, func(ctx context.Context) error {
		u, ok := load[domain.User](ctx, r.s, usersColl, id)
		if !ok {
			return domain.ErrUserNotFound
		}
		mutate(&u)
		u.UpdatedAt = time.Now()
		save(ctx, r.s, usersColl, id, u)
		return nil
	})
}
