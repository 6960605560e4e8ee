package service

import (
	"context"
	"fmt"
	"time"

	"payeveryone/internal/domain"
	"payeveryone/internal/port"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type userService struct {
	repos port.Repositories
	cfg   LedgerConfig
	now   func() time.Time
	notifier
}

func NewUserService(repos port.Repositories, cfg LedgerConfig, bus port.EventBus, log *zap.Logger) port.UserService {
	return &userService{
		repos:    repos,
		cfg:      cfg,
		now:      time.Now,
		notifier: notifier{bus: bus, log: log.Named("users")},
	}
}

func (s *userService) Get(ctx context.Context, id string) (*domain.User, error) {
	return s.repos.Users.GetByID(ctx, id)
}

func (s *userService) List(ctx context.Context) ([]*domain.User, error) {
	return s.repos.Users.List(ctx)
}

func (s *userService) SetWithdrawPIN(ctx context.Context, userID string, req *domain.SetPINReq) error {
	if err := validateStruct(req); err != nil {
		return err
	}
	if req.PIN != req.Confirm {
		return fmt.Errorf("%w: withdraw passwords do not match", domain.ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.PIN), s.cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash withdraw password: %w", err)
	}
	if err := s.repos.Users.UpdateWithdrawPIN(ctx, userID, string(hash)); err != nil {
		return err
	}

	s.log.Info("withdraw password set", zap.String("user_id", userID))
	return nil
}

func (s *userService) SetPayout(ctx context.Context, userID string, m domain.PaymentMethod) error {
	if err := m.Validate(); err != nil {
		return err
	}
	if err := s.repos.Users.UpdatePayout(ctx, userID, &m); err != nil {
		return err
	}

	s.log.Info("payout method updated", zap.String("user_id", userID), zap.String("kind", string(m.Kind())))
	return nil
}

// CreditUser adds funds to a user's balance and records an admin_credit
// transaction in the same store transaction.
func (s *userService) CreditUser(ctx context.Context, req *domain.CreditReq) (*domain.LedgerTransaction, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if err := requirePositive("amount", req.Amount); err != nil {
		return nil, err
	}

	var (
		record *domain.LedgerTransaction
		user   *domain.User
	)
	err := s.repos.Tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if user, err = s.repos.Users.GetByID(ctx, req.UserID); err != nil {
			return err
		}
		if err := credit(ctx, s.repos.Users, user, domain.FieldBalance, req.Amount); err != nil {
			return err
		}

		record = &domain.LedgerTransaction{
			ID:          uuid.NewString(),
			UserID:      user.ID,
			Type:        domain.TxAdminCredit,
			Amount:      req.Amount,
			Status:      domain.StatusApproved,
			Description: "Credited by admin",
			CreatedAt:   s.now(),
		}
		return s.repos.Transactions.Create(ctx, record)
	})
	if err != nil {
		s.log.Info("credit user failed", zap.String("user_id", req.UserID), zap.Error(err))
		return nil, err
	}

	s.log.Info("user credited", zap.String("user_id", user.ID), zap.Stringer("amount", req.Amount))
	s.notify(ctx, balanceEvent(user))
	return record, nil
}

func (s *userService) Dashboard(ctx context.Context) (*domain.Dashboard, error) {
	users, err := s.repos.Users.List(ctx)
	if err != nil {
		return nil, err
	}
	deposits, err := s.repos.Deposits.ListByStatus(ctx, domain.StatusPending)
	if err != nil {
		return nil, err
	}
	withdrawals, err := s.repos.Withdrawals.ListByStatus(ctx, domain.StatusPending)
	if err != nil {
		return nil, err
	}
	exchanges, err := s.repos.Exchanges.ListByStatus(ctx, domain.StatusPending)
	if err != nil {
		return nil, err
	}

	now := s.now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	endOfDay := startOfDay.AddDate(0, 0, 1)
	joinedToday := 0
	for _, u := range users {
		if !u.CreatedAt.Before(startOfDay) && u.CreatedAt.Before(endOfDay) {
			joinedToday++
		}
	}

	return &domain.Dashboard{
		TotalUsers:         len(users),
		UsersJoinedToday:   joinedToday,
		PendingDeposits:    len(deposits),
		PendingWithdrawals: len(withdrawals),
		PendingExchanges:   len(exchanges),
	}, nil
}
