package service

import (
	"context"
	"errors"
	"time"

	"payeveryone/internal/domain"
	"payeveryone/internal/metrics"
	"payeveryone/internal/port"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type withdrawalService struct {
	tx          port.TxManager
	users       port.UserRepository
	withdrawals port.WithdrawalRepository
	notifier
}

func NewWithdrawalService(repos port.Repositories, bus port.EventBus, log *zap.Logger) port.WithdrawalService {
	return &withdrawalService{
		tx:          repos.Tx,
		users:       repos.Users,
		withdrawals: repos.Withdrawals,
		notifier:    notifier{bus: bus, log: log.Named("withdrawals")},
	}
}

func sameWithdrawal(w *domain.Withdrawal, req *domain.WithdrawalReq) bool {
	return w.UserID == req.UserID && w.Amount.Equal(req.Amount) && w.Address == req.Address
}

func (s *withdrawalService) CreateWithdrawal(ctx context.Context, req *domain.WithdrawalReq) (*domain.Withdrawal, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if err := requirePositive("amount", req.Amount); err != nil {
		return nil, err
	}

	// Replays are answered without a transaction
	if existing, err := s.replay(ctx, req); existing != nil || err != nil {
		return existing, err
	}

	user, err := s.users.GetByID(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if err := verifyPIN(user, req.PIN); err != nil {
		return nil, err
	}

	var (
		withdrawal *domain.Withdrawal
		owner      *domain.User
	)
	err = s.tx.WithinTx(ctx, func(txCtx context.Context) error {
		// Balance is re-read inside the transaction
		user, err := s.users.GetByID(txCtx, req.UserID)
		if err != nil {
			return err
		}

		now := time.Now()
		withdrawal = &domain.Withdrawal{
			ID:             uuid.NewString(),
			UserID:         req.UserID,
			Amount:         req.Amount,
			Address:        req.Address,
			IdempotencyKey: req.IdempotencyKey,
			Status:         domain.StatusPending,
			CreatedAt:      now,
			UpdatedAt:      now,
		}

		if err := credit(txCtx, s.users, user, domain.FieldBalance, req.Amount.Neg()); err != nil {
			return err
		}
		if err := s.withdrawals.Create(txCtx, withdrawal); err != nil {
			return err
		}
		owner = user
		return nil
	})
	if errors.Is(err, domain.ErrDuplicateRequest) {
		// A concurrent request with the same key won the race
		if existing, rerr := s.replay(ctx, req); existing != nil || rerr != nil {
			return existing, rerr
		}
	}
	if err != nil {
		s.log.Info("create withdrawal failed", zap.String("user_id", req.UserID), zap.Error(err))
		return nil, err
	}

	metrics.RequestCreated("withdrawal")
	s.log.Info("withdrawal created", zap.String("id", withdrawal.ID), zap.String("user_id", withdrawal.UserID),
		zap.Stringer("amount", withdrawal.Amount))

	evs := requestEvents(withdrawal.UserID, domain.EventWithdrawalChanged, withdrawal)
	s.notify(ctx, append(evs, balanceEvent(owner))...)

	return withdrawal, nil
}

// replay returns the withdrawal the caller already stored under the request's
// key, or ErrIdempotencyKeyMismatch if that key was used for a different payload.
// Keys are scoped to the user.
func (s *withdrawalService) replay(ctx context.Context, req *domain.WithdrawalReq) (*domain.Withdrawal, error) {
	existing, err := s.withdrawals.GetByIdempotencyKey(ctx, req.UserID, req.IdempotencyKey)
	if err != nil || existing == nil {
		return nil, err
	}
	if !sameWithdrawal(existing, req) {
		return nil, domain.ErrIdempotencyKeyMismatch
	}
	return existing, nil
}

func (s *withdrawalService) GetWithdrawal(ctx context.Context, id string) (*domain.Withdrawal, error) {
	return s.withdrawals.GetByID(ctx, id)
}

func (s *withdrawalService) ListForUser(ctx context.Context, userID string) ([]*domain.Withdrawal, error) {
	return s.withdrawals.ListByUser(ctx, userID)
}

func (s *withdrawalService) ListByStatus(ctx context.Context, status domain.RequestStatus) ([]*domain.Withdrawal, error) {
	return s.withdrawals.ListByStatus(ctx, status)
}

// Approve finalizes a withdrawal. The amount was reserved at creation.
func (s *withdrawalService) Approve(ctx context.Context, id string) error {
	return s.settle(ctx, id, domain.StatusApproved, nil)
}

// Reject returns the reserved amount to the user's balance.
func (s *withdrawalService) Reject(ctx context.Context, id string) error {
	refund := func(ctx context.Context, w *domain.Withdrawal, _ *domain.User) (decimal.Decimal, error) {
		return w.Amount, nil
	}
	return s.settle(ctx, id, domain.StatusRejected, refund)
}

func (s *withdrawalService) settle(ctx context.Context, id string, outcome domain.RequestStatus,
	effect func(context.Context, *domain.Withdrawal, *domain.User) (decimal.Decimal, error)) error {
	res, err := settle(ctx, s.tx, s.users, id, approval[*domain.Withdrawal]{
		kind:    "withdrawal",
		outcome: outcome,
		field:   domain.FieldBalance,
		load:    s.withdrawals.GetByID,
		view: func(w *domain.Withdrawal) (string, domain.RequestStatus) {
			return w.UserID, w.Status
		},
		effect: effect,
		record: func(ctx context.Context, w *domain.Withdrawal) error {
			w.Status = outcome
			w.UpdatedAt = time.Now()
			return s.withdrawals.UpdateStatus(ctx, w.ID, outcome)
		},
	})
	if err != nil {
		s.log.Info("settle withdrawal failed", zap.String("id", id), zap.String("outcome", string(outcome)), zap.Error(err))
		return err
	}

	s.log.Info("withdrawal settled", zap.String("id", id), zap.String("outcome", string(outcome)),
		zap.Stringer("delta", res.Delta))

	evs := requestEvents(res.Request.UserID, domain.EventWithdrawalChanged, res.Request)
	if !res.Delta.IsZero() {
		evs = append(evs, balanceEvent(res.User))
	}
	s.notify(ctx, evs...)
	return nil
}
