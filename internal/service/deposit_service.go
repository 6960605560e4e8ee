package service

import (
	"context"
	"fmt"
	"time"

	"payeveryone/internal/domain"
	"payeveryone/internal/metrics"
	"payeveryone/internal/port"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type depositService struct {
	tx       port.TxManager
	users    port.UserRepository
	deposits port.DepositRepository
	cfg      LedgerConfig
	notifier
}

func NewDepositService(repos port.Repositories, cfg LedgerConfig, bus port.EventBus, log *zap.Logger) port.DepositService {
	return &depositService{
		tx:       repos.Tx,
		users:    repos.Users,
		deposits: repos.Deposits,
		cfg:      cfg,
		notifier: notifier{bus: bus, log: log.Named("deposits")},
	}
}

func (s *depositService) CreateDeposit(ctx context.Context, req *domain.DepositReq) (*domain.DepositRequest, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if err := requirePositive("amount", req.Amount); err != nil {
		return nil, err
	}
	if req.Amount.LessThan(s.cfg.MinDeposit) {
		return nil, fmt.Errorf("%w: minimum deposit is %s USDT", domain.ErrInvalidInput, s.cfg.MinDeposit)
	}
	if _, err := s.users.GetByID(ctx, req.UserID); err != nil {
		return nil, err
	}

	now := time.Now()
	deposit := &domain.DepositRequest{
		ID:            uuid.NewString(),
		UserID:        req.UserID,
		Amount:        req.Amount,
		TransactionID: req.TransactionID,
		Status:        domain.StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.deposits.Create(ctx, deposit); err != nil {
		return nil, err
	}

	metrics.RequestCreated("deposit")
	s.log.Info("deposit created", zap.String("id", deposit.ID), zap.String("user_id", deposit.UserID),
		zap.Stringer("amount", deposit.Amount))
	s.notify(ctx, requestEvents(deposit.UserID, domain.EventDepositChanged, deposit)...)

	return deposit, nil
}

func (s *depositService) ListForUser(ctx context.Context, userID string) ([]*domain.DepositRequest, error) {
	return s.deposits.ListByUser(ctx, userID)
}

func (s *depositService) ListByStatus(ctx context.Context, status domain.RequestStatus) ([]*domain.DepositRequest, error) {
	return s.deposits.ListByStatus(ctx, status)
}

func (s *depositService) Approve(ctx context.Context, id string) error {
	return s.settle(ctx, id, domain.StatusApproved, func(_ context.Context, d *domain.DepositRequest, _ *domain.User) (decimal.Decimal, error) {
		return d.Amount, nil
	})
}

func (s *depositService) Reject(ctx context.Context, id string) error {
	return s.settle(ctx, id, domain.StatusRejected, nil)
}

func (s *depositService) settle(ctx context.Context, id string, outcome domain.RequestStatus,
	effect func(context.Context, *domain.DepositRequest, *domain.User) (decimal.Decimal, error)) error {
	res, err := settle(ctx, s.tx, s.users, id, approval[*domain.DepositRequest]{
		kind:    "deposit",
		outcome: outcome,
		field:   domain.FieldBalance,
		load:    s.deposits.GetByID,
		view: func(d *domain.DepositRequest) (string, domain.RequestStatus) {
			return d.UserID, d.Status
		},
		effect: effect,
		record: func(ctx context.Context, d *domain.DepositRequest) error {
			d.Status = outcome
			d.UpdatedAt = time.Now()
			return s.deposits.UpdateStatus(ctx, d.ID, outcome)
		},
	})
	if err != nil {
		s.log.Info("settle deposit failed", zap.String("id", id), zap.String("outcome", string(outcome)), zap.Error(err))
		return err
	}

	s.log.Info("deposit settled", zap.String("id", id), zap.String("outcome", string(outcome)),
		zap.Stringer("delta", res.Delta))

	evs := requestEvents(res.Request.UserID, domain.EventDepositChanged, res.Request)
	if !res.Delta.IsZero() {
		evs = append(evs, balanceEvent(res.User))
	}
	s.notify(ctx, evs...)
	return nil
}
