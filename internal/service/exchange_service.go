package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"payeveryone/internal/domain"
	"payeveryone/internal/metrics"
	"payeveryone/internal/port"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// settledPrecision is the number of USDT decimal places kept when converting.
const settledPrecision = 8

type exchangeService struct {
	tx        port.TxManager
	users     port.UserRepository
	exchanges port.ExchangeRepository
	settings  port.SettingsRepository
	cfg       LedgerConfig
	notifier
}

func NewExchangeService(repos port.Repositories, cfg LedgerConfig, bus port.EventBus, log *zap.Logger) port.ExchangeService {
	return &exchangeService{
		tx:        repos.Tx,
		users:     repos.Users,
		exchanges: repos.Exchanges,
		settings:  repos.Settings,
		cfg:       cfg,
		notifier:  notifier{bus: bus, log: log.Named("exchanges")},
	}
}

func (s *exchangeService) CreateExchange(ctx context.Context, req *domain.ExchangeReq) (*domain.ExchangeRequest, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if err := requirePositive("amount", req.Amount); err != nil {
		return nil, err
	}
	if req.Amount.LessThan(s.cfg.MinExchange) {
		return nil, fmt.Errorf("%w: minimum exchange is %s INR", domain.ErrInvalidInput, s.cfg.MinExchange)
	}

	user, err := s.users.GetByID(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if err := verifyPIN(user, req.PIN); err != nil {
		return nil, err
	}

	var method domain.PaymentMethod
	switch {
	case req.PaymentMethod != nil && !req.PaymentMethod.IsZero():
		method = *req.PaymentMethod
	case user.Payout != nil:
		method = *user.Payout
	default:
		return nil, fmt.Errorf("%w: payment method is required", domain.ErrInvalidInput)
	}
	if err := method.Validate(); err != nil {
		return nil, err
	}

	now := time.Now()
	exchange := &domain.ExchangeRequest{
		ID:            uuid.NewString(),
		UserID:        req.UserID,
		Amount:        req.Amount,
		PaymentMethod: method,
		Status:        domain.StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.exchanges.Create(ctx, exchange); err != nil {
		return nil, err
	}

	metrics.RequestCreated("exchange")
	s.log.Info("exchange created", zap.String("id", exchange.ID), zap.String("user_id", exchange.UserID),
		zap.Stringer("amount", exchange.Amount), zap.String("method", string(method.Kind())))
	s.notify(ctx, requestEvents(exchange.UserID, domain.EventExchangeChanged, exchange)...)

	return exchange, nil
}

func (s *exchangeService) ListForUser(ctx context.Context, userID string) ([]*domain.ExchangeRequest, error) {
	return s.exchanges.ListByUser(ctx, userID)
}

func (s *exchangeService) ListByStatus(ctx context.Context, status domain.RequestStatus) ([]*domain.ExchangeRequest, error) {
	return s.exchanges.ListByStatus(ctx, status)
}

// Approve converts the INR amount at the price current inside the
// transaction and debits the result from the user's balance.
func (s *exchangeService) Approve(ctx context.Context, id string) (*domain.ExchangeRequest, error) {
	convert := func(ctx context.Context, e *domain.ExchangeRequest, _ *domain.User) (decimal.Decimal, error) {
		price, err := s.settings.GetMarketPrice(ctx)
		if err != nil {
			return decimal.Zero, err
		}
		if !price.OurPrice.IsPositive() {
			return decimal.Zero, domain.ErrPriceUnavailable
		}

		e.Rate = price.OurPrice
		e.SettledAmount = e.Amount.DivRound(price.OurPrice, settledPrecision)
		return e.SettledAmount.Neg(), nil
	}
	return s.settle(ctx, id, domain.StatusApproved, convert, "")
}

func (s *exchangeService) Reject(ctx context.Context, id string) error {
	_, err := s.settle(ctx, id, domain.StatusRejected, nil, "")
	return err
}

// Fail closes a pending exchange that could not be paid out. No funds move.
func (s *exchangeService) Fail(ctx context.Context, id string, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return fmt.Errorf("%w: failure reason is required", domain.ErrInvalidInput)
	}
	_, err := s.settle(ctx, id, domain.StatusFailed, nil, reason)
	return err
}

func (s *exchangeService) settle(ctx context.Context, id string, outcome domain.RequestStatus,
	effect func(context.Context, *domain.ExchangeRequest, *domain.User) (decimal.Decimal, error), reason string) (*domain.ExchangeRequest, error) {
	res, err := settle(ctx, s.tx, s.users, id, approval[*domain.ExchangeRequest]{
		kind:    "exchange",
		outcome: outcome,
		field:   domain.FieldBalance,
		load:    s.exchanges.GetByID,
		view: func(e *domain.ExchangeRequest) (string, domain.RequestStatus) {
			return e.UserID, e.Status
		},
		effect: effect,
		record: func(ctx context.Context, e *domain.ExchangeRequest) error {
			e.Status = outcome
			e.Error = reason
			e.UpdatedAt = time.Now()
			return s.exchanges.Settle(ctx, e)
		},
	})
	if err != nil {
		s.log.Info("settle exchange failed", zap.String("id", id), zap.String("outcome", string(outcome)), zap.Error(err))
		return nil, err
	}

	s.log.Info("exchange settled", zap.String("id", id), zap.String("outcome", string(outcome)),
		zap.Stringer("rate", res.Request.Rate), zap.Stringer("delta", res.Delta))

	evs := requestEvents(res.Request.UserID, domain.EventExchangeChanged, res.Request)
	if !res.Delta.IsZero() {
		evs = append(evs, balanceEvent(res.User))
	}
	s.notify(ctx, evs...)
	return res.Request, nil
}
