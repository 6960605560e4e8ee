package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"payeveryone/internal/domain"
	"payeveryone/internal/events"
	"payeveryone/internal/port"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// LedgerConfig holds the business limits applied when requests are created.
type LedgerConfig struct {
	MinDeposit    decimal.Decimal
	MinExchange   decimal.Decimal
	ReferralBonus decimal.Decimal
	BcryptCost    int
}

func DefaultLedgerConfig() LedgerConfig {
	return LedgerConfig{
		MinDeposit:    decimal.NewFromInt(10),
		MinExchange:   decimal.NewFromInt(10000),
		ReferralBonus: decimal.NewFromInt(50),
		BcryptCost:    bcrypt.DefaultCost,
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func validateStruct(v any) error {
	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, len(verrs))
			for i, fe := range verrs {
				fields[i] = fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag())
			}
			return fmt.Errorf("%w: %s", domain.ErrInvalidInput, strings.Join(fields, "; "))
		}
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	return nil
}

func requirePositive(name string, v decimal.Decimal) error {
	if !v.IsPositive() {
		return fmt.Errorf("%w: %s must be greater than zero", domain.ErrInvalidInput, name)
	}
	return nil
}

func verifyPIN(u *domain.User, pin string) error {
	if u.WithdrawPINHash == "" {
		return domain.ErrPINNotSet
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.WithdrawPINHash), []byte(pin)); err != nil {
		return domain.ErrPINMismatch
	}
	return nil
}

type balanceView struct {
	Balance      decimal.Decimal `json:"balance"`
	WinningMoney decimal.Decimal `json:"winningMoney"`
}

func balanceEvent(u *domain.User) domain.Event {
	return domain.NewEvent(domain.UserTopic(u.ID), domain.EventBalanceChanged,
		balanceView{Balance: u.Balance, WinningMoney: u.WinningMoney})
}

// requestEvents tells the owner and the admin queue that a request changed.
func requestEvents(userID, typ string, req any) []domain.Event {
	return []domain.Event{
		domain.NewEvent(domain.UserTopic(userID), typ, req),
		domain.NewEvent(domain.TopicAdminRequests, typ, req),
	}
}

type notifier struct {
	bus port.EventBus
	log *zap.Logger
}

// notify publishes on a context detached from the caller's cancellation: the
// change is already committed when it runs.
func (n notifier) notify(ctx context.Context, evs ...domain.Event) {
	events.Notify(context.WithoutCancel(ctx), n.bus, n.log, evs...)
}
