package service

import (
	"context"
	"time"

	"payeveryone/internal/domain"
	"payeveryone/internal/metrics"
	"payeveryone/internal/port"

	"github.com/shopspring/decimal"
)

// approval describes how one request type moves out of pending.
type approval[R any] struct {
	kind    string
	outcome domain.RequestStatus
	field   domain.BalanceField

	load func(ctx context.Context, id string) (R, error)
	// view returns the owner and current status of a loaded request.
	view func(req R) (userID string, status domain.RequestStatus)
	// effect returns the signed change to the user's field. Nil means none.
	effect func(ctx context.Context, req R, user *domain.User) (decimal.Decimal, error)
	// record writes the outcome onto the request. It runs exactly once per
	// successful attempt.
	record func(ctx context.Context, req R) error
}

type settlement[R any] struct {
	Request R
	User    *domain.User
	Delta   decimal.Decimal
}

// settle runs the approval protocol in one store transaction:
//
//	load request -> must be pending -> load user -> apply effect -> record outcome
//
// The body is re-executed on conflicts, so it only reads and writes through
// repositories. Anything observable outside the store happens in the caller
// after settle returns.
func settle[R any](ctx context.Context, tx port.TxManager, users port.UserRepository, id string, a approval[R]) (settlement[R], error) {
	started := time.Now()

	var out settlement[R]
	err := tx.WithinTx(ctx, func(ctx context.Context) error {
		req, err := a.load(ctx, id)
		if err != nil {
			return err
		}

		userID, status := a.view(req)
		if status != domain.StatusPending {
			return domain.ErrAlreadyProcessed
		}

		user, err := users.GetByID(ctx, userID)
		if err != nil {
			return err
		}

		delta := decimal.Zero
		if a.effect != nil {
			if delta, err = a.effect(ctx, req, user); err != nil {
				return err
			}
		}

		if !delta.IsZero() {
			if err := credit(ctx, users, user, a.field, delta); err != nil {
				return err
			}
		}

		if err := a.record(ctx, req); err != nil {
			return err
		}

		out = settlement[R]{Request: req, User: user, Delta: delta}
		return nil
	})

	metrics.ObserveSettlement(a.kind, string(a.outcome), resultLabel(err), started)
	if err != nil {
		return settlement[R]{}, err
	}
	return out, nil
}

func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	return string(domain.Kind(err))
}

// credit adds a signed amount to the user's field inside the caller's
// transaction and refuses to take it below zero.
func credit(ctx context.Context, users port.UserRepository, user *domain.User, field domain.BalanceField, amount decimal.Decimal) error {
	next := user.Funds(field).Add(amount)
	if next.IsNegative() {
		return domain.ErrInsufficientBalance
	}
	if err := users.UpdateFunds(ctx, user.ID, field, next); err != nil {
		return err
	}
	user.SetFunds(field, next)
	return nil
}
