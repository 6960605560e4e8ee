package service

import (
	"context"
	"testing"
	"time"

	"payeveryone/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryForUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.seedUser(t, 0)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	at := func(h int) time.Time { return base.Add(time.Duration(h) * time.Hour) }
	dec := decimal.NewFromInt

	require.NoError(t, env.repos.Deposits.Create(ctx, &domain.DepositRequest{ID: "d1", UserID: user.ID, Amount: dec(50), Status: domain.StatusApproved, CreatedAt: at(1)}))
	require.NoError(t, env.repos.Deposits.Create(ctx, &domain.DepositRequest{ID: "d2", UserID: user.ID, Amount: dec(20), Status: domain.StatusPending, CreatedAt: at(2)}))
	require.NoError(t, env.repos.Withdrawals.Create(ctx, &domain.Withdrawal{ID: "w1", UserID: user.ID, Amount: dec(10), IdempotencyKey: "k", Status: domain.StatusApproved, CreatedAt: at(3)}))
	require.NoError(t, env.repos.Exchanges.Create(ctx, &domain.ExchangeRequest{
		ID: "e1", UserID: user.ID, Amount: dec(1000), PaymentMethod: domain.UPIMethod("a@b"),
		Status: domain.StatusApproved, Rate: dec(100), SettledAmount: dec(10), CreatedAt: at(4),
	}))
	require.NoError(t, env.repos.Transactions.Create(ctx, &domain.LedgerTransaction{ID: "t1", UserID: user.ID, Type: domain.TxAdminCredit, Amount: dec(5), Status: domain.StatusApproved, CreatedAt: at(5)}))
	require.NoError(t, env.repos.Transactions.Create(ctx, &domain.LedgerTransaction{ID: "t2", UserID: user.ID, Type: domain.TxReferralBonus, Amount: dec(50), Status: domain.StatusApproved, CreatedAt: at(0)}))
	require.NoError(t, env.repos.Bets.Create(ctx, &domain.Bet{ID: "b1", UserID: user.ID, Game: "dice", Amount: dec(3), Winnings: dec(6), Status: domain.BetWin, CreatedAt: at(6)}))
	require.NoError(t, env.repos.Bets.Create(ctx, &domain.Bet{ID: "b2", UserID: user.ID, Game: "dice", Amount: dec(4), Status: domain.BetLoss, CreatedAt: at(7)}))
	require.NoError(t, env.repos.Bets.Create(ctx, &domain.Bet{ID: "b3", UserID: "someone-else", Game: "dice", Amount: dec(4), Status: domain.BetLoss, CreatedAt: at(8)}))

	svc := NewHistoryService(env.repos)
	entries, err := svc.ForUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, entries, 8)

	wantIDs := []string{"b2", "b1", "t1", "e1", "w1", "d2", "d1", "t2"}
	wantPayout := []int64{-4, 6, 5, -10, -10, 0, 50, 50}
	for i, e := range entries {
		assert.Equal(t, wantIDs[i], e.ID)
		assert.True(t, e.Payout.Equal(dec(wantPayout[i])), "%s payout %s", e.ID, e.Payout)
	}
	assert.Equal(t, domain.HistoryReferralBonus, entries[7].Type)
	assert.Equal(t, domain.HistoryAdminCredit, entries[2].Type)
	assert.Equal(t, "UPI", entries[3].Detail)

	sum := Summarize(entries)
	assert.True(t, sum.TotalCredits.Equal(dec(111)))
	assert.True(t, sum.TotalDebits.Equal(dec(24)))
	assert.Equal(t, 4, sum.CreditCount)
	assert.Equal(t, 3, sum.DebitCount)

	bets, err := svc.Bets(ctx)
	require.NoError(t, err)
	assert.Len(t, bets, 3)
}

func TestHistoryForUnknownUser(t *testing.T) {
	env := newTestEnv(t)

	_, err := NewHistoryService(env.repos).ForUser(context.Background(), "ghost")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}
