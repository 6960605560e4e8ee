package service

import (
	"context"
	"sort"

	"payeveryone/internal/domain"
	"payeveryone/internal/port"

	"github.com/shopspring/decimal"
)

type historyService struct {
	repos port.Repositories
}

func NewHistoryService(repos port.Repositories) port.HistoryService {
	return &historyService{repos: repos}
}

// ForUser merges every collection that touches the user's funds into one
// feed, newest first.
func (s *historyService) ForUser(ctx context.Context, userID string) ([]domain.HistoryEntry, error) {
	if _, err := s.repos.Users.GetByID(ctx, userID); err != nil {
		return nil, err
	}

	deposits, err := s.repos.Deposits.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	withdrawals, err := s.repos.Withdrawals.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	exchanges, err := s.repos.Exchanges.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	txs, err := s.repos.Transactions.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	bets, err := s.repos.Bets.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	entries := make([]domain.HistoryEntry, 0, len(deposits)+len(withdrawals)+len(exchanges)+len(txs)+len(bets))
	for _, d := range deposits {
		entries = append(entries, depositEntry(d))
	}
	for _, w := range withdrawals {
		entries = append(entries, withdrawalEntry(w))
	}
	for _, e := range exchanges {
		entries = append(entries, exchangeEntry(e))
	}
	for _, t := range txs {
		entries = append(entries, transactionEntry(t))
	}
	for _, b := range bets {
		entries = append(entries, betEntry(b))
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Date.After(entries[j].Date) })
	return entries, nil
}

func (s *historyService) Bets(ctx context.Context) ([]*domain.Bet, error) {
	return s.repos.Bets.List(ctx)
}

func depositEntry(d *domain.DepositRequest) domain.HistoryEntry {
	payout := decimal.Zero
	if d.Status == domain.StatusApproved {
		payout = d.Amount
	}
	return domain.HistoryEntry{
		ID: d.ID, Date: d.CreatedAt, Type: domain.HistoryDeposit, Detail: d.TransactionID,
		Amount: d.Amount, Status: string(d.Status), Payout: payout,
	}
}

func withdrawalEntry(w *domain.Withdrawal) domain.HistoryEntry {
	payout := decimal.Zero
	if w.Status == domain.StatusApproved {
		payout = w.Amount.Neg()
	}
	return domain.HistoryEntry{
		ID: w.ID, Date: w.CreatedAt, Type: domain.HistoryWithdrawal, Detail: w.Address,
		Amount: w.Amount, Status: string(w.Status), Payout: payout,
	}
}

func exchangeEntry(e *domain.ExchangeRequest) domain.HistoryEntry {
	payout := decimal.Zero
	if e.Status == domain.StatusApproved {
		payout = e.SettledAmount.Neg()
	}
	return domain.HistoryEntry{
		ID: e.ID, Date: e.CreatedAt, Type: domain.HistoryExchange, Detail: string(e.PaymentMethod.Kind()),
		Amount: e.Amount, Status: string(e.Status), Payout: payout,
	}
}

func transactionEntry(t *domain.LedgerTransaction) domain.HistoryEntry {
	typ := domain.HistoryAdminCredit
	if t.Type == domain.TxReferralBonus {
		typ = domain.HistoryReferralBonus
	}
	return domain.HistoryEntry{
		ID: t.ID, Date: t.CreatedAt, Type: typ, Detail: t.Description,
		Amount: t.Amount, Status: string(t.Status), Payout: t.Amount,
	}
}

func betEntry(b *domain.Bet) domain.HistoryEntry {
	payout := decimal.Zero
	switch b.Status {
	case domain.BetWin:
		payout = b.Winnings
	case domain.BetLoss:
		payout = b.Amount.Neg()
	}
	return domain.HistoryEntry{
		ID: b.ID, Date: b.CreatedAt, Type: domain.HistoryBet, Detail: b.Game,
		Amount: b.Amount, Status: string(b.Status), Payout: payout,
	}
}

// Summarize totals the signed payouts of a feed.
func Summarize(entries []domain.HistoryEntry) domain.HistorySummary {
	sum := domain.HistorySummary{TotalCredits: decimal.Zero, TotalDebits: decimal.Zero}
	for _, e := range entries {
		switch {
		case e.Payout.IsPositive():
			sum.TotalCredits = sum.TotalCredits.Add(e.Payout)
			sum.CreditCount++
		case e.Payout.IsNegative():
			sum.TotalDebits = sum.TotalDebits.Add(e.Payout.Abs())
			sum.DebitCount++
		}
	}
	return sum
}
