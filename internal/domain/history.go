package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type HistoryType string

const (
	HistoryDeposit       HistoryType = "Deposit"
	HistoryWithdrawal    HistoryType = "Withdrawal"
	HistoryExchange      HistoryType = "Exchange"
	HistoryAdminCredit   HistoryType = "Admin Credit"
	HistoryReferralBonus HistoryType = "Referral Bonus"
	HistoryBet           HistoryType = "Bet"
)

// HistoryEntry is one row of the merged per-user feed. Payout is signed:
// positive credits the user, negative debits them, zero had no effect.
type HistoryEntry struct {
	ID     string          `json:"id"`
	Date   time.Time       `json:"date"`
	Type   HistoryType     `json:"type"`
	Detail string          `json:"detail,omitempty"`
	Amount decimal.Decimal `json:"amount"`
	Status string          `json:"status"`
	Payout decimal.Decimal `json:"payout"`
}

type HistorySummary struct {
	TotalCredits decimal.Decimal `json:"totalCredits"`
	TotalDebits  decimal.Decimal `json:"totalDebits"`
	CreditCount  int             `json:"creditCount"`
	DebitCount   int             `json:"debitCount"`
}
