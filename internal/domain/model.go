package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusApproved RequestStatus = "approved"
	StatusRejected RequestStatus = "rejected"
	StatusFailed   RequestStatus = "failed"
)

func (s RequestStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed.
func (s RequestStatus) Terminal() bool {
	return s != StatusPending
}

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// BalanceField names the spendable pool a ledger effect targets.
type BalanceField string

const (
	FieldBalance      BalanceField = "balance"
	FieldWinningMoney BalanceField = "winningMoney"
)

type User struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Email           string          `json:"email"`
	PasswordHash    string          `json:"-"`
	Role            Role            `json:"role"`
	Balance         decimal.Decimal `json:"balance"`
	WinningMoney    decimal.Decimal `json:"winningMoney"`
	WithdrawPINHash string          `json:"-"`
	Payout          *PaymentMethod  `json:"payout,omitempty"`
	ReferralCode    string          `json:"referralCode"`
	ReferredBy      string          `json:"referredBy,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

func (u *User) Funds(field BalanceField) decimal.Decimal {
	if field == FieldWinningMoney {
		return u.WinningMoney
	}
	return u.Balance
}

func (u *User) SetFunds(field BalanceField, v decimal.Decimal) {
	if field == FieldWinningMoney {
		u.WinningMoney = v
		return
	}
	u.Balance = v
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

type DepositRequest struct {
	ID            string          `json:"id"`
	UserID        string          `json:"userId"`
	Amount        decimal.Decimal `json:"amount"`
	TransactionID string          `json:"transactionId"`
	Status        RequestStatus   `json:"status"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

type WithdrawalReq struct {
	UserID         string          `json:"-" validate:"required"`
	Amount         decimal.Decimal `json:"amount"`
	Address        string          `json:"address" validate:"required,max=128"`
	PIN            string          `json:"pin" validate:"required,len=4,numeric"`
	IdempotencyKey string          `json:"idempotencyKey" validate:"required,max=128"`
}

type Withdrawal struct {
	ID             string          `json:"id"`
	UserID         string          `json:"userId"`
	Amount         decimal.Decimal `json:"amount"`
	Address        string          `json:"address"`
	IdempotencyKey string          `json:"idempotencyKey"`
	Status         RequestStatus   `json:"status"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

type ExchangeRequest struct {
	ID            string          `json:"id"`
	UserID        string          `json:"userId"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod PaymentMethod   `json:"paymentMethod"`
	Status        RequestStatus   `json:"status"`
	Rate          decimal.Decimal `json:"rate"`
	SettledAmount decimal.Decimal `json:"settledAmount"`
	Error         string          `json:"error,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

type TransactionType string

const (
	TxAdminCredit   TransactionType = "admin_credit"
	TxReferralBonus TransactionType = "referral_bonus"
)

// LedgerTransaction is an append-only audit record of a direct credit.
type LedgerTransaction struct {
	ID          string          `json:"id"`
	UserID      string          `json:"userId"`
	Type        TransactionType `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Status      RequestStatus   `json:"status"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"createdAt"`
}

type BetStatus string

const (
	BetPending BetStatus = "pending"
	BetWin     BetStatus = "win"
	BetLoss    BetStatus = "loss"
)

type Bet struct {
	ID        string          `json:"id"`
	UserID    string          `json:"userId"`
	Game      string          `json:"game"`
	Selection string          `json:"selection"`
	Amount    decimal.Decimal `json:"amount"`
	Winnings  decimal.Decimal `json:"winnings"`
	Status    BetStatus       `json:"status"`
	CreatedAt time.Time       `json:"createdAt"`
}

type LiveRate struct {
	Name   string          `json:"name" validate:"required"`
	Price  decimal.Decimal `json:"price"`
	Change string          `json:"change"`
}

type MarketPrice struct {
	MarketPrice decimal.Decimal `json:"marketPrice"`
	OurPrice    decimal.Decimal `json:"ourPrice"`
	LiveRates   []LiveRate      `json:"liveRates"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

func (m *MarketPrice) Clone() *MarketPrice {
	c := *m
	c.LiveRates = append([]LiveRate(nil), m.LiveRates...)
	return &c
}

type DepositAddress struct {
	WalletAddress string    `json:"walletAddress"`
	QRCodeURL     string    `json:"qrCodeUrl"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type UPIQRCode struct {
	QRCodeURL string    `json:"qrCodeUrl"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Dashboard struct {
	TotalUsers         int `json:"totalUsers"`
	UsersJoinedToday   int `json:"usersJoinedToday"`
	PendingDeposits    int `json:"pendingDeposits"`
	PendingWithdrawals int `json:"pendingWithdrawals"`
	PendingExchanges   int `json:"pendingExchanges"`
}
