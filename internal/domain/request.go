package domain

import (
	"io"

	"github.com/shopspring/decimal"
)

type SignUpReq struct {
	Name         string `json:"name" validate:"required,max=100"`
	Email        string `json:"email" validate:"required,email"`
	Password     string `json:"password" validate:"required,min=6,max=72"`
	ReferralCode string `json:"referralCode" validate:"omitempty,len=6,alphanum"`
}

type SignInReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type DepositReq struct {
	UserID        string          `json:"-" validate:"required"`
	Amount        decimal.Decimal `json:"amount"`
	TransactionID string          `json:"transactionId" validate:"required,max=256"`
}

type ExchangeReq struct {
	UserID        string          `json:"-" validate:"required"`
	Amount        decimal.Decimal `json:"amount"`
	PIN           string          `json:"pin" validate:"required,len=4,numeric"`
	PaymentMethod *PaymentMethod  `json:"paymentMethod"`
}

type SetPINReq struct {
	PIN     string `json:"pin" validate:"required,len=4,numeric"`
	Confirm string `json:"confirm" validate:"required"`
}

type CreditReq struct {
	UserID string          `json:"-" validate:"required"`
	Amount decimal.Decimal `json:"amount"`
}

type PriceUpdate struct {
	MarketPrice decimal.Decimal `json:"marketPrice"`
	OurPrice    decimal.Decimal `json:"ourPrice"`
	LiveRates   []LiveRate      `json:"liveRates" validate:"dive"`
}

// Upload is a file handed to the blob store.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

type Session struct {
	UserID  string
	Role    Role
	TokenID string
}

func (s Session) IsAdmin() bool {
	return s.Role == RoleAdmin
}
