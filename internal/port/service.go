package port

import (
	"context"

	"payeveryone/internal/domain"
)

type WithdrawalService interface {
	CreateWithdrawal(ctx context.Context, req *domain.WithdrawalReq) (*domain.Withdrawal, error)
	GetWithdrawal(ctx context.Context, id string) (*domain.Withdrawal, error)
	ListForUser(ctx context.Context, userID string) ([]*domain.Withdrawal, error)
	ListByStatus(ctx context.Context, status domain.RequestStatus) ([]*domain.Withdrawal, error)
	Approve(ctx context.Context, id string) error
	Reject(ctx context.Context, id string) error
}

type DepositService interface {
	CreateDeposit(ctx context.Context, req *domain.DepositReq) (*domain.DepositRequest, error)
	ListForUser(ctx context.Context, userID string) ([]*domain.DepositRequest, error)
	ListByStatus(ctx context.Context, status domain.RequestStatus) ([]*domain.DepositRequest, error)
	Approve(ctx context.Context, id string) error
	Reject(ctx context.Context, id string) error
}

type ExchangeService interface {
	CreateExchange(ctx context.Context, req *domain.ExchangeReq) (*domain.ExchangeRequest, error)
	ListForUser(ctx context.Context, userID string) ([]*domain.ExchangeRequest, error)
	ListByStatus(ctx context.Context, status domain.RequestStatus) ([]*domain.ExchangeRequest, error)
	Approve(ctx context.Context, id string) (*domain.ExchangeRequest, error)
	Reject(ctx context.Context, id string) error
	Fail(ctx context.Context, id string, reason string) error
}

type AuthService interface {
	SignUp(ctx context.Context, req *domain.SignUpReq) (*domain.User, error)
	SignIn(ctx context.Context, req *domain.SignInReq) (string, error)
	SignOut(ctx context.Context, token string) error
	Authenticate(ctx context.Context, token string) (domain.Session, error)
}

type UserService interface {
	Get(ctx context.Context, id string) (*domain.User, error)
	List(ctx context.Context) ([]*domain.User, error)
	SetWithdrawPIN(ctx context.Context, userID string, req *domain.SetPINReq) error
	SetPayout(ctx context.Context, userID string, m domain.PaymentMethod) error
	CreditUser(ctx context.Context, req *domain.CreditReq) (*domain.LedgerTransaction, error)
	Dashboard(ctx context.Context) (*domain.Dashboard, error)
}

type MarketService interface {
	Prices(ctx context.Context) (*domain.MarketPrice, error)
	UpdatePrices(ctx context.Context, upd *domain.PriceUpdate) (*domain.MarketPrice, error)
	DepositAddress(ctx context.Context) (*domain.DepositAddress, error)
	UpdateDepositAddress(ctx context.Context, address string, qr *domain.Upload) (*domain.DepositAddress, error)
	UPIQRCode(ctx context.Context) (*domain.UPIQRCode, error)
	UpdateUPIQRCode(ctx context.Context, qr *domain.Upload) (*domain.UPIQRCode, error)
}

type HistoryService interface {
	ForUser(ctx context.Context, userID string) ([]domain.HistoryEntry, error)
	Bets(ctx context.Context) ([]*domain.Bet, error)
}
