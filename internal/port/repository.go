package port

import (
	"context"
	"io"
	"time"

	"payeveryone/internal/domain"

	"github.com/shopspring/decimal"
)

// TxManager runs fn atomically. The transaction travels in the context handed to
// fn, and fn may be executed more than once, so it must only touch the store
// through repositories.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type UserRepository interface {
	Create(ctx context.Context, u *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByReferralCode(ctx context.Context, code string) (*domain.User, error)
	// List returns users ordered by name.
	List(ctx context.Context) ([]*domain.User, error)
	UpdateFunds(ctx context.Context, id string, field domain.BalanceField, amount decimal.Decimal) error
	UpdateWithdrawPIN(ctx context.Context, id string, hash string) error
	UpdatePayout(ctx context.Context, id string, m *domain.PaymentMethod) error
}

// Request repositories list a user's requests newest first and a status queue
// oldest first. An empty status lists every request.
type DepositRepository interface {
	Create(ctx context.Context, d *domain.DepositRequest) error
	GetByID(ctx context.Context, id string) (*domain.DepositRequest, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.DepositRequest, error)
	ListByStatus(ctx context.Context, status domain.RequestStatus) ([]*domain.DepositRequest, error)
	UpdateStatus(ctx context.Context, id string, status domain.RequestStatus) error
}

type WithdrawalRepository interface {
	Create(ctx context.Context, w *domain.Withdrawal) error
	GetByID(ctx context.Context, id string) (*domain.Withdrawal, error)
	GetByIdempotencyKey(ctx context.Context, userID, key string) (*domain.Withdrawal, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.Withdrawal, error)
	ListByStatus(ctx context.Context, status domain.RequestStatus) ([]*domain.Withdrawal, error)
	UpdateStatus(ctx context.Context, id string, status domain.RequestStatus) error
}

type ExchangeRepository interface {
	Create(ctx context.Context, e *domain.ExchangeRequest) error
	GetByID(ctx context.Context, id string) (*domain.ExchangeRequest, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.ExchangeRequest, error)
	ListByStatus(ctx context.Context, status domain.RequestStatus) ([]*domain.ExchangeRequest, error)
	// Settle writes status, rate, settled amount and error in one update.
	Settle(ctx context.Context, e *domain.ExchangeRequest) error
}

type TransactionRepository interface {
	Create(ctx context.Context, t *domain.LedgerTransaction) error
	ListByUser(ctx context.Context, userID string) ([]*domain.LedgerTransaction, error)
}

type BetRepository interface {
	Create(ctx context.Context, b *domain.Bet) error
	ListByUser(ctx context.Context, userID string) ([]*domain.Bet, error)
	List(ctx context.Context) ([]*domain.Bet, error)
}

// SettingsRepository holds the config singletons. Getters return a zero value
// when nothing has been saved yet.
type SettingsRepository interface {
	GetMarketPrice(ctx context.Context) (*domain.MarketPrice, error)
	SaveMarketPrice(ctx context.Context, m *domain.MarketPrice) error
	GetDepositAddress(ctx context.Context) (*domain.DepositAddress, error)
	SaveDepositAddress(ctx context.Context, d *domain.DepositAddress) error
	GetUPIQRCode(ctx context.Context) (*domain.UPIQRCode, error)
	SaveUPIQRCode(ctx context.Context, q *domain.UPIQRCode) error
}

// EventBus delivers change notifications. The cancel func returned by Subscribe
// unregisters the subscription and is safe to call more than once.
type EventBus interface {
	Publish(ctx context.Context, ev domain.Event) error
	Subscribe(ctx context.Context, topics ...string) (<-chan domain.Event, func(), error)
}

// BlobStore stores binary objects and returns their public URL.
type BlobStore interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader, size int64, progress func(written int64)) (string, error)
}

type SessionRevoker interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// Repositories bundles one backend's transaction manager and collections.
type Repositories struct {
	Tx           TxManager
	Users        UserRepository
	Deposits     DepositRepository
	Withdrawals  WithdrawalRepository
	Exchanges    ExchangeRepository
	Transactions TransactionRepository
	Bets         BetRepository
	Settings     SettingsRepository
}
