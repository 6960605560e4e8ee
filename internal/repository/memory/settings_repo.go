package memory

import (
	"context"
	"time"

	"payeveryone/internal/domain"
	"payeveryone/internal/port"
)

const (
	marketDataColl     = "marketData"
	paymentMethodsColl = "paymentMethods"

	pricesDoc      = "prices"
	usdtDepositDoc = "usdtDeposit"
	qrCodeDoc      = "qrCode"
)

type settingsRepository struct {
	s *Store
}

func NewSettingsRepository(s *Store) port.SettingsRepository {
	return &settingsRepository{s: s}
}

func (r *settingsRepository) GetMarketPrice(ctx context.Context) (*domain.MarketPrice, error) {
	m, ok := load[domain.MarketPrice](ctx, r.s, marketDataColl, pricesDoc)
	if !ok {
		return &domain.MarketPrice{}, nil
	}
	return m.Clone(), nil
}

func (r *settingsRepository) SaveMarketPrice(ctx context.Context, m *domain.MarketPrice) error {
	c := m.Clone()
	c.UpdatedAt = time.Now()
	save(ctx, r.s, marketDataColl, pricesDoc, *c)
	return nil
}

func (r *settingsRepository) GetDepositAddress(ctx context.Context) (*domain.DepositAddress, error) {
	d, _ := load[domain.DepositAddress](ctx, r.s, paymentMethodsColl, usdtDepositDoc)
	return &d, nil
}

func (r *settingsRepository) SaveDepositAddress(ctx context.Context, d *domain.DepositAddress) error {
	c := *d
	c.UpdatedAt = time.Now()
	save(ctx, r.s, paymentMethodsColl, usdtDepositDoc, c)
	return nil
}

func (r *settingsRepository) GetUPIQRCode(ctx context.Context) (*domain.UPIQRCode, error) {
	q, _ := load[domain.UPIQRCode](ctx, r.s, paymentMethodsColl, qrCodeDoc)
	return &q, nil
}

func (r *settingsRepository) SaveUPIQRCode(ctx context.Context, q *domain.UPIQRCode) error {
	c := *q
	c.UpdatedAt = time.Now()
	save(ctx, r.s, paymentMethodsColl, qrCodeDoc, c)
	return nil
}
