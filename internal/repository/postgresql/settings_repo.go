package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"payeveryone/internal/domain"
	"payeveryone/internal/port"
)

const (
	pricesRow      = "prices"
	usdtDepositRow = "usdtDeposit"
	qrCodeRow      = "qrCode"
)

type settingsRepository struct {
	db *sql.DB
}

func NewSettingsRepository(db *sql.DB) port.SettingsRepository {
	return &settingsRepository{db: db}
}

func (r *settingsRepository) GetMarketPrice(ctx context.Context) (*domain.MarketPrice, error) {
	query := `SELECT market_price, our_price, live_rates, updated_at FROM market_data WHERE id = $1` + lockClause(ctx)

	var (
		m     domain.MarketPrice
		rates []byte
	)
	err := conn(ctx, r.db).QueryRowContext(ctx, query, pricesRow).Scan(&m.MarketPrice, &m.OurPrice, &rates, &m.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return &domain.MarketPrice{}, nil
	}
	if err != nil {
		return nil, err
	}
	if len(rates) > 0 {
		if err := json.Unmarshal(rates, &m.LiveRates); err != nil {
			return nil, err
		}
	}
	return &m, nil
}

func (r *settingsRepository) SaveMarketPrice(ctx context.Context, m *domain.MarketPrice) error {
	const query = `INSERT INTO market_data (id, market_price, our_price, live_rates, updated_at)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (id) DO UPDATE SET market_price = EXCLUDED.market_price, our_price = EXCLUDED.our_price,
		live_rates = EXCLUDED.live_rates, updated_at = EXCLUDED.updated_at`

	rates := m.LiveRates
	if rates == nil {
		rates = []domain.LiveRate{}
	}
	raw, err := json.Marshal(rates)
	if err != nil {
		return err
	}

	_, err = conn(ctx, r.db).ExecContext(ctx, query, pricesRow, m.MarketPrice, m.OurPrice, string(raw), time.Now())
	return err
}

func (r *settingsRepository) getPaymentMethod(ctx context.Context, id string) (address, qrURL string, updated time.Time, err error) {
	const query = `SELECT wallet_address, qr_code_url, updated_at FROM payment_methods WHERE id = $1`

	err = conn(ctx, r.db).QueryRowContext(ctx, query, id).Scan(&address, &qrURL, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", time.Time{}, nil
	}
	return address, qrURL, updated, err
}

func (r *settingsRepository) savePaymentMethod(ctx context.Context, id, address, qrURL string) error {
	const query = `INSERT INTO payment_methods (id, wallet_address, qr_code_url, updated_at)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (id) DO UPDATE SET wallet_address = EXCLUDED.wallet_address,
		qr_code_url = EXCLUDED.qr_code_url, updated_at = EXCLUDED.updated_at`

	_, err := conn(ctx, r.db).ExecContext(ctx, query, id, address, qrURL, time.Now())
	return err
}

func (r *settingsRepository) GetDepositAddress(ctx context.Context) (*domain.DepositAddress, error) {
	address, qr, updated, err := r.getPaymentMethod(ctx, usdtDepositRow)
	if err != nil {
		return nil, err
	}
	return &domain.DepositAddress{WalletAddress: address, QRCodeURL: qr, UpdatedAt: updated}, nil
}

func (r *settingsRepository) SaveDepositAddress(ctx context.Context, d *domain.DepositAddress) error {
	return r.savePaymentMethod(ctx, usdtDepositRow, d.WalletAddress, d.QRCodeURL)
}

func (r *settingsRepository) GetUPIQRCode(ctx context.Context) (*domain.UPIQRCode, error) {
	_, qr, updated, err := r.getPaymentMethod(ctx, qrCodeRow)
	if err != nil {
		return nil, err
	}
	return &domain.UPIQRCode{QRCodeURL: qr, UpdatedAt: updated}, nil
}

func (r *settingsRepository) SaveUPIQRCode(ctx context.Context, q *domain.UPIQRCode) error {
	return r.savePaymentMethod(ctx, qrCodeRow, "", q.QRCodeURL)
}
