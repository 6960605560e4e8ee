package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"payeveryone/internal/blob"
	"payeveryone/internal/domain"
	"payeveryone/internal/port"

	"go.uber.org/zap"
)

const (
	depositQRPrefix = "usdtdeposit"
	upiQRPrefix     = "qrcodes"
)

type marketService struct {
	settings port.SettingsRepository
	blobs    port.BlobStore
	now      func() time.Time
	notifier
}

func NewMarketService(repos port.Repositories, blobs port.BlobStore, bus port.EventBus, log *zap.Logger) port.MarketService {
	return &marketService{
		settings: repos.Settings,
		blobs:    blobs,
		now:      time.Now,
		notifier: notifier{bus: bus, log: log.Named("market")},
	}
}

func (s *marketService) Prices(ctx context.Context) (*domain.MarketPrice, error) {
	return s.settings.GetMarketPrice(ctx)
}

func (s *marketService) UpdatePrices(ctx context.Context, upd *domain.PriceUpdate) (*domain.MarketPrice, error) {
	if err := validateStruct(upd); err != nil {
		return nil, err
	}
	if upd.MarketPrice.IsNegative() || upd.OurPrice.IsNegative() {
		return nil, fmt.Errorf("%w: prices must not be negative", domain.ErrInvalidInput)
	}

	price := &domain.MarketPrice{
		MarketPrice: upd.MarketPrice,
		OurPrice:    upd.OurPrice,
		LiveRates:   append([]domain.LiveRate(nil), upd.LiveRates...),
		UpdatedAt:   s.now(),
	}
	if err := s.settings.SaveMarketPrice(ctx, price); err != nil {
		return nil, err
	}

	s.log.Info("prices updated", zap.Stringer("market_price", price.MarketPrice), zap.Stringer("our_price", price.OurPrice),
		zap.Int("live_rates", len(price.LiveRates)))
	s.notify(ctx, domain.NewEvent(domain.TopicMarket, domain.EventMarketUpdated, price))
	return price, nil
}

func (s *marketService) DepositAddress(ctx context.Context) (*domain.DepositAddress, error) {
	return s.settings.GetDepositAddress(ctx)
}

// UpdateDepositAddress stores a new wallet address. The QR image is replaced
// only when a new one is uploaded.
func (s *marketService) UpdateDepositAddress(ctx context.Context, address string, qr *domain.Upload) (*domain.DepositAddress, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, fmt.Errorf("%w: wallet address is required", domain.ErrInvalidInput)
	}

	current, err := s.settings.GetDepositAddress(ctx)
	if err != nil {
		return nil, err
	}

	next := &domain.DepositAddress{WalletAddress: address, QRCodeURL: current.QRCodeURL, UpdatedAt: s.now()}
	if qr != nil {
		if next.QRCodeURL, err = s.upload(ctx, depositQRPrefix, qr); err != nil {
			return nil, err
		}
	}
	if err := s.settings.SaveDepositAddress(ctx, next); err != nil {
		return nil, err
	}

	s.notify(ctx, domain.NewEvent(domain.TopicMarket, domain.EventPaymentMethodUpdated, next))
	return next, nil
}

func (s *marketService) UPIQRCode(ctx context.Context) (*domain.UPIQRCode, error) {
	return s.settings.GetUPIQRCode(ctx)
}

func (s *marketService) UpdateUPIQRCode(ctx context.Context, qr *domain.Upload) (*domain.UPIQRCode, error) {
	if qr == nil {
		return nil, fmt.Errorf("%w: QR code image is required", domain.ErrInvalidInput)
	}

	url, err := s.upload(ctx, upiQRPrefix, qr)
	if err != nil {
		return nil, err
	}

	next := &domain.UPIQRCode{QRCodeURL: url, UpdatedAt: s.now()}
	if err := s.settings.SaveUPIQRCode(ctx, next); err != nil {
		return nil, err
	}

	s.notify(ctx, domain.NewEvent(domain.TopicMarket, domain.EventPaymentMethodUpdated, next))
	return next, nil
}

func (s *marketService) upload(ctx context.Context, prefix string, u *domain.Upload) (string, error) {
	if u.Body == nil || strings.TrimSpace(u.Filename) == "" {
		return "", fmt.Errorf("%w: empty upload", domain.ErrInvalidInput)
	}
	if !strings.HasPrefix(u.ContentType, "image/") {
		return "", fmt.Errorf("%w: %q is not an image", domain.ErrInvalidInput, u.ContentType)
	}

	key := blob.Key(prefix, u.Filename, s.now())
	log := s.log.With(zap.String("key", key))
	url, err := s.blobs.Upload(ctx, key, u.ContentType, u.Body, u.Size, func(written int64) {
		log.Debug("upload progress", zap.Int64("written", written), zap.Int64("size", u.Size))
	})
	if err != nil {
		log.Error("upload failed", zap.Error(err))
		return "", err
	}

	log.Info("uploaded", zap.String("url", url))
	return url, nil
}
