package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"payeveryone/internal/auth"
	"payeveryone/internal/domain"
	"payeveryone/internal/port"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	referralAlphabet     = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	referralCodeLength   = 6
	referralCodeAttempts = 5
)

type authService struct {
	repos       port.Repositories
	tokens      *auth.Tokens
	revoker     port.SessionRevoker
	cfg         LedgerConfig
	adminEmails map[string]bool
	codes       func() (string, error)
	notifier
}

func NewAuthService(repos port.Repositories, tokens *auth.Tokens, revoker port.SessionRevoker, cfg LedgerConfig,
	adminEmails []string, bus port.EventBus, log *zap.Logger) port.AuthService {
	admins := make(map[string]bool, len(adminEmails))
	for _, e := range adminEmails {
		admins[strings.ToLower(strings.TrimSpace(e))] = true
	}
	return &authService{
		repos:       repos,
		tokens:      tokens,
		revoker:     revoker,
		cfg:         cfg,
		adminEmails: admins,
		codes:       newReferralCode,
		notifier:    notifier{bus: bus, log: log.Named("auth")},
	}
}

func newReferralCode() (string, error) {
	var b strings.Builder
	limit := big.NewInt(int64(len(referralAlphabet)))
	for i := 0; i < referralCodeLength; i++ {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		b.WriteByte(referralAlphabet[n.Int64()])
	}
	return b.String(), nil
}

func (s *authService) SignUp(ctx context.Context, req *domain.SignUpReq) (*domain.User, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	role := domain.RoleUser
	if s.adminEmails[email] {
		role = domain.RoleAdmin
	}

	var user *domain.User
	err = s.repos.Tx.WithinTx(ctx, func(ctx context.Context) error {
		code, err := s.allocateReferralCode(ctx)
		if err != nil {
			return err
		}

		now := time.Now()
		user = &domain.User{
			ID:           uuid.NewString(),
			Name:         strings.TrimSpace(req.Name),
			Email:        email,
			PasswordHash: string(hash),
			Role:         role,
			ReferralCode: code,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		// An unknown referral code is ignored
		if req.ReferralCode != "" {
			referrer, err := s.repos.Users.GetByReferralCode(ctx, strings.ToUpper(req.ReferralCode))
			switch {
			case err == nil:
				user.ReferredBy = referrer.ID
				user.Balance = s.cfg.ReferralBonus
			case !errors.Is(err, domain.ErrUserNotFound):
				return err
			}
		}

		if err := s.repos.Users.Create(ctx, user); err != nil {
			return err
		}

		if user.ReferredBy == "" || !user.Balance.IsPositive() {
			return nil
		}
		return s.repos.Transactions.Create(ctx, &domain.LedgerTransaction{
			ID:          uuid.NewString(),
			UserID:      user.ID,
			Type:        domain.TxReferralBonus,
			Amount:      user.Balance,
			Status:      domain.StatusApproved,
			Description: "Referral signup bonus",
			CreatedAt:   now,
		})
	})
	if err != nil {
		s.log.Info("sign up failed", zap.String("email", email), zap.Error(err))
		return nil, err
	}

	s.log.Info("user signed up", zap.String("user_id", user.ID), zap.String("role", string(user.Role)),
		zap.Bool("referred", user.ReferredBy != ""))
	return user, nil
}

// allocateReferralCode draws codes until one is unused. The unique index in
// the store still guards the final insert.
func (s *authService) allocateReferralCode(ctx context.Context) (string, error) {
	for i := 0; i < referralCodeAttempts; i++ {
		code, err := s.codes()
		if err != nil {
			return "", err
		}
		_, err = s.repos.Users.GetByReferralCode(ctx, code)
		if errors.Is(err, domain.ErrUserNotFound) {
			return code, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("%w: no free referral code after %d attempts", domain.ErrStoreFailure, referralCodeAttempts)
}

func (s *authService) SignIn(ctx context.Context, req *domain.SignInReq) (string, error) {
	if err := validateStruct(req); err != nil {
		return "", err
	}

	user, err := s.repos.Users.GetByEmail(ctx, req.Email)
	if errors.Is(err, domain.ErrUserNotFound) {
		return "", domain.ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return "", domain.ErrInvalidCredentials
	}

	token, claims, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return "", err
	}

	s.log.Info("signed in", zap.String("user_id", user.ID), zap.String("jti", claims.ID))
	s.notify(ctx, domain.NewEvent(domain.TopicAuth, domain.EventSessionSignedIn, map[string]string{"userId": user.ID}))
	return token, nil
}

func (s *authService) SignOut(ctx context.Context, token string) error {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return err
	}
	if err := s.revoker.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return err
	}

	s.log.Info("signed out", zap.String("user_id", claims.Subject), zap.String("jti", claims.ID))
	s.notify(ctx, domain.NewEvent(domain.TopicAuth, domain.EventSessionSignedOut, map[string]string{"userId": claims.Subject}))
	return nil
}

func (s *authService) Authenticate(ctx context.Context, token string) (domain.Session, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return domain.Session{}, err
	}

	revoked, err := s.revoker.IsRevoked(ctx, claims.ID)
	if err != nil {
		return domain.Session{}, err
	}
	if revoked {
		return domain.Session{}, fmt.Errorf("%w: session signed out", domain.ErrUnauthorized)
	}

	return domain.Session{UserID: claims.Subject, Role: claims.Role, TokenID: claims.ID}, nil
}
