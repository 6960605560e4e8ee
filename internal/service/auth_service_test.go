package service

import (
	"context"
	"testing"
	"time"

	"payeveryone/internal/auth"
	"payeveryone/internal/domain"
	"payeveryone/internal/port"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newAuthService(env *testEnv, admins ...string) *authService {
	svc := NewAuthService(env.repos, auth.NewTokens("test-secret", time.Hour, "payeveryone"),
		auth.NewMemoryRevoker(), env.cfg, admins, env.hub, zap.NewNop())
	return svc.(*authService)
}

func signUp(t *testing.T, svc port.AuthService, email, referral string) *domain.User {
	t.Helper()
	u, err := svc.SignUp(context.Background(), &domain.SignUpReq{
		Name: "Alice", Email: email, Password: "secret1", ReferralCode: referral,
	})
	require.NoError(t, err)
	return u
}

func TestSignUp_ReferralBonus(t *testing.T) {
	env := newTestEnv(t)
	svc := newAuthService(env)
	ctx := context.Background()

	referrer := signUp(t, svc, "ref@example.com", "")
	assert.Len(t, referrer.ReferralCode, 6)
	assert.True(t, referrer.Balance.IsZero())

	invited := signUp(t, svc, "new@example.com", referrer.ReferralCode)
	assert.Equal(t, referrer.ID, invited.ReferredBy)
	assert.True(t, invited.Balance.Equal(decimal.NewFromInt(50)))

	txs, err := env.repos.Transactions.ListByUser(ctx, invited.ID)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, domain.TxReferralBonus, txs[0].Type)

	stored, err := env.repos.Users.GetByEmail(ctx, "NEW@example.com")
	require.NoError(t, err)
	assert.True(t, stored.Balance.Equal(decimal.NewFromInt(50)))
}

func TestSignUp_UnknownReferralIgnored(t *testing.T) {
	env := newTestEnv(t)
	svc := newAuthService(env)

	u := signUp(t, svc, "a@example.com", "ZZZZZZ")
	assert.Empty(t, u.ReferredBy)
	assert.True(t, u.Balance.IsZero())
}

func TestSignUp_DuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	svc := newAuthService(env)
	signUp(t, svc, "a@example.com", "")

	_, err := svc.SignUp(context.Background(), &domain.SignUpReq{Name: "Bob", Email: "A@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, domain.ErrEmailTaken)
}

func TestSignUp_ReferralCodeCollisionRetries(t *testing.T) {
	env := newTestEnv(t)
	svc := newAuthService(env)

	codes := []string{"AAAAAA", "AAAAAA", "BBBBBB"}
	svc.codes = func() (string, error) {
		c := codes[0]
		codes = codes[1:]
		return c, nil
	}

	first := signUp(t, svc, "one@example.com", "")
	second := signUp(t, svc, "two@example.com", "")

	assert.Equal(t, "AAAAAA", first.ReferralCode)
	assert.Equal(t, "BBBBBB", second.ReferralCode)
}

func TestSignUp_ReferralCodeExhausted(t *testing.T) {
	env := newTestEnv(t)
	svc := newAuthService(env)
	svc.codes = func() (string, error) { return "AAAAAA", nil }

	signUp(t, svc, "one@example.com", "")
	_, err := svc.SignUp(context.Background(), &domain.SignUpReq{Name: "Two", Email: "two@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, domain.ErrStoreFailure)
}

func TestSignUp_AdminEmail(t *testing.T) {
	env := newTestEnv(t)
	svc := newAuthService(env, "Boss@Example.com")

	u := signUp(t, svc, "boss@example.com", "")
	assert.Equal(t, domain.RoleAdmin, u.Role)
}

func TestSignInSignOut(t *testing.T) {
	env := newTestEnv(t)
	svc := newAuthService(env)
	ctx := context.Background()
	u := signUp(t, svc, "a@example.com", "")

	_, err := svc.SignIn(ctx, &domain.SignInReq{Email: "a@example.com", Password: "wrong-pass"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, err = svc.SignIn(ctx, &domain.SignInReq{Email: "nobody@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	token, err := svc.SignIn(ctx, &domain.SignInReq{Email: "a@example.com", Password: "secret1"})
	require.NoError(t, err)

	session, err := svc.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, session.UserID)
	assert.Equal(t, domain.RoleUser, session.Role)

	require.NoError(t, svc.SignOut(ctx, token))
	_, err = svc.Authenticate(ctx, token)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestAuthenticate_Garbage(t *testing.T) {
	env := newTestEnv(t)
	svc := newAuthService(env)

	_, err := svc.Authenticate(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}
