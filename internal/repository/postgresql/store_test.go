package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"payeveryone/internal/domain"
	"payeveryone/internal/repository/migration"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"serialization failure", &pq.Error{Code: "40001"}, true},
		{"deadlock", fmt.Errorf("commit: %w", &pq.Error{Code: "40P01"}), true},
		{"unique violation", &pq.Error{Code: "23505"}, false},
		{"plain error", errors.New("boom"), false},
		{"domain error", domain.ErrInsufficientBalance, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isRetryable(tt.err))
		})
	}
}

func TestUniqueViolation(t *testing.T) {
	constraint, ok := uniqueViolation(&pq.Error{Code: "23505", Constraint: "users_email_key"})
	assert.True(t, ok)
	assert.Equal(t, "users_email_key", constraint)

	_, ok = uniqueViolation(&pq.Error{Code: "40001"})
	assert.False(t, ok)

	_, ok = uniqueViolation(nil)
	assert.False(t, ok)
}

func TestLockClause(t *testing.T) {
	assert.Empty(t, lockClause(context.Background()))

	ctx := context.WithValue(context.Background(), trKey, &sql.Tx{})
	assert.Equal(t, " FOR UPDATE", lockClause(ctx))
}

// openTestDB connects to DATABASE_URL and applies the schema.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}

	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, migration.RunMigrations(context.Background(), db, zap.NewNop()))
	return db
}

func TestPostgres_WithdrawalReservation(t *testing.T) {
	db := openTestDB(t)
	repos := NewRepositories(db, 10)
	ctx := context.Background()
	now := time.Now()

	u := &domain.User{
		ID: uuid.NewString(), Name: "pg", Email: uuid.NewString() + "@example.com",
		Role: domain.RoleUser, Balance: decimal.NewFromInt(100),
		ReferralCode: uuid.NewString()[:8], CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, repos.Users.Create(ctx, u))

	key := uuid.NewString()
	err := repos.Tx.WithinTx(ctx, func(ctx context.Context) error {
		locked, err := repos.Users.GetByID(ctx, u.ID)
		if err != nil {
			return err
		}
		if err := repos.Users.UpdateFunds(ctx, u.ID, domain.FieldBalance, locked.Balance.Sub(decimal.NewFromInt(40))); err != nil {
			return err
		}
		return repos.Withdrawals.Create(ctx, &domain.Withdrawal{
			ID: uuid.NewString(), UserID: u.ID, IdempotencyKey: key,
			Amount: decimal.NewFromInt(40), Status: domain.StatusPending, CreatedAt: now, UpdatedAt: now,
		})
	})
	require.NoError(t, err)

	got, err := repos.Users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(60)))

	w, err := repos.Withdrawals.GetByIdempotencyKey(ctx, u.ID, key)
	require.NoError(t, err)
	require.NotNil(t, w)
	assert.Equal(t, domain.StatusPending, w.Status)

	err = repos.Withdrawals.Create(ctx, &domain.Withdrawal{
		ID: uuid.NewString(), UserID: u.ID, IdempotencyKey: key,
		Amount: decimal.NewFromInt(1), Status: domain.StatusPending, CreatedAt: now, UpdatedAt: now,
	})
	assert.ErrorIs(t, err, domain.ErrDuplicateRequest)
}
