package repository

import (
	"context"
	"errors"
	"testing"

	"payeveryone/internal/domain"

	"github.com/stretchr/testify/assert"
)

func isConflict(err error) bool { return errors.Is(err, ErrConflict) }

func TestWithRetry_SucceedsAfterConflicts(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), 5, isConflict, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return ErrConflict
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithRetry_StopsOnDomainError(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), 5, isConflict, func(ctx context.Context) error {
		calls++
		return domain.ErrAlreadyProcessed
	})

	assert.ErrorIs(t, err, domain.ErrAlreadyProcessed)
	assert.Equal(t, 1, calls)
}

func TestWithRetry_Exhausted(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), 4, isConflict, func(ctx context.Context) error {
		calls++
		return ErrConflict
	})

	assert.ErrorIs(t, err, domain.ErrTxConflict)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, domain.KindStoreFailure, domain.Kind(err))
	assert.Equal(t, 4, calls)
}

func TestWithRetry_AtLeastOnce(t *testing.T) {
	calls := 0
	_ = WithRetry(context.Background(), 0, isConflict, func(ctx context.Context) error {
		calls++
		return nil
	})
	assert.Equal(t, 1, calls)
}

func TestWithRetry_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WithRetry(ctx, 3, isConflict, func(ctx context.Context) error {
		t.Fatal("body must not run")
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}
