package repository

import (
	"context"
	"errors"

	"payeveryone/internal/domain"
)

// ErrConflict signals that a transaction body observed stale data and should be
// executed again.
var ErrConflict = errors.New("transaction conflict")

// WithRetry runs body until it succeeds, fails with an error retryable does not
// accept, or maxAttempts is reached. Exhausting the attempts yields
// domain.ErrTxConflict.
func WithRetry(ctx context.Context, maxAttempts int, retryable func(error) bool, body func(ctx context.Context) error) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var last error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		last = body(ctx)
		if last == nil || !retryable(last) {
			return last
		}
	}
	return errors.Join(domain.ErrTxConflict, last)
}
