// Package memory is an in-process document store with optimistic transactions.
//
// Every document carries a version. A transaction records the version of each
// document it reads and buffers its writes; commit re-checks those versions
// under the store lock and applies the writes only if none changed, otherwise
// the body runs again. Unique indexes are stored as documents too, so two
// transactions claiming the same key conflict like any other write.
package memory

import (
	"context"
	"errors"
	"sync"

	"payeveryone/internal/port"
	"payeveryone/internal/repository"
)

const defaultMaxAttempts = 10

type key struct {
	coll string
	id   string
}

type entry struct {
	version uint64
	value   any
}

type txn struct {
	reads  map[key]uint64
	writes map[key]any
}

type txKeyType struct{}

var txKey txKeyType

type Store struct {
	mu          sync.RWMutex
	docs        map[key]entry
	maxAttempts int

	// beforeCommit lets tests interleave writes between a body and its commit.
	beforeCommit func()
}

func NewStore(maxAttempts int) *Store {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	return &Store{
		docs:        make(map[key]entry),
		maxAttempts: maxAttempts,
	}
}

func getTx(ctx context.Context) (*txn, bool) {
	tx, ok := ctx.Value(txKey).(*txn)
	return tx, ok
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := getTx(ctx); ok {
		return fn(ctx)
	}

	return repository.WithRetry(ctx, s.maxAttempts, isConflict, func(ctx context.Context) error {
		tx := &txn{reads: make(map[key]uint64), writes: make(map[key]any)}
		if err := fn(context.WithValue(ctx, txKey, tx)); err != nil {
			return err
		}
		if s.beforeCommit != nil {
			s.beforeCommit()
		}
		return s.commit(tx)
	})
}

func isConflict(err error) bool {
	return errors.Is(err, repository.ErrConflict)
}

func (s *Store) commit(tx *txn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, v := range tx.reads {
		if s.docs[k].version != v {
			return repository.ErrConflict
		}
	}
	for k, val := range tx.writes {
		s.docs[k] = entry{version: s.docs[k].version + 1, value: val}
	}
	return nil
}

// atomically joins the caller's transaction or opens one.
func (s *Store) atomically(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.WithinTx(ctx, fn)
}

func (s *Store) get(ctx context.Context, k key) (any, bool) {
	tx, inTx := getTx(ctx)
	if inTx {
		if v, ok := tx.writes[k]; ok {
			return v, true
		}
	}

	s.mu.RLock()
	e, ok := s.docs[k]
	s.mu.RUnlock()

	if inTx {
		if _, seen := tx.reads[k]; !seen {
			tx.reads[k] = e.version
		}
	}
	return e.value, ok
}

func (s *Store) put(ctx context.Context, k key, v any) {
	if tx, ok := getTx(ctx); ok {
		tx.writes[k] = v
		return
	}

	s.mu.Lock()
	s.docs[k] = entry{version: s.docs[k].version + 1, value: v}
	s.mu.Unlock()
}

// scan visits every document of coll as seen by ctx: committed state overlaid
// with the transaction's own pending writes. Scans are not part of the read set.
func (s *Store) scan(ctx context.Context, coll string, visit func(v any)) {
	tx, inTx := getTx(ctx)

	s.mu.RLock()
	values := make([]any, 0)
	for k, e := range s.docs {
		if k.coll != coll {
			continue
		}
		if inTx {
			if _, shadowed := tx.writes[k]; shadowed {
				continue
			}
		}
		values = append(values, e.value)
	}
	s.mu.RUnlock()

	if inTx {
		for k, v := range tx.writes {
			if k.coll == coll {
				values = append(values, v)
			}
		}
	}

	for _, v := range values {
		visit(v)
	}
}

func load[T any](ctx context.Context, s *Store, coll, id string) (T, bool) {
	v, ok := s.get(ctx, key{coll: coll, id: id})
	if !ok {
		var zero T
		return zero, false
	}
	return v.(T), true
}

func save[T any](ctx context.Context, s *Store, coll, id string, v T) {
	s.put(ctx, key{coll: coll, id: id}, v)
}

func collect[T any](ctx context.Context, s *Store, coll string, keep func(T) bool) []T {
	var out []T
	s.scan(ctx, coll, func(v any) {
		t := v.(T)
		if keep == nil || keep(t) {
			out = append(out, t)
		}
	})
	return out
}

// claim reserves a unique index value for owner. It reports false if another
// owner already holds it.
func (s *Store) claim(ctx context.Context, index, value, owner string) bool {
	current, ok := load[string](ctx, s, index, value)
	if ok && current != owner {
		return false
	}
	save(ctx, s, index, value, owner)
	return true
}

func (s *Store) lookup(ctx context.Context, index, value string) (string, bool) {
	return load[string](ctx, s, index, value)
}

// NewRepositories returns every collection backed by a fresh Store.
func NewRepositories(maxAttempts int) (port.Repositories, *Store) {
	s := NewStore(maxAttempts)
	return port.Repositories{
		Tx:           s,
		Users:        NewUserRepository(s),
		Deposits:     NewDepositRepository(s),
		Withdrawals:  NewWithdrawalRepository(s),
		Exchanges:    NewExchangeRepository(s),
		Transactions: NewTransactionRepository(s),
		Bets:         NewBetRepository(s),
		Settings:     NewSettingsRepository(s),
	}, s
}
