package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"payeveryone/internal/domain"
	"payeveryone/internal/port"

	"github.com/shopspring/decimal"
)

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) port.UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, name, email, password_hash, role, balance, winning_money, withdraw_pin_hash,
	payout, referral_code, referred_by, created_at, updated_at`

var fundsColumn = map[domain.BalanceField]string{
	domain.FieldBalance:      "balance",
	domain.FieldWinningMoney: "winning_money",
}

func scanUser(row interface{ Scan(...any) error }) (*domain.User, error) {
	var (
		u          domain.User
		payout     []byte
		referredBy sql.NullString
	)
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.Balance, &u.WinningMoney,
		&u.WithdrawPINHash, &payout, &u.ReferralCode, &referredBy, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}

	u.ReferredBy = referredBy.String
	if len(payout) > 0 {
		var m domain.PaymentMethod
		if err := json.Unmarshal(payout, &m); err != nil {
			return nil, fmt.Errorf("decode payout of user %s: %w", u.ID, err)
		}
		if !m.IsZero() {
			u.Payout = &m
		}
	}
	return &u, nil
}

// encodePayout returns the JSONB text; pq would send a []byte as bytea.
func encodePayout(m *domain.PaymentMethod) (sql.NullString, error) {
	if m == nil || m.IsZero() {
		return sql.NullString{}, nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(raw), Valid: true}, nil
}

func (r *userRepository) Create(ctx context.Context, u *domain.User) error {
	const query = `INSERT INTO users (` + userColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NULLIF($11, ''), $12, $13)`

	payout, err := encodePayout(u.Payout)
	if err != nil {
		return err
	}

	_, err = conn(ctx, r.db).ExecContext(ctx, query,
		u.ID, u.Name, strings.ToLower(u.Email), u.PasswordHash, u.Role, u.Balance, u.WinningMoney,
		u.WithdrawPINHash, payout, u.ReferralCode, u.ReferredBy, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if constraint, ok := uniqueViolation(err); ok {
			if constraint == "users_email_key" {
				return domain.ErrEmailTaken
			}
			return domain.ErrDuplicateRequest
		}
		return err
	}
	return nil
}

func (r *userRepository) getBy(ctx context.Context, column, value string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + column + ` = $1` + lockClause(ctx)

	u, err := scanUser(conn(ctx, r.db).QueryRowContext(ctx, query, value))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	return u, err
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getBy(ctx, "id", id)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getBy(ctx, "email", strings.ToLower(email))
}

func (r *userRepository) GetByReferralCode(ctx context.Context, code string) (*domain.User, error) {
	return r.getBy(ctx, "referral_code", code)
}

func (r *userRepository) List(ctx context.Context) ([]*domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users ORDER BY name`

	rows, err := conn(ctx, r.db).QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *userRepository) UpdateFunds(ctx context.Context, id string, field domain.BalanceField, amount decimal.Decimal) error {
	column, ok := fundsColumn[field]
	if !ok {
		return fmt.Errorf("%w: unknown balance field %q", domain.ErrInvalidInput, field)
	}
	query := `UPDATE users SET ` + column + ` = $1, updated_at = $2 WHERE id = $3`
	return r.exec(ctx, query, amount, time.Now(), id)
}

func (r *userRepository) UpdateWithdrawPIN(ctx context.Context, id string, hash string) error {
	const query = `UPDATE users SET withdraw_pin_hash = $1, updated_at = $2 WHERE id = $3`
	return r.exec(ctx, query, hash, time.Now(), id)
}

func (r *userRepository) UpdatePayout(ctx context.Context, id string, m *domain.PaymentMethod) error {
	payout, err := encodePayout(m)
	if err != nil {
		return err
	}
	const query = `UPDATE users SET payout = $1, updated_at = $2 WHERE id = $3`
	return r.exec(ctx, query, payout, time.Now(), id)
}

func (r *userRepository) exec(ctx context.Context, query string, args ...any) error {
	result, err := conn(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	return affected(result, domain.ErrUserNotFound)
}
