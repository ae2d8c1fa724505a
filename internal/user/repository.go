// AngelaMos | 2026
// repository.go

package user

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/carterperez-dev/lovelistings/internal/core"
)

type Repository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	LockByID(ctx context.Context, id string) (*User, error)
	Update(ctx context.Context, user *User) error
	AdjustCoins(ctx context.Context, id string, delta int) (int, error)
	UpdateTier(ctx context.Context, id, tier string, expires *time.Time) error
	SetSuspended(ctx context.Context, id string, suspended bool) error
	IncrementTokenVersion(ctx context.Context, id string) error
	SoftDelete(ctx context.Context, id string) error
	List(ctx context.Context, params ListUsersParams) ([]User, int, error)
	Stats(ctx context.Context) (*Stats, error)
}

// Stats is the admin dashboard summary of the user table.
type Stats struct {
	Total            int64 `db:"total"             json:"total"`
	Suspended        int64 `db:"suspended"         json:"suspended"`
	Paid             int64 `db:"paid"              json:"paid"`
	CoinsOutstanding int64 `db:"coins_outstanding" json:"coins_outstanding"`
}

const userColumns = `id, email, password_hash, name, role, tier, tier_expires,
	love_coins, is_verified, is_suspended, token_version,
	created_at, updated_at, deleted_at`

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, u *User) error {
	query := `
		INSERT INTO users (id, email, password_hash, name, role, tier, love_coins)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at, token_version`

	row := r.db.QueryRowxContext(ctx, query,
		u.ID, u.Email, u.PasswordHash, u.Name, u.Role, u.Tier, u.LoveCoins,
	)
	if err := row.Scan(&u.CreatedAt, &u.UpdatedAt, &u.TokenVersion); err != nil {
		if core.IsUniqueViolation(err) {
			return fmt.Errorf("create user: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create user: %w", err)
	}

	return nil
}

func (r *repository) getOne(ctx context.Context, op, where string, arg any) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + where

	var u User
	err := r.db.GetContext(ctx, &u, query, arg)
	if core.IsNoRows(err) {
		return nil, fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &u, nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*User, error) {
	return r.getOne(ctx, "get user", "id = $1 AND deleted_at IS NULL", id)
}

func (r *repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.getOne(ctx, "get user by email", "email = $1 AND deleted_at IS NULL", email)
}

// LockByID reads the user row with FOR UPDATE. Only meaningful inside a
// transaction.
func (r *repository) LockByID(ctx context.Context, id string) (*User, error) {
	return r.getOne(ctx, "lock user", "id = $1 AND deleted_at IS NULL FOR UPDATE", id)
}

func (r *repository) Update(ctx context.Context, u *User) error {
	query := `
		UPDATE users
		SET name = $2, role = $3, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING updated_at`

	err := r.db.GetContext(ctx, &u.UpdatedAt, query, u.ID, u.Name, u.Role)
	if core.IsNoRows(err) {
		return fmt.Errorf("update user: %w", core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	return nil
}

// AdjustCoins applies delta only if the balance stays non-negative and
// returns the new balance.
func (r *repository) AdjustCoins(ctx context.Context, id string, delta int) (int, error) {
	query := `
		UPDATE users
		SET love_coins = love_coins + $2, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL AND love_coins + $2 >= 0
		RETURNING love_coins`

	var balance int
	err := r.db.GetContext(ctx, &balance, query, id, delta)
	if core.IsNoRows(err) {
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return 0, fmt.Errorf("adjust coins: %w", getErr)
		}
		return 0, fmt.Errorf("adjust coins: %w", core.ErrInsufficientFunds)
	}
	if err != nil {
		return 0, fmt.Errorf("adjust coins: %w", err)
	}

	return balance, nil
}

func (r *repository) UpdateTier(
	ctx context.Context,
	id, tier string,
	expires *time.Time,
) error {
	query := `
		UPDATE users
		SET tier = $2, tier_expires = $3, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`

	return r.execOne(ctx, "update tier", query, id, tier, expires)
}

func (r *repository) SetSuspended(ctx context.Context, id string, suspended bool) error {
	query := `
		UPDATE users
		SET is_suspended = $2, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`

	return r.execOne(ctx, "set suspended", query, id, suspended)
}

func (r *repository) IncrementTokenVersion(ctx context.Context, id string) error {
	query := `
		UPDATE users
		SET token_version = token_version + 1, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`

	return r.execOne(ctx, "increment token version", query, id)
}

func (r *repository) SoftDelete(ctx context.Context, id string) error {
	query := `
		UPDATE users
		SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`

	return r.execOne(ctx, "delete user", query, id)
}

func (r *repository) execOne(ctx context.Context, op, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}

	return nil
}

func (r *repository) List(
	ctx context.Context,
	params ListUsersParams,
) ([]User, int, error) {
	params.Normalize()

	conditions := []string{"deleted_at IS NULL"}
	var args []any

	if params.Search != "" {
		args = append(args, "%"+escapeLike(params.Search)+"%")
		conditions = append(conditions, fmt.Sprintf(
			"(email ILIKE $%d OR name ILIKE $%d)", len(args), len(args)))
	}
	if params.Role != "" {
		args = append(args, params.Role)
		conditions = append(conditions, fmt.Sprintf("role = $%d", len(args)))
	}
	if params.Tier != "" {
		args = append(args, params.Tier)
		conditions = append(conditions, fmt.Sprintf("tier = $%d", len(args)))
	}

	where := strings.Join(conditions, " AND ")

	var total int
	countQuery := "SELECT COUNT(*) FROM users WHERE " + where
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s FROM users
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		userColumns, where, len(args)+1, len(args)+2)
	args = append(args, params.PageSize, params.Offset())

	var users []User
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	return users, total, nil
}

func (r *repository) Stats(ctx context.Context) (*Stats, error) {
	query := `
		SELECT COUNT(*) AS total,
		       COUNT(*) FILTER (WHERE is_suspended) AS suspended,
		       COUNT(*) FILTER (WHERE tier <> 'free') AS paid,
		       COALESCE(SUM(love_coins), 0) AS coins_outstanding
		FROM users
		WHERE deleted_at IS NULL`

	var s Stats
	if err := r.db.GetContext(ctx, &s, query); err != nil {
		return nil, fmt.Errorf("user stats: %w", err)
	}

	return &s, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
