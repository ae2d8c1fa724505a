// AngelaMos | 2026
// repository.go

package listing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/carterperez-dev/lovelistings/internal/core"
)

type Repository interface {
	Create(ctx context.Context, l *Listing) error
	GetByID(ctx context.Context, id string) (*Listing, error)
	GetBySlug(ctx context.Context, slug string) (*Listing, error)
	ListByOwner(ctx context.Context, ownerID string) ([]Listing, error)
	ListFeed(ctx context.Context, params FeedParams) ([]Listing, int, error)
	ListAvailableNow(ctx context.Context, now time.Time, limit int) ([]Listing, error)
	Update(ctx context.Context, l *Listing) error
	SetStatus(ctx context.Context, id string, status Status) error
	IncrementViews(ctx context.Context, id string) error
	Bump(ctx context.Context, id string, prev *time.Time, now time.Time) (*Listing, error)
	SetAvailableNow(
		ctx context.Context,
		id string,
		enabled bool,
		until, prevUntil *time.Time,
	) (*Listing, error)
	ApplyPromotion(ctx context.Context, id string, p Promotion, until time.Time) (*Listing, error)
	AddFavorite(ctx context.Context, userID, listingID string) error
	RemoveFavorite(ctx context.Context, userID, listingID string) error
	ListFavorites(ctx context.Context, userID string) ([]Listing, error)
	Stats(ctx context.Context) (*Stats, error)
}

type Stats struct {
	Total        int64 `db:"total"         json:"total"`
	Active       int64 `db:"active"        json:"active"`
	Removed      int64 `db:"removed"       json:"removed"`
	AvailableNow int64 `db:"available_now" json:"available_now"`
}

const listingColumns = `id, owner_id, title, slug, tagline, description,
	category, subcategory, city, state, country, price_tokens, images, status,
	is_available_now, available_until, is_highlighted, highlight_until,
	is_featured, featured_until, is_special, special_until,
	has_slideshow, slideshow_until, is_paid_listing, paid_listing_until,
	bumped_at, last_bump_at, bump_count, view_count, created_at, updated_at`

const notRemoved = `status <> 'removed'`

func qualifiedColumns(alias string) string {
	cols := strings.Split(listingColumns, ",")
	for i, c := range cols {
		cols[i] = alias + "." + strings.TrimSpace(c)
	}
	return strings.Join(cols, ", ")
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, l *Listing) error {
	query := `
		INSERT INTO listings (id, owner_id, title, slug, tagline, description,
			category, subcategory, city, state, country, price_tokens, images,
			status, bumped_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING created_at, updated_at`

	row := r.db.QueryRowxContext(ctx, query,
		l.ID, l.OwnerID, l.Title, l.Slug, l.Tagline, l.Description,
		l.Category, l.Subcategory, l.City, l.State, l.Country, l.PriceTokens,
		l.Images, l.Status, l.BumpedAt,
	)
	if err := row.Scan(&l.CreatedAt, &l.UpdatedAt); err != nil {
		if core.IsUniqueViolation(err) {
			return fmt.Errorf("create listing: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create listing: %w", err)
	}

	return nil
}

func (r *repository) getOne(ctx context.Context, op, where string, args ...any) (*Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE ` + where

	var l Listing
	err := r.db.GetContext(ctx, &l, query, args...)
	if core.IsNoRows(err) {
		return nil, fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &l, nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Listing, error) {
	return r.getOne(ctx, "get listing", "id = $1 AND "+notRemoved, id)
}

func (r *repository) GetBySlug(ctx context.Context, slug string) (*Listing, error) {
	return r.getOne(ctx, "get listing by slug", "slug = $1 AND "+notRemoved, slug)
}

func (r *repository) ListByOwner(ctx context.Context, ownerID string) ([]Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings
		WHERE owner_id = $1 AND ` + notRemoved + `
		ORDER BY bumped_at DESC`

	var out []Listing
	if err := r.db.SelectContext(ctx, &out, query, ownerID); err != nil {
		return nil, fmt.Errorf("list owner listings: %w", err)
	}
	return out, nil
}

func (r *repository) ListFeed(ctx context.Context, params FeedParams) ([]Listing, int, error) {
	where := []string{"status = 'active'"}
	args := []any{}

	if params.Category != "" {
		args = append(args, params.Category)
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}
	if params.City != "" {
		args = append(args, params.City)
		where = append(where, fmt.Sprintf("LOWER(city) = LOWER($%d)", len(args)))
	}
	clause := strings.Join(where, " AND ")

	var total int
	if err := r.db.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM listings WHERE `+clause, args...); err != nil {
		return nil, 0, fmt.Errorf("count feed: %w", err)
	}

	args = append(args, params.PageSize, params.Offset())
	query := fmt.Sprintf(`SELECT %s FROM listings WHERE %s
		ORDER BY bumped_at DESC, id
		LIMIT $%d OFFSET $%d`, listingColumns, clause, len(args)-1, len(args))

	var out []Listing
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list feed: %w", err)
	}

	return out, total, nil
}

func (r *repository) ListAvailableNow(ctx context.Context, now time.Time, limit int) ([]Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings
		WHERE status = 'active'
			AND is_available_now
			AND (available_until IS NULL OR available_until > $1)
		ORDER BY available_until DESC NULLS LAST, bumped_at DESC
		LIMIT $2`

	var out []Listing
	if err := r.db.SelectContext(ctx, &out, query, now, limit); err != nil {
		return nil, fmt.Errorf("list available now: %w", err)
	}
	return out, nil
}

func (r *repository) Update(ctx context.Context, l *Listing) error {
	query := `
		UPDATE listings
		SET title = $2, tagline = $3, description = $4, category = $5,
			subcategory = $6, city = $7, state = $8, country = $9,
			price_tokens = $10, images = $11, updated_at = NOW()
		WHERE id = $1 AND ` + notRemoved + `
		RETURNING updated_at`

	err := r.db.GetContext(ctx, &l.UpdatedAt, query,
		l.ID, l.Title, l.Tagline, l.Description, l.Category,
		l.Subcategory, l.City, l.State, l.Country, l.PriceTokens, l.Images,
	)
	if core.IsNoRows(err) {
		return fmt.Errorf("update listing: %w", core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update listing: %w", err)
	}

	return nil
}

func (r *repository) SetStatus(ctx context.Context, id string, status Status) error {
	if !status.Valid() {
		return fmt.Errorf("set status %q: %w", status, core.ErrInvalidInput)
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE listings SET status = $2, updated_at = NOW()
		WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("set status: %w", core.ErrNotFound)
	}
	return nil
}

func (r *repository) IncrementViews(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE listings SET view_count = view_count + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("increment views: %w", err)
	}
	return nil
}

// casUpdate runs an UPDATE ... RETURNING guarded by a condition on the
// previously read row. No row back means either the listing is gone or
// someone else changed it first.
func (r *repository) casUpdate(
	ctx context.Context,
	op, set, guard string,
	args ...any,
) (*Listing, error) {
	query := `UPDATE listings SET ` + set + `, updated_at = NOW()
		WHERE id = $1 AND ` + notRemoved + ` AND ` + guard + `
		RETURNING ` + listingColumns

	var l Listing
	err := r.db.GetContext(ctx, &l, query, args...)
	if core.IsNoRows(err) {
		if _, getErr := r.GetByID(ctx, args[0].(string)); getErr != nil {
			return nil, fmt.Errorf("%s: %w", op, getErr)
		}
		return nil, fmt.Errorf("%s: %w", op, core.ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &l, nil
}

func (r *repository) Bump(
	ctx context.Context,
	id string,
	prev *time.Time,
	now time.Time,
) (*Listing, error) {
	return r.casUpdate(ctx, "bump listing",
		`bumped_at = $3, last_bump_at = $3, bump_count = bump_count + 1`,
		`last_bump_at IS NOT DISTINCT FROM $2`,
		id, prev, now,
	)
}

func (r *repository) SetAvailableNow(
	ctx context.Context,
	id string,
	enabled bool,
	until, prevUntil *time.Time,
) (*Listing, error) {
	return r.casUpdate(ctx, "set available now",
		`is_available_now = $2, available_until = $3`,
		`available_until IS NOT DISTINCT FROM $4`,
		id, enabled, until, prevUntil,
	)
}

func (r *repository) ApplyPromotion(
	ctx context.Context,
	id string,
	p Promotion,
	until time.Time,
) (*Listing, error) {
	flag, untilCol, err := p.columns()
	if err != nil {
		return nil, fmt.Errorf("apply promotion: %w", core.ErrInvalidInput)
	}

	return r.casUpdate(ctx, "apply promotion",
		flag+` = TRUE, `+untilCol+` = $2`,
		`TRUE`,
		id, until,
	)
}

func (r *repository) AddFavorite(ctx context.Context, userID, listingID string) error {
	if _, err := r.GetByID(ctx, listingID); err != nil {
		return err
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO favorites (user_id, listing_id) VALUES ($1, $2)
		ON CONFLICT (user_id, listing_id) DO NOTHING`, userID, listingID)
	if err != nil {
		return fmt.Errorf("add favorite: %w", err)
	}
	return nil
}

func (r *repository) RemoveFavorite(ctx context.Context, userID, listingID string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM favorites WHERE user_id = $1 AND listing_id = $2`,
		userID, listingID)
	if err != nil {
		return fmt.Errorf("remove favorite: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("remove favorite: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("remove favorite: %w", core.ErrNotFound)
	}
	return nil
}

func (r *repository) ListFavorites(ctx context.Context, userID string) ([]Listing, error) {
	query := `SELECT ` + qualifiedColumns("l") + `
		FROM favorites f
		JOIN listings l ON l.id = f.listing_id
		WHERE f.user_id = $1 AND l.` + notRemoved + `
		ORDER BY f.created_at DESC`

	var out []Listing
	if err := r.db.SelectContext(ctx, &out, query, userID); err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	return out, nil
}

func (r *repository) Stats(ctx context.Context) (*Stats, error) {
	query := `
		SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE status = 'active') AS active,
			COUNT(*) FILTER (WHERE status = 'removed') AS removed,
			COUNT(*) FILTER (WHERE status = 'active' AND is_available_now
				AND (available_until IS NULL OR available_until > NOW())) AS available_now
		FROM listings`

	var s Stats
	if err := r.db.GetContext(ctx, &s, query); err != nil {
		return nil, fmt.Errorf("listing stats: %w", err)
	}
	return &s, nil
}
