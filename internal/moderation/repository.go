// AngelaMos | 2026
// repository.go

package moderation

import (
	"context"
	"fmt"
	"time"

	"github.com/carterperez-dev/lovelistings/internal/core"
)

type Repository interface {
	CreateFlag(ctx context.Context, f *Flag) error
	GetFlag(ctx context.Context, id string) (*Flag, error)
	ListFlags(ctx context.Context, status FlagStatus, limit, offset int) ([]Flag, int, error)
	ReviewFlag(
		ctx context.Context,
		id, reviewerID string,
		status FlagStatus,
		notes *string,
		now time.Time,
	) (*Flag, error)
	CreateAction(ctx context.Context, a *AdminAction) error
	ListActions(ctx context.Context, limit int) ([]AdminAction, error)
	Stats(ctx context.Context) (*Stats, error)
}

const flagColumns = `id, content_type, content_id, reporter_id, reason, details,
	status, reviewed_by, reviewed_at, review_notes, created_at`

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) CreateFlag(ctx context.Context, f *Flag) error {
	query := `
		INSERT INTO flags (id, content_type, content_id, reporter_id, reason, details, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`

	err := r.db.GetContext(ctx, &f.CreatedAt, query,
		f.ID, f.ContentType, f.ContentID, f.ReporterID, f.Reason, f.Details, f.Status)
	if err != nil {
		return fmt.Errorf("create flag: %w", err)
	}
	return nil
}

func (r *repository) GetFlag(ctx context.Context, id string) (*Flag, error) {
	var f Flag
	err := r.db.GetContext(ctx, &f, `SELECT `+flagColumns+` FROM flags WHERE id = $1`, id)
	if err != nil {
		if core.IsNoRows(err) {
			return nil, fmt.Errorf("get flag: %w", core.ErrNotFound)
		}
		return nil, fmt.Errorf("get flag: %w", err)
	}
	return &f, nil
}

func (r *repository) ListFlags(
	ctx context.Context,
	status FlagStatus,
	limit, offset int,
) ([]Flag, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM flags WHERE status = $1`, status); err != nil {
		return nil, 0, fmt.Errorf("count flags: %w", err)
	}

	query := `SELECT ` + flagColumns + `
		FROM flags
		WHERE status = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`

	var out []Flag
	if err := r.db.SelectContext(ctx, &out, query, status, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("list flags: %w", err)
	}
	return out, total, nil
}

// ReviewFlag only transitions a pending flag. A flag that is missing
// returns ErrNotFound and one already reviewed returns ErrConflict.
func (r *repository) ReviewFlag(
	ctx context.Context,
	id, reviewerID string,
	status FlagStatus,
	notes *string,
	now time.Time,
) (*Flag, error) {
	query := `
		UPDATE flags
		SET status = $2, reviewed_by = $3, reviewed_at = $4, review_notes = $5
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + flagColumns

	var f Flag
	err := r.db.GetContext(ctx, &f, query, id, status, reviewerID, now, notes)
	if err == nil {
		return &f, nil
	}
	if !core.IsNoRows(err) {
		return nil, fmt.Errorf("review flag: %w", err)
	}

	if _, getErr := r.GetFlag(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, fmt.Errorf("review flag: %w", core.ErrConflict)
}

func (r *repository) CreateAction(ctx context.Context, a *AdminAction) error {
	query := `
		INSERT INTO admin_actions (id, admin_id, action_type, target_type, target_id, details)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	err := r.db.GetContext(ctx, &a.CreatedAt, query,
		a.ID, a.AdminID, a.ActionType, a.TargetType, a.TargetID, a.Details)
	if err != nil {
		return fmt.Errorf("create admin action: %w", err)
	}
	return nil
}

func (r *repository) ListActions(ctx context.Context, limit int) ([]AdminAction, error) {
	query := `
		SELECT id, admin_id, action_type, target_type, target_id, details, created_at
		FROM admin_actions
		ORDER BY created_at DESC
		LIMIT $1`

	var out []AdminAction
	if err := r.db.SelectContext(ctx, &out, query, limit); err != nil {
		return nil, fmt.Errorf("list admin actions: %w", err)
	}
	return out, nil
}

func (r *repository) Stats(ctx context.Context) (*Stats, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE status = 'pending')  AS pending,
			COUNT(*) FILTER (WHERE status = 'approved') AS approved,
			COUNT(*) FILTER (WHERE status = 'rejected') AS rejected
		FROM flags`

	var s Stats
	if err := r.db.GetContext(ctx, &s, query); err != nil {
		return nil, fmt.Errorf("flag stats: %w", err)
	}
	return &s, nil
}
