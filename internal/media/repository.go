// AngelaMos | 2026
// repository.go

package media

import (
	"context"
	"fmt"

	"github.com/carterperez-dev/lovelistings/internal/core"
)

type Repository interface {
	Create(ctx context.Context, m *Media) error
	GetByHash(ctx context.Context, hash string) (*Media, error)
	ListByUploader(ctx context.Context, uploaderID string, limit int) ([]Media, error)
	Stats(ctx context.Context) (*Stats, error)
}

const mediaColumns = `id, uploader_id, file_hash, file_name, file_size, mime_type,
	cdn_url, local_path, uploaded_at`

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, m *Media) error {
	query := `
		INSERT INTO media
			(id, uploader_id, file_hash, file_name, file_size, mime_type, cdn_url, local_path)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING uploaded_at`

	err := r.db.GetContext(ctx, &m.UploadedAt, query,
		m.ID, m.UploaderID, m.FileHash, m.FileName, m.FileSize, m.MimeType, m.CDNURL, m.LocalPath)
	if err != nil {
		if core.IsUniqueViolation(err) {
			return fmt.Errorf("create media: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create media: %w", err)
	}
	return nil
}

func (r *repository) GetByHash(ctx context.Context, hash string) (*Media, error) {
	query := `SELECT ` + mediaColumns + ` FROM media WHERE file_hash = $1`

	var m Media
	if err := r.db.GetContext(ctx, &m, query, hash); err != nil {
		if core.IsNoRows(err) {
			return nil, fmt.Errorf("get media by hash: %w", core.ErrNotFound)
		}
		return nil, fmt.Errorf("get media by hash: %w", err)
	}
	return &m, nil
}

func (r *repository) ListByUploader(
	ctx context.Context,
	uploaderID string,
	limit int,
) ([]Media, error) {
	query := `SELECT ` + mediaColumns + `
		FROM media
		WHERE uploader_id = $1
		ORDER BY uploaded_at DESC
		LIMIT $2`

	var out []Media
	if err := r.db.SelectContext(ctx, &out, query, uploaderID, limit); err != nil {
		return nil, fmt.Errorf("list media: %w", err)
	}
	return out, nil
}

func (r *repository) Stats(ctx context.Context) (*Stats, error) {
	query := `SELECT COUNT(*) AS files, COALESCE(SUM(file_size), 0) AS bytes FROM media`

	var s Stats
	if err := r.db.GetContext(ctx, &s, query); err != nil {
		return nil, fmt.Errorf("media stats: %w", err)
	}
	return &s, nil
}
