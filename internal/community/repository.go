// AngelaMos | 2026
// repository.go

package community

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/carterperez-dev/lovelistings/internal/core"
)

type Repository interface {
	CreatePost(ctx context.Context, p *Post) error
	GetPost(ctx context.Context, id string) (*Post, error)
	ListPosts(ctx context.Context, params ListParams) ([]Post, int, error)
	CreateReply(ctx context.Context, r *Reply) error
	ListReplies(ctx context.Context, postID string) ([]Reply, error)
	AddReplyCount(ctx context.Context, postID string, delta int) error
	AddLike(ctx context.Context, postID, userID string) (bool, error)
	RemoveLike(ctx context.Context, postID, userID string) (bool, error)
	AddLikeCount(ctx context.Context, postID string, delta int) (int, error)
}

// Store runs multi statement writes (reply plus counter) atomically.
type Store interface {
	Repository
	InTx(ctx context.Context, fn func(tx Repository) error) error
}

const postColumns = `id, author_id, title, content, category, like_count, reply_count, created_at`

type repository struct {
	db   core.DBTX
	conn *sqlx.DB
}

func NewRepository(db *sqlx.DB) Store {
	return &repository{db: db, conn: db}
}

func (r *repository) InTx(ctx context.Context, fn func(tx Repository) error) error {
	if r.conn == nil {
		return fn(r)
	}
	return core.InTx(ctx, r.conn, func(tx *sqlx.Tx) error {
		return fn(&repository{db: tx})
	})
}

func (r *repository) CreatePost(ctx context.Context, p *Post) error {
	query := `
		INSERT INTO community_posts (id, author_id, title, content, category)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	if err := r.db.GetContext(ctx, &p.CreatedAt, query,
		p.ID, p.AuthorID, p.Title, p.Content, p.Category); err != nil {
		return fmt.Errorf("create post: %w", err)
	}
	return nil
}

func (r *repository) GetPost(ctx context.Context, id string) (*Post, error) {
	var p Post
	err := r.db.GetContext(ctx, &p,
		`SELECT `+postColumns+` FROM community_posts WHERE id = $1`, id)
	if err != nil {
		if core.IsNoRows(err) {
			return nil, fmt.Errorf("get post: %w", core.ErrNotFound)
		}
		return nil, fmt.Errorf("get post: %w", err)
	}
	return &p, nil
}

func (r *repository) ListPosts(ctx context.Context, params ListParams) ([]Post, int, error) {
	where := `WHERE ($1::text = '' OR category = $1)`

	var total int
	if err := r.db.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM community_posts `+where, params.Category); err != nil {
		return nil, 0, fmt.Errorf("count posts: %w", err)
	}

	query := `SELECT ` + postColumns + `
		FROM community_posts ` + where + `
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`

	var out []Post
	if err := r.db.SelectContext(ctx, &out, query,
		params.Category, params.PageSize, params.Offset()); err != nil {
		return nil, 0, fmt.Errorf("list posts: %w", err)
	}
	return out, total, nil
}

func (r *repository) CreateReply(ctx context.Context, rp *Reply) error {
	query := `
		INSERT INTO community_replies (id, post_id, author_id, content)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`

	if err := r.db.GetContext(ctx, &rp.CreatedAt, query,
		rp.ID, rp.PostID, rp.AuthorID, rp.Content); err != nil {
		return fmt.Errorf("create reply: %w", err)
	}
	return nil
}

func (r *repository) ListReplies(ctx context.Context, postID string) ([]Reply, error) {
	query := `
		SELECT id, post_id, author_id, content, created_at
		FROM community_replies
		WHERE post_id = $1
		ORDER BY created_at DESC, id`

	var out []Reply
	if err := r.db.SelectContext(ctx, &out, query, postID); err != nil {
		return nil, fmt.Errorf("list replies: %w", err)
	}
	return out, nil
}

func (r *repository) AddReplyCount(ctx context.Context, postID string, delta int) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE community_posts SET reply_count = reply_count + $2 WHERE id = $1`,
		postID, delta)
	if err != nil {
		return fmt.Errorf("add reply count: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("add reply count: %w", core.ErrNotFound)
	}
	return nil
}

// AddLike reports whether a new like row was written.
func (r *repository) AddLike(ctx context.Context, postID, userID string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO community_likes (post_id, user_id) VALUES ($1, $2)
		ON CONFLICT (post_id, user_id) DO NOTHING`, postID, userID)
	if err != nil {
		return false, fmt.Errorf("add like: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("add like: %w", err)
	}
	return n == 1, nil
}

func (r *repository) RemoveLike(ctx context.Context, postID, userID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM community_likes WHERE post_id = $1 AND user_id = $2`, postID, userID)
	if err != nil {
		return false, fmt.Errorf("remove like: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("remove like: %w", err)
	}
	return n == 1, nil
}

func (r *repository) AddLikeCount(ctx context.Context, postID string, delta int) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		UPDATE community_posts SET like_count = GREATEST(like_count + $2, 0)
		WHERE id = $1
		RETURNING like_count`, postID, delta)
	if err != nil {
		if core.IsNoRows(err) {
			return 0, fmt.Errorf("add like count: %w", core.ErrNotFound)
		}
		return 0, fmt.Errorf("add like count: %w", err)
	}
	return count, nil
}
