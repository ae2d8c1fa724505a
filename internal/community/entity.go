// AngelaMos | 2026
// entity.go

package community

import (
	"time"
)

type Post struct {
	ID         string    `db:"id"          json:"id"`
	AuthorID   string    `db:"author_id"   json:"author_id"`
	Title      string    `db:"title"       json:"title"`
	Content    string    `db:"content"     json:"content"`
	Category   string    `db:"category"    json:"category"`
	LikeCount  int       `db:"like_count"  json:"like_count"`
	ReplyCount int       `db:"reply_count" json:"reply_count"`
	CreatedAt  time.Time `db:"created_at"  json:"created_at"`
}

type Reply struct {
	ID        string    `db:"id"         json:"id"`
	PostID    string    `db:"post_id"    json:"post_id"`
	AuthorID  string    `db:"author_id"  json:"author_id"`
	Content   string    `db:"content"    json:"content"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type CreatePostRequest struct {
	Title    string `json:"title"    validate:"required,min=3,max=200"`
	Content  string `json:"content"  validate:"required,min=1,max=10000"`
	Category string `json:"category" validate:"required,min=2,max=50"`
}

type CreateReplyRequest struct {
	Content string `json:"content" validate:"required,min=1,max=5000"`
}

type ListParams struct {
	Category string
	Page     int
	PageSize int
}

func (p *ListParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 || p.PageSize > 100 {
		p.PageSize = 50
	}
}

func (p ListParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}
