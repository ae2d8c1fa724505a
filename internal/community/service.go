// AngelaMos | 2026
// service.go

package community

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/carterperez-dev/lovelistings/internal/core"
)

type Service struct {
	store  Store
	logger *slog.Logger
}

func NewService(st Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: st, logger: logger}
}

func (s *Service) CreatePost(ctx context.Context, authorID string, req CreatePostRequest) (*Post, error) {
	p := &Post{
		ID:       uuid.New().String(),
		AuthorID: authorID,
		Title:    core.PlainText(req.Title),
		Content:  core.RichText(req.Content),
		Category: strings.ToLower(core.PlainText(req.Category)),
	}
	if p.Title == "" || p.Content == "" || p.Category == "" {
		return nil, fmt.Errorf("create post: empty after sanitizing: %w", core.ErrInvalidInput)
	}

	if err := s.store.CreatePost(ctx, p); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "community post created", "post_id", p.ID, "category", p.Category)
	return p, nil
}

func (s *Service) List(ctx context.Context, params ListParams) ([]Post, int, error) {
	params.Category = strings.ToLower(strings.TrimSpace(params.Category))
	params.Normalize()
	return s.store.ListPosts(ctx, params)
}

type Thread struct {
	Post    *Post   `json:"post"`
	Replies []Reply `json:"replies"`
}

func (s *Service) Thread(ctx context.Context, postID string) (*Thread, error) {
	p, err := s.store.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	replies, err := s.store.ListReplies(ctx, postID)
	if err != nil {
		return nil, err
	}
	if replies == nil {
		replies = []Reply{}
	}
	return &Thread{Post: p, Replies: replies}, nil
}

// Reply stores the reply and bumps the post's reply count together.
func (s *Service) Reply(
	ctx context.Context,
	authorID, postID string,
	req CreateReplyRequest,
) (*Reply, error) {
	rp := &Reply{
		ID:       uuid.New().String(),
		PostID:   postID,
		AuthorID: authorID,
		Content:  core.RichText(req.Content),
	}
	if rp.Content == "" {
		return nil, fmt.Errorf("reply: empty after sanitizing: %w", core.ErrInvalidInput)
	}

	err := s.store.InTx(ctx, func(tx Repository) error {
		if _, err := tx.GetPost(ctx, postID); err != nil {
			return err
		}
		if err := tx.CreateReply(ctx, rp); err != nil {
			return err
		}
		return tx.AddReplyCount(ctx, postID, 1)
	})
	if err != nil {
		return nil, err
	}
	return rp, nil
}

func (s *Service) Replies(ctx context.Context, postID string) ([]Reply, error) {
	if _, err := s.store.GetPost(ctx, postID); err != nil {
		return nil, err
	}
	return s.store.ListReplies(ctx, postID)
}

type LikeState struct {
	Liked     bool `json:"liked"`
	LikeCount int  `json:"like_count"`
}

// Like is idempotent per user; the counter moves only when the like row
// is new.
func (s *Service) Like(ctx context.Context, userID, postID string) (*LikeState, error) {
	return s.toggleLike(ctx, userID, postID, true)
}

func (s *Service) Unlike(ctx context.Context, userID, postID string) (*LikeState, error) {
	return s.toggleLike(ctx, userID, postID, false)
}

func (s *Service) toggleLike(ctx context.Context, userID, postID string, like bool) (*LikeState, error) {
	state := &LikeState{Liked: like}
	err := s.store.InTx(ctx, func(tx Repository) error {
		p, err := tx.GetPost(ctx, postID)
		if err != nil {
			return err
		}
		state.LikeCount = p.LikeCount

		var changed bool
		delta := 1
		if like {
			changed, err = tx.AddLike(ctx, postID, userID)
		} else {
			changed, err = tx.RemoveLike(ctx, postID, userID)
			delta = -1
		}
		if err != nil || !changed {
			return err
		}

		state.LikeCount, err = tx.AddLikeCount(ctx, postID, delta)
		return err
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}
