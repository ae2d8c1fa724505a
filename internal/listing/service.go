// AngelaMos | 2026
// service.go

package listing

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/carterperez-dev/lovelistings/internal/config"
	"github.com/carterperez-dev/lovelistings/internal/core"
	"github.com/carterperez-dev/lovelistings/internal/tier"
)

// EntitlementSource resolves the tier entitlements of a listing owner.
type EntitlementSource interface {
	EntitlementsOf(ctx context.Context, userID string) (tier.Entitlements, error)
}

type Service struct {
	repo         Repository
	cache        *FeedCache
	entitlements EntitlementSource
	feed         config.FeedConfig
	media        config.MediaConfig
	logger       *slog.Logger
	now          func() time.Time
}

func NewService(
	repo Repository,
	cache *FeedCache,
	entitlements EntitlementSource,
	feed config.FeedConfig,
	media config.MediaConfig,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:         repo,
		cache:        cache,
		entitlements: entitlements,
		feed:         feed,
		media:        media,
		logger:       logger,
		now:          time.Now,
	}
}

// CheckImageCount enforces the per-listing image cap of a tier.
func CheckImageCount(ent tier.Entitlements, n int) error {
	if n > ent.MaxImages {
		return core.NewAppError(
			core.ErrInvalidInput,
			fmt.Sprintf("Your %s tier allows %d image(s) per listing", ent.Level, ent.MaxImages),
			http.StatusBadRequest,
			"IMAGE_LIMIT",
		)
	}
	return nil
}

func (s *Service) Feed(ctx context.Context, params FeedParams) (*FeedPage, error) {
	params.Normalize(s.feed.PageSize)

	if page, ok, err := s.cache.Get(ctx, "feed", params); err != nil {
		s.logger.WarnContext(ctx, "feed cache read failed", "error", err)
	} else if ok {
		return page, nil
	}

	items, total, err := s.repo.ListFeed(ctx, params)
	if err != nil {
		return nil, err
	}

	page := &FeedPage{Items: items, Total: total}
	if err := s.cache.Set(ctx, "feed", params, page); err != nil {
		s.logger.WarnContext(ctx, "feed cache write failed", "error", err)
	}

	return page, nil
}

// AvailableNow returns listings whose window is open right now. Cached
// pages are refiltered since a window can close while the page is cached.
func (s *Service) AvailableNow(ctx context.Context) ([]Listing, error) {
	now := s.now()
	limit := s.feed.AvailableNowMax
	if limit < 1 {
		limit = 20
	}

	var items []Listing
	page, ok, err := s.cache.Get(ctx, "available_now", limit)
	if err != nil {
		s.logger.WarnContext(ctx, "feed cache read failed", "error", err)
	}
	if ok {
		items = page.Items
	} else {
		items, err = s.repo.ListAvailableNow(ctx, now, limit)
		if err != nil {
			return nil, err
		}
		if err := s.cache.Set(ctx, "available_now", limit,
			&FeedPage{Items: items, Total: len(items)}); err != nil {
			s.logger.WarnContext(ctx, "feed cache write failed", "error", err)
		}
	}

	visible := items[:0:0]
	for i := range items {
		if items[i].AvailableNowVisible(now) {
			visible = append(visible, items[i])
		}
	}
	return visible, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Listing, error) {
	l, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.countView(ctx, l)
	return l, nil
}

func (s *Service) GetBySlug(ctx context.Context, slug string) (*Listing, error) {
	l, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	s.countView(ctx, l)
	return l, nil
}

func (s *Service) countView(ctx context.Context, l *Listing) {
	if err := s.repo.IncrementViews(ctx, l.ID); err != nil {
		s.logger.WarnContext(ctx, "view count not recorded",
			"listing_id", l.ID, "error", err)
		return
	}
	l.ViewCount++
}

func (s *Service) Mine(ctx context.Context, ownerID string) ([]Listing, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("my listings: %w", core.ErrUnauthorized)
	}
	return s.repo.ListByOwner(ctx, ownerID)
}

func (s *Service) owned(ctx context.Context, ownerID, id string) (*Listing, error) {
	l, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !l.OwnedBy(ownerID) {
		return nil, core.NewAppError(core.ErrForbidden, "Not your listing", http.StatusForbidden, "FORBIDDEN")
	}
	return l, nil
}

func (s *Service) Update(
	ctx context.Context,
	ownerID, id string,
	req UpdateListingRequest,
) (*Listing, error) {
	l, err := s.owned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	if req.Images != nil && s.media.EnforceListingImageTotal {
		ent, err := s.entitlements.EntitlementsOf(ctx, ownerID)
		if err != nil {
			return nil, err
		}
		if err := CheckImageCount(ent, len(*req.Images)); err != nil {
			return nil, err
		}
	}

	applyUpdate(l, req)

	if err := s.repo.Update(ctx, l); err != nil {
		return nil, err
	}
	s.invalidate(ctx)

	return l, nil
}

func applyUpdate(l *Listing, req UpdateListingRequest) {
	if req.Title != nil {
		l.Title = core.PlainText(*req.Title)
	}
	if req.Tagline != nil {
		l.Tagline = core.PlainText(*req.Tagline)
	}
	if req.Description != nil {
		l.Description = core.RichText(*req.Description)
	}
	if req.Category != nil {
		l.Category = *req.Category
	}
	if req.Subcategory != nil {
		l.Subcategory = req.Subcategory
	}
	if req.City != nil {
		l.City = *req.City
	}
	if req.State != nil {
		l.State = *req.State
	}
	if req.Country != nil {
		l.Country = *req.Country
	}
	if req.PriceTokens != nil {
		l.PriceTokens = req.PriceTokens
	}
	if req.Images != nil {
		l.Images = StringList(*req.Images)
	}
}

func (s *Service) AddFavorite(ctx context.Context, userID, listingID string) error {
	return s.repo.AddFavorite(ctx, userID, listingID)
}

func (s *Service) RemoveFavorite(ctx context.Context, userID, listingID string) error {
	return s.repo.RemoveFavorite(ctx, userID, listingID)
}

func (s *Service) Favorites(ctx context.Context, userID string) ([]Listing, error) {
	return s.repo.ListFavorites(ctx, userID)
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	return s.repo.Stats(ctx)
}

// Invalidate drops every cached feed page.
func (s *Service) Invalidate(ctx context.Context) {
	s.invalidate(ctx)
}

func (s *Service) invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.WarnContext(ctx, "feed cache invalidation failed", "error", err)
	}
}
