// AngelaMos | 2026
// service_test.go

package listing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/lovelistings/internal/config"
	"github.com/carterperez-dev/lovelistings/internal/core"
	"github.com/carterperez-dev/lovelistings/internal/middleware"
	"github.com/carterperez-dev/lovelistings/internal/tier"
)

type memRepo struct {
	mu        sync.Mutex
	listings  map[string]*Listing
	favorites map[string]map[string]bool
	feedCalls int
}

func newMemRepo(items ...*Listing) *memRepo {
	r := &memRepo{
		listings:  map[string]*Listing{},
		favorites: map[string]map[string]bool{},
	}
	for _, l := range items {
		r.listings[l.ID] = l
	}
	return r
}

func (r *memRepo) Create(_ context.Context, l *Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listings[l.ID] = l.Clone()
	return nil
}

func (r *memRepo) GetByID(_ context.Context, id string) (*Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.listings[id]
	if !ok || l.Status == StatusRemoved {
		return nil, core.ErrNotFound
	}
	return l.Clone(), nil
}

func (r *memRepo) GetBySlug(_ context.Context, slug string) (*Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.listings {
		if l.Slug == slug && l.Status != StatusRemoved {
			return l.Clone(), nil
		}
	}
	return nil, core.ErrNotFound
}

func (r *memRepo) ListByOwner(_ context.Context, ownerID string) ([]Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Listing
	for _, l := range r.listings {
		if l.OwnerID == ownerID && l.Status != StatusRemoved {
			out = append(out, *l.Clone())
		}
	}
	return out, nil
}

func (r *memRepo) ListFeed(_ context.Context, params FeedParams) ([]Listing, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.feedCalls++
	var out []Listing
	for _, l := range r.listings {
		if l.Status == StatusActive && (params.Category == "" || l.Category == params.Category) {
			out = append(out, *l.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BumpedAt.After(out[j].BumpedAt) })
	total := len(out)
	start := min(params.Offset(), total)
	end := min(start+params.PageSize, total)
	return out[start:end], total, nil
}

func (r *memRepo) ListAvailableNow(_ context.Context, now time.Time, limit int) ([]Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Listing
	for _, l := range r.listings {
		if l.AvailableNowVisible(now) && len(out) < limit {
			out = append(out, *l.Clone())
		}
	}
	return out, nil
}

func (r *memRepo) Update(_ context.Context, l *Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listings[l.ID] = l.Clone()
	return nil
}

func (r *memRepo) SetStatus(_ context.Context, id string, status Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.listings[id]
	if !ok {
		return core.ErrNotFound
	}
	l.Status = status
	return nil
}

func (r *memRepo) IncrementViews(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.listings[id]; ok {
		l.ViewCount++
	}
	return nil
}

func (r *memRepo) Bump(context.Context, string, *time.Time, time.Time) (*Listing, error) {
	return nil, core.ErrConflict
}

func (r *memRepo) SetAvailableNow(context.Context, string, bool, *time.Time, *time.Time) (*Listing, error) {
	return nil, core.ErrConflict
}

func (r *memRepo) ApplyPromotion(context.Context, string, Promotion, time.Time) (*Listing, error) {
	return nil, core.ErrConflict
}

func (r *memRepo) AddFavorite(_ context.Context, userID, listingID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.listings[listingID]; !ok {
		return core.ErrNotFound
	}
	if r.favorites[userID] == nil {
		r.favorites[userID] = map[string]bool{}
	}
	r.favorites[userID][listingID] = true
	return nil
}

func (r *memRepo) RemoveFavorite(_ context.Context, userID, listingID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.favorites[userID][listingID] {
		return core.ErrNotFound
	}
	delete(r.favorites[userID], listingID)
	return nil
}

func (r *memRepo) ListFavorites(_ context.Context, userID string) ([]Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Listing
	for id := range r.favorites[userID] {
		out = append(out, *r.listings[id].Clone())
	}
	return out, nil
}

func (r *memRepo) Stats(context.Context) (*Stats, error) {
	return &Stats{Total: int64(len(r.listings))}, nil
}

type fixedTier tier.Level

func (f fixedTier) EntitlementsOf(context.Context, string) (tier.Entitlements, error) {
	return tier.EntitlementsFor(tier.Level(f)), nil
}

func newTestService(t *testing.T, repo Repository, lvl tier.Level) *Service {
	t.Helper()
	cache, _ := newTestCache(t)
	return NewService(repo, cache, fixedTier(lvl),
		config.FeedConfig{PageSize: 20, AvailableNowMax: 20},
		config.MediaConfig{EnforceListingImageTotal: true},
		nil,
	)
}

func sample(id, owner string, bumped time.Time) *Listing {
	return &Listing{
		ID:       id,
		OwnerID:  owner,
		Title:    "Listing " + id,
		Slug:     "listing-" + id,
		Category: "companionship",
		Status:   StatusActive,
		BumpedAt: bumped,
	}
}

func TestFeedSortsByBumpAndUsesCache(t *testing.T) {
	now := time.Now()
	repo := newMemRepo(
		sample("a", "u1", now.Add(-2*time.Hour)),
		sample("b", "u2", now.Add(-time.Hour)),
		sample("c", "u3", now),
	)
	repo.listings["c"].Status = StatusRemoved
	svc := newTestService(t, repo, tier.Free)
	ctx := context.Background()

	page, err := svc.Feed(ctx, FeedParams{})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "b", page.Items[0].ID)
	assert.Equal(t, 2, page.Total)

	_, err = svc.Feed(ctx, FeedParams{})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.feedCalls)

	svc.Invalidate(ctx)
	_, err = svc.Feed(ctx, FeedParams{})
	require.NoError(t, err)
	assert.Equal(t, 2, repo.feedCalls)
}

func TestAvailableNowDropsExpiredCachedEntries(t *testing.T) {
	now := time.Now()
	soon := now.Add(time.Minute)
	l := sample("a", "u1", now)
	l.IsAvailableNow, l.AvailableUntil = true, &soon

	svc := newTestService(t, newMemRepo(l), tier.Free)
	ctx := context.Background()

	items, err := svc.AvailableNow(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	svc.now = func() time.Time { return soon }
	items, err = svc.AvailableNow(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestGetCountsViewAndHidesRemoved(t *testing.T) {
	repo := newMemRepo(sample("a", "u1", time.Now()), sample("b", "u1", time.Now()))
	repo.listings["b"].Status = StatusRemoved
	svc := newTestService(t, repo, tier.Free)

	l, err := svc.Get(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, 1, l.ViewCount)

	_, err = svc.GetBySlug(context.Background(), "listing-b")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestUpdateEnforcesOwnershipAndImageCap(t *testing.T) {
	repo := newMemRepo(sample("a", "owner", time.Now()))
	svc := newTestService(t, repo, tier.Free)
	ctx := context.Background()

	title := "Renamed"
	_, err := svc.Update(ctx, "intruder", "a", UpdateListingRequest{Title: &title})
	assert.ErrorIs(t, err, core.ErrForbidden)

	three := []string{"1.jpg", "2.jpg", "3.jpg"}
	_, err = svc.Update(ctx, "owner", "a", UpdateListingRequest{Images: &three})
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	two := three[:2]
	l, err := svc.Update(ctx, "owner", "a", UpdateListingRequest{Title: &title, Images: &two})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", l.Title)
	assert.Len(t, l.Images, 2)
}

func TestImageCapFollowsTier(t *testing.T) {
	assert.NoError(t, CheckImageCount(tier.EntitlementsFor(tier.Elite), 30))
	assert.Error(t, CheckImageCount(tier.EntitlementsFor(tier.Elite), 31))
	assert.NoError(t, CheckImageCount(tier.EntitlementsFor(tier.VIP), 15))
}

func TestRemovedListingIsHidden(t *testing.T) {
	repo := newMemRepo(sample("a", "owner", time.Now()))
	svc := newTestService(t, repo, tier.Free)
	ctx := context.Background()

	require.NoError(t, repo.SetStatus(ctx, "a", StatusRemoved))

	_, err := svc.Get(ctx, "a")
	assert.ErrorIs(t, err, core.ErrNotFound)

	mine, err := svc.Mine(ctx, "owner")
	require.NoError(t, err)
	assert.Empty(t, mine)
}

func TestFavorites(t *testing.T) {
	repo := newMemRepo(sample("a", "owner", time.Now()))
	svc := newTestService(t, repo, tier.Free)
	ctx := context.Background()

	require.NoError(t, svc.AddFavorite(ctx, "fan", "a"))
	favs, err := svc.Favorites(ctx, "fan")
	require.NoError(t, err)
	assert.Len(t, favs, 1)

	require.NoError(t, svc.RemoveFavorite(ctx, "fan", "a"))
	assert.ErrorIs(t, svc.RemoveFavorite(ctx, "fan", "a"), core.ErrNotFound)
	assert.ErrorIs(t, svc.AddFavorite(ctx, "fan", "missing"), core.ErrNotFound)
}

func asUser(userID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := middleware.WithClaims(r.Context(), &middleware.AccessTokenClaims{
				UserID: userID,
				Role:   "classified",
				Tier:   "free",
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func TestHandlerRoutes(t *testing.T) {
	repo := newMemRepo(sample("a", "owner", time.Now()))
	h := NewHandler(newTestService(t, repo, tier.Free))

	r := chi.NewRouter()
	h.RegisterRoutes(r, asUser("intruder"))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/listings", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Success bool              `json:"success"`
		Data    []ListingResponse `json:"data"`
		Meta    struct {
			Total int64 `json:"total"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Len(t, body.Data, 1)
	assert.Equal(t, int64(1), body.Meta.Total)
	assert.False(t, body.Data[0].AvailableNow.Active)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/listings/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/listings/a",
		strings.NewReader(`{"title":"Takeover"}`))
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPatch, "/listings/a",
		strings.NewReader(`{"title":"x"}`))
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
