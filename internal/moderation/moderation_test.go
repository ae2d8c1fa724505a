// AngelaMos | 2026
// moderation_test.go

package moderation

import (
	"context"
	"errors"
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

	"github.com/carterperez-dev/lovelistings/internal/core"
	"github.com/carterperez-dev/lovelistings/internal/listing"
	"github.com/carterperez-dev/lovelistings/internal/middleware"
)

type memState struct {
	flags    map[string]Flag
	actions  []AdminAction
	listings map[string]listing.Listing
}

func (s *memState) clone() *memState {
	out := &memState{
		flags:    make(map[string]Flag, len(s.flags)),
		actions:  append([]AdminAction(nil), s.actions...),
		listings: make(map[string]listing.Listing, len(s.listings)),
	}
	for k, v := range s.flags {
		out.flags[k] = v
	}
	for k, v := range s.listings {
		out.listings[k] = *v.Clone()
	}
	return out
}

type memStore struct {
	mu       sync.Mutex
	state    *memState
	failNext error
}

func newMemStore() *memStore {
	return &memStore{state: &memState{
		flags:    map[string]Flag{},
		listings: map[string]listing.Listing{},
	}}
}

func (m *memStore) InTx(_ context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.state.clone()
	if err := fn(&memTx{store: m}); err != nil {
		m.state = snapshot
		return err
	}
	return nil
}

func (m *memStore) tx() *memTx {
	return &memTx{store: m}
}

func (m *memStore) CreateFlag(ctx context.Context, f *Flag) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tx().CreateFlag(ctx, f)
}

func (m *memStore) GetFlag(ctx context.Context, id string) (*Flag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tx().GetFlag(ctx, id)
}

func (m *memStore) ListFlags(ctx context.Context, status FlagStatus, limit, offset int) ([]Flag, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tx().ListFlags(ctx, status, limit, offset)
}

func (m *memStore) ReviewFlag(
	ctx context.Context, id, reviewerID string, status FlagStatus, notes *string, now time.Time,
) (*Flag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tx().ReviewFlag(ctx, id, reviewerID, status, notes, now)
}

func (m *memStore) CreateAction(ctx context.Context, a *AdminAction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tx().CreateAction(ctx, a)
}

func (m *memStore) ListActions(ctx context.Context, limit int) ([]AdminAction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tx().ListActions(ctx, limit)
}

func (m *memStore) Stats(ctx context.Context) (*Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tx().Stats(ctx)
}

func (m *memStore) SetListingStatus(ctx context.Context, id string, status listing.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tx().SetListingStatus(ctx, id, status)
}

func (m *memStore) FeatureListing(ctx context.Context, id string, until time.Time) (*listing.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tx().FeatureListing(ctx, id, until)
}

// memTx runs with the store lock held.
type memTx struct {
	store *memStore
}

func (t *memTx) CreateFlag(_ context.Context, f *Flag) error {
	f.CreatedAt = time.Now()
	t.store.state.flags[f.ID] = *f
	return nil
}

func (t *memTx) GetFlag(_ context.Context, id string) (*Flag, error) {
	f, ok := t.store.state.flags[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &f, nil
}

func (t *memTx) ListFlags(_ context.Context, status FlagStatus, limit, offset int) ([]Flag, int, error) {
	var all []Flag
	for _, f := range t.store.state.flags {
		if f.Status == status {
			all = append(all, f)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := min(offset+limit, total)
	return all[offset:end], total, nil
}

func (t *memTx) ReviewFlag(
	_ context.Context, id, reviewerID string, status FlagStatus, notes *string, now time.Time,
) (*Flag, error) {
	f, ok := t.store.state.flags[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	if f.Status != FlagPending {
		return nil, core.ErrConflict
	}
	f.Status = status
	f.ReviewedBy = &reviewerID
	f.ReviewedAt = &now
	f.ReviewNotes = notes
	t.store.state.flags[id] = f
	return &f, nil
}

func (t *memTx) CreateAction(_ context.Context, a *AdminAction) error {
	if err := t.store.failNext; err != nil {
		t.store.failNext = nil
		return err
	}
	a.CreatedAt = time.Now()
	t.store.state.actions = append(t.store.state.actions, *a)
	return nil
}

func (t *memTx) ListActions(_ context.Context, limit int) ([]AdminAction, error) {
	var out []AdminAction
	for i := len(t.store.state.actions) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, t.store.state.actions[i])
	}
	return out, nil
}

func (t *memTx) Stats(context.Context) (*Stats, error) {
	var s Stats
	for _, f := range t.store.state.flags {
		switch f.Status {
		case FlagPending:
			s.Pending++
		case FlagApproved:
			s.Approved++
		case FlagRejected:
			s.Rejected++
		}
	}
	return &s, nil
}

func (t *memTx) SetListingStatus(_ context.Context, id string, status listing.Status) error {
	l, ok := t.store.state.listings[id]
	if !ok {
		return core.ErrNotFound
	}
	l.Status = status
	t.store.state.listings[id] = l
	return nil
}

func (t *memTx) FeatureListing(_ context.Context, id string, until time.Time) (*listing.Listing, error) {
	l, ok := t.store.state.listings[id]
	if !ok || l.Status == listing.StatusRemoved {
		return nil, core.ErrNotFound
	}
	l.SetWindow(listing.PromoFeatured, listing.Window{Enabled: true, Until: &until})
	t.store.state.listings[id] = l
	return l.Clone(), nil
}

type countingFeed struct{ n int }

func (c *countingFeed) Invalidate(context.Context) { c.n++ }

const (
	listingID = "7f2c1b1e-4a7d-4f0e-9d4a-2b1f9c3e5a10"
	adminID   = "admin-1"
)

var testNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) (*Service, *memStore, *countingFeed) {
	t.Helper()
	st := newMemStore()
	st.state.listings[listingID] = listing.Listing{
		ID: listingID, OwnerID: "owner", Title: "Vintage lamp", Status: listing.StatusActive,
	}
	feed := &countingFeed{}
	svc := NewService(st, feed, nil)
	svc.now = func() time.Time { return testNow }
	return svc, st, feed
}

func flagListing(t *testing.T, svc *Service) *Flag {
	t.Helper()
	f, err := svc.Flag(context.Background(), "reporter", FlagRequest{
		ContentType: "listing",
		ContentID:   listingID,
		Reason:      "<b>spam</b>",
		Details:     "posted <script>x()</script>twice",
	})
	require.NoError(t, err)
	return f
}

func TestFlagSanitizesText(t *testing.T) {
	svc, _, _ := newFixture(t)
	f := flagListing(t, svc)

	assert.Equal(t, FlagPending, f.Status)
	assert.Equal(t, "spam", f.Reason)
	assert.Equal(t, "posted twice", f.Details)

	_, err := svc.Flag(context.Background(), "reporter", FlagRequest{
		ContentType: "post", ContentID: listingID, Reason: "<i></i>",
	})
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestApproveListingFlagRemovesListing(t *testing.T) {
	svc, st, feed := newFixture(t)
	f := flagListing(t, svc)

	reviewed, err := svc.Review(context.Background(), adminID, f.ID, ReviewRequest{
		Status: "approved", Notes: "confirmed",
	})
	require.NoError(t, err)
	assert.Equal(t, FlagApproved, reviewed.Status)
	require.NotNil(t, reviewed.ReviewedAt)
	assert.Equal(t, testNow, *reviewed.ReviewedAt)
	assert.Equal(t, adminID, *reviewed.ReviewedBy)

	assert.Equal(t, listing.StatusRemoved, st.state.listings[listingID].Status)
	require.Len(t, st.state.actions, 2)
	assert.Equal(t, ActionReviewFlag, st.state.actions[0].ActionType)
	assert.Equal(t, ActionRemoveListing, st.state.actions[1].ActionType)
	assert.Equal(t, 1, feed.n)
}

func TestRejectLeavesListingAlone(t *testing.T) {
	svc, st, feed := newFixture(t)
	f := flagListing(t, svc)

	_, err := svc.Review(context.Background(), adminID, f.ID, ReviewRequest{Status: "rejected"})
	require.NoError(t, err)

	assert.Equal(t, listing.StatusActive, st.state.listings[listingID].Status)
	require.Len(t, st.state.actions, 1)
	assert.Zero(t, feed.n)
}

func TestReviewIsOnlyPossibleOnce(t *testing.T) {
	svc, _, _ := newFixture(t)
	f := flagListing(t, svc)
	ctx := context.Background()

	_, err := svc.Review(ctx, adminID, f.ID, ReviewRequest{Status: "rejected"})
	require.NoError(t, err)

	_, err = svc.Review(ctx, adminID, f.ID, ReviewRequest{Status: "approved"})
	assert.ErrorIs(t, err, core.ErrConflict)

	_, err = svc.Review(ctx, adminID, "missing", ReviewRequest{Status: "approved"})
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestFailedAuditRollsBackReview(t *testing.T) {
	svc, st, _ := newFixture(t)
	f := flagListing(t, svc)

	st.failNext = errors.New("disk full")
	_, err := svc.Review(context.Background(), adminID, f.ID, ReviewRequest{Status: "approved"})
	require.Error(t, err)

	got, err := st.GetFlag(context.Background(), f.ID)
	require.NoError(t, err)
	assert.Equal(t, FlagPending, got.Status)
	assert.Equal(t, listing.StatusActive, st.state.listings[listingID].Status)
	assert.Empty(t, st.state.actions)
}

func TestFeatureListing(t *testing.T) {
	svc, st, feed := newFixture(t)
	ctx := context.Background()

	l, err := svc.FeatureListing(ctx, adminID, listingID, 5)
	require.NoError(t, err)

	state := l.PromotionState(listing.PromoFeatured, testNow)
	assert.True(t, state.Active)
	assert.Equal(t, testNow.Add(5*24*time.Hour), *state.Until)
	assert.False(t, l.PromotionState(listing.PromoFeatured, testNow.Add(6*24*time.Hour)).Active)

	require.Len(t, st.state.actions, 1)
	assert.Equal(t, "5 days", st.state.actions[0].Details)
	assert.Equal(t, 1, feed.n)

	_, err = svc.FeatureListing(ctx, adminID, listingID, 0)
	assert.ErrorIs(t, err, core.ErrInvalidInput)
	_, err = svc.FeatureListing(ctx, adminID, "nope", 3)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestModerationRoutes(t *testing.T) {
	svc, st, _ := newFixture(t)
	h := NewHandler(svc)

	as := func(id, role string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				ctx := middleware.WithClaims(r.Context(), &middleware.AccessTokenClaims{UserID: id, Role: role})
				next.ServeHTTP(w, r.WithContext(ctx))
			})
		}
	}

	r := chi.NewRouter()
	h.RegisterRoutes(r, as("reporter", "classified"), nil)
	h.RegisterAdminRoutes(r, as(adminID, "admin"), middleware.RequireAdmin)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/flags",
		strings.NewReader(`{"content_type":"listing","content_id":"`+listingID+`","reason":"scam"}`)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/flags",
		strings.NewReader(`{"content_type":"comment","content_id":"`+listingID+`","reason":"scam"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/moderation/flags", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"reason":"scam"`)

	var flagID string
	for id := range st.state.flags {
		flagID = id
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/moderation/flags/"+flagID+"/review",
		strings.NewReader(`{"status":"approved"}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/moderation/flags/"+flagID+"/review",
		strings.NewReader(`{"status":"approved"}`)))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/moderation/listings/missing/feature",
		strings.NewReader(`{"days":3}`)))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
