// AngelaMos | 2026
// service_test.go

package lifecycle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/lovelistings/internal/config"
	"github.com/carterperez-dev/lovelistings/internal/core"
	"github.com/carterperez-dev/lovelistings/internal/listing"
	"github.com/carterperez-dev/lovelistings/internal/middleware"
	"github.com/carterperez-dev/lovelistings/internal/store"
	"github.com/carterperez-dev/lovelistings/internal/tier"
	"github.com/carterperez-dev/lovelistings/internal/user"
	"github.com/carterperez-dev/lovelistings/internal/wallet"
)

type countingFeed struct {
	n atomic.Int32
}

func (c *countingFeed) Invalidate(context.Context) { c.n.Add(1) }

type fixture struct {
	store *store.MemoryStore
	svc   *Service
	feed  *countingFeed
	now   time.Time
}

func newFixture(t *testing.T, lvl tier.Level, coins int) *fixture {
	t.Helper()
	st := store.NewMemoryStore()
	st.PutUser(&user.User{ID: "u1", Email: "u1@example.com", Tier: string(lvl), LoveCoins: coins})
	return newFixtureWith(t, st, st)
}

func newFixtureWith(t *testing.T, mem *store.MemoryStore, st store.Store) *fixture {
	t.Helper()
	feed := &countingFeed{}
	cfg := config.LifecycleConfig{EnforceTierFeatures: true, UpgradeDays: 7}
	svc := NewService(st, NewEngine(cfg), cfg,
		config.MediaConfig{EnforceListingImageTotal: true}, feed, nil)

	f := &fixture{store: mem, svc: svc, feed: feed, now: testNow}
	svc.now = func() time.Time { return f.now }
	return f
}

func (f *fixture) seedListing(id string) {
	f.store.PutListing(&listing.Listing{
		ID:       id,
		OwnerID:  "u1",
		Title:    "Listing " + id,
		Slug:     "listing-" + id,
		Category: "companionship",
		Status:   listing.StatusActive,
		BumpedAt: testNow.Add(-48 * time.Hour),
	})
}

func (f *fixture) balance(t *testing.T) int {
	t.Helper()
	u, err := f.store.GetUser(context.Background(), "u1")
	require.NoError(t, err)
	return u.LoveCoins
}

func (f *fixture) ledger(t *testing.T) []wallet.Transaction {
	t.Helper()
	txs, err := f.store.ListTransactions(context.Background(), "u1", 100)
	require.NoError(t, err)
	return txs
}

func TestPurchaseHighlightScenario(t *testing.T) {
	f := newFixture(t, tier.VIP, 100)
	f.seedListing("l1")
	id := "l1"

	res, err := f.svc.PurchaseUpgrade(context.Background(), "u1", PurchaseUpgradeRequest{
		Type:      string(UpgradeHighlight),
		ListingID: &id,
	})
	require.NoError(t, err)

	assert.Equal(t, 50, f.balance(t))

	txs := f.ledger(t)
	require.Len(t, txs, 1)
	assert.Equal(t, -50, txs[0].Amount)
	assert.Equal(t, wallet.TypeDebit, txs[0].Type)

	l, err := f.store.GetListing(context.Background(), "l1")
	require.NoError(t, err)
	assert.True(t, l.IsHighlighted)
	require.NotNil(t, l.HighlightUntil)
	assert.Equal(t, testNow.Add(7*24*time.Hour), *l.HighlightUntil)

	receipts := f.store.Receipts("u1")
	require.Len(t, receipts, 1)
	assert.Equal(t, res.Receipt.ID, receipts[0].ID)
	assert.Equal(t, 50, receipts[0].TokensSpent)
	assert.Equal(t, int32(1), f.feed.n.Load())
}

func TestPurchaseUpgradeWithoutListingOrDuration(t *testing.T) {
	f := newFixture(t, tier.Free, 200)

	res, err := f.svc.PurchaseUpgrade(context.Background(), "u1", PurchaseUpgradeRequest{
		Type:         string(UpgradePaidListing),
		DurationDays: 3,
	})
	require.NoError(t, err)
	assert.Nil(t, res.Listing)
	assert.Equal(t, testNow.Add(72*time.Hour), res.Receipt.ExpiresAt)
	assert.Equal(t, 50, f.balance(t))
}

func TestPurchaseGatedUpgradeChargesNothing(t *testing.T) {
	f := newFixture(t, tier.Free, 500)
	f.seedListing("l1")
	id := "l1"

	_, err := f.svc.PurchaseUpgrade(context.Background(), "u1", PurchaseUpgradeRequest{
		Type:      string(UpgradeHighlight),
		ListingID: &id,
	})
	assert.ErrorIs(t, err, core.ErrForbidden)
	assert.Equal(t, 500, f.balance(t))
	assert.Empty(t, f.ledger(t))
	assert.Empty(t, f.store.Receipts("u1"))
}

func TestFreeBumpWithoutFundsScenario(t *testing.T) {
	f := newFixture(t, tier.Free, 5)
	f.seedListing("l1")

	_, err := f.svc.Bump(context.Background(), "u1", "l1")

	var d *Denial
	require.ErrorAs(t, err, &d)
	assert.ErrorIs(t, err, core.ErrInsufficientFunds)
	assert.Equal(t, 5, f.balance(t))
	assert.Empty(t, f.ledger(t))

	l, _ := f.store.GetListing(context.Background(), "l1")
	assert.Nil(t, l.LastBumpAt)
	assert.Zero(t, l.BumpCount)
}

func TestBumpChargesAndStartsCooldown(t *testing.T) {
	f := newFixture(t, tier.Free, 30)
	f.seedListing("l1")
	ctx := context.Background()

	l, err := f.svc.Bump(ctx, "u1", "l1")
	require.NoError(t, err)
	assert.Equal(t, 1, l.BumpCount)
	assert.Equal(t, testNow, l.BumpedAt)
	assert.Equal(t, 20, f.balance(t))
	assert.Len(t, f.ledger(t), 1)

	f.now = testNow.Add(30 * time.Minute)
	_, err = f.svc.Bump(ctx, "u1", "l1")
	assert.ErrorIs(t, err, core.ErrCooldownActive)

	d, err := f.svc.BumpEligibility(ctx, "u1", "l1")
	require.NoError(t, err)
	assert.Equal(t, 1410, d.Denial.RemainingMinutes())

	f.now = testNow.Add(24 * time.Hour)
	l, err = f.svc.Bump(ctx, "u1", "l1")
	require.NoError(t, err)
	assert.Equal(t, 2, l.BumpCount)
	assert.Equal(t, 10, f.balance(t))
}

func TestVIPBumpIsFreeAndWritesNoLedger(t *testing.T) {
	f := newFixture(t, tier.VIP, 0)
	f.seedListing("l1")

	_, err := f.svc.Bump(context.Background(), "u1", "l1")
	require.NoError(t, err)
	assert.Empty(t, f.ledger(t))
}

func TestBumpMissingListing(t *testing.T) {
	f := newFixture(t, tier.Elite, 0)
	_, err := f.svc.Bump(context.Background(), "u1", "nope")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestConcurrentBumpsApplyOnce(t *testing.T) {
	f := newFixture(t, tier.Elite, 0)
	f.seedListing("l1")

	var wg sync.WaitGroup
	var ok atomic.Int32
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.svc.Bump(context.Background(), "u1", "l1"); err == nil {
				ok.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), ok.Load())
	l, _ := f.store.GetListing(context.Background(), "l1")
	assert.Equal(t, 1, l.BumpCount)
}

func TestAvailableNowToggle(t *testing.T) {
	f := newFixture(t, tier.Free, 25)
	f.seedListing("l1")
	ctx := context.Background()

	l, err := f.svc.SetAvailableNow(ctx, "u1", "l1", true)
	require.NoError(t, err)
	assert.True(t, l.IsAvailableNow)
	assert.Equal(t, testNow.Add(4*time.Hour), *l.AvailableUntil)
	assert.Equal(t, 5, f.balance(t))

	l, err = f.svc.SetAvailableNow(ctx, "u1", "l1", false)
	require.NoError(t, err)
	assert.False(t, l.IsAvailableNow)
	require.NotNil(t, l.AvailableUntil)
	assert.Equal(t, testNow.Add(4*time.Hour), *l.AvailableUntil)
	assert.Equal(t, 5, f.balance(t))
	assert.Len(t, f.ledger(t), 1)

	f.now = testNow.Add(2 * time.Hour)
	_, err = f.svc.SetAvailableNow(ctx, "u1", "l1", true)
	assert.ErrorIs(t, err, core.ErrCooldownActive)
}

func TestCreateListingQuotaAndImages(t *testing.T) {
	f := newFixture(t, tier.Free, 0)
	ctx := context.Background()

	req := listing.CreateListingRequest{
		Title:    "Evening Walks",
		Category: "companionship",
		Images:   []string{"a.jpg", "b.jpg", "c.jpg"},
	}
	_, err := f.svc.CreateListing(ctx, "u1", req)
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	req.Images = req.Images[:2]
	l, err := f.svc.CreateListing(ctx, "u1", req)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(l.Slug, "evening-walks-"))
	assert.Equal(t, listing.StatusActive, l.Status)
	assert.Equal(t, testNow, l.BumpedAt)

	_, err = f.svc.CreateListing(ctx, "u1", req)
	assert.ErrorIs(t, err, core.ErrQuotaExceeded)

	require.NoError(t, f.store.UpdateTier(ctx, "u1", string(tier.Basic), nil))
	_, err = f.svc.CreateListing(ctx, "u1", req)
	assert.NoError(t, err)
}

func TestReactivationRespectsQuota(t *testing.T) {
	f := newFixture(t, tier.Free, 0)
	ctx := context.Background()
	f.seedListing("a")

	l, err := f.svc.SetStatus(ctx, "u1", "a", listing.StatusInactive)
	require.NoError(t, err)
	assert.Equal(t, listing.StatusInactive, l.Status)

	_, err = f.svc.CreateListing(ctx, "u1", listing.CreateListingRequest{
		Title:    "Second Listing",
		Category: "companionship",
	})
	require.NoError(t, err)

	_, err = f.svc.SetStatus(ctx, "u1", "a", listing.StatusActive)
	require.ErrorIs(t, err, core.ErrQuotaExceeded)

	stored, err := f.store.GetListing(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, listing.StatusInactive, stored.Status)

	mine, err := f.store.GetUserListings(ctx, "u1")
	require.NoError(t, err)
	active := 0
	for i := range mine {
		if mine[i].IsActive() {
			active++
		}
	}
	assert.Equal(t, 1, active)

	require.NoError(t, f.store.UpdateTier(ctx, "u1", string(tier.Basic), nil))
	l, err = f.svc.SetStatus(ctx, "u1", "a", listing.StatusActive)
	require.NoError(t, err)
	assert.Equal(t, listing.StatusActive, l.Status)
}

func TestSetStatusRemovedHidesListing(t *testing.T) {
	f := newFixture(t, tier.Free, 0)
	ctx := context.Background()
	f.seedListing("a")
	before := f.feed.n.Load()

	_, err := f.svc.SetStatus(ctx, "u1", "a", listing.StatusRemoved)
	require.NoError(t, err)
	assert.Greater(t, f.feed.n.Load(), before)

	_, err = f.store.GetListing(ctx, "a")
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = f.svc.SetStatus(ctx, "u1", "a", listing.StatusActive)
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = f.svc.SetStatus(ctx, "u1", "a", listing.Status("archived"))
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

// flakyStore makes the first matching write inside a transaction fail the
// way a lost race would.
type flakyStore struct {
	*store.MemoryStore
	bumpConflicts  atomic.Int32
	createDupFails atomic.Int32
}

type flakyTx struct {
	store.Tx
	parent *flakyStore
}

func (s *flakyStore) InTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return s.MemoryStore.InTx(ctx, func(tx store.Tx) error {
		return fn(&flakyTx{Tx: tx, parent: s})
	})
}

func (t *flakyTx) BumpListing(ctx context.Context, id string, prev *time.Time, now time.Time) (*listing.Listing, error) {
	if t.parent.bumpConflicts.Add(-1) >= 0 {
		return nil, core.ErrConflict
	}
	return t.Tx.BumpListing(ctx, id, prev, now)
}

func (t *flakyTx) CreateListing(ctx context.Context, l *listing.Listing) error {
	if t.parent.createDupFails.Add(-1) >= 0 {
		return core.ErrDuplicateKey
	}
	return t.Tx.CreateListing(ctx, l)
}

func TestConflictIsRetriedOnce(t *testing.T) {
	mem := store.NewMemoryStore()
	mem.PutUser(&user.User{ID: "u1", Tier: string(tier.Free), LoveCoins: 100})
	flaky := &flakyStore{MemoryStore: mem}
	f := newFixtureWith(t, mem, flaky)
	f.seedListing("l1")

	flaky.bumpConflicts.Store(1)
	_, err := f.svc.Bump(context.Background(), "u1", "l1")
	require.NoError(t, err)
	assert.Equal(t, 90, f.balance(t))
	assert.Len(t, f.ledger(t), 1)

	f.now = testNow.Add(48 * time.Hour)
	flaky.bumpConflicts.Store(2)
	_, err = f.svc.Bump(context.Background(), "u1", "l1")
	assert.ErrorIs(t, err, core.ErrConflict)
	assert.Equal(t, 90, f.balance(t))
}

func TestSlugCollisionRetriesWithFullID(t *testing.T) {
	mem := store.NewMemoryStore()
	mem.PutUser(&user.User{ID: "u1", Tier: string(tier.Elite)})
	flaky := &flakyStore{MemoryStore: mem}
	f := newFixtureWith(t, mem, flaky)

	flaky.createDupFails.Store(1)
	l, err := f.svc.CreateListing(context.Background(), "u1", listing.CreateListingRequest{
		Title:    "Same Title",
		Category: "companionship",
	})
	require.NoError(t, err)
	assert.Equal(t, listing.NewSlug("Same Title", l.ID, true), l.Slug)
}

func asUser(userID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := middleware.WithClaims(r.Context(), &middleware.AccessTokenClaims{UserID: userID})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]int `json:"details"`
	} `json:"error"`
}

func TestHandlerRendersDenials(t *testing.T) {
	f := newFixture(t, tier.Free, 5)
	f.seedListing("l1")

	r := chi.NewRouter()
	NewHandler(f.svc).RegisterRoutes(r, asUser("u1"), nil)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/listings/l1/bump", nil))
	require.Equal(t, http.StatusPaymentRequired, rec.Code)

	var body envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body.Error)
	assert.Equal(t, "INSUFFICIENT_FUNDS", body.Error.Code)
	assert.Equal(t, "Insufficient Love Coins: 10 required, 5 available", body.Error.Message)
	assert.Equal(t, 10, body.Error.Details["required"])

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/listings/l1/bump", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var elig struct {
		Data EligibilityResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &elig))
	assert.False(t, elig.Data.Allowed)
	assert.Equal(t, "INSUFFICIENT_FUNDS", elig.Data.Kind)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/listings/l1/available-now",
		strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/listings/missing/bump", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerStatusChange(t *testing.T) {
	f := newFixture(t, tier.Free, 0)
	f.seedListing("a")
	f.store.PutListing(&listing.Listing{
		ID:       "b",
		OwnerID:  "u1",
		Title:    "Listing b",
		Slug:     "listing-b",
		Category: "companionship",
		Status:   listing.StatusInactive,
		BumpedAt: testNow,
	})

	r := chi.NewRouter()
	NewHandler(f.svc).RegisterRoutes(r, asUser("u1"), nil)

	put := func(id, body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/listings/"+id+"/status",
			strings.NewReader(body)))
		return rec
	}

	rec := put("b", `{"status":"active"}`)
	require.Equal(t, http.StatusForbidden, rec.Code)
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "QUOTA_EXCEEDED", env.Error.Code)
	assert.Equal(t, 1, env.Error.Details["limit"])

	assert.Equal(t, http.StatusBadRequest, put("b", `{"status":"archived"}`).Code)
	assert.Equal(t, http.StatusOK, put("a", `{"status":"inactive"}`).Code)
	assert.Equal(t, http.StatusOK, put("b", `{"status":"active"}`).Code)

	f.store.PutUser(&user.User{ID: "intruder", Tier: string(tier.Elite)})
	rec = httptest.NewRecorder()
	other := chi.NewRouter()
	NewHandler(f.svc).RegisterRoutes(other, asUser("intruder"), nil)
	other.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/listings/a/status",
		strings.NewReader(`{"status":"removed"}`)))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandlerCreatesListing(t *testing.T) {
	f := newFixture(t, tier.Free, 0)

	r := chi.NewRouter()
	NewHandler(f.svc).RegisterRoutes(r, asUser("u1"), nil)

	body := `{"title":"Sunday Brunch","category":"dining","images":["a.jpg"]}`
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/listings", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/listings", strings.NewReader(body)))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "QUOTA_EXCEEDED", env.Error.Code)
	assert.Equal(t, 1, env.Error.Details["limit"])
}
