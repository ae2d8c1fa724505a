// AngelaMos | 2026
// billing_test.go

package billing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/lovelistings/internal/config"
	"github.com/carterperez-dev/lovelistings/internal/core"
	"github.com/carterperez-dev/lovelistings/internal/middleware"
	"github.com/carterperez-dev/lovelistings/internal/store"
	"github.com/carterperez-dev/lovelistings/internal/tier"
	"github.com/carterperez-dev/lovelistings/internal/user"
	"github.com/carterperez-dev/lovelistings/internal/wallet"
)

var testNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, u *user.User) (*Service, *store.MemoryStore, *time.Time) {
	t.Helper()
	st := store.NewMemoryStore()
	st.PutUser(u)

	svc := NewService(st, config.PaymentsConfig{
		MinCoins:   100,
		BTCPerCoin: 0.00001,
		PaymentTTL: time.Hour,
	}, nil)

	now := testNow
	svc.now = func() time.Time { return now }
	return svc, st, &now
}

func TestFormatBTC(t *testing.T) {
	assert.Equal(t, "0.001", FormatBTC(100_000))
	assert.Equal(t, "1", FormatBTC(100_000_000))
	assert.Equal(t, "0.00000001", FormatBTC(1))
	assert.Equal(t, "2.5", FormatBTC(250_000_000))
}

func TestCreatePayment(t *testing.T) {
	svc, _, _ := newTestService(t, &user.User{ID: "u1"})

	_, err := svc.CreatePayment(context.Background(), "u1", 99)
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	p, err := svc.CreatePayment(context.Background(), "u1", 250)
	require.NoError(t, err)
	assert.Equal(t, int64(250_000), p.AmountSats)
	assert.Equal(t, wallet.PaymentPending, p.Status)
	assert.True(t, strings.HasPrefix(p.PaymentAddress, "bc1q"))
	assert.Equal(t, "bitcoin:"+p.PaymentAddress+"?amount=0.0025", p.QRCodeData)
	assert.Equal(t, testNow.Add(time.Hour), p.ExpiresAt)
}

func TestCompletePaymentCreditsOnce(t *testing.T) {
	svc, st, _ := newTestService(t, &user.User{ID: "u1", LoveCoins: 10})
	ctx := context.Background()

	p, err := svc.CreatePayment(ctx, "u1", 100)
	require.NoError(t, err)

	_, err = svc.CompletePayment(ctx, "intruder", p.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)

	done, err := svc.CompletePayment(ctx, "u1", p.ID)
	require.NoError(t, err)
	assert.Equal(t, wallet.PaymentCompleted, done.Status)

	_, err = svc.CompletePayment(ctx, "u1", p.ID)
	assert.ErrorIs(t, err, core.ErrConflict)

	u, _ := st.GetUser(ctx, "u1")
	assert.Equal(t, 110, u.LoveCoins)

	txs, _ := st.ListTransactions(ctx, "u1", 10)
	require.Len(t, txs, 1)
	assert.Equal(t, wallet.TypeCredit, txs[0].Type)
	assert.Equal(t, 100, txs[0].Amount)
}

func TestExpiredPaymentCannotComplete(t *testing.T) {
	svc, st, now := newTestService(t, &user.User{ID: "u1"})
	ctx := context.Background()

	p, err := svc.CreatePayment(ctx, "u1", 100)
	require.NoError(t, err)

	*now = testNow.Add(time.Hour)

	got, err := svc.GetPayment(ctx, "u1", p.ID)
	require.NoError(t, err)
	assert.Equal(t, wallet.PaymentExpired, got.Status)

	_, err = svc.CompletePayment(ctx, "u1", p.ID)
	assert.ErrorIs(t, err, core.ErrConflict)

	u, _ := st.GetUser(ctx, "u1")
	assert.Zero(t, u.LoveCoins)
}

func TestGetPaymentHidesOtherUsers(t *testing.T) {
	svc, st, _ := newTestService(t, &user.User{ID: "u1"})
	st.PutUser(&user.User{ID: "u2"})

	p, err := svc.CreatePayment(context.Background(), "u1", 100)
	require.NoError(t, err)

	_, err = svc.GetPayment(context.Background(), "u2", p.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestPurchaseMembership(t *testing.T) {
	svc, st, now := newTestService(t, &user.User{ID: "u1", Tier: "free", LoveCoins: 250})
	ctx := context.Background()

	res, err := svc.PurchaseMembership(ctx, "u1", "vip")
	require.NoError(t, err)
	assert.Equal(t, tier.VIP, res.Tier)
	assert.Equal(t, 151, res.Balance)
	assert.Equal(t, testNow.Add(30*24*time.Hour), res.ExpiresAt)

	*now = testNow.Add(10 * 24 * time.Hour)
	res, err = svc.PurchaseMembership(ctx, "u1", "vip")
	require.NoError(t, err)
	assert.Equal(t, testNow.Add(60*24*time.Hour), res.ExpiresAt)
	assert.Equal(t, 52, res.Balance)

	_, err = svc.PurchaseMembership(ctx, "u1", "elite")
	assert.ErrorIs(t, err, core.ErrInsufficientFunds)

	u, _ := st.GetUser(ctx, "u1")
	assert.Equal(t, "vip", u.Tier)
	assert.Equal(t, 52, u.LoveCoins)

	_, err = svc.PurchaseMembership(ctx, "u1", "free")
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestLapsedTierRenewsFromNow(t *testing.T) {
	lapsed := testNow.Add(-time.Hour)
	svc, _, _ := newTestService(t, &user.User{ID: "u1", Tier: "basic", TierExpires: &lapsed, LoveCoins: 49})

	res, err := svc.PurchaseMembership(context.Background(), "u1", "basic")
	require.NoError(t, err)
	assert.Equal(t, testNow.Add(30*24*time.Hour), res.ExpiresAt)
	assert.Zero(t, res.Balance)
}

func TestHistoryNewestFirst(t *testing.T) {
	svc, _, _ := newTestService(t, &user.User{ID: "u1", LoveCoins: 500})
	ctx := context.Background()

	_, err := svc.PurchaseMembership(ctx, "u1", "basic")
	require.NoError(t, err)
	p, err := svc.CreatePayment(ctx, "u1", 100)
	require.NoError(t, err)
	_, err = svc.CompletePayment(ctx, "u1", p.ID)
	require.NoError(t, err)

	txs, err := svc.History(ctx, "u1", 0)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, wallet.TypeCredit, txs[0].Type)
	assert.Equal(t, -49, txs[1].Amount)
}

func TestHandlerFlow(t *testing.T) {
	svc, _, _ := newTestService(t, &user.User{ID: "u1"})
	r := chi.NewRouter()
	auth := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := middleware.WithClaims(r.Context(), &middleware.AccessTokenClaims{UserID: "u1"})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
	NewHandler(svc).RegisterRoutes(r, auth, nil)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/payments/bitcoin",
		strings.NewReader(`{"tokens_amount":50}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/payments/bitcoin",
		strings.NewReader(`{"tokens_amount":100}`)))
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		Data PaymentResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "0.001", created.Data.AmountBTC)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost,
		"/payments/bitcoin/"+created.Data.ID+"/complete", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost,
		"/payments/bitcoin/"+created.Data.ID+"/complete", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/wallet", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"balance":100`)
}
