// AngelaMos | 2026
// memory.go

package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/carterperez-dev/lovelistings/internal/core"
	"github.com/carterperez-dev/lovelistings/internal/listing"
	"github.com/carterperez-dev/lovelistings/internal/user"
	"github.com/carterperez-dev/lovelistings/internal/wallet"
)

// MemoryStore keeps everything in maps behind one mutex. InTx holds the
// mutex for the whole callback and restores a snapshot if it fails, which
// gives serializable transactions.
type MemoryStore struct {
	mu    sync.Mutex
	state *memState
}

type memState struct {
	users        map[string]*user.User
	listings     map[string]*listing.Listing
	transactions []wallet.Transaction
	receipts     []wallet.UpgradeReceipt
	payments     map[string]*wallet.Payment
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: &memState{
		users:    map[string]*user.User{},
		listings: map[string]*listing.Listing{},
		payments: map[string]*wallet.Payment{},
	}}
}

func (s *memState) clone() *memState {
	c := &memState{
		users:        make(map[string]*user.User, len(s.users)),
		listings:     make(map[string]*listing.Listing, len(s.listings)),
		transactions: append([]wallet.Transaction(nil), s.transactions...),
		receipts:     append([]wallet.UpgradeReceipt(nil), s.receipts...),
		payments:     make(map[string]*wallet.Payment, len(s.payments)),
	}
	for id, u := range s.users {
		c.users[id] = cloneUser(u)
	}
	for id, l := range s.listings {
		c.listings[id] = l.Clone()
	}
	for id, p := range s.payments {
		cp := *p
		c.payments[id] = &cp
	}
	return c
}

func cloneUser(u *user.User) *user.User {
	c := *u
	if u.TierExpires != nil {
		t := *u.TierExpires
		c.TierExpires = &t
	}
	if u.DeletedAt != nil {
		t := *u.DeletedAt
		c.DeletedAt = &t
	}
	return &c
}

func (s *MemoryStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	snapshot := s.state.clone()
	if err := fn(&memTx{state: s.state}); err != nil {
		s.state = snapshot
		return err
	}
	return nil
}

func (s *MemoryStore) run(fn func(tx *memTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&memTx{state: s.state})
}

// PutUser inserts or replaces a user as-is, for seeding.
func (s *MemoryStore) PutUser(u *user.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.users[u.ID] = cloneUser(u)
}

// PutListing inserts or replaces a listing as-is, for seeding.
func (s *MemoryStore) PutListing(l *listing.Listing) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.listings[l.ID] = l.Clone()
}

// Receipts returns every stored upgrade receipt for userID.
func (s *MemoryStore) Receipts(userID string) []wallet.UpgradeReceipt {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []wallet.UpgradeReceipt
	for _, r := range s.state.receipts {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out
}

type memTx struct {
	state *memState
}

func (t *memTx) user(op, id string) (*user.User, error) {
	u, ok := t.state.users[id]
	if !ok || u.IsDeleted() {
		return nil, fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}
	return u, nil
}

func (t *memTx) listing(op, id string) (*listing.Listing, error) {
	l, ok := t.state.listings[id]
	if !ok || l.Status == listing.StatusRemoved {
		return nil, fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}
	return l, nil
}

func (t *memTx) GetUser(_ context.Context, id string) (*user.User, error) {
	u, err := t.user("get user", id)
	if err != nil {
		return nil, err
	}
	return cloneUser(u), nil
}

func (t *memTx) LockUser(ctx context.Context, id string) (*user.User, error) {
	return t.GetUser(ctx, id)
}

func (t *memTx) AdjustCoins(_ context.Context, id string, delta int) (int, error) {
	u, err := t.user("adjust coins", id)
	if err != nil {
		return 0, err
	}
	if u.LoveCoins+delta < 0 {
		return 0, fmt.Errorf("adjust coins: %w", core.ErrInsufficientFunds)
	}
	u.LoveCoins += delta
	return u.LoveCoins, nil
}

func (t *memTx) UpdateTier(_ context.Context, id, tier string, expires *time.Time) error {
	u, err := t.user("update tier", id)
	if err != nil {
		return err
	}
	u.Tier = tier
	u.TierExpires = nil
	if expires != nil {
		e := *expires
		u.TierExpires = &e
	}
	return nil
}

func (t *memTx) GetListing(_ context.Context, id string) (*listing.Listing, error) {
	l, err := t.listing("get listing", id)
	if err != nil {
		return nil, err
	}
	return l.Clone(), nil
}

func (t *memTx) GetUserListings(_ context.Context, ownerID string) ([]listing.Listing, error) {
	var out []listing.Listing
	for _, l := range t.state.listings {
		if l.OwnerID == ownerID && l.Status != listing.StatusRemoved {
			out = append(out, *l.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BumpedAt.After(out[j].BumpedAt) })
	return out, nil
}

func (t *memTx) CreateListing(_ context.Context, l *listing.Listing) error {
	if _, ok := t.state.listings[l.ID]; ok {
		return fmt.Errorf("create listing: %w", core.ErrDuplicateKey)
	}
	for _, other := range t.state.listings {
		if other.Slug == l.Slug {
			return fmt.Errorf("create listing: %w", core.ErrDuplicateKey)
		}
	}
	now := time.Now()
	l.CreatedAt, l.UpdatedAt = now, now
	t.state.listings[l.ID] = l.Clone()
	return nil
}

func (t *memTx) SetListingStatus(_ context.Context, id string, status listing.Status) error {
	if !status.Valid() {
		return fmt.Errorf("set status %q: %w", status, core.ErrInvalidInput)
	}
	l, err := t.listing("set status", id)
	if err != nil {
		return err
	}
	l.Status = status
	l.UpdatedAt = time.Now()
	return nil
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func (t *memTx) BumpListing(
	_ context.Context,
	id string,
	prev *time.Time,
	now time.Time,
) (*listing.Listing, error) {
	l, err := t.listing("bump listing", id)
	if err != nil {
		return nil, err
	}
	if !sameTime(l.LastBumpAt, prev) {
		return nil, fmt.Errorf("bump listing: %w", core.ErrConflict)
	}
	at := now
	l.BumpedAt, l.LastBumpAt = now, &at
	l.BumpCount++
	l.UpdatedAt = now
	return l.Clone(), nil
}

func (t *memTx) SetAvailableNow(
	_ context.Context,
	id string,
	enabled bool,
	until, prevUntil *time.Time,
) (*listing.Listing, error) {
	l, err := t.listing("set available now", id)
	if err != nil {
		return nil, err
	}
	if !sameTime(l.AvailableUntil, prevUntil) {
		return nil, fmt.Errorf("set available now: %w", core.ErrConflict)
	}
	var u *time.Time
	if until != nil {
		v := *until
		u = &v
	}
	l.SetWindow(listing.PromoAvailableNow, listing.Window{Enabled: enabled, Until: u})
	return l.Clone(), nil
}

func (t *memTx) ApplyPromotion(
	_ context.Context,
	id string,
	p listing.Promotion,
	until time.Time,
) (*listing.Listing, error) {
	l, err := t.listing("apply promotion", id)
	if err != nil {
		return nil, err
	}
	l.SetWindow(p, listing.Window{Enabled: true, Until: &until})
	return l.Clone(), nil
}

func (t *memTx) CreateTransaction(_ context.Context, tr *wallet.Transaction) error {
	if _, err := t.user("create transaction", tr.UserID); err != nil {
		return err
	}
	tr.CreatedAt = time.Now()
	t.state.transactions = append(t.state.transactions, *tr)
	return nil
}

func (t *memTx) ListTransactions(
	_ context.Context,
	userID string,
	limit int,
) ([]wallet.Transaction, error) {
	var out []wallet.Transaction
	for i := len(t.state.transactions) - 1; i >= 0 && len(out) < limit; i-- {
		if t.state.transactions[i].UserID == userID {
			out = append(out, t.state.transactions[i])
		}
	}
	return out, nil
}

func (t *memTx) CreateReceipt(_ context.Context, r *wallet.UpgradeReceipt) error {
	r.PurchasedAt = time.Now()
	t.state.receipts = append(t.state.receipts, *r)
	return nil
}

func (t *memTx) CreatePayment(_ context.Context, p *wallet.Payment) error {
	if _, ok := t.state.payments[p.ID]; ok {
		return fmt.Errorf("create payment: %w", core.ErrDuplicateKey)
	}
	p.CreatedAt = time.Now()
	cp := *p
	t.state.payments[p.ID] = &cp
	return nil
}

func (t *memTx) GetPayment(_ context.Context, id string) (*wallet.Payment, error) {
	p, ok := t.state.payments[id]
	if !ok {
		return nil, fmt.Errorf("get payment: %w", core.ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (t *memTx) CompletePayment(_ context.Context, id string, now time.Time) (*wallet.Payment, error) {
	p, ok := t.state.payments[id]
	if !ok {
		return nil, fmt.Errorf("complete payment: %w", core.ErrNotFound)
	}
	if p.Status != wallet.PaymentPending || !now.Before(p.ExpiresAt) {
		return nil, fmt.Errorf("complete payment: %w", core.ErrConflict)
	}
	at := now
	p.Status, p.CompletedAt = wallet.PaymentCompleted, &at
	cp := *p
	return &cp, nil
}

func (s *MemoryStore) GetUser(ctx context.Context, id string) (u *user.User, err error) {
	err = s.run(func(tx *memTx) error { u, err = tx.GetUser(ctx, id); return err })
	return u, err
}

func (s *MemoryStore) LockUser(ctx context.Context, id string) (*user.User, error) {
	return s.GetUser(ctx, id)
}

func (s *MemoryStore) AdjustCoins(ctx context.Context, id string, delta int) (n int, err error) {
	err = s.run(func(tx *memTx) error { n, err = tx.AdjustCoins(ctx, id, delta); return err })
	return n, err
}

func (s *MemoryStore) UpdateTier(ctx context.Context, id, tier string, expires *time.Time) error {
	return s.run(func(tx *memTx) error { return tx.UpdateTier(ctx, id, tier, expires) })
}

func (s *MemoryStore) GetListing(ctx context.Context, id string) (l *listing.Listing, err error) {
	err = s.run(func(tx *memTx) error { l, err = tx.GetListing(ctx, id); return err })
	return l, err
}

func (s *MemoryStore) GetUserListings(ctx context.Context, ownerID string) (out []listing.Listing, err error) {
	err = s.run(func(tx *memTx) error { out, err = tx.GetUserListings(ctx, ownerID); return err })
	return out, err
}

func (s *MemoryStore) CreateListing(ctx context.Context, l *listing.Listing) error {
	return s.run(func(tx *memTx) error { return tx.CreateListing(ctx, l) })
}

func (s *MemoryStore) SetListingStatus(ctx context.Context, id string, status listing.Status) error {
	return s.run(func(tx *memTx) error { return tx.SetListingStatus(ctx, id, status) })
}

func (s *MemoryStore) BumpListing(
	ctx context.Context,
	id string,
	prev *time.Time,
	now time.Time,
) (l *listing.Listing, err error) {
	err = s.run(func(tx *memTx) error { l, err = tx.BumpListing(ctx, id, prev, now); return err })
	return l, err
}

func (s *MemoryStore) SetAvailableNow(
	ctx context.Context,
	id string,
	enabled bool,
	until, prevUntil *time.Time,
) (l *listing.Listing, err error) {
	err = s.run(func(tx *memTx) error {
		l, err = tx.SetAvailableNow(ctx, id, enabled, until, prevUntil)
		return err
	})
	return l, err
}

func (s *MemoryStore) ApplyPromotion(
	ctx context.Context,
	id string,
	p listing.Promotion,
	until time.Time,
) (l *listing.Listing, err error) {
	err = s.run(func(tx *memTx) error { l, err = tx.ApplyPromotion(ctx, id, p, until); return err })
	return l, err
}

func (s *MemoryStore) CreateTransaction(ctx context.Context, t *wallet.Transaction) error {
	return s.run(func(tx *memTx) error { return tx.CreateTransaction(ctx, t) })
}

func (s *MemoryStore) ListTransactions(
	ctx context.Context,
	userID string,
	limit int,
) (out []wallet.Transaction, err error) {
	err = s.run(func(tx *memTx) error { out, err = tx.ListTransactions(ctx, userID, limit); return err })
	return out, err
}

func (s *MemoryStore) CreateReceipt(ctx context.Context, r *wallet.UpgradeReceipt) error {
	return s.run(func(tx *memTx) error { return tx.CreateReceipt(ctx, r) })
}

func (s *MemoryStore) CreatePayment(ctx context.Context, p *wallet.Payment) error {
	return s.run(func(tx *memTx) error { return tx.CreatePayment(ctx, p) })
}

func (s *MemoryStore) GetPayment(ctx context.Context, id string) (p *wallet.Payment, err error) {
	err = s.run(func(tx *memTx) error { p, err = tx.GetPayment(ctx, id); return err })
	return p, err
}

func (s *MemoryStore) CompletePayment(
	ctx context.Context,
	id string,
	now time.Time,
) (p *wallet.Payment, err error) {
	err = s.run(func(tx *memTx) error { p, err = tx.CompletePayment(ctx, id, now); return err })
	return p, err
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Tx    = (*memTx)(nil)
)
