// AngelaMos | 2026
// sql.go

package store

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/carterperez-dev/lovelistings/internal/core"
	"github.com/carterperez-dev/lovelistings/internal/listing"
	"github.com/carterperez-dev/lovelistings/internal/user"
	"github.com/carterperez-dev/lovelistings/internal/wallet"
)

// SQLStore composes the package repositories over one connection or one
// open transaction.
type SQLStore struct {
	db       *sqlx.DB
	users    user.Repository
	listings listing.Repository
	wallet   wallet.Repository
}

func NewSQLStore(db *sqlx.DB) *SQLStore {
	s := bind(db)
	s.db = db
	return s
}

func bind(db core.DBTX) *SQLStore {
	return &SQLStore{
		users:    user.NewRepository(db),
		listings: listing.NewRepository(db),
		wallet:   wallet.NewRepository(db),
	}
}

// InTx on a store that is already bound to a transaction joins it.
func (s *SQLStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	if s.db == nil {
		return fn(s)
	}
	return core.InTx(ctx, s.db, func(tx *sqlx.Tx) error {
		return fn(bind(tx))
	})
}

func (s *SQLStore) GetUser(ctx context.Context, id string) (*user.User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *SQLStore) LockUser(ctx context.Context, id string) (*user.User, error) {
	return s.users.LockByID(ctx, id)
}

func (s *SQLStore) AdjustCoins(ctx context.Context, id string, delta int) (int, error) {
	return s.users.AdjustCoins(ctx, id, delta)
}

func (s *SQLStore) UpdateTier(ctx context.Context, id, tier string, expires *time.Time) error {
	return s.users.UpdateTier(ctx, id, tier, expires)
}

func (s *SQLStore) GetListing(ctx context.Context, id string) (*listing.Listing, error) {
	return s.listings.GetByID(ctx, id)
}

func (s *SQLStore) GetUserListings(ctx context.Context, ownerID string) ([]listing.Listing, error) {
	return s.listings.ListByOwner(ctx, ownerID)
}

func (s *SQLStore) CreateListing(ctx context.Context, l *listing.Listing) error {
	return s.listings.Create(ctx, l)
}

func (s *SQLStore) SetListingStatus(ctx context.Context, id string, status listing.Status) error {
	return s.listings.SetStatus(ctx, id, status)
}

func (s *SQLStore) BumpListing(
	ctx context.Context,
	id string,
	prev *time.Time,
	now time.Time,
) (*listing.Listing, error) {
	return s.listings.Bump(ctx, id, prev, now)
}

func (s *SQLStore) SetAvailableNow(
	ctx context.Context,
	id string,
	enabled bool,
	until, prevUntil *time.Time,
) (*listing.Listing, error) {
	return s.listings.SetAvailableNow(ctx, id, enabled, until, prevUntil)
}

func (s *SQLStore) ApplyPromotion(
	ctx context.Context,
	id string,
	p listing.Promotion,
	until time.Time,
) (*listing.Listing, error) {
	return s.listings.ApplyPromotion(ctx, id, p, until)
}

func (s *SQLStore) CreateTransaction(ctx context.Context, t *wallet.Transaction) error {
	return s.wallet.CreateTransaction(ctx, t)
}

func (s *SQLStore) ListTransactions(
	ctx context.Context,
	userID string,
	limit int,
) ([]wallet.Transaction, error) {
	return s.wallet.ListTransactions(ctx, userID, limit)
}

func (s *SQLStore) CreateReceipt(ctx context.Context, r *wallet.UpgradeReceipt) error {
	return s.wallet.CreateReceipt(ctx, r)
}

func (s *SQLStore) CreatePayment(ctx context.Context, p *wallet.Payment) error {
	return s.wallet.CreatePayment(ctx, p)
}

func (s *SQLStore) GetPayment(ctx context.Context, id string) (*wallet.Payment, error) {
	return s.wallet.GetPayment(ctx, id)
}

func (s *SQLStore) CompletePayment(
	ctx context.Context,
	id string,
	now time.Time,
) (*wallet.Payment, error) {
	return s.wallet.CompletePayment(ctx, id, now)
}

var _ Store = (*SQLStore)(nil)
