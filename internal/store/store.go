// AngelaMos | 2026
// store.go

package store

import (
	"context"
	"time"

	"github.com/carterperez-dev/lovelistings/internal/listing"
	"github.com/carterperez-dev/lovelistings/internal/user"
	"github.com/carterperez-dev/lovelistings/internal/wallet"
)

// Tx is the set of record operations the lifecycle and billing flows need.
// Outside InTx each call runs on its own.
type Tx interface {
	GetUser(ctx context.Context, id string) (*user.User, error)
	// LockUser reads the user and holds a row lock until the transaction
	// ends. Every balance-changing flow locks the user first.
	LockUser(ctx context.Context, id string) (*user.User, error)
	// AdjustCoins returns ErrInsufficientFunds rather than let the balance
	// go negative.
	AdjustCoins(ctx context.Context, id string, delta int) (int, error)
	UpdateTier(ctx context.Context, id, tier string, expires *time.Time) error

	GetListing(ctx context.Context, id string) (*listing.Listing, error)
	GetUserListings(ctx context.Context, ownerID string) ([]listing.Listing, error)
	CreateListing(ctx context.Context, l *listing.Listing) error
	SetListingStatus(ctx context.Context, id string, status listing.Status) error
	// BumpListing only applies if last_bump_at still equals prev, otherwise
	// ErrConflict.
	BumpListing(ctx context.Context, id string, prev *time.Time, now time.Time) (*listing.Listing, error)
	// SetAvailableNow only applies if available_until still equals
	// prevUntil, otherwise ErrConflict.
	SetAvailableNow(
		ctx context.Context,
		id string,
		enabled bool,
		until, prevUntil *time.Time,
	) (*listing.Listing, error)
	ApplyPromotion(
		ctx context.Context,
		id string,
		p listing.Promotion,
		until time.Time,
	) (*listing.Listing, error)

	CreateTransaction(ctx context.Context, t *wallet.Transaction) error
	ListTransactions(ctx context.Context, userID string, limit int) ([]wallet.Transaction, error)
	CreateReceipt(ctx context.Context, r *wallet.UpgradeReceipt) error

	CreatePayment(ctx context.Context, p *wallet.Payment) error
	GetPayment(ctx context.Context, id string) (*wallet.Payment, error)
	CompletePayment(ctx context.Context, id string, now time.Time) (*wallet.Payment, error)
}

type Store interface {
	Tx
	// InTx runs fn atomically. Any error from fn rolls back every write it
	// made.
	InTx(ctx context.Context, fn func(tx Tx) error) error
}
