// AngelaMos | 2026
// store.go

package moderation

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/carterperez-dev/lovelistings/internal/core"
	"github.com/carterperez-dev/lovelistings/internal/listing"
)

// Tx is what a review or admin listing action may touch. Everything in
// one InTx call commits together with its audit entry.
type Tx interface {
	Repository
	SetListingStatus(ctx context.Context, id string, status listing.Status) error
	FeatureListing(ctx context.Context, id string, until time.Time) (*listing.Listing, error)
}

type Store interface {
	Tx
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

type sqlStore struct {
	Repository
	db       *sqlx.DB
	listings listing.Repository
}

func NewSQLStore(db *sqlx.DB) Store {
	s := bindStore(db)
	s.db = db
	return s
}

func bindStore(db core.DBTX) *sqlStore {
	return &sqlStore{
		Repository: NewRepository(db),
		listings:   listing.NewRepository(db),
	}
}

func (s *sqlStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	if s.db == nil {
		return fn(s)
	}
	return core.InTx(ctx, s.db, func(tx *sqlx.Tx) error {
		return fn(bindStore(tx))
	})
}

func (s *sqlStore) SetListingStatus(ctx context.Context, id string, status listing.Status) error {
	return s.listings.SetStatus(ctx, id, status)
}

func (s *sqlStore) FeatureListing(
	ctx context.Context,
	id string,
	until time.Time,
) (*listing.Listing, error) {
	return s.listings.ApplyPromotion(ctx, id, listing.PromoFeatured, until)
}
