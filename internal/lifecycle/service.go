// AngelaMos | 2026
// service.go

package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/lovelistings/internal/config"
	"github.com/carterperez-dev/lovelistings/internal/core"
	"github.com/carterperez-dev/lovelistings/internal/listing"
	"github.com/carterperez-dev/lovelistings/internal/metrics"
	"github.com/carterperez-dev/lovelistings/internal/store"
	"github.com/carterperez-dev/lovelistings/internal/user"
	"github.com/carterperez-dev/lovelistings/internal/wallet"
)

// FeedInvalidator is told whenever an applied action changes feed order or
// promotion state.
type FeedInvalidator interface {
	Invalidate(ctx context.Context)
}

// Service runs each action as decide then apply. The apply step locks the
// user, reloads, decides again and writes with conditional updates, all in
// one transaction. A lost optimistic race is retried once.
type Service struct {
	store  store.Store
	engine *Engine
	cfg    config.LifecycleConfig
	media  config.MediaConfig
	feed   FeedInvalidator
	logger *slog.Logger
	now    func() time.Time
}

func NewService(
	st store.Store,
	engine *Engine,
	cfg config.LifecycleConfig,
	media config.MediaConfig,
	feed FeedInvalidator,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  st,
		engine: engine,
		cfg:    cfg,
		media:  media,
		feed:   feed,
		logger: logger,
		now:    time.Now,
	}
}

func (s *Service) run(ctx context.Context, action string, fn func(tx store.Tx, now time.Time) error) error {
	attempt := func() error {
		return s.store.InTx(ctx, func(tx store.Tx) error {
			return fn(tx, s.now())
		})
	}

	err := attempt()
	if errors.Is(err, core.ErrConflict) {
		metrics.RecordConflict(action)
		s.logger.InfoContext(ctx, "retrying after concurrent update", "action", action)
		err = attempt()
	}

	var d *Denial
	if errors.As(err, &d) {
		metrics.RecordDenial(action, d.Kind)
	}
	return err
}

func (s *Service) invalidate(ctx context.Context) {
	if s.feed != nil {
		s.feed.Invalidate(ctx)
	}
}

func (s *Service) CreateListing(
	ctx context.Context,
	userID string,
	req listing.CreateListingRequest,
) (created *listing.Listing, err error) {
	ctx, span := core.StartSpan(ctx, "lifecycle.create_listing",
		attribute.String("user.id", userID))
	defer func() { core.EndSpan(span, err) }()

	id := uuid.New().String()
	var tierName string

	create := func(longSlug bool) error {
		return s.run(ctx, "create_listing", func(tx store.Tx, now time.Time) error {
			u, err := tx.LockUser(ctx, userID)
			if err != nil {
				return err
			}
			existing, err := tx.GetUserListings(ctx, userID)
			if err != nil {
				return err
			}

			if err := s.engine.CanCreateListing(u, existing).Err(); err != nil {
				return err
			}
			if s.media.EnforceListingImageTotal {
				if err := listing.CheckImageCount(u.Entitlements(), len(req.Images)); err != nil {
					return err
				}
			}

			l := &listing.Listing{
				ID:          id,
				OwnerID:     userID,
				Title:       core.PlainText(req.Title),
				Slug:        listing.NewSlug(req.Title, id, longSlug),
				Tagline:     core.PlainText(req.Tagline),
				Description: core.RichText(req.Description),
				Category:    req.Category,
				Subcategory: req.Subcategory,
				City:        req.City,
				State:       req.State,
				Country:     req.Country,
				PriceTokens: req.PriceTokens,
				Images:      listing.StringList(req.Images),
				Status:      listing.StatusActive,
				BumpedAt:    now,
			}
			if err := tx.CreateListing(ctx, l); err != nil {
				return err
			}

			created = l
			tierName = string(u.TierLevel())
			return nil
		})
	}

	err = create(false)
	if errors.Is(err, core.ErrDuplicateKey) {
		err = create(true)
	}
	if err != nil {
		return nil, err
	}

	metrics.RecordAction("create_listing", tierName)
	s.invalidate(ctx)
	return created, nil
}

// SetStatus changes a listing's status for its owner. The quota is checked
// under the user lock so two reactivations cannot both take the last slot.
func (s *Service) SetStatus(
	ctx context.Context,
	userID, listingID string,
	status listing.Status,
) (updated *listing.Listing, err error) {
	ctx, span := core.StartSpan(ctx, "lifecycle.set_status",
		attribute.String("user.id", userID),
		attribute.String("listing.id", listingID),
		attribute.String("status", string(status)))
	defer func() { core.EndSpan(span, err) }()

	if !status.Valid() {
		return nil, fmt.Errorf("set status %q: %w", status, core.ErrInvalidInput)
	}

	var tierName string
	err = s.run(ctx, "set_status", func(tx store.Tx, _ time.Time) error {
		u, err := tx.LockUser(ctx, userID)
		if err != nil {
			return err
		}
		l, err := tx.GetListing(ctx, listingID)
		if err != nil {
			return err
		}
		existing, err := tx.GetUserListings(ctx, userID)
		if err != nil {
			return err
		}

		if err := s.engine.CanSetStatus(u, l, status, existing).Err(); err != nil {
			return err
		}
		if err := tx.SetListingStatus(ctx, listingID, status); err != nil {
			return err
		}

		l.Status = status
		updated = l
		tierName = string(u.TierLevel())
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordAction("set_status", tierName)
	s.invalidate(ctx)
	return updated, nil
}

// BumpEligibility runs only the decide step.
func (s *Service) BumpEligibility(ctx context.Context, userID, listingID string) (Decision, error) {
	u, l, err := s.load(ctx, userID, listingID)
	if err != nil {
		return Decision{}, err
	}
	return s.engine.CanBump(u, l, s.now()), nil
}

func (s *Service) Bump(
	ctx context.Context,
	userID, listingID string,
) (bumped *listing.Listing, err error) {
	ctx, span := core.StartSpan(ctx, "lifecycle.bump",
		attribute.String("user.id", userID),
		attribute.String("listing.id", listingID))
	defer func() { core.EndSpan(span, err) }()

	if err := s.precheck(ctx, "bump", userID, listingID, s.engine.CanBump); err != nil {
		return nil, err
	}

	var tierName string
	var cost int
	err = s.run(ctx, "bump", func(tx store.Tx, now time.Time) error {
		u, err := tx.LockUser(ctx, userID)
		if err != nil {
			return err
		}
		l, err := tx.GetListing(ctx, listingID)
		if err != nil {
			return err
		}

		decision := s.engine.CanBump(u, l, now)
		if err := decision.Err(); err != nil {
			return err
		}

		bumped, err = tx.BumpListing(ctx, listingID, l.LastBumpAt, now)
		if err != nil {
			return err
		}
		if _, err := store.Debit(ctx, tx, userID, decision.Cost,
			fmt.Sprintf("Bump listing: %s", l.Title)); err != nil {
			return err
		}

		tierName, cost = string(u.TierLevel()), decision.Cost
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordAction("bump", tierName)
	metrics.AddCoins(-cost)
	s.invalidate(ctx)
	return bumped, nil
}

// AvailableNowEligibility previews enabling the flag.
func (s *Service) AvailableNowEligibility(ctx context.Context, userID, listingID string) (Decision, error) {
	u, l, err := s.load(ctx, userID, listingID)
	if err != nil {
		return Decision{}, err
	}
	return s.engine.CanEnableAvailableNow(u, l, s.now()), nil
}

func (s *Service) SetAvailableNow(
	ctx context.Context,
	userID, listingID string,
	enabled bool,
) (updated *listing.Listing, err error) {
	ctx, span := core.StartSpan(ctx, "lifecycle.available_now",
		attribute.String("user.id", userID),
		attribute.String("listing.id", listingID),
		attribute.Bool("enabled", enabled))
	defer func() { core.EndSpan(span, err) }()

	if enabled {
		err = s.precheck(ctx, "available_now", userID, listingID, s.engine.CanEnableAvailableNow)
	} else {
		err = s.precheck(ctx, "available_now", userID, listingID,
			func(u *user.User, l *listing.Listing, _ time.Time) Decision {
				return s.engine.CanDisableAvailableNow(u, l)
			})
	}
	if err != nil {
		return nil, err
	}

	var tierName string
	var cost int
	err = s.run(ctx, "available_now", func(tx store.Tx, now time.Time) error {
		u, err := tx.LockUser(ctx, userID)
		if err != nil {
			return err
		}
		l, err := tx.GetListing(ctx, listingID)
		if err != nil {
			return err
		}

		if !enabled {
			if err := s.engine.CanDisableAvailableNow(u, l).Err(); err != nil {
				return err
			}
			updated, err = tx.SetAvailableNow(ctx, listingID, false, l.AvailableUntil, l.AvailableUntil)
			return err
		}

		decision := s.engine.CanEnableAvailableNow(u, l, now)
		if err := decision.Err(); err != nil {
			return err
		}

		until := now.Add(AvailableNowWindow)
		updated, err = tx.SetAvailableNow(ctx, listingID, true, &until, l.AvailableUntil)
		if err != nil {
			return err
		}
		if _, err := store.Debit(ctx, tx, userID, decision.Cost,
			fmt.Sprintf("Available Now: %s", l.Title)); err != nil {
			return err
		}

		tierName, cost = string(u.TierLevel()), decision.Cost
		return nil
	})
	if err != nil {
		return nil, err
	}

	if enabled {
		metrics.RecordAction("available_now", tierName)
		metrics.AddCoins(-cost)
	}
	s.invalidate(ctx)
	return updated, nil
}

func (s *Service) upgradeDays(requested int) int {
	switch {
	case requested > 0:
		return requested
	case s.cfg.UpgradeDays > 0:
		return s.cfg.UpgradeDays
	default:
		return DefaultUpgradeDays
	}
}

func (s *Service) PurchaseUpgrade(
	ctx context.Context,
	userID string,
	req PurchaseUpgradeRequest,
) (result *PurchaseResult, err error) {
	upgradeType := UpgradeType(req.Type)
	ctx, span := core.StartSpan(ctx, "lifecycle.purchase_upgrade",
		attribute.String("user.id", userID),
		attribute.String("upgrade.type", req.Type))
	defer func() { core.EndSpan(span, err) }()

	days := s.upgradeDays(req.DurationDays)
	var tierName string

	err = s.run(ctx, "purchase_upgrade", func(tx store.Tx, now time.Time) error {
		u, err := tx.LockUser(ctx, userID)
		if err != nil {
			return err
		}

		var l *listing.Listing
		if req.ListingID != nil {
			if l, err = tx.GetListing(ctx, *req.ListingID); err != nil {
				return err
			}
		}

		decision := s.engine.CanPurchaseUpgrade(u, upgradeType, l)
		if err := decision.Err(); err != nil {
			return err
		}

		expires := now.Add(time.Duration(days) * 24 * time.Hour)
		ledger, err := store.Debit(ctx, tx, userID, decision.Cost,
			fmt.Sprintf("Upgrade purchase: %s", upgradeType))
		if err != nil {
			return err
		}

		receipt := &wallet.UpgradeReceipt{
			ID:          uuid.New().String(),
			UserID:      userID,
			ListingID:   req.ListingID,
			UpgradeType: string(upgradeType),
			TokensSpent: decision.Cost,
			ExpiresAt:   expires,
		}
		if err := tx.CreateReceipt(ctx, receipt); err != nil {
			return err
		}

		result = &PurchaseResult{Receipt: receipt, Transaction: ledger}
		if l != nil {
			updated, err := tx.ApplyPromotion(ctx, l.ID, upgrades[upgradeType].promotion, expires)
			if err != nil {
				return err
			}
			result.Listing = updated
		}

		tierName = string(u.TierLevel())
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordAction("upgrade_"+req.Type, tierName)
	metrics.AddCoins(-result.Receipt.TokensSpent)
	if result.Listing != nil {
		s.invalidate(ctx)
	}
	return result, nil
}

func (s *Service) load(ctx context.Context, userID, listingID string) (*user.User, *listing.Listing, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	l, err := s.store.GetListing(ctx, listingID)
	if err != nil {
		return nil, nil, err
	}
	return u, l, nil
}

// precheck runs the decide step on unlocked reads so an obvious denial is
// returned without opening a transaction.
func (s *Service) precheck(
	ctx context.Context,
	action, userID, listingID string,
	decide func(*user.User, *listing.Listing, time.Time) Decision,
) error {
	u, l, err := s.load(ctx, userID, listingID)
	if err != nil {
		return err
	}
	d := decide(u, l, s.now())
	if !d.Allowed() {
		metrics.RecordDenial(action, d.Denial.Kind)
	}
	return d.Err()
}
