// AngelaMos | 2026
// engine.go

package lifecycle

import (
	"fmt"
	"time"

	"github.com/carterperez-dev/lovelistings/internal/config"
	"github.com/carterperez-dev/lovelistings/internal/core"
	"github.com/carterperez-dev/lovelistings/internal/listing"
	"github.com/carterperez-dev/lovelistings/internal/tier"
	"github.com/carterperez-dev/lovelistings/internal/user"
)

const (
	AvailableNowCost   = 20
	AvailableNowWindow = 4 * time.Hour
	DefaultUpgradeDays = 7
)

var bumpCosts = map[tier.Level]int{
	tier.Free:  10,
	tier.Basic: 5,
	tier.VIP:   0,
	tier.Elite: 0,
}

// BumpCost is the coin price of one bump. Unknown tiers pay the free price.
func BumpCost(level tier.Level) int {
	if c, ok := bumpCosts[level]; ok {
		return c
	}
	return bumpCosts[tier.Free]
}

type UpgradeType string

const (
	UpgradeHighlight   UpgradeType = "highlight"
	UpgradeSpecial     UpgradeType = "special"
	UpgradeSlideshow   UpgradeType = "slideshow"
	UpgradePaidListing UpgradeType = "paid_listing"
)

type upgrade struct {
	cost      int
	promotion listing.Promotion
	allowed   func(tier.Entitlements) bool
}

var upgrades = map[UpgradeType]upgrade{
	UpgradeHighlight: {
		cost:      50,
		promotion: listing.PromoHighlight,
		allowed:   func(e tier.Entitlements) bool { return e.CanHighlight },
	},
	UpgradeSpecial: {
		cost:      75,
		promotion: listing.PromoSpecial,
		allowed:   func(e tier.Entitlements) bool { return e.CanSpecial },
	},
	UpgradeSlideshow: {
		cost:      100,
		promotion: listing.PromoSlideshow,
		allowed:   func(e tier.Entitlements) bool { return e.CanSlideshow },
	},
	UpgradePaidListing: {
		cost:      150,
		promotion: listing.PromoPaidListing,
		allowed:   func(tier.Entitlements) bool { return true },
	},
}

// UpgradeCost reports the price of an upgrade type and whether it exists.
func UpgradeCost(t UpgradeType) (int, bool) {
	u, ok := upgrades[t]
	return u.cost, ok
}

// Engine makes the pure decisions. It never touches storage; callers pass
// in the records they loaded.
type Engine struct {
	enforceTierFeatures bool
}

func NewEngine(cfg config.LifecycleConfig) *Engine {
	return &Engine{enforceTierFeatures: cfg.EnforceTierFeatures}
}

func suspended(u *user.User) *Denial {
	if !u.IsSuspended {
		return nil
	}
	return &Denial{Kind: core.ErrForbidden, Reason: "Your account is suspended"}
}

func notOwner(u *user.User, l *listing.Listing) *Denial {
	if l.OwnedBy(u.ID) {
		return nil
	}
	return &Denial{Kind: core.ErrForbidden, Reason: "Not your listing"}
}

func funds(u *user.User, cost int) *Denial {
	if u.LoveCoins >= cost {
		return nil
	}
	return &Denial{
		Kind:      core.ErrInsufficientFunds,
		Reason:    fmt.Sprintf("Insufficient Love Coins: %d required, %d available", cost, u.LoveCoins),
		Required:  cost,
		Available: u.LoveCoins,
	}
}

func cooldown(what string, last *time.Time, period time.Duration, now time.Time) *Denial {
	if last == nil {
		return nil
	}
	elapsed := now.Sub(*last)
	if elapsed >= period {
		return nil
	}
	d := &Denial{Kind: core.ErrCooldownActive, Remaining: period - elapsed}
	d.Reason = fmt.Sprintf("%s cooldown: %d minutes remaining", what, d.RemainingMinutes())
	return d
}

// CanCreateListing counts only active listings against the tier quota.
func (e *Engine) CanCreateListing(u *user.User, existing []listing.Listing) Decision {
	if d := suspended(u); d != nil {
		return deny(d)
	}

	ent := u.Entitlements()
	if ent.UnlimitedListings() {
		return allow(0)
	}

	active := 0
	for i := range existing {
		if existing[i].IsActive() {
			active++
		}
	}

	if active >= ent.MaxListings {
		return deny(&Denial{
			Kind:    core.ErrQuotaExceeded,
			Reason:  fmt.Sprintf("Your %s tier allows %d active listing(s)", ent.Level, ent.MaxListings),
			Limit:   ent.MaxListings,
			Current: active,
		})
	}

	return allow(0)
}

// CanSetStatus gates an owner's status change. Reactivating an inactive
// listing takes a quota slot, so it is decided like a create against the
// owner's other listings.
func (e *Engine) CanSetStatus(
	u *user.User,
	l *listing.Listing,
	status listing.Status,
	existing []listing.Listing,
) Decision {
	if d := suspended(u); d != nil {
		return deny(d)
	}
	if d := notOwner(u, l); d != nil {
		return deny(d)
	}
	if status != listing.StatusActive || l.IsActive() {
		return allow(0)
	}

	others := make([]listing.Listing, 0, len(existing))
	for i := range existing {
		if existing[i].ID != l.ID {
			others = append(others, existing[i])
		}
	}
	return e.CanCreateListing(u, others)
}

func (e *Engine) CanBump(u *user.User, l *listing.Listing, now time.Time) Decision {
	if d := suspended(u); d != nil {
		return deny(d)
	}
	if d := notOwner(u, l); d != nil {
		return deny(d)
	}

	ent := u.Entitlements()
	if d := cooldown("Bump", l.LastBumpAt, ent.BumpCooldown(), now); d != nil {
		return deny(d)
	}

	cost := BumpCost(ent.Level)
	if d := funds(u, cost); d != nil {
		return deny(d)
	}

	return allow(cost)
}

// ApplyBump moves the listing to the top of the feed.
func ApplyBump(l *listing.Listing, now time.Time) {
	at := now
	l.BumpedAt = now
	l.LastBumpAt = &at
	l.BumpCount++
}

// LastAvailableNowStart infers when the window was last opened. Windows are
// always AvailableNowWindow long, so the start is the stored expiry minus
// that. No expiry means it was never used.
func LastAvailableNowStart(l *listing.Listing) *time.Time {
	if l.AvailableUntil == nil {
		return nil
	}
	start := l.AvailableUntil.Add(-AvailableNowWindow)
	return &start
}

func (e *Engine) CanEnableAvailableNow(u *user.User, l *listing.Listing, now time.Time) Decision {
	if d := suspended(u); d != nil {
		return deny(d)
	}
	if d := notOwner(u, l); d != nil {
		return deny(d)
	}

	ent := u.Entitlements()
	if d := cooldown("Available Now", LastAvailableNowStart(l), ent.AvailableNowCooldown(), now); d != nil {
		return deny(d)
	}

	if d := funds(u, AvailableNowCost); d != nil {
		return deny(d)
	}

	return allow(AvailableNowCost)
}

// CanDisableAvailableNow only checks who is asking. Turning it off is free.
func (e *Engine) CanDisableAvailableNow(u *user.User, l *listing.Listing) Decision {
	if d := suspended(u); d != nil {
		return deny(d)
	}
	if d := notOwner(u, l); d != nil {
		return deny(d)
	}
	return allow(0)
}

// CanPurchaseUpgrade checks the type, ownership of the target listing when
// one is given, the tier capability when enforcement is on, then funds.
func (e *Engine) CanPurchaseUpgrade(u *user.User, t UpgradeType, l *listing.Listing) Decision {
	if d := suspended(u); d != nil {
		return deny(d)
	}

	up, ok := upgrades[t]
	if !ok {
		return deny(&Denial{
			Kind:   core.ErrInvalidInput,
			Reason: fmt.Sprintf("Unknown upgrade type %q", t),
		})
	}

	if l != nil {
		if d := notOwner(u, l); d != nil {
			return deny(d)
		}
	}

	ent := u.Entitlements()
	if e.enforceTierFeatures && !up.allowed(ent) {
		return deny(&Denial{
			Kind:   core.ErrForbidden,
			Reason: fmt.Sprintf("Your %s tier does not include the %s upgrade", ent.Level, t),
		})
	}

	if d := funds(u, up.cost); d != nil {
		return deny(d)
	}

	return allow(up.cost)
}
