// AngelaMos | 2026
// entity.go

package user

import (
	"time"

	"github.com/carterperez-dev/lovelistings/internal/tier"
)

type User struct {
	ID           string     `db:"id"`
	Email        string     `db:"email"`
	PasswordHash string     `db:"password_hash"`
	Name         string     `db:"name"`
	Role         string     `db:"role"`
	Tier         string     `db:"tier"`
	TierExpires  *time.Time `db:"tier_expires"`
	LoveCoins    int        `db:"love_coins"`
	IsVerified   bool       `db:"is_verified"`
	IsSuspended  bool       `db:"is_suspended"`
	TokenVersion int        `db:"token_version"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
	DeletedAt    *time.Time `db:"deleted_at"`
}

const (
	RoleClassified = "classified"
	RoleAdmin      = "admin"
)

func (u *User) IsDeleted() bool {
	return u.DeletedAt != nil
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// TierLevel is the stored tier as-is. Expiry is not consulted.
func (u *User) TierLevel() tier.Level {
	lvl, _ := tier.Parse(u.Tier)
	return lvl
}

// EffectiveTier revalidates the stored tier against its expiry. A lapsed
// paid tier reads as free.
func (u *User) EffectiveTier(now time.Time) tier.Level {
	lvl := u.TierLevel()
	if lvl != tier.Free && u.TierExpires != nil && !now.Before(*u.TierExpires) {
		return tier.Free
	}
	return lvl
}

func (u *User) Entitlements() tier.Entitlements {
	return tier.EntitlementsFor(u.TierLevel())
}
