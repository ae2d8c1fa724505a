// AngelaMos | 2026
// policy.go

package tier

import (
	"strings"
	"time"
)

type Level string

const (
	Free  Level = "free"
	Basic Level = "basic"
	VIP   Level = "vip"
	Elite Level = "elite"
)

// Unlimited is the MaxListings sentinel. It is never compared numerically.
const Unlimited = -1

type Entitlements struct {
	Level                       Level `json:"tier"`
	MaxListings                 int   `json:"max_listings"`
	MaxImages                   int   `json:"max_images"`
	MaxVideoMB                  int   `json:"max_video_mb"`
	BumpCooldownMinutes         int   `json:"bump_cooldown_minutes"`
	AvailableNowCooldownMinutes int   `json:"available_now_cooldown_minutes"`
	CanHighlight                bool  `json:"can_highlight"`
	CanFeatured                 bool  `json:"can_featured"`
	CanSpecial                  bool  `json:"can_special"`
	CanSlideshow                bool  `json:"can_slideshow"`
}

var table = map[Level]Entitlements{
	Free: {
		Level:                       Free,
		MaxListings:                 1,
		MaxImages:                   2,
		MaxVideoMB:                  0,
		BumpCooldownMinutes:         1440,
		AvailableNowCooldownMinutes: 1440,
	},
	Basic: {
		Level:                       Basic,
		MaxListings:                 3,
		MaxImages:                   5,
		MaxVideoMB:                  0,
		BumpCooldownMinutes:         720,
		AvailableNowCooldownMinutes: 720,
		CanHighlight:                true,
	},
	VIP: {
		Level:                       VIP,
		MaxListings:                 10,
		MaxImages:                   15,
		MaxVideoMB:                  50,
		BumpCooldownMinutes:         240,
		AvailableNowCooldownMinutes: 360,
		CanHighlight:                true,
		CanFeatured:                 true,
		CanSpecial:                  true,
	},
	Elite: {
		Level:                       Elite,
		MaxListings:                 Unlimited,
		MaxImages:                   30,
		MaxVideoMB:                  100,
		BumpCooldownMinutes:         60,
		AvailableNowCooldownMinutes: 120,
		CanHighlight:                true,
		CanFeatured:                 true,
		CanSpecial:                  true,
		CanSlideshow:                true,
	},
}

var ordered = []Level{Free, Basic, VIP, Elite}

// EntitlementsFor never fails: anything unrecognized gets free entitlements.
func EntitlementsFor(l Level) Entitlements {
	if e, ok := table[l]; ok {
		return e
	}
	return table[Free]
}

// For is EntitlementsFor on a raw stored tier string.
func For(raw string) Entitlements {
	lvl, _ := Parse(raw)
	return EntitlementsFor(lvl)
}

// Parse normalizes raw and reports whether it named a known tier. Unknown
// values resolve to Free.
func Parse(raw string) (Level, bool) {
	l := Level(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := table[l]; ok {
		return l, true
	}
	return Free, false
}

func Levels() []Level {
	out := make([]Level, len(ordered))
	copy(out, ordered)
	return out
}

func (l Level) Rank() int {
	for i, o := range ordered {
		if o == l {
			return i
		}
	}
	return 0
}

func (l Level) String() string {
	return string(l)
}

func (e Entitlements) UnlimitedListings() bool {
	return e.MaxListings == Unlimited
}

func (e Entitlements) BumpCooldown() time.Duration {
	return time.Duration(e.BumpCooldownMinutes) * time.Minute
}

func (e Entitlements) AvailableNowCooldown() time.Duration {
	return time.Duration(e.AvailableNowCooldownMinutes) * time.Minute
}

// AllowsVideo reports whether a video of sizeBytes fits the tier.
func (e Entitlements) AllowsVideo(sizeBytes int64) bool {
	if e.MaxVideoMB <= 0 {
		return false
	}
	return sizeBytes <= int64(e.MaxVideoMB)*1024*1024
}
