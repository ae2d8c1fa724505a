// AngelaMos | 2026
// entity.go

package listing

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusRemoved  Status = "removed"
)

func (s Status) Valid() bool {
	return s == StatusActive || s == StatusInactive || s == StatusRemoved
}

type Listing struct {
	ID          string     `db:"id"`
	OwnerID     string     `db:"owner_id"`
	Title       string     `db:"title"`
	Slug        string     `db:"slug"`
	Tagline     string     `db:"tagline"`
	Description string     `db:"description"`
	Category    string     `db:"category"`
	Subcategory *string    `db:"subcategory"`
	City        string     `db:"city"`
	State       string     `db:"state"`
	Country     string     `db:"country"`
	PriceTokens *int       `db:"price_tokens"`
	Images      StringList `db:"images"`
	Status      Status     `db:"status"`

	IsAvailableNow   bool       `db:"is_available_now"`
	AvailableUntil   *time.Time `db:"available_until"`
	IsHighlighted    bool       `db:"is_highlighted"`
	HighlightUntil   *time.Time `db:"highlight_until"`
	IsFeatured       bool       `db:"is_featured"`
	FeaturedUntil    *time.Time `db:"featured_until"`
	IsSpecial        bool       `db:"is_special"`
	SpecialUntil     *time.Time `db:"special_until"`
	HasSlideshow     bool       `db:"has_slideshow"`
	SlideshowUntil   *time.Time `db:"slideshow_until"`
	IsPaidListing    bool       `db:"is_paid_listing"`
	PaidListingUntil *time.Time `db:"paid_listing_until"`

	BumpedAt   time.Time  `db:"bumped_at"`
	LastBumpAt *time.Time `db:"last_bump_at"`
	BumpCount  int        `db:"bump_count"`
	ViewCount  int        `db:"view_count"`
	CreatedAt  time.Time  `db:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at"`
}

func (l *Listing) IsActive() bool {
	return l.Status == StatusActive
}

func (l *Listing) OwnedBy(userID string) bool {
	return userID != "" && l.OwnerID == userID
}

// Clone returns a deep copy, including pointer fields.
func (l *Listing) Clone() *Listing {
	c := *l
	c.Subcategory = clonePtr(l.Subcategory)
	c.PriceTokens = clonePtr(l.PriceTokens)
	c.Images = append(StringList(nil), l.Images...)
	c.AvailableUntil = clonePtr(l.AvailableUntil)
	c.HighlightUntil = clonePtr(l.HighlightUntil)
	c.FeaturedUntil = clonePtr(l.FeaturedUntil)
	c.SpecialUntil = clonePtr(l.SpecialUntil)
	c.SlideshowUntil = clonePtr(l.SlideshowUntil)
	c.PaidListingUntil = clonePtr(l.PaidListingUntil)
	c.LastBumpAt = clonePtr(l.LastBumpAt)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// StringList is stored as a JSONB array.
type StringList []string

func (s StringList) Value() (driver.Value, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(s))
}

func (s *StringList) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*s = StringList{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("scan string list: unsupported type %T", src)
	}
	return json.Unmarshal(raw, (*[]string)(s))
}

type Favorite struct {
	UserID    string    `db:"user_id"`
	ListingID string    `db:"listing_id"`
	CreatedAt time.Time `db:"created_at"`
}
