// AngelaMos | 2026
// promotion.go

package listing

import (
	"fmt"
	"time"
)

type Promotion string

const (
	PromoAvailableNow Promotion = "available_now"
	PromoHighlight    Promotion = "highlight"
	PromoFeatured     Promotion = "featured"
	PromoSpecial      Promotion = "special"
	PromoSlideshow    Promotion = "slideshow"
	PromoPaidListing  Promotion = "paid_listing"
)

var promotionColumns = map[Promotion][2]string{
	PromoAvailableNow: {"is_available_now", "available_until"},
	PromoHighlight:    {"is_highlighted", "highlight_until"},
	PromoFeatured:     {"is_featured", "featured_until"},
	PromoSpecial:      {"is_special", "special_until"},
	PromoSlideshow:    {"has_slideshow", "slideshow_until"},
	PromoPaidListing:  {"is_paid_listing", "paid_listing_until"},
}

func (p Promotion) columns() (flag, until string, err error) {
	cols, ok := promotionColumns[p]
	if !ok {
		return "", "", fmt.Errorf("unknown promotion %q", p)
	}
	return cols[0], cols[1], nil
}

// Window is the stored pair of a promotion flag and its expiry.
type Window struct {
	Enabled bool
	Until   *time.Time
}

// State is the derived view of a Window. The zero value is Inactive.
type State struct {
	Active bool       `json:"active"`
	Until  *time.Time `json:"until,omitempty"`
}

// At derives the state at now. An expiry at or before now is inactive no
// matter what the flag says. A set flag without expiry stays active.
func (w Window) At(now time.Time) State {
	if !w.Enabled {
		return State{}
	}
	if w.Until != nil && !now.Before(*w.Until) {
		return State{}
	}
	return State{Active: true, Until: w.Until}
}

func (l *Listing) Window(p Promotion) Window {
	switch p {
	case PromoAvailableNow:
		return Window{l.IsAvailableNow, l.AvailableUntil}
	case PromoHighlight:
		return Window{l.IsHighlighted, l.HighlightUntil}
	case PromoFeatured:
		return Window{l.IsFeatured, l.FeaturedUntil}
	case PromoSpecial:
		return Window{l.IsSpecial, l.SpecialUntil}
	case PromoSlideshow:
		return Window{l.HasSlideshow, l.SlideshowUntil}
	case PromoPaidListing:
		return Window{l.IsPaidListing, l.PaidListingUntil}
	}
	return Window{}
}

func (l *Listing) SetWindow(p Promotion, w Window) {
	switch p {
	case PromoAvailableNow:
		l.IsAvailableNow, l.AvailableUntil = w.Enabled, w.Until
	case PromoHighlight:
		l.IsHighlighted, l.HighlightUntil = w.Enabled, w.Until
	case PromoFeatured:
		l.IsFeatured, l.FeaturedUntil = w.Enabled, w.Until
	case PromoSpecial:
		l.IsSpecial, l.SpecialUntil = w.Enabled, w.Until
	case PromoSlideshow:
		l.HasSlideshow, l.SlideshowUntil = w.Enabled, w.Until
	case PromoPaidListing:
		l.IsPaidListing, l.PaidListingUntil = w.Enabled, w.Until
	}
}

func (l *Listing) PromotionState(p Promotion, now time.Time) State {
	return l.Window(p).At(now)
}

// AvailableNowVisible reports whether the listing belongs in the
// available-now feed at now.
func (l *Listing) AvailableNowVisible(now time.Time) bool {
	return l.IsActive() && l.PromotionState(PromoAvailableNow, now).Active
}
