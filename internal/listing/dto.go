// AngelaMos | 2026
// dto.go

package listing

import (
	"time"
)

type CreateListingRequest struct {
	Title       string   `json:"title"        validate:"required,min=3,max=200"`
	Tagline     string   `json:"tagline"      validate:"max=200"`
	Description string   `json:"description"  validate:"max=10000"`
	Category    string   `json:"category"     validate:"required,max=100"`
	Subcategory *string  `json:"subcategory"  validate:"omitempty,max=100"`
	City        string   `json:"city"         validate:"max=100"`
	State       string   `json:"state"        validate:"max=100"`
	Country     string   `json:"country"      validate:"max=100"`
	PriceTokens *int     `json:"price_tokens" validate:"omitempty,min=0"`
	Images      []string `json:"images"       validate:"omitempty,dive,required,max=500"`
}

type UpdateListingRequest struct {
	Title       *string   `json:"title"        validate:"omitempty,min=3,max=200"`
	Tagline     *string   `json:"tagline"      validate:"omitempty,max=200"`
	Description *string   `json:"description"  validate:"omitempty,max=10000"`
	Category    *string   `json:"category"     validate:"omitempty,max=100"`
	Subcategory *string   `json:"subcategory"  validate:"omitempty,max=100"`
	City        *string   `json:"city"         validate:"omitempty,max=100"`
	State       *string   `json:"state"        validate:"omitempty,max=100"`
	Country     *string   `json:"country"      validate:"omitempty,max=100"`
	PriceTokens *int      `json:"price_tokens" validate:"omitempty,min=0"`
	Images      *[]string `json:"images"       validate:"omitempty,dive,required,max=500"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active inactive removed"`
}

type ListingResponse struct {
	ID           string     `json:"id"`
	OwnerID      string     `json:"owner_id"`
	Title        string     `json:"title"`
	Slug         string     `json:"slug"`
	Tagline      string     `json:"tagline"`
	Description  string     `json:"description"`
	Category     string     `json:"category"`
	Subcategory  *string    `json:"subcategory,omitempty"`
	City         string     `json:"city"`
	State        string     `json:"state"`
	Country      string     `json:"country"`
	PriceTokens  *int       `json:"price_tokens,omitempty"`
	Images       []string   `json:"images"`
	Status       Status     `json:"status"`
	AvailableNow State      `json:"available_now"`
	Highlight    State      `json:"highlight"`
	Featured     State      `json:"featured"`
	Special      State      `json:"special"`
	Slideshow    State      `json:"slideshow"`
	PaidListing  State      `json:"paid_listing"`
	BumpedAt     time.Time  `json:"bumped_at"`
	LastBumpAt   *time.Time `json:"last_bump_at,omitempty"`
	BumpCount    int        `json:"bump_count"`
	ViewCount    int        `json:"view_count"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// ToListingResponse derives every promotion state at now, so a stale flag
// in storage is never shown as active.
func ToListingResponse(l *Listing, now time.Time) ListingResponse {
	images := []string(l.Images)
	if images == nil {
		images = []string{}
	}
	return ListingResponse{
		ID:           l.ID,
		OwnerID:      l.OwnerID,
		Title:        l.Title,
		Slug:         l.Slug,
		Tagline:      l.Tagline,
		Description:  l.Description,
		Category:     l.Category,
		Subcategory:  l.Subcategory,
		City:         l.City,
		State:        l.State,
		Country:      l.Country,
		PriceTokens:  l.PriceTokens,
		Images:       images,
		Status:       l.Status,
		AvailableNow: l.PromotionState(PromoAvailableNow, now),
		Highlight:    l.PromotionState(PromoHighlight, now),
		Featured:     l.PromotionState(PromoFeatured, now),
		Special:      l.PromotionState(PromoSpecial, now),
		Slideshow:    l.PromotionState(PromoSlideshow, now),
		PaidListing:  l.PromotionState(PromoPaidListing, now),
		BumpedAt:     l.BumpedAt,
		LastBumpAt:   l.LastBumpAt,
		BumpCount:    l.BumpCount,
		ViewCount:    l.ViewCount,
		CreatedAt:    l.CreatedAt,
		UpdatedAt:    l.UpdatedAt,
	}
}

func ToListingResponseList(listings []Listing, now time.Time) []ListingResponse {
	out := make([]ListingResponse, len(listings))
	for i := range listings {
		out[i] = ToListingResponse(&listings[i], now)
	}
	return out
}

type FeedParams struct {
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
	Category string `json:"category,omitempty"`
	City     string `json:"city,omitempty"`
}

func (p *FeedParams) Normalize(defaultSize int) {
	if p.Page < 1 {
		p.Page = 1
	}
	if defaultSize < 1 {
		defaultSize = 20
	}
	if p.PageSize < 1 {
		p.PageSize = defaultSize
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
}

func (p *FeedParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}
