// AngelaMos | 2026
// dto.go

package lifecycle

import (
	"time"

	"github.com/carterperez-dev/lovelistings/internal/listing"
	"github.com/carterperez-dev/lovelistings/internal/wallet"
)

type AvailableNowRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

type PurchaseUpgradeRequest struct {
	Type         string  `json:"upgrade_type"  validate:"required"`
	ListingID    *string `json:"listing_id"    validate:"omitempty,uuid"`
	DurationDays int     `json:"duration_days" validate:"omitempty,min=1,max=90"`
}

type PurchaseResult struct {
	Receipt     *wallet.UpgradeReceipt
	Listing     *listing.Listing
	Transaction *wallet.Transaction
}

type EligibilityResponse struct {
	Allowed   bool   `json:"allowed"`
	Cost      int    `json:"cost"`
	Reason    string `json:"reason,omitempty"`
	Kind      string `json:"kind,omitempty"`
	Remaining int    `json:"remaining_minutes,omitempty"`
	Required  int    `json:"required,omitempty"`
	Available int    `json:"available,omitempty"`
}

func ToEligibilityResponse(d Decision) EligibilityResponse {
	if d.Allowed() {
		return EligibilityResponse{Allowed: true, Cost: d.Cost}
	}
	_, kind := statusFor(d.Denial)
	return EligibilityResponse{
		Reason:    d.Denial.Reason,
		Kind:      kind,
		Remaining: d.Denial.RemainingMinutes(),
		Required:  d.Denial.Required,
		Available: d.Denial.Available,
	}
}

type PurchaseResponse struct {
	ReceiptID   string                   `json:"receipt_id"`
	UpgradeType string                   `json:"upgrade_type"`
	TokensSpent int                      `json:"tokens_spent"`
	ExpiresAt   time.Time                `json:"expires_at"`
	Listing     *listing.ListingResponse `json:"listing,omitempty"`
}

func ToPurchaseResponse(r *PurchaseResult, now time.Time) PurchaseResponse {
	resp := PurchaseResponse{
		ReceiptID:   r.Receipt.ID,
		UpgradeType: r.Receipt.UpgradeType,
		TokensSpent: r.Receipt.TokensSpent,
		ExpiresAt:   r.Receipt.ExpiresAt,
	}
	if r.Listing != nil {
		lr := listing.ToListingResponse(r.Listing, now)
		resp.Listing = &lr
	}
	return resp
}
