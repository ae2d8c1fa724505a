// AngelaMos | 2026
// entity.go

package wallet

import (
	"time"
)

type TransactionType string

const (
	TypeDebit  TransactionType = "debit"
	TypeCredit TransactionType = "credit"
)

// Transaction is one ledger row. Amount is signed: debits are negative.
type Transaction struct {
	ID          string          `db:"id"          json:"id"`
	UserID      string          `db:"user_id"     json:"user_id"`
	Type        TransactionType `db:"type"        json:"type"`
	Amount      int             `db:"amount"      json:"amount"`
	Description string          `db:"description" json:"description"`
	CreatedAt   time.Time       `db:"created_at"  json:"created_at"`
}

// UpgradeReceipt records a purchased promotion. Receipts are never updated.
type UpgradeReceipt struct {
	ID          string    `db:"id"           json:"id"`
	UserID      string    `db:"user_id"      json:"user_id"`
	ListingID   *string   `db:"listing_id"   json:"listing_id,omitempty"`
	UpgradeType string    `db:"upgrade_type" json:"upgrade_type"`
	TokensSpent int       `db:"tokens_spent" json:"tokens_spent"`
	ExpiresAt   time.Time `db:"expires_at"   json:"expires_at"`
	PurchasedAt time.Time `db:"purchased_at" json:"purchased_at"`
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentExpired   PaymentStatus = "expired"
)

type Payment struct {
	ID             string        `db:"id"              json:"id"`
	UserID         string        `db:"user_id"         json:"user_id"`
	PaymentAddress string        `db:"payment_address" json:"payment_address"`
	AmountSats     int64         `db:"amount_sats"     json:"amount_sats"`
	TokensAmount   int           `db:"tokens_amount"   json:"tokens_amount"`
	Status         PaymentStatus `db:"status"          json:"status"`
	QRCodeData     string        `db:"qr_code_data"    json:"qr_code_data"`
	ExpiresAt      time.Time     `db:"expires_at"      json:"expires_at"`
	CompletedAt    *time.Time    `db:"completed_at"    json:"completed_at,omitempty"`
	CreatedAt      time.Time     `db:"created_at"      json:"created_at"`
}

// StatusAt reports expired for a pending payment past its deadline even if
// the stored row still says pending.
func (p *Payment) StatusAt(now time.Time) PaymentStatus {
	if p.Status == PaymentPending && !now.Before(p.ExpiresAt) {
		return PaymentExpired
	}
	return p.Status
}
