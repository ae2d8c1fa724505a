// AngelaMos | 2026
// repository.go

package wallet

import (
	"context"
	"fmt"
	"time"

	"github.com/carterperez-dev/lovelistings/internal/core"
)

type Repository interface {
	CreateTransaction(ctx context.Context, t *Transaction) error
	ListTransactions(ctx context.Context, userID string, limit int) ([]Transaction, error)
	CreateReceipt(ctx context.Context, r *UpgradeReceipt) error
	CreatePayment(ctx context.Context, p *Payment) error
	GetPayment(ctx context.Context, id string) (*Payment, error)
	CompletePayment(ctx context.Context, id string, now time.Time) (*Payment, error)
	Stats(ctx context.Context) (*Stats, error)
}

type Stats struct {
	CoinsSpent        int64 `db:"coins_spent"        json:"coins_spent"`
	CoinsPurchased    int64 `db:"coins_purchased"    json:"coins_purchased"`
	PendingPayments   int64 `db:"pending_payments"   json:"pending_payments"`
	CompletedPayments int64 `db:"completed_payments" json:"completed_payments"`
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) CreateTransaction(ctx context.Context, t *Transaction) error {
	query := `
		INSERT INTO transactions (id, user_id, type, amount, description)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	err := r.db.GetContext(ctx, &t.CreatedAt, query,
		t.ID, t.UserID, t.Type, t.Amount, t.Description)
	if err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}
	return nil
}

func (r *repository) ListTransactions(
	ctx context.Context,
	userID string,
	limit int,
) ([]Transaction, error) {
	query := `
		SELECT id, user_id, type, amount, description, created_at
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2`

	var out []Transaction
	if err := r.db.SelectContext(ctx, &out, query, userID, limit); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return out, nil
}

func (r *repository) CreateReceipt(ctx context.Context, rc *UpgradeReceipt) error {
	query := `
		INSERT INTO upgrade_receipts
			(id, user_id, listing_id, upgrade_type, tokens_spent, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING purchased_at`

	err := r.db.GetContext(ctx, &rc.PurchasedAt, query,
		rc.ID, rc.UserID, rc.ListingID, rc.UpgradeType, rc.TokensSpent, rc.ExpiresAt)
	if err != nil {
		return fmt.Errorf("create receipt: %w", err)
	}
	return nil
}

const paymentColumns = `id, user_id, payment_address, amount_sats, tokens_amount,
	status, qr_code_data, expires_at, completed_at, created_at`

func (r *repository) CreatePayment(ctx context.Context, p *Payment) error {
	query := `
		INSERT INTO payments (id, user_id, payment_address, amount_sats,
			tokens_amount, status, qr_code_data, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`

	err := r.db.GetContext(ctx, &p.CreatedAt, query,
		p.ID, p.UserID, p.PaymentAddress, p.AmountSats,
		p.TokensAmount, p.Status, p.QRCodeData, p.ExpiresAt)
	if err != nil {
		if core.IsUniqueViolation(err) {
			return fmt.Errorf("create payment: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

func (r *repository) GetPayment(ctx context.Context, id string) (*Payment, error) {
	var p Payment
	err := r.db.GetContext(ctx, &p,
		`SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id)
	if core.IsNoRows(err) {
		return nil, fmt.Errorf("get payment: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get payment: %w", err)
	}
	return &p, nil
}

// CompletePayment flips a pending, unexpired payment to completed. Losing
// the race to another completion returns ErrConflict.
func (r *repository) CompletePayment(
	ctx context.Context,
	id string,
	now time.Time,
) (*Payment, error) {
	query := `
		UPDATE payments
		SET status = 'completed', completed_at = $2
		WHERE id = $1 AND status = 'pending' AND expires_at > $2
		RETURNING ` + paymentColumns

	var p Payment
	err := r.db.GetContext(ctx, &p, query, id, now)
	if core.IsNoRows(err) {
		if _, getErr := r.GetPayment(ctx, id); getErr != nil {
			return nil, fmt.Errorf("complete payment: %w", getErr)
		}
		return nil, fmt.Errorf("complete payment: %w", core.ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("complete payment: %w", err)
	}
	return &p, nil
}

func (r *repository) Stats(ctx context.Context) (*Stats, error) {
	query := `
		SELECT
			COALESCE((SELECT -SUM(amount) FROM transactions WHERE type = 'debit'), 0) AS coins_spent,
			COALESCE((SELECT SUM(tokens_amount) FROM payments WHERE status = 'completed'), 0) AS coins_purchased,
			(SELECT COUNT(*) FROM payments WHERE status = 'pending') AS pending_payments,
			(SELECT COUNT(*) FROM payments WHERE status = 'completed') AS completed_payments`

	var s Stats
	if err := r.db.GetContext(ctx, &s, query); err != nil {
		return nil, fmt.Errorf("wallet stats: %w", err)
	}
	return &s, nil
}
