// AngelaMos | 2026
// ledger.go

package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/carterperez-dev/lovelistings/internal/core"
	"github.com/carterperez-dev/lovelistings/internal/wallet"
)

// Debit removes amount coins and writes the matching ledger row. Call it
// inside InTx so the two writes commit together. A zero amount is a no-op.
func Debit(
	ctx context.Context,
	tx Tx,
	userID string,
	amount int,
	description string,
) (*wallet.Transaction, error) {
	return adjust(ctx, tx, userID, -amount, wallet.TypeDebit, description)
}

// Credit adds amount coins and writes the matching ledger row.
func Credit(
	ctx context.Context,
	tx Tx,
	userID string,
	amount int,
	description string,
) (*wallet.Transaction, error) {
	return adjust(ctx, tx, userID, amount, wallet.TypeCredit, description)
}

func adjust(
	ctx context.Context,
	tx Tx,
	userID string,
	delta int,
	kind wallet.TransactionType,
	description string,
) (*wallet.Transaction, error) {
	if (kind == wallet.TypeDebit && delta > 0) || (kind == wallet.TypeCredit && delta < 0) {
		return nil, fmt.Errorf("%s of negative amount: %w", kind, core.ErrInvalidInput)
	}
	if delta == 0 {
		return nil, nil
	}

	if _, err := tx.AdjustCoins(ctx, userID, delta); err != nil {
		return nil, err
	}

	t := &wallet.Transaction{
		ID:          uuid.New().String(),
		UserID:      userID,
		Type:        kind,
		Amount:      delta,
		Description: description,
	}
	if err := tx.CreateTransaction(ctx, t); err != nil {
		return nil, err
	}

	return t, nil
}
