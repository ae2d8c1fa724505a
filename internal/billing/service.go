// AngelaMos | 2026
// service.go

package billing

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/lovelistings/internal/config"
	"github.com/carterperez-dev/lovelistings/internal/core"
	"github.com/carterperez-dev/lovelistings/internal/metrics"
	"github.com/carterperez-dev/lovelistings/internal/store"
	"github.com/carterperez-dev/lovelistings/internal/tier"
	"github.com/carterperez-dev/lovelistings/internal/wallet"
)

const (
	satsPerBTC         = 100_000_000
	membershipDays     = 30
	DefaultHistorySize = 50
	addressLength      = 38
)

var membershipPrices = map[tier.Level]int{
	tier.Basic: 49,
	tier.VIP:   99,
	tier.Elite: 199,
}

// MembershipPrice reports the 30 day price of a paid tier.
func MembershipPrice(level tier.Level) (int, bool) {
	p, ok := membershipPrices[level]
	return p, ok
}

type Service struct {
	store  store.Store
	cfg    config.PaymentsConfig
	logger *slog.Logger
	now    func() time.Time
}

func NewService(st store.Store, cfg config.PaymentsConfig, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: st, cfg: cfg, logger: logger, now: time.Now}
}

// satsFor converts a coin amount to satoshis, rounded to the nearest sat.
func (s *Service) satsFor(coins int) int64 {
	return int64(math.Round(float64(coins) * s.cfg.BTCPerCoin * satsPerBTC))
}

// FormatBTC renders sats as a decimal BTC amount without trailing zeros.
func FormatBTC(sats int64) string {
	whole, frac := sats/satsPerBTC, sats%satsPerBTC
	if frac == 0 {
		return fmt.Sprintf("%d", whole)
	}
	return strings.TrimRight(fmt.Sprintf("%d.%08d", whole, frac), "0")
}

func (s *Service) CreatePayment(
	ctx context.Context,
	userID string,
	coins int,
) (p *wallet.Payment, err error) {
	ctx, span := core.StartSpan(ctx, "billing.create_payment",
		attribute.String("user.id", userID),
		attribute.Int("coins", coins))
	defer func() { core.EndSpan(span, err) }()

	if coins < s.cfg.MinCoins {
		return nil, core.NewAppError(core.ErrInvalidInput,
			fmt.Sprintf("Minimum purchase is %d Love Coins", s.cfg.MinCoins),
			http.StatusBadRequest, "MIN_PURCHASE")
	}

	suffix, err := core.RandomLowerAlnum(addressLength)
	if err != nil {
		return nil, fmt.Errorf("payment address: %w", err)
	}
	address := "bc1q" + suffix
	sats := s.satsFor(coins)
	now := s.now()

	p = &wallet.Payment{
		ID:             uuid.New().String(),
		UserID:         userID,
		PaymentAddress: address,
		AmountSats:     sats,
		TokensAmount:   coins,
		Status:         wallet.PaymentPending,
		QRCodeData:     fmt.Sprintf("bitcoin:%s?amount=%s", address, FormatBTC(sats)),
		ExpiresAt:      now.Add(s.cfg.PaymentTTL),
	}
	if err := s.store.CreatePayment(ctx, p); err != nil {
		return nil, err
	}

	metrics.PaymentsCreated.Inc()
	return p, nil
}

// GetPayment hides other users' payments behind NotFound.
func (s *Service) GetPayment(ctx context.Context, userID, id string) (*wallet.Payment, error) {
	p, err := s.store.GetPayment(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, fmt.Errorf("get payment: %w", core.ErrNotFound)
	}
	p.Status = p.StatusAt(s.now())
	return p, nil
}

// CompletePayment settles a pending payment and credits its coins in the
// same transaction. A second completion fails with ErrConflict.
func (s *Service) CompletePayment(
	ctx context.Context,
	userID, id string,
) (p *wallet.Payment, err error) {
	ctx, span := core.StartSpan(ctx, "billing.complete_payment",
		attribute.String("user.id", userID),
		attribute.String("payment.id", id))
	defer func() { core.EndSpan(span, err) }()

	err = s.store.InTx(ctx, func(tx store.Tx) error {
		existing, err := tx.GetPayment(ctx, id)
		if err != nil {
			return err
		}
		if existing.UserID != userID {
			return fmt.Errorf("complete payment: %w", core.ErrNotFound)
		}

		now := s.now()
		switch existing.StatusAt(now) {
		case wallet.PaymentCompleted:
			return core.NewAppError(core.ErrConflict, "Payment already completed", http.StatusConflict, "ALREADY_COMPLETED")
		case wallet.PaymentExpired:
			return core.NewAppError(core.ErrConflict, "Payment has expired", http.StatusConflict, "PAYMENT_EXPIRED")
		}

		if _, err := tx.LockUser(ctx, userID); err != nil {
			return err
		}
		if p, err = tx.CompletePayment(ctx, id, now); err != nil {
			return err
		}
		_, err = store.Credit(ctx, tx, userID, p.TokensAmount,
			fmt.Sprintf("Bitcoin payment %s", id))
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.PaymentsCompleted.Inc()
	metrics.AddCoins(p.TokensAmount)
	s.logger.InfoContext(ctx, "payment completed",
		"payment_id", id, "user_id", userID, "coins", p.TokensAmount)
	return p, nil
}

type MembershipResult struct {
	Tier      tier.Level `json:"tier"`
	ExpiresAt time.Time  `json:"expires_at"`
	Cost      int        `json:"cost"`
	Balance   int        `json:"balance"`
}

// PurchaseMembership debits the tier price and sets the tier for 30 days.
// Renewing the current, still running tier extends from its expiry.
func (s *Service) PurchaseMembership(
	ctx context.Context,
	userID, raw string,
) (res *MembershipResult, err error) {
	ctx, span := core.StartSpan(ctx, "billing.purchase_membership",
		attribute.String("user.id", userID),
		attribute.String("tier", raw))
	defer func() { core.EndSpan(span, err) }()

	level, ok := tier.Parse(raw)
	price, priced := membershipPrices[level]
	if !ok || !priced {
		return nil, core.NewAppError(core.ErrInvalidInput, "Invalid tier", http.StatusBadRequest, "INVALID_TIER")
	}

	err = s.store.InTx(ctx, func(tx store.Tx) error {
		u, err := tx.LockUser(ctx, userID)
		if err != nil {
			return err
		}
		if u.IsSuspended {
			return core.NewAppError(core.ErrForbidden, "Your account is suspended", http.StatusForbidden, "SUSPENDED")
		}

		now := s.now()
		start := now
		if u.EffectiveTier(now) == level && u.TierExpires != nil && u.TierExpires.After(now) {
			start = *u.TierExpires
		}
		expires := start.Add(membershipDays * 24 * time.Hour)

		if u.LoveCoins < price {
			return core.NewAppError(core.ErrInsufficientFunds,
				fmt.Sprintf("Insufficient Love Coins: %d required, %d available", price, u.LoveCoins),
				http.StatusPaymentRequired, "INSUFFICIENT_FUNDS")
		}
		if _, err := store.Debit(ctx, tx, userID, price,
			fmt.Sprintf("Upgraded to %s tier", level)); err != nil {
			return err
		}
		if err := tx.UpdateTier(ctx, userID, string(level), &expires); err != nil {
			return err
		}

		res = &MembershipResult{
			Tier:      level,
			ExpiresAt: expires,
			Cost:      price,
			Balance:   u.LoveCoins - price,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordAction("membership", string(level))
	metrics.AddCoins(-price)
	return res, nil
}

func (s *Service) History(ctx context.Context, userID string, limit int) ([]wallet.Transaction, error) {
	if limit <= 0 || limit > 200 {
		limit = DefaultHistorySize
	}
	return s.store.ListTransactions(ctx, userID, limit)
}

type WalletSummary struct {
	Balance     int                `json:"balance"`
	Tier        tier.Level         `json:"tier"`
	TierExpires *time.Time         `json:"tier_expires,omitempty"`
	Plans       map[tier.Level]int `json:"membership_prices"`
}

func (s *Service) Summary(ctx context.Context, userID string) (*WalletSummary, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &WalletSummary{
		Balance:     u.LoveCoins,
		Tier:        u.EffectiveTier(s.now()),
		TierExpires: u.TierExpires,
		Plans:       membershipPrices,
	}, nil
}
