// AngelaMos | 2026
// service.go

package moderation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/lovelistings/internal/core"
	"github.com/carterperez-dev/lovelistings/internal/listing"
	"github.com/carterperez-dev/lovelistings/internal/metrics"
)

const (
	MaxFeatureDays    = 90
	DefaultActionsLog = 100
)

type FeedInvalidator interface {
	Invalidate(ctx context.Context)
}

type Service struct {
	store  Store
	feed   FeedInvalidator
	logger *slog.Logger
	now    func() time.Time
}

func NewService(st Store, feed FeedInvalidator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: st, feed: feed, logger: logger, now: time.Now}
}

func (s *Service) Flag(ctx context.Context, reporterID string, req FlagRequest) (*Flag, error) {
	f := &Flag{
		ID:          uuid.New().String(),
		ContentType: ContentType(req.ContentType),
		ContentID:   req.ContentID,
		ReporterID:  reporterID,
		Reason:      core.PlainText(req.Reason),
		Details:     core.PlainText(req.Details),
		Status:      FlagPending,
	}
	if f.Reason == "" {
		return nil, fmt.Errorf("flag: empty reason: %w", core.ErrInvalidInput)
	}
	if err := s.store.CreateFlag(ctx, f); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "content flagged",
		"flag_id", f.ID, "content_type", f.ContentType, "content_id", f.ContentID)
	return f, nil
}

func (s *Service) ListFlags(
	ctx context.Context,
	status FlagStatus,
	page, pageSize int,
) ([]Flag, int, error) {
	return s.store.ListFlags(ctx, status, pageSize, (page-1)*pageSize)
}

// Review settles a pending flag. Approving a listing flag takes the
// listing down in the same transaction.
func (s *Service) Review(
	ctx context.Context,
	adminID, flagID string,
	req ReviewRequest,
) (f *Flag, err error) {
	ctx, span := core.StartSpan(ctx, "moderation.review",
		attribute.String("flag.id", flagID),
		attribute.String("flag.status", req.Status))
	defer func() { core.EndSpan(span, err) }()

	status := FlagStatus(req.Status)
	var notes *string
	if req.Notes != "" {
		n := core.PlainText(req.Notes)
		notes = &n
	}

	removed := false
	err = s.store.InTx(ctx, func(tx Tx) error {
		reviewed, err := tx.ReviewFlag(ctx, flagID, adminID, status, notes, s.now())
		if err != nil {
			if errors.Is(err, core.ErrConflict) {
				return core.NewAppError(core.ErrConflict, "Flag was already reviewed",
					http.StatusConflict, "ALREADY_REVIEWED")
			}
			return err
		}
		f = reviewed

		if err := tx.CreateAction(ctx, newAction(adminID, ActionReviewFlag,
			"flag", f.ID, string(status))); err != nil {
			return err
		}

		if status != FlagApproved || f.ContentType != ContentListing {
			return nil
		}
		if err := tx.SetListingStatus(ctx, f.ContentID, listing.StatusRemoved); err != nil {
			return err
		}
		removed = true
		return tx.CreateAction(ctx, newAction(adminID, ActionRemoveListing,
			string(ContentListing), f.ContentID, "flag "+f.ID))
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordReview(string(status))
	if removed {
		s.invalidate(ctx)
	}
	s.logger.InfoContext(ctx, "flag reviewed",
		"flag_id", flagID, "admin_id", adminID, "status", status, "listing_removed", removed)
	return f, nil
}

// RemoveListing is a direct admin takedown without a flag.
func (s *Service) RemoveListing(ctx context.Context, adminID, listingID, reason string) error {
	err := s.store.InTx(ctx, func(tx Tx) error {
		if err := tx.SetListingStatus(ctx, listingID, listing.StatusRemoved); err != nil {
			return err
		}
		return tx.CreateAction(ctx, newAction(adminID, ActionRemoveListing,
			string(ContentListing), listingID, core.PlainText(reason)))
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx)
	return nil
}

// FeatureListing grants the admin-only featured placement for days days.
func (s *Service) FeatureListing(
	ctx context.Context,
	adminID, listingID string,
	days int,
) (l *listing.Listing, err error) {
	if days < 1 || days > MaxFeatureDays {
		return nil, fmt.Errorf("feature listing: days %d: %w", days, core.ErrInvalidInput)
	}
	until := s.now().Add(time.Duration(days) * 24 * time.Hour)

	err = s.store.InTx(ctx, func(tx Tx) error {
		l, err = tx.FeatureListing(ctx, listingID, until)
		if err != nil {
			return err
		}
		return tx.CreateAction(ctx, newAction(adminID, ActionFeatureListing,
			string(ContentListing), listingID, fmt.Sprintf("%d days", days)))
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	return l, nil
}

func (s *Service) Actions(ctx context.Context, limit int) ([]AdminAction, error) {
	if limit <= 0 || limit > 500 {
		limit = DefaultActionsLog
	}
	return s.store.ListActions(ctx, limit)
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	return s.store.Stats(ctx)
}

func (s *Service) invalidate(ctx context.Context) {
	if s.feed != nil {
		s.feed.Invalidate(ctx)
	}
}

func newAction(adminID, actionType, targetType, targetID, details string) *AdminAction {
	return &AdminAction{
		ID:         uuid.New().String(),
		AdminID:    adminID,
		ActionType: actionType,
		TargetType: targetType,
		TargetID:   targetID,
		Details:    details,
	}
}
