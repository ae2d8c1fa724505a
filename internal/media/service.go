// AngelaMos | 2026
// service.go

package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/lovelistings/internal/config"
	"github.com/carterperez-dev/lovelistings/internal/core"
	"github.com/carterperez-dev/lovelistings/internal/listing"
	"github.com/carterperez-dev/lovelistings/internal/metrics"
	"github.com/carterperez-dev/lovelistings/internal/tier"
)

// Upload is one file of a multipart request.
type Upload struct {
	Name string
	Body io.Reader
}

type Result struct {
	Media        *Media `json:"media"`
	Deduplicated bool   `json:"deduplicated"`
}

type EntitlementSource interface {
	EntitlementsOf(ctx context.Context, userID string) (tier.Entitlements, error)
}

type Service struct {
	repo         Repository
	storage      *DiskStorage
	entitlements EntitlementSource
	maxBytes     int64
	logger       *slog.Logger
}

func NewService(
	repo Repository,
	storage *DiskStorage,
	entitlements EntitlementSource,
	cfg config.MediaConfig,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:         repo,
		storage:      storage,
		entitlements: entitlements,
		maxBytes:     cfg.MaxUploadMB * 1024 * 1024,
		logger:       logger,
	}
}

func (s *Service) MaxBytes() int64 {
	return s.maxBytes
}

// Upload validates a whole batch before storing any of it. Files whose
// content hash is already known resolve to the existing record.
func (s *Service) Upload(
	ctx context.Context,
	userID string,
	files []Upload,
) (results []Result, err error) {
	ctx, span := core.StartSpan(ctx, "media.upload",
		attribute.String("user.id", userID),
		attribute.Int("files", len(files)))
	defer func() { core.EndSpan(span, err) }()

	if len(files) == 0 {
		return nil, core.NewAppError(core.ErrInvalidInput, "No files uploaded", http.StatusBadRequest, "NO_FILES")
	}

	ent, err := s.entitlements.EntitlementsOf(ctx, userID)
	if err != nil {
		return nil, err
	}

	spools := make([]*spooled, 0, len(files))
	defer func() {
		for _, sp := range spools {
			sp.discard()
		}
	}()

	images := 0
	for _, f := range files {
		sp, err := s.storage.spool(f.Body, s.maxBytes)
		if err != nil {
			return nil, err
		}
		spools = append(spools, sp)

		if err := s.check(ent, f.Name, sp); err != nil {
			return nil, err
		}
		if formats[sp.mime].kind == KindImage {
			images++
		}
	}
	if err := listing.CheckImageCount(ent, images); err != nil {
		return nil, err
	}

	results = make([]Result, 0, len(files))
	for i, sp := range spools {
		res, err := s.store(ctx, userID, files[i].Name, sp)
		if err != nil {
			return nil, err
		}
		metrics.RecordUpload(string(res.Media.Kind()), res.Deduplicated)
		results = append(results, *res)
	}

	s.logger.InfoContext(ctx, "media uploaded", "user_id", userID, "files", len(results))
	return results, nil
}

func (s *Service) check(ent tier.Entitlements, name string, sp *spooled) error {
	if sp.tooBig {
		return core.NewAppError(core.ErrInvalidInput,
			fmt.Sprintf("%s exceeds the %d MB upload limit", name, s.maxBytes/(1024*1024)),
			http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE")
	}

	f, ok := lookupFormat(sp.mime)
	if !ok {
		return core.NewAppError(core.ErrInvalidInput,
			fmt.Sprintf("%s has unsupported type %s", name, sp.mime),
			http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA")
	}

	if f.kind == KindVideo && !ent.AllowsVideo(sp.size) {
		msg := fmt.Sprintf("Your %s tier does not include video uploads", ent.Level)
		if ent.MaxVideoMB > 0 {
			msg = fmt.Sprintf("Your %s tier allows videos up to %d MB", ent.Level, ent.MaxVideoMB)
		}
		return core.NewAppError(core.ErrForbidden, msg, http.StatusForbidden, "VIDEO_LIMIT")
	}
	return nil
}

func (s *Service) store(ctx context.Context, userID, name string, sp *spooled) (*Result, error) {
	existing, err := s.repo.GetByHash(ctx, sp.hash)
	if err == nil {
		return &Result{Media: existing, Deduplicated: true}, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return nil, err
	}

	f := formats[sp.mime]
	localPath, url, err := s.storage.commit(sp, f.ext)
	if err != nil {
		return nil, err
	}

	m := &Media{
		ID:         uuid.New().String(),
		UploaderID: userID,
		FileHash:   sp.hash,
		FileName:   filepath.Base(name),
		FileSize:   sp.size,
		MimeType:   sp.mime,
		CDNURL:     url,
		LocalPath:  localPath,
	}
	if err := s.repo.Create(ctx, m); err != nil {
		if errors.Is(err, core.ErrDuplicateKey) {
			existing, getErr := s.repo.GetByHash(ctx, sp.hash)
			if getErr != nil {
				return nil, getErr
			}
			return &Result{Media: existing, Deduplicated: true}, nil
		}
		return nil, err
	}
	return &Result{Media: m}, nil
}

func (s *Service) Mine(ctx context.Context, userID string, limit int) ([]Media, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.repo.ListByUploader(ctx, userID, limit)
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	return s.repo.Stats(ctx)
}
