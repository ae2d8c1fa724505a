// AngelaMos | 2026
// handler.go

package moderation

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/lovelistings/internal/core"
	"github.com/carterperez-dev/lovelistings/internal/listing"
	"github.com/carterperez-dev/lovelistings/internal/middleware"
)

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator, writeLimit func(http.Handler) http.Handler,
) {
	r.Group(func(r chi.Router) {
		r.Use(authenticator)
		if writeLimit != nil {
			r.Use(writeLimit)
		}
		r.Post("/flags", h.CreateFlag)
	})
}

func (h *Handler) RegisterAdminRoutes(
	r chi.Router,
	authenticator, adminOnly func(http.Handler) http.Handler,
) {
	r.Route("/admin/moderation", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(adminOnly)

		r.Get("/flags", h.ListFlags)
		r.Post("/flags/{flagID}/review", h.ReviewFlag)
		r.Post("/listings/{listingID}/feature", h.FeatureListing)
		r.Post("/listings/{listingID}/remove", h.RemoveListing)
		r.Get("/actions", h.ListActions)
	})
}

func (h *Handler) CreateFlag(w http.ResponseWriter, r *http.Request) {
	var req FlagRequest
	if !h.decode(w, r, &req) {
		return
	}

	f, err := h.service.Flag(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		writeModerationError(w, err, "flag")
		return
	}

	core.Created(w, f)
}

func (h *Handler) ListFlags(w http.ResponseWriter, r *http.Request) {
	status := FlagStatus(r.URL.Query().Get("status"))
	switch status {
	case "":
		status = FlagPending
	case FlagPending, FlagApproved, FlagRejected:
	default:
		core.BadRequest(w, "status must be one of pending approved rejected")
		return
	}

	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "page_size", 20)
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	flags, total, err := h.service.ListFlags(r.Context(), status, page, pageSize)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}
	if flags == nil {
		flags = []Flag{}
	}

	core.Paginated(w, flags, page, pageSize, int64(total))
}

func (h *Handler) ReviewFlag(w http.ResponseWriter, r *http.Request) {
	var req ReviewRequest
	if !h.decode(w, r, &req) {
		return
	}

	f, err := h.service.Review(
		r.Context(),
		middleware.GetUserID(r.Context()),
		chi.URLParam(r, "flagID"),
		req,
	)
	if err != nil {
		writeModerationError(w, err, "flag")
		return
	}

	core.OK(w, f)
}

func (h *Handler) FeatureListing(w http.ResponseWriter, r *http.Request) {
	var req FeatureRequest
	if !h.decode(w, r, &req) {
		return
	}

	l, err := h.service.FeatureListing(
		r.Context(),
		middleware.GetUserID(r.Context()),
		chi.URLParam(r, "listingID"),
		req.Days,
	)
	if err != nil {
		writeModerationError(w, err, "listing")
		return
	}

	core.OK(w, listing.ToListingResponse(l, time.Now()))
}

func (h *Handler) RemoveListing(w http.ResponseWriter, r *http.Request) {
	var req RemoveRequest
	if !h.decode(w, r, &req) {
		return
	}

	err := h.service.RemoveListing(
		r.Context(),
		middleware.GetUserID(r.Context()),
		chi.URLParam(r, "listingID"),
		req.Reason,
	)
	if err != nil {
		writeModerationError(w, err, "listing")
		return
	}

	core.NoContent(w)
}

func (h *Handler) ListActions(w http.ResponseWriter, r *http.Request) {
	actions, err := h.service.Actions(r.Context(), queryInt(r, "limit", DefaultActionsLog))
	if err != nil {
		core.InternalServerError(w, err)
		return
	}
	if actions == nil {
		actions = []AdminAction{}
	}

	core.OK(w, actions)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		core.BadRequest(w, "invalid request body")
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return false
	}
	return true
}

func writeModerationError(w http.ResponseWriter, err error, resource string) {
	if errors.Is(err, core.ErrNotFound) && !core.IsAppError(err) {
		core.NotFound(w, resource)
		return
	}
	core.JSONError(w, err)
}

func queryInt(r *http.Request, key string, def int) int {
	if v, err := strconv.Atoi(r.URL.Query().Get(key)); err == nil {
		return v
	}
	return def
}
