// AngelaMos | 2026
// handler.go

package lifecycle

import (
	"encoding/json"
	"errors"
	"net/http"
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

// RegisterRoutes mounts the mutating listing routes. writeLimit is applied
// to the coin-spending POSTs only.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator, writeLimit func(http.Handler) http.Handler,
) {
	r.Group(func(r chi.Router) {
		r.Use(authenticator)

		r.Get("/listings/{listingID}/bump", h.BumpEligibility)
		r.Get("/listings/{listingID}/available-now", h.AvailableNowEligibility)
		r.Put("/listings/{listingID}/status", h.SetStatus)

		r.Group(func(r chi.Router) {
			if writeLimit != nil {
				r.Use(writeLimit)
			}
			r.Post("/listings", h.CreateListing)
			r.Post("/listings/{listingID}/bump", h.Bump)
			r.Post("/listings/{listingID}/available-now", h.SetAvailableNow)
			r.Post("/upgrades/purchase", h.PurchaseUpgrade)
		})
	})
}

func (h *Handler) CreateListing(w http.ResponseWriter, r *http.Request) {
	var req listing.CreateListingRequest
	if !h.decode(w, r, &req) {
		return
	}

	l, err := h.service.CreateListing(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		writeLifecycleError(w, err)
		return
	}

	core.Created(w, listing.ToListingResponse(l, time.Now()))
}

func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var req listing.UpdateStatusRequest
	if !h.decode(w, r, &req) {
		return
	}

	l, err := h.service.SetStatus(
		r.Context(),
		middleware.GetUserID(r.Context()),
		chi.URLParam(r, "listingID"),
		listing.Status(req.Status),
	)
	if err != nil {
		writeLifecycleError(w, err)
		return
	}

	core.OK(w, listing.ToListingResponse(l, time.Now()))
}

func (h *Handler) BumpEligibility(w http.ResponseWriter, r *http.Request) {
	d, err := h.service.BumpEligibility(
		r.Context(),
		middleware.GetUserID(r.Context()),
		chi.URLParam(r, "listingID"),
	)
	if err != nil {
		writeLifecycleError(w, err)
		return
	}

	core.OK(w, ToEligibilityResponse(d))
}

func (h *Handler) Bump(w http.ResponseWriter, r *http.Request) {
	l, err := h.service.Bump(
		r.Context(),
		middleware.GetUserID(r.Context()),
		chi.URLParam(r, "listingID"),
	)
	if err != nil {
		writeLifecycleError(w, err)
		return
	}

	core.OK(w, listing.ToListingResponse(l, time.Now()))
}

func (h *Handler) AvailableNowEligibility(w http.ResponseWriter, r *http.Request) {
	d, err := h.service.AvailableNowEligibility(
		r.Context(),
		middleware.GetUserID(r.Context()),
		chi.URLParam(r, "listingID"),
	)
	if err != nil {
		writeLifecycleError(w, err)
		return
	}

	core.OK(w, ToEligibilityResponse(d))
}

func (h *Handler) SetAvailableNow(w http.ResponseWriter, r *http.Request) {
	var req AvailableNowRequest
	if !h.decode(w, r, &req) {
		return
	}

	l, err := h.service.SetAvailableNow(
		r.Context(),
		middleware.GetUserID(r.Context()),
		chi.URLParam(r, "listingID"),
		*req.Enabled,
	)
	if err != nil {
		writeLifecycleError(w, err)
		return
	}

	core.OK(w, listing.ToListingResponse(l, time.Now()))
}

func (h *Handler) PurchaseUpgrade(w http.ResponseWriter, r *http.Request) {
	var req PurchaseUpgradeRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.service.PurchaseUpgrade(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		writeLifecycleError(w, err)
		return
	}

	core.Created(w, ToPurchaseResponse(result, time.Now()))
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

func statusFor(d *Denial) (int, string) {
	return core.StatusFor(d)
}

func writeLifecycleError(w http.ResponseWriter, err error) {
	if errors.Is(err, core.ErrNotFound) {
		core.NotFound(w, "listing")
		return
	}
	core.JSONError(w, err)
}
