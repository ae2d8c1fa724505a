// AngelaMos | 2026
// handler.go

package listing

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/lovelistings/internal/core"
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

// RegisterRoutes mounts read and owner routes. The lifecycle package owns
// POST /listings and the bump and available-now routes under the same
// prefix, so paths are registered individually instead of through Route.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Get("/listings", h.Feed)
	r.Get("/listings/available-now", h.AvailableNow)
	r.Get("/listings/slug/{slug}", h.GetBySlug)
	r.Get("/listings/{listingID}", h.Get)

	r.Group(func(r chi.Router) {
		r.Use(authenticator)

		r.Patch("/listings/{listingID}", h.Update)
		r.Get("/my-listings", h.Mine)

		r.Get("/favorites", h.Favorites)
		r.Post("/favorites/{listingID}", h.AddFavorite)
		r.Delete("/favorites/{listingID}", h.RemoveFavorite)
	})
}

func (h *Handler) Feed(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := FeedParams{
		Page:     parseIntQuery(r, "page", 1),
		PageSize: parseIntQuery(r, "page_size", 0),
		Category: q.Get("category"),
		City:     q.Get("city"),
	}

	page, err := h.service.Feed(r.Context(), params)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	params.Normalize(h.service.feed.PageSize)
	core.Paginated(w,
		ToListingResponseList(page.Items, time.Now()),
		params.Page, params.PageSize, int64(page.Total),
	)
}

func (h *Handler) AvailableNow(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.AvailableNow(r.Context())
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToListingResponseList(items, time.Now()))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	l, err := h.service.Get(r.Context(), chi.URLParam(r, "listingID"))
	if err != nil {
		writeListingError(w, err)
		return
	}

	core.OK(w, ToListingResponse(l, time.Now()))
}

func (h *Handler) GetBySlug(w http.ResponseWriter, r *http.Request) {
	l, err := h.service.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeListingError(w, err)
		return
	}

	core.OK(w, ToListingResponse(l, time.Now()))
}

func (h *Handler) Mine(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.Mine(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeListingError(w, err)
		return
	}

	core.OK(w, ToListingResponseList(items, time.Now()))
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateListingRequest
	if !h.decode(w, r, &req) {
		return
	}

	l, err := h.service.Update(
		r.Context(),
		middleware.GetUserID(r.Context()),
		chi.URLParam(r, "listingID"),
		req,
	)
	if err != nil {
		writeListingError(w, err)
		return
	}

	core.OK(w, ToListingResponse(l, time.Now()))
}

func (h *Handler) Favorites(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.Favorites(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToListingResponseList(items, time.Now()))
}

func (h *Handler) AddFavorite(w http.ResponseWriter, r *http.Request) {
	err := h.service.AddFavorite(
		r.Context(),
		middleware.GetUserID(r.Context()),
		chi.URLParam(r, "listingID"),
	)
	if err != nil {
		writeListingError(w, err)
		return
	}

	core.NoContent(w)
}

func (h *Handler) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	err := h.service.RemoveFavorite(
		r.Context(),
		middleware.GetUserID(r.Context()),
		chi.URLParam(r, "listingID"),
	)
	if err != nil {
		writeListingError(w, err)
		return
	}

	core.NoContent(w)
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

func writeListingError(w http.ResponseWriter, err error) {
	if errors.Is(err, core.ErrNotFound) {
		core.NotFound(w, "listing")
		return
	}
	core.JSONError(w, err)
}

func parseIntQuery(r *http.Request, key string, defaultVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return parsed
}
