// AngelaMos | 2026
// handler.go

package community

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

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

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator, writeLimit func(http.Handler) http.Handler,
) {
	r.Route("/community/posts", func(r chi.Router) {
		r.Get("/", h.ListPosts)
		r.Get("/{postID}", h.GetThread)
		r.Get("/{postID}/replies", h.ListReplies)

		r.Group(func(r chi.Router) {
			r.Use(authenticator)
			if writeLimit != nil {
				r.Use(writeLimit)
			}
			r.Post("/", h.CreatePost)
			r.Post("/{postID}/replies", h.CreateReply)
			r.Post("/{postID}/like", h.Like)
			r.Delete("/{postID}/like", h.Unlike)
		})
	})
}

func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	var req CreatePostRequest
	if !h.decode(w, r, &req) {
		return
	}

	p, err := h.service.CreatePost(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		writeCommunityError(w, err)
		return
	}

	core.Created(w, p)
}

func (h *Handler) ListPosts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := ListParams{
		Category: q.Get("category"),
		Page:     atoi(q.Get("page")),
		PageSize: atoi(q.Get("page_size")),
	}
	params.Normalize()

	posts, total, err := h.service.List(r.Context(), params)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}
	if posts == nil {
		posts = []Post{}
	}

	core.Paginated(w, posts, params.Page, params.PageSize, int64(total))
}

func (h *Handler) GetThread(w http.ResponseWriter, r *http.Request) {
	t, err := h.service.Thread(r.Context(), chi.URLParam(r, "postID"))
	if err != nil {
		writeCommunityError(w, err)
		return
	}

	core.OK(w, t)
}

func (h *Handler) ListReplies(w http.ResponseWriter, r *http.Request) {
	replies, err := h.service.Replies(r.Context(), chi.URLParam(r, "postID"))
	if err != nil {
		writeCommunityError(w, err)
		return
	}
	if replies == nil {
		replies = []Reply{}
	}

	core.OK(w, replies)
}

func (h *Handler) CreateReply(w http.ResponseWriter, r *http.Request) {
	var req CreateReplyRequest
	if !h.decode(w, r, &req) {
		return
	}

	rp, err := h.service.Reply(
		r.Context(),
		middleware.GetUserID(r.Context()),
		chi.URLParam(r, "postID"),
		req,
	)
	if err != nil {
		writeCommunityError(w, err)
		return
	}

	core.Created(w, rp)
}

func (h *Handler) Like(w http.ResponseWriter, r *http.Request) {
	state, err := h.service.Like(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "postID"))
	if err != nil {
		writeCommunityError(w, err)
		return
	}

	core.OK(w, state)
}

func (h *Handler) Unlike(w http.ResponseWriter, r *http.Request) {
	state, err := h.service.Unlike(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "postID"))
	if err != nil {
		writeCommunityError(w, err)
		return
	}

	core.OK(w, state)
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

func writeCommunityError(w http.ResponseWriter, err error) {
	if errors.Is(err, core.ErrNotFound) {
		core.NotFound(w, "post")
		return
	}
	core.JSONError(w, err)
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s) //nolint:errcheck // zero normalizes to the default
	return n
}
