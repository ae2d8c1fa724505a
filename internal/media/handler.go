// AngelaMos | 2026
// handler.go

package media

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/lovelistings/internal/core"
	"github.com/carterperez-dev/lovelistings/internal/middleware"
)

const (
	formField       = "files"
	multipartMemory = 8 << 20
	maxFilesPerForm = 40
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator, writeLimit func(http.Handler) http.Handler,
) {
	r.Group(func(r chi.Router) {
		r.Use(authenticator)

		r.Get("/media", h.Mine)

		r.Group(func(r chi.Router) {
			if writeLimit != nil {
				r.Use(writeLimit)
			}
			r.Post("/media/upload", h.Upload)
		})
	})
}

func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.service.MaxBytes()*maxFilesPerForm)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			core.JSON(w, http.StatusRequestEntityTooLarge, core.Response{
				Success: false,
				Error:   &core.ErrorBody{Code: "FILE_TOO_LARGE", Message: "request body too large"},
			})
			return
		}
		core.BadRequest(w, "expected multipart form data")
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll() //nolint:errcheck // temp cleanup
	}()

	headers := r.MultipartForm.File[formField]
	if len(headers) > maxFilesPerForm {
		core.BadRequest(w, "too many files")
		return
	}

	uploads := make([]Upload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			core.BadRequest(w, "unreadable file "+fh.Filename)
			return
		}
		defer closeFile(f)
		uploads = append(uploads, Upload{Name: fh.Filename, Body: f})
	}

	results, err := h.service.Upload(r.Context(), middleware.GetUserID(r.Context()), uploads)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.Created(w, results)
}

func (h *Handler) Mine(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit")) //nolint:errcheck // zero falls back
	items, err := h.service.Mine(r.Context(), middleware.GetUserID(r.Context()), limit)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}
	if items == nil {
		items = []Media{}
	}
	core.OK(w, items)
}

func closeFile(f multipart.File) {
	_ = f.Close() //nolint:errcheck // read only
}
