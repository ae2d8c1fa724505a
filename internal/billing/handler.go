// AngelaMos | 2026
// handler.go

package billing

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
	"github.com/carterperez-dev/lovelistings/internal/wallet"
)

type CreatePaymentRequest struct {
	Coins int `json:"tokens_amount" validate:"required,min=1,max=1000000"`
}

type MembershipRequest struct {
	Tier string `json:"tier" validate:"required,oneof=basic vip elite"`
}

type PaymentResponse struct {
	ID             string               `json:"id"`
	PaymentAddress string               `json:"payment_address"`
	AmountSats     int64                `json:"amount_sats"`
	AmountBTC      string               `json:"amount_btc"`
	TokensAmount   int                  `json:"tokens_amount"`
	Status         wallet.PaymentStatus `json:"status"`
	QRCodeData     string               `json:"qr_code_data"`
	ExpiresAt      time.Time            `json:"expires_at"`
	CompletedAt    *time.Time           `json:"completed_at,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
}

func ToPaymentResponse(p *wallet.Payment) PaymentResponse {
	return PaymentResponse{
		ID:             p.ID,
		PaymentAddress: p.PaymentAddress,
		AmountSats:     p.AmountSats,
		AmountBTC:      FormatBTC(p.AmountSats),
		TokensAmount:   p.TokensAmount,
		Status:         p.Status,
		QRCodeData:     p.QRCodeData,
		ExpiresAt:      p.ExpiresAt,
		CompletedAt:    p.CompletedAt,
		CreatedAt:      p.CreatedAt,
	}
}

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

		r.Get("/wallet", h.Summary)
		r.Get("/transactions", h.History)
		r.Get("/payments/bitcoin/{paymentID}", h.GetPayment)

		r.Group(func(r chi.Router) {
			if writeLimit != nil {
				r.Use(writeLimit)
			}
			r.Post("/payments/bitcoin", h.CreatePayment)
			r.Post("/payments/bitcoin/{paymentID}/complete", h.CompletePayment)
			r.Post("/membership", h.PurchaseMembership)
		})
	})
}

func (h *Handler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req CreatePaymentRequest
	if !h.decode(w, r, &req) {
		return
	}

	p, err := h.service.CreatePayment(r.Context(), middleware.GetUserID(r.Context()), req.Coins)
	if err != nil {
		writeBillingError(w, err)
		return
	}

	core.Created(w, ToPaymentResponse(p))
}

func (h *Handler) GetPayment(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.GetPayment(
		r.Context(),
		middleware.GetUserID(r.Context()),
		chi.URLParam(r, "paymentID"),
	)
	if err != nil {
		writeBillingError(w, err)
		return
	}

	core.OK(w, ToPaymentResponse(p))
}

func (h *Handler) CompletePayment(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.CompletePayment(
		r.Context(),
		middleware.GetUserID(r.Context()),
		chi.URLParam(r, "paymentID"),
	)
	if err != nil {
		writeBillingError(w, err)
		return
	}

	core.OK(w, ToPaymentResponse(p))
}

func (h *Handler) PurchaseMembership(w http.ResponseWriter, r *http.Request) {
	var req MembershipRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.service.PurchaseMembership(r.Context(), middleware.GetUserID(r.Context()), req.Tier)
	if err != nil {
		writeBillingError(w, err)
		return
	}

	core.OK(w, res)
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	limit := DefaultHistorySize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}

	txs, err := h.service.History(r.Context(), middleware.GetUserID(r.Context()), limit)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}
	if txs == nil {
		txs = []wallet.Transaction{}
	}

	core.OK(w, txs)
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.service.Summary(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeBillingError(w, err)
		return
	}

	core.OK(w, sum)
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

func writeBillingError(w http.ResponseWriter, err error) {
	if errors.Is(err, core.ErrNotFound) && !core.IsAppError(err) {
		core.NotFound(w, "payment")
		return
	}
	core.JSONError(w, err)
}
