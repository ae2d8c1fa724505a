// AngelaMos | 2026
// prometheus.go

package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/carterperez-dev/lovelistings/internal/core"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lovelistings_http_requests_total",
		Help: "HTTP requests by route pattern, method and status",
	}, []string{"route", "method", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lovelistings_http_request_duration_seconds",
		Help:    "HTTP request latency by route pattern",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	LifecycleActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lovelistings_lifecycle_actions_total",
		Help: "Applied listing lifecycle actions by action and tier",
	}, []string{"action", "tier"})

	LifecycleDenials = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lovelistings_lifecycle_denials_total",
		Help: "Denied listing lifecycle actions by action and reason kind",
	}, []string{"action", "kind"})

	LifecycleConflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lovelistings_lifecycle_conflicts_total",
		Help: "Optimistic update conflicts seen while applying an action",
	}, []string{"action"})

	CoinsMoved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lovelistings_coins_total",
		Help: "Love Coins debited or credited",
	}, []string{"direction"})

	PaymentsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lovelistings_payments_created_total",
		Help: "Bitcoin payment requests created",
	})

	PaymentsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lovelistings_payments_completed_total",
		Help: "Bitcoin payments completed and credited",
	})

	MediaUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lovelistings_media_uploads_total",
		Help: "Stored media files by kind, deduplicated uploads counted separately",
	}, []string{"kind", "result"})

	FlagsReviewed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lovelistings_flags_reviewed_total",
		Help: "Moderation flags reviewed by outcome",
	}, []string{"status"})
)

func Handler() http.Handler {
	return promhttp.Handler()
}

func RecordAction(action, tier string) {
	LifecycleActions.WithLabelValues(action, label(tier)).Inc()
}

// RecordDenial labels the denial by its sentinel kind.
func RecordDenial(action string, kind error) {
	LifecycleDenials.WithLabelValues(action, kindLabel(kind)).Inc()
}

func RecordConflict(action string) {
	LifecycleConflicts.WithLabelValues(action).Inc()
}

func AddCoins(delta int) {
	switch {
	case delta > 0:
		CoinsMoved.WithLabelValues("credit").Add(float64(delta))
	case delta < 0:
		CoinsMoved.WithLabelValues("debit").Add(float64(-delta))
	}
}

func RecordUpload(kind string, deduplicated bool) {
	result := "stored"
	if deduplicated {
		result = "deduplicated"
	}
	MediaUploads.WithLabelValues(label(kind), result).Inc()
}

func RecordReview(status string) {
	FlagsReviewed.WithLabelValues(label(status)).Inc()
}

func kindLabel(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, core.ErrQuotaExceeded):
		return "quota_exceeded"
	case errors.Is(err, core.ErrCooldownActive):
		return "cooldown_active"
	case errors.Is(err, core.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, core.ErrForbidden):
		return "forbidden"
	case errors.Is(err, core.ErrInvalidInput):
		return "validation"
	case errors.Is(err, core.ErrNotFound):
		return "not_found"
	}
	return "other"
}

func label(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "unknown"
	}
	return v
}

// Middleware records request counts and latency keyed by the chi route
// pattern, so path parameters do not explode label cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		HTTPRequests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		HTTPDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
