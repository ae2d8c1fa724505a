// AngelaMos | 2026
// handler_test.go

package admin

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func passthrough(next http.Handler) http.Handler { return next }

func newTestRouter(h *Handler) chi.Router {
	r := chi.NewRouter()
	h.RegisterRoutes(r, passthrough, passthrough)
	return r
}

func TestSystemStatsIncludesPlatformCounters(t *testing.T) {
	h := NewHandler(HandlerConfig{
		DBStats:    func() sql.DBStats { return sql.DBStats{OpenConnections: 3, InUse: 1} },
		RedisStats: func() *redis.PoolStats { return &redis.PoolStats{TotalConns: 4} },
		DBPing:     func(context.Context) error { return nil },
		RedisPing:  func(context.Context) error { return errors.New("down") },
		Platform: []PlatformSource{
			{Name: "users", Fetch: func(context.Context) (any, error) {
				return map[string]int{"total": 12}, nil
			}},
			{Name: "wallet", Fetch: func(context.Context) (any, error) {
				return nil, errors.New("timeout")
			}},
		},
	})
	h.hostMemory = func(context.Context) (*mem.VirtualMemoryStat, error) {
		return &mem.VirtualMemoryStat{Total: 1000, Used: 250, UsedPercent: 25}, nil
	}

	rec := httptest.NewRecorder()
	newTestRouter(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data SystemStatsResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.True(t, body.Data.Database.Healthy)
	assert.Equal(t, 3, body.Data.Database.Stats.OpenConnections)
	assert.False(t, body.Data.Redis.Healthy)
	require.NotNil(t, body.Data.Host)
	assert.Equal(t, uint64(1000), body.Data.Host.MemTotal)
	assert.InDelta(t, 25.0, body.Data.Host.MemUsedPercent, 0.001)

	assert.Equal(t, map[string]any{"total": float64(12)}, body.Data.Platform["users"])
	assert.Equal(t, map[string]any{"error": "unavailable"}, body.Data.Platform["wallet"])
}

func TestHostStatsFailure(t *testing.T) {
	h := NewHandler(HandlerConfig{})
	h.hostMemory = func(context.Context) (*mem.VirtualMemoryStat, error) {
		return nil, errors.New("no procfs")
	}

	rec := httptest.NewRecorder()
	newTestRouter(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/stats/host", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRuntimeStats(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(NewHandler(HandlerConfig{})).ServeHTTP(rec,
		httptest.NewRequest(http.MethodGet, "/admin/stats/runtime", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"go_version"`)
}
