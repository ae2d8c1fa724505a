// AngelaMos | 2026
// listing_test.go

package listing

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindowAt(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	later := now.Add(time.Hour)
	earlier := now.Add(-time.Hour)

	tests := []struct {
		name   string
		window Window
		active bool
	}{
		{"disabled", Window{Enabled: false, Until: &later}, false},
		{"enabled future", Window{Enabled: true, Until: &later}, true},
		{"enabled past", Window{Enabled: true, Until: &earlier}, false},
		{"expires exactly now", Window{Enabled: true, Until: &now}, false},
		{"enabled no expiry", Window{Enabled: true}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.active, tt.window.At(now).Active)
		})
	}
}

func TestWindowExpiredIsAlwaysInactive(t *testing.T) {
	properties := gopter.NewProperties(nil)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	properties.Property("expiry at or before now is inactive", prop.ForAll(
		func(enabled bool, offsetMin int64) bool {
			until := base.Add(-time.Duration(offsetMin) * time.Minute)
			return !Window{Enabled: enabled, Until: &until}.At(base).Active
		},
		gen.Bool(),
		gen.Int64Range(0, 60*24*365),
	))

	properties.Property("active state reports the stored expiry", prop.ForAll(
		func(offsetMin int64) bool {
			until := base.Add(time.Duration(offsetMin) * time.Minute)
			s := Window{Enabled: true, Until: &until}.At(base)
			return s.Active && s.Until.Equal(until)
		},
		gen.Int64Range(1, 60*24*365),
	))

	properties.TestingRun(t)
}

func TestSetWindowRoundTrip(t *testing.T) {
	until := time.Now().Add(time.Hour)
	l := &Listing{}

	for p := range promotionColumns {
		l.SetWindow(p, Window{Enabled: true, Until: &until})
		w := l.Window(p)
		assert.True(t, w.Enabled, p)
		assert.Equal(t, &until, w.Until, p)
	}
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "hello-world", Slugify("  Hello, World!! "))
	assert.Equal(t, "a-b-c", Slugify("a---b___c"))
	assert.Equal(t, "listing", Slugify("!!!"))
	assert.LessOrEqual(t, len(Slugify(strings.Repeat("ab ", 100))), maxSlugBase)
}

func TestNewSlug(t *testing.T) {
	id := "0f8fad5b-d9cb-469f-a165-70867728950e"

	assert.Equal(t, "evening-walks-0f8fad5b", NewSlug("Evening Walks", id, false))
	assert.Equal(t, "evening-walks-0f8fad5bd9cb469fa16570867728950e", NewSlug("Evening Walks", id, true))
}

func TestStringListScan(t *testing.T) {
	var s StringList
	require.NoError(t, s.Scan([]byte(`["a.jpg","b.jpg"]`)))
	assert.Equal(t, StringList{"a.jpg", "b.jpg"}, s)

	require.NoError(t, s.Scan(nil))
	assert.Empty(t, s)

	assert.Error(t, s.Scan(42))

	v, err := StringList(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, []byte("[]"), v)
}

func TestCloneIsDeep(t *testing.T) {
	until := time.Now()
	l := &Listing{Images: StringList{"a"}, AvailableUntil: &until}

	c := l.Clone()
	c.Images[0] = "b"
	*c.AvailableUntil = until.Add(time.Hour)

	assert.Equal(t, "a", l.Images[0])
	assert.Equal(t, until, *l.AvailableUntil)
}

func newTestCache(t *testing.T) (*FeedCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewFeedCache(rdb, time.Minute), mr
}

func TestFeedCacheInvalidate(t *testing.T) {
	ctx := context.Background()
	cache, _ := newTestCache(t)
	params := FeedParams{Page: 1, PageSize: 20}

	_, ok, err := cache.Get(ctx, "feed", params)
	require.NoError(t, err)
	assert.False(t, ok)

	page := &FeedPage{Items: []Listing{{ID: "a", Title: "A"}}, Total: 1}
	require.NoError(t, cache.Set(ctx, "feed", params, page))

	got, ok, err := cache.Get(ctx, "feed", params)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "A", got.Items[0].Title)

	require.NoError(t, cache.Invalidate(ctx))

	_, ok, err = cache.Get(ctx, "feed", params)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFeedCacheExpires(t *testing.T) {
	ctx := context.Background()
	cache, mr := newTestCache(t)
	params := FeedParams{Page: 1, PageSize: 20}

	require.NoError(t, cache.Set(ctx, "feed", params, &FeedPage{Total: 0}))
	mr.FastForward(2 * time.Minute)

	_, ok, err := cache.Get(ctx, "feed", params)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNilFeedCacheIsNoop(t *testing.T) {
	var cache *FeedCache
	ctx := context.Background()

	_, ok, err := cache.Get(ctx, "feed", nil)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, cache.Set(ctx, "feed", nil, &FeedPage{}))
	assert.NoError(t, cache.Invalidate(ctx))
}
