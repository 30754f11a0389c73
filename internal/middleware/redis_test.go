package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/warranty-manager/internal/config"
	"github.com/iliyamo/warranty-manager/internal/testutil"
)

func TestNewTokenBucket_NoRedisPassesThrough(t *testing.T) {
	t.Parallel()

	e := echo.New()
	e.GET("/", whoami, NewTokenBucket(config.RateLimitConfig{Enabled: true, Capacity: 1}, nil, discardLogger()))
	for range 3 {
		assert.Equal(t, http.StatusOK, serve(e, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
	}
}

func TestNewTokenBucket_Redis(t *testing.T) {
	rdb := testutil.Redis(t)

	base := config.RateLimitConfig{Enabled: true, Prefix: "rl-test"}
	cfg := base.Window("tiny", 2, time.Hour)

	e := echo.New()
	e.GET("/", whoami, NewTokenBucket(cfg, rdb, discardLogger()))

	for i := range 2 {
		rec := serve(e, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i)
		assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	}
	rec := serve(e, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "too many requests")
}

func TestRedisCache_HitMissAndPurge(t *testing.T) {
	rdb := testutil.Redis(t)

	cfg := config.CacheConfig{Enabled: true, Methods: []string{"GET"}, TTL: time.Minute, Prefix: "cache-test", MaxBodyBytes: 1 << 20}
	calls := 0
	e := echo.New()
	g := e.Group("/products")
	g.GET("/:id", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, echo.Map{"id": c.Param("id"), "calls": calls})
	}, NewRedisCache(cfg, rdb, discardLogger()))
	g.PUT("/:id", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) },
		PurgeCache(cfg, rdb, discardLogger()))

	get := func(id string) *httptest.ResponseRecorder {
		return serve(e, httptest.NewRequest(http.MethodGet, "/products/"+id, nil))
	}

	first := get("1")
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))
	second := get("1")
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 1, calls)

	other := get("2")
	assert.Equal(t, "MISS", other.Header().Get("X-Cache"), "params are part of the key")

	assert.Equal(t, http.StatusNoContent, serve(e, httptest.NewRequest(http.MethodPut, "/products/1", nil)).Code)
	assert.Equal(t, "MISS", get("1").Header().Get("X-Cache"))
}

func TestPayloadRoundTrip(t *testing.T) {
	t.Parallel()

	h := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, h, []byte(`{"a":1}`))
	require.NoError(t, err)

	status, hdr, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", hdr.Get("Content-Type"))
	assert.Equal(t, `{"a":1}`, string(body))

	_, _, _, ok = decodePayload(bs[:5])
	assert.False(t, ok)
}
