package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Pinger is a dependency the deep health check can reach.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) PingContext(ctx context.Context) error { return f(ctx) }

// HealthHandler serves the liveness and dependency checks. Redis is
// optional; a nil pinger reports "disabled".
type HealthHandler struct {
	db      Pinger
	redis   Pinger
	started time.Time
	now     func() time.Time
}

func NewHealthHandler(db, redis Pinger, started time.Time) *HealthHandler {
	return &HealthHandler{db: db, redis: redis, started: started, now: time.Now}
}

// GET /api/health
func (h *HealthHandler) Health(c echo.Context) error {
	now := h.now()
	return c.JSON(http.StatusOK, echo.Map{
		"status":    "ok",
		"timestamp": now.UTC(),
		"uptime":    now.Sub(h.started).Seconds(),
	})
}

// GET /api/health/deep pings MySQL and Redis. Only MySQL being down makes
// the service unhealthy.
func (h *HealthHandler) Deep(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	checks := echo.Map{
		"mysql": check(ctx, h.db),
		"redis": check(ctx, h.redis),
	}
	status, code := "ok", http.StatusOK
	if checks["mysql"] != "ok" {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	return c.JSON(code, echo.Map{
		"status":    status,
		"timestamp": h.now().UTC(),
		"checks":    checks,
	})
}

func check(ctx context.Context, p Pinger) string {
	if p == nil {
		return "disabled"
	}
	if err := p.PingContext(ctx); err != nil {
		return "down"
	}
	return "ok"
}
