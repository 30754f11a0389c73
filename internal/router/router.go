package router

import (
	"fmt"
	"log/slog"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/warranty-manager/internal/config"
	"github.com/iliyamo/warranty-manager/internal/handler"
	"github.com/iliyamo/warranty-manager/internal/middleware"
	"github.com/iliyamo/warranty-manager/internal/model"
)

// Handlers bundles every handler the API mounts.
type Handlers struct {
	Auth     *handler.AuthHandler
	Warranty *handler.WarrantyHandler
	Product  *handler.ProductHandler
	User     *handler.UserHandler
	Event    *handler.EventHandler
	Admin    *handler.AdminHandler
	Health   *handler.HealthHandler
}

// New builds the Echo instance with the global middleware chain and every
// route under /api. rdb may be nil, which disables caching and rate limits.
func New(cfg config.Config, h Handlers, rdb *redis.Client, logger *slog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handler.ErrorHandler(logger)

	e.Use(
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Recover(logger),
		bodyLimit(cfg.Storage.MaxFileSize),
		middleware.NewTokenBucket(cfg.RateLimit, rdb, logger),
	)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	if cfg.Storage.Driver == "local" {
		e.Static("/uploads", cfg.Storage.UploadPath)
	}

	api := e.Group("/api")
	api.GET("/health", h.Health.Health)
	api.GET("/health/deep", h.Health.Deep)

	jwt := middleware.JWTAuth(cfg.Auth.JWTSecret)
	adminOnly := middleware.RequireRole(model.RoleAdmin)

	registerAuth(api, h.Auth, jwt)
	registerWarranties(api, h.Warranty, jwt)
	purge := middleware.PurgeCache(cfg.Cache, rdb, logger)
	registerProducts(api, h.Product, jwt, adminOnly,
		middleware.NewRedisCache(cfg.Cache, rdb, logger), purge)
	registerUsers(api, h.User, jwt, adminOnly)
	registerEvents(api, h.Event, jwt)
	admin := registerAdmin(api, h.Admin, jwt, adminOnly,
		middleware.NewTokenBucket(cfg.RateLimit.AdminLimit(), rdb, logger),
		middleware.NewTokenBucket(cfg.RateLimit.SensitiveLimit(), rdb, logger))
	registerAdminWrites(admin, h.Warranty, h.Product, purge)

	return e
}

// bodyLimit allows a full batch of documents plus form overhead.
func bodyLimit(maxFile int64) echo.MiddlewareFunc {
	kib := (5*maxFile)/1024 + 1024
	return echomw.BodyLimit(fmt.Sprintf("%dK", kib))
}

func registerAuth(api *echo.Group, a *handler.AuthHandler, jwt echo.MiddlewareFunc) {
	g := api.Group("/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)
	g.GET("/me", a.Me, jwt)
	g.PUT("/change-password", a.ChangePassword, jwt)
}

func registerWarranties(api *echo.Group, w *handler.WarrantyHandler, jwt echo.MiddlewareFunc) {
	g := api.Group("/warranties", jwt)
	g.GET("", w.List)
	g.POST("", w.Create)
	g.GET("/expiring", w.Expiring)
	g.GET("/stats/overview", w.Stats)
	g.GET("/:id", w.Get)
	g.PUT("/:id", w.Update)
	g.DELETE("/:id", w.Delete)
	g.POST("/:id/documents", w.AddDocuments)
	g.GET("/:id/documents/:documentId", w.Document)
	g.DELETE("/:id/documents/:documentId", w.RemoveDocument)
}

// Product reads are public and cached; writes purge the cache.
func registerProducts(api *echo.Group, p *handler.ProductHandler, jwt, adminOnly, cache, purge echo.MiddlewareFunc) {
	g := api.Group("/products")
	g.GET("", p.List, cache)
	g.GET("/categories/list", p.Categories, cache)
	g.GET("/:id", p.Get, cache)
	g.GET("/:id/image", p.Image)

	w := g.Group("", jwt, adminOnly, purge)
	w.POST("", p.Create)
	w.PUT("/:id", p.Update)
	w.DELETE("/:id", p.Delete)
	w.POST("/:id/image", p.SetImage)
}

func registerUsers(api *echo.Group, u *handler.UserHandler, jwt, adminOnly echo.MiddlewareFunc) {
	g := api.Group("/users", jwt)
	g.GET("/profile", u.Profile)
	g.PUT("/profile", u.UpdateProfile)
	g.POST("/profile/picture", u.SetProfilePicture)
	g.GET("/:id", u.Get, adminOnly)
	g.GET("/:id/picture", u.Picture)
}

func registerEvents(api *echo.Group, ev *handler.EventHandler, jwt echo.MiddlewareFunc) {
	g := api.Group("/events", jwt)
	g.GET("", ev.List)
	g.POST("", ev.Create)
	g.GET("/month/:year/:month", ev.ByMonth)
	g.GET("/:id", ev.Get)
	g.PUT("/:id", ev.Update)
	g.DELETE("/:id", ev.Delete)
}

// Every admin route shares the admin bucket; role changes, user deletion
// and settings updates also draw from the sensitive bucket.
func registerAdmin(api *echo.Group, a *handler.AdminHandler, jwt, adminOnly, adminLimit, sensitive echo.MiddlewareFunc) *echo.Group {
	g := api.Group("/admin", jwt, adminOnly, adminLimit)
	g.GET("/users", a.Users)
	g.PUT("/users/:id/role", a.ChangeRole, sensitive)
	g.DELETE("/users/:id", a.DeleteUser, sensitive)
	g.GET("/dashboard/stats", a.Dashboard)
	g.GET("/warranties", a.Warranties)
	g.GET("/products", a.Products)
	g.GET("/activity", a.Activity)
	g.GET("/analytics/warranties", a.WarrantyAnalytics)
	g.GET("/analytics/products", a.ProductAnalytics)
	g.GET("/settings", a.Settings)
	g.PUT("/settings", a.UpdateSettings, sensitive)
	g.GET("/logs", a.Logs)
	g.GET("/logs/:resourceType/:resourceId", a.ResourceHistory)
	return g
}

// Admin aliases of the warranty and product writes, drawing from the admin
// bucket. The services audit them as admin actions.
func registerAdminWrites(g *echo.Group, w *handler.WarrantyHandler, p *handler.ProductHandler, purge echo.MiddlewareFunc) {
	g.PUT("/warranties/:id", w.Update)
	g.DELETE("/warranties/:id", w.Delete)
	g.PUT("/products/:id", p.Update, purge)
	g.DELETE("/products/:id", p.Delete, purge)
}
