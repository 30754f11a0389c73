package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/warranty-manager/internal/model"
	"github.com/iliyamo/warranty-manager/internal/service"
)

type adminService interface {
	Dashboard(ctx context.Context) (*service.Dashboard, error)
	Activity(ctx context.Context) (*service.Activity, error)
	WarrantyAnalytics(ctx context.Context) (*service.WarrantyAnalytics, error)
	ProductAnalytics(ctx context.Context) (*service.ProductAnalytics, error)
	Settings(ctx context.Context) (*model.Settings, error)
	UpdateSettings(ctx context.Context, actor service.Actor, in service.SettingsInput) (*model.Settings, error)
}

type adminUsers interface {
	List(ctx context.Context, page, limit int) (service.UserPage, error)
	ChangeRole(ctx context.Context, actor service.Actor, id, role string) (*model.User, error)
	Delete(ctx context.Context, actor service.Actor, id string) error
}

type adminWarranties interface {
	AdminList(ctx context.Context, page, limit int) (service.WarrantyPage, error)
}

type adminProducts interface {
	AdminList(ctx context.Context, page, limit int) (service.ProductPage, error)
}

type auditQuery interface {
	QueryLogs(ctx context.Context, f model.AuditFilter, page, limit int) (service.AuditPage, error)
	ResourceHistory(ctx context.Context, rt model.ResourceType, resourceID string) ([]model.AuditLogEntry, error)
}

// AdminHandler serves /api/admin. Every route is admin-only.
type AdminHandler struct {
	admin      adminService
	users      adminUsers
	warranties adminWarranties
	products   adminProducts
	audit      auditQuery
}

func NewAdminHandler(admin adminService, users adminUsers, warranties adminWarranties, products adminProducts, audit auditQuery) *AdminHandler {
	return &AdminHandler{admin: admin, users: users, warranties: warranties, products: products, audit: audit}
}

// GET /api/admin/users?page=&limit=
func (h *AdminHandler) Users(c echo.Context) error {
	page, limit := pageQuery(c)
	res, err := h.users.List(c.Request().Context(), page, limit)
	if err != nil {
		return err
	}
	res.Users = nonNil(res.Users)
	return c.JSON(http.StatusOK, res)
}

// PUT /api/admin/users/:id/role
func (h *AdminHandler) ChangeRole(c echo.Context) error {
	var req struct {
		Role string `json:"role"`
	}
	if err := bind(c, &req); err != nil {
		return err
	}
	u, err := h.users.ChangeRole(c.Request().Context(), actor(c), c.Param("id"), req.Role)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

// DELETE /api/admin/users/:id
func (h *AdminHandler) DeleteUser(c echo.Context) error {
	if err := h.users.Delete(c.Request().Context(), actor(c), c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "user removed"})
}

// GET /api/admin/dashboard/stats
func (h *AdminHandler) Dashboard(c echo.Context) error {
	d, err := h.admin.Dashboard(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

// GET /api/admin/warranties?page=&limit=
func (h *AdminHandler) Warranties(c echo.Context) error {
	page, limit := pageQuery(c)
	res, err := h.warranties.AdminList(c.Request().Context(), page, limit)
	if err != nil {
		return err
	}
	res.Warranties = nonNil(res.Warranties)
	return c.JSON(http.StatusOK, res)
}

// GET /api/admin/products?page=&limit=
func (h *AdminHandler) Products(c echo.Context) error {
	page, limit := pageQuery(c)
	res, err := h.products.AdminList(c.Request().Context(), page, limit)
	if err != nil {
		return err
	}
	res.Products = nonNil(res.Products)
	return c.JSON(http.StatusOK, res)
}

// GET /api/admin/activity
func (h *AdminHandler) Activity(c echo.Context) error {
	a, err := h.admin.Activity(c.Request().Context())
	if err != nil {
		return err
	}
	a.RecentWarranties = nonNil(a.RecentWarranties)
	a.RecentEvents = nonNil(a.RecentEvents)
	return c.JSON(http.StatusOK, a)
}

// GET /api/admin/analytics/warranties
func (h *AdminHandler) WarrantyAnalytics(c echo.Context) error {
	a, err := h.admin.WarrantyAnalytics(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

// GET /api/admin/analytics/products
func (h *AdminHandler) ProductAnalytics(c echo.Context) error {
	a, err := h.admin.ProductAnalytics(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

// GET /api/admin/settings
func (h *AdminHandler) Settings(c echo.Context) error {
	st, err := h.admin.Settings(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, st)
}

// PUT /api/admin/settings
func (h *AdminHandler) UpdateSettings(c echo.Context) error {
	var in service.SettingsInput
	if err := bind(c, &in); err != nil {
		return err
	}
	st, err := h.admin.UpdateSettings(c.Request().Context(), actor(c), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "settings updated", "settings": st})
}

// GET /api/admin/logs?adminId=&resourceType=&action=&startDate=&endDate=&page=&limit=
func (h *AdminHandler) Logs(c echo.Context) error {
	f := model.AuditFilter{
		AdminID:      c.QueryParam("adminId"),
		ResourceType: model.ResourceType(c.QueryParam("resourceType")),
		Action:       model.AuditAction(c.QueryParam("action")),
	}
	if raw := c.QueryParam("startDate"); raw != "" {
		t, err := parseDate(raw)
		if err != nil {
			return service.NewValidationError("startDate", err.Error())
		}
		f.StartDate = &t
	}
	if raw := c.QueryParam("endDate"); raw != "" {
		t, err := parseDate(raw)
		if err != nil {
			return service.NewValidationError("endDate", err.Error())
		}
		f.EndDate = &t
	}
	page, limit := pageQuery(c)
	res, err := h.audit.QueryLogs(c.Request().Context(), f, page, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

// GET /api/admin/logs/:resourceType/:resourceId
func (h *AdminHandler) ResourceHistory(c echo.Context) error {
	logs, err := h.audit.ResourceHistory(c.Request().Context(),
		model.ResourceType(c.Param("resourceType")), c.Param("resourceId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, nonNil(logs))
}
