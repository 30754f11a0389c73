package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/warranty-manager/internal/model"
	"github.com/iliyamo/warranty-manager/internal/service"
	"github.com/iliyamo/warranty-manager/internal/storage"
)

type productService interface {
	Categories() []model.ProductCategory
	List(ctx context.Context, f model.ProductFilter) ([]model.Product, error)
	Get(ctx context.Context, id string) (*model.Product, error)
	Create(ctx context.Context, actor service.Actor, in service.CreateProductInput) (*model.Product, error)
	Update(ctx context.Context, actor service.Actor, id string, in service.UpdateProductInput) (*model.Product, error)
	Delete(ctx context.Context, actor service.Actor, id string) error
	SetImage(ctx context.Context, actor service.Actor, id string, u storage.Upload) (*model.Product, error)
	OpenImage(ctx context.Context, id string) (*service.File, error)
}

// ProductHandler serves /api/products. Reads are public.
type ProductHandler struct {
	products productService
}

func NewProductHandler(products productService) *ProductHandler {
	return &ProductHandler{products: products}
}

type productReq struct {
	Name         *string                `json:"name"`
	Description  *string                `json:"description"`
	Category     *model.ProductCategory `json:"category"`
	Manufacturer *string                `json:"manufacturer"`
	Model        *string                `json:"model"`
}

// GET /api/products?category=&sort=nameAsc|nameDesc|newest
func (h *ProductHandler) List(c echo.Context) error {
	ps, err := h.products.List(c.Request().Context(), model.ProductFilter{
		Category: model.ProductCategory(c.QueryParam("category")),
		Sort:     c.QueryParam("sort"),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, nonNil(ps))
}

// GET /api/products/categories/list
func (h *ProductHandler) Categories(c echo.Context) error {
	return c.JSON(http.StatusOK, h.products.Categories())
}

// GET /api/products/:id
func (h *ProductHandler) Get(c echo.Context) error {
	p, err := h.products.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

// POST /api/products
func (h *ProductHandler) Create(c echo.Context) error {
	var req productReq
	if err := bind(c, &req); err != nil {
		return err
	}
	in := service.CreateProductInput{
		Name:         deref(req.Name),
		Description:  deref(req.Description),
		Manufacturer: deref(req.Manufacturer),
		Model:        deref(req.Model),
	}
	if req.Category != nil {
		in.Category = *req.Category
	}
	p, err := h.products.Create(c.Request().Context(), actor(c), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, p)
}

// PUT /api/products/:id
func (h *ProductHandler) Update(c echo.Context) error {
	var req productReq
	if err := bind(c, &req); err != nil {
		return err
	}
	p, err := h.products.Update(c.Request().Context(), actor(c), c.Param("id"), service.UpdateProductInput{
		Name:         req.Name,
		Description:  req.Description,
		Category:     req.Category,
		Manufacturer: req.Manufacturer,
		Model:        req.Model,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

// DELETE /api/products/:id
func (h *ProductHandler) Delete(c echo.Context) error {
	if err := h.products.Delete(c.Request().Context(), actor(c), c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "product removed"})
}

// POST /api/products/:id/image (multipart, field "image")
func (h *ProductHandler) SetImage(c echo.Context) error {
	u, err := upload(c, "image")
	if err != nil {
		return err
	}
	p, err := h.products.SetImage(c.Request().Context(), actor(c), c.Param("id"), u)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

// GET /api/products/:id/image
func (h *ProductHandler) Image(c echo.Context) error {
	f, err := h.products.OpenImage(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return sendFile(c, f)
}
