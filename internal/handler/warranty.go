package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/warranty-manager/internal/model"
	"github.com/iliyamo/warranty-manager/internal/service"
	"github.com/iliyamo/warranty-manager/internal/storage"
)

type warrantyService interface {
	List(ctx context.Context, actor service.Actor) ([]model.Warranty, error)
	Expiring(ctx context.Context, actor service.Actor) ([]model.Warranty, error)
	Stats(ctx context.Context, actor service.Actor) (model.WarrantyStats, error)
	Get(ctx context.Context, actor service.Actor, id string) (*model.Warranty, error)
	Create(ctx context.Context, actor service.Actor, in service.CreateWarrantyInput) (*model.Warranty, error)
	Update(ctx context.Context, actor service.Actor, id string, in service.UpdateWarrantyInput) (*model.Warranty, error)
	Delete(ctx context.Context, actor service.Actor, id string) (service.DeleteResult, error)
	AddDocuments(ctx context.Context, actor service.Actor, id string, uploads []storage.Upload) (*model.Warranty, error)
	RemoveDocument(ctx context.Context, actor service.Actor, id, documentID string) (*model.Warranty, error)
	OpenDocument(ctx context.Context, actor service.Actor, id, documentID string) (*service.File, error)
}

// WarrantyHandler serves /api/warranties.
type WarrantyHandler struct {
	warranties warrantyService
}

func NewWarrantyHandler(warranties warrantyService) *WarrantyHandler {
	return &WarrantyHandler{warranties: warranties}
}

// warrantyReq is shared by create and update; on update only the fields
// present in the body are applied.
type warrantyReq struct {
	Product          *string `json:"product"`
	PurchaseDate     *date   `json:"purchaseDate"`
	ExpirationDate   *date   `json:"expirationDate"`
	WarrantyProvider *string `json:"warrantyProvider"`
	WarrantyNumber   *string `json:"warrantyNumber"`
	CoverageDetails  *string `json:"coverageDetails"`
	Notes            *string `json:"notes"`
	Status           *string `json:"status"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (r warrantyReq) create() service.CreateWarrantyInput {
	return service.CreateWarrantyInput{
		ProductID:        deref(r.Product),
		PurchaseDate:     r.PurchaseDate.value(),
		ExpirationDate:   r.ExpirationDate.value(),
		WarrantyProvider: deref(r.WarrantyProvider),
		WarrantyNumber:   deref(r.WarrantyNumber),
		CoverageDetails:  deref(r.CoverageDetails),
		Notes:            deref(r.Notes),
		Status:           deref(r.Status),
	}
}

func (r warrantyReq) update() service.UpdateWarrantyInput {
	return service.UpdateWarrantyInput{
		ProductID:        r.Product,
		PurchaseDate:     r.PurchaseDate.ptr(),
		ExpirationDate:   r.ExpirationDate.ptr(),
		WarrantyProvider: r.WarrantyProvider,
		WarrantyNumber:   r.WarrantyNumber,
		CoverageDetails:  r.CoverageDetails,
		Notes:            r.Notes,
		Status:           r.Status,
	}
}

// GET /api/warranties
func (h *WarrantyHandler) List(c echo.Context) error {
	ws, err := h.warranties.List(c.Request().Context(), actor(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, nonNil(ws))
}

// GET /api/warranties/expiring
func (h *WarrantyHandler) Expiring(c echo.Context) error {
	ws, err := h.warranties.Expiring(c.Request().Context(), actor(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, nonNil(ws))
}

// GET /api/warranties/stats/overview
func (h *WarrantyHandler) Stats(c echo.Context) error {
	st, err := h.warranties.Stats(c.Request().Context(), actor(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, st)
}

// GET /api/warranties/:id
func (h *WarrantyHandler) Get(c echo.Context) error {
	w, err := h.warranties.Get(c.Request().Context(), actor(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, w)
}

// POST /api/warranties
func (h *WarrantyHandler) Create(c echo.Context) error {
	var req warrantyReq
	if err := bind(c, &req); err != nil {
		return err
	}
	w, err := h.warranties.Create(c.Request().Context(), actor(c), req.create())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, w)
}

// PUT /api/warranties/:id
func (h *WarrantyHandler) Update(c echo.Context) error {
	var req warrantyReq
	if err := bind(c, &req); err != nil {
		return err
	}
	w, err := h.warranties.Update(c.Request().Context(), actor(c), c.Param("id"), req.update())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, w)
}

// DELETE /api/warranties/:id. Files that could not be removed are listed
// in failedFiles; the warranty itself is gone either way.
func (h *WarrantyHandler) Delete(c echo.Context) error {
	res, err := h.warranties.Delete(c.Request().Context(), actor(c), c.Param("id"))
	if err != nil {
		return err
	}
	body := echo.Map{"message": "warranty removed"}
	if len(res.FailedFiles) > 0 {
		body["failedFiles"] = res.FailedFiles
	}
	return c.JSON(http.StatusOK, body)
}

// POST /api/warranties/:id/documents (multipart, field "documents")
func (h *WarrantyHandler) AddDocuments(c echo.Context) error {
	us, err := uploads(c, "documents")
	if err != nil {
		return err
	}
	w, err := h.warranties.AddDocuments(c.Request().Context(), actor(c), c.Param("id"), us)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, w)
}

// DELETE /api/warranties/:id/documents/:documentId
func (h *WarrantyHandler) RemoveDocument(c echo.Context) error {
	w, err := h.warranties.RemoveDocument(c.Request().Context(), actor(c), c.Param("id"), c.Param("documentId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, w)
}

// GET /api/warranties/:id/documents/:documentId streams the stored file.
func (h *WarrantyHandler) Document(c echo.Context) error {
	f, err := h.warranties.OpenDocument(c.Request().Context(), actor(c), c.Param("id"), c.Param("documentId"))
	if err != nil {
		return err
	}
	return sendFile(c, f)
}

// nonNil keeps empty lists as [] rather than null in JSON.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
