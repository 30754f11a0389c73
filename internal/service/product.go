package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/iliyamo/warranty-manager/internal/lifecycle"
	"github.com/iliyamo/warranty-manager/internal/model"
	"github.com/iliyamo/warranty-manager/internal/storage"
)

type productStore interface {
	Create(ctx context.Context, p *model.Product) error
	GetByID(ctx context.Context, id string) (*model.Product, error)
	Update(ctx context.Context, p *model.Product) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, f model.ProductFilter) ([]model.Product, error)
	ListPage(ctx context.Context, offset, limit int) ([]model.Product, error)
	Count(ctx context.Context) (int, error)
}

type warrantyCounter interface {
	CountByProduct(ctx context.Context, productID string) (int, error)
}

type CreateProductInput struct {
	Name         string
	Description  string
	Category     model.ProductCategory
	Manufacturer string
	Model        string
}

func (i CreateProductInput) Validate() error {
	var errs fieldErrors
	for _, f := range []struct{ name, v string }{
		{"name", i.Name},
		{"description", i.Description},
		{"manufacturer", i.Manufacturer},
		{"model", i.Model},
	} {
		if strings.TrimSpace(f.v) == "" {
			errs.add(f.name, "required")
		}
	}
	if i.Category == "" {
		errs.add("category", "required")
	} else if !i.Category.Valid() {
		errs.add("category", "unknown category")
	}
	return errs.err()
}

// UpdateProductInput is a partial update; nil fields are left alone.
type UpdateProductInput struct {
	Name         *string
	Description  *string
	Category     *model.ProductCategory
	Manufacturer *string
	Model        *string
}

func (i UpdateProductInput) Validate() error {
	var errs fieldErrors
	for _, f := range []struct {
		name string
		v    *string
	}{
		{"name", i.Name},
		{"description", i.Description},
		{"manufacturer", i.Manufacturer},
		{"model", i.Model},
	} {
		if f.v != nil && strings.TrimSpace(*f.v) == "" {
			errs.add(f.name, "must not be empty")
		}
	}
	if i.Category != nil && !i.Category.Valid() {
		errs.add("category", "unknown category")
	}
	return errs.err()
}

func (i UpdateProductInput) fields() []string {
	var out []string
	if i.Name != nil {
		out = append(out, "name")
	}
	if i.Description != nil {
		out = append(out, "description")
	}
	if i.Category != nil {
		out = append(out, "category")
	}
	if i.Manufacturer != nil {
		out = append(out, "manufacturer")
	}
	if i.Model != nil {
		out = append(out, "model")
	}
	return out
}

// ProductPage is one page of the admin product listing.
type ProductPage struct {
	Products   []model.Product  `json:"products"`
	Pagination model.Pagination `json:"pagination"`
}

// ProductService manages the shared catalog. Every write is admin-only and
// audited.
type ProductService struct {
	log        *slog.Logger
	products   productStore
	warranties warrantyCounter
	audit      actionRecorder
	clock      lifecycle.Clock
	files      storage.Store
}

func NewProductService(
	logger *slog.Logger,
	products productStore,
	warranties warrantyCounter,
	audit actionRecorder,
	clock lifecycle.Clock,
	files storage.Store,
) *ProductService {
	return &ProductService{
		log:        logger.With("service", "product"),
		products:   products,
		warranties: warranties,
		audit:      audit,
		clock:      clock,
		files:      files,
	}
}

// Categories returns the fixed category list.
func (s *ProductService) Categories() []model.ProductCategory {
	out := make([]model.ProductCategory, len(model.ProductCategories))
	copy(out, model.ProductCategories)
	return out
}

func (s *ProductService) List(ctx context.Context, f model.ProductFilter) ([]model.Product, error) {
	if f.Category != "" && !f.Category.Valid() {
		return nil, NewValidationError("category", "unknown category")
	}
	return s.products.List(ctx, f)
}

func (s *ProductService) Get(ctx context.Context, id string) (*model.Product, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "product")
	}
	return p, nil
}

// OpenImage opens the product image. Products are public, so is the image.
func (s *ProductService) OpenImage(ctx context.Context, id string) (*File, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Image == nil || *p.Image == "" {
		return nil, fmt.Errorf("image %w", ErrNotFound)
	}
	return openFile(ctx, s.files, *p.Image, "", "")
}

func (s *ProductService) Create(ctx context.Context, actor Actor, in CreateProductInput) (*model.Product, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	now := s.clock.Now()
	p := &model.Product{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(in.Name),
		Description:  in.Description,
		Category:     in.Category,
		Manufacturer: in.Manufacturer,
		Model:        in.Model,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.products.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	s.audit.RecordAction(ctx, actor, model.AuditCreate, model.ResourceProduct, p.ID, map[string]any{
		"name":     p.Name,
		"category": p.Category,
	})
	return p, nil
}

func (s *ProductService) Update(ctx context.Context, actor Actor, id string, in UpdateProductInput) (*model.Product, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		p.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.Category != nil {
		p.Category = *in.Category
	}
	if in.Manufacturer != nil {
		p.Manufacturer = *in.Manufacturer
	}
	if in.Model != nil {
		p.Model = *in.Model
	}
	p.UpdatedAt = s.clock.Now()
	if err := s.products.Update(ctx, p); err != nil {
		return nil, notFound(err, "product")
	}
	s.audit.RecordAction(ctx, actor, model.AuditUpdate, model.ResourceProduct, p.ID, map[string]any{
		"updatedFields": in.fields(),
	})
	return p, nil
}

// Delete refuses while any warranty still references the product.
func (s *ProductService) Delete(ctx context.Context, actor Actor, id string) error {
	if !actor.IsAdmin() {
		return ErrForbidden
	}
	p, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	n, err := s.warranties.CountByProduct(ctx, p.ID)
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("cannot delete product with associated warranties: %w", ErrConflict)
	}
	if err := s.products.Delete(ctx, p.ID); err != nil {
		return notFound(err, "product")
	}
	if p.Image != nil {
		if err := s.files.Remove(ctx, *p.Image); err != nil {
			s.log.WarnContext(ctx, "remove product image failed", "product_id", p.ID, "err", err)
		}
	}
	s.audit.RecordAction(ctx, actor, model.AuditDelete, model.ResourceProduct, p.ID, map[string]any{
		"name":     p.Name,
		"category": p.Category,
	})
	return nil
}

// SetImage stores a new product image and removes the previous one.
func (s *ProductService) SetImage(ctx context.Context, actor Actor, id string, u storage.Upload) (*model.Product, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	if err := storage.ValidateImage(u); err != nil {
		return nil, NewValidationError("image", err.Error())
	}
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	path, err := storage.Put(ctx, s.files, storage.StoredName(u, now), u)
	if err != nil {
		return nil, fmt.Errorf("store image: %w", err)
	}
	old := p.Image
	p.Image = &path
	p.UpdatedAt = now
	if err := s.products.Update(ctx, p); err != nil {
		_ = s.files.Remove(ctx, path)
		return nil, notFound(err, "product")
	}
	if old != nil {
		if err := s.files.Remove(ctx, *old); err != nil {
			s.log.WarnContext(ctx, "remove old product image failed", "product_id", p.ID, "err", err)
		}
	}
	s.audit.RecordAction(ctx, actor, model.AuditUpdate, model.ResourceProduct, p.ID, map[string]any{
		"updatedFields": []string{"image"},
	})
	return p, nil
}

func (s *ProductService) AdminList(ctx context.Context, page, limit int) (ProductPage, error) {
	page, limit = normalizePage(page, limit, DefaultAdminLimit)
	items, err := s.products.ListPage(ctx, (page-1)*limit, limit)
	if err != nil {
		return ProductPage{}, err
	}
	total, err := s.products.Count(ctx)
	if err != nil {
		return ProductPage{}, err
	}
	return ProductPage{Products: items, Pagination: model.NewPagination(total, page, limit)}, nil
}
