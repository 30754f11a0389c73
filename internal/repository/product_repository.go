package repository

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/sqlscan"

	"github.com/iliyamo/warranty-manager/internal/model"
)

// ProductRepo encapsulates all queries against the products catalog.
type ProductRepo struct {
	db *sql.DB
}

func NewProductRepo(db *sql.DB) *ProductRepo {
	return &ProductRepo{db: db}
}

var productColumns = []string{
	"id", "name", "description", "category", "manufacturer", "model", "image", "created_at", "updated_at",
}

func (r *ProductRepo) selectMany(ctx context.Context, q sq.SelectBuilder) ([]model.Product, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	out := []model.Product{}
	if err := sqlscan.Select(ctx, r.db, &out, query, args...); err != nil {
		return nil, err
	}
	return out, nil
}

// Create inserts p with its pre-assigned id.
func (r *ProductRepo) Create(ctx context.Context, p *model.Product) error {
	query, args, err := qb.Insert("products").
		Columns(productColumns...).
		Values(p.ID, p.Name, p.Description, p.Category, p.Manufacturer, p.Model, p.Image, p.CreatedAt, p.UpdatedAt).
		ToSql()
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, query, args...)
	return err
}

// GetByID returns ErrNotFound when no product has the id.
func (r *ProductRepo) GetByID(ctx context.Context, id string) (*model.Product, error) {
	query, args, err := qb.Select(productColumns...).From("products").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	var p model.Product
	if err := sqlscan.Get(ctx, r.db, &p, query, args...); err != nil {
		if sqlscan.NotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Update writes every mutable column of p.
func (r *ProductRepo) Update(ctx context.Context, p *model.Product) error {
	return execAffected(ctx, r.db, qb.Update("products").SetMap(map[string]any{
		"name":         p.Name,
		"description":  p.Description,
		"category":     p.Category,
		"manufacturer": p.Manufacturer,
		"model":        p.Model,
		"image":        p.Image,
		"updated_at":   p.UpdatedAt,
	}).Where(sq.Eq{"id": p.ID}))
}

// Delete removes the product row. The warranty guard runs in the service.
func (r *ProductRepo) Delete(ctx context.Context, id string) error {
	return execAffected(ctx, r.db, qb.Delete("products").Where(sq.Eq{"id": id}))
}

// List returns the catalog filtered by category and sorted by f.Sort
// (name ascending unless nameDesc or newest is requested).
func (r *ProductRepo) List(ctx context.Context, f model.ProductFilter) ([]model.Product, error) {
	q := qb.Select(productColumns...).From("products")
	if f.Category != "" {
		q = q.Where(sq.Eq{"category": f.Category})
	}
	switch f.Sort {
	case model.SortNameDesc:
		q = q.OrderBy("name DESC")
	case model.SortNewest:
		q = q.OrderBy("created_at DESC")
	default:
		q = q.OrderBy("name ASC")
	}
	return r.selectMany(ctx, q)
}

// ListPage returns one page of products, newest first.
func (r *ProductRepo) ListPage(ctx context.Context, offset, limit int) ([]model.Product, error) {
	return r.selectMany(ctx, qb.Select(productColumns...).From("products").
		OrderBy("created_at DESC").
		Offset(uint64(offset)).
		Limit(uint64(limit)))
}

// Count counts all products.
func (r *ProductRepo) Count(ctx context.Context) (int, error) {
	return count(ctx, r.db, qb.Select("COUNT(*)").From("products"))
}

// CountByCategory groups products by category.
func (r *ProductRepo) CountByCategory(ctx context.Context) ([]model.CategoryCount, error) {
	query, args, err := qb.Select("category", "COUNT(*) AS count").
		From("products").
		GroupBy("category").
		OrderBy("category").
		ToSql()
	if err != nil {
		return nil, err
	}
	out := []model.CategoryCount{}
	if err := sqlscan.Select(ctx, r.db, &out, query, args...); err != nil {
		return nil, err
	}
	return out, nil
}
