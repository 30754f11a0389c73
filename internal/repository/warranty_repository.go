package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/iliyamo/warranty-manager/internal/model"
)

// WarrantyRepo encapsulates all queries against the warranties table.
// Reads join the product summary and the owner so handlers can return a
// populated record without a second round trip.
type WarrantyRepo struct {
	db *sql.DB
}

func NewWarrantyRepo(db *sql.DB) *WarrantyRepo {
	return &WarrantyRepo{db: db}
}

var warrantyColumns = []string{
	"w.id", "w.user_id", "w.product_id", "w.purchase_date", "w.expiration_date",
	"w.warranty_provider", "w.warranty_number", "w.coverage_details", "w.notes",
	"w.status", "w.documents", "w.created_at", "w.updated_at",
	"p.id", "p.name", "p.category", "p.manufacturer",
	"u.name", "u.email",
}

func selectWarranties() sq.SelectBuilder {
	return qb.Select(warrantyColumns...).
		From("warranties w").
		LeftJoin("products p ON p.id = w.product_id").
		LeftJoin("users u ON u.id = w.user_id")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWarranty(rs rowScanner) (model.Warranty, error) {
	var (
		w                                   model.Warranty
		pID, pName, pCategory, pManufacture sql.NullString
		uName, uEmail                       sql.NullString
	)
	err := rs.Scan(
		&w.ID, &w.UserID, &w.ProductID, &w.PurchaseDate, &w.ExpirationDate,
		&w.WarrantyProvider, &w.WarrantyNumber, &w.CoverageDetails, &w.Notes,
		&w.Status, &w.Documents, &w.CreatedAt, &w.UpdatedAt,
		&pID, &pName, &pCategory, &pManufacture,
		&uName, &uEmail,
	)
	if err != nil {
		return w, err
	}
	if pID.Valid {
		w.Product = &model.ProductSummary{
			ID:           pID.String,
			Name:         pName.String,
			Category:     model.ProductCategory(pCategory.String),
			Manufacturer: pManufacture.String,
		}
	}
	if uName.Valid {
		w.Owner = &model.UserSummary{ID: w.UserID, Name: uName.String, Email: uEmail.String}
	}
	return w, nil
}

func (r *WarrantyRepo) queryList(ctx context.Context, q sq.SelectBuilder) ([]model.Warranty, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Warranty{}
	for rows.Next() {
		w, err := scanWarranty(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// Create inserts w. The caller has already assigned the id and derived the
// status.
func (r *WarrantyRepo) Create(ctx context.Context, w *model.Warranty) error {
	q := qb.Insert("warranties").
		Columns("id", "user_id", "product_id", "purchase_date", "expiration_date",
			"warranty_provider", "warranty_number", "coverage_details", "notes",
			"status", "documents", "created_at", "updated_at").
		Values(w.ID, w.UserID, w.ProductID, w.PurchaseDate, w.ExpirationDate,
			w.WarrantyProvider, w.WarrantyNumber, w.CoverageDetails, w.Notes,
			w.Status, w.Documents, w.CreatedAt, w.UpdatedAt)
	query, args, err := q.ToSql()
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// GetByID returns the warranty with its product summary and owner.
func (r *WarrantyRepo) GetByID(ctx context.Context, id string) (*model.Warranty, error) {
	query, args, err := selectWarranties().Where(sq.Eq{"w.id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	w, err := scanWarranty(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &w, nil
}

// Update writes every mutable column of w. Last write wins.
func (r *WarrantyRepo) Update(ctx context.Context, w *model.Warranty) error {
	return execAffected(ctx, r.db, qb.Update("warranties").SetMap(map[string]any{
		"product_id":        w.ProductID,
		"purchase_date":     w.PurchaseDate,
		"expiration_date":   w.ExpirationDate,
		"warranty_provider": w.WarrantyProvider,
		"warranty_number":   w.WarrantyNumber,
		"coverage_details":  w.CoverageDetails,
		"notes":             w.Notes,
		"status":            w.Status,
		"documents":         w.Documents,
		"updated_at":        w.UpdatedAt,
	}).Where(sq.Eq{"id": w.ID}))
}

// UpdateStatus rewrites only the derived status columns.
func (r *WarrantyRepo) UpdateStatus(ctx context.Context, id string, status model.WarrantyStatus, at time.Time) error {
	return execAffected(ctx, r.db, qb.Update("warranties").
		Set("status", status).
		Set("updated_at", at).
		Where(sq.Eq{"id": id}))
}

// Delete removes the row. Document files are the caller's concern.
func (r *WarrantyRepo) Delete(ctx context.Context, id string) error {
	return execAffected(ctx, r.db, qb.Delete("warranties").Where(sq.Eq{"id": id}))
}

// ListByUser returns the user's warranties, newest first.
func (r *WarrantyRepo) ListByUser(ctx context.Context, userID string) ([]model.Warranty, error) {
	return r.queryList(ctx, selectWarranties().
		Where(sq.Eq{"w.user_id": userID}).
		OrderBy("w.created_at DESC"))
}

// ListExpiringByUser returns the user's warranties with from <= exp <= to.
func (r *WarrantyRepo) ListExpiringByUser(ctx context.Context, userID string, from, to time.Time) ([]model.Warranty, error) {
	return r.queryList(ctx, selectWarranties().
		Where(sq.Eq{"w.user_id": userID}).
		Where(sq.GtOrEq{"w.expiration_date": from}).
		Where(sq.LtOrEq{"w.expiration_date": to}).
		OrderBy("w.expiration_date ASC"))
}

// StatsByUser counts the user's warranties by date against [from, to],
// independent of the stored status.
func (r *WarrantyRepo) StatsByUser(ctx context.Context, userID string, from, to time.Time) (model.WarrantyStats, error) {
	var s model.WarrantyStats
	query, args, err := qb.Select("COUNT(*)").
		Column("COALESCE(SUM(expiration_date > ?), 0)", to).
		Column("COALESCE(SUM(expiration_date >= ? AND expiration_date <= ?), 0)", from, to).
		Column("COALESCE(SUM(expiration_date < ?), 0)", from).
		From("warranties").
		Where(sq.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return s, err
	}
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&s.Total, &s.Active, &s.Expiring, &s.Expired)
	return s, err
}

// CountByProduct counts warranties that reference productID.
func (r *WarrantyRepo) CountByProduct(ctx context.Context, productID string) (int, error) {
	return count(ctx, r.db, qb.Select("COUNT(*)").From("warranties").Where(sq.Eq{"product_id": productID}))
}

// List returns one page of all warranties, newest first.
func (r *WarrantyRepo) List(ctx context.Context, offset, limit int) ([]model.Warranty, error) {
	return r.queryList(ctx, selectWarranties().
		OrderBy("w.created_at DESC").
		Offset(uint64(offset)).
		Limit(uint64(limit)))
}

// Count counts all warranties.
func (r *WarrantyRepo) Count(ctx context.Context) (int, error) {
	return count(ctx, r.db, qb.Select("COUNT(*)").From("warranties"))
}

// Recent returns the n most recently created warranties.
func (r *WarrantyRepo) Recent(ctx context.Context, n int) ([]model.Warranty, error) {
	return r.queryList(ctx, selectWarranties().OrderBy("w.created_at DESC").Limit(uint64(n)))
}

// CountByStatus groups all warranties by stored status.
func (r *WarrantyRepo) CountByStatus(ctx context.Context) ([]model.StatusCount, error) {
	query, args, err := qb.Select("status", "COUNT(*)").From("warranties").GroupBy("status").ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.StatusCount{}
	for rows.Next() {
		var sc model.StatusCount
		if err := rows.Scan(&sc.Status, &sc.Count); err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

// CountCreatedByMonth returns warranty creations per month (1..12) within
// [from, to).
func (r *WarrantyRepo) CountCreatedByMonth(ctx context.Context, from, to time.Time) (map[int]int, error) {
	query, args, err := qb.Select("MONTH(created_at)", "COUNT(*)").
		From("warranties").
		Where(sq.GtOrEq{"created_at": from}).
		Where(sq.Lt{"created_at": to}).
		GroupBy("MONTH(created_at)").
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[int]int, 12)
	for rows.Next() {
		var month, n int
		if err := rows.Scan(&month, &n); err != nil {
			return nil, err
		}
		out[month] = n
	}
	return out, rows.Err()
}

// TopProducts returns the n products referenced by the most warranties.
func (r *WarrantyRepo) TopProducts(ctx context.Context, n int) ([]model.ProductWarrantyCount, error) {
	query, args, err := qb.Select("p.name", "COUNT(*) AS warranty_count").
		From("warranties w").
		Join("products p ON p.id = w.product_id").
		GroupBy("p.id", "p.name").
		OrderBy("warranty_count DESC").
		Limit(uint64(n)).
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.ProductWarrantyCount{}
	for rows.Next() {
		var pc model.ProductWarrantyCount
		if err := rows.Scan(&pc.Name, &pc.WarrantyCount); err != nil {
			return nil, err
		}
		out = append(out, pc)
	}
	return out, rows.Err()
}

// StatusSnapshot is the minimum needed to re-derive a stored status.
type StatusSnapshot struct {
	ID             string
	ExpirationDate time.Time
	Status         model.WarrantyStatus
}

// Snapshots returns id, expiration date and stored status of every warranty.
func (r *WarrantyRepo) Snapshots(ctx context.Context) ([]StatusSnapshot, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, expiration_date, status FROM warranties")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []StatusSnapshot{}
	for rows.Next() {
		var s StatusSnapshot
		if err := rows.Scan(&s.ID, &s.ExpirationDate, &s.Status); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
