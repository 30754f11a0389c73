package repository

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/sqlscan"

	"github.com/iliyamo/warranty-manager/internal/model"
)

// AuditRepo reads and appends audit_logs rows. There is deliberately no
// update or delete method: the table is append-only.
type AuditRepo struct {
	db *sql.DB
}

func NewAuditRepo(db *sql.DB) *AuditRepo {
	return &AuditRepo{db: db}
}

type auditRow struct {
	model.AuditLogEntry
	AdminName  sql.NullString `db:"admin_name"`
	AdminEmail sql.NullString `db:"admin_email"`
}

func (r auditRow) toModel() model.AuditLogEntry {
	e := r.AuditLogEntry
	if r.AdminName.Valid {
		e.Admin = &model.UserSummary{ID: e.AdminID, Name: r.AdminName.String, Email: r.AdminEmail.String}
	}
	return e
}

func selectAudit() sq.SelectBuilder {
	return qb.Select(
		"a.id", "a.admin_id", "a.action", "a.resource_type", "a.resource_id",
		"a.details", "a.ip_address", "a.user_agent", "a.timestamp",
		"u.name AS admin_name", "u.email AS admin_email",
	).From("audit_logs a").LeftJoin("users u ON u.id = a.admin_id")
}

func applyAuditFilter(q sq.SelectBuilder, f model.AuditFilter) sq.SelectBuilder {
	if f.AdminID != "" {
		q = q.Where(sq.Eq{"a.admin_id": f.AdminID})
	}
	if f.ResourceType != "" {
		q = q.Where(sq.Eq{"a.resource_type": f.ResourceType})
	}
	if f.Action != "" {
		q = q.Where(sq.Eq{"a.action": f.Action})
	}
	if f.StartDate != nil {
		q = q.Where(sq.GtOrEq{"a.timestamp": *f.StartDate})
	}
	if f.EndDate != nil {
		q = q.Where(sq.LtOrEq{"a.timestamp": *f.EndDate})
	}
	return q
}

func (r *AuditRepo) selectMany(ctx context.Context, q sq.SelectBuilder) ([]model.AuditLogEntry, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	var rows []auditRow
	if err := sqlscan.Select(ctx, r.db, &rows, query, args...); err != nil {
		return nil, err
	}
	out := make([]model.AuditLogEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toModel())
	}
	return out, nil
}

// Insert appends one entry.
func (r *AuditRepo) Insert(ctx context.Context, e *model.AuditLogEntry) error {
	query, args, err := qb.Insert("audit_logs").
		Columns("id", "admin_id", "action", "resource_type", "resource_id", "details", "ip_address", "user_agent", "timestamp").
		Values(e.ID, e.AdminID, e.Action, e.ResourceType, e.ResourceID, e.Details, e.IPAddress, e.UserAgent, e.Timestamp).
		ToSql()
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, query, args...)
	return err
}

// Find returns one page of entries matching f, most recent first.
func (r *AuditRepo) Find(ctx context.Context, f model.AuditFilter, offset, limit int) ([]model.AuditLogEntry, error) {
	return r.selectMany(ctx, applyAuditFilter(selectAudit(), f).
		OrderBy("a.timestamp DESC").
		Offset(uint64(offset)).
		Limit(uint64(limit)))
}

// Count counts entries matching f.
func (r *AuditRepo) Count(ctx context.Context, f model.AuditFilter) (int, error) {
	return count(ctx, r.db, applyAuditFilter(qb.Select("COUNT(*)").From("audit_logs a"), f))
}

// ByResource returns the full history of one resource, most recent first.
func (r *AuditRepo) ByResource(ctx context.Context, rt model.ResourceType, resourceID string) ([]model.AuditLogEntry, error) {
	return r.selectMany(ctx, selectAudit().
		Where(sq.Eq{"a.resource_type": rt, "a.resource_id": resourceID}).
		OrderBy("a.timestamp DESC"))
}
