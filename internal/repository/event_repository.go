package repository

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/sqlscan"

	"github.com/iliyamo/warranty-manager/internal/model"
)

// EventRepo encapsulates all queries against the calendar events table.
type EventRepo struct {
	db *sql.DB
}

func NewEventRepo(db *sql.DB) *EventRepo {
	return &EventRepo{db: db}
}

// eventRow flattens the notification settings into their columns.
type eventRow struct {
	model.Event
	NotificationsEnabled bool `db:"notifications_enabled"`
	ReminderTime         int  `db:"reminder_time"`
}

func (r eventRow) toModel() model.Event {
	e := r.Event
	e.Notifications = model.Notifications{Enabled: r.NotificationsEnabled, ReminderTime: r.ReminderTime}
	return e
}

var eventColumns = []string{
	"id", "user_id", "title", "description", "event_type", "start_date", "end_date", "all_day",
	"location", "color", "related_product_id", "related_warranty_id",
	"notifications_enabled", "reminder_time", "created_at", "updated_at",
}

func (r *EventRepo) selectMany(ctx context.Context, q sq.SelectBuilder) ([]model.Event, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	var rows []eventRow
	if err := sqlscan.Select(ctx, r.db, &rows, query, args...); err != nil {
		return nil, err
	}
	out := make([]model.Event, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toModel())
	}
	return out, nil
}

// Create inserts e with its pre-assigned id.
func (r *EventRepo) Create(ctx context.Context, e *model.Event) error {
	query, args, err := qb.Insert("events").
		Columns(eventColumns...).
		Values(e.ID, e.UserID, e.Title, e.Description, e.EventType, e.StartDate, e.EndDate, e.AllDay,
			e.Location, e.Color, e.RelatedProductID, e.RelatedWarrantyID,
			e.Notifications.Enabled, e.Notifications.ReminderTime, e.CreatedAt, e.UpdatedAt).
		ToSql()
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, query, args...)
	return err
}

// GetByID returns ErrNotFound when no event has the id.
func (r *EventRepo) GetByID(ctx context.Context, id string) (*model.Event, error) {
	query, args, err := qb.Select(eventColumns...).From("events").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	var row eventRow
	if err := sqlscan.Get(ctx, r.db, &row, query, args...); err != nil {
		if sqlscan.NotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	e := row.toModel()
	return &e, nil
}

// Update writes every mutable column of e.
func (r *EventRepo) Update(ctx context.Context, e *model.Event) error {
	return execAffected(ctx, r.db, qb.Update("events").SetMap(map[string]any{
		"title":                 e.Title,
		"description":           e.Description,
		"event_type":            e.EventType,
		"start_date":            e.StartDate,
		"end_date":              e.EndDate,
		"all_day":               e.AllDay,
		"location":              e.Location,
		"color":                 e.Color,
		"related_product_id":    e.RelatedProductID,
		"related_warranty_id":   e.RelatedWarrantyID,
		"notifications_enabled": e.Notifications.Enabled,
		"reminder_time":         e.Notifications.ReminderTime,
		"updated_at":            e.UpdatedAt,
	}).Where(sq.Eq{"id": e.ID}))
}

// Delete removes one event.
func (r *EventRepo) Delete(ctx context.Context, id string) error {
	return execAffected(ctx, r.db, qb.Delete("events").Where(sq.Eq{"id": id}))
}

// ListByUser returns the user's events ordered by start date.
func (r *EventRepo) ListByUser(ctx context.Context, userID string, f model.EventFilter) ([]model.Event, error) {
	q := qb.Select(eventColumns...).From("events").Where(sq.Eq{"user_id": userID})
	if f.From != nil && f.To != nil {
		q = q.Where(sq.GtOrEq{"start_date": *f.From}).Where(sq.LtOrEq{"end_date": *f.To})
	}
	if f.EventType != "" {
		q = q.Where(sq.Eq{"event_type": f.EventType})
	}
	return r.selectMany(ctx, q.OrderBy("start_date ASC"))
}

// ListByUserStarting returns the user's events with from <= start_date < to.
func (r *EventRepo) ListByUserStarting(ctx context.Context, userID string, from, to time.Time) ([]model.Event, error) {
	return r.selectMany(ctx, qb.Select(eventColumns...).From("events").
		Where(sq.Eq{"user_id": userID}).
		Where(sq.GtOrEq{"start_date": from}).
		Where(sq.Lt{"start_date": to}).
		OrderBy("start_date ASC"))
}

// Recent returns the n most recently created events of all users.
func (r *EventRepo) Recent(ctx context.Context, n int) ([]model.Event, error) {
	return r.selectMany(ctx, qb.Select(eventColumns...).From("events").
		OrderBy("created_at DESC").
		Limit(uint64(n)))
}

// CountForWarranty counts events of the given type linked to a warranty.
func (r *EventRepo) CountForWarranty(ctx context.Context, warrantyID string, t model.EventType) (int, error) {
	return count(ctx, r.db, qb.Select("COUNT(*)").From("events").
		Where(sq.Eq{"related_warranty_id": warrantyID, "event_type": t}))
}

// DeleteForWarranty removes every event of the given type linked to a
// warranty and reports how many were removed.
func (r *EventRepo) DeleteForWarranty(ctx context.Context, warrantyID string, t model.EventType) (int64, error) {
	query, args, err := qb.Delete("events").
		Where(sq.Eq{"related_warranty_id": warrantyID, "event_type": t}).
		ToSql()
	if err != nil {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// RescheduleForWarranty moves every event of the given type linked to a
// warranty to at, rewriting its description, and reports how many matched.
func (r *EventRepo) RescheduleForWarranty(ctx context.Context, warrantyID string, t model.EventType, at time.Time, description string, now time.Time) (int64, error) {
	query, args, err := qb.Update("events").
		Set("start_date", at).
		Set("end_date", at).
		Set("description", description).
		Set("updated_at", now).
		Where(sq.Eq{"related_warranty_id": warrantyID, "event_type": t}).
		ToSql()
	if err != nil {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
