package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/warranty-manager/internal/lifecycle"
	"github.com/iliyamo/warranty-manager/internal/model"
	"github.com/iliyamo/warranty-manager/internal/observability/metrics"
)

const tracerName = "github.com/iliyamo/warranty-manager/internal/service"

// auditStore is append-only: there is no update or delete.
type auditStore interface {
	Insert(ctx context.Context, e *model.AuditLogEntry) error
	Find(ctx context.Context, f model.AuditFilter, offset, limit int) ([]model.AuditLogEntry, error)
	Count(ctx context.Context, f model.AuditFilter) (int, error)
	ByResource(ctx context.Context, rt model.ResourceType, resourceID string) ([]model.AuditLogEntry, error)
}

// AuditResult reports whether an entry was persisted. Callers may ignore it.
type AuditResult struct {
	OK bool
	ID string
}

// AuditPage is one page of audit entries, newest first.
type AuditPage struct {
	Logs       []model.AuditLogEntry `json:"logs"`
	Pagination model.Pagination      `json:"pagination"`
}

// AuditRecorder writes and queries the trail of privileged actions.
type AuditRecorder struct {
	log    *slog.Logger
	store  auditStore
	clock  lifecycle.Clock
	tracer trace.Tracer
}

func NewAuditRecorder(logger *slog.Logger, store auditStore, clock lifecycle.Clock) *AuditRecorder {
	return &AuditRecorder{
		log:    logger.With("service", "audit"),
		store:  store,
		clock:  clock,
		tracer: otel.Tracer(tracerName),
	}
}

// RecordAction appends one entry. It never fails the caller: a write error
// is logged and counted, and the primary operation carries on.
func (r *AuditRecorder) RecordAction(ctx context.Context, actor Actor, action model.AuditAction,
	rt model.ResourceType, resourceID string, details map[string]any) AuditResult {
	ctx, span := r.tracer.Start(ctx, "audit.RecordAction", trace.WithAttributes(
		attribute.String("audit.action", string(action)),
		attribute.String("audit.resource_type", string(rt)),
	))
	defer span.End()

	if !action.Valid() || !rt.Valid() {
		r.log.ErrorContext(ctx, "audit entry dropped: invalid enum",
			"action", action, "resource_type", rt, "resource_id", resourceID)
		metrics.ObserveAuditWrite(false)
		span.SetStatus(codes.Error, "invalid enum")
		return AuditResult{}
	}

	e := &model.AuditLogEntry{
		ID:           uuid.NewString(),
		AdminID:      actor.ID,
		Action:       action,
		ResourceType: rt,
		ResourceID:   resourceID,
		Details:      model.JSONMap(details),
		IPAddress:    actor.IP,
		UserAgent:    actor.UserAgent,
		Timestamp:    r.clock.Now(),
	}
	if err := r.store.Insert(ctx, e); err != nil {
		r.log.ErrorContext(ctx, "audit write failed",
			"action", action, "resource_type", rt, "resource_id", resourceID,
			"admin_id", actor.ID, "err", err)
		metrics.ObserveAuditWrite(false)
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		return AuditResult{}
	}
	metrics.ObserveAuditWrite(true)
	return AuditResult{OK: true, ID: e.ID}
}

// QueryLogs returns one page of entries matching every set field of f.
func (r *AuditRecorder) QueryLogs(ctx context.Context, f model.AuditFilter, page, limit int) (AuditPage, error) {
	ctx, span := r.tracer.Start(ctx, "audit.QueryLogs")
	defer span.End()

	page, limit = normalizePage(page, limit, DefaultAuditLimit)
	var (
		logs  []model.AuditLogEntry
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		logs, err = r.store.Find(gctx, f, (page-1)*limit, limit)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = r.store.Count(gctx, f)
		return err
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return AuditPage{}, err
	}
	if logs == nil {
		logs = []model.AuditLogEntry{}
	}
	return AuditPage{Logs: logs, Pagination: model.NewPagination(total, page, limit)}, nil
}

// ResourceHistory returns every entry about one resource, newest first.
func (r *AuditRecorder) ResourceHistory(ctx context.Context, rt model.ResourceType, resourceID string) ([]model.AuditLogEntry, error) {
	if !rt.Valid() {
		return nil, NewValidationError("resourceType", "unknown resource type")
	}
	return r.store.ByResource(ctx, rt, resourceID)
}
