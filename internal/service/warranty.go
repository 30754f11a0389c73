package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/iliyamo/warranty-manager/internal/lifecycle"
	"github.com/iliyamo/warranty-manager/internal/model"
	"github.com/iliyamo/warranty-manager/internal/observability/metrics"
	"github.com/iliyamo/warranty-manager/internal/queue"
	"github.com/iliyamo/warranty-manager/internal/repository"
	"github.com/iliyamo/warranty-manager/internal/storage"
)

type warrantyStore interface {
	Create(ctx context.Context, w *model.Warranty) error
	GetByID(ctx context.Context, id string) (*model.Warranty, error)
	Update(ctx context.Context, w *model.Warranty) error
	UpdateStatus(ctx context.Context, id string, status model.WarrantyStatus, at time.Time) error
	Delete(ctx context.Context, id string) error
	ListByUser(ctx context.Context, userID string) ([]model.Warranty, error)
	ListExpiringByUser(ctx context.Context, userID string, from, to time.Time) ([]model.Warranty, error)
	StatsByUser(ctx context.Context, userID string, from, to time.Time) (model.WarrantyStats, error)
	List(ctx context.Context, offset, limit int) ([]model.Warranty, error)
	Count(ctx context.Context) (int, error)
	Snapshots(ctx context.Context) ([]repository.StatusSnapshot, error)
}

type productLookup interface {
	GetByID(ctx context.Context, id string) (*model.Product, error)
}

type actionRecorder interface {
	RecordAction(ctx context.Context, actor Actor, action model.AuditAction,
		rt model.ResourceType, resourceID string, details map[string]any) AuditResult
}

type warrantyPublisher interface {
	PublishWarranty(ctx context.Context, ev queue.WarrantyEvent) error
}

// DeleteResult lists document files that could not be removed after their
// warranty was deleted.
type DeleteResult struct {
	FailedFiles []string `json:"failedFiles,omitempty"`
}

// WarrantyPage is one page of the admin warranty listing.
type WarrantyPage struct {
	Warranties []model.Warranty `json:"warranties"`
	Pagination model.Pagination `json:"pagination"`
}

// WarrantyService owns every write to a warranty, so every write goes
// through lifecycle.Apply.
type WarrantyService struct {
	log        *slog.Logger
	warranties warrantyStore
	products   productLookup
	audit      actionRecorder
	clock      lifecycle.Clock
	files      storage.Store
	events     warrantyPublisher
	docRules   storage.Rules
	tracer     trace.Tracer
}

func NewWarrantyService(
	logger *slog.Logger,
	warranties warrantyStore,
	products productLookup,
	audit actionRecorder,
	clock lifecycle.Clock,
	files storage.Store,
	events warrantyPublisher,
	maxFileSize int64,
) *WarrantyService {
	return &WarrantyService{
		log:        logger.With("service", "warranty"),
		warranties: warranties,
		products:   products,
		audit:      audit,
		clock:      clock,
		files:      files,
		events:     events,
		docRules:   storage.DocumentRules.WithMaxSize(maxFileSize),
		tracer:     otel.Tracer(tracerName),
	}
}

// List returns the actor's own warranties, newest first.
func (s *WarrantyService) List(ctx context.Context, actor Actor) ([]model.Warranty, error) {
	return s.warranties.ListByUser(ctx, actor.ID)
}

// Expiring returns the actor's warranties expiring within the window.
func (s *WarrantyService) Expiring(ctx context.Context, actor Actor) ([]model.Warranty, error) {
	from, to := lifecycle.Window(s.clock.Now())
	return s.warranties.ListExpiringByUser(ctx, actor.ID, from, to)
}

// Stats counts the actor's warranties by date, not by stored status.
func (s *WarrantyService) Stats(ctx context.Context, actor Actor) (model.WarrantyStats, error) {
	from, to := lifecycle.Window(s.clock.Now())
	return s.warranties.StatsByUser(ctx, actor.ID, from, to)
}

func (s *WarrantyService) Get(ctx context.Context, actor Actor, id string) (*model.Warranty, error) {
	w, err := s.warranties.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "warranty")
	}
	if !actor.canAccess(w.UserID) {
		return nil, ErrForbidden
	}
	return w, nil
}

func (s *WarrantyService) Create(ctx context.Context, actor Actor, in CreateWarrantyInput) (*model.Warranty, error) {
	ctx, span := s.tracer.Start(ctx, "warranty.Create")
	defer span.End()

	if err := in.Validate(); err != nil {
		return nil, err
	}
	p, err := s.products.GetByID(ctx, in.ProductID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewValidationError("product", "product not found")
		}
		return nil, err
	}

	now := s.clock.Now()
	w := &model.Warranty{
		ID:               uuid.NewString(),
		UserID:           actor.ID,
		ProductID:        p.ID,
		PurchaseDate:     in.PurchaseDate,
		ExpirationDate:   in.ExpirationDate,
		WarrantyProvider: in.WarrantyProvider,
		WarrantyNumber:   in.WarrantyNumber,
		CoverageDetails:  in.CoverageDetails,
		Notes:            in.Notes,
		Documents:        model.Documents{},
		CreatedAt:        now,
		Product:          summarize(p),
	}
	lifecycle.Apply(w, now)
	if err := s.warranties.Create(ctx, w); err != nil {
		return nil, fmt.Errorf("create warranty: %w", err)
	}
	span.SetAttributes(attribute.String("warranty.id", w.ID), attribute.String("warranty.status", string(w.Status)))

	s.log.InfoContext(ctx, "warranty created", "warranty_id", w.ID, "user_id", actor.ID, "status", w.Status)
	s.publish(ctx, queue.WarrantyCreated, w)
	return w, nil
}

func (s *WarrantyService) Update(ctx context.Context, actor Actor, id string, in UpdateWarrantyInput) (*model.Warranty, error) {
	ctx, span := s.tracer.Start(ctx, "warranty.Update", trace.WithAttributes(attribute.String("warranty.id", id)))
	defer span.End()

	if err := in.Validate(); err != nil {
		return nil, err
	}
	w, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	oldStatus := w.Status

	if in.ProductID != nil && *in.ProductID != w.ProductID {
		p, err := s.products.GetByID(ctx, *in.ProductID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, NewValidationError("product", "product not found")
			}
			return nil, err
		}
		w.ProductID = p.ID
		w.Product = summarize(p)
	}
	if in.PurchaseDate != nil {
		w.PurchaseDate = *in.PurchaseDate
	}
	if in.ExpirationDate != nil {
		w.ExpirationDate = *in.ExpirationDate
	}
	if w.ExpirationDate.Before(w.PurchaseDate) {
		return nil, NewValidationError("expirationDate", "must not be before purchaseDate")
	}
	if in.WarrantyProvider != nil {
		w.WarrantyProvider = *in.WarrantyProvider
	}
	if in.WarrantyNumber != nil {
		w.WarrantyNumber = *in.WarrantyNumber
	}
	if in.CoverageDetails != nil {
		w.CoverageDetails = *in.CoverageDetails
	}
	if in.Notes != nil {
		w.Notes = *in.Notes
	}

	lifecycle.Apply(w, s.clock.Now())
	if err := s.warranties.Update(ctx, w); err != nil {
		return nil, notFound(err, "warranty")
	}

	if actor.privileged(w.UserID) {
		s.audit.RecordAction(ctx, actor, model.AuditUpdate, model.ResourceWarranty, w.ID, map[string]any{
			"oldStatus":     oldStatus,
			"newStatus":     w.Status,
			"updatedFields": in.fields(),
		})
	}
	s.publish(ctx, queue.WarrantyUpdated, w)
	return w, nil
}

// Delete removes the warranty and then its document files. Files that
// cannot be removed are reported, not treated as failure.
func (s *WarrantyService) Delete(ctx context.Context, actor Actor, id string) (DeleteResult, error) {
	ctx, span := s.tracer.Start(ctx, "warranty.Delete", trace.WithAttributes(attribute.String("warranty.id", id)))
	defer span.End()

	w, err := s.Get(ctx, actor, id)
	if err != nil {
		return DeleteResult{}, err
	}
	if err := s.warranties.Delete(ctx, w.ID); err != nil {
		return DeleteResult{}, notFound(err, "warranty")
	}

	var res DeleteResult
	for _, d := range w.Documents {
		if err := s.removeFile(ctx, d); err != nil {
			res.FailedFiles = append(res.FailedFiles, d.Filename)
		}
	}

	if actor.privileged(w.UserID) {
		product := w.ProductID
		if w.Product != nil {
			product = w.Product.Name
		}
		s.audit.RecordAction(ctx, actor, model.AuditDelete, model.ResourceWarranty, w.ID, map[string]any{
			"product": product,
			"status":  w.Status,
		})
	}
	s.publish(ctx, queue.WarrantyDeleted, w)
	return res, nil
}

// AddDocuments stores the uploads and attaches them to the warranty. If the
// warranty cannot be saved the stored files are removed again.
func (s *WarrantyService) AddDocuments(ctx context.Context, actor Actor, id string, uploads []storage.Upload) (*model.Warranty, error) {
	if err := s.docRules.Check(uploads); err != nil {
		return nil, NewValidationError("documents", err.Error())
	}
	w, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	added := make([]model.Document, 0, len(uploads))
	rollback := func() {
		for _, d := range added {
			_ = s.removeFile(ctx, d)
		}
	}
	for _, u := range uploads {
		name := storage.StoredName(u, now)
		path, err := storage.Put(ctx, s.files, name, u)
		if err != nil {
			rollback()
			return nil, fmt.Errorf("store %s: %w", u.OriginalName, err)
		}
		added = append(added, model.Document{
			ID:           uuid.NewString(),
			Filename:     name,
			OriginalName: u.OriginalName,
			Path:         path,
			MimeType:     u.ContentType,
			Size:         u.Size,
			UploadedAt:   now,
		})
	}

	w.Documents = append(w.Documents, added...)
	lifecycle.Apply(w, now)
	if err := s.warranties.Update(ctx, w); err != nil {
		rollback()
		return nil, notFound(err, "warranty")
	}
	s.publish(ctx, queue.WarrantyUpdated, w)
	return w, nil
}

// RemoveDocument detaches one document. Failing to remove its file only
// logs a warning.
func (s *WarrantyService) RemoveDocument(ctx context.Context, actor Actor, id, documentID string) (*model.Warranty, error) {
	w, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	idx := w.Documents.Find(documentID)
	if idx < 0 {
		return nil, fmt.Errorf("document %w", ErrNotFound)
	}
	doc := w.Documents[idx]
	w.Documents = append(w.Documents[:idx:idx], w.Documents[idx+1:]...)

	lifecycle.Apply(w, s.clock.Now())
	if err := s.warranties.Update(ctx, w); err != nil {
		return nil, notFound(err, "warranty")
	}
	_ = s.removeFile(ctx, doc)
	return w, nil
}

// OpenDocument opens one attached document for the owner or an admin.
func (s *WarrantyService) OpenDocument(ctx context.Context, actor Actor, id, documentID string) (*File, error) {
	w, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	idx := w.Documents.Find(documentID)
	if idx < 0 {
		return nil, fmt.Errorf("document %w", ErrNotFound)
	}
	d := w.Documents[idx]
	return openFile(ctx, s.files, d.Path, d.OriginalName, d.MimeType)
}

// AdminList returns every warranty with owner and product, newest first.
func (s *WarrantyService) AdminList(ctx context.Context, page, limit int) (WarrantyPage, error) {
	page, limit = normalizePage(page, limit, DefaultAdminLimit)
	items, err := s.warranties.List(ctx, (page-1)*limit, limit)
	if err != nil {
		return WarrantyPage{}, err
	}
	total, err := s.warranties.Count(ctx)
	if err != nil {
		return WarrantyPage{}, err
	}
	return WarrantyPage{Warranties: items, Pagination: model.NewPagination(total, page, limit)}, nil
}

// RefreshStatuses re-derives the stored status of every warranty and
// rewrites the ones that drifted. It returns how many were updated.
func (s *WarrantyService) RefreshStatuses(ctx context.Context) (int, error) {
	snaps, err := s.warranties.Snapshots(ctx)
	if err != nil {
		return 0, err
	}
	now := s.clock.Now()
	updated := 0
	for _, sn := range snaps {
		status := lifecycle.DeriveStatus(sn.ExpirationDate, now)
		if status == sn.Status {
			continue
		}
		if err := s.warranties.UpdateStatus(ctx, sn.ID, status, now); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				continue // deleted meanwhile
			}
			return updated, err
		}
		updated++
	}
	s.log.InfoContext(ctx, "warranty statuses refreshed", "checked", len(snaps), "updated", updated)
	return updated, nil
}

func (s *WarrantyService) removeFile(ctx context.Context, d model.Document) error {
	err := s.files.Remove(ctx, d.Path)
	metrics.ObserveFileRemoval(err == nil)
	if err != nil {
		s.log.WarnContext(ctx, "remove document file failed", "path", d.Path, "err", err)
	}
	return err
}

func (s *WarrantyService) publish(ctx context.Context, t queue.WarrantyEventType, w *model.Warranty) {
	ev := queue.WarrantyEvent{
		Type:             t,
		WarrantyID:       w.ID,
		UserID:           w.UserID,
		ProductID:        w.ProductID,
		WarrantyProvider: w.WarrantyProvider,
		ExpirationDate:   w.ExpirationDate,
		Status:           string(w.Status),
		OccurredAt:       s.clock.Now(),
	}
	if w.Product != nil {
		ev.ProductName = w.Product.Name
	}
	_ = s.events.PublishWarranty(ctx, ev)
}

func summarize(p *model.Product) *model.ProductSummary {
	return &model.ProductSummary{ID: p.ID, Name: p.Name, Category: p.Category, Manufacturer: p.Manufacturer}
}
