package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/warranty-manager/internal/model"
	"github.com/iliyamo/warranty-manager/internal/queue"
	"github.com/iliyamo/warranty-manager/internal/repository"
	"github.com/iliyamo/warranty-manager/internal/storage"
	"github.com/iliyamo/warranty-manager/internal/testutil"
)

var (
	testNow  = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	errBoom  = errors.New("boom")
	owner    = Actor{ID: "user-1", Role: model.RoleUser, IP: "10.0.0.1", UserAgent: "test"}
	stranger = Actor{ID: "user-2", Role: model.RoleUser}
	admin    = Actor{ID: "admin-1", Role: model.RoleAdmin, IP: "10.0.0.9", UserAgent: "admin-ui"}
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newClock() *testutil.StubClock { return testutil.NewStubClock(testNow) }

func ptr[T any](v T) *T { return &v }

// ─── audit ──────────────────────────────────────────────────────────────────

type auditStoreMock struct {
	mu       sync.Mutex
	inserted []model.AuditLogEntry

	InsertFunc     func(ctx context.Context, e *model.AuditLogEntry) error
	FindFunc       func(ctx context.Context, f model.AuditFilter, offset, limit int) ([]model.AuditLogEntry, error)
	CountFunc      func(ctx context.Context, f model.AuditFilter) (int, error)
	ByResourceFunc func(ctx context.Context, rt model.ResourceType, id string) ([]model.AuditLogEntry, error)
}

func (m *auditStoreMock) Insert(ctx context.Context, e *model.AuditLogEntry) error {
	if m.InsertFunc != nil {
		if err := m.InsertFunc(ctx, e); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inserted = append(m.inserted, *e)
	return nil
}

func (m *auditStoreMock) Find(ctx context.Context, f model.AuditFilter, offset, limit int) ([]model.AuditLogEntry, error) {
	if m.FindFunc != nil {
		return m.FindFunc(ctx, f, offset, limit)
	}
	return nil, nil
}

func (m *auditStoreMock) Count(ctx context.Context, f model.AuditFilter) (int, error) {
	if m.CountFunc != nil {
		return m.CountFunc(ctx, f)
	}
	return 0, nil
}

func (m *auditStoreMock) ByResource(ctx context.Context, rt model.ResourceType, id string) ([]model.AuditLogEntry, error) {
	if m.ByResourceFunc != nil {
		return m.ByResourceFunc(ctx, rt, id)
	}
	return nil, nil
}

func (m *auditStoreMock) entries() []model.AuditLogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.AuditLogEntry(nil), m.inserted...)
}

// ─── warranties ─────────────────────────────────────────────────────────────

// memWarranties is an in-memory warrantyStore.
type memWarranties struct {
	items     map[string]*model.Warranty
	updateErr error
	statusUpd []string
}

func newMemWarranties(ws ...model.Warranty) *memWarranties {
	m := &memWarranties{items: map[string]*model.Warranty{}}
	for i := range ws {
		w := ws[i]
		m.items[w.ID] = &w
	}
	return m
}

func (m *memWarranties) Create(_ context.Context, w *model.Warranty) error {
	cp := *w
	m.items[w.ID] = &cp
	return nil
}

func (m *memWarranties) GetByID(_ context.Context, id string) (*model.Warranty, error) {
	w, ok := m.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *w
	cp.Documents = append(model.Documents{}, w.Documents...)
	return &cp, nil
}

func (m *memWarranties) Update(_ context.Context, w *model.Warranty) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	if _, ok := m.items[w.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *w
	m.items[w.ID] = &cp
	return nil
}

func (m *memWarranties) UpdateStatus(_ context.Context, id string, st model.WarrantyStatus, at time.Time) error {
	w, ok := m.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	w.Status = st
	w.UpdatedAt = at
	m.statusUpd = append(m.statusUpd, id)
	return nil
}

func (m *memWarranties) Delete(_ context.Context, id string) error {
	if _, ok := m.items[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *memWarranties) ListByUser(_ context.Context, userID string) ([]model.Warranty, error) {
	var out []model.Warranty
	for _, w := range m.items {
		if w.UserID == userID {
			out = append(out, *w)
		}
	}
	return out, nil
}

func (m *memWarranties) ListExpiringByUser(_ context.Context, userID string, from, to time.Time) ([]model.Warranty, error) {
	var out []model.Warranty
	for _, w := range m.items {
		if w.UserID == userID && !w.ExpirationDate.Before(from) && !w.ExpirationDate.After(to) {
			out = append(out, *w)
		}
	}
	return out, nil
}

func (m *memWarranties) StatsByUser(_ context.Context, userID string, from, to time.Time) (model.WarrantyStats, error) {
	var s model.WarrantyStats
	for _, w := range m.items {
		if w.UserID != userID {
			continue
		}
		s.Total++
		switch {
		case w.ExpirationDate.After(to):
			s.Active++
		case w.ExpirationDate.Before(from):
			s.Expired++
		default:
			s.Expiring++
		}
	}
	return s, nil
}

func (m *memWarranties) List(_ context.Context, offset, limit int) ([]model.Warranty, error) {
	return nil, nil
}

func (m *memWarranties) Count(context.Context) (int, error) { return len(m.items), nil }

func (m *memWarranties) Snapshots(context.Context) ([]repository.StatusSnapshot, error) {
	var out []repository.StatusSnapshot
	for _, w := range m.items {
		out = append(out, repository.StatusSnapshot{ID: w.ID, ExpirationDate: w.ExpirationDate, Status: w.Status})
	}
	return out, nil
}

// ─── products ───────────────────────────────────────────────────────────────

type memProducts struct {
	items         map[string]*model.Product
	warrantyCount map[string]int
	deleted       []string
}

func newMemProducts(ps ...model.Product) *memProducts {
	m := &memProducts{items: map[string]*model.Product{}, warrantyCount: map[string]int{}}
	for i := range ps {
		p := ps[i]
		m.items[p.ID] = &p
	}
	return m
}

func (m *memProducts) Create(_ context.Context, p *model.Product) error {
	cp := *p
	m.items[p.ID] = &cp
	return nil
}

func (m *memProducts) GetByID(_ context.Context, id string) (*model.Product, error) {
	p, ok := m.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memProducts) Update(_ context.Context, p *model.Product) error {
	if _, ok := m.items[p.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *p
	m.items[p.ID] = &cp
	return nil
}

func (m *memProducts) Delete(_ context.Context, id string) error {
	if _, ok := m.items[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.items, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *memProducts) List(context.Context, model.ProductFilter) ([]model.Product, error) {
	return nil, nil
}

func (m *memProducts) ListPage(context.Context, int, int) ([]model.Product, error) { return nil, nil }

func (m *memProducts) Count(context.Context) (int, error) { return len(m.items), nil }

func (m *memProducts) CountByProduct(_ context.Context, productID string) (int, error) {
	return m.warrantyCount[productID], nil
}

// ─── files and broker ───────────────────────────────────────────────────────

// memFiles is a storage.Store keeping bytes in memory. Paths in failRemove
// fail to be removed.
type memFiles struct {
	mu         sync.Mutex
	files      map[string]string
	removed    []string
	failRemove map[string]bool
}

func newMemFiles() *memFiles {
	return &memFiles{files: map[string]string{}, failRemove: map[string]bool{}}
}

func (f *memFiles) Save(_ context.Context, name, _ string, r io.Reader, _ int64) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	path := "uploads/" + name
	f.files[path] = string(b)
	return path, nil
}

func (f *memFiles) Open(_ context.Context, path string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.files[path]
	if !ok {
		return nil, storage.ErrNotExist
	}
	return io.NopCloser(strings.NewReader(b)), nil
}

func (f *memFiles) Remove(_ context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failRemove[path] {
		return errBoom
	}
	delete(f.files, path)
	f.removed = append(f.removed, path)
	return nil
}

type publisherSpy struct {
	events []queue.WarrantyEvent
}

func (p *publisherSpy) PublishWarranty(_ context.Context, ev queue.WarrantyEvent) error {
	p.events = append(p.events, ev)
	return nil
}

func fileUpload(name, ct, body string) storage.Upload {
	return storage.Upload{
		Field:        "documents",
		OriginalName: name,
		ContentType:  ct,
		Size:         int64(len(body)),
		Open:         func() (io.ReadCloser, error) { return io.NopCloser(strings.NewReader(body)), nil },
	}
}
