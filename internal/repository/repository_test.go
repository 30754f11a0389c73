package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/warranty-manager/internal/model"
	"github.com/iliyamo/warranty-manager/internal/repository"
	"github.com/iliyamo/warranty-manager/internal/testutil"
)

// The container is shared by every test in the package, so each test works
// on rows it created under fresh ids.

var t0 = time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

func newUser(t *testing.T, users *repository.UserRepo, role string) *model.User {
	t.Helper()
	id := uuid.NewString()
	u := &model.User{
		ID:           id,
		Name:         "User " + id[:8],
		Email:        "  " + id[:8] + "@Example.com ",
		PasswordHash: "hash",
		Role:         role,
		CreatedAt:    t0,
		UpdatedAt:    t0,
	}
	require.NoError(t, users.Create(context.Background(), u))
	return u
}

func TestUserRepo(t *testing.T) {
	db := testutil.MySQL(t)
	users := repository.NewUserRepo(db)
	ctx := context.Background()

	u := newUser(t, users, model.RoleUser)
	assert.Equal(t, u.ID[:8]+"@example.com", u.Email)

	got, err := users.GetByEmail(ctx, u.ID[:8]+"@EXAMPLE.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, model.RoleUser, got.Role)
	assert.True(t, got.CreatedAt.Equal(t0))

	dup := *u
	dup.ID = uuid.NewString()
	assert.ErrorIs(t, users.Create(ctx, &dup), repository.ErrDuplicate)

	require.NoError(t, users.UpdateRole(ctx, u.ID, model.RoleAdmin, t0.Add(time.Hour)))
	got, err = users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, got.Role)

	require.NoError(t, users.Delete(ctx, u.ID))
	_, err = users.GetByID(ctx, u.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.ErrorIs(t, users.Delete(ctx, u.ID), repository.ErrNotFound)
}

func TestWarrantyRepo(t *testing.T) {
	db := testutil.MySQL(t)
	ctx := context.Background()
	users := repository.NewUserRepo(db)
	products := repository.NewProductRepo(db)
	warranties := repository.NewWarrantyRepo(db)

	owner := newUser(t, users, model.RoleUser)
	p := &model.Product{
		ID:        uuid.NewString(),
		Name:      "Laptop",
		Category:  model.CategoryElectronics,
		CreatedAt: t0,
		UpdatedAt: t0,
	}
	require.NoError(t, products.Create(ctx, p))

	mk := func(exp time.Time, status model.WarrantyStatus) *model.Warranty {
		w := &model.Warranty{
			ID:             uuid.NewString(),
			UserID:         owner.ID,
			ProductID:      p.ID,
			PurchaseDate:   exp.AddDate(-1, 0, 0),
			ExpirationDate: exp,
			Status:         status,
			CreatedAt:      t0,
			UpdatedAt:      t0,
		}
		require.NoError(t, warranties.Create(ctx, w))
		return w
	}
	active := mk(t0.AddDate(1, 0, 0), model.WarrantyActive)
	expiring := mk(t0.AddDate(0, 0, 10), model.WarrantyExpiring)
	mk(t0.AddDate(0, 0, -5), model.WarrantyExpired)

	got, err := warranties.GetByID(ctx, active.ID)
	require.NoError(t, err)
	assert.Equal(t, model.WarrantyActive, got.Status)
	assert.Empty(t, got.Documents)
	require.NotNil(t, got.Product)
	assert.Equal(t, "Laptop", got.Product.Name)

	list, err := warranties.ListByUser(ctx, owner.ID)
	require.NoError(t, err)
	assert.Len(t, list, 3)

	soon, err := warranties.ListExpiringByUser(ctx, owner.ID, t0, t0.AddDate(0, 0, 30))
	require.NoError(t, err)
	require.Len(t, soon, 1)
	assert.Equal(t, expiring.ID, soon[0].ID)

	stats, err := warranties.StatsByUser(ctx, owner.ID, t0, t0.AddDate(0, 0, 30))
	require.NoError(t, err)
	assert.Equal(t, model.WarrantyStats{Total: 3, Active: 1, Expiring: 1, Expired: 1}, stats)

	n, err := warranties.CountByProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.NoError(t, warranties.UpdateStatus(ctx, active.ID, model.WarrantyExpired, t0.Add(time.Hour)))
	got, err = warranties.GetByID(ctx, active.ID)
	require.NoError(t, err)
	assert.Equal(t, model.WarrantyExpired, got.Status)

	got.Notes = "replaced battery"
	got.Documents = model.Documents{{ID: "d1", Filename: "f.pdf", Path: "documents/f.pdf", MimeType: "application/pdf", Size: 10, UploadedAt: t0}}
	require.NoError(t, warranties.Update(ctx, got))
	got, err = warranties.GetByID(ctx, active.ID)
	require.NoError(t, err)
	assert.Equal(t, "replaced battery", got.Notes)
	require.Len(t, got.Documents, 1)
	assert.Equal(t, "documents/f.pdf", got.Documents[0].Path)

	require.NoError(t, warranties.Delete(ctx, active.ID))
	_, err = warranties.GetByID(ctx, active.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestAuditRepo(t *testing.T) {
	db := testutil.MySQL(t)
	ctx := context.Background()
	users := repository.NewUserRepo(db)
	audit := repository.NewAuditRepo(db)

	admin := newUser(t, users, model.RoleAdmin)
	resource := uuid.NewString()
	for i, action := range []model.AuditAction{model.AuditCreate, model.AuditUpdate, model.AuditDelete} {
		require.NoError(t, audit.Insert(ctx, &model.AuditLogEntry{
			ID:           uuid.NewString(),
			AdminID:      admin.ID,
			Action:       action,
			ResourceType: model.ResourceProduct,
			ResourceID:   resource,
			Details:      model.JSONMap{"step": float64(i)},
			IPAddress:    "10.0.0.1",
			Timestamp:    t0.Add(time.Duration(i) * time.Minute),
		}))
	}

	f := model.AuditFilter{AdminID: admin.ID}
	total, err := audit.Count(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	page, err := audit.Find(ctx, f, 0, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, model.AuditDelete, page[0].Action)
	require.NotNil(t, page[0].Admin)
	assert.Equal(t, admin.Name, page[0].Admin.Name)
	assert.Equal(t, float64(2), page[0].Details["step"])

	f.Action = model.AuditUpdate
	total, err = audit.Count(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	// History survives the admin being deleted; the summary goes away.
	require.NoError(t, users.Delete(ctx, admin.ID))
	history, err := audit.ByResource(ctx, model.ResourceProduct, resource)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, model.AuditCreate, history[2].Action)
	assert.Nil(t, history[0].Admin)
}

func TestEventRepo_WarrantyReminders(t *testing.T) {
	db := testutil.MySQL(t)
	ctx := context.Background()
	events := repository.NewEventRepo(db)

	warrantyID := uuid.NewString()
	eventID := uuid.NewString()
	require.NoError(t, events.Create(ctx, &model.Event{
		ID:                eventID,
		UserID:            uuid.NewString(),
		Title:             "Laptop warranty expires",
		EventType:         model.EventWarranty,
		StartDate:         t0,
		EndDate:           t0,
		Color:             model.DefaultEventColor,
		RelatedWarrantyID: &warrantyID,
		Notifications:     model.Notifications{Enabled: true, ReminderTime: 24},
		CreatedAt:         t0,
		UpdatedAt:         t0,
	}))

	n, err := events.CountForWarranty(ctx, warrantyID, model.EventWarranty)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	moved := t0.AddDate(1, 0, 0)
	affected, err := events.RescheduleForWarranty(ctx, warrantyID, model.EventWarranty, moved, "ends later", t0.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	got, err := events.GetByID(ctx, eventID)
	require.NoError(t, err)
	assert.True(t, got.StartDate.Equal(moved))
	assert.True(t, got.EndDate.Equal(moved))
	assert.Equal(t, "ends later", got.Description)

	removed, err := events.DeleteForWarranty(ctx, warrantyID, model.EventWarranty)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
}
