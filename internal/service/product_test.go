package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/warranty-manager/internal/model"
	"github.com/iliyamo/warranty-manager/internal/storage"
)

func newProductFixture(ps ...model.Product) (*ProductService, *memProducts, *auditStoreMock, *memFiles) {
	products := newMemProducts(ps...)
	audit := &auditStoreMock{}
	files := newMemFiles()
	clock := newClock()
	svc := NewProductService(discardLogger(), products, products,
		NewAuditRecorder(discardLogger(), audit, clock), clock, files)
	return svc, products, audit, files
}

func TestProductService_Categories(t *testing.T) {
	t.Parallel()

	svc, _, _, _ := newProductFixture()
	got := svc.Categories()
	assert.Equal(t, []model.ProductCategory{"Electronics", "Appliances", "Furniture", "Automotive", "Clothing", "Other"}, got)

	got[0] = "Mutated"
	assert.Equal(t, model.CategoryElectronics, svc.Categories()[0])
}

func TestProductService_Create(t *testing.T) {
	t.Parallel()

	svc, products, audit, _ := newProductFixture()
	in := CreateProductInput{Name: " Fridge ", Description: "Cold", Category: model.CategoryAppliances, Manufacturer: "Acme", Model: "F1"}

	_, err := svc.Create(context.Background(), owner, in)
	assert.ErrorIs(t, err, ErrForbidden)

	p, err := svc.Create(context.Background(), admin, in)
	require.NoError(t, err)
	assert.Equal(t, "Fridge", p.Name)
	assert.Contains(t, products.items, p.ID)

	entries := audit.entries()
	require.Len(t, entries, 1)
	assert.Equal(t, model.AuditCreate, entries[0].Action)
	assert.Equal(t, model.ResourceProduct, entries[0].ResourceType)
	assert.Equal(t, p.ID, entries[0].ResourceID)

	in.Category = "Boats"
	_, err = svc.Create(context.Background(), admin, in)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestProductService_Update_AuditsFields(t *testing.T) {
	t.Parallel()

	svc, _, audit, _ := newProductFixture(model.Product{ID: "p1", Name: "Old", Category: model.CategoryOther})

	cat := model.CategoryFurniture
	p, err := svc.Update(context.Background(), admin, "p1", UpdateProductInput{Name: ptr("New"), Category: &cat})
	require.NoError(t, err)
	assert.Equal(t, "New", p.Name)
	assert.Equal(t, model.CategoryFurniture, p.Category)

	entries := audit.entries()
	require.Len(t, entries, 1)
	assert.Equal(t, []string{"name", "category"}, entries[0].Details["updatedFields"])
}

func TestProductService_Delete_RefusedWithWarranties(t *testing.T) {
	t.Parallel()

	svc, products, audit, _ := newProductFixture(model.Product{ID: "p1", Name: "Laptop"})
	products.warrantyCount["p1"] = 2

	err := svc.Delete(context.Background(), admin, "p1")
	assert.ErrorIs(t, err, ErrConflict)
	assert.Contains(t, products.items, "p1")
	assert.Empty(t, audit.entries())
}

func TestProductService_Delete(t *testing.T) {
	t.Parallel()

	img := "uploads/image-1.png"
	svc, products, audit, files := newProductFixture(model.Product{
		ID: "p1", Name: "Laptop", Category: model.CategoryElectronics, Image: &img,
	})

	require.NoError(t, svc.Delete(context.Background(), admin, "p1"))
	assert.Equal(t, []string{"p1"}, products.deleted)
	assert.Equal(t, []string{img}, files.removed)

	entries := audit.entries()
	require.Len(t, entries, 1)
	assert.Equal(t, model.AuditDelete, entries[0].Action)
	assert.Equal(t, "Laptop", entries[0].Details["name"])
	assert.Equal(t, model.CategoryElectronics, entries[0].Details["category"])

	assert.ErrorIs(t, svc.Delete(context.Background(), admin, "p1"), ErrNotFound)
}

func TestProductService_SetImage(t *testing.T) {
	t.Parallel()

	old := "uploads/old.png"
	svc, _, _, files := newProductFixture(model.Product{ID: "p1", Name: "Laptop", Image: &old})
	files.files[old] = "old"

	up := storage.Upload{Field: "image", OriginalName: "new.jpg", ContentType: "image/jpeg", Size: 3, Open: fileUpload("", "", "new").Open}
	p, err := svc.SetImage(context.Background(), admin, "p1", up)
	require.NoError(t, err)
	require.NotNil(t, p.Image)
	assert.Contains(t, files.files, *p.Image)
	assert.NotContains(t, files.files, old)

	_, err = svc.SetImage(context.Background(), admin, "p1", fileUpload("doc.pdf", "application/pdf", "x"))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestProductService_List_RejectsUnknownCategory(t *testing.T) {
	t.Parallel()

	svc, _, _, _ := newProductFixture()
	_, err := svc.List(context.Background(), model.ProductFilter{Category: "Boats"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestProductService_OpenImage(t *testing.T) {
	t.Parallel()

	img := "uploads/laptop.png"
	svc, _, _, files := newProductFixture(
		model.Product{ID: "p1", Name: "Laptop", Image: &img},
		model.Product{ID: "p2", Name: "Phone"},
	)
	files.files[img] = "png"

	f, err := svc.OpenImage(context.Background(), "p1")
	require.NoError(t, err)
	defer f.Body.Close()
	assert.Equal(t, "laptop.png", f.Name)
	assert.Equal(t, "image/png", f.ContentType)

	_, err = svc.OpenImage(context.Background(), "p2")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.OpenImage(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
