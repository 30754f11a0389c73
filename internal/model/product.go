package model

import "time"

// ProductCategory is the fixed set of catalog categories.
type ProductCategory string

const (
    CategoryElectronics ProductCategory = "Electronics"
    CategoryAppliances  ProductCategory = "Appliances"
    CategoryFurniture   ProductCategory = "Furniture"
    CategoryAutomotive  ProductCategory = "Automotive"
    CategoryClothing    ProductCategory = "Clothing"
    CategoryOther       ProductCategory = "Other"
)

// ProductCategories lists every category in display order.
var ProductCategories = []ProductCategory{
    CategoryElectronics,
    CategoryAppliances,
    CategoryFurniture,
    CategoryAutomotive,
    CategoryClothing,
    CategoryOther,
}

// Valid reports whether c is a known category.
func (c ProductCategory) Valid() bool {
    for _, v := range ProductCategories {
        if v == c {
            return true
        }
    }
    return false
}

// Product mirrors the `products` table.
type Product struct {
    ID           string          `json:"id" db:"id"`                     // products.id (uuid)
    Name         string          `json:"name" db:"name"`                 // products.name
    Description  string          `json:"description" db:"description"`   // products.description
    Category     ProductCategory `json:"category" db:"category"`         // products.category
    Manufacturer string          `json:"manufacturer" db:"manufacturer"` // products.manufacturer
    Model        string          `json:"model" db:"model"`               // products.model
    Image        *string         `json:"image,omitempty" db:"image"`     // products.image (nullable storage path)
    CreatedAt    time.Time       `json:"createdAt" db:"created_at"`      // products.created_at
    UpdatedAt    time.Time       `json:"updatedAt" db:"updated_at"`      // products.updated_at
}

// CategoryCount is one row of a group-by-category aggregation.
type CategoryCount struct {
    Category ProductCategory `json:"category" db:"category"`
    Count    int             `json:"count" db:"count"`
}

// ProductWarrantyCount is one row of the top-products aggregation.
type ProductWarrantyCount struct {
    Name          string `json:"name" db:"name"`
    WarrantyCount int    `json:"warrantyCount" db:"warranty_count"`
}
