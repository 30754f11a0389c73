package model

import "time"

// WarrantyStatus is derived from the expiration date every time a warranty
// is written. It is stored so that admin counts can be served by an index.
type WarrantyStatus string

const (
    WarrantyActive   WarrantyStatus = "active"
    WarrantyExpiring WarrantyStatus = "expiring"
    WarrantyExpired  WarrantyStatus = "expired"
)

// Valid reports whether s is one of the known status values.
func (s WarrantyStatus) Valid() bool {
    switch s {
    case WarrantyActive, WarrantyExpiring, WarrantyExpired:
        return true
    }
    return false
}

// Warranty mirrors the `warranties` table. Documents are kept in a JSON
// column because they only exist as part of their warranty.
type Warranty struct {
    ID               string         `json:"id"`               // warranties.id (uuid)
    UserID           string         `json:"userId"`           // warranties.user_id
    ProductID        string         `json:"productId"`        // warranties.product_id
    PurchaseDate     time.Time      `json:"purchaseDate"`     // warranties.purchase_date
    ExpirationDate   time.Time      `json:"expirationDate"`   // warranties.expiration_date
    WarrantyProvider string         `json:"warrantyProvider"` // warranties.warranty_provider
    WarrantyNumber   string         `json:"warrantyNumber"`   // warranties.warranty_number
    CoverageDetails  string         `json:"coverageDetails"`  // warranties.coverage_details
    Notes            string         `json:"notes"`            // warranties.notes
    Status           WarrantyStatus `json:"status"`           // warranties.status
    Documents        Documents      `json:"documents"`        // warranties.documents (JSON)
    CreatedAt        time.Time      `json:"createdAt"`        // warranties.created_at
    UpdatedAt        time.Time      `json:"updatedAt"`        // warranties.updated_at

    // Joined for responses, never written.
    Product *ProductSummary `json:"product,omitempty"`
    Owner   *UserSummary    `json:"user,omitempty"`
}

// ProductSummary is the subset of a product embedded in warranty responses.
type ProductSummary struct {
    ID           string          `json:"id"`
    Name         string          `json:"name"`
    Category     ProductCategory `json:"category"`
    Manufacturer string          `json:"manufacturer"`
}

// UserSummary is the subset of a user embedded in admin listings.
type UserSummary struct {
    ID    string `json:"id"`
    Name  string `json:"name"`
    Email string `json:"email"`
}

// WarrantyStats holds per-status counts.
type WarrantyStats struct {
    Total    int `json:"total"`
    Active   int `json:"active"`
    Expiring int `json:"expiring"`
    Expired  int `json:"expired"`
}
