package service

import (
	"strings"
	"time"
)

// CreateWarrantyInput holds the fields a client may send when registering a
// warranty. Status is accepted for compatibility and always ignored.
type CreateWarrantyInput struct {
	ProductID        string
	PurchaseDate     time.Time
	ExpirationDate   time.Time
	WarrantyProvider string
	WarrantyNumber   string
	CoverageDetails  string
	Notes            string
	Status           string
}

func (i CreateWarrantyInput) Validate() error {
	var errs fieldErrors
	if strings.TrimSpace(i.ProductID) == "" {
		errs.add("product", "required")
	}
	if i.PurchaseDate.IsZero() {
		errs.add("purchaseDate", "required")
	}
	if i.ExpirationDate.IsZero() {
		errs.add("expirationDate", "required")
	}
	if !i.PurchaseDate.IsZero() && !i.ExpirationDate.IsZero() && i.ExpirationDate.Before(i.PurchaseDate) {
		errs.add("expirationDate", "must not be before purchaseDate")
	}
	if strings.TrimSpace(i.WarrantyProvider) == "" {
		errs.add("warrantyProvider", "required")
	}
	if strings.TrimSpace(i.WarrantyNumber) == "" {
		errs.add("warrantyNumber", "required")
	}
	if strings.TrimSpace(i.CoverageDetails) == "" {
		errs.add("coverageDetails", "required")
	}
	return errs.err()
}

// UpdateWarrantyInput is a partial update; nil fields are left alone.
type UpdateWarrantyInput struct {
	ProductID        *string
	PurchaseDate     *time.Time
	ExpirationDate   *time.Time
	WarrantyProvider *string
	WarrantyNumber   *string
	CoverageDetails  *string
	Notes            *string
	Status           *string // ignored; status is always derived
}

func (i UpdateWarrantyInput) Validate() error {
	var errs fieldErrors
	blank := func(field string, v *string) {
		if v != nil && strings.TrimSpace(*v) == "" {
			errs.add(field, "must not be empty")
		}
	}
	blank("product", i.ProductID)
	blank("warrantyProvider", i.WarrantyProvider)
	blank("warrantyNumber", i.WarrantyNumber)
	blank("coverageDetails", i.CoverageDetails)
	if i.PurchaseDate != nil && i.PurchaseDate.IsZero() {
		errs.add("purchaseDate", "invalid date")
	}
	if i.ExpirationDate != nil && i.ExpirationDate.IsZero() {
		errs.add("expirationDate", "invalid date")
	}
	return errs.err()
}

// fields names the provided fields, in a stable order, for the audit trail.
func (i UpdateWarrantyInput) fields() []string {
	var out []string
	add := func(name string, set bool) {
		if set {
			out = append(out, name)
		}
	}
	add("product", i.ProductID != nil)
	add("purchaseDate", i.PurchaseDate != nil)
	add("expirationDate", i.ExpirationDate != nil)
	add("warrantyProvider", i.WarrantyProvider != nil)
	add("warrantyNumber", i.WarrantyNumber != nil)
	add("coverageDetails", i.CoverageDetails != nil)
	add("notes", i.Notes != nil)
	return out
}
