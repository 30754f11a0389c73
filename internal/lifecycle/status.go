// Package lifecycle derives the status of a warranty from its expiration
// date. Every path that writes a warranty calls Apply right before the
// write so that a status supplied by a client never survives a save.
package lifecycle

import (
	"time"

	"github.com/iliyamo/warranty-manager/internal/model"
)

// ExpiringWindow is how far ahead of expiration a warranty counts as
// expiring. List and stats queries use the same window.
const ExpiringWindow = 30 * 24 * time.Hour

// DeriveStatus returns expired when exp is before now, expiring when exp
// falls in [now, now+ExpiringWindow], and active otherwise. exp == now is
// expiring.
func DeriveStatus(exp, now time.Time) model.WarrantyStatus {
	if exp.Before(now) {
		return model.WarrantyExpired
	}
	if !exp.After(now.Add(ExpiringWindow)) {
		return model.WarrantyExpiring
	}
	return model.WarrantyActive
}

// Apply overwrites w.Status and bumps w.UpdatedAt. No other field is
// touched.
func Apply(w *model.Warranty, now time.Time) {
	w.Status = DeriveStatus(w.ExpirationDate, now)
	w.UpdatedAt = now
}

// Window returns the [from, to] bounds of the expiring window at now.
func Window(now time.Time) (from, to time.Time) {
	return now, now.Add(ExpiringWindow)
}
