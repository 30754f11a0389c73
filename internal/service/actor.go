package service

import "github.com/iliyamo/warranty-manager/internal/model"

// Actor is the authenticated caller of a service operation, along with the
// request metadata the audit trail keeps.
type Actor struct {
	ID        string
	Role      string
	IP        string
	UserAgent string
}

func (a Actor) IsAdmin() bool { return a.Role == model.RoleAdmin }

// canAccess reports whether a may read or change something owned by ownerID.
func (a Actor) canAccess(ownerID string) bool {
	return a.ID == ownerID || a.IsAdmin()
}

// privileged reports whether a is an admin acting on someone else's
// resource, the only case that is audited for user-owned resources.
func (a Actor) privileged(ownerID string) bool {
	return a.IsAdmin() && a.ID != ownerID
}

// Page defaults.
const (
	DefaultAuditLimit = 20
	DefaultAdminLimit = 10
	maxLimit          = 100
)

// normalizePage applies defaults to 1-indexed page numbers and limits.
func normalizePage(page, limit, def int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = def
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit
}
