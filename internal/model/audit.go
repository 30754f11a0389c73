package model

import "time"

// AuditAction enumerates the privileged operations that are recorded.
type AuditAction string

const (
    AuditCreate         AuditAction = "create"
    AuditUpdate         AuditAction = "update"
    AuditDelete         AuditAction = "delete"
    AuditStatusChange   AuditAction = "status_change"
    AuditRoleChange     AuditAction = "role_change"
    AuditSettingsUpdate AuditAction = "settings_update"
    AuditSystemConfig   AuditAction = "system_config"
)

// Valid reports whether a is a known action.
func (a AuditAction) Valid() bool {
    switch a {
    case AuditCreate, AuditUpdate, AuditDelete, AuditStatusChange,
        AuditRoleChange, AuditSettingsUpdate, AuditSystemConfig:
        return true
    }
    return false
}

// ResourceType names what an audit entry's ResourceID refers to.
type ResourceType string

const (
    ResourceUser     ResourceType = "user"
    ResourceWarranty ResourceType = "warranty"
    ResourceProduct  ResourceType = "product"
    ResourceSettings ResourceType = "settings"
    ResourceSystem   ResourceType = "system"
)

// Valid reports whether r is a known resource type.
func (r ResourceType) Valid() bool {
    switch r {
    case ResourceUser, ResourceWarranty, ResourceProduct, ResourceSettings, ResourceSystem:
        return true
    }
    return false
}

// AuditLogEntry mirrors the append-only `audit_logs` table.
type AuditLogEntry struct {
    ID           string       `json:"id" db:"id"`
    AdminID      string       `json:"adminId" db:"admin_id"`
    Action       AuditAction  `json:"action" db:"action"`
    ResourceType ResourceType `json:"resourceType" db:"resource_type"`
    ResourceID   string       `json:"resourceId" db:"resource_id"`
    Details      JSONMap      `json:"details" db:"details"`
    IPAddress    string       `json:"ipAddress" db:"ip_address"`
    UserAgent    string       `json:"userAgent" db:"user_agent"`
    Timestamp    time.Time    `json:"timestamp" db:"timestamp"`

    // Resolved from users on read; nil when the admin no longer exists.
    Admin *UserSummary `json:"admin,omitempty" db:"-"`
}

// Pagination is returned alongside every paged listing.
type Pagination struct {
    Total      int `json:"total"`
    Page       int `json:"page"`
    Limit      int `json:"limit"`
    TotalPages int `json:"totalPages"`
}

// NewPagination computes TotalPages as ceil(total/limit).
func NewPagination(total, page, limit int) Pagination {
    pages := 0
    if limit > 0 {
        pages = (total + limit - 1) / limit
    }
    return Pagination{Total: total, Page: page, Limit: limit, TotalPages: pages}
}
