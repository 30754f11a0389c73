package model

import "time"

// AuditFilter narrows an audit log query. Zero fields are ignored; set
// fields are combined with AND.
type AuditFilter struct {
    AdminID      string
    ResourceType ResourceType
    Action       AuditAction
    StartDate    *time.Time // timestamp >= StartDate
    EndDate      *time.Time // timestamp <= EndDate
}

// EventFilter narrows a user's calendar listing. The date range applies
// only when both bounds are set.
type EventFilter struct {
    From      *time.Time
    To        *time.Time
    EventType EventType
}

// Product sort orders accepted by the catalog listing.
const (
    SortNameAsc  = "nameAsc"
    SortNameDesc = "nameDesc"
    SortNewest   = "newest"
)

// ProductFilter narrows the public catalog listing.
type ProductFilter struct {
    Category ProductCategory
    Sort     string
}
