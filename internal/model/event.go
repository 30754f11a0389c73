package model

import "time"

// EventType classifies calendar entries.
type EventType string

const (
    EventWarranty    EventType = "warranty"
    EventMaintenance EventType = "maintenance"
    EventReminder    EventType = "reminder"
    EventOther       EventType = "other"
)

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
    switch t {
    case EventWarranty, EventMaintenance, EventReminder, EventOther:
        return true
    }
    return false
}

// DefaultEventColor is used when an event is created without a color.
const DefaultEventColor = "#3498db"

// Notifications controls the reminder sent ahead of an event.
type Notifications struct {
    Enabled      bool `json:"enabled"`
    ReminderTime int  `json:"reminderTime"` // hours before start
}

// Event mirrors the `events` table.
type Event struct {
    ID                string        `json:"id" db:"id"`
    UserID            string        `json:"userId" db:"user_id"`
    Title             string        `json:"title" db:"title"`
    Description       string        `json:"description" db:"description"`
    EventType         EventType     `json:"eventType" db:"event_type"`
    StartDate         time.Time     `json:"startDate" db:"start_date"`
    EndDate           time.Time     `json:"endDate" db:"end_date"`
    AllDay            bool          `json:"allDay" db:"all_day"`
    Location          string        `json:"location" db:"location"`
    Color             string        `json:"color" db:"color"`
    RelatedProductID  *string       `json:"relatedProduct,omitempty" db:"related_product_id"`
    RelatedWarrantyID *string       `json:"relatedWarranty,omitempty" db:"related_warranty_id"`
    Notifications     Notifications `json:"notifications" db:"-"`
    CreatedAt         time.Time     `json:"createdAt" db:"created_at"`
    UpdatedAt         time.Time     `json:"updatedAt" db:"updated_at"`
}
