// Package queue carries warranty domain events over RabbitMQ. Publishing is
// best effort; the consumer turns them into calendar reminders.
package queue

import "time"

// WarrantiesQueue is the durable queue warranty events are routed to.
const WarrantiesQueue = "warranty.events"

// WarrantyEventType names what happened to a warranty.
type WarrantyEventType string

const (
    WarrantyCreated WarrantyEventType = "warranty.created"
    WarrantyUpdated WarrantyEventType = "warranty.updated"
    WarrantyDeleted WarrantyEventType = "warranty.deleted"
)

// WarrantyEvent is published after a warranty write has been committed. It
// holds enough for consumers to build a reminder without reading the
// database.
type WarrantyEvent struct {
    Type             WarrantyEventType `json:"type"`
    WarrantyID       string            `json:"warrantyId"`
    UserID           string            `json:"userId"`
    ProductID        string            `json:"productId"`
    ProductName      string            `json:"productName"`
    WarrantyProvider string            `json:"warrantyProvider"`
    ExpirationDate   time.Time         `json:"expirationDate"`
    Status           string            `json:"status"`
    OccurredAt       time.Time         `json:"occurredAt"`
}
