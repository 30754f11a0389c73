package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "log/slog"
    "time"

    "github.com/google/uuid"
    amqp "github.com/rabbitmq/amqp091-go"

    "github.com/iliyamo/warranty-manager/internal/model"
    "github.com/iliyamo/warranty-manager/internal/observability/metrics"
)

// ReminderStore is the part of the event repository the consumer needs.
type ReminderStore interface {
    Create(ctx context.Context, e *model.Event) error
    CountForWarranty(ctx context.Context, warrantyID string, t model.EventType) (int, error)
    DeleteForWarranty(ctx context.Context, warrantyID string, t model.EventType) (int64, error)
    RescheduleForWarranty(ctx context.Context, warrantyID string, t model.EventType, at time.Time, description string, now time.Time) (int64, error)
}

// ReminderConsumer keeps one warranty-type calendar event per warranty, at
// its expiration date.
type ReminderConsumer struct {
    url   string
    store ReminderStore
    log   *slog.Logger
    now   func() time.Time
}

func NewReminderConsumer(url string, store ReminderStore, logger *slog.Logger) *ReminderConsumer {
    return &ReminderConsumer{
        url:   url,
        store: store,
        log:   logger.With("component", "reminder_consumer"),
        now:   func() time.Time { return time.Now().UTC() },
    }
}

// Run connects, consumes and reconnects with backoff until ctx is done.
func (c *ReminderConsumer) Run(ctx context.Context) error {
    backoff := time.Second
    for {
        conn, err := amqp.Dial(c.url)
        if err != nil {
            c.log.Warn("dial broker failed", "err", err, "retry_in", backoff)
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second // reset after successful connect

        err = c.consumeLoop(ctx, conn)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        c.log.Warn("consume loop ended; reconnecting", "err", err)
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func (c *ReminderConsumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        c.log.Warn("set qos failed", "err", err)
    }
    if err := declare(ch); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }

    msgs, err := ch.Consume(WarrantiesQueue, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }

    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok := <-msgs:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            err := c.Handle(ctx, d.Body)
            metrics.ObserveQueueMessage("in", err == nil)
            if err != nil {
                c.log.Error("handle message failed", "err", err)
                _ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
                continue
            }
            _ = d.Ack(false)
        }
    }
}

// Handle applies one encoded WarrantyEvent. Creating a reminder that already
// exists is a no-op and an update moves the existing reminder to the new
// expiration date, so redelivery is harmless.
func (c *ReminderConsumer) Handle(ctx context.Context, body []byte) error {
    var ev WarrantyEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if ev.WarrantyID == "" {
        return errors.New("event without warrantyId")
    }

    switch ev.Type {
    case WarrantyCreated, WarrantyUpdated:
        n, err := c.store.CountForWarranty(ctx, ev.WarrantyID, model.EventWarranty)
        if err != nil {
            return err
        }
        if n == 0 {
            return c.store.Create(ctx, c.reminderFor(ev))
        }
        if ev.Type == WarrantyCreated {
            return nil
        }
        // The expiration date may have moved; keep the reminder on it.
        _, err = c.store.RescheduleForWarranty(ctx, ev.WarrantyID, model.EventWarranty,
            ev.ExpirationDate, reminderDescription(ev), c.now())
        return err
    case WarrantyDeleted:
        n, err := c.store.DeleteForWarranty(ctx, ev.WarrantyID, model.EventWarranty)
        if err != nil {
            return err
        }
        c.log.Debug("reminders removed", "warranty_id", ev.WarrantyID, "count", n)
        return nil
    }
    return fmt.Errorf("unknown event type %q", ev.Type)
}

func (c *ReminderConsumer) reminderFor(ev WarrantyEvent) *model.Event {
    now := c.now()
    title := "Warranty expires"
    if ev.ProductName != "" {
        title = ev.ProductName + " warranty expires"
    }
    warrantyID := ev.WarrantyID
    e := &model.Event{
        ID:                uuid.NewString(),
        UserID:            ev.UserID,
        Title:             title,
        Description:       reminderDescription(ev),
        EventType:         model.EventWarranty,
        StartDate:         ev.ExpirationDate,
        EndDate:           ev.ExpirationDate,
        AllDay:            true,
        Color:             model.DefaultEventColor,
        RelatedWarrantyID: &warrantyID,
        Notifications:     model.Notifications{Enabled: true, ReminderTime: 24},
        CreatedAt:         now,
        UpdatedAt:         now,
    }
    if ev.ProductID != "" {
        productID := ev.ProductID
        e.RelatedProductID = &productID
    }
    return e
}

func reminderDescription(ev WarrantyEvent) string {
    return fmt.Sprintf("Warranty from %s ends on %s.", ev.WarrantyProvider, ev.ExpirationDate.Format("2006-01-02"))
}

// sleep waits for d or until ctx is done; it reports whether d elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}
