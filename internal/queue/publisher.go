package queue

import (
    "context"
    "encoding/json"
    "log/slog"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"

    "github.com/iliyamo/warranty-manager/internal/observability/metrics"
)

// dialTimeout bounds how long a request can wait on an unreachable broker.
const dialTimeout = 2 * time.Second

// Publisher sends WarrantyEvents to WarrantiesQueue. It dials per publish;
// write volume is low and this keeps no connection state to repair.
type Publisher struct {
    url string
    log *slog.Logger
}

func NewPublisher(url string, logger *slog.Logger) *Publisher {
    return &Publisher{url: url, log: logger.With("component", "queue_publisher")}
}

// PublishWarranty publishes ev as a persistent JSON message. Errors are
// logged and returned so the caller can choose to ignore them.
func (p *Publisher) PublishWarranty(ctx context.Context, ev WarrantyEvent) error {
    err := p.publish(ctx, ev)
    metrics.ObserveQueueMessage("out", err == nil)
    if err != nil {
        p.log.WarnContext(ctx, "publish warranty event failed",
            "type", ev.Type, "warranty_id", ev.WarrantyID, "err", err)
    }
    return err
}

func (p *Publisher) publish(ctx context.Context, ev WarrantyEvent) error {
    conn, err := amqp.DialConfig(p.url, amqp.Config{
        Heartbeat: 10 * time.Second,
        Locale:    "en_US",
        Dial:      amqp.DefaultDial(dialTimeout),
    })
    if err != nil {
        return err
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        return err
    }
    defer func() { _ = ch.Close() }()

    if err := declare(ch); err != nil {
        return err
    }

    body, err := json.Marshal(ev)
    if err != nil {
        return err
    }

    return ch.PublishWithContext(ctx,
        "",              // default exchange
        WarrantiesQueue, // routing key = queue name
        false,           // mandatory
        false,           // immediate
        amqp.Publishing{
            ContentType:  "application/json",
            DeliveryMode: amqp.Persistent,
            Timestamp:    time.Now().UTC(),
            Type:         string(ev.Type),
            Body:         body,
        })
}

// declare is idempotent; durable so messages survive broker restarts.
func declare(ch *amqp.Channel) error {
    _, err := ch.QueueDeclare(WarrantiesQueue, true, false, false, false, nil)
    return err
}

// NopPublisher drops every event. Used when RabbitMQ is disabled.
type NopPublisher struct{}

func (NopPublisher) PublishWarranty(context.Context, WarrantyEvent) error { return nil }
