package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"github.com/imrishuroy/go-painting-orderflow/internal/classifier"
	orderevents "github.com/imrishuroy/go-painting-orderflow/internal/events"
	"github.com/imrishuroy/go-painting-orderflow/internal/idempotency"
	"github.com/imrishuroy/go-painting-orderflow/internal/metrics"
	"github.com/imrishuroy/go-painting-orderflow/internal/model"
	"github.com/imrishuroy/go-painting-orderflow/internal/orders"
)

// snapshotStore is the part of orders.Store the worker needs.
type snapshotStore interface {
	Get(ctx context.Context, orderID string) (model.Order, error)
	SaveWithDelivery(ctx context.Context, idempotencyTable string, deliveryItem interface{}, order model.Order, ttlWindow time.Duration) error
}

// Processor merges forwarded commerce orders into the stored snapshots.
type Processor struct {
	store          snapshotStore
	idempotencyTbl string
	ttlWindow      time.Duration
	publisher      orderevents.Publisher
	metrics        metrics.Recorder
	log            *slog.Logger
	newEngine      func() *orders.Engine
	nowFunc        func() time.Time
}

// NewProcessor creates a new worker processor with its collaborators injected.
func NewProcessor(store snapshotStore, idempTable string, ttl time.Duration, pub orderevents.Publisher, rec metrics.Recorder, log *slog.Logger) *Processor {
	return &Processor{
		store:          store,
		idempotencyTbl: idempTable,
		ttlWindow:      ttl,
		publisher:      pub,
		metrics:        rec,
		log:            log,
		newEngine:      func() *orders.Engine { return orders.NewEngine() },
		nowFunc:        time.Now,
	}
}

// Handle receives an SQS batch event and processes each message.
func (p *Processor) Handle(ctx context.Context, ev events.SQSEvent) error {
	for _, rec := range ev.Records {
		if err := p.processMessage(ctx, rec); err != nil {
			// Return error: Lambda will retry. If failed too many times, message goes to DLQ.
			p.log.Error("worker error", "action", "sync", "message_id", rec.MessageId, "error", err)
			return err
		}
	}
	return nil
}

func (p *Processor) processMessage(ctx context.Context, rec events.SQSMessage) error {
	var msg SyncMessage
	if err := json.Unmarshal([]byte(rec.Body), &msg); err != nil {
		return fmt.Errorf("invalid message body: %w", err)
	}
	if msg.DeliveryID == "" {
		msg.DeliveryID = rec.MessageId
	}

	raws, decodeFailures, err := classifier.DecodeOrders(msg.Payload)
	if err != nil {
		// a payload that never decodes will not decode on retry either
		p.log.Error("dropping undecodable payload", "action", "sync", "delivery_id", msg.DeliveryID, "error", err)
		p.count(ctx, metrics.IngestFailures, 1)
		return nil
	}
	for _, f := range decodeFailures {
		p.log.Warn("record skipped", "action", "sync", "delivery_id", msg.DeliveryID, "index", f.Index, "error", f.Err)
	}

	// Step 1: seed a fresh engine with the stored snapshots of the orders in this message
	engine := p.newEngine()
	var snapshots []model.Order
	for _, raw := range raws {
		id := raw.ID.String()
		if id == "" {
			continue
		}
		o, err := p.store.Get(ctx, id)
		if errors.Is(err, orders.ErrOrderNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to fetch order %s: %w", id, err)
		}
		snapshots = append(snapshots, o)
	}
	if err := engine.Restore(snapshots); err != nil {
		p.log.Warn("snapshots skipped", "action", "restore", "delivery_id", msg.DeliveryID, "error", err)
	}

	// Step 2: merge
	res := engine.Ingest(raws)
	for _, f := range res.Failures {
		p.log.Warn("record skipped", "action", "sync", "delivery_id", msg.DeliveryID, "order_id", f.OrderID, "error", f.Err)
	}
	if n := len(res.Failures) + len(decodeFailures); n > 0 {
		p.count(ctx, metrics.IngestFailures, float64(n))
	}

	// Step 3: persist each order together with its delivery key
	saved := 0
	for _, id := range res.OrderIDs {
		o, err := engine.Get(id)
		if err != nil {
			return err
		}
		err = p.store.SaveWithDelivery(ctx, p.idempotencyTbl, p.deliveryRecord(msg, id), o, p.ttlWindow)
		switch {
		case errors.Is(err, orders.ErrDuplicateDelivery):
			p.log.Info("delivery already applied", "action", "sync", "delivery_id", msg.DeliveryID, "order_id", id)
			p.count(ctx, metrics.WebhookDuplicates, 1)
			continue
		case err != nil:
			// a stale snapshot means another writer got there first; retry re-reads it
			return fmt.Errorf("failed to save order %s: %w", id, err)
		}
		saved++
		if err := p.publisher.Publish(ctx, orderevents.New(orderevents.KindIngested, o, orders.SyncActor, msg.Topic, p.nowFunc())); err != nil {
			p.log.Error("publish event failed", "action", "publish", "order_id", id, "error", err)
		}
	}
	p.count(ctx, metrics.OrdersIngested, float64(saved))

	p.log.Info("sync applied", "action", "sync", "delivery_id", msg.DeliveryID, "correlation_id", msg.CorrelationID,
		"new", res.New, "updated", res.Updated, "cancelled", res.Cancelled, "saved", saved)
	return nil
}

// deliveryRecord keys the delivery per order, so a retried message skips the
// orders it already wrote.
func (p *Processor) deliveryRecord(msg SyncMessage, orderID string) idempotency.DeliveryRecord {
	now := p.nowFunc().UTC()
	return idempotency.DeliveryRecord{
		IdempotencyKey: msg.DeliveryID + "#" + orderID,
		Topic:          msg.Topic,
		Status:         idempotency.StatusDone,
		OrderIDs:       []string{orderID},
		CreatedAt:      now,
		UpdatedAt:      now,
		ExpiresAt:      now.Add(p.ttlWindow).Unix(),
	}
}

func (p *Processor) count(ctx context.Context, name string, n float64) {
	if err := p.metrics.Count(ctx, name, n); err != nil {
		p.log.Warn("record metric failed", "metric", name, "error", err)
	}
}
