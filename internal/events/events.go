// Package events describes workflow changes published after a successful
// engine operation, and the publishers that carry them.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/imrishuroy/go-painting-orderflow/internal/model"
	"github.com/imrishuroy/go-painting-orderflow/internal/workflow"
)

// Kind names what happened to the order.
type Kind string

const (
	KindIngested     Kind = "ingested"
	KindTransitioned Kind = "transitioned"
	KindAssigned     Kind = "assigned"
	KindItemUpdated  Kind = "item_updated"
	KindAddOnChanged Kind = "addon_changed"
)

// Event is the message body published for one order change.
type Event struct {
	ID         string          `json:"id"`
	Kind       Kind            `json:"kind"`
	OrderID    string          `json:"order_id"`
	Status     workflow.Status `json:"status"`
	Version    int64           `json:"version"`
	Actor      string          `json:"actor"`
	Notes      string          `json:"notes,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// New builds an event from the order as returned by the engine.
func New(kind Kind, order model.Order, actor, notes string, now time.Time) Event {
	return Event{
		ID:         uuid.NewString(),
		Kind:       kind,
		OrderID:    order.OrderID,
		Status:     order.Status,
		Version:    order.Version,
		Actor:      actor,
		Notes:      notes,
		OccurredAt: now.UTC(),
	}
}

// RoutingKey is "orders.<kind>.<status>", suited to a topic exchange.
func (e Event) RoutingKey() string {
	return "orders." + string(e.Kind) + "." + string(e.Status)
}

// Publisher delivers events to a downstream transport.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Discard drops every event.
type Discard struct{}

func (Discard) Publish(context.Context, Event) error { return nil }
