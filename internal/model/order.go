package model

import (
	"fmt"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/imrishuroy/go-painting-orderflow/internal/workflow"
)

// Priority values derived from order tags.
type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// ItemStatus is the per-line painting progress.
type ItemStatus string

const (
	ItemUnassigned ItemStatus = "unassigned"
	ItemAssigned   ItemStatus = "assigned"
	ItemInProgress ItemStatus = "in_progress"
	ItemCompleted  ItemStatus = "completed"
)

// Rank orders item statuses along the forward path.
func (s ItemStatus) Rank() int {
	switch s {
	case ItemUnassigned:
		return 0
	case ItemAssigned:
		return 1
	case ItemInProgress:
		return 2
	case ItemCompleted:
		return 3
	}
	return -1
}

// Address is a shipping address as received from the commerce platform.
type Address struct {
	Name     string `json:"name,omitempty"`
	Address1 string `json:"address1,omitempty"`
	Address2 string `json:"address2,omitempty"`
	City     string `json:"city,omitempty"`
	Province string `json:"province,omitempty"`
	Zip      string `json:"zip,omitempty"`
	Country  string `json:"country,omitempty"`
}

// Customer identifies who placed the order.
type Customer struct {
	Name            string  `json:"name"`
	Email           string  `json:"email"`
	ShippingAddress Address `json:"shipping_address"`
}

// OrderItem is one purchasable line of an order.
type OrderItem struct {
	ItemID         string          `json:"item_id"`
	ProductTitle   string          `json:"product_title"`
	SKU            string          `json:"sku"`
	VariantTitle   string          `json:"variant_title"`
	Price          decimal.Decimal `json:"price"`
	Quantity       int             `json:"quantity"`
	PaintingStyle  string          `json:"painting_style"`
	IsAddOn        bool            `json:"is_add_on"`
	AddOnOverride  *bool           `json:"add_on_override,omitempty"` // operator decision; survives re-sync
	AssignedArtist *string         `json:"assigned_artist,omitempty"`
	ItemStatus     ItemStatus      `json:"item_status"`
}

// TransitionRecord is one immutable history entry.
type TransitionRecord struct {
	ID        string          `json:"id"`
	Status    workflow.Status `json:"status"`
	Timestamp time.Time       `json:"timestamp"`
	Actor     string          `json:"actor"`
	Notes     string          `json:"notes,omitempty"`
}

// Order is one commerce transaction moving through the painting workflow.
type Order struct {
	OrderID       string             `json:"order_id"`
	OrderNumber   string             `json:"order_number"`
	Customer      Customer           `json:"customer"`
	TotalAmount   decimal.Decimal    `json:"total_amount"`
	CreatedAt     time.Time          `json:"created_at"`
	FulfillByDate time.Time          `json:"fulfill_by_date"`
	Priority      Priority           `json:"priority"`
	Status        workflow.Status    `json:"status"`
	Items         []OrderItem        `json:"items"`
	History       []TransitionRecord `json:"history"`
	Tags          []string           `json:"tags,omitempty"`
	Notes         string             `json:"notes,omitempty"`
	Archived      bool               `json:"archived,omitempty"`
	ArchivedAt    *time.Time         `json:"archived_at,omitempty"`
	LastSyncedAt  time.Time          `json:"last_synced_at"`
	Version       int64              `json:"version"` // bumped on every change; stores reject stale snapshots
}

// Item returns the index of itemID within o.Items, or -1.
func (o *Order) Item(itemID string) int {
	for i := range o.Items {
		if o.Items[i].ItemID == itemID {
			return i
		}
	}
	return -1
}

// Progress is the percentage of items whose painting is completed.
func (o Order) Progress() int {
	if len(o.Items) == 0 {
		return 0
	}
	done := 0
	for _, it := range o.Items {
		if it.ItemStatus == ItemCompleted {
			done++
		}
	}
	return done * 100 / len(o.Items)
}

// AdminURL links back to the order in the commerce platform's admin UI.
func (o Order) AdminURL(store string) string {
	return fmt.Sprintf("https://admin.shopify.com/store/%s/orders/%s", url.PathEscape(store), url.PathEscape(o.OrderID))
}

// Clone returns a deep copy so callers never share slices with the working set.
func (o Order) Clone() Order {
	out := o
	if o.Items != nil {
		out.Items = make([]OrderItem, len(o.Items))
		for i, it := range o.Items {
			out.Items[i] = it.clone()
		}
	}
	if o.History != nil {
		out.History = append([]TransitionRecord(nil), o.History...)
	}
	if o.Tags != nil {
		out.Tags = append([]string(nil), o.Tags...)
	}
	if o.ArchivedAt != nil {
		at := *o.ArchivedAt
		out.ArchivedAt = &at
	}
	return out
}

func (it OrderItem) clone() OrderItem {
	out := it
	if it.AddOnOverride != nil {
		v := *it.AddOnOverride
		out.AddOnOverride = &v
	}
	if it.AssignedArtist != nil {
		v := *it.AssignedArtist
		out.AssignedArtist = &v
	}
	return out
}
