package orders

import (
	"errors"
	"fmt"

	"github.com/imrishuroy/go-painting-orderflow/internal/model"
	"github.com/imrishuroy/go-painting-orderflow/internal/workflow"
)

var (
	ErrOrderNotFound        = errors.New("order not found")
	ErrItemNotFound         = errors.New("item not found")
	ErrInvalidItemStatus    = errors.New("invalid item status change")
	ErrOrderClosed          = errors.New("order is closed")
	ErrActorRequired        = errors.New("actor is required")
	ErrArtistRequired       = errors.New("artist is required")
	ErrIngestPartialFailure = errors.New("ingest partial failure")
	// ErrStaleSnapshot is returned by stores when a newer version is already persisted.
	ErrStaleSnapshot = errors.New("stale order snapshot")
	// ErrConcurrentUpdate means a change kept losing to snapshots saved elsewhere.
	ErrConcurrentUpdate = errors.New("order updated concurrently")
	// ErrUnreadableSnapshot marks stored snapshots that could not be decoded.
	ErrUnreadableSnapshot = errors.New("unreadable order snapshot")
)

// ErrInvalidTransition is re-exported so callers only need this package.
var ErrInvalidTransition = workflow.ErrInvalidTransition

// OrderError carries the order id alongside the failure kind.
type OrderError struct {
	OrderID string
	Err     error
}

func (e *OrderError) Error() string { return fmt.Sprintf("order %s: %v", e.OrderID, e.Err) }
func (e *OrderError) Unwrap() error { return e.Err }

// ItemError identifies the order and item an item-level operation failed on.
// From and To are set for rejected item status changes.
type ItemError struct {
	OrderID string
	ItemID  string
	From    model.ItemStatus
	To      model.ItemStatus
	Err     error
}

func (e *ItemError) Error() string {
	if e.To != "" {
		return fmt.Sprintf("order %s item %s: %v %s -> %s", e.OrderID, e.ItemID, e.Err, e.From, e.To)
	}
	return fmt.Sprintf("order %s item %s: %v", e.OrderID, e.ItemID, e.Err)
}

func (e *ItemError) Unwrap() error { return e.Err }

// RecordError reports one feed record that was skipped during ingest. It
// matches both ErrIngestPartialFailure and the underlying cause.
type RecordError struct {
	Index   int
	OrderID string
	Err     error
}

func (e *RecordError) Error() string {
	if e.OrderID != "" {
		return fmt.Sprintf("record %d (order %s): %v", e.Index, e.OrderID, e.Err)
	}
	return fmt.Sprintf("record %d: %v", e.Index, e.Err)
}

func (e *RecordError) Unwrap() []error { return []error{ErrIngestPartialFailure, e.Err} }

// SnapshotError reports one stored snapshot that List skipped.
type SnapshotError struct {
	OrderID string
	Err     error
}

func (e *SnapshotError) Error() string {
	return fmt.Sprintf("snapshot %s: %v", e.OrderID, e.Err)
}

func (e *SnapshotError) Unwrap() []error { return []error{ErrUnreadableSnapshot, e.Err} }

func notFound(orderID string) error {
	return &OrderError{OrderID: orderID, Err: ErrOrderNotFound}
}
