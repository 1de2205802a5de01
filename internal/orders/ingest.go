package orders

import (
	"fmt"
	"time"

	"github.com/imrishuroy/go-painting-orderflow/internal/classifier"
	"github.com/imrishuroy/go-painting-orderflow/internal/model"
	"github.com/imrishuroy/go-painting-orderflow/internal/workflow"
)

// Ingest classifies raw feed records and merges them into the working set.
// Records that cannot be normalized are skipped and reported in the result.
func (e *Engine) Ingest(raws []model.RawOrder) IngestResult {
	var res IngestResult
	for i, raw := range raws {
		now := e.now()
		norm, err := e.classifier.Normalize(raw, now)
		if err != nil {
			res.Failures = append(res.Failures, &RecordError{Index: i, OrderID: raw.ID.String(), Err: err})
			continue
		}
		incoming := norm.Order
		if !e.registry.Has(incoming.Status) {
			res.Failures = append(res.Failures, &RecordError{
				Index:   i,
				OrderID: incoming.OrderID,
				Err:     fmt.Errorf("derived status %q is not registered", incoming.Status),
			})
			continue
		}

		s, created := e.insertIfAbsent(incoming, now)
		res.OrderIDs = append(res.OrderIDs, incoming.OrderID)
		if created {
			res.New++
			continue
		}
		s.mu.Lock()
		cancelled := e.merge(&s.order, incoming, norm.CancelledUpstream, now)
		s.mu.Unlock()
		res.Updated++
		if cancelled {
			res.Cancelled++
		}
	}
	return res
}

// IngestJSON decodes a feed payload and ingests it. Elements that fail to
// decode are reported alongside classification failures. The error is only
// set when the payload as a whole is unreadable.
func (e *Engine) IngestJSON(data []byte) (IngestResult, error) {
	raws, decodeFailures, err := classifier.DecodeOrders(data)
	if err != nil {
		return IngestResult{}, err
	}
	res := e.Ingest(raws)
	for _, f := range decodeFailures {
		res.Failures = append(res.Failures, &RecordError{Index: f.Index, Err: f.Err})
	}
	return res, nil
}

func (e *Engine) insertIfAbsent(incoming model.Order, now time.Time) (*slot, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if s, ok := e.orders[incoming.OrderID]; ok {
		return s, false
	}
	o := incoming.Clone()
	e.appendHistory(&o, SyncActor, "imported", now)
	if e.registry.IsTerminal(o.Status) {
		at := now
		o.Archived = true
		o.ArchivedAt = &at
	}
	o.Version = 1
	s := &slot{order: o}
	e.orders[o.OrderID] = s
	return s, true
}

// merge folds a re-synced record into a known order field by field. Workflow
// state, history, assignments and add-on overrides stay as they are; derived
// fields the operator does not own are refreshed. Add-on detection is only
// re-run for items nobody has been assigned to yet. It reports whether the order
// was cancelled because the feed marks it cancelled.
func (e *Engine) merge(existing *model.Order, incoming model.Order, cancelledUpstream bool, now time.Time) bool {
	existing.OrderNumber = incoming.OrderNumber
	existing.Customer = incoming.Customer
	existing.TotalAmount = incoming.TotalAmount
	existing.FulfillByDate = incoming.FulfillByDate
	existing.Priority = incoming.Priority
	existing.Tags = append([]string(nil), incoming.Tags...)
	existing.Notes = incoming.Notes
	existing.LastSyncedAt = incoming.LastSyncedAt

	for _, in := range incoming.Items {
		idx := existing.Item(in.ItemID)
		if idx < 0 {
			existing.Items = append(existing.Items, in)
			continue
		}
		it := &existing.Items[idx]
		it.ProductTitle = in.ProductTitle
		it.SKU = in.SKU
		it.VariantTitle = in.VariantTitle
		it.Price = in.Price
		it.Quantity = in.Quantity
		it.PaintingStyle = in.PaintingStyle
		switch {
		case it.AddOnOverride != nil:
			it.IsAddOn = *it.AddOnOverride
		case it.ItemStatus == model.ItemUnassigned && it.AssignedArtist == nil:
			it.IsAddOn = in.IsAddOn
		}
	}

	cancelled := false
	if cancelledUpstream && !e.registry.IsTerminal(existing.Status) &&
		e.registry.CanTransition(existing.Status, workflow.StatusCancelled) {
		// the edge was just checked, so this cannot fail
		_ = e.applyTransition(existing, workflow.StatusCancelled, SyncActor, "cancelled upstream", now)
		cancelled = true
	}
	existing.Version++
	return cancelled
}
