package orders

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/imrishuroy/go-painting-orderflow/internal/model"
	"github.com/imrishuroy/go-painting-orderflow/internal/workflow"
)

// Actor used for changes that come from the commerce feed rather than a person.
const SyncActor = "sync"

// IngestResult summarizes one ingest batch.
type IngestResult struct {
	New       int            `json:"new"`
	Updated   int            `json:"updated"`
	Cancelled int            `json:"cancelled"`
	OrderIDs  []string       `json:"order_ids"`
	Failures  []*RecordError `json:"-"`
}

// Err joins the per-record failures, or returns nil when every record was ingested.
func (r IngestResult) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = f
	}
	return errors.Join(errs...)
}

// ListOptions narrows List results.
type ListOptions struct {
	IncludeArchived bool
	// Search matches customer name, order number or email, ignoring case.
	Search string
}

// Stats aggregates a set of orders for dashboards.
type Stats struct {
	Total         int                     `json:"total"`
	ByStatus      map[workflow.Status]int `json:"by_status"`
	PendingAssign int                     `json:"pending_assign"`
	InProgress    int                     `json:"in_progress"`
	Revenue       decimal.Decimal         `json:"revenue"`
}

// Summarize computes Stats. Cancelled orders do not count towards revenue.
func Summarize(orders []model.Order) Stats {
	st := Stats{ByStatus: make(map[workflow.Status]int), Revenue: decimal.Zero}
	for _, o := range orders {
		st.Total++
		st.ByStatus[o.Status]++
		switch o.Status {
		case workflow.StatusPendingAssign:
			st.PendingAssign++
		case workflow.StatusInProgress:
			st.InProgress++
		}
		if o.Status != workflow.StatusCancelled {
			st.Revenue = st.Revenue.Add(o.TotalAmount)
		}
	}
	return st
}
