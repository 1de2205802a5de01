// Package orders holds the working set of orders and every operation that
// mutates it. Each order is guarded by its own mutex, so operations on one
// order are linearized while different orders proceed in parallel. The engine
// performs no I/O; callers persist and publish after a successful call.
package orders

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/imrishuroy/go-painting-orderflow/internal/classifier"
	"github.com/imrishuroy/go-painting-orderflow/internal/model"
	"github.com/imrishuroy/go-painting-orderflow/internal/workflow"
)

// Engine is the single owner of the order working set.
type Engine struct {
	registry   *workflow.Registry
	classifier *classifier.Classifier
	nowFunc    func() time.Time
	newID      func() string

	mu     sync.RWMutex
	orders map[string]*slot
}

type slot struct {
	mu    sync.Mutex
	order model.Order
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.nowFunc = now }
}

// WithRegistry overrides the status registry.
func WithRegistry(r *workflow.Registry) Option {
	return func(e *Engine) { e.registry = r }
}

// WithClassifier overrides the feed classifier.
func WithClassifier(c *classifier.Classifier) Option {
	return func(e *Engine) { e.classifier = c }
}

// WithIDGenerator overrides how history record ids are generated.
func WithIDGenerator(gen func() string) Option {
	return func(e *Engine) { e.newID = gen }
}

// NewEngine returns an empty engine using the default status registry.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		registry:   workflow.Default(),
		classifier: classifier.New(),
		nowFunc:    time.Now,
		newID:      uuid.NewString,
		orders:     make(map[string]*slot),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry exposes the status registry the engine validates against.
func (e *Engine) Registry() *workflow.Registry { return e.registry }

func (e *Engine) now() time.Time { return e.nowFunc().UTC() }

func (e *Engine) lookup(orderID string) (*slot, error) {
	e.mu.RLock()
	s, ok := e.orders[orderID]
	e.mu.RUnlock()
	if !ok {
		return nil, notFound(orderID)
	}
	return s, nil
}

// mutate applies fn to a working copy under the order lock. The copy replaces
// the stored order only when fn succeeds and reports a change, so a failed
// operation never leaves a partial update behind.
func (e *Engine) mutate(orderID string, fn func(o *model.Order, now time.Time) (bool, error)) (model.Order, error) {
	s, err := e.lookup(orderID)
	if err != nil {
		return model.Order{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.order.Clone()
	changed, err := fn(&work, e.now())
	if err != nil {
		return model.Order{}, err
	}
	if !changed {
		return s.order.Clone(), nil
	}
	work.Version++
	s.order = work
	return work.Clone(), nil
}

// Get returns a copy of one order.
func (e *Engine) Get(orderID string) (model.Order, error) {
	s, err := e.lookup(orderID)
	if err != nil {
		return model.Order{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Clone(), nil
}

// List returns copies of the orders matching opts, oldest first.
func (e *Engine) List(opts ListOptions) []model.Order {
	e.mu.RLock()
	slots := make([]*slot, 0, len(e.orders))
	for _, s := range e.orders {
		slots = append(slots, s)
	}
	e.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(opts.Search))
	out := make([]model.Order, 0, len(slots))
	for _, s := range slots {
		s.mu.Lock()
		o := s.order.Clone()
		s.mu.Unlock()
		if o.Archived && !opts.IncludeArchived {
			continue
		}
		if search != "" && !matches(o, search) {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].OrderID < out[j].OrderID
	})
	return out
}

func matches(o model.Order, needle string) bool {
	for _, field := range []string{o.Customer.Name, o.Customer.Email, o.OrderNumber, o.OrderID} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

// Transition moves an order to target if the registry permits the edge from
// its current status, appending one history record.
func (e *Engine) Transition(orderID string, target workflow.Status, actor, notes string) (model.Order, error) {
	if err := requireActor(orderID, actor); err != nil {
		return model.Order{}, err
	}
	return e.mutate(orderID, func(o *model.Order, now time.Time) (bool, error) {
		return true, e.applyTransition(o, target, actor, notes, now)
	})
}

func (e *Engine) applyTransition(o *model.Order, target workflow.Status, actor, notes string, now time.Time) error {
	if err := e.registry.Check(o.OrderID, o.Status, target); err != nil {
		return err
	}
	o.Status = target
	e.appendHistory(o, actor, notes, now)
	if e.registry.IsTerminal(target) {
		at := now
		o.Archived = true
		o.ArchivedAt = &at
	}
	if target == workflow.StatusArtistRevision {
		for i := range o.Items {
			it := &o.Items[i]
			if !it.IsAddOn && it.ItemStatus == model.ItemCompleted {
				it.ItemStatus = model.ItemInProgress
			}
		}
	}
	return nil
}

// appendHistory records the order's current status. Entries that repeat the
// previous status are annotations and carry no transition.
func (e *Engine) appendHistory(o *model.Order, actor, notes string, now time.Time) {
	o.History = append(o.History, model.TransitionRecord{
		ID:        e.newID(),
		Status:    o.Status,
		Timestamp: now,
		Actor:     actor,
		Notes:     notes,
	})
}

// AssignArtist assigns one item. Reassignment overwrites the previous artist.
// An order waiting for assignment moves to in_progress in the same step.
func (e *Engine) AssignArtist(orderID, itemID, artistID, actor string) (model.Order, error) {
	if err := requireActor(orderID, actor); err != nil {
		return model.Order{}, err
	}
	artistID = strings.TrimSpace(artistID)
	if artistID == "" {
		return model.Order{}, &ItemError{OrderID: orderID, ItemID: itemID, Err: ErrArtistRequired}
	}
	return e.mutate(orderID, func(o *model.Order, now time.Time) (bool, error) {
		if e.registry.IsTerminal(o.Status) {
			return false, &OrderError{OrderID: orderID, Err: ErrOrderClosed}
		}
		idx := o.Item(itemID)
		if idx < 0 {
			return false, &ItemError{OrderID: orderID, ItemID: itemID, Err: ErrItemNotFound}
		}
		assign(&o.Items[idx], artistID)
		return true, e.afterAssignment(o, actor, fmt.Sprintf("assigned item %s to %s", itemID, artistID), now)
	})
}

// AssignAllPaintable assigns every unassigned non-add-on item to artistID and
// records a single history entry. It is a no-op when nothing is eligible.
func (e *Engine) AssignAllPaintable(orderID, artistID, actor string) (model.Order, error) {
	if err := requireActor(orderID, actor); err != nil {
		return model.Order{}, err
	}
	artistID = strings.TrimSpace(artistID)
	if artistID == "" {
		return model.Order{}, &OrderError{OrderID: orderID, Err: ErrArtistRequired}
	}
	return e.mutate(orderID, func(o *model.Order, now time.Time) (bool, error) {
		if e.registry.IsTerminal(o.Status) {
			return false, &OrderError{OrderID: orderID, Err: ErrOrderClosed}
		}
		n := 0
		for i := range o.Items {
			it := &o.Items[i]
			if it.IsAddOn || it.ItemStatus != model.ItemUnassigned {
				continue
			}
			assign(it, artistID)
			n++
		}
		if n == 0 {
			return false, nil
		}
		return true, e.afterAssignment(o, actor, fmt.Sprintf("assigned %d paintable items to %s", n, artistID), now)
	})
}

func assign(it *model.OrderItem, artistID string) {
	artist := artistID
	it.AssignedArtist = &artist
	if it.ItemStatus == model.ItemUnassigned {
		it.ItemStatus = model.ItemAssigned
	}
}

func (e *Engine) afterAssignment(o *model.Order, actor, notes string, now time.Time) error {
	if o.Status == workflow.StatusPendingAssign {
		return e.applyTransition(o, workflow.StatusInProgress, actor, notes, now)
	}
	e.appendHistory(o, actor, notes, now)
	return nil
}

// ToggleAddOn flips an item's add-on flag and records it as an operator override.
func (e *Engine) ToggleAddOn(orderID, itemID, actor string) (model.Order, error) {
	if err := requireActor(orderID, actor); err != nil {
		return model.Order{}, err
	}
	return e.mutate(orderID, func(o *model.Order, now time.Time) (bool, error) {
		idx := o.Item(itemID)
		if idx < 0 {
			return false, &ItemError{OrderID: orderID, ItemID: itemID, Err: ErrItemNotFound}
		}
		value := !o.Items[idx].IsAddOn
		setAddOn(&o.Items[idx], value)
		e.appendHistory(o, actor, addOnNote(itemID, value), now)
		return true, nil
	})
}

// SetAddOn stores an explicit add-on override for an item. Setting the value
// already overridden is a no-op.
func (e *Engine) SetAddOn(orderID, itemID string, value bool, actor string) (model.Order, error) {
	if err := requireActor(orderID, actor); err != nil {
		return model.Order{}, err
	}
	return e.mutate(orderID, func(o *model.Order, now time.Time) (bool, error) {
		idx := o.Item(itemID)
		if idx < 0 {
			return false, &ItemError{OrderID: orderID, ItemID: itemID, Err: ErrItemNotFound}
		}
		it := &o.Items[idx]
		if it.AddOnOverride != nil && *it.AddOnOverride == value {
			return false, nil
		}
		setAddOn(it, value)
		e.appendHistory(o, actor, addOnNote(itemID, value), now)
		return true, nil
	})
}

func addOnNote(itemID string, value bool) string {
	if value {
		return fmt.Sprintf("marked item %s as add-on", itemID)
	}
	return fmt.Sprintf("marked item %s as paintable", itemID)
}

func setAddOn(it *model.OrderItem, value bool) {
	v := value
	it.AddOnOverride = &v
	it.IsAddOn = value
}

// UpdateItemStatus moves an assigned item forward to in_progress or completed.
func (e *Engine) UpdateItemStatus(orderID, itemID string, status model.ItemStatus, actor string) (model.Order, error) {
	if err := requireActor(orderID, actor); err != nil {
		return model.Order{}, err
	}
	return e.mutate(orderID, func(o *model.Order, now time.Time) (bool, error) {
		if e.registry.IsTerminal(o.Status) {
			return false, &OrderError{OrderID: orderID, Err: ErrOrderClosed}
		}
		idx := o.Item(itemID)
		if idx < 0 {
			return false, &ItemError{OrderID: orderID, ItemID: itemID, Err: ErrItemNotFound}
		}
		it := &o.Items[idx]
		if it.AssignedArtist == nil || status.Rank() <= it.ItemStatus.Rank() || status.Rank() < model.ItemInProgress.Rank() {
			return false, &ItemError{OrderID: orderID, ItemID: itemID, From: it.ItemStatus, To: status, Err: ErrInvalidItemStatus}
		}
		it.ItemStatus = status
		e.appendHistory(o, actor, fmt.Sprintf("item %s %s", itemID, status), now)
		return true, nil
	})
}

// Replace swaps the held copy of an order for snap whatever their versions.
// It is used after a save lost to a snapshot written by another process, so
// the next operation applies on top of what is stored.
func (e *Engine) Replace(snap model.Order) error {
	if snap.OrderID == "" {
		return fmt.Errorf("replace: snapshot without order id")
	}
	if !e.registry.Has(snap.Status) {
		return &OrderError{OrderID: snap.OrderID, Err: fmt.Errorf("unknown status %q", snap.Status)}
	}
	e.mu.Lock()
	s, ok := e.orders[snap.OrderID]
	if !ok {
		e.orders[snap.OrderID] = &slot{order: snap.Clone()}
		e.mu.Unlock()
		return nil
	}
	e.mu.Unlock()
	s.mu.Lock()
	s.order = snap.Clone()
	s.mu.Unlock()
	return nil
}

// Restore seeds the working set from persisted snapshots without
// re-classifying. A snapshot replaces the held copy only when its version is
// newer. Snapshots with an unregistered status are skipped and reported.
func (e *Engine) Restore(snapshots []model.Order) error {
	var failures []*RecordError
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, snap := range snapshots {
		if snap.OrderID == "" {
			failures = append(failures, &RecordError{Index: i, Err: fmt.Errorf("snapshot without order id")})
			continue
		}
		if !e.registry.Has(snap.Status) {
			failures = append(failures, &RecordError{Index: i, OrderID: snap.OrderID, Err: fmt.Errorf("unknown status %q", snap.Status)})
			continue
		}
		if s, ok := e.orders[snap.OrderID]; ok {
			s.mu.Lock()
			if snap.Version > s.order.Version {
				s.order = snap.Clone()
			}
			s.mu.Unlock()
			continue
		}
		e.orders[snap.OrderID] = &slot{order: snap.Clone()}
	}
	return IngestResult{Failures: failures}.Err()
}

func requireActor(orderID, actor string) error {
	if strings.TrimSpace(actor) == "" {
		return &OrderError{OrderID: orderID, Err: ErrActorRequired}
	}
	return nil
}
