package orders

import (
	"context"
	"sort"
	"sync"

	"github.com/imrishuroy/go-painting-orderflow/internal/model"
)

// Repository persists order snapshots outside the engine. Save must reject a
// snapshot whose version is not newer than the stored one with ErrStaleSnapshot.
// List returns every readable snapshot; rows it could not decode are skipped
// and reported as *SnapshotError values joined into the error.
type Repository interface {
	Save(ctx context.Context, order model.Order) error
	Get(ctx context.Context, orderID string) (model.Order, error)
	List(ctx context.Context) ([]model.Order, error)
}

// MemoryStore is an in-process Repository for local runs and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	orders map[string]model.Order
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{orders: make(map[string]model.Order)}
}

func (m *MemoryStore) Save(_ context.Context, order model.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.orders[order.OrderID]; ok && cur.Version >= order.Version {
		return &OrderError{OrderID: order.OrderID, Err: ErrStaleSnapshot}
	}
	m.orders[order.OrderID] = order.Clone()
	return nil
}

func (m *MemoryStore) Get(_ context.Context, orderID string) (model.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[orderID]
	if !ok {
		return model.Order{}, notFound(orderID)
	}
	return o.Clone(), nil
}

func (m *MemoryStore) List(_ context.Context) ([]model.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Order, 0, len(m.orders))
	for _, o := range m.orders {
		out = append(out, o.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderID < out[j].OrderID })
	return out, nil
}

var (
	_ Repository = (*MemoryStore)(nil)
	_ Repository = (*Store)(nil)
)
