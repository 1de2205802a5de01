// Package metrics counts workflow activity.
package metrics

import (
	"context"
	"sync"
)

// Metric names.
const (
	OrdersIngested    = "OrdersIngested"
	IngestFailures    = "IngestFailures"
	Transitions       = "Transitions"
	RejectedRequests  = "RejectedRequests"
	ItemsAssigned     = "ItemsAssigned"
	WebhookDuplicates = "WebhookDuplicates"
)

// Dimension narrows a metric, e.g. status=in_progress.
type Dimension struct {
	Name  string
	Value string
}

// Recorder accepts counter increments.
type Recorder interface {
	Count(ctx context.Context, name string, n float64, dims ...Dimension) error
}

// Nop records nothing.
type Nop struct{}

func (Nop) Count(context.Context, string, float64, ...Dimension) error { return nil }

// Memory keeps totals in process; used by tests and local runs.
type Memory struct {
	mu     sync.Mutex
	totals map[string]float64
}

func NewMemory() *Memory { return &Memory{totals: make(map[string]float64)} }

func (m *Memory) Count(_ context.Context, name string, n float64, _ ...Dimension) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totals[name] += n
	return nil
}

// Total returns the running total for name.
func (m *Memory) Total(name string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.totals[name]
}
