package workflow

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

// Status is one node of the order lifecycle graph.
type Status string

const (
	StatusWaitingForPhotos  Status = "waiting_for_photos"
	StatusPendingAssign     Status = "pending_assign"
	StatusInProgress        Status = "in_progress"
	StatusPendingEdit       Status = "pending_edit"
	StatusPendingQC         Status = "pending_qc"
	StatusFinalQC           Status = "final_qc"
	StatusRevisorReview     Status = "revisor_review"
	StatusArtistRevision    Status = "artist_revision"
	StatusStudioFulfillment Status = "studio_fulfillment"
	StatusCompleted         Status = "completed"
	StatusCancelled         Status = "cancelled"
)

//go:embed statuses.yaml
var defaultTable []byte

// Definition is the static metadata of one workflow status.
type Definition struct {
	Key         Status   `yaml:"key" json:"key"`
	Label       string   `yaml:"label" json:"label"`
	Description string   `yaml:"description" json:"description"`
	Next        []Status `yaml:"next" json:"next"`
	Actions     []string `yaml:"actions" json:"suggested_actions"`
	Terminal    bool     `yaml:"terminal" json:"terminal"`
}

type table struct {
	Statuses []Definition `yaml:"statuses"`
}

// Registry is the read-only table of statuses and the transitions between them.
type Registry struct {
	order []Status
	defs  map[Status]Definition
	edges map[Status]map[Status]struct{}
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the registry built from the embedded status table.
// It panics if the embedded table is invalid, which is a build defect.
func Default() *Registry {
	defaultOnce.Do(func() {
		reg, err := Load(defaultTable)
		if err != nil {
			panic(fmt.Sprintf("workflow: embedded status table: %v", err))
		}
		defaultRegistry = reg
	})
	return defaultRegistry
}

// Load parses and validates a YAML status table.
func Load(data []byte) (*Registry, error) {
	var t table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("decode status table: %w", err)
	}
	if len(t.Statuses) == 0 {
		return nil, fmt.Errorf("status table is empty")
	}
	reg := &Registry{
		defs:  make(map[Status]Definition, len(t.Statuses)),
		edges: make(map[Status]map[Status]struct{}, len(t.Statuses)),
	}
	for _, def := range t.Statuses {
		if def.Key == "" {
			return nil, fmt.Errorf("status without key")
		}
		if _, dup := reg.defs[def.Key]; dup {
			return nil, fmt.Errorf("duplicate status %q", def.Key)
		}
		reg.order = append(reg.order, def.Key)
		reg.defs[def.Key] = def
	}
	hasTerminal := false
	for _, key := range reg.order {
		def := reg.defs[key]
		if def.Terminal {
			hasTerminal = true
			if len(def.Next) > 0 {
				return nil, fmt.Errorf("terminal status %q declares next states", key)
			}
		}
		next := make(map[Status]struct{}, len(def.Next))
		for _, to := range def.Next {
			if _, ok := reg.defs[to]; !ok {
				return nil, fmt.Errorf("status %q: unknown next state %q", key, to)
			}
			next[to] = struct{}{}
		}
		reg.edges[key] = next
	}
	if !hasTerminal {
		return nil, fmt.Errorf("status table declares no terminal status")
	}
	return reg, nil
}

// Has reports whether s is a registered status.
func (r *Registry) Has(s Status) bool {
	_, ok := r.defs[s]
	return ok
}

// Definition returns a copy of the metadata for s.
func (r *Registry) Definition(s Status) (Definition, bool) {
	def, ok := r.defs[s]
	if !ok {
		return Definition{}, false
	}
	return def.clone(), true
}

// Statuses lists every status in table order.
func (r *Registry) Statuses() []Status {
	out := make([]Status, len(r.order))
	copy(out, r.order)
	return out
}

// Definitions lists every definition in table order.
func (r *Registry) Definitions() []Definition {
	out := make([]Definition, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.defs[key].clone())
	}
	return out
}

// NextStates returns the permitted follow-up states of from, in table order.
func (r *Registry) NextStates(from Status) []Status {
	def, ok := r.defs[from]
	if !ok {
		return nil
	}
	out := make([]Status, len(def.Next))
	copy(out, def.Next)
	return out
}

// IsTerminal reports whether s ends the lifecycle.
func (r *Registry) IsTerminal(s Status) bool {
	return r.defs[s].Terminal
}

// CanTransition reports whether from -> to is an edge of the graph.
func (r *Registry) CanTransition(from, to Status) bool {
	_, ok := r.edges[from][to]
	return ok
}

// Check validates from -> to and returns a *TransitionError when the edge does
// not exist. orderID is carried into the error for the caller.
func (r *Registry) Check(orderID string, from, to Status) error {
	if r.CanTransition(from, to) {
		return nil
	}
	return &TransitionError{OrderID: orderID, From: from, To: to}
}

func (d Definition) clone() Definition {
	out := d
	if len(d.Next) > 0 {
		out.Next = append([]Status(nil), d.Next...)
	}
	if len(d.Actions) > 0 {
		out.Actions = append([]string(nil), d.Actions...)
	}
	return out
}
