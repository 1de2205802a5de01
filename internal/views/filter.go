// Package views projects the order working set down to what one role works on.
package views

import (
	"fmt"
	"strings"

	"github.com/imrishuroy/go-painting-orderflow/internal/model"
	"github.com/imrishuroy/go-painting-orderflow/internal/workflow"
)

// Role is an actor role.
type Role string

const (
	RoleMaster  Role = "master"
	RoleAdmin   Role = "admin"
	RoleArtist  Role = "artist"
	RoleEditor  Role = "editor"
	RoleRevisor Role = "revisor"
)

// Policy decides what a role outside the known vocabulary may see.
type Policy string

const (
	// PolicyAllow shows unknown roles every order.
	PolicyAllow Policy = "allow"
	// PolicyDeny shows unknown roles nothing.
	PolicyDeny Policy = "deny"
)

// ParsePolicy reads a policy name; an empty string means PolicyAllow.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyAllow:
		return PolicyAllow, nil
	case PolicyDeny:
		return PolicyDeny, nil
	}
	return "", fmt.Errorf("unknown role policy %q", s)
}

// Actor is the caller a view is built for.
type Actor struct {
	ID   string
	Role Role
}

// scopes lists the statuses each restricted role works on. Master and admin
// are resolved from the registry in Statuses.
var scopes = map[Role][]workflow.Status{
	RoleArtist:  {workflow.StatusInProgress, workflow.StatusArtistRevision},
	RoleEditor:  {workflow.StatusPendingEdit},
	RoleRevisor: {workflow.StatusPendingQC, workflow.StatusFinalQC, workflow.StatusRevisorReview},
}

// Filter is a pure role projection over orders.
type Filter struct {
	registry *workflow.Registry
	policy   Policy
}

// NewFilter builds a Filter over reg with the given unknown-role policy.
func NewFilter(reg *workflow.Registry, policy Policy) *Filter {
	if policy == "" {
		policy = PolicyAllow
	}
	return &Filter{registry: reg, policy: policy}
}

// Known reports whether role is part of the fixed vocabulary.
func Known(role Role) bool {
	switch role {
	case RoleMaster, RoleAdmin, RoleArtist, RoleEditor, RoleRevisor:
		return true
	}
	return false
}

// Statuses returns the statuses role may see, in registry order.
func (f *Filter) Statuses(role Role) []workflow.Status {
	all := f.registry.Statuses()
	switch {
	case role == RoleMaster:
		return all
	case role == RoleAdmin:
		out := make([]workflow.Status, 0, len(all))
		for _, s := range all {
			if !f.registry.IsTerminal(s) {
				out = append(out, s)
			}
		}
		return out
	case !Known(role):
		if f.policy == PolicyDeny {
			return nil
		}
		return all
	}
	return append([]workflow.Status(nil), scopes[role]...)
}

// Apply returns copies of the orders whose status role may see. The input
// slice and its orders are left untouched.
func (f *Filter) Apply(orders []model.Order, role Role) []model.Order {
	visible := make(map[workflow.Status]struct{})
	for _, s := range f.Statuses(role) {
		visible[s] = struct{}{}
	}
	out := make([]model.Order, 0, len(orders))
	for _, o := range orders {
		if _, ok := visible[o.Status]; ok {
			out = append(out, o.Clone())
		}
	}
	return out
}

// ForActor applies the role filter and, for artists, keeps only orders with
// at least one item assigned to the actor.
func (f *Filter) ForActor(orders []model.Order, actor Actor) []model.Order {
	out := f.Apply(orders, actor.Role)
	if actor.Role != RoleArtist {
		return out
	}
	mine := out[:0]
	for _, o := range out {
		if assignedTo(o, actor.ID) {
			mine = append(mine, o)
		}
	}
	return mine
}

func assignedTo(o model.Order, artistID string) bool {
	for _, it := range o.Items {
		if it.AssignedArtist != nil && *it.AssignedArtist == artistID {
			return true
		}
	}
	return false
}

// FilterForRole filters with the default registry and the allow policy.
func FilterForRole(orders []model.Order, role Role) []model.Order {
	return NewFilter(workflow.Default(), PolicyAllow).Apply(orders, role)
}
