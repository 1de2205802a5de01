// Package urgency grades fulfillment deadlines.
package urgency

import (
	"fmt"
	"sort"
	"time"

	"github.com/imrishuroy/go-painting-orderflow/internal/model"
)

// Tier is an urgency grade, most urgent first.
type Tier string

const (
	TierOverdue Tier = "overdue"
	TierUrgent  Tier = "urgent"
	TierWarning Tier = "warning"
	TierGood    Tier = "good"
)

const (
	day         = 24 * time.Hour
	urgentDays  = 2
	warningDays = 5
)

// Tiers lists every tier from most to least urgent.
var Tiers = []Tier{TierOverdue, TierUrgent, TierWarning, TierGood}

// Of grades fulfillBy against now using whole days remaining, rounded down.
func Of(fulfillBy, now time.Time) Tier {
	if fulfillBy.Before(now) {
		return TierOverdue
	}
	switch days := int64(fulfillBy.Sub(now) / day); {
	case days <= urgentDays:
		return TierUrgent
	case days <= warningDays:
		return TierWarning
	default:
		return TierGood
	}
}

// Rank is 0 for overdue up to 3 for good; unknown tiers rank last.
func (t Tier) Rank() int {
	for i, tier := range Tiers {
		if t == tier {
			return i
		}
	}
	return len(Tiers)
}

// Remaining renders the time left for display, e.g. "3d 4h left".
func Remaining(fulfillBy, now time.Time) string {
	if fulfillBy.Before(now) {
		return "OVERDUE"
	}
	left := fulfillBy.Sub(now)
	days := int64(left / day)
	hours := int64(left % day / time.Hour)
	if days > 0 {
		return fmt.Sprintf("%dd %dh left", days, hours)
	}
	return fmt.Sprintf("%dh left", hours)
}

// Sort orders by deadline, earliest first, in place. Ties keep their order id
// sequence so the result is stable across calls.
func Sort(orders []model.Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		a, b := orders[i], orders[j]
		if !a.FulfillByDate.Equal(b.FulfillByDate) {
			return a.FulfillByDate.Before(b.FulfillByDate)
		}
		return a.OrderID < b.OrderID
	})
}

// Count tallies orders per tier.
func Count(orders []model.Order, now time.Time) map[Tier]int {
	out := make(map[Tier]int, len(Tiers))
	for _, o := range orders {
		out[Of(o.FulfillByDate, now)]++
	}
	return out
}
