package classifier

import (
	"strings"

	"github.com/imrishuroy/go-painting-orderflow/internal/model"
	"github.com/imrishuroy/go-painting-orderflow/internal/workflow"
)

// AddOnKeywords mark a line as an add-on (framing, shipping, rush fee...).
var AddOnKeywords = []string{
	"rush", "gift", "shipping", "upgrade", "express", "priority",
	"frame", "mat", "wrap", "package", "message",
}

// StyleRule maps a title keyword to a painting style. Rules are checked in order.
type StyleRule struct {
	Keyword string
	Style   string
}

// FallbackStyle is used when no style keyword matches.
const FallbackStyle = "Custom Portrait"

// StyleRules is the fixed priority order for painting-style derivation.
var StyleRules = []StyleRule{
	{"pet", "Pet Portrait"},
	{"family", "Family Portrait"},
	{"house", "House Portrait"},
	{"memorial", "Memorial Portrait"},
	{"couple", "Couple Portrait"},
	{"watercolor", "Watercolor Painting"},
	{"oil", "Oil Painting"},
}

// IsAddOn reports whether any of the given texts contains an add-on keyword.
func IsAddOn(texts ...string) bool {
	joined := strings.ToLower(strings.Join(texts, " "))
	for _, kw := range AddOnKeywords {
		if strings.Contains(joined, kw) {
			return true
		}
	}
	return false
}

// PaintingStyle derives the style from a product title.
func PaintingStyle(title string) string {
	lower := strings.ToLower(title)
	for _, rule := range StyleRules {
		if strings.Contains(lower, rule.Keyword) {
			return rule.Style
		}
	}
	return FallbackStyle
}

// SplitTags splits the platform's comma separated tag string.
func SplitTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		key := strings.ToLower(p)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, p)
	}
	return out
}

// HasTag reports whether any tag contains one of the keywords, ignoring case.
func HasTag(tags []string, keywords ...string) bool {
	for _, tag := range tags {
		lower := strings.ToLower(tag)
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				return true
			}
		}
	}
	return false
}

// IsRush reports whether the tags ask for rush handling.
func IsRush(tags []string) bool {
	return HasTag(tags, "rush", "urgent")
}

// DerivePriority maps tags to a priority.
func DerivePriority(tags []string) model.Priority {
	switch {
	case IsRush(tags):
		return model.PriorityUrgent
	case HasTag(tags, "vip", "priority"):
		return model.PriorityHigh
	default:
		return model.PriorityNormal
	}
}

// InitialStatus derives the workflow entry state from upstream order state.
func InitialStatus(raw model.RawOrder) workflow.Status {
	switch {
	case IsCancelledUpstream(raw):
		return workflow.StatusCancelled
	case raw.FulfillmentStatus != nil && strings.EqualFold(*raw.FulfillmentStatus, "fulfilled"):
		return workflow.StatusCompleted
	case strings.EqualFold(raw.FinancialStatus, "paid"):
		return workflow.StatusPendingAssign
	default:
		return workflow.StatusWaitingForPhotos
	}
}

// IsCancelledUpstream reports whether the feed marks the order cancelled.
func IsCancelledUpstream(raw model.RawOrder) bool {
	return raw.CancelledAt != nil && strings.TrimSpace(*raw.CancelledAt) != ""
}
