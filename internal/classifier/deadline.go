package classifier

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DeadlineRule identifies which rule produced a fulfill-by date.
type DeadlineRule string

const (
	RuleAttribute DeadlineRule = "attribute"
	RuleNote      DeadlineRule = "note"
	RuleRushTag   DeadlineRule = "rush_tag"
	RuleDefault   DeadlineRule = "default"
)

const (
	rushWindow    = 3 * 24 * time.Hour
	defaultWindow = 7 * 24 * time.Hour
)

// Attribute is a normalized name/value pair from the order or its lines.
type Attribute struct {
	Name  string
	Value string
}

var (
	deadlineNames = []string{"fulfill", "due", "deadline"}
	notePattern   = regexp.MustCompile(`(?i)\b(?:fulfill|due)\w*\b\D{0,20}?(\d{1,2})/(\d{1,2})(?:/(\d{4}|\d{2}))?`)
	dmyPattern    = regexp.MustCompile(`(\d{1,2})/(\d{1,2})(?:/(\d{4}|\d{2}))?`)
)

// FulfillBy extracts the fulfillment deadline. The first matching rule wins:
// an explicit deadline attribute, a date after "fulfill"/"due" in the note, a
// rush tag (createdAt + 3 days), otherwise createdAt + 7 days.
func FulfillBy(createdAt time.Time, tags []string, note string, attrs []Attribute) (time.Time, DeadlineRule) {
	for _, attr := range attrs {
		if !isDeadlineName(attr.Name) {
			continue
		}
		if t, ok := parseDate(attr.Value, createdAt); ok {
			return t, RuleAttribute
		}
	}
	if m := notePattern.FindStringSubmatch(note); m != nil {
		if t, ok := dateFromParts(m[1], m[2], m[3], createdAt); ok {
			return t, RuleNote
		}
	}
	if IsRush(tags) {
		return createdAt.Add(rushWindow), RuleRushTag
	}
	return createdAt.Add(defaultWindow), RuleDefault
}

func isDeadlineName(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range deadlineNames {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func parseDate(value string, ref time.Time) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	if m := dmyPattern.FindStringSubmatch(value); m != nil {
		return dateFromParts(m[1], m[2], m[3], ref)
	}
	return time.Time{}, false
}

// dateFromParts builds a D/M[/Y] date. Without a year the date lands on or
// after ref's calendar day.
func dateFromParts(dayStr, monthStr, yearStr string, ref time.Time) (time.Time, bool) {
	day, err := strconv.Atoi(dayStr)
	if err != nil {
		return time.Time{}, false
	}
	month, err := strconv.Atoi(monthStr)
	if err != nil || month < 1 || month > 12 {
		return time.Time{}, false
	}
	ref = ref.UTC()
	year := ref.Year()
	explicitYear := yearStr != ""
	if explicitYear {
		y, err := strconv.Atoi(yearStr)
		if err != nil {
			return time.Time{}, false
		}
		if len(yearStr) == 2 {
			y += 2000
		}
		year = y
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, false
	}
	refDay := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, time.UTC)
	if !explicitYear && t.Before(refDay) {
		t = t.AddDate(1, 0, 0)
	}
	return t, true
}
