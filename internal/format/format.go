package format

import (
	"fmt"
	"html"
	"math"
	"strings"
	"time"
)

// ServerTimeLayout is the timestamp layout used by the classification service.
const ServerTimeLayout = "2006-01-02 15:04:05"

// ClockLayout renders message times in the conversation view.
const ClockLayout = "3:04 PM"

var dateLayouts = []string{
	"2006-01-02",
	ServerTimeLayout,
	time.RFC3339,
	"2006-01-02T15:04:05",
}

// EscapeHTML escapes text before it is handed to a markup-rendering host.
func EscapeHTML(text string) string {
	return html.EscapeString(text)
}

// Timestamp formats a message time for display.
func Timestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(ClockLayout)
}

// ParseServerTime parses timestamps emitted by the service. ok is false when
// the value is empty or matches none of the known layouts.
func ParseServerTime(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DateBucket reduces an ISO-ish date to a short month/day label such as "1/15".
// Values that cannot be parsed are returned trimmed but otherwise unchanged.
func DateBucket(value string) string {
	t, ok := ParseServerTime(value)
	if !ok {
		return strings.TrimSpace(value)
	}
	return fmt.Sprintf("%d/%d", int(t.Month()), t.Day())
}

// Percentage returns value/total*100 rounded to one decimal place, or 0 when
// total is not positive.
func Percentage(value, total int) float64 {
	if total <= 0 {
		return 0
	}
	return Round1(float64(value) / float64(total) * 100)
}

// Round1 rounds to one decimal place.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// PercentLabel renders a percentage the way legends show it, e.g. "60.0%".
func PercentLabel(p float64) string {
	return fmt.Sprintf("%.1f%%", p)
}
