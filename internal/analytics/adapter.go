// Package analytics turns the service's aggregate payloads into chart-ready
// series.
package analytics

import (
	"errors"
	"fmt"

	"github.com/zhouzirui/sentichat/internal/analysis/sentiment"
	"github.com/zhouzirui/sentichat/internal/format"
	raw "github.com/zhouzirui/sentichat/internal/model/analytics"
)

// MalformedDataError reports a payload whose arrays cannot be index-aligned.
type MalformedDataError struct {
	Series string
	Reason string
}

func (e *MalformedDataError) Error() string {
	return fmt.Sprintf("malformed %s data: %s", e.Series, e.Reason)
}

// IsMalformed reports whether err is a MalformedDataError.
func IsMalformed(err error) bool {
	var me *MalformedDataError
	return errors.As(err, &me)
}

// Distribution holds one count per category in display order.
type Distribution struct {
	Labels     []string
	Categories []sentiment.Category
	Values     []int
}

// Total is the sum of all counts.
func (d Distribution) Total() int {
	total := 0
	for _, v := range d.Values {
		total += v
	}
	return total
}

// Percentages derives each category's share of the total, rounded to one
// decimal. All entries are 0 when the total is 0.
func (d Distribution) Percentages() []float64 {
	total := d.Total()
	out := make([]float64, len(d.Values))
	for i, v := range d.Values {
		out[i] = format.Percentage(v, total)
	}
	return out
}

// Timeline holds per-day counts aligned to Dates.
type Timeline struct {
	Dates    []string
	Labels   []string
	Positive []int
	Negative []int
	Neutral  []int
}

// Len is the number of date buckets.
func (t Timeline) Len() int {
	return len(t.Dates)
}

// Counts returns the series for one category.
func (t Timeline) Counts(c sentiment.Category) []int {
	switch c {
	case sentiment.Positive:
		return t.Positive
	case sentiment.Negative:
		return t.Negative
	case sentiment.Neutral:
		return t.Neutral
	default:
		return nil
	}
}

// BuildDistribution maps the raw payload onto the fixed category order.
// Labels are matched case-insensitively and categories the service omits
// count as 0.
func BuildDistribution(in raw.RawDistribution) (Distribution, error) {
	if len(in.Labels) != len(in.Values) {
		return Distribution{}, &MalformedDataError{
			Series: "distribution",
			Reason: fmt.Sprintf("%d labels for %d values", len(in.Labels), len(in.Values)),
		}
	}

	n := len(sentiment.Categories)
	out := Distribution{
		Labels:     make([]string, n),
		Categories: append([]sentiment.Category(nil), sentiment.Categories...),
		Values:     make([]int, n),
	}
	for i, c := range sentiment.Categories {
		out.Labels[i] = c.Title()
	}

	seen := make(map[sentiment.Category]bool, n)
	for i, label := range in.Labels {
		c, ok := sentiment.Parse(label)
		if !ok {
			return Distribution{}, &MalformedDataError{Series: "distribution", Reason: fmt.Sprintf("unknown label %q", label)}
		}
		if seen[c] {
			return Distribution{}, &MalformedDataError{Series: "distribution", Reason: fmt.Sprintf("duplicate label %q", label)}
		}
		if in.Values[i] < 0 {
			return Distribution{}, &MalformedDataError{Series: "distribution", Reason: fmt.Sprintf("negative count for %q", label)}
		}
		seen[c] = true
		idx := c.Index()
		out.Labels[idx] = label
		out.Values[idx] = in.Values[i]
	}
	return out, nil
}

// BuildTimeline copies the raw series and adds month/day labels. The source
// order is kept as is.
func BuildTimeline(in raw.RawTimeline) (Timeline, error) {
	n := len(in.Dates)
	if len(in.Positive) != n || len(in.Negative) != n || len(in.Neutral) != n {
		return Timeline{}, &MalformedDataError{
			Series: "timeline",
			Reason: fmt.Sprintf("dates=%d positive=%d negative=%d neutral=%d", n, len(in.Positive), len(in.Negative), len(in.Neutral)),
		}
	}

	out := Timeline{
		Dates:    append([]string(nil), in.Dates...),
		Labels:   make([]string, n),
		Positive: append([]int(nil), in.Positive...),
		Negative: append([]int(nil), in.Negative...),
		Neutral:  append([]int(nil), in.Neutral...),
	}
	for i, d := range in.Dates {
		out.Labels[i] = format.DateBucket(d)
	}
	return out, nil
}
