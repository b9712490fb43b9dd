package chart

import (
	"fmt"

	"github.com/zhouzirui/sentichat/internal/analysis/sentiment"
	"github.com/zhouzirui/sentichat/internal/analytics"
	"github.com/zhouzirui/sentichat/internal/format"
)

// Kind selects the chart type bound to a surface.
type Kind string

const (
	KindDoughnut Kind = "doughnut"
	KindPie      Kind = "pie"
	KindLine     Kind = "line"
)

// Categorical reports whether the kind summarizes one value per category.
func (k Kind) Categorical() bool {
	return k == KindDoughnut || k == KindPie
}

// Dataset is one drawable series. Colors holds one color per point for
// categorical charts and a single entry for line series.
type Dataset struct {
	Label    string             `json:"label"`
	Category sentiment.Category `json:"category,omitempty"`
	Values   []int              `json:"values"`
	Colors   []string           `json:"colors"`
}

// Spec is everything a renderer needs to draw a chart. Legend and Tooltips
// are derived from the same bound values so the two never disagree.
// Tooltips is indexed [dataset][point].
type Spec struct {
	Kind     Kind       `json:"kind"`
	Title    string     `json:"title"`
	Labels   []string   `json:"labels"`
	Datasets []Dataset  `json:"datasets"`
	Legend   []string   `json:"legend"`
	Tooltips [][]string `json:"tooltips"`
	Percents []float64  `json:"percents,omitempty"`
}

// Build converts an analytics series into a Spec for the given kind. series
// must be an analytics.Distribution (doughnut, pie) or analytics.Timeline
// (line).
func Build(series any, kind Kind, theme Theme) (Spec, error) {
	switch s := series.(type) {
	case analytics.Distribution:
		if !kind.Categorical() {
			return Spec{}, fmt.Errorf("%w: distribution cannot be drawn as %q", ErrUnsupportedSeries, kind)
		}
		return distributionSpec(s, kind, theme), nil
	case *analytics.Distribution:
		if s == nil {
			return Spec{}, fmt.Errorf("%w: nil distribution", ErrUnsupportedSeries)
		}
		return Build(*s, kind, theme)
	case analytics.Timeline:
		if kind != KindLine {
			return Spec{}, fmt.Errorf("%w: timeline cannot be drawn as %q", ErrUnsupportedSeries, kind)
		}
		return timelineSpec(s, theme), nil
	case *analytics.Timeline:
		if s == nil {
			return Spec{}, fmt.Errorf("%w: nil timeline", ErrUnsupportedSeries)
		}
		return Build(*s, kind, theme)
	default:
		return Spec{}, fmt.Errorf("%w: %T", ErrUnsupportedSeries, series)
	}
}

func distributionSpec(d analytics.Distribution, kind Kind, theme Theme) Spec {
	percents := d.Percentages()
	n := len(d.Values)

	colors := make([]string, n)
	legend := make([]string, n)
	tips := make([]string, n)
	for i := range d.Values {
		colors[i] = theme.Color(d.Categories[i])
		legend[i] = fmt.Sprintf("%s: %s", d.Labels[i], format.PercentLabel(percents[i]))
		tips[i] = fmt.Sprintf("%s: %d (%s)", d.Labels[i], d.Values[i], format.PercentLabel(percents[i]))
	}

	return Spec{
		Kind:   kind,
		Title:  theme.DistributionTitle,
		Labels: append([]string(nil), d.Labels...),
		Datasets: []Dataset{{
			Label:  theme.DistributionTitle,
			Values: append([]int(nil), d.Values...),
			Colors: colors,
		}},
		Legend:   legend,
		Tooltips: [][]string{tips},
		Percents: percents,
	}
}

func timelineSpec(t analytics.Timeline, theme Theme) Spec {
	spec := Spec{
		Kind:   KindLine,
		Title:  theme.TimelineTitle,
		Labels: append([]string(nil), t.Labels...),
	}
	for _, c := range sentiment.Categories {
		counts := append([]int(nil), t.Counts(c)...)
		tips := make([]string, len(counts))
		for i, v := range counts {
			tips[i] = fmt.Sprintf("%s: %d", c.Title(), v)
		}
		spec.Datasets = append(spec.Datasets, Dataset{
			Label:    c.Title(),
			Category: c,
			Values:   counts,
			Colors:   []string{theme.Color(c)},
		})
		spec.Legend = append(spec.Legend, c.Title())
		spec.Tooltips = append(spec.Tooltips, tips)
	}
	return spec
}
