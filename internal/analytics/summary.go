package analytics

import (
	"github.com/zhouzirui/sentichat/internal/analysis/sentiment"
)

// CategoryStat is one row of the dashboard stats card.
type CategoryStat struct {
	Category sentiment.Category `json:"category"`
	Label    string             `json:"label"`
	Count    int                `json:"count"`
	Percent  float64            `json:"percent"`
}

// Summary is the stats card shown above the dashboard charts.
type Summary struct {
	Total      int                `json:"total"`
	Categories []CategoryStat     `json:"categories"`
	Dominant   sentiment.Category `json:"dominant,omitempty"`
}

// Summarize derives the stats card from a distribution. Dominant is empty
// when there are no messages; ties go to the earlier display category.
func Summarize(d Distribution) Summary {
	percents := d.Percentages()
	s := Summary{Total: d.Total(), Categories: make([]CategoryStat, len(d.Values))}

	best := 0
	for i, v := range d.Values {
		s.Categories[i] = CategoryStat{
			Category: d.Categories[i],
			Label:    d.Labels[i],
			Count:    v,
			Percent:  percents[i],
		}
		if v > best {
			best = v
			s.Dominant = d.Categories[i]
		}
	}
	return s
}
