package analytics

// RawDistribution is the sentiment distribution as served by
// GET /api/analytics/sentiment. Percentages is informational; the dashboard
// derives its own from Values.
type RawDistribution struct {
	Labels      []string  `json:"labels"`
	Values      []int     `json:"values"`
	Percentages []float64 `json:"percentages,omitempty"`
}

// RawTimeline is the per-day sentiment count series served by
// GET /api/analytics/timeline.
type RawTimeline struct {
	Dates    []string `json:"dates"`
	Positive []int    `json:"positive"`
	Negative []int    `json:"negative"`
	Neutral  []int    `json:"neutral"`
}
