package sentiment

import (
	"strings"
)

// Category is one of the three sentiment classes reported by the service.
type Category string

const (
	Positive Category = "positive"
	Negative Category = "negative"
	Neutral  Category = "neutral"
)

// Categories lists every category in dashboard display order.
var Categories = []Category{Positive, Negative, Neutral}

// Polarity thresholds used by the service's classifier.
const (
	PositiveThreshold = 0.1
	NegativeThreshold = -0.1
)

// Title returns the display label of the category, e.g. "Positive".
func (c Category) Title() string {
	if c == "" {
		return ""
	}
	return strings.ToUpper(string(c[:1])) + string(c[1:])
}

// Index returns the display position of the category or -1.
func (c Category) Index() int {
	for i, item := range Categories {
		if item == c {
			return i
		}
	}
	return -1
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	return c.Index() >= 0
}

// Parse matches a label case-insensitively against the known categories.
func Parse(label string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(label)))
	if !c.Valid() {
		return "", false
	}
	return c, true
}

// FromScore classifies a polarity score in [-1, 1].
func FromScore(score float64) Category {
	switch {
	case score > PositiveThreshold:
		return Positive
	case score < NegativeThreshold:
		return Negative
	default:
		return Neutral
	}
}

// Resolve prefers the label reported by the service and falls back to the
// polarity score when the label is missing or unknown.
func Resolve(label string, score float64) Category {
	if c, ok := Parse(label); ok {
		return c
	}
	return FromScore(score)
}
