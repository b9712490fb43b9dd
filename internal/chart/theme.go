package chart

import (
	"github.com/zhouzirui/sentichat/internal/analysis/sentiment"
)

// Theme carries the display settings shared by every surface.
type Theme struct {
	Colors            map[sentiment.Category]string
	DistributionTitle string
	TimelineTitle     string
}

// DefaultTheme matches the dashboard's stock palette.
func DefaultTheme() Theme {
	return Theme{
		Colors: map[sentiment.Category]string{
			sentiment.Positive: "#10b981",
			sentiment.Negative: "#ef4444",
			sentiment.Neutral:  "#6b7280",
		},
		DistributionTitle: "Sentiment Distribution",
		TimelineTitle:     "Sentiment Over Time",
	}
}

// Color returns the category color, falling back to the default palette.
func (t Theme) Color(c sentiment.Category) string {
	if color, ok := t.Colors[c]; ok && color != "" {
		return color
	}
	return DefaultTheme().Colors[c]
}

// Merge overlays the non-empty fields of other onto t.
func (t Theme) Merge(other Theme) Theme {
	out := Theme{
		Colors:            make(map[sentiment.Category]string, len(t.Colors)),
		DistributionTitle: t.DistributionTitle,
		TimelineTitle:     t.TimelineTitle,
	}
	for c, color := range t.Colors {
		out.Colors[c] = color
	}
	for c, color := range other.Colors {
		if color != "" {
			out.Colors[c] = color
		}
	}
	if other.DistributionTitle != "" {
		out.DistributionTitle = other.DistributionTitle
	}
	if other.TimelineTitle != "" {
		out.TimelineTitle = other.TimelineTitle
	}
	return out
}
