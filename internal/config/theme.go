package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/zhouzirui/sentichat/internal/analysis/sentiment"
	"github.com/zhouzirui/sentichat/internal/chart"
)

type themeFile struct {
	Colors map[string]string `yaml:"colors"`
	Titles struct {
		Distribution string `yaml:"distribution"`
		Timeline     string `yaml:"timeline"`
	} `yaml:"titles"`
}

// LoadTheme reads a YAML chart theme:
//
//	colors:
//	  positive: "#22c55e"
//	titles:
//	  timeline: "Last 7 days"
func LoadTheme(path string) (chart.Theme, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return chart.Theme{}, fmt.Errorf("read chart theme: %w", err)
	}

	var file themeFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return chart.Theme{}, fmt.Errorf("parse chart theme %s: %w", path, err)
	}

	theme := chart.Theme{
		Colors:            make(map[sentiment.Category]string, len(file.Colors)),
		DistributionTitle: file.Titles.Distribution,
		TimelineTitle:     file.Titles.Timeline,
	}
	for label, color := range file.Colors {
		c, ok := sentiment.Parse(label)
		if !ok {
			return chart.Theme{}, fmt.Errorf("parse chart theme %s: unknown category %q", path, label)
		}
		theme.Colors[c] = color
	}
	return theme, nil
}
