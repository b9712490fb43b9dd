// Package terminal renders conversations and charts for a line-oriented
// terminal host.
package terminal

import (
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/zhouzirui/sentichat/internal/analysis/sentiment"
	"github.com/zhouzirui/sentichat/internal/chart"
)

// Styles groups the lipgloss styles used by the terminal host.
type Styles struct {
	Title     lipgloss.Style
	Time      lipgloss.Style
	User      lipgloss.Style
	Bot       lipgloss.Style
	Typing    lipgloss.Style
	Error     lipgloss.Style
	Prompt    lipgloss.Style
	Muted     lipgloss.Style
	Sentiment map[sentiment.Category]lipgloss.Style

	renderer *lipgloss.Renderer
}

// NewStyles builds styles for out, coloring categories from theme.
func NewStyles(out io.Writer, theme chart.Theme) Styles {
	r := lipgloss.NewRenderer(out)
	s := Styles{
		Title:     r.NewStyle().Bold(true).Underline(true),
		Time:      r.NewStyle().Foreground(lipgloss.Color("#9ca3af")),
		User:      r.NewStyle().Bold(true).Foreground(lipgloss.Color("#3b82f6")),
		Bot:       r.NewStyle().Bold(true),
		Typing:    r.NewStyle().Italic(true).Foreground(lipgloss.Color("#9ca3af")),
		Error:     r.NewStyle().Bold(true).Foreground(lipgloss.Color("#ef4444")),
		Prompt:    r.NewStyle().Foreground(lipgloss.Color("#10b981")),
		Muted:     r.NewStyle().Faint(true),
		Sentiment: make(map[sentiment.Category]lipgloss.Style, len(sentiment.Categories)),
		renderer:  r,
	}
	for _, c := range sentiment.Categories {
		s.Sentiment[c] = r.NewStyle().Foreground(lipgloss.Color(theme.Color(c)))
	}
	return s
}

func (s Styles) category(c sentiment.Category) lipgloss.Style {
	if st, ok := s.Sentiment[c]; ok {
		return st
	}
	return s.Muted
}

func (s Styles) color(hex string) lipgloss.Style {
	if hex == "" || s.renderer == nil {
		return s.Muted
	}
	return s.renderer.NewStyle().Foreground(lipgloss.Color(hex))
}
