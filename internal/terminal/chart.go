package terminal

import (
	"fmt"
	"io"
	"math"
	"strings"
	"sync"

	"github.com/zhouzirui/sentichat/internal/analytics"
	"github.com/zhouzirui/sentichat/internal/chart"
	"github.com/zhouzirui/sentichat/internal/format"
)

// DefaultBarWidth is the width of a 100% bar.
const DefaultBarWidth = 30

var sparks = []rune("▁▂▃▄▅▆▇█")

// Renderer draws chart specs as text blocks.
type Renderer struct {
	mu     sync.Mutex
	out    io.Writer
	styles Styles
	width  int
	live   map[string]int
}

// NewRenderer returns a renderer writing to out.
func NewRenderer(out io.Writer, styles Styles) *Renderer {
	return &Renderer{out: out, styles: styles, width: DefaultBarWidth, live: make(map[string]int)}
}

// Bind draws spec and returns its live instance.
func (r *Renderer) Bind(surface string, spec chart.Spec) (chart.Instance, error) {
	var b strings.Builder
	b.WriteString(r.styles.Title.Render(spec.Title))
	b.WriteString("\n")
	if spec.Kind.Categorical() {
		r.drawCategorical(&b, spec)
	} else {
		r.drawLine(&b, spec)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := io.WriteString(r.out, b.String()+"\n"); err != nil {
		return nil, fmt.Errorf("draw %s: %w", surface, err)
	}
	r.live[surface]++
	return &instance{renderer: r, surface: surface}, nil
}

// Live is the number of undestroyed instances drawn on surface.
func (r *Renderer) Live(surface string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.live[surface]
}

func (r *Renderer) drawCategorical(b *strings.Builder, spec chart.Spec) {
	if len(spec.Datasets) == 0 {
		return
	}
	ds := spec.Datasets[0]
	pad := labelWidth(spec.Labels)
	for i, label := range spec.Labels {
		var pct float64
		if i < len(spec.Percents) {
			pct = spec.Percents[i]
		}
		bar := strings.Repeat("█", int(math.Round(pct/100*float64(r.width))))
		style := r.styles.Muted
		if i < len(ds.Colors) {
			style = r.styles.color(ds.Colors[i])
		}
		fmt.Fprintf(b, "%-*s %s %s\n", pad, label, style.Render(bar), legendEntry(spec, i))
	}
}

func (r *Renderer) drawLine(b *strings.Builder, spec chart.Spec) {
	if len(spec.Labels) == 0 {
		b.WriteString(r.styles.Muted.Render("no data"))
		b.WriteString("\n")
		return
	}

	names := make([]string, len(spec.Datasets))
	for i, ds := range spec.Datasets {
		names[i] = ds.Label
	}
	pad := labelWidth(names)
	for _, ds := range spec.Datasets {
		total := 0
		for _, v := range ds.Values {
			total += v
		}
		line := r.styles.category(ds.Category).Render(sparkline(ds.Values))
		fmt.Fprintf(b, "%-*s %s total %d\n", pad, ds.Label, line, total)
	}
	fmt.Fprintf(b, "%-*s %s to %s\n", pad, "", spec.Labels[0], spec.Labels[len(spec.Labels)-1])
}

type instance struct {
	renderer  *Renderer
	surface   string
	destroyed bool
}

func (i *instance) Destroy() error {
	i.renderer.mu.Lock()
	defer i.renderer.mu.Unlock()
	if i.destroyed {
		return nil
	}
	i.destroyed = true
	i.renderer.live[i.surface]--
	return nil
}

// RenderSummary writes the stats card.
func RenderSummary(out io.Writer, styles Styles, s analytics.Summary) {
	fmt.Fprintf(out, "%s %d messages\n", styles.Title.Render("Total"), s.Total)
	for _, stat := range s.Categories {
		fmt.Fprintf(out, "  %s %d (%s)\n", styles.category(stat.Category).Render(stat.Label), stat.Count, format.PercentLabel(stat.Percent))
	}
	if s.Dominant != "" {
		fmt.Fprintf(out, "  mostly %s\n", styles.category(s.Dominant).Render(s.Dominant.Title()))
	}
}

func sparkline(values []int) string {
	peak := 0
	for _, v := range values {
		if v > peak {
			peak = v
		}
	}
	out := make([]rune, len(values))
	for i, v := range values {
		if peak == 0 {
			out[i] = sparks[0]
			continue
		}
		out[i] = sparks[v*(len(sparks)-1)/peak]
	}
	return string(out)
}

func labelWidth(labels []string) int {
	w := 0
	for _, l := range labels {
		if len(l) > w {
			w = len(l)
		}
	}
	return w
}

func legendEntry(spec chart.Spec, i int) string {
	if len(spec.Tooltips) == 0 || i >= len(spec.Tooltips[0]) {
		return ""
	}
	return spec.Tooltips[0][i]
}
