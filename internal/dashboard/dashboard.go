// Package dashboard feeds the analytics charts of a view.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/zhouzirui/sentichat/internal/analytics"
	"github.com/zhouzirui/sentichat/internal/chart"
	raw "github.com/zhouzirui/sentichat/internal/model/analytics"
)

// Surface names used by the dashboard page.
const (
	SurfaceDistribution = "sentimentChart"
	SurfaceTimeline     = "timelineChart"
)

// Surfaces lists every dashboard surface.
var Surfaces = []string{SurfaceDistribution, SurfaceTimeline}

// Source supplies the raw analytics payloads.
type Source interface {
	Distribution(ctx context.Context) (raw.RawDistribution, error)
	Timeline(ctx context.Context) (raw.RawTimeline, error)
}

// Dashboard fetches analytics and keeps both charts of one view current.
type Dashboard struct {
	source           Source
	charts           *chart.Controller
	distributionKind chart.Kind
	logger           zerolog.Logger
}

// New returns a dashboard drawing distributions as doughnuts.
func New(source Source, charts *chart.Controller, logger zerolog.Logger) *Dashboard {
	return &Dashboard{
		source:           source,
		charts:           charts,
		distributionKind: chart.KindDoughnut,
		logger:           logger.With().Str("component", "dashboard").Logger(),
	}
}

// WithDistributionKind switches the distribution chart between doughnut and pie.
func (d *Dashboard) WithDistributionKind(kind chart.Kind) *Dashboard {
	if kind.Categorical() {
		d.distributionKind = kind
	}
	return d
}

// RefreshCharts destroys and rebuilds both charts. Each chart is fetched and
// drawn independently; a failure on one leaves the other untouched and the
// failed surface keeps whatever it showed before. The returned error joins
// the per-chart failures.
func (d *Dashboard) RefreshCharts(ctx context.Context) error {
	var distErr, timelineErr error

	var g errgroup.Group
	g.Go(func() error {
		distErr = d.refreshDistribution(ctx)
		return nil
	})
	g.Go(func() error {
		timelineErr = d.refreshTimeline(ctx)
		return nil
	})
	_ = g.Wait()

	return errors.Join(distErr, timelineErr)
}

// Summary fetches the distribution and derives the stats card.
func (d *Dashboard) Summary(ctx context.Context) (analytics.Summary, error) {
	return FetchSummary(ctx, d.source)
}

// FetchSummary derives the stats card straight from source, without charts.
func FetchSummary(ctx context.Context, source Source) (analytics.Summary, error) {
	payload, err := source.Distribution(ctx)
	if err != nil {
		return analytics.Summary{}, fmt.Errorf("fetch distribution: %w", err)
	}
	dist, err := analytics.BuildDistribution(payload)
	if err != nil {
		return analytics.Summary{}, err
	}
	return analytics.Summarize(dist), nil
}

// Run refreshes the charts immediately and then every interval until ctx is
// done. A non-positive interval refreshes once.
func (d *Dashboard) Run(ctx context.Context, interval time.Duration) {
	_ = d.RefreshCharts(ctx)
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = d.RefreshCharts(ctx)
		}
	}
}

func (d *Dashboard) refreshDistribution(ctx context.Context) error {
	if !d.charts.HasSurface(SurfaceDistribution) {
		return nil
	}
	payload, err := d.source.Distribution(ctx)
	if err != nil {
		d.logger.Warn().Err(err).Str("surface", SurfaceDistribution).Msg("fetch failed")
		return fmt.Errorf("%s: %w", SurfaceDistribution, err)
	}
	dist, err := analytics.BuildDistribution(payload)
	if err != nil {
		d.logger.Warn().Err(err).Str("surface", SurfaceDistribution).Msg("chart not rendered")
		return fmt.Errorf("%s: %w", SurfaceDistribution, err)
	}
	if err := d.charts.Refresh(SurfaceDistribution, dist, d.distributionKind); err != nil {
		return fmt.Errorf("%s: %w", SurfaceDistribution, err)
	}
	return nil
}

func (d *Dashboard) refreshTimeline(ctx context.Context) error {
	if !d.charts.HasSurface(SurfaceTimeline) {
		return nil
	}
	payload, err := d.source.Timeline(ctx)
	if err != nil {
		d.logger.Warn().Err(err).Str("surface", SurfaceTimeline).Msg("fetch failed")
		return fmt.Errorf("%s: %w", SurfaceTimeline, err)
	}
	timeline, err := analytics.BuildTimeline(payload)
	if err != nil {
		d.logger.Warn().Err(err).Str("surface", SurfaceTimeline).Msg("chart not rendered")
		return fmt.Errorf("%s: %w", SurfaceTimeline, err)
	}
	if err := d.charts.Refresh(SurfaceTimeline, timeline, chart.KindLine); err != nil {
		return fmt.Errorf("%s: %w", SurfaceTimeline, err)
	}
	return nil
}
