package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/zhouzirui/sentichat/internal/chart"
	"github.com/zhouzirui/sentichat/internal/dashboard"
	"github.com/zhouzirui/sentichat/internal/terminal"
)

func newDashboardCmd(a *app) *cobra.Command {
	var (
		watch time.Duration
		pie   bool
	)

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Print the sentiment stats card and charts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			styles := terminal.NewStyles(out, a.cfg.Dashboard.Theme)
			renderer := terminal.NewRenderer(out, styles)
			charts := chart.NewController(renderer, chart.NewSurfaceSet(dashboard.Surfaces...), a.cfg.Dashboard.Theme, a.logger)
			defer charts.DestroyAll()

			kind := a.cfg.Dashboard.DistributionKind
			if pie {
				kind = chart.KindPie
			}
			dash := dashboard.New(a.client, charts, a.logger).WithDistributionKind(kind)

			ctx := cmd.Context()
			if summary, err := dash.Summary(ctx); err == nil {
				terminal.RenderSummary(out, styles, summary)
			} else {
				a.logger.Warn().Err(err).Msg("summary unavailable")
			}

			if watch <= 0 {
				return dash.RefreshCharts(ctx)
			}
			dash.Run(ctx, watch)
			return nil
		},
	}
	cmd.Flags().DurationVar(&watch, "watch", 0, "redraw the charts at this interval until interrupted")
	cmd.Flags().BoolVar(&pie, "pie", false, "draw the distribution as a pie instead of a doughnut")
	return cmd
}
