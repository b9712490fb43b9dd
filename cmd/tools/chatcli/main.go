package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/zhouzirui/sentichat/internal/config"
	"github.com/zhouzirui/sentichat/internal/logging"
	"github.com/zhouzirui/sentichat/internal/service/classifier"
)

// app carries what every subcommand needs once the root has started.
type app struct {
	cfg    *config.Config
	client *classifier.Client
	logger zerolog.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	var verbose bool

	root := &cobra.Command{
		Use:          "chatcli",
		Short:        "Terminal client for the sentiment chat service",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			_ = godotenv.Load()

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			level := cfg.Log.Level
			if !verbose && level == "info" {
				level = "warn"
			}
			a.cfg = cfg
			a.logger = logging.Setup(level, true)

			client, err := classifier.New(cfg.Upstream.Client())
			if err != nil {
				return err
			}
			if client.HasCredentials() {
				if err := client.Login(cmd.Context()); err != nil {
					return err
				}
			}
			a.client = client
			return nil
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at the configured level instead of warnings only")

	root.AddCommand(newChatCmd(a), newDashboardCmd(a))
	return root
}
