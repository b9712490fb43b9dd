package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zhouzirui/sentichat/internal/conversation"
	"github.com/zhouzirui/sentichat/internal/terminal"
)

func newChatCmd(a *app) *cobra.Command {
	var historyLimit int

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the service and see the sentiment of each reply",
		Long: `Reads one message per line from stdin and prints the classified reply.
Recent history is shown first. Type /quit or send EOF to leave.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			styles := terminal.NewStyles(out, a.cfg.Dashboard.Theme)
			view := terminal.NewView(out, styles)

			limit := a.cfg.Chat.HistoryLimit
			if historyLimit > 0 {
				limit = historyLimit
			}
			ctrl := conversation.NewController(a.client, view, conversation.Options{
				HistoryLimit: limit,
				Logger:       a.logger,
			})

			ctx := cmd.Context()
			if n := ctrl.LoadHistory(ctx); n > 0 {
				fmt.Fprintln(out, styles.Muted.Render(fmt.Sprintf("(%d earlier exchanges)", n)))
			}
			view.FocusComposer()

			scanner := bufio.NewScanner(cmd.InOrStdin())
			for scanner.Scan() {
				line := strings.TrimSpace(scanner.Text())
				if line == "/quit" {
					return nil
				}
				err := ctrl.Send(ctx, line)
				if errors.Is(err, conversation.ErrEmptyMessage) {
					view.FocusComposer()
				}
				if ctx.Err() != nil {
					return nil
				}
			}
			return scanner.Err()
		},
	}
	cmd.Flags().IntVar(&historyLimit, "history", 0, "number of past exchanges to show (default from HISTORY_LIMIT)")
	return cmd
}
