package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/rehearse/internal/ui/theme"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Show the cards a review session would contain",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		d, err := openDeps(cmd)
		if err != nil {
			return err
		}
		defer d.Close()

		opts, err := queueOptions(cmd, d)
		if err != nil {
			return err
		}
		mode, app := queueMode(cmd)
		ids, err := d.svc.Queue(ctx, mode, app, opts...)
		if err != nil {
			return fmt.Errorf("build queue: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(ids) == 0 {
			fmt.Fprintln(out, theme.Hint.Render("Queue is empty."))
			return nil
		}

		now := nowFunc()
		fmt.Fprintf(out, "%-3s  %-10s  %-10s  %-12s  %s\n", "#", "Status", "Level", "Application", "Prompt")
		fmt.Fprintln(out, strings.Repeat("─", 80))
		for i, id := range ids {
			card, err := d.store.Cards().Get(ctx, id)
			if err != nil {
				return fmt.Errorf("load card %s: %w", id, err)
			}
			level := d.cfg.Mastery.Classify(card.Schedule)
			fmt.Fprintf(out, "%-3d  %-10s  %s  %-12s  %s\n",
				i+1,
				card.Schedule.Status(now),
				theme.Level(level).Width(10).Render(level.DisplayName()),
				truncate(card.ApplicationID, 12),
				truncate(firstLine(card.Front), 40),
			)
		}
		fmt.Fprintf(out, "\n%d card(s) in %s queue\n", len(ids), mode)
		return nil
	},
}

func init() {
	addQueueFlags(queueCmd)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
