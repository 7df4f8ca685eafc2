package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/rehearse/internal/ui/theme"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent review sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		d, err := openDeps(cmd)
		if err != nil {
			return err
		}
		defer d.Close()

		sessions, err := d.store.Sessions().Recent(cmd.Context(), limit)
		if err != nil {
			return fmt.Errorf("query sessions: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(sessions) == 0 {
			fmt.Fprintln(out, theme.Hint.Render("No sessions yet."))
			return nil
		}

		fmt.Fprintf(out, "%-16s  %-12s  %-10s  %8s  %7s  %s\n",
			"Started", "Mode", "Scope", "Reviewed", "Success", "Duration")
		fmt.Fprintln(out, strings.Repeat("─", 72))
		for _, s := range sessions {
			success := "-"
			if s.HasRatings() {
				success = fmt.Sprintf("%.0f%%", s.SuccessRate())
			}
			duration := "open"
			if s.IsClosed() {
				duration = s.Duration().Round(time.Second).String()
			}
			fmt.Fprintf(out, "%-16s  %-12s  %-10s  %8s  %7s  %s\n",
				s.StartedAt.Local().Format("2006-01-02 15:04"),
				s.Mode,
				truncate(s.Scope, 10),
				fmt.Sprintf("%d/%d", s.CardsReviewed, s.TotalCards),
				success,
				duration,
			)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().Int("limit", 20, "Number of sessions to show")
}
