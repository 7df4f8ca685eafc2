package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/rehearse/internal/mastery"
	"github.com/abhisek/rehearse/internal/readiness"
	"github.com/abhisek/rehearse/internal/ui/theme"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show study statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDeps(cmd)
		if err != nil {
			return err
		}
		defer d.Close()

		ov, err := d.svc.Overview(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, theme.Title.Render("Deck"))
		total := ov.Distribution.Total()
		for _, l := range mastery.AllLevels() {
			n := ov.Distribution.Count(l)
			ratio := 0.0
			if total > 0 {
				ratio = float64(n) / float64(total)
			}
			fmt.Fprintf(out, "%s%s %d\n", theme.Level(l).Width(18).Render(l.DisplayName()), theme.Bar(ratio, 24), n)
		}
		fmt.Fprintln(out, theme.Row("Due now", fmt.Sprint(ov.DueNow)))
		fmt.Fprintln(out, theme.Row("Next 7 days", forecastLine(ov.Forecast)))
		score := readiness.Flashcards(ov.Distribution)
		fmt.Fprintln(out, theme.Row("Readiness", theme.Score(score).Render(fmt.Sprintf("%d/100", score))))

		p := ov.Progress
		fmt.Fprintf(out, "\n%s\n", theme.Title.Render("Progress"))
		fmt.Fprintln(out, theme.Row("Sessions", fmt.Sprint(p.SessionsCompleted)))
		fmt.Fprintln(out, theme.Row("Cards reviewed", fmt.Sprint(p.TotalCardsReviewed)))
		if p.TotalCardsReviewed > 0 {
			fmt.Fprintln(out, theme.Row("Average rating", fmt.Sprintf("%.2f", p.AverageRating)))
		}
		fmt.Fprintln(out, theme.Row("Study time", fmt.Sprintf("%d min", p.TotalStudyTimeMinutes)))
		if p.LastStudiedAt != nil {
			fmt.Fprintln(out, theme.Row("Last studied", p.LastStudiedAt.Local().Format("2006-01-02 15:04")))
		}
		fmt.Fprintln(out, theme.Row("Current streak", fmt.Sprintf("%d day(s)", ov.Streak.Current)))
		fmt.Fprintln(out, theme.Row("Longest streak", fmt.Sprintf("%d day(s)", max(ov.Streak.Longest, p.LongestStreak))))
		fmt.Fprintln(out, theme.Hint.Render(fmt.Sprintf("%d more day(s) to the %d-day milestone",
			ov.NextMilestone-ov.Streak.Current, ov.NextMilestone)))
		return nil
	},
}

func forecastLine(counts []int) string {
	parts := make([]string, len(counts))
	for i, n := range counts {
		parts[i] = fmt.Sprint(n)
	}
	return strings.Join(parts, " ")
}
