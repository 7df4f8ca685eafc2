package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/abhisek/rehearse/internal/deck"
	"github.com/abhisek/rehearse/internal/readiness"
	"github.com/abhisek/rehearse/internal/store"
	"github.com/abhisek/rehearse/internal/ui/theme"
)

var readinessCmd = &cobra.Command{
	Use:   "readiness",
	Short: "Score flashcard and interview readiness",
	Long: `Score how ready you are on a 0-100 scale. Without --app the flashcard
score covers the whole deck. With --app it covers that application's cards and
adds the interview-prep score from its checklist and questions.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		app, _ := cmd.Flags().GetString("app")
		asJSON, _ := cmd.Flags().GetBool("json")

		d, err := openDeps(cmd)
		if err != nil {
			return err
		}
		defer d.Close()

		cards, err := d.store.Cards().Find(ctx, store.CardFilter{ApplicationID: app})
		if err != nil {
			return fmt.Errorf("list cards: %w", err)
		}
		report := map[string]readiness.Breakdown{
			"flashcards": readiness.Explain(readiness.FlashcardFactors(d.cfg.Mastery.Distribute(deck.States(cards)))...),
		}

		if app != "" {
			items, err := d.store.Prep().Checklist(ctx, app)
			if err != nil {
				return fmt.Errorf("load checklist: %w", err)
			}
			questions, err := d.store.Prep().Questions(ctx, app)
			if err != nil {
				return fmt.Errorf("load questions: %w", err)
			}
			report["interview"] = readiness.Explain(readiness.InterviewFactors(items, questions)...)
		}

		out := cmd.OutOrStdout()
		if asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}
		printBreakdown(out, "Flashcards", report["flashcards"])
		if b, ok := report["interview"]; ok {
			fmt.Fprintln(out)
			printBreakdown(out, "Interview prep", b)
		}
		return nil
	},
}

func init() {
	readinessCmd.Flags().String("app", "", "Application id")
	readinessCmd.Flags().Bool("json", false, "Print the score breakdown as JSON")
}

func printBreakdown(out io.Writer, title string, b readiness.Breakdown) {
	fmt.Fprintf(out, "%s %s\n", theme.Title.Render(title),
		theme.Score(b.Score).Render(fmt.Sprintf("%d/100", b.Score)))
	for _, f := range b.Factors {
		fmt.Fprintf(out, "  %s%s %5.1f of %.0f\n",
			theme.Label.Width(28).Render(f.Name), theme.Bar(f.Ratio, 20), f.Contribution, f.Weight)
	}
}
