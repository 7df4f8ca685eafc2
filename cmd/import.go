package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/abhisek/rehearse/internal/importer"
	"github.com/abhisek/rehearse/internal/ui/theme"
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import cards, checklist items and questions from JSON, TOML or XLSX",
	Long: `Import a deck file. The format is chosen by extension: .json (validated
against the deck schema), .toml or .xlsx (sheets Cards, Checklist, Questions).
Entries without an id get one derived from their content, so importing the
same file twice updates rather than duplicates. Review schedules are kept.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		res, err := importer.LoadFile(args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, rowErr := range res.Errors {
			fmt.Fprintln(out, theme.Incorrect.Render("skipped "+rowErr.Error()))
		}
		dk := res.Deck
		summary := fmt.Sprintf("%d card(s), %d checklist item(s), %d question(s)",
			len(dk.Cards), len(dk.Checklist), len(dk.Questions))
		if dryRun {
			fmt.Fprintln(out, "would import", summary)
			return nil
		}

		d, err := openDeps(cmd)
		if err != nil {
			return err
		}
		defer d.Close()

		if err := d.store.Cards().Upsert(ctx, dk.Cards...); err != nil {
			return fmt.Errorf("import cards: %w", err)
		}
		if err := d.store.Prep().UpsertChecklist(ctx, dk.Checklist...); err != nil {
			return fmt.Errorf("import checklist: %w", err)
		}
		if err := d.store.Prep().UpsertQuestions(ctx, dk.Questions...); err != nil {
			return fmt.Errorf("import questions: %w", err)
		}

		d.log.WithFields(logrus.Fields{
			"file":      args[0],
			"cards":     len(dk.Cards),
			"checklist": len(dk.Checklist),
			"questions": len(dk.Questions),
			"rejected":  len(res.Errors),
		}).Info("deck imported")
		fmt.Fprintln(out, theme.Correct.Render("imported ")+summary)
		return nil
	},
}

func init() {
	importCmd.Flags().Bool("dry-run", false, "Validate the file without writing to the database")
}
