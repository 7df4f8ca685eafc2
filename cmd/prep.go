package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/rehearse/internal/ui/theme"
)

var prepCmd = &cobra.Command{
	Use:   "prep",
	Short: "Manage interview checklists and questions",
}

var prepListCmd = &cobra.Command{
	Use:   "list <app>",
	Short: "List an application's checklist and questions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		d, err := openDeps(cmd)
		if err != nil {
			return err
		}
		defer d.Close()

		items, err := d.store.Prep().Checklist(ctx, args[0])
		if err != nil {
			return fmt.Errorf("load checklist: %w", err)
		}
		questions, err := d.store.Prep().Questions(ctx, args[0])
		if err != nil {
			return fmt.Errorf("load questions: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, theme.Title.Render("Checklist"))
		for _, it := range items {
			mark := "[ ]"
			if it.Completed {
				mark = theme.Correct.Render("[x]")
			}
			req := ""
			if !it.Required {
				req = theme.Hint.Render(" (optional)")
			}
			fmt.Fprintf(out, "%s %-12s %s%s\n", mark, it.ID, it.Label, req)
		}

		fmt.Fprintf(out, "\n%s\n", theme.Title.Render("Questions"))
		for _, q := range questions {
			fmt.Fprintf(out, "%-12s %-6s %2dx  %s\n", q.ID, q.Likelihood, q.PracticeCount, truncate(firstLine(q.Text), 50))
		}
		fmt.Fprintln(out, strings.Repeat("─", 40))
		fmt.Fprintf(out, "%d item(s), %d question(s)\n", len(items), len(questions))
		return nil
	},
}

var prepDoneCmd = &cobra.Command{
	Use:   "done <item-id>",
	Short: "Mark a checklist item completed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		undo, _ := cmd.Flags().GetBool("undo")
		d, err := openDeps(cmd)
		if err != nil {
			return err
		}
		defer d.Close()

		if err := d.store.Prep().SetCompleted(cmd.Context(), args[0], !undo); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s updated\n", args[0])
		return nil
	},
}

var prepPracticeCmd = &cobra.Command{
	Use:   "practice <question-id>",
	Short: "Record one practice of an interview question",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDeps(cmd)
		if err != nil {
			return err
		}
		defer d.Close()

		if err := d.store.Prep().RecordPractice(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "practice recorded for %s\n", args[0])
		return nil
	},
}

func init() {
	prepDoneCmd.Flags().Bool("undo", false, "Mark the item not completed")

	prepCmd.AddCommand(prepListCmd)
	prepCmd.AddCommand(prepDoneCmd)
	prepCmd.AddCommand(prepPracticeCmd)
}
