package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/rehearse/internal/session"
	"github.com/abhisek/rehearse/internal/spacedrep"
	"github.com/abhisek/rehearse/internal/ui/theme"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Start a review session",
	Long: `Review due cards one at a time. Each card shows its prompt; press enter to
reveal the answer, then rate your recall from 0 (blackout) to 5 (perfect).
Type q at any prompt to end the session early.`,
	RunE: runReview,
}

func init() {
	addQueueFlags(reviewCmd)
}

func runReview(cmd *cobra.Command, args []string) error {
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
	sess, err := d.svc.StartSession(ctx, mode, app, opts...)
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}

	return runSession(ctx, d, sess, bufio.NewScanner(cmd.InOrStdin()), cmd.OutOrStdout())
}

// runSession reviews the queue and then ends the session, also when the
// review loop fails part way.
func runSession(ctx context.Context, d *deps, sess *session.StudySession, in *bufio.Scanner, out io.Writer) error {
	var loopErr error
	if sess.TotalCards == 0 {
		fmt.Fprintln(out, theme.Hint.Render("Nothing to review right now."))
	} else {
		loopErr = reviewLoop(ctx, d, sess, in, out)
	}

	sess, progress, err := d.svc.EndSession(ctx, sess)
	if err != nil {
		return errors.Join(loopErr, fmt.Errorf("end session: %w", err))
	}
	printSummary(out, session.BuildSummary(sess), progress)
	return loopErr
}

// reviewLoop walks the session queue until it is exhausted or the user quits.
func reviewLoop(ctx context.Context, d *deps, sess *session.StudySession, in *bufio.Scanner, out io.Writer) error {
	for i, id := range sess.Queue {
		card, err := d.store.Cards().Get(ctx, id)
		if err != nil {
			return fmt.Errorf("load card %s: %w", id, err)
		}

		fmt.Fprintf(out, "\n%s\n", theme.Title.Render(fmt.Sprintf("Card %d of %d", i+1, sess.TotalCards)))
		fmt.Fprintln(out, theme.Card.Render(card.Front))
		fmt.Fprint(out, theme.Hint.Render("enter to reveal, q to stop "))
		line, ok := readLine(in)
		if !ok || line == "q" {
			return nil
		}
		if card.Back != "" {
			fmt.Fprintln(out, theme.Card.Render(card.Back))
		}

		rating, ok := promptRating(in, out)
		if !ok {
			return nil
		}
		next, _, err := d.svc.RecordReview(ctx, sess, id, rating)
		if err != nil {
			return fmt.Errorf("record review: %w", err)
		}
		fmt.Fprintf(out, "%s next review in %d day(s)\n",
			theme.Rating(rating).Render(rating.String()), next.IntervalDays)
	}
	return nil
}

// promptRating asks until it reads a valid rating. It reports false when the
// user quits or input ends.
func promptRating(in *bufio.Scanner, out io.Writer) (spacedrep.Rating, bool) {
	for {
		fmt.Fprint(out, "rate 0-5: ")
		line, ok := readLine(in)
		if !ok || line == "q" {
			return 0, false
		}
		r, err := spacedrep.ParseRating(line)
		if err == nil {
			return r, true
		}
		fmt.Fprintln(out, theme.Incorrect.Render(err.Error()))
	}
}

func readLine(in *bufio.Scanner) (string, bool) {
	if !in.Scan() {
		return "", false
	}
	return strings.ToLower(strings.TrimSpace(in.Text())), true
}

func printSummary(out io.Writer, s *session.Summary, p session.StudyProgress) {
	fmt.Fprintf(out, "\n%s\n", theme.Title.Render("Session summary"))
	fmt.Fprintln(out, theme.Row("Duration", s.Duration.Round(time.Second).String()))
	fmt.Fprintln(out, theme.Row("Reviewed", fmt.Sprint(s.CardsReviewed)))
	if s.CardsSkipped > 0 {
		fmt.Fprintln(out, theme.Row("Skipped", fmt.Sprint(s.CardsSkipped)))
	}
	if !s.HasRatings {
		fmt.Fprintln(out, theme.Hint.Render("No cards rated."))
	} else {
		fmt.Fprintln(out, theme.Row("Success rate", fmt.Sprintf("%.0f%%", s.SuccessRate)))
		fmt.Fprintln(out, theme.Row("Average rating", fmt.Sprintf("%.2f", s.AverageRating)))
		for _, rc := range s.Breakdown {
			ratio := float64(rc.Count) / float64(s.CardsReviewed)
			fmt.Fprintf(out, "  %s %s %d\n",
				theme.Rating(rc.Rating).Render(fmt.Sprint(int(rc.Rating))), theme.Bar(ratio, 20), rc.Count)
		}
	}
	fmt.Fprintln(out, theme.Row("Streak", fmt.Sprintf("%d day(s), best %d", p.CurrentStreak, p.LongestStreak)))
}
