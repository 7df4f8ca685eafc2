package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/abhisek/rehearse/internal/reminder"
)

var remindCmd = &cobra.Command{
	Use:   "remind",
	Short: "Remind daily when cards are due",
	Long: `Run in the foreground and print a reminder every day at reminder.at
(default 09:00 local time) when the daily queue is not empty. With --once the
check runs immediately and the command exits.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		once, _ := cmd.Flags().GetBool("once")
		at, _ := cmd.Flags().GetString("at")

		d, err := openDeps(cmd)
		if err != nil {
			return err
		}
		defer d.Close()

		if at == "" {
			at = d.cfg.Reminder.At
		}
		sched, err := reminder.New(d.svc, reminder.WriterNotifier{Out: cmd.OutOrStdout()}, at, nil, d.log)
		if err != nil {
			return err
		}

		if once {
			r, err := sched.Check(cmd.Context())
			if err != nil {
				return err
			}
			if r.Due == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing due today.")
			}
			return nil
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := sched.Start(ctx); err != nil {
			return err
		}
		defer sched.Stop()
		fmt.Fprintf(cmd.OutOrStdout(), "next reminder at %s, ctrl-c to stop\n", sched.NextRun().Format("2006-01-02 15:04"))
		<-ctx.Done()
		return nil
	},
}

func init() {
	remindCmd.Flags().Bool("once", false, "Check now and exit")
	remindCmd.Flags().String("at", "", "Reminder time HH:MM (overrides reminder.at)")
}
