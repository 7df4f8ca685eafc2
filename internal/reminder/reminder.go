// Package reminder runs a daily job that reports how many cards are waiting
// in the daily review queue.
package reminder

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/sirupsen/logrus"

	"github.com/abhisek/rehearse/internal/logging"
	"github.com/abhisek/rehearse/internal/session"
	"github.com/abhisek/rehearse/internal/spacedrep"
)

// QueueSource builds review queues. *session.Service implements it.
type QueueSource interface {
	Queue(ctx context.Context, mode spacedrep.Mode, scope string, opts ...session.StartOption) ([]string, error)
}

// Reminder is one notification about waiting cards.
type Reminder struct {
	Due int
	At  time.Time
}

// Message renders the reminder as a single line.
func (r Reminder) Message() string {
	if r.Due == 1 {
		return "1 card is waiting in today's review queue"
	}
	return fmt.Sprintf("%d cards are waiting in today's review queue", r.Due)
}

// Notifier delivers reminders.
type Notifier interface {
	Notify(ctx context.Context, r Reminder) error
}

// WriterNotifier prints reminders to a writer.
type WriterNotifier struct {
	Out io.Writer
}

// Notify implements Notifier.
func (n WriterNotifier) Notify(_ context.Context, r Reminder) error {
	_, err := fmt.Fprintf(n.Out, "%s %s\n", r.At.Format("2006-01-02 15:04"), r.Message())
	return err
}

// Scheduler runs the daily reminder check.
type Scheduler struct {
	sched    *gocron.Scheduler
	source   QueueSource
	notifier Notifier
	at       string
	log      logrus.FieldLogger
	clock    func() time.Time
}

// New creates a scheduler firing every day at the wall-clock time at
// ("HH:MM") in loc. A nil loc means time.Local and a nil log discards output.
func New(source QueueSource, notifier Notifier, at string, loc *time.Location, log logrus.FieldLogger) (*Scheduler, error) {
	if _, err := time.Parse("15:04", at); err != nil {
		return nil, fmt.Errorf("reminder time %q: want HH:MM", at)
	}
	if loc == nil {
		loc = time.Local
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Scheduler{
		sched:    gocron.NewScheduler(loc),
		source:   source,
		notifier: notifier,
		at:       at,
		log:      log,
		clock:    time.Now,
	}, nil
}

// Start registers the daily job and runs the scheduler in the background.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.sched.Every(1).Day().At(s.at).Do(func() {
		if _, err := s.Check(ctx); err != nil {
			s.log.WithError(err).Error("reminder check failed")
		}
	})
	if err != nil {
		return fmt.Errorf("schedule reminder: %w", err)
	}
	s.sched.StartAsync()
	s.log.WithField("at", s.at).Info("reminder scheduled")
	return nil
}

// NextRun returns when the reminder fires next.
func (s *Scheduler) NextRun() time.Time {
	_, next := s.sched.NextRun()
	return next
}

// Stop halts the scheduler.
func (s *Scheduler) Stop() {
	s.sched.Stop()
}

// Check sizes today's daily queue and notifies when it is not empty.
func (s *Scheduler) Check(ctx context.Context) (Reminder, error) {
	queue, err := s.source.Queue(ctx, spacedrep.ModeDaily, "")
	if err != nil {
		return Reminder{}, fmt.Errorf("build daily queue: %w", err)
	}
	r := Reminder{Due: len(queue), At: s.clock()}
	if r.Due == 0 {
		s.log.Debug("nothing due, skipping reminder")
		return r, nil
	}
	if err := s.notifier.Notify(ctx, r); err != nil {
		return r, fmt.Errorf("notify: %w", err)
	}
	s.log.WithField("due", r.Due).Info("reminder sent")
	return r, nil
}
