package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/abhisek/rehearse/internal/deck"
	"github.com/abhisek/rehearse/internal/mastery"
	"github.com/abhisek/rehearse/internal/spacedrep"
	"github.com/abhisek/rehearse/internal/streak"
)

// maxScheduleAttempts bounds retries after an optimistic-locking conflict.
const maxScheduleAttempts = 3

// CardRepo is the card storage the service reads.
type CardRepo interface {
	List(ctx context.Context) ([]deck.Card, error)
	Get(ctx context.Context, id string) (deck.Card, error)
}

// ReviewEvent is one rating applied to one card inside a session.
type ReviewEvent struct {
	SessionID  string
	CardID     string
	Rating     spacedrep.Rating
	ReviewedAt time.Time
	Schedule   spacedrep.ScheduleState
}

// ReviewCommit is everything one review writes: the card's new schedule
// (carried by Event), the review event and the updated session.
type ReviewCommit struct {
	Event ReviewEvent
	// ExpectedVersion is the card version the schedule was computed from.
	ExpectedVersion int
	Session         *StudySession
}

// SessionRepo persists sessions and their review history.
type SessionRepo interface {
	Save(ctx context.Context, s *StudySession) error
	// CommitReview writes a ReviewCommit atomically. If the card's version no
	// longer equals ExpectedVersion it writes nothing and returns
	// deck.ErrVersionConflict.
	CommitReview(ctx context.Context, c ReviewCommit) error
	// StartTimes returns the start time of every finished session that
	// recorded at least one rating.
	StartTimes(ctx context.Context) ([]time.Time, error)
}

// ProgressRepo persists lifetime study progress.
type ProgressRepo interface {
	Load(ctx context.Context) (StudyProgress, error)
	Save(ctx context.Context, p StudyProgress) error
}

// Service drives review sessions against persistent storage.
type Service struct {
	cards    CardRepo
	sessions SessionRepo
	progress ProgressRepo
	limits   spacedrep.Limits
	policy   mastery.Policy
	log      logrus.FieldLogger
	clock    func() time.Time
	newID    func() string

	// mu serializes schedule updates within this process.
	mu sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithLimits overrides the daily queue limits.
func WithLimits(l spacedrep.Limits) Option {
	return func(s *Service) { s.limits = l }
}

// WithPolicy overrides the mastery thresholds.
func WithPolicy(p mastery.Policy) Option {
	return func(s *Service) { s.policy = p }
}

// WithClock overrides the time source.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) { s.clock = clock }
}

// WithLogger sets the logger. A nil logger discards output.
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Service) { s.log = log }
}

// NewService wires the repositories with default limits, policy and clock.
func NewService(cards CardRepo, sessions SessionRepo, progress ProgressRepo, opts ...Option) *Service {
	s := &Service{
		cards:    cards,
		sessions: sessions,
		progress: progress,
		limits:   spacedrep.DefaultLimits(),
		policy:   mastery.DefaultPolicy(),
		clock:    time.Now,
		newID:    func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		s.log = l
	}
	return s
}

// StartOption narrows the queue built by StartSession.
type StartOption func(*spacedrep.QueueConfig)

// WithFilter adds a scope filter on top of the mode's own scope.
func WithFilter(f spacedrep.ScopeFilter) StartOption {
	return func(cfg *spacedrep.QueueConfig) {
		if f == nil {
			return
		}
		if cfg.Scope == nil {
			cfg.Scope = f
			return
		}
		base := cfg.Scope
		cfg.Scope = spacedrep.ScopeFunc(func(c spacedrep.Candidate) bool {
			return base.Match(c) && f.Match(c)
		})
	}
}

// Queue builds the review queue for a mode without starting a session.
func (s *Service) Queue(ctx context.Context, mode spacedrep.Mode, scope string, opts ...StartOption) ([]string, error) {
	cfg, err := s.limits.ConfigForMode(mode, scope)
	if err != nil {
		return nil, err
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	cards, err := s.cards.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	return spacedrep.BuildQueue(deck.Candidates(cards), s.clock(), cfg), nil
}

// StartSession builds a queue and persists a new open session over it.
// An empty queue still yields a session.
func (s *Service) StartSession(ctx context.Context, mode spacedrep.Mode, scope string, opts ...StartOption) (*StudySession, error) {
	queue, err := s.Queue(ctx, mode, scope, opts...)
	if err != nil {
		return nil, err
	}

	sess := New(s.newID(), mode, scope, queue, s.clock())
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"session_id": sess.ID,
		"mode":       mode,
		"scope":      scope,
		"cards":      sess.TotalCards,
	}).Info("session started")
	return sess, nil
}

// RecordReview applies a rating to a card in the session: the card is
// rescheduled, the review is logged and the session aggregate is updated, all
// in one commit. Nothing changes on an invalid rating, a closed session, a
// card outside the session, a card already rated in it or a failed write.
func (s *Service) RecordReview(ctx context.Context, sess *StudySession, cardID string, rating spacedrep.Rating) (spacedrep.ScheduleState, *StudySession, error) {
	if err := rating.Validate(); err != nil {
		return spacedrep.ScheduleState{}, sess, err
	}
	if sess.IsClosed() {
		return spacedrep.ScheduleState{}, sess, ErrSessionClosed
	}
	if !sess.Contains(cardID) {
		return spacedrep.ScheduleState{}, sess, fmt.Errorf("%w: %s", ErrCardNotInSession, cardID)
	}
	if sess.HasReviewed(cardID) {
		return spacedrep.ScheduleState{}, sess, fmt.Errorf("%w: %s", ErrCardAlreadyReviewed, cardID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	for attempt := 1; ; attempt++ {
		card, err := s.cards.Get(ctx, cardID)
		if err != nil {
			return spacedrep.ScheduleState{}, sess, fmt.Errorf("get card %s: %w", cardID, err)
		}
		next, err := spacedrep.Update(card.Schedule, rating, now)
		if err != nil {
			return spacedrep.ScheduleState{}, sess, err
		}

		// The caller's session only changes once the commit succeeds.
		updated := sess.Clone()
		if err := updated.RecordCard(cardID, rating); err != nil {
			return spacedrep.ScheduleState{}, sess, err
		}

		err = s.sessions.CommitReview(ctx, ReviewCommit{
			Event: ReviewEvent{
				SessionID:  sess.ID,
				CardID:     cardID,
				Rating:     rating,
				ReviewedAt: now,
				Schedule:   next,
			},
			ExpectedVersion: card.Version,
			Session:         updated,
		})
		if err == nil {
			*sess = *updated
			s.log.WithFields(logrus.Fields{
				"session_id": sess.ID,
				"card_id":    cardID,
				"rating":     int(rating),
				"interval":   next.IntervalDays,
			}).Debug("card reviewed")
			return next, sess, nil
		}
		if !errors.Is(err, deck.ErrVersionConflict) || attempt >= maxScheduleAttempts {
			return spacedrep.ScheduleState{}, sess, fmt.Errorf("commit review %s: %w", cardID, err)
		}
		s.log.WithFields(logrus.Fields{"card_id": cardID, "attempt": attempt}).Warn("schedule write conflict, retrying")
	}
}

// EndSession closes the session, recomputes streaks from session history and
// folds the session into lifetime progress.
func (s *Service) EndSession(ctx context.Context, sess *StudySession) (*StudySession, StudyProgress, error) {
	if sess.IsClosed() {
		return sess, StudyProgress{}, ErrSessionClosed
	}

	now := s.clock()
	sess.Close(now)
	if err := s.sessions.Save(ctx, sess); err != nil {
		return sess, StudyProgress{}, fmt.Errorf("save session: %w", err)
	}

	starts, err := s.sessions.StartTimes(ctx)
	if err != nil {
		return sess, StudyProgress{}, fmt.Errorf("load session history: %w", err)
	}
	streaks := streak.Compute(starts, now)

	progress, err := s.progress.Load(ctx)
	if err != nil {
		return sess, StudyProgress{}, fmt.Errorf("load progress: %w", err)
	}
	if err := progress.Apply(sess, streaks); err != nil {
		return sess, StudyProgress{}, err
	}
	if err := s.progress.Save(ctx, progress); err != nil {
		return sess, StudyProgress{}, fmt.Errorf("save progress: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"session_id":     sess.ID,
		"reviewed":       sess.CardsReviewed,
		"success_rate":   sess.SuccessRate(),
		"current_streak": progress.CurrentStreak,
	}).Info("session ended")
	return sess, progress, nil
}

// Overview summarizes the deck and lifetime progress for reporting.
type Overview struct {
	Distribution  mastery.Distribution
	DueNow        int
	Forecast      []int
	Progress      StudyProgress
	Streak        streak.Result
	NextMilestone int
}

// forecastDays is the horizon reported by Overview.
const forecastDays = 7

// Overview computes the current deck distribution, due counts and streaks.
func (s *Service) Overview(ctx context.Context) (Overview, error) {
	cards, err := s.cards.List(ctx)
	if err != nil {
		return Overview{}, fmt.Errorf("list cards: %w", err)
	}
	progress, err := s.progress.Load(ctx)
	if err != nil {
		return Overview{}, fmt.Errorf("load progress: %w", err)
	}
	starts, err := s.sessions.StartTimes(ctx)
	if err != nil {
		return Overview{}, fmt.Errorf("load session history: %w", err)
	}

	now := s.clock()
	due := 0
	for _, c := range cards {
		if c.Schedule.IsDue(now) {
			due++
		}
	}
	st := streak.Compute(starts, now)

	return Overview{
		Distribution:  s.policy.Distribute(deck.States(cards)),
		DueNow:        due,
		Forecast:      spacedrep.Forecast(deck.Candidates(cards), now, forecastDays),
		Progress:      progress,
		Streak:        st,
		NextMilestone: streak.NextMilestone(st.Current),
	}, nil
}
