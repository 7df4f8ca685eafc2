package session

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/rehearse/internal/deck"
	"github.com/abhisek/rehearse/internal/spacedrep"
)

type fakeCardRepo struct {
	mu        sync.Mutex
	order     []string
	cards     map[string]deck.Card
	conflicts int
}

func newFakeCardRepo(cards ...deck.Card) *fakeCardRepo {
	r := &fakeCardRepo{cards: make(map[string]deck.Card)}
	for _, c := range cards {
		r.order = append(r.order, c.ID)
		r.cards[c.ID] = c
	}
	return r
}

func (r *fakeCardRepo) List(ctx context.Context) ([]deck.Card, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]deck.Card, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.cards[id])
	}
	return out, nil
}

func (r *fakeCardRepo) Get(ctx context.Context, id string) (deck.Card, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.cards[id]
	if !ok {
		return deck.Card{}, deck.ErrNotFound
	}
	return c, nil
}

func (r *fakeCardRepo) SaveSchedule(ctx context.Context, id string, state spacedrep.ScheduleState, expectedVersion int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.cards[id]
	if !ok {
		return 0, deck.ErrNotFound
	}
	if r.conflicts > 0 {
		// Simulate a concurrent writer bumping the version.
		r.conflicts--
		c.Version++
		r.cards[id] = c
		return 0, deck.ErrVersionConflict
	}
	if c.Version != expectedVersion {
		return 0, deck.ErrVersionConflict
	}
	c.Schedule = state.Clone()
	c.Version++
	r.cards[id] = c
	return c.Version, nil
}

type fakeSessionRepo struct {
	mu        sync.Mutex
	cards     *fakeCardRepo
	sessions  map[string]StudySession
	reviews   []ReviewEvent
	history   []time.Time
	commitErr error
}

func newFakeSessionRepo(history ...time.Time) *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]StudySession), history: history}
}

func (r *fakeSessionRepo) Save(ctx context.Context, s *StudySession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = *s
	return nil
}

func (r *fakeSessionRepo) CommitReview(ctx context.Context, c ReviewCommit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.commitErr != nil {
		return r.commitErr
	}
	if _, err := r.cards.SaveSchedule(ctx, c.Event.CardID, c.Event.Schedule, c.ExpectedVersion); err != nil {
		return err
	}
	r.reviews = append(r.reviews, c.Event)
	r.sessions[c.Session.ID] = *c.Session.Clone()
	return nil
}

func (r *fakeSessionRepo) StartTimes(ctx context.Context) ([]time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := append([]time.Time{}, r.history...)
	for _, s := range r.sessions {
		if s.IsClosed() && s.HasRatings() {
			out = append(out, s.StartedAt)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}

type fakeProgressRepo struct {
	mu sync.Mutex
	p  StudyProgress
}

func (r *fakeProgressRepo) Load(ctx context.Context) (StudyProgress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.p, nil
}

func (r *fakeProgressRepo) Save(ctx context.Context, p StudyProgress) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.p = p
	return nil
}

var svcNow = time.Date(2025, 6, 2, 20, 0, 0, 0, time.UTC)

func dueCard(id string, daysOverdue int) deck.Card {
	next := svcNow.AddDate(0, 0, -daysOverdue)
	last := next.AddDate(0, 0, -6)
	return deck.Card{
		ID:       id,
		Front:    id,
		Kind:     deck.KindFlashcard,
		Schedule: &spacedrep.ScheduleState{EasinessFactor: 2.5, RepetitionCount: 2, IntervalDays: 6, LastReviewedAt: &last, NextReviewAt: &next},
	}
}

type fixture struct {
	cards    *fakeCardRepo
	sessions *fakeSessionRepo
	progress *fakeProgressRepo
	svc      *Service
}

func newFixture(cards ...deck.Card) *fixture {
	f := &fixture{
		cards:    newFakeCardRepo(cards...),
		sessions: newFakeSessionRepo(),
		progress: &fakeProgressRepo{p: NewProgress()},
	}
	f.sessions.cards = f.cards
	f.svc = NewService(f.cards, f.sessions, f.progress, WithClock(func() time.Time { return svcNow }))
	return f
}

func TestService_StartSession(t *testing.T) {
	f := newFixture(
		deck.Card{ID: "new-1", Front: "q"},
		dueCard("due-1", 1),
		dueCard("due-4", 4),
	)

	sess, err := f.svc.StartSession(context.Background(), spacedrep.ModeDaily, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"due-4", "due-1", "new-1"}, sess.Queue)
	assert.Equal(t, 3, sess.TotalCards)
	assert.NotEmpty(t, sess.ID)
	assert.Contains(t, f.sessions.sessions, sess.ID)
}

func TestService_StartSession_Errors(t *testing.T) {
	f := newFixture()
	_, err := f.svc.StartSession(context.Background(), spacedrep.ModeApplication, "")
	assert.ErrorIs(t, err, spacedrep.ErrMissingScope)

	_, err = f.svc.StartSession(context.Background(), spacedrep.Mode("monthly"), "")
	assert.ErrorIs(t, err, spacedrep.ErrUnknownMode)
}

func TestService_StartSession_EmptyPool(t *testing.T) {
	f := newFixture()
	sess, err := f.svc.StartSession(context.Background(), spacedrep.ModeDaily, "")
	require.NoError(t, err)
	assert.Empty(t, sess.Queue)
	assert.Equal(t, 0, sess.TotalCards)
}

func TestService_StartSession_WithFilter(t *testing.T) {
	story := deck.Card{ID: "story", Front: "q", Kind: deck.KindStory, ApplicationID: "acme"}
	answer := deck.Card{ID: "answer", Front: "q", Kind: deck.KindAnswer, ApplicationID: "acme"}
	other := deck.Card{ID: "other", Front: "q", Kind: deck.KindStory, ApplicationID: "globex"}
	f := newFixture(story, answer, other)

	onlyStories := spacedrep.ScopeFunc(func(c spacedrep.Candidate) bool { return c.Kind == deck.KindStory })
	sess, err := f.svc.StartSession(context.Background(), spacedrep.ModeApplication, "acme", WithFilter(onlyStories))
	require.NoError(t, err)
	assert.Equal(t, []string{"story"}, sess.Queue)
}

func TestService_RecordReview(t *testing.T) {
	f := newFixture(deck.Card{ID: "c1", Front: "q"})
	ctx := context.Background()

	sess, err := f.svc.StartSession(ctx, spacedrep.ModeDaily, "")
	require.NoError(t, err)

	state, sess, err := f.svc.RecordReview(ctx, sess, "c1", spacedrep.RatingPerfect)
	require.NoError(t, err)
	assert.Equal(t, 1, state.RepetitionCount)
	assert.Equal(t, 1, state.IntervalDays)
	assert.InDelta(t, 2.6, state.EasinessFactor, 1e-9)
	assert.Equal(t, 1, sess.CardsReviewed)

	stored, err := f.cards.Get(ctx, "c1")
	require.NoError(t, err)
	require.NotNil(t, stored.Schedule)
	assert.Equal(t, 1, stored.Version)
	assert.True(t, stored.Schedule.NextReviewAt.Equal(svcNow.AddDate(0, 0, 1)))

	require.Len(t, f.sessions.reviews, 1)
	assert.Equal(t, "c1", f.sessions.reviews[0].CardID)
	assert.Equal(t, 1, f.sessions.sessions[sess.ID].CardsReviewed)
}

func TestService_RecordReview_Rejections(t *testing.T) {
	f := newFixture(deck.Card{ID: "c1", Front: "q"})
	ctx := context.Background()
	sess, err := f.svc.StartSession(ctx, spacedrep.ModeDaily, "")
	require.NoError(t, err)

	_, _, err = f.svc.RecordReview(ctx, sess, "c1", spacedrep.Rating(9))
	assert.ErrorIs(t, err, spacedrep.ErrInvalidRating)

	_, _, err = f.svc.RecordReview(ctx, sess, "missing", spacedrep.RatingPerfect)
	assert.ErrorIs(t, err, ErrCardNotInSession)

	stored, _ := f.cards.Get(ctx, "c1")
	assert.Nil(t, stored.Schedule, "rejected reviews must not reschedule")
	assert.Equal(t, 0, sess.CardsReviewed)
	assert.Empty(t, f.sessions.reviews)

	_, _, err = f.svc.EndSession(ctx, sess)
	require.NoError(t, err)
	_, _, err = f.svc.RecordReview(ctx, sess, "c1", spacedrep.RatingPerfect)
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestService_RecordReview_RejectsRepeat(t *testing.T) {
	f := newFixture(deck.Card{ID: "c1", Front: "q"}, deck.Card{ID: "c2", Front: "q"})
	ctx := context.Background()
	sess, err := f.svc.StartSession(ctx, spacedrep.ModeDaily, "")
	require.NoError(t, err)

	_, _, err = f.svc.RecordReview(ctx, sess, "c1", spacedrep.RatingIncorrect)
	require.NoError(t, err)
	_, _, err = f.svc.RecordReview(ctx, sess, "c1", spacedrep.RatingPerfect)
	assert.ErrorIs(t, err, ErrCardAlreadyReviewed)

	stored, _ := f.cards.Get(ctx, "c1")
	assert.Equal(t, 0, stored.Schedule.RepetitionCount)
	assert.Equal(t, 1, stored.Version)
	assert.Equal(t, 1, sess.CardsReviewed)
	assert.Equal(t, []string{"c1"}, sess.Reviewed)
	assert.Len(t, f.sessions.reviews, 1)

	_, _, err = f.svc.RecordReview(ctx, sess, "c2", spacedrep.RatingPerfect)
	require.NoError(t, err)
	assert.Equal(t, 2, sess.CardsReviewed)
}

func TestService_RecordReview_FailedCommitLeavesStateUnchanged(t *testing.T) {
	f := newFixture(dueCard("c1", 0))
	ctx := context.Background()
	sess, err := f.svc.StartSession(ctx, spacedrep.ModeDaily, "")
	require.NoError(t, err)

	f.sessions.commitErr = errors.New("disk full")
	_, got, err := f.svc.RecordReview(ctx, sess, "c1", spacedrep.RatingPerfect)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Same(t, sess, got)

	stored, _ := f.cards.Get(ctx, "c1")
	assert.Equal(t, 2, stored.Schedule.RepetitionCount)
	assert.Equal(t, 0, stored.Version)
	assert.Equal(t, 0, sess.CardsReviewed)
	assert.Empty(t, sess.Reviewed)
	assert.Equal(t, 0, sess.RatingTotal())
	assert.Empty(t, f.sessions.reviews)
	assert.Equal(t, 0, f.sessions.sessions[sess.ID].CardsReviewed)

	// The card can still be rated once the store recovers.
	f.sessions.commitErr = nil
	_, _, err = f.svc.RecordReview(ctx, sess, "c1", spacedrep.RatingPerfect)
	require.NoError(t, err)
	assert.Equal(t, 1, sess.CardsReviewed)
}

func TestService_RecordReview_RetriesConflict(t *testing.T) {
	f := newFixture(dueCard("c1", 0))
	f.cards.conflicts = 1
	ctx := context.Background()

	sess, err := f.svc.StartSession(ctx, spacedrep.ModeDaily, "")
	require.NoError(t, err)
	_, _, err = f.svc.RecordReview(ctx, sess, "c1", spacedrep.RatingCorrectHesitation)
	require.NoError(t, err)

	stored, _ := f.cards.Get(ctx, "c1")
	assert.Equal(t, 3, stored.Schedule.RepetitionCount)
	assert.Equal(t, 2, stored.Version)
}

func TestService_RecordReview_GivesUpAfterRepeatedConflicts(t *testing.T) {
	f := newFixture(dueCard("c1", 0))
	f.cards.conflicts = maxScheduleAttempts
	ctx := context.Background()

	sess, err := f.svc.StartSession(ctx, spacedrep.ModeDaily, "")
	require.NoError(t, err)
	_, _, err = f.svc.RecordReview(ctx, sess, "c1", spacedrep.RatingPerfect)
	assert.True(t, errors.Is(err, deck.ErrVersionConflict), "error = %v", err)
	assert.Equal(t, 0, sess.CardsReviewed)
}

func TestService_EndSession(t *testing.T) {
	f := newFixture(deck.Card{ID: "c1", Front: "q"}, deck.Card{ID: "c2", Front: "q"})
	f.sessions.history = []time.Time{svcNow.AddDate(0, 0, -2), svcNow.AddDate(0, 0, -1)}
	ctx := context.Background()

	sess, err := f.svc.StartSession(ctx, spacedrep.ModeDaily, "")
	require.NoError(t, err)
	_, _, err = f.svc.RecordReview(ctx, sess, "c1", spacedrep.RatingPerfect)
	require.NoError(t, err)
	_, _, err = f.svc.RecordReview(ctx, sess, "c2", spacedrep.RatingIncorrect)
	require.NoError(t, err)

	closed, progress, err := f.svc.EndSession(ctx, sess)
	require.NoError(t, err)
	assert.True(t, closed.IsClosed())
	assert.Equal(t, 3, progress.CurrentStreak)
	assert.Equal(t, 3, progress.LongestStreak)
	assert.Equal(t, 2, progress.TotalCardsReviewed)
	assert.Equal(t, 1, progress.SessionsCompleted)
	assert.Equal(t, progress, f.progress.p)

	_, _, err = f.svc.EndSession(ctx, sess)
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestService_Overview(t *testing.T) {
	mastered := dueCard("m", -10)
	mastered.Schedule.RepetitionCount = 6
	f := newFixture(deck.Card{ID: "n", Front: "q"}, dueCard("d", 2), mastered)

	ov, err := f.svc.Overview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, ov.Distribution.New)
	assert.Equal(t, 1, ov.Distribution.Reviewing)
	assert.Equal(t, 1, ov.Distribution.Mastered)
	assert.Equal(t, 1, ov.DueNow)
	require.Len(t, ov.Forecast, forecastDays)
	assert.Equal(t, 1, ov.Forecast[0])
	assert.Equal(t, 5, ov.NextMilestone)
}
