package store

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/rehearse/internal/deck"
	"github.com/abhisek/rehearse/internal/readiness"
	"github.com/abhisek/rehearse/internal/session"
	"github.com/abhisek/rehearse/internal/spacedrep"
)

var storeNow = time.Date(2025, 7, 1, 18, 30, 0, 0, time.UTC)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	s, err := Open(DriverSQLite, fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err, "open test store")
	s.now = func() time.Time { return storeNow }
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open("oracle", "x")
	assert.ErrorIs(t, err, ErrUnsupportedDriver)
}

func TestPragmasApplied(t *testing.T) {
	s := openTestStore(t)

	tests := []struct {
		pragma string
		want   string
	}{
		// journal_mode stays "memory" for in-memory databases.
		{"foreign_keys", "1"},
		{"synchronous", "1"},
		{"busy_timeout", "5000"},
	}
	for _, tt := range tests {
		var got string
		require.NoError(t, s.DB().QueryRow("PRAGMA "+tt.pragma).Scan(&got), tt.pragma)
		assert.Equal(t, tt.want, got, "PRAGMA %s", tt.pragma)
	}
}

func TestCards_UpsertListGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	cards := s.Cards()

	require.NoError(t, cards.Upsert(ctx,
		deck.Card{ID: "b", Front: "second?"},
		deck.Card{ID: "a", Front: "first?", ApplicationID: "acme", Kind: "answer"},
	))
	require.NoError(t, cards.Upsert(ctx, deck.Card{ID: "c", Front: "third?"}))

	list, err := cards.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"b", "a", "c"}, []string{list[0].ID, list[1].ID, list[2].ID}, "insertion order")
	assert.Nil(t, list[0].Schedule)
	assert.Equal(t, deck.KindFlashcard, list[0].Kind)
	assert.True(t, list[0].CreatedAt.Equal(storeNow))

	got, err := cards.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "acme", got.ApplicationID)
	assert.Equal(t, deck.KindAnswer, got.Kind)

	_, err = cards.Get(ctx, "zzz")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCards_UpsertRejectsInvalid(t *testing.T) {
	s := openTestStore(t)
	err := s.Cards().Upsert(context.Background(), deck.Card{ID: "ok", Front: "x"}, deck.Card{ID: "bad"})
	assert.ErrorIs(t, err, deck.ErrInvalidCard)

	list, err := s.Cards().List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list, "batch is rolled back")
}

func TestCards_SaveScheduleAndReimport(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	cards := s.Cards()
	require.NoError(t, cards.Upsert(ctx, deck.Card{ID: "c1", Front: "old"}))

	state, err := spacedrep.Update(nil, spacedrep.RatingPerfect, storeNow)
	require.NoError(t, err)
	v, err := cards.SaveSchedule(ctx, "c1", state, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	// Re-importing updates content but keeps the schedule.
	require.NoError(t, cards.Upsert(ctx, deck.Card{ID: "c1", Front: "new"}))

	got, err := cards.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "new", got.Front)
	assert.Equal(t, 1, got.Version)
	require.NotNil(t, got.Schedule)
	assert.InDelta(t, 2.6, got.Schedule.EasinessFactor, 1e-9)
	assert.Equal(t, 1, got.Schedule.RepetitionCount)
	assert.True(t, got.Schedule.NextReviewAt.Equal(storeNow.AddDate(0, 0, 1)))
	assert.True(t, got.Schedule.LastReviewedAt.Equal(storeNow))
}

func TestCards_SaveScheduleConflict(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	cards := s.Cards()
	require.NoError(t, cards.Upsert(ctx, deck.Card{ID: "c1", Front: "q"}))

	state, _ := spacedrep.Update(nil, spacedrep.RatingCorrectHesitation, storeNow)
	_, err := cards.SaveSchedule(ctx, "c1", state, 0)
	require.NoError(t, err)

	_, err = cards.SaveSchedule(ctx, "c1", state, 0)
	assert.ErrorIs(t, err, ErrVersionConflict)

	_, err = cards.SaveSchedule(ctx, "missing", state, 0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCards_FindAndApplications(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	cards := s.Cards()
	require.NoError(t, cards.Upsert(ctx,
		deck.Card{ID: "a1", Front: "q", ApplicationID: "acme", Kind: "story"},
		deck.Card{ID: "a2", Front: "q", ApplicationID: "acme"},
		deck.Card{ID: "g1", Front: "q", ApplicationID: "globex"},
		deck.Card{ID: "n1", Front: "q"},
	))
	state, _ := spacedrep.Update(nil, spacedrep.RatingPerfect, storeNow.AddDate(0, 0, -3))
	_, err := cards.SaveSchedule(ctx, "a2", state, 0)
	require.NoError(t, err)

	acme, err := cards.Find(ctx, CardFilter{ApplicationID: "acme"})
	require.NoError(t, err)
	assert.Len(t, acme, 2)

	stories, err := cards.Find(ctx, CardFilter{Kind: "story"})
	require.NoError(t, err)
	require.Len(t, stories, 1)
	assert.Equal(t, "a1", stories[0].ID)

	due, err := cards.Find(ctx, CardFilter{DueBefore: &storeNow})
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "a2", due[0].ID)

	apps, err := cards.Applications(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"acme", "globex"}, apps)
}

func TestCards_Delete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Cards().Upsert(ctx, deck.Card{ID: "c1", Front: "q"}))
	require.NoError(t, s.Cards().Delete(ctx, "c1"))
	assert.ErrorIs(t, s.Cards().Delete(ctx, "c1"), ErrNotFound)
}

func TestSessions_SaveGetAndReviews(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Cards().Upsert(ctx, deck.Card{ID: "c1", Front: "q"}, deck.Card{ID: "c2", Front: "q"}))

	sess := session.New("s1", spacedrep.ModeDaily, "", []string{"c1", "c2"}, storeNow)
	require.NoError(t, s.Sessions().Save(ctx, sess))
	require.NoError(t, sess.Record(spacedrep.RatingPerfect))

	state, _ := spacedrep.Update(nil, spacedrep.RatingPerfect, storeNow)
	require.NoError(t, s.Sessions().AppendReview(ctx, session.ReviewEvent{
		SessionID: "s1", CardID: "c1", Rating: spacedrep.RatingPerfect, ReviewedAt: storeNow, Schedule: state,
	}))
	sess.Close(storeNow.Add(4 * time.Minute))
	require.NoError(t, s.Sessions().Save(ctx, sess))

	got, err := s.Sessions().Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"c1", "c2"}, got.Queue)
	assert.Equal(t, 1, got.CardsReviewed)
	assert.Equal(t, 1, got.CardsRemaining)
	assert.Equal(t, 1, got.RatingCounts[spacedrep.RatingPerfect])
	assert.Len(t, got.RatingCounts, 6)
	require.NotNil(t, got.EndedAt)
	assert.Equal(t, 4*time.Minute, got.Duration())

	reviews, err := s.Sessions().Reviews(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, 5, reviews[0].Rating)
	assert.Equal(t, 1, reviews[0].IntervalDays)

	_, err = s.Sessions().Get(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSessions_CommitReview(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Cards().Upsert(ctx, deck.Card{ID: "c1", Front: "q"}, deck.Card{ID: "c2", Front: "q"}))
	sess := session.New("s1", spacedrep.ModeDaily, "", []string{"c1", "c2"}, storeNow)
	require.NoError(t, s.Sessions().Save(ctx, sess))

	state, _ := spacedrep.Update(nil, spacedrep.RatingPerfect, storeNow)
	updated := sess.Clone()
	require.NoError(t, updated.RecordCard("c1", spacedrep.RatingPerfect))
	require.NoError(t, s.Sessions().CommitReview(ctx, session.ReviewCommit{
		Event:           session.ReviewEvent{SessionID: "s1", CardID: "c1", Rating: spacedrep.RatingPerfect, ReviewedAt: storeNow, Schedule: state},
		ExpectedVersion: 0,
		Session:         updated,
	}))

	card, err := s.Cards().Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 1, card.Version)
	require.NotNil(t, card.Schedule)
	assert.Equal(t, 1, card.Schedule.RepetitionCount)

	reviews, err := s.Sessions().Reviews(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, reviews, 1)

	got, err := s.Sessions().Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.CardsReviewed)
	assert.Equal(t, []string{"c1"}, got.Reviewed)
	assert.True(t, got.HasReviewed("c1"))
}

func TestSessions_CommitReviewConflictWritesNothing(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Cards().Upsert(ctx, deck.Card{ID: "c1", Front: "q"}))
	sess := session.New("s1", spacedrep.ModeDaily, "", []string{"c1"}, storeNow)
	require.NoError(t, s.Sessions().Save(ctx, sess))

	state, _ := spacedrep.Update(nil, spacedrep.RatingPerfect, storeNow)
	updated := sess.Clone()
	require.NoError(t, updated.RecordCard("c1", spacedrep.RatingPerfect))
	err := s.Sessions().CommitReview(ctx, session.ReviewCommit{
		Event:           session.ReviewEvent{SessionID: "s1", CardID: "c1", Rating: spacedrep.RatingPerfect, ReviewedAt: storeNow, Schedule: state},
		ExpectedVersion: 7,
		Session:         updated,
	})
	assert.ErrorIs(t, err, ErrVersionConflict)

	card, err := s.Cards().Get(ctx, "c1")
	require.NoError(t, err)
	assert.Nil(t, card.Schedule)
	assert.Equal(t, 0, card.Version)

	reviews, err := s.Sessions().Reviews(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, reviews)

	got, err := s.Sessions().Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 0, got.CardsReviewed)
	assert.Empty(t, got.Reviewed)
}

func TestSessions_StartTimesSkipsOpenAndEmpty(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	sessions := s.Sessions()

	finished := session.New("done", spacedrep.ModeDaily, "", []string{"x"}, storeNow.AddDate(0, 0, -1))
	require.NoError(t, finished.Record(spacedrep.RatingCorrectDifficult))
	finished.Close(storeNow.AddDate(0, 0, -1).Add(time.Minute))

	empty := session.New("empty", spacedrep.ModeDaily, "", nil, storeNow.AddDate(0, 0, -2))
	empty.Close(storeNow.AddDate(0, 0, -2))

	open := session.New("open", spacedrep.ModeQuick, "", []string{"x"}, storeNow)
	require.NoError(t, open.Record(spacedrep.RatingPerfect))

	for _, sess := range []*session.StudySession{finished, empty, open} {
		require.NoError(t, sessions.Save(ctx, sess))
	}

	starts, err := sessions.StartTimes(ctx)
	require.NoError(t, err)
	require.Len(t, starts, 1)
	assert.True(t, starts[0].Equal(finished.StartedAt))

	recent, err := sessions.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "open", recent[0].ID)
}

func TestProgress_LoadSave(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	p, err := s.Progress().Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, p.SessionsCompleted)
	assert.Len(t, p.TotalRatings, 6)

	p.SessionsCompleted = 3
	p.LongestStreak = 4
	p.TotalRatings[spacedrep.RatingCorrectHesitation] = 7
	require.NoError(t, s.Progress().Save(ctx, p))
	p.SessionsCompleted = 4
	require.NoError(t, s.Progress().Save(ctx, p))

	got, err := s.Progress().Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, got.SessionsCompleted)
	assert.Equal(t, 4, got.LongestStreak)
	assert.Equal(t, 7, got.TotalRatings[spacedrep.RatingCorrectHesitation])
}

func TestPrep_ChecklistAndQuestions(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	prep := s.Prep()

	require.NoError(t, prep.UpsertChecklist(ctx,
		readiness.ChecklistItem{ID: "k1", ApplicationID: "acme", Label: "research", Required: true},
		readiness.ChecklistItem{ID: "k2", ApplicationID: "acme", Label: "portfolio", Required: false},
		readiness.ChecklistItem{ID: "k3", ApplicationID: "globex", Label: "other", Required: true},
	))
	require.NoError(t, prep.SetCompleted(ctx, "k1", true))
	assert.ErrorIs(t, prep.SetCompleted(ctx, "missing", true), ErrNotFound)

	items, err := prep.Checklist(ctx, "acme")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "k1", items[0].ID)
	assert.True(t, items[0].Completed)
	assert.False(t, items[1].Required)

	require.NoError(t, prep.UpsertQuestions(ctx,
		readiness.Question{ID: "q1", ApplicationID: "acme", Text: "Why us?", Likelihood: readiness.LikelihoodHigh},
		readiness.Question{ID: "q2", ApplicationID: "acme", Text: "Weakness?", Likelihood: readiness.LikelihoodLow},
	))
	require.NoError(t, prep.RecordPractice(ctx, "q1"))
	require.NoError(t, prep.RecordPractice(ctx, "q1"))
	assert.ErrorIs(t, prep.RecordPractice(ctx, "nope"), ErrNotFound)

	// Re-import keeps practice counts.
	require.NoError(t, prep.UpsertQuestions(ctx,
		readiness.Question{ID: "q1", ApplicationID: "acme", Text: "Why acme?", Likelihood: readiness.LikelihoodHigh},
	))

	qs, err := prep.Questions(ctx, "acme")
	require.NoError(t, err)
	require.Len(t, qs, 2)
	assert.Equal(t, "Why acme?", qs[0].Text)
	assert.Equal(t, 2, qs[0].PracticeCount)
	assert.Equal(t, readiness.LikelihoodLow, qs[1].Likelihood)

	// Checklist 1/1, high-likelihood 1/1, practiced 1/2.
	assert.Equal(t, 90, readiness.InterviewPrep(items, qs))
}
