package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/abhisek/rehearse/internal/session"
	"github.com/abhisek/rehearse/internal/spacedrep"
)

var sessionColumns = []string{
	"id", "mode", "scope", "queue", "total_cards", "cards_reviewed", "cards_remaining",
	"rating_counts", "average_rating", "reviewed", "started_at", "ended_at",
}

type sessionRow struct {
	ID             string         `db:"id"`
	Mode           string         `db:"mode"`
	Scope          string         `db:"scope"`
	Queue          string         `db:"queue"`
	TotalCards     int            `db:"total_cards"`
	CardsReviewed  int            `db:"cards_reviewed"`
	CardsRemaining int            `db:"cards_remaining"`
	RatingCounts   string         `db:"rating_counts"`
	AverageRating  float64        `db:"average_rating"`
	Reviewed       string         `db:"reviewed"`
	StartedAt      string         `db:"started_at"`
	EndedAt        sql.NullString `db:"ended_at"`
}

func (r sessionRow) toSession() (*session.StudySession, error) {
	s := &session.StudySession{
		ID:             r.ID,
		Mode:           spacedrep.Mode(r.Mode),
		Scope:          r.Scope,
		TotalCards:     r.TotalCards,
		CardsReviewed:  r.CardsReviewed,
		CardsRemaining: r.CardsRemaining,
		AverageRating:  r.AverageRating,
	}
	if err := json.Unmarshal([]byte(r.Queue), &s.Queue); err != nil {
		return nil, fmt.Errorf("decode queue: %w", err)
	}
	if err := json.Unmarshal([]byte(r.RatingCounts), &s.RatingCounts); err != nil {
		return nil, fmt.Errorf("decode rating counts: %w", err)
	}
	if err := json.Unmarshal([]byte(r.Reviewed), &s.Reviewed); err != nil {
		return nil, fmt.Errorf("decode reviewed cards: %w", err)
	}
	started, err := parseTime(r.StartedAt)
	if err != nil {
		return nil, err
	}
	s.StartedAt = started
	if s.EndedAt, err = parseTimePtr(r.EndedAt); err != nil {
		return nil, err
	}
	return s, nil
}

// ReviewRecord is a stored review event.
type ReviewRecord struct {
	ID              string  `db:"id"`
	SessionID       string  `db:"session_id"`
	CardID          string  `db:"card_id"`
	Rating          int     `db:"rating"`
	EasinessFactor  float64 `db:"easiness_factor"`
	RepetitionCount int     `db:"repetition_count"`
	IntervalDays    int     `db:"interval_days"`
	ReviewedAt      string  `db:"reviewed_at"`
}

// SessionStore persists study sessions and review events.
type SessionStore struct {
	s *Store
}

// Save inserts or replaces a session.
func (r *SessionStore) Save(ctx context.Context, sess *session.StudySession) error {
	return r.save(ctx, r.s.db, sess)
}

func (r *SessionStore) save(ctx context.Context, ex sqlx.ExecerContext, sess *session.StudySession) error {
	queue, err := json.Marshal(sess.Queue)
	if err != nil {
		return fmt.Errorf("encode queue: %w", err)
	}
	counts, err := json.Marshal(sess.RatingCounts)
	if err != nil {
		return fmt.Errorf("encode rating counts: %w", err)
	}
	reviewed := sess.Reviewed
	if reviewed == nil {
		reviewed = []string{}
	}
	done, err := json.Marshal(reviewed)
	if err != nil {
		return fmt.Errorf("encode reviewed cards: %w", err)
	}

	q, args := r.s.sql().Insert("sessions").
		Columns(sessionColumns...).
		Values(sess.ID, string(sess.Mode), sess.Scope, string(queue), sess.TotalCards, sess.CardsReviewed,
			sess.CardsRemaining, string(counts), sess.AverageRating, string(done),
			formatTime(sess.StartedAt), formatTimePtr(sess.EndedAt)).
		OnConflict(entsql.ConflictColumns("id"), entsql.ResolveWithNewValues()).
		Query()
	if _, err := ex.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("save session %s: %w", sess.ID, err)
	}
	return nil
}

// Get returns a session by id.
func (r *SessionStore) Get(ctx context.Context, id string) (*session.StudySession, error) {
	b := r.s.sql()
	q, args := b.Select(sessionColumns...).From(b.Table("sessions")).Where(entsql.EQ("id", id)).Query()

	var row sessionRow
	if err := r.s.db.GetContext(ctx, &row, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}
	return row.toSession()
}

// Recent returns up to limit sessions, newest first.
func (r *SessionStore) Recent(ctx context.Context, limit int) ([]*session.StudySession, error) {
	b := r.s.sql()
	sel := b.Select(sessionColumns...).From(b.Table("sessions")).OrderBy(entsql.Desc("started_at"))
	if limit > 0 {
		sel.Limit(limit)
	}
	q, args := sel.Query()

	var rows []sessionRow
	if err := r.s.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	out := make([]*session.StudySession, 0, len(rows))
	for _, row := range rows {
		s, err := row.toSession()
		if err != nil {
			return nil, fmt.Errorf("session %s: %w", row.ID, err)
		}
		out = append(out, s)
	}
	return out, nil
}

// StartTimes returns the start times of finished sessions with at least one
// rating, oldest first.
func (r *SessionStore) StartTimes(ctx context.Context) ([]time.Time, error) {
	b := r.s.sql()
	q, args := b.Select("started_at").From(b.Table("sessions")).
		Where(entsql.And(entsql.NotNull("ended_at"), entsql.GT("cards_reviewed", 0))).
		OrderBy("started_at").
		Query()

	var raw []string
	if err := r.s.db.SelectContext(ctx, &raw, q, args...); err != nil {
		return nil, fmt.Errorf("list session start times: %w", err)
	}
	out := make([]time.Time, 0, len(raw))
	for _, s := range raw {
		t, err := parseTime(s)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// AppendReview records one review event.
func (r *SessionStore) AppendReview(ctx context.Context, ev session.ReviewEvent) error {
	return r.appendReview(ctx, r.s.db, ev)
}

func (r *SessionStore) appendReview(ctx context.Context, ex sqlx.ExecerContext, ev session.ReviewEvent) error {
	q, args := r.s.sql().Insert("review_events").
		Columns("id", "session_id", "card_id", "rating", "easiness_factor", "repetition_count", "interval_days", "reviewed_at").
		Values(uuid.New().String(), ev.SessionID, ev.CardID, int(ev.Rating), ev.Schedule.EasinessFactor,
			ev.Schedule.RepetitionCount, ev.Schedule.IntervalDays, formatTime(ev.ReviewedAt)).
		Query()
	if _, err := ex.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("append review for %s: %w", ev.CardID, err)
	}
	return nil
}

// CommitReview stores the card's new schedule, the review event and the
// updated session in one transaction. On a version mismatch nothing is
// written and ErrVersionConflict is returned.
func (r *SessionStore) CommitReview(ctx context.Context, c session.ReviewCommit) error {
	ev := c.Event
	return r.s.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := r.s.Cards().saveSchedule(ctx, tx, ev.CardID, ev.Schedule, c.ExpectedVersion); err != nil {
			return err
		}
		if err := r.appendReview(ctx, tx, ev); err != nil {
			return err
		}
		return r.save(ctx, tx, c.Session)
	})
}

// Reviews returns a session's review events in the order they were given.
func (r *SessionStore) Reviews(ctx context.Context, sessionID string) ([]ReviewRecord, error) {
	b := r.s.sql()
	q, args := b.Select("id", "session_id", "card_id", "rating", "easiness_factor", "repetition_count", "interval_days", "reviewed_at").
		From(b.Table("review_events")).
		Where(entsql.EQ("session_id", sessionID)).
		OrderBy("reviewed_at").
		Query()

	var out []ReviewRecord
	if err := r.s.db.SelectContext(ctx, &out, q, args...); err != nil {
		return nil, fmt.Errorf("list reviews of %s: %w", sessionID, err)
	}
	return out, nil
}
