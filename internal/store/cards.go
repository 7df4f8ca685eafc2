package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/jmoiron/sqlx"

	"github.com/abhisek/rehearse/internal/deck"
	"github.com/abhisek/rehearse/internal/spacedrep"
)

var cardColumns = []string{
	"id", "application_id", "kind", "front", "back",
	"easiness_factor", "repetition_count", "interval_days",
	"last_reviewed_at", "next_review_at", "version", "position", "created_at",
}

type cardRow struct {
	ID              string          `db:"id"`
	ApplicationID   string          `db:"application_id"`
	Kind            string          `db:"kind"`
	Front           string          `db:"front"`
	Back            string          `db:"back"`
	EasinessFactor  sql.NullFloat64 `db:"easiness_factor"`
	RepetitionCount int             `db:"repetition_count"`
	IntervalDays    int             `db:"interval_days"`
	LastReviewedAt  sql.NullString  `db:"last_reviewed_at"`
	NextReviewAt    sql.NullString  `db:"next_review_at"`
	Version         int             `db:"version"`
	Position        int64           `db:"position"`
	CreatedAt       string          `db:"created_at"`
}

func (r cardRow) toCard() (deck.Card, error) {
	created, err := parseTime(r.CreatedAt)
	if err != nil {
		return deck.Card{}, err
	}
	c := deck.Card{
		ID:            r.ID,
		ApplicationID: r.ApplicationID,
		Kind:          r.Kind,
		Front:         r.Front,
		Back:          r.Back,
		Version:       r.Version,
		CreatedAt:     created,
	}
	// A card without an easiness factor has never been reviewed.
	if !r.EasinessFactor.Valid {
		return c, nil
	}
	last, err := parseTimePtr(r.LastReviewedAt)
	if err != nil {
		return deck.Card{}, err
	}
	next, err := parseTimePtr(r.NextReviewAt)
	if err != nil {
		return deck.Card{}, err
	}
	c.Schedule = &spacedrep.ScheduleState{
		EasinessFactor:  r.EasinessFactor.Float64,
		RepetitionCount: r.RepetitionCount,
		IntervalDays:    r.IntervalDays,
		LastReviewedAt:  last,
		NextReviewAt:    next,
	}
	return c, nil
}

// CardFilter narrows Find. Empty fields match everything.
type CardFilter struct {
	ApplicationID string
	Kind          string
	// DueBefore keeps only reviewed cards due at or before the given time.
	DueBefore *time.Time
}

// CardStore persists cards and their schedules.
type CardStore struct {
	s *Store
}

// Upsert inserts new cards at the end of the deck and updates the content
// of existing ones. Schedules and versions of existing cards are kept.
func (r *CardStore) Upsert(ctx context.Context, cards ...deck.Card) error {
	if len(cards) == 0 {
		return nil
	}
	return r.s.withTx(ctx, func(tx *sqlx.Tx) error {
		var last int64
		q, args := r.s.sql().Select("COALESCE(MAX(position), 0)").From(r.s.sql().Table("cards")).Query()
		if err := tx.GetContext(ctx, &last, q, args...); err != nil {
			return fmt.Errorf("next card position: %w", err)
		}

		now := formatTime(r.s.now())
		for i, c := range cards {
			if err := c.Validate(); err != nil {
				return err
			}
			q, args := r.s.sql().Insert("cards").
				Columns("id", "application_id", "kind", "front", "back", "version", "position", "created_at").
				Values(c.ID, c.ApplicationID, c.Kind, c.Front, c.Back, 0, last+int64(i)+1, now).
				OnConflict(
					entsql.ConflictColumns("id"),
					entsql.ResolveWith(func(u *entsql.UpdateSet) {
						u.SetExcluded("application_id")
						u.SetExcluded("kind")
						u.SetExcluded("front")
						u.SetExcluded("back")
					}),
				).Query()
			if _, err := tx.ExecContext(ctx, q, args...); err != nil {
				return fmt.Errorf("upsert card %s: %w", c.ID, err)
			}
		}
		return nil
	})
}

// Get returns a card by id.
func (r *CardStore) Get(ctx context.Context, id string) (deck.Card, error) {
	return r.get(ctx, r.s.db, id)
}

func (r *CardStore) get(ctx context.Context, q sqlx.QueryerContext, id string) (deck.Card, error) {
	b := r.s.sql()
	query, args := b.Select(cardColumns...).From(b.Table("cards")).Where(entsql.EQ("id", id)).Query()

	var row cardRow
	if err := sqlx.GetContext(ctx, q, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return deck.Card{}, fmt.Errorf("card %s: %w", id, ErrNotFound)
		}
		return deck.Card{}, fmt.Errorf("get card %s: %w", id, err)
	}
	return row.toCard()
}

// List returns every card in insertion order.
func (r *CardStore) List(ctx context.Context) ([]deck.Card, error) {
	return r.Find(ctx, CardFilter{})
}

// Find returns the cards matching f in insertion order.
func (r *CardStore) Find(ctx context.Context, f CardFilter) ([]deck.Card, error) {
	b := r.s.sql()
	sel := b.Select(cardColumns...).From(b.Table("cards")).OrderBy("position")

	var preds []*entsql.Predicate
	if f.ApplicationID != "" {
		preds = append(preds, entsql.EQ("application_id", f.ApplicationID))
	}
	if f.Kind != "" {
		preds = append(preds, entsql.EQ("kind", f.Kind))
	}
	if f.DueBefore != nil {
		preds = append(preds, entsql.NotNull("easiness_factor"), entsql.Or(
			entsql.IsNull("next_review_at"),
			entsql.LTE("next_review_at", formatTime(*f.DueBefore)),
		))
	}
	if len(preds) > 0 {
		sel.Where(entsql.And(preds...))
	}

	q, args := sel.Query()
	var rows []cardRow
	if err := r.s.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}

	cards := make([]deck.Card, 0, len(rows))
	for _, row := range rows {
		c, err := row.toCard()
		if err != nil {
			return nil, fmt.Errorf("card %s: %w", row.ID, err)
		}
		cards = append(cards, c)
	}
	return cards, nil
}

// Applications returns the distinct application ids that own cards.
func (r *CardStore) Applications(ctx context.Context) ([]string, error) {
	b := r.s.sql()
	q, args := b.Select("application_id").Distinct().From(b.Table("cards")).
		Where(entsql.NEQ("application_id", "")).OrderBy("application_id").Query()

	var ids []string
	if err := r.s.db.SelectContext(ctx, &ids, q, args...); err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	return ids, nil
}

// SaveSchedule stores a new schedule for a card if its version still equals
// expectedVersion, and returns the incremented version.
func (r *CardStore) SaveSchedule(ctx context.Context, id string, state spacedrep.ScheduleState, expectedVersion int) (int, error) {
	return r.saveSchedule(ctx, r.s.db, id, state, expectedVersion)
}

func (r *CardStore) saveSchedule(ctx context.Context, ex sqlx.ExtContext, id string, state spacedrep.ScheduleState, expectedVersion int) (int, error) {
	q, args := r.s.sql().Update("cards").
		Set("easiness_factor", state.EasinessFactor).
		Set("repetition_count", state.RepetitionCount).
		Set("interval_days", state.IntervalDays).
		Set("last_reviewed_at", formatTimePtr(state.LastReviewedAt)).
		Set("next_review_at", formatTimePtr(state.NextReviewAt)).
		Set("version", expectedVersion+1).
		Where(entsql.And(entsql.EQ("id", id), entsql.EQ("version", expectedVersion))).
		Query()

	res, err := ex.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, fmt.Errorf("save schedule %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("save schedule %s: %w", id, err)
	}
	if n == 0 {
		if _, err := r.get(ctx, ex, id); err != nil {
			return 0, err
		}
		return 0, fmt.Errorf("card %s at version %d: %w", id, expectedVersion, ErrVersionConflict)
	}
	return expectedVersion + 1, nil
}

// Delete removes a card and its review history.
func (r *CardStore) Delete(ctx context.Context, id string) error {
	return r.s.withTx(ctx, func(tx *sqlx.Tx) error {
		q, args := r.s.sql().Delete("review_events").Where(entsql.EQ("card_id", id)).Query()
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("delete reviews of %s: %w", id, err)
		}
		q, args = r.s.sql().Delete("cards").Where(entsql.EQ("id", id)).Query()
		res, err := tx.ExecContext(ctx, q, args...)
		if err != nil {
			return fmt.Errorf("delete card %s: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("card %s: %w", id, ErrNotFound)
		}
		return nil
	})
}
