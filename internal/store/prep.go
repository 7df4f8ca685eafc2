package store

import (
	"context"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/jmoiron/sqlx"

	"github.com/abhisek/rehearse/internal/readiness"
)

type checklistRow struct {
	ID            string `db:"id"`
	ApplicationID string `db:"application_id"`
	Label         string `db:"label"`
	Required      bool   `db:"required"`
	Completed     bool   `db:"completed"`
}

type questionRow struct {
	ID            string `db:"id"`
	ApplicationID string `db:"application_id"`
	Text          string `db:"text"`
	Likelihood    string `db:"likelihood"`
	PracticeCount int    `db:"practice_count"`
}

// PrepStore persists interview-prep checklists and question banks.
type PrepStore struct {
	s *Store
}

func (r *PrepStore) nextPosition(ctx context.Context, tx *sqlx.Tx, table string) (int64, error) {
	b := r.s.sql()
	q, args := b.Select("COALESCE(MAX(position), 0)").From(b.Table(table)).Query()
	var last int64
	if err := tx.GetContext(ctx, &last, q, args...); err != nil {
		return 0, fmt.Errorf("next %s position: %w", table, err)
	}
	return last + 1, nil
}

// UpsertChecklist inserts or updates checklist items.
func (r *PrepStore) UpsertChecklist(ctx context.Context, items ...readiness.ChecklistItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.s.withTx(ctx, func(tx *sqlx.Tx) error {
		pos, err := r.nextPosition(ctx, tx, "checklist_items")
		if err != nil {
			return err
		}
		for i, it := range items {
			q, args := r.s.sql().Insert("checklist_items").
				Columns("id", "application_id", "label", "required", "completed", "position").
				Values(it.ID, it.ApplicationID, it.Label, it.Required, it.Completed, pos+int64(i)).
				OnConflict(
					entsql.ConflictColumns("id"),
					entsql.ResolveWith(func(u *entsql.UpdateSet) {
						u.SetExcluded("application_id")
						u.SetExcluded("label")
						u.SetExcluded("required")
						u.SetExcluded("completed")
					}),
				).Query()
			if _, err := tx.ExecContext(ctx, q, args...); err != nil {
				return fmt.Errorf("upsert checklist item %s: %w", it.ID, err)
			}
		}
		return nil
	})
}

// Checklist returns an application's checklist in insertion order.
func (r *PrepStore) Checklist(ctx context.Context, applicationID string) ([]readiness.ChecklistItem, error) {
	b := r.s.sql()
	q, args := b.Select("id", "application_id", "label", "required", "completed").
		From(b.Table("checklist_items")).
		Where(entsql.EQ("application_id", applicationID)).
		OrderBy("position").
		Query()

	var rows []checklistRow
	if err := r.s.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, fmt.Errorf("list checklist for %s: %w", applicationID, err)
	}
	items := make([]readiness.ChecklistItem, len(rows))
	for i, row := range rows {
		items[i] = readiness.ChecklistItem(row)
	}
	return items, nil
}

// SetCompleted marks a checklist item done or not done.
func (r *PrepStore) SetCompleted(ctx context.Context, id string, completed bool) error {
	q, args := r.s.sql().Update("checklist_items").
		Set("completed", completed).
		Where(entsql.EQ("id", id)).
		Query()
	return r.execOne(ctx, q, args, "checklist item", id)
}

// UpsertQuestions inserts or updates questions. Practice counts of existing
// questions are kept.
func (r *PrepStore) UpsertQuestions(ctx context.Context, questions ...readiness.Question) error {
	if len(questions) == 0 {
		return nil
	}
	return r.s.withTx(ctx, func(tx *sqlx.Tx) error {
		pos, err := r.nextPosition(ctx, tx, "questions")
		if err != nil {
			return err
		}
		for i, qn := range questions {
			q, args := r.s.sql().Insert("questions").
				Columns("id", "application_id", "text", "likelihood", "practice_count", "position").
				Values(qn.ID, qn.ApplicationID, qn.Text, string(qn.Likelihood), qn.PracticeCount, pos+int64(i)).
				OnConflict(
					entsql.ConflictColumns("id"),
					entsql.ResolveWith(func(u *entsql.UpdateSet) {
						u.SetExcluded("application_id")
						u.SetExcluded("text")
						u.SetExcluded("likelihood")
					}),
				).Query()
			if _, err := tx.ExecContext(ctx, q, args...); err != nil {
				return fmt.Errorf("upsert question %s: %w", qn.ID, err)
			}
		}
		return nil
	})
}

// Questions returns an application's question bank in insertion order.
func (r *PrepStore) Questions(ctx context.Context, applicationID string) ([]readiness.Question, error) {
	b := r.s.sql()
	q, args := b.Select("id", "application_id", "text", "likelihood", "practice_count").
		From(b.Table("questions")).
		Where(entsql.EQ("application_id", applicationID)).
		OrderBy("position").
		Query()

	var rows []questionRow
	if err := r.s.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, fmt.Errorf("list questions for %s: %w", applicationID, err)
	}
	out := make([]readiness.Question, len(rows))
	for i, row := range rows {
		out[i] = readiness.Question{
			ID:            row.ID,
			ApplicationID: row.ApplicationID,
			Text:          row.Text,
			Likelihood:    readiness.Likelihood(row.Likelihood),
			PracticeCount: row.PracticeCount,
		}
	}
	return out, nil
}

// RecordPractice increments a question's practice count.
func (r *PrepStore) RecordPractice(ctx context.Context, id string) error {
	q, args := r.s.sql().Update("questions").
		Add("practice_count", 1).
		Where(entsql.EQ("id", id)).
		Query()
	return r.execOne(ctx, q, args, "question", id)
}

func (r *PrepStore) execOne(ctx context.Context, q string, args []any, what, id string) error {
	res, err := r.s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("update %s %s: %w", what, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update %s %s: %w", what, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", what, id, ErrNotFound)
	}
	return nil
}
