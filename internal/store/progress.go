package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/rehearse/internal/session"
)

// progressRowID is the id of the single progress row.
const progressRowID = 1

// ProgressStore persists lifetime study progress as a single JSON row.
type ProgressStore struct {
	s *Store
}

// Load returns the stored progress, or empty progress if none was saved.
func (r *ProgressStore) Load(ctx context.Context) (session.StudyProgress, error) {
	b := r.s.sql()
	q, args := b.Select("payload").From(b.Table("progress")).Where(entsql.EQ("id", progressRowID)).Query()

	var payload string
	if err := r.s.db.GetContext(ctx, &payload, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return session.NewProgress(), nil
		}
		return session.StudyProgress{}, fmt.Errorf("load progress: %w", err)
	}

	p := session.NewProgress()
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return session.StudyProgress{}, fmt.Errorf("decode progress: %w", err)
	}
	return p, nil
}

// Save replaces the stored progress.
func (r *ProgressStore) Save(ctx context.Context, p session.StudyProgress) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode progress: %w", err)
	}
	q, args := r.s.sql().Insert("progress").
		Columns("id", "payload", "updated_at").
		Values(progressRowID, string(payload), formatTime(r.s.now())).
		OnConflict(entsql.ConflictColumns("id"), entsql.ResolveWithNewValues()).
		Query()
	if _, err := r.s.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	return nil
}
