// Package deck defines the reviewable material shared by the store, the
// importer and the session service.
package deck

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/abhisek/rehearse/internal/spacedrep"
)

var (
	// ErrInvalidCard is returned for cards missing an id or a prompt.
	ErrInvalidCard = errors.New("deck: invalid card")

	// ErrNotFound is returned when a card or session does not exist.
	ErrNotFound = errors.New("deck: not found")

	// ErrVersionConflict is returned when a schedule write loses an
	// optimistic-locking race.
	ErrVersionConflict = errors.New("deck: version conflict")
)

// Card kinds.
const (
	KindFlashcard = "flashcard"
	KindAnswer    = "answer"
	KindStory     = "story"
)

// Card is a single reviewable entity.
type Card struct {
	ID            string `json:"id" toml:"id"`
	ApplicationID string `json:"application_id,omitempty" toml:"application_id"`
	Kind          string `json:"kind,omitempty" toml:"kind"`
	Front         string `json:"front" toml:"front"`
	Back          string `json:"back,omitempty" toml:"back"`

	// Schedule is nil until the first review.
	Schedule  *spacedrep.ScheduleState `json:"schedule,omitempty" toml:"-"`
	Version   int                      `json:"version" toml:"-"`
	CreatedAt time.Time                `json:"created_at" toml:"-"`
}

// Validate checks the card's required fields and normalizes its kind.
func (c *Card) Validate() error {
	c.ID = strings.TrimSpace(c.ID)
	if c.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidCard)
	}
	if strings.TrimSpace(c.Front) == "" {
		return fmt.Errorf("%w: card %q has no front", ErrInvalidCard, c.ID)
	}
	c.Kind = strings.ToLower(strings.TrimSpace(c.Kind))
	switch c.Kind {
	case "":
		c.Kind = KindFlashcard
	case KindFlashcard, KindAnswer, KindStory:
	default:
		return fmt.Errorf("%w: card %q has unknown kind %q", ErrInvalidCard, c.ID, c.Kind)
	}
	return nil
}

// Candidate converts the card into a queue candidate.
func (c Card) Candidate() spacedrep.Candidate {
	return spacedrep.Candidate{
		ID:    c.ID,
		State: c.Schedule,
		Scope: c.ApplicationID,
		Kind:  c.Kind,
	}
}

// Candidates converts cards into queue candidates, preserving order.
func Candidates(cards []Card) []spacedrep.Candidate {
	out := make([]spacedrep.Candidate, len(cards))
	for i, c := range cards {
		out[i] = c.Candidate()
	}
	return out
}

// States returns each card's schedule state in order.
func States(cards []Card) []*spacedrep.ScheduleState {
	out := make([]*spacedrep.ScheduleState, len(cards))
	for i, c := range cards {
		out[i] = c.Schedule
	}
	return out
}
