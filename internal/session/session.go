package session

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/samber/lo"

	"github.com/abhisek/rehearse/internal/spacedrep"
)

// StudySession aggregates the ratings given during one review session.
// A session is owned by its caller; there is no process-wide active session.
type StudySession struct {
	ID             string                   `json:"id"`
	Mode           spacedrep.Mode           `json:"mode"`
	Scope          string                   `json:"scope,omitempty"`
	Queue          []string                 `json:"queue"`
	TotalCards     int                      `json:"total_cards"`
	CardsReviewed  int                      `json:"cards_reviewed"`
	CardsRemaining int                      `json:"cards_remaining"`
	RatingCounts   map[spacedrep.Rating]int `json:"rating_counts"`
	AverageRating  float64                  `json:"average_rating"`
	Reviewed       []string                 `json:"reviewed"`
	StartedAt      time.Time                `json:"started_at"`
	EndedAt        *time.Time               `json:"ended_at,omitempty"`
}

// New starts a session over a built queue.
func New(id string, mode spacedrep.Mode, scope string, queue []string, now time.Time) *StudySession {
	if queue == nil {
		queue = []string{}
	}
	return &StudySession{
		ID:             id,
		Mode:           mode,
		Scope:          scope,
		Queue:          queue,
		TotalCards:     len(queue),
		CardsRemaining: len(queue),
		RatingCounts:   emptyCounts(),
		Reviewed:       []string{},
		StartedAt:      now,
	}
}

func emptyCounts() map[spacedrep.Rating]int {
	counts := make(map[spacedrep.Rating]int, 6)
	for _, r := range spacedrep.AllRatings() {
		counts[r] = 0
	}
	return counts
}

// Record folds one rating into the session. An invalid rating or a closed
// session leaves the aggregate untouched.
func (s *StudySession) Record(rating spacedrep.Rating) error {
	if err := rating.Validate(); err != nil {
		return err
	}
	if s.IsClosed() {
		return ErrSessionClosed
	}
	if s.RatingCounts == nil {
		s.RatingCounts = emptyCounts()
	}

	s.RatingCounts[rating]++
	s.CardsReviewed++
	if s.CardsRemaining > 0 {
		s.CardsRemaining--
	}
	s.AverageRating = averageRating(s.RatingCounts)
	return nil
}

// Contains reports whether cardID is part of the session's queue.
func (s *StudySession) Contains(cardID string) bool {
	return lo.Contains(s.Queue, cardID)
}

// HasReviewed reports whether cardID was already rated in this session.
func (s *StudySession) HasReviewed(cardID string) bool {
	return lo.Contains(s.Reviewed, cardID)
}

// RecordCard rates one queued card. A card outside the queue, a card already
// rated in this session, an invalid rating or a closed session leaves the
// session untouched.
func (s *StudySession) RecordCard(cardID string, rating spacedrep.Rating) error {
	if !s.Contains(cardID) {
		return fmt.Errorf("%w: %s", ErrCardNotInSession, cardID)
	}
	if s.HasReviewed(cardID) {
		return fmt.Errorf("%w: %s", ErrCardAlreadyReviewed, cardID)
	}
	if err := s.Record(rating); err != nil {
		return err
	}
	s.Reviewed = append(s.Reviewed, cardID)
	return nil
}

// Clone returns a deep copy of the session.
func (s *StudySession) Clone() *StudySession {
	c := *s
	c.Queue = slices.Clone(s.Queue)
	c.Reviewed = slices.Clone(s.Reviewed)
	c.RatingCounts = maps.Clone(s.RatingCounts)
	if s.EndedAt != nil {
		ended := *s.EndedAt
		c.EndedAt = &ended
	}
	return &c
}

// RatingTotal returns the number of ratings recorded.
func (s *StudySession) RatingTotal() int {
	return ratingTotal(s.RatingCounts)
}

// HasRatings reports whether at least one rating was recorded.
func (s *StudySession) HasRatings() bool {
	return s.RatingTotal() > 0
}

// SuccessRate returns the percentage of passing ratings (3 or higher).
// It is 0 for a session with no ratings; use HasRatings to tell the two apart.
func (s *StudySession) SuccessRate() float64 {
	return successRate(s.RatingCounts)
}

// Close marks the session ended. Closing twice keeps the first end time.
func (s *StudySession) Close(now time.Time) {
	if s.EndedAt != nil {
		return
	}
	ended := now
	s.EndedAt = &ended
}

// IsClosed reports whether the session has ended.
func (s *StudySession) IsClosed() bool {
	return s.EndedAt != nil
}

// Duration returns how long a closed session ran, or zero while open.
func (s *StudySession) Duration() time.Duration {
	if s.EndedAt == nil {
		return 0
	}
	d := s.EndedAt.Sub(s.StartedAt)
	if d < 0 {
		return 0
	}
	return d
}

func ratingTotal(counts map[spacedrep.Rating]int) int {
	total := 0
	for _, n := range counts {
		total += n
	}
	return total
}

func averageRating(counts map[spacedrep.Rating]int) float64 {
	total := ratingTotal(counts)
	if total == 0 {
		return 0
	}
	sum := 0
	for r, n := range counts {
		sum += int(r) * n
	}
	return float64(sum) / float64(total)
}

func successRate(counts map[spacedrep.Rating]int) float64 {
	total := ratingTotal(counts)
	if total == 0 {
		return 0
	}
	passed := 0
	for r, n := range counts {
		if r.Passed() {
			passed += n
		}
	}
	return float64(passed) / float64(total) * 100
}
