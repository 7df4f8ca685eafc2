package spacedrep

import "time"

// ScheduleState holds the spaced repetition state for a single reviewable
// entity (a technical answer, story, or flashcard). A nil *ScheduleState
// means the entity has never been reviewed.
type ScheduleState struct {
	EasinessFactor  float64    `json:"easiness_factor"`
	RepetitionCount int        `json:"repetition_count"`
	IntervalDays    int        `json:"interval_days"`
	LastReviewedAt  *time.Time `json:"last_reviewed_at,omitempty"`
	NextReviewAt    *time.Time `json:"next_review_at,omitempty"`
}

// NewState returns the implicit state of a card that has never been reviewed.
func NewState() ScheduleState {
	return ScheduleState{EasinessFactor: DefaultEasinessFactor}
}

// IsNew returns true if the card has never been scheduled. Only a nil state
// is new.
func (s *ScheduleState) IsNew() bool {
	return s == nil
}

// IsDue returns true if the card is due for review (at or past the review date).
// New cards are not due; they are selected separately. A scheduled card
// without a review date is due immediately.
func (s *ScheduleState) IsDue(now time.Time) bool {
	if s.IsNew() {
		return false
	}
	return s.NextReviewAt == nil || !now.Before(*s.NextReviewAt)
}

// OverdueDays returns how many days past due the card is. Returns 0 if not yet due.
func (s *ScheduleState) OverdueDays(now time.Time) float64 {
	return s.overdueBy(now).Hours() / 24.0
}

// overdueBy returns the raw duration past the due date, used for ordering.
func (s *ScheduleState) overdueBy(now time.Time) time.Duration {
	if !s.IsDue(now) || s.NextReviewAt == nil {
		return 0
	}
	return now.Sub(*s.NextReviewAt)
}

// IsOverdue returns true if the card has exceeded its grace period past the
// due date. The grace period is half the current interval.
func (s *ScheduleState) IsOverdue(now time.Time) bool {
	if !s.IsDue(now) || s.NextReviewAt == nil {
		return false
	}
	graceHours := float64(s.IntervalDays) * OverdueGraceFraction * 24.0
	threshold := s.NextReviewAt.Add(time.Duration(graceHours * float64(time.Hour)))
	return now.After(threshold)
}

// DaysUntilReview returns the number of days until the next review.
// Returns 0 if already due or never reviewed.
func (s *ScheduleState) DaysUntilReview(now time.Time) int {
	if s.IsNew() || s.IsDue(now) {
		return 0
	}
	return int(s.NextReviewAt.Sub(now).Hours()/24.0) + 1
}

// ReviewStatus describes a card's review status for display.
type ReviewStatus string

const (
	ReviewNew       ReviewStatus = "new"
	ReviewScheduled ReviewStatus = "scheduled"
	ReviewDue       ReviewStatus = "due"
	ReviewOverdue   ReviewStatus = "overdue"
)

// Status returns the review status for display.
func (s *ScheduleState) Status(now time.Time) ReviewStatus {
	switch {
	case s.IsNew():
		return ReviewNew
	case s.IsOverdue(now):
		return ReviewOverdue
	case s.IsDue(now):
		return ReviewDue
	default:
		return ReviewScheduled
	}
}

// Clone returns a deep copy of the state, or nil for a nil receiver.
func (s *ScheduleState) Clone() *ScheduleState {
	if s == nil {
		return nil
	}
	c := *s
	if s.LastReviewedAt != nil {
		t := *s.LastReviewedAt
		c.LastReviewedAt = &t
	}
	if s.NextReviewAt != nil {
		t := *s.NextReviewAt
		c.NextReviewAt = &t
	}
	return &c
}
