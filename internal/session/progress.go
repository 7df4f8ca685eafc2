package session

import (
	"math"
	"time"

	"github.com/abhisek/rehearse/internal/spacedrep"
	"github.com/abhisek/rehearse/internal/streak"
)

// StudyProgress holds lifetime study totals across sessions.
type StudyProgress struct {
	CurrentStreak         int                      `json:"current_streak"`
	LongestStreak         int                      `json:"longest_streak"`
	TotalCardsReviewed    int                      `json:"total_cards_reviewed"`
	TotalRatings          map[spacedrep.Rating]int `json:"total_ratings"`
	AverageRating         float64                  `json:"average_rating"`
	SessionsCompleted     int                      `json:"sessions_completed"`
	TotalStudyTimeMinutes int                      `json:"total_study_time_minutes"`
	LastStudiedAt         *time.Time               `json:"last_studied_at,omitempty"`
}

// NewProgress returns empty progress with every rating bucket present.
func NewProgress() StudyProgress {
	return StudyProgress{TotalRatings: emptyCounts()}
}

// Apply folds a closed session and the freshly computed streaks into the
// totals. Counters only grow and the longest streak never shrinks.
func (p *StudyProgress) Apply(s *StudySession, st streak.Result) error {
	if !s.IsClosed() {
		return ErrSessionOpen
	}
	if p.TotalRatings == nil {
		p.TotalRatings = emptyCounts()
	}

	for r, n := range s.RatingCounts {
		if n > 0 {
			p.TotalRatings[r] += n
		}
	}
	p.TotalCardsReviewed += s.CardsReviewed
	p.SessionsCompleted++
	p.TotalStudyTimeMinutes += int(math.Round(s.Duration().Minutes()))
	p.AverageRating = averageRating(p.TotalRatings)

	p.CurrentStreak = st.Current
	p.LongestStreak = max(p.LongestStreak, st.Longest, st.Current)

	if s.HasRatings() {
		ended := *s.EndedAt
		if p.LastStudiedAt == nil || ended.After(*p.LastStudiedAt) {
			p.LastStudiedAt = &ended
		}
	}
	return nil
}

// SuccessRate returns the lifetime percentage of passing ratings.
func (p StudyProgress) SuccessRate() float64 {
	return successRate(p.TotalRatings)
}
