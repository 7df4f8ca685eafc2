package session

import (
	"time"

	"github.com/abhisek/rehearse/internal/spacedrep"
)

// RatingCount is one row of a summary's rating breakdown.
type RatingCount struct {
	Rating spacedrep.Rating
	Count  int
}

// Summary holds the data printed when a session ends.
type Summary struct {
	Duration      time.Duration
	CardsReviewed int
	CardsSkipped  int
	HasRatings    bool
	SuccessRate   float64
	AverageRating float64
	Breakdown     []RatingCount
}

// BuildSummary creates a Summary from a session. The breakdown lists ratings
// from best to worst.
func BuildSummary(s *StudySession) *Summary {
	ratings := spacedrep.AllRatings()
	breakdown := make([]RatingCount, 0, len(ratings))
	for i := len(ratings) - 1; i >= 0; i-- {
		r := ratings[i]
		breakdown = append(breakdown, RatingCount{Rating: r, Count: s.RatingCounts[r]})
	}

	return &Summary{
		Duration:      s.Duration(),
		CardsReviewed: s.CardsReviewed,
		CardsSkipped:  s.CardsRemaining,
		HasRatings:    s.HasRatings(),
		SuccessRate:   s.SuccessRate(),
		AverageRating: s.AverageRating,
		Breakdown:     breakdown,
	}
}
