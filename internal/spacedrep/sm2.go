package spacedrep

import (
	"math"
	"time"
)

// Update applies a single review rating to a card's schedule and returns the
// new state. A nil prev is treated as a never-reviewed card. prev is never
// modified; the caller persists the result.
//
// Failed reviews (rating < 3) reset the repetition count and schedule the
// card for tomorrow. Passing reviews step through 1 and 6 days, then grow the
// previous interval by the easiness factor. The easiness factor is adjusted
// on every review and never drops below MinEasinessFactor.
func Update(prev *ScheduleState, rating Rating, now time.Time) (ScheduleState, error) {
	if err := rating.Validate(); err != nil {
		return ScheduleState{}, err
	}

	cur := NewState()
	if prev != nil {
		cur = *prev
		if cur.EasinessFactor < MinEasinessFactor {
			cur.EasinessFactor = MinEasinessFactor
		}
	}

	next := ScheduleState{
		EasinessFactor: NextEasinessFactor(cur.EasinessFactor, rating),
	}

	if rating.Passed() {
		next.RepetitionCount = cur.RepetitionCount + 1
		next.IntervalDays = passInterval(next.RepetitionCount, cur.IntervalDays, cur.EasinessFactor)
	} else {
		next.RepetitionCount = 0
		next.IntervalDays = LapseIntervalDays
	}

	reviewed := now
	due := now.AddDate(0, 0, next.IntervalDays)
	next.LastReviewedAt = &reviewed
	next.NextReviewAt = &due
	return next, nil
}

// NextEasinessFactor applies the SM-2 easiness adjustment for a rating:
// EF' = EF + (0.1 - (5-q) * (0.08 + (5-q) * 0.02)), floored at 1.3.
func NextEasinessFactor(ef float64, rating Rating) float64 {
	q := float64(5 - rating)
	next := ef + (0.1 - q*(0.08+q*0.02))
	// Round away float noise so 2.5 + 0.1 reads back as 2.6.
	next = math.Round(next*1e6) / 1e6
	return math.Max(next, MinEasinessFactor)
}

func passInterval(reps, prevInterval int, ef float64) int {
	switch reps {
	case 1:
		return FirstIntervalDays
	case 2:
		return SecondIntervalDays
	}
	if prevInterval < 1 {
		prevInterval = SecondIntervalDays
	}
	return int(math.Round(float64(prevInterval) * ef))
}
