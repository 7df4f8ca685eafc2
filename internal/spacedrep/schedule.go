package spacedrep

// DefaultEasinessFactor is the easiness factor assumed for a card that has
// never been reviewed.
const DefaultEasinessFactor = 2.5

// MinEasinessFactor is the floor below which the easiness factor never drops.
const MinEasinessFactor = 1.3

// FirstIntervalDays and SecondIntervalDays are the fixed intervals for the
// first two consecutive passes. Later passes grow by the easiness factor.
const (
	FirstIntervalDays  = 1
	SecondIntervalDays = 6
)

// LapseIntervalDays is the interval assigned after a failed review.
const LapseIntervalDays = 1

// OverdueGraceFraction is the share of the current interval a card may sit
// past its due date before it is reported as overdue rather than due.
const OverdueGraceFraction = 0.5
