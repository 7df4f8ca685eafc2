package mastery

import (
	"errors"
	"fmt"

	"github.com/abhisek/rehearse/internal/spacedrep"
)

// ErrInvalidPolicy is returned when classification thresholds are inconsistent.
var ErrInvalidPolicy = errors.New("mastery: invalid policy")

const (
	// DefaultReviewingMin is the repetition count at which a card leaves learning.
	DefaultReviewingMin = 1

	// DefaultMasteredMin is the repetition count at which a card is mastered.
	DefaultMasteredMin = 5
)

// Policy holds the repetition-count thresholds used to classify cards.
// Cards below ReviewingMin are learning, cards from ReviewingMin up to
// MasteredMin-1 are reviewing, and cards at or above MasteredMin are mastered.
type Policy struct {
	ReviewingMin int `mapstructure:"reviewing_min" json:"reviewing_min"`
	MasteredMin  int `mapstructure:"mastered_min" json:"mastered_min"`
}

// DefaultPolicy returns the standard thresholds (1 and 5).
func DefaultPolicy() Policy {
	return Policy{
		ReviewingMin: DefaultReviewingMin,
		MasteredMin:  DefaultMasteredMin,
	}
}

// Validate checks that the thresholds describe non-empty, ordered bands.
func (p Policy) Validate() error {
	if p.ReviewingMin < 1 {
		return fmt.Errorf("%w: reviewing_min must be at least 1, got %d", ErrInvalidPolicy, p.ReviewingMin)
	}
	if p.MasteredMin <= p.ReviewingMin {
		return fmt.Errorf("%w: mastered_min (%d) must exceed reviewing_min (%d)", ErrInvalidPolicy, p.MasteredMin, p.ReviewingMin)
	}
	return nil
}

// Classify maps a schedule state to its mastery level. A nil state is new;
// a state with no consecutive passes (including right after a lapse) is
// learning.
func (p Policy) Classify(state *spacedrep.ScheduleState) Level {
	switch {
	case state == nil:
		return LevelNew
	case state.RepetitionCount < p.ReviewingMin:
		return LevelLearning
	case state.RepetitionCount < p.MasteredMin:
		return LevelReviewing
	default:
		return LevelMastered
	}
}

// Classify maps a schedule state to its mastery level using DefaultPolicy.
func Classify(state *spacedrep.ScheduleState) Level {
	return DefaultPolicy().Classify(state)
}
