package mastery

// Level is a card's position in the mastery lifecycle. It is always derived
// from the card's schedule state and never stored.
type Level string

const (
	LevelNew       Level = "new"
	LevelLearning  Level = "learning"
	LevelReviewing Level = "reviewing"
	LevelMastered  Level = "mastered"
)

// AllLevels returns all levels in lifecycle order.
func AllLevels() []Level {
	return []Level{LevelNew, LevelLearning, LevelReviewing, LevelMastered}
}

// DisplayName returns a human-readable label for the level.
func (l Level) DisplayName() string {
	switch l {
	case LevelNew:
		return "New"
	case LevelLearning:
		return "Learning"
	case LevelReviewing:
		return "Reviewing"
	case LevelMastered:
		return "Mastered"
	default:
		return string(l)
	}
}

// IsValid reports whether l is one of the known levels.
func (l Level) IsValid() bool {
	switch l {
	case LevelNew, LevelLearning, LevelReviewing, LevelMastered:
		return true
	}
	return false
}
