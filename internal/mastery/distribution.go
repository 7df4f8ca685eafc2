package mastery

import "github.com/abhisek/rehearse/internal/spacedrep"

// Distribution counts cards per mastery level.
type Distribution struct {
	New       int `json:"new"`
	Learning  int `json:"learning"`
	Reviewing int `json:"reviewing"`
	Mastered  int `json:"mastered"`
}

// Total returns the number of cards counted.
func (d Distribution) Total() int {
	return d.New + d.Learning + d.Reviewing + d.Mastered
}

// Count returns the number of cards at a given level.
func (d Distribution) Count(l Level) int {
	switch l {
	case LevelNew:
		return d.New
	case LevelLearning:
		return d.Learning
	case LevelReviewing:
		return d.Reviewing
	case LevelMastered:
		return d.Mastered
	}
	return 0
}

// Add records one card at the given level.
func (d *Distribution) Add(l Level) {
	switch l {
	case LevelNew:
		d.New++
	case LevelLearning:
		d.Learning++
	case LevelReviewing:
		d.Reviewing++
	case LevelMastered:
		d.Mastered++
	}
}

// Distribute classifies every state and tallies the levels.
func (p Policy) Distribute(states []*spacedrep.ScheduleState) Distribution {
	var d Distribution
	for _, s := range states {
		d.Add(p.Classify(s))
	}
	return d
}
