package readiness

import "github.com/abhisek/rehearse/internal/mastery"

// Flashcard readiness weights: reviewing cards earn half credit, mastered
// cards full credit.
const (
	flashcardWeight        = 100
	reviewingCredit        = 0.5
	masteredCredit         = 1.0
	FactorFlashcardMastery = "flashcard mastery"
)

// FlashcardFactors returns the factors behind the flashcard readiness score.
func FlashcardFactors(dist mastery.Distribution) []Factor {
	return []Factor{{
		Name:        FactorFlashcardMastery,
		Weight:      flashcardWeight,
		Numerator:   float64(dist.Reviewing)*reviewingCredit + float64(dist.Mastered)*masteredCredit,
		Denominator: float64(dist.Total()),
	}}
}

// Flashcards scores a deck from its mastery distribution. An empty deck
// scores 50.
func Flashcards(dist mastery.Distribution) int {
	return Composite(FlashcardFactors(dist)...)
}
