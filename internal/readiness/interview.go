package readiness

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// Likelihood is how likely a question is to come up in an interview.
type Likelihood string

const (
	LikelihoodHigh   Likelihood = "high"
	LikelihoodMedium Likelihood = "medium"
	LikelihoodLow    Likelihood = "low"
)

// ParseLikelihood parses a likelihood case-insensitively. An empty string is
// medium.
func ParseLikelihood(s string) (Likelihood, error) {
	switch l := Likelihood(strings.ToLower(strings.TrimSpace(s))); l {
	case "":
		return LikelihoodMedium, nil
	case LikelihoodHigh, LikelihoodMedium, LikelihoodLow:
		return l, nil
	default:
		return "", fmt.Errorf("unknown likelihood %q", s)
	}
}

// ChecklistItem is one preparation task for an application.
type ChecklistItem struct {
	ID            string `json:"id" toml:"id"`
	ApplicationID string `json:"application_id" toml:"application_id"`
	Label         string `json:"label" toml:"label"`
	Required      bool   `json:"required" toml:"required"`
	Completed     bool   `json:"completed" toml:"completed"`
}

// Question is an anticipated interview question.
type Question struct {
	ID            string     `json:"id" toml:"id"`
	ApplicationID string     `json:"application_id" toml:"application_id"`
	Text          string     `json:"text" toml:"text"`
	Likelihood    Likelihood `json:"likelihood" toml:"likelihood"`
	PracticeCount int        `json:"practice_count" toml:"practice_count"`
}

// Practiced reports whether the question was rehearsed at least once.
func (q Question) Practiced() bool {
	return q.PracticeCount >= 1
}

// Interview-prep factor names and weights.
const (
	FactorChecklist      = "checklist"
	FactorHighLikelihood = "high-likelihood questions"
	FactorPracticed      = "practiced questions"

	checklistWeight      = 50
	highLikelihoodWeight = 30
	practicedWeight      = 20
)

// InterviewFactors returns the factors behind the interview-prep score.
// With no questions at all the question factors carry no evidence and score
// zero; with questions but none of high likelihood, that factor takes half
// credit.
func InterviewFactors(items []ChecklistItem, questions []Question) []Factor {
	required := lo.Filter(items, func(it ChecklistItem, _ int) bool { return it.Required })
	done := lo.CountBy(required, func(it ChecklistItem) bool { return it.Completed })

	high := lo.Filter(questions, func(q Question, _ int) bool { return q.Likelihood == LikelihoodHigh })
	highPracticed := lo.CountBy(high, Question.Practiced)
	practiced := lo.CountBy(questions, Question.Practiced)
	noQuestions := len(questions) == 0

	return []Factor{
		{
			Name:        FactorChecklist,
			Weight:      checklistWeight,
			Numerator:   float64(done),
			Denominator: float64(len(required)),
		},
		{
			Name:        FactorHighLikelihood,
			Weight:      highLikelihoodWeight,
			Numerator:   float64(highPracticed),
			Denominator: float64(len(high)),
			NoEvidence:  noQuestions,
		},
		{
			Name:        FactorPracticed,
			Weight:      practicedWeight,
			Numerator:   float64(practiced),
			Denominator: float64(len(questions)),
			NoEvidence:  noQuestions,
		},
	}
}

// InterviewPrep scores an application's interview preparation. An empty
// checklist with no questions scores 25.
func InterviewPrep(items []ChecklistItem, questions []Question) int {
	return Composite(InterviewFactors(items, questions)...)
}
