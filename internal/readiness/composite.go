// Package readiness computes composite 0-100 readiness scores from weighted
// completion factors.
package readiness

import (
	"math"

	"github.com/samber/lo"
)

// neutralRatio is the credit given to a factor with nothing to measure.
const neutralRatio = 0.5

// Factor is one weighted component of a readiness score.
type Factor struct {
	Name        string
	Weight      float64
	Numerator   float64
	Denominator float64
	// NoEvidence makes an empty denominator score zero instead of half credit.
	NoEvidence bool
}

// Ratio returns the factor's completion ratio in [0, 1].
func (f Factor) Ratio() float64 {
	if f.Denominator == 0 {
		if f.NoEvidence {
			return 0
		}
		return neutralRatio
	}
	return clamp(f.Numerator/f.Denominator, 0, 1)
}

// Contribution returns the factor's weighted share of the score.
func (f Factor) Contribution() float64 {
	return f.Weight * f.Ratio()
}

// Composite sums the factor contributions, rounds half away from zero and
// clamps the result to [0, 100].
func Composite(factors ...Factor) int {
	total := lo.SumBy(factors, func(f Factor) float64 { return f.Contribution() })
	return int(clamp(math.Round(total), 0, 100))
}

// FactorScore is a factor's contribution as shown in reports.
type FactorScore struct {
	Name         string  `json:"name"`
	Weight       float64 `json:"weight"`
	Ratio        float64 `json:"ratio"`
	Contribution float64 `json:"contribution"`
}

// Breakdown reports each factor's ratio and contribution along with the total.
type Breakdown struct {
	Score   int           `json:"score"`
	Factors []FactorScore `json:"factors"`
}

// Explain builds a Breakdown for the given factors.
func Explain(factors ...Factor) Breakdown {
	return Breakdown{
		Score: Composite(factors...),
		Factors: lo.Map(factors, func(f Factor, _ int) FactorScore {
			return FactorScore{
				Name:         f.Name,
				Weight:       f.Weight,
				Ratio:        f.Ratio(),
				Contribution: f.Contribution(),
			}
		}),
	}
}

func clamp(v, low, high float64) float64 {
	if v < low {
		return low
	}
	if v > high {
		return high
	}
	return v
}
