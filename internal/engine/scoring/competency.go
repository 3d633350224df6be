// internal/engine/scoring/competency.go
package scoring

import (
	"math"

	"evaluation-workers/internal/models"
)

// DefaultCompetencyCap bounds how much a single reviewer's competency may
// amplify their influence on a multi-reviewer aggregate.
const DefaultCompetencyCap = 3.0

// Multiplier returns the per-category weighting multiplier for a reviewer.
// The competency level is dampened by square root so high levels grow the
// multiplier sublinearly, and the result is capped. A nil competency record,
// or one with a non-positive level or base weight, yields the neutral 1.0.
func Multiplier(comp *models.ReviewerCompetency, cap float64) float64 {
	if cap <= 0 {
		cap = DefaultCompetencyCap
	}

	if comp == nil || comp.CompetencyLevel <= 0 || comp.BaseWeight <= 0 {
		return 1.0
	}

	multiplier := comp.BaseWeight * math.Sqrt(comp.CompetencyLevel)
	if multiplier > cap {
		return cap
	}

	return multiplier
}
