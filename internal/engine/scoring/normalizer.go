// internal/engine/scoring/normalizer.go

// Package scoring computes normalized, competency-weighted overall scores
// for a single evaluation.
package scoring

import (
	"fmt"

	"evaluation-workers/internal/models"
)

// RangeError reports a score that cannot be normalized against its
// criterion's declared range. It is surfaced to the caller as a data
// quality problem, never silently clamped away.
type RangeError struct {
	CriterionID string
	Raw         float64
	Min         float64
	Max         float64
	Reason      string
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("score %.2f out of range [%.2f, %.2f] for criterion %s: %s",
		e.Raw, e.Min, e.Max, e.CriterionID, e.Reason)
}

// Normalize maps a raw score onto [0,1] using the criterion's declared range.
// A raw score equal to MinScore maps to 0.0 and MaxScore to 1.0. The result
// is clamped to [0,1] to absorb floating point wobble at the boundaries.
func Normalize(raw float64, c models.Criterion) (float64, error) {
	if !c.RangeValid() {
		return 0, &RangeError{
			CriterionID: c.ID,
			Raw:         raw,
			Min:         c.MinScore,
			Max:         c.MaxScore,
			Reason:      "maxScore must be greater than minScore",
		}
	}

	if raw < c.MinScore || raw > c.MaxScore {
		return 0, &RangeError{
			CriterionID: c.ID,
			Raw:         raw,
			Min:         c.MinScore,
			Max:         c.MaxScore,
			Reason:      "raw score outside declared domain",
		}
	}

	normalized := (raw - c.MinScore) / (c.MaxScore - c.MinScore)
	if normalized < 0 {
		normalized = 0
	}
	if normalized > 1 {
		normalized = 1
	}

	return normalized, nil
}
