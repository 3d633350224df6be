// internal/engine/scoring/aggregator.go
package scoring

import (
	"errors"
	"fmt"

	"evaluation-workers/internal/models"
)

// ErrNoScores is returned when completion is requested for an evaluation
// that has no scores to aggregate.
var ErrNoScores = errors.New("evaluation has no scores to aggregate")

// Config carries the caller-supplied scoring policy. Thresholds apply to the
// normalized [0,1] score before scaling; ScaleFactor maps the stored overall
// score onto the platform's display scale (100 for 0-100).
type Config struct {
	AcceptThreshold     float64
	BorderlineThreshold float64
	ScaleFactor         float64
	CompetencyCap       float64
}

// DefaultConfig returns the platform defaults. Thresholds are policy owned
// by the event organizers, not the engine; callers should pass their own.
func DefaultConfig() Config {
	return Config{
		AcceptThreshold:     0.75,
		BorderlineThreshold: 0.40,
		ScaleFactor:         100,
		CompetencyCap:       DefaultCompetencyCap,
	}
}

// Result is the outcome of aggregating one evaluation's scores.
type Result struct {
	// NormalizedScore is the weighted average on [0,1].
	NormalizedScore float64
	// OverallScore is NormalizedScore times the configured scale factor.
	OverallScore   float64
	Recommendation models.Recommendation
	CriteriaScored int
}

// Aggregate combines an evaluation's scores into a single overall score and
// recommendation. Each score is normalized against its criterion range and
// weighted by criterion weight times the reviewer's competency multiplier
// for the criterion's category. The weighted sum is divided by the weights
// actually used, so scoring only a subset of criteria is not penalized.
//
// The result is a pure function of the multiset of scores; input order does
// not matter. A score referencing an unknown criterion or falling outside
// its criterion's range aborts aggregation with an error rather than being
// silently dropped.
func Aggregate(
	scores []models.Score,
	criteria map[string]models.Criterion,
	competencies map[string]models.ReviewerCompetency,
	cfg Config,
) (Result, error) {
	if len(scores) == 0 {
		return Result{}, ErrNoScores
	}

	if cfg.ScaleFactor <= 0 {
		cfg.ScaleFactor = 100
	}

	var weightedSum, weightSum float64
	for _, s := range scores {
		criterion, ok := criteria[s.CriterionID]
		if !ok {
			return Result{}, fmt.Errorf("score %s references unknown criterion %s", s.ID, s.CriterionID)
		}

		normalized, err := Normalize(s.Score, criterion)
		if err != nil {
			return Result{}, err
		}

		weight := criterion.Weight
		if comp, ok := competencies[criterion.Category]; ok {
			weight *= Multiplier(&comp, cfg.CompetencyCap)
		}

		weightedSum += normalized * weight
		weightSum += weight
	}

	if weightSum <= 0 {
		return Result{}, fmt.Errorf("criteria weights sum to zero across %d scores", len(scores))
	}

	normalized := weightedSum / weightSum

	return Result{
		NormalizedScore: normalized,
		OverallScore:    normalized * cfg.ScaleFactor,
		Recommendation:  Classify(normalized, cfg),
		CriteriaScored:  len(scores),
	}, nil
}

// Classify maps a normalized [0,1] score onto a recommendation using the
// configured thresholds.
func Classify(normalized float64, cfg Config) models.Recommendation {
	switch {
	case normalized >= cfg.AcceptThreshold:
		return models.RecommendationAccept
	case normalized >= cfg.BorderlineThreshold:
		return models.RecommendationBorderline
	default:
		return models.RecommendationReject
	}
}
