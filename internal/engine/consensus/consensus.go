// internal/engine/consensus/consensus.go

// Package consensus combines completed evaluations for one application into
// a decision proposal with variance-based escalation.
package consensus

import (
	"errors"
	"math"

	"evaluation-workers/internal/engine/scoring"
	"evaluation-workers/internal/models"
)

// ErrInsufficientData is returned when no usable completed evaluations exist
// for the application.
var ErrInsufficientData = errors.New("no completed evaluations to build consensus from")

// Config carries the consensus policy.
type Config struct {
	// HighVarianceThreshold is compared against the population standard
	// deviation of overall scores, on the same 0-100 scale the scores use.
	HighVarianceThreshold float64
	// MinEvaluations is the number of independent opinions below which a
	// proposal is flagged low-confidence.
	MinEvaluations int
}

// DefaultConfig returns the platform defaults.
func DefaultConfig() Config {
	return Config{
		HighVarianceThreshold: 15.0,
		MinEvaluations:        2,
	}
}

// Proposal is the engine's suggested outcome for an application. It is never
// written to the store by the engine itself; committing a decision requires
// an explicit confirmation step.
type Proposal struct {
	ApplicationID    string                        `json:"applicationId"`
	EvaluationCount  int                           `json:"evaluationCount"`
	SkippedCount     int                           `json:"skippedCount"`
	MeanScore        float64                       `json:"meanScore"`
	StdDev           float64                       `json:"stdDev"`
	Agreement        float64                       `json:"agreement"`
	NeedsReconcile   bool                          `json:"needsReconciliation"`
	LowConfidence    bool                          `json:"lowConfidence"`
	ProposedDecision models.Recommendation         `json:"proposedDecision,omitempty"`
	RecommendDist    map[models.Recommendation]int `json:"recommendationDistribution"`
}

// Propose derives a consensus proposal from the completed evaluations of one
// application. Evaluations that are not COMPLETED or carry no overall score
// are skipped and counted, never silently dropped.
//
// The agreement metric averages two terms: 100 when all stated
// recommendations are identical (else 0), and max(0, 100-stdDev). This blend
// is a product heuristic, not a validated statistical measure such as
// Cohen's kappa.
func Propose(applicationID string, evals []models.Evaluation, cfg Config, scoringCfg scoring.Config) (Proposal, error) {
	if cfg.MinEvaluations <= 0 {
		cfg.MinEvaluations = 2
	}

	var scores []float64
	recCounts := make(map[models.Recommendation]int)
	skipped := 0

	for _, e := range evals {
		if e.Status != models.EvaluationCompleted || e.OverallScore == nil {
			skipped++
			continue
		}
		scores = append(scores, *e.OverallScore)
		if e.Recommendation != nil {
			recCounts[*e.Recommendation]++
		}
	}

	if len(scores) == 0 {
		return Proposal{}, ErrInsufficientData
	}

	mean := Mean(scores)
	stdDev := StdDev(scores)

	agreement := (recommendationAgreement(recCounts) + scoreAgreement(stdDev)) / 2

	proposal := Proposal{
		ApplicationID:   applicationID,
		EvaluationCount: len(scores),
		SkippedCount:    skipped,
		MeanScore:       mean,
		StdDev:          stdDev,
		Agreement:       agreement,
		NeedsReconcile:  stdDev > cfg.HighVarianceThreshold,
		LowConfidence:   len(scores) < cfg.MinEvaluations,
		RecommendDist:   recCounts,
	}

	if !proposal.NeedsReconcile {
		proposal.ProposedDecision = majorityDecision(recCounts, mean, scoringCfg)
	}

	return proposal, nil
}

// Mean returns the arithmetic mean of the sample.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev returns the population standard deviation. Fewer than two values
// yield zero variance.
func StdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := Mean(values)
	var sumSquares float64
	for _, v := range values {
		diff := v - mean
		sumSquares += diff * diff
	}
	return math.Sqrt(sumSquares / float64(len(values)))
}

// recommendationAgreement is 100 when every stated recommendation matches,
// else 0. Evaluations without a recommendation do not vote.
func recommendationAgreement(recCounts map[models.Recommendation]int) float64 {
	total := 0
	for _, n := range recCounts {
		total += n
	}
	if total == 0 {
		return 0
	}
	for _, n := range recCounts {
		if n == total {
			return 100
		}
	}
	return 0
}

func scoreAgreement(stdDev float64) float64 {
	agreement := 100 - stdDev
	if agreement < 0 {
		return 0
	}
	return agreement
}

// majorityDecision picks the most common recommendation. Ties, and the case
// where no evaluation stated a recommendation, fall back to classifying the
// mean score through the scoring thresholds.
func majorityDecision(recCounts map[models.Recommendation]int, mean float64, scoringCfg scoring.Config) models.Recommendation {
	best := 0
	var winner models.Recommendation
	tied := false

	for rec, n := range recCounts {
		switch {
		case n > best:
			best = n
			winner = rec
			tied = false
		case n == best && rec != winner:
			tied = true
		}
	}

	if best == 0 || tied {
		scale := scoringCfg.ScaleFactor
		if scale <= 0 {
			scale = 100
		}
		return scoring.Classify(mean/scale, scoringCfg)
	}

	return winner
}
