// internal/engine/bias/analyzer.go

// Package bias computes fairness diagnostics over a cohort of reviewed
// applications. The analyzer only reports; it never changes an application's
// status.
package bias

import (
	"errors"
	"fmt"
	"time"

	"evaluation-workers/internal/engine/consensus"
	"evaluation-workers/internal/models"
)

// ErrEmptyCohort is returned when the cohort contains no applications at all.
var ErrEmptyCohort = errors.New("cohort contains no applications")

// Grouping dimension names used in reports.
const (
	DimensionEmployer    = "employer"
	DimensionLocation    = "location"
	DimensionRole        = "role"
	DimensionHasLinkedIn = "hasLinkedIn"
	DimensionHasTwitter  = "hasTwitter"
	DimensionHasWebsite  = "hasWebsite"
)

// Risk tiers, lowest to highest.
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// Config carries the analyzer policy.
type Config struct {
	// MinSampleSize is the cohort size below which every verdict is reported
	// with reduced confidence.
	MinSampleSize int
	// HighRiskDeviation and MediumRiskDeviation are acceptance-rate
	// deviation cutoffs on [0,1].
	HighRiskDeviation   float64
	MediumRiskDeviation float64
	// HighVarianceThreshold flags per-application reviewer disagreement,
	// compared against score standard deviation on the 0-100 scale.
	HighVarianceThreshold float64
}

// DefaultConfig returns the platform defaults.
func DefaultConfig() Config {
	return Config{
		MinSampleSize:         30,
		HighRiskDeviation:     0.30,
		MediumRiskDeviation:   0.15,
		HighVarianceThreshold: 15.0,
	}
}

// CohortEntry pairs an application with its completed evaluations.
type CohortEntry struct {
	Application models.Application
	Evaluations []models.Evaluation
}

// GroupStat summarizes outcomes for one attribute value within a dimension.
type GroupStat struct {
	Total          int     `json:"total"`
	Accepted       int     `json:"accepted"`
	AcceptanceRate float64 `json:"acceptanceRate"`
	AvgScore       float64 `json:"avgScore"`
	RateDeviation  float64 `json:"rateDeviation"`
	RiskTier       string  `json:"riskTier"`
}

// ApplicationVariance lists one application whose reviewers disagreed beyond
// the variance threshold, with the raw score vector for manual inspection.
type ApplicationVariance struct {
	ApplicationID string    `json:"applicationId"`
	StdDev        float64   `json:"stdDev"`
	Scores        []float64 `json:"scores"`
}

// Report is the full fairness diagnostic for one event cohort.
type Report struct {
	EventID               string                          `json:"eventId"`
	CohortSize            int                             `json:"cohortSize"`
	SampleSizeAdequate    bool                            `json:"sampleSizeAdequate"`
	Confidence            string                          `json:"confidence"`
	OverallAcceptanceRate float64                         `json:"overallAcceptanceRate"`
	Dimensions            map[string]map[string]GroupStat `json:"dimensions"`
	ScoreConsistency      []ApplicationVariance           `json:"scoreConsistency"`
	HighRiskSignals       []string                        `json:"highRiskSignals"`
	OverallRisk           string                          `json:"overallRisk"`
	SkippedEvaluations    int                             `json:"skippedEvaluations"`
	GeneratedAt           time.Time                       `json:"generatedAt"`
}

// Analyze produces the fairness report for a cohort. Evaluations without a
// usable overall score are excluded from score statistics and counted in
// SkippedEvaluations; the application itself still participates in
// acceptance-rate grouping by status.
func Analyze(eventID string, cohort []CohortEntry, cfg Config) (Report, error) {
	if len(cohort) == 0 {
		return Report{}, ErrEmptyCohort
	}

	if cfg.MinSampleSize <= 0 {
		cfg.MinSampleSize = 30
	}

	report := Report{
		EventID:            eventID,
		CohortSize:         len(cohort),
		SampleSizeAdequate: len(cohort) >= cfg.MinSampleSize,
		Dimensions:         make(map[string]map[string]GroupStat),
		GeneratedAt:        time.Now().UTC(),
	}

	report.Confidence = "normal"
	if !report.SampleSizeAdequate {
		report.Confidence = "reduced"
	}

	accepted := 0
	for _, entry := range cohort {
		if entry.Application.Status == models.ApplicationAccepted {
			accepted++
		}
	}
	report.OverallAcceptanceRate = float64(accepted) / float64(len(cohort))

	appScores, skipped := collectScores(cohort)
	report.SkippedEvaluations = skipped

	for dimension, valueOf := range dimensionExtractors() {
		report.Dimensions[dimension] = groupByDimension(cohort, appScores, valueOf, report.OverallAcceptanceRate, cfg)
	}

	report.ScoreConsistency = scoreConsistency(cohort, appScores, cfg)

	report.HighRiskSignals = collectSignals(report)
	report.OverallRisk = rollupRisk(len(report.HighRiskSignals))

	return report, nil
}

// collectScores builds the per-application score vectors from completed
// evaluations, counting unusable ones.
func collectScores(cohort []CohortEntry) (map[string][]float64, int) {
	appScores := make(map[string][]float64, len(cohort))
	skipped := 0

	for _, entry := range cohort {
		for _, e := range entry.Evaluations {
			if e.Status != models.EvaluationCompleted || e.OverallScore == nil {
				skipped++
				continue
			}
			appScores[entry.Application.ID] = append(appScores[entry.Application.ID], *e.OverallScore)
		}
	}

	return appScores, skipped
}

// dimensionExtractors maps each grouping dimension to its attribute accessor.
// Empty attribute values group under "unknown".
func dimensionExtractors() map[string]func(models.ApplicantAttributes) string {
	return map[string]func(models.ApplicantAttributes) string{
		DimensionEmployer:    func(a models.ApplicantAttributes) string { return orUnknown(a.Employer) },
		DimensionLocation:    func(a models.ApplicantAttributes) string { return orUnknown(a.Location) },
		DimensionRole:        func(a models.ApplicantAttributes) string { return orUnknown(a.Role) },
		DimensionHasLinkedIn: func(a models.ApplicantAttributes) string { return boolGroup(a.HasLinkedIn) },
		DimensionHasTwitter:  func(a models.ApplicantAttributes) string { return boolGroup(a.HasTwitter) },
		DimensionHasWebsite:  func(a models.ApplicantAttributes) string { return boolGroup(a.HasWebsite) },
	}
}

func orUnknown(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}

func boolGroup(v bool) string {
	return fmt.Sprintf("%t", v)
}

func groupByDimension(
	cohort []CohortEntry,
	appScores map[string][]float64,
	valueOf func(models.ApplicantAttributes) string,
	overallRate float64,
	cfg Config,
) map[string]GroupStat {
	type accumulator struct {
		total    int
		accepted int
		scoreSum float64
		scored   int
	}

	groups := make(map[string]*accumulator)
	for _, entry := range cohort {
		key := valueOf(entry.Application.Attributes)
		acc, ok := groups[key]
		if !ok {
			acc = &accumulator{}
			groups[key] = acc
		}

		acc.total++
		if entry.Application.Status == models.ApplicationAccepted {
			acc.accepted++
		}
		if scores := appScores[entry.Application.ID]; len(scores) > 0 {
			acc.scoreSum += consensus.Mean(scores)
			acc.scored++
		}
	}

	stats := make(map[string]GroupStat, len(groups))
	for key, acc := range groups {
		stat := GroupStat{
			Total:          acc.total,
			Accepted:       acc.accepted,
			AcceptanceRate: float64(acc.accepted) / float64(acc.total),
		}
		if acc.scored > 0 {
			stat.AvgScore = acc.scoreSum / float64(acc.scored)
		}

		deviation := stat.AcceptanceRate - overallRate
		if deviation < 0 {
			deviation = -deviation
		}
		stat.RateDeviation = deviation
		stat.RiskTier = TierFor(deviation, cfg)

		stats[key] = stat
	}

	return stats
}

// TierFor assigns the risk tier for an acceptance-rate deviation. The tier
// is monotonic in the deviation.
func TierFor(deviation float64, cfg Config) string {
	switch {
	case deviation > cfg.HighRiskDeviation:
		return RiskHigh
	case deviation > cfg.MediumRiskDeviation:
		return RiskMedium
	default:
		return RiskLow
	}
}

// scoreConsistency lists applications whose reviewers disagreed beyond the
// variance threshold. Only applications with at least two scored
// evaluations are considered.
func scoreConsistency(cohort []CohortEntry, appScores map[string][]float64, cfg Config) []ApplicationVariance {
	var flagged []ApplicationVariance
	for _, entry := range cohort {
		scores := appScores[entry.Application.ID]
		if len(scores) < 2 {
			continue
		}
		stdDev := consensus.StdDev(scores)
		if stdDev > cfg.HighVarianceThreshold {
			flagged = append(flagged, ApplicationVariance{
				ApplicationID: entry.Application.ID,
				StdDev:        stdDev,
				Scores:        scores,
			})
		}
	}
	return flagged
}

// collectSignals counts the independent high-risk indicators: one per
// attribute dimension containing a high-tier group, one when any social
// presence dimension skews high, and one when reviewer disagreement was
// flagged on any application.
func collectSignals(report Report) []string {
	var signals []string

	socialDimensions := map[string]bool{
		DimensionHasLinkedIn: true,
		DimensionHasTwitter:  true,
		DimensionHasWebsite:  true,
	}

	socialSkew := false
	for _, dimension := range []string{
		DimensionEmployer, DimensionLocation, DimensionRole,
		DimensionHasLinkedIn, DimensionHasTwitter, DimensionHasWebsite,
	} {
		hasHigh := false
		for _, stat := range report.Dimensions[dimension] {
			if stat.RiskTier == RiskHigh {
				hasHigh = true
				break
			}
		}
		if !hasHigh {
			continue
		}
		if socialDimensions[dimension] {
			socialSkew = true
			continue
		}
		signals = append(signals, "acceptance-skew:"+dimension)
	}

	if socialSkew {
		signals = append(signals, "social-presence-skew")
	}
	if len(report.ScoreConsistency) > 0 {
		signals = append(signals, "reviewer-disagreement")
	}

	return signals
}

func rollupRisk(signalCount int) string {
	switch {
	case signalCount >= 3:
		return RiskHigh
	case signalCount >= 1:
		return RiskMedium
	default:
		return RiskLow
	}
}
