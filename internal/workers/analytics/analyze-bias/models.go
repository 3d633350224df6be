// internal/workers/analytics/analyze-bias/models.go
package analyzebias

import "evaluation-workers/internal/engine/bias"

// Analysis sections a caller can request. The full report is always computed
// and cached; the section filter only trims the response.
const (
	AnalysisFull        = "full"
	AnalysisAcceptance  = "acceptance"
	AnalysisConsistency = "consistency"
)

// Input from BPMN process variables
type Input struct {
	EventID      string `json:"eventId"`
	AnalysisType string `json:"analysisType"`
	// IncludeAI controls whether automated reviewers' evaluations feed the
	// score statistics. Acceptance grouping is by application status and is
	// unaffected.
	IncludeAI bool `json:"includeAIReviewers"`
}

// Output to BPMN process variables
type Output struct {
	Report    bias.Report `json:"biasReport"`
	FromCache bool        `json:"fromCache"`
}
