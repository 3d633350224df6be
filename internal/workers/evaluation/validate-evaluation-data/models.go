// internal/workers/evaluation/validate-evaluation-data/models.go
package validateevaluationdata

// ScoreSubmission is one proposed (criterion, score) pair.
type ScoreSubmission struct {
	CriterionID string  `json:"criterionId"`
	Score       float64 `json:"score"`
	Reasoning   string  `json:"reasoning,omitempty"`
}

type Input struct {
	ApplicationID string            `json:"applicationId"`
	ReviewerID    string            `json:"reviewerId"`
	EventID       string            `json:"eventId,omitempty"`
	Stage         string            `json:"stage,omitempty"`
	Scores        []ScoreSubmission `json:"scores"`
}

type Output struct {
	IsValid          bool     `json:"isValid"`
	ValidationErrors []string `json:"validationErrors,omitempty"`
	EventID          string   `json:"eventId"`
	CriteriaChecked  int      `json:"criteriaChecked"`
}
