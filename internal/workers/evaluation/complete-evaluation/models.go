// internal/workers/evaluation/complete-evaluation/models.go
package completeevaluation

type Input struct {
	EvaluationID     string `json:"evaluationId"`
	TimeSpentMinutes int    `json:"timeSpentMinutes"`
}

type Output struct {
	EvaluationID     string  `json:"evaluationId"`
	ApplicationID    string  `json:"applicationId"`
	OverallScore     float64 `json:"overallScore"`
	NormalizedScore  float64 `json:"normalizedScore"`
	Recommendation   string  `json:"recommendation"`
	Confidence       float64 `json:"confidence"`
	CriteriaScored   int     `json:"criteriaScored"`
	AlreadyCompleted bool    `json:"alreadyCompleted"`
	CompletedAt      string  `json:"completedAt"`
}
