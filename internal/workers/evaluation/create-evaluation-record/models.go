// internal/workers/evaluation/create-evaluation-record/models.go
package createevaluationrecord

type Input struct {
	ApplicationID string `json:"applicationId"`
	ReviewerID    string `json:"reviewerId"`
	Stage         string `json:"stage"`
}

type Output struct {
	EvaluationID     string `json:"evaluationId"`
	EvaluationStatus string `json:"evaluationStatus"`
	CreatedAt        string `json:"createdAt"`
}
