// internal/models/evaluation.go
package models

import "time"

type EvaluationStatus string

const (
	EvaluationInProgress EvaluationStatus = "IN_PROGRESS"
	EvaluationCompleted  EvaluationStatus = "COMPLETED"
)

type Recommendation string

const (
	RecommendationAccept     Recommendation = "ACCEPT"
	RecommendationBorderline Recommendation = "BORDERLINE"
	RecommendationReject     Recommendation = "REJECT"
)

// Evaluation is one reviewer's scoring pass over one application.
// OverallScore and Recommendation are only meaningful once Status is COMPLETED.
type Evaluation struct {
	ID               string           `json:"id"`
	ApplicationID    string           `json:"applicationId"`
	ReviewerID       string           `json:"reviewerId"`
	Stage            string           `json:"stage"`
	Status           EvaluationStatus `json:"status"`
	OverallScore     *float64         `json:"overallScore,omitempty"`
	Confidence       *float64         `json:"confidence,omitempty"`
	Recommendation   *Recommendation  `json:"recommendation,omitempty"`
	TimeSpentMinutes *int             `json:"timeSpentMinutes,omitempty"`
	CreatedAt        time.Time        `json:"createdAt"`
	CompletedAt      *time.Time       `json:"completedAt,omitempty"`
}

// Score is one (evaluation, criterion) rating. The store enforces uniqueness
// on the pair.
type Score struct {
	ID           string    `json:"id"`
	EvaluationID string    `json:"evaluationId"`
	CriterionID  string    `json:"criterionId"`
	Score        float64   `json:"score"`
	Reasoning    string    `json:"reasoning,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Comment annotates an evaluation, optionally pinned to a question. Comments
// never affect scoring, only the audit trail.
type Comment struct {
	ID           string    `json:"id"`
	EvaluationID string    `json:"evaluationId"`
	QuestionKey  string    `json:"questionKey,omitempty"`
	Body         string    `json:"body"`
	CreatedAt    time.Time `json:"createdAt"`
}
