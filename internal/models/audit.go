// internal/models/audit.go
package models

import "time"

// AuditEventType enumerates the activity kinds synthesized from evaluation,
// score and comment records. There is no audit table; events are a derived
// projection and can be rebuilt at any time.
type AuditEventType string

const (
	AuditEvaluationStarted   AuditEventType = "EVALUATION_STARTED"
	AuditEvaluationCompleted AuditEventType = "EVALUATION_COMPLETED"
	AuditAIEvaluation        AuditEventType = "AI_EVALUATION"
	AuditScoreUpdated        AuditEventType = "SCORE_UPDATED"
	AuditCommentAdded        AuditEventType = "COMMENT_ADDED"
)

type AuditEvent struct {
	Type          AuditEventType `json:"type"`
	Timestamp     time.Time      `json:"timestamp"`
	ApplicationID string         `json:"applicationId"`
	EvaluationID  string         `json:"evaluationId"`
	ReviewerID    string         `json:"reviewerId"`
	ReviewerName  string         `json:"reviewerName,omitempty"`
	IsAIReviewer  bool           `json:"isAiReviewer"`
	Detail        string         `json:"detail,omitempty"`
}
