// internal/workers/analytics/build-audit-trail/models.go
package buildaudittrail

import "evaluation-workers/internal/engine/audit"

// Input from BPMN process variables. EventID or ApplicationID sets the
// record scope; the remaining fields narrow the projected trail.
type Input struct {
	EventID         string `json:"eventId"`
	ApplicationID   string `json:"applicationId"`
	ReviewerID      string `json:"reviewerId"`
	AIReviewersOnly bool   `json:"aiReviewersOnly"`
	From            string `json:"from"`
	To              string `json:"to"`
	Limit           int    `json:"limit"`
}

// Output to BPMN process variables
type Output struct {
	Trail         audit.Trail `json:"auditTrail"`
	EventID       string      `json:"eventId,omitempty"`
	ApplicationID string      `json:"applicationId,omitempty"`
	GeneratedAt   string      `json:"generatedAt"`
}
