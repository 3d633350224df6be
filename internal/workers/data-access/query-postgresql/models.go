// internal/workers/data-access/query-postgresql/models.go
package querypostgresql

import "evaluation-workers/internal/models"

type Input struct {
	QueryType     string                 `json:"queryType"`
	EvaluationID  string                 `json:"evaluationId,omitempty"`
	ApplicationID string                 `json:"applicationId,omitempty"`
	EventID       string                 `json:"eventId,omitempty"`
	ReviewerID    string                 `json:"reviewerId,omitempty"`
	Filters       map[string]interface{} `json:"filters,omitempty"`
}

type Output struct {
	Data               interface{} `json:"data"`
	RowCount           int         `json:"rowCount"`
	QueryExecutionTime int64       `json:"queryExecutionTime"` // milliseconds
}

type QueryType = models.QueryType

// Export constants for external use
var (
	QueryTypeEvaluationFullDetails  = models.QueryTypeEvaluationFullDetails
	QueryTypeApplicationEvaluations = models.QueryTypeApplicationEvaluations
	QueryTypeEventCriteria          = models.QueryTypeEventCriteria
	QueryTypeReviewerCompetencies   = models.QueryTypeReviewerCompetencies
	QueryTypeEventCohort            = models.QueryTypeEventCohort
)
