// internal/models/query_types.go
package models

type QueryType string

const (
	QueryTypeEvaluationFullDetails  QueryType = "evaluation_full_details"
	QueryTypeApplicationEvaluations QueryType = "application_evaluations"
	QueryTypeEventCriteria          QueryType = "event_criteria"
	QueryTypeReviewerCompetencies   QueryType = "reviewer_competencies"
	QueryTypeEventCohort            QueryType = "event_cohort"
)
