// internal/workers/data-access/query-postgresql/queries/evaluation.go
package queries

import (
	"context"
	"database/sql"
	"time"
)

// EvaluationFullDetails returns one evaluation with its criterion scores
// nested under "scores". Nullable columns are omitted from the result
// while the evaluation is still open.
func EvaluationFullDetails(ctx context.Context, db *sql.DB, params map[string]interface{}) (interface{}, int, int64, error) {
	evaluationID, ok := params["evaluationId"].(string)
	if !ok {
		return nil, 0, 0, ErrMissingParam
	}

	start := time.Now()

	var id, applicationID, reviewerID, stage, status, createdAt string
	var overallScore sql.NullFloat64
	var recommendation, confidence, completedAt sql.NullString
	var timeSpent sql.NullInt64

	err := db.QueryRowContext(ctx, `
		SELECT id, application_id, reviewer_id, stage, status, overall_score,
		       recommendation, confidence, time_spent_minutes, created_at, completed_at
		FROM evaluations
		WHERE id = $1`, evaluationID).Scan(
		&id, &applicationID, &reviewerID, &stage, &status,
		&overallScore, &recommendation, &confidence,
		&timeSpent, &createdAt, &completedAt,
	)
	if err != nil {
		return nil, 0, 0, err
	}

	result := map[string]interface{}{
		"id":            id,
		"applicationId": applicationID,
		"reviewerId":    reviewerID,
		"stage":         stage,
		"status":        status,
		"createdAt":     createdAt,
	}
	if overallScore.Valid {
		result["overallScore"] = overallScore.Float64
	}
	if recommendation.Valid {
		result["recommendation"] = recommendation.String
	}
	if confidence.Valid {
		result["confidence"] = confidence.String
	}
	if timeSpent.Valid {
		result["timeSpentMinutes"] = timeSpent.Int64
	}
	if completedAt.Valid {
		result["completedAt"] = completedAt.String
	}

	scores, err := evaluationScores(ctx, db, evaluationID)
	if err != nil {
		return nil, 0, 0, err
	}
	result["scores"] = scores

	execTime := time.Since(start).Milliseconds()
	return result, 1, execTime, nil
}

func evaluationScores(ctx context.Context, db *sql.DB, evaluationID string) ([]map[string]interface{}, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, criterion_id, score
		FROM scores
		WHERE evaluation_id = $1`, evaluationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scores []map[string]interface{}
	for rows.Next() {
		var id, criterionID string
		var score float64
		if err := rows.Scan(&id, &criterionID, &score); err != nil {
			return nil, err
		}
		scores = append(scores, map[string]interface{}{
			"id":          id,
			"criterionId": criterionID,
			"score":       score,
		})
	}
	return scores, rows.Err()
}

// ApplicationEvaluations lists every evaluation of one application with
// the reviewer's name and kind joined in, oldest first.
func ApplicationEvaluations(ctx context.Context, db *sql.DB, params map[string]interface{}) (interface{}, int, int64, error) {
	applicationID, ok := params["applicationId"].(string)
	if !ok {
		return nil, 0, 0, ErrMissingParam
	}

	start := time.Now()

	rows, err := db.QueryContext(ctx, `
		SELECT e.id, e.reviewer_id, r.name, r.kind, e.status,
		       e.overall_score, e.recommendation, e.completed_at
		FROM evaluations e
		JOIN reviewers r ON r.id = e.reviewer_id
		WHERE e.application_id = $1
		ORDER BY e.created_at`, applicationID)
	if err != nil {
		return nil, 0, 0, err
	}
	defer rows.Close()

	var results []map[string]interface{}
	for rows.Next() {
		var id, reviewerID, reviewerName, reviewerKind, status string
		var overallScore sql.NullFloat64
		var recommendation, completedAt sql.NullString
		err := rows.Scan(&id, &reviewerID, &reviewerName, &reviewerKind, &status,
			&overallScore, &recommendation, &completedAt)
		if err != nil {
			return nil, 0, 0, err
		}
		entry := map[string]interface{}{
			"id":           id,
			"reviewerId":   reviewerID,
			"reviewerName": reviewerName,
			"reviewerKind": reviewerKind,
			"status":       status,
		}
		if overallScore.Valid {
			entry["overallScore"] = overallScore.Float64
		}
		if recommendation.Valid {
			entry["recommendation"] = recommendation.String
		}
		if completedAt.Valid {
			entry["completedAt"] = completedAt.String
		}
		results = append(results, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, 0, err
	}

	execTime := time.Since(start).Milliseconds()
	return results, len(results), execTime, nil
}
