// internal/workers/data-access/query-postgresql/queries/event.go
package queries

import (
	"context"
	"database/sql"
	"time"
)

func EventCriteria(ctx context.Context, db *sql.DB, params map[string]interface{}) (interface{}, int, int64, error) {
	eventID, ok := params["eventId"].(string)
	if !ok {
		return nil, 0, 0, ErrMissingParam
	}

	start := time.Now()

	rows, err := db.QueryContext(ctx, `
		SELECT id, name, category, weight, min_score, max_score
		FROM criteria
		WHERE event_id = $1
		ORDER BY name`, eventID)
	if err != nil {
		return nil, 0, 0, err
	}
	defer rows.Close()

	var results []map[string]interface{}
	for rows.Next() {
		var id, name, category string
		var weight, minScore, maxScore float64
		if err := rows.Scan(&id, &name, &category, &weight, &minScore, &maxScore); err != nil {
			return nil, 0, 0, err
		}
		results = append(results, map[string]interface{}{
			"id":       id,
			"name":     name,
			"category": category,
			"weight":   weight,
			"minScore": minScore,
			"maxScore": maxScore,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, 0, 0, err
	}

	execTime := time.Since(start).Milliseconds()
	return results, len(results), execTime, nil
}

// EventCohort returns every application of an event with its completed
// evaluation count, the shape the readiness and consensus stages page
// through before deciding whether an event can move on.
func EventCohort(ctx context.Context, db *sql.DB, params map[string]interface{}) (interface{}, int, int64, error) {
	eventID, ok := params["eventId"].(string)
	if !ok {
		return nil, 0, 0, ErrMissingParam
	}

	start := time.Now()

	rows, err := db.QueryContext(ctx, `
		SELECT a.id, a.status, a.submitted_at,
		       COUNT(e.id) FILTER (WHERE e.status = 'COMPLETED') AS completed_evaluations
		FROM applications a
		LEFT JOIN evaluations e ON e.application_id = a.id
		WHERE a.event_id = $1
		GROUP BY a.id, a.status, a.submitted_at
		ORDER BY a.id`, eventID)
	if err != nil {
		return nil, 0, 0, err
	}
	defer rows.Close()

	var results []map[string]interface{}
	for rows.Next() {
		var id, status, submittedAt string
		var completedEvaluations int
		if err := rows.Scan(&id, &status, &submittedAt, &completedEvaluations); err != nil {
			return nil, 0, 0, err
		}
		results = append(results, map[string]interface{}{
			"id":                   id,
			"status":               status,
			"submittedAt":          submittedAt,
			"completedEvaluations": completedEvaluations,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, 0, 0, err
	}

	execTime := time.Since(start).Milliseconds()
	return results, len(results), execTime, nil
}
