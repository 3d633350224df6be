// internal/workers/data-access/query-postgresql/queries/reviewer.go
package queries

import (
	"context"
	"database/sql"
	"time"
)

func ReviewerCompetencies(ctx context.Context, db *sql.DB, params map[string]interface{}) (interface{}, int, int64, error) {
	reviewerID, ok := params["reviewerId"].(string)
	if !ok {
		return nil, 0, 0, ErrMissingParam
	}

	start := time.Now()

	rows, err := db.QueryContext(ctx, `
		SELECT category, competency_level, base_weight
		FROM reviewer_competencies
		WHERE reviewer_id = $1
		ORDER BY category`, reviewerID)
	if err != nil {
		return nil, 0, 0, err
	}
	defer rows.Close()

	var results []map[string]interface{}
	for rows.Next() {
		var category string
		var competencyLevel, baseWeight float64
		if err := rows.Scan(&category, &competencyLevel, &baseWeight); err != nil {
			return nil, 0, 0, err
		}
		results = append(results, map[string]interface{}{
			"category":        category,
			"competencyLevel": competencyLevel,
			"baseWeight":      baseWeight,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, 0, 0, err
	}

	execTime := time.Since(start).Milliseconds()
	return results, len(results), execTime, nil
}
