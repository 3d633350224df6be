package querypostgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"evaluation-workers/internal/common/logger"
	"evaluation-workers/internal/models"
	"evaluation-workers/internal/workers/data-access/query-postgresql/queries"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestConfig() *Config {
	return &Config{
		Timeout: 5 * time.Second,
	}
}

func createTestLogger(t *testing.T) logger.Logger {
	return logger.NewZapAdapter(zaptest.NewLogger(t))
}

func createBenchmarkLogger(b *testing.B) logger.Logger {
	// Create a production-like logger for benchmarks
	zapLogger, _ := zap.NewProduction()
	return logger.NewZapAdapter(zapLogger)
}

func createValidInput(queryType models.QueryType) *Input {
	input := &Input{
		QueryType: string(queryType),
	}

	switch queryType {
	case models.QueryTypeEvaluationFullDetails:
		input.EvaluationID = "eval-123"
	case models.QueryTypeApplicationEvaluations:
		input.ApplicationID = "app-123"
	case models.QueryTypeEventCriteria:
		input.EventID = "event-123"
	case models.QueryTypeReviewerCompetencies:
		input.ReviewerID = "rev-456"
	case models.QueryTypeEventCohort:
		input.EventID = "event-123"
	}

	return input
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_Success(t *testing.T) {
	tests := []struct {
		name           string
		queryType      models.QueryType
		mockQuery      func(mock sqlmock.Sqlmock)
		validateOutput func(t *testing.T, output *Output)
	}{
		{
			name:      "evaluation full details",
			queryType: models.QueryTypeEvaluationFullDetails,
			mockQuery: func(mock sqlmock.Sqlmock) {
				evalRows := sqlmock.NewRows([]string{
					"id", "application_id", "reviewer_id", "stage", "status", "overall_score",
					"recommendation", "confidence", "time_spent_minutes", "created_at", "completed_at",
				}).AddRow(
					"eval-123", "app-123", "rev-456", "screening", "COMPLETED",
					78.5, "ACCEPT", "high", 42,
					"2026-03-01T10:00:00Z", "2026-03-01T10:42:00Z",
				)
				mock.ExpectQuery(`SELECT id, application_id, reviewer_id, stage, status, overall_score, recommendation, confidence, time_spent_minutes, created_at, completed_at FROM evaluations WHERE id = \$1`).
					WithArgs("eval-123").
					WillReturnRows(evalRows)

				scoreRows := sqlmock.NewRows([]string{
					"id", "criterion_id", "score",
				}).AddRow(
					"score-1", "crit-tech", 8.5,
				).AddRow(
					"score-2", "crit-team", 7.0,
				)
				mock.ExpectQuery(`SELECT id, criterion_id, score FROM scores WHERE evaluation_id = \$1`).
					WithArgs("eval-123").
					WillReturnRows(scoreRows)
			},
			validateOutput: func(t *testing.T, output *Output) {
				assert.Equal(t, 1, output.RowCount)
				assert.GreaterOrEqual(t, output.QueryExecutionTime, int64(0))

				data := output.Data.(map[string]interface{})
				assert.Equal(t, "eval-123", data["id"])
				assert.Equal(t, "app-123", data["applicationId"])
				assert.Equal(t, "screening", data["stage"])
				assert.Equal(t, "COMPLETED", data["status"])
				assert.Equal(t, 78.5, data["overallScore"])
				assert.Equal(t, "ACCEPT", data["recommendation"])
				assert.Equal(t, int64(42), data["timeSpentMinutes"])
				assert.Equal(t, "2026-03-01T10:42:00Z", data["completedAt"])

				scores := data["scores"].([]map[string]interface{})
				assert.Equal(t, 2, len(scores))
				assert.Equal(t, "crit-tech", scores[0]["criterionId"])
				assert.Equal(t, 8.5, scores[0]["score"])
			},
		},
		{
			name:      "application evaluations",
			queryType: models.QueryTypeApplicationEvaluations,
			mockQuery: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows([]string{
					"id", "reviewer_id", "name", "kind", "status",
					"overall_score", "recommendation", "completed_at",
				}).AddRow(
					"eval-1", "rev-h1", "Dana Torres", "HUMAN", "COMPLETED",
					82.0, "ACCEPT", "2026-03-01T11:00:00Z",
				).AddRow(
					"eval-2", "rev-ai", "Screening Bot", "AUTOMATED", "IN_PROGRESS",
					nil, nil, nil,
				)
				mock.ExpectQuery(`SELECT e\.id, e\.reviewer_id, r\.name, r\.kind, e\.status, e\.overall_score, e\.recommendation, e\.completed_at FROM evaluations e JOIN reviewers r ON r\.id = e\.reviewer_id WHERE e\.application_id = \$1 ORDER BY e\.created_at`).
					WithArgs("app-123").
					WillReturnRows(rows)
			},
			validateOutput: func(t *testing.T, output *Output) {
				assert.Equal(t, 2, output.RowCount)
				assert.GreaterOrEqual(t, output.QueryExecutionTime, int64(0))

				data := output.Data.([]map[string]interface{})
				assert.Equal(t, 2, len(data))
				assert.Equal(t, "Dana Torres", data[0]["reviewerName"])
				assert.Equal(t, 82.0, data[0]["overallScore"])
				assert.Equal(t, "AUTOMATED", data[1]["reviewerKind"])
				assert.NotContains(t, data[1], "overallScore")
				assert.NotContains(t, data[1], "completedAt")
			},
		},
		{
			name:      "event criteria",
			queryType: models.QueryTypeEventCriteria,
			mockQuery: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows([]string{
					"id", "name", "category", "weight", "min_score", "max_score",
				}).AddRow(
					"crit-team", "Team Strength", "team", 0.3, 0.0, 10.0,
				).AddRow(
					"crit-tech", "Technical Merit", "technical", 0.4, 0.0, 100.0,
				)
				mock.ExpectQuery(`SELECT id, name, category, weight, min_score, max_score FROM criteria WHERE event_id = \$1 ORDER BY name`).
					WithArgs("event-123").
					WillReturnRows(rows)
			},
			validateOutput: func(t *testing.T, output *Output) {
				assert.Equal(t, 2, output.RowCount)
				assert.GreaterOrEqual(t, output.QueryExecutionTime, int64(0))

				data := output.Data.([]map[string]interface{})
				assert.Equal(t, 2, len(data))
				assert.Equal(t, "Team Strength", data[0]["name"])
				assert.Equal(t, 0.3, data[0]["weight"])
				assert.Equal(t, 100.0, data[1]["maxScore"])
			},
		},
		{
			name:      "reviewer competencies",
			queryType: models.QueryTypeReviewerCompetencies,
			mockQuery: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows([]string{
					"category", "competency_level", "base_weight",
				}).AddRow(
					"design", 2.0, 1.0,
				).AddRow(
					"technical", 4.0, 1.5,
				)
				mock.ExpectQuery(`SELECT category, competency_level, base_weight FROM reviewer_competencies WHERE reviewer_id = \$1 ORDER BY category`).
					WithArgs("rev-456").
					WillReturnRows(rows)
			},
			validateOutput: func(t *testing.T, output *Output) {
				assert.Equal(t, 2, output.RowCount)
				assert.GreaterOrEqual(t, output.QueryExecutionTime, int64(0))

				data := output.Data.([]map[string]interface{})
				assert.Equal(t, 2, len(data))
				assert.Equal(t, "design", data[0]["category"])
				assert.Equal(t, 4.0, data[1]["competencyLevel"])
				assert.Equal(t, 1.5, data[1]["baseWeight"])
			},
		},
		{
			name:      "event cohort",
			queryType: models.QueryTypeEventCohort,
			mockQuery: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows([]string{
					"id", "status", "submitted_at", "completed_evaluations",
				}).AddRow(
					"app-1", "UNDER_REVIEW", "2026-02-20T09:00:00Z", 2,
				).AddRow(
					"app-2", "ACCEPTED", "2026-02-21T09:30:00Z", 3,
				)
				mock.ExpectQuery(`SELECT a\.id, a\.status, a\.submitted_at, COUNT\(e\.id\) FILTER \(WHERE e\.status = 'COMPLETED'\) AS completed_evaluations FROM applications a LEFT JOIN evaluations e ON e\.application_id = a\.id WHERE a\.event_id = \$1 GROUP BY a\.id, a\.status, a\.submitted_at ORDER BY a\.id`).
					WithArgs("event-123").
					WillReturnRows(rows)
			},
			validateOutput: func(t *testing.T, output *Output) {
				assert.Equal(t, 2, output.RowCount)
				assert.GreaterOrEqual(t, output.QueryExecutionTime, int64(0))

				data := output.Data.([]map[string]interface{})
				assert.Equal(t, 2, len(data))
				assert.Equal(t, "app-1", data[0]["id"])
				assert.Equal(t, 2, data[0]["completedEvaluations"])
				assert.Equal(t, "ACCEPTED", data[1]["status"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			if err != nil {
				t.Fatalf("failed to create mock: %v", err)
			}
			defer db.Close()

			tt.mockQuery(mock)

			handler := NewHandler(createTestConfig(), db, createTestLogger(t))
			input := createValidInput(tt.queryType)

			output, err := handler.execute(context.Background(), input)

			assert.NoError(t, err)
			assert.NotNil(t, output)
			assert.NoError(t, mock.ExpectationsWereMet())

			if tt.validateOutput != nil {
				tt.validateOutput(t, output)
			}
		})
	}
}

func TestHandler_Execute_Timeout(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT id, name, category, weight, min_score, max_score FROM criteria WHERE event_id = \$1 ORDER BY name`).
		WithArgs("event-123").
		WillDelayFor(200 * time.Millisecond). // Longer than timeout
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("crit-tech"))

	config := createTestConfig()
	config.Timeout = 50 * time.Millisecond // Very short timeout

	handler := NewHandler(config, db, createTestLogger(t))
	input := createValidInput(models.QueryTypeEventCriteria)

	ctx, cancel := context.WithTimeout(context.Background(), config.Timeout)
	defer cancel()

	output, err := handler.execute(ctx, input)

	// The test should timeout, but we need to handle both cases
	if err != nil {
		assert.True(t, errors.Is(err, ErrQueryTimeout) ||
			errors.Is(err, context.DeadlineExceeded) ||
			ctx.Err() == context.DeadlineExceeded ||
			strings.Contains(err.Error(), "timeout") ||
			strings.Contains(err.Error(), "deadline"))
	} else {
		assert.Nil(t, output)
	}
}

func TestHandler_Execute_QueryErrors(t *testing.T) {
	tests := []struct {
		name          string
		queryType     models.QueryType
		input         *Input
		mockQuery     func(mock sqlmock.Sqlmock)
		expectedErr   error
		errorContains string
	}{
		{
			name:      "unknown query type",
			queryType: models.QueryType("unknown_query"),
			input: &Input{
				QueryType: "unknown_query",
			},
			mockQuery: func(mock sqlmock.Sqlmock) {
				// No mock needed since it fails before DB call
			},
			expectedErr:   ErrInvalidQueryType,
			errorContains: "INVALID_QUERY_TYPE",
		},
		{
			name:      "database error",
			queryType: models.QueryTypeEventCriteria,
			input:     createValidInput(models.QueryTypeEventCriteria),
			mockQuery: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT id, name, category, weight, min_score, max_score FROM criteria WHERE event_id = \$1 ORDER BY name`).
					WithArgs("event-123").
					WillReturnError(errors.New("connection reset by peer"))
			},
			expectedErr:   ErrQueryExecutionFailed,
			errorContains: "QUERY_EXECUTION_FAILED",
		},
		{
			name:      "missing evaluation ID",
			queryType: models.QueryTypeEvaluationFullDetails,
			input: &Input{
				QueryType: string(models.QueryTypeEvaluationFullDetails),
				// Missing EvaluationID
			},
			mockQuery: func(mock sqlmock.Sqlmock) {
				// No mock needed since it fails before DB call
			},
			expectedErr:   queries.ErrMissingParam,
			errorContains: "QUERY_EXECUTION_FAILED",
		},
		{
			name:      "no rows found",
			queryType: models.QueryTypeEvaluationFullDetails,
			input:     createValidInput(models.QueryTypeEvaluationFullDetails),
			mockQuery: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT id, application_id, reviewer_id, stage, status, overall_score, recommendation, confidence, time_spent_minutes, created_at, completed_at FROM evaluations WHERE id = \$1`).
					WithArgs("eval-123").
					WillReturnError(sql.ErrNoRows)
			},
			expectedErr:   ErrQueryExecutionFailed,
			errorContains: "QUERY_EXECUTION_FAILED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			if err != nil {
				t.Fatalf("failed to create mock: %v", err)
			}
			defer db.Close()

			if tt.mockQuery != nil {
				tt.mockQuery(mock)
			}

			handler := NewHandler(createTestConfig(), db, createTestLogger(t))
			output, err := handler.execute(context.Background(), tt.input)

			assert.Error(t, err)
			assert.True(t, errors.Is(err, tt.expectedErr) || errors.Is(err, ErrQueryExecutionFailed))
			assert.Contains(t, err.Error(), tt.errorContains)
			assert.Nil(t, output)
		})
	}
}

// ==========================
// Unit Tests - Parameter Handling
// ==========================

func TestHandler_Execute_ParameterHandling(t *testing.T) {
	tests := []struct {
		name      string
		input     *Input
		queryType models.QueryType
		validate  func(t *testing.T, output *Output, err error)
	}{
		{
			name: "with filters",
			input: &Input{
				QueryType:    string(models.QueryTypeEvaluationFullDetails),
				EvaluationID: "eval-123",
				Filters: map[string]interface{}{
					"includeScores": true,
				},
			},
			queryType: models.QueryTypeEvaluationFullDetails,
			validate: func(t *testing.T, output *Output, err error) {
				// Filters should be passed to query function
				assert.NoError(t, err)
				assert.NotNil(t, output)
			},
		},
		{
			name: "missing event ID for cohort",
			input: &Input{
				QueryType: string(models.QueryTypeEventCohort),
				// EventID is empty
			},
			queryType: models.QueryTypeEventCohort,
			validate: func(t *testing.T, output *Output, err error) {
				assert.Error(t, err)
				assert.Nil(t, output)
			},
		},
		{
			name: "missing reviewer ID",
			input: &Input{
				QueryType: string(models.QueryTypeReviewerCompetencies),
				// ReviewerID is empty
			},
			queryType: models.QueryTypeReviewerCompetencies,
			validate: func(t *testing.T, output *Output, err error) {
				assert.Error(t, err)
				assert.Nil(t, output)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			if err != nil {
				t.Fatalf("failed to create mock: %v", err)
			}
			defer db.Close()

			// Only mock if we expect a successful query
			if tt.validate != nil && tt.input.EvaluationID != "" {
				switch tt.queryType {
				case models.QueryTypeEvaluationFullDetails:
					evalRows := sqlmock.NewRows([]string{
						"id", "application_id", "reviewer_id", "stage", "status", "overall_score",
						"recommendation", "confidence", "time_spent_minutes", "created_at", "completed_at",
					}).AddRow("eval-123", "app-123", "rev-456", "screening", "IN_PROGRESS", nil, nil, nil, nil, "2026-03-01T10:00:00Z", nil)
					mock.ExpectQuery(`SELECT.*FROM evaluations`).WillReturnRows(evalRows)
					mock.ExpectQuery(`SELECT.*FROM scores`).
						WillReturnRows(sqlmock.NewRows([]string{"id", "criterion_id", "score"}))
				}
			}

			handler := NewHandler(createTestConfig(), db, createTestLogger(t))
			output, err := handler.execute(context.Background(), tt.input)

			tt.validate(t, output, err)

			// Check if all expectations were met
			if err := mock.ExpectationsWereMet(); err != nil && tt.input.EvaluationID != "" {
				t.Errorf("there were unfulfilled expectations: %s", err)
			}
		})
	}
}

// ==========================
// Edge Cases
// ==========================

func TestHandler_EdgeCases(t *testing.T) {
	handler := NewHandler(createTestConfig(), nil, createTestLogger(t))

	t.Run("nil input", func(t *testing.T) {
		output, err := handler.execute(context.Background(), nil)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "input cannot be nil")
		assert.Nil(t, output)
	})

	t.Run("empty query type", func(t *testing.T) {
		input := &Input{
			QueryType: "",
		}
		output, err := handler.execute(context.Background(), input)
		assert.Error(t, err)
		assert.Nil(t, output)
	})

	t.Run("cancelled context", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("failed to create mock: %v", err)
		}
		defer db.Close()

		mock.ExpectQuery(`SELECT id, name, category, weight, min_score, max_score FROM criteria WHERE event_id = \$1 ORDER BY name`).
			WithArgs("event-123").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("crit-tech"))

		handler := NewHandler(createTestConfig(), db, createTestLogger(t))
		input := createValidInput(models.QueryTypeEventCriteria)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		output, err := handler.execute(ctx, input)

		// May or may not error depending on timing, but should handle gracefully
		if err != nil {
			assert.Error(t, err)
		} else {
			assert.NotNil(t, output)
		}
	})

	t.Run("large result set", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("failed to create mock: %v", err)
		}
		defer db.Close()

		rows := sqlmock.NewRows([]string{
			"id", "status", "submitted_at", "completed_evaluations",
		})
		for i := 0; i < 1000; i++ {
			rows.AddRow(
				fmt.Sprintf("app-%d", i), "UNDER_REVIEW",
				"2026-02-20T09:00:00Z", 1,
			)
		}

		mock.ExpectQuery(`SELECT a\.id, a\.status, a\.submitted_at, COUNT\(e\.id\) FILTER \(WHERE e\.status = 'COMPLETED'\) AS completed_evaluations FROM applications a LEFT JOIN evaluations e ON e\.application_id = a\.id WHERE a\.event_id = \$1 GROUP BY a\.id, a\.status, a\.submitted_at ORDER BY a\.id`).
			WithArgs("event-123").
			WillReturnRows(rows)

		handler := NewHandler(createTestConfig(), db, createTestLogger(t))
		input := createValidInput(models.QueryTypeEventCohort)

		output, err := handler.execute(context.Background(), input)

		assert.NoError(t, err)
		assert.NotNil(t, output)
		assert.Equal(t, 1000, output.RowCount)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

// ==========================
// Integration Test
// ==========================

func TestHandler_FullWorkflow(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	// Mock event criteria query
	criteriaRows := sqlmock.NewRows([]string{
		"id", "name", "category", "weight", "min_score", "max_score",
	}).AddRow(
		"crit-team", "Team Strength", "team", 0.3, 0.0, 10.0,
	).AddRow(
		"crit-tech", "Technical Merit", "technical", 0.4, 0.0, 100.0,
	)
	mock.ExpectQuery(`SELECT id, name, category, weight, min_score, max_score FROM criteria WHERE event_id = \$1 ORDER BY name`).
		WithArgs("event-123").
		WillReturnRows(criteriaRows)

	// Mock event cohort query
	cohortRows := sqlmock.NewRows([]string{
		"id", "status", "submitted_at", "completed_evaluations",
	}).AddRow(
		"app-1", "UNDER_REVIEW", "2026-02-20T09:00:00Z", 2,
	).AddRow(
		"app-2", "ACCEPTED", "2026-02-21T09:30:00Z", 3,
	)
	mock.ExpectQuery(`SELECT a\.id, a\.status, a\.submitted_at, COUNT\(e\.id\) FILTER \(WHERE e\.status = 'COMPLETED'\) AS completed_evaluations FROM applications a LEFT JOIN evaluations e ON e\.application_id = a\.id WHERE a\.event_id = \$1 GROUP BY a\.id, a\.status, a\.submitted_at ORDER BY a\.id`).
		WithArgs("event-123").
		WillReturnRows(cohortRows)

	handler := NewHandler(createTestConfig(), db, createTestLogger(t))

	// Test event criteria
	criteriaInput := createValidInput(models.QueryTypeEventCriteria)
	criteriaOutput, err := handler.execute(context.Background(), criteriaInput)

	assert.NoError(t, err)
	assert.NotNil(t, criteriaOutput)
	assert.Equal(t, 2, criteriaOutput.RowCount)
	assert.GreaterOrEqual(t, criteriaOutput.QueryExecutionTime, int64(0))

	// Test event cohort
	cohortInput := createValidInput(models.QueryTypeEventCohort)
	cohortOutput, err := handler.execute(context.Background(), cohortInput)

	assert.NoError(t, err)
	assert.NotNil(t, cohortOutput)
	assert.Equal(t, 2, cohortOutput.RowCount)
	assert.GreaterOrEqual(t, cohortOutput.QueryExecutionTime, int64(0))

	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Benchmark Tests
// ==========================

func BenchmarkHandler_Execute_EvaluationFullDetails(b *testing.B) {
	db, mock, err := sqlmock.New()
	if err != nil {
		b.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	evalRows := sqlmock.NewRows([]string{
		"id", "application_id", "reviewer_id", "stage", "status", "overall_score",
		"recommendation", "confidence", "time_spent_minutes", "created_at", "completed_at",
	}).AddRow(
		"eval-123", "app-123", "rev-456", "screening", "COMPLETED",
		78.5, "ACCEPT", "high", 42,
		"2026-03-01T10:00:00Z", "2026-03-01T10:42:00Z",
	)
	mock.ExpectQuery(`SELECT id, application_id, reviewer_id, stage, status, overall_score, recommendation, confidence, time_spent_minutes, created_at, completed_at FROM evaluations WHERE id = \$1`).
		WithArgs("eval-123").
		WillReturnRows(evalRows)
	mock.ExpectQuery(`SELECT id, criterion_id, score FROM scores WHERE evaluation_id = \$1`).
		WithArgs("eval-123").
		WillReturnRows(sqlmock.NewRows([]string{"id", "criterion_id", "score"}).AddRow("score-1", "crit-tech", 8.5))

	handler := NewHandler(createTestConfig(), db, createBenchmarkLogger(b))
	input := createValidInput(models.QueryTypeEvaluationFullDetails)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		handler.execute(context.Background(), input)
	}
}

func BenchmarkHandler_Execute_EventCriteria(b *testing.B) {
	db, mock, err := sqlmock.New()
	if err != nil {
		b.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	rows := sqlmock.NewRows([]string{
		"id", "name", "category", "weight", "min_score", "max_score",
	}).AddRow("crit-tech", "Technical Merit", "technical", 0.4, 0.0, 100.0)
	mock.ExpectQuery(`SELECT id, name, category, weight, min_score, max_score FROM criteria WHERE event_id = \$1 ORDER BY name`).
		WithArgs("event-123").
		WillReturnRows(rows)

	handler := NewHandler(createTestConfig(), db, createBenchmarkLogger(b))
	input := createValidInput(models.QueryTypeEventCriteria)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		handler.execute(context.Background(), input)
	}
}

func BenchmarkHandler_Execute_EventCohort(b *testing.B) {
	db, mock, err := sqlmock.New()
	if err != nil {
		b.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	rows := sqlmock.NewRows([]string{
		"id", "status", "submitted_at", "completed_evaluations",
	}).AddRow("app-1", "UNDER_REVIEW", "2026-02-20T09:00:00Z", 2)
	mock.ExpectQuery(`SELECT a\.id, a\.status, a\.submitted_at, COUNT\(e\.id\) FILTER \(WHERE e\.status = 'COMPLETED'\) AS completed_evaluations FROM applications a LEFT JOIN evaluations e ON e\.application_id = a\.id WHERE a\.event_id = \$1 GROUP BY a\.id, a\.status, a\.submitted_at ORDER BY a\.id`).
		WithArgs("event-123").
		WillReturnRows(rows)

	handler := NewHandler(createTestConfig(), db, createBenchmarkLogger(b))
	input := createValidInput(models.QueryTypeEventCohort)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		handler.execute(context.Background(), input)
	}
}
