// internal/workers/evaluation/validate-evaluation-data/handler_test.go
package validateevaluationdata

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"evaluation-workers/internal/common/logger"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func newTestHandler(t *testing.T) (*Handler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	h := &Handler{
		config: &Config{Timeout: 5 * time.Second},
		db:     db,
		logger: logger.NewTestLogger(t),
	}
	return h, mock
}

func criteriaRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "category", "weight", "min_score", "max_score"}).
		AddRow("crit-tech", "Technical Merit", "technical", 2.0, 0.0, 10.0).
		AddRow("crit-team", "Team Strength", "business", 1.0, 0.0, 10.0)
}

func validInput() *Input {
	return &Input{
		ApplicationID: "app-001",
		ReviewerID:    "rev-001",
		EventID:       "event-001",
		Scores: []ScoreSubmission{
			{CriterionID: "crit-tech", Score: 8, Reasoning: "strong prototype"},
			{CriterionID: "crit-team", Score: 6},
		},
	}
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_ValidSubmission(t *testing.T) {
	h, mock := newTestHandler(t)

	mock.ExpectQuery(`SELECT event_id FROM applications`).
		WithArgs("app-001").
		WillReturnRows(sqlmock.NewRows([]string{"event_id"}).AddRow("event-001"))
	mock.ExpectQuery(`SELECT id, name, category, weight, min_score, max_score`).
		WithArgs("event-001").
		WillReturnRows(criteriaRows())

	output, err := h.Execute(context.Background(), validInput())

	require.NoError(t, err)
	assert.True(t, output.IsValid)
	assert.Empty(t, output.ValidationErrors)
	assert.Equal(t, "event-001", output.EventID)
	assert.Equal(t, 2, output.CriteriaChecked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_StructuralErrorsReturnedNotThrown(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Input)
		wantMsg string
	}{
		{
			name:    "missing application id",
			mutate:  func(in *Input) { in.ApplicationID = "" },
			wantMsg: "applicationId is required",
		},
		{
			name:    "missing reviewer id",
			mutate:  func(in *Input) { in.ReviewerID = "" },
			wantMsg: "reviewerId is required",
		},
		{
			name:    "no scores",
			mutate:  func(in *Input) { in.Scores = nil },
			wantMsg: "at least one score is required",
		},
		{
			name: "duplicate criterion in payload",
			mutate: func(in *Input) {
				in.Scores = append(in.Scores, ScoreSubmission{CriterionID: "crit-tech", Score: 5})
			},
			wantMsg: "duplicate criterion crit-tech",
		},
		{
			name: "score without criterion id",
			mutate: func(in *Input) {
				in.Scores = []ScoreSubmission{{Score: 5}}
			},
			wantMsg: "criterionId is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, mock := newTestHandler(t)
			input := validInput()
			tt.mutate(input)

			output, err := h.Execute(context.Background(), input)

			require.NoError(t, err)
			assert.False(t, output.IsValid)
			require.NotEmpty(t, output.ValidationErrors)

			found := false
			for _, msg := range output.ValidationErrors {
				if strings.Contains(msg, tt.wantMsg) {
					found = true
				}
			}
			assert.True(t, found, "expected %q in %v", tt.wantMsg, output.ValidationErrors)
			// No database access for structurally invalid payloads.
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

// ==========================
// Integrity Violation Tests
// ==========================

func TestHandler_Execute_ApplicationNotFound(t *testing.T) {
	h, mock := newTestHandler(t)

	mock.ExpectQuery(`SELECT event_id FROM applications`).
		WithArgs("app-missing").
		WillReturnRows(sqlmock.NewRows([]string{"event_id"}))

	input := validInput()
	input.ApplicationID = "app-missing"

	_, err := h.Execute(context.Background(), input)
	assert.ErrorIs(t, err, ErrApplicationNotFound)
}

func TestHandler_Execute_EventMismatch(t *testing.T) {
	h, mock := newTestHandler(t)

	mock.ExpectQuery(`SELECT event_id FROM applications`).
		WithArgs("app-001").
		WillReturnRows(sqlmock.NewRows([]string{"event_id"}).AddRow("event-other"))

	_, err := h.Execute(context.Background(), validInput())

	assert.ErrorIs(t, err, ErrDataIntegrity)
	assert.Contains(t, err.Error(), "event-other")
}

func TestHandler_Execute_UnknownCriterion(t *testing.T) {
	h, mock := newTestHandler(t)

	mock.ExpectQuery(`SELECT event_id FROM applications`).
		WithArgs("app-001").
		WillReturnRows(sqlmock.NewRows([]string{"event_id"}).AddRow("event-001"))
	mock.ExpectQuery(`SELECT id, name, category, weight, min_score, max_score`).
		WithArgs("event-001").
		WillReturnRows(criteriaRows())

	input := validInput()
	input.Scores = []ScoreSubmission{{CriterionID: "crit-rogue", Score: 5}}

	_, err := h.Execute(context.Background(), input)

	assert.ErrorIs(t, err, ErrDataIntegrity)
	assert.Contains(t, err.Error(), "crit-rogue")
}

func TestHandler_Execute_OutOfRangeScore(t *testing.T) {
	tests := []struct {
		name  string
		score float64
	}{
		{"above max", 11},
		{"below min", -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, mock := newTestHandler(t)

			mock.ExpectQuery(`SELECT event_id FROM applications`).
				WithArgs("app-001").
				WillReturnRows(sqlmock.NewRows([]string{"event_id"}).AddRow("event-001"))
			mock.ExpectQuery(`SELECT id, name, category, weight, min_score, max_score`).
				WithArgs("event-001").
				WillReturnRows(criteriaRows())

			input := validInput()
			input.Scores = []ScoreSubmission{{CriterionID: "crit-tech", Score: tt.score}}

			_, err := h.Execute(context.Background(), input)
			assert.ErrorIs(t, err, ErrDataIntegrity)
		})
	}
}

func TestHandler_Execute_NoCriteriaForEvent(t *testing.T) {
	h, mock := newTestHandler(t)

	mock.ExpectQuery(`SELECT event_id FROM applications`).
		WithArgs("app-001").
		WillReturnRows(sqlmock.NewRows([]string{"event_id"}).AddRow("event-001"))
	mock.ExpectQuery(`SELECT id, name, category, weight, min_score, max_score`).
		WithArgs("event-001").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "category", "weight", "min_score", "max_score"}))

	_, err := h.Execute(context.Background(), validInput())
	assert.ErrorIs(t, err, ErrCriteriaNotFound)
}

// ==========================
// Infrastructure Error Tests
// ==========================

func TestHandler_Execute_QueryFailure(t *testing.T) {
	h, mock := newTestHandler(t)

	mock.ExpectQuery(`SELECT event_id FROM applications`).
		WithArgs("app-001").
		WillReturnError(errors.New("connection reset"))

	_, err := h.Execute(context.Background(), validInput())
	assert.ErrorIs(t, err, ErrQueryFailed)
}

func TestHandler_Execute_CriteriaQueryFailure(t *testing.T) {
	h, mock := newTestHandler(t)

	mock.ExpectQuery(`SELECT event_id FROM applications`).
		WithArgs("app-001").
		WillReturnRows(sqlmock.NewRows([]string{"event_id"}).AddRow("event-001"))
	mock.ExpectQuery(`SELECT id, name, category, weight, min_score, max_score`).
		WithArgs("event-001").
		WillReturnError(errors.New("connection reset"))

	_, err := h.Execute(context.Background(), validInput())
	assert.ErrorIs(t, err, ErrQueryFailed)
}
