// internal/engine/audit/trail_test.go
package audit

import (
	"testing"
	"time"

	"evaluation-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func testReviewers() map[string]models.Reviewer {
	return map[string]models.Reviewer{
		"rev-human": {ID: "rev-human", Name: "Dana Reviewer", Kind: models.ReviewerHuman},
		"rev-ai":    {ID: "rev-ai", Name: "Screening Model", Kind: models.ReviewerAutomated},
	}
}

// testSource builds two evaluations: a completed human one with two scores
// and a comment, and an open AI one with a single score.
func testSource() Source {
	completedAt := baseTime.Add(45 * time.Minute)
	score := 72.0
	rec := models.RecommendationBorderline
	timeSpent := 45

	return Source{
		Evaluations: []models.Evaluation{
			{
				ID:               "eval-human",
				ApplicationID:    "app-001",
				ReviewerID:       "rev-human",
				Status:           models.EvaluationCompleted,
				OverallScore:     &score,
				Recommendation:   &rec,
				TimeSpentMinutes: &timeSpent,
				CreatedAt:        baseTime,
				CompletedAt:      &completedAt,
			},
			{
				ID:            "eval-ai",
				ApplicationID: "app-002",
				ReviewerID:    "rev-ai",
				Status:        models.EvaluationInProgress,
				CreatedAt:     baseTime.Add(10 * time.Minute),
			},
		},
		Scores: []models.Score{
			{ID: "s1", EvaluationID: "eval-human", CriterionID: "crit-1", Score: 8, CreatedAt: baseTime.Add(5 * time.Minute)},
			{ID: "s2", EvaluationID: "eval-human", CriterionID: "crit-2", Score: 6, CreatedAt: baseTime.Add(20 * time.Minute)},
			{ID: "s3", EvaluationID: "eval-ai", CriterionID: "crit-1", Score: 7, CreatedAt: baseTime.Add(15 * time.Minute)},
		},
		Comments: []models.Comment{
			{ID: "c1", EvaluationID: "eval-human", QuestionKey: "q-motivation", Body: "strong answer", CreatedAt: baseTime.Add(30 * time.Minute)},
		},
		Reviewers: testReviewers(),
	}
}

func TestBuild_EventCountIdentity(t *testing.T) {
	src := testSource()

	trail := Build(src, Filter{}, DefaultConfig())

	// One start per evaluation, one completion per completed evaluation,
	// one event per score, one per comment.
	expected := len(src.Evaluations) + 1 + len(src.Scores) + len(src.Comments)
	assert.Equal(t, expected, trail.TotalEvents)
	assert.Len(t, trail.Events, expected)

	assert.Equal(t, 2, trail.EventCounts[models.AuditEvaluationStarted])
	assert.Equal(t, 1, trail.EventCounts[models.AuditEvaluationCompleted])
	assert.Equal(t, 3, trail.EventCounts[models.AuditScoreUpdated])
	assert.Equal(t, 1, trail.EventCounts[models.AuditCommentAdded])
}

func TestBuild_ReverseChronological(t *testing.T) {
	trail := Build(testSource(), Filter{}, DefaultConfig())

	require.NotEmpty(t, trail.Events)
	for i := 1; i < len(trail.Events); i++ {
		assert.False(t, trail.Events[i-1].Timestamp.Before(trail.Events[i].Timestamp),
			"event %d is newer than event %d", i, i-1)
	}
	assert.Equal(t, models.AuditEvaluationCompleted, trail.Events[0].Type)
}

func TestBuild_AICompletionTypedSeparately(t *testing.T) {
	src := testSource()
	aiCompletedAt := baseTime.Add(12 * time.Minute)
	aiScore := 64.0
	src.Evaluations[1].Status = models.EvaluationCompleted
	src.Evaluations[1].OverallScore = &aiScore
	src.Evaluations[1].CompletedAt = &aiCompletedAt

	trail := Build(src, Filter{}, DefaultConfig())

	assert.Equal(t, 1, trail.EventCounts[models.AuditAIEvaluation])
	assert.Equal(t, 1, trail.EventCounts[models.AuditEvaluationCompleted])
}

func TestBuild_FilterByApplication(t *testing.T) {
	trail := Build(testSource(), Filter{ApplicationID: "app-002"}, DefaultConfig())

	// The open AI evaluation contributes its start and one score event.
	assert.Equal(t, 2, trail.TotalEvents)
	for _, event := range trail.Events {
		assert.Equal(t, "app-002", event.ApplicationID)
	}
}

func TestBuild_FilterAIOnly(t *testing.T) {
	trail := Build(testSource(), Filter{AIOnly: true}, DefaultConfig())

	require.NotEmpty(t, trail.Events)
	for _, event := range trail.Events {
		assert.True(t, event.IsAIReviewer)
	}
	assert.Zero(t, trail.HumanEvents)
	assert.Equal(t, trail.TotalEvents, trail.AIEvents)
}

func TestBuild_FilterByDateRange(t *testing.T) {
	trail := Build(testSource(), Filter{
		From: baseTime.Add(4 * time.Minute),
		To:   baseTime.Add(21 * time.Minute),
	}, DefaultConfig())

	// Events at +5, +10, +15 and +20 minutes fall inside the window.
	assert.Equal(t, 4, trail.TotalEvents)
}

func TestBuild_LimitTruncatesListNotStats(t *testing.T) {
	trail := Build(testSource(), Filter{Limit: 2}, DefaultConfig())

	assert.Len(t, trail.Events, 2)
	assert.Equal(t, 7, trail.TotalEvents)
	assert.Equal(t, 3, trail.EventCounts[models.AuditScoreUpdated])
}

func TestBuild_LimitClampedToMax(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxLimit = 3

	trail := Build(testSource(), Filter{Limit: 500}, cfg)

	assert.Len(t, trail.Events, 3)
	assert.Equal(t, 7, trail.TotalEvents)
}

func TestBuild_TopReviewers(t *testing.T) {
	trail := Build(testSource(), Filter{}, DefaultConfig())

	require.NotEmpty(t, trail.TopReviewers)
	busiest := trail.TopReviewers[0]
	// The human reviewer has start + completion + two scores + one comment.
	assert.Equal(t, "rev-human", busiest.ReviewerID)
	assert.Equal(t, 5, busiest.EventCount)
	assert.False(t, busiest.IsAIReviewer)

	for i := 1; i < len(trail.TopReviewers); i++ {
		assert.GreaterOrEqual(t,
			trail.TopReviewers[i-1].EventCount,
			trail.TopReviewers[i].EventCount)
	}
}

func TestBuild_Anomalies(t *testing.T) {
	src := testSource()
	rushed := 3
	src.Evaluations[0].TimeSpentMinutes = &rushed

	trail := Build(src, Filter{}, DefaultConfig())

	assert.Equal(t, []string{"eval-human"}, trail.Anomalies.RapidFire)
	assert.Equal(t, []string{"eval-ai"}, trail.Anomalies.Incomplete)
}

func TestBuild_AnomaliesRespectIdentityFilters(t *testing.T) {
	trail := Build(testSource(), Filter{ReviewerID: "rev-human"}, DefaultConfig())

	assert.Empty(t, trail.Anomalies.Incomplete, "the open evaluation belongs to another reviewer")
	assert.Empty(t, trail.Anomalies.RapidFire, "45 minutes is not rapid fire")
}

func TestBuild_RebuildIsDeterministic(t *testing.T) {
	first := Build(testSource(), Filter{}, DefaultConfig())
	second := Build(testSource(), Filter{}, DefaultConfig())

	assert.Equal(t, first, second)
}
