// internal/engine/consensus/consensus_test.go
package consensus

import (
	"testing"
	"time"

	"evaluation-workers/internal/engine/scoring"
	"evaluation-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completedEval(id string, score float64, rec models.Recommendation) models.Evaluation {
	completedAt := time.Now().UTC()
	recommendation := rec
	return models.Evaluation{
		ID:             id,
		ApplicationID:  "app-001",
		ReviewerID:     "rev-" + id,
		Status:         models.EvaluationCompleted,
		OverallScore:   &score,
		Recommendation: &recommendation,
		CreatedAt:      completedAt.Add(-time.Hour),
		CompletedAt:    &completedAt,
	}
}

func TestPropose_CloseScoresNoEscalation(t *testing.T) {
	evals := []models.Evaluation{
		completedEval("e1", 70, models.RecommendationBorderline),
		completedEval("e2", 72, models.RecommendationBorderline),
		completedEval("e3", 69, models.RecommendationBorderline),
	}

	proposal, err := Propose("app-001", evals, DefaultConfig(), scoring.DefaultConfig())

	require.NoError(t, err)
	assert.Equal(t, 3, proposal.EvaluationCount)
	assert.InDelta(t, 70.333, proposal.MeanScore, 0.001)
	assert.InDelta(t, 1.247, proposal.StdDev, 0.001)
	assert.False(t, proposal.NeedsReconcile)
	assert.False(t, proposal.LowConfidence)
	assert.Equal(t, models.RecommendationBorderline, proposal.ProposedDecision)
}

func TestPropose_HighVarianceEscalates(t *testing.T) {
	evals := []models.Evaluation{
		completedEval("e1", 40, models.RecommendationReject),
		completedEval("e2", 90, models.RecommendationAccept),
		completedEval("e3", 55, models.RecommendationBorderline),
	}

	proposal, err := Propose("app-001", evals, DefaultConfig(), scoring.DefaultConfig())

	require.NoError(t, err)
	assert.InDelta(t, 20.95, proposal.StdDev, 0.01)
	assert.True(t, proposal.NeedsReconcile)
	assert.Empty(t, proposal.ProposedDecision, "escalated applications get no auto-proposal")
}

func TestPropose_IdenticalScoresFullAgreement(t *testing.T) {
	evals := []models.Evaluation{
		completedEval("e1", 85, models.RecommendationAccept),
		completedEval("e2", 85, models.RecommendationAccept),
		completedEval("e3", 85, models.RecommendationAccept),
	}

	proposal, err := Propose("app-001", evals, DefaultConfig(), scoring.DefaultConfig())

	require.NoError(t, err)
	assert.Zero(t, proposal.StdDev)
	assert.InDelta(t, 100.0, proposal.Agreement, 1e-9)
	assert.Equal(t, models.RecommendationAccept, proposal.ProposedDecision)
}

func TestPropose_SplitRecommendationsHalveAgreement(t *testing.T) {
	evals := []models.Evaluation{
		completedEval("e1", 60, models.RecommendationAccept),
		completedEval("e2", 60, models.RecommendationReject),
	}

	proposal, err := Propose("app-001", evals, DefaultConfig(), scoring.DefaultConfig())

	require.NoError(t, err)
	// Identical scores give 100 on the score term, split votes give 0 on
	// the recommendation term.
	assert.InDelta(t, 50.0, proposal.Agreement, 1e-9)
}

func TestPropose_MajorityDecision(t *testing.T) {
	evals := []models.Evaluation{
		completedEval("e1", 80, models.RecommendationAccept),
		completedEval("e2", 78, models.RecommendationAccept),
		completedEval("e3", 70, models.RecommendationBorderline),
	}

	proposal, err := Propose("app-001", evals, DefaultConfig(), scoring.DefaultConfig())

	require.NoError(t, err)
	assert.Equal(t, models.RecommendationAccept, proposal.ProposedDecision)
	assert.Equal(t, 2, proposal.RecommendDist[models.RecommendationAccept])
	assert.Equal(t, 1, proposal.RecommendDist[models.RecommendationBorderline])
}

func TestPropose_TieBrokenByMeanScore(t *testing.T) {
	evals := []models.Evaluation{
		completedEval("e1", 82, models.RecommendationAccept),
		completedEval("e2", 78, models.RecommendationBorderline),
	}

	proposal, err := Propose("app-001", evals, DefaultConfig(), scoring.DefaultConfig())

	require.NoError(t, err)
	// Mean 80 on the 0-100 scale classifies as ACCEPT at the 0.75 threshold.
	assert.Equal(t, models.RecommendationAccept, proposal.ProposedDecision)
}

func TestPropose_SingleEvaluationLowConfidence(t *testing.T) {
	evals := []models.Evaluation{
		completedEval("e1", 90, models.RecommendationAccept),
	}

	proposal, err := Propose("app-001", evals, DefaultConfig(), scoring.DefaultConfig())

	require.NoError(t, err)
	assert.True(t, proposal.LowConfidence)
	assert.False(t, proposal.NeedsReconcile)
	assert.Zero(t, proposal.StdDev)
	assert.Equal(t, models.RecommendationAccept, proposal.ProposedDecision)
}

func TestPropose_NoEvaluations(t *testing.T) {
	_, err := Propose("app-001", nil, DefaultConfig(), scoring.DefaultConfig())

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestPropose_SkipsUnusableEvaluations(t *testing.T) {
	inProgress := models.Evaluation{
		ID:            "e2",
		ApplicationID: "app-001",
		ReviewerID:    "rev-e2",
		Status:        models.EvaluationInProgress,
	}
	noScore := completedEval("e3", 0, models.RecommendationReject)
	noScore.OverallScore = nil

	evals := []models.Evaluation{
		completedEval("e1", 75, models.RecommendationAccept),
		inProgress,
		noScore,
	}

	proposal, err := Propose("app-001", evals, DefaultConfig(), scoring.DefaultConfig())

	require.NoError(t, err)
	assert.Equal(t, 1, proposal.EvaluationCount)
	assert.Equal(t, 2, proposal.SkippedCount)
}

func TestPropose_NoStatedRecommendationsClassifiesMean(t *testing.T) {
	e1 := completedEval("e1", 80, models.RecommendationAccept)
	e1.Recommendation = nil
	e2 := completedEval("e2", 84, models.RecommendationAccept)
	e2.Recommendation = nil

	proposal, err := Propose("app-001", []models.Evaluation{e1, e2}, DefaultConfig(), scoring.DefaultConfig())

	require.NoError(t, err)
	assert.Equal(t, models.RecommendationAccept, proposal.ProposedDecision)
	// With no votes cast, the recommendation term contributes zero.
	assert.InDelta(t, (0+98)/2.0, proposal.Agreement, 1e-9)
}

func TestStdDev(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		expected float64
	}{
		{name: "empty", values: nil, expected: 0},
		{name: "single value", values: []float64{42}, expected: 0},
		{name: "identical values", values: []float64{70, 70, 70}, expected: 0},
		{name: "population formula", values: []float64{2, 4, 4, 4, 5, 5, 7, 9}, expected: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, StdDev(tt.values), 1e-9)
		})
	}
}
