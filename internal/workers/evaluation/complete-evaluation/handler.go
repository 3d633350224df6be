// internal/workers/evaluation/complete-evaluation/handler.go
package completeevaluation

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"evaluation-workers/internal/common/logger"
	"evaluation-workers/internal/common/metrics"
	"evaluation-workers/internal/engine/scoring"
	"evaluation-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const (
	TaskType = "complete-evaluation"

	competencyCachePrefix = "reviewer:competency:"
)

var (
	ErrEvaluationNotFound   = errors.New("EVALUATION_NOT_FOUND")
	ErrIncompleteEvaluation = errors.New("INCOMPLETE_EVALUATION")
	ErrDataIntegrity        = errors.New("DATA_INTEGRITY_VIOLATION")
	ErrCriteriaNotFound     = errors.New("CRITERIA_NOT_FOUND")
	ErrQueryFailed          = errors.New("QUERY_EXECUTION_FAILED")
)

type Handler struct {
	config *Config
	db     *sql.DB
	redis  *redis.Client
	logger logger.Logger
}

func NewHandler(config *Config, db *sql.DB, redis *redis.Client, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		db:     db,
		redis:  redis,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(client, job, "PARSE_ERROR", fmt.Sprintf("parse input: %v", err), 0)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		errorCode := "UNKNOWN_ERROR"
		retries := int32(0)
		switch {
		case errors.Is(err, ErrEvaluationNotFound):
			errorCode = "EVALUATION_NOT_FOUND"
		case errors.Is(err, ErrIncompleteEvaluation):
			errorCode = "INCOMPLETE_EVALUATION"
		case errors.Is(err, ErrDataIntegrity):
			errorCode = "DATA_INTEGRITY_VIOLATION"
		case errors.Is(err, ErrCriteriaNotFound):
			errorCode = "CRITERIA_NOT_FOUND"
		case errors.Is(err, ErrQueryFailed):
			errorCode = "QUERY_EXECUTION_FAILED"
			retries = 3
		}
		h.failJob(client, job, errorCode, err.Error(), retries)
		return
	}

	h.completeJob(client, job, output)
}

// evaluationRow is the slice of the evaluations table this worker reads
// before deciding whether completion still applies.
type evaluationRow struct {
	ApplicationID string
	ReviewerID    string
	EventID       string
	Status        models.EvaluationStatus
	OverallScore  sql.NullFloat64
	Confidence    sql.NullFloat64
	Recommend     sql.NullString
	CompletedAt   sql.NullString
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	tracer := otel.Tracer("evaluation-workers/complete-evaluation")
	ctx, span := tracer.Start(ctx, "complete-evaluation")
	defer span.End()
	span.SetAttributes(attribute.String("evaluationId", input.EvaluationID))

	if input.EvaluationID == "" {
		return nil, fmt.Errorf("%w: evaluationId is required", ErrEvaluationNotFound)
	}

	row, err := h.loadEvaluation(ctx, input.EvaluationID)
	if err != nil {
		return nil, err
	}

	// Completing a COMPLETED evaluation is a no-op; the stored result is
	// returned unchanged so process retries cannot double-write.
	if row.Status == models.EvaluationCompleted {
		h.logger.Info("evaluation already completed", map[string]interface{}{
			"evaluationId": input.EvaluationID,
		})
		return alreadyCompletedOutput(input.EvaluationID, row), nil
	}

	scores, err := h.loadScores(ctx, input.EvaluationID)
	if err != nil {
		return nil, err
	}
	if len(scores) == 0 {
		return nil, fmt.Errorf("%w: evaluation %s has no scores", ErrIncompleteEvaluation, input.EvaluationID)
	}

	criteria, err := h.loadCriteria(ctx, row.EventID)
	if err != nil {
		return nil, err
	}

	competencies, err := h.loadCompetencies(ctx, row.ReviewerID)
	if err != nil {
		return nil, err
	}

	result, err := scoring.Aggregate(scores, criteria, competencies, h.config.Scoring)
	if err != nil {
		var rangeErr *scoring.RangeError
		if errors.As(err, &rangeErr) {
			return nil, fmt.Errorf("%w: %v", ErrDataIntegrity, err)
		}
		if errors.Is(err, scoring.ErrNoScores) {
			return nil, fmt.Errorf("%w: evaluation %s", ErrIncompleteEvaluation, input.EvaluationID)
		}
		return nil, fmt.Errorf("%w: %v", ErrDataIntegrity, err)
	}

	// Confidence reflects catalog coverage, not score quality. Scoring a
	// subset never penalizes the score itself.
	confidence := float64(result.CriteriaScored) / float64(len(criteria))
	completedAt := time.Now().UTC().Format(time.RFC3339)

	res, err := h.db.ExecContext(ctx, `
		UPDATE evaluations
		SET overall_score = $1, recommendation = $2, confidence = $3,
		    time_spent_minutes = $4, status = $5, completed_at = $6, updated_at = $6
		WHERE id = $7 AND status = $8`,
		result.OverallScore,
		string(result.Recommendation),
		confidence,
		input.TimeSpentMinutes,
		string(models.EvaluationCompleted),
		completedAt,
		input.EvaluationID,
		string(models.EvaluationInProgress),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: completion update failed: %v", ErrQueryFailed, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("%w: completion update failed: %v", ErrQueryFailed, err)
	}
	if affected == 0 {
		// Another worker won the guarded update. Re-read and report theirs.
		current, err := h.loadEvaluation(ctx, input.EvaluationID)
		if err != nil {
			return nil, err
		}
		return alreadyCompletedOutput(input.EvaluationID, current), nil
	}

	metrics.EvaluationsCompleted.WithLabelValues(string(result.Recommendation)).Inc()

	// Audit log entry (non-critical, log error but don't fail)
	auditDetailsJSON, err := json.Marshal(map[string]interface{}{
		"applicationId":  row.ApplicationID,
		"reviewerId":     row.ReviewerID,
		"overallScore":   result.OverallScore,
		"recommendation": string(result.Recommendation),
		"criteriaScored": result.CriteriaScored,
	})
	if err != nil {
		auditDetailsJSON = []byte("{}")
	}
	if _, err := h.db.ExecContext(ctx, `
		INSERT INTO audit_log (event_type, resource_type, resource_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		"evaluation_completed", "evaluation", input.EvaluationID, auditDetailsJSON, completedAt,
	); err != nil {
		h.logger.Warn("audit log insert failed", map[string]interface{}{
			"error":        err,
			"evaluationId": input.EvaluationID,
		})
	}

	h.logger.Info("evaluation completed", map[string]interface{}{
		"evaluationId":   input.EvaluationID,
		"applicationId":  row.ApplicationID,
		"overallScore":   result.OverallScore,
		"recommendation": string(result.Recommendation),
		"criteriaScored": result.CriteriaScored,
	})

	return &Output{
		EvaluationID:    input.EvaluationID,
		ApplicationID:   row.ApplicationID,
		OverallScore:    result.OverallScore,
		NormalizedScore: result.NormalizedScore,
		Recommendation:  string(result.Recommendation),
		Confidence:      confidence,
		CriteriaScored:  result.CriteriaScored,
		CompletedAt:     completedAt,
	}, nil
}

func (h *Handler) loadEvaluation(ctx context.Context, evaluationID string) (*evaluationRow, error) {
	row := &evaluationRow{}
	var status string
	err := h.db.QueryRowContext(ctx, `
		SELECT e.application_id, e.reviewer_id, e.status,
		       e.overall_score, e.recommendation, e.confidence, e.completed_at,
		       a.event_id
		FROM evaluations e
		JOIN applications a ON a.id = e.application_id
		WHERE e.id = $1`, evaluationID).Scan(
		&row.ApplicationID, &row.ReviewerID, &status,
		&row.OverallScore, &row.Recommend, &row.Confidence, &row.CompletedAt,
		&row.EventID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrEvaluationNotFound, evaluationID)
		}
		return nil, fmt.Errorf("%w: evaluation lookup: %v", ErrQueryFailed, err)
	}
	row.Status = models.EvaluationStatus(status)
	return row, nil
}

func (h *Handler) loadScores(ctx context.Context, evaluationID string) ([]models.Score, error) {
	rows, err := h.db.QueryContext(ctx, `
		SELECT id, criterion_id, score
		FROM scores
		WHERE evaluation_id = $1`, evaluationID)
	if err != nil {
		return nil, fmt.Errorf("%w: scores lookup: %v", ErrQueryFailed, err)
	}
	defer rows.Close()

	var scores []models.Score
	for rows.Next() {
		s := models.Score{EvaluationID: evaluationID}
		if err := rows.Scan(&s.ID, &s.CriterionID, &s.Score); err != nil {
			return nil, fmt.Errorf("%w: scores scan: %v", ErrQueryFailed, err)
		}
		scores = append(scores, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: scores rows: %v", ErrQueryFailed, err)
	}
	return scores, nil
}

func (h *Handler) loadCriteria(ctx context.Context, eventID string) (map[string]models.Criterion, error) {
	rows, err := h.db.QueryContext(ctx, `
		SELECT id, name, category, weight, min_score, max_score
		FROM criteria
		WHERE event_id = $1`, eventID)
	if err != nil {
		return nil, fmt.Errorf("%w: criteria lookup: %v", ErrQueryFailed, err)
	}
	defer rows.Close()

	criteria := make(map[string]models.Criterion)
	for rows.Next() {
		c := models.Criterion{EventID: eventID}
		if err := rows.Scan(&c.ID, &c.Name, &c.Category, &c.Weight, &c.MinScore, &c.MaxScore); err != nil {
			return nil, fmt.Errorf("%w: criteria scan: %v", ErrQueryFailed, err)
		}
		criteria[c.ID] = c
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: criteria rows: %v", ErrQueryFailed, err)
	}

	if len(criteria) == 0 {
		return nil, fmt.Errorf("%w: event %s", ErrCriteriaNotFound, eventID)
	}
	return criteria, nil
}

// loadCompetencies returns the reviewer's competency records keyed by
// category. A cache miss falls through to Postgres; a cache outage is
// tolerated, a Postgres failure is not.
func (h *Handler) loadCompetencies(ctx context.Context, reviewerID string) (map[string]models.ReviewerCompetency, error) {
	cacheKey := competencyCachePrefix + reviewerID
	if val, err := h.redis.Get(ctx, cacheKey).Result(); err == nil {
		var cached map[string]models.ReviewerCompetency
		if err := json.Unmarshal([]byte(val), &cached); err == nil {
			return cached, nil
		}
	}

	rows, err := h.db.QueryContext(ctx, `
		SELECT category, competency_level, base_weight
		FROM reviewer_competencies
		WHERE reviewer_id = $1`, reviewerID)
	if err != nil {
		return nil, fmt.Errorf("%w: competency lookup: %v", ErrQueryFailed, err)
	}
	defer rows.Close()

	competencies := make(map[string]models.ReviewerCompetency)
	for rows.Next() {
		c := models.ReviewerCompetency{ReviewerID: reviewerID}
		if err := rows.Scan(&c.Category, &c.CompetencyLevel, &c.BaseWeight); err != nil {
			return nil, fmt.Errorf("%w: competency scan: %v", ErrQueryFailed, err)
		}
		competencies[c.Category] = c
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: competency rows: %v", ErrQueryFailed, err)
	}

	data, _ := json.Marshal(competencies)
	h.redis.Set(ctx, cacheKey, data, h.config.CompetencyCacheTTL)

	return competencies, nil
}

func alreadyCompletedOutput(evaluationID string, row *evaluationRow) *Output {
	out := &Output{
		EvaluationID:     evaluationID,
		ApplicationID:    row.ApplicationID,
		AlreadyCompleted: true,
	}
	if row.OverallScore.Valid {
		out.OverallScore = row.OverallScore.Float64
	}
	if row.Confidence.Valid {
		out.Confidence = row.Confidence.Float64
	}
	if row.Recommend.Valid {
		out.Recommendation = row.Recommend.String
	}
	if row.CompletedAt.Valid {
		out.CompletedAt = row.CompletedAt.String
	}
	return out
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	_, err = cmd.Send(context.Background())
	if err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
	} else {
		h.logger.Info("job completed successfully", map[string]interface{}{
			"jobKey": job.Key,
		})
	}
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, errorCode, errorMessage string, retries int32) {
	h.logger.Error("job failed", map[string]interface{}{
		"jobKey":       job.Key,
		"errorCode":    errorCode,
		"errorMessage": errorMessage,
		"retries":      retries,
	})

	_, err := client.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode(errorCode).
		ErrorMessage(errorMessage).
		Send(context.Background())
	if err != nil {
		h.logger.Error("failed to throw error", map[string]interface{}{
			"error": err,
		})
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
