// internal/workers/analytics/build-audit-trail/handler.go
package buildaudittrail

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"evaluation-workers/internal/common/logger"
	"evaluation-workers/internal/common/metrics"
	"evaluation-workers/internal/engine/audit"
	"evaluation-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const (
	TaskType = "build-audit-trail"
)

var (
	ErrInvalidFilter = errors.New("INVALID_FILTER_FORMAT")
	ErrQueryFailed   = errors.New("QUERY_EXECUTION_FAILED")
)

// scopeQueries bundles the record lookups for one scoping axis. The trail is
// projected from whatever these return; there is no audit table to read.
type scopeQueries struct {
	evaluations string
	scores      string
	comments    string
	reviewers   string
}

var eventScope = scopeQueries{
	evaluations: `
		SELECT e.id, e.application_id, e.reviewer_id, e.status, e.time_spent_minutes, e.created_at, e.completed_at
		FROM evaluations e
		JOIN applications a ON a.id = e.application_id
		WHERE a.event_id = $1`,
	scores: `
		SELECT s.id, s.evaluation_id, s.criterion_id, s.created_at
		FROM scores s
		JOIN evaluations e ON e.id = s.evaluation_id
		JOIN applications a ON a.id = e.application_id
		WHERE a.event_id = $1`,
	comments: `
		SELECT c.id, c.evaluation_id, c.question_key, c.created_at
		FROM comments c
		JOIN evaluations e ON e.id = c.evaluation_id
		JOIN applications a ON a.id = e.application_id
		WHERE a.event_id = $1`,
	reviewers: `
		SELECT DISTINCT r.id, r.name, r.kind
		FROM reviewers r
		JOIN evaluations e ON e.reviewer_id = r.id
		JOIN applications a ON a.id = e.application_id
		WHERE a.event_id = $1`,
}

var applicationScope = scopeQueries{
	evaluations: `
		SELECT id, application_id, reviewer_id, status, time_spent_minutes, created_at, completed_at
		FROM evaluations
		WHERE application_id = $1`,
	scores: `
		SELECT s.id, s.evaluation_id, s.criterion_id, s.created_at
		FROM scores s
		JOIN evaluations e ON e.id = s.evaluation_id
		WHERE e.application_id = $1`,
	comments: `
		SELECT c.id, c.evaluation_id, c.question_key, c.created_at
		FROM comments c
		JOIN evaluations e ON e.id = c.evaluation_id
		WHERE e.application_id = $1`,
	reviewers: `
		SELECT DISTINCT r.id, r.name, r.kind
		FROM reviewers r
		JOIN evaluations e ON e.reviewer_id = r.id
		WHERE e.application_id = $1`,
}

type Handler struct {
	config   *Config
	db       *sql.DB
	esClient *elasticsearch.Client
	logger   logger.Logger
}

func NewHandler(config *Config, db *sql.DB, esClient *elasticsearch.Client, log logger.Logger) *Handler {
	return &Handler{
		config:   config,
		db:       db,
		esClient: esClient,
		logger:   log.WithFields(map[string]interface{}{"taskType": TaskType}),
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
		case errors.Is(err, ErrInvalidFilter):
			errorCode = "INVALID_FILTER_FORMAT"
		case errors.Is(err, ErrQueryFailed):
			errorCode = "QUERY_EXECUTION_FAILED"
			retries = 3
		}
		h.failJob(client, job, errorCode, err.Error(), retries)
		return
	}

	h.completeJob(client, job, output)
}

// execute snapshots the evaluation records in scope and projects the trail
// from them. Rebuilding from the same records always yields the same trail.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	tracer := otel.Tracer("evaluation-workers/build-audit-trail")
	ctx, span := tracer.Start(ctx, "build-audit-trail")
	defer span.End()
	span.SetAttributes(
		attribute.String("eventId", input.EventID),
		attribute.String("applicationId", input.ApplicationID),
	)

	if input.EventID == "" && input.ApplicationID == "" {
		return nil, fmt.Errorf("%w: eventId or applicationId is required", ErrInvalidFilter)
	}

	from, err := parseFilterTime("from", input.From)
	if err != nil {
		return nil, err
	}
	to, err := parseFilterTime("to", input.To)
	if err != nil {
		return nil, err
	}
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return nil, fmt.Errorf("%w: from %s is after to %s", ErrInvalidFilter, input.From, input.To)
	}

	queries, key := eventScope, input.EventID
	if input.ApplicationID != "" {
		queries, key = applicationScope, input.ApplicationID
	}

	src, err := h.loadSource(ctx, queries, key)
	if err != nil {
		return nil, err
	}

	trail := audit.Build(src, audit.Filter{
		ApplicationID: input.ApplicationID,
		ReviewerID:    input.ReviewerID,
		AIOnly:        input.AIReviewersOnly,
		From:          from,
		To:            to,
		Limit:         input.Limit,
	}, h.config.Audit)

	metrics.AuditEventsProjected.Add(float64(trail.TotalEvents))

	output := &Output{
		Trail:         trail,
		EventID:       input.EventID,
		ApplicationID: input.ApplicationID,
		GeneratedAt:   time.Now().UTC().Format(time.RFC3339),
	}

	if h.esClient != nil {
		if err := h.archiveTrail(ctx, output); err != nil {
			h.logger.Warn("audit trail archive failed", map[string]interface{}{
				"eventId": input.EventID,
				"index":   h.config.TrailsIndex,
				"error":   err.Error(),
			})
		}
	}

	h.logger.Info("audit trail projected", map[string]interface{}{
		"eventId":       input.EventID,
		"applicationId": input.ApplicationID,
		"totalEvents":   trail.TotalEvents,
		"aiEvents":      trail.AIEvents,
		"humanEvents":   trail.HumanEvents,
		"rapidFire":     len(trail.Anomalies.RapidFire),
		"incomplete":    len(trail.Anomalies.Incomplete),
	})

	return output, nil
}

func parseFilterTime(field, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be RFC 3339, got %q", ErrInvalidFilter, field, value)
	}
	return parsed, nil
}

func (h *Handler) loadSource(ctx context.Context, queries scopeQueries, key string) (audit.Source, error) {
	var src audit.Source
	var err error

	if src.Evaluations, err = h.loadEvaluations(ctx, queries.evaluations, key); err != nil {
		return src, err
	}
	if src.Scores, err = h.loadScores(ctx, queries.scores, key); err != nil {
		return src, err
	}
	if src.Comments, err = h.loadComments(ctx, queries.comments, key); err != nil {
		return src, err
	}
	if src.Reviewers, err = h.loadReviewers(ctx, queries.reviewers, key); err != nil {
		return src, err
	}
	return src, nil
}

func (h *Handler) loadEvaluations(ctx context.Context, query, key string) ([]models.Evaluation, error) {
	rows, err := h.db.QueryContext(ctx, query, key)
	if err != nil {
		return nil, fmt.Errorf("%w: evaluations lookup: %v", ErrQueryFailed, err)
	}
	defer rows.Close()

	var evals []models.Evaluation
	for rows.Next() {
		var (
			e         models.Evaluation
			status    string
			timeSpent sql.NullInt64
			completed sql.NullTime
		)
		if err := rows.Scan(&e.ID, &e.ApplicationID, &e.ReviewerID, &status, &timeSpent, &e.CreatedAt, &completed); err != nil {
			return nil, fmt.Errorf("%w: evaluations scan: %v", ErrQueryFailed, err)
		}
		e.Status = models.EvaluationStatus(status)
		if timeSpent.Valid {
			minutes := int(timeSpent.Int64)
			e.TimeSpentMinutes = &minutes
		}
		if completed.Valid {
			ts := completed.Time
			e.CompletedAt = &ts
		}
		evals = append(evals, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: evaluations rows: %v", ErrQueryFailed, err)
	}
	return evals, nil
}

func (h *Handler) loadScores(ctx context.Context, query, key string) ([]models.Score, error) {
	rows, err := h.db.QueryContext(ctx, query, key)
	if err != nil {
		return nil, fmt.Errorf("%w: scores lookup: %v", ErrQueryFailed, err)
	}
	defer rows.Close()

	var scores []models.Score
	for rows.Next() {
		var s models.Score
		if err := rows.Scan(&s.ID, &s.EvaluationID, &s.CriterionID, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scores scan: %v", ErrQueryFailed, err)
		}
		scores = append(scores, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: scores rows: %v", ErrQueryFailed, err)
	}
	return scores, nil
}

func (h *Handler) loadComments(ctx context.Context, query, key string) ([]models.Comment, error) {
	rows, err := h.db.QueryContext(ctx, query, key)
	if err != nil {
		return nil, fmt.Errorf("%w: comments lookup: %v", ErrQueryFailed, err)
	}
	defer rows.Close()

	var comments []models.Comment
	for rows.Next() {
		var c models.Comment
		var questionKey sql.NullString
		if err := rows.Scan(&c.ID, &c.EvaluationID, &questionKey, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: comments scan: %v", ErrQueryFailed, err)
		}
		c.QuestionKey = questionKey.String
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: comments rows: %v", ErrQueryFailed, err)
	}
	return comments, nil
}

func (h *Handler) loadReviewers(ctx context.Context, query, key string) (map[string]models.Reviewer, error) {
	rows, err := h.db.QueryContext(ctx, query, key)
	if err != nil {
		return nil, fmt.Errorf("%w: reviewers lookup: %v", ErrQueryFailed, err)
	}
	defer rows.Close()

	reviewers := make(map[string]models.Reviewer)
	for rows.Next() {
		var r models.Reviewer
		var kind string
		if err := rows.Scan(&r.ID, &r.Name, &kind); err != nil {
			return nil, fmt.Errorf("%w: reviewers scan: %v", ErrQueryFailed, err)
		}
		r.Kind = models.ReviewerKind(kind)
		reviewers[r.ID] = r
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: reviewers rows: %v", ErrQueryFailed, err)
	}
	return reviewers, nil
}

// archiveTrail stores the projected trail in the trails index for later
// search. The document id is left to the index.
func (h *Handler) archiveTrail(ctx context.Context, output *Output) error {
	body, err := json.Marshal(output)
	if err != nil {
		return err
	}
	req := esapi.IndexRequest{
		Index: h.config.TrailsIndex,
		Body:  bytes.NewReader(body),
	}
	res, err := req.Do(ctx, h.esClient)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("index %s returned %s", h.config.TrailsIndex, res.Status())
	}
	return nil
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
