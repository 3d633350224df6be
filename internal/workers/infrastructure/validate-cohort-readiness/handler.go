// internal/workers/infrastructure/validate-cohort-readiness/handler.go
package validatecohortreadiness

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/redis/go-redis/v9"

	"evaluation-workers/internal/common/logger"
)

const (
	TaskType = "validate-cohort-readiness"

	readinessCachePrefix = "event:readiness:"
)

var (
	ErrInsufficientData     = errors.New("INSUFFICIENT_DATA")
	ErrCohortNotReady       = errors.New("COHORT_NOT_READY")
	ErrReadinessCheckFailed = errors.New("READINESS_CHECK_FAILED")
)

// Handler gates report scheduling on the state of an event's cohort: whether
// any evaluations have completed and whether the cohort clears the minimum
// sample size. A sub-minimum cohort is still ready (the analyzers downgrade
// confidence); only an empty cohort is a hard stop.
type Handler struct {
	config *Config
	db     *sql.DB
	redis  *redis.Client
	logger logger.Logger
}

func NewHandler(config *Config, db *sql.DB, redisClient *redis.Client, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		db:     db,
		redis:  redisClient,
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
		case errors.Is(err, ErrInsufficientData):
			errorCode = "INSUFFICIENT_DATA"
		case errors.Is(err, ErrCohortNotReady):
			errorCode = "COHORT_NOT_READY"
		case errors.Is(err, ErrReadinessCheckFailed):
			errorCode = "READINESS_CHECK_FAILED"
			retries = 3
		}
		h.failJob(client, job, errorCode, err.Error(), retries)
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, errors.New("input cannot be nil")
	}

	stats, err := h.loadStats(ctx, input.EventID)
	if err != nil {
		return nil, err
	}

	if stats.CohortSize == 0 {
		return nil, fmt.Errorf("%w: event %s has no applications to analyze", ErrInsufficientData, input.EventID)
	}

	minSample := input.MinSampleSize
	if minSample <= 0 {
		minSample = h.config.MinSampleSize
	}

	output := &Output{
		Ready:                 stats.CompletedEvaluations > 0,
		CohortSize:            stats.CohortSize,
		EvaluatedApplications: stats.EvaluatedApplications,
		CompletedEvaluations:  stats.CompletedEvaluations,
		SampleSizeAdequate:    stats.CohortSize >= minSample,
		MinSampleSize:         minSample,
	}

	if input.FailOnNotReady && !output.Ready {
		return nil, fmt.Errorf("%w: event %s has no completed evaluations", ErrCohortNotReady, input.EventID)
	}

	return output, nil
}

func (h *Handler) loadStats(ctx context.Context, eventID string) (*EventStats, error) {
	cacheKey := readinessCachePrefix + eventID
	if val, err := h.redis.Get(ctx, cacheKey).Result(); err == nil {
		var stats EventStats
		if err := json.Unmarshal([]byte(val), &stats); err == nil {
			return &stats, nil
		}
	}

	stats := EventStats{EventID: eventID}
	query := `SELECT COUNT(DISTINCT a.id) AS cohort_size,
	       COUNT(DISTINCT a.id) FILTER (WHERE e.status = 'COMPLETED') AS evaluated_applications,
	       COUNT(e.id) FILTER (WHERE e.status = 'COMPLETED') AS completed_evaluations
	FROM applications a
	LEFT JOIN evaluations e ON e.application_id = a.id
	WHERE a.event_id = $1`
	err := h.db.QueryRowContext(ctx, query, eventID).Scan(
		&stats.CohortSize, &stats.EvaluatedApplications, &stats.CompletedEvaluations,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReadinessCheckFailed, err)
	}

	// An empty cohort is never cached; the next check sees newly submitted
	// applications immediately.
	if stats.CohortSize > 0 {
		data, _ := json.Marshal(stats)
		h.redis.Set(ctx, cacheKey, data, h.config.CacheTTL)
	}

	return &stats, nil
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	_, err = cmd.Send(context.Background())
	if err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err.Error(),
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
			"error": err.Error(),
		})
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
