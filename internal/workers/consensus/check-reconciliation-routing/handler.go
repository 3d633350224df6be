// internal/workers/consensus/check-reconciliation-routing/handler.go
package checkreconciliationrouting

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"evaluation-workers/internal/common/logger"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/redis/go-redis/v9"
)

const (
	TaskType = "check-reconciliation-routing"

	statsCachePrefix = "event:stats:"
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
		h.failJob(client, job, "RECONCILIATION_ROUTING_FAILED", fmt.Sprintf("parse input: %v", err), 0)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.failJob(client, job, "RECONCILIATION_ROUTING_FAILED", err.Error(), 0)
		return
	}

	h.completeJob(client, job, output)
}

// execute decides where a fresh proposal goes next. The route comes purely
// from the proposal flags; the event queue stats are best-effort enrichment
// and never block routing.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.ApplicationID == "" {
		return nil, fmt.Errorf("applicationId is required")
	}

	route, urgency := determineRoute(input)

	eventID, stats, err := h.getEventStats(ctx, input.ApplicationID)
	if err != nil {
		h.logger.Warn("event stats unavailable, routing without queue context", map[string]interface{}{
			"applicationId": input.ApplicationID,
			"error":         err,
		})
		stats = eventStats{}
	}

	h.logger.Info("reconciliation routing determined", map[string]interface{}{
		"applicationId":     input.ApplicationID,
		"route":             route,
		"urgency":           urgency,
		"awaitingConsensus": stats.AwaitingConsensus,
	})

	return &Output{
		Route:             route,
		Urgency:           urgency,
		EventID:           eventID,
		AwaitingConsensus: stats.AwaitingConsensus,
	}, nil
}

func determineRoute(input *Input) (string, string) {
	switch {
	case input.NeedsReconciliation:
		return RouteManualReconciliation, UrgencyHigh
	case input.LowConfidence:
		return RouteAdditionalReview, UrgencyMedium
	default:
		return RouteAutoConfirmation, UrgencyNormal
	}
}

func (h *Handler) getEventStats(ctx context.Context, applicationID string) (string, eventStats, error) {
	var eventID string
	err := h.db.QueryRowContext(ctx,
		`SELECT event_id FROM applications WHERE id = $1`, applicationID).Scan(&eventID)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", eventStats{}, fmt.Errorf("application not found: %s", applicationID)
		}
		return "", eventStats{}, fmt.Errorf("event lookup: %w", err)
	}

	cacheKey := statsCachePrefix + eventID
	if val, err := h.redis.Get(ctx, cacheKey).Result(); err == nil {
		var cached eventStats
		if err := json.Unmarshal([]byte(val), &cached); err == nil {
			return eventID, cached, nil
		}
	}

	var stats eventStats
	err = h.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM applications
		WHERE event_id = $1 AND status = $2`,
		eventID, "UNDER_REVIEW").Scan(&stats.AwaitingConsensus)
	if err != nil {
		return eventID, eventStats{}, fmt.Errorf("queue count: %w", err)
	}

	data, _ := json.Marshal(stats)
	h.redis.Set(ctx, cacheKey, data, h.config.CacheTTL)

	return eventID, stats, nil
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
