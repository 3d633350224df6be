// internal/workers/evaluation/create-evaluation-record/handler.go
package createevaluationrecord

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"evaluation-workers/internal/common/logger"
	"evaluation-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

const (
	TaskType = "create-evaluation-record"

	defaultStage = "screening"
)

var (
	ErrDatabaseInsertFailed = errors.New("DATABASE_INSERT_FAILED")
	ErrDuplicateEvaluation  = errors.New("DUPLICATE_EVALUATION")
	ErrApplicationNotFound  = errors.New("APPLICATION_NOT_FOUND")
)

type Handler struct {
	config *Config
	db     *sql.DB
	logger logger.Logger
}

func NewHandler(config *Config, db *sql.DB, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		db:     db,
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
		case errors.Is(err, ErrDuplicateEvaluation):
			errorCode = "DUPLICATE_EVALUATION"
		case errors.Is(err, ErrApplicationNotFound):
			errorCode = "APPLICATION_NOT_FOUND"
		case errors.Is(err, ErrDatabaseInsertFailed):
			errorCode = "DATABASE_INSERT_FAILED"
			retries = 3
		}
		h.failJob(client, job, errorCode, err.Error(), retries)
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.ApplicationID == "" || input.ReviewerID == "" {
		return nil, fmt.Errorf("%w: applicationId and reviewerId are required", ErrDatabaseInsertFailed)
	}

	var exists bool
	err := h.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM applications WHERE id = $1
		)`, input.ApplicationID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("%w: application check failed: %v", ErrDatabaseInsertFailed, err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrApplicationNotFound, input.ApplicationID)
	}

	// One open evaluation per reviewer per application. Completed ones stay
	// on record; only an IN_PROGRESS duplicate is rejected.
	var open bool
	err = h.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM evaluations
			WHERE reviewer_id = $1 AND application_id = $2 AND status = $3
		)`, input.ReviewerID, input.ApplicationID, string(models.EvaluationInProgress)).Scan(&open)
	if err != nil {
		return nil, fmt.Errorf("%w: duplicate check failed: %v", ErrDatabaseInsertFailed, err)
	}
	if open {
		return nil, fmt.Errorf("%w: reviewer %s already has an open evaluation for application %s",
			ErrDuplicateEvaluation, input.ReviewerID, input.ApplicationID)
	}

	stage := input.Stage
	if stage == "" {
		stage = defaultStage
	}

	evalID := uuid.New().String()
	createdAt := time.Now().UTC().Format(time.RFC3339)

	_, err = h.db.ExecContext(ctx, `
		INSERT INTO evaluations (
			id, application_id, reviewer_id, stage, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $6)`,
		evalID,
		input.ApplicationID,
		input.ReviewerID,
		stage,
		string(models.EvaluationInProgress),
		createdAt,
	)
	if err != nil {
		// The partial unique index on (reviewer_id, application_id) for open
		// evaluations closes the race between the EXISTS check and the insert.
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, fmt.Errorf("%w: reviewer %s already has an open evaluation for application %s",
				ErrDuplicateEvaluation, input.ReviewerID, input.ApplicationID)
		}
		return nil, fmt.Errorf("%w: insert failed: %v", ErrDatabaseInsertFailed, err)
	}

	// Audit log entry (non-critical, log error but don't fail)
	auditDetailsJSON, err := json.Marshal(map[string]interface{}{
		"applicationId": input.ApplicationID,
		"reviewerId":    input.ReviewerID,
		"stage":         stage,
	})
	if err != nil {
		h.logger.Warn("failed to marshal audit log details", map[string]interface{}{
			"error": err,
		})
		auditDetailsJSON = []byte("{}")
	}

	_, err = h.db.ExecContext(ctx, `
		INSERT INTO audit_log (event_type, resource_type, resource_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		"evaluation_started",
		"evaluation",
		evalID,
		auditDetailsJSON,
		createdAt,
	)
	if err != nil {
		h.logger.Warn("audit log insert failed", map[string]interface{}{
			"error":        err,
			"evaluationId": evalID,
		})
	}

	h.logger.Info("evaluation record created", map[string]interface{}{
		"evaluationId":  evalID,
		"applicationId": input.ApplicationID,
		"reviewerId":    input.ReviewerID,
		"stage":         stage,
	})

	return &Output{
		EvaluationID:     evalID,
		EvaluationStatus: string(models.EvaluationInProgress),
		CreatedAt:        createdAt,
	}, nil
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
