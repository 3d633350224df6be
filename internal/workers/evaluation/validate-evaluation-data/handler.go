// internal/workers/evaluation/validate-evaluation-data/handler.go
package validateevaluationdata

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"evaluation-workers/internal/common/logger"
	"evaluation-workers/internal/engine/scoring"
	"evaluation-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "validate-evaluation-data"
)

var (
	ErrDataIntegrity       = errors.New("DATA_INTEGRITY_VIOLATION")
	ErrApplicationNotFound = errors.New("APPLICATION_NOT_FOUND")
	ErrCriteriaNotFound    = errors.New("CRITERIA_NOT_FOUND")
	ErrQueryFailed         = errors.New("QUERY_EXECUTION_FAILED")
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
		case errors.Is(err, ErrDataIntegrity):
			errorCode = "DATA_INTEGRITY_VIOLATION"
		case errors.Is(err, ErrApplicationNotFound):
			errorCode = "APPLICATION_NOT_FOUND"
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

// execute checks a proposed evaluation submission against the criteria
// catalog. Missing fields produce an invalid-but-completed result the
// process can route back to the reviewer; integrity violations (wrong
// event, out-of-range score) abort the job so a human sees them.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	var validationErrors []string

	if input.ApplicationID == "" {
		validationErrors = append(validationErrors, "applicationId is required")
	}
	if input.ReviewerID == "" {
		validationErrors = append(validationErrors, "reviewerId is required")
	}
	if len(input.Scores) == 0 {
		validationErrors = append(validationErrors, "at least one score is required")
	}

	seen := make(map[string]bool, len(input.Scores))
	for i, s := range input.Scores {
		if s.CriterionID == "" {
			validationErrors = append(validationErrors, fmt.Sprintf("scores[%d]: criterionId is required", i))
			continue
		}
		if seen[s.CriterionID] {
			validationErrors = append(validationErrors, fmt.Sprintf("scores[%d]: duplicate criterion %s", i, s.CriterionID))
		}
		seen[s.CriterionID] = true
	}

	if len(validationErrors) > 0 {
		return &Output{IsValid: false, ValidationErrors: validationErrors}, nil
	}

	eventID, err := h.lookupApplicationEvent(ctx, input.ApplicationID)
	if err != nil {
		return nil, err
	}

	if input.EventID != "" && input.EventID != eventID {
		return nil, fmt.Errorf("%w: application %s belongs to event %s, not %s",
			ErrDataIntegrity, input.ApplicationID, eventID, input.EventID)
	}

	criteria, err := h.loadCriteria(ctx, eventID)
	if err != nil {
		return nil, err
	}

	for _, s := range input.Scores {
		criterion, ok := criteria[s.CriterionID]
		if !ok {
			return nil, fmt.Errorf("%w: criterion %s does not belong to event %s",
				ErrDataIntegrity, s.CriterionID, eventID)
		}
		if _, err := scoring.Normalize(s.Score, criterion); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDataIntegrity, err)
		}
	}

	h.logger.Info("evaluation data validated", map[string]interface{}{
		"applicationId": input.ApplicationID,
		"reviewerId":    input.ReviewerID,
		"scoreCount":    len(input.Scores),
	})

	return &Output{
		IsValid:         true,
		EventID:         eventID,
		CriteriaChecked: len(input.Scores),
	}, nil
}

func (h *Handler) lookupApplicationEvent(ctx context.Context, applicationID string) (string, error) {
	var eventID string
	err := h.db.QueryRowContext(ctx,
		`SELECT event_id FROM applications WHERE id = $1`, applicationID).Scan(&eventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("%w: %s", ErrApplicationNotFound, applicationID)
		}
		return "", fmt.Errorf("%w: application lookup: %v", ErrQueryFailed, err)
	}
	return eventID, nil
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
