// internal/workers/consensus/propose-consensus/handler.go
package proposeconsensus

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"evaluation-workers/internal/common/logger"
	"evaluation-workers/internal/common/metrics"
	"evaluation-workers/internal/engine/consensus"
	"evaluation-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "propose-consensus"
)

var (
	ErrInsufficientData    = errors.New("INSUFFICIENT_DATA")
	ErrApplicationNotFound = errors.New("APPLICATION_NOT_FOUND")
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
		case errors.Is(err, ErrInsufficientData):
			errorCode = "INSUFFICIENT_DATA"
		case errors.Is(err, ErrApplicationNotFound):
			errorCode = "APPLICATION_NOT_FOUND"
		case errors.Is(err, ErrQueryFailed):
			errorCode = "QUERY_EXECUTION_FAILED"
			retries = 3
		}
		h.failJob(client, job, errorCode, err.Error(), retries)
		return
	}

	h.completeJob(client, job, output)
}

// execute reads every evaluation on record for the application and derives
// a proposal. This worker never writes; committing the decision belongs to
// confirm-consensus.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.ApplicationID == "" {
		return nil, fmt.Errorf("%w: applicationId is required", ErrApplicationNotFound)
	}

	var exists bool
	err := h.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM applications WHERE id = $1
		)`, input.ApplicationID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("%w: application check failed: %v", ErrQueryFailed, err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrApplicationNotFound, input.ApplicationID)
	}

	evals, err := h.loadEvaluations(ctx, input.ApplicationID)
	if err != nil {
		return nil, err
	}

	proposal, err := consensus.Propose(input.ApplicationID, evals, h.config.Consensus, h.config.Scoring)
	if err != nil {
		if errors.Is(err, consensus.ErrInsufficientData) {
			return nil, fmt.Errorf("%w: application %s has no completed evaluations, urgency=high",
				ErrInsufficientData, input.ApplicationID)
		}
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}

	metrics.ConsensusProposals.WithLabelValues(strconv.FormatBool(proposal.NeedsReconcile)).Inc()

	h.logger.Info("consensus proposal generated", map[string]interface{}{
		"applicationId":       input.ApplicationID,
		"evaluationCount":     proposal.EvaluationCount,
		"skippedCount":        proposal.SkippedCount,
		"meanScore":           proposal.MeanScore,
		"stdDev":              proposal.StdDev,
		"agreement":           proposal.Agreement,
		"needsReconciliation": proposal.NeedsReconcile,
		"proposedDecision":    string(proposal.ProposedDecision),
	})

	return &Output{
		Proposal:    proposal,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
	}, nil
}

func (h *Handler) loadEvaluations(ctx context.Context, applicationID string) ([]models.Evaluation, error) {
	rows, err := h.db.QueryContext(ctx, `
		SELECT id, reviewer_id, status, overall_score, recommendation
		FROM evaluations
		WHERE application_id = $1`, applicationID)
	if err != nil {
		return nil, fmt.Errorf("%w: evaluations lookup: %v", ErrQueryFailed, err)
	}
	defer rows.Close()

	var evals []models.Evaluation
	for rows.Next() {
		e := models.Evaluation{ApplicationID: applicationID}
		var status string
		var overall sql.NullFloat64
		var rec sql.NullString
		if err := rows.Scan(&e.ID, &e.ReviewerID, &status, &overall, &rec); err != nil {
			return nil, fmt.Errorf("%w: evaluations scan: %v", ErrQueryFailed, err)
		}
		e.Status = models.EvaluationStatus(status)
		if overall.Valid {
			e.OverallScore = &overall.Float64
		}
		if rec.Valid {
			r := models.Recommendation(rec.String)
			e.Recommendation = &r
		}
		evals = append(evals, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: evaluations rows: %v", ErrQueryFailed, err)
	}
	return evals, nil
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
