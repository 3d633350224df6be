// internal/workers/consensus/confirm-consensus/handler.go
package confirmconsensus

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
)

const (
	TaskType = "confirm-consensus"
)

var (
	ErrConsensusConflict   = errors.New("CONSENSUS_CONFLICT")
	ErrInvalidDecision     = errors.New("INVALID_DECISION")
	ErrApplicationNotFound = errors.New("APPLICATION_NOT_FOUND")
	ErrQueryFailed         = errors.New("QUERY_EXECUTION_FAILED")
	ErrInsertFailed        = errors.New("DATABASE_INSERT_FAILED")
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
		case errors.Is(err, ErrConsensusConflict):
			errorCode = "CONSENSUS_CONFLICT"
		case errors.Is(err, ErrInvalidDecision):
			errorCode = "INVALID_DECISION"
		case errors.Is(err, ErrApplicationNotFound):
			errorCode = "APPLICATION_NOT_FOUND"
		case errors.Is(err, ErrQueryFailed):
			errorCode = "QUERY_EXECUTION_FAILED"
			retries = 3
		case errors.Is(err, ErrInsertFailed):
			errorCode = "DATABASE_INSERT_FAILED"
			retries = 3
		}
		h.failJob(client, job, errorCode, err.Error(), retries)
		return
	}

	h.completeJob(client, job, output)
}

// mapDecision translates a reviewer-scale recommendation into the stored
// application decision. Already-final values pass through so a human
// confirmer can submit either form.
func mapDecision(decision string) (models.ApplicationStatus, error) {
	switch decision {
	case string(models.RecommendationAccept), string(models.ApplicationAccepted):
		return models.ApplicationAccepted, nil
	case string(models.RecommendationReject), string(models.ApplicationRejected):
		return models.ApplicationRejected, nil
	case string(models.RecommendationBorderline), string(models.ApplicationWaitlisted):
		return models.ApplicationWaitlisted, nil
	default:
		return "", fmt.Errorf("%w: %q is not a confirmable decision", ErrInvalidDecision, decision)
	}
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.ApplicationID == "" {
		return nil, fmt.Errorf("%w: applicationId is required", ErrApplicationNotFound)
	}

	finalDecision, err := mapDecision(input.Decision)
	if err != nil {
		return nil, err
	}

	var exists bool
	err = h.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM applications WHERE id = $1
		)`, input.ApplicationID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("%w: application check failed: %v", ErrQueryFailed, err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrApplicationNotFound, input.ApplicationID)
	}

	prior, err := h.loadPrior(ctx, input.ApplicationID)
	if err != nil {
		return nil, err
	}

	if input.ExpectedPriorDecision != "" {
		if prior == nil {
			return nil, fmt.Errorf("%w: expected prior decision %s but none is recorded for application %s",
				ErrConsensusConflict, input.ExpectedPriorDecision, input.ApplicationID)
		}
		if prior.FinalDecision != input.ExpectedPriorDecision {
			return nil, fmt.Errorf("%w: expected prior decision %s but found %s for application %s",
				ErrConsensusConflict, input.ExpectedPriorDecision, prior.FinalDecision, input.ApplicationID)
		}
	}

	// Re-confirming the decision already on record is a no-op.
	if prior != nil && prior.FinalDecision == string(finalDecision) {
		h.logger.Info("consensus already confirmed", map[string]interface{}{
			"applicationId": input.ApplicationID,
			"finalDecision": prior.FinalDecision,
		})
		return &Output{
			ApplicationID:     input.ApplicationID,
			FinalDecision:     prior.FinalDecision,
			ApplicationStatus: prior.FinalDecision,
			AlreadyConfirmed:  true,
		}, nil
	}

	superseded := prior != nil
	decidedAt := time.Now().UTC().Format(time.RFC3339)

	// One active decision per application; the upsert replaces any prior
	// decision in a single statement.
	_, err = h.db.ExecContext(ctx, `
		INSERT INTO consensus (
			application_id, final_decision, consensus_score,
			discussion_notes, decided_by, decided_at
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (application_id) DO UPDATE SET
			final_decision = EXCLUDED.final_decision,
			consensus_score = EXCLUDED.consensus_score,
			discussion_notes = EXCLUDED.discussion_notes,
			decided_by = EXCLUDED.decided_by,
			decided_at = EXCLUDED.decided_at`,
		input.ApplicationID,
		string(finalDecision),
		input.ConsensusScore,
		input.DiscussionNotes,
		input.DecidedBy,
		decidedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: consensus upsert failed: %v", ErrInsertFailed, err)
	}

	_, err = h.db.ExecContext(ctx, `
		UPDATE applications SET status = $1, updated_at = $2 WHERE id = $3`,
		string(finalDecision), decidedAt, input.ApplicationID)
	if err != nil {
		return nil, fmt.Errorf("%w: application status update failed: %v", ErrInsertFailed, err)
	}

	// Audit log entry (non-critical, log error but don't fail)
	auditDetails := map[string]interface{}{
		"finalDecision":  string(finalDecision),
		"consensusScore": input.ConsensusScore,
		"decidedBy":      input.DecidedBy,
		"superseded":     superseded,
	}
	if superseded {
		auditDetails["priorDecision"] = prior.FinalDecision
		auditDetails["priorDecidedBy"] = prior.DecidedBy
	}
	auditDetailsJSON, err := json.Marshal(auditDetails)
	if err != nil {
		auditDetailsJSON = []byte("{}")
	}
	if _, err := h.db.ExecContext(ctx, `
		INSERT INTO audit_log (event_type, resource_type, resource_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		"consensus_confirmed", "application", input.ApplicationID, auditDetailsJSON, decidedAt,
	); err != nil {
		h.logger.Warn("audit log insert failed", map[string]interface{}{
			"error":         err,
			"applicationId": input.ApplicationID,
		})
	}

	h.logger.Info("consensus confirmed", map[string]interface{}{
		"applicationId": input.ApplicationID,
		"finalDecision": string(finalDecision),
		"decidedBy":     input.DecidedBy,
		"superseded":    superseded,
	})

	return &Output{
		ApplicationID:     input.ApplicationID,
		FinalDecision:     string(finalDecision),
		ApplicationStatus: string(finalDecision),
		Superseded:        superseded,
		DecidedAt:         decidedAt,
	}, nil
}

// loadPrior returns the consensus row currently on record for the
// application, or nil when no decision has been confirmed yet.
func (h *Handler) loadPrior(ctx context.Context, applicationID string) (*models.Consensus, error) {
	var (
		prior     models.Consensus
		score     sql.NullFloat64
		decidedBy sql.NullString
		decidedAt sql.NullTime
	)
	err := h.db.QueryRowContext(ctx, `
		SELECT final_decision, consensus_score, decided_by, decided_at
		FROM consensus WHERE application_id = $1`,
		applicationID).Scan(&prior.FinalDecision, &score, &decidedBy, &decidedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: prior decision lookup: %v", ErrQueryFailed, err)
	}

	prior.ApplicationID = applicationID
	if score.Valid {
		prior.ConsensusScore = &score.Float64
	}
	prior.DecidedBy = decidedBy.String
	if decidedAt.Valid {
		prior.DecidedAt = &decidedAt.Time
	}
	return &prior, nil
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
