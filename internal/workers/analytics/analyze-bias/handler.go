// internal/workers/analytics/analyze-bias/handler.go
package analyzebias

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"evaluation-workers/internal/common/logger"
	"evaluation-workers/internal/common/metrics"
	"evaluation-workers/internal/engine/bias"
	"evaluation-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const (
	TaskType = "analyze-bias"

	reportCachePrefix = "bias:report:"
)

var (
	ErrInsufficientData    = errors.New("INSUFFICIENT_DATA")
	ErrInvalidAnalysisType = errors.New("INVALID_ANALYSIS_TYPE")
	ErrQueryFailed         = errors.New("QUERY_EXECUTION_FAILED")
)

type Handler struct {
	config   *Config
	db       *sql.DB
	redis    *redis.Client
	esClient *elasticsearch.Client
	logger   logger.Logger
}

func NewHandler(config *Config, db *sql.DB, redis *redis.Client, esClient *elasticsearch.Client, log logger.Logger) *Handler {
	return &Handler{
		config:   config,
		db:       db,
		redis:    redis,
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
		case errors.Is(err, ErrInsufficientData):
			errorCode = "INSUFFICIENT_DATA"
		case errors.Is(err, ErrInvalidAnalysisType):
			errorCode = "INVALID_ANALYSIS_TYPE"
		case errors.Is(err, ErrQueryFailed):
			errorCode = "QUERY_EXECUTION_FAILED"
			retries = 3
		}
		h.failJob(client, job, errorCode, err.Error(), retries)
		return
	}

	h.completeJob(client, job, output)
}

// execute assembles the event cohort, memoizes the full report on the cohort
// fingerprint, and trims the response to the requested section. The report
// is diagnostic only; no application or evaluation state changes here.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	tracer := otel.Tracer("evaluation-workers/analyze-bias")
	ctx, span := tracer.Start(ctx, "analyze-bias")
	defer span.End()
	span.SetAttributes(attribute.String("eventId", input.EventID))

	if input.EventID == "" {
		return nil, fmt.Errorf("%w: eventId is required", ErrInsufficientData)
	}

	analysisType := input.AnalysisType
	if analysisType == "" {
		analysisType = AnalysisFull
	}
	switch analysisType {
	case AnalysisFull, AnalysisAcceptance, AnalysisConsistency:
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidAnalysisType, input.AnalysisType)
	}
	span.SetAttributes(attribute.String("analysisType", analysisType))

	cohort, err := h.loadCohort(ctx, input.EventID, input.IncludeAI)
	if err != nil {
		return nil, err
	}
	if len(cohort) == 0 {
		return nil, fmt.Errorf("%w: event %s has no reviewed applications, urgency=high",
			ErrInsufficientData, input.EventID)
	}

	// The fingerprint covers application outcomes and scored-evaluation
	// counts, so any completed evaluation or status change invalidates the
	// memoized report on its own.
	hash := bias.CohortHash(cohort)
	cacheKey := reportCachePrefix + input.EventID + ":" + hash

	if val, err := h.redis.Get(ctx, cacheKey).Result(); err == nil {
		var cached bias.Report
		if err := json.Unmarshal([]byte(val), &cached); err == nil {
			h.logger.Info("bias report served from cache", map[string]interface{}{
				"eventId":    input.EventID,
				"cohortHash": hash,
			})
			return &Output{Report: applyAnalysisFilter(cached, analysisType), FromCache: true}, nil
		}
	}

	report, err := bias.Analyze(input.EventID, cohort, h.config.Bias)
	if err != nil {
		if errors.Is(err, bias.ErrEmptyCohort) {
			return nil, fmt.Errorf("%w: event %s has no reviewed applications, urgency=high",
				ErrInsufficientData, input.EventID)
		}
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}

	data, _ := json.Marshal(report)
	h.redis.Set(ctx, cacheKey, data, h.config.ReportCacheTTL)

	if h.esClient != nil {
		if err := h.snapshotReport(ctx, input.EventID, hash, data); err != nil {
			h.logger.Warn("bias report snapshot failed", map[string]interface{}{
				"eventId": input.EventID,
				"index":   h.config.ReportsIndex,
				"error":   err.Error(),
			})
		}
	}

	metrics.BiasReportsGenerated.WithLabelValues(report.OverallRisk).Inc()

	h.logger.Info("bias report generated", map[string]interface{}{
		"eventId":            input.EventID,
		"cohortSize":         report.CohortSize,
		"sampleSizeAdequate": report.SampleSizeAdequate,
		"highRiskSignals":    len(report.HighRiskSignals),
		"overallRisk":        report.OverallRisk,
		"skippedEvaluations": report.SkippedEvaluations,
	})

	return &Output{Report: applyAnalysisFilter(report, analysisType), FromCache: false}, nil
}

// loadCohort returns every reviewed application for the event paired with
// its evaluations. Submitted applications have no review outcome yet and are
// not part of the cohort.
func (h *Handler) loadCohort(ctx context.Context, eventID string, includeAI bool) ([]bias.CohortEntry, error) {
	rows, err := h.db.QueryContext(ctx, `
		SELECT id, status, employer, location, role, has_linkedin, has_twitter, has_website
		FROM applications
		WHERE event_id = $1
		  AND status IN ('UNDER_REVIEW', 'ACCEPTED', 'REJECTED', 'WAITLISTED')
		ORDER BY id`, eventID)
	if err != nil {
		return nil, fmt.Errorf("%w: cohort lookup: %v", ErrQueryFailed, err)
	}
	defer rows.Close()

	var cohort []bias.CohortEntry
	index := make(map[string]int)
	for rows.Next() {
		var (
			id, status                 string
			employer, location, role   sql.NullString
			linkedin, twitter, website sql.NullBool
		)
		if err := rows.Scan(&id, &status, &employer, &location, &role, &linkedin, &twitter, &website); err != nil {
			return nil, fmt.Errorf("%w: cohort scan: %v", ErrQueryFailed, err)
		}
		index[id] = len(cohort)
		cohort = append(cohort, bias.CohortEntry{
			Application: models.Application{
				ID:      id,
				EventID: eventID,
				Status:  models.ApplicationStatus(status),
				Attributes: models.ApplicantAttributes{
					Employer:    employer.String,
					Location:    location.String,
					Role:        role.String,
					HasLinkedIn: linkedin.Bool,
					HasTwitter:  twitter.Bool,
					HasWebsite:  website.Bool,
				},
			},
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: cohort rows: %v", ErrQueryFailed, err)
	}
	if len(cohort) == 0 {
		return cohort, nil
	}

	if err := h.attachEvaluations(ctx, eventID, includeAI, cohort, index); err != nil {
		return nil, err
	}
	return cohort, nil
}

// attachEvaluations joins evaluations onto the cohort entries. Excluding AI
// reviewers drops their evaluations from the cohort entirely, which also
// changes the cohort fingerprint and keeps the two views cached apart.
func (h *Handler) attachEvaluations(ctx context.Context, eventID string, includeAI bool, cohort []bias.CohortEntry, index map[string]int) error {
	query := `
		SELECT e.id, e.application_id, e.status, e.overall_score
		FROM evaluations e
		JOIN applications a ON a.id = e.application_id
		WHERE a.event_id = $1`
	if !includeAI {
		query = `
			SELECT e.id, e.application_id, e.status, e.overall_score
			FROM evaluations e
			JOIN applications a ON a.id = e.application_id
			JOIN reviewers r ON r.id = e.reviewer_id
			WHERE a.event_id = $1
			  AND r.kind <> 'AUTOMATED'`
	}

	rows, err := h.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return fmt.Errorf("%w: evaluations lookup: %v", ErrQueryFailed, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id, applicationID, status string
			overall                   sql.NullFloat64
		)
		if err := rows.Scan(&id, &applicationID, &status, &overall); err != nil {
			return fmt.Errorf("%w: evaluations scan: %v", ErrQueryFailed, err)
		}
		i, ok := index[applicationID]
		if !ok {
			continue
		}
		e := models.Evaluation{
			ID:            id,
			ApplicationID: applicationID,
			Status:        models.EvaluationStatus(status),
		}
		if overall.Valid {
			e.OverallScore = &overall.Float64
		}
		cohort[i].Evaluations = append(cohort[i].Evaluations, e)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: evaluations rows: %v", ErrQueryFailed, err)
	}
	return nil
}

// snapshotReport archives the report document in the reports index.
func (h *Handler) snapshotReport(ctx context.Context, eventID, hash string, body []byte) error {
	req := esapi.IndexRequest{
		Index:      h.config.ReportsIndex,
		DocumentID: eventID + ":" + hash,
		Body:       bytes.NewReader(body),
	}
	res, err := req.Do(ctx, h.esClient)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("index %s returned %s", h.config.ReportsIndex, res.Status())
	}
	return nil
}

// applyAnalysisFilter trims the report to the requested section. Risk
// signals and the overall rollup stay in every section.
func applyAnalysisFilter(report bias.Report, analysisType string) bias.Report {
	switch analysisType {
	case AnalysisAcceptance:
		report.ScoreConsistency = nil
	case AnalysisConsistency:
		report.Dimensions = nil
	}
	return report
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
