// internal/workers/infrastructure/build-report-response/handler.go
package buildreportresponse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/xeipuuv/gojsonschema"

	"evaluation-workers/internal/common/logger"
)

const TaskType = "build-report-response"

var (
	ErrTemplateNotFound         = errors.New("TEMPLATE_NOT_FOUND")
	ErrTemplateValidationFailed = errors.New("TEMPLATE_VALIDATION_FAILED")
)

type templateCacheEntry struct {
	template *TemplateDefinition
	loadedAt time.Time
}

// Handler shapes report payloads (evaluation summaries, consensus reports,
// bias reports, audit reports) into registered response envelopes. Templates
// come from a JSON registry on disk and are cached with a TTL; report data is
// validated against the template's JSON Schema before substitution.
type Handler struct {
	config *Config
	logger logger.Logger
	cache  map[string]*templateCacheEntry
	mu     sync.RWMutex
}

func NewHandler(config *Config, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
		cache:  make(map[string]*templateCacheEntry),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job",
		map[string]interface{}{
			"jobKey":      job.Key,
			"workflowKey": job.ProcessInstanceKey,
		})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(client, job, "PARSE_ERROR", fmt.Sprintf("parse input: %v", err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		errorCode := "RESPONSE_BUILD_ERROR"
		switch {
		case errors.Is(err, ErrTemplateNotFound):
			errorCode = "TEMPLATE_NOT_FOUND"
		case errors.Is(err, ErrTemplateValidationFailed):
			errorCode = "TEMPLATE_VALIDATION_FAILED"
		}
		h.failJob(client, job, errorCode, err.Error())
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) execute(_ context.Context, input *Input) (*Output, error) {
	template, err := h.loadTemplate(input.TemplateId)
	if err != nil {
		return nil, err
	}

	if err := h.validateData(template.Schema, input.Data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTemplateValidationFailed, err)
	}

	responseData := h.substituteTemplate(template.Template, input.Data)
	responseDataMap, ok := responseData.(map[string]interface{})
	if !ok {
		h.logger.Error("template root did not substitute to an object",
			map[string]interface{}{
				"templateId": input.TemplateId,
				"requestId":  input.RequestId,
				"resultType": fmt.Sprintf("%T", responseData),
			})
		return nil, fmt.Errorf("template %s root must be an object, substitution produced %T", input.TemplateId, responseData)
	}

	payload := ResponsePayload{
		RequestId: input.RequestId,
		Status:    "success",
		Data:      responseDataMap,
		Metadata: ResponseMetadata{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   h.config.AppVersion,
		},
	}

	return &Output{Response: payload}, nil
}

// substituteTemplate walks the template structure and replaces {{key}}
// placeholders with values from the report data. Keys may be dot paths into
// nested objects. Missing values substitute to null so the envelope shape
// stays stable.
func (h *Handler) substituteTemplate(templateData interface{}, inputData map[string]interface{}) interface{} {
	if templateData == nil {
		return nil
	}

	switch v := templateData.(type) {
	case string:
		if len(v) > 4 && v[0] == '{' && v[1] == '{' && v[len(v)-2] == '}' && v[len(v)-1] == '}' {
			key := strings.TrimSpace(v[2 : len(v)-2])
			value := h.lookupNestedValue(inputData, key)
			// Integer values become float64 so the filled envelope matches
			// what a JSON round trip would produce.
			switch numVal := value.(type) {
			case int:
				return float64(numVal)
			case int64:
				return float64(numVal)
			case int32:
				return float64(numVal)
			default:
				return value
			}
		}
		return v
	case map[string]interface{}:
		result := make(map[string]interface{})
		for k, child := range v {
			result[k] = h.substituteTemplate(child, inputData)
		}
		return result
	case []interface{}:
		result := make([]interface{}, len(v))
		for i, item := range v {
			result[i] = h.substituteTemplate(item, inputData)
		}
		return result
	default:
		return v
	}
}

func (h *Handler) lookupNestedValue(data map[string]interface{}, key string) interface{} {
	parts := strings.Split(key, ".")
	current := interface{}(data)

	for _, part := range parts {
		currentMap, ok := current.(map[string]interface{})
		if !ok {
			return nil
		}

		val, exists := currentMap[part]
		if !exists {
			return nil
		}

		current = val
	}

	return current
}

func (h *Handler) loadTemplate(id string) (*TemplateDefinition, error) {
	h.mu.RLock()
	if entry, ok := h.cache[id]; ok && time.Since(entry.loadedAt) < h.config.CacheTTL {
		h.mu.RUnlock()
		return entry.template, nil
	}
	h.mu.RUnlock()

	registryBytes, err := os.ReadFile(h.config.TemplateRegistry)
	if err != nil {
		return nil, fmt.Errorf("read registry: %w", err)
	}

	var registry struct {
		Templates []TemplateDefinition `json:"templates"`
	}
	if err := json.Unmarshal(registryBytes, &registry); err != nil {
		return nil, fmt.Errorf("parse registry: %w", err)
	}

	for _, t := range registry.Templates {
		if t.ID == id {
			tmpl := t
			h.mu.Lock()
			h.cache[id] = &templateCacheEntry{
				template: &tmpl,
				loadedAt: time.Now(),
			}
			h.mu.Unlock()
			return &tmpl, nil
		}
	}

	return nil, ErrTemplateNotFound
}

func (h *Handler) validateData(schemaMap, data map[string]interface{}) error {
	if len(schemaMap) == 0 {
		return nil
	}

	schemaLoader := gojsonschema.NewGoLoader(schemaMap)
	documentLoader := gojsonschema.NewGoLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return fmt.Errorf("data validation failed: %v", errs)
	}

	return nil
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{"error": err})
		return
	}
	_, err = cmd.Send(context.Background())
	if err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{"error": err})
	}
}

// Template errors are modeling mistakes, never transient, so the job throws
// a BPMN error instead of failing with retries.
func (h *Handler) failJob(client worker.JobClient, job entities.Job, errorCode, errorMessage string) {
	h.logger.Error("job failed",
		map[string]interface{}{
			"jobKey":       job.Key,
			"errorCode":    errorCode,
			"errorMessage": errorMessage,
		})

	_, err := client.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode(errorCode).
		ErrorMessage(errorMessage).
		Send(context.Background())
	if err != nil {
		h.logger.Error("failed to throw error", map[string]interface{}{"error": err})
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
