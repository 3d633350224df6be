// cmd/tools/worker-generator/main.go
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"evaluation-workers/pkg/registry"
)

// WorkerData holds data for templates
type WorkerData struct {
	Name             string                 `json:"name"`
	PackageName      string                 `json:"packageName"`
	TaskType         string                 `json:"taskType"`
	HeaderDir        string                 `json:"headerDir"`
	InputSchema      map[string]interface{} `json:"inputSchema"`
	OutputSchema     map[string]interface{} `json:"outputSchema"`
	ErrorCodes       []string               `json:"errorCodes"`
	DefaultErrorCode string                 `json:"defaultErrorCode"`
	Description      string                 `json:"description"`
	Category         string                 `json:"category"`
	Timeout          string                 `json:"timeout"`
	Retries          int                    `json:"retries"`
}

// parseSchema extracts properties from a JSON schema object
func parseSchema(schemaObj interface{}) map[string]interface{} {
	if schemaMap, ok := schemaObj.(map[string]interface{}); ok {
		if props, exists := schemaMap["properties"]; exists {
			if properties, ok := props.(map[string]interface{}); ok {
				return properties
			}
		}
	}
	return map[string]interface{}{}
}

// goTypeFromJSONType maps JSON schema types to Go types
func goTypeFromJSONType(jsonType interface{}) string {
	if jt, ok := jsonType.(string); ok {
		switch jt {
		case "string":
			return "string"
		case "number", "integer":
			return "float64"
		case "boolean":
			return "bool"
		case "object":
			return "map[string]interface{}"
		case "array":
			return "[]interface{}"
		default:
			return "interface{}"
		}
	}
	return "interface{}"
}

// generateStructFields generates Go struct field definitions from schema properties
func generateStructFields(properties map[string]interface{}) string {
	var fields []string
	for prop, details := range properties {
		propDetails, ok := details.(map[string]interface{})
		if !ok {
			continue
		}
		goType := goTypeFromJSONType(propDetails["type"])
		fieldDef := fmt.Sprintf("\t%s %s `json:\"%s\"`", upperFirst(prop), goType, prop)
		fields = append(fields, fieldDef)
	}
	return strings.Join(fields, "\n")
}

// upperFirst makes the first character uppercase
func upperFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// errorName converts an error code like INSUFFICIENT_DATA into a sentinel
// name like ErrInsufficientData.
func errorName(code string) string {
	parts := strings.Split(strings.ToLower(code), "_")
	for i, p := range parts {
		parts[i] = upperFirst(p)
	}
	return "Err" + strings.Join(parts, "")
}

const configTemplate = `// {{ .HeaderDir }}/config.go
package {{ .PackageName }}

import "time"

// Config holds settings for the {{ .Name }} worker.
type Config struct {
	Timeout time.Duration
}
`

const modelsTemplate = `// {{ .HeaderDir }}/models.go
package {{ .PackageName }}

type Input struct {
{{- $inputProps := parseSchema .InputSchema }}
{{- if $inputProps }}
{{ generateStructFields $inputProps }}
{{- else }}
	// TODO: add input fields from the BPMN service task contract
{{- end }}
}

type Output struct {
{{- $outputProps := parseSchema .OutputSchema }}
{{- if $outputProps }}
{{ generateStructFields $outputProps }}
{{- else }}
	// TODO: add output fields from the BPMN service task contract
{{- end }}
}
`

const handlerTemplate = `// {{ .HeaderDir }}/handler.go
package {{ .PackageName }}

import (
	"context"
	"encoding/json"
{{- if .ErrorCodes }}
	"errors"
{{- end }}
	"fmt"

	"evaluation-workers/internal/common/logger"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "{{ .TaskType }}"
)
{{- if .ErrorCodes }}

var (
{{- range .ErrorCodes }}
	{{ errorName . }} = errors.New("{{ . }}")
{{- end }}
)
{{- end }}

type Handler struct {
	config *Config
	logger logger.Logger
}

func NewHandler(config *Config, log logger.Logger) *Handler {
	return &Handler{
		config: config,
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
		h.failJob(client, job, "{{ .DefaultErrorCode }}", fmt.Sprintf("parse input: %v", err), 0)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.failJob(client, job, "{{ .DefaultErrorCode }}", err.Error(), 0)
		return
	}

	h.completeJob(client, job, output)
}

// execute carries the worker's business logic. The scaffold returns an empty
// Output so the package compiles while the real behavior is filled in.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	// TODO: implement the {{ .TaskType }} business logic
	return &Output{}, nil
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
`

const testTemplate = `// {{ .HeaderDir }}/handler_test.go
package {{ .PackageName }}

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evaluation-workers/internal/common/logger"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestConfig() *Config {
	return &Config{
		Timeout: 10 * time.Second,
	}
}

func createTestHandler(t *testing.T) *Handler {
	return NewHandler(createTestConfig(), logger.NewTestLogger(t))
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute(t *testing.T) {
	handler := createTestHandler(t)

	output, err := handler.Execute(context.Background(), &Input{})

	require.NoError(t, err)
	assert.NotNil(t, output)
}
`

func main() {
	activity := flag.String("activity", "", "Activity ID from registry (e.g., propose-consensus)")
	outputDir := flag.String("output", "./internal/workers/", "Output directory for the generated worker")
	registryPath := flag.String("registry", "configs/activity-registry.json", "Path to the activity registry JSON file")
	flag.Parse()

	if *activity == "" {
		fmt.Println("Usage: worker-generator --activity <id> --output <dir> [--registry <path>]")
		fmt.Println("\nExample:")
		fmt.Println("  go run cmd/tools/worker-generator/main.go --activity validate-cohort-readiness")
		os.Exit(1)
	}

	// Load the registry
	reg, err := registry.LoadRegistry(*registryPath)
	if err != nil {
		fmt.Printf("Error loading registry from %s: %v\n", *registryPath, err)
		os.Exit(1)
	}

	foundActivity := reg.FindActivity(*activity)
	if foundActivity == nil {
		fmt.Printf("Activity '%s' not found in registry %s\n", *activity, *registryPath)
		os.Exit(1)
	}

	categoryDir := mapCategoryToDirectory(foundActivity.Category)

	// Prepare data for templates
	data := WorkerData{
		Name:             foundActivity.DisplayName,
		PackageName:      strings.ReplaceAll(foundActivity.ID, "-", ""),
		TaskType:         foundActivity.TaskType,
		HeaderDir:        filepath.ToSlash(filepath.Join("internal/workers", categoryDir, foundActivity.ID)),
		InputSchema:      foundActivity.InputSchema,
		OutputSchema:     foundActivity.OutputSchema,
		ErrorCodes:       foundActivity.ErrorCodes,
		DefaultErrorCode: defaultErrorCode(foundActivity),
		Description:      foundActivity.Description,
		Category:         foundActivity.Category,
		Timeout:          foundActivity.Timeout,
		Retries:          foundActivity.Retries,
	}

	workerDir := filepath.Join(*outputDir, categoryDir, foundActivity.ID)

	if err := os.MkdirAll(workerDir, 0755); err != nil {
		fmt.Printf("Error creating directory: %v\n", err)
		os.Exit(1)
	}

	funcMap := template.FuncMap{
		"parseSchema":          parseSchema,
		"generateStructFields": generateStructFields,
		"errorName":            errorName,
	}

	// Generate files
	templates := map[string]string{
		"config.go":       configTemplate,
		"models.go":       modelsTemplate,
		"handler.go":      handlerTemplate,
		"handler_test.go": testTemplate,
	}

	for filename, tmplStr := range templates {
		tmpl, err := template.New(filename).Funcs(funcMap).Parse(tmplStr)
		if err != nil {
			fmt.Printf("Error parsing template %s: %v\n", filename, err)
			continue
		}

		filePath := filepath.Join(workerDir, filename)
		file, err := os.Create(filePath)
		if err != nil {
			fmt.Printf("Error creating file %s: %v\n", filePath, err)
			continue
		}

		if err := tmpl.Execute(file, data); err != nil {
			fmt.Printf("Error executing template for %s: %v\n", filename, err)
		}
		file.Close()

		fmt.Printf("generated %s\n", filePath)
	}

	fmt.Printf("\nWorker scaffold generated at: %s\n", workerDir)
	fmt.Printf("\nNext steps:\n")
	fmt.Printf("  1. Implement the business logic in handler.go (execute)\n")
	fmt.Printf("  2. Flesh out Input and Output in models.go\n")
	fmt.Printf("  3. Extend handler_test.go beyond the scaffold test\n")
	fmt.Printf("  4. Register the worker in cmd/worker-manager/main.go\n")
	fmt.Printf("  5. Add a workers entry to configs/config.yaml\n")
}

// defaultErrorCode picks the code used for parse and execution failures in
// the scaffold. The first registry code wins; workers without declared codes
// get a derived one.
func defaultErrorCode(activity *registry.Activity) string {
	if len(activity.ErrorCodes) > 0 {
		return activity.ErrorCodes[0]
	}
	return strings.ToUpper(strings.ReplaceAll(activity.ID, "-", "_")) + "_FAILED"
}

// mapCategoryToDirectory maps registry categories to directory names under
// internal/workers. Categories and directories line up one to one.
func mapCategoryToDirectory(category string) string {
	switch category {
	case "evaluation", "consensus", "analytics", "data-access", "infrastructure":
		return category
	default:
		return strings.ToLower(category)
	}
}
