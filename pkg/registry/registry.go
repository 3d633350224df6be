// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xeipuuv/gojsonschema"
)

// LoadRegistry reads and parses the activity registry file.
func LoadRegistry(path string) (*ActivityRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg ActivityRegistry
	err = json.Unmarshal(data, &reg)
	return &reg, err
}

// SaveRegistry writes the registry back to disk, creating the parent
// directory if needed.
func SaveRegistry(reg *ActivityRegistry, path string) error {
	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write registry file: %w", err)
	}

	return nil
}

// FindActivity returns the activity with the given ID, or nil.
func (r *ActivityRegistry) FindActivity(id string) *Activity {
	for i := range r.Activities {
		if r.Activities[i].ID == id {
			return &r.Activities[i]
		}
	}
	return nil
}

// FindByTaskType returns the activity registered for a Camunda task type,
// or nil.
func (r *ActivityRegistry) FindByTaskType(taskType string) *Activity {
	for i := range r.Activities {
		if r.Activities[i].TaskType == taskType {
			return &r.Activities[i]
		}
	}
	return nil
}

// Validate checks the registry for structural problems: missing required
// fields, duplicate IDs or task types, and input/output schemas that do not
// compile as JSON Schema.
func (r *ActivityRegistry) Validate() error {
	if len(r.Activities) == 0 {
		return fmt.Errorf("registry contains no activities")
	}

	ids := make(map[string]bool)
	taskTypes := make(map[string]bool)
	for _, activity := range r.Activities {
		if activity.ID == "" {
			return fmt.Errorf("activity missing required field: ID")
		}
		if ids[activity.ID] {
			return fmt.Errorf("duplicate activity ID: %s", activity.ID)
		}
		ids[activity.ID] = true

		if activity.DisplayName == "" {
			return fmt.Errorf("activity %s missing required field: DisplayName", activity.ID)
		}
		if activity.TaskType == "" {
			return fmt.Errorf("activity %s missing required field: TaskType", activity.ID)
		}
		if taskTypes[activity.TaskType] {
			return fmt.Errorf("duplicate task type: %s", activity.TaskType)
		}
		taskTypes[activity.TaskType] = true

		if activity.Category == "" {
			return fmt.Errorf("activity %s missing required field: Category", activity.ID)
		}

		if err := compileSchema(activity.InputSchema); err != nil {
			return fmt.Errorf("activity %s has an invalid input schema: %w", activity.ID, err)
		}
		if err := compileSchema(activity.OutputSchema); err != nil {
			return fmt.Errorf("activity %s has an invalid output schema: %w", activity.ID, err)
		}
	}

	return nil
}

// ValidatePayload validates a job payload against the input schema registered
// for the task type. An unregistered task type is an error; an activity
// without an input schema accepts anything.
func (r *ActivityRegistry) ValidatePayload(taskType string, payload map[string]interface{}) error {
	activity := r.FindByTaskType(taskType)
	if activity == nil {
		return fmt.Errorf("no activity registered for task type %s", taskType)
	}
	if len(activity.InputSchema) == 0 {
		return nil
	}

	schemaLoader := gojsonschema.NewGoLoader(activity.InputSchema)
	documentLoader := gojsonschema.NewGoLoader(payload)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return fmt.Errorf("payload validation failed for %s: %v", taskType, errs)
	}

	return nil
}

func compileSchema(schema map[string]interface{}) error {
	if len(schema) == 0 {
		return nil
	}
	_, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schema))
	return err
}
