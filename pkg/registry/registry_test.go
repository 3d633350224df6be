// pkg/registry/registry_test.go
package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// TEST HELPERS
// ==========================

func sampleRegistry() *ActivityRegistry {
	return &ActivityRegistry{
		Version:     "1.0.0",
		LastUpdated: "2026-08-19T09:30:00Z",
		Activities: []Activity{
			{
				ID:          "propose-consensus",
				DisplayName: "Propose Consensus",
				Description: "Aggregates completed evaluations into a consensus proposal.",
				Category:    "consensus",
				Version:     "1.2.0",
				TaskType:    "propose-consensus",
				InputSchema: map[string]interface{}{
					"type":     "object",
					"required": []string{"applicationId"},
					"properties": map[string]interface{}{
						"applicationId": map[string]interface{}{"type": "string"},
					},
				},
				ErrorCodes: []string{"INSUFFICIENT_DATA"},
				Timeout:    "15s",
				Retries:    3,
				Workflows:  []string{"consensus-resolution"},
				Tags:       []string{"consensus"},
			},
			{
				ID:          "analyze-bias",
				DisplayName: "Analyze Bias",
				Description: "Detects demographic scoring patterns across a cohort.",
				Category:    "analytics",
				Version:     "1.2.0",
				TaskType:    "analyze-bias",
				InputSchema: map[string]interface{}{
					"type":     "object",
					"required": []string{"eventId"},
					"properties": map[string]interface{}{
						"eventId":      map[string]interface{}{"type": "string"},
						"analysisType": map[string]interface{}{"type": "string"},
					},
				},
				Timeout:   "30s",
				Retries:   2,
				Workflows: []string{"analytics-reporting"},
			},
		},
	}
}

func writeRegistryFile(tb testing.TB, reg *ActivityRegistry) string {
	tb.Helper()
	path := filepath.Join(tb.TempDir(), "activity-registry.json")
	require.NoError(tb, SaveRegistry(reg, path))
	return path
}

// ==========================
// LOAD / SAVE TESTS
// ==========================

func TestLoadRegistry(t *testing.T) {
	t.Run("round trips through save and load", func(t *testing.T) {
		path := writeRegistryFile(t, sampleRegistry())

		loaded, err := LoadRegistry(path)
		require.NoError(t, err)

		assert.Equal(t, "1.0.0", loaded.Version)
		require.Len(t, loaded.Activities, 2)
		assert.Equal(t, "propose-consensus", loaded.Activities[0].ID)
		assert.Equal(t, []string{"INSUFFICIENT_DATA"}, loaded.Activities[0].ErrorCodes)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadRegistry(filepath.Join(t.TempDir(), "nope.json"))
		assert.Error(t, err)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("malformed json", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "broken.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

		_, err := LoadRegistry(path)
		assert.Error(t, err)
	})
}

// ==========================
// VALIDATION TESTS
// ==========================

func TestRegistry_Validate(t *testing.T) {
	t.Run("valid registry passes", func(t *testing.T) {
		assert.NoError(t, sampleRegistry().Validate())
	})

	tests := []struct {
		name    string
		mutate  func(reg *ActivityRegistry)
		wantErr string
	}{
		{
			name:    "no activities",
			mutate:  func(reg *ActivityRegistry) { reg.Activities = nil },
			wantErr: "no activities",
		},
		{
			name: "duplicate id",
			mutate: func(reg *ActivityRegistry) {
				reg.Activities[1].ID = reg.Activities[0].ID
			},
			wantErr: "duplicate activity ID",
		},
		{
			name: "duplicate task type",
			mutate: func(reg *ActivityRegistry) {
				reg.Activities[1].TaskType = reg.Activities[0].TaskType
			},
			wantErr: "duplicate task type",
		},
		{
			name: "missing display name",
			mutate: func(reg *ActivityRegistry) {
				reg.Activities[0].DisplayName = ""
			},
			wantErr: "DisplayName",
		},
		{
			name: "missing category",
			mutate: func(reg *ActivityRegistry) {
				reg.Activities[1].Category = ""
			},
			wantErr: "Category",
		},
		{
			name: "input schema does not compile",
			mutate: func(reg *ActivityRegistry) {
				reg.Activities[0].InputSchema = map[string]interface{}{"type": 12}
			},
			wantErr: "invalid input schema",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := sampleRegistry()
			tt.mutate(reg)

			err := reg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRegistry_ValidatePayload(t *testing.T) {
	reg := sampleRegistry()

	t.Run("valid payload", func(t *testing.T) {
		err := reg.ValidatePayload("propose-consensus", map[string]interface{}{
			"applicationId": "app-001",
		})
		assert.NoError(t, err)
	})

	t.Run("missing required field", func(t *testing.T) {
		err := reg.ValidatePayload("propose-consensus", map[string]interface{}{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "applicationId")
	})

	t.Run("unregistered task type", func(t *testing.T) {
		err := reg.ValidatePayload("send-newsletter", map[string]interface{}{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no activity registered")
	})

	t.Run("activity without schema accepts anything", func(t *testing.T) {
		reg := sampleRegistry()
		reg.Activities[0].InputSchema = nil

		assert.NoError(t, reg.ValidatePayload("propose-consensus", map[string]interface{}{"whatever": true}))
	})
}

// ==========================
// LOOKUP TESTS
// ==========================

func TestRegistry_Lookups(t *testing.T) {
	reg := sampleRegistry()

	assert.NotNil(t, reg.FindActivity("analyze-bias"))
	assert.Nil(t, reg.FindActivity("unknown"))

	found := reg.FindByTaskType("propose-consensus")
	require.NotNil(t, found)
	assert.Equal(t, "Propose Consensus", found.DisplayName)
	assert.Nil(t, reg.FindByTaskType("unknown"))
}
