// internal/workers/infrastructure/validate-cohort-readiness/models.go
package validatecohortreadiness

type Input struct {
	EventID string `json:"eventId"`
	// MinSampleSize overrides the configured minimum for this check only.
	MinSampleSize  int  `json:"minSampleSize,omitempty"`
	FailOnNotReady bool `json:"failOnNotReady,omitempty"`
}

type Output struct {
	Ready                 bool `json:"ready"`
	CohortSize            int  `json:"cohortSize"`
	EvaluatedApplications int  `json:"evaluatedApplications"`
	CompletedEvaluations  int  `json:"completedEvaluations"`
	SampleSizeAdequate    bool `json:"sampleSizeAdequate"`
	MinSampleSize         int  `json:"minSampleSize"`
}

// EventStats is the cached cohort snapshot for one event. It holds raw
// counts only; the readiness verdict is recomputed per request so a
// minimum-sample override never needs a fresh count.
type EventStats struct {
	EventID               string `json:"eventId"`
	CohortSize            int    `json:"cohortSize"`
	EvaluatedApplications int    `json:"evaluatedApplications"`
	CompletedEvaluations  int    `json:"completedEvaluations"`
}
