// internal/models/reviewer.go
package models

// ReviewerKind is stored alongside the reviewer identity. AI reviewers are
// tagged AUTOMATED explicitly, never inferred from a synthetic email address.
type ReviewerKind string

const (
	ReviewerHuman     ReviewerKind = "HUMAN"
	ReviewerAutomated ReviewerKind = "AUTOMATED"
)

type Reviewer struct {
	ID   string       `json:"id"`
	Name string       `json:"name"`
	Kind ReviewerKind `json:"kind"`
}

func (r Reviewer) IsAI() bool {
	return r.Kind == ReviewerAutomated
}

// ReviewerCompetency is set administratively and read-only to the engine.
// Absence of a record implies a neutral multiplier of 1.0.
type ReviewerCompetency struct {
	ReviewerID      string  `json:"reviewerId"`
	Category        string  `json:"category"`
	CompetencyLevel float64 `json:"competencyLevel"`
	BaseWeight      float64 `json:"baseWeight"`
}
