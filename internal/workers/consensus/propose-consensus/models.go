// internal/workers/consensus/propose-consensus/models.go
package proposeconsensus

import "evaluation-workers/internal/engine/consensus"

type Input struct {
	ApplicationID string `json:"applicationId"`
}

// Output carries the proposal verbatim; the confirm step decides whether it
// becomes a stored decision.
type Output struct {
	consensus.Proposal
	GeneratedAt string `json:"generatedAt"`
}
