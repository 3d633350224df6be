// internal/models/consensus.go
package models

import "time"

// Consensus is the finalized cross-reviewer decision for an application.
// At most one active row exists per application; confirming a new decision
// supersedes the prior one atomically in the store.
type Consensus struct {
	ApplicationID   string     `json:"applicationId"`
	FinalDecision   string     `json:"finalDecision"`
	ConsensusScore  *float64   `json:"consensusScore,omitempty"`
	DiscussionNotes string     `json:"discussionNotes,omitempty"`
	DecidedBy       string     `json:"decidedBy,omitempty"`
	DecidedAt       *time.Time `json:"decidedAt,omitempty"`
}
