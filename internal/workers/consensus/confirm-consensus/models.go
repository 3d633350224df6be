// internal/workers/consensus/confirm-consensus/models.go
package confirmconsensus

type Input struct {
	ApplicationID   string  `json:"applicationId"`
	Decision        string  `json:"decision"`
	ConsensusScore  float64 `json:"consensusScore"`
	DecidedBy       string  `json:"decidedBy"`
	DiscussionNotes string  `json:"discussionNotes"`
	// ExpectedPriorDecision, when set, makes confirmation conditional: the
	// stored decision must match it or the job throws CONSENSUS_CONFLICT.
	ExpectedPriorDecision string `json:"expectedPriorDecision"`
}

type Output struct {
	ApplicationID     string `json:"applicationId"`
	FinalDecision     string `json:"finalDecision"`
	ApplicationStatus string `json:"applicationStatus"`
	Superseded        bool   `json:"superseded"`
	AlreadyConfirmed  bool   `json:"alreadyConfirmed"`
	DecidedAt         string `json:"decidedAt"`
}
