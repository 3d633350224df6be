// internal/workers/consensus/check-reconciliation-routing/models.go
package checkreconciliationrouting

const (
	RouteManualReconciliation = "manual-reconciliation"
	RouteAdditionalReview     = "additional-review"
	RouteAutoConfirmation     = "auto-confirmation"

	UrgencyHigh   = "high"
	UrgencyMedium = "medium"
	UrgencyNormal = "normal"
)

type Input struct {
	ApplicationID       string `json:"applicationId"`
	NeedsReconciliation bool   `json:"needsReconciliation"`
	LowConfidence       bool   `json:"lowConfidence"`
}

type Output struct {
	Route             string `json:"route"`
	Urgency           string `json:"urgency"`
	EventID           string `json:"eventId,omitempty"`
	AwaitingConsensus int    `json:"awaitingConsensus"`
}

// eventStats is the cached per-event queue snapshot surfaced to organizers
// alongside the routing decision.
type eventStats struct {
	AwaitingConsensus int `json:"awaitingConsensus"`
}
