// internal/engine/audit/trail.go

// Package audit rebuilds a time-ordered activity log from evaluation, score
// and comment records. There is no persisted log to keep in sync; the trail
// is a pure projection and every build produces the same result for the
// same records.
package audit

import (
	"sort"
	"time"

	"evaluation-workers/internal/models"
)

// Config carries the trail-building policy.
type Config struct {
	DefaultLimit int
	MaxLimit     int
	// TopReviewers caps the busiest-reviewer list.
	TopReviewers int
	// RapidFireMinutes flags completed evaluations finished suspiciously
	// fast.
	RapidFireMinutes int
}

// DefaultConfig returns the platform defaults.
func DefaultConfig() Config {
	return Config{
		DefaultLimit:     100,
		MaxLimit:         1000,
		TopReviewers:     5,
		RapidFireMinutes: 5,
	}
}

// Filter narrows the projected trail. Zero values mean no filtering on that
// axis.
type Filter struct {
	ApplicationID string
	ReviewerID    string
	AIOnly        bool
	From          time.Time
	To            time.Time
	Limit         int
}

// Source is the record snapshot the trail is projected from. Reviewers is
// keyed by reviewer id and supplies names and the human/automated tag.
type Source struct {
	Evaluations []models.Evaluation
	Scores      []models.Score
	Comments    []models.Comment
	Reviewers   map[string]models.Reviewer
}

// ReviewerActivity counts one reviewer's events in the filtered trail.
type ReviewerActivity struct {
	ReviewerID   string `json:"reviewerId"`
	ReviewerName string `json:"reviewerName,omitempty"`
	IsAIReviewer bool   `json:"isAiReviewer"`
	EventCount   int    `json:"eventCount"`
}

// Anomalies holds the two flag lists derived alongside the trail.
type Anomalies struct {
	// RapidFire lists completed evaluations finished in under the
	// configured number of minutes.
	RapidFire []string `json:"rapidFire"`
	// Incomplete lists evaluations that never reached COMPLETED.
	Incomplete []string `json:"incomplete"`
}

// Trail is the projected event list plus derived statistics. Statistics
// cover the full filtered set even when Events is truncated by the row
// limit.
type Trail struct {
	Events       []models.AuditEvent            `json:"events"`
	TotalEvents  int                            `json:"totalEvents"`
	EventCounts  map[models.AuditEventType]int  `json:"eventCounts"`
	TopReviewers []ReviewerActivity             `json:"topReviewers"`
	AIEvents     int                            `json:"aiEvents"`
	HumanEvents  int                            `json:"humanEvents"`
	Anomalies    Anomalies                      `json:"anomalies"`
}

// Build projects the audit trail from a record snapshot. Events are sorted
// reverse-chronologically; completion events for automated reviewers are
// typed AI_EVALUATION instead of EVALUATION_COMPLETED.
func Build(src Source, filter Filter, cfg Config) Trail {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 100
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = 1000
	}
	if cfg.TopReviewers <= 0 {
		cfg.TopReviewers = 5
	}
	if cfg.RapidFireMinutes <= 0 {
		cfg.RapidFireMinutes = 5
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = cfg.DefaultLimit
	}
	if limit > cfg.MaxLimit {
		limit = cfg.MaxLimit
	}

	events := synthesize(src)
	events = applyFilter(events, filter)

	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].Timestamp.Equal(events[j].Timestamp) {
			return events[i].Timestamp.After(events[j].Timestamp)
		}
		// Stable secondary order so repeated builds agree.
		if events[i].EvaluationID != events[j].EvaluationID {
			return events[i].EvaluationID < events[j].EvaluationID
		}
		return events[i].Type < events[j].Type
	})

	trail := Trail{
		TotalEvents: len(events),
		EventCounts: make(map[models.AuditEventType]int),
	}

	reviewerActivity := make(map[string]*ReviewerActivity)
	for _, event := range events {
		trail.EventCounts[event.Type]++
		if event.IsAIReviewer {
			trail.AIEvents++
		} else {
			trail.HumanEvents++
		}

		activity, ok := reviewerActivity[event.ReviewerID]
		if !ok {
			activity = &ReviewerActivity{
				ReviewerID:   event.ReviewerID,
				ReviewerName: event.ReviewerName,
				IsAIReviewer: event.IsAIReviewer,
			}
			reviewerActivity[event.ReviewerID] = activity
		}
		activity.EventCount++
	}

	trail.TopReviewers = topReviewers(reviewerActivity, cfg.TopReviewers)
	trail.Anomalies = findAnomalies(src, filter, cfg)

	if len(events) > limit {
		events = events[:limit]
	}
	trail.Events = events

	return trail
}

// synthesize expands the raw records into one event per lifecycle moment:
// a start per evaluation, a completion per completed evaluation, one event
// per score and one per comment.
func synthesize(src Source) []models.AuditEvent {
	evalByID := make(map[string]models.Evaluation, len(src.Evaluations))
	for _, e := range src.Evaluations {
		evalByID[e.ID] = e
	}

	var events []models.AuditEvent

	for _, e := range src.Evaluations {
		reviewer := src.Reviewers[e.ReviewerID]

		events = append(events, models.AuditEvent{
			Type:          models.AuditEvaluationStarted,
			Timestamp:     e.CreatedAt,
			ApplicationID: e.ApplicationID,
			EvaluationID:  e.ID,
			ReviewerID:    e.ReviewerID,
			ReviewerName:  reviewer.Name,
			IsAIReviewer:  reviewer.IsAI(),
		})

		if e.CompletedAt != nil {
			eventType := models.AuditEvaluationCompleted
			if reviewer.IsAI() {
				eventType = models.AuditAIEvaluation
			}
			events = append(events, models.AuditEvent{
				Type:          eventType,
				Timestamp:     *e.CompletedAt,
				ApplicationID: e.ApplicationID,
				EvaluationID:  e.ID,
				ReviewerID:    e.ReviewerID,
				ReviewerName:  reviewer.Name,
				IsAIReviewer:  reviewer.IsAI(),
			})
		}
	}

	for _, s := range src.Scores {
		parent, ok := evalByID[s.EvaluationID]
		if !ok {
			continue
		}
		reviewer := src.Reviewers[parent.ReviewerID]
		events = append(events, models.AuditEvent{
			Type:          models.AuditScoreUpdated,
			Timestamp:     s.CreatedAt,
			ApplicationID: parent.ApplicationID,
			EvaluationID:  s.EvaluationID,
			ReviewerID:    parent.ReviewerID,
			ReviewerName:  reviewer.Name,
			IsAIReviewer:  reviewer.IsAI(),
			Detail:        "criterion:" + s.CriterionID,
		})
	}

	for _, c := range src.Comments {
		parent, ok := evalByID[c.EvaluationID]
		if !ok {
			continue
		}
		reviewer := src.Reviewers[parent.ReviewerID]
		event := models.AuditEvent{
			Type:          models.AuditCommentAdded,
			Timestamp:     c.CreatedAt,
			ApplicationID: parent.ApplicationID,
			EvaluationID:  c.EvaluationID,
			ReviewerID:    parent.ReviewerID,
			ReviewerName:  reviewer.Name,
			IsAIReviewer:  reviewer.IsAI(),
		}
		if c.QuestionKey != "" {
			event.Detail = "question:" + c.QuestionKey
		}
		events = append(events, event)
	}

	return events
}

func applyFilter(events []models.AuditEvent, filter Filter) []models.AuditEvent {
	filtered := events[:0:0]
	for _, event := range events {
		if filter.ApplicationID != "" && event.ApplicationID != filter.ApplicationID {
			continue
		}
		if filter.ReviewerID != "" && event.ReviewerID != filter.ReviewerID {
			continue
		}
		if filter.AIOnly && !event.IsAIReviewer {
			continue
		}
		if !filter.From.IsZero() && event.Timestamp.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && event.Timestamp.After(filter.To) {
			continue
		}
		filtered = append(filtered, event)
	}
	return filtered
}

func topReviewers(activity map[string]*ReviewerActivity, limit int) []ReviewerActivity {
	ranked := make([]ReviewerActivity, 0, len(activity))
	for _, a := range activity {
		ranked = append(ranked, *a)
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].EventCount != ranked[j].EventCount {
			return ranked[i].EventCount > ranked[j].EventCount
		}
		return ranked[i].ReviewerID < ranked[j].ReviewerID
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// findAnomalies applies the identity filters (application, reviewer, AI)
// directly to evaluations, so an anomalous evaluation is reported even when
// the date range excludes its events.
func findAnomalies(src Source, filter Filter, cfg Config) Anomalies {
	anomalies := Anomalies{}

	for _, e := range src.Evaluations {
		if filter.ApplicationID != "" && e.ApplicationID != filter.ApplicationID {
			continue
		}
		if filter.ReviewerID != "" && e.ReviewerID != filter.ReviewerID {
			continue
		}
		if filter.AIOnly && !src.Reviewers[e.ReviewerID].IsAI() {
			continue
		}

		if e.Status != models.EvaluationCompleted {
			anomalies.Incomplete = append(anomalies.Incomplete, e.ID)
			continue
		}
		if e.TimeSpentMinutes != nil && *e.TimeSpentMinutes < cfg.RapidFireMinutes {
			anomalies.RapidFire = append(anomalies.RapidFire, e.ID)
		}
	}

	return anomalies
}
