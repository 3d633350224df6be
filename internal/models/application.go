// internal/models/application.go
package models

import "time"

type ApplicationStatus string

const (
	ApplicationSubmitted   ApplicationStatus = "SUBMITTED"
	ApplicationUnderReview ApplicationStatus = "UNDER_REVIEW"
	ApplicationAccepted    ApplicationStatus = "ACCEPTED"
	ApplicationRejected    ApplicationStatus = "REJECTED"
	ApplicationWaitlisted  ApplicationStatus = "WAITLISTED"
)

// Application is the cohort-level view the analytics components read. Raw
// form answers stay in the store; only the attributes the bias analyzer
// groups by are modeled here.
type Application struct {
	ID          string              `json:"id"`
	EventID     string              `json:"eventId"`
	Status      ApplicationStatus   `json:"status"`
	Attributes  ApplicantAttributes `json:"attributes"`
	SubmittedAt time.Time           `json:"submittedAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}

// ApplicantAttributes are the grouping dimensions for fairness analysis.
type ApplicantAttributes struct {
	Employer    string `json:"employer,omitempty"`
	Location    string `json:"location,omitempty"`
	Role        string `json:"role,omitempty"`
	HasLinkedIn bool   `json:"hasLinkedIn"`
	HasTwitter  bool   `json:"hasTwitter"`
	HasWebsite  bool   `json:"hasWebsite"`
}

func (s ApplicationStatus) Decided() bool {
	return s == ApplicationAccepted || s == ApplicationRejected || s == ApplicationWaitlisted
}
