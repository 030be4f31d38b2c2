package server

import "time"

const (
	eventSubmissionCreated   = "submission_created"
	eventReferralCreated     = "referral_created"
	eventReferralUpdated     = "referral_updated"
	eventPrescriptionCreated = "prescription_created"
)

// DashboardEvent is pushed to connected staff dashboards.
type DashboardEvent struct {
	Type      string    `json:"type"`
	ID        string    `json:"id,omitempty"`
	Summary   string    `json:"summary,omitempty"`
	Severity  string    `json:"severity,omitempty"`
	Status    string    `json:"status,omitempty"`
	CreatedBy uint      `json:"createdBy,omitempty"`
	At        time.Time `json:"at"`
}

func (s *Server) publish(event DashboardEvent) {
	if s.dashboard == nil {
		return
	}
	if event.At.IsZero() {
		event.At = s.now().UTC()
	}
	s.dashboard.Broadcast(event)
}
