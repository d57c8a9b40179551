package audit

import "time"

// Event is emitted from the credential and benefit services to capture
// lifecycle actions. Transport-agnostic so sinks can fan out.
type Event struct {
	Timestamp     time.Time         `json:"timestamp"`
	Action        Action            `json:"action"`
	Actor         string            `json:"actor,omitempty"`
	SubjectID     string            `json:"subject_id,omitempty"`
	CredentialID  string            `json:"credential_id,omitempty"`
	ApplicationID string            `json:"application_id,omitempty"`
	Detail        map[string]string `json:"detail,omitempty"`
}

type Action string

const (
	EventRequestQueued       Action = "issuance_request_queued"
	EventCredentialIssued    Action = "credential_issued"
	EventCredentialPresented Action = "credential_presented"
	EventCredentialRevoked   Action = "credential_revoked"
	EventBenefitRecorded     Action = "benefit_application_recorded"
	EventBenefitUpdated      Action = "benefit_application_updated"
)
