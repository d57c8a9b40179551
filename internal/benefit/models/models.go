// Package models holds the benefit application domain types. An
// application references an issued credential as its supporting evidence
// and is anchored on the Benefit Ledger alongside the service-side record.
package models

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// ApplicationStatus is the workflow state of a benefit application.
type ApplicationStatus string

const (
	ApplicationRecorded ApplicationStatus = "recorded"
	ApplicationApproved ApplicationStatus = "approved"
	ApplicationRejected ApplicationStatus = "rejected"
)

// Application is one benefit application. Once approved it stays approved:
// later revocation of the supporting credential does not cascade, the
// credential only has to be valid at decision time.
type Application struct {
	ID           string            `json:"application_id"`
	SubjectID    string            `json:"subject_id"`
	Scheme       string            `json:"scheme"`
	CredentialID string            `json:"vc_id"`
	Status       ApplicationStatus `json:"status"`
	// DecisionNote is the reviewer's note on approve or reject.
	DecisionNote string      `json:"decision_note,omitempty"`
	TxnHash      common.Hash `json:"txn_hash"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}
