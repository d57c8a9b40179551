package handler

import (
	"time"

	"idverse/internal/credential/models"
)

type CredentialResponse struct {
	Credential models.Credential `json:"credential"`
	CreatedAt  time.Time         `json:"created_at"`
}

type RequestResponse struct {
	RequestID string    `json:"request_id"`
	SubjectID string    `json:"subject_id"`
	Type      string    `json:"type"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// ChallengeResponse returns the nonce under both keys; older verifier
// clients read "challenge".
type ChallengeResponse struct {
	Nonce     string    `json:"nonce"`
	Challenge string    `json:"challenge"`
	ExpiresAt time.Time `json:"expires_at"`
}

type RevokeResponse struct {
	CredentialID string `json:"vc_id"`
	TxnHash      string `json:"txn_hash"`
	BlockNumber  uint64 `json:"block_number"`
}

type StatusResponse struct {
	CredentialID string `json:"vc_id"`
	models.StatusInfo
}

func toCredentialResponse(record models.CredentialRecord) CredentialResponse {
	return CredentialResponse{Credential: record.Credential, CreatedAt: record.CreatedAt}
}

func toRequestResponse(req models.IssuanceRequest) RequestResponse {
	return RequestResponse{
		RequestID: req.ID,
		SubjectID: req.SubjectID,
		Type:      req.Type,
		Status:    string(req.Status),
		CreatedAt: req.CreatedAt,
	}
}
