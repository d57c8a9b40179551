package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

// signingPayload is the exact byte layout the issuer signs. Timestamps are
// RFC 3339 UTC strings and maps marshal with sorted keys, so the same
// credential always yields the same bytes regardless of claim insertion
// order.
type signingPayload struct {
	IssuerDID   string   `json:"issuer_did"`
	SubjectID   string   `json:"subject_id"`
	Type        string   `json:"type"`
	Claims      Claims   `json:"claims"`
	IssuedAt    string   `json:"issued_at"`
	ExpiresAt   string   `json:"expires_at,omitempty"`
	ContentRef  string   `json:"content_ref"`
	Commitments []string `json:"commitments"`
}

func canonicalTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// SigningBytes builds the canonical serialization of the credential fields
// the proof covers: (issuer_did, subject_id, type, claims, issued_at,
// expires_at, content_ref, commitments).
func (c Credential) SigningBytes() ([]byte, error) {
	payload := signingPayload{
		IssuerDID:   c.IssuerDID,
		SubjectID:   c.SubjectID,
		Type:        c.Type,
		Claims:      c.Claims,
		IssuedAt:    canonicalTime(c.IssuedAt),
		ContentRef:  c.ContentRef,
		Commitments: c.Proof.Commitments,
	}
	if c.ExpiresAt != nil {
		payload.ExpiresAt = canonicalTime(*c.ExpiresAt)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("canonical serialize credential: %w", err)
	}
	return data, nil
}

// claimsDocument is the canonical claims document stored off-chain; its CID
// becomes content_ref.
type claimsDocument struct {
	SubjectID   string   `json:"subject_id"`
	Type        string   `json:"type"`
	Claims      Claims   `json:"claims"`
	Commitments []string `json:"commitments"`
}

// ClaimsDocument builds the canonical claims document bytes.
func ClaimsDocument(subjectID, credType string, claims Claims, commitments []string) ([]byte, error) {
	data, err := json.Marshal(claimsDocument{
		SubjectID:   subjectID,
		Type:        credType,
		Claims:      claims,
		Commitments: commitments,
	})
	if err != nil {
		return nil, fmt.Errorf("canonical serialize claims document: %w", err)
	}
	return data, nil
}

// ChainCommitment derives the Credential Registry key for a signed payload:
// Keccak-256 over the canonical bytes plus the signature. Deterministic, so
// a resubmitted registration maps to the same registry entry.
func ChainCommitment(signingBytes []byte, signatureHex string) common.Hash {
	h := sha3.NewLegacyKeccak256()
	h.Write(signingBytes)
	h.Write([]byte(signatureHex))
	var out common.Hash
	h.Sum(out[:0])
	return out
}
