// Package models holds the credential domain types: the signed credential,
// the selective-disclosure package a holder presents, and the verification
// verdict.
package models

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Claims is the claim set of a credential. Keys are unique; insertion order
// carries no meaning because serialization is canonical.
type Claims map[string]any

// Proof is the issuer's signature over the canonical payload, plus the
// salted per-claim commitments that make selective disclosure provable.
type Proof struct {
	Type               string    `json:"type"`
	Created            time.Time `json:"created"`
	VerificationMethod string    `json:"verification_method"`
	SignatureHex       string    `json:"signature_hex"`
	// Commitments are digest strings, one per claim, ordered by claim key.
	// They are part of the signed payload.
	Commitments []string `json:"commitments"`
}

// ChainRef points at the Credential Registry entry anchoring this credential.
type ChainRef struct {
	Commitment  common.Hash `json:"commitment"`
	TxnHash     common.Hash `json:"txn_hash"`
	BlockNumber uint64      `json:"block_number"`
}

// Credential is immutable once signed. Amendment means issuing a new
// credential and revoking this one.
type Credential struct {
	ID        string     `json:"id"`
	IssuerDID string     `json:"issuer_did"`
	SubjectID string     `json:"subject_id"`
	Type      string     `json:"type"`
	Claims    Claims     `json:"claims"`
	IssuedAt  time.Time  `json:"issued_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	// ContentRef is the document store CID of the canonical claims document.
	ContentRef string   `json:"content_ref"`
	Proof      Proof    `json:"proof"`
	ChainRef   ChainRef `json:"chain_ref"`
	// Salts are the holder-side disclosure secrets, claim key to salt.
	// They are handed to the holder at issuance and are not signed.
	Salts map[string]string `json:"disclosure_salts,omitempty"`
}

// Expired reports whether the credential's expiry has elapsed at now.
// A credential without expires_at never expires.
func (c Credential) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && now.After(*c.ExpiresAt)
}

// CredentialRecord is the stored form of an issued credential.
type CredentialRecord struct {
	Credential
	CreatedAt time.Time `json:"created_at"`
}

// DisclosedClaim is one revealed claim with its disclosure salt.
type DisclosedClaim struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
	Salt  string `json:"salt"`
}

// DisclosurePackage is a holder-built presentation revealing a subset of a
// credential's claims. Commitments is the full signed commitment list, so a
// verifier can confirm membership without seeing undisclosed claims.
type DisclosurePackage struct {
	CredentialID string           `json:"credential_id"`
	Disclosed    []DisclosedClaim `json:"disclosed_claims"`
	Nonce        string           `json:"nonce"`
	Commitments  []string         `json:"commitments"`
	Proof        Proof            `json:"proof"`
}

// Checks itemizes the four verification checks. A failed check is data, not
// an error: the caller sees which part of the verdict failed.
type Checks struct {
	Challenge        bool `json:"challenge"`
	Signature        bool `json:"signature"`
	Status           bool `json:"status"`
	DisclosureSubset bool `json:"disclosure_subset"`
}

// StatusInfo is the live registry view of a credential at verification time.
type StatusInfo struct {
	Registered   bool       `json:"registered"`
	Revoked      bool       `json:"revoked"`
	RevokeReason string     `json:"revoke_reason,omitempty"`
	Expired      bool       `json:"expired"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

// VerificationResult is the verdict of one Verify call. Verified is the
// conjunction of all checks that apply to the presentation kind.
type VerificationResult struct {
	Verified   bool        `json:"verified"`
	Checks     Checks      `json:"checks"`
	StatusInfo *StatusInfo `json:"status_info,omitempty"`
}

// RequestStatus is the lifecycle state of a queued issuance request.
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestIssued   RequestStatus = "issued"
	RequestRejected RequestStatus = "rejected"
)

// IssuanceRequest is a queued ask for a credential, resolved by a later
// Issue call or rejected by an operator.
type IssuanceRequest struct {
	ID           string        `json:"request_id"`
	SubjectID    string        `json:"subject_id"`
	Type         string        `json:"type"`
	Claims       Claims        `json:"claims"`
	Status       RequestStatus `json:"status"`
	CredentialID string        `json:"credential_id,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	ResolvedAt   *time.Time    `json:"resolved_at,omitempty"`
}
