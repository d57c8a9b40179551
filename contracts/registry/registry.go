// Package registry defines the Go bindings for the three on-chain registries
// the platform anchors trust in: the Issuer Registry (issuer DID -> public key
// and trust flag), the Credential Registry (commitment hash -> status), and
// the Benefit Ledger (application -> credential reference).
//
// The package is deliberately dependency-free: it carries the wire-level
// record shapes and the Node RPC boundary, shared between the real chain
// gateway and the simulated node used in mock mode and tests.
package registry

import (
	"encoding/hex"
	"time"
)

// Hash is a 32-byte chain hash (commitment or transaction hash).
type Hash [32]byte

// Hex returns the 0x-prefixed hex encoding of the hash.
func (h Hash) Hex() string {
	return "0x" + hex.EncodeToString(h[:])
}

// IsZero reports whether the hash is all zero bytes.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// HexToHash parses a 0x-prefixed hex string into a Hash.
// Input shorter than 32 bytes is right-aligned; longer input is truncated.
func HexToHash(s string) Hash {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	var h Hash
	b, err := hex.DecodeString(s)
	if err != nil {
		return h
	}
	if len(b) > len(h) {
		b = b[len(b)-len(h):]
	}
	copy(h[len(h)-len(b):], b)
	return h
}

// Txn is the receipt for a confirmed registry write.
type Txn struct {
	Hash        Hash
	BlockNumber uint64
	ConfirmedAt time.Time
}

// IssuerEntry is an Issuer Registry record.
// Active is the trust flag: an inactive issuer must not be accepted for
// issuance or signature verification.
type IssuerEntry struct {
	DID          string
	PublicKeyHex string
	Active       bool
	RegisteredAt time.Time
}

// CredentialEntry is a Credential Registry record keyed by commitment hash.
// Revocation is terminal: once Revoked is set it is never cleared.
type CredentialEntry struct {
	Commitment   Hash
	IssuerDID    string
	ContentRef   string
	Registered   bool
	Revoked      bool
	RegisteredAt time.Time
	RevokedAt    time.Time
	RevokeReason string
	TxnHash      Hash
}

// BenefitStatus is the ledger-side state of a benefit application.
type BenefitStatus string

const (
	BenefitRecorded BenefitStatus = "recorded"
	BenefitApproved BenefitStatus = "approved"
	BenefitRejected BenefitStatus = "rejected"
)

// BenefitEntry is a Benefit Ledger record referencing an issued credential.
type BenefitEntry struct {
	ApplicationID string
	CredentialID  string
	Status        BenefitStatus
	RecordedAt    time.Time
	TxnHash       Hash
}
