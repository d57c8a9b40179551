package registry

import (
	"context"
	"errors"
)

// Node is the RPC boundary to a chain node hosting the three registries.
// Write methods block until the transaction is confirmed or ctx is done;
// they never leave an ambiguous pending state with the caller.
//
// Registrations are idempotent by commitment: resubmitting an already
// registered commitment returns the original transaction and
// ErrAlreadyRegistered so retries after a timeout are detected as
// duplicates instead of double-applied.
type Node interface {
	// Issuer Registry.
	RegisterIssuer(ctx context.Context, entry IssuerEntry) (Txn, error)
	IssuerInfo(ctx context.Context, did string) (IssuerEntry, error)

	// Credential Registry.
	RegisterCredential(ctx context.Context, commitment Hash, issuerDID, contentRef string) (Txn, error)
	RevokeCredential(ctx context.Context, commitment Hash, reason string) (Txn, error)
	CredentialStatus(ctx context.Context, commitment Hash) (CredentialEntry, error)

	// Benefit Ledger.
	RecordApplication(ctx context.Context, entry BenefitEntry) (Txn, error)
	UpdateApplication(ctx context.Context, applicationID string, status BenefitStatus) (Txn, error)
	Application(ctx context.Context, applicationID string) (BenefitEntry, error)
}

var (
	// ErrUnknownIssuer means the DID has no Issuer Registry entry.
	ErrUnknownIssuer = errors.New("issuer not registered")
	// ErrUnknownCommitment means no Credential Registry entry exists for the hash.
	ErrUnknownCommitment = errors.New("commitment not registered")
	// ErrAlreadyRegistered flags an idempotent duplicate registration.
	ErrAlreadyRegistered = errors.New("commitment already registered")
	// ErrAlreadyRevoked flags revocation of an already revoked credential.
	ErrAlreadyRevoked = errors.New("credential already revoked")
	// ErrUnknownApplication means no Benefit Ledger entry exists for the id.
	ErrUnknownApplication = errors.New("application not recorded")
	// ErrNodeUnavailable means the node rejected or dropped the call; the
	// caller may retry with backoff.
	ErrNodeUnavailable = errors.New("chain node unavailable")
)
