package registry

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"sync"
	"time"
)

// SimulatedNode is an in-process chain node backing mock mode and tests.
// All three registries live in lock-protected maps; transactions confirm
// immediately after an optional simulated latency. Behaviour mirrors the
// registry contracts: duplicate registrations are detected by commitment,
// revocation is terminal.
type SimulatedNode struct {
	mu       sync.Mutex
	latency  time.Duration
	txnCount uint64

	issuers      map[string]IssuerEntry
	credentials  map[Hash]CredentialEntry
	applications map[string]BenefitEntry
}

// SimulatedOption configures a SimulatedNode.
type SimulatedOption func(*SimulatedNode)

// WithLatency makes every call sleep for d to mimic network and block time.
func WithLatency(d time.Duration) SimulatedOption {
	return func(n *SimulatedNode) { n.latency = d }
}

// NewSimulatedNode constructs an empty simulated chain node.
func NewSimulatedNode(opts ...SimulatedOption) *SimulatedNode {
	n := &SimulatedNode{
		issuers:      make(map[string]IssuerEntry),
		credentials:  make(map[Hash]CredentialEntry),
		applications: make(map[string]BenefitEntry),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// wait simulates confirmation latency, honoring cancellation.
func (n *SimulatedNode) wait(ctx context.Context) error {
	if n.latency <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(n.latency)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// nextTxn mints a deterministic mock transaction receipt.
// Must be called with n.mu held.
func (n *SimulatedNode) nextTxn(tag string) Txn {
	n.txnCount++
	var seed [8]byte
	binary.BigEndian.PutUint64(seed[:], n.txnCount)
	sum := sha256.Sum256(append([]byte(tag), seed[:]...))
	return Txn{
		Hash:        Hash(sum),
		BlockNumber: 1000 + n.txnCount,
		ConfirmedAt: time.Now(),
	}
}

func (n *SimulatedNode) RegisterIssuer(ctx context.Context, entry IssuerEntry) (Txn, error) {
	if err := n.wait(ctx); err != nil {
		return Txn{}, err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	entry.RegisteredAt = time.Now()
	n.issuers[entry.DID] = entry
	return n.nextTxn("issuer:" + entry.DID), nil
}

func (n *SimulatedNode) IssuerInfo(ctx context.Context, did string) (IssuerEntry, error) {
	if err := n.wait(ctx); err != nil {
		return IssuerEntry{}, err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	entry, ok := n.issuers[did]
	if !ok {
		return IssuerEntry{}, ErrUnknownIssuer
	}
	return entry, nil
}

func (n *SimulatedNode) RegisterCredential(ctx context.Context, commitment Hash, issuerDID, contentRef string) (Txn, error) {
	if err := n.wait(ctx); err != nil {
		return Txn{}, err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if issuer, ok := n.issuers[issuerDID]; !ok || !issuer.Active {
		return Txn{}, ErrUnknownIssuer
	}
	if existing, ok := n.credentials[commitment]; ok {
		// Idempotent resubmission: surface the original receipt.
		return Txn{Hash: existing.TxnHash, ConfirmedAt: existing.RegisteredAt}, ErrAlreadyRegistered
	}
	txn := n.nextTxn("credential:" + commitment.Hex())
	n.credentials[commitment] = CredentialEntry{
		Commitment:   commitment,
		IssuerDID:    issuerDID,
		ContentRef:   contentRef,
		Registered:   true,
		RegisteredAt: txn.ConfirmedAt,
		TxnHash:      txn.Hash,
	}
	return txn, nil
}

func (n *SimulatedNode) RevokeCredential(ctx context.Context, commitment Hash, reason string) (Txn, error) {
	if err := n.wait(ctx); err != nil {
		return Txn{}, err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	entry, ok := n.credentials[commitment]
	if !ok {
		return Txn{}, ErrUnknownCommitment
	}
	if entry.Revoked {
		return Txn{}, ErrAlreadyRevoked
	}
	txn := n.nextTxn("revoke:" + commitment.Hex())
	entry.Revoked = true
	entry.RevokedAt = txn.ConfirmedAt
	entry.RevokeReason = reason
	n.credentials[commitment] = entry
	return txn, nil
}

func (n *SimulatedNode) CredentialStatus(ctx context.Context, commitment Hash) (CredentialEntry, error) {
	if err := n.wait(ctx); err != nil {
		return CredentialEntry{}, err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	entry, ok := n.credentials[commitment]
	if !ok {
		return CredentialEntry{}, ErrUnknownCommitment
	}
	return entry, nil
}

func (n *SimulatedNode) RecordApplication(ctx context.Context, entry BenefitEntry) (Txn, error) {
	if err := n.wait(ctx); err != nil {
		return Txn{}, err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if existing, ok := n.applications[entry.ApplicationID]; ok {
		return Txn{Hash: existing.TxnHash, ConfirmedAt: existing.RecordedAt}, ErrAlreadyRegistered
	}
	txn := n.nextTxn("benefit:" + entry.ApplicationID)
	entry.Status = BenefitRecorded
	entry.RecordedAt = txn.ConfirmedAt
	entry.TxnHash = txn.Hash
	n.applications[entry.ApplicationID] = entry
	return txn, nil
}

func (n *SimulatedNode) UpdateApplication(ctx context.Context, applicationID string, status BenefitStatus) (Txn, error) {
	if err := n.wait(ctx); err != nil {
		return Txn{}, err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	entry, ok := n.applications[applicationID]
	if !ok {
		return Txn{}, ErrUnknownApplication
	}
	txn := n.nextTxn("benefit-update:" + applicationID)
	entry.Status = status
	entry.TxnHash = txn.Hash
	n.applications[applicationID] = entry
	return txn, nil
}

func (n *SimulatedNode) Application(ctx context.Context, applicationID string) (BenefitEntry, error) {
	if err := n.wait(ctx); err != nil {
		return BenefitEntry{}, err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	entry, ok := n.applications[applicationID]
	if !ok {
		return BenefitEntry{}, ErrUnknownApplication
	}
	return entry, nil
}
