package registry

import (
	"context"
	"testing"
	"time"
)

func registerTestIssuer(t *testing.T, n *SimulatedNode) {
	t.Helper()
	_, err := n.RegisterIssuer(context.Background(), IssuerEntry{
		DID:    "did:idverse:issuer",
		Active: true,
	})
	if err != nil {
		t.Fatalf("register issuer: %v", err)
	}
}

func TestRegisterCredential_RequiresActiveIssuer(t *testing.T) {
	n := NewSimulatedNode()
	var commitment Hash
	commitment[31] = 1

	if _, err := n.RegisterCredential(context.Background(), commitment, "did:idverse:issuer", "ref"); err != ErrUnknownIssuer {
		t.Fatalf("expected ErrUnknownIssuer, got %v", err)
	}

	registerTestIssuer(t, n)
	if _, err := n.RegisterCredential(context.Background(), commitment, "did:idverse:issuer", "ref"); err != nil {
		t.Fatalf("register: %v", err)
	}
}

func TestRegisterCredential_DuplicateKeepsOriginalReceipt(t *testing.T) {
	n := NewSimulatedNode()
	registerTestIssuer(t, n)
	var commitment Hash
	commitment[31] = 2

	first, err := n.RegisterCredential(context.Background(), commitment, "did:idverse:issuer", "ref")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	second, err := n.RegisterCredential(context.Background(), commitment, "did:idverse:issuer", "ref")
	if err != ErrAlreadyRegistered {
		t.Fatalf("expected ErrAlreadyRegistered, got %v", err)
	}
	if second.Hash != first.Hash {
		t.Fatalf("duplicate returned a different txn hash")
	}
}

func TestRevoke_Terminal(t *testing.T) {
	n := NewSimulatedNode()
	registerTestIssuer(t, n)
	var commitment Hash
	commitment[31] = 3

	if _, err := n.RegisterCredential(context.Background(), commitment, "did:idverse:issuer", "ref"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := n.RevokeCredential(context.Background(), commitment, "fraud"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := n.RevokeCredential(context.Background(), commitment, "fraud"); err != ErrAlreadyRevoked {
		t.Fatalf("expected ErrAlreadyRevoked, got %v", err)
	}

	entry, err := n.CredentialStatus(context.Background(), commitment)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !entry.Revoked || entry.RevokeReason != "fraud" {
		t.Fatalf("revocation not recorded: %+v", entry)
	}
}

func TestLatency_HonorsCancellation(t *testing.T) {
	n := NewSimulatedNode(WithLatency(time.Second))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := n.IssuerInfo(ctx, "did:idverse:issuer"); err != context.DeadlineExceeded {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
