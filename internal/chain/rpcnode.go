package chain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/rpc"

	"idverse/contracts/registry"
)

// Error codes returned by the registry sidecar over JSON-RPC.
const (
	rpcCodeUnknownIssuer      = 1001
	rpcCodeUnknownCommitment  = 1002
	rpcCodeAlreadyRegistered  = 1003
	rpcCodeAlreadyRevoked     = 1004
	rpcCodeUnknownApplication = 1005
)

// RPCNode implements registry.Node against the registry sidecar's "idreg"
// JSON-RPC namespace. The sidecar submits the contract transactions and
// replies once they are mined, so every write here is already confirmed.
type RPCNode struct {
	client *rpc.Client
}

// DialNode connects to the registry sidecar RPC endpoint.
func DialNode(ctx context.Context, url string) (*RPCNode, error) {
	client, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dial chain node: %w", err)
	}
	return &RPCNode{client: client}, nil
}

func (n *RPCNode) Close() {
	n.client.Close()
}

type txnDTO struct {
	Hash        string    `json:"hash"`
	BlockNumber uint64    `json:"block_number"`
	ConfirmedAt time.Time `json:"confirmed_at"`
}

func (d txnDTO) toTxn() registry.Txn {
	return registry.Txn{
		Hash:        registry.HexToHash(d.Hash),
		BlockNumber: d.BlockNumber,
		ConfirmedAt: d.ConfirmedAt,
	}
}

type issuerDTO struct {
	DID          string    `json:"did"`
	PublicKeyHex string    `json:"public_key_hex"`
	Active       bool      `json:"active"`
	RegisteredAt time.Time `json:"registered_at"`
}

type credentialDTO struct {
	Commitment   string    `json:"commitment"`
	IssuerDID    string    `json:"issuer_did"`
	ContentRef   string    `json:"content_ref"`
	Registered   bool      `json:"registered"`
	Revoked      bool      `json:"revoked"`
	RegisteredAt time.Time `json:"registered_at"`
	RevokedAt    time.Time `json:"revoked_at"`
	RevokeReason string    `json:"revoke_reason"`
	TxnHash      string    `json:"txn_hash"`
}

type benefitDTO struct {
	ApplicationID string    `json:"application_id"`
	CredentialID  string    `json:"credential_id"`
	Status        string    `json:"status"`
	RecordedAt    time.Time `json:"recorded_at"`
	TxnHash       string    `json:"txn_hash"`
}

// mapRPCErr translates sidecar error codes to registry sentinel errors.
// Transport failures have no rpc.Error and become ErrNodeUnavailable.
func mapRPCErr(err error) error {
	if err == nil {
		return nil
	}
	var rpcErr rpc.Error
	if !errors.As(err, &rpcErr) {
		return fmt.Errorf("%w: %w", registry.ErrNodeUnavailable, err)
	}
	switch rpcErr.ErrorCode() {
	case rpcCodeUnknownIssuer:
		return registry.ErrUnknownIssuer
	case rpcCodeUnknownCommitment:
		return registry.ErrUnknownCommitment
	case rpcCodeAlreadyRegistered:
		return registry.ErrAlreadyRegistered
	case rpcCodeAlreadyRevoked:
		return registry.ErrAlreadyRevoked
	case rpcCodeUnknownApplication:
		return registry.ErrUnknownApplication
	default:
		return fmt.Errorf("%w: %w", registry.ErrNodeUnavailable, err)
	}
}

func (n *RPCNode) RegisterIssuer(ctx context.Context, entry registry.IssuerEntry) (registry.Txn, error) {
	var result txnDTO
	err := n.client.CallContext(ctx, &result, "idreg_registerIssuer", issuerDTO{
		DID:          entry.DID,
		PublicKeyHex: entry.PublicKeyHex,
		Active:       entry.Active,
		RegisteredAt: entry.RegisteredAt,
	})
	if err != nil {
		return registry.Txn{}, mapRPCErr(err)
	}
	return result.toTxn(), nil
}

func (n *RPCNode) IssuerInfo(ctx context.Context, did string) (registry.IssuerEntry, error) {
	var result issuerDTO
	if err := n.client.CallContext(ctx, &result, "idreg_issuerInfo", did); err != nil {
		return registry.IssuerEntry{}, mapRPCErr(err)
	}
	return registry.IssuerEntry{
		DID:          result.DID,
		PublicKeyHex: result.PublicKeyHex,
		Active:       result.Active,
		RegisteredAt: result.RegisteredAt,
	}, nil
}

func (n *RPCNode) RegisterCredential(ctx context.Context, commitment registry.Hash, issuerDID, contentRef string) (registry.Txn, error) {
	var result txnDTO
	err := n.client.CallContext(ctx, &result, "idreg_registerCredential", commitment.Hex(), issuerDID, contentRef)
	if err != nil {
		mapped := mapRPCErr(err)
		if errors.Is(mapped, registry.ErrAlreadyRegistered) {
			// The sidecar attaches the original receipt to duplicate errors.
			var dup txnDTO
			if lookupErr := n.client.CallContext(ctx, &dup, "idreg_credentialTxn", commitment.Hex()); lookupErr == nil {
				return dup.toTxn(), registry.ErrAlreadyRegistered
			}
		}
		return registry.Txn{}, mapped
	}
	return result.toTxn(), nil
}

func (n *RPCNode) RevokeCredential(ctx context.Context, commitment registry.Hash, reason string) (registry.Txn, error) {
	var result txnDTO
	err := n.client.CallContext(ctx, &result, "idreg_revokeCredential", commitment.Hex(), reason)
	if err != nil {
		return registry.Txn{}, mapRPCErr(err)
	}
	return result.toTxn(), nil
}

func (n *RPCNode) CredentialStatus(ctx context.Context, commitment registry.Hash) (registry.CredentialEntry, error) {
	var result credentialDTO
	if err := n.client.CallContext(ctx, &result, "idreg_credentialStatus", commitment.Hex()); err != nil {
		return registry.CredentialEntry{}, mapRPCErr(err)
	}
	return registry.CredentialEntry{
		Commitment:   registry.HexToHash(result.Commitment),
		IssuerDID:    result.IssuerDID,
		ContentRef:   result.ContentRef,
		Registered:   result.Registered,
		Revoked:      result.Revoked,
		RegisteredAt: result.RegisteredAt,
		RevokedAt:    result.RevokedAt,
		RevokeReason: result.RevokeReason,
		TxnHash:      registry.HexToHash(result.TxnHash),
	}, nil
}

func (n *RPCNode) RecordApplication(ctx context.Context, entry registry.BenefitEntry) (registry.Txn, error) {
	var result txnDTO
	err := n.client.CallContext(ctx, &result, "idreg_recordApplication", benefitDTO{
		ApplicationID: entry.ApplicationID,
		CredentialID:  entry.CredentialID,
		Status:        string(entry.Status),
		RecordedAt:    entry.RecordedAt,
	})
	if err != nil {
		return registry.Txn{}, mapRPCErr(err)
	}
	return result.toTxn(), nil
}

func (n *RPCNode) UpdateApplication(ctx context.Context, applicationID string, status registry.BenefitStatus) (registry.Txn, error) {
	var result txnDTO
	err := n.client.CallContext(ctx, &result, "idreg_updateApplication", applicationID, string(status))
	if err != nil {
		return registry.Txn{}, mapRPCErr(err)
	}
	return result.toTxn(), nil
}

func (n *RPCNode) Application(ctx context.Context, applicationID string) (registry.BenefitEntry, error) {
	var result benefitDTO
	if err := n.client.CallContext(ctx, &result, "idreg_application", applicationID); err != nil {
		return registry.BenefitEntry{}, mapRPCErr(err)
	}
	return registry.BenefitEntry{
		ApplicationID: result.ApplicationID,
		CredentialID:  result.CredentialID,
		Status:        registry.BenefitStatus(result.Status),
		RecordedAt:    result.RecordedAt,
		TxnHash:       registry.HexToHash(result.TxnHash),
	}, nil
}

var _ registry.Node = (*RPCNode)(nil)
