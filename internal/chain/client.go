// Package chain is the gateway between the credential services and the
// on-chain registries. It wraps a registry.Node with bounded retries for
// transient node failures, maps node errors onto domain error codes, and
// records call metrics and traces.
package chain

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"idverse/contracts/registry"
	"idverse/internal/chain/metrics"
	dErrors "idverse/pkg/domain-errors"
)

// Receipt is a confirmed registry write.
type Receipt struct {
	TxnHash     common.Hash `json:"txn_hash"`
	BlockNumber uint64      `json:"block_number"`
	ConfirmedAt time.Time   `json:"confirmed_at"`
}

// IssuerInfo is the trust record for an issuer DID.
type IssuerInfo struct {
	DID          string    `json:"did"`
	PublicKeyHex string    `json:"public_key_hex"`
	Active       bool      `json:"active"`
	RegisteredAt time.Time `json:"registered_at"`
}

// CredentialStatus is the registry-side state of one commitment.
type CredentialStatus struct {
	Commitment   common.Hash `json:"commitment"`
	IssuerDID    string      `json:"issuer_did"`
	ContentRef   string      `json:"content_ref"`
	Registered   bool        `json:"registered"`
	Revoked      bool        `json:"revoked"`
	RevokeReason string      `json:"revoke_reason,omitempty"`
	TxnHash      common.Hash `json:"txn_hash"`
}

// BenefitRecord mirrors a Benefit Ledger entry.
type BenefitRecord struct {
	ApplicationID string
	CredentialID  string
	Status        registry.BenefitStatus
	RecordedAt    time.Time
	TxnHash       common.Hash
}

// Client talks to the registries through a registry.Node. Transient node
// failures are retried with exponential backoff up to maxRetries; domain
// rejections are returned immediately.
type Client struct {
	node       registry.Node
	logger     *slog.Logger
	metrics    *metrics.Metrics
	tracer     trace.Tracer
	maxRetries uint64
	timeout    time.Duration
}

type Option func(*Client)

// WithMaxRetries overrides the retry budget for transient failures.
func WithMaxRetries(n uint64) Option {
	return func(c *Client) { c.maxRetries = n }
}

// WithConfirmTimeout bounds each call, retries included.
func WithConfirmTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

func NewClient(node registry.Node, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		node:       node,
		logger:     logger,
		metrics:    metrics.Noop(),
		tracer:     otel.Tracer("idverse/chain"),
		maxRetries: 3,
		timeout:    30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func toRegistryHash(h common.Hash) registry.Hash {
	return registry.Hash(h)
}

func toCommonHash(h registry.Hash) common.Hash {
	return common.Hash(h)
}

// call runs fn with bounded exponential backoff. Only ErrNodeUnavailable is
// retried; everything else aborts the loop and is mapped by the caller.
func (c *Client) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	ctx, span := c.tracer.Start(ctx, "chain."+op, trace.WithAttributes(
		attribute.String("chain.op", op),
	))
	start := time.Now()

	attempt := 0
	operation := func() error {
		attempt++
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, registry.ErrNodeUnavailable) {
			if attempt > 1 {
				c.metrics.IncrementRetries(op)
			}
			c.logger.WarnContext(ctx, "chain node unavailable, retrying",
				"op", op,
				"attempt", attempt,
				"error", err,
			)
			return err
		}
		return backoff.Permanent(err)
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(newExponentialBackOff(), c.maxRetries), ctx)
	err := backoff.Retry(operation, bo)

	outcome := "ok"
	if err != nil {
		outcome = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
	c.metrics.ObserveCall(op, outcome, time.Since(start))
	return err
}

func newExponentialBackOff() *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 100 * time.Millisecond
	bo.MaxInterval = 2 * time.Second
	return bo
}

// mapErr translates node errors into domain errors. Unmapped errors become
// CodeChainUnavailable so callers treat them as infrastructure failures,
// never as verification outcomes.
func mapErr(err error, msg string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, registry.ErrUnknownIssuer):
		return dErrors.Wrap(err, dErrors.CodeUntrustedIssuer, msg+": issuer not registered")
	case errors.Is(err, registry.ErrUnknownCommitment):
		return dErrors.Wrap(err, dErrors.CodeVCNotFound, msg+": commitment not registered")
	case errors.Is(err, registry.ErrAlreadyRevoked):
		return dErrors.Wrap(err, dErrors.CodeRevokedCredential, msg+": already revoked")
	case errors.Is(err, registry.ErrUnknownApplication):
		return dErrors.Wrap(err, dErrors.CodeNotFound, msg+": application not recorded")
	default:
		return dErrors.Wrap(err, dErrors.CodeChainUnavailable, msg)
	}
}

// RegisterIssuer writes an Issuer Registry entry.
func (c *Client) RegisterIssuer(ctx context.Context, info IssuerInfo) (Receipt, error) {
	var txn registry.Txn
	err := c.call(ctx, "register_issuer", func(ctx context.Context) error {
		var callErr error
		txn, callErr = c.node.RegisterIssuer(ctx, registry.IssuerEntry{
			DID:          info.DID,
			PublicKeyHex: info.PublicKeyHex,
			Active:       info.Active,
			RegisteredAt: info.RegisteredAt,
		})
		return callErr
	})
	if err != nil {
		return Receipt{}, mapErr(err, "register issuer")
	}
	return receiptOf(txn), nil
}

// Issuer reads the Issuer Registry entry for a DID.
func (c *Client) Issuer(ctx context.Context, did string) (IssuerInfo, error) {
	var entry registry.IssuerEntry
	err := c.call(ctx, "issuer_info", func(ctx context.Context) error {
		var callErr error
		entry, callErr = c.node.IssuerInfo(ctx, did)
		return callErr
	})
	if err != nil {
		return IssuerInfo{}, mapErr(err, "issuer info")
	}
	return IssuerInfo{
		DID:          entry.DID,
		PublicKeyHex: entry.PublicKeyHex,
		Active:       entry.Active,
		RegisteredAt: entry.RegisteredAt,
	}, nil
}

// RegisterCredential anchors a commitment in the Credential Registry.
// Duplicate commitments are reported with duplicate=true and the original
// receipt, so a retried registration is never double-applied.
func (c *Client) RegisterCredential(ctx context.Context, commitment common.Hash, issuerDID, contentRef string) (Receipt, bool, error) {
	var txn registry.Txn
	duplicate := false
	err := c.call(ctx, "register_credential", func(ctx context.Context) error {
		var callErr error
		txn, callErr = c.node.RegisterCredential(ctx, toRegistryHash(commitment), issuerDID, contentRef)
		if errors.Is(callErr, registry.ErrAlreadyRegistered) {
			duplicate = true
			return nil
		}
		return callErr
	})
	if err != nil {
		return Receipt{}, false, mapErr(err, "register credential")
	}
	if duplicate {
		c.logger.InfoContext(ctx, "duplicate credential registration",
			"commitment", commitment.Hex(),
			"txn", txn.Hash.Hex(),
		)
	}
	return receiptOf(txn), duplicate, nil
}

// RevokeCredential marks a commitment revoked. Revocation is terminal.
func (c *Client) RevokeCredential(ctx context.Context, commitment common.Hash, reason string) (Receipt, error) {
	var txn registry.Txn
	err := c.call(ctx, "revoke_credential", func(ctx context.Context) error {
		var callErr error
		txn, callErr = c.node.RevokeCredential(ctx, toRegistryHash(commitment), reason)
		return callErr
	})
	if err != nil {
		return Receipt{}, mapErr(err, "revoke credential")
	}
	return receiptOf(txn), nil
}

// Status reads the Credential Registry entry for a commitment.
func (c *Client) Status(ctx context.Context, commitment common.Hash) (CredentialStatus, error) {
	var entry registry.CredentialEntry
	err := c.call(ctx, "credential_status", func(ctx context.Context) error {
		var callErr error
		entry, callErr = c.node.CredentialStatus(ctx, toRegistryHash(commitment))
		return callErr
	})
	if err != nil {
		return CredentialStatus{}, mapErr(err, "credential status")
	}
	return CredentialStatus{
		Commitment:   toCommonHash(entry.Commitment),
		IssuerDID:    entry.IssuerDID,
		ContentRef:   entry.ContentRef,
		Registered:   entry.Registered,
		Revoked:      entry.Revoked,
		RevokeReason: entry.RevokeReason,
		TxnHash:      toCommonHash(entry.TxnHash),
	}, nil
}

// RecordApplication writes a Benefit Ledger entry for an application.
func (c *Client) RecordApplication(ctx context.Context, applicationID, credentialID string) (Receipt, error) {
	var txn registry.Txn
	err := c.call(ctx, "record_application", func(ctx context.Context) error {
		var callErr error
		txn, callErr = c.node.RecordApplication(ctx, registry.BenefitEntry{
			ApplicationID: applicationID,
			CredentialID:  credentialID,
			Status:        registry.BenefitRecorded,
			RecordedAt:    time.Now().UTC(),
		})
		return callErr
	})
	if err != nil {
		return Receipt{}, mapErr(err, "record application")
	}
	return receiptOf(txn), nil
}

// UpdateApplication moves a Benefit Ledger entry to a new status.
func (c *Client) UpdateApplication(ctx context.Context, applicationID string, status registry.BenefitStatus) (Receipt, error) {
	var txn registry.Txn
	err := c.call(ctx, "update_application", func(ctx context.Context) error {
		var callErr error
		txn, callErr = c.node.UpdateApplication(ctx, applicationID, status)
		return callErr
	})
	if err != nil {
		return Receipt{}, mapErr(err, "update application")
	}
	return receiptOf(txn), nil
}

// Application reads a Benefit Ledger entry.
func (c *Client) Application(ctx context.Context, applicationID string) (BenefitRecord, error) {
	var entry registry.BenefitEntry
	err := c.call(ctx, "application", func(ctx context.Context) error {
		var callErr error
		entry, callErr = c.node.Application(ctx, applicationID)
		return callErr
	})
	if err != nil {
		return BenefitRecord{}, mapErr(err, "application")
	}
	return BenefitRecord{
		ApplicationID: entry.ApplicationID,
		CredentialID:  entry.CredentialID,
		Status:        entry.Status,
		RecordedAt:    entry.RecordedAt,
		TxnHash:       toCommonHash(entry.TxnHash),
	}, nil
}

func receiptOf(txn registry.Txn) Receipt {
	return Receipt{
		TxnHash:     toCommonHash(txn.Hash),
		BlockNumber: txn.BlockNumber,
		ConfirmedAt: txn.ConfirmedAt,
	}
}
