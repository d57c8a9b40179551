// Package service implements the credential lifecycle: issuance against the
// Issuer Registry, challenge-bound verification, revocation, and live
// status. The service owns no chain or storage detail; it orchestrates the
// ports below.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"idverse/internal/audit"
	"idverse/internal/chain"
	"idverse/internal/credential/disclosure"
	"idverse/internal/credential/keys"
	"idverse/internal/credential/metrics"
	"idverse/internal/credential/models"
	"idverse/internal/credential/store"
	id "idverse/pkg/domain"
	dErrors "idverse/pkg/domain-errors"
	"idverse/pkg/platform/sentinel"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Chain,Documents,Challenges

// Chain is the registry gateway surface the service needs.
type Chain interface {
	RegisterIssuer(ctx context.Context, info chain.IssuerInfo) (chain.Receipt, error)
	Issuer(ctx context.Context, did string) (chain.IssuerInfo, error)
	RegisterCredential(ctx context.Context, commitment common.Hash, issuerDID, contentRef string) (chain.Receipt, bool, error)
	RevokeCredential(ctx context.Context, commitment common.Hash, reason string) (chain.Receipt, error)
	Status(ctx context.Context, commitment common.Hash) (chain.CredentialStatus, error)
}

// Documents is the content-addressed document store surface.
type Documents interface {
	Put(ctx context.Context, data []byte) (string, error)
	Get(ctx context.Context, ref string) ([]byte, error)
}

// Challenges consumes presentation nonces.
type Challenges interface {
	Consume(ctx context.Context, nonce string) error
}

// Auditor emits lifecycle events.
type Auditor interface {
	Emit(ctx context.Context, event audit.Event) error
}

type noopAuditor struct{}

func (noopAuditor) Emit(context.Context, audit.Event) error { return nil }

// Service orchestrates the credential lifecycle.
type Service struct {
	store      store.Store
	chain      Chain
	documents  Documents
	challenges Challenges
	signer     keys.Signer
	issuerDID  string

	auditor Auditor
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditor(a Auditor) Option {
	return func(s *Service) { s.auditor = a }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(st store.Store, ch Chain, docs Documents, challenges Challenges, signer keys.Signer, issuerDID string, opts ...Option) (*Service, error) {
	if st == nil {
		return nil, errors.New("credential store is required")
	}
	if ch == nil {
		return nil, errors.New("chain client is required")
	}
	if docs == nil {
		return nil, errors.New("document store is required")
	}
	if challenges == nil {
		return nil, errors.New("challenge consumer is required")
	}
	if signer == nil {
		return nil, errors.New("signer is required")
	}
	if _, err := id.ParseDID(issuerDID); err != nil {
		return nil, fmt.Errorf("issuer DID: %w", err)
	}

	s := &Service{
		store:      st,
		chain:      ch,
		documents:  docs,
		challenges: challenges,
		signer:     signer,
		issuerDID:  issuerDID,
		auditor:    noopAuditor{},
		logger:     slog.Default(),
		metrics:    metrics.Noop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// IssueInput are the caller-supplied issuance parameters.
type IssueInput struct {
	SubjectID string
	Type      string
	Claims    models.Claims
	ExpiresAt *time.Time
	// RequestID optionally resolves a queued issuance request.
	RequestID string
}

func validateClaims(claims models.Claims) error {
	if len(claims) == 0 {
		return dErrors.New(dErrors.CodeValidation, "claims must not be empty")
	}
	for key := range claims {
		if key == "" {
			return dErrors.New(dErrors.CodeValidation, "claim keys must not be empty")
		}
	}
	// Upstream claim payloads are loosely typed; reject anything that does
	// not survive canonical serialization before it reaches the signer.
	if _, err := json.Marshal(claims); err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "claims are not serializable")
	}
	return nil
}

// Issue builds a signed credential, stores the canonical claims document,
// anchors the commitment on-chain, and returns only after confirmation.
// Issuance is never deduplicated: identical inputs yield a new credential.
func (s *Service) Issue(ctx context.Context, input IssueInput) (models.CredentialRecord, error) {
	if input.SubjectID == "" {
		return models.CredentialRecord{}, dErrors.New(dErrors.CodeValidation, "subject_id is required")
	}
	if input.Type == "" {
		return models.CredentialRecord{}, dErrors.New(dErrors.CodeValidation, "type is required")
	}
	if err := validateClaims(input.Claims); err != nil {
		return models.CredentialRecord{}, err
	}

	issuer, err := s.chain.Issuer(ctx, s.issuerDID)
	if err != nil {
		return models.CredentialRecord{}, err
	}
	if !issuer.Active {
		return models.CredentialRecord{}, dErrors.New(dErrors.CodeUntrustedIssuer, "issuer is not active")
	}

	commitments, salts, err := disclosure.CommitAll(input.Claims)
	if err != nil {
		return models.CredentialRecord{}, dErrors.Wrap(err, dErrors.CodeInternal, "commit claims")
	}

	document, err := models.ClaimsDocument(input.SubjectID, input.Type, input.Claims, commitments)
	if err != nil {
		return models.CredentialRecord{}, dErrors.Wrap(err, dErrors.CodeInternal, "build claims document")
	}
	contentRef, err := s.documents.Put(ctx, document)
	if err != nil {
		return models.CredentialRecord{}, dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "store claims document")
	}

	now := s.now().UTC()
	cred := models.Credential{
		ID:         id.NewCredentialID(input.Type).String(),
		IssuerDID:  s.issuerDID,
		SubjectID:  input.SubjectID,
		Type:       input.Type,
		Claims:     input.Claims,
		IssuedAt:   now,
		ExpiresAt:  input.ExpiresAt,
		ContentRef: contentRef,
		Proof: models.Proof{
			Type:               s.signer.ProofType(),
			Created:            now,
			VerificationMethod: s.issuerDID + "#key-1",
			Commitments:        commitments,
		},
		Salts: salts,
	}

	signingBytes, err := cred.SigningBytes()
	if err != nil {
		return models.CredentialRecord{}, dErrors.Wrap(err, dErrors.CodeInternal, "serialize credential")
	}
	signature, err := s.signer.Sign(signingBytes)
	if err != nil {
		return models.CredentialRecord{}, dErrors.Wrap(err, dErrors.CodeInternal, "sign credential")
	}
	cred.Proof.SignatureHex = signature

	commitment := models.ChainCommitment(signingBytes, signature)
	receipt, duplicate, err := s.chain.RegisterCredential(ctx, commitment, s.issuerDID, contentRef)
	if err != nil {
		return models.CredentialRecord{}, err
	}
	if duplicate {
		// A fresh credential id and salts make a repeat commitment
		// practically impossible; if it happens the registry entry
		// already anchors these exact bytes, so proceed with it.
		s.logger.WarnContext(ctx, "credential commitment already registered",
			"vc_id", cred.ID,
			"commitment", commitment.Hex(),
		)
	}
	cred.ChainRef = models.ChainRef{
		Commitment:  commitment,
		TxnHash:     receipt.TxnHash,
		BlockNumber: receipt.BlockNumber,
	}

	record := models.CredentialRecord{Credential: cred, CreatedAt: now}
	if err := s.store.Save(ctx, record); err != nil {
		return models.CredentialRecord{}, dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "save credential")
	}

	if input.RequestID != "" {
		if err := s.resolveRequest(ctx, input.RequestID, cred.ID, now); err != nil {
			s.logger.WarnContext(ctx, "failed to resolve issuance request",
				"request_id", input.RequestID,
				"vc_id", cred.ID,
				"error", err,
			)
		}
	}

	s.metrics.Issued.Inc()
	_ = s.auditor.Emit(ctx, audit.Event{
		Action:       audit.EventCredentialIssued,
		SubjectID:    cred.SubjectID,
		CredentialID: cred.ID,
		Detail: map[string]string{
			"type":    cred.Type,
			"txn":     receipt.TxnHash.Hex(),
			"content": contentRef,
		},
	})
	s.logger.InfoContext(ctx, "credential issued",
		"vc_id", cred.ID,
		"subject_id", cred.SubjectID,
		"type", cred.Type,
		"txn", receipt.TxnHash.Hex(),
	)
	return record, nil
}

func (s *Service) resolveRequest(ctx context.Context, requestID, credentialID string, now time.Time) error {
	req, err := s.store.FindRequestByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "issuance request not found")
		}
		return err
	}
	if req.Status != models.RequestPending {
		return dErrors.New(dErrors.CodeConflict, fmt.Sprintf("issuance request is %s", req.Status))
	}
	req.Status = models.RequestIssued
	req.CredentialID = credentialID
	req.ResolvedAt = &now
	return s.store.SaveRequest(ctx, req)
}

// RequestIssue queues an issuance request for later fulfillment.
func (s *Service) RequestIssue(ctx context.Context, subjectID, credType string, claims models.Claims) (models.IssuanceRequest, error) {
	if subjectID == "" {
		return models.IssuanceRequest{}, dErrors.New(dErrors.CodeValidation, "subject_id is required")
	}
	if credType == "" {
		return models.IssuanceRequest{}, dErrors.New(dErrors.CodeValidation, "type is required")
	}
	if err := validateClaims(claims); err != nil {
		return models.IssuanceRequest{}, err
	}

	req := models.IssuanceRequest{
		ID:        id.NewRequestID(credType).String(),
		SubjectID: subjectID,
		Type:      credType,
		Claims:    claims,
		Status:    models.RequestPending,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.SaveRequest(ctx, req); err != nil {
		return models.IssuanceRequest{}, dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "save issuance request")
	}

	_ = s.auditor.Emit(ctx, audit.Event{
		Action:    audit.EventRequestQueued,
		SubjectID: subjectID,
		Detail:    map[string]string{"request_id": req.ID, "type": credType},
	})
	return req, nil
}

// Revoke marks the credential revoked on-chain. Terminal: revoking twice
// fails with RevokedCredential.
func (s *Service) Revoke(ctx context.Context, credentialID, reason string) (chain.Receipt, error) {
	record, err := s.findRecord(ctx, credentialID)
	if err != nil {
		return chain.Receipt{}, err
	}

	receipt, err := s.chain.RevokeCredential(ctx, record.ChainRef.Commitment, reason)
	if err != nil {
		return chain.Receipt{}, err
	}

	s.metrics.Revoked.Inc()
	_ = s.auditor.Emit(ctx, audit.Event{
		Action:       audit.EventCredentialRevoked,
		SubjectID:    record.SubjectID,
		CredentialID: record.ID,
		Detail:       map[string]string{"reason": reason, "txn": receipt.TxnHash.Hex()},
	})
	s.logger.InfoContext(ctx, "credential revoked",
		"vc_id", record.ID,
		"reason", reason,
		"txn", receipt.TxnHash.Hex(),
	)
	return receipt, nil
}

// Status returns the live registry view of a credential. Queried on-chain
// every call; never cached.
func (s *Service) Status(ctx context.Context, credentialID string) (models.StatusInfo, error) {
	record, err := s.findRecord(ctx, credentialID)
	if err != nil {
		return models.StatusInfo{}, err
	}
	return s.statusInfo(ctx, record.Credential, record.ChainRef.Commitment)
}

func (s *Service) statusInfo(ctx context.Context, cred models.Credential, commitment common.Hash) (models.StatusInfo, error) {
	status, err := s.chain.Status(ctx, commitment)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeVCNotFound) {
			return models.StatusInfo{Registered: false, ExpiresAt: cred.ExpiresAt}, nil
		}
		return models.StatusInfo{}, err
	}
	return models.StatusInfo{
		Registered:   status.Registered,
		Revoked:      status.Revoked,
		RevokeReason: status.RevokeReason,
		Expired:      cred.Expired(s.now().UTC()),
		ExpiresAt:    cred.ExpiresAt,
	}, nil
}

func (s *Service) findRecord(ctx context.Context, credentialID string) (models.CredentialRecord, error) {
	record, err := s.store.FindByID(ctx, credentialID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.CredentialRecord{}, dErrors.New(dErrors.CodeVCNotFound,
				fmt.Sprintf("credential %s not found", credentialID))
		}
		return models.CredentialRecord{}, dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "find credential")
	}
	return record, nil
}

// IssuerInfo describes the configured issuer identity.
type IssuerInfo struct {
	IssuerDID    string `json:"issuer_did"`
	PublicKeyHex string `json:"public_key_hex"`
	SignMode     string `json:"sign_mode"`
}

func (s *Service) IssuerInfo() IssuerInfo {
	return IssuerInfo{
		IssuerDID:    s.issuerDID,
		PublicKeyHex: s.signer.PublicKeyHex(),
		SignMode:     s.signer.Mode(),
	}
}

// EnsureIssuerRegistered writes this service's issuer entry to the Issuer
// Registry. Called at startup so mock-mode deployments are self-contained.
func (s *Service) EnsureIssuerRegistered(ctx context.Context) error {
	_, err := s.chain.Issuer(ctx, s.issuerDID)
	if err == nil {
		return nil
	}
	if !dErrors.HasCode(err, dErrors.CodeUntrustedIssuer) {
		return err
	}
	_, err = s.chain.RegisterIssuer(ctx, chain.IssuerInfo{
		DID:          s.issuerDID,
		PublicKeyHex: s.signer.PublicKeyHex(),
		Active:       true,
		RegisteredAt: s.now().UTC(),
	})
	return err
}
