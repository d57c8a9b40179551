package service

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"idverse/internal/audit"
	"idverse/internal/credential/disclosure"
	"idverse/internal/credential/keys"
	"idverse/internal/credential/models"
	dErrors "idverse/pkg/domain-errors"
)

// Presentation is one verification attempt. Exactly one of Credential or a
// credential reference (CredentialID, or Disclosure which carries its own
// reference) must be set.
type Presentation struct {
	Nonce        string
	Credential   *models.Credential
	CredentialID string
	Disclosure   *models.DisclosurePackage
}

func (p *Presentation) normalize() error {
	if p.Disclosure != nil {
		if p.CredentialID == "" {
			p.CredentialID = p.Disclosure.CredentialID
		}
		if p.CredentialID != p.Disclosure.CredentialID {
			return dErrors.New(dErrors.CodeBadRequest, "vc_id does not match disclosure package")
		}
		if p.Disclosure.Nonce != "" && p.Disclosure.Nonce != p.Nonce {
			return dErrors.New(dErrors.CodeBadRequest, "disclosure package is bound to a different nonce")
		}
	}
	if p.Nonce == "" {
		return dErrors.New(dErrors.CodeBadRequest, "nonce is required")
	}
	full := p.Credential != nil
	ref := p.CredentialID != ""
	if full == ref {
		return dErrors.New(dErrors.CodeBadRequest, "exactly one of vc or vc_id must be supplied")
	}
	return nil
}

// Verify runs the four checks and reports each independently: challenge,
// signature, on-chain status, disclosure subset. Failed checks are data in
// the result; only infrastructure failures return an error. The nonce is
// consumed first and is spent even when later checks fail.
func (s *Service) Verify(ctx context.Context, p Presentation) (models.VerificationResult, error) {
	if err := p.normalize(); err != nil {
		return models.VerificationResult{}, err
	}

	start := s.now()
	result := models.VerificationResult{}

	// Challenge first: a failed attempt must still burn the nonce.
	switch err := s.challenges.Consume(ctx, p.Nonce); {
	case err == nil:
		result.Checks.Challenge = true
	case dErrors.HasCode(err, dErrors.CodeUnknownChallenge),
		dErrors.HasCode(err, dErrors.CodeExpiredChallenge),
		dErrors.HasCode(err, dErrors.CodeReplayedChallenge):
		result.Checks.Challenge = false
	default:
		return models.VerificationResult{}, err
	}

	// Resolve the credential under verification. For a full presentation
	// the caller's bytes are authoritative; for a reference we verify what
	// was originally signed and stored.
	var cred models.Credential
	if p.Credential != nil {
		cred = *p.Credential
	} else {
		record, err := s.findRecord(ctx, p.CredentialID)
		if err != nil {
			return models.VerificationResult{}, err
		}
		cred = record.Credential
	}

	signingBytes, err := cred.SigningBytes()
	if err != nil {
		return models.VerificationResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "serialize credential")
	}
	commitment := cred.ChainRef.Commitment
	if p.Credential != nil {
		// Recompute rather than trust the caller's chain_ref.
		commitment = models.ChainCommitment(signingBytes, cred.Proof.SignatureHex)
	}

	// Signature and status hit independent backends; run them concurrently.
	g, gctx := errgroup.WithContext(ctx)
	var statusInfo models.StatusInfo

	g.Go(func() error {
		ok, err := s.checkSignature(gctx, cred, signingBytes, p.Disclosure)
		if err != nil {
			return err
		}
		result.Checks.Signature = ok
		return nil
	})

	g.Go(func() error {
		info, err := s.statusInfo(gctx, cred, commitment)
		if err != nil {
			return err
		}
		statusInfo = info
		result.Checks.Status = info.Registered && !info.Revoked && !info.Expired
		return nil
	})

	if err := g.Wait(); err != nil {
		return models.VerificationResult{}, err
	}
	result.StatusInfo = &statusInfo

	// Disclosure-subset check, vacuously true for non-disclosure
	// presentations.
	if p.Disclosure != nil {
		result.Checks.DisclosureSubset = disclosure.CheckSubset(cred.Proof.Commitments, *p.Disclosure)
	} else {
		result.Checks.DisclosureSubset = true
	}

	result.Verified = result.Checks.Challenge &&
		result.Checks.Signature &&
		result.Checks.Status &&
		result.Checks.DisclosureSubset

	s.observeVerification(ctx, cred, result, time.Since(start))
	return result, nil
}

// checkSignature verifies the issuer's proof. For a disclosure presentation
// the proof still covers the stored commitment list, so the same detached
// signature check applies; the package's commitments must additionally be
// the signed ones, otherwise a tampered list could smuggle foreign claims
// past the subset check.
func (s *Service) checkSignature(ctx context.Context, cred models.Credential, signingBytes []byte, pkg *models.DisclosurePackage) (bool, error) {
	issuer, err := s.chain.Issuer(ctx, cred.IssuerDID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeUntrustedIssuer) {
			return false, nil
		}
		return false, err
	}
	if !issuer.Active {
		return false, nil
	}
	if !keys.Verify(cred.Proof.Type, issuer.PublicKeyHex, signingBytes, cred.Proof.SignatureHex) {
		return false, nil
	}
	if pkg != nil && !equalStrings(pkg.Commitments, cred.Proof.Commitments) {
		return false, nil
	}
	return true, nil
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (s *Service) observeVerification(ctx context.Context, cred models.Credential, result models.VerificationResult, elapsed time.Duration) {
	var failed []string
	if !result.Checks.Challenge {
		failed = append(failed, "challenge")
	}
	if !result.Checks.Signature {
		failed = append(failed, "signature")
	}
	if !result.Checks.Status {
		failed = append(failed, "status")
	}
	if !result.Checks.DisclosureSubset {
		failed = append(failed, "disclosure_subset")
	}
	s.metrics.ObserveVerification(result.Verified, failed)
	s.metrics.VerifyDuration.Observe(elapsed.Seconds())

	_ = s.auditor.Emit(ctx, audit.Event{
		Action:       audit.EventCredentialPresented,
		SubjectID:    cred.SubjectID,
		CredentialID: cred.ID,
		Detail: map[string]string{
			"verified": boolString(result.Verified),
		},
	})
	s.logger.InfoContext(ctx, "credential presented",
		"vc_id", cred.ID,
		"verified", result.Verified,
		"checks_failed", failed,
	)
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
