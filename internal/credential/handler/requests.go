package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"idverse/internal/credential/models"
	"idverse/internal/credential/service"
	"idverse/internal/transport/http/shared"
	"idverse/pkg/domain"
	dErrors "idverse/pkg/domain-errors"
)

type normalizer interface {
	Normalize()
	Validate() error
}

// decode parses, normalizes, and validates a request body, writing the
// error response itself when the body is unusable.
func decode[T any, PT interface {
	normalizer
	*T
}](w http.ResponseWriter, r *http.Request) (PT, bool) {
	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.DecodeError(w, r, err)
		return nil, false
	}
	p := PT(&req)
	p.Normalize()
	if err := p.Validate(); err != nil {
		shared.WriteError(w, r, err)
		return nil, false
	}
	return p, true
}

type IssueRequest struct {
	SubjectID string         `json:"subject_id"`
	Type      string         `json:"type"`
	Claims    map[string]any `json:"claims"`
	ExpiresAt *time.Time     `json:"expires_at,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
}

func (r *IssueRequest) Normalize() {
	r.SubjectID = strings.TrimSpace(r.SubjectID)
	r.Type = strings.TrimSpace(r.Type)
	r.RequestID = strings.TrimSpace(r.RequestID)
}

func (r *IssueRequest) Validate() error {
	if r.SubjectID == "" {
		return dErrors.New(dErrors.CodeValidation, "subject_id is required")
	}
	if r.Type == "" {
		return dErrors.New(dErrors.CodeValidation, "type is required")
	}
	if len(r.Claims) == 0 {
		return dErrors.New(dErrors.CodeValidation, "claims must not be empty")
	}
	return nil
}

func (r *IssueRequest) ToInput() service.IssueInput {
	return service.IssueInput{
		SubjectID: r.SubjectID,
		Type:      r.Type,
		Claims:    models.Claims(r.Claims),
		ExpiresAt: r.ExpiresAt,
		RequestID: r.RequestID,
	}
}

type RequestIssueRequest struct {
	SubjectID string         `json:"subject_id"`
	Type      string         `json:"type"`
	Claims    map[string]any `json:"claims"`
}

func (r *RequestIssueRequest) Normalize() {
	r.SubjectID = strings.TrimSpace(r.SubjectID)
	r.Type = strings.TrimSpace(r.Type)
}

func (r *RequestIssueRequest) Validate() error {
	if r.SubjectID == "" {
		return dErrors.New(dErrors.CodeValidation, "subject_id is required")
	}
	if r.Type == "" {
		return dErrors.New(dErrors.CodeValidation, "type is required")
	}
	if len(r.Claims) == 0 {
		return dErrors.New(dErrors.CodeValidation, "claims must not be empty")
	}
	return nil
}

// PresentRequest carries one presentation. Exactly one of vc, vc_id, or
// disclosure identifies the credential; the service enforces that, the
// handler only checks the nonce is present.
type PresentRequest struct {
	Nonce string `json:"nonce"`
	// Challenge is accepted as an alias for nonce.
	Challenge  string                    `json:"challenge,omitempty"`
	VC         *models.Credential        `json:"vc,omitempty"`
	VCID       string                    `json:"vc_id,omitempty"`
	Disclosure *models.DisclosurePackage `json:"disclosure,omitempty"`
	// Disclosed is accepted as an alias for disclosure.
	Disclosed *models.DisclosurePackage `json:"disclosed,omitempty"`
}

func (r *PresentRequest) Normalize() {
	r.Nonce = strings.TrimSpace(r.Nonce)
	r.Challenge = strings.TrimSpace(r.Challenge)
	r.VCID = strings.TrimSpace(r.VCID)
	if r.Nonce == "" {
		r.Nonce = r.Challenge
	}
	if r.Disclosure == nil {
		r.Disclosure = r.Disclosed
	}
}

func (r *PresentRequest) Validate() error {
	if r.Nonce == "" {
		return dErrors.New(dErrors.CodeValidation, "nonce is required")
	}
	if r.VCID != "" {
		if _, err := domain.ParseCredentialID(r.VCID); err != nil {
			return err
		}
	}
	return nil
}

func (r *PresentRequest) ToPresentation() service.Presentation {
	return service.Presentation{
		Nonce:        r.Nonce,
		Credential:   r.VC,
		CredentialID: r.VCID,
		Disclosure:   r.Disclosure,
	}
}

type RevokeRequest struct {
	CredentialID string `json:"vc_id"`
	Reason       string `json:"reason"`
}

func (r *RevokeRequest) Normalize() {
	r.CredentialID = strings.TrimSpace(r.CredentialID)
	r.Reason = strings.TrimSpace(r.Reason)
}

func (r *RevokeRequest) Validate() error {
	if _, err := domain.ParseCredentialID(r.CredentialID); err != nil {
		return err
	}
	if r.Reason == "" {
		return dErrors.New(dErrors.CodeValidation, "reason is required")
	}
	return nil
}
