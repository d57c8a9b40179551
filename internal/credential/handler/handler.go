// Package handler exposes the credential lifecycle over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"idverse/internal/chain"
	"idverse/internal/challenge"
	"idverse/internal/credential/models"
	"idverse/internal/credential/service"
	"idverse/internal/platform/middleware"
	"idverse/internal/transport/http/json"
	"idverse/internal/transport/http/shared"
	dErrors "idverse/pkg/domain-errors"
)

// Service defines the credential operations the handlers need. Returns
// domain objects, not HTTP response DTOs.
type Service interface {
	Issue(ctx context.Context, input service.IssueInput) (models.CredentialRecord, error)
	RequestIssue(ctx context.Context, subjectID, credType string, claims models.Claims) (models.IssuanceRequest, error)
	Verify(ctx context.Context, p service.Presentation) (models.VerificationResult, error)
	Revoke(ctx context.Context, credentialID, reason string) (chain.Receipt, error)
	Status(ctx context.Context, credentialID string) (models.StatusInfo, error)
	IssuerInfo() service.IssuerInfo
}

// Challenger issues presentation nonces.
type Challenger interface {
	Issue(ctx context.Context) (challenge.Challenge, error)
}

type Handler struct {
	service    Service
	challenger Challenger
	logger     *slog.Logger
}

func New(service Service, challenger Challenger, logger *slog.Logger) *Handler {
	return &Handler{service: service, challenger: challenger, logger: logger}
}

// Register mounts the credential routes. Issuance requires an
// authenticated caller; revocation requires the admin role. Presentation
// and status are public: verifiers and holders are not platform users.
func (h *Handler) Register(r chi.Router, auth, admin func(http.Handler) http.Handler) {
	r.Get("/vc/challenge", h.HandleChallenge)
	r.Post("/vc/present", h.HandlePresent)
	r.Get("/vc/status/{id}", h.HandleStatus)
	r.Get("/vc/issuer-info", h.HandleIssuerInfo)

	r.Group(func(r chi.Router) {
		r.Use(auth)
		r.Post("/vc/request-issue", h.HandleRequestIssue)
		r.Post("/vc/issue", h.HandleIssue)
	})

	r.Group(func(r chi.Router) {
		r.Use(auth, admin)
		r.Post("/vc/revoke", h.HandleRevoke)
	})
}

// HandleIssue signs and anchors a new credential.
func (h *Handler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := decode[IssueRequest](w, r)
	if !ok {
		return
	}

	record, err := h.service.Issue(ctx, req.ToInput())
	if err != nil {
		h.logger.ErrorContext(ctx, "issue credential failed", "error", err, "request_id", requestID)
		shared.WriteError(w, r, err)
		return
	}

	json.WriteJSON(w, http.StatusCreated, toCredentialResponse(record))
}

// HandleRequestIssue queues an issuance request.
func (h *Handler) HandleRequestIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := decode[RequestIssueRequest](w, r)
	if !ok {
		return
	}

	queued, err := h.service.RequestIssue(ctx, req.SubjectID, req.Type, req.Claims)
	if err != nil {
		h.logger.ErrorContext(ctx, "queue issuance request failed", "error", err, "request_id", requestID)
		shared.WriteError(w, r, err)
		return
	}

	json.WriteJSON(w, http.StatusAccepted, toRequestResponse(queued))
}

// HandleChallenge mints a single-use presentation nonce.
func (h *Handler) HandleChallenge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ch, err := h.challenger.Issue(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "issue challenge failed", "error", err, "request_id", middleware.GetRequestID(ctx))
		shared.WriteError(w, r, err)
		return
	}

	json.WriteJSON(w, http.StatusOK, ChallengeResponse{
		Nonce:     ch.Nonce,
		Challenge: ch.Nonce,
		ExpiresAt: ch.ExpiresAt,
	})
}

// HandlePresent verifies a presentation. A failed check is a 200 with
// verified=false; only malformed requests and infrastructure failures are
// error statuses.
func (h *Handler) HandlePresent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := decode[PresentRequest](w, r)
	if !ok {
		return
	}

	result, err := h.service.Verify(ctx, req.ToPresentation())
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeBadRequest) {
			h.logger.ErrorContext(ctx, "verify presentation failed", "error", err, "request_id", requestID)
		}
		shared.WriteError(w, r, err)
		return
	}

	json.WriteJSON(w, http.StatusOK, result)
}

// HandleRevoke permanently revokes a credential.
func (h *Handler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := decode[RevokeRequest](w, r)
	if !ok {
		return
	}

	receipt, err := h.service.Revoke(ctx, req.CredentialID, req.Reason)
	if err != nil {
		h.logger.ErrorContext(ctx, "revoke credential failed", "error", err, "request_id", requestID, "vc_id", req.CredentialID)
		shared.WriteError(w, r, err)
		return
	}

	json.WriteJSON(w, http.StatusOK, RevokeResponse{
		CredentialID: req.CredentialID,
		TxnHash:      receipt.TxnHash.Hex(),
		BlockNumber:  receipt.BlockNumber,
	})
}

// HandleStatus returns the live on-chain status of a credential.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	credentialID := chi.URLParam(r, "id")
	if credentialID == "" {
		shared.WriteError(w, r, dErrors.New(dErrors.CodeBadRequest, "credential id is required"))
		return
	}

	info, err := h.service.Status(ctx, credentialID)
	if err != nil {
		h.logger.ErrorContext(ctx, "credential status failed", "error", err, "request_id", middleware.GetRequestID(ctx), "vc_id", credentialID)
		shared.WriteError(w, r, err)
		return
	}

	json.WriteJSON(w, http.StatusOK, StatusResponse{
		CredentialID: credentialID,
		StatusInfo:   info,
	})
}

// HandleIssuerInfo returns the issuer DID and verification key.
func (h *Handler) HandleIssuerInfo(w http.ResponseWriter, r *http.Request) {
	json.WriteJSON(w, http.StatusOK, h.service.IssuerInfo())
}
