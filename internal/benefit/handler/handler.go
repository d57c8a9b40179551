// Package handler exposes the benefit application workflow over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"idverse/internal/benefit/models"
	"idverse/internal/platform/middleware"
	jsonutil "idverse/internal/transport/http/json"
	"idverse/internal/transport/http/shared"
	dErrors "idverse/pkg/domain-errors"
)

// Service defines the benefit operations the handlers need.
type Service interface {
	Apply(ctx context.Context, subjectID, scheme, credentialID string) (models.Application, error)
	Decide(ctx context.Context, applicationID string, approve bool, note string) (models.Application, error)
	Applications(ctx context.Context, subjectID string) ([]models.Application, error)
	Application(ctx context.Context, applicationID string) (models.Application, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the benefit routes. Applying and listing require an
// authenticated caller; decisions require the admin role.
func (h *Handler) Register(r chi.Router, auth, admin func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(auth)
		r.Post("/benefits/apply", h.HandleApply)
		r.Get("/benefits/applications", h.HandleList)
		r.Get("/benefits/applications/{id}", h.HandleGet)
	})

	r.Group(func(r chi.Router) {
		r.Use(auth, admin)
		r.Post("/benefits/admin/decide", h.HandleDecide)
	})
}

type ApplyRequest struct {
	SubjectID    string `json:"subject_id"`
	Scheme       string `json:"scheme"`
	CredentialID string `json:"vc_id"`
}

type DecideRequest struct {
	ApplicationID string `json:"application_id"`
	Approve       bool   `json:"approve"`
	Note          string `json:"note"`
}

// HandleApply records a benefit application backed by a credential.
func (h *Handler) HandleApply(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	var req ApplyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.DecodeError(w, r, err)
		return
	}
	req.SubjectID = strings.TrimSpace(req.SubjectID)
	if req.SubjectID == "" {
		req.SubjectID = middleware.GetUserID(ctx)
	}

	app, err := h.service.Apply(ctx, req.SubjectID, strings.TrimSpace(req.Scheme), strings.TrimSpace(req.CredentialID))
	if err != nil {
		h.logger.ErrorContext(ctx, "record benefit application failed", "error", err, "request_id", requestID)
		shared.WriteError(w, r, err)
		return
	}

	jsonutil.WriteJSON(w, http.StatusCreated, app)
}

// HandleList returns the caller's applications. An admin may list another
// subject's applications via the subject_id query parameter.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	subjectID := r.URL.Query().Get("subject_id")
	if subjectID == "" {
		subjectID = middleware.GetUserID(ctx)
	} else if subjectID != middleware.GetUserID(ctx) && middleware.GetRole(ctx) != "admin" {
		shared.WriteError(w, r, dErrors.New(dErrors.CodeForbidden, "cannot list another subject's applications"))
		return
	}

	apps, err := h.service.Applications(ctx, subjectID)
	if err != nil {
		h.logger.ErrorContext(ctx, "list benefit applications failed", "error", err, "request_id", middleware.GetRequestID(ctx))
		shared.WriteError(w, r, err)
		return
	}
	if apps == nil {
		apps = []models.Application{}
	}

	jsonutil.WriteJSON(w, http.StatusOK, apps)
}

// HandleGet returns one application.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	app, err := h.service.Application(ctx, chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	if app.SubjectID != middleware.GetUserID(ctx) && middleware.GetRole(ctx) != "admin" {
		shared.WriteError(w, r, dErrors.New(dErrors.CodeForbidden, "cannot view another subject's application"))
		return
	}

	jsonutil.WriteJSON(w, http.StatusOK, app)
}

// HandleDecide approves or rejects a recorded application.
func (h *Handler) HandleDecide(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	var req DecideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.DecodeError(w, r, err)
		return
	}
	req.ApplicationID = strings.TrimSpace(req.ApplicationID)
	if req.ApplicationID == "" {
		shared.WriteError(w, r, dErrors.New(dErrors.CodeValidation, "application_id is required"))
		return
	}

	app, err := h.service.Decide(ctx, req.ApplicationID, req.Approve, strings.TrimSpace(req.Note))
	if err != nil {
		h.logger.ErrorContext(ctx, "decide benefit application failed",
			"error", err,
			"request_id", requestID,
			"application_id", req.ApplicationID,
		)
		shared.WriteError(w, r, err)
		return
	}

	jsonutil.WriteJSON(w, http.StatusOK, app)
}
