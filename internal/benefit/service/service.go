// Package service implements the benefit application workflow: a citizen
// applies for a scheme with a credential as evidence, the application is
// anchored on the Benefit Ledger, and an administrator decides it. The
// supporting credential must be valid at decision time; a later revocation
// does not reopen an approved application.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"idverse/contracts/registry"
	"idverse/internal/audit"
	"idverse/internal/benefit/models"
	"idverse/internal/benefit/store"
	"idverse/internal/chain"
	credmodels "idverse/internal/credential/models"
	id "idverse/pkg/domain"
	dErrors "idverse/pkg/domain-errors"
	"idverse/pkg/platform/sentinel"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Ledger,Credentials

// Ledger is the Benefit Ledger gateway surface.
type Ledger interface {
	RecordApplication(ctx context.Context, applicationID, credentialID string) (chain.Receipt, error)
	UpdateApplication(ctx context.Context, applicationID string, status registry.BenefitStatus) (chain.Receipt, error)
}

// Credentials checks the supporting credential at decision time.
type Credentials interface {
	Status(ctx context.Context, credentialID string) (credmodels.StatusInfo, error)
}

// Auditor emits workflow events.
type Auditor interface {
	Emit(ctx context.Context, event audit.Event) error
}

type noopAuditor struct{}

func (noopAuditor) Emit(context.Context, audit.Event) error { return nil }

type Service struct {
	store       store.Store
	ledger      Ledger
	credentials Credentials

	auditor Auditor
	logger  *slog.Logger
	now     func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditor(a Auditor) Option {
	return func(s *Service) { s.auditor = a }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(st store.Store, ledger Ledger, credentials Credentials, opts ...Option) (*Service, error) {
	if st == nil {
		return nil, errors.New("benefit store is required")
	}
	if ledger == nil {
		return nil, errors.New("benefit ledger is required")
	}
	if credentials == nil {
		return nil, errors.New("credential status source is required")
	}

	s := &Service{
		store:       st,
		ledger:      ledger,
		credentials: credentials,
		auditor:     noopAuditor{},
		logger:      slog.Default(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Apply records a benefit application referencing a credential. The
// credential must exist and be currently valid; the validity check here is
// advisory, the binding check happens at decision time.
func (s *Service) Apply(ctx context.Context, subjectID, scheme, credentialID string) (models.Application, error) {
	if subjectID == "" {
		return models.Application{}, dErrors.New(dErrors.CodeValidation, "subject_id is required")
	}
	if scheme == "" {
		return models.Application{}, dErrors.New(dErrors.CodeValidation, "scheme is required")
	}
	if credentialID == "" {
		return models.Application{}, dErrors.New(dErrors.CodeValidation, "vc_id is required")
	}

	status, err := s.credentials.Status(ctx, credentialID)
	if err != nil {
		return models.Application{}, err
	}
	if !status.Registered {
		return models.Application{}, dErrors.New(dErrors.CodeVCNotFound, "supporting credential is not registered")
	}
	if status.Revoked {
		return models.Application{}, dErrors.New(dErrors.CodeRevokedCredential, "supporting credential is revoked")
	}
	if status.Expired {
		return models.Application{}, dErrors.New(dErrors.CodeExpiredCredential, "supporting credential is expired")
	}

	now := s.now().UTC()
	app := models.Application{
		ID:           id.NewApplicationID().String(),
		SubjectID:    subjectID,
		Scheme:       scheme,
		CredentialID: credentialID,
		Status:       models.ApplicationRecorded,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	receipt, err := s.ledger.RecordApplication(ctx, app.ID, credentialID)
	if err != nil {
		return models.Application{}, err
	}
	app.TxnHash = receipt.TxnHash

	if err := s.store.Save(ctx, app); err != nil {
		return models.Application{}, dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "save benefit application")
	}

	_ = s.auditor.Emit(ctx, audit.Event{
		Action:        audit.EventBenefitRecorded,
		SubjectID:     subjectID,
		CredentialID:  credentialID,
		ApplicationID: app.ID,
		Detail:        map[string]string{"scheme": scheme, "txn": receipt.TxnHash.Hex()},
	})
	s.logger.InfoContext(ctx, "benefit application recorded",
		"application_id", app.ID,
		"subject_id", subjectID,
		"scheme", scheme,
		"txn", receipt.TxnHash.Hex(),
	)
	return app, nil
}

// Decide approves or rejects a recorded application. Approval re-checks
// the supporting credential against the live registry; a revoked or
// expired credential blocks approval but not rejection.
func (s *Service) Decide(ctx context.Context, applicationID string, approve bool, note string) (models.Application, error) {
	app, err := s.findApplication(ctx, applicationID)
	if err != nil {
		return models.Application{}, err
	}
	if app.Status != models.ApplicationRecorded {
		return models.Application{}, dErrors.New(dErrors.CodeConflict,
			fmt.Sprintf("application is already %s", app.Status))
	}

	target := models.ApplicationRejected
	ledgerStatus := registry.BenefitRejected
	if approve {
		status, err := s.credentials.Status(ctx, app.CredentialID)
		if err != nil {
			return models.Application{}, err
		}
		if !status.Registered || status.Revoked {
			return models.Application{}, dErrors.New(dErrors.CodeRevokedCredential,
				"supporting credential is no longer valid")
		}
		if status.Expired {
			return models.Application{}, dErrors.New(dErrors.CodeExpiredCredential,
				"supporting credential is expired")
		}
		target = models.ApplicationApproved
		ledgerStatus = registry.BenefitApproved
	}

	receipt, err := s.ledger.UpdateApplication(ctx, app.ID, ledgerStatus)
	if err != nil {
		return models.Application{}, err
	}

	app.Status = target
	app.DecisionNote = note
	app.TxnHash = receipt.TxnHash
	app.UpdatedAt = s.now().UTC()
	if err := s.store.Save(ctx, app); err != nil {
		return models.Application{}, dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "save benefit application")
	}

	_ = s.auditor.Emit(ctx, audit.Event{
		Action:        audit.EventBenefitUpdated,
		SubjectID:     app.SubjectID,
		CredentialID:  app.CredentialID,
		ApplicationID: app.ID,
		Detail:        map[string]string{"status": string(target), "txn": receipt.TxnHash.Hex()},
	})
	s.logger.InfoContext(ctx, "benefit application decided",
		"application_id", app.ID,
		"status", target,
		"txn", receipt.TxnHash.Hex(),
	)
	return app, nil
}

// Applications lists a subject's applications, oldest first.
func (s *Service) Applications(ctx context.Context, subjectID string) ([]models.Application, error) {
	if subjectID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "subject_id is required")
	}
	apps, err := s.store.FindBySubject(ctx, subjectID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "list benefit applications")
	}
	return apps, nil
}

// Application returns one application by id.
func (s *Service) Application(ctx context.Context, applicationID string) (models.Application, error) {
	return s.findApplication(ctx, applicationID)
}

func (s *Service) findApplication(ctx context.Context, applicationID string) (models.Application, error) {
	app, err := s.store.FindByID(ctx, applicationID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.Application{}, dErrors.New(dErrors.CodeNotFound,
				fmt.Sprintf("application %s not found", applicationID))
		}
		return models.Application{}, dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "find benefit application")
	}
	return app, nil
}
