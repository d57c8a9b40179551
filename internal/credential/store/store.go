// Package store persists issued credentials and queued issuance requests.
// The store is the service-side copy of what was signed; revocation status
// is never kept here, it lives on-chain.
package store

import (
	"context"

	"idverse/internal/credential/models"
)

// Store is the credential persistence port. Implementations return
// sentinel.ErrNotFound (wrapped or bare) for missing ids.
type Store interface {
	Save(ctx context.Context, record models.CredentialRecord) error
	FindByID(ctx context.Context, id string) (models.CredentialRecord, error)
	FindBySubject(ctx context.Context, subjectID string) ([]models.CredentialRecord, error)

	SaveRequest(ctx context.Context, req models.IssuanceRequest) error
	FindRequestByID(ctx context.Context, id string) (models.IssuanceRequest, error)
}
