// Package store persists benefit applications. The ledger entry on-chain
// is authoritative for status transitions; this store carries the
// service-side record and the reviewer notes the ledger does not hold.
package store

import (
	"context"

	"idverse/internal/benefit/models"
)

// Store is the benefit application persistence port. Implementations
// return sentinel.ErrNotFound for missing ids.
type Store interface {
	Save(ctx context.Context, app models.Application) error
	FindByID(ctx context.Context, id string) (models.Application, error)
	FindBySubject(ctx context.Context, subjectID string) ([]models.Application, error)
}
