// Package docstore persists full credential documents off-chain and hands
// back a content reference. The chain registries only ever carry that
// reference, never claim data.
package docstore

import "context"

// Store is a content-addressed document store. Put is idempotent: storing
// the same bytes twice returns the same reference.
type Store interface {
	// Put stores the document and returns its content reference.
	Put(ctx context.Context, data []byte) (string, error)
	// Get fetches the document for a reference previously returned by Put.
	// Returns sentinel.ErrNotFound when the reference is unknown.
	Get(ctx context.Context, ref string) ([]byte, error)
}
