// Package challenge issues and consumes single-use presentation nonces.
// A nonce is valid for exactly one verification inside its TTL; consuming
// it a second time is a replay and is rejected no matter how the rest of
// that verification went.
package challenge

import (
	"context"
	"time"
)

// Challenge is a verifier-issued nonce a holder must bind a presentation to.
type Challenge struct {
	Nonce     string    `json:"nonce"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Store persists challenges. Consume must be atomic: under concurrent calls
// with the same nonce exactly one succeeds.
//
// Consume returns, wrapped or bare:
//   - sentinel.ErrNotFound for a nonce that was never issued or aged out
//   - sentinel.ErrExpired for a nonce past its TTL
//   - sentinel.ErrAlreadyUsed for a nonce consumed before
type Store interface {
	Save(ctx context.Context, ch Challenge) error
	Consume(ctx context.Context, nonce string, now time.Time) error
}
