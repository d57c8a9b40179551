// Package domain holds identifier types shared across features. Keeping them
// in one place stops feature packages from passing bare strings around and
// mixing up which id is which.
package domain

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	dErrors "idverse/pkg/domain-errors"
)

type (
	// CredentialID identifies an issued verifiable credential,
	// e.g. "vc-GovID-1a2b3c4d".
	CredentialID string
	// RequestID identifies a queued issuance request, e.g. "req-GovID-1a2b3c4d".
	RequestID string
	// ApplicationID identifies a benefit application.
	ApplicationID string
	// SubjectID is the opaque identifier of a credential holder.
	SubjectID string
	// DID is a decentralized identifier resolvable via the Issuer Registry.
	DID string
)

// NewCredentialID mints a credential id carrying the credential type,
// matching the "vc-<type>-<8 hex>" shape used across the platform.
func NewCredentialID(credType string) CredentialID {
	return CredentialID(fmt.Sprintf("vc-%s-%s", credType, uuid.NewString()[:8]))
}

// NewRequestID mints an issuance request id.
func NewRequestID(credType string) RequestID {
	return RequestID(fmt.Sprintf("req-%s-%s", credType, uuid.NewString()[:8]))
}

// NewApplicationID mints a benefit application id.
func NewApplicationID() ApplicationID {
	return ApplicationID("app-" + uuid.NewString()[:8])
}

// ParseCredentialID validates the credential id shape at trust boundaries.
func ParseCredentialID(s string) (CredentialID, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "credential id must not be empty")
	}
	if !strings.HasPrefix(s, "vc-") {
		return "", dErrors.New(dErrors.CodeInvalidInput, "credential id must start with vc-")
	}
	return CredentialID(s), nil
}

// ParseDID validates the minimal did:<method>:<id> shape.
func ParseDID(s string) (DID, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 || parts[0] != "did" || parts[1] == "" || parts[2] == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "malformed DID")
	}
	return DID(s), nil
}

func (id CredentialID) String() string  { return string(id) }
func (id RequestID) String() string     { return string(id) }
func (id ApplicationID) String() string { return string(id) }
func (id SubjectID) String() string     { return string(id) }
func (id DID) String() string           { return string(id) }

func (id CredentialID) IsEmpty() bool { return id == "" }
func (id SubjectID) IsEmpty() bool    { return id == "" }
func (id DID) IsEmpty() bool          { return id == "" }
