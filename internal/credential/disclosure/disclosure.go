// Package disclosure implements salted hash commitments for selective
// disclosure, in the SD-JWT style: each claim is committed as
// sha256(base64url(json([salt, key, value]))) at issuance, and a holder
// later reveals a subset of (salt, key, value) triples whose recomputed
// commitments the verifier checks for membership in the signed set.
package disclosure

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sort"

	"idverse/internal/credential/models"
	dErrors "idverse/pkg/domain-errors"
)

// Commit computes the commitment digest for one claim under a given salt.
// The encoding is canonical: a JSON array [salt, key, value] with sorted
// map keys inside value, base64url without padding, hashed with SHA-256.
func Commit(salt, key string, value any) (string, error) {
	arr, err := json.Marshal([]any{salt, key, value})
	if err != nil {
		return "", fmt.Errorf("encode disclosure for %q: %w", key, err)
	}
	encoded := base64.RawURLEncoding.EncodeToString(arr)
	sum := sha256.Sum256([]byte(encoded))
	return base64.RawURLEncoding.EncodeToString(sum[:]), nil
}

// NewSalt generates a 128-bit disclosure salt.
func NewSalt() (string, error) {
	raw := make([]byte, 16)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate disclosure salt: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// CommitAll salts and commits every claim. Commitments are ordered by claim
// key so the signed list is deterministic. Returns the commitment list and
// the per-key salts for the holder.
func CommitAll(claims models.Claims) ([]string, map[string]string, error) {
	keys := make([]string, 0, len(claims))
	for key := range claims {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	commitments := make([]string, 0, len(keys))
	salts := make(map[string]string, len(keys))
	for _, key := range keys {
		salt, err := NewSalt()
		if err != nil {
			return nil, nil, err
		}
		commitment, err := Commit(salt, key, claims[key])
		if err != nil {
			return nil, nil, err
		}
		commitments = append(commitments, commitment)
		salts[key] = salt
	}
	return commitments, salts, nil
}

// BuildDisclosure assembles a presentation revealing only selectedKeys from
// the credential, bound to nonce. Keys absent from the claim set fail with
// UnknownClaim. The credential must carry its disclosure salts.
func BuildDisclosure(cred models.Credential, selectedKeys []string, nonce string) (models.DisclosurePackage, error) {
	disclosed := make([]models.DisclosedClaim, 0, len(selectedKeys))
	for _, key := range selectedKeys {
		value, ok := cred.Claims[key]
		if !ok {
			return models.DisclosurePackage{}, dErrors.New(dErrors.CodeUnknownClaim,
				fmt.Sprintf("claim %q not present in credential", key))
		}
		salt, ok := cred.Salts[key]
		if !ok {
			return models.DisclosurePackage{}, dErrors.New(dErrors.CodeUnknownClaim,
				fmt.Sprintf("no disclosure salt for claim %q", key))
		}
		disclosed = append(disclosed, models.DisclosedClaim{Key: key, Value: value, Salt: salt})
	}

	return models.DisclosurePackage{
		CredentialID: cred.ID,
		Disclosed:    disclosed,
		Nonce:        nonce,
		Commitments:  append([]string(nil), cred.Proof.Commitments...),
		Proof:        cred.Proof,
	}, nil
}

// CheckSubset recomputes each disclosed claim's commitment and requires
// membership in the signed commitment set. Any mismatch fails the whole
// package.
func CheckSubset(signedCommitments []string, pkg models.DisclosurePackage) bool {
	if len(pkg.Disclosed) == 0 {
		return false
	}
	for _, claim := range pkg.Disclosed {
		commitment, err := Commit(claim.Salt, claim.Key, claim.Value)
		if err != nil {
			return false
		}
		if !member(signedCommitments, commitment) {
			return false
		}
	}
	return true
}

func member(set []string, candidate string) bool {
	for _, c := range set {
		if subtle.ConstantTimeCompare([]byte(c), []byte(candidate)) == 1 {
			return true
		}
	}
	return false
}
