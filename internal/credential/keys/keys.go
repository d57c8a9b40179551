// Package keys holds the issuer signing material. Two modes exist, matching
// the platform's SIGN_MODE switch: ed25519 for real detached signatures and
// mock for keyless environments, where the "signature" is a keyed digest.
package keys

import (
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

const (
	ModeEd25519 = "ed25519"
	ModeMock    = "mock"

	proofTypeEd25519 = "Ed25519Signature2020"
	proofTypeMock    = "MockDigest2020"
)

// Signer produces detached signatures over canonical payload bytes.
type Signer interface {
	Sign(payload []byte) (string, error)
	PublicKeyHex() string
	Mode() string
	ProofType() string
}

// NewSigner builds a signer for the given mode. For ed25519 an empty seed
// generates a fresh keypair, which is fine for mock deployments but means
// signatures do not survive restarts.
func NewSigner(mode, seedHex string) (Signer, error) {
	switch mode {
	case ModeEd25519, "":
		return newEd25519Signer(seedHex)
	case ModeMock:
		return newMockSigner(seedHex)
	default:
		return nil, fmt.Errorf("unknown sign mode %q", mode)
	}
}

type ed25519Signer struct {
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
}

func newEd25519Signer(seedHex string) (*ed25519Signer, error) {
	if seedHex == "" {
		pub, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("generate issuer key: %w", err)
		}
		return &ed25519Signer{priv: priv, pub: pub}, nil
	}
	seed, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, fmt.Errorf("decode issuer key seed: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("issuer key seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return &ed25519Signer{priv: priv, pub: priv.Public().(ed25519.PublicKey)}, nil
}

func (s *ed25519Signer) Sign(payload []byte) (string, error) {
	return hex.EncodeToString(ed25519.Sign(s.priv, payload)), nil
}

func (s *ed25519Signer) PublicKeyHex() string { return hex.EncodeToString(s.pub) }
func (s *ed25519Signer) Mode() string         { return ModeEd25519 }
func (s *ed25519Signer) ProofType() string    { return proofTypeEd25519 }

// mockSigner makes deterministic HMAC digests so mock-mode flows still have
// verifiable, tamper-evident proofs. The "public key" is the HMAC key, which
// is obviously not a real trust root.
type mockSigner struct {
	key []byte
}

func newMockSigner(keyHex string) (*mockSigner, error) {
	if keyHex == "" {
		keyHex = "6d6f636b2d69737375"
	}
	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("decode mock key: %w", err)
	}
	return &mockSigner{key: key}, nil
}

func (s *mockSigner) Sign(payload []byte) (string, error) {
	mac := hmac.New(sha256.New, s.key)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil)), nil
}

func (s *mockSigner) PublicKeyHex() string { return hex.EncodeToString(s.key) }
func (s *mockSigner) Mode() string         { return ModeMock }
func (s *mockSigner) ProofType() string    { return proofTypeMock }

// Verify checks a detached signature against the issuer public key for the
// given proof type. Unknown proof types verify false, not error: a forged
// proof type is an invalid signature, not an infrastructure failure.
func Verify(proofType, publicKeyHex string, payload []byte, signatureHex string) bool {
	sig, err := hex.DecodeString(signatureHex)
	if err != nil {
		return false
	}
	key, err := hex.DecodeString(publicKeyHex)
	if err != nil {
		return false
	}

	switch proofType {
	case proofTypeEd25519:
		if len(key) != ed25519.PublicKeySize {
			return false
		}
		return ed25519.Verify(ed25519.PublicKey(key), payload, sig)
	case proofTypeMock:
		mac := hmac.New(sha256.New, key)
		mac.Write(payload)
		return hmac.Equal(mac.Sum(nil), sig)
	default:
		return false
	}
}
