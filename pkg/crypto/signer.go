// Package crypto signs and verifies receipts with Ed25519, and persists
// key material as PKCS8 PEM on disk.
package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// Signer produces a deterministic Ed25519 signature over payload bytes:
// same input always yields the same signature bytes.
type Signer interface {
	Sign(payload []byte) (sigBase64 string, err error)
	KeyID() string
	PublicKey() ed25519.PublicKey
}

// Ed25519Signer is the sole Signer implementation. KeyID is an opaque
// caller-assigned label (e.g. a fingerprint or operator-chosen name); it is
// never derived from the key bytes.
type Ed25519Signer struct {
	privKey ed25519.PrivateKey
	pubKey  ed25519.PublicKey
	keyID   string
}

// NewEd25519Signer generates a fresh key pair.
func NewEd25519Signer(keyID string) (*Ed25519Signer, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("crypto: generate ed25519 key: %w", err)
	}
	return &Ed25519Signer{privKey: priv, pubKey: pub, keyID: keyID}, nil
}

// NewEd25519SignerFromKey wraps an existing private key, typically loaded
// from a keyring file.
func NewEd25519SignerFromKey(priv ed25519.PrivateKey, keyID string) *Ed25519Signer {
	return &Ed25519Signer{privKey: priv, pubKey: priv.Public().(ed25519.PublicKey), keyID: keyID}
}

// Sign signs the raw payload bytes directly (never a hash of them) and
// returns the signature as standard base64, per the receipt contract.
func (s *Ed25519Signer) Sign(payload []byte) (string, error) {
	sig := ed25519.Sign(s.privKey, payload)
	return base64.StdEncoding.EncodeToString(sig), nil
}

func (s *Ed25519Signer) KeyID() string { return s.keyID }

func (s *Ed25519Signer) PublicKey() ed25519.PublicKey { return s.pubKey }

// Verify checks a base64-encoded Ed25519 signature against payload bytes
// and a raw public key.
func Verify(pub ed25519.PublicKey, payload []byte, sigBase64 string) (bool, error) {
	sig, err := base64.StdEncoding.DecodeString(sigBase64)
	if err != nil {
		return false, fmt.Errorf("crypto: decode signature base64: %w", err)
	}
	if len(pub) != ed25519.PublicKeySize {
		return false, fmt.Errorf("crypto: invalid public key size %d", len(pub))
	}
	return ed25519.Verify(pub, payload, sig), nil
}
