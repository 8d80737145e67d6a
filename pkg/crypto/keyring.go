package crypto

import (
	"crypto/ed25519"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"sort"
	"sync"
)

const pemBlockType = "PRIVATE KEY"

// KeyRing holds a set of named Ed25519 signers, loaded from and persisted
// to PKCS8 PEM files. Verification always runs against a specific key by
// ID; signing uses whichever key the caller selects (or the lexicographically
// last KeyID, for a deterministic "active key" default).
type KeyRing struct {
	mu      sync.RWMutex
	signers map[string]*Ed25519Signer
}

// NewKeyRing creates an empty KeyRing.
func NewKeyRing() *KeyRing {
	return &KeyRing{signers: make(map[string]*Ed25519Signer)}
}

// AddKey registers a signer under its own KeyID.
func (k *KeyRing) AddKey(s *Ed25519Signer) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.signers[s.KeyID()] = s
}

// RevokeKey removes a key from the ring by ID.
func (k *KeyRing) RevokeKey(keyID string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.signers, keyID)
}

// Get returns the signer for a key ID.
func (k *KeyRing) Get(keyID string) (*Ed25519Signer, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	s, ok := k.signers[keyID]
	return s, ok
}

// ActiveKeyID deterministically selects the lexicographically last KeyID,
// treated as the current signing key.
func (k *KeyRing) ActiveKeyID() (string, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if len(k.signers) == 0 {
		return "", fmt.Errorf("crypto: keyring has no keys")
	}
	ids := make([]string, 0, len(k.signers))
	for id := range k.signers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids[len(ids)-1], nil
}

// Verify checks a payload's signature against a specific key ID.
func (k *KeyRing) Verify(keyID string, payload []byte, sigBase64 string) (bool, error) {
	s, ok := k.Get(keyID)
	if !ok {
		return false, fmt.Errorf("crypto: unknown key id %q", keyID)
	}
	return Verify(s.PublicKey(), payload, sigBase64)
}

// WriteKeyFile persists a single private key as PKCS8 PEM, named by its
// KeyID, inside dir. The file is written with mode 0600.
func WriteKeyFile(dir string, s *Ed25519Signer) (string, error) {
	der, err := x509.MarshalPKCS8PrivateKey(s.privKey)
	if err != nil {
		return "", fmt.Errorf("crypto: marshal pkcs8 key: %w", err)
	}
	block := &pem.Block{Type: pemBlockType, Bytes: der}
	path := dir + "/" + s.KeyID() + ".pem"
	if err := os.WriteFile(path, pem.EncodeToMemory(block), 0o600); err != nil {
		return "", fmt.Errorf("crypto: write key file %s: %w", path, err)
	}
	return path, nil
}

// ReadKeyFile loads a PKCS8 PEM private key and wraps it as a signer with
// the given KeyID (typically derived from the filename by the caller).
func ReadKeyFile(path, keyID string) (*Ed25519Signer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("crypto: read key file %s: %w", path, err)
	}
	block, _ := pem.Decode(data)
	if block == nil || block.Type != pemBlockType {
		return nil, fmt.Errorf("crypto: %s is not a PEM-encoded private key", path)
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("crypto: parse pkcs8 key %s: %w", path, err)
	}
	priv, ok := key.(ed25519.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("crypto: %s does not contain an ed25519 key", path)
	}
	return NewEd25519SignerFromKey(priv, keyID), nil
}
