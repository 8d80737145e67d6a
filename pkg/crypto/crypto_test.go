package crypto_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daniel-p-green/skillvault/pkg/crypto"
)

func TestSignAndVerify_RoundTrip(t *testing.T) {
	signer, err := crypto.NewEd25519Signer("key-1")
	require.NoError(t, err)

	payload := []byte(`{"bundle_sha256":"abc"}`)
	sig, err := signer.Sign(payload)
	require.NoError(t, err)

	ok, err := crypto.Verify(signer.PublicKey(), payload, sig)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerify_TamperedPayloadFails(t *testing.T) {
	signer, err := crypto.NewEd25519Signer("key-1")
	require.NoError(t, err)

	sig, err := signer.Sign([]byte("original"))
	require.NoError(t, err)

	ok, err := crypto.Verify(signer.PublicKey(), []byte("tampered"), sig)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerify_InvalidBase64Errors(t *testing.T) {
	signer, err := crypto.NewEd25519Signer("key-1")
	require.NoError(t, err)

	_, err = crypto.Verify(signer.PublicKey(), []byte("x"), "not-base64!!!")
	require.Error(t, err)
}

func TestVerify_WrongKeySizeErrors(t *testing.T) {
	_, err := crypto.Verify([]byte("too-short"), []byte("x"), "")
	require.Error(t, err)
}

func TestWriteAndReadKeyFile_RoundTrip(t *testing.T) {
	signer, err := crypto.NewEd25519Signer("op-key")
	require.NoError(t, err)

	dir := t.TempDir()
	path, err := crypto.WriteKeyFile(dir, signer)
	require.NoError(t, err)

	loaded, err := crypto.ReadKeyFile(path, "op-key")
	require.NoError(t, err)
	assert.Equal(t, signer.PublicKey(), loaded.PublicKey())
	assert.Equal(t, "op-key", loaded.KeyID())

	payload := []byte("payload")
	sig, err := signer.Sign(payload)
	require.NoError(t, err)
	loadedSig, err := loaded.Sign(payload)
	require.NoError(t, err)
	assert.Equal(t, sig, loadedSig)
}

func TestReadKeyFile_NotPEMErrors(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/bad.pem"
	require.NoError(t, os.WriteFile(path, []byte("not a pem file"), 0o600))

	_, err := crypto.ReadKeyFile(path, "bad")
	require.Error(t, err)
}

func TestKeyRing_ActiveKeyIDIsLexicographicallyLast(t *testing.T) {
	ring := crypto.NewKeyRing()
	a, err := crypto.NewEd25519Signer("2024-01-01")
	require.NoError(t, err)
	b, err := crypto.NewEd25519Signer("2024-06-01")
	require.NoError(t, err)
	ring.AddKey(a)
	ring.AddKey(b)

	active, err := ring.ActiveKeyID()
	require.NoError(t, err)
	assert.Equal(t, "2024-06-01", active)
}

func TestKeyRing_ActiveKeyIDEmptyErrors(t *testing.T) {
	ring := crypto.NewKeyRing()
	_, err := ring.ActiveKeyID()
	require.Error(t, err)
}

func TestKeyRing_RevokeKeyRemovesIt(t *testing.T) {
	ring := crypto.NewKeyRing()
	s, err := crypto.NewEd25519Signer("k1")
	require.NoError(t, err)
	ring.AddKey(s)
	ring.RevokeKey("k1")

	_, ok := ring.Get("k1")
	assert.False(t, ok)
}

func TestKeyRing_VerifyUnknownKeyErrors(t *testing.T) {
	ring := crypto.NewKeyRing()
	_, err := ring.Verify("missing", []byte("x"), "")
	require.Error(t, err)
}

func TestKeyRing_VerifyKnownKey(t *testing.T) {
	ring := crypto.NewKeyRing()
	s, err := crypto.NewEd25519Signer("k1")
	require.NoError(t, err)
	ring.AddKey(s)

	sig, err := s.Sign([]byte("payload"))
	require.NoError(t, err)

	ok, err := ring.Verify("k1", []byte("payload"), sig)
	require.NoError(t, err)
	assert.True(t, ok)
}
