package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/daniel-p-green/skillvault/pkg/contracts"
	"github.com/daniel-p-green/skillvault/pkg/crypto"
	"github.com/daniel-p-green/skillvault/pkg/policy"
)

// loadPolicy parses the policy file at path (possibly empty, meaning "no
// policy file" — every gate defaults to wide open) and selects profileName
// within it.
func loadPolicy(path, profileName string) (*policy.Profile, error) {
	var data []byte
	if path != "" {
		d, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read policy file %s: %w", path, err)
		}
		data = d
	}
	return policy.Parse(data, profileName)
}

// loadSigner reads an Ed25519 private key written by crypto.WriteKeyFile.
// keyID is required since the PEM file carries no identity of its own.
func loadSigner(keyPath, keyID string) (*crypto.Ed25519Signer, error) {
	if keyPath == "" {
		return nil, fmt.Errorf("--signing-key is required")
	}
	if keyID == "" {
		return nil, fmt.Errorf("--key-id is required")
	}
	return crypto.ReadKeyFile(keyPath, keyID)
}

// loadKeyRing reads every "*.pem" file in dir into a crypto.KeyRing, one
// signer per file, with each KeyID derived from its filename (matching
// crypto.WriteKeyFile's own "<dir>/<keyID>.pem" naming). Used by `verify
// --keyring` to resolve a receipt's signature.key_id without the caller
// needing to know in advance which key signed it.
func loadKeyRing(dir string) (*crypto.KeyRing, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read keyring dir %s: %w", dir, err)
	}
	ring := crypto.NewKeyRing()
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".pem") {
			continue
		}
		keyID := strings.TrimSuffix(e.Name(), ".pem")
		signer, err := crypto.ReadKeyFile(filepath.Join(dir, e.Name()), keyID)
		if err != nil {
			return nil, fmt.Errorf("load keyring key %s: %w", keyID, err)
		}
		ring.AddKey(signer)
	}
	return ring, nil
}

// writeJSON marshals v with stable indentation and writes it either to out
// or, if outPath is non-empty, to that file (also echoing the path to out).
func writeJSON(v any, out io.Writer, outPath string) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	data = append(data, '\n')
	if outPath == "" {
		_, err = out.Write(data)
		return err
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return fmt.Errorf("write output file %s: %w", outPath, err)
	}
	fmt.Fprintf(out, "Wrote %s\n", outPath)
	return nil
}

// exitForVerdict returns the CLI exit code for a verdict: 0 for PASS/WARN,
// 1 for FAIL.
func exitForVerdict(v contracts.Verdict) int {
	if v == contracts.VerdictFail {
		return 1
	}
	return 0
}
