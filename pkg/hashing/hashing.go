// Package hashing implements the canonical content-addressed hashing used
// to fingerprint individual bundle files and the bundle as a whole.
// Determinism requires byte comparison of paths everywhere, never
// locale-aware collation, which some ZIP readers apply by default.
package hashing

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"sort"

	"github.com/daniel-p-green/skillvault/pkg/contracts"
)

// Sha256Hex returns the lowercase-hex SHA-256 digest of data.
func Sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// RawFile is an unhashed bundle file as read off disk or out of a ZIP.
type RawFile struct {
	Path  string
	Bytes []byte
}

// HashBundleFiles hashes each file and returns a FileEntry list sorted by
// path (bytewise, ascending). The input slice is not mutated.
func HashBundleFiles(files []RawFile) []contracts.FileEntry {
	entries := make([]contracts.FileEntry, len(files))
	for i, f := range files {
		entries[i] = contracts.FileEntry{
			Path:   f.Path,
			Size:   int64(len(f.Bytes)),
			Sha256: Sha256Hex(f.Bytes),
		}
	}
	sortEntriesByPath(entries)
	return entries
}

// ComputeBundleSha256 re-sorts entries by path (bytewise) and feeds the
// concatenation of path, "\n", sha256 hex, "\n" for each entry into one
// SHA-256 context. It is invariant under any permutation of the input
// slice and never mutates it.
func ComputeBundleSha256(entries []contracts.FileEntry) string {
	sorted := make([]contracts.FileEntry, len(entries))
	copy(sorted, entries)
	sortEntriesByPath(sorted)

	h := sha256.New()
	for _, e := range sorted {
		h.Write([]byte(e.Path))
		h.Write([]byte{'\n'})
		h.Write([]byte(e.Sha256))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// sortEntriesByPath sorts in place using raw UTF-8 byte comparison, never
// a locale-aware collator, so that sort order cannot vary by runtime or
// platform.
func sortEntriesByPath(entries []contracts.FileEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return bytes.Compare([]byte(entries[i].Path), []byte(entries[j].Path)) < 0
	})
}
