// Package export writes the strict_v0 normalized ZIP format: sorted
// entries, POSIX separators, no directory entries, no symlinks, exactly
// one manifest, and (in deterministic mode) fixed per-entry metadata so the
// archive is bit-stable across platforms and runs.
package export

import (
	"archive/zip"
	"io"
	"sort"
	"time"

	"github.com/daniel-p-green/skillvault/pkg/contracts"
	"github.com/daniel-p-green/skillvault/pkg/errs"
	"github.com/daniel-p-green/skillvault/pkg/hashing"
)

// FormatStrictV0 is the only export format this package implements.
const FormatStrictV0 = "strict_v0"

// deterministicModTime is the fixed mtime stamped on every entry in
// deterministic mode, matching receipt.DeterministicCreatedAt's epoch.
var deterministicModTime = time.Unix(0, 0).UTC()

// Write normalizes and ZIPs a bundle's files into w. Symlinks present on the
// input bundle are rejected outright: strict_v0 bundles must contain only
// regular files. The manifest-count invariant is enforced by the caller via
// the manifest package before Write is reached; Write itself only refuses
// symlinks.
func Write(w io.Writer, files []hashing.RawFile, symlinks []string, deterministic bool) error {
	if len(symlinks) > 0 {
		return errs.Input(contracts.ReasonConstraintSymlinkForbidden,
			"bundle contains %d symlink(s), forbidden in strict_v0 export: %v", len(symlinks), symlinks)
	}

	sorted := make([]hashing.RawFile, len(files))
	copy(sorted, files)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	zw := zip.NewWriter(w)
	for _, f := range sorted {
		hdr := &zip.FileHeader{
			Name:   f.Path,
			Method: zip.Deflate,
		}
		if deterministic {
			hdr.Modified = deterministicModTime
			hdr.SetMode(0o644)
			hdr.ExternalAttrs = 0
		} else {
			hdr.Modified = time.Now().UTC()
			hdr.SetMode(0o644)
		}

		entry, err := zw.CreateHeader(hdr)
		if err != nil {
			return errs.IO(err, "create zip entry %s", f.Path)
		}
		if _, err := entry.Write(f.Bytes); err != nil {
			return errs.IO(err, "write zip entry %s", f.Path)
		}
	}

	if err := zw.Close(); err != nil {
		return errs.IO(err, "finalize zip export")
	}
	return nil
}
