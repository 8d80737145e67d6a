// Package bundle reads a skill bundle — a directory tree, a ZIP archive, or
// a remote object-storage prefix — into an ordered list of (path, bytes)
// pairs ready for hashing. Every reader sorts its output by POSIX path
// using raw byte comparison; central-directory and object-listing order
// from the underlying source is never trusted.
package bundle

import (
	"bytes"
	"context"
	"os"
	"sort"
	"strings"

	"github.com/daniel-p-green/skillvault/pkg/errs"
	"github.com/daniel-p-green/skillvault/pkg/hashing"
)

// Kind identifies where a Bundle's files were read from.
type Kind string

const (
	KindDirectory Kind = "directory"
	KindZip       Kind = "zip"
	KindGCS       Kind = "gcs"
	KindS3        Kind = "s3"
)

// Bundle is a fully-read, path-sorted set of bundle files.
type Bundle struct {
	Kind     Kind
	Source   string
	Files    []hashing.RawFile
	Symlinks []string // POSIX paths that were symlinks and were not followed
}

// Read loads a bundle from path, dispatching on its shape:
//   - "gs://bucket/prefix"  -> Google Cloud Storage
//   - "s3://bucket/prefix"  -> AWS S3
//   - an existing directory -> recursive directory walk
//   - a path ending in ".zip" (case-insensitive) -> ZIP archive
//
// Anything else is a BundleNotFound or UnsupportedBundleInput error.
func Read(ctx context.Context, path string) (*Bundle, error) {
	switch {
	case strings.HasPrefix(path, "gs://"):
		return readGCS(ctx, path)
	case strings.HasPrefix(path, "s3://"):
		return readS3(ctx, path)
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.BundleNotFound(path)
		}
		return nil, errs.IO(err, "stat bundle path %s", path)
	}

	if info.IsDir() {
		return readDir(path)
	}
	if strings.HasSuffix(strings.ToLower(path), ".zip") {
		return readZip(path)
	}
	return nil, errs.UnsupportedBundleInput(path)
}

// sortRawFiles sorts in place using raw UTF-8 byte comparison of Path.
func sortRawFiles(files []hashing.RawFile) {
	sort.Slice(files, func(i, j int) bool {
		return bytes.Compare([]byte(files[i].Path), []byte(files[j].Path)) < 0
	})
}

// toPosix converts platform path separators to "/".
func toPosix(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}
