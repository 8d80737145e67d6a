package bundle

import (
	"archive/zip"
	"io"
	"strings"

	"github.com/daniel-p-green/skillvault/pkg/errs"
	"github.com/daniel-p-green/skillvault/pkg/hashing"
)

// readZip opens a ZIP archive and returns its entries sorted by path bytes.
// Directory entries and entries with empty or absolute paths are dropped.
// Central-directory order is never trusted.
func readZip(path string) (*Bundle, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, errs.IO(err, "open zip bundle %s", path)
	}
	defer func() { _ = r.Close() }()

	var files []hashing.RawFile
	for _, f := range r.File {
		name := toPosix(f.Name)
		if name == "" || strings.HasSuffix(name, "/") || strings.HasPrefix(name, "/") {
			continue // directory entry, or empty/absolute path
		}

		rc, openErr := f.Open()
		if openErr != nil {
			return nil, errs.IO(openErr, "open zip entry %s in %s", name, path)
		}
		data, readErr := io.ReadAll(rc)
		_ = rc.Close()
		if readErr != nil {
			return nil, errs.IO(readErr, "read zip entry %s in %s", name, path)
		}
		files = append(files, hashing.RawFile{Path: name, Bytes: data})
	}

	sortRawFiles(files)
	return &Bundle{Kind: KindZip, Source: path, Files: files}, nil
}
