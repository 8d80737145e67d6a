package bundle

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/daniel-p-green/skillvault/pkg/errs"
	"github.com/daniel-p-green/skillvault/pkg/hashing"
)

// readDir recursively walks root, converting platform separators to "/".
// Symbolic links are recorded but not followed and not read.
func readDir(root string) (*Bundle, error) {
	var files []hashing.RawFile
	var symlinks []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		if rel == "." {
			return nil
		}
		posix := toPosix(rel)

		if d.Type()&os.ModeSymlink != 0 {
			symlinks = append(symlinks, posix)
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !d.Type().IsRegular() {
			// Neither a regular file nor a directory nor a symlink
			// (device, socket, …): skip it.
			return nil
		}

		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return readErr
		}
		files = append(files, hashing.RawFile{Path: posix, Bytes: data})
		return nil
	})
	if err != nil {
		return nil, errs.IO(err, "walk bundle directory %s", root)
	}

	sortRawFiles(files)
	return &Bundle{Kind: KindDirectory, Source: root, Files: files, Symlinks: symlinks}, nil
}
