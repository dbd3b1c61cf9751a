// Package fileutil provides file system helpers shared by the backup services.
package fileutil

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"
)

// In-progress copies live under a hidden temporary name in the target folder.
const (
	TempPrefix  = ".blueprint-storage-"
	TempSuffix  = ".tmp"
	TempPattern = TempPrefix + "*" + TempSuffix
)

// IsTemp reports whether name is an in-progress copy written by AtomicCopy.
func IsTemp(name string) bool {
	return strings.HasPrefix(name, TempPrefix) && strings.HasSuffix(name, TempSuffix)
}

// AtomicCopy copies src to dst through a temp file in dst's folder that is
// synced and renamed into place. An interrupted copy leaves no file at dst.
//
// The caller is responsible for ensuring the parent directory exists.
func AtomicCopy(fs afero.Fs, src, dst string, perm os.FileMode) (int64, error) {
	in, err := fs.Open(src)
	if err != nil {
		return 0, errors.Wrapf(err, "opening %s", src)
	}
	defer func() { _ = in.Close() }()

	tmp, err := afero.TempFile(fs, filepath.Dir(dst), TempPattern)
	if err != nil {
		return 0, errors.Wrapf(err, "creating temp file in %s", filepath.Dir(dst))
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = fs.Remove(tmpName)
		}
	}()

	n, err := io.Copy(tmp, in)
	if err != nil {
		_ = tmp.Close()
		return 0, errors.Wrapf(err, "copying %s", src)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return 0, errors.Wrapf(err, "syncing %s", tmpName)
	}
	if err := tmp.Close(); err != nil {
		return 0, errors.Wrapf(err, "closing %s", tmpName)
	}
	if err := fs.Chmod(tmpName, perm); err != nil {
		return 0, errors.Wrapf(err, "setting permissions on %s", tmpName)
	}
	if err := fs.Rename(tmpName, dst); err != nil {
		return 0, errors.Wrapf(err, "renaming %s", tmpName)
	}
	committed = true

	return n, nil
}
