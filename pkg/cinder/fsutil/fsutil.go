// Package fsutil provides the recursive filesystem walkers the install
// builtins delegate to: hierarchy removal and hierarchy permission setting.
package fsutil

import (
	"io/fs"
	"os"
	"path/filepath"
)

// RemoveTree removes path and everything under it. Unlike os.RemoveAll, a
// missing path is an error, so callers counting successful removals see it as
// a failure.
func RemoveTree(path string) error {
	if _, err := os.Lstat(path); err != nil {
		return err
	}
	return os.RemoveAll(path)
}

// SetTreePermissions sets owner and group on every entry under root and
// applies dirMode to directories and fileMode to everything else. Symlinks get
// their ownership changed but keep their mode: chmod would follow the link.
func SetTreePermissions(root string, uid, gid int, dirMode, fileMode fs.FileMode) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := os.Lchown(path, uid, gid); err != nil {
			return err
		}
		if d.IsDir() {
			return os.Chmod(path, dirMode)
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		return os.Chmod(path, fileMode)
	})
}
