// Package archive wraps the open install package: a zip archive whose
// contents are extracted onto local storage during an install.
//
// Extraction is deliberately deterministic. Every extracted file carries
// FixedTimestamp rather than the wall clock, so repeated installs of the same
// package produce byte-identical filesystem metadata.
package archive

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"
)

// FixedTimestamp is applied to every extracted file.
var FixedTimestamp = time.Date(2008, time.August, 1, 12, 0, 0, 0, time.UTC)

// Package is an open install package.
type Package struct {
	r      *zip.Reader
	closer io.Closer
}

// Open opens the install package at path.
func Open(path string) (*Package, error) {
	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("archive: open %s: %w", path, err)
	}
	return &Package{r: &rc.Reader, closer: rc}, nil
}

// NewPackage wraps an already-open package. The caller keeps ownership of r.
func NewPackage(r io.ReaderAt, size int64) (*Package, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("archive: %w", err)
	}
	return &Package{r: zr}, nil
}

// Close closes the underlying file, when Package owns one.
func (p *Package) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer.Close()
}

// ExtractSubtree extracts the subtree rooted at root into dest. Only regular
// files are extracted; directories are created as needed but never appear as
// entries themselves. A root that names a single file extracts that file to
// dest itself. A root matching nothing extracts nothing and is not an error.
func (p *Package) ExtractSubtree(root, dest string) error {
	root = strings.Trim(root, "/")
	prefix := root
	if prefix != "" {
		prefix += "/"
	}

	for _, f := range p.r.File {
		name := strings.TrimPrefix(f.Name, "/")

		var target string
		switch {
		case root != "" && name == root:
			target = dest
		case strings.HasPrefix(name, prefix):
			rel := strings.TrimPrefix(name, prefix)
			if rel == "" {
				continue
			}
			target = filepath.Join(dest, filepath.FromSlash(rel))
		default:
			continue
		}

		if strings.HasSuffix(f.Name, "/") || !f.Mode().IsRegular() {
			continue
		}
		if !withinDir(dest, target) {
			return fmt.Errorf("archive: entry %q escapes %s", f.Name, dest)
		}

		if err := extractFile(f, target); err != nil {
			return fmt.Errorf("archive: extract %q: %w", f.Name, err)
		}
	}
	return nil
}

func extractFile(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	mode := f.Mode().Perm()
	if mode == 0 {
		mode = 0o644
	}

	src, err := f.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	if err := dst.Close(); err != nil {
		return err
	}

	return os.Chtimes(target, FixedTimestamp, FixedTimestamp)
}

// withinDir reports whether target stays under dir once cleaned.
func withinDir(dir, target string) bool {
	rel, err := filepath.Rel(filepath.Clean(dir), filepath.Clean(target))
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(os.PathSeparator))
}
