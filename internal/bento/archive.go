package bento

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
)

var ErrUnsafeArchive = errors.New("bento archive entry escapes its root")

// extractTarGz unpacks a gzip compressed tar stream into dest. Every entry is
// checked against the symlinks already extracted, so no entry can be written
// outside dest.
func extractTarGz(r io.Reader, dest string) error {
	root, err := filepath.EvalSymlinks(dest)
	if err != nil {
		return fmt.Errorf("resolve extraction root: %w", err)
	}

	gzr, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("open bento archive: %w", err)
	}
	defer gzr.Close()

	tr := tar.NewReader(gzr)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if errors.Is(err, tar.ErrInsecurePath) {
			return fmt.Errorf("%w: %s", ErrUnsafeArchive, hdr.Name)
		}
		if err != nil {
			return fmt.Errorf("read bento archive: %w", err)
		}

		target, err := entryPath(root, hdr.Name)
		if err != nil {
			return err
		}
		if err := checkInside(root, target, hdr.Name); err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := writeEntry(target, tr, hdr.FileInfo().Mode().Perm()); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if err := writeSymlink(root, target, hdr); err != nil {
				return err
			}
		default:
			// devices, fifos and hard links have no place in a bento.
		}
	}
}

func entryPath(root, name string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(cleaned) || !within(".", cleaned) {
		return "", fmt.Errorf("%w: %s", ErrUnsafeArchive, name)
	}
	return filepath.Join(root, cleaned), nil
}

// within reports whether the relative path rel stays below base.
func within(base, path string) bool {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// checkInside resolves the deepest existing ancestor of target through the
// symlinks on disk and rejects it when it lands outside root.
func checkInside(root, target, name string) error {
	existing := target
	for {
		if _, err := os.Lstat(existing); err == nil {
			break
		}
		parent := filepath.Dir(existing)
		if parent == existing {
			break
		}
		existing = parent
	}
	resolved, err := filepath.EvalSymlinks(existing)
	if err != nil {
		// dangling links resolve nowhere; treat them as escaping.
		return fmt.Errorf("%w: %s", ErrUnsafeArchive, name)
	}
	if !within(root, resolved) {
		return fmt.Errorf("%w: %s", ErrUnsafeArchive, name)
	}
	return nil
}

// writeSymlink creates the link after checking where it points from its real
// parent directory.
func writeSymlink(root, target string, hdr *tar.Header) error {
	if filepath.IsAbs(hdr.Linkname) {
		return fmt.Errorf("%w: %s -> %s", ErrUnsafeArchive, hdr.Name, hdr.Linkname)
	}
	parent := filepath.Dir(target)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return err
	}
	realParent, err := filepath.EvalSymlinks(parent)
	if err != nil {
		return err
	}
	if !within(root, filepath.Join(realParent, filepath.FromSlash(hdr.Linkname))) {
		return fmt.Errorf("%w: %s -> %s", ErrUnsafeArchive, hdr.Name, hdr.Linkname)
	}
	if err := removeLink(target); err != nil {
		return err
	}
	return os.Symlink(hdr.Linkname, target)
}

// removeLink drops an earlier non-directory entry at target so nothing is
// written through it.
func removeLink(target string) error {
	info, err := os.Lstat(target)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s already exists as a directory", target)
	}
	return os.Remove(target)
}

func writeEntry(target string, r io.Reader, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	if err := removeLink(target); err != nil {
		return err
	}
	if perm == 0 {
		perm = 0o644
	}
	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_EXCL, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
