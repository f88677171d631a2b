// SPDX-License-Identifier: MPL-2.0

package artifact

import (
	"archive/tar"
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// ErrUnsafeEntry is the sentinel error wrapped by UnsafeEntryError.
var ErrUnsafeEntry = errors.New("unsafe archive entry")

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// UnsafeEntryError is returned when an archive entry would be written outside
// the extraction directory.
type UnsafeEntryError struct {
	Name   string
	Target string
}

// Error implements the error interface.
func (e *UnsafeEntryError) Error() string {
	return fmt.Sprintf("archive entry %q escapes %s", e.Name, e.Target)
}

// Unwrap returns ErrUnsafeEntry for errors.Is() compatibility.
func (e *UnsafeEntryError) Unwrap() error { return ErrUnsafeEntry }

// applyLayer unpacks the blob at unpacked/layer onto target.
func applyLayer(unpacked, layer, target string) error {
	blob, err := securePath(unpacked, layer)
	if err != nil {
		return err
	}
	file, err := os.Open(blob)
	if err != nil {
		return err
	}
	defer file.Close()

	r, closeFn, err := decompress(file)
	if err != nil {
		return err
	}
	defer closeFn()

	return untar(r, target)
}

// decompress sniffs the stream and wraps it in the matching decoder.
func decompress(r io.Reader) (io.Reader, func(), error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(len(zstdMagic))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, nil, err
	}

	switch {
	case bytes.HasPrefix(head, gzipMagic):
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, nil, fmt.Errorf("open gzip layer: %w", err)
		}
		return zr, func() { _ = zr.Close() }, nil
	case bytes.HasPrefix(head, zstdMagic):
		zr, err := zstd.NewReader(br)
		if err != nil {
			return nil, nil, fmt.Errorf("open zstd layer: %w", err)
		}
		return zr, zr.Close, nil
	default:
		return br, func() {}, nil
	}
}

func untarFile(archive, target string) error {
	file, err := os.Open(archive)
	if err != nil {
		return err
	}
	defer file.Close()
	return untar(file, target)
}

// untar extracts a tar stream into target, replacing existing entries.
func untar(r io.Reader, target string) error {
	if err := os.MkdirAll(target, 0o755); err != nil {
		return err
	}
	root, err := filepath.EvalSymlinks(target)
	if err != nil {
		return err
	}

	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read tar entry: %w", err)
		}

		dest, err := securePath(root, hdr.Name)
		if err != nil {
			return err
		}
		if dest == root {
			continue
		}
		if err := ensureParent(root, dest, hdr.Name); err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if info, err := os.Lstat(dest); err == nil && !info.IsDir() {
				if err := os.Remove(dest); err != nil {
					return err
				}
			}
			if err := os.MkdirAll(dest, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := replaceWith(dest, func() error { return writeFile(dest, tr, hdr.FileInfo().Mode().Perm()) }); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if err := replaceWith(dest, func() error { return os.Symlink(hdr.Linkname, dest) }); err != nil {
				return err
			}
		case tar.TypeLink:
			src, err := securePath(root, hdr.Linkname)
			if err != nil {
				return err
			}
			if err := replaceWith(dest, func() error { return os.Link(src, dest) }); err != nil {
				return err
			}
		default:
			// Device nodes, fifos and extended headers carry no crate content.
		}
	}
}

// securePath joins name onto root and rejects results outside root.
func securePath(root, name string) (string, error) {
	dest := filepath.Join(root, filepath.FromSlash(name))
	if !within(root, dest) {
		return "", &UnsafeEntryError{Name: name, Target: root}
	}
	return dest, nil
}

// ensureParent creates dest's missing parent directories one at a time,
// starting below root. Every existing ancestor is resolved first, so a symlink
// written by an earlier entry or layer that leads outside root is rejected
// before anything is created through it.
func ensureParent(root, dest, name string) error {
	rel, err := filepath.Rel(root, filepath.Dir(dest))
	if err != nil {
		return err
	}
	if rel == "." {
		return nil
	}

	cur := root
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		cur = filepath.Join(cur, part)
		info, err := os.Lstat(cur)
		if errors.Is(err, fs.ErrNotExist) {
			if err := os.Mkdir(cur, 0o755); err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return err
		}
		if info.Mode()&os.ModeSymlink != 0 {
			resolved, err := filepath.EvalSymlinks(cur)
			if err != nil {
				// Dangling links are followed by Mkdir, so their target is unknown.
				return &UnsafeEntryError{Name: name, Target: root}
			}
			if !within(root, resolved) {
				return &UnsafeEntryError{Name: name, Target: root}
			}
			if info, err = os.Stat(resolved); err != nil {
				return err
			}
		}
		if !info.IsDir() {
			return fmt.Errorf("archive entry %q: %s is not a directory", name, cur)
		}
	}
	return nil
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// replaceWith removes a non-directory entry at dest before create runs, so
// later layers replace files and links rather than writing through them.
func replaceWith(dest string, create func() error) error {
	if info, err := os.Lstat(dest); err == nil {
		if info.IsDir() {
			if err := os.RemoveAll(dest); err != nil {
				return err
			}
		} else if err := os.Remove(dest); err != nil {
			return err
		}
	}
	return create()
}

func writeFile(dest string, r io.Reader, perm os.FileMode) error {
	if perm == 0 {
		perm = 0o644
	}
	file, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(file, r); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}
