// Package landing implements the versioned landing zone where raw source
// datasets are kept before they are loaded into the database. Files are
// stored under per-dataset directories with a calendar version prefix and
// a metadata sidecar, so a load can always be traced back to the exact
// bytes it came from.
package landing

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Backend abstracts the storage holding landed files. The local disk
// implementation is the default; the interface keeps object stores possible.
type Backend interface {
	Put(ctx context.Context, name string, r io.Reader) (int64, error)
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]string, error)
	Exists(ctx context.Context, name string) (bool, error)
	Delete(ctx context.Context, name string) error
}

// LocalBackend stores landed files under a root directory.
type LocalBackend struct {
	root string
}

// NewLocalBackend creates the root directory if needed.
func NewLocalBackend(root string) (*LocalBackend, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create landing root: %w", err)
	}
	return &LocalBackend{root: root}, nil
}

// Root returns the backend's base directory.
func (b *LocalBackend) Root() string {
	return b.root
}

func (b *LocalBackend) path(name string) (string, error) {
	cleaned := filepath.Clean(name)
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("name escapes landing root: %s", name)
	}
	return filepath.Join(b.root, cleaned), nil
}

// Put writes a file atomically: to a temp file first, then renamed into place.
func (b *LocalBackend) Put(ctx context.Context, name string, r io.Reader) (int64, error) {
	dst, err := b.path(name)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, fmt.Errorf("create dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".landing-*")
	if err != nil {
		return 0, fmt.Errorf("temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, fmt.Errorf("write %s: %w", name, err)
	}

	if err := os.Rename(tmp.Name(), dst); err != nil {
		return 0, fmt.Errorf("finalize %s: %w", name, err)
	}
	return n, nil
}

// Open opens a landed file for reading.
func (b *LocalBackend) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	p, err := b.path(name)
	if err != nil {
		return nil, err
	}
	return os.Open(p)
}

// List returns names under a prefix, sorted ascending. Directory separators
// in results use forward slashes regardless of platform.
func (b *LocalBackend) List(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	err := filepath.WalkDir(b.root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(b.root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if strings.HasPrefix(rel, prefix) {
			names = append(names, rel)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

// Exists reports whether a file has been landed.
func (b *LocalBackend) Exists(ctx context.Context, name string) (bool, error) {
	p, err := b.path(name)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(p)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Delete removes a landed file.
func (b *LocalBackend) Delete(ctx context.Context, name string) error {
	p, err := b.path(name)
	if err != nil {
		return err
	}
	err = os.Remove(p)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
