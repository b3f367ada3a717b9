package landing

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ExtractZip unpacks a landed archive into destDir. Member files are
// extracted concurrently with a bounded worker pool; paths that would
// escape destDir are rejected.
func ExtractZip(ctx context.Context, b Backend, name, destDir string) error {
	rc, err := b.Open(ctx, name)
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}
	defer rc.Close()

	// zip needs random access, so spool to a temp file first.
	tmp, err := os.CreateTemp("", "landing-zip-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	size, err := io.Copy(tmp, rc)
	if err != nil {
		return fmt.Errorf("spool %s: %w", name, err)
	}

	zr, err := zip.NewReader(tmp, size)
	if err != nil {
		return fmt.Errorf("open zip %s: %w", name, err)
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return err
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, 4)
	errCh := make(chan error, 1)

	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}

		wg.Add(1)
		go func(f *zip.File) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if err := extractMember(f, destDir); err != nil {
				select {
				case errCh <- err:
				default:
				}
			}
		}(f)
	}

	wg.Wait()
	select {
	case err := <-errCh:
		return err
	default:
		return nil
	}
}

func extractMember(f *zip.File, destDir string) error {
	cleaned := filepath.Clean(f.Name)
	if strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return fmt.Errorf("zip member escapes destination: %s", f.Name)
	}
	dst := filepath.Join(destDir, cleaned)

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	src, err := f.Open()
	if err != nil {
		return fmt.Errorf("open member %s: %w", f.Name, err)
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	_, err = io.Copy(out, src)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("extract %s: %w", f.Name, err)
	}
	return nil
}
