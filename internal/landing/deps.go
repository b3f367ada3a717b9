package landing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Derived datasets record the versions of the inputs they were built from.
// When a newer version of any input lands, the derived dataset needs a
// refresh. The log is one JSON file per derived dataset.

const depLogBase = "dependency_versions.json"

// DepLog maps input dataset slug to the version that was used.
type DepLog map[string]string

func depLogName(slug string) string {
	return slug + "/" + depLogBase
}

// WriteDepLog records the input versions a derived dataset was built from.
func WriteDepLog(ctx context.Context, b Backend, slug string, log DepLog) error {
	data, err := json.MarshalIndent(log, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal dep log: %w", err)
	}
	if _, err := b.Put(ctx, depLogName(slug), bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write dep log for %s: %w", slug, err)
	}
	return nil
}

// ReadDepLog loads the recorded input versions. A missing log reads as
// empty, which makes every dependency look outdated.
func ReadDepLog(ctx context.Context, b Backend, slug string) (DepLog, error) {
	rc, err := b.Open(ctx, depLogName(slug))
	if os.IsNotExist(err) {
		return DepLog{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open dep log for %s: %w", slug, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read dep log for %s: %w", slug, err)
	}

	var log DepLog
	if err := json.Unmarshal(data, &log); err != nil {
		return nil, fmt.Errorf("parse dep log for %s: %w", slug, err)
	}
	return log, nil
}

// DepLogStore keeps dependency logs in the landing zone and satisfies the
// core DependencyLog port.
type DepLogStore struct {
	backend Backend
}

// NewDepLogStore creates a DepLogStore on the given backend.
func NewDepLogStore(b Backend) *DepLogStore {
	return &DepLogStore{backend: b}
}

func (s *DepLogStore) Read(ctx context.Context, slug string) (map[string]string, error) {
	log, err := ReadDepLog(ctx, s.backend, slug)
	if err != nil {
		return nil, err
	}
	return log, nil
}

func (s *DepLogStore) Write(ctx context.Context, slug string, versions map[string]string) error {
	return WriteDepLog(ctx, s.backend, slug, versions)
}
