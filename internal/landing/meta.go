package landing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"
)

const metaSuffix = "__meta.json"

// Meta is the sidecar written next to every landed file. It records where
// the bytes came from and what they hashed to at landing time.
type Meta struct {
	SourceURL string    `json:"source_url"`
	FetchedAt time.Time `json:"fetched_at"`
	SHA256    string    `json:"sha256"`
	Size      int64     `json:"size"`
}

// MetaName returns the sidecar name for a landed file.
func MetaName(name string) string {
	return name + metaSuffix
}

// WriteMeta stores the metadata sidecar for a landed file.
func WriteMeta(ctx context.Context, b Backend, name string, m *Meta) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal meta: %w", err)
	}
	if _, err := b.Put(ctx, MetaName(name), bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write meta for %s: %w", name, err)
	}
	return nil
}

// ReadMeta loads the metadata sidecar for a landed file.
func ReadMeta(ctx context.Context, b Backend, name string) (*Meta, error) {
	rc, err := b.Open(ctx, MetaName(name))
	if err != nil {
		return nil, fmt.Errorf("open meta for %s: %w", name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read meta for %s: %w", name, err)
	}

	var m Meta
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse meta for %s: %w", name, err)
	}
	return &m, nil
}
