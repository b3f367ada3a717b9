package landing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const fetchAttempts = 5

// fetchBaseDelay is a var so tests can shrink the backoff.
var fetchBaseDelay = 2 * time.Second

// Fetcher downloads source files into the landing zone.
type Fetcher struct {
	client  *http.Client
	backend Backend
}

// NewFetcher creates a Fetcher. A nil client gets a 120s-timeout default,
// matching the large zip archives the federal portals serve.
func NewFetcher(client *http.Client, backend Backend) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 120 * time.Second}
	}
	return &Fetcher{client: client, backend: backend}
}

// Fetch downloads url into the landing zone under slug, named with the
// given version prefix, and writes the metadata sidecar. Transient
// failures are retried with exponential backoff. Returns the landed name.
func (f *Fetcher) Fetch(ctx context.Context, slug, url, version, base string) (string, error) {
	name := slug + "/" + VersionedName(version, base)

	// Same version already landed: nothing to do.
	if ok, err := f.backend.Exists(ctx, name); err != nil {
		return "", err
	} else if ok {
		slog.Info("already landed", "name", name)
		return name, nil
	}

	var lastErr error
	for attempt := 1; attempt <= fetchAttempts; attempt++ {
		if attempt > 1 {
			delay := fetchBaseDelay * time.Duration(1<<(attempt-2))
			slog.Warn("fetch retry", "url", url, "attempt", attempt, "delay", delay.String(), "error", lastErr)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		lastErr = f.fetchOnce(ctx, name, url)
		if lastErr == nil {
			return name, nil
		}
	}
	return "", fmt.Errorf("fetch %s after %d attempts: %w", url, fetchAttempts, lastErr)
}

func (f *Fetcher) fetchOnce(ctx context.Context, name, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d for %s", resp.StatusCode, url)
	}

	h := sha256.New()
	size, err := f.backend.Put(ctx, name, io.TeeReader(resp.Body, h))
	if err != nil {
		return err
	}

	meta := &Meta{
		SourceURL: url,
		FetchedAt: time.Now().UTC(),
		SHA256:    hex.EncodeToString(h.Sum(nil)),
		Size:      size,
	}
	if err := WriteMeta(ctx, f.backend, name, meta); err != nil {
		return err
	}

	slog.Info("landed", "name", name, "bytes", size)
	return nil
}
