package workflows

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/folimar/solkat/internal/core/usecases"
	"github.com/folimar/solkat/internal/landing"
	"github.com/folimar/solkat/internal/pkg/metrics"
)

// ReleaseInfo is the resolved download target for a dataset release.
type ReleaseInfo struct {
	URL     string
	Version string
}

// RefreshActivities holds the dependencies the refresh workflow needs.
type RefreshActivities struct {
	Fetcher    *landing.Fetcher
	Backend    landing.Backend
	Ingest     *usecases.IngestService
	Potentials *usecases.PotentialService
	Datasets   *usecases.DatasetService
	ScratchDir string
	Client     *http.Client
}

// ResolveLatestRelease asks the publisher's STAC endpoint for the newest
// release of a dataset and returns its download URL and version.
func (a *RefreshActivities) ResolveLatestRelease(ctx context.Context, itemsURL, assetKey string) (*ReleaseInfo, error) {
	asset, err := landing.ResolveAsset(ctx, a.Client, itemsURL, assetKey)
	if err != nil {
		return nil, fmt.Errorf("resolve release: %w", err)
	}
	return &ReleaseInfo{URL: asset.URL, Version: asset.Version}, nil
}

// VersionAlreadyLoaded reports whether the given version of a dataset is
// already recorded in the database.
func (a *RefreshActivities) VersionAlreadyLoaded(ctx context.Context, slug, version string) (bool, error) {
	latest, err := a.Datasets.Latest(ctx, slug)
	if err != nil {
		return false, err
	}
	return latest != nil && latest.Version == version, nil
}

// DownloadAsset lands the asset in the landing zone and returns the
// landed name. Already-landed versions are not re-fetched.
func (a *RefreshActivities) DownloadAsset(ctx context.Context, slug, url, version, baseName string) (string, error) {
	name, err := a.Fetcher.Fetch(ctx, slug, url, version, baseName)
	if err != nil {
		return "", fmt.Errorf("land %s: %w", baseName, err)
	}
	return name, nil
}

// LoadDataset reads a landed file and loads it into the database,
// returning the number of rows written. Zip archives are extracted to
// the scratch directory first.
func (a *RefreshActivities) LoadDataset(ctx context.Context, landedName, slug, version, format string) (int64, error) {
	start := time.Now()

	r, cleanup, err := a.openPayload(ctx, landedName, format)
	if err != nil {
		metrics.RefreshRuns.WithLabelValues(slug, "error").Inc()
		return 0, err
	}
	defer cleanup()

	var rows int64
	switch format {
	case "roof-csv":
		rows, err = a.Ingest.IngestRoofCSV(ctx, r, slug, version)
	case "buildings-geojson":
		rows, err = a.Ingest.IngestBuildingsGeoJSON(ctx, r, slug, version)
	default:
		err = fmt.Errorf("unknown dataset format %q", format)
	}
	if err != nil {
		metrics.RefreshRuns.WithLabelValues(slug, "error").Inc()
		return 0, err
	}

	metrics.RefreshRuns.WithLabelValues(slug, "ok").Inc()
	metrics.RefreshDuration.WithLabelValues(slug).Observe(time.Since(start).Seconds())
	return rows, nil
}

// RemoveLanded deletes a landed file after a failed load so the next
// refresh re-fetches it.
func (a *RefreshActivities) RemoveLanded(ctx context.Context, landedName string) error {
	return a.Backend.Delete(ctx, landedName)
}

// RefinePotential rebuilds the per-building aggregates from the loaded
// roof segments. The rebuild is skipped when the recorded input versions
// match what is loaded.
func (a *RefreshActivities) RefinePotential(ctx context.Context) (int64, error) {
	n, _, err := a.Potentials.RecomputeIfRequired(ctx)
	return n, err
}

// openPayload returns a reader over the data file inside a landed
// object. Plain files are streamed straight from the landing zone; zip
// archives are extracted to scratch and the contained data file opened.
func (a *RefreshActivities) openPayload(ctx context.Context, landedName, format string) (io.Reader, func(), error) {
	if !strings.HasSuffix(landedName, ".zip") {
		r, err := a.Backend.Open(ctx, landedName)
		if err != nil {
			return nil, nil, err
		}
		return r, func() { r.Close() }, nil
	}

	destDir, err := os.MkdirTemp(a.ScratchDir, "extract-*")
	if err != nil {
		return nil, nil, err
	}
	if err := landing.ExtractZip(ctx, a.Backend, landedName, destDir); err != nil {
		os.RemoveAll(destDir)
		return nil, nil, fmt.Errorf("extract %s: %w", landedName, err)
	}

	ext := ".csv"
	if format == "buildings-geojson" {
		ext = ".geojson"
	}
	path, err := findByExt(destDir, ext)
	if err != nil {
		os.RemoveAll(destDir)
		return nil, nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		os.RemoveAll(destDir)
		return nil, nil, err
	}
	cleanup := func() {
		f.Close()
		os.RemoveAll(destDir)
	}
	return f, cleanup, nil
}

func findByExt(dir, ext string) (string, error) {
	var found string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ext) {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if found == "" {
		return "", fmt.Errorf("no %s file in extracted archive", ext)
	}
	return found, nil
}
