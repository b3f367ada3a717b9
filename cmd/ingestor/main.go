package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	natsadapter "github.com/folimar/solkat/internal/adapters/nats"
	"github.com/folimar/solkat/internal/adapters/postgres"
	"github.com/folimar/solkat/internal/core/ports"
	"github.com/folimar/solkat/internal/core/usecases"
	"github.com/folimar/solkat/internal/landing"
	"github.com/folimar/solkat/internal/pkg/config"
)

// ---------------------------------------------------------------------------
// Manifest types
// ---------------------------------------------------------------------------

type Manifest struct {
	Source   string         `json:"source"`
	Datasets []DatasetEntry `json:"datasets"`
}

type DatasetEntry struct {
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	Format   string `json:"format"` // "roof-csv" | "buildings-geojson"
	BaseName string `json:"base_name"`

	// Either a fixed download URL or a STAC items endpoint with an asset key.
	URL          string `json:"url,omitempty"`
	StacItemsURL string `json:"stac_items_url,omitempty"`
	AssetKey     string `json:"asset_key,omitempty"`

	// Fixed-URL datasets are refetched only once the last load is older
	// than this many days. Zero means always refetch.
	MaxAgeDays int `json:"max_age_days,omitempty"`
}

// ---------------------------------------------------------------------------
// Main
// ---------------------------------------------------------------------------

func main() {
	cfg, err := config.Load("solkat-ingestor")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	// Event publisher is optional for batch runs.
	var publisher ports.EventPublisher
	if pub, err := natsadapter.NewPublisher(cfg.NATS.URL); err != nil {
		log.Printf("nats unavailable, ingesting without events: %v", err)
	} else {
		defer pub.Close()
		publisher = pub
	}

	backend, err := landing.NewLocalBackend(cfg.Landing.RootDir)
	if err != nil {
		log.Fatalf("landing zone: %v", err)
	}
	if err := os.MkdirAll(cfg.Landing.ScratchDir, 0o755); err != nil {
		log.Fatalf("scratch dir: %v", err)
	}

	client := &http.Client{Timeout: 120 * time.Second}
	fetcher := landing.NewFetcher(client, backend)

	roofRepo := postgres.NewRoofRepo(db)
	buildingRepo := postgres.NewBuildingRepo(db)
	datasetRepo := postgres.NewDatasetRepo(db)
	potentialRepo := postgres.NewPotentialRepo(db)

	ingest := usecases.NewIngestService(roofRepo, buildingRepo, datasetRepo, publisher)
	datasets := usecases.NewDatasetService(datasetRepo)
	potentials := usecases.NewPotentialService(potentialRepo, datasetRepo, landing.NewDepLogStore(backend))

	// Load manifest
	manifestPath := "manifest.json"
	if len(os.Args) > 1 {
		manifestPath = os.Args[1]
	}

	data, err := os.ReadFile(manifestPath)
	if err != nil {
		log.Fatalf("read manifest: %v", err)
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		log.Fatalf("parse manifest: %v", err)
	}

	log.Printf("Solkat ingestor — %d datasets from %s", len(manifest.Datasets), manifest.Source)

	// Filter datasets (optional CLI arg: slug list)
	slugFilter := map[string]bool{}
	if len(os.Args) > 2 {
		for _, s := range strings.Split(os.Args[2], ",") {
			slugFilter[strings.TrimSpace(s)] = true
		}
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, 4) // max 4 concurrent downloads

	for _, ds := range manifest.Datasets {
		if len(slugFilter) > 0 && !slugFilter[ds.Slug] {
			continue
		}

		wg.Add(1)
		go func(d DatasetEntry) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if err := ingestDataset(ctx, client, fetcher, backend, ingest, datasets, cfg.Landing.ScratchDir, d); err != nil {
				log.Printf("ERROR [%s]: %v", d.Slug, err)
			}
		}(ds)
	}

	wg.Wait()

	// Rebuild the per-building aggregates once everything is loaded, but
	// only when an input dataset actually moved.
	buildings, ran, err := potentials.RecomputeIfRequired(ctx)
	switch {
	case err != nil:
		log.Printf("ERROR recompute potential: %v", err)
	case !ran:
		log.Println("building_potential up to date, recompute skipped")
	default:
		log.Printf("building_potential rebuilt: %d buildings", buildings)
	}

	log.Println("ingestion complete")
}

// ---------------------------------------------------------------------------
// Per-dataset ingestion
// ---------------------------------------------------------------------------

func ingestDataset(
	ctx context.Context,
	client *http.Client,
	fetcher *landing.Fetcher,
	backend landing.Backend,
	ingest *usecases.IngestService,
	datasets *usecases.DatasetService,
	scratchDir string,
	ds DatasetEntry,
) error {
	url := ds.URL
	version := landing.FormatVersion(time.Now())

	// STAC-announced datasets carry their release date; fixed URLs are
	// versioned by fetch date and skipped while the last load is fresh.
	if ds.StacItemsURL == "" && ds.MaxAgeDays > 0 {
		stale, err := datasets.IsStale(ctx, ds.Slug, time.Duration(ds.MaxAgeDays)*24*time.Hour)
		if err != nil {
			return fmt.Errorf("check staleness: %w", err)
		}
		if !stale {
			log.Printf("[%s] fresh within %d days, skipping", ds.Slug, ds.MaxAgeDays)
			return nil
		}
	}
	if ds.StacItemsURL != "" {
		asset, err := landing.ResolveAsset(ctx, client, ds.StacItemsURL, ds.AssetKey)
		if err != nil {
			return fmt.Errorf("resolve release: %w", err)
		}
		url = asset.URL
		version = asset.Version
	}
	if url == "" {
		return fmt.Errorf("dataset %s has neither url nor stac_items_url", ds.Slug)
	}

	log.Printf("[%s] landing %s version %s", ds.Slug, ds.BaseName, version)

	name, err := fetcher.Fetch(ctx, ds.Slug, url, version, ds.BaseName)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}

	r, cleanup, err := openPayload(ctx, backend, scratchDir, name, ds.Format)
	if err != nil {
		return err
	}
	defer cleanup()

	var rows int64
	switch ds.Format {
	case "roof-csv":
		rows, err = ingest.IngestRoofCSV(ctx, r, ds.Slug, version)
	case "buildings-geojson":
		rows, err = ingest.IngestBuildingsGeoJSON(ctx, r, ds.Slug, version)
	default:
		return fmt.Errorf("unknown format %q", ds.Format)
	}
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}

	log.Printf("[%s] done: %d rows", ds.Slug, rows)
	return nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// openPayload opens the data file inside a landed object, extracting zip
// archives into the scratch directory first.
func openPayload(ctx context.Context, backend landing.Backend, scratchDir, name, format string) (io.Reader, func(), error) {
	if !strings.HasSuffix(name, ".zip") {
		r, err := backend.Open(ctx, name)
		if err != nil {
			return nil, nil, err
		}
		return r, func() { r.Close() }, nil
	}

	destDir, err := os.MkdirTemp(scratchDir, "extract-*")
	if err != nil {
		return nil, nil, err
	}
	if err := landing.ExtractZip(ctx, backend, name, destDir); err != nil {
		os.RemoveAll(destDir)
		return nil, nil, fmt.Errorf("extract %s: %w", name, err)
	}

	ext := ".csv"
	if format == "buildings-geojson" {
		ext = ".geojson"
	}

	var path string
	err = filepath.WalkDir(destDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(p), ext) {
			path = p
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		os.RemoveAll(destDir)
		return nil, nil, err
	}
	if path == "" {
		os.RemoveAll(destDir)
		return nil, nil, fmt.Errorf("no %s file in %s", ext, name)
	}

	f, err := os.Open(path)
	if err != nil {
		os.RemoveAll(destDir)
		return nil, nil, err
	}
	return f, func() { f.Close(); os.RemoveAll(destDir) }, nil
}
