package main

import (
	"context"
	"encoding/json"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	natsadapter "github.com/folimar/solkat/internal/adapters/nats"
	"github.com/folimar/solkat/internal/adapters/postgres"
	"github.com/folimar/solkat/internal/core/domain"
	"github.com/folimar/solkat/internal/core/usecases"
	"github.com/folimar/solkat/internal/landing"
	"github.com/folimar/solkat/internal/pkg/config"
	"github.com/folimar/solkat/internal/pkg/logging"
	"github.com/folimar/solkat/internal/workflows"
)

// refreshInterval is how often the refiner checks the cadastre publishers
// for a new release. Releases land monthly, so daily polling is plenty.
const refreshInterval = 24 * time.Hour

type refreshManifest struct {
	Datasets []struct {
		Slug         string `json:"slug"`
		Format       string `json:"format"`
		BaseName     string `json:"base_name"`
		StacItemsURL string `json:"stac_items_url,omitempty"`
		AssetKey     string `json:"asset_key,omitempty"`
	} `json:"datasets"`
}

func main() {
	cfg, err := config.Load("solkat-refiner")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logging.Setup(logLevel, "json")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats: %v", err)
	}
	defer pub.Close()

	backend, err := landing.NewLocalBackend(cfg.Landing.RootDir)
	if err != nil {
		log.Fatalf("landing zone: %v", err)
	}
	if err := os.MkdirAll(cfg.Landing.ScratchDir, 0o755); err != nil {
		log.Fatalf("scratch dir: %v", err)
	}

	httpClient := &http.Client{Timeout: 120 * time.Second}

	roofRepo := postgres.NewRoofRepo(db)
	buildingRepo := postgres.NewBuildingRepo(db)
	datasetRepo := postgres.NewDatasetRepo(db)
	potentialRepo := postgres.NewPotentialRepo(db)

	ingestSvc := usecases.NewIngestService(roofRepo, buildingRepo, datasetRepo, pub)
	potentialSvc := usecases.NewPotentialService(potentialRepo, datasetRepo, landing.NewDepLogStore(backend))
	datasetSvc := usecases.NewDatasetService(datasetRepo)

	// Connect to Temporal
	c, err := client.Dial(client.Options{
		HostPort: cfg.Temporal.HostPort,
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.RefreshWorkflow)
	w.RegisterActivity(&workflows.RefreshActivities{
		Fetcher:    landing.NewFetcher(httpClient, backend),
		Backend:    backend,
		Ingest:     ingestSvc,
		Potentials: potentialSvc,
		Datasets:   datasetSvc,
		ScratchDir: cfg.Landing.ScratchDir,
		Client:     httpClient,
	})

	go func() {
		if err := w.Run(worker.InterruptCh()); err != nil {
			log.Fatalf("worker: %v", err)
		}
	}()
	slog.Info("refiner worker started", "task_queue", cfg.Temporal.TaskQueue)

	// Rebuild the per-building aggregates whenever a dataset lands, no
	// matter which process loaded it.
	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats subscriber: %v", err)
	}
	defer sub.Close()

	err = sub.SubscribeDatasetUpdated(ctx, func(ctx context.Context, v *domain.DatasetVersion) error {
		slog.Info("dataset updated, rebuilding potential", "slug", v.Slug, "version", v.Version)
		n, ran, err := potentialSvc.RecomputeIfRequired(ctx)
		if err != nil {
			return err
		}
		if !ran {
			slog.Info("building_potential already current", "slug", v.Slug)
			return nil
		}
		slog.Info("building_potential rebuilt", "buildings", n)
		return nil
	})
	if err != nil {
		log.Fatalf("subscribe: %v", err)
	}

	// Periodically kick off refresh workflows for the manifest datasets.
	go scheduleRefreshes(ctx, c, cfg.Temporal.TaskQueue)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutting down refiner", "signal", sig.String())
	cancel()
}

// scheduleRefreshes starts a refresh workflow per STAC-announced dataset
// once per interval. The workflow itself skips versions that are already
// loaded, so starting it repeatedly is harmless.
func scheduleRefreshes(ctx context.Context, c client.Client, taskQueue string) {
	manifestPath := "manifest.json"
	if len(os.Args) > 1 {
		manifestPath = os.Args[1]
	}

	data, err := os.ReadFile(manifestPath)
	if err != nil {
		slog.Warn("no manifest, refresh scheduling disabled", "path", manifestPath, "error", err)
		return
	}
	var manifest refreshManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		slog.Warn("bad manifest, refresh scheduling disabled", "error", err)
		return
	}

	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

	for {
		for _, ds := range manifest.Datasets {
			if ds.StacItemsURL == "" {
				continue
			}
			opts := client.StartWorkflowOptions{
				ID:        "refresh-" + ds.Slug + "-" + time.Now().UTC().Format("20060102"),
				TaskQueue: taskQueue,
			}
			input := workflows.RefreshInput{
				Slug:     ds.Slug,
				ItemsURL: ds.StacItemsURL,
				AssetKey: ds.AssetKey,
				BaseName: ds.BaseName,
				Format:   ds.Format,
			}
			if _, err := c.ExecuteWorkflow(ctx, opts, workflows.RefreshWorkflow, input); err != nil {
				slog.Warn("start refresh workflow", "slug", ds.Slug, "error", err)
			}
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}
