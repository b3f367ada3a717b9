package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// RefreshInput is the input for the dataset refresh workflow.
type RefreshInput struct {
	Slug     string // dataset slug, e.g. "solkat-ch-dach"
	ItemsURL string // STAC items endpoint announcing releases
	AssetKey string // which asset of the release to download
	BaseName string // landed filename, e.g. "SOLKAT_CH_DACH.zip"
	Format   string // "roof-csv" | "buildings-geojson"
}

// RefreshResult reports what a refresh run did.
type RefreshResult struct {
	Version string
	Rows    int64
	Skipped bool
}

// RefreshWorkflow orchestrates one dataset refresh: resolve the newest
// release, land the asset, load it into the database, and rebuild the
// per-building aggregates. If the load fails the landed file is removed
// (saga compensation) so the next run starts clean.
func RefreshWorkflow(ctx workflow.Context, input RefreshInput) (*RefreshResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting dataset refresh", "slug", input.Slug)

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Minute,
		HeartbeatTimeout:    2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)

	// Step 1: resolve the newest release
	var release ReleaseInfo
	err := workflow.ExecuteActivity(ctx, "ResolveLatestRelease", input.ItemsURL, input.AssetKey).Get(ctx, &release)
	if err != nil {
		return nil, err
	}

	// Step 2: skip when that version is already loaded
	var loaded bool
	err = workflow.ExecuteActivity(ctx, "VersionAlreadyLoaded", input.Slug, release.Version).Get(ctx, &loaded)
	if err != nil {
		return nil, err
	}
	if loaded {
		logger.Info("Dataset up to date", "slug", input.Slug, "version", release.Version)
		return &RefreshResult{Version: release.Version, Skipped: true}, nil
	}

	// Step 3: land the asset
	var landedName string
	err = workflow.ExecuteActivity(ctx, "DownloadAsset", input.Slug, release.URL, release.Version, input.BaseName).Get(ctx, &landedName)
	if err != nil {
		return nil, err
	}

	// Step 4: load into the database
	var rows int64
	err = workflow.ExecuteActivity(ctx, "LoadDataset", landedName, input.Slug, release.Version, input.Format).Get(ctx, &rows)
	if err != nil {
		logger.Warn("load failed, removing landed file", "name", landedName, "error", err)
		// Compensate: drop the landed file so the next run re-fetches
		_ = workflow.ExecuteActivity(ctx, "RemoveLanded", landedName).Get(ctx, nil)
		return nil, err
	}

	// Step 5: rebuild per-building aggregates
	var refined int64
	err = workflow.ExecuteActivity(ctx, "RefinePotential").Get(ctx, &refined)
	if err != nil {
		return nil, err
	}

	logger.Info("Dataset refresh complete", "slug", input.Slug, "version", release.Version, "rows", rows, "buildings", refined)
	return &RefreshResult{Version: release.Version, Rows: rows}, nil
}
