package ports

import (
	"context"

	"github.com/folimar/solkat/internal/core/domain"
)

// RoofRepository persists roof segments from the solar cadastre.
type RoofRepository interface {
	UpsertBatch(ctx context.Context, roofs []domain.RoofSegment) error
	GetByEGID(ctx context.Context, egid string) ([]domain.RoofSegment, error)
	FindInEnvelope(ctx context.Context, b domain.Bounds, limit int) ([]domain.RoofSegment, error)
	// RandomEGID returns an arbitrary EGID that has roof data, for demo
	// lookups when no identifier is supplied.
	RandomEGID(ctx context.Context) (string, error)
	Count(ctx context.Context) (int64, error)
}

// BuildingRepository persists GWR building register entries.
type BuildingRepository interface {
	UpsertBatch(ctx context.Context, buildings []domain.Building) error
	GetByEGID(ctx context.Context, egid string) (*domain.Building, error)
	FindNearby(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]domain.Building, error)
	Search(ctx context.Context, query string, limit int) ([]domain.Building, error)
	Count(ctx context.Context) (int64, error)
}

// PotentialRepository persists refined per-building solar aggregates.
type PotentialRepository interface {
	// Recompute rebuilds the aggregate table from the roof segments and
	// returns the number of buildings written.
	Recompute(ctx context.Context) (int64, error)
	GetByEGID(ctx context.Context, egid string) (*domain.BuildingPotential, error)
	Top(ctx context.Context, limit int) ([]domain.BuildingPotential, error)
}

// DatasetRepository tracks loaded dataset versions.
type DatasetRepository interface {
	RecordVersion(ctx context.Context, v *domain.DatasetVersion) error
	Latest(ctx context.Context, slug string) (*domain.DatasetVersion, error)
	List(ctx context.Context) ([]domain.DatasetVersion, error)
}
