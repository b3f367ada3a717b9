package usecases

import (
	"context"
	"fmt"

	"github.com/folimar/solkat/internal/core/domain"
	"github.com/folimar/solkat/internal/core/ports"
)

// potentialSlug names the derived aggregate in the dependency log.
const potentialSlug = "building-potential"

// PotentialService serves refined per-building solar aggregates.
type PotentialService struct {
	potential ports.PotentialRepository
	datasets  ports.DatasetRepository
	depLog    ports.DependencyLog
}

// NewPotentialService creates a new PotentialService. datasets and depLog
// are only needed by writers; readers pass nil.
func NewPotentialService(potential ports.PotentialRepository, datasets ports.DatasetRepository, depLog ports.DependencyLog) *PotentialService {
	return &PotentialService{potential: potential, datasets: datasets, depLog: depLog}
}

// GetByEGID returns the aggregate for one building.
func (s *PotentialService) GetByEGID(ctx context.Context, egid string) (*domain.BuildingPotential, error) {
	if !domain.ValidEGID(egid) {
		return nil, ErrInvalidEGID
	}
	return s.potential.GetByEGID(ctx, egid)
}

// Top returns the buildings with the highest total yield.
func (s *PotentialService) Top(ctx context.Context, limit int) ([]domain.BuildingPotential, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.potential.Top(ctx, limit)
}

// Recompute rebuilds the aggregate table from the roof segments.
func (s *PotentialService) Recompute(ctx context.Context) (int64, error) {
	n, err := s.potential.Recompute(ctx)
	if err != nil {
		return 0, fmt.Errorf("recompute potential: %w", err)
	}
	return n, nil
}

// RecomputeIfRequired rebuilds the aggregate only when an input dataset
// version moved since the last build, then records the versions it was
// built from. Without a dataset repo and dependency log it always
// rebuilds. Returns the row count and whether a rebuild ran.
func (s *PotentialService) RecomputeIfRequired(ctx context.Context) (int64, bool, error) {
	if s.datasets == nil || s.depLog == nil {
		n, err := s.Recompute(ctx)
		return n, err == nil, err
	}

	versions, err := s.datasets.List(ctx)
	if err != nil {
		return 0, false, fmt.Errorf("list dataset versions: %w", err)
	}
	current := make(map[string]string, len(versions))
	for _, v := range versions {
		current[v.Slug] = v.Version
	}

	recorded, err := s.depLog.Read(ctx, potentialSlug)
	if err != nil {
		return 0, false, fmt.Errorf("read dependency log: %w", err)
	}

	if len(current) > 0 && !dependenciesMoved(recorded, current) {
		return 0, false, nil
	}

	n, err := s.Recompute(ctx)
	if err != nil {
		return 0, false, err
	}
	if err := s.depLog.Write(ctx, potentialSlug, current); err != nil {
		return n, true, fmt.Errorf("record dependency log: %w", err)
	}
	return n, true, nil
}

func dependenciesMoved(recorded, current map[string]string) bool {
	for slug, cur := range current {
		if recorded[slug] != cur {
			return true
		}
	}
	return false
}
