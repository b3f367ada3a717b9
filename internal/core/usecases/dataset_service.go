package usecases

import (
	"context"
	"time"

	"github.com/folimar/solkat/internal/core/domain"
	"github.com/folimar/solkat/internal/core/ports"
)

// DatasetService tracks which dataset versions have been loaded.
type DatasetService struct {
	datasets ports.DatasetRepository
}

// NewDatasetService creates a new DatasetService.
func NewDatasetService(datasets ports.DatasetRepository) *DatasetService {
	return &DatasetService{datasets: datasets}
}

// List returns all recorded dataset versions.
func (s *DatasetService) List(ctx context.Context) ([]domain.DatasetVersion, error) {
	return s.datasets.List(ctx)
}

// Latest returns the most recent version for a dataset slug.
func (s *DatasetService) Latest(ctx context.Context, slug string) (*domain.DatasetVersion, error) {
	return s.datasets.Latest(ctx, slug)
}

// IsStale reports whether the loaded version of a dataset is older than
// maxAge. A dataset that was never loaded is always stale.
func (s *DatasetService) IsStale(ctx context.Context, slug string, maxAge time.Duration) (bool, error) {
	v, err := s.datasets.Latest(ctx, slug)
	if err != nil {
		return true, nil
	}
	if v == nil {
		return true, nil
	}
	return time.Since(v.AsOf) > maxAge, nil
}
