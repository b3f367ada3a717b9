package usecases

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/folimar/solkat/internal/core/domain"
	"github.com/folimar/solkat/internal/core/ports"
)

// BuildingService handles building register queries.
type BuildingService struct {
	buildings ports.BuildingRepository
	cache     ports.CacheService
}

// NewBuildingService creates a new BuildingService.
func NewBuildingService(buildings ports.BuildingRepository, cache ports.CacheService) *BuildingService {
	return &BuildingService{buildings: buildings, cache: cache}
}

// GetByEGID returns a single building.
func (s *BuildingService) GetByEGID(ctx context.Context, egid string) (*domain.Building, error) {
	if !domain.ValidEGID(egid) {
		return nil, ErrInvalidEGID
	}

	cacheKey := "buildings:egid:" + egid
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var b domain.Building
			if err := json.Unmarshal(data, &b); err == nil {
				return &b, nil
			}
		}
	}

	b, err := s.buildings.GetByEGID(ctx, egid)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(b); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 600)
		}
	}

	return b, nil
}

// FindNearby returns buildings within radiusMeters of the given point,
// closest first. Distance filtering and ordering happen in PostGIS on the
// indexed geography column.
func (s *BuildingService) FindNearby(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]domain.Building, error) {
	if radiusMeters <= 0 || radiusMeters > 10000 {
		return nil, fmt.Errorf("radius must be between 1 and 10000 meters")
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.buildings.FindNearby(ctx, lat, lon, radiusMeters, limit)
}

// Search performs fuzzy address search.
func (s *BuildingService) Search(ctx context.Context, query string, limit int) ([]domain.Building, error) {
	if query == "" {
		return nil, fmt.Errorf("search query must not be empty")
	}
	if limit <= 0 || limit > 50 {
		limit = 20
	}

	cacheKey := fmt.Sprintf("buildings:search:%s:%d", query, limit)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var buildings []domain.Building
			if err := json.Unmarshal(data, &buildings); err == nil {
				return buildings, nil
			}
		}
	}

	buildings, err := s.buildings.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(buildings); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 300)
		}
	}

	return buildings, nil
}
