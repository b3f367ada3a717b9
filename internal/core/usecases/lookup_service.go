package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/folimar/solkat/internal/core/domain"
	"github.com/folimar/solkat/internal/core/ports"
)

// ErrInvalidEGID is returned when a lookup identifier is not a plausible EGID.
var ErrInvalidEGID = errors.New("invalid egid")

// LookupService implements the EGID roof lookup.
type LookupService struct {
	roofs ports.RoofRepository
	cache ports.CacheService
}

// NewLookupService creates a new LookupService.
func NewLookupService(roofs ports.RoofRepository, cache ports.CacheService) *LookupService {
	return &LookupService{roofs: roofs, cache: cache}
}

// Lookup returns roof segments and totals for a building. An empty egid
// picks a random building so the viewer can demo without input. An unknown
// EGID yields an empty result, not an error.
func (s *LookupService) Lookup(ctx context.Context, egid string) (*domain.LookupResult, error) {
	start := time.Now()

	if egid == "" {
		sampled, err := s.roofs.RandomEGID(ctx)
		if err != nil {
			return nil, fmt.Errorf("sample egid: %w", err)
		}
		egid = sampled
	}

	if !domain.ValidEGID(egid) {
		return nil, ErrInvalidEGID
	}

	cacheKey := "lookup:egid:" + egid
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var res domain.LookupResult
			if err := json.Unmarshal(data, &res); err == nil {
				res.ProcessingTimeS = time.Since(start).Seconds()
				return &res, nil
			}
		}
	}

	roofs, err := s.roofs.GetByEGID(ctx, egid)
	if err != nil {
		return nil, fmt.Errorf("roofs for egid %s: %w", egid, err)
	}

	res := domain.NewLookupResult(egid, roofs)
	res.ProcessingTimeS = time.Since(start).Seconds()

	// Roof geometry only changes on dataset refresh.
	if s.cache != nil {
		if data, err := json.Marshal(res); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 600)
		}
	}

	return res, nil
}

// LookupGeoJSON returns the segments of a building as a FeatureCollection.
func (s *LookupService) LookupGeoJSON(ctx context.Context, egid string) (*domain.FeatureCollection, error) {
	if !domain.ValidEGID(egid) {
		return nil, ErrInvalidEGID
	}
	roofs, err := s.roofs.GetByEGID(ctx, egid)
	if err != nil {
		return nil, fmt.Errorf("roofs for egid %s: %w", egid, err)
	}
	return domain.RoofFeatureCollection(roofs), nil
}

// RoofsInBounds returns segments intersecting a WGS 84 bounding box,
// for rendering a map extent.
func (s *LookupService) RoofsInBounds(ctx context.Context, b domain.Bounds, limit int) ([]domain.RoofSegment, error) {
	if limit <= 0 || limit > 2000 {
		limit = 500
	}
	if b.MinLat >= b.MaxLat || b.MinLon >= b.MaxLon {
		return nil, fmt.Errorf("degenerate bounds")
	}
	return s.roofs.FindInEnvelope(ctx, b, limit)
}
