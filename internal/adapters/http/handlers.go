package http

import (
	"errors"

	"github.com/folimar/solkat/internal/core/domain"
	"github.com/folimar/solkat/internal/core/usecases"
	"github.com/folimar/solkat/internal/pkg/metrics"
	"github.com/gofiber/fiber/v2"
)

// CadastreStats holds row counts from the cadastre tables.
type CadastreStats struct {
	Roofs      int64  `json:"roofs"`
	Buildings  int64  `json:"buildings"`
	Potentials int64  `json:"potentials"`
	LastIngest string `json:"last_ingest,omitempty"`
}

// LookupHandler serves the EGID roof lookup. Without an egid parameter a
// random building is sampled. An unknown EGID returns an empty data list
// with zero totals, not a 404, so the viewer can render "no data found".
func LookupHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		egid := c.Query("egid")

		res, err := deps.Lookups.Lookup(c.Context(), egid)
		if err != nil {
			if errors.Is(err, usecases.ErrInvalidEGID) {
				metrics.LookupsTotal.WithLabelValues("invalid").Inc()
				return errBadRequest(c, "egid must be 1 to 12 digits")
			}
			metrics.LookupsTotal.WithLabelValues("error").Inc()
			return errInternal(c, err.Error())
		}

		if len(res.Data) == 0 {
			metrics.LookupsTotal.WithLabelValues("empty").Inc()
		} else {
			metrics.LookupsTotal.WithLabelValues("hit").Inc()
		}

		return c.JSON(res)
	}
}

// LookupGeoJSONHandler returns a building's roof segments as GeoJSON.
func LookupGeoJSONHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		egid := c.Query("egid")
		if egid == "" {
			return errBadRequest(c, "egid query parameter is required")
		}

		fc, err := deps.Lookups.LookupGeoJSON(c.Context(), egid)
		if err != nil {
			if errors.Is(err, usecases.ErrInvalidEGID) {
				return errBadRequest(c, "egid must be 1 to 12 digits")
			}
			return errInternal(c, err.Error())
		}

		c.Set("Content-Type", "application/geo+json")
		return c.JSON(fc)
	}
}

// RoofsBBoxHandler returns roof segments inside a map extent.
func RoofsBBoxHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		b := domain.Bounds{
			MinLat: c.QueryFloat("min_lat", 0),
			MinLon: c.QueryFloat("min_lon", 0),
			MaxLat: c.QueryFloat("max_lat", 0),
			MaxLon: c.QueryFloat("max_lon", 0),
		}
		if b.MinLat == 0 || b.MinLon == 0 || b.MaxLat == 0 || b.MaxLon == 0 {
			return errBadRequest(c, "min_lat, min_lon, max_lat and max_lon are required")
		}
		limit := c.QueryInt("limit", 500)

		roofs, err := deps.Lookups.RoofsInBounds(c.Context(), b, limit)
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		c.Set("Content-Type", "application/geo+json")
		return c.JSON(domain.RoofFeatureCollection(roofs))
	}
}

// GetBuildingHandler returns a single building register entry by EGID.
func GetBuildingHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		egid := c.Params("egid")
		if egid == "" {
			return errBadRequest(c, "egid is required")
		}
		b, err := deps.Buildings.GetByEGID(c.Context(), egid)
		if err != nil {
			if errors.Is(err, usecases.ErrInvalidEGID) {
				return errBadRequest(c, "egid must be 1 to 12 digits")
			}
			return errNotFound(c, "building not found")
		}
		return c.JSON(b)
	}
}

// NearbyBuildingsHandler returns buildings within a radius of a point.
func NearbyBuildingsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		lat := c.QueryFloat("lat", 0)
		lon := c.QueryFloat("lon", 0)
		radius := c.QueryFloat("radius", 500)
		limit := c.QueryInt("limit", 50)

		if lat == 0 || lon == 0 {
			return errBadRequest(c, "lat and lon are required")
		}
		if radius <= 0 || radius > 10000 {
			return errBadRequest(c, "radius must be between 1 and 10000 meters")
		}
		if limit <= 0 || limit > 200 {
			limit = 50
		}

		buildings, err := deps.Buildings.FindNearby(c.Context(), lat, lon, radius, limit)
		if err != nil {
			return errInternal(c, err.Error())
		}

		c.Set("Cache-Control", "public, max-age=300")
		return c.JSON(buildings)
	}
}

// SearchBuildingsHandler performs fuzzy search on building addresses.
func SearchBuildingsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		query := c.Query("q")
		if query == "" {
			return errBadRequest(c, "q query parameter is required")
		}
		if len(query) > 200 {
			return errBadRequest(c, "query too long (max 200 characters)")
		}
		limit := c.QueryInt("limit", 20)
		if limit <= 0 || limit > 100 {
			limit = 20
		}

		buildings, err := deps.Buildings.Search(c.Context(), query, limit)
		if err != nil {
			return errInternal(c, err.Error())
		}

		return c.JSON(buildings)
	}
}

// GetPotentialHandler returns the refined aggregate for one building.
func GetPotentialHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		egid := c.Params("egid")
		if egid == "" {
			return errBadRequest(c, "egid is required")
		}
		p, err := deps.Potentials.GetByEGID(c.Context(), egid)
		if err != nil {
			if errors.Is(err, usecases.ErrInvalidEGID) {
				return errBadRequest(c, "egid must be 1 to 12 digits")
			}
			return errNotFound(c, "no refined potential for this building")
		}
		return c.JSON(p)
	}
}

// TopPotentialHandler returns the buildings with the highest solar yield.
func TopPotentialHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit := c.QueryInt("limit", 20)

		top, err := deps.Potentials.Top(c.Context(), limit)
		if err != nil {
			return errInternal(c, err.Error())
		}
		return c.JSON(top)
	}
}

// ListDatasetsHandler returns the loaded version of every source dataset.
func ListDatasetsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		versions, err := deps.Datasets.List(c.Context())
		if err != nil {
			return errInternal(c, err.Error())
		}

		// Apply offset/limit pagination on the full list
		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", 100)
		if offset < 0 {
			offset = 0
		}
		if limit <= 0 || limit > 200 {
			limit = 100
		}

		total := len(versions)
		if offset >= total {
			versions = nil
		} else {
			end := offset + limit
			if end > total {
				end = total
			}
			versions = versions[offset:end]
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: versions, Pagination: pg})
	}
}

// DatasetStatusHandler returns row counts from the cadastre tables.
func DatasetStatusHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.DB == nil {
			return errInternal(c, "database not available")
		}

		var stats CadastreStats
		row := deps.DB.Pool.QueryRow(c.Context(), `
			SELECT
				(SELECT count(*) FROM roofs),
				(SELECT count(*) FROM buildings),
				(SELECT count(*) FROM building_potential),
				COALESCE((SELECT max(created_at)::text FROM dataset_versions), '')
		`)
		if err := row.Scan(&stats.Roofs, &stats.Buildings, &stats.Potentials, &stats.LastIngest); err != nil {
			return errInternal(c, err.Error())
		}

		c.Set("Cache-Control", "public, max-age=60")
		return c.JSON(stats)
	}
}
