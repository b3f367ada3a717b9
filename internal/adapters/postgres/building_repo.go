package postgres

import (
	"context"
	"fmt"

	"github.com/folimar/solkat/internal/core/domain"
	"github.com/jackc/pgx/v5"
)

// BuildingRepo implements ports.BuildingRepository with pgx.
type BuildingRepo struct {
	db *DB
}

// NewBuildingRepo creates a new BuildingRepo.
func NewBuildingRepo(db *DB) *BuildingRepo {
	return &BuildingRepo{db: db}
}

// UpsertBatch inserts many buildings using pgx.Batch.
func (r *BuildingRepo) UpsertBatch(ctx context.Context, buildings []domain.Building) error {
	batch := &pgx.Batch{}
	for _, b := range buildings {
		batch.Queue(`
			INSERT INTO buildings (egid, address, municipality, canton, building_class, status, construction_year, location)
			VALUES ($1, $2, $3, $4, $5, $6, $7, ST_SetSRID(ST_MakePoint($8, $9), 4326)::geography)
			ON CONFLICT (egid) DO UPDATE
			SET address = EXCLUDED.address,
			    municipality = EXCLUDED.municipality,
			    canton = EXCLUDED.canton,
			    building_class = EXCLUDED.building_class,
			    status = EXCLUDED.status,
			    construction_year = EXCLUDED.construction_year,
			    location = EXCLUDED.location
		`, b.EGID, b.Address, b.Municipality, b.Canton, b.BuildingClass,
			b.Status, b.ConstructionYear, b.Location.Lon, b.Location.Lat)
	}
	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()
	for range buildings {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch exec: %w", err)
		}
	}
	return nil
}

// GetByEGID returns a building by its federal identifier.
func (r *BuildingRepo) GetByEGID(ctx context.Context, egid string) (*domain.Building, error) {
	var b domain.Building
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, egid, COALESCE(address, ''), COALESCE(municipality, ''), COALESCE(canton, ''),
		       COALESCE(building_class, 0), COALESCE(status, 0), COALESCE(construction_year, 0),
		       ST_Y(location::geometry) as lat,
		       ST_X(location::geometry) as lon,
		       created_at
		FROM buildings WHERE egid = $1
	`, egid).Scan(
		&b.ID, &b.EGID, &b.Address, &b.Municipality, &b.Canton,
		&b.BuildingClass, &b.Status, &b.ConstructionYear,
		&b.Location.Lat, &b.Location.Lon, &b.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// FindNearby returns buildings within radiusMeters using PostGIS
// ST_DWithin on the geography column, closest first.
func (r *BuildingRepo) FindNearby(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]domain.Building, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, egid, COALESCE(address, ''), COALESCE(municipality, ''), COALESCE(canton, ''),
		       COALESCE(building_class, 0), COALESCE(status, 0), COALESCE(construction_year, 0),
		       ST_Y(location::geometry) as lat,
		       ST_X(location::geometry) as lon,
		       ST_Distance(location, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography) as distance,
		       created_at
		FROM buildings
		WHERE ST_DWithin(location, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography, $3)
		ORDER BY distance
		LIMIT $4
	`, lon, lat, radiusMeters, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var buildings []domain.Building
	for rows.Next() {
		var b domain.Building
		var dist float64
		if err := rows.Scan(
			&b.ID, &b.EGID, &b.Address, &b.Municipality, &b.Canton,
			&b.BuildingClass, &b.Status, &b.ConstructionYear,
			&b.Location.Lat, &b.Location.Lon, &dist, &b.CreatedAt,
		); err != nil {
			return nil, err
		}
		b.Distance = &dist
		buildings = append(buildings, b)
	}
	return buildings, rows.Err()
}

// Search performs fuzzy + full-text search on building addresses.
func (r *BuildingRepo) Search(ctx context.Context, query string, limit int) ([]domain.Building, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, egid, COALESCE(address, ''), COALESCE(municipality, ''), COALESCE(canton, ''),
		       COALESCE(building_class, 0), COALESCE(status, 0), COALESCE(construction_year, 0),
		       ST_Y(location::geometry) as lat,
		       ST_X(location::geometry) as lon,
		       created_at
		FROM buildings
		WHERE address_vector @@ plainto_tsquery('german', $1)
		   OR address %> $1
		ORDER BY similarity(address, $1) DESC
		LIMIT $2
	`, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanBuildings(rows)
}

// Count returns the number of stored buildings.
func (r *BuildingRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.Pool.QueryRow(ctx, `SELECT count(*) FROM buildings`).Scan(&n)
	return n, err
}

func scanBuildings(rows pgx.Rows) ([]domain.Building, error) {
	var buildings []domain.Building
	for rows.Next() {
		var b domain.Building
		if err := rows.Scan(
			&b.ID, &b.EGID, &b.Address, &b.Municipality, &b.Canton,
			&b.BuildingClass, &b.Status, &b.ConstructionYear,
			&b.Location.Lat, &b.Location.Lon, &b.CreatedAt,
		); err != nil {
			return nil, err
		}
		buildings = append(buildings, b)
	}
	return buildings, rows.Err()
}
