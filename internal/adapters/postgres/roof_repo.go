package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/folimar/solkat/internal/core/domain"
	"github.com/jackc/pgx/v5"
)

// RoofRepo implements ports.RoofRepository with pgx.
//
// Roof geometries are stored in the cadastre's native LV95 frame
// (EPSG:2056) and transformed to WGS 84 on read, so clients always see
// GeoJSON they can put on a web map.
type RoofRepo struct {
	db *DB
}

// NewRoofRepo creates a new RoofRepo.
func NewRoofRepo(db *DB) *RoofRepo {
	return &RoofRepo{db: db}
}

// UpsertBatch inserts many roof segments using pgx.Batch.
func (r *RoofRepo) UpsertBatch(ctx context.Context, roofs []domain.RoofSegment) error {
	batch := &pgx.Batch{}
	for _, s := range roofs {
		geo, err := json.Marshal(s.Geometry)
		if err != nil {
			return fmt.Errorf("roof %s: %w", s.ID, err)
		}
		batch.Queue(`
			INSERT INTO roofs (roof_id, egid, area_ratio_original, flaeche, stromertrag, klasse, geom)
			VALUES ($1, $2, $3, $4, $5, $6, ST_SetSRID(ST_GeomFromGeoJSON($7), 2056))
			ON CONFLICT (roof_id) DO UPDATE
			SET egid = EXCLUDED.egid,
			    area_ratio_original = EXCLUDED.area_ratio_original,
			    flaeche = EXCLUDED.flaeche,
			    stromertrag = EXCLUDED.stromertrag,
			    klasse = EXCLUDED.klasse,
			    geom = EXCLUDED.geom
		`, s.ID, s.EGID, s.AreaRatioOriginal, s.Flaeche, s.Stromertrag, s.Klasse, geo)
	}
	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()
	for range roofs {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch exec: %w", err)
		}
	}
	return nil
}

// GetByEGID returns all roof segments of a building, largest first.
func (r *RoofRepo) GetByEGID(ctx context.Context, egid string) ([]domain.RoofSegment, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT roof_id, egid, area_ratio_original, flaeche, stromertrag, klasse,
		       ST_AsGeoJSON(ST_Transform(geom, 4326)),
		       created_at
		FROM roofs
		WHERE egid = $1
		ORDER BY flaeche DESC
	`, egid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRoofs(rows)
}

// FindInEnvelope returns roof segments intersecting a WGS 84 bounding box.
func (r *RoofRepo) FindInEnvelope(ctx context.Context, b domain.Bounds, limit int) ([]domain.RoofSegment, error) {
	minE, minN, maxE, maxN := domain.BoundsToLV95(b)
	rows, err := r.db.Pool.Query(ctx, `
		SELECT roof_id, egid, area_ratio_original, flaeche, stromertrag, klasse,
		       ST_AsGeoJSON(ST_Transform(geom, 4326)),
		       created_at
		FROM roofs
		WHERE geom && ST_MakeEnvelope($1, $2, $3, $4, 2056)
		ORDER BY stromertrag DESC
		LIMIT $5
	`, minE, minN, maxE, maxN, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRoofs(rows)
}

// RandomEGID samples an arbitrary EGID that has roof data.
func (r *RoofRepo) RandomEGID(ctx context.Context) (string, error) {
	var egid string
	// TABLESAMPLE is cheap on the multi-million row cadastre but can come
	// back empty on a small page, so fall back to a plain sample.
	err := r.db.Pool.QueryRow(ctx, `
		SELECT egid FROM roofs TABLESAMPLE SYSTEM (0.01) LIMIT 1
	`).Scan(&egid)
	if err == pgx.ErrNoRows {
		err = r.db.Pool.QueryRow(ctx, `
			SELECT egid FROM roofs LIMIT 1
		`).Scan(&egid)
	}
	if err != nil {
		return "", err
	}
	return egid, nil
}

// Count returns the number of stored roof segments.
func (r *RoofRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.Pool.QueryRow(ctx, `SELECT count(*) FROM roofs`).Scan(&n)
	return n, err
}

func scanRoofs(rows pgx.Rows) ([]domain.RoofSegment, error) {
	var roofs []domain.RoofSegment
	for rows.Next() {
		var s domain.RoofSegment
		var geo []byte
		if err := rows.Scan(
			&s.ID, &s.EGID, &s.AreaRatioOriginal, &s.Flaeche, &s.Stromertrag, &s.Klasse,
			&geo, &s.CreatedAt,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(geo, &s.Geometry); err != nil {
			return nil, fmt.Errorf("roof %s: %w", s.ID, err)
		}
		roofs = append(roofs, s)
	}
	return roofs, rows.Err()
}
