package postgres

import (
	"context"

	"github.com/folimar/solkat/internal/core/domain"
)

// PotentialRepo implements ports.PotentialRepository with pgx.
type PotentialRepo struct {
	db *DB
}

// NewPotentialRepo creates a new PotentialRepo.
func NewPotentialRepo(db *DB) *PotentialRepo {
	return &PotentialRepo{db: db}
}

// Recompute rebuilds the per-building aggregates from the roof segments.
// The table is swapped wholesale inside one transaction so readers never
// see a half-built aggregate.
func (r *PotentialRepo) Recompute(ctx context.Context) (int64, error) {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `TRUNCATE building_potential`); err != nil {
		return 0, err
	}

	tag, err := tx.Exec(ctx, `
		INSERT INTO building_potential (egid, roof_count, total_flaeche, total_stromertrag, updated_at)
		SELECT egid, count(*), sum(flaeche), sum(stromertrag), now()
		FROM roofs
		GROUP BY egid
	`)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// GetByEGID returns the aggregate for one building.
func (r *PotentialRepo) GetByEGID(ctx context.Context, egid string) (*domain.BuildingPotential, error) {
	var p domain.BuildingPotential
	err := r.db.Pool.QueryRow(ctx, `
		SELECT egid, roof_count, total_flaeche, total_stromertrag, updated_at
		FROM building_potential WHERE egid = $1
	`, egid).Scan(&p.EGID, &p.RoofCount, &p.TotalFlaeche, &p.TotalStromertrag, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Top returns the buildings with the highest total yield.
func (r *PotentialRepo) Top(ctx context.Context, limit int) ([]domain.BuildingPotential, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT egid, roof_count, total_flaeche, total_stromertrag, updated_at
		FROM building_potential
		ORDER BY total_stromertrag DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.BuildingPotential
	for rows.Next() {
		var p domain.BuildingPotential
		if err := rows.Scan(&p.EGID, &p.RoofCount, &p.TotalFlaeche, &p.TotalStromertrag, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
