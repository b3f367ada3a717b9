package postgres

import (
	"context"
	"errors"

	"github.com/folimar/solkat/internal/core/domain"
	"github.com/jackc/pgx/v5"
)

// DatasetRepo implements ports.DatasetRepository with pgx.
type DatasetRepo struct {
	db *DB
}

// NewDatasetRepo creates a new DatasetRepo.
func NewDatasetRepo(db *DB) *DatasetRepo {
	return &DatasetRepo{db: db}
}

// RecordVersion records one loaded dataset version. Loading the same
// version twice refreshes its row count and timestamp.
func (r *DatasetRepo) RecordVersion(ctx context.Context, v *domain.DatasetVersion) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO dataset_versions (slug, version, as_of, row_count)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (slug, version) DO UPDATE
		SET as_of = EXCLUDED.as_of, row_count = EXCLUDED.row_count
	`, v.Slug, v.Version, v.AsOf, v.RowCount)
	return err
}

// Latest returns the most recent version of a dataset, or nil when the
// dataset has never been loaded.
func (r *DatasetRepo) Latest(ctx context.Context, slug string) (*domain.DatasetVersion, error) {
	var v domain.DatasetVersion
	err := r.db.Pool.QueryRow(ctx, `
		SELECT slug, version, as_of, row_count, created_at
		FROM dataset_versions
		WHERE slug = $1
		ORDER BY version DESC
		LIMIT 1
	`, slug).Scan(&v.Slug, &v.Version, &v.AsOf, &v.RowCount, &v.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// List returns the newest version of every dataset.
func (r *DatasetRepo) List(ctx context.Context) ([]domain.DatasetVersion, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT DISTINCT ON (slug) slug, version, as_of, row_count, created_at
		FROM dataset_versions
		ORDER BY slug, version DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.DatasetVersion
	for rows.Next() {
		var v domain.DatasetVersion
		if err := rows.Scan(&v.Slug, &v.Version, &v.AsOf, &v.RowCount, &v.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
