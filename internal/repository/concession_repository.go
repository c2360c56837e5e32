package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/cinema-booking/internal/model"
)

// ConcessionRepo reads the concession menu.
type ConcessionRepo struct {
	db *sql.DB
}

// NewConcessionRepo returns a ConcessionRepo bound to db.
func NewConcessionRepo(db *sql.DB) *ConcessionRepo { return &ConcessionRepo{db: db} }

// ListActive returns the concessions currently on sale ordered by name.
func (r *ConcessionRepo) ListActive(ctx context.Context) ([]model.Concession, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, price_cents, is_active FROM concessions WHERE is_active = 1 ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanConcessions(rows)
}

// GetActiveByIDs returns the active concessions among ids.
func (r *ConcessionRepo) GetActiveByIDs(ctx context.Context, ids []uint64) ([]model.Concession, error) {
	if len(ids) == 0 {
		return []model.Concession{}, nil
	}
	args := make([]interface{}, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, price_cents, is_active FROM concessions
		 WHERE is_active = 1 AND id IN (`+placeholders(len(ids))+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanConcessions(rows)
}

func scanConcessions(rows *sql.Rows) ([]model.Concession, error) {
	out := make([]model.Concession, 0)
	for rows.Next() {
		var c model.Concession
		if err := rows.Scan(&c.ID, &c.Name, &c.PriceCents, &c.IsActive); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
