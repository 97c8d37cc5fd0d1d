package postgres

import (
	"context"

	"github.com/samirrijal/busticket/internal/core/domain"
)

// StopRepo implements ports.StopRepository with pgx.
type StopRepo struct {
	db *DB
}

// NewStopRepo creates a new StopRepo.
func NewStopRepo(db *DB) *StopRepo {
	return &StopRepo{db: db}
}

// GetByID returns a stop with its position on the route.
func (r *StopRepo) GetByID(ctx context.Context, id string) (*domain.Stop, error) {
	var s domain.Stop
	err := r.db.q(ctx).QueryRow(ctx, `
		SELECT id, route_id, name, stop_order FROM stops WHERE id = $1
	`, id).Scan(&s.ID, &s.RouteID, &s.Name, &s.Order)
	if err != nil {
		return nil, mapErr(err, "stop "+id)
	}
	return &s, nil
}
