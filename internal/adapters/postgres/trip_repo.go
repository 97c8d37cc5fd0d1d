package postgres

import (
	"context"

	"github.com/samirrijal/busticket/internal/core/domain"
)

// TripRepo implements ports.TripRepository.
type TripRepo struct {
	db *DB
}

func NewTripRepo(db *DB) *TripRepo {
	return &TripRepo{db: db}
}

func (r *TripRepo) GetByID(ctx context.Context, id string) (*domain.Trip, error) {
	tr := &domain.Trip{}
	err := r.db.q(ctx).QueryRow(ctx, `
		SELECT id, route_id, bus_id, service_date, departure_at, arrival_eta, status
		FROM trips WHERE id = $1
	`, id).Scan(&tr.ID, &tr.RouteID, &tr.BusID, &tr.Date, &tr.DepartureAt, &tr.ArrivalETA, &tr.Status)
	if err != nil {
		return nil, mapErr(err, "trip "+id)
	}
	return tr, nil
}
