package postgres

import (
	"context"

	"github.com/samirrijal/busticket/internal/core/domain"
)

// PassengerRepo implements ports.PassengerRepository.
type PassengerRepo struct {
	db *DB
}

func NewPassengerRepo(db *DB) *PassengerRepo {
	return &PassengerRepo{db: db}
}

func (r *PassengerRepo) GetByID(ctx context.Context, id string) (*domain.Passenger, error) {
	var p domain.Passenger
	err := r.db.q(ctx).QueryRow(ctx, `
		SELECT id, full_name, COALESCE(phone, '') FROM passengers WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.Phone)
	if err != nil {
		return nil, mapErr(err, "passenger "+id)
	}
	return &p, nil
}
