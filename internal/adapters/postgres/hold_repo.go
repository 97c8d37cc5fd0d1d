package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/busticket/internal/core/domain"
)

// HoldRepo implements ports.SeatHoldRepository with pgx.
type HoldRepo struct {
	db *DB
}

// NewHoldRepo creates a new HoldRepo.
func NewHoldRepo(db *DB) *HoldRepo {
	return &HoldRepo{db: db}
}

const holdColumns = `id, trip_id, seat_number, user_id, expires_at, status, created_at`

func scanHold(row pgx.Row) (*domain.SeatHold, error) {
	var h domain.SeatHold
	if err := row.Scan(&h.ID, &h.TripID, &h.SeatNumber, &h.UserID, &h.ExpiresAt, &h.Status, &h.CreatedAt); err != nil {
		return nil, err
	}
	return &h, nil
}

func collectHolds(rows pgx.Rows) ([]domain.SeatHold, error) {
	defer rows.Close()
	holds := []domain.SeatHold{}
	for rows.Next() {
		h, err := scanHold(rows)
		if err != nil {
			return nil, err
		}
		holds = append(holds, *h)
	}
	return holds, rows.Err()
}

func (r *HoldRepo) Create(ctx context.Context, h *domain.SeatHold) error {
	_, err := r.db.q(ctx).Exec(ctx, `
		INSERT INTO seat_holds (id, trip_id, seat_number, user_id, expires_at, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, h.ID, h.TripID, h.SeatNumber, h.UserID, h.ExpiresAt, h.Status, h.CreatedAt)
	return mapErr(err, "insert hold")
}

func (r *HoldRepo) GetByID(ctx context.Context, id string) (*domain.SeatHold, error) {
	h, err := scanHold(r.db.q(ctx).QueryRow(ctx, `SELECT `+holdColumns+` FROM seat_holds WHERE id = $1`, id))
	if err != nil {
		return nil, mapErr(err, "hold "+id)
	}
	return h, nil
}

func (r *HoldRepo) Expire(ctx context.Context, id string, at time.Time) (bool, error) {
	return r.transition(ctx, id, domain.HoldExpired, at)
}

func (r *HoldRepo) Consume(ctx context.Context, id string, at time.Time) (bool, error) {
	return r.transition(ctx, id, domain.HoldConsumed, at)
}

func (r *HoldRepo) transition(ctx context.Context, id string, to domain.HoldStatus, at time.Time) (bool, error) {
	tag, err := r.db.q(ctx).Exec(ctx, `
		UPDATE seat_holds SET status = $2, updated_at = $3
		WHERE id = $1 AND status = 'HOLD'
	`, id, to, at)
	if err != nil {
		return false, mapErr(err, "update hold")
	}
	return tag.RowsAffected() == 1, nil
}

func (r *HoldRepo) ExpireAll(ctx context.Context, now time.Time) ([]domain.SeatHold, error) {
	rows, err := r.db.q(ctx).Query(ctx, `
		UPDATE seat_holds SET status = 'EXPIRED', updated_at = $1
		WHERE status = 'HOLD' AND expires_at < $1
		RETURNING `+holdColumns, now)
	if err != nil {
		return nil, mapErr(err, "expire holds")
	}
	holds, err := collectHolds(rows)
	return holds, mapErr(err, "scan expired holds")
}

func (r *HoldRepo) ListExpired(ctx context.Context, now time.Time, limit int) ([]domain.SeatHold, error) {
	rows, err := r.db.q(ctx).Query(ctx, `
		SELECT `+holdColumns+` FROM seat_holds
		WHERE status = 'HOLD' AND expires_at < $1
		ORDER BY expires_at
		LIMIT $2
	`, now, limit)
	if err != nil {
		return nil, mapErr(err, "list expired holds")
	}
	holds, err := collectHolds(rows)
	return holds, mapErr(err, "scan expired holds")
}

func (r *HoldRepo) ListActiveBySeat(ctx context.Context, tripID, seatNumber string, now time.Time) ([]domain.SeatHold, error) {
	rows, err := r.db.q(ctx).Query(ctx, `
		SELECT `+holdColumns+` FROM seat_holds
		WHERE trip_id = $1 AND seat_number = $2 AND status = 'HOLD' AND expires_at > $3
	`, tripID, seatNumber, now)
	if err != nil {
		return nil, mapErr(err, "list seat holds")
	}
	holds, err := collectHolds(rows)
	return holds, mapErr(err, "scan seat holds")
}
