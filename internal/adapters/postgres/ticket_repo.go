package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/samirrijal/busticket/internal/core/domain"
)

// TicketRepo implements ports.TicketRepository with pgx.
type TicketRepo struct {
	db *DB
}

// NewTicketRepo creates a new TicketRepo.
func NewTicketRepo(db *DB) *TicketRepo {
	return &TicketRepo{db: db}
}

const ticketColumns = `
	t.id, t.trip_id, t.passenger_id, t.seat_number,
	t.from_stop_id, t.to_stop_id, fs.stop_order, ts.stop_order,
	t.price, t.payment_method, t.status, t.qr_code,
	t.no_show_fee, t.refund_amount, t.created_at, t.updated_at`

const ticketFrom = `
	FROM tickets t
	JOIN stops fs ON fs.id = t.from_stop_id
	JOIN stops ts ON ts.id = t.to_stop_id`

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var (
		t      domain.Ticket
		fee    decimal.NullDecimal
		refund decimal.NullDecimal
	)
	err := row.Scan(&t.ID, &t.TripID, &t.PassengerID, &t.SeatNumber,
		&t.FromStopID, &t.ToStopID, &t.FromOrder, &t.ToOrder,
		&t.Price, &t.PaymentMethod, &t.Status, &t.QRCode,
		&fee, &refund, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if fee.Valid {
		t.NoShowFee = &fee.Decimal
	}
	if refund.Valid {
		t.RefundAmount = &refund.Decimal
	}
	return &t, nil
}

func collectTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	defer rows.Close()
	tickets := []domain.Ticket{}
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, *t)
	}
	return tickets, rows.Err()
}

// WithSeatLock takes a transaction-scoped advisory lock keyed by trip and
// seat, then runs fn in that transaction. The lock is released on commit
// or rollback.
func (r *TicketRepo) WithSeatLock(ctx context.Context, tripID, seatNumber string, fn func(ctx context.Context) error) error {
	return r.db.inTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1::text || ':' || $2::text, 0))`, tripID, seatNumber); err != nil {
			return mapErr(err, "seat lock")
		}
		return fn(ctx)
	})
}

func (r *TicketRepo) ListActiveBySeat(ctx context.Context, tripID, seatNumber string) ([]domain.Ticket, error) {
	rows, err := r.db.q(ctx).Query(ctx, `SELECT `+ticketColumns+ticketFrom+`
		WHERE t.trip_id = $1 AND t.seat_number = $2 AND t.status <> 'CANCELLED'
		ORDER BY fs.stop_order
	`, tripID, seatNumber)
	if err != nil {
		return nil, mapErr(err, "list seat tickets")
	}
	tickets, err := collectTickets(rows)
	return tickets, mapErr(err, "scan seat tickets")
}

func (r *TicketRepo) Create(ctx context.Context, t *domain.Ticket) error {
	_, err := r.db.q(ctx).Exec(ctx, `
		INSERT INTO tickets (id, trip_id, passenger_id, seat_number, from_stop_id, to_stop_id,
		                     price, payment_method, status, qr_code, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, t.ID, t.TripID, t.PassengerID, t.SeatNumber, t.FromStopID, t.ToStopID,
		t.Price, t.PaymentMethod, t.Status, t.QRCode, t.CreatedAt, t.UpdatedAt)
	return mapErr(err, "insert ticket")
}

func (r *TicketRepo) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	t, err := scanTicket(r.db.q(ctx).QueryRow(ctx, `SELECT `+ticketColumns+ticketFrom+` WHERE t.id = $1`, id))
	if err != nil {
		return nil, mapErr(err, "ticket "+id)
	}
	return t, nil
}

func (r *TicketRepo) Cancel(ctx context.Context, id string, refund decimal.Decimal, at time.Time) (bool, error) {
	tag, err := r.db.q(ctx).Exec(ctx, `
		UPDATE tickets SET status = 'CANCELLED', refund_amount = $2, updated_at = $3
		WHERE id = $1 AND status = 'SOLD'
	`, id, refund, at)
	if err != nil {
		return false, mapErr(err, "cancel ticket")
	}
	return tag.RowsAffected() == 1, nil
}

func (r *TicketRepo) MarkNoShow(ctx context.Context, id string, at time.Time) (bool, error) {
	tag, err := r.db.q(ctx).Exec(ctx, `
		UPDATE tickets SET status = 'NO_SHOW', updated_at = $2
		WHERE id = $1 AND status = 'SOLD'
	`, id, at)
	if err != nil {
		return false, mapErr(err, "mark no-show")
	}
	return tag.RowsAffected() == 1, nil
}

func (r *TicketRepo) ListNoShowCandidates(ctx context.Context, cutoff time.Time, limit int) ([]domain.Ticket, error) {
	rows, err := r.db.q(ctx).Query(ctx, `SELECT `+ticketColumns+ticketFrom+`
		JOIN trips tr ON tr.id = t.trip_id
		WHERE t.status = 'SOLD' AND tr.departure_at < $1
		ORDER BY tr.departure_at
		LIMIT $2
	`, cutoff, limit)
	if err != nil {
		return nil, mapErr(err, "list no-show candidates")
	}
	tickets, err := collectTickets(rows)
	return tickets, mapErr(err, "scan no-show candidates")
}

func (r *TicketRepo) ListByTrip(ctx context.Context, tripID string, limit, offset int) ([]domain.Ticket, int, error) {
	var total int
	if err := r.db.q(ctx).QueryRow(ctx, `SELECT count(*) FROM tickets WHERE trip_id = $1`, tripID).Scan(&total); err != nil {
		return nil, 0, mapErr(err, "count trip tickets")
	}

	rows, err := r.db.q(ctx).Query(ctx, `SELECT `+ticketColumns+ticketFrom+`
		WHERE t.trip_id = $1
		ORDER BY t.seat_number, fs.stop_order
		LIMIT $2 OFFSET $3
	`, tripID, limit, offset)
	if err != nil {
		return nil, 0, mapErr(err, "list trip tickets")
	}
	tickets, err := collectTickets(rows)
	if err != nil {
		return nil, 0, mapErr(err, "scan trip tickets")
	}
	return tickets, total, nil
}

func (r *TicketRepo) ListBySeat(ctx context.Context, tripID, seatNumber string) ([]domain.Ticket, error) {
	rows, err := r.db.q(ctx).Query(ctx, `SELECT `+ticketColumns+ticketFrom+`
		WHERE t.trip_id = $1 AND t.seat_number = $2
		ORDER BY fs.stop_order, t.created_at
	`, tripID, seatNumber)
	if err != nil {
		return nil, mapErr(err, "list seat tickets")
	}
	tickets, err := collectTickets(rows)
	return tickets, mapErr(err, "scan seat tickets")
}
