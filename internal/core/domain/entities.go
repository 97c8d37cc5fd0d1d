package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TripStatus is the operational state of a scheduled trip.
type TripStatus string

const (
	TripScheduled TripStatus = "SCHEDULED"
	TripBoarding  TripStatus = "BOARDING"
	TripDeparted  TripStatus = "DEPARTED"
	TripArrived   TripStatus = "ARRIVED"
	TripCancelled TripStatus = "CANCELLED"
)

// Sellable reports whether seats on a trip in this status may still be held or sold.
func (s TripStatus) Sellable() bool {
	return s == TripScheduled || s == TripBoarding
}

// TicketStatus is the lifecycle state of a ticket.
type TicketStatus string

const (
	TicketSold      TicketStatus = "SOLD"
	TicketCancelled TicketStatus = "CANCELLED"
	TicketNoShow    TicketStatus = "NO_SHOW"
)

// HoldStatus is the lifecycle state of a seat hold.
type HoldStatus string

const (
	HoldActive   HoldStatus = "HOLD"
	HoldExpired  HoldStatus = "EXPIRED"
	HoldConsumed HoldStatus = "CONSUMED"
)

// PaymentMethod identifies how a ticket was paid for.
type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "CASH"
	PaymentCard     PaymentMethod = "CARD"
	PaymentTransfer PaymentMethod = "TRANSFER"
	PaymentQR       PaymentMethod = "QR"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentTransfer, PaymentQR:
		return true
	}
	return false
}

// Stop is a position on a route. Order is unique within the route.
type Stop struct {
	ID      string `json:"id"`
	RouteID string `json:"route_id"`
	Name    string `json:"name"`
	Order   int    `json:"order"`
}

// Trip is one calendar instance of a route operated by a bus.
type Trip struct {
	ID          string     `json:"id"`
	RouteID     string     `json:"route_id"`
	BusID       string     `json:"bus_id"`
	Date        time.Time  `json:"date"`
	DepartureAt time.Time  `json:"departure_at"`
	ArrivalETA  time.Time  `json:"arrival_eta"`
	Status      TripStatus `json:"status"`
}

// Passenger carries the contact details needed for notifications.
type Passenger struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// Ticket is a confirmed sale of one seat over one segment of a trip.
type Ticket struct {
	ID            string           `json:"id"`
	TripID        string           `json:"trip_id"`
	PassengerID   string           `json:"passenger_id"`
	SeatNumber    string           `json:"seat_number"`
	FromStopID    string           `json:"from_stop_id"`
	ToStopID      string           `json:"to_stop_id"`
	FromOrder     int              `json:"from_order"`
	ToOrder       int              `json:"to_order"`
	Price         decimal.Decimal  `json:"price"`
	PaymentMethod PaymentMethod    `json:"payment_method"`
	Status        TicketStatus     `json:"status"`
	QRCode        string           `json:"qr_code"`
	NoShowFee     *decimal.Decimal `json:"no_show_fee,omitempty"`
	RefundAmount  *decimal.Decimal `json:"refund_amount,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// Segment returns the span the ticket occupies on its seat.
func (t *Ticket) Segment() Segment {
	return Segment{From: t.FromOrder, To: t.ToOrder}
}

// SeatHold is an advisory, time-boxed reservation of a seat during checkout.
type SeatHold struct {
	ID         string     `json:"id"`
	TripID     string     `json:"trip_id"`
	SeatNumber string     `json:"seat_number"`
	UserID     string     `json:"user_id"`
	ExpiresAt  time.Time  `json:"expires_at"`
	Status     HoldStatus `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
}

// ActiveAt reports whether the hold still blocks its seat at time now.
func (h *SeatHold) ActiveAt(now time.Time) bool {
	return h.Status == HoldActive && now.Before(h.ExpiresAt)
}

// Availability is the booking-flow view of one seat segment.
type Availability struct {
	TripID       string `json:"trip_id"`
	SeatNumber   string `json:"seat_number"`
	FromOrder    int    `json:"from_order"`
	ToOrder      int    `json:"to_order"`
	Free         bool   `json:"free"`
	HeldByOthers bool   `json:"held_by_others"`
}

// CancellationNotice is the payload sent to a passenger after cancellation.
type CancellationNotice struct {
	Phone         string          `json:"phone"`
	Name          string          `json:"name"`
	TicketID      string          `json:"ticket_id"`
	RefundAmount  decimal.Decimal `json:"refund_amount"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
}

// SeatEventType names a change to a trip's seat inventory.
type SeatEventType string

const (
	EventHoldCreated     SeatEventType = "hold.created"
	EventHoldExpired     SeatEventType = "hold.expired"
	EventHoldConsumed    SeatEventType = "hold.consumed"
	EventTicketIssued    SeatEventType = "ticket.issued"
	EventTicketCancelled SeatEventType = "ticket.cancelled"
	EventTicketNoShow    SeatEventType = "ticket.no_show"
)

// SeatEvent is broadcast whenever a hold or ticket changes state.
type SeatEvent struct {
	Type       SeatEventType `json:"type"`
	TripID     string        `json:"trip_id"`
	SeatNumber string        `json:"seat_number"`
	HoldID     string        `json:"hold_id,omitempty"`
	TicketID   string        `json:"ticket_id,omitempty"`
	FromOrder  int           `json:"from_order,omitempty"`
	ToOrder    int           `json:"to_order,omitempty"`
	Time       time.Time     `json:"time"`
}
