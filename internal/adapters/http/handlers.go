package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/samirrijal/busticket/internal/core/domain"
	"github.com/samirrijal/busticket/internal/core/usecases"
)

type createHoldRequest struct {
	TripID     string `json:"trip_id"`
	SeatNumber string `json:"seat_number"`
	UserID     string `json:"user_id"`
}

// CreateHoldHandler places a hold on a seat.
func CreateHoldHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req createHoldRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		hold, err := deps.Holds.Create(c.UserContext(), req.TripID, req.SeatNumber, req.UserID)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(hold)
	}
}

// GetHoldHandler returns a single hold by ID.
func GetHoldHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		hold, err := deps.Holds.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		c.Set("Cache-Control", "no-store")
		return c.JSON(hold)
	}
}

// ExpireHoldHandler releases a hold before its deadline.
func ExpireHoldHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if err := deps.Holds.Expire(c.UserContext(), id); err != nil {
			return errFromDomain(c, err)
		}
		hold, err := deps.Holds.Get(c.UserContext(), id)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(hold)
	}
}

// ExpireAllHoldsHandler expires every hold past its deadline.
func ExpireAllHoldsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		n, err := deps.Holds.ExpireAll(c.UserContext())
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(fiber.Map{"expired": n})
	}
}

type issueTicketRequest struct {
	TripID        string          `json:"trip_id"`
	PassengerID   string          `json:"passenger_id"`
	SeatNumber    string          `json:"seat_number"`
	FromStopID    string          `json:"from_stop_id"`
	ToStopID      string          `json:"to_stop_id"`
	Price         decimal.Decimal `json:"price"`
	PaymentMethod string          `json:"payment_method"`
	HoldID        string          `json:"hold_id"`
}

// IssueTicketHandler sells a seat for a segment of a trip.
func IssueTicketHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req issueTicketRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		ticket, err := deps.Tickets.Issue(c.UserContext(), usecases.IssueTicketInput{
			TripID:        req.TripID,
			PassengerID:   req.PassengerID,
			SeatNumber:    req.SeatNumber,
			FromStopID:    req.FromStopID,
			ToStopID:      req.ToStopID,
			Price:         req.Price,
			PaymentMethod: domain.PaymentMethod(strings.ToUpper(req.PaymentMethod)),
			HoldID:        req.HoldID,
		})
		if err != nil {
			return errFromDomain(c, err)
		}
		c.Location("/v1/tickets/" + ticket.ID)
		return c.Status(fiber.StatusCreated).JSON(ticket)
	}
}

// GetTicketHandler returns a single ticket by ID.
func GetTicketHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ticket, err := deps.Tickets.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		c.Set("Cache-Control", "no-store")
		return c.JSON(ticket)
	}
}

// CancelTicketHandler cancels a SOLD ticket and reports the refund.
func CancelTicketHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ticket, err := deps.Tickets.Cancel(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(ticket)
	}
}

// TripTicketsHandler lists the tickets of a trip, paginated.
func TripTicketsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", 50)
		if offset < 0 {
			offset = 0
		}
		if limit <= 0 || limit > 200 {
			limit = 50
		}

		tickets, total, err := deps.Tickets.ListByTrip(c.UserContext(), c.Params("id"), limit, offset)
		if err != nil {
			return errFromDomain(c, err)
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse[domain.Ticket]{Data: tickets, Pagination: pg})
	}
}

// SeatTicketsHandler lists every ticket ever sold on one seat of a trip.
func SeatTicketsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tickets, err := deps.Tickets.ListBySeat(c.UserContext(), c.Params("id"), c.Params("seat"))
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(tickets)
	}
}

// SeatAvailabilityHandler reports whether a segment of a seat can be sold.
func SeatAvailabilityHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		from, to := c.Query("from"), c.Query("to")
		if from == "" || to == "" {
			return errBadRequest(c, "from and to stop ids are required")
		}

		av, err := deps.Holds.CheckAvailability(c.UserContext(), c.Params("id"), c.Params("seat"), from, to, c.Query("user_id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		c.Set("Cache-Control", "no-store")
		return c.JSON(av)
	}
}
