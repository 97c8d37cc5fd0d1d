package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"
	"github.com/shopspring/decimal"

	"github.com/samirrijal/busticket/internal/core/domain"
)

// money renders a decimal field of the source object with two places.
func money(get func(t *domain.Ticket) *decimal.Decimal) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		var t *domain.Ticket
		switch src := p.Source.(type) {
		case domain.Ticket:
			t = &src
		case *domain.Ticket:
			t = src
		default:
			return nil, nil
		}
		if v := get(t); v != nil {
			return v.StringFixed(2), nil
		}
		return nil, nil
	}
}

// buildSchema creates the read-only admin GraphQL schema.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	ticketType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Ticket",
		Fields: graphql.Fields{
			"id":             &graphql.Field{Type: graphql.String},
			"trip_id":        &graphql.Field{Type: graphql.String},
			"passenger_id":   &graphql.Field{Type: graphql.String},
			"seat_number":    &graphql.Field{Type: graphql.String},
			"from_stop_id":   &graphql.Field{Type: graphql.String},
			"to_stop_id":     &graphql.Field{Type: graphql.String},
			"from_order":     &graphql.Field{Type: graphql.Int},
			"to_order":       &graphql.Field{Type: graphql.Int},
			"payment_method": &graphql.Field{Type: graphql.String},
			"status":         &graphql.Field{Type: graphql.String},
			"qr_code":        &graphql.Field{Type: graphql.String},
			"created_at":     &graphql.Field{Type: graphql.DateTime},
			"price": &graphql.Field{
				Type:    graphql.String,
				Resolve: money(func(t *domain.Ticket) *decimal.Decimal { return &t.Price }),
			},
			"refund_amount": &graphql.Field{
				Type:    graphql.String,
				Resolve: money(func(t *domain.Ticket) *decimal.Decimal { return t.RefundAmount }),
			},
		},
	})

	holdType := graphql.NewObject(graphql.ObjectConfig{
		Name: "SeatHold",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.String},
			"trip_id":     &graphql.Field{Type: graphql.String},
			"seat_number": &graphql.Field{Type: graphql.String},
			"user_id":     &graphql.Field{Type: graphql.String},
			"status":      &graphql.Field{Type: graphql.String},
			"expires_at":  &graphql.Field{Type: graphql.DateTime},
			"created_at":  &graphql.Field{Type: graphql.DateTime},
		},
	})

	ticketPageType := graphql.NewObject(graphql.ObjectConfig{
		Name: "TicketPage",
		Fields: graphql.Fields{
			"total":   &graphql.Field{Type: graphql.Int},
			"tickets": &graphql.Field{Type: graphql.NewList(ticketType)},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"ticket": &graphql.Field{
				Type:        ticketType,
				Description: "Get a ticket by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Tickets.Get(p.Context, p.Args["id"].(string))
				},
			},
			"hold": &graphql.Field{
				Type:        holdType,
				Description: "Get a seat hold by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Holds.Get(p.Context, p.Args["id"].(string))
				},
			},
			"tripTickets": &graphql.Field{
				Type:        ticketPageType,
				Description: "Tickets sold on a trip",
				Args: graphql.FieldConfigArgument{
					"trip_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"limit":   &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 50},
					"offset":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					tickets, total, err := deps.Tickets.ListByTrip(p.Context,
						p.Args["trip_id"].(string), p.Args["limit"].(int), p.Args["offset"].(int))
					if err != nil {
						return nil, err
					}
					return map[string]interface{}{"total": total, "tickets": tickets}, nil
				},
			},
			"seatTickets": &graphql.Field{
				Type:        graphql.NewList(ticketType),
				Description: "Every ticket sold on one seat of a trip, in stop order",
				Args: graphql.FieldConfigArgument{
					"trip_id":     &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"seat_number": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Tickets.ListBySeat(p.Context, p.Args["trip_id"].(string), p.Args["seat_number"].(string))
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
