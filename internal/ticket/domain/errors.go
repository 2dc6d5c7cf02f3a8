package domain

import "errors"

var (
	ErrInvalidID          = errors.New("invalid_id")
	ErrInvalidTicketType  = errors.New("invalid_ticket_type")
	ErrInvalidActor       = errors.New("invalid_actor")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrNotFound           = errors.New("ticket_not_found")
	ErrEventNotPublished  = errors.New("event_not_published")
	ErrSalesClosed        = errors.New("sales_closed")
	ErrSoldOut            = errors.New("sold_out")
	ErrInconsistentPrices = errors.New("inconsistent_ticket_prices")
)
