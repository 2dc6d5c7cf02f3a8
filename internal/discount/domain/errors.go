package domain

import "errors"

var (
	ErrInvalidID             = errors.New("invalid_id")
	ErrInvalidTicketType     = errors.New("invalid_ticket_type")
	ErrInvalidDiscountType   = errors.New("invalid_discount_type")
	ErrInvalidValue          = errors.New("invalid_discount_value")
	ErrInvalidValuePrecision = errors.New("invalid_discount_value_precision")
	ErrInvalidPercentage     = errors.New("invalid_discount_percentage")
	ErrInvalidWindow         = errors.New("invalid_discount_window")
	ErrInvalidBasePrice      = errors.New("invalid_base_price")
	ErrInvalidActor          = errors.New("invalid_actor")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrNotFound              = errors.New("discount_not_found")
	ErrTicketTypeNotFound    = errors.New("ticket_type_not_found")
	ErrConflict              = errors.New("conflict")
	ErrActiveDiscountExists  = errors.New("active_discount_exists")
)

// IsValidationError reports whether err rejects caller input.
func IsValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidID),
		errors.Is(err, ErrInvalidTicketType),
		errors.Is(err, ErrInvalidDiscountType),
		errors.Is(err, ErrInvalidValue),
		errors.Is(err, ErrInvalidValuePrecision),
		errors.Is(err, ErrInvalidPercentage),
		errors.Is(err, ErrInvalidWindow),
		errors.Is(err, ErrInvalidBasePrice):
		return true
	default:
		return false
	}
}
