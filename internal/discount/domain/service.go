package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/tixora/pkg/db/pagination"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Discount, error)
	Update(ctx context.Context, id string, req UpdateRequest) (*Discount, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*Discount, error)
	List(ctx context.Context, req ListRequest) (*ListResponse, error)
	// FindActive returns the active discount of a ticket type, or nil when none is
	// flagged active. It does not check the validity window.
	FindActive(ctx context.Context, ticketTypeID snowflake.ID) (*Discount, error)
	CalculateFinalPrice(basePrice decimal.Decimal, discount *Discount) (PriceBreakdown, error)
}

type CreateRequest struct {
	TicketTypeID string          `json:"ticket_type_id"`
	DiscountType DiscountType    `json:"discount_type"`
	Value        decimal.Decimal `json:"value"`
	ValidFrom    time.Time       `json:"valid_from"`
	ValidTo      time.Time       `json:"valid_to"`
	Active       *bool           `json:"active"`
	Description  string          `json:"description"`
	Metadata     map[string]any  `json:"metadata"`
}

// UpdateRequest carries a partial update; nil fields keep their stored value.
type UpdateRequest struct {
	DiscountType *DiscountType    `json:"discount_type"`
	Value        *decimal.Decimal `json:"value"`
	ValidFrom    *time.Time       `json:"valid_from"`
	ValidTo      *time.Time       `json:"valid_to"`
	Active       *bool            `json:"active"`
	Description  *string          `json:"description"`
	Metadata     map[string]any   `json:"metadata"`
}

type ListRequest struct {
	TicketTypeID string `form:"ticket_type_id"`
	Active       *bool  `form:"active"`
	pagination.Pagination
}

type ListResponse struct {
	Discounts []*Discount          `json:"discounts"`
	PageInfo  *pagination.PageInfo `json:"page_info,omitempty"`
}
