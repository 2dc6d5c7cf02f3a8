// Package pricing resolves what a ticket costs at a given instant.
package pricing

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	discountdomain "github.com/smallbiznis/tixora/internal/discount/domain"
	eventdomain "github.com/smallbiznis/tixora/internal/event/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrInvalidTicketType = errors.New("invalid_ticket_type")

type Quote struct {
	TicketTypeID    snowflake.ID                `json:"ticket_type_id"`
	EventID         snowflake.ID                `json:"event_id"`
	OriginalPrice   decimal.Decimal             `json:"original_price"`
	FinalPrice      decimal.Decimal             `json:"final_price"`
	DiscountApplied decimal.Decimal             `json:"discount_applied"`
	DiscountID      *snowflake.ID               `json:"discount_id,omitempty"`
	DiscountType    discountdomain.DiscountType `json:"discount_type,omitempty"`
	QuotedAt        time.Time                   `json:"quoted_at"`
}

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	EventRepo    eventdomain.Repository
	DiscountRepo discountdomain.Repository
}

type Resolver struct {
	db           *gorm.DB
	log          *zap.Logger
	eventRepo    eventdomain.Repository
	discountRepo discountdomain.Repository
}

func NewResolver(p Params) *Resolver {
	return &Resolver{
		db:           p.DB,
		log:          p.Log.Named("pricing.resolver"),
		eventRepo:    p.EventRepo,
		discountRepo: p.DiscountRepo,
	}
}

// Quote prices one ticket of ticketTypeID at the instant at.
func (r *Resolver) Quote(ctx context.Context, ticketTypeID snowflake.ID, at time.Time) (*Quote, error) {
	return r.QuoteWithDB(ctx, r.db, ticketTypeID, at)
}

// QuoteWithDB reads the ticket type through db so a purchase can price inside its
// own transaction.
func (r *Resolver) QuoteWithDB(ctx context.Context, db *gorm.DB, ticketTypeID snowflake.ID, at time.Time) (*Quote, error) {
	if ticketTypeID == 0 {
		return nil, ErrInvalidTicketType
	}

	ticketType, err := r.eventRepo.FindTicketType(ctx, db, ticketTypeID)
	if err != nil {
		return nil, err
	}
	if ticketType == nil {
		return nil, eventdomain.ErrTicketTypeNotFound
	}

	quote := &Quote{
		TicketTypeID:    ticketType.ID,
		EventID:         ticketType.EventID,
		OriginalPrice:   ticketType.BasePrice,
		FinalPrice:      ticketType.BasePrice,
		DiscountApplied: decimal.Zero,
		QuotedAt:        at,
	}

	// free ticket types have nothing to discount
	if ticketType.BasePrice.IsZero() {
		return quote, nil
	}

	discount, err := r.discountRepo.FindActive(ctx, db, ticketType.ID)
	if err != nil {
		return nil, err
	}
	if !discountdomain.IsValid(discount, at) {
		discount = nil
	}

	breakdown, err := discountdomain.ComputeFinalPrice(ticketType.BasePrice, discount)
	if err != nil {
		return nil, err
	}
	quote.FinalPrice = breakdown.Final
	quote.DiscountApplied = breakdown.Applied
	if discount != nil {
		id := discount.ID
		quote.DiscountID = &id
		quote.DiscountType = discount.DiscountType
	}

	r.log.Debug("quoted ticket type",
		zap.String("ticket_type_id", ticketTypeID.String()),
		zap.String("original_price", quote.OriginalPrice.StringFixed(2)),
		zap.String("final_price", quote.FinalPrice.StringFixed(2)),
		zap.Bool("discounted", quote.DiscountID != nil),
	)
	return quote, nil
}
