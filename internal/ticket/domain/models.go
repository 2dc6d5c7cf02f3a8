package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Ticket rows are written once. Pricing fields are a snapshot taken at purchase.
type Ticket struct {
	ID              snowflake.ID    `json:"id" gorm:"primaryKey"`
	TicketTypeID    snowflake.ID    `json:"ticket_type_id" gorm:"column:ticket_type_id;not null;index"`
	EventID         snowflake.ID    `json:"event_id" gorm:"column:event_id;not null"`
	BuyerID         string          `json:"buyer_id" gorm:"column:buyer_id;type:text;not null;index"`
	DiscountID      *snowflake.ID   `json:"discount_id,omitempty" gorm:"column:discount_id"`
	OriginalPrice   decimal.Decimal `json:"original_price" gorm:"type:numeric(12,2);not null"`
	PricePaid       decimal.Decimal `json:"price_paid" gorm:"type:numeric(12,2);not null"`
	DiscountApplied decimal.Decimal `json:"discount_applied" gorm:"type:numeric(12,2);not null"`
	PurchasedAt     time.Time       `json:"purchased_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Ticket) TableName() string { return "tickets" }
