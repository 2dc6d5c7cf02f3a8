package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type DiscountType string

var (
	Percentage  DiscountType = "PERCENTAGE"
	FixedAmount DiscountType = "FIXED_AMOUNT"
)

type Discount struct {
	ID           snowflake.ID      `json:"id" gorm:"primaryKey"`
	TicketTypeID snowflake.ID      `json:"ticket_type_id" gorm:"column:ticket_type_id;not null;index"`
	DiscountType DiscountType      `json:"discount_type" gorm:"type:text;not null"`
	Value        decimal.Decimal   `json:"value" gorm:"type:numeric(12,2);not null"`
	ValidFrom    time.Time         `json:"valid_from" gorm:"not null"`
	ValidTo      time.Time         `json:"valid_to" gorm:"not null"`
	Active       bool              `json:"active" gorm:"not null;default:true"`
	Description  string            `json:"description,omitempty" gorm:"type:text"`
	Metadata     datatypes.JSONMap `json:"metadata,omitempty" gorm:"type:jsonb"`
	CreatedBy    string            `json:"created_by" gorm:"type:text;not null"`
	CreatedAt    time.Time         `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time         `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Discount) TableName() string { return "discounts" }

// PriceBreakdown is the outcome of applying a discount to a base price.
// Original - Final always equals Applied.
type PriceBreakdown struct {
	Original decimal.Decimal `json:"original_price"`
	Final    decimal.Decimal `json:"final_price"`
	Applied  decimal.Decimal `json:"discount_applied"`
}
