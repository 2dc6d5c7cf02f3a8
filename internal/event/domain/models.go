package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type Event struct {
	ID          snowflake.ID `json:"id" gorm:"primaryKey"`
	OrganizerID string       `json:"organizer_id" gorm:"column:organizer_id;type:text;not null;index"`
	Name        string       `json:"name" gorm:"type:text;not null"`
	Published   bool         `json:"published" gorm:"not null;default:false"`
	SalesStart  *time.Time   `json:"sales_start,omitempty"`
	SalesEnd    *time.Time   `json:"sales_end,omitempty"`
	CreatedAt   time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Event) TableName() string { return "events" }

// SalesOpen reports whether tickets may be sold at now. Missing bounds are open-ended.
func (e *Event) SalesOpen(now time.Time) bool {
	if e.SalesStart != nil && now.Before(*e.SalesStart) {
		return false
	}
	if e.SalesEnd != nil && now.After(*e.SalesEnd) {
		return false
	}
	return true
}

type TicketType struct {
	ID        snowflake.ID    `json:"id" gorm:"primaryKey"`
	EventID   snowflake.ID    `json:"event_id" gorm:"column:event_id;not null;index"`
	Name      string          `json:"name" gorm:"type:text;not null"`
	BasePrice decimal.Decimal `json:"base_price" gorm:"type:numeric(12,2);not null"`
	Quantity  int             `json:"quantity" gorm:"not null"`
	Sold      int             `json:"sold" gorm:"not null;default:0"`
	CreatedAt time.Time       `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time       `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (TicketType) TableName() string { return "ticket_types" }

func (t *TicketType) Remaining() int {
	if t.Sold >= t.Quantity {
		return 0
	}
	return t.Quantity - t.Sold
}
