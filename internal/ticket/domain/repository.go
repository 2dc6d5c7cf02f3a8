package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, t *Ticket) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Ticket, error)
	ListByBuyer(ctx context.Context, db *gorm.DB, buyerID string, afterID snowflake.ID, limit int) ([]*Ticket, error)
}
