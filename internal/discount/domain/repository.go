package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListFilter struct {
	TicketTypeID snowflake.ID
	Active       *bool
	AfterID      snowflake.ID
	Limit        int
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, d *Discount) error
	// InsertIfNoneActive inserts d unless another discount of the same ticket type is
	// active, in one statement. It reports whether the row was written.
	InsertIfNoneActive(ctx context.Context, db *gorm.DB, d *Discount) (bool, error)
	Update(ctx context.Context, db *gorm.DB, d *Discount) (bool, error)
	// UpdateIfNoneActive writes d only while no other discount of its ticket type is active.
	UpdateIfNoneActive(ctx context.Context, db *gorm.DB, d *Discount) (bool, error)
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Discount, error)
	FindActive(ctx context.Context, db *gorm.DB, ticketTypeID snowflake.ID) (*Discount, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Discount, error)
}
