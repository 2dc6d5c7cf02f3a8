package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

var (
	ErrEventNotFound      = errors.New("event_not_found")
	ErrTicketTypeNotFound = errors.New("ticket_type_not_found")
)

// Repository is the read side of the event catalog plus the guarded seat reservation
// used at purchase. Event and ticket type management live elsewhere.
type Repository interface {
	FindEvent(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Event, error)
	FindTicketType(ctx context.Context, db *gorm.DB, id snowflake.ID) (*TicketType, error)
	IsOrganizer(ctx context.Context, db *gorm.DB, userID string, eventID snowflake.ID) (bool, error)
	// ReserveSeat increments sold when sold < quantity and reports whether a seat was taken.
	ReserveSeat(ctx context.Context, db *gorm.DB, ticketTypeID snowflake.ID, now time.Time) (bool, error)
}
