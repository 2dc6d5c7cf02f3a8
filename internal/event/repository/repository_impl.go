package repository

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	eventdomain "github.com/smallbiznis/tixora/internal/event/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() eventdomain.Repository {
	return &repo{}
}

func (r *repo) FindEvent(ctx context.Context, db *gorm.DB, id snowflake.ID) (*eventdomain.Event, error) {
	var e eventdomain.Event
	err := db.WithContext(ctx).Raw(
		`SELECT id, organizer_id, name, published, sales_start, sales_end, created_at, updated_at
		 FROM events WHERE id = ?`,
		id,
	).Scan(&e).Error
	if err != nil {
		return nil, err
	}
	if e.ID == 0 {
		return nil, nil
	}
	return &e, nil
}

func (r *repo) FindTicketType(ctx context.Context, db *gorm.DB, id snowflake.ID) (*eventdomain.TicketType, error) {
	var t eventdomain.TicketType
	err := db.WithContext(ctx).Raw(
		`SELECT id, event_id, name, base_price, quantity, sold, created_at, updated_at
		 FROM ticket_types WHERE id = ?`,
		id,
	).Scan(&t).Error
	if err != nil {
		return nil, err
	}
	if t.ID == 0 {
		return nil, nil
	}
	return &t, nil
}

func (r *repo) IsOrganizer(ctx context.Context, db *gorm.DB, userID string, eventID snowflake.ID) (bool, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" || eventID == 0 {
		return false, nil
	}
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM events WHERE id = ? AND organizer_id = ?`,
		eventID,
		userID,
	).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) ReserveSeat(ctx context.Context, db *gorm.DB, ticketTypeID snowflake.ID, now time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE ticket_types
		 SET sold = sold + 1, updated_at = ?
		 WHERE id = ? AND sold < quantity`,
		now,
		ticketTypeID,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
