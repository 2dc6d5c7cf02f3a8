package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	ticketdomain "github.com/smallbiznis/tixora/internal/ticket/domain"
	"gorm.io/gorm"
)

const ticketColumns = `id, ticket_type_id, event_id, buyer_id, discount_id,
	 original_price, price_paid, discount_applied, purchased_at`

type repo struct{}

func Provide() ticketdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, t *ticketdomain.Ticket) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO tickets (`+ticketColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID,
		t.TicketTypeID,
		t.EventID,
		t.BuyerID,
		t.DiscountID,
		t.OriginalPrice,
		t.PricePaid,
		t.DiscountApplied,
		t.PurchasedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*ticketdomain.Ticket, error) {
	var t ticketdomain.Ticket
	err := db.WithContext(ctx).Raw(
		`SELECT `+ticketColumns+` FROM tickets WHERE id = ?`,
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

func (r *repo) ListByBuyer(ctx context.Context, db *gorm.DB, buyerID string, afterID snowflake.ID, limit int) ([]*ticketdomain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE buyer_id = ?`
	args := []any{buyerID}
	if afterID != 0 {
		query += " AND id < ?"
		args = append(args, afterID)
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	var items []*ticketdomain.Ticket
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
