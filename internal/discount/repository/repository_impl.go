package repository

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	discountdomain "github.com/smallbiznis/tixora/internal/discount/domain"
	"gorm.io/gorm"
)

const discountColumns = `id, ticket_type_id, discount_type, value, valid_from, valid_to, active,
	 description, metadata, created_by, created_at, updated_at`

type repo struct{}

func Provide() discountdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, d *discountdomain.Discount) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO discounts (`+discountColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		insertArgs(d)...,
	).Error
}

func (r *repo) InsertIfNoneActive(ctx context.Context, db *gorm.DB, d *discountdomain.Discount) (bool, error) {
	args := append(insertArgs(d), d.TicketTypeID, true)
	result := db.WithContext(ctx).Exec(
		`INSERT INTO discounts (`+discountColumns+`)
		 SELECT ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?
		 WHERE NOT EXISTS (
			SELECT 1 FROM discounts WHERE ticket_type_id = ? AND active = ?
		 )`,
		args...,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, d *discountdomain.Discount) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE discounts
		 SET discount_type = ?, value = ?, valid_from = ?, valid_to = ?, active = ?,
		     description = ?, metadata = ?, updated_at = ?
		 WHERE id = ?`,
		updateArgs(d)...,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// The guard reads through a derived table so MySQL accepts a subquery on the
// table being updated.
func (r *repo) UpdateIfNoneActive(ctx context.Context, db *gorm.DB, d *discountdomain.Discount) (bool, error) {
	args := append(updateArgs(d), d.TicketTypeID, true, d.ID)
	result := db.WithContext(ctx).Exec(
		`UPDATE discounts
		 SET discount_type = ?, value = ?, valid_from = ?, valid_to = ?, active = ?,
		     description = ?, metadata = ?, updated_at = ?
		 WHERE id = ?
		   AND NOT EXISTS (
			SELECT 1 FROM (
				SELECT id FROM discounts WHERE ticket_type_id = ? AND active = ? AND id <> ?
			) AS other_active
		   )`,
		args...,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error) {
	result := db.WithContext(ctx).Exec(`DELETE FROM discounts WHERE id = ?`, id)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*discountdomain.Discount, error) {
	var d discountdomain.Discount
	err := db.WithContext(ctx).Raw(
		`SELECT `+discountColumns+` FROM discounts WHERE id = ?`,
		id,
	).Scan(&d).Error
	if err != nil {
		return nil, err
	}
	if d.ID == 0 {
		return nil, nil
	}
	return &d, nil
}

func (r *repo) FindActive(ctx context.Context, db *gorm.DB, ticketTypeID snowflake.ID) (*discountdomain.Discount, error) {
	var d discountdomain.Discount
	err := db.WithContext(ctx).Raw(
		`SELECT `+discountColumns+` FROM discounts
		 WHERE ticket_type_id = ? AND active = ?
		 ORDER BY id DESC LIMIT 1`,
		ticketTypeID,
		true,
	).Scan(&d).Error
	if err != nil {
		return nil, err
	}
	if d.ID == 0 {
		return nil, nil
	}
	return &d, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter discountdomain.ListFilter) ([]*discountdomain.Discount, error) {
	var (
		where []string
		args  []any
	)
	if filter.TicketTypeID != 0 {
		where = append(where, "ticket_type_id = ?")
		args = append(args, filter.TicketTypeID)
	}
	if filter.Active != nil {
		where = append(where, "active = ?")
		args = append(args, *filter.Active)
	}
	if filter.AfterID != 0 {
		where = append(where, "id < ?")
		args = append(args, filter.AfterID)
	}

	query := `SELECT ` + discountColumns + ` FROM discounts`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	var items []*discountdomain.Discount
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func insertArgs(d *discountdomain.Discount) []any {
	return []any{
		d.ID,
		d.TicketTypeID,
		d.DiscountType,
		d.Value,
		d.ValidFrom,
		d.ValidTo,
		d.Active,
		d.Description,
		d.Metadata,
		d.CreatedBy,
		d.CreatedAt,
		d.UpdatedAt,
	}
}

func updateArgs(d *discountdomain.Discount) []any {
	return []any{
		d.DiscountType,
		d.Value,
		d.ValidFrom,
		d.ValidTo,
		d.Active,
		d.Description,
		d.Metadata,
		d.UpdatedAt,
		d.ID,
	}
}
