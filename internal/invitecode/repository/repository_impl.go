package repository

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	invitedomain "github.com/smallbiznis/tixora/internal/invitecode/domain"
	"gorm.io/gorm"
)

const inviteColumns = `id, code, role_name, event_id, status, created_by, created_at, expires_at,
	 redeemed_by, redeemed_at, revoked_at, revoked_reason, version, updated_at`

type repo struct{}

func Provide() invitedomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, c *invitedomain.InviteCode) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO invite_codes (`+inviteColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID,
		c.Code,
		c.RoleName,
		c.EventID,
		c.Status,
		c.CreatedBy,
		c.CreatedAt,
		c.ExpiresAt,
		c.RedeemedBy,
		c.RedeemedAt,
		c.RevokedAt,
		c.RevokedReason,
		c.Version,
		c.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*invitedomain.InviteCode, error) {
	return r.findOne(ctx, db, `id = ?`, id)
}

func (r *repo) FindByCode(ctx context.Context, db *gorm.DB, code string) (*invitedomain.InviteCode, error) {
	return r.findOne(ctx, db, `code = ?`, code)
}

func (r *repo) findOne(ctx context.Context, db *gorm.DB, where string, arg any) (*invitedomain.InviteCode, error) {
	var c invitedomain.InviteCode
	err := db.WithContext(ctx).Raw(
		`SELECT `+inviteColumns+` FROM invite_codes WHERE `+where,
		arg,
	).Scan(&c).Error
	if err != nil {
		return nil, err
	}
	if c.ID == 0 {
		return nil, nil
	}
	return &c, nil
}

func (r *repo) MarkRedeemed(ctx context.Context, db *gorm.DB, id snowflake.ID, version int64, userID string, now time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE invite_codes
		 SET status = ?, redeemed_by = ?, redeemed_at = ?, version = version + 1, updated_at = ?
		 WHERE id = ? AND status = ? AND version = ? AND expires_at > ?`,
		invitedomain.Redeemed,
		userID,
		now,
		now,
		id,
		invitedomain.Pending,
		version,
		now,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repo) MarkRevoked(ctx context.Context, db *gorm.DB, id snowflake.ID, version int64, reason string, now time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE invite_codes
		 SET status = ?, revoked_at = ?, revoked_reason = ?, version = version + 1, updated_at = ?
		 WHERE id = ? AND status = ? AND version = ? AND expires_at > ?`,
		invitedomain.Revoked,
		now,
		reason,
		now,
		id,
		invitedomain.Pending,
		version,
		now,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ExpirePending leaves version untouched: the predicate already excludes any
// concurrent redeem, which requires expires_at > now.
func (r *repo) ExpirePending(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE invite_codes
		 SET status = ?, updated_at = ?
		 WHERE status = ? AND expires_at <= ?`,
		invitedomain.Expired,
		now,
		invitedomain.Pending,
		now,
	)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter invitedomain.ListFilter) ([]*invitedomain.InviteCode, error) {
	var (
		where []string
		args  []any
	)
	switch {
	case filter.EventID != nil:
		where = append(where, "event_id = ?")
		args = append(args, *filter.EventID)
	case filter.Global:
		where = append(where, "event_id IS NULL")
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.AfterID != 0 {
		where = append(where, "id < ?")
		args = append(args, filter.AfterID)
	}

	query := `SELECT ` + inviteColumns + ` FROM invite_codes`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	var items []*invitedomain.InviteCode
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
