package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListFilter struct {
	EventID *snowflake.ID
	Global  bool
	Status  Status
	AfterID snowflake.ID
	Limit   int
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, c *InviteCode) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*InviteCode, error)
	FindByCode(ctx context.Context, db *gorm.DB, code string) (*InviteCode, error)
	// MarkRedeemed moves a PENDING, unexpired code at the given version to REDEEMED.
	// It reports false when any of those conditions no longer hold.
	MarkRedeemed(ctx context.Context, db *gorm.DB, id snowflake.ID, version int64, userID string, now time.Time) (bool, error)
	MarkRevoked(ctx context.Context, db *gorm.DB, id snowflake.ID, version int64, reason string, now time.Time) (bool, error)
	ExpirePending(ctx context.Context, db *gorm.DB, now time.Time) (int64, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*InviteCode, error)
}
