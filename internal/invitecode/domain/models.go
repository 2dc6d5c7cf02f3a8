package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Status string

var (
	Pending  Status = "PENDING"
	Redeemed Status = "REDEEMED"
	Expired  Status = "EXPIRED"
	Revoked  Status = "REVOKED"
)

func (s Status) Terminal() bool {
	return s == Redeemed || s == Expired || s == Revoked
}

func ParseStatus(value string) (Status, bool) {
	switch Status(value) {
	case Pending, Redeemed, Expired, Revoked:
		return Status(value), true
	default:
		return "", false
	}
}

const (
	ScopeGlobal = "global"
	ScopeEvent  = "event"
)

type InviteCode struct {
	ID            snowflake.ID  `json:"id" gorm:"primaryKey"`
	Code          string        `json:"code" gorm:"type:text;not null;uniqueIndex"`
	RoleName      string        `json:"role_name" gorm:"column:role_name;type:text;not null"`
	EventID       *snowflake.ID `json:"event_id,omitempty" gorm:"column:event_id;index"`
	Status        Status        `json:"status" gorm:"type:text;not null;default:PENDING"`
	CreatedBy     string        `json:"created_by" gorm:"type:text;not null"`
	CreatedAt     time.Time     `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	ExpiresAt     time.Time     `json:"expires_at" gorm:"not null"`
	RedeemedBy    *string       `json:"redeemed_by,omitempty" gorm:"type:text"`
	RedeemedAt    *time.Time    `json:"redeemed_at,omitempty"`
	RevokedAt     *time.Time    `json:"revoked_at,omitempty"`
	RevokedReason *string       `json:"revoked_reason,omitempty" gorm:"type:text"`
	Version       int64         `json:"version" gorm:"not null;default:0"`
	UpdatedAt     time.Time     `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (InviteCode) TableName() string { return "invite_codes" }

func (c *InviteCode) Scope() string {
	if c.EventID == nil || *c.EventID == 0 {
		return ScopeGlobal
	}
	return ScopeEvent
}

// IsValid reports whether c can be redeemed at now. A PENDING code past its expiry
// is not valid even before the sweep marks it EXPIRED.
func IsValid(c *InviteCode, now time.Time) bool {
	if c == nil {
		return false
	}
	return c.Status == Pending && now.Before(c.ExpiresAt)
}

// RedeemError explains why c cannot be redeemed at now, or returns nil.
func RedeemError(c *InviteCode, now time.Time) error {
	if c == nil {
		return ErrNotFound
	}
	switch c.Status {
	case Redeemed:
		return ErrAlreadyUsed
	case Revoked:
		return ErrRevoked
	case Expired:
		return ErrExpired
	}
	if !now.Before(c.ExpiresAt) {
		return ErrExpired
	}
	return nil
}

// RevokeError explains why c cannot be revoked at now, or returns nil.
func RevokeError(c *InviteCode, now time.Time) error {
	if c == nil {
		return ErrNotFound
	}
	switch c.Status {
	case Redeemed:
		return ErrAlreadyUsed
	case Revoked:
		return ErrRevoked
	case Expired:
		return ErrAlreadyExpired
	}
	if !now.Before(c.ExpiresAt) {
		return ErrAlreadyExpired
	}
	return nil
}
