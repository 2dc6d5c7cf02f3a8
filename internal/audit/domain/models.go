package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type ActorType string

const (
	ActorTypeUser   ActorType = "user"
	ActorTypeSystem ActorType = "system"
)

const (
	ActionDiscountCreate    = "discount.create"
	ActionDiscountUpdate    = "discount.update"
	ActionDiscountDelete    = "discount.delete"
	ActionInviteCodeIssue   = "invite_code.issue"
	ActionInviteCodeRedeem  = "invite_code.redeem"
	ActionInviteCodeRevoke  = "invite_code.revoke"
	ActionInviteCodesExpire = "invite_code.expire_batch"
	ActionTicketPurchase    = "ticket.purchase"
)

type AuditLog struct {
	ID         snowflake.ID      `json:"id" gorm:"primaryKey"`
	ActorType  string            `json:"actor_type" gorm:"type:text;not null"`
	ActorID    *string           `json:"actor_id,omitempty" gorm:"type:text"`
	Action     string            `json:"action" gorm:"type:text;not null"`
	TargetType string            `json:"target_type" gorm:"type:text;not null"`
	TargetID   *string           `json:"target_id,omitempty" gorm:"type:text"`
	Metadata   datatypes.JSONMap `json:"metadata" gorm:"type:jsonb"`
	CreatedAt  time.Time         `json:"created_at" gorm:"not null"`
}

func (AuditLog) TableName() string { return "audit_logs" }
