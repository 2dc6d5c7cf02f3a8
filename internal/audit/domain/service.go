package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/tixora/pkg/db/pagination"
)

type ListRequest struct {
	Action     string `form:"action"`
	TargetType string `form:"target_type"`
	TargetID   string `form:"target_id"`
	ActorID    string `form:"actor_id"`
	pagination.Pagination
}

type ListResponse struct {
	AuditLogs []*AuditLog          `json:"audit_logs"`
	PageInfo  *pagination.PageInfo `json:"page_info,omitempty"`
}

type Service interface {
	// AuditLog records action against a target. The actor comes from ctx; callers
	// write after their transaction commits and may ignore the error.
	AuditLog(ctx context.Context, action, targetType string, targetID *string, metadata map[string]any) error
	List(ctx context.Context, req ListRequest) (*ListResponse, error)
}

var (
	ErrInvalidAction = errors.New("invalid_action")
	ErrInvalidActor  = errors.New("invalid_actor")
	ErrUnauthorized  = errors.New("unauthorized")
)
