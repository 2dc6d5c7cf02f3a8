package domain

import (
	"context"
	"time"

	"github.com/smallbiznis/tixora/pkg/db/pagination"
)

type Service interface {
	Issue(ctx context.Context, req IssueRequest) (*InviteCode, error)
	// Validate returns the code when it is redeemable now, otherwise the reason it is not.
	Validate(ctx context.Context, code string) (*InviteCode, error)
	IsValid(code *InviteCode) bool
	Redeem(ctx context.Context, req RedeemRequest) (*InviteCode, error)
	Revoke(ctx context.Context, id string, req RevokeRequest) (*InviteCode, error)
	Get(ctx context.Context, id string) (*InviteCode, error)
	List(ctx context.Context, req ListRequest) (*ListResponse, error)
	// ExpirePending marks every PENDING code expired at now as EXPIRED and returns
	// how many rows changed.
	ExpirePending(ctx context.Context, now time.Time) (int64, error)
}

type IssueRequest struct {
	RoleName string `json:"role_name"`
	EventID  string `json:"event_id"`
	// ExpiresIn is a Go duration such as "48h". Empty uses the policy default.
	ExpiresIn string `json:"expires_in"`
}

type RedeemRequest struct {
	Code string `json:"code"`
}

type RevokeRequest struct {
	Reason string `json:"reason"`
}

type ListRequest struct {
	EventID string `form:"event_id"`
	Status  string `form:"status"`
	pagination.Pagination
}

type ListResponse struct {
	InviteCodes []*InviteCode        `json:"invite_codes"`
	PageInfo    *pagination.PageInfo `json:"page_info,omitempty"`
}
