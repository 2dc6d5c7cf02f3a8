package domain

import (
	"context"

	"github.com/smallbiznis/tixora/pkg/db/pagination"
)

type Service interface {
	Purchase(ctx context.Context, req PurchaseRequest) (*Ticket, error)
	Get(ctx context.Context, id string) (*Ticket, error)
	ListMine(ctx context.Context, req ListRequest) (*ListResponse, error)
}

type PurchaseRequest struct {
	TicketTypeID string `json:"ticket_type_id"`
}

type ListRequest struct {
	pagination.Pagination
}

type ListResponse struct {
	Tickets  []*Ticket            `json:"tickets"`
	PageInfo *pagination.PageInfo `json:"page_info,omitempty"`
}
