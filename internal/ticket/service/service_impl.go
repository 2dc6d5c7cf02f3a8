package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/tixora/internal/audit/domain"
	"github.com/smallbiznis/tixora/internal/authorization"
	"github.com/smallbiznis/tixora/internal/clock"
	eventdomain "github.com/smallbiznis/tixora/internal/event/domain"
	"github.com/smallbiznis/tixora/internal/observability/metrics"
	"github.com/smallbiznis/tixora/internal/pricing"
	ticketdomain "github.com/smallbiznis/tixora/internal/ticket/domain"
	"github.com/smallbiznis/tixora/internal/usercontext"
	"github.com/smallbiznis/tixora/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      ticketdomain.Repository
	EventRepo eventdomain.Repository
	Resolver  *pricing.Resolver
	Authz     authorization.Service `optional:"true"`
	Metrics   *metrics.Metrics      `optional:"true"`
	Audit     auditdomain.Service   `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      ticketdomain.Repository
	eventRepo eventdomain.Repository
	resolver  *pricing.Resolver
	authz     authorization.Service
	metrics   *metrics.Metrics
	auditSvc  auditdomain.Service
}

func New(p Params) ticketdomain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("ticket.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		eventRepo: p.EventRepo,
		resolver:  p.Resolver,
		authz:     p.Authz,
		metrics:   p.Metrics,
		auditSvc:  p.Audit,
	}
}

// Purchase sells one ticket to the caller. The event gate, pricing, seat
// reservation and insert share one transaction.
func (s *Service) Purchase(ctx context.Context, req ticketdomain.PurchaseRequest) (*ticketdomain.Ticket, error) {
	buyerID, ok := usercontext.UserIDFromContext(ctx)
	if !ok {
		return nil, ticketdomain.ErrInvalidActor
	}
	ticketTypeID, err := parseID(req.TicketTypeID)
	if err != nil {
		return nil, ticketdomain.ErrInvalidTicketType
	}

	now := s.clock.Now()
	var (
		ticket *ticketdomain.Ticket
		quote  *pricing.Quote
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ticketType, err := s.eventRepo.FindTicketType(ctx, tx, ticketTypeID)
		if err != nil {
			return err
		}
		if ticketType == nil {
			return eventdomain.ErrTicketTypeNotFound
		}
		event, err := s.eventRepo.FindEvent(ctx, tx, ticketType.EventID)
		if err != nil {
			return err
		}
		if event == nil {
			return eventdomain.ErrEventNotFound
		}
		if !event.Published {
			return ticketdomain.ErrEventNotPublished
		}
		if !event.SalesOpen(now) {
			return ticketdomain.ErrSalesClosed
		}

		quote, err = s.resolver.QuoteWithDB(ctx, tx, ticketTypeID, now)
		if err != nil {
			return err
		}
		if !quote.OriginalPrice.Sub(quote.FinalPrice).Equal(quote.DiscountApplied) || quote.FinalPrice.IsNegative() {
			return ticketdomain.ErrInconsistentPrices
		}

		reserved, err := s.eventRepo.ReserveSeat(ctx, tx, ticketTypeID, now)
		if err != nil {
			return err
		}
		if !reserved {
			return ticketdomain.ErrSoldOut
		}

		ticket = &ticketdomain.Ticket{
			ID:              s.genID.Generate(),
			TicketTypeID:    ticketTypeID,
			EventID:         event.ID,
			BuyerID:         buyerID,
			DiscountID:      quote.DiscountID,
			OriginalPrice:   quote.OriginalPrice,
			PricePaid:       quote.FinalPrice,
			DiscountApplied: quote.DiscountApplied,
			PurchasedAt:     now,
		}
		return s.repo.Insert(ctx, tx, ticket)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordTicketPurchased(ctx, string(quote.DiscountType))
	if s.auditSvc != nil {
		targetID := ticket.ID.String()
		metadata := map[string]any{
			"ticket_type_id":   ticketTypeID.String(),
			"price_paid":       ticket.PricePaid.StringFixed(2),
			"discount_applied": ticket.DiscountApplied.StringFixed(2),
		}
		if ticket.DiscountID != nil {
			metadata["discount_id"] = ticket.DiscountID.String()
		}
		_ = s.auditSvc.AuditLog(ctx, auditdomain.ActionTicketPurchase, "ticket", &targetID, metadata)
	}
	s.log.Info("ticket purchased",
		zap.String("ticket_id", ticket.ID.String()),
		zap.String("ticket_type_id", ticketTypeID.String()),
		zap.String("price_paid", ticket.PricePaid.StringFixed(2)),
		zap.String("discount_applied", ticket.DiscountApplied.StringFixed(2)),
	)
	return ticket, nil
}

// Get returns a ticket to its buyer, the organizer of its event, or anyone holding
// a role in the event's domain that may view tickets.
func (s *Service) Get(ctx context.Context, id string) (*ticketdomain.Ticket, error) {
	userID, ok := usercontext.UserIDFromContext(ctx)
	if !ok {
		return nil, ticketdomain.ErrInvalidActor
	}
	ticketID, err := parseID(id)
	if err != nil {
		return nil, ticketdomain.ErrInvalidID
	}

	ticket, err := s.repo.FindByID(ctx, s.db, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket == nil {
		return nil, ticketdomain.ErrNotFound
	}
	if ticket.BuyerID == userID {
		return ticket, nil
	}

	organizer, err := s.eventRepo.IsOrganizer(ctx, s.db, userID, ticket.EventID)
	if err != nil {
		return nil, err
	}
	if organizer {
		return ticket, nil
	}
	if err := s.authorizeView(ctx, userID, ticket.EventID); err != nil {
		return nil, err
	}
	return ticket, nil
}

func (s *Service) authorizeView(ctx context.Context, userID string, eventID snowflake.ID) error {
	if s.authz == nil {
		return ticketdomain.ErrUnauthorized
	}
	err := s.authz.Authorize(ctx, userID, authorization.EventDomain(eventID), authorization.ObjectTicket, authorization.ActionTicketView)
	if errors.Is(err, authorization.ErrForbidden) {
		return ticketdomain.ErrUnauthorized
	}
	return err
}

func (s *Service) ListMine(ctx context.Context, req ticketdomain.ListRequest) (*ticketdomain.ListResponse, error) {
	buyerID, ok := usercontext.UserIDFromContext(ctx)
	if !ok {
		return nil, ticketdomain.ErrInvalidActor
	}

	var afterID snowflake.ID
	if req.PageToken != "" {
		cursor, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return nil, err
		}
		afterID, err = parseID(cursor.ID)
		if err != nil {
			return nil, pagination.ErrInvalidPageToken
		}
	}

	items, err := s.repo.ListByBuyer(ctx, s.db, buyerID, afterID, req.Limit()+1)
	if err != nil {
		return nil, err
	}
	page, pageInfo, err := pagination.BuildCursorPage(items, req.Limit(), func(t *ticketdomain.Ticket) pagination.Cursor {
		return pagination.Cursor{ID: t.ID.String()}
	})
	if err != nil {
		return nil, err
	}
	return &ticketdomain.ListResponse{Tickets: page, PageInfo: pageInfo}, nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, ticketdomain.ErrInvalidID
	}
	return id, nil
}
