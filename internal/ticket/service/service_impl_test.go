package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/tixora/internal/authorization"
	"github.com/smallbiznis/tixora/internal/clock"
	discountrepo "github.com/smallbiznis/tixora/internal/discount/repository"
	eventdomain "github.com/smallbiznis/tixora/internal/event/domain"
	eventrepo "github.com/smallbiznis/tixora/internal/event/repository"
	"github.com/smallbiznis/tixora/internal/pricing"
	"github.com/smallbiznis/tixora/internal/testutil"
	ticketdomain "github.com/smallbiznis/tixora/internal/ticket/domain"
	ticketrepo "github.com/smallbiznis/tixora/internal/ticket/repository"
	"github.com/smallbiznis/tixora/internal/usercontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const organizer = "organizer-1"

var (
	openEventID   = snowflake.ID(500)
	draftEventID  = snowflake.ID(501)
	closedEventID = snowflake.ID(502)
	gaTypeID      = snowflake.ID(600)
	draftTypeID   = snowflake.ID(601)
	closedTypeID  = snowflake.ID(602)
	purchaseAt    = time.Date(2026, 8, 15, 18, 0, 0, 0, time.UTC)
)

func newService(t *testing.T, quantity int, opts ...func(*Params)) (*gorm.DB, ticketdomain.Service) {
	t.Helper()
	db := testutil.NewDB(t)

	salesEnd := purchaseAt.Add(-time.Hour)
	testutil.SeedEvent(t, db, testutil.EventFixture{ID: openEventID, OrganizerID: organizer, Published: true})
	testutil.SeedEvent(t, db, testutil.EventFixture{ID: draftEventID, OrganizerID: organizer})
	testutil.SeedEvent(t, db, testutil.EventFixture{ID: closedEventID, OrganizerID: organizer, Published: true, SalesEnd: &salesEnd})
	testutil.SeedTicketType(t, db, gaTypeID, openEventID, "100.00", quantity)
	testutil.SeedTicketType(t, db, draftTypeID, draftEventID, "100.00", quantity)
	testutil.SeedTicketType(t, db, closedTypeID, closedEventID, "100.00", quantity)

	log := zap.NewNop()
	events := eventrepo.Provide()
	resolver := pricing.NewResolver(pricing.Params{
		DB:           db,
		Log:          log,
		EventRepo:    events,
		DiscountRepo: discountrepo.Provide(),
	})
	p := Params{
		DB:        db,
		Log:       log,
		GenID:     testutil.NewNode(t),
		Clock:     clock.NewFakeClock(purchaseAt),
		Repo:      ticketrepo.Provide(),
		EventRepo: events,
		Resolver:  resolver,
	}
	for _, opt := range opts {
		opt(&p)
	}
	return db, New(p)
}

func asUser(userID string) context.Context {
	return usercontext.WithUserID(context.Background(), userID)
}

func purchase(id snowflake.ID) ticketdomain.PurchaseRequest {
	return ticketdomain.PurchaseRequest{TicketTypeID: id.String()}
}

func TestPurchaseAppliesActiveDiscount(t *testing.T) {
	db, svc := newService(t, 10)
	require.NoError(t, db.Exec(
		`INSERT INTO discounts (id, ticket_type_id, discount_type, value, valid_from, valid_to, active, description, metadata, created_by, created_at, updated_at)
		 VALUES (?, ?, 'PERCENTAGE', ?, ?, ?, ?, '', '{}', ?, ?, ?)`,
		700, gaTypeID, decimal.RequireFromString("15.00"),
		purchaseAt.Add(-24*time.Hour), purchaseAt.Add(24*time.Hour), true, organizer, purchaseAt, purchaseAt,
	).Error)

	ticket, err := svc.Purchase(asUser("buyer-1"), purchase(gaTypeID))
	require.NoError(t, err)
	assert.True(t, ticket.OriginalPrice.Equal(decimal.RequireFromString("100.00")))
	assert.True(t, ticket.PricePaid.Equal(decimal.RequireFromString("85.00")))
	assert.True(t, ticket.DiscountApplied.Equal(decimal.RequireFromString("15.00")))
	require.NotNil(t, ticket.DiscountID)
	assert.Equal(t, snowflake.ID(700), *ticket.DiscountID)

	stored, err := svc.Get(asUser("buyer-1"), ticket.ID.String())
	require.NoError(t, err)
	assert.True(t, stored.OriginalPrice.Sub(stored.PricePaid).Equal(stored.DiscountApplied))
	assert.True(t, stored.PurchasedAt.Equal(purchaseAt))

	var sold int
	require.NoError(t, db.Raw(`SELECT sold FROM ticket_types WHERE id = ?`, gaTypeID).Scan(&sold).Error)
	assert.Equal(t, 1, sold)
}

func TestIssuedTicketKeepsItsPrice(t *testing.T) {
	db, svc := newService(t, 10)

	ticket, err := svc.Purchase(asUser("buyer-1"), purchase(gaTypeID))
	require.NoError(t, err)
	assert.True(t, ticket.PricePaid.Equal(decimal.RequireFromString("100")))
	assert.Nil(t, ticket.DiscountID)

	require.NoError(t, db.Exec(`UPDATE ticket_types SET base_price = ? WHERE id = ?`, decimal.RequireFromString("140.00"), gaTypeID).Error)

	stored, err := svc.Get(asUser("buyer-1"), ticket.ID.String())
	require.NoError(t, err)
	assert.True(t, stored.OriginalPrice.Equal(decimal.RequireFromString("100")))
	assert.True(t, stored.PricePaid.Equal(decimal.RequireFromString("100")))
}

func TestPurchaseRejectsClosedEventsBeforePricing(t *testing.T) {
	_, svc := newService(t, 10)

	_, err := svc.Purchase(asUser("buyer-1"), purchase(draftTypeID))
	assert.ErrorIs(t, err, ticketdomain.ErrEventNotPublished)

	_, err = svc.Purchase(asUser("buyer-1"), purchase(closedTypeID))
	assert.ErrorIs(t, err, ticketdomain.ErrSalesClosed)

	_, err = svc.Purchase(asUser("buyer-1"), purchase(snowflake.ID(999)))
	assert.ErrorIs(t, err, eventdomain.ErrTicketTypeNotFound)

	_, err = svc.Purchase(asUser("buyer-1"), ticketdomain.PurchaseRequest{TicketTypeID: "x"})
	assert.ErrorIs(t, err, ticketdomain.ErrInvalidTicketType)

	_, err = svc.Purchase(context.Background(), purchase(gaTypeID))
	assert.ErrorIs(t, err, ticketdomain.ErrInvalidActor)
}

func TestPurchaseSoldOut(t *testing.T) {
	db, svc := newService(t, 2)

	for i := 0; i < 2; i++ {
		_, err := svc.Purchase(asUser("buyer-1"), purchase(gaTypeID))
		require.NoError(t, err)
	}
	_, err := svc.Purchase(asUser("buyer-2"), purchase(gaTypeID))
	assert.ErrorIs(t, err, ticketdomain.ErrSoldOut)

	var count int64
	require.NoError(t, db.Raw(`SELECT COUNT(1) FROM tickets WHERE ticket_type_id = ?`, gaTypeID).Scan(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestGetAuthorization(t *testing.T) {
	_, svc := newService(t, 10)

	ticket, err := svc.Purchase(asUser("buyer-1"), purchase(gaTypeID))
	require.NoError(t, err)

	_, err = svc.Get(asUser(organizer), ticket.ID.String())
	assert.NoError(t, err)

	_, err = svc.Get(asUser("buyer-2"), ticket.ID.String())
	assert.ErrorIs(t, err, ticketdomain.ErrUnauthorized)

	_, err = svc.Get(asUser("buyer-1"), snowflake.ID(1).String())
	assert.ErrorIs(t, err, ticketdomain.ErrNotFound)
}

func TestGetAdmitsEventScopedRoles(t *testing.T) {
	var authz authorization.Service
	_, svc := newService(t, 10, func(p *Params) {
		enforcer, err := authorization.NewEnforcer(p.DB)
		require.NoError(t, err)
		authz = authorization.NewService(authorization.Params{DB: p.DB, Log: zap.NewNop(), Enforcer: enforcer})
		p.Authz = authz
	})
	ctx := context.Background()
	require.NoError(t, authz.EnsureRole(ctx, "staff-1", authorization.RoleEventStaff, authorization.EventDomain(openEventID)))
	require.NoError(t, authz.EnsureRole(ctx, "staff-2", authorization.RoleEventStaff, authorization.EventDomain(closedEventID)))
	require.NoError(t, authz.EnsureRole(ctx, "admin-1", authorization.RoleAdmin, authorization.GlobalDomain))

	ticket, err := svc.Purchase(asUser("buyer-1"), purchase(gaTypeID))
	require.NoError(t, err)

	got, err := svc.Get(asUser("staff-1"), ticket.ID.String())
	require.NoError(t, err)
	assert.Equal(t, ticket.ID, got.ID)

	_, err = svc.Get(asUser("admin-1"), ticket.ID.String())
	assert.NoError(t, err)

	_, err = svc.Get(asUser("staff-2"), ticket.ID.String())
	assert.ErrorIs(t, err, ticketdomain.ErrUnauthorized)

	_, err = svc.Get(asUser("buyer-2"), ticket.ID.String())
	assert.ErrorIs(t, err, ticketdomain.ErrUnauthorized)
}

func TestListMine(t *testing.T) {
	_, svc := newService(t, 10)

	for i := 0; i < 3; i++ {
		_, err := svc.Purchase(asUser("buyer-1"), purchase(gaTypeID))
		require.NoError(t, err)
	}
	_, err := svc.Purchase(asUser("buyer-2"), purchase(gaTypeID))
	require.NoError(t, err)

	req := ticketdomain.ListRequest{}
	req.PageSize = 2
	first, err := svc.ListMine(asUser("buyer-1"), req)
	require.NoError(t, err)
	assert.Len(t, first.Tickets, 2)
	require.True(t, first.PageInfo.HasMore)

	req.PageToken = first.PageInfo.NextPageToken
	second, err := svc.ListMine(asUser("buyer-1"), req)
	require.NoError(t, err)
	assert.Len(t, second.Tickets, 1)
	assert.False(t, second.PageInfo.HasMore)
	for _, ticket := range append(first.Tickets, second.Tickets...) {
		assert.Equal(t, "buyer-1", ticket.BuyerID)
	}
}
