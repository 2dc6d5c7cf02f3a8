package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	redis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/tixora/internal/audit/domain"
	auditrepo "github.com/smallbiznis/tixora/internal/audit/repository"
	auditservice "github.com/smallbiznis/tixora/internal/audit/service"
	"github.com/smallbiznis/tixora/internal/clock"
	discountdomain "github.com/smallbiznis/tixora/internal/discount/domain"
	discountrepo "github.com/smallbiznis/tixora/internal/discount/repository"
	eventrepo "github.com/smallbiznis/tixora/internal/event/repository"
	"github.com/smallbiznis/tixora/internal/ratelimit"
	"github.com/smallbiznis/tixora/internal/testutil"
	"github.com/smallbiznis/tixora/internal/usercontext"
	"github.com/smallbiznis/tixora/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const organizer = "organizer-1"

var (
	testEventID      = snowflake.ID(1001)
	testTicketTypeID = snowflake.ID(2001)
	testNow          = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
)

type fixture struct {
	db    *gorm.DB
	svc   discountdomain.Service
	repo  discountdomain.Repository
	clock *clock.FakeClock
}

func newFixture(t *testing.T, opts ...func(*Params)) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	testutil.SeedEvent(t, db, testutil.EventFixture{ID: testEventID, OrganizerID: organizer, Published: true})
	testutil.SeedTicketType(t, db, testTicketTypeID, testEventID, "100.00", 10)

	fc := clock.NewFakeClock(testNow)
	repo := discountrepo.Provide()
	p := Params{
		DB:        db,
		Log:       zap.NewNop(),
		GenID:     testutil.NewNode(t),
		Clock:     fc,
		Repo:      repo,
		EventRepo: eventrepo.Provide(),
	}
	for _, opt := range opts {
		opt(&p)
	}
	return &fixture{db: db, svc: New(p), repo: repo, clock: fc}
}

func withAudit(t *testing.T) func(*Params) {
	return func(p *Params) {
		p.Audit = auditservice.NewService(auditservice.Params{
			DB:    p.DB,
			Log:   zap.NewNop(),
			GenID: testutil.NewNode(t),
			Clock: p.Clock,
			Repo:  auditrepo.Provide(),
		})
	}
}

func asUser(userID string) context.Context {
	return usercontext.WithUserID(context.Background(), userID)
}

func boolPtr(v bool) *bool { return &v }

func percentReq(value string, active bool) discountdomain.CreateRequest {
	return discountdomain.CreateRequest{
		TicketTypeID: testTicketTypeID.String(),
		DiscountType: discountdomain.Percentage,
		Value:        decimal.RequireFromString(value),
		ValidFrom:    testNow.Add(-time.Hour),
		ValidTo:      testNow.Add(24 * time.Hour),
		Active:       boolPtr(active),
	}
}

func TestCreateAndGet(t *testing.T) {
	f := newFixture(t)
	ctx := asUser(organizer)

	req := percentReq("15.00", true)
	req.DiscountType = "percentage"
	req.Metadata = map[string]any{"campaign": "early-bird"}
	created, err := f.svc.Create(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, discountdomain.Percentage, created.DiscountType)
	assert.Equal(t, organizer, created.CreatedBy)

	got, err := f.svc.Get(ctx, created.ID.String())
	require.NoError(t, err)
	assert.True(t, got.Value.Equal(decimal.RequireFromString("15")))
	assert.True(t, got.Active)
	assert.Equal(t, "early-bird", got.Metadata["campaign"])
	assert.True(t, got.ValidFrom.Equal(req.ValidFrom))

	active, err := f.svc.FindActive(context.Background(), testTicketTypeID)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, created.ID, active.ID)
}

func TestCreateRejectsInvalidTermsBeforeWriting(t *testing.T) {
	f := newFixture(t)
	ctx := asUser(organizer)

	req := percentReq("120", true)
	_, err := f.svc.Create(ctx, req)
	assert.ErrorIs(t, err, discountdomain.ErrInvalidPercentage)

	req = percentReq("10", true)
	req.ValidTo = req.ValidFrom
	_, err = f.svc.Create(ctx, req)
	assert.ErrorIs(t, err, discountdomain.ErrInvalidWindow)

	req = percentReq("10", true)
	req.TicketTypeID = "nope"
	_, err = f.svc.Create(ctx, req)
	assert.ErrorIs(t, err, discountdomain.ErrInvalidTicketType)

	var count int64
	require.NoError(t, f.db.Raw(`SELECT COUNT(1) FROM discounts`).Scan(&count).Error)
	assert.Zero(t, count)
}

func TestOwnershipIsRequired(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(asUser("someone-else"), percentReq("10", true))
	assert.ErrorIs(t, err, discountdomain.ErrUnauthorized)

	_, err = f.svc.Create(context.Background(), percentReq("10", true))
	assert.ErrorIs(t, err, discountdomain.ErrInvalidActor)

	created, err := f.svc.Create(asUser(organizer), percentReq("10", true))
	require.NoError(t, err)

	_, err = f.svc.Get(asUser("someone-else"), created.ID.String())
	assert.ErrorIs(t, err, discountdomain.ErrUnauthorized)
	_, err = f.svc.Update(asUser("someone-else"), created.ID.String(), discountdomain.UpdateRequest{Active: boolPtr(false)})
	assert.ErrorIs(t, err, discountdomain.ErrUnauthorized)
	assert.ErrorIs(t, f.svc.Delete(asUser("someone-else"), created.ID.String()), discountdomain.ErrUnauthorized)

	missing := snowflake.ID(9999)
	req := percentReq("10", true)
	req.TicketTypeID = missing.String()
	_, err = f.svc.Create(asUser(organizer), req)
	assert.ErrorIs(t, err, discountdomain.ErrTicketTypeNotFound)
}

func TestSingleActiveDiscountPerTicketType(t *testing.T) {
	f := newFixture(t)
	ctx := asUser(organizer)

	first, err := f.svc.Create(ctx, percentReq("10", true))
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, percentReq("20", true))
	assert.ErrorIs(t, err, discountdomain.ErrConflict)
	assert.ErrorIs(t, err, discountdomain.ErrActiveDiscountExists)

	second, err := f.svc.Create(ctx, percentReq("20", false))
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, second.ID.String(), discountdomain.UpdateRequest{Active: boolPtr(true)})
	assert.ErrorIs(t, err, discountdomain.ErrConflict)

	stored, err := f.svc.Get(ctx, second.ID.String())
	require.NoError(t, err)
	assert.False(t, stored.Active)

	// no implicit deactivation of the first discount
	stillActive, err := f.svc.FindActive(ctx, testTicketTypeID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, stillActive.ID)

	_, err = f.svc.Update(ctx, first.ID.String(), discountdomain.UpdateRequest{Active: boolPtr(false)})
	require.NoError(t, err)

	activated, err := f.svc.Update(ctx, second.ID.String(), discountdomain.UpdateRequest{Active: boolPtr(true)})
	require.NoError(t, err)
	assert.True(t, activated.Active)

	current, err := f.svc.FindActive(ctx, testTicketTypeID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, current.ID)
}

func TestEveryCreateIsAudited(t *testing.T) {
	f := newFixture(t, withAudit(t))
	ctx := asUser(organizer)

	active, err := f.svc.Create(ctx, percentReq("10", true))
	require.NoError(t, err)
	inactive, err := f.svc.Create(ctx, percentReq("20", false))
	require.NoError(t, err)

	logs, err := auditrepo.Provide().List(context.Background(), f.db, auditdomain.ListFilter{
		Action:     auditdomain.ActionDiscountCreate,
		TargetType: "discount",
	})
	require.NoError(t, err)
	require.Len(t, logs, 2)

	byTarget := map[string]*auditdomain.AuditLog{}
	for _, entry := range logs {
		require.NotNil(t, entry.TargetID)
		byTarget[*entry.TargetID] = entry
	}
	require.Contains(t, byTarget, active.ID.String())
	require.Contains(t, byTarget, inactive.ID.String())
	assert.Equal(t, true, byTarget[active.ID.String()].Metadata["active"])
	assert.Equal(t, false, byTarget[inactive.ID.String()].Metadata["active"])
	require.NotNil(t, byTarget[inactive.ID.String()].ActorID)
	assert.Equal(t, organizer, *byTarget[inactive.ID.String()].ActorID)
}

func TestActivationFallsBackToDatabaseGuardWhenLockIsDown(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	f := newFixture(t, func(p *Params) { p.Lock = ratelimit.NewActivationLock(client) })
	ctx := asUser(organizer)

	first, err := f.svc.Create(ctx, percentReq("10", true))
	require.NoError(t, err)
	assert.True(t, first.Active)

	_, err = f.svc.Create(ctx, percentReq("20", true))
	assert.ErrorIs(t, err, discountdomain.ErrActiveDiscountExists)

	second, err := f.svc.Create(ctx, percentReq("20", false))
	require.NoError(t, err)
	_, err = f.svc.Update(ctx, second.ID.String(), discountdomain.UpdateRequest{Active: boolPtr(true)})
	assert.ErrorIs(t, err, discountdomain.ErrActiveDiscountExists)
}

func TestUniqueIndexBacksUpTheGuard(t *testing.T) {
	f := newFixture(t)
	ctx := asUser(organizer)

	_, err := f.svc.Create(ctx, percentReq("10", true))
	require.NoError(t, err)

	raw := &discountdomain.Discount{
		ID:           snowflake.ID(777),
		TicketTypeID: testTicketTypeID,
		DiscountType: discountdomain.FixedAmount,
		Value:        decimal.RequireFromString("5"),
		ValidFrom:    testNow,
		ValidTo:      testNow.Add(time.Hour),
		Active:       true,
		Metadata:     map[string]any{},
		CreatedBy:    organizer,
		CreatedAt:    testNow,
		UpdatedAt:    testNow,
	}
	err = mapWriteError(f.repo.Insert(ctx, f.db, raw))
	assert.ErrorIs(t, err, discountdomain.ErrActiveDiscountExists)
}

func TestUpdateValidatesMergedTerms(t *testing.T) {
	f := newFixture(t)
	ctx := asUser(organizer)

	created, err := f.svc.Create(ctx, percentReq("10", true))
	require.NoError(t, err)

	value := decimal.RequireFromString("150")
	_, err = f.svc.Update(ctx, created.ID.String(), discountdomain.UpdateRequest{Value: &value})
	assert.ErrorIs(t, err, discountdomain.ErrInvalidPercentage)

	fixed := discountdomain.FixedAmount
	f.clock.Advance(time.Minute)
	updated, err := f.svc.Update(ctx, created.ID.String(), discountdomain.UpdateRequest{DiscountType: &fixed, Value: &value})
	require.NoError(t, err)
	assert.Equal(t, discountdomain.FixedAmount, updated.DiscountType)
	assert.True(t, updated.UpdatedAt.After(updated.CreatedAt))

	_, err = f.svc.Update(ctx, snowflake.ID(4242).String(), discountdomain.UpdateRequest{Active: boolPtr(false)})
	assert.ErrorIs(t, err, discountdomain.ErrNotFound)
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	ctx := asUser(organizer)

	created, err := f.svc.Create(ctx, percentReq("10", true))
	require.NoError(t, err)
	require.NoError(t, f.svc.Delete(ctx, created.ID.String()))

	_, err = f.svc.Get(ctx, created.ID.String())
	assert.ErrorIs(t, err, discountdomain.ErrNotFound)

	// the slot is free again
	_, err = f.svc.Create(ctx, percentReq("25", true))
	require.NoError(t, err)
}

func TestListPaginates(t *testing.T) {
	f := newFixture(t)
	ctx := asUser(organizer)

	for i := 0; i < 5; i++ {
		_, err := f.svc.Create(ctx, percentReq("5", false))
		require.NoError(t, err)
	}
	_, err := f.svc.Create(ctx, percentReq("5", true))
	require.NoError(t, err)

	req := discountdomain.ListRequest{TicketTypeID: testTicketTypeID.String()}
	req.PageSize = 4
	first, err := f.svc.List(ctx, req)
	require.NoError(t, err)
	assert.Len(t, first.Discounts, 4)
	require.True(t, first.PageInfo.HasMore)

	req.PageToken = first.PageInfo.NextPageToken
	second, err := f.svc.List(ctx, req)
	require.NoError(t, err)
	assert.Len(t, second.Discounts, 2)
	assert.False(t, second.PageInfo.HasMore)
	assert.Greater(t, first.Discounts[3].ID, second.Discounts[0].ID)

	onlyActive, err := f.svc.List(ctx, discountdomain.ListRequest{TicketTypeID: testTicketTypeID.String(), Active: boolPtr(true)})
	require.NoError(t, err)
	assert.Len(t, onlyActive.Discounts, 1)

	req.PageToken = "%%%"
	_, err = f.svc.List(ctx, req)
	assert.ErrorIs(t, err, pagination.ErrInvalidPageToken)
}

func TestCalculateFinalPrice(t *testing.T) {
	f := newFixture(t)
	got, err := f.svc.CalculateFinalPrice(decimal.RequireFromString("100.00"), &discountdomain.Discount{
		DiscountType: discountdomain.Percentage,
		Value:        decimal.RequireFromString("15.00"),
	})
	require.NoError(t, err)
	assert.True(t, got.Final.Equal(decimal.RequireFromString("85.00")))
	assert.True(t, got.Applied.Equal(decimal.RequireFromString("15.00")))
}
