package authorization

import (
	"context"
	"errors"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tixora/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*gorm.DB, Service) {
	t.Helper()
	db := testutil.NewDB(t)
	enforcer, err := NewEnforcer(db)
	require.NoError(t, err)
	return db, NewService(Params{DB: db, Log: zap.NewNop(), Enforcer: enforcer})
}

func TestGrantRoleCommitsWithTransaction(t *testing.T) {
	ctx := context.Background()
	db, svc := newTestService(t)
	domain := EventDomain(snowflake.ID(42))

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.GrantRole(ctx, tx, "user-1", "event_staff", domain)
	})
	require.NoError(t, err)
	require.NoError(t, svc.Reload(ctx))

	has, err := svc.HasRole(ctx, "user-1", RoleEventStaff, domain)
	require.NoError(t, err)
	assert.True(t, has)

	has, err = svc.HasRole(ctx, "user-1", RoleEventStaff, GlobalDomain)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestGrantRoleRollsBackWithTransaction(t *testing.T) {
	ctx := context.Background()
	db, svc := newTestService(t)
	boom := errors.New("boom")

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := svc.GrantRole(ctx, tx, "user-1", RoleOrganizer, GlobalDomain); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.NoError(t, svc.Reload(ctx))

	has, err := svc.HasRole(ctx, "user-1", RoleOrganizer, GlobalDomain)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestGrantRoleIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db, svc := newTestService(t)

	for i := 0; i < 2; i++ {
		require.NoError(t, svc.GrantRole(ctx, nil, "user-1", RoleAdmin, GlobalDomain))
	}

	var count int64
	require.NoError(t, db.Table(casbinRuleTable).
		Where("ptype = ? AND v0 = ? AND v1 = ?", "g", "user-1", RoleAdmin).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestGrantRoleRejectsInvalidInput(t *testing.T) {
	ctx := context.Background()
	_, svc := newTestService(t)

	assert.ErrorIs(t, svc.GrantRole(ctx, nil, " ", RoleAdmin, GlobalDomain), ErrInvalidActor)
	assert.ErrorIs(t, svc.GrantRole(ctx, nil, "u", "", GlobalDomain), ErrInvalidRole)
	assert.ErrorIs(t, svc.GrantRole(ctx, nil, "u", RoleAdmin, "org:1"), ErrInvalidDomain)
	assert.ErrorIs(t, svc.GrantRole(ctx, nil, "u", RoleAdmin, "event:abc"), ErrInvalidDomain)
}

func TestAuthorize(t *testing.T) {
	ctx := context.Background()
	_, svc := newTestService(t)
	eventDomain := EventDomain(snowflake.ID(7))

	require.NoError(t, svc.EnsureRole(ctx, "organizer", RoleOrganizer, eventDomain))
	require.NoError(t, svc.EnsureRole(ctx, "staff", RoleEventStaff, eventDomain))
	require.NoError(t, svc.EnsureRole(ctx, "door", RoleCheckinStaff, eventDomain))
	require.NoError(t, svc.EnsureRole(ctx, "admin", RoleAdmin, GlobalDomain))

	assert.NoError(t, svc.Authorize(ctx, "organizer", eventDomain, ObjectTicket, ActionTicketView))
	assert.NoError(t, svc.Authorize(ctx, "staff", eventDomain, ObjectTicket, ActionTicketView))
	assert.NoError(t, svc.Authorize(ctx, "door", eventDomain, ObjectTicket, ActionTicketView))
	assert.ErrorIs(t, svc.Authorize(ctx, "staff", eventDomain, ObjectTicket, "ticket.refund"), ErrForbidden)
	assert.ErrorIs(t, svc.Authorize(ctx, "staff", EventDomain(snowflake.ID(8)), ObjectTicket, ActionTicketView), ErrForbidden)
	assert.ErrorIs(t, svc.Authorize(ctx, "stranger", eventDomain, ObjectTicket, ActionTicketView), ErrForbidden)

	// global admins pass in every event domain
	assert.NoError(t, svc.Authorize(ctx, "admin", eventDomain, ObjectTicket, ActionTicketView))
	assert.ErrorIs(t, svc.Authorize(ctx, "", eventDomain, ObjectTicket, ActionTicketView), ErrInvalidActor)
	assert.ErrorIs(t, svc.Authorize(ctx, "staff", "event:abc", ObjectTicket, ActionTicketView), ErrInvalidDomain)
}

func TestDomainFor(t *testing.T) {
	assert.Equal(t, GlobalDomain, DomainFor(nil))
	zero := snowflake.ID(0)
	assert.Equal(t, GlobalDomain, DomainFor(&zero))
	id := snowflake.ID(12)
	assert.Equal(t, "event:12", DomainFor(&id))
}
