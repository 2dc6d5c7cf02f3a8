package repository

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tixora/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepository(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	r := Provide()

	testutil.SeedEvent(t, db, testutil.EventFixture{ID: 10, OrganizerID: "org-user", Published: true})
	testutil.SeedTicketType(t, db, 100, 10, "100.00", 2)

	t.Run("find event", func(t *testing.T) {
		e, err := r.FindEvent(ctx, db, 10)
		require.NoError(t, err)
		require.NotNil(t, e)
		assert.Equal(t, "org-user", e.OrganizerID)
		assert.True(t, e.Published)

		missing, err := r.FindEvent(ctx, db, 99)
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("find ticket type", func(t *testing.T) {
		tt, err := r.FindTicketType(ctx, db, 100)
		require.NoError(t, err)
		require.NotNil(t, tt)
		assert.Equal(t, snowflake.ID(10), tt.EventID)
		assert.Equal(t, "100", tt.BasePrice.String())
		assert.Equal(t, 2, tt.Remaining())
	})

	t.Run("is organizer", func(t *testing.T) {
		ok, err := r.IsOrganizer(ctx, db, "org-user", 10)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = r.IsOrganizer(ctx, db, "someone-else", 10)
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = r.IsOrganizer(ctx, db, "", 10)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("reserve seat stops at quantity", func(t *testing.T) {
		now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
		for i := 0; i < 2; i++ {
			ok, err := r.ReserveSeat(ctx, db, 100, now)
			require.NoError(t, err)
			assert.True(t, ok)
		}
		ok, err := r.ReserveSeat(ctx, db, 100, now)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
