package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct{ id string }

func TestLimit(t *testing.T) {
	assert.Equal(t, DefaultPageSize, Pagination{}.Limit())
	assert.Equal(t, 5, Pagination{PageSize: 5}.Limit())
	assert.Equal(t, MaxPageSize, Pagination{PageSize: 10_000}.Limit())
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	_, err := DecodeCursor("%%%")
	assert.ErrorIs(t, err, ErrInvalidPageToken)
}

func TestBuildCursorPage(t *testing.T) {
	extract := func(r *row) Cursor { return Cursor{ID: r.id} }

	t.Run("has more", func(t *testing.T) {
		data := []*row{{"3"}, {"2"}, {"1"}}
		page, info, err := BuildCursorPage(data, 2, extract)
		require.NoError(t, err)
		assert.Len(t, page, 2)
		assert.True(t, info.HasMore)

		cursor, err := DecodeCursor(info.NextPageToken)
		require.NoError(t, err)
		assert.Equal(t, "2", cursor.ID)
	})

	t.Run("last page", func(t *testing.T) {
		page, info, err := BuildCursorPage([]*row{{"1"}}, 2, extract)
		require.NoError(t, err)
		assert.Len(t, page, 1)
		assert.False(t, info.HasMore)
		assert.Empty(t, info.NextPageToken)
	})
}
