package pagination

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type row struct {
	ID        string
	CreatedAt time.Time
}

func TestNormalize(t *testing.T) {
	require.Equal(t, DefaultLimit, Pagination{}.Normalize().Limit)
	require.Equal(t, DefaultLimit, Pagination{Limit: -3}.Normalize().Limit)
	require.Equal(t, 25, Pagination{Limit: 25}.Normalize().Limit)
	require.Equal(t, MaxLimit, Pagination{Limit: 5000}.Normalize().Limit)
}

func TestCursorRoundTrip(t *testing.T) {
	at := time.Date(2025, 6, 1, 10, 0, 0, 0, time.FixedZone("WIB", 7*3600))
	encoded, err := EncodeCursor(NewCursor(at, "act-9"))
	require.NoError(t, err)

	decoded, err := DecodeCursor(encoded)
	require.NoError(t, err)
	require.Equal(t, "act-9", decoded.ID)
	require.Equal(t, "2025-06-01T03:00:00Z", decoded.CreatedAt)

	_, err = DecodeCursor("%%%")
	require.Error(t, err)
}

func TestBuildCursorPageInfo(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	data := []*row{{ID: "c", CreatedAt: now}, {ID: "b", CreatedAt: now}, {ID: "a", CreatedAt: now}}
	extract := func(r *row) Cursor { return NewCursor(r.CreatedAt, r.ID) }

	page, info := BuildCursorPageInfo(data, 2, extract)
	require.Len(t, page, 2)
	require.True(t, info.HasMore)

	next, err := DecodeCursor(info.NextCursor)
	require.NoError(t, err)
	require.Equal(t, "b", next.ID)

	page, info = BuildCursorPageInfo(data[:2], 2, extract)
	require.Len(t, page, 2)
	require.False(t, info.HasMore)
	require.Empty(t, info.NextCursor)

	page, info = BuildCursorPageInfo([]*row{}, 2, extract)
	require.Empty(t, page)
	require.False(t, info.HasMore)
}
