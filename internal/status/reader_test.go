package status

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"hifi-download-manager/internal/models"
	"hifi-download-manager/internal/store"
)

func seedThree(t *testing.T) *store.Store {
	t.Helper()
	st := store.New(t.TempDir())
	ctx := context.Background()
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	jobs := []models.Download{
		{ID: "pending1", Platform: "qobuz", ItemID: "1", ItemType: "album", Status: models.StatusPending, CreatedAt: base, UpdatedAt: base},
		{ID: "complet1", Platform: "tidal", ItemID: "2", ItemType: "track", Status: models.StatusCompleted, FilePath: "/music/x", CreatedAt: base.Add(time.Minute), UpdatedAt: base.Add(2 * time.Minute)},
		{ID: "failed01", Platform: "qobuz", ItemID: "3", ItemType: "album", Status: models.StatusFailed, Error: "Error: not found", CreatedAt: base.Add(2 * time.Minute), UpdatedAt: base.Add(3 * time.Minute)},
	}
	for _, d := range jobs {
		require.NoError(t, st.Add(ctx, d))
	}
	return st
}

func TestListActiveOnly(t *testing.T) {
	reader := NewReader(seedThree(t))
	list, err := reader.List(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "pending1", list[0].ID)
}

func TestListAllNewestFirst(t *testing.T) {
	reader := NewReader(seedThree(t))
	list, err := reader.List(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, list, 3)
	require.Equal(t, "failed01", list[0].ID)
	require.Equal(t, "pending1", list[2].ID)
}

func TestSummarize(t *testing.T) {
	reader := NewReader(seedThree(t))
	s, err := reader.Summarize(context.Background())
	require.NoError(t, err)
	require.Equal(t, Summary{Total: 3, Pending: 1, Completed: 1, Failed: 1}, s)
	require.Equal(t, 1, s.Active())
}

func TestGetNotFound(t *testing.T) {
	reader := NewReader(seedThree(t))
	_, err := reader.Get(context.Background(), "zzzzzzzz")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestEmptyStore(t *testing.T) {
	reader := NewReader(store.New(t.TempDir()))
	list, err := reader.List(context.Background(), false)
	require.NoError(t, err)
	require.Empty(t, list)

	s, err := reader.Summarize(context.Background())
	require.NoError(t, err)
	require.Equal(t, Summary{}, s)
}

func TestFormatDetail(t *testing.T) {
	d := models.Download{
		ID: "abcd1234", Platform: "qobuz", ItemID: "1", ItemType: "album",
		Status: models.StatusFailed, Error: "Error: not found",
		Artist: "Kraftwerk", AlbumTitle: "Autobahn",
		CreatedAt: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2024, 6, 1, 12, 5, 0, 0, time.UTC),
	}
	out := FormatDetail(d)
	require.Contains(t, out, "Download: abcd1234")
	require.Contains(t, out, "Status:   failed")
	require.Contains(t, out, "Artist:   Kraftwerk")
	require.Contains(t, out, "Error:    Error: not found")
	require.NotContains(t, out, "Track:")
}

func TestFormatTable(t *testing.T) {
	reader := NewReader(seedThree(t))
	list, err := reader.List(context.Background(), false)
	require.NoError(t, err)

	out := FormatTable(list)
	lines := strings.Split(out, "\n")
	require.True(t, strings.HasPrefix(lines[0], "ID"))
	require.Contains(t, out, "Total: 3 | Active: 1 | Completed: 1 | Failed: 1")
}
