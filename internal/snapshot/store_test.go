package snapshot

import (
	"coinindex/internal/domain"
	"coinindex/internal/util"
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(StoreConfig{DataDir: t.TempDir(), NumWorkers: 2})
}

func seedHistory(t *testing.T, store *Store, assetID string, records []domain.AssetRecord) {
	t.Helper()
	require.NoError(t, store.Histories.Put(assetID, records))
}

func TestStore_Get(t *testing.T) {
	day := util.NewDate(2023, 6, 1)

	t.Run("read your writes", func(t *testing.T) {
		store := newTestStore(t)

		snapshot := domain.DailySnapshot{
			Date: day,
			Rows: []domain.SnapshotRow{
				{AssetID: "bitcoin", Price: 40000, MarketCap: 800, Rank: 1},
			},
		}
		require.NoError(t, store.Put(context.Background(), day, snapshot))

		got, err := store.Get(context.Background(), day, false)
		require.NoError(t, err)
		require.Equal(t, "", cmp.Diff(snapshot, got))
	})

	t.Run("falls through to disk after invalidate", func(t *testing.T) {
		store := newTestStore(t)

		snapshot := domain.DailySnapshot{
			Date: day,
			Rows: []domain.SnapshotRow{
				{AssetID: "bitcoin", Price: 40000, MarketCap: 800, Rank: 1},
			},
		}
		require.NoError(t, store.Put(context.Background(), day, snapshot))
		store.Invalidate(day)

		got, err := store.Get(context.Background(), day, false)
		require.NoError(t, err)
		require.Equal(t, "", cmp.Diff(snapshot.Rows, got.Rows))
	})

	t.Run("recomputes from histories when nothing persisted", func(t *testing.T) {
		store := newTestStore(t)
		seedHistory(t, store, "bitcoin", []domain.AssetRecord{
			{AssetID: "bitcoin", Date: day, Price: 40000, Volume: 10, MarketCap: 800},
		})
		seedHistory(t, store, "ethereum", []domain.AssetRecord{
			{AssetID: "ethereum", Date: day, Price: 2500, Volume: 5, MarketCap: 300},
		})

		got, err := store.Get(context.Background(), day, false)
		require.NoError(t, err)
		require.Equal(
			t,
			"",
			cmp.Diff(
				[]domain.SnapshotRow{
					{AssetID: "bitcoin", Price: 40000, Volume: 10, MarketCap: 800, Rank: 1},
					{AssetID: "ethereum", Price: 2500, Volume: 5, MarketCap: 300, Rank: 2},
				},
				got.Rows,
			),
		)

		// recompute writes through to disk
		require.True(t, store.Files.Exists(day))
	})

	t.Run("force refresh bypasses stale tiers", func(t *testing.T) {
		store := newTestStore(t)
		seedHistory(t, store, "bitcoin", []domain.AssetRecord{
			{AssetID: "bitcoin", Date: day, Price: 40000, MarketCap: 800},
		})

		stale := domain.DailySnapshot{
			Date: day,
			Rows: []domain.SnapshotRow{
				{AssetID: "bitcoin", Price: 1, MarketCap: 1, Rank: 1},
			},
		}
		require.NoError(t, store.Put(context.Background(), day, stale))

		got, err := store.Get(context.Background(), day, true)
		require.NoError(t, err)
		require.Equal(t, float64(40000), got.Rows[0].Price)
	})

	t.Run("forced empty recompute does not shadow the persisted file", func(t *testing.T) {
		store := newTestStore(t)
		seedHistory(t, store, "bitcoin", []domain.AssetRecord{
			{AssetID: "bitcoin", Date: day.AddDate(0, 0, -10), Price: 40000, MarketCap: 800},
		})

		snapshot := domain.DailySnapshot{
			Date: day,
			Rows: []domain.SnapshotRow{
				{AssetID: "bitcoin", Price: 40000, MarketCap: 800, Rank: 1},
			},
		}
		require.NoError(t, store.Put(context.Background(), day, snapshot))

		// no history covers this day, so a forced refresh comes up empty
		got, err := store.Get(context.Background(), day, true)
		require.NoError(t, err)
		require.True(t, got.Empty())

		// the persisted file is still the answer on the next read
		got, err = store.Get(context.Background(), day, false)
		require.NoError(t, err)
		require.Equal(t, "", cmp.Diff(snapshot.Rows, got.Rows))
	})

	t.Run("no data anywhere yields empty snapshot, not error", func(t *testing.T) {
		store := newTestStore(t)
		seedHistory(t, store, "bitcoin", []domain.AssetRecord{
			{AssetID: "bitcoin", Date: day.AddDate(0, 0, -10), Price: 40000, MarketCap: 800},
		})

		got, err := store.Get(context.Background(), day, false)
		require.NoError(t, err)
		require.True(t, got.Empty())
	})
}

func TestStore_BuildRange(t *testing.T) {
	d1 := util.NewDate(2023, 6, 1)
	d2 := util.NewDate(2023, 6, 2)
	d3 := util.NewDate(2023, 6, 3)

	t.Run("builds every day with data", func(t *testing.T) {
		store := newTestStore(t)
		seedHistory(t, store, "bitcoin", []domain.AssetRecord{
			{AssetID: "bitcoin", Date: d1, Price: 100, MarketCap: 800},
			{AssetID: "bitcoin", Date: d3, Price: 120, MarketCap: 820},
		})

		result, err := store.BuildRange(context.Background(), d1, d3, false)
		require.NoError(t, err)
		require.Equal(t, 2, result.DaysBuilt)
		require.Equal(t, 1, result.DaysSkipped)

		require.True(t, store.Files.Exists(d1))
		require.False(t, store.Files.Exists(d2))
		require.True(t, store.Files.Exists(d3))

		dates, err := store.Files.Dates()
		require.NoError(t, err)
		require.Equal(t, "", cmp.Diff([]string{"2023-06-01", "2023-06-03"}, formatDates(dates)))
	})

	t.Run("existing files survive without force", func(t *testing.T) {
		store := newTestStore(t)
		seedHistory(t, store, "bitcoin", []domain.AssetRecord{
			{AssetID: "bitcoin", Date: d1, Price: 100, MarketCap: 800},
		})

		manual := domain.DailySnapshot{
			Date: d1,
			Rows: []domain.SnapshotRow{
				{AssetID: "bitcoin", Price: 999, MarketCap: 800, Rank: 1},
			},
		}
		require.NoError(t, store.Files.Write(d1, manual))

		_, err := store.BuildRange(context.Background(), d1, d1, false)
		require.NoError(t, err)

		got, err := store.Files.Read(d1)
		require.NoError(t, err)
		require.Equal(t, float64(999), got.Rows[0].Price)
	})

	t.Run("force rebuilds existing files", func(t *testing.T) {
		store := newTestStore(t)
		seedHistory(t, store, "bitcoin", []domain.AssetRecord{
			{AssetID: "bitcoin", Date: d1, Price: 100, MarketCap: 800},
		})

		manual := domain.DailySnapshot{
			Date: d1,
			Rows: []domain.SnapshotRow{
				{AssetID: "bitcoin", Price: 999, MarketCap: 800, Rank: 1},
			},
		}
		require.NoError(t, store.Files.Write(d1, manual))

		_, err := store.BuildRange(context.Background(), d1, d1, true)
		require.NoError(t, err)

		got, err := store.Files.Read(d1)
		require.NoError(t, err)
		require.Equal(t, float64(100), got.Rows[0].Price)
	})

	t.Run("no histories is an error", func(t *testing.T) {
		store := newTestStore(t)
		_, err := store.BuildRange(context.Background(), d1, d3, false)
		require.Error(t, err)
	})

	t.Run("cancelled context returns instead of hanging", func(t *testing.T) {
		store := newTestStore(t)
		seedHistory(t, store, "bitcoin", []domain.AssetRecord{
			{AssetID: "bitcoin", Date: d1, Price: 100, MarketCap: 800},
		})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		done := make(chan error, 1)
		go func() {
			_, err := store.BuildRange(ctx, d1, d3, false)
			done <- err
		}()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("build range did not finish after cancellation")
		}
	})
}

func formatDates(dates []time.Time) []string {
	out := make([]string, 0, len(dates))
	for _, d := range dates {
		out = append(out, d.Format(time.DateOnly))
	}
	return out
}
