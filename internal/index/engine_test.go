package index

import (
	"coinindex/internal/domain"
	"coinindex/internal/util"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeSnapshots struct {
	byDate map[string]domain.DailySnapshot
}

func (f *fakeSnapshots) Get(ctx context.Context, date time.Time, forceRefresh bool) (domain.DailySnapshot, error) {
	key := date.Format(time.DateOnly)
	if snapshot, ok := f.byDate[key]; ok {
		return snapshot, nil
	}
	return domain.DailySnapshot{Date: date}, nil
}

type fakeClassifier struct {
	known map[string]domain.Classification
}

func (f *fakeClassifier) Classify(assetID string) domain.Classification {
	if c, ok := f.known[assetID]; ok {
		return c
	}
	return domain.Unknown(assetID)
}

func snapshotOn(date time.Time, rows ...domain.SnapshotRow) domain.DailySnapshot {
	snapshot := domain.DailySnapshot{Date: date, Rows: rows}
	snapshot.Rerank()
	return snapshot
}

func TestEngine_Calculate(t *testing.T) {
	d1 := util.NewDate(2023, 6, 1)
	d2 := util.NewDate(2023, 6, 2)
	d3 := util.NewDate(2023, 6, 3)

	t.Run("worked example, top 2 of 3", func(t *testing.T) {
		snapshots := &fakeSnapshots{byDate: map[string]domain.DailySnapshot{
			"2023-06-01": snapshotOn(d1,
				domain.SnapshotRow{AssetID: "a", Price: 40000, MarketCap: 800},
				domain.SnapshotRow{AssetID: "b", Price: 2500, MarketCap: 300},
				domain.SnapshotRow{AssetID: "c", Price: 100, MarketCap: 50},
			),
			"2023-06-02": snapshotOn(d2,
				domain.SnapshotRow{AssetID: "a", Price: 42000, MarketCap: 840},
				domain.SnapshotRow{AssetID: "b", Price: 2400, MarketCap: 288},
				domain.SnapshotRow{AssetID: "c", Price: 110, MarketCap: 55},
			),
		}}
		engine := NewEngine(snapshots, &fakeClassifier{})

		series, err := engine.Calculate(context.Background(), domain.IndexConfig{
			Start:     d1,
			End:       d2,
			BaseValue: 1000,
			TopN:      2,
		})
		require.NoError(t, err)
		require.Len(t, series, 2)

		// base day rebased to exactly the base value
		require.Equal(t, d1, series[0].Date)
		require.InDelta(t, 1000.0, series[0].Value, 1e-9)
		require.Equal(t, 2, series[0].ConstituentCount)

		// constituent c never enters: top 2 by market cap are a and b
		base := (800.0/1100.0)*40000 + (300.0/1100.0)*2500
		day2 := (840.0/1128.0)*42000 + (288.0/1128.0)*2400
		require.InDelta(t, 1000*day2/base, series[1].Value, 1e-9)
	})

	t.Run("weights are cap-proportional, not equal", func(t *testing.T) {
		// both assets at the same price: weighted price equals that
		// price regardless of the cap split
		snapshots := &fakeSnapshots{byDate: map[string]domain.DailySnapshot{
			"2023-06-01": snapshotOn(d1,
				domain.SnapshotRow{AssetID: "a", Price: 50, MarketCap: 900},
				domain.SnapshotRow{AssetID: "b", Price: 50, MarketCap: 100},
			),
			"2023-06-02": snapshotOn(d2,
				// a doubles, b flat; w_a = 0.9 of the cap
				domain.SnapshotRow{AssetID: "a", Price: 100, MarketCap: 1800},
				domain.SnapshotRow{AssetID: "b", Price: 50, MarketCap: 100},
			),
		}}
		engine := NewEngine(snapshots, &fakeClassifier{})

		series, err := engine.Calculate(context.Background(), domain.IndexConfig{
			Start:     d1,
			End:       d2,
			BaseValue: 100,
			TopN:      2,
		})
		require.NoError(t, err)

		day2 := (1800.0/1900.0)*100 + (100.0/1900.0)*50
		require.InDelta(t, 100*day2/50.0, series[1].Value, 1e-9)
	})

	t.Run("base date shortfall is a hard error", func(t *testing.T) {
		snapshots := &fakeSnapshots{byDate: map[string]domain.DailySnapshot{
			"2023-06-01": snapshotOn(d1,
				domain.SnapshotRow{AssetID: "a", Price: 40000, MarketCap: 800},
			),
		}}
		engine := NewEngine(snapshots, &fakeClassifier{})

		_, err := engine.Calculate(context.Background(), domain.IndexConfig{
			Start:     d1,
			End:       d2,
			BaseValue: 1000,
			TopN:      5,
		})
		var shortfall InsufficientConstituentsError
		require.ErrorAs(t, err, &shortfall)
		require.Equal(t, 1, shortfall.Have)
		require.Equal(t, 5, shortfall.Want)
	})

	t.Run("empty mid-range day is skipped", func(t *testing.T) {
		rows := []domain.SnapshotRow{
			{AssetID: "a", Price: 40000, MarketCap: 800},
			{AssetID: "b", Price: 2500, MarketCap: 300},
		}
		snapshots := &fakeSnapshots{byDate: map[string]domain.DailySnapshot{
			"2023-06-01": snapshotOn(d1, rows...),
			"2023-06-03": snapshotOn(d3, rows...),
		}}
		engine := NewEngine(snapshots, &fakeClassifier{})

		series, err := engine.Calculate(context.Background(), domain.IndexConfig{
			Start:     d1,
			End:       d3,
			BaseValue: 1000,
			TopN:      2,
		})
		require.NoError(t, err)
		require.Len(t, series, 2)
		require.Equal(t, d1, series[0].Date)
		require.Equal(t, d3, series[1].Date)
		require.True(t, series[0].Date.Before(series[1].Date))
	})

	t.Run("missing constituent price aborts the run", func(t *testing.T) {
		snapshots := &fakeSnapshots{byDate: map[string]domain.DailySnapshot{
			"2023-06-01": snapshotOn(d1,
				domain.SnapshotRow{AssetID: "a", Price: 40000, MarketCap: 800},
				domain.SnapshotRow{AssetID: "b", Price: 2500, MarketCap: 300},
			),
			"2023-06-02": snapshotOn(d2,
				domain.SnapshotRow{AssetID: "a", Price: 41000, MarketCap: 820},
				domain.SnapshotRow{AssetID: "b", Price: 0, MarketCap: 300},
			),
		}}
		engine := NewEngine(snapshots, &fakeClassifier{})

		_, err := engine.Calculate(context.Background(), domain.IndexConfig{
			Start:     d1,
			End:       d2,
			BaseValue: 1000,
			TopN:      2,
		})
		var missing MissingPriceError
		require.ErrorAs(t, err, &missing)
		require.Equal(t, "b", missing.AssetID)
		require.Equal(t, d2, missing.Date)
	})

	t.Run("all days empty after base yields empty-series error", func(t *testing.T) {
		d0 := util.NewDate(2023, 5, 1)
		snapshots := &fakeSnapshots{byDate: map[string]domain.DailySnapshot{
			"2023-05-01": snapshotOn(d0,
				domain.SnapshotRow{AssetID: "a", Price: 40000, MarketCap: 800},
			),
		}}
		engine := NewEngine(snapshots, &fakeClassifier{})

		_, err := engine.Calculate(context.Background(), domain.IndexConfig{
			Start:     d1,
			End:       d2,
			BaseDate:  d0,
			BaseValue: 1000,
			TopN:      1,
		})
		require.True(t, errors.Is(err, ErrEmptySeries))
	})

	t.Run("stablecoin exclusion reshapes the selection", func(t *testing.T) {
		snapshots := &fakeSnapshots{byDate: map[string]domain.DailySnapshot{
			"2023-06-01": snapshotOn(d1,
				domain.SnapshotRow{AssetID: "bitcoin", Price: 40000, MarketCap: 800},
				domain.SnapshotRow{AssetID: "tether", Price: 1, MarketCap: 500},
				domain.SnapshotRow{AssetID: "ethereum", Price: 2500, MarketCap: 300},
			),
		}}
		classifier := &fakeClassifier{known: map[string]domain.Classification{
			"tether": domain.Known("tether", true, false),
		}}
		engine := NewEngine(snapshots, classifier)

		series, err := engine.Calculate(context.Background(), domain.IndexConfig{
			Start:              d1,
			End:                d1,
			BaseValue:          1000,
			TopN:               2,
			ExcludeStablecoins: true,
		})
		require.NoError(t, err)
		require.Len(t, series, 1)
		require.InDelta(t, 1000.0, series[0].Value, 1e-9)

		// tether displaced: without exclusion the top 2 would be
		// bitcoin + tether, with it the selection is bitcoin + ethereum
		require.Equal(t, 2, series[0].ConstituentCount)
	})

	t.Run("unknown classification is included", func(t *testing.T) {
		snapshots := &fakeSnapshots{byDate: map[string]domain.DailySnapshot{
			"2023-06-01": snapshotOn(d1,
				domain.SnapshotRow{AssetID: "mystery", Price: 10, MarketCap: 800},
				domain.SnapshotRow{AssetID: "bitcoin", Price: 40000, MarketCap: 700},
			),
		}}
		engine := NewEngine(snapshots, &fakeClassifier{})

		series, err := engine.Calculate(context.Background(), domain.IndexConfig{
			Start:              d1,
			End:                d1,
			BaseValue:          1000,
			TopN:               2,
			ExcludeStablecoins: true,
			ExcludeWrapped:     true,
		})
		require.NoError(t, err)
		require.Equal(t, 2, series[0].ConstituentCount)
	})

	t.Run("invalid config", func(t *testing.T) {
		engine := NewEngine(&fakeSnapshots{}, &fakeClassifier{})
		_, err := engine.Calculate(context.Background(), domain.IndexConfig{
			Start:     d1,
			End:       d2,
			BaseValue: 1000,
			TopN:      0,
		})
		require.Error(t, err)
	})
}

func TestSave(t *testing.T) {
	d1 := util.NewDate(2023, 6, 1)
	d2 := util.NewDate(2023, 6, 2)

	series := domain.IndexSeries{
		{Date: d1, Value: 1000, ConstituentCount: 2},
		{Date: d2, Value: 1071.0945121951218, ConstituentCount: 2},
	}

	path := filepath.Join(t.TempDir(), "index", "out.csv")
	require.NoError(t, Save(series, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	require.Equal(t, "date,index_value,constituent_count", lines[0])
	require.True(t, strings.HasPrefix(lines[1], "2023-06-01,1000,"))
	require.Contains(t, lines[2], "1071.0945121951218")
}
