package index

import (
	"coinindex/internal/domain"
	"coinindex/internal/logger"
	"coinindex/internal/util"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gocarina/gocsv"
)

// SnapshotGetter is the read side of the snapshot store the engine
// consumes.
type SnapshotGetter interface {
	Get(ctx context.Context, date time.Time, forceRefresh bool) (domain.DailySnapshot, error)
}

// AssetClassifier labels assets as stablecoin / wrapped. Assets it
// cannot classify come back with unknown confidence and are included.
type AssetClassifier interface {
	Classify(assetID string) domain.Classification
}

// InsufficientConstituentsError is the hard precondition failure for a
// base date with fewer eligible assets than the configured top N.
type InsufficientConstituentsError struct {
	Date time.Time
	Have int
	Want int
}

func (e InsufficientConstituentsError) Error() string {
	return fmt.Sprintf(
		"base date %s has only %d eligible assets, need %d",
		e.Date.Format(time.DateOnly), e.Have, e.Want,
	)
}

// MissingPriceError aborts the whole computation: a selected
// constituent without a price poisons that day's weighted price, and on
// the base date it poisons every subsequent ratio.
type MissingPriceError struct {
	AssetID string
	Date    time.Time
}

func (e MissingPriceError) Error() string {
	return fmt.Sprintf("missing price for constituent %s on %s", e.AssetID, e.Date.Format(time.DateOnly))
}

// ErrEmptySeries means every date in the range was skipped. An index
// with zero points is always an error, never a silent empty result.
var ErrEmptySeries = fmt.Errorf("index computation produced no points")

// Engine computes a daily-reconstituted market-cap-weighted index.
type Engine struct {
	Snapshots  SnapshotGetter
	Classifier AssetClassifier
}

func NewEngine(snapshots SnapshotGetter, classifier AssetClassifier) *Engine {
	return &Engine{Snapshots: snapshots, Classifier: classifier}
}

// Calculate runs the full index computation for the config.
//
// The anchor is computed once on the base date: the top N eligible
// assets by market cap, their cap-proportional weights, and the
// weighted price level sum(w_i * price_i). Each day in [start, end]
// re-selects its own constituent set and weights from that day's
// snapshot, and the day's index value is
//
//	base_value * weighted_price(d) / weighted_price(base)
//
// weighted_price is a cap-weighted average price level, not an
// aggregate market-cap ratio; downstream consumers depend on this
// exact definition.
//
// An empty or unreadable day is skipped; a missing price for a
// selected constituent aborts the entire run. The asymmetry is
// deliberate and must be preserved.
func (e *Engine) Calculate(ctx context.Context, cfg domain.IndexConfig) (domain.IndexSeries, error) {
	log := logger.FromContext(ctx)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid index config: %w", err)
	}

	baseDate := util.Midnight(cfg.BaseDate)
	if cfg.BaseDate.IsZero() {
		baseDate = util.Midnight(cfg.Start)
	}

	baseWeightedPrice, err := e.weightedPriceOn(ctx, baseDate, cfg, true)
	if err != nil {
		return nil, err
	}

	log.Infof(
		"index anchor: base date %s, base value %.2f, top %d, weighted price %.6f",
		baseDate.Format(time.DateOnly), cfg.BaseValue, cfg.TopN, baseWeightedPrice.value,
	)

	series := domain.IndexSeries{}
	for _, day := range util.DaysBetween(cfg.Start, cfg.End) {
		dayPrice, err := e.weightedPriceOn(ctx, day, cfg, false)
		if err != nil {
			var missing MissingPriceError
			if errors.As(err, &missing) {
				return nil, err
			}
			log.Warnf("skipping %s: %v", day.Format(time.DateOnly), err)
			continue
		}
		if dayPrice == nil {
			// no data for this day
			log.Warnf("no snapshot data for %s, skipping", day.Format(time.DateOnly))
			continue
		}

		series = append(series, domain.IndexPoint{
			Date:             day,
			Value:            cfg.BaseValue * dayPrice.value / baseWeightedPrice.value,
			ConstituentCount: dayPrice.constituents,
		})
	}

	if len(series) == 0 {
		return nil, ErrEmptySeries
	}

	log.Infof("index computed: %d points from %s to %s",
		len(series),
		series[0].Date.Format(time.DateOnly),
		series[len(series)-1].Date.Format(time.DateOnly),
	)
	return series, nil
}

type weightedPrice struct {
	value        float64
	constituents int
}

// weightedPriceOn selects the day's constituents and computes the
// cap-weighted price level. On the base date (isBase), a shortfall
// versus TopN is a hard error; on other days the day's available
// eligible set is used. Returns nil when the day has no usable data.
func (e *Engine) weightedPriceOn(ctx context.Context, date time.Time, cfg domain.IndexConfig, isBase bool) (*weightedPrice, error) {
	snapshot, err := e.Snapshots.Get(ctx, date, false)
	if err != nil {
		if isBase {
			return nil, fmt.Errorf("failed to read base date snapshot: %w", err)
		}
		return nil, fmt.Errorf("unreadable snapshot: %w", err)
	}
	if snapshot.Empty() {
		if isBase {
			return nil, InsufficientConstituentsError{Date: date, Have: 0, Want: cfg.TopN}
		}
		return nil, nil
	}

	eligible := e.filterEligible(snapshot, cfg)
	if isBase && len(eligible) < cfg.TopN {
		return nil, InsufficientConstituentsError{Date: date, Have: len(eligible), Want: cfg.TopN}
	}
	if len(eligible) == 0 {
		return nil, nil
	}

	constituents := selectTopN(eligible, cfg.TopN)

	totalMarketCap := 0.0
	for _, row := range constituents {
		totalMarketCap += row.MarketCap
	}

	value := 0.0
	for _, row := range constituents {
		price, ok := snapshot.Price(row.AssetID)
		if !ok {
			return nil, MissingPriceError{AssetID: row.AssetID, Date: date}
		}
		weight := row.MarketCap / totalMarketCap
		value += weight * price
	}

	return &weightedPrice{value: value, constituents: len(constituents)}, nil
}

// filterEligible drops assets excluded by the run's classification
// flags. Unknown classifications are conservatively included.
func (e *Engine) filterEligible(snapshot domain.DailySnapshot, cfg domain.IndexConfig) []domain.SnapshotRow {
	if !cfg.ExcludeStablecoins && !cfg.ExcludeWrapped {
		return snapshot.Rows
	}
	eligible := []domain.SnapshotRow{}
	for _, row := range snapshot.Rows {
		classification := e.Classifier.Classify(row.AssetID)
		if classification.Excluded(cfg.ExcludeStablecoins, cfg.ExcludeWrapped) {
			continue
		}
		eligible = append(eligible, row)
	}
	return eligible
}

func selectTopN(rows []domain.SnapshotRow, topN int) []domain.SnapshotRow {
	sorted := make([]domain.SnapshotRow, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].MarketCap > sorted[j].MarketCap
	})
	if len(sorted) > topN {
		sorted = sorted[:topN]
	}
	return sorted
}

// Save serializes the series in date order, preserving full float
// precision.
func Save(series domain.IndexSeries, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	type indexRow struct {
		Date             string  `csv:"date"`
		IndexValue       float64 `csv:"index_value"`
		ConstituentCount int     `csv:"constituent_count"`
	}

	rows := make([]indexRow, 0, len(series))
	for _, point := range series {
		rows = append(rows, indexRow{
			Date:             point.Date.Format(time.DateOnly),
			IndexValue:       point.Value,
			ConstituentCount: point.ConstituentCount,
		})
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create index output: %w", err)
	}
	defer f.Close()

	if err := gocsv.MarshalFile(&rows, f); err != nil {
		return fmt.Errorf("failed to write index output: %w", err)
	}
	return nil
}
