package domain

import (
	"fmt"
	"sort"
	"time"
)

// SnapshotRow is an asset's record annotated with its market-cap rank
// within the day's snapshot. Ranks are dense, starting at 1.
type SnapshotRow struct {
	AssetID   string  `csv:"asset_id"`
	Price     float64 `csv:"price"`
	Volume    float64 `csv:"volume"`
	MarketCap float64 `csv:"market_cap"`
	Rank      int     `csv:"rank"`
}

// DailySnapshot is the cross-sectional ranked table of every tracked
// asset's state on one calendar date, ordered by market cap descending.
type DailySnapshot struct {
	Date time.Time
	Rows []SnapshotRow
}

func (s DailySnapshot) Empty() bool {
	return len(s.Rows) == 0
}

// Contains reports whether the snapshot already holds a row for the asset.
func (s DailySnapshot) Contains(assetID string) bool {
	for _, row := range s.Rows {
		if row.AssetID == assetID {
			return true
		}
	}
	return false
}

// MarketCaps returns assetID -> market cap for every row.
func (s DailySnapshot) MarketCaps() map[string]float64 {
	out := make(map[string]float64, len(s.Rows))
	for _, row := range s.Rows {
		out[row.AssetID] = row.MarketCap
	}
	return out
}

// Price returns the asset's price on this day, if present and positive.
func (s DailySnapshot) Price(assetID string) (float64, bool) {
	for _, row := range s.Rows {
		if row.AssetID == assetID {
			if row.Price <= 0 {
				return 0, false
			}
			return row.Price, true
		}
	}
	return 0, false
}

// Rerank sorts rows by market cap descending and reassigns dense ranks
// across the whole snapshot. Must be called after any row mutation.
func (s *DailySnapshot) Rerank() {
	sort.SliceStable(s.Rows, func(i, j int) bool {
		return s.Rows[i].MarketCap > s.Rows[j].MarketCap
	})
	for i := range s.Rows {
		s.Rows[i].Rank = i + 1
	}
}

// ValidateRanks checks the snapshot invariants: ranks are exactly 1..N
// with no gaps or duplicates, at most one row per asset, and market cap
// is non-increasing in rank order.
func (s DailySnapshot) ValidateRanks() error {
	seen := make(map[string]struct{}, len(s.Rows))
	for i, row := range s.Rows {
		if row.Rank != i+1 {
			return fmt.Errorf("snapshot %s: row %d has rank %d, want %d", s.Date.Format(time.DateOnly), i, row.Rank, i+1)
		}
		if _, ok := seen[row.AssetID]; ok {
			return fmt.Errorf("snapshot %s: duplicate asset %s", s.Date.Format(time.DateOnly), row.AssetID)
		}
		seen[row.AssetID] = struct{}{}
		if i > 0 && s.Rows[i-1].MarketCap < row.MarketCap {
			return fmt.Errorf("snapshot %s: market cap increases from rank %d to %d", s.Date.Format(time.DateOnly), i, i+1)
		}
	}
	return nil
}
