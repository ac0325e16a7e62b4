package snapshot

import (
	"coinindex/internal/domain"
	"coinindex/internal/util"
	"time"
)

// Build constructs the cross-sectional ranked snapshot for a single
// calendar date from per-asset histories. Pure: no I/O, no shared
// state; persistence is the store's job.
//
// For each asset the record matching the target date is selected (when
// a history carries duplicates for one day, the last observed record
// wins). Invalid records are dropped. The survivors are sorted by
// market cap descending and given dense ranks from 1. Zero valid
// records yield an empty snapshot, which callers must treat as a
// normal, skippable condition rather than an error.
func Build(date time.Time, histories map[string]*domain.AssetHistory) domain.DailySnapshot {
	day := util.Midnight(date)
	snapshot := domain.DailySnapshot{Date: day}

	for _, history := range histories {
		record, ok := history.RecordOn(day)
		if !ok || !record.Valid() {
			continue
		}
		snapshot.Rows = append(snapshot.Rows, domain.SnapshotRow{
			AssetID:   record.AssetID,
			Price:     record.Price,
			Volume:    record.Volume,
			MarketCap: record.MarketCap,
		})
	}

	snapshot.Rerank()
	return snapshot
}
