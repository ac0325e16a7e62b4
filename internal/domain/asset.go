package domain

import (
	"time"
)

// AssetRecord is one day of observed market data for a single asset.
// Price and market cap come from the upstream chart data; volume may
// legitimately be zero for thinly traded assets.
type AssetRecord struct {
	AssetID   string
	Date      time.Time
	Price     float64
	Volume    float64
	MarketCap float64
}

// Valid reports whether the record is usable for snapshot construction.
// Records with non-positive price or market cap are dropped upstream
// and must never reach a snapshot.
func (r AssetRecord) Valid() bool {
	return r.Price > 0 && r.MarketCap > 0
}

// RankedAsset is one entry of a live market-cap ranking.
type RankedAsset struct {
	AssetID string
	Rank    int
}

// AssetHistory is an asset's chronological daily records, oldest first.
type AssetHistory struct {
	AssetID string
	Records []AssetRecord
}

// Dates returns the set of days the history covers.
func (h AssetHistory) Dates() map[time.Time]struct{} {
	out := make(map[time.Time]struct{}, len(h.Records))
	for _, r := range h.Records {
		out[r.Date] = struct{}{}
	}
	return out
}

// RecordOn returns the record for the given day. If the history holds
// multiple records for the same day, the last one observed wins.
func (h AssetHistory) RecordOn(date time.Time) (AssetRecord, bool) {
	found := AssetRecord{}
	ok := false
	for _, r := range h.Records {
		if r.Date.Equal(date) {
			found = r
			ok = true
		}
	}
	return found, ok
}
