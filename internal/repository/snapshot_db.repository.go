package repository

import (
	"coinindex/internal/db/models/postgres/public/model"
	. "coinindex/internal/db/models/postgres/public/table"
	"coinindex/internal/domain"
	"coinindex/internal/util"
	"database/sql"
	"fmt"
	"time"

	. "github.com/go-jet/jet/v2/postgres"
)

// SnapshotDBRepository is the optional relational tier of the snapshot
// store. It mirrors the file layout's per-date rows in a single
// daily_asset_snapshot table and serves the same read contract.
type SnapshotDBRepository interface {
	Read(tx *sql.Tx, date time.Time) (domain.DailySnapshot, error)
	Add(tx *sql.Tx, snapshot domain.DailySnapshot) error
	Dates(tx *sql.Tx) ([]time.Time, error)
}

func NewSnapshotDBRepository() SnapshotDBRepository {
	return SnapshotDBRepositoryHandler{}
}

type SnapshotDBRepositoryHandler struct{}

func (h SnapshotDBRepositoryHandler) Read(tx *sql.Tx, date time.Time) (domain.DailySnapshot, error) {
	snapshot := domain.DailySnapshot{Date: util.Midnight(date)}

	query := DailyAssetSnapshot.
		SELECT(DailyAssetSnapshot.AllColumns).
		WHERE(DailyAssetSnapshot.Date.EQ(DateT(date))).
		ORDER_BY(DailyAssetSnapshot.Rank.ASC())

	result := []model.DailyAssetSnapshot{}
	err := query.Query(tx, &result)
	if err != nil {
		return snapshot, fmt.Errorf("failed to query snapshot for %v: %w", date, err)
	}

	for _, row := range result {
		snapshot.Rows = append(snapshot.Rows, domain.SnapshotRow{
			AssetID:   row.AssetID,
			Price:     row.Price,
			Volume:    row.Volume,
			MarketCap: row.MarketCap,
			Rank:      int(row.Rank),
		})
	}

	return snapshot, nil
}

func (h SnapshotDBRepositoryHandler) Add(tx *sql.Tx, snapshot domain.DailySnapshot) error {
	if snapshot.Empty() {
		return nil
	}

	models := make([]model.DailyAssetSnapshot, 0, len(snapshot.Rows))
	for _, row := range snapshot.Rows {
		models = append(models, model.DailyAssetSnapshot{
			Date:      snapshot.Date,
			AssetID:   row.AssetID,
			Price:     row.Price,
			Volume:    row.Volume,
			MarketCap: row.MarketCap,
			Rank:      int32(row.Rank),
		})
	}

	query := DailyAssetSnapshot.
		INSERT(DailyAssetSnapshot.AllColumns).
		MODELS(models).
		ON_CONFLICT(
			DailyAssetSnapshot.Date, DailyAssetSnapshot.AssetID,
		).DO_UPDATE(
		SET(
			DailyAssetSnapshot.Price.SET(DailyAssetSnapshot.EXCLUDED.Price),
			DailyAssetSnapshot.Volume.SET(DailyAssetSnapshot.EXCLUDED.Volume),
			DailyAssetSnapshot.MarketCap.SET(DailyAssetSnapshot.EXCLUDED.MarketCap),
			DailyAssetSnapshot.Rank.SET(DailyAssetSnapshot.EXCLUDED.Rank),
		),
	)

	_, err := query.Exec(tx)
	if err != nil {
		return fmt.Errorf("failed to add snapshot rows to db: %w", err)
	}

	return nil
}

func (h SnapshotDBRepositoryHandler) Dates(tx *sql.Tx) ([]time.Time, error) {
	query := DailyAssetSnapshot.
		SELECT(DailyAssetSnapshot.Date).
		GROUP_BY(DailyAssetSnapshot.Date).
		ORDER_BY(DailyAssetSnapshot.Date.ASC())

	result := []model.DailyAssetSnapshot{}
	err := query.Query(tx, &result)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshot dates: %w", err)
	}

	out := make([]time.Time, 0, len(result))
	for _, row := range result {
		out = append(out, row.Date)
	}
	return out, nil
}
