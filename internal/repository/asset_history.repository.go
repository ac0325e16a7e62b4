package repository

import (
	"coinindex/internal/domain"
	"coinindex/internal/logger"
	"coinindex/internal/util"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gocarina/gocsv"
)

// AssetHistoryRepository reads and writes per-asset daily history
// files. One CSV per asset under <dataDir>/assets/<asset_id>.csv.
type AssetHistoryRepository interface {
	AssetIDs() ([]string, error)
	List(assetID string) (*domain.AssetHistory, error)
	Put(assetID string, records []domain.AssetRecord) error
	LoadAll() (map[string]*domain.AssetHistory, error)
}

type historyRow struct {
	Timestamp int64   `csv:"timestamp"`
	Date      string  `csv:"date"`
	Price     float64 `csv:"price"`
	Volume    float64 `csv:"volume"`
	MarketCap float64 `csv:"market_cap"`
}

func NewAssetHistoryRepository(dataDir string) AssetHistoryRepository {
	return &AssetHistoryRepositoryHandler{
		AssetsDir: filepath.Join(dataDir, "assets"),
		Cache:     map[string]*domain.AssetHistory{},
		ReadMutex: &sync.RWMutex{},
	}
}

type AssetHistoryRepositoryHandler struct {
	AssetsDir string
	Cache     map[string]*domain.AssetHistory
	ReadMutex *sync.RWMutex
}

func (h *AssetHistoryRepositoryHandler) getFromCache(assetID string) *domain.AssetHistory {
	h.ReadMutex.RLock()
	defer h.ReadMutex.RUnlock()
	if history, ok := h.Cache[assetID]; ok {
		return history
	}
	return nil
}

func (h *AssetHistoryRepositoryHandler) addToCache(assetID string, history *domain.AssetHistory) {
	h.ReadMutex.Lock()
	h.Cache[assetID] = history
	h.ReadMutex.Unlock()
}

// AssetIDs lists every asset with a local history file. This is the
// universe membership set.
func (h *AssetHistoryRepositoryHandler) AssetIDs() ([]string, error) {
	entries, err := os.ReadDir(h.AssetsDir)
	if os.IsNotExist(err) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan assets dir %s: %w", h.AssetsDir, err)
	}

	ids := []string{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".csv") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(entry.Name(), ".csv"))
	}
	sort.Strings(ids)
	return ids, nil
}

// List returns the asset's chronological history. Rows failing the
// price/market-cap validity check are dropped here and never reach a
// snapshot.
func (h *AssetHistoryRepositoryHandler) List(assetID string) (*domain.AssetHistory, error) {
	if cached := h.getFromCache(assetID); cached != nil {
		return cached, nil
	}

	path := filepath.Join(h.AssetsDir, assetID+".csv")
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history for %s: %w", assetID, err)
	}
	defer f.Close()

	rows := []historyRow{}
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse history for %s: %w", assetID, err)
	}

	records := make([]domain.AssetRecord, 0, len(rows))
	dropped := 0
	for _, row := range rows {
		record := domain.AssetRecord{
			AssetID:   assetID,
			Date:      dateFromRow(row),
			Price:     row.Price,
			Volume:    row.Volume,
			MarketCap: row.MarketCap,
		}
		if !record.Valid() {
			dropped++
			continue
		}
		records = append(records, record)
	}
	if dropped > 0 {
		logger.Warn("dropped %d invalid records from %s history", dropped, assetID)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Date.Before(records[j].Date)
	})

	history := &domain.AssetHistory{AssetID: assetID, Records: records}
	h.addToCache(assetID, history)
	return history, nil
}

// Put overwrites the asset's history file atomically.
func (h *AssetHistoryRepositoryHandler) Put(assetID string, records []domain.AssetRecord) error {
	if err := os.MkdirAll(h.AssetsDir, 0o755); err != nil {
		return fmt.Errorf("failed to create assets dir: %w", err)
	}

	rows := make([]historyRow, 0, len(records))
	for _, r := range records {
		rows = append(rows, historyRow{
			Timestamp: r.Date.UnixMilli(),
			Date:      r.Date.Format(time.DateOnly),
			Price:     r.Price,
			Volume:    r.Volume,
			MarketCap: r.MarketCap,
		})
	}

	path := filepath.Join(h.AssetsDir, assetID+".csv")
	if err := writeCSVAtomic(path, &rows); err != nil {
		return fmt.Errorf("failed to write history for %s: %w", assetID, err)
	}

	h.ReadMutex.Lock()
	delete(h.Cache, assetID)
	h.ReadMutex.Unlock()
	return nil
}

// LoadAll preloads every asset's history. Range builds call this once
// and hand workers a read-only view.
func (h *AssetHistoryRepositoryHandler) LoadAll() (map[string]*domain.AssetHistory, error) {
	ids, err := h.AssetIDs()
	if err != nil {
		return nil, err
	}

	out := make(map[string]*domain.AssetHistory, len(ids))
	for _, id := range ids {
		history, err := h.List(id)
		if err != nil {
			logger.Warn("skipping unreadable history for %s: %v", id, err)
			continue
		}
		out[id] = history
	}
	return out, nil
}

func dateFromRow(row historyRow) time.Time {
	if row.Date != "" {
		if d, err := util.ParseDate(row.Date); err == nil {
			return d
		}
	}
	return util.Midnight(time.UnixMilli(row.Timestamp).UTC())
}

// writeCSVAtomic marshals rows to a temp file in the target directory
// and renames it into place, so readers never observe a partial file.
func writeCSVAtomic(path string, rows interface{}) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := gocsv.MarshalFile(rows, tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
