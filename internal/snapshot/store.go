package snapshot

import (
	"coinindex/internal/domain"
	"coinindex/internal/logger"
	"coinindex/internal/repository"
	"coinindex/internal/util"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/gocarina/gocsv"
)

// Store resolves daily snapshots through three tiers: process-memory
// cache, the on-disk per-date files, and recomputation from the raw
// asset histories. Disk is the source of truth; memory is advisory.
type Store struct {
	Histories repository.AssetHistoryRepository
	Files     repository.SnapshotFileRepository

	// output dir for the merged range-build summary file
	OutDir     string
	NumWorkers int

	cache *memoryCache
}

type StoreConfig struct {
	DataDir    string
	NumWorkers int
}

const defaultNumWorkers = 8

func NewStore(cfg StoreConfig) *Store {
	workers := cfg.NumWorkers
	if workers <= 0 {
		workers = defaultNumWorkers
	}
	return &Store{
		Histories:  repository.NewAssetHistoryRepository(cfg.DataDir),
		Files:      repository.NewSnapshotFileRepository(filepath.Join(cfg.DataDir, "daily", "daily_files")),
		OutDir:     filepath.Join(cfg.DataDir, "daily"),
		NumWorkers: workers,
		cache:      newMemoryCache(),
	}
}

// memoryCache is the explicit process-memory tier. forceRefresh and
// Put are its only invalidation signals.
type memoryCache struct {
	mu        sync.RWMutex
	snapshots map[string]domain.DailySnapshot
}

func newMemoryCache() *memoryCache {
	return &memoryCache{snapshots: map[string]domain.DailySnapshot{}}
}

func (c *memoryCache) get(date time.Time) (domain.DailySnapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snapshot, ok := c.snapshots[date.Format(time.DateOnly)]
	return snapshot, ok
}

func (c *memoryCache) put(date time.Time, snapshot domain.DailySnapshot) {
	c.mu.Lock()
	c.snapshots[date.Format(time.DateOnly)] = snapshot
	c.mu.Unlock()
}

// Get resolves the snapshot for a date: memory unless forceRefresh,
// then disk unless forceRefresh, then recompute from histories with
// write-through to both lower tiers. A date with no data returns an
// empty snapshot, not an error.
func (s *Store) Get(ctx context.Context, date time.Time, forceRefresh bool) (domain.DailySnapshot, error) {
	day := util.Midnight(date)

	if !forceRefresh {
		if snapshot, ok := s.cache.get(day); ok {
			return snapshot, nil
		}
		if s.Files.Exists(day) {
			snapshot, err := s.Files.Read(day)
			if err != nil {
				return domain.DailySnapshot{Date: day}, err
			}
			s.cache.put(day, snapshot)
			return snapshot, nil
		}
	}

	histories, err := s.Histories.LoadAll()
	if err != nil {
		return domain.DailySnapshot{Date: day}, fmt.Errorf("failed to load histories for %s: %w", day.Format(time.DateOnly), err)
	}

	snapshot := Build(day, histories)
	if !snapshot.Empty() {
		if err := s.Files.Write(day, snapshot); err != nil {
			return snapshot, err
		}
		s.cache.put(day, snapshot)
		return snapshot, nil
	}

	// an empty recompute must never shadow an existing disk file:
	// disk stays the source of truth for the next read
	if !s.Files.Exists(day) {
		s.cache.put(day, snapshot)
	}
	return snapshot, nil
}

// Put idempotently overwrites both the disk and memory entries for the
// date. A Get after a Put always observes the just-written snapshot.
func (s *Store) Put(ctx context.Context, date time.Time, snapshot domain.DailySnapshot) error {
	day := util.Midnight(date)
	snapshot.Date = day
	if err := s.Files.Write(day, snapshot); err != nil {
		return err
	}
	s.cache.put(day, snapshot)
	return nil
}

// Invalidate drops the memory entry for a date, forcing the next Get
// to re-read disk. The updater calls this after mutating a file
// directly.
func (s *Store) Invalidate(date time.Time) {
	day := util.Midnight(date)
	s.cache.mu.Lock()
	delete(s.cache.snapshots, day.Format(time.DateOnly))
	s.cache.mu.Unlock()
}

// DaySummary is one row of the merged range-build output: the
// index-friendly concatenation of per-day aggregates.
type DaySummary struct {
	Date           string  `csv:"date"`
	AssetCount     int     `csv:"asset_count"`
	TotalMarketCap float64 `csv:"total_market_cap"`
	AvgPrice       float64 `csv:"avg_price"`
	TotalVolume    float64 `csv:"total_volume"`
}

type BuildRangeResult struct {
	DaysBuilt   int
	DaysSkipped int
	SummaryPath string
}

type rangeWork struct {
	Date time.Time
}

type rangeResult struct {
	Date     time.Time
	Snapshot domain.DailySnapshot
	Err      error
}

// BuildRange backfills every date in [start, end]. Histories are
// preloaded once; per-date work fans out over a bounded worker pool
// where each worker only reads the shared history map. Completion
// order is arbitrary, so results are re-sorted by date before the
// merged summary file is written. A single day's failure is logged and
// treated as an empty day; it never aborts the range.
func (s *Store) BuildRange(ctx context.Context, start, end time.Time, force bool) (*BuildRangeResult, error) {
	log := logger.FromContext(ctx)

	histories, err := s.Histories.LoadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to preload histories: %w", err)
	}
	if len(histories) == 0 {
		return nil, fmt.Errorf("no asset histories found; nothing to build")
	}

	days := util.DaysBetween(start, end)
	log.Infof("building %d daily snapshots across %d assets", len(days), len(histories))

	inputCh := make(chan rangeWork, len(days))
	resultCh := make(chan rangeResult, len(days))
	var wg sync.WaitGroup
	for _, day := range days {
		wg.Add(1)
		inputCh <- rangeWork{Date: day}
	}
	close(inputCh)

	for i := 0; i < s.NumWorkers; i++ {
		go func() {
			for {
				select {
				case <-ctx.Done():
					// drain so wg.Wait and the result collector
					// still complete on cancellation
					for range inputCh {
						wg.Done()
					}
					return
				case work, ok := <-inputCh:
					if !ok {
						return
					}
					snapshot, err := s.buildDay(work.Date, histories, force)
					resultCh <- rangeResult{Date: work.Date, Snapshot: snapshot, Err: err}
					wg.Done()
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	results := []rangeResult{}
	for res := range resultCh {
		results = append(results, res)
	}

	// per-date tasks complete in any order; the merged output is
	// sorted by date before writing
	sort.Slice(results, func(i, j int) bool {
		return results[i].Date.Before(results[j].Date)
	})

	summaries := []DaySummary{}
	built := 0
	skipped := 0
	for _, res := range results {
		if res.Err != nil {
			log.Warnf("skipping %s: %v", res.Date.Format(time.DateOnly), res.Err)
			skipped++
			continue
		}
		if res.Snapshot.Empty() {
			skipped++
			continue
		}
		built++
		summaries = append(summaries, summarize(res.Snapshot))
	}

	summaryPath := filepath.Join(s.OutDir, "daily_summary.csv")
	if err := writeSummary(summaryPath, summaries); err != nil {
		return nil, err
	}

	log.Infof("range build complete: %d days built, %d skipped", built, skipped)
	return &BuildRangeResult{DaysBuilt: built, DaysSkipped: skipped, SummaryPath: summaryPath}, nil
}

// buildDay computes one date's snapshot and persists it. Existing files
// are kept as-is unless force is set.
func (s *Store) buildDay(date time.Time, histories map[string]*domain.AssetHistory, force bool) (domain.DailySnapshot, error) {
	if !force && s.Files.Exists(date) {
		return s.Files.Read(date)
	}

	snapshot := Build(date, histories)
	if snapshot.Empty() {
		return snapshot, nil
	}
	if err := s.Files.Write(date, snapshot); err != nil {
		return snapshot, err
	}
	s.cache.put(date, snapshot)
	return snapshot, nil
}

func summarize(snapshot domain.DailySnapshot) DaySummary {
	totalMarketCap := 0.0
	totalVolume := 0.0
	totalPrice := 0.0
	for _, row := range snapshot.Rows {
		totalMarketCap += row.MarketCap
		totalVolume += row.Volume
		totalPrice += row.Price
	}
	return DaySummary{
		Date:           snapshot.Date.Format(time.DateOnly),
		AssetCount:     len(snapshot.Rows),
		TotalMarketCap: totalMarketCap,
		AvgPrice:       totalPrice / float64(len(snapshot.Rows)),
		TotalVolume:    totalVolume,
	}
}

func writeSummary(path string, summaries []DaySummary) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create summary dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create summary file: %w", err)
	}
	defer f.Close()

	if err := gocsv.MarshalFile(&summaries, f); err != nil {
		return fmt.Errorf("failed to write summary file: %w", err)
	}
	return nil
}
