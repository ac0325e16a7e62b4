package universe

import (
	"coinindex/internal/domain"
	"coinindex/internal/logger"
	"coinindex/internal/repository"
	"coinindex/internal/snapshot"
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MarketDataSource serves the current-day ranked universe.
type MarketDataSource interface {
	GetRankedUniverse(ctx context.Context, topN int) ([]domain.RankedAsset, error)
}

// Downloader fetches an asset's full daily history, oldest first.
type Downloader interface {
	FetchFullHistory(ctx context.Context, assetID string) (*domain.AssetHistory, error)
}

// Updater detects assets present in the live ranking but missing from
// the local universe, downloads their histories, and integrates each
// historical day into every pre-existing snapshot that overlaps.
type Updater struct {
	Source     MarketDataSource
	Downloader Downloader
	Histories  repository.AssetHistoryRepository
	Files      repository.SnapshotFileRepository
	Store      *snapshot.Store
	OpLog      repository.OperationLogRepository
}

type RunOptions struct {
	TopN       int
	MaxWorkers int
	DryRun     bool
}

const defaultDownloadWorkers = 3

// DetectNewAssets computes live_ranked_universe(topN) minus the local
// universe. When the live source is unreachable, detection fails
// closed: empty set, warning logged, no error raised.
func (u *Updater) DetectNewAssets(ctx context.Context, topN int) ([]string, error) {
	log := logger.FromContext(ctx)

	localIDs, err := u.Histories.AssetIDs()
	if err != nil {
		return nil, fmt.Errorf("failed to list local universe: %w", err)
	}
	local := make(map[string]struct{}, len(localIDs))
	for _, id := range localIDs {
		local[id] = struct{}{}
	}

	ranked, err := u.Source.GetRankedUniverse(ctx, topN)
	if err != nil {
		log.Warnf("live ranking unavailable, skipping new-asset detection: %v", err)
		return []string{}, nil
	}

	newAssets := []string{}
	for _, asset := range ranked {
		if _, ok := local[asset.AssetID]; !ok {
			newAssets = append(newAssets, asset.AssetID)
		}
	}
	sort.Strings(newAssets)
	return newAssets, nil
}

// Run executes one full update: DETECT, then either a dry-run stop or
// DOWNLOAD fan-out plus per-asset INTEGRATE, then REPORT. A dry run
// never mutates anything.
func (u *Updater) Run(ctx context.Context, opts RunOptions) (*domain.UpdateReport, error) {
	log := logger.FromContext(ctx)
	start := time.Now().UTC()

	report := &domain.UpdateReport{
		RunID:        uuid.New(),
		StartedAt:    start,
		TopN:         opts.TopN,
		DryRun:       opts.DryRun,
		Downloads:    map[string]domain.DownloadOutcome{},
		Integrations: map[string]domain.IntegrationOutcome{},
	}

	newAssets, err := u.DetectNewAssets(ctx, opts.TopN)
	if err != nil {
		return nil, err
	}
	report.NewAssets = newAssets

	if len(newAssets) == 0 {
		log.Info("no new assets found")
		report.Status = domain.UpdateStatusNoNewAssets
		report.Duration = time.Since(start)
		return report, nil
	}

	log.Infof("found %d new assets: %v", len(newAssets), newAssets)

	if opts.DryRun {
		report.Status = domain.UpdateStatusDryRun
		report.Duration = time.Since(start)
		return report, nil
	}

	histories := u.downloadAll(ctx, newAssets, opts.MaxWorkers, report)

	for _, assetID := range newAssets {
		outcome := report.Downloads[assetID]
		if !outcome.Success {
			report.Integrations[assetID] = domain.IntegrationOutcome{
				AssetID: assetID,
				Err:     "download failed, integration skipped",
			}
			continue
		}

		inserted, attempted, err := u.Integrate(ctx, report.RunID, assetID, histories[assetID])
		integration := domain.IntegrationOutcome{
			AssetID:       assetID,
			Success:       err == nil && (attempted == 0 || inserted > 0),
			InsertedDays:  inserted,
			AttemptedDays: attempted,
		}
		if err != nil {
			integration.Err = err.Error()
			log.Warnf("integration of %s failed: %v", assetID, err)
		}
		report.Integrations[assetID] = integration
	}

	report.Status = domain.UpdateStatusCompleted
	report.Duration = time.Since(start)
	log.Infof(
		"update complete in %s: %d new assets, %d downloads ok, %d days inserted",
		report.Duration, len(newAssets), report.SuccessfulDownloads(), report.TotalInsertions(),
	)
	return report, nil
}

// downloadAll fetches histories over a bounded worker pool. One failed
// asset never blocks the others.
func (u *Updater) downloadAll(ctx context.Context, assetIDs []string, maxWorkers int, report *domain.UpdateReport) map[string]*domain.AssetHistory {
	if maxWorkers <= 0 {
		maxWorkers = defaultDownloadWorkers
	}

	type downloadResult struct {
		AssetID string
		History *domain.AssetHistory
		Err     error
	}

	inputCh := make(chan string, len(assetIDs))
	resultCh := make(chan downloadResult, len(assetIDs))
	var wg sync.WaitGroup
	for _, id := range assetIDs {
		wg.Add(1)
		inputCh <- id
	}
	close(inputCh)

	for i := 0; i < maxWorkers; i++ {
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
				case assetID, ok := <-inputCh:
					if !ok {
						return
					}
					history, err := u.download(ctx, report.RunID, assetID)
					resultCh <- downloadResult{AssetID: assetID, History: history, Err: err}
					wg.Done()
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	histories := map[string]*domain.AssetHistory{}
	for res := range resultCh {
		outcome := domain.DownloadOutcome{AssetID: res.AssetID, Success: res.Err == nil}
		if res.Err != nil {
			outcome.Err = res.Err.Error()
		} else {
			histories[res.AssetID] = res.History
		}
		report.Downloads[res.AssetID] = outcome
	}
	return histories
}

// download fetches one asset's history, persists it locally, and
// records the attempt in the operation log either way.
func (u *Updater) download(ctx context.Context, runID uuid.UUID, assetID string) (*domain.AssetHistory, error) {
	history, err := u.Downloader.FetchFullHistory(ctx, assetID)
	entry := repository.OperationLogEntry{
		Timestamp: time.Now().UTC(),
		RunID:     runID,
		Operation: repository.OperationDownload,
		AssetID:   assetID,
		Success:   err == nil,
	}
	if err != nil {
		entry.Error = err.Error()
	}
	if logErr := u.OpLog.Append(entry); logErr != nil {
		logger.Warn("failed to record download attempt for %s: %v", assetID, logErr)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to download history for %s: %w", assetID, err)
	}

	if err := u.Histories.Put(assetID, history.Records); err != nil {
		return nil, fmt.Errorf("failed to persist history for %s: %w", assetID, err)
	}
	return history, nil
}

// Integrate inserts the asset's historical records into every existing
// snapshot that overlaps its history. Idempotent per day: a date whose
// snapshot already holds the asset counts as a success without
// mutation. Each mutation runs under the file repository's
// backup/rollback scope, and one failed date never aborts the rest.
// Returns (inserted, attempted); attempted counts only the overlapping
// dates.
func (u *Updater) Integrate(ctx context.Context, runID uuid.UUID, assetID string, history *domain.AssetHistory) (int, int, error) {
	log := logger.FromContext(ctx)

	if history == nil {
		loaded, err := u.Histories.List(assetID)
		if err != nil {
			return 0, 0, fmt.Errorf("failed to load history for %s: %w", assetID, err)
		}
		history = loaded
	}

	existingDates, err := u.Files.Dates()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to scan existing snapshots: %w", err)
	}

	historyDates := history.Dates()
	overlap := []time.Time{}
	for _, date := range existingDates {
		if _, ok := historyDates[date]; ok {
			overlap = append(overlap, date)
		}
	}

	if len(overlap) == 0 {
		log.Infof("%s history does not overlap any existing snapshot", assetID)
		return 0, 0, nil
	}

	log.Infof("%s: %d history days, %d overlap existing snapshots", assetID, len(historyDates), len(overlap))

	inserted := 0
	for _, date := range overlap {
		record, ok := history.RecordOn(date)
		if !ok || !record.Valid() {
			log.Debugf("%s has no valid record on %s, skipping", assetID, date.Format(time.DateOnly))
			continue
		}

		if u.insertDay(ctx, runID, date, record) {
			inserted++
		}
	}

	return inserted, len(overlap), nil
}

// insertDay adds one record to one existing snapshot, re-sorting and
// re-ranking the whole file. Reports success; failures are logged to
// the operation log and recovered from backup by the repository.
func (u *Updater) insertDay(ctx context.Context, runID uuid.UUID, date time.Time, record domain.AssetRecord) bool {
	log := logger.FromContext(ctx)
	rank := 0

	err := u.Files.Mutate(date, func(snapshot *domain.DailySnapshot) error {
		if snapshot.Contains(record.AssetID) {
			// already integrated on a previous run
			return nil
		}
		snapshot.Rows = append(snapshot.Rows, domain.SnapshotRow{
			AssetID:   record.AssetID,
			Price:     record.Price,
			Volume:    record.Volume,
			MarketCap: record.MarketCap,
		})
		snapshot.Rerank()
		for _, row := range snapshot.Rows {
			if row.AssetID == record.AssetID {
				rank = row.Rank
				break
			}
		}
		return nil
	})

	entry := repository.OperationLogEntry{
		Timestamp:  time.Now().UTC(),
		RunID:      runID,
		Operation:  repository.OperationInsert,
		AssetID:    record.AssetID,
		Success:    err == nil,
		TargetDate: date.Format(time.DateOnly),
		Rank:       rank,
	}
	if err != nil {
		entry.Error = err.Error()
		log.Warnf("failed to insert %s into %s: %v", record.AssetID, date.Format(time.DateOnly), err)
	}
	if logErr := u.OpLog.Append(entry); logErr != nil {
		logger.Warn("failed to record insert attempt for %s: %v", record.AssetID, logErr)
	}

	if err == nil && u.Store != nil {
		u.Store.Invalidate(date)
	}
	return err == nil
}
