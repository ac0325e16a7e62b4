package repository

import (
	"coinindex/internal/domain"
	"coinindex/internal/logger"
	"coinindex/internal/util"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
)

// SnapshotFileRepository persists one CSV per calendar date under a
// year/month partition: <dailyDir>/<YYYY>/<MM>/<YYYY-MM-DD>.csv.
// It is the authoritative tier of the snapshot store.
type SnapshotFileRepository interface {
	Read(date time.Time) (domain.DailySnapshot, error)
	Write(date time.Time, snapshot domain.DailySnapshot) error
	Exists(date time.Time) bool
	Dates() ([]time.Time, error)
	Mutate(date time.Time, fn func(*domain.DailySnapshot) error) error
}

func NewSnapshotFileRepository(dailyDir string) SnapshotFileRepository {
	return &SnapshotFileRepositoryHandler{DailyDir: dailyDir}
}

type SnapshotFileRepositoryHandler struct {
	DailyDir string
}

func (h *SnapshotFileRepositoryHandler) path(date time.Time) string {
	return filepath.Join(
		h.DailyDir,
		date.Format("2006"),
		date.Format("01"),
		date.Format(time.DateOnly)+".csv",
	)
}

func (h *SnapshotFileRepositoryHandler) Exists(date time.Time) bool {
	_, err := os.Stat(h.path(date))
	return err == nil
}

// Read loads the persisted snapshot for the date. A missing file yields
// an empty snapshot, not an error: callers treat empty days as normal.
func (h *SnapshotFileRepositoryHandler) Read(date time.Time) (domain.DailySnapshot, error) {
	snapshot := domain.DailySnapshot{Date: util.Midnight(date)}

	f, err := os.Open(h.path(date))
	if os.IsNotExist(err) {
		return snapshot, nil
	}
	if err != nil {
		return snapshot, fmt.Errorf("failed to open snapshot for %s: %w", date.Format(time.DateOnly), err)
	}
	defer f.Close()

	rows := []domain.SnapshotRow{}
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return snapshot, fmt.Errorf("failed to parse snapshot for %s: %w", date.Format(time.DateOnly), err)
	}

	snapshot.Rows = rows
	return snapshot, nil
}

// Write persists the snapshot atomically (temp file + rename), creating
// the year/month partition as needed. Overwrites are idempotent.
func (h *SnapshotFileRepositoryHandler) Write(date time.Time, snapshot domain.DailySnapshot) error {
	path := h.path(date)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create partition for %s: %w", date.Format(time.DateOnly), err)
	}
	rows := snapshot.Rows
	if err := writeCSVAtomic(path, &rows); err != nil {
		return fmt.Errorf("failed to write snapshot for %s: %w", date.Format(time.DateOnly), err)
	}
	return nil
}

// Dates scans the partition tree and lists every persisted snapshot
// date in ascending order.
func (h *SnapshotFileRepositoryHandler) Dates() ([]time.Time, error) {
	dates := []time.Time{}

	yearDirs, err := os.ReadDir(h.DailyDir)
	if os.IsNotExist(err) {
		return dates, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan daily dir: %w", err)
	}

	for _, yearDir := range yearDirs {
		if !yearDir.IsDir() {
			continue
		}
		monthDirs, err := os.ReadDir(filepath.Join(h.DailyDir, yearDir.Name()))
		if err != nil {
			continue
		}
		for _, monthDir := range monthDirs {
			if !monthDir.IsDir() {
				continue
			}
			files, err := os.ReadDir(filepath.Join(h.DailyDir, yearDir.Name(), monthDir.Name()))
			if err != nil {
				continue
			}
			for _, file := range files {
				name := strings.TrimSuffix(file.Name(), ".csv")
				if name == file.Name() {
					continue
				}
				date, err := util.ParseDate(name)
				if err != nil {
					continue
				}
				dates = append(dates, date)
			}
		}
	}

	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates, nil
}

// Mutate applies fn to the date's snapshot under a backup/rollback
// scope: the file is backed up before the mutation, restored on any
// failure, and the backup is discarded once the new snapshot lands.
func (h *SnapshotFileRepositoryHandler) Mutate(date time.Time, fn func(*domain.DailySnapshot) error) (err error) {
	path := h.path(date)

	backupPath, backupErr := backupFile(path)
	if backupErr != nil {
		return fmt.Errorf("failed to back up snapshot for %s: %w", date.Format(time.DateOnly), backupErr)
	}

	defer func() {
		if err != nil && backupPath != "" {
			if restoreErr := copyFile(backupPath, path); restoreErr != nil {
				logger.Error(fmt.Errorf("failed to restore %s from backup: %w", path, restoreErr))
			} else {
				logger.Warn("restored %s from backup after failed mutation", path)
			}
		}
		if backupPath != "" {
			os.Remove(backupPath)
		}
	}()

	snapshot, err := h.Read(date)
	if err != nil {
		return err
	}
	if err = fn(&snapshot); err != nil {
		return err
	}
	if err = h.Write(date, snapshot); err != nil {
		return err
	}
	return nil
}

// backupFile copies the file into a .backup dir next to it, named with
// a timestamp. Returns "" when the file does not exist yet.
func backupFile(path string) (string, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return "", nil
	}

	backupDir := filepath.Join(filepath.Dir(path), ".backup")
	if err := os.MkdirAll(backupDir, 0o755); err != nil {
		return "", err
	}

	stem := strings.TrimSuffix(filepath.Base(path), ".csv")
	backupPath := filepath.Join(backupDir, fmt.Sprintf("%s_%s.csv", stem, time.Now().UTC().Format("20060102_150405.000000000")))
	if err := copyFile(path, backupPath); err != nil {
		return "", err
	}
	return backupPath, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
