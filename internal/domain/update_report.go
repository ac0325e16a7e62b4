package domain

import (
	"time"

	"github.com/google/uuid"
)

// UpdateStatus summarizes how a universe-update run ended.
type UpdateStatus string

const (
	UpdateStatusNoNewAssets UpdateStatus = "no_new_assets"
	UpdateStatusDryRun      UpdateStatus = "dry_run_complete"
	UpdateStatusCompleted   UpdateStatus = "completed"
)

// DownloadOutcome records one asset's history download attempt.
type DownloadOutcome struct {
	AssetID string
	Success bool
	Err     string
}

// IntegrationOutcome records how many of an asset's historical days
// were inserted into pre-existing snapshots. AttemptedDays counts only
// the days that overlap an existing snapshot file.
type IntegrationOutcome struct {
	AssetID       string
	Success       bool
	InsertedDays  int
	AttemptedDays int
	Err           string
}

// SuccessRate is inserted/attempted as a percentage; zero attempts
// yield zero.
func (o IntegrationOutcome) SuccessRate() float64 {
	if o.AttemptedDays == 0 {
		return 0
	}
	return float64(o.InsertedDays) / float64(o.AttemptedDays) * 100
}

// UpdateReport is the aggregate result of one UniverseUpdater run.
type UpdateReport struct {
	RunID        uuid.UUID
	StartedAt    time.Time
	Duration     time.Duration
	TopN         int
	DryRun       bool
	Status       UpdateStatus
	NewAssets    []string
	Downloads    map[string]DownloadOutcome
	Integrations map[string]IntegrationOutcome
}

// TotalInsertions sums inserted days across all assets.
func (r UpdateReport) TotalInsertions() int {
	total := 0
	for _, o := range r.Integrations {
		total += o.InsertedDays
	}
	return total
}

// SuccessfulDownloads counts assets whose history download succeeded.
func (r UpdateReport) SuccessfulDownloads() int {
	n := 0
	for _, o := range r.Downloads {
		if o.Success {
			n++
		}
	}
	return n
}
