package commands

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"coinindex/internal/universe"
)

var updateUniverseCmd = &cobra.Command{
	Use:   "update-universe",
	Short: "Sync the local universe with the live CoinGecko ranking",
	Long: `Detects assets present in the live top-N market-cap ranking but
missing from the local universe, downloads their full daily
histories, and backfills each historical day into every snapshot
file that overlaps it.

With --dry-run the run stops after detection and reports what would
be downloaded without mutating anything.

Example:
  coinindex update-universe --top-n 250
  coinindex update-universe --top-n 250 --dry-run`,
	RunE: runUpdateUniverse,
}

var (
	updateTopN    int
	updateWorkers int
	updateDryRun  bool
)

func init() {
	rootCmd.AddCommand(updateUniverseCmd)

	updateUniverseCmd.Flags().IntVar(&updateTopN, "top-n", 250, "size of the live ranking to compare against")
	updateUniverseCmd.Flags().IntVar(&updateWorkers, "workers", 0, "concurrent history downloads (default 3)")
	updateUniverseCmd.Flags().BoolVar(&updateDryRun, "dry-run", false, "detect and report only, mutate nothing")
}

func runUpdateUniverse(cmd *cobra.Command, args []string) error {
	store := newStore(0)
	updater := newUpdater(store)

	report, err := updater.Run(context.Background(), universe.RunOptions{
		TopN:       updateTopN,
		MaxWorkers: updateWorkers,
		DryRun:     updateDryRun,
	})
	if err != nil {
		return err
	}

	fmt.Printf("run %s: %s (%.1fs)\n", report.RunID, report.Status, report.Duration.Seconds())
	fmt.Printf("new assets: %d\n", len(report.NewAssets))
	for _, id := range report.NewAssets {
		fmt.Printf("  %s\n", id)
	}
	if report.DryRun {
		return nil
	}

	fmt.Printf("downloads: %d/%d succeeded\n", report.SuccessfulDownloads(), len(report.Downloads))
	assetIDs := make([]string, 0, len(report.Integrations))
	for id := range report.Integrations {
		assetIDs = append(assetIDs, id)
	}
	sort.Strings(assetIDs)
	for _, id := range assetIDs {
		outcome := report.Integrations[id]
		fmt.Printf("  %s: %d/%d days (%.1f%%)\n", id, outcome.InsertedDays, outcome.AttemptedDays, outcome.SuccessRate())
	}
	fmt.Printf("total insertions: %d\n", report.TotalInsertions())
	return nil
}
