package commands

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"coinindex/internal/classification"
	"coinindex/internal/index"
	"coinindex/internal/repository"
	"coinindex/internal/snapshot"
	"coinindex/internal/universe"
	"coinindex/pkg/coingecko"
)

var (
	// Global flags
	dataDir string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "coinindex",
	Short: "Crypto daily snapshot store and market-cap-weighted index engine",
	Long: `coinindex maintains per-asset daily market histories, materializes
ranked daily snapshots from them, keeps the tracked universe in sync
with the live CoinGecko ranking, and computes market-cap-weighted
index series over the snapshot archive.

Examples:
  coinindex build-range --from 2023-01-01 --to 2023-12-31
  coinindex update-universe --top-n 250 --dry-run
  coinindex calc-index --from 2023-01-01 --to 2023-12-31 --top-n 50
  coinindex api --port 3009`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "data", "root directory for asset histories, snapshots, and logs")
}

func newStore(workers int) *snapshot.Store {
	return snapshot.NewStore(snapshot.StoreConfig{
		DataDir:    dataDir,
		NumWorkers: workers,
	})
}

func newUpdater(store *snapshot.Store) *universe.Updater {
	client := coingecko.NewClient(os.Getenv("COINGECKO_API_KEY"))
	return &universe.Updater{
		Source:     client,
		Downloader: client,
		Histories:  store.Histories,
		Files:      store.Files,
		Store:      store,
		OpLog:      repository.NewOperationLogRepository(filepath.Join(dataDir, "logs", "operations.jsonl")),
	}
}

func newEngine(store *snapshot.Store) *index.Engine {
	return index.NewEngine(store, classification.NewClassifier(dataDir))
}
