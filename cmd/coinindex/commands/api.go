package commands

import (
	"github.com/spf13/cobra"

	"coinindex/api"
)

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Serve the snapshot, index, and universe endpoints over HTTP",
	RunE:  runApi,
}

var apiPort int

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().IntVar(&apiPort, "port", 3009, "listen port")
}

func runApi(cmd *cobra.Command, args []string) error {
	store := newStore(0)
	handler := api.ApiHandler{
		Store:   store,
		Engine:  newEngine(store),
		Updater: newUpdater(store),
	}
	return handler.StartApi(apiPort)
}
