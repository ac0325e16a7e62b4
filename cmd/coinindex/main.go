package main

import (
	"os"

	"coinindex/cmd/coinindex/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
