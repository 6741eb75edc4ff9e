// Package cmd contains the admin app commands.
package cmd

import (
	"os"

	"github.com/greenledger/greenledger/foundation/ledger"
	"github.com/greenledger/greenledger/foundation/ledger/storage"
	"github.com/spf13/cobra"
)

var (
	dbPath     string
	difficulty int
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "zblock/ledger.json", "Path to the ledger snapshot document.")
	rootCmd.PersistentFlags().IntVar(&difficulty, "difficulty", 4, "Proof of work difficulty for validation.")
}

var rootCmd = &cobra.Command{
	Use:   "admin",
	Short: "Administrative tasks against the ledger snapshot",
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// openLedger loads the chain at the configured path, running the full
// replay validation in the process.
func openLedger() (*ledger.Ledger, error) {
	store, err := storage.NewFile(dbPath)
	if err != nil {
		return nil, err
	}

	return ledger.New(ledger.Config{
		Storage:    store,
		Difficulty: difficulty,
	})
}
