package cmd

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/greenledger/greenledger/foundation/ledger"
	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Replace the chain with blocks from a JSON file.",
	Args:  cobra.ExactArgs(1),
	Run:   importRun,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func importRun(cmd *cobra.Command, args []string) {
	data, err := os.ReadFile(args[0])
	if err != nil {
		log.Fatal(err)
	}

	var blocks []ledger.Block
	if err := json.Unmarshal(data, &blocks); err != nil {
		log.Fatal(err)
	}

	lgr, err := openLedger()
	if err != nil {
		log.Fatal(err)
	}

	if err := lgr.Import(blocks); err != nil {
		log.Fatal(err)
	}

	fmt.Printf("imported %d blocks\n", len(blocks))
}
