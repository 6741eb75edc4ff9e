package cmd

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Write the full chain to a JSON file.",
	Args:  cobra.ExactArgs(1),
	Run:   exportRun,
}

func init() {
	rootCmd.AddCommand(exportCmd)
}

func exportRun(cmd *cobra.Command, args []string) {
	lgr, err := openLedger()
	if err != nil {
		log.Fatal(err)
	}

	blocks := lgr.Export()

	data, err := json.MarshalIndent(blocks, "", "  ")
	if err != nil {
		log.Fatal(err)
	}

	if err := os.WriteFile(args[0], data, 0600); err != nil {
		log.Fatal(err)
	}

	fmt.Printf("exported %d blocks to %s\n", len(blocks), args[0])
}
