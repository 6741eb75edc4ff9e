package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Run the full chain integrity audit.",
	Run:   validateRun,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func validateRun(cmd *cobra.Command, args []string) {
	lgr, err := openLedger()
	if err != nil {
		log.Fatal(err)
	}

	if !lgr.ValidateChain() {
		fmt.Println("chain integrity check: FAILED")
		os.Exit(1)
	}

	fmt.Printf("chain integrity check: OK (%d blocks)\n", lgr.Height())
}
