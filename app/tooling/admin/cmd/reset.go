package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Drop the chain and reseal a fresh genesis block.",
	Run:   resetRun,
}

func init() {
	rootCmd.AddCommand(resetCmd)
}

func resetRun(cmd *cobra.Command, args []string) {
	lgr, err := openLedger()
	if err != nil {
		log.Fatal(err)
	}

	if err := lgr.Reset(context.Background()); err != nil {
		log.Fatal(err)
	}

	fmt.Println("ledger reset, genesis block resealed")
}
