package cmd

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Print the chain statistics.",
	Run:   infoRun,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func infoRun(cmd *cobra.Command, args []string) {
	lgr, err := openLedger()
	if err != nil {
		log.Fatal(err)
	}

	data, err := json.MarshalIndent(lgr.ChainInfo(), "", "  ")
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(string(data))
}
