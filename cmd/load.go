package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Loads a feed and reports how many trips were inserted",
	Args:  cobra.NoArgs,
	RunE:  runLoad,
}

func runLoad(cmd *cobra.Command, args []string) error {
	result, err := loadResult()
	if err != nil {
		return err
	}
	fmt.Printf("%d stops, %d trips (%d skipped)\n", result.Data.NbStops(), result.NbTrips, len(result.Skipped))
	for _, skipErr := range result.Skipped {
		fmt.Println(" -", skipErr)
	}
	return nil
}
