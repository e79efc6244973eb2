package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/transitway/raptor/loader"
	"github.com/transitway/raptor/overlay"
	"github.com/transitway/raptor/realtimefeed"
)

var disruptCmd = &cobra.Command{
	Use:   "disrupt",
	Short: "Applies real-time updates against a loaded feed",
}

var disruptCancelCmd = &cobra.Command{
	Use:   "cancel <trip_id> <date>",
	Short: "Cancels one trip on one date (date is YYYYMMDD)",
	Args:  cobra.ExactArgs(2),
	RunE:  runDisruptCancel,
}

var disruptFeedCmd = &cobra.Command{
	Use:   "feed <path>",
	Short: "Applies a GTFS-Realtime FeedMessage file against the loaded schedule",
	Args:  cobra.ExactArgs(1),
	RunE:  runDisruptFeed,
}

var disruptKirin bool

func init() {
	disruptCmd.PersistentFlags().BoolVar(&disruptKirin, "kirin", false, "Treat the update as Kirin-sourced (wins over Chaos)")
	disruptCmd.AddCommand(disruptCancelCmd)
	disruptCmd.AddCommand(disruptFeedCmd)
}

func disruptSource() overlay.Source {
	if disruptKirin {
		return overlay.Kirin
	}
	return overlay.Chaos
}

func runDisruptCancel(cmd *cobra.Command, args []string) error {
	tripID, date := args[0], args[1]

	result, err := loadResult()
	if err != nil {
		return err
	}
	impactID := "cli-cancel-" + uuid.New().String()
	if err := result.Overlay.Delete(tripID, date, impactID, disruptSource()); err != nil {
		return err
	}
	fmt.Printf("cancelled %s on %s\n", tripID, date)
	return nil
}

func runDisruptFeed(cmd *cobra.Command, args []string) error {
	path := args[0]

	result, err := loadResult()
	if err != nil {
		return err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	feed, err := realtimefeed.Decode(raw)
	if err != nil {
		return err
	}

	resolver := loader.NewDisruptionResolver(result)
	impactID := "cli-feed-" + uuid.New().String()
	errs := realtimefeed.Apply(feed, result.Overlay, resolver, disruptSource(), impactID)
	fmt.Printf("applied %d trip updates (%d errors)\n", len(feed.Trips), len(errs))
	for _, e := range errs {
		fmt.Println(" -", e)
	}
	return nil
}
