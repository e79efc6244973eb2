package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/transitway/raptor/loader"
	"github.com/transitway/raptor/loader/store"
)

var rootCmd = &cobra.Command{
	Use:          "raptor",
	Short:        "Journey planner over a GTFS feed",
	Long:         "Loads a GTFS feed and answers multi-criteria journey-planning queries against it.",
	SilenceUsage: true,
}

var (
	feedDir     string
	sqliteDSN   string
	postgresDSN string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&feedDir, "feed-dir", "", "Directory holding an unzipped GTFS feed")
	rootCmd.PersistentFlags().StringVar(&sqliteDSN, "sqlite", "", "Path to a SQLite database holding a GTFS feed")
	rootCmd.PersistentFlags().StringVar(&postgresDSN, "postgres", "", "Postgres connection string holding a GTFS feed")
	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(disruptCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// openSource resolves exactly one of --feed-dir, --sqlite or
// --postgres into a loader.FeedSource.
func openSource() (loader.FeedSource, error) {
	chosen := 0
	var src loader.FeedSource
	if feedDir != "" {
		chosen++
		src = loader.NewFileSource(feedDir)
	}
	if sqliteDSN != "" {
		chosen++
		s, err := store.Open(sqliteDSN)
		if err != nil {
			return nil, err
		}
		src = s
	}
	if postgresDSN != "" {
		chosen++
		s, err := store.OpenPostgres(postgresDSN)
		if err != nil {
			return nil, err
		}
		src = s
	}
	if chosen == 0 {
		return nil, fmt.Errorf("one of --feed-dir, --sqlite or --postgres is required")
	}
	if chosen > 1 {
		return nil, fmt.Errorf("--feed-dir, --sqlite and --postgres are mutually exclusive")
	}
	return src, nil
}

// loadResult opens the configured source and loads it into a
// loader.Result, printing a one-line summary of what was skipped.
func loadResult() (*loader.Result, error) {
	src, err := openSource()
	if err != nil {
		return nil, err
	}
	result, err := loader.Load(src)
	if err != nil {
		return nil, err
	}
	if len(result.Skipped) > 0 {
		fmt.Fprintf(os.Stderr, "loaded %d trips, skipped %d\n", result.NbTrips, len(result.Skipped))
	}
	return result, nil
}
