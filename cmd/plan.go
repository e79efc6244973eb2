package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/transitway/raptor/criteria"
	"github.com/transitway/raptor/engine"
	"github.com/transitway/raptor/request"
	"github.com/transitway/raptor/response"
)

var planCmd = &cobra.Command{
	Use:   "plan <from_stop_id> <to_stop_id>",
	Short: "Finds Pareto-optimal journeys between two stops",
	Args:  cobra.ExactArgs(2),
	RunE:  runPlan,
}

var (
	planDeparture   string
	planAccessWalk  time.Duration
	planMaxLegs     int
	planUseLoads    bool
)

func init() {
	planCmd.Flags().StringVar(&planDeparture, "at", "", "Departure instant (RFC3339); defaults to now")
	planCmd.Flags().DurationVar(&planAccessWalk, "access-walk", 5*time.Minute, "Access/egress walk duration at either end")
	planCmd.Flags().IntVar(&planMaxLegs, "max-legs", 8, "Maximum number of vehicle legs")
	planCmd.Flags().BoolVar(&planUseLoads, "loads", false, "Use the loads-aware dominance policy instead of basic")
}

func runPlan(cmd *cobra.Command, args []string) error {
	fromExtID, toExtID := args[0], args[1]

	result, err := loadResult()
	if err != nil {
		return err
	}
	data := result.Data

	fromStop, ok := data.LookupStop(fromExtID)
	if !ok {
		return fmt.Errorf("unknown stop %q", fromExtID)
	}
	toStop, ok := data.LookupStop(toExtID)
	if !ok {
		return fmt.Errorf("unknown stop %q", toExtID)
	}

	departure := time.Now()
	if planDeparture != "" {
		departure, err = time.Parse(time.RFC3339, planDeparture)
		if err != nil {
			return fmt.Errorf("invalid --at: %w", err)
		}
	}
	departAt := data.Cal.FromTime(departure)

	tuning := criteria.Tuning{
		LegArrivalPenalty: 120,
		LegWalkingPenalty: 60,
		TooLateThreshold:  3600,
		MinDepartureTime:  departAt,
		MaxArrivalTime:    departAt + 24*3600,
		MaxNbLegs:         planMaxLegs,
	}

	var policy criteria.Policy = criteria.Basic{}
	if planUseLoads {
		policy = criteria.Loads{}
	}

	adapter := request.NewDepartAfter(
		data, tuning, policy,
		[]request.Origin{{Stop: fromStop, AccessDuration: int32(planAccessWalk / time.Second), InitialTime: departAt}},
		[]request.Destination{{Stop: toStop, AccessDuration: int32(planAccessWalk / time.Second)}},
		nil, "",
	)

	e := engine.NewEngine()
	arrivals := e.Plan(adapter)
	if len(arrivals) == 0 {
		fmt.Println("no journey found")
		return nil
	}

	builder := response.NewBuilder(data.Timetables, data.Cal)
	for _, node := range arrivals {
		journey, err := builder.Build(e.Tree, node, true)
		if err != nil {
			fmt.Fprintf(cmd.OutOrStderr(), "skipping unreconstructable result: %v\n", err)
			continue
		}
		printJourney(journey)
	}
	return nil
}

func printJourney(j *response.Journey) {
	fmt.Printf("departs %s, arrives %s\n", j.Departure.Format(time.RFC3339), j.Arrival.Format(time.RFC3339))
	for _, sec := range j.Sections {
		switch sec.Kind {
		case response.SectionVehicle:
			fmt.Printf("  ride %s: %d -> %d (%s -> %s)\n",
				sec.TripID, sec.FromStop, sec.ToStop,
				sec.Departure.Format("15:04:05"), sec.Arrival.Format("15:04:05"))
		case response.SectionTransfer:
			fmt.Printf("  walk: %d -> %d\n", sec.FromStop, sec.ToStop)
		}
	}
}
