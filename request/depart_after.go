package request

import (
	"github.com/transitway/raptor/calendar"
	"github.com/transitway/raptor/criteria"
	"github.com/transitway/raptor/model"
	"github.com/transitway/raptor/transitdata"
)

// DepartAfter drives the engine forward from a fixed departure
// instant, boarding the earliest admissible vehicle at each position
// (spec §4.2's earliest_filtered_vehicle_to_board).
type DepartAfter struct {
	base
}

// NewDepartAfter builds a depart-after adapter. policy selects Basic
// or Loads dominance; origins/destinations are the request's true
// access points, in their natural (not reversed) sense.
func NewDepartAfter(
	data *transitdata.Data,
	tuning criteria.Tuning,
	policy criteria.Policy,
	origins []Origin,
	destinations []Destination,
	forbiddenTripIDs []string,
	allowedTripID string,
) *DepartAfter {
	tuning.Clockwise = true
	return &DepartAfter{base: newBase(data, tuning, policy, origins, destinations, forbiddenTripIDs, allowedTripID)}
}

func (a *DepartAfter) Departures() []Departure {
	out := make([]Departure, len(a.origins))
	for i, o := range a.origins {
		out[i] = Departure{
			Stop: o.Stop,
			Criteria: criteria.Criteria{
				Time:             o.InitialTime + calendar.SecondsSinceDatasetUTCStart(o.AccessDuration),
				FallbackDuration: o.AccessDuration,
			},
		}
	}
	return out
}

func (a *DepartAfter) NextPosition(mission model.MissionIdx, p model.Position) (model.Position, bool) {
	return a.data.Timetables.Mission(mission).NextPosition(p)
}

func (a *DepartAfter) IsUpstream(mission model.MissionIdx, x, y model.Position) bool {
	return a.data.Timetables.Mission(mission).IsUpstream(x, y)
}

func (a *DepartAfter) BestTripToBoard(position model.Position, mission model.MissionIdx, waiting criteria.Criteria) (Trip, criteria.Criteria, bool) {
	cand, err := a.data.Timetables.EarliestFilteredVehicleToBoard(waiting.Time, mission, position, a.dayPredicate())
	if err != nil || cand == nil {
		return Trip{}, criteria.Criteria{}, false
	}
	c := waiting
	c.Time = cand.BoardAt
	c.NbLegs++
	return Trip{Mission: mission, Vehicle: cand.Vehicle, Day: cand.Day}, c, true
}

// Ride advances the "just boarded at position" criterion to the
// arrival time at NextPosition, adding the ridden segment's load when
// the policy compares loads.
func (a *DepartAfter) Ride(trip Trip, position model.Position, onboard criteria.Criteria) criteria.Criteria {
	tt := a.data.Timetables.Mission(trip.Mission)
	c := onboard
	if next, ok := tt.NextPosition(position); ok {
		if t, ok := a.data.Timetables.ArrivalTime(trip.Mission, trip.Vehicle, trip.Day, next); ok {
			c.Time = t
		}
		if a.policy.UsesLoads() {
			c.Loads = c.Loads.Add(tt.LoadAt(trip.Vehicle, position))
		}
	}
	return c
}

func (a *DepartAfter) Debark(trip Trip, position model.Position, onboard criteria.Criteria) (criteria.Criteria, bool) {
	tt := a.data.Timetables.Mission(trip.Mission)
	if !tt.FlowAt(position).CanDebark() {
		return criteria.Criteria{}, false
	}
	return onboard, true
}

func (a *DepartAfter) ApplyTransfer(transfer model.Transfer, debarked criteria.Criteria) criteria.Criteria {
	c := debarked
	c.Time += calendar.SecondsSinceDatasetUTCStart(transfer.Duration)
	c.TransferDuration += transfer.Duration
	return c
}

func (a *DepartAfter) Arrive(stop model.StopIdx, debarked criteria.Criteria) (criteria.Criteria, bool) {
	duration, ok := a.destByStop[stop]
	if !ok {
		return criteria.Criteria{}, false
	}
	c := debarked
	c.Time += calendar.SecondsSinceDatasetUTCStart(duration)
	c.FallbackDuration += duration
	return c, true
}
