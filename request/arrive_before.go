package request

import (
	"github.com/transitway/raptor/calendar"
	"github.com/transitway/raptor/criteria"
	"github.com/transitway/raptor/model"
	"github.com/transitway/raptor/transitdata"
)

// ArriveBefore drives the engine backward from a fixed arrival
// deadline, debarking the latest admissible vehicle at each position
// (spec §4.2's latest_filtered_vehicle_that_debark). It walks the same
// missions the forward adapter does, with "next position" meaning the
// previous stop and "board" meaning debark, so the round loop in
// package engine never branches on direction.
type ArriveBefore struct {
	base
}

// NewArriveBefore builds an arrive-before adapter. origins must carry
// the request's true destinations (InitialTime is the arrival
// deadline); destinations must carry the request's true origins.
func NewArriveBefore(
	data *transitdata.Data,
	tuning criteria.Tuning,
	policy criteria.Policy,
	origins []Origin,
	destinations []Destination,
	forbiddenTripIDs []string,
	allowedTripID string,
) *ArriveBefore {
	tuning.Clockwise = false
	return &ArriveBefore{base: newBase(data, tuning, policy, origins, destinations, forbiddenTripIDs, allowedTripID)}
}

func (a *ArriveBefore) Departures() []Departure {
	out := make([]Departure, len(a.origins))
	for i, o := range a.origins {
		out[i] = Departure{
			Stop: o.Stop,
			Criteria: criteria.Criteria{
				Time:             o.InitialTime - calendar.SecondsSinceDatasetUTCStart(o.AccessDuration),
				FallbackDuration: o.AccessDuration,
			},
		}
	}
	return out
}

func (a *ArriveBefore) NextPosition(mission model.MissionIdx, p model.Position) (model.Position, bool) {
	return a.data.Timetables.Mission(mission).PreviousPosition(p)
}

func (a *ArriveBefore) IsUpstream(mission model.MissionIdx, x, y model.Position) bool {
	return a.data.Timetables.Mission(mission).IsUpstream(y, x)
}

func (a *ArriveBefore) BestTripToBoard(position model.Position, mission model.MissionIdx, waiting criteria.Criteria) (Trip, criteria.Criteria, bool) {
	cand, err := a.data.Timetables.LatestFilteredVehicleThatDebark(waiting.Time, mission, position, a.dayPredicate())
	if err != nil || cand == nil {
		return Trip{}, criteria.Criteria{}, false
	}
	c := waiting
	c.Time = cand.DebarkAt
	c.NbLegs++
	return Trip{Mission: mission, Vehicle: cand.Vehicle, Day: cand.Day}, c, true
}

// Ride steps the criterion back to the board time at the previous
// position, adding the ridden segment's load when the policy compares
// loads.
func (a *ArriveBefore) Ride(trip Trip, position model.Position, onboard criteria.Criteria) criteria.Criteria {
	tt := a.data.Timetables.Mission(trip.Mission)
	c := onboard
	if prev, ok := tt.PreviousPosition(position); ok {
		if t, ok := a.data.Timetables.DepartureTime(trip.Mission, trip.Vehicle, trip.Day, prev); ok {
			c.Time = t
		}
		if a.policy.UsesLoads() {
			c.Loads = c.Loads.Add(tt.LoadAt(trip.Vehicle, prev))
		}
	}
	return c
}

// Debark, in this reversed traversal, lands on the real-world boarding
// position -- the point from which a transfer into another trip could
// have been made.
func (a *ArriveBefore) Debark(trip Trip, position model.Position, onboard criteria.Criteria) (criteria.Criteria, bool) {
	tt := a.data.Timetables.Mission(trip.Mission)
	if !tt.FlowAt(position).CanBoard() {
		return criteria.Criteria{}, false
	}
	return onboard, true
}

func (a *ArriveBefore) ApplyTransfer(transfer model.Transfer, debarked criteria.Criteria) criteria.Criteria {
	c := debarked
	c.Time -= calendar.SecondsSinceDatasetUTCStart(transfer.Duration)
	c.TransferDuration += transfer.Duration
	return c
}

func (a *ArriveBefore) Arrive(stop model.StopIdx, debarked criteria.Criteria) (criteria.Criteria, bool) {
	duration, ok := a.destByStop[stop]
	if !ok {
		return criteria.Criteria{}, false
	}
	c := debarked
	c.Time -= calendar.SecondsSinceDatasetUTCStart(duration)
	c.FallbackDuration += duration
	return c, true
}
