// Package request turns an external planner request into the engine's
// abstract operation surface (spec §4.5, §9 "dynamic dispatch over
// criteria and direction"). Two independent axes -- criteria policy
// (basic vs loads-aware) and direction (depart-after vs
// arrive-before) -- are modeled as a small set of concrete adapters
// sharing the Adapter interface, so the MC-RAPTOR engine in package
// engine is written once against Adapter and never branches on either
// axis itself.
package request

import (
	"github.com/transitway/raptor/calendar"
	"github.com/transitway/raptor/criteria"
	"github.com/transitway/raptor/model"
)

// Trip names one concrete vehicle run: a row within a mission's
// timetable, on a specific calendar day.
type Trip struct {
	Mission model.MissionIdx
	Vehicle model.VehicleIdx
	Day     calendar.DaysSinceDatasetStart
}

// Departure is one possible start of a journey: a stop with its
// initial criterion (fallback-walk time already folded in).
type Departure struct {
	Stop     model.StopIdx
	Criteria criteria.Criteria
}

// Adapter is the abstract operation surface the MC-RAPTOR engine
// drives. A depart-after adapter walks missions forward in time; an
// arrive-before adapter walks the same missions backward ("next"
// becomes "previous", board search becomes debark search) --
// spec §4.5's "the engine code is unchanged" holds because both kinds
// satisfy this one interface.
type Adapter interface {
	// Departures returns every possible start of the journey, each
	// with its fallback-walk criterion already applied.
	Departures() []Departure

	// NextPosition returns the position the engine should scan after
	// p within mission -- the next stop for depart-after, the
	// previous stop for arrive-before.
	NextPosition(mission model.MissionIdx, p model.Position) (model.Position, bool)

	// StopOf returns the stop at a position within a mission.
	StopOf(mission model.MissionIdx, p model.Position) model.StopIdx

	// IsUpstream reports whether a is strictly before b in the
	// engine's direction of travel along mission.
	IsUpstream(mission model.MissionIdx, a, b model.Position) bool

	// BestTripToBoard returns the pointwise-optimal trip of mission
	// that can be boarded at position with waiting, and the
	// criterion at position after boarding it, or false if none can
	// be boarded. The engine's ride step, not this method, carries the
	// criterion on to the next position.
	BestTripToBoard(position model.Position, mission model.MissionIdx, waiting criteria.Criteria) (Trip, criteria.Criteria, bool)

	// Debark returns the criterion obtained by debarking trip at
	// position given the onboard criterion, or false if debarking is
	// not permitted there.
	Debark(trip Trip, position model.Position, onboard criteria.Criteria) (criteria.Criteria, bool)

	// Ride returns the criterion obtained by riding trip to the
	// position reached by NextPosition(mission_of(trip), position).
	Ride(trip Trip, position model.Position, onboard criteria.Criteria) criteria.Criteria

	// TransfersAt returns every outgoing transfer from a stop, in the
	// engine's direction of travel.
	TransfersAt(stop model.StopIdx) []model.Transfer

	// ApplyTransfer returns the criterion reached by walking a
	// transfer given the debarked criterion.
	ApplyTransfer(transfer model.Transfer, debarked criteria.Criteria) criteria.Criteria

	// Arrive returns the criterion of a complete journey ending at
	// debarked's stop, or false if this adapter's request does not
	// consider that stop a valid arrival.
	Arrive(stop model.StopIdx, debarked criteria.Criteria) (criteria.Criteria, bool)

	// LessOrEqual is the dominance relation: true when lower is at
	// least as good as upper.
	LessOrEqual(lower, upper criteria.Criteria) bool

	// Valid reports whether a criterion still satisfies the
	// request's validity window and leg bound.
	Valid(c criteria.Criteria) bool

	// TooLate reports whether a partial criterion can be pruned given
	// that a complete journey with criterion complete has been found.
	TooLate(partial, complete criteria.Criteria) bool

	// MissionsAt returns every (mission, position) occurrence of a
	// stop, for the engine's board/transfer fan-out.
	MissionsAt(stop model.StopIdx) []Occurrence
}

// Occurrence mirrors transitdata.Occurrence without importing that
// package, keeping Adapter free of a transitdata dependency so
// response-builder-only callers don't need to link the timetable
// store.
type Occurrence struct {
	Mission  model.MissionIdx
	Position model.Position
}
