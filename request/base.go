package request

import (
	"github.com/transitway/raptor/calendar"
	"github.com/transitway/raptor/criteria"
	"github.com/transitway/raptor/model"
	"github.com/transitway/raptor/timetable"
	"github.com/transitway/raptor/transitdata"
)

// Origin is one possible seed of the engine's waiting front: a stop
// reachable by a fallback walk, with the absolute instant that walk
// starts from. DepartAfter reads these as the request's true origins;
// ArriveBefore reads them as the request's true destinations, walked
// backward from the deadline.
type Origin struct {
	Stop           model.StopIdx
	AccessDuration int32 // seconds
	InitialTime    calendar.SecondsSinceDatasetUTCStart
}

// Destination is one possible target the engine may Arrive at: a stop
// reachable by a final fallback walk of the given duration.
// DepartAfter reads these as the request's true destinations;
// ArriveBefore reads them as the request's true origins.
type Destination struct {
	Stop           model.StopIdx
	AccessDuration int32 // seconds
}

// base holds the state shared by every concrete adapter: the transit
// data snapshot, tuning, dominance policy, and the request-level
// filters named in spec §6 (forbidden_uris, allowed_id).
type base struct {
	data   *transitdata.Data
	tuning criteria.Tuning
	policy criteria.Policy

	origins      []Origin
	destinations []Destination
	destByStop   map[model.StopIdx]int32

	forbidden map[string]bool
	allowed   string // empty means unrestricted
}

func newBase(
	data *transitdata.Data,
	tuning criteria.Tuning,
	policy criteria.Policy,
	origins []Origin,
	destinations []Destination,
	forbiddenTripIDs []string,
	allowedTripID string,
) base {
	b := base{
		data:         data,
		tuning:       tuning,
		policy:       policy,
		origins:      origins,
		destinations: destinations,
		destByStop:   map[model.StopIdx]int32{},
		forbidden:    map[string]bool{},
		allowed:      allowedTripID,
	}
	for _, id := range forbiddenTripIDs {
		b.forbidden[id] = true
	}
	for _, d := range destinations {
		if cur, ok := b.destByStop[d.Stop]; !ok || d.AccessDuration < cur {
			b.destByStop[d.Stop] = d.AccessDuration
		}
	}
	return b
}

// tripAllowed applies forbidden_uris / allowed_id (spec §6).
func (b base) tripAllowed(tripID string) bool {
	if b.forbidden[tripID] {
		return false
	}
	if b.allowed != "" && b.allowed != tripID {
		return false
	}
	return true
}

func (b base) dayPredicate() timetable.DayPredicate {
	return func(day calendar.DaysSinceDatasetStart, data timetable.VehicleData) bool {
		return b.data.Patterns.IsAllowed(data.Pattern, day) && b.tripAllowed(data.TripID)
	}
}

func (b base) StopOf(mission model.MissionIdx, p model.Position) model.StopIdx {
	return b.data.Timetables.Mission(mission).StopAt(p)
}

func (b base) TransfersAt(stop model.StopIdx) []model.Transfer {
	return b.data.TransfersAt(stop)
}

func (b base) LessOrEqual(lower, upper criteria.Criteria) bool {
	return b.policy.LessOrEqual(lower, upper, b.tuning)
}

func (b base) Valid(c criteria.Criteria) bool {
	return b.policy.Valid(c, b.tuning)
}

func (b base) TooLate(partial, complete criteria.Criteria) bool {
	return criteria.TooLate(partial, complete, b.tuning)
}

func (b base) MissionsAt(stop model.StopIdx) []Occurrence {
	occs := b.data.MissionsAt(stop)
	out := make([]Occurrence, len(occs))
	for i, o := range occs {
		out[i] = Occurrence{Mission: o.Mission, Position: o.Position}
	}
	return out
}
