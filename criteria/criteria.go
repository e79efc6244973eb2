// Package criteria implements the dominance relation used to keep
// Pareto fronts during the MC-RAPTOR traversal (spec §4.4). Two
// policies are supported: Basic, and Loads (which additionally
// compares accumulated load class counts).
package criteria

import (
	"github.com/transitway/raptor/calendar"
	"github.com/transitway/raptor/model"
)

// Criteria is the tuple carried along a partial or complete journey.
type Criteria struct {
	Time             calendar.SecondsSinceDatasetUTCStart
	NbLegs           int
	FallbackDuration int32 // seconds
	TransferDuration int32 // seconds
	Loads            model.LoadsCount
}

// Tuning holds the request-level constants the dominance relation and
// validity check are parameterized by (spec §6: leg_arrival_penalty,
// leg_walking_penalty, too_late_threshold, the validity window and leg
// bound).
type Tuning struct {
	LegArrivalPenalty int32 // alpha, seconds
	LegWalkingPenalty int32 // beta, seconds
	TooLateThreshold  int32 // seconds

	MinDepartureTime calendar.SecondsSinceDatasetUTCStart
	MaxArrivalTime   calendar.SecondsSinceDatasetUTCStart
	MaxNbLegs        int

	// Clockwise selects depart-after (true) vs arrive-before (false)
	// semantics for the time half of the dominance relation and for
	// validity bounds.
	Clockwise bool
}

// Policy is implemented by Basic and Loads.
type Policy interface {
	// LessOrEqual reports whether lower is at least as good as upper
	// under this policy -- "lower dominates or ties upper".
	LessOrEqual(lower, upper Criteria, t Tuning) bool

	// Valid reports whether c still satisfies the request's time
	// window and leg bound.
	Valid(c Criteria, t Tuning) bool

	// UsesLoads reports whether this policy compares LoadsCount, so
	// callers can skip computing it when it would go unused.
	UsesLoads() bool
}

// Basic is the policy described in spec §4.4: time-plus-leg-penalty on
// one axis, fallback-plus-transfer-plus-walking-penalty on the other.
type Basic struct{}

func (Basic) UsesLoads() bool { return false }

func (Basic) LessOrEqual(lower, upper Criteria, t Tuning) bool {
	return basicLessOrEqual(lower, upper, t)
}

func basicLessOrEqual(lower, upper Criteria, t Tuning) bool {
	lowerTimeScore := int64(lower.Time) + int64(t.LegArrivalPenalty)*int64(lower.NbLegs)
	upperTimeScore := int64(upper.Time) + int64(t.LegArrivalPenalty)*int64(upper.NbLegs)
	var timeOK bool
	if t.Clockwise {
		timeOK = lowerTimeScore <= upperTimeScore
	} else {
		timeOK = lowerTimeScore >= upperTimeScore
	}
	if !timeOK {
		return false
	}

	lowerWalk := int64(lower.FallbackDuration) + int64(lower.TransferDuration) + int64(t.LegWalkingPenalty)*int64(lower.NbLegs)
	upperWalk := int64(upper.FallbackDuration) + int64(upper.TransferDuration) + int64(t.LegWalkingPenalty)*int64(upper.NbLegs)
	return lowerWalk <= upperWalk
}

func (Basic) Valid(c Criteria, t Tuning) bool {
	return validTimeAndLegs(c, t)
}

func validTimeAndLegs(c Criteria, t Tuning) bool {
	if c.Time < t.MinDepartureTime || c.Time > t.MaxArrivalTime {
		return false
	}
	return c.NbLegs <= t.MaxNbLegs
}

// Loads extends Basic with the load-count dominance term.
type Loads struct{}

func (Loads) UsesLoads() bool { return true }

func (Loads) LessOrEqual(lower, upper Criteria, t Tuning) bool {
	if !basicLessOrEqual(lower, upper, t) {
		return false
	}
	return lower.Loads.LessOrEqual(upper.Loads)
}

func (Loads) Valid(c Criteria, t Tuning) bool {
	return validTimeAndLegs(c, t)
}

// TooLate reports whether partial criterion p can be discarded given
// that a complete journey with criterion complete has already been
// found -- the "too-late-threshold" pruning rule of spec §4.4.
func TooLate(p, complete Criteria, t Tuning) bool {
	if t.TooLateThreshold <= 0 {
		return false
	}
	if t.Clockwise {
		return int64(p.Time) >= int64(complete.Time)+int64(t.TooLateThreshold)
	}
	return int64(p.Time) <= int64(complete.Time)-int64(t.TooLateThreshold)
}
