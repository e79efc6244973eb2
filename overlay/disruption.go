package overlay

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/transitway/raptor/model"
)

// ImpactKind distinguishes the disruption granularity: a single trip's
// replacement schedule, a brand new trip, or a cascading deletion
// scoped to a network/line/route/stop-area/stop-point (spec §4.3's
// "higher-level disruptions fan out").
type ImpactKind int

const (
	ImpactTripUpdate ImpactKind = iota
	ImpactTripAdd
	ImpactNetworkDeleted
	ImpactLineDeleted
	ImpactRouteDeleted
	ImpactStopAreaDeleted
	ImpactStopPointDeleted
)

// Impact is one unit of a Disruption: an application period, the
// objects it touches, and (for the trip-level kinds) a replacement
// schedule.
type Impact struct {
	Kind              ImpactKind
	ObjectID          string // trip id for the two trip-level kinds, else the network/line/route/area/point id
	ApplicationStart  time.Time
	ApplicationEnd    time.Time
	Severity          string
	Schedule          *StopTimes // required for ImpactTripUpdate / ImpactTripAdd
}

// Disruption is a named container of Impacts, applied or cancelled as
// one unit (spec §3's Disruption type).
type Disruption struct {
	ID          string
	Reference   string
	Contributor string
	Impacts     []Impact
}

// NewDisruption mints a Disruption with a fresh ID, so a contributor
// pushing impacts through Apply never has to invent its own collision-free
// identifier.
func NewDisruption(reference, contributor string) Disruption {
	return Disruption{
		ID:          uuid.New().String(),
		Reference:   reference,
		Contributor: contributor,
	}
}

// Resolver answers the questions Overlay needs to fan a non-trip-level
// impact out to concrete trips, without Overlay needing to know the
// base model's route/line/network hierarchy itself.
type Resolver interface {
	TripsForNetwork(id string) []string
	TripsForLine(id string) []string
	TripsForRoute(id string) []string
	TripsForStopArea(id string) []string
	TripsForStopPoint(id string) []string

	// ValidDatesOf returns every date (YYYYMMDD) tripID is
	// scheduled on, for intersecting with an impact's application
	// period.
	ValidDatesOf(tripID string) []string

	// ScheduleOf returns tripID's currently-effective schedule on
	// date, needed to splice a single stop out for
	// ImpactStopPointDeleted.
	ScheduleOf(tripID, date string) (*StopTimes, bool)
}

// Apply applies every impact of d, collecting (not aborting on) the
// errors of individual trip updates -- spec §7's "timetable-insertion
// failures during disruption apply are logged and skipped; the
// disruption's other impacts proceed".
func (o *Overlay) Apply(d Disruption, resolver Resolver, source Source) []error {
	var errs []error
	for _, impact := range d.Impacts {
		if err := o.applyImpact(d.ID, impact, resolver, source); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func (o *Overlay) applyImpact(disruptionID string, impact Impact, resolver Resolver, source Source) error {
	switch impact.Kind {
	case ImpactTripUpdate:
		return o.applyEachDate(disruptionID, impact, []string{impact.ObjectID}, resolver, source, func(tripID, date string) error {
			return o.Modify(tripID, date, impact.Schedule, disruptionID, source)
		})

	case ImpactTripAdd:
		return o.applyEachDate(disruptionID, impact, []string{impact.ObjectID}, resolver, source, func(tripID, date string) error {
			return o.Add(tripID, date, impact.Schedule, disruptionID, source)
		})

	case ImpactNetworkDeleted:
		return o.deleteFanOut(disruptionID, impact, resolver.TripsForNetwork(impact.ObjectID), resolver, source)
	case ImpactLineDeleted:
		return o.deleteFanOut(disruptionID, impact, resolver.TripsForLine(impact.ObjectID), resolver, source)
	case ImpactRouteDeleted:
		return o.deleteFanOut(disruptionID, impact, resolver.TripsForRoute(impact.ObjectID), resolver, source)
	case ImpactStopAreaDeleted:
		return o.deleteFanOut(disruptionID, impact, resolver.TripsForStopArea(impact.ObjectID), resolver, source)

	case ImpactStopPointDeleted:
		return o.stopPointFanOut(disruptionID, impact, resolver.TripsForStopPoint(impact.ObjectID), resolver, source)
	}
	return fmt.Errorf("overlay: unknown impact kind %d", impact.Kind)
}

func (o *Overlay) deleteFanOut(disruptionID string, impact Impact, tripIDs []string, resolver Resolver, source Source) error {
	return o.applyEachDate(disruptionID, impact, tripIDs, resolver, source, func(tripID, date string) error {
		return o.Delete(tripID, date, disruptionID, source)
	})
}

// stopPointFanOut removes one stop from each affected trip's
// stop-time list on the affected date (a Modify, not a whole-trip
// Delete), per spec §4.3.
func (o *Overlay) stopPointFanOut(disruptionID string, impact Impact, tripIDs []string, resolver Resolver, source Source) error {
	return o.applyEachDate(disruptionID, impact, tripIDs, resolver, source, func(tripID, date string) error {
		schedule, ok := resolver.ScheduleOf(tripID, date)
		if !ok {
			return fmt.Errorf("overlay: stop-point removal: no schedule for %s/%s", tripID, date)
		}
		trimmed, ok := withoutStop(schedule, impact.ObjectID, resolver)
		if !ok {
			return nil // stop not on this trip; nothing to do
		}
		return o.Modify(tripID, date, trimmed, disruptionID, source)
	})
}

// withoutStop returns a copy of schedule with the stop matching
// stopID removed. The remaining flows are copied unchanged (the
// timetable store's end-flow correction applies when the result is
// inserted). resolver.ScheduleOf already resolved positions by stop
// index, so stopID is parsed into a model.StopIdx here with
// parseStopIdx and compared by index; resolver is not consulted.
func withoutStop(schedule *StopTimes, stopID string, resolver Resolver) (*StopTimes, bool) {
	idx, ok := parseStopIdx(stopID)
	if !ok {
		return nil, false
	}
	pos := -1
	for i, s := range schedule.Stops {
		if s == idx {
			pos = i
			break
		}
	}
	if pos < 0 {
		return nil, false
	}

	out := &StopTimes{Timezone: schedule.Timezone}
	out.Stops = append(out.Stops, schedule.Stops[:pos]...)
	out.Stops = append(out.Stops, schedule.Stops[pos+1:]...)
	out.Flows = append(out.Flows, schedule.Flows[:pos]...)
	out.Flows = append(out.Flows, schedule.Flows[pos+1:]...)
	out.BoardLocal = append(out.BoardLocal, schedule.BoardLocal[:pos]...)
	out.BoardLocal = append(out.BoardLocal, schedule.BoardLocal[pos+1:]...)
	out.DebarkLocal = append(out.DebarkLocal, schedule.DebarkLocal[:pos]...)
	out.DebarkLocal = append(out.DebarkLocal, schedule.DebarkLocal[pos+1:]...)
	if len(schedule.Loads) == len(schedule.Stops)-1 {
		segIdx := pos
		if segIdx >= len(schedule.Loads) {
			segIdx = len(schedule.Loads) - 1
		}
		out.Loads = append(out.Loads, schedule.Loads[:segIdx]...)
		out.Loads = append(out.Loads, schedule.Loads[segIdx+1:]...)
	}
	return out, true
}

// parseStopIdx is a placeholder hook: stop identifiers crossing the
// Resolver boundary are expected to already be dense model.StopIdx
// values formatted as decimal strings by the caller that built the
// Resolver, keeping Overlay itself free of a stop-lookup dependency.
func parseStopIdx(s string) (model.StopIdx, bool) {
	var idx int
	if _, err := fmt.Sscanf(s, "%d", &idx); err != nil {
		return 0, false
	}
	return model.StopIdx(idx), true
}

// applyEachDate intersects impact's application period with each
// trip's actual valid dates (via resolver.ValidDatesOf) and invokes fn
// for every resulting (trip, date).
func (o *Overlay) applyEachDate(disruptionID string, impact Impact, tripIDs []string, resolver Resolver, source Source, fn func(tripID, date string) error) error {
	var firstErr error
	for _, tripID := range tripIDs {
		for _, date := range tripIDsValidDatesInPeriod(tripID, impact, resolver) {
			if err := fn(tripID, date); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// tripIDsValidDatesInPeriod returns the dates in impact's application
// period that tripID is actually scheduled on, per
// resolver.ValidDatesOf -- without this intersection, a network/line/
// route/area/point fan-out would attempt Delete/Modify for every
// calendar day in the window regardless of whether the trip runs that
// day.
func tripIDsValidDatesInPeriod(tripID string, impact Impact, resolver Resolver) []string {
	if impact.ApplicationStart.IsZero() {
		return nil
	}
	inPeriod := map[string]bool{}
	for d := impact.ApplicationStart; !d.After(impact.ApplicationEnd); d = d.AddDate(0, 0, 1) {
		inPeriod[d.Format("20060102")] = true
	}

	var out []string
	for _, date := range resolver.ValidDatesOf(tripID) {
		if inPeriod[date] {
			out = append(out, date)
		}
	}
	return out
}
