package loader

import (
	"github.com/transitway/raptor/overlay"
	"github.com/transitway/raptor/realtimefeed"
)

var (
	_ overlay.Resolver      = (*DisruptionResolver)(nil)
	_ realtimefeed.Resolver = (*DisruptionResolver)(nil)
)

// DisruptionResolver implements overlay.Resolver and
// realtimefeed.Resolver over the indices Load built, letting the
// disrupt command fan a network/line/route/stop-area/stop-point-level
// disruption out to concrete trips without the overlay package ever
// importing loader or transitdata's stop table itself.
//
// GTFS alone has no network/line grouping above route, so
// TripsForNetwork and TripsForLine both degrade to route-level lookup;
// a feed source with a richer hierarchy (e.g. one fed from
// original_source's network/line tables) can resolve those ids to
// every route they cover before calling this resolver.
type DisruptionResolver struct {
	result *Result
}

// NewDisruptionResolver returns a Resolver over result's indices.
func NewDisruptionResolver(result *Result) *DisruptionResolver {
	return &DisruptionResolver{result: result}
}

func (r *DisruptionResolver) TripsForNetwork(id string) []string { return r.TripsForRoute(id) }
func (r *DisruptionResolver) TripsForLine(id string) []string    { return r.TripsForRoute(id) }

func (r *DisruptionResolver) TripsForRoute(id string) []string {
	return r.result.TripsByRoute[id]
}

func (r *DisruptionResolver) TripsForStopArea(id string) []string {
	return r.TripsForStopPoint(id)
}

func (r *DisruptionResolver) TripsForStopPoint(id string) []string {
	return r.result.TripsByStop[id]
}

func (r *DisruptionResolver) ValidDatesOf(tripID string) []string {
	return r.result.ValidDates[tripID]
}

func (r *DisruptionResolver) ScheduleOf(tripID, date string) (*overlay.StopTimes, bool) {
	return r.result.Overlay.ScheduleOf(tripID, date)
}

// StopIdxByExtID satisfies realtimefeed.Resolver.
func (r *DisruptionResolver) StopIdxByExtID(extID string) (int, bool) {
	idx, ok := r.result.Data.LookupStop(extID)
	return int(idx), ok
}
