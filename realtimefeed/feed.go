// Package realtimefeed decodes a GTFS-Realtime FeedMessage into the
// update shape overlay.Overlay consumes, adapted from the base
// model's GTFS-RT trip-update parser: the wire decoding and
// schedule-relationship switch are kept, but instead of collecting a
// flat delay list the output is applied directly against a trip's
// current schedule and pushed through Overlay.Modify/Overlay.Delete.
package realtimefeed

import (
	"fmt"
	"time"

	gtfsproto "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	proto "google.golang.org/protobuf/proto"

	"github.com/transitway/raptor/calendar"
	"github.com/transitway/raptor/model"
	"github.com/transitway/raptor/overlay"
)

// StopTimeUpdate is one stop-time delta within a TripUpdate.
type StopTimeUpdate struct {
	StopID         string
	StopSequence   uint32
	Skipped        bool
	ArrivalIsSet   bool
	ArrivalDelay   time.Duration
	DepartureIsSet bool
	DepartureDelay time.Duration
}

// TripUpdate is one feed entity's worth of schedule changes for a
// single (trip, date).
type TripUpdate struct {
	TripID    string
	Date      string // YYYYMMDD
	Cancelled bool
	Updates   []StopTimeUpdate
}

// Feed is a decoded FeedMessage, filtered to the entities the base
// model acts on -- added/unscheduled/duplicated trips are read from
// GTFS-RT but not supported, matching the base model's own stance.
type Feed struct {
	Timestamp uint64
	Trips     []TripUpdate
}

// Decode parses one protobuf-encoded FeedMessage.
func Decode(raw []byte) (*Feed, error) {
	f := &gtfsproto.FeedMessage{}
	if err := proto.Unmarshal(raw, f); err != nil {
		return nil, fmt.Errorf("realtimefeed: unmarshal: %w", err)
	}

	header := f.GetHeader()
	version := header.GetGtfsRealtimeVersion()
	if version != "2.0" && version != "1.0" {
		return nil, fmt.Errorf("realtimefeed: version %s not supported", version)
	}
	if header.GetIncrementality() != gtfsproto.FeedHeader_FULL_DATASET {
		return nil, fmt.Errorf("realtimefeed: incrementality %s not supported", header.GetIncrementality())
	}

	feed := &Feed{Timestamp: header.GetTimestamp()}
	for _, entity := range f.GetEntity() {
		if entity.TripUpdate == nil {
			continue
		}
		tu, ok, err := decodeTripUpdate(entity.TripUpdate)
		if err != nil {
			return nil, err
		}
		if ok {
			feed.Trips = append(feed.Trips, tu)
		}
	}
	return feed, nil
}

func decodeTripUpdate(tu *gtfsproto.TripUpdate) (TripUpdate, bool, error) {
	trip := tu.Trip
	if trip == nil {
		return TripUpdate{}, false, fmt.Errorf("realtimefeed: trip_update missing trip")
	}
	if trip.GetTripId() == "" {
		// Blank trip ids resolved via (route, direction, start_time)
		// are valid GTFS-RT but not resolvable against the base
		// model's trip-id-keyed overlay; skipped like the base
		// model's own parser skips them.
		return TripUpdate{}, false, nil
	}

	out := TripUpdate{TripID: trip.GetTripId(), Date: trip.GetStartDate()}

	switch trip.GetScheduleRelationship() {
	case gtfsproto.TripDescriptor_SCHEDULED:
		for _, u := range tu.GetStopTimeUpdate() {
			stu, err := decodeStopTimeUpdate(u)
			if err != nil {
				return TripUpdate{}, false, err
			}
			out.Updates = append(out.Updates, stu)
		}
	case gtfsproto.TripDescriptor_CANCELED:
		out.Cancelled = true
	case gtfsproto.TripDescriptor_ADDED, gtfsproto.TripDescriptor_UNSCHEDULED, gtfsproto.TripDescriptor_DUPLICATED:
		return TripUpdate{}, false, nil
	}
	return out, true, nil
}

func decodeStopTimeUpdate(u *gtfsproto.TripUpdate_StopTimeUpdate) (StopTimeUpdate, error) {
	stu := StopTimeUpdate{StopID: u.GetStopId(), StopSequence: uint32(u.GetStopSequence())}
	if stu.StopID == "" && stu.StopSequence == 0 {
		return StopTimeUpdate{}, fmt.Errorf("realtimefeed: stop_time_update missing stop_id and stop_sequence")
	}

	if u.Arrival != nil {
		stu.ArrivalIsSet = true
		stu.ArrivalDelay = time.Duration(u.GetArrival().GetDelay()) * time.Second
	}
	if u.Departure != nil {
		stu.DepartureIsSet = true
		stu.DepartureDelay = time.Duration(u.GetDeparture().GetDelay()) * time.Second
	}
	if u.GetScheduleRelationship() == gtfsproto.TripUpdate_StopTimeUpdate_SKIPPED {
		stu.Skipped = true
	}
	return stu, nil
}

// Resolver looks up the schedule and stop index state realtimefeed
// needs to translate a decoded TripUpdate into an overlay.StopTimes.
type Resolver interface {
	ScheduleOf(tripID, date string) (*overlay.StopTimes, bool)
	StopIdxByExtID(extID string) (stopIdx int, ok bool)
}

// Apply pushes every decoded trip of f into ov, collecting (not
// aborting on) per-trip errors.
func Apply(f *Feed, ov *overlay.Overlay, resolver Resolver, source overlay.Source, impactID string) []error {
	var errs []error
	for _, tu := range f.Trips {
		if tu.Cancelled {
			if err := ov.Delete(tu.TripID, tu.Date, impactID, source); err != nil {
				errs = append(errs, err)
			}
			continue
		}
		if err := applyStopTimeUpdates(tu, ov, resolver, source, impactID); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func applyStopTimeUpdates(tu TripUpdate, ov *overlay.Overlay, resolver Resolver, source overlay.Source, impactID string) error {
	if len(tu.Updates) == 0 {
		return nil
	}
	schedule, ok := resolver.ScheduleOf(tu.TripID, tu.Date)
	if !ok {
		return fmt.Errorf("realtimefeed: %s/%s: no base schedule to apply delays to", tu.TripID, tu.Date)
	}

	modified := cloneStopTimes(schedule)
	for _, u := range tu.Updates {
		pos, ok := findPosition(modified, u, resolver)
		if !ok {
			continue // unmatched stop_time_update: conservatively ignored rather than failing the whole trip
		}
		if u.Skipped {
			modified.Flows[pos] = model.NoBoardDebark
			continue
		}
		if u.ArrivalIsSet {
			modified.DebarkLocal[pos] += calendarSeconds(u.ArrivalDelay)
		}
		if u.DepartureIsSet {
			modified.BoardLocal[pos] += calendarSeconds(u.DepartureDelay)
		}
	}

	return ov.Modify(tu.TripID, tu.Date, modified, impactID, source)
}

func findPosition(schedule *overlay.StopTimes, u StopTimeUpdate, resolver Resolver) (int, bool) {
	if u.StopSequence > 0 && int(u.StopSequence)-1 < len(schedule.Stops) {
		return int(u.StopSequence) - 1, true
	}
	if u.StopID == "" {
		return 0, false
	}
	idx, ok := resolver.StopIdxByExtID(u.StopID)
	if !ok {
		return 0, false
	}
	for i, s := range schedule.Stops {
		if int(s) == idx {
			return i, true
		}
	}
	return 0, false
}

func cloneStopTimes(s *overlay.StopTimes) *overlay.StopTimes {
	return &overlay.StopTimes{
		Stops:       append([]model.StopIdx(nil), s.Stops...),
		Flows:       append([]model.FlowDirection(nil), s.Flows...),
		BoardLocal:  append([]calendar.SecondsSinceTimezonedDayStart(nil), s.BoardLocal...),
		DebarkLocal: append([]calendar.SecondsSinceTimezonedDayStart(nil), s.DebarkLocal...),
		Timezone:    s.Timezone,
		Loads:       append([]model.Load(nil), s.Loads...),
	}
}

func calendarSeconds(d time.Duration) calendar.SecondsSinceTimezonedDayStart {
	return calendar.SecondsSinceTimezonedDayStart(d / time.Second)
}
