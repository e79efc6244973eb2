package loader

import (
	"fmt"
	"sort"
	"time"

	"github.com/transitway/raptor/calendar"
	"github.com/transitway/raptor/loader/rawmodel"
	"github.com/transitway/raptor/loads"
	"github.com/transitway/raptor/model"
	"github.com/transitway/raptor/overlay"
	"github.com/transitway/raptor/timetable"
	"github.com/transitway/raptor/transitdata"
)

// Result is the assembled snapshot a FeedSource produces: the transit
// data the engine queries, the load registry (left empty: Load neither
// fills nor consults it, so every trip gets all-Medium loads), and an
// overlay ready to receive real-time
// updates against the schedule Result just built.
type Result struct {
	Data    *transitdata.Data
	Loads   *loads.Registry
	Overlay *overlay.Overlay
	NbTrips int
	Skipped []error // per-trip insertion failures; the rest of the feed still loaded

	// Indices kept for building a disruption Resolver (see
	// DisruptionResolver): a trip's route, a route's trips, a stop's
	// trips, and a trip's valid dates (YYYYMMDD).
	RouteOfTrip   map[string]string
	TripsByRoute  map[string][]string
	TripsByStop   map[string][]string
	ValidDates    map[string][]string
}

// Load reads every file of src and builds a Result. Per spec §4.2 step
// 1, a trip that fails timetable insertion is skipped and reported in
// Result.Skipped rather than aborting the whole load.
func Load(src FeedSource) (*Result, error) {
	agencies, err := src.Agencies()
	if err != nil {
		return nil, fmt.Errorf("loader: %w", err)
	}
	tz, err := singleTimezone(agencies)
	if err != nil {
		return nil, fmt.Errorf("loader: %w", err)
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("loader: agency_timezone %q: %w", tz, err)
	}

	calendars, err := src.Calendars()
	if err != nil {
		return nil, fmt.Errorf("loader: %w", err)
	}
	calendarDates, err := src.CalendarDates()
	if err != nil {
		return nil, fmt.Errorf("loader: %w", err)
	}
	serviceDates, first, last, err := expandServices(calendars, calendarDates)
	if err != nil {
		return nil, fmt.Errorf("loader: %w", err)
	}

	cal, err := calendar.New(first, last)
	if err != nil {
		return nil, fmt.Errorf("loader: building calendar: %w", err)
	}

	data := transitdata.New(cal)
	registry := loads.New()
	ov := overlay.New(data)

	stops, err := src.Stops()
	if err != nil {
		return nil, fmt.Errorf("loader: %w", err)
	}
	for _, st := range stops {
		data.StopByExtID(st.ID)
	}

	trips, err := src.Trips()
	if err != nil {
		return nil, fmt.Errorf("loader: %w", err)
	}

	stopTimes, err := src.StopTimes()
	if err != nil {
		return nil, fmt.Errorf("loader: %w", err)
	}
	byTrip := groupStopTimes(stopTimes)

	result := &Result{
		Data: data, Loads: registry, Overlay: ov,
		RouteOfTrip: map[string]string{},
		TripsByRoute: map[string][]string{},
		TripsByStop:  map[string][]string{},
		ValidDates:   map[string][]string{},
	}

	for _, t := range trips {
		sts, ok := byTrip[t.ID]
		if !ok || len(sts) < 2 {
			continue // a trip with fewer than two stop_times has no segment to ride
		}
		dates := serviceDates[t.ServiceID]
		req, schedule, err := buildInsertRequest(data, t, sts, loc, dates)
		if err != nil {
			result.Skipped = append(result.Skipped, fmt.Errorf("loader: trip %s: %w", t.ID, err))
			continue
		}
		if _, err := data.InsertTrip(req); err != nil {
			result.Skipped = append(result.Skipped, fmt.Errorf("loader: trip %s: %w", t.ID, err))
			continue
		}
		ov.RegisterBaseTrip(t.ID, schedule)
		result.NbTrips++

		result.RouteOfTrip[t.ID] = t.RouteID
		result.TripsByRoute[t.RouteID] = append(result.TripsByRoute[t.RouteID], t.ID)
		for _, st := range sts {
			// keyed by decimal StopIdx, not the raw feed id, matching
			// the decimal-string convention overlay.Resolver expects
			// at the stop-point disruption boundary (see overlay/disruption.go).
			key := fmt.Sprintf("%d", data.StopByExtID(st.StopID))
			result.TripsByStop[key] = appendUnique(result.TripsByStop[key], t.ID)
		}
		for _, d := range dates {
			result.ValidDates[t.ID] = append(result.ValidDates[t.ID], d.Format("20060102"))
		}
	}

	transfers, err := src.Transfers()
	if err != nil {
		return nil, fmt.Errorf("loader: %w", err)
	}
	for _, tr := range transfers {
		if tr.FromStopID == tr.ToStopID {
			continue // same-stop minimum-connection-time rows carry no walking leg
		}
		from, ok := data.LookupStop(tr.FromStopID)
		if !ok {
			continue
		}
		to, ok := data.LookupStop(tr.ToStopID)
		if !ok {
			continue
		}
		duration := int32(tr.MinTransferTime)
		if duration <= 0 {
			duration = 60 // GTFS transfers.txt leaves min_transfer_time unset for "walk, no minimum enforced"
		}
		extID := fmt.Sprintf("%s->%s", tr.FromStopID, tr.ToStopID)
		if _, err := data.AddTransfer(from, to, duration, extID); err != nil {
			result.Skipped = append(result.Skipped, fmt.Errorf("loader: transfer %s: %w", extID, err))
		}
	}

	return result, nil
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}

func singleTimezone(agencies []rawmodel.Agency) (string, error) {
	if len(agencies) == 0 {
		return "", fmt.Errorf("no agency record found")
	}
	tz := agencies[0].Timezone
	for _, a := range agencies {
		if a.Timezone != tz {
			return "", fmt.Errorf("multiple agency_timezone values")
		}
	}
	if tz == "" {
		return "", fmt.Errorf("missing agency_timezone")
	}
	return tz, nil
}

func groupStopTimes(rows []rawmodel.StopTime) map[string][]rawmodel.StopTime {
	byTrip := map[string][]rawmodel.StopTime{}
	for _, r := range rows {
		byTrip[r.TripID] = append(byTrip[r.TripID], r)
	}
	for _, rows := range byTrip {
		sort.Slice(rows, func(i, j int) bool { return rows[i].StopSequence < rows[j].StopSequence })
	}
	return byTrip
}

// expandServices turns calendar.txt's weekly pattern plus
// calendar_dates.txt's additions/removals into an explicit list of
// valid dates per service, and reports the overall [first, last] date
// range the feed spans.
func expandServices(calendars []rawmodel.Calendar, calendarDates []rawmodel.CalendarDate) (map[string][]time.Time, time.Time, time.Time, error) {
	dates := map[string]map[string]bool{} // serviceID -> YYYYMMDD -> included
	var first, last time.Time

	for _, c := range calendars {
		start, err := time.ParseInLocation("20060102", c.StartDate, time.UTC)
		if err != nil {
			return nil, time.Time{}, time.Time{}, fmt.Errorf("parsing calendar start_date: %w", err)
		}
		end, err := time.ParseInLocation("20060102", c.EndDate, time.UTC)
		if err != nil {
			return nil, time.Time{}, time.Time{}, fmt.Errorf("parsing calendar end_date: %w", err)
		}
		if first.IsZero() || start.Before(first) {
			first = start
		}
		if last.IsZero() || end.After(last) {
			last = end
		}

		set := dates[c.ServiceID]
		if set == nil {
			set = map[string]bool{}
			dates[c.ServiceID] = set
		}
		for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
			if c.Weekday&(1<<uint(d.Weekday())) != 0 {
				set[d.Format("20060102")] = true
			}
		}
	}

	for _, cd := range calendarDates {
		d, err := time.ParseInLocation("20060102", cd.Date, time.UTC)
		if err != nil {
			return nil, time.Time{}, time.Time{}, fmt.Errorf("parsing calendar_dates date: %w", err)
		}
		if first.IsZero() || d.Before(first) {
			first = d
		}
		if last.IsZero() || d.After(last) {
			last = d
		}

		set := dates[cd.ServiceID]
		if set == nil {
			set = map[string]bool{}
			dates[cd.ServiceID] = set
		}
		switch cd.ExceptionType {
		case 1:
			set[cd.Date] = true
		case 2:
			delete(set, cd.Date)
		default:
			return nil, time.Time{}, time.Time{}, fmt.Errorf("invalid exception_type %d", cd.ExceptionType)
		}
	}

	if first.IsZero() {
		return nil, time.Time{}, time.Time{}, fmt.Errorf("no calendar.txt or calendar_dates.txt rows")
	}

	out := map[string][]time.Time{}
	for service, set := range dates {
		keys := make([]string, 0, len(set))
		for d := range set {
			keys = append(keys, d)
		}
		sort.Strings(keys)
		for _, k := range keys {
			t, err := time.ParseInLocation("20060102", k, time.UTC)
			if err != nil {
				return nil, time.Time{}, time.Time{}, err
			}
			out[service] = append(out[service], t)
		}
	}
	return out, first, last, nil
}

func buildInsertRequest(
	data *transitdata.Data,
	t rawmodel.Trip,
	sts []rawmodel.StopTime,
	loc *time.Location,
	validDates []time.Time,
) (timetable.InsertRequest, *overlay.StopTimes, error) {
	n := len(sts)
	stops := make([]model.StopIdx, n)
	flows := make([]model.FlowDirection, n)
	board := make([]calendar.SecondsSinceTimezonedDayStart, n)
	debark := make([]calendar.SecondsSinceTimezonedDayStart, n)

	for i, st := range sts {
		stops[i] = data.StopByExtID(st.StopID)
		flows[i] = flowOf(st)
		board[i] = calendar.SecondsSinceTimezonedDayStart(st.DepartureTime() / time.Second)
		debark[i] = calendar.SecondsSinceTimezonedDayStart(st.ArrivalTime() / time.Second)
	}

	req := timetable.InsertRequest{
		TripID:      t.ID,
		Stops:       stops,
		Flows:       flows,
		BoardLocal:  board,
		DebarkLocal: debark,
		ValidDates:  validDates,
		Timezone:    loc,
	}

	schedule := &overlay.StopTimes{
		Stops:       append([]model.StopIdx(nil), stops...),
		Flows:       append([]model.FlowDirection(nil), flows...),
		BoardLocal:  append([]calendar.SecondsSinceTimezonedDayStart(nil), board...),
		DebarkLocal: append([]calendar.SecondsSinceTimezonedDayStart(nil), debark...),
		Timezone:    loc,
	}
	return req, schedule, nil
}

func flowOf(st rawmodel.StopTime) model.FlowDirection {
	canBoard := st.PickupType != 1
	canDebark := st.DropOffType != 1
	switch {
	case canBoard && canDebark:
		return model.BoardAndDebark
	case canBoard:
		return model.BoardOnly
	case canDebark:
		return model.DebarkOnly
	default:
		return model.NoBoardDebark
	}
}
