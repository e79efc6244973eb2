package timetable

import (
	"fmt"
	"time"

	"github.com/transitway/raptor/calendar"
	"github.com/transitway/raptor/model"
)

// Store is the insertable, query-ready collection of Timetables
// described in spec §4.2. It owns the dense MissionIdx -> *Timetable
// mapping; a Mission is simply a handle equal to a Timetable.
type Store struct {
	Cal      *calendar.Calendar
	Patterns *calendar.DayPatternSet

	missions   []*Timetable
	byStopFlow map[string][]model.MissionIdx
}

// NewStore creates an empty store bound to the given calendar and day
// pattern set. Both are shared with the rest of the transit data
// snapshot.
func NewStore(cal *calendar.Calendar, patterns *calendar.DayPatternSet) *Store {
	return &Store{
		Cal:        cal,
		Patterns:   patterns,
		byStopFlow: map[string][]model.MissionIdx{},
	}
}

// Mission returns the timetable for a mission handle.
func (s *Store) Mission(m model.MissionIdx) *Timetable { return s.missions[m] }

// NbMissions returns the number of distinct missions in the store.
func (s *Store) NbMissions() int { return len(s.missions) }

// InsertRequest describes one trip to insert, grouped by (date ->
// per-segment load vector). Dates with no entry in LoadsByDate default
// to all-Medium, per the loader's documented default.
type InsertRequest struct {
	TripID       string
	Stops        []model.StopIdx
	Flows        []model.FlowDirection
	BoardLocal   []calendar.SecondsSinceTimezonedDayStart
	DebarkLocal  []calendar.SecondsSinceTimezonedDayStart
	ValidDates   []time.Time
	Timezone     *time.Location // nil => BoardLocal/DebarkLocal are already UTC-seconds-since-day-start
	LoadsByDate  map[string][]model.Load
}

// Insert groups req's valid dates by identical load vector and UTC
// offset, producing one Timetable vehicle row per resulting group, and
// returns the (possibly several) missions touched. Per spec §4.2 step
// 1, a trip whose times fail inspection is skipped and reported as an
// error rather than aborting the whole insert.
func (s *Store) Insert(req InsertRequest) ([]model.MissionIdx, error) {
	flows := correctEndFlows(req.Flows)
	n := len(req.Stops)
	if len(flows) != n || len(req.BoardLocal) != n || len(req.DebarkLocal) != n {
		return nil, fmt.Errorf("timetable: insert %s: stops/flows/times length mismatch", req.TripID)
	}

	loadGroups := s.groupByLoads(req)

	var missions []model.MissionIdx
	var firstErr error
	for _, group := range loadGroups {
		ms, err := s.insertLoadGroup(req, flows, group)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		missions = append(missions, ms...)
	}
	return missions, firstErr
}

type loadGroup struct {
	loads []model.Load
	dates []time.Time
}

func (s *Store) groupByLoads(req InsertRequest) []loadGroup {
	byKey := map[string]*loadGroup{}
	var order []string
	for _, date := range req.ValidDates {
		if _, ok := s.Cal.DateToDaysSinceStart(date); !ok {
			// Dates outside the calendar are skipped silently: no
			// warning is recorded and no recovery is attempted.
			continue
		}
		loads := req.LoadsByDate[date.Format("20060102")]
		if loads == nil {
			loads = defaultLoads(len(req.Stops) - 1)
		}
		key := loadsKey(loads)
		g, ok := byKey[key]
		if !ok {
			g = &loadGroup{loads: loads}
			byKey[key] = g
			order = append(order, key)
		}
		g.dates = append(g.dates, date)
	}

	out := make([]loadGroup, 0, len(order))
	for _, k := range order {
		out = append(out, *byKey[k])
	}
	return out
}

func defaultLoads(nbSegments int) []model.Load {
	if nbSegments < 0 {
		nbSegments = 0
	}
	loads := make([]model.Load, nbSegments)
	for i := range loads {
		loads[i] = model.LoadMedium
	}
	return loads
}

func loadsKey(loads []model.Load) string {
	buf := make([]byte, len(loads))
	for i, l := range loads {
		buf[i] = byte(l)
	}
	return string(buf)
}

// insertLoadGroup further splits one load group by UTC-offset day
// pattern (spec §4.2 step 3's "crucial representation trick") and
// inserts one vehicle row per resulting (load, offset) group.
func (s *Store) insertLoadGroup(req InsertRequest, flows []model.FlowDirection, g loadGroup) ([]model.MissionIdx, error) {
	datePattern := s.Patterns.GetOrInsert(g.dates)

	if req.Timezone == nil {
		return s.insertOneGroup(req, flows, g.loads, datePattern)
	}

	offsets := s.Patterns.TimezonePatterns(datePattern, req.Timezone)
	var missions []model.MissionIdx
	var firstErr error
	for _, off := range offsets {
		board := shiftToUTC(req.BoardLocal, off.OffsetSeconds)
		debark := shiftToUTC(req.DebarkLocal, off.OffsetSeconds)
		ms, err := s.insertVehicle(req.TripID, req.Stops, flows, board, debark, g.loads, off.Pattern)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		if ms != nil {
			missions = append(missions, *ms)
		}
	}
	return missions, firstErr
}

func (s *Store) insertOneGroup(req InsertRequest, flows []model.FlowDirection, loads []model.Load, pattern calendar.DayPattern) ([]model.MissionIdx, error) {
	board := make([]calendar.SecondsSinceUTCDayStart, len(req.BoardLocal))
	debark := make([]calendar.SecondsSinceUTCDayStart, len(req.DebarkLocal))
	for i := range board {
		board[i] = calendar.SecondsSinceUTCDayStart(req.BoardLocal[i])
		debark[i] = calendar.SecondsSinceUTCDayStart(req.DebarkLocal[i])
	}
	m, err := s.insertVehicle(req.TripID, req.Stops, flows, board, debark, loads, pattern)
	if m == nil {
		return nil, err
	}
	return []model.MissionIdx{*m}, err
}

func shiftToUTC(local []calendar.SecondsSinceTimezonedDayStart, offsetSeconds int) []calendar.SecondsSinceUTCDayStart {
	out := make([]calendar.SecondsSinceUTCDayStart, len(local))
	for i, l := range local {
		out[i] = calendar.SecondsSinceUTCDayStart(int64(l) - int64(offsetSeconds))
	}
	return out
}

func (s *Store) insertVehicle(
	tripID string,
	stops []model.StopIdx,
	flows []model.FlowDirection,
	board, debark []calendar.SecondsSinceUTCDayStart,
	loads []model.Load,
	pattern calendar.DayPattern,
) (*model.MissionIdx, error) {
	if err := inspect(tripID, flows, board, debark); err != nil {
		return nil, err
	}

	key := stopFlowKey(stops, flows)
	candidates := s.byStopFlow[key]

	data := VehicleData{TripID: tripID, Pattern: pattern}

	for _, m := range candidates {
		tt := s.missions[m]
		if tt.tryInsert(board, debark, loads, data) {
			return &m, nil
		}
	}

	stopFlow := make([]model.StopFlowEntry, len(stops))
	for i, st := range stops {
		stopFlow[i] = model.StopFlowEntry{Stop: st, Flow: flows[i]}
	}
	tt := newTimetable(stopFlow, nil)
	tt.tryInsert(board, debark, loads, data)

	m := model.MissionIdx(len(s.missions))
	s.missions = append(s.missions, tt)
	s.byStopFlow[key] = append(s.byStopFlow[key], m)

	return &m, nil
}
