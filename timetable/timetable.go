// Package timetable implements the insertable, query-ready grouping of
// trips described in spec §4.2: a Timetable groups trips whose
// stop-flow sequence is identical and whose vehicle times are
// pairwise Pareto-comparable, keeping every per-position time vector
// sorted so that boarding/debarking queries reduce to a binary search.
package timetable

import (
	"fmt"
	"sort"
	"time"

	"github.com/transitway/raptor/calendar"
	"github.com/transitway/raptor/model"
)

// VehicleData carries the data attached to one row (one vehicle) of a
// Timetable: the trip it originated from and the set of calendar days
// it runs on. All days in Pattern share the same UTC offset, which is
// what lets BoardTimes/DebarkTimes be stored as plain UTC-day offsets
// instead of per-day local times.
type VehicleData struct {
	TripID  string
	Pattern calendar.DayPattern
}

// Timetable is one group of Pareto-comparable vehicles sharing a
// stop-flow sequence.
type Timetable struct {
	StopFlow []model.StopFlowEntry

	// Timezone is the nominal zone the feed expressed times in. Nil
	// means the "()" representation: vehicle times are already
	// UTC-seconds-since-day-start and need no zone at query time.
	Timezone *time.Location

	// [position][vehicle], kept sorted ascending in vehicle for
	// every position.
	BoardTimesByPosition  [][]calendar.SecondsSinceUTCDayStart
	DebarkTimesByPosition [][]calendar.SecondsSinceUTCDayStart

	// [vehicle][position], length nbPositions-1 (one load per
	// segment between consecutive positions).
	Loads [][]model.Load

	Vehicles []VehicleData

	earliestBoard  []calendar.SecondsSinceUTCDayStart
	latestBoard    []calendar.SecondsSinceUTCDayStart
	earliestDebark []calendar.SecondsSinceUTCDayStart
	latestDebark   []calendar.SecondsSinceUTCDayStart
}

func nbPositions(stopFlow []model.StopFlowEntry) int { return len(stopFlow) }

// VehicleTimesError reports that a vehicle's board/debark times failed
// the monotonicity or board-before-debark inspection at insert, naming
// the offending position pair.
type VehicleTimesError struct {
	TripID   string
	PosA     model.Position
	PosB     model.Position
	Reason   string
}

func (e *VehicleTimesError) Error() string {
	return fmt.Sprintf("timetable: trip %s: %s at positions %d,%d", e.TripID, e.Reason, e.PosA, e.PosB)
}

// newTimetable allocates an empty timetable for the given (already
// flow-corrected) stop-flow sequence.
func newTimetable(stopFlow []model.StopFlowEntry, tz *time.Location) *Timetable {
	n := nbPositions(stopFlow)
	tt := &Timetable{
		StopFlow:              append([]model.StopFlowEntry(nil), stopFlow...),
		Timezone:              tz,
		BoardTimesByPosition:  make([][]calendar.SecondsSinceUTCDayStart, n),
		DebarkTimesByPosition: make([][]calendar.SecondsSinceUTCDayStart, n),
		earliestBoard:         make([]calendar.SecondsSinceUTCDayStart, n),
		latestBoard:           make([]calendar.SecondsSinceUTCDayStart, n),
		earliestDebark:        make([]calendar.SecondsSinceUTCDayStart, n),
		latestDebark:          make([]calendar.SecondsSinceUTCDayStart, n),
	}
	for p := 0; p < n; p++ {
		tt.earliestBoard[p] = 1<<62 - 1
		tt.earliestDebark[p] = 1<<62 - 1
		tt.latestBoard[p] = -(1<<62 - 1)
		tt.latestDebark[p] = -(1<<62 - 1)
	}
	return tt
}

// inspect validates the monotonicity and ordering invariants of
// spec §4.2 step 1. It does not mutate flows.
func inspect(tripID string, flows []model.FlowDirection, board, debark []calendar.SecondsSinceUTCDayStart) error {
	n := len(flows)
	var lastBoard calendar.SecondsSinceUTCDayStart
	haveLastBoard := false
	for p := 0; p < n; p++ {
		if !flows[p].CanBoard() {
			continue
		}
		if haveLastBoard && board[p] < lastBoard {
			return &VehicleTimesError{TripID: tripID, PosA: model.Position(p - 1), PosB: model.Position(p), Reason: "board time decreases"}
		}
		lastBoard = board[p]
		haveLastBoard = true
	}

	var lastDebark calendar.SecondsSinceUTCDayStart
	haveLastDebark := false
	for p := 0; p < n; p++ {
		if !flows[p].CanDebark() {
			continue
		}
		if haveLastDebark && debark[p] < lastDebark {
			return &VehicleTimesError{TripID: tripID, PosA: model.Position(p - 1), PosB: model.Position(p), Reason: "debark time decreases"}
		}
		lastDebark = debark[p]
		haveLastDebark = true
	}

	for u := 0; u < n-1; u++ {
		d := u + 1
		if !flows[u].CanBoard() || !flows[d].CanDebark() {
			continue
		}
		if board[u] > debark[d] {
			return &VehicleTimesError{TripID: tripID, PosA: model.Position(u), PosB: model.Position(d), Reason: "board after next debark"}
		}
	}

	return nil
}

// correctEndFlows enforces that the first position is board-capable
// only and the last is debark-capable only (spec §4.2 step 2).
func correctEndFlows(flows []model.FlowDirection) []model.FlowDirection {
	out := append([]model.FlowDirection(nil), flows...)
	if len(out) == 0 {
		return out
	}
	switch out[0] {
	case model.BoardAndDebark:
		out[0] = model.BoardOnly
	case model.DebarkOnly:
		out[0] = model.NoBoardDebark
	}
	last := len(out) - 1
	switch out[last] {
	case model.BoardAndDebark:
		out[last] = model.DebarkOnly
	case model.BoardOnly:
		out[last] = model.NoBoardDebark
	}
	return out
}

func stopFlowKey(stops []model.StopIdx, flows []model.FlowDirection) string {
	buf := make([]byte, 0, len(stops)*6)
	for i := range stops {
		buf = append(buf, byte(stops[i]), byte(stops[i]>>8), byte(stops[i]>>16), byte(flows[i]))
	}
	return string(buf)
}

// comparableAdjacent reports whether the new vehicle (board, debark,
// loads) is pointwise <= the existing row neighbor when
// neighborIsUpper, or pointwise >= it otherwise, across board times,
// debark times, and loads -- the Pareto
// comparability the spec requires between every pair of consecutive
// vehicles in a Timetable.
func (tt *Timetable) comparableAdjacent(board, debark []calendar.SecondsSinceUTCDayStart, loads []model.Load, neighbor int, neighborIsUpper bool) bool {
	n := len(tt.StopFlow)
	for p := 0; p < n; p++ {
		nb := tt.BoardTimesByPosition[p][neighbor]
		nd := tt.DebarkTimesByPosition[p][neighbor]
		if neighborIsUpper {
			if board[p] > nb || debark[p] > nd {
				return false
			}
		} else {
			if board[p] < nb || debark[p] < nd {
				return false
			}
		}
	}
	for s := 0; s < n-1; s++ {
		nl := tt.Loads[neighbor][s]
		if neighborIsUpper {
			if loads[s] > nl {
				return false
			}
		} else {
			if loads[s] < nl {
				return false
			}
		}
	}
	return true
}

// tryInsert attempts to splice one vehicle row into tt while
// preserving sortedness and pairwise Pareto-comparability. Returns
// false if the new vehicle is incomparable with its would-be
// neighbors, in which case the caller must place it in a different
// timetable.
func (tt *Timetable) tryInsert(board, debark []calendar.SecondsSinceUTCDayStart, loads []model.Load, data VehicleData) bool {
	nbVehicles := len(tt.Vehicles)

	idx := sort.Search(nbVehicles, func(i int) bool {
		return tt.BoardTimesByPosition[0][i] >= board[0]
	})

	if idx > 0 && !tt.comparableAdjacent(board, debark, loads, idx-1, false) {
		return false
	}
	if idx < nbVehicles && !tt.comparableAdjacent(board, debark, loads, idx, true) {
		return false
	}

	n := len(tt.StopFlow)
	for p := 0; p < n; p++ {
		tt.BoardTimesByPosition[p] = insertAt(tt.BoardTimesByPosition[p], idx, board[p])
		tt.DebarkTimesByPosition[p] = insertAt(tt.DebarkTimesByPosition[p], idx, debark[p])
		if board[p] < tt.earliestBoard[p] {
			tt.earliestBoard[p] = board[p]
		}
		if board[p] > tt.latestBoard[p] {
			tt.latestBoard[p] = board[p]
		}
		if debark[p] < tt.earliestDebark[p] {
			tt.earliestDebark[p] = debark[p]
		}
		if debark[p] > tt.latestDebark[p] {
			tt.latestDebark[p] = debark[p]
		}
	}
	loadsCopy := append([]model.Load(nil), loads...)
	tt.Loads = insertLoadsAt(tt.Loads, idx, loadsCopy)
	tt.Vehicles = insertVehicleAt(tt.Vehicles, idx, data)

	return true
}

func insertAt(s []calendar.SecondsSinceUTCDayStart, idx int, v calendar.SecondsSinceUTCDayStart) []calendar.SecondsSinceUTCDayStart {
	s = append(s, 0)
	copy(s[idx+1:], s[idx:])
	s[idx] = v
	return s
}

func insertLoadsAt(s [][]model.Load, idx int, v []model.Load) [][]model.Load {
	s = append(s, nil)
	copy(s[idx+1:], s[idx:])
	s[idx] = v
	return s
}

func insertVehicleAt(s []VehicleData, idx int, v VehicleData) []VehicleData {
	s = append(s, VehicleData{})
	copy(s[idx+1:], s[idx:])
	s[idx] = v
	return s
}

// NextPosition returns the position after p in this timetable's
// sequence, or false if p is last.
func (tt *Timetable) NextPosition(p model.Position) (model.Position, bool) {
	if int(p)+1 >= len(tt.StopFlow) {
		return 0, false
	}
	return p + 1, true
}

// PreviousPosition returns the position before p, or false if p is
// first.
func (tt *Timetable) PreviousPosition(p model.Position) (model.Position, bool) {
	if p == 0 {
		return 0, false
	}
	return p - 1, true
}

// IsUpstream reports whether a comes strictly before b in this
// timetable's stop sequence.
func (tt *Timetable) IsUpstream(a, b model.Position) bool { return a < b }

// StopAt returns the stop at position p.
func (tt *Timetable) StopAt(p model.Position) model.StopIdx { return tt.StopFlow[p].Stop }

// FlowAt returns the flow direction at position p.
func (tt *Timetable) FlowAt(p model.Position) model.FlowDirection { return tt.StopFlow[p].Flow }

// NbVehicles returns the number of vehicle rows.
func (tt *Timetable) NbVehicles() int { return len(tt.Vehicles) }

// BoardTime returns the board offset for vehicle v at position p, or
// false if the position is not board-capable.
func (tt *Timetable) BoardTime(v model.VehicleIdx, p model.Position) (calendar.SecondsSinceUTCDayStart, bool) {
	if !tt.StopFlow[p].Flow.CanBoard() {
		return 0, false
	}
	return tt.BoardTimesByPosition[p][v], true
}

// DebarkTime returns the debark offset for vehicle v at position p, or
// false if the position is not debark-capable.
func (tt *Timetable) DebarkTime(v model.VehicleIdx, p model.Position) (calendar.SecondsSinceUTCDayStart, bool) {
	if !tt.StopFlow[p].Flow.CanDebark() {
		return 0, false
	}
	return tt.DebarkTimesByPosition[p][v], true
}

// LoadAt returns the load class on the segment leaving position p for
// vehicle v (p must be < last position).
func (tt *Timetable) LoadAt(v model.VehicleIdx, p model.Position) model.Load {
	return tt.Loads[v][p]
}
