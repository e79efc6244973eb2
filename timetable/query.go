package timetable

import (
	"fmt"

	"github.com/transitway/raptor/calendar"
	"github.com/transitway/raptor/model"
)

// BoardCandidate is the result of a successful board search: the
// vehicle found, the concrete day it runs on, its board instant, its
// arrival instant at the next position, and the load on the segment
// leaving position. The depart-after adapter reads Vehicle, Day and
// BoardAt; its Ride step looks the next arrival and the segment load
// up again instead of reading NextArrival and Load.
type BoardCandidate struct {
	Vehicle     model.VehicleIdx
	Day         calendar.DaysSinceDatasetStart
	BoardAt     calendar.SecondsSinceDatasetUTCStart
	NextArrival calendar.SecondsSinceDatasetUTCStart
	Load        model.Load
}

// DebarkCandidate is the result of a successful debark search.
type DebarkCandidate struct {
	Vehicle  model.VehicleIdx
	Day      calendar.DaysSinceDatasetStart
	DebarkAt calendar.SecondsSinceDatasetUTCStart
}

// DayPredicate reports whether a vehicle may be considered on a
// specific calendar day -- typically "day's offset is in the
// vehicle's day pattern AND day is not otherwise masked by the
// real-time overlay".
type DayPredicate func(day calendar.DaysSinceDatasetStart, data VehicleData) bool

// EarliestFilteredVehicleToBoard binary-searches the first vehicle
// whose board time at position is no earlier than waitingTime, then
// scans forward for the first one admitted by predicate. Since every
// position's (board, debark, loads) triple is Pareto-ordered across
// vehicles, the first predicate-matching vehicle is optimal for any
// policy respecting that order (spec §4.2).
func (s *Store) EarliestFilteredVehicleToBoard(
	waitingTime calendar.SecondsSinceDatasetUTCStart,
	mission model.MissionIdx,
	position model.Position,
	predicate DayPredicate,
) (*BoardCandidate, error) {
	tt := s.missions[mission]
	if !tt.StopFlow[position].Flow.CanBoard() {
		return nil, fmt.Errorf("timetable: position %d of mission %d is not board-capable", position, mission)
	}
	next, hasNext := tt.NextPosition(position)
	if !hasNext {
		return nil, fmt.Errorf("timetable: position %d of mission %d has no next position to ride to", position, mission)
	}

	it := s.Cal.DecompositionsUTC(waitingTime, tt.latestBoard[position], tt.earliestBoard[position])

	var best *BoardCandidate
	for {
		day, offset, ok := it.Next()
		if !ok {
			break
		}
		boardTimes := tt.BoardTimesByPosition[position]
		v := searchFirstGE(boardTimes, offset)
		for ; v < len(boardTimes); v++ {
			if !predicate(day, tt.Vehicles[v]) {
				continue
			}
			boardAt := s.Cal.ComposeUTC(day, boardTimes[v])
			if best != nil && boardAt >= best.BoardAt {
				break
			}
			nextArrival := s.Cal.ComposeUTC(day, tt.DebarkTimesByPosition[next][v])
			best = &BoardCandidate{
				Vehicle:     model.VehicleIdx(v),
				Day:         day,
				BoardAt:     boardAt,
				NextArrival: nextArrival,
				Load:        tt.Loads[v][position],
			}
			break
		}
	}

	return best, nil
}

// LatestFilteredVehicleThatDebark is the symmetric operation used by
// the arrive-before adapter: the last vehicle with debark time no
// later than t, admitted by predicate.
func (s *Store) LatestFilteredVehicleThatDebark(
	t calendar.SecondsSinceDatasetUTCStart,
	mission model.MissionIdx,
	position model.Position,
	predicate DayPredicate,
) (*DebarkCandidate, error) {
	tt := s.missions[mission]
	if !tt.StopFlow[position].Flow.CanDebark() {
		return nil, fmt.Errorf("timetable: position %d of mission %d is not debark-capable", position, mission)
	}

	it := s.Cal.DecompositionsUTC(t, tt.latestDebark[position], tt.earliestDebark[position])

	var best *DebarkCandidate
	for {
		day, offset, ok := it.Next()
		if !ok {
			break
		}
		debarkTimes := tt.DebarkTimesByPosition[position]
		v := searchLastLE(debarkTimes, offset)
		for ; v >= 0; v-- {
			if !predicate(day, tt.Vehicles[v]) {
				continue
			}
			debarkAt := s.Cal.ComposeUTC(day, debarkTimes[v])
			if best != nil && debarkAt <= best.DebarkAt {
				break
			}
			best = &DebarkCandidate{Vehicle: model.VehicleIdx(v), Day: day, DebarkAt: debarkAt}
			break
		}
	}

	return best, nil
}

func searchFirstGE(s []calendar.SecondsSinceUTCDayStart, v calendar.SecondsSinceUTCDayStart) int {
	lo, hi := 0, len(s)
	for lo < hi {
		mid := (lo + hi) / 2
		if s[mid] >= v {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return lo
}

func searchLastLE(s []calendar.SecondsSinceUTCDayStart, v calendar.SecondsSinceUTCDayStart) int {
	lo, hi := 0, len(s)
	for lo < hi {
		mid := (lo + hi) / 2
		if s[mid] <= v {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo - 1
}

// ArrivalTime returns the debark instant on the given (vehicle, day,
// position), respecting flow direction.
func (s *Store) ArrivalTime(mission model.MissionIdx, v model.VehicleIdx, day calendar.DaysSinceDatasetStart, p model.Position) (calendar.SecondsSinceDatasetUTCStart, bool) {
	tt := s.missions[mission]
	off, ok := tt.DebarkTime(v, p)
	if !ok {
		return 0, false
	}
	return s.Cal.ComposeUTC(day, off), true
}

// DepartureTime returns the board instant on the given (vehicle, day,
// position).
func (s *Store) DepartureTime(mission model.MissionIdx, v model.VehicleIdx, day calendar.DaysSinceDatasetStart, p model.Position) (calendar.SecondsSinceDatasetUTCStart, bool) {
	tt := s.missions[mission]
	off, ok := tt.BoardTime(v, p)
	if !ok {
		return 0, false
	}
	return s.Cal.ComposeUTC(day, off), true
}

// RemoveVehicles deletes every vehicle row matching predicate across
// every timetable, used by the real-time overlay to splice out a
// cancelled or modified trip. Returns the number of rows removed; zero
// is reported to the caller as a "nothing matched" condition via ok.
func (s *Store) RemoveVehicles(predicate func(VehicleData) bool) (removed int, ok bool) {
	for _, tt := range s.missions {
		n := len(tt.Vehicles)
		keep := make([]int, 0, n)
		for v := 0; v < n; v++ {
			if !predicate(tt.Vehicles[v]) {
				keep = append(keep, v)
			}
		}
		if len(keep) == n {
			continue
		}
		removed += n - len(keep)
		tt.filterToIndices(keep)
	}
	return removed, removed > 0
}

// UpdateVehiclesData rewrites the VehicleData of every row matching
// predicate via updater, e.g. to intersect a vehicle's day pattern
// with a disruption's application period. Returns the number of rows
// touched.
func (s *Store) UpdateVehiclesData(predicate func(VehicleData) bool, updater func(VehicleData) VehicleData) int {
	touched := 0
	for _, tt := range s.missions {
		for v := range tt.Vehicles {
			if !predicate(tt.Vehicles[v]) {
				continue
			}
			tt.Vehicles[v] = updater(tt.Vehicles[v])
			touched++
		}
	}
	return touched
}

// filterToIndices keeps only the rows named by keep (already sorted
// ascending), preserving per-position sortedness since a subsequence
// of a sorted sequence is sorted.
func (tt *Timetable) filterToIndices(keep []int) {
	n := len(tt.StopFlow)
	for p := 0; p < n; p++ {
		tt.BoardTimesByPosition[p] = selectIdx(tt.BoardTimesByPosition[p], keep)
		tt.DebarkTimesByPosition[p] = selectIdx(tt.DebarkTimesByPosition[p], keep)
	}
	loads := make([][]model.Load, len(keep))
	vehicles := make([]VehicleData, len(keep))
	for i, k := range keep {
		loads[i] = tt.Loads[k]
		vehicles[i] = tt.Vehicles[k]
	}
	tt.Loads = loads
	tt.Vehicles = vehicles
	tt.recomputeCaches()
}

func selectIdx(s []calendar.SecondsSinceUTCDayStart, keep []int) []calendar.SecondsSinceUTCDayStart {
	out := make([]calendar.SecondsSinceUTCDayStart, len(keep))
	for i, k := range keep {
		out[i] = s[k]
	}
	return out
}

func (tt *Timetable) recomputeCaches() {
	n := len(tt.StopFlow)
	for p := 0; p < n; p++ {
		tt.earliestBoard[p] = 1<<62 - 1
		tt.earliestDebark[p] = 1<<62 - 1
		tt.latestBoard[p] = -(1<<62 - 1)
		tt.latestDebark[p] = -(1<<62 - 1)
		for v := range tt.Vehicles {
			b, d := tt.BoardTimesByPosition[p][v], tt.DebarkTimesByPosition[p][v]
			if b < tt.earliestBoard[p] {
				tt.earliestBoard[p] = b
			}
			if b > tt.latestBoard[p] {
				tt.latestBoard[p] = b
			}
			if d < tt.earliestDebark[p] {
				tt.earliestDebark[p] = d
			}
			if d > tt.latestDebark[p] {
				tt.latestDebark[p] = d
			}
		}
	}
}
