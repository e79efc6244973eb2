package timetable

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transitway/raptor/calendar"
	"github.com/transitway/raptor/model"
)

func newTestStore(t *testing.T, first, last time.Time) *Store {
	cal, err := calendar.New(first, last)
	require.NoError(t, err)
	return NewStore(cal, calendar.NewDayPatternSet(cal))
}

// Scenario 1 from the spec: a single direct vehicle A(board-only,
// 08:00) -> B(debark-only, 08:30), valid daily, inserted in UTC.
func TestInsertAndBoardSingleTrip(t *testing.T) {
	store := newTestStore(t,
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC),
	)

	dates := []time.Time{}
	for d := 1; d <= 7; d++ {
		dates = append(dates, time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC))
	}

	missions, err := store.Insert(InsertRequest{
		TripID:      "T1",
		Stops:       []model.StopIdx{0, 1},
		Flows:       []model.FlowDirection{model.BoardOnly, model.DebarkOnly},
		BoardLocal:  []calendar.SecondsSinceTimezonedDayStart{8 * 3600, 8*3600 + 30*60},
		DebarkLocal: []calendar.SecondsSinceTimezonedDayStart{8 * 3600, 8*3600 + 30*60},
		ValidDates:  dates,
		Timezone:    time.UTC,
	})
	require.NoError(t, err)
	require.Len(t, missions, 1)

	mission := missions[0]
	waiting := store.Cal.FromTime(time.Date(2024, 1, 3, 7, 45, 0, 0, time.UTC))

	cand, err := store.EarliestFilteredVehicleToBoard(waiting, mission, 0, func(day calendar.DaysSinceDatasetStart, data VehicleData) bool {
		return store.Patterns.IsAllowed(data.Pattern, day)
	})
	require.NoError(t, err)
	require.NotNil(t, cand)
	assert.Equal(t, store.Cal.FromTime(time.Date(2024, 1, 3, 8, 0, 0, 0, time.UTC)), cand.BoardAt)
	assert.Equal(t, store.Cal.FromTime(time.Date(2024, 1, 3, 8, 30, 0, 0, time.UTC)), cand.NextArrival)
}

// Scenario 2: requesting after the vehicle has already departed
// yields no boardable candidate on that day.
func TestEarliestBoardNoCandidateAfterDeparture(t *testing.T) {
	store := newTestStore(t,
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC),
	)
	dates := []time.Time{time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)}

	missions, err := store.Insert(InsertRequest{
		TripID:      "T1",
		Stops:       []model.StopIdx{0, 1},
		Flows:       []model.FlowDirection{model.BoardOnly, model.DebarkOnly},
		BoardLocal:  []calendar.SecondsSinceTimezonedDayStart{8 * 3600, 8*3600 + 30*60},
		DebarkLocal: []calendar.SecondsSinceTimezonedDayStart{8 * 3600, 8*3600 + 30*60},
		ValidDates:  dates,
		Timezone:    time.UTC,
	})
	require.NoError(t, err)

	waiting := store.Cal.FromTime(time.Date(2024, 1, 3, 8, 5, 0, 0, time.UTC))
	cand, err := store.EarliestFilteredVehicleToBoard(waiting, missions[0], 0, func(calendar.DaysSinceDatasetStart, VehicleData) bool { return true })
	require.NoError(t, err)
	assert.Nil(t, cand)
}

func TestInspectRejectsDecreasingBoardTimes(t *testing.T) {
	err := inspect(
		"T",
		[]model.FlowDirection{model.BoardOnly, model.DebarkOnly},
		[]calendar.SecondsSinceUTCDayStart{100, 0},
		[]calendar.SecondsSinceUTCDayStart{0, 200},
	)
	assert.NoError(t, err) // single board-capable position, trivially monotone

	err = inspect(
		"T",
		[]model.FlowDirection{model.BoardAndDebark, model.BoardAndDebark},
		[]calendar.SecondsSinceUTCDayStart{100, 50},
		[]calendar.SecondsSinceUTCDayStart{100, 150},
	)
	var vErr *VehicleTimesError
	assert.ErrorAs(t, err, &vErr)
}

func TestInsertSplitsTimetableWhenNotComparable(t *testing.T) {
	store := newTestStore(t,
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC),
	)
	dates := []time.Time{time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)}

	// T1: A->B->C board 08:00, 08:30; debark ..., loads [Low, High]
	m1, err := store.Insert(InsertRequest{
		TripID:      "T1",
		Stops:       []model.StopIdx{0, 1, 2},
		Flows:       []model.FlowDirection{model.BoardOnly, model.BoardAndDebark, model.DebarkOnly},
		BoardLocal:  []calendar.SecondsSinceTimezonedDayStart{8 * 3600, 8*3600 + 15*60, 8*3600 + 30*60},
		DebarkLocal: []calendar.SecondsSinceTimezonedDayStart{8 * 3600, 8*3600 + 15*60, 8*3600 + 30*60},
		ValidDates:  dates,
		Timezone:    time.UTC,
		LoadsByDate: map[string][]model.Load{"20240103": {model.LoadLow, model.LoadHigh}},
	})
	require.NoError(t, err)

	// T2: same stop flow, board times are earlier at position 0 but
	// later at position 1 -- incomparable with T1, must land in a
	// second timetable.
	m2, err := store.Insert(InsertRequest{
		TripID:      "T2",
		Stops:       []model.StopIdx{0, 1, 2},
		Flows:       []model.FlowDirection{model.BoardOnly, model.BoardAndDebark, model.DebarkOnly},
		BoardLocal:  []calendar.SecondsSinceTimezonedDayStart{7 * 3600, 9 * 3600, 9*3600 + 30*60},
		DebarkLocal: []calendar.SecondsSinceTimezonedDayStart{7 * 3600, 9 * 3600, 9*3600 + 30*60},
		ValidDates:  dates,
		Timezone:    time.UTC,
		LoadsByDate: map[string][]model.Load{"20240103": {model.LoadLow, model.LoadHigh}},
	})
	require.NoError(t, err)

	assert.NotEqual(t, m1[0], m2[0])
}
