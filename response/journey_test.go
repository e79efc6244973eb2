package response_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transitway/raptor/calendar"
	"github.com/transitway/raptor/engine"
	"github.com/transitway/raptor/model"
	"github.com/transitway/raptor/request"
	"github.com/transitway/raptor/response"
	"github.com/transitway/raptor/timetable"
	"github.com/transitway/raptor/transitdata"
)

func threeStopFixture(t *testing.T) (*transitdata.Data, model.StopIdx, model.StopIdx, model.StopIdx, calendar.DaysSinceDatasetStart) {
	t.Helper()
	cal, err := calendar.New(
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)
	data := transitdata.New(cal)

	s1 := data.StopByExtID("s1")
	s2 := data.StopByExtID("s2")
	s3 := data.StopByExtID("s3")

	_, err = data.InsertTrip(timetable.InsertRequest{
		TripID:      "t1",
		Stops:       []model.StopIdx{s1, s2, s3},
		Flows:       []model.FlowDirection{model.BoardAndDebark, model.BoardAndDebark, model.BoardAndDebark},
		BoardLocal:  []calendar.SecondsSinceTimezonedDayStart{8 * 3600, 8*3600 + 600, 8*3600 + 1200},
		DebarkLocal: []calendar.SecondsSinceTimezonedDayStart{8 * 3600, 8*3600 + 600, 8*3600 + 1200},
		ValidDates:  []time.Time{time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)},
		Timezone:    time.UTC,
	})
	require.NoError(t, err)

	day, ok := data.Cal.DateToDaysSinceStart(time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC))
	require.True(t, ok)
	return data, s1, s2, s3, day
}

func TestBuildSingleLegJourney(t *testing.T) {
	data, s1, s2, _, day := threeStopFixture(t)
	builder := response.NewBuilder(data.Timetables, data.Cal)

	trip := request.Trip{Mission: 0, Vehicle: 0, Day: day}
	tree := engine.NewTree()
	dep := tree.Departure(s1)
	board := tree.Board(dep, 0, 0, trip)
	alight := tree.Alight(board, 0, 1, s2, trip)
	arrival := tree.Arrival(alight, s2)

	j, err := builder.Build(tree, arrival, true)
	require.NoError(t, err)
	require.Len(t, j.Sections, 1)

	sec := j.Sections[0]
	assert.Equal(t, response.SectionVehicle, sec.Kind)
	assert.Equal(t, s1, sec.FromStop)
	assert.Equal(t, s2, sec.ToStop)
	assert.Equal(t, "t1", sec.TripID)
	assert.True(t, sec.Arrival.After(sec.Departure))
	assert.Equal(t, sec.Departure, j.Departure)
	assert.Equal(t, sec.Arrival, j.Arrival)
}

func TestBuildTransferBetweenTwoLegs(t *testing.T) {
	data, s1, s2, s3, day := threeStopFixture(t)
	transferIdx, err := data.AddTransfer(s2, s3, 90, "s2->s3")
	require.NoError(t, err)
	transfer := data.Transfer(s2, transferIdx)

	// Second mission starting where the transfer lands (s3), so the
	// post-transfer board/alight pair has somewhere valid to ride.
	missions, err := data.InsertTrip(timetable.InsertRequest{
		TripID:      "t2",
		Stops:       []model.StopIdx{s3, s1},
		Flows:       []model.FlowDirection{model.BoardAndDebark, model.BoardAndDebark},
		BoardLocal:  []calendar.SecondsSinceTimezonedDayStart{9 * 3600, 9*3600 + 600},
		DebarkLocal: []calendar.SecondsSinceTimezonedDayStart{9 * 3600, 9*3600 + 600},
		ValidDates:  []time.Time{time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)},
		Timezone:    time.UTC,
	})
	require.NoError(t, err)
	require.Len(t, missions, 1)
	mission2 := missions[0]

	builder := response.NewBuilder(data.Timetables, data.Cal)
	trip1 := request.Trip{Mission: 0, Vehicle: 0, Day: day}
	trip2 := request.Trip{Mission: mission2, Vehicle: 0, Day: day}

	tree := engine.NewTree()
	dep := tree.Departure(s1)
	board1 := tree.Board(dep, 0, 0, trip1)
	alight1 := tree.Alight(board1, 0, 1, s2, trip1)
	transferNode := tree.Transfer(alight1, transfer)
	board2 := tree.Board(transferNode, mission2, 0, trip2)
	alight2 := tree.Alight(board2, mission2, 1, s1, trip2)
	arrival := tree.Arrival(alight2, s1)

	j, err := builder.Build(tree, arrival, true)
	require.NoError(t, err)
	require.Len(t, j.Sections, 3)

	assert.Equal(t, response.SectionVehicle, j.Sections[0].Kind)
	assert.Equal(t, response.SectionTransfer, j.Sections[1].Kind)
	assert.Equal(t, response.SectionVehicle, j.Sections[2].Kind)

	assert.Equal(t, s2, j.Sections[1].FromStop)
	assert.Equal(t, s3, j.Sections[1].ToStop)
	assert.Equal(t, j.Sections[0].Arrival, j.Sections[1].Departure)
	assert.Equal(t, j.Sections[2].Departure, j.Sections[1].Arrival)
}

func TestBuildRejectsAlightAtOrBeforeBoard(t *testing.T) {
	data, s1, _, _, day := threeStopFixture(t)
	builder := response.NewBuilder(data.Timetables, data.Cal)

	trip := request.Trip{Mission: 0, Vehicle: 0, Day: day}
	tree := engine.NewTree()
	dep := tree.Departure(s1)
	board := tree.Board(dep, 0, 1, trip)
	alight := tree.Alight(board, 0, 0, s1, trip)

	_, err := builder.Build(tree, alight, true)
	assert.Error(t, err)
}
