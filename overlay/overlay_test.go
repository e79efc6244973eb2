package overlay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transitway/raptor/calendar"
	"github.com/transitway/raptor/model"
	"github.com/transitway/raptor/timetable"
	"github.com/transitway/raptor/transitdata"
)

func newTestData(t *testing.T) *transitdata.Data {
	t.Helper()
	cal, err := calendar.New(
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)
	return transitdata.New(cal)
}

func insertSampleTrip(t *testing.T, data *transitdata.Data, date string) []model.StopIdx {
	t.Helper()
	s1 := data.StopByExtID("s1")
	s2 := data.StopByExtID("s2")

	d, err := time.Parse("20060102", date)
	require.NoError(t, err)

	_, err = data.InsertTrip(timetable.InsertRequest{
		TripID:      "t1",
		Stops:       []model.StopIdx{s1, s2},
		Flows:       []model.FlowDirection{model.BoardAndDebark, model.BoardAndDebark},
		BoardLocal:  []calendar.SecondsSinceTimezonedDayStart{8 * 3600, 8*3600 + 600},
		DebarkLocal: []calendar.SecondsSinceTimezonedDayStart{8 * 3600, 8*3600 + 600},
		ValidDates:  []time.Time{d},
		Timezone:    time.UTC,
	})
	require.NoError(t, err)
	return []model.StopIdx{s1, s2}
}

func schedule(data *transitdata.Data) *StopTimes {
	s1 := data.StopByExtID("s1")
	s2 := data.StopByExtID("s2")
	return &StopTimes{
		Stops:       []model.StopIdx{s1, s2},
		Flows:       []model.FlowDirection{model.BoardAndDebark, model.BoardAndDebark},
		BoardLocal:  []calendar.SecondsSinceTimezonedDayStart{9 * 3600, 9*3600 + 600},
		DebarkLocal: []calendar.SecondsSinceTimezonedDayStart{9 * 3600, 9*3600 + 600},
		Timezone:    time.UTC,
	}
}

func vehicleRunsOn(t *testing.T, data *transitdata.Data, tripID, date string) bool {
	t.Helper()
	d, err := time.Parse("20060102", date)
	require.NoError(t, err)
	day, ok := data.Cal.DateToDaysSinceStart(d)
	require.True(t, ok)

	found := false
	mission := data.Timetables.Mission(0)
	for v := 0; v < mission.NbVehicles(); v++ {
		if mission.Vehicles[v].TripID == tripID && data.Patterns.IsAllowed(mission.Vehicles[v].Pattern, day) {
			found = true
		}
	}
	return found
}

func TestDeleteExcludesOnlyOneDay(t *testing.T) {
	data := newTestData(t)
	insertSampleTrip(t, data, "20260105")

	ov := New(data)
	require.True(t, vehicleRunsOn(t, data, "t1", "20260105"))

	require.NoError(t, ov.Delete("t1", "20260105", "imp1", Chaos))
	assert.False(t, vehicleRunsOn(t, data, "t1", "20260105"))
}

func TestDeleteUnknownTripErrors(t *testing.T) {
	data := newTestData(t)
	insertSampleTrip(t, data, "20260105")
	ov := New(data)

	err := ov.Delete("nope", "20260105", "imp1", Chaos)
	assert.Error(t, err)
}

func TestAddInsertsNewVehicle(t *testing.T) {
	data := newTestData(t)
	ov := New(data)

	require.NoError(t, ov.Add("t1", "20260105", schedule(data), "imp1", Chaos))
	assert.True(t, vehicleRunsOn(t, data, "t1", "20260105"))
}

func TestCancelRestoresBaseSchedule(t *testing.T) {
	data := newTestData(t)
	insertSampleTrip(t, data, "20260105")
	ov := New(data)

	base := schedule(data)
	ov.RegisterBaseTrip("t1", base)

	require.NoError(t, ov.Modify("t1", "20260105", schedule(data), "imp1", Chaos))
	assert.True(t, vehicleRunsOn(t, data, "t1", "20260105"))

	ov.Cancel("imp1")
	assert.True(t, vehicleRunsOn(t, data, "t1", "20260105"))
}

func TestKirinOutlivesChaosCancellation(t *testing.T) {
	data := newTestData(t)
	insertSampleTrip(t, data, "20260105")
	ov := New(data)
	ov.RegisterBaseTrip("t1", schedule(data))

	require.NoError(t, ov.Modify("t1", "20260105", schedule(data), "chaos-imp", Chaos))
	require.NoError(t, ov.Modify("t1", "20260105", schedule(data), "kirin-imp", Kirin))

	ov.Cancel("chaos-imp")
	assert.True(t, vehicleRunsOn(t, data, "t1", "20260105"))
}
