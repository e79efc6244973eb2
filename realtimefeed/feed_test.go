package realtimefeed

import (
	"testing"
	"time"

	gtfsproto "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"

	"github.com/transitway/raptor/calendar"
	"github.com/transitway/raptor/model"
	"github.com/transitway/raptor/overlay"
	"github.com/transitway/raptor/transitdata"
)

func marshalFeed(t *testing.T, msg *gtfsproto.FeedMessage) []byte {
	t.Helper()
	raw, err := proto.Marshal(msg)
	require.NoError(t, err)
	return raw
}

func fullDatasetHeader() *gtfsproto.FeedHeader {
	incr := gtfsproto.FeedHeader_FULL_DATASET
	return &gtfsproto.FeedHeader{
		GtfsRealtimeVersion: proto.String("2.0"),
		Incrementality:      &incr,
		Timestamp:           proto.Uint64(100),
	}
}

func TestDecodeCancelledTrip(t *testing.T) {
	cancelled := gtfsproto.TripDescriptor_CANCELED
	msg := &gtfsproto.FeedMessage{
		Header: fullDatasetHeader(),
		Entity: []*gtfsproto.FeedEntity{
			{
				Id: proto.String("e1"),
				TripUpdate: &gtfsproto.TripUpdate{
					Trip: &gtfsproto.TripDescriptor{
						TripId:               proto.String("t1"),
						StartDate:            proto.String("20260105"),
						ScheduleRelationship: &cancelled,
					},
				},
			},
		},
	}

	feed, err := Decode(marshalFeed(t, msg))
	require.NoError(t, err)
	require.Len(t, feed.Trips, 1)
	assert.Equal(t, "t1", feed.Trips[0].TripID)
	assert.True(t, feed.Trips[0].Cancelled)
}

func TestDecodeSkipsBlankTripID(t *testing.T) {
	msg := &gtfsproto.FeedMessage{
		Header: fullDatasetHeader(),
		Entity: []*gtfsproto.FeedEntity{
			{
				Id: proto.String("e1"),
				TripUpdate: &gtfsproto.TripUpdate{
					Trip: &gtfsproto.TripDescriptor{StartDate: proto.String("20260105")},
				},
			},
		},
	}

	feed, err := Decode(marshalFeed(t, msg))
	require.NoError(t, err)
	assert.Empty(t, feed.Trips)
}

func TestDecodeRejectsIncrementalFeed(t *testing.T) {
	incr := gtfsproto.FeedHeader_DIFFERENTIAL
	msg := &gtfsproto.FeedMessage{
		Header: &gtfsproto.FeedHeader{
			GtfsRealtimeVersion: proto.String("2.0"),
			Incrementality:      &incr,
		},
	}

	_, err := Decode(marshalFeed(t, msg))
	assert.Error(t, err)
}

func TestDecodeStopTimeUpdateWithDelay(t *testing.T) {
	scheduled := gtfsproto.TripDescriptor_SCHEDULED
	msg := &gtfsproto.FeedMessage{
		Header: fullDatasetHeader(),
		Entity: []*gtfsproto.FeedEntity{
			{
				Id: proto.String("e1"),
				TripUpdate: &gtfsproto.TripUpdate{
					Trip: &gtfsproto.TripDescriptor{
						TripId:               proto.String("t1"),
						StartDate:            proto.String("20260105"),
						ScheduleRelationship: &scheduled,
					},
					StopTimeUpdate: []*gtfsproto.TripUpdate_StopTimeUpdate{
						{
							StopSequence: proto.Uint32(2),
							Arrival:      &gtfsproto.TripUpdate_StopTimeEvent{Delay: proto.Int32(90)},
						},
					},
				},
			},
		},
	}

	feed, err := Decode(marshalFeed(t, msg))
	require.NoError(t, err)
	require.Len(t, feed.Trips, 1)
	require.Len(t, feed.Trips[0].Updates, 1)
	u := feed.Trips[0].Updates[0]
	assert.EqualValues(t, 2, u.StopSequence)
	assert.True(t, u.ArrivalIsSet)
	assert.Equal(t, 90*time.Second, u.ArrivalDelay)
}

type fakeResolver struct {
	schedule *overlay.StopTimes
	stops    map[string]int
}

func (r *fakeResolver) ScheduleOf(tripID, date string) (*overlay.StopTimes, bool) {
	return r.schedule, r.schedule != nil
}

func (r *fakeResolver) StopIdxByExtID(extID string) (int, bool) {
	idx, ok := r.stops[extID]
	return idx, ok
}

func baseSchedule() *overlay.StopTimes {
	return &overlay.StopTimes{
		Stops:       []model.StopIdx{0, 1},
		Flows:       []model.FlowDirection{model.BoardAndDebark, model.BoardAndDebark},
		BoardLocal:  []calendar.SecondsSinceTimezonedDayStart{8 * 3600, 8*3600 + 600},
		DebarkLocal: []calendar.SecondsSinceTimezonedDayStart{8 * 3600, 8*3600 + 600},
		Timezone:    time.UTC,
	}
}

func TestApplyDelaysShiftBoardTimes(t *testing.T) {
	data := newTestData(t)
	ov := overlay.New(data)
	base := baseSchedule()
	ov.RegisterBaseTrip("t1", base)
	require.NoError(t, ov.Add("t1", "20260105", base, "", overlay.Chaos))

	feed := &Feed{Trips: []TripUpdate{
		{
			TripID: "t1",
			Date:   "20260105",
			Updates: []StopTimeUpdate{
				{StopSequence: 2, DepartureIsSet: true, DepartureDelay: 120 * time.Second},
			},
		},
	}}

	resolver := &fakeResolver{schedule: base}
	errs := Apply(feed, ov, resolver, overlay.Chaos, "imp1")
	assert.Empty(t, errs)

	updated, ok := ov.ScheduleOf("t1", "20260105")
	require.True(t, ok)
	assert.EqualValues(t, base.BoardLocal[1]+120, updated.BoardLocal[1])
}

func TestApplyCancelledTripDeletesSingleDay(t *testing.T) {
	data := newTestData(t)
	ov := overlay.New(data)
	base := baseSchedule()
	ov.RegisterBaseTrip("t1", base)
	require.NoError(t, ov.Add("t1", "20260105", base, "", overlay.Chaos))

	feed := &Feed{Trips: []TripUpdate{{TripID: "t1", Date: "20260105", Cancelled: true}}}
	errs := Apply(feed, ov, &fakeResolver{}, overlay.Chaos, "imp1")
	assert.Empty(t, errs)

	_, ok := ov.ScheduleOf("t1", "20260105")
	assert.False(t, ok)
}

func newTestData(t *testing.T) *transitdata.Data {
	t.Helper()
	cal, err := calendar.New(
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)
	data := transitdata.New(cal)
	data.StopByExtID("s1")
	data.StopByExtID("s2")
	return data
}
