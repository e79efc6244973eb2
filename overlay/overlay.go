// Package overlay implements the Real-Time Overlay (spec §4.3): a
// per-(trip, date) version history that lets disruptions add, modify,
// delete and cancel trips against the live Timetables while preserving
// every timetable invariant.
package overlay

import (
	"fmt"
	"time"

	"github.com/transitway/raptor/calendar"
	"github.com/transitway/raptor/model"
	"github.com/transitway/raptor/timetable"
	"github.com/transitway/raptor/transitdata"
)

// Source distinguishes the two real-time update channels. Kirin
// modifications always win over Chaos modifications on the same
// (trip, date) -- spec §4.3.
type Source int

const (
	Chaos Source = iota
	Kirin
)

// StopTimes is one trip's full schedule, as needed to (re)insert a
// vehicle row: the same shape timetable.InsertRequest wants, minus the
// trip id and valid-dates (an overlay update always targets exactly
// one date).
type StopTimes struct {
	Stops       []model.StopIdx
	Flows       []model.FlowDirection
	BoardLocal  []calendar.SecondsSinceTimezonedDayStart
	DebarkLocal []calendar.SecondsSinceTimezonedDayStart
	Timezone    *time.Location
	Loads       []model.Load
}

// TripVersion is one entry of a (trip, date)'s history stack: either a
// deletion or a replacement schedule, tagged with the impact that
// caused it.
type TripVersion struct {
	ImpactID string
	Source   Source
	Deleted  bool
	Schedule *StopTimes // nil when Deleted
}

type tripDate struct {
	tripID string
	date   string // YYYYMMDD
}

// Overlay owns the version history and drives Timetables mutations.
// It holds no lock of its own; the caller is expected to serialize
// writers (spec §5's single writer over the read-write lock).
type Overlay struct {
	data *transitdata.Data

	history      map[tripDate][]TripVersion
	baseSchedule map[string]*StopTimes // captured at load time, for cancellation restores
}

// New creates an overlay bound to a transit data snapshot.
func New(data *transitdata.Data) *Overlay {
	return &Overlay{
		data:         data,
		history:      map[tripDate][]TripVersion{},
		baseSchedule: map[string]*StopTimes{},
	}
}

// RegisterBaseTrip records trip's original schedule so a later
// cancellation can restore it. The loader calls this once per trip
// right after the initial Insert.
func (o *Overlay) RegisterBaseTrip(tripID string, schedule *StopTimes) {
	o.baseSchedule[tripID] = schedule
}

func (o *Overlay) push(tripID, date string, v TripVersion) {
	key := tripDate{tripID, date}
	o.history[key] = append(o.history[key], v)
}

// ScheduleOf returns the currently-effective schedule for (tripID,
// date): the schedule of the most recent version, or false when that
// version is a deletion; with no version, the registered base
// schedule, else false. Used to satisfy
// overlay.Resolver/realtimefeed.Resolver for callers that need to read
// back what Overlay itself would insert next.
func (o *Overlay) ScheduleOf(tripID, date string) (*StopTimes, bool) {
	if v, ok := o.top(tripID, date); ok {
		if v.Deleted {
			return nil, false
		}
		return v.Schedule, true
	}
	base, ok := o.baseSchedule[tripID]
	return base, ok
}

func (o *Overlay) top(tripID, date string) (TripVersion, bool) {
	key := tripDate{tripID, date}
	h := o.history[key]
	if len(h) == 0 {
		return TripVersion{}, false
	}
	return h[len(h)-1], true
}

// Delete removes trip's vehicle on date only, by excluding that day
// from the matching vehicle rows' day pattern (spec §4.3: "push a
// Deleted version, then splice the day out of the pattern" --
// RemoveVehicles would drop every day the vehicle runs, so the day is
// excluded from the pattern instead via UpdateVehiclesData).
func (o *Overlay) Delete(tripID, date string, impactID string, source Source) error {
	day, ok := dayOffset(o.data, date)
	if !ok {
		return fmt.Errorf("overlay: delete %s/%s: date out of calendar", tripID, date)
	}

	single := o.data.Patterns.GetOrInsertDays([]calendar.DaysSinceDatasetStart{day})
	touched := o.data.Timetables.UpdateVehiclesData(
		func(v timetable.VehicleData) bool {
			return v.TripID == tripID && o.data.Patterns.IsAllowed(v.Pattern, day)
		},
		func(v timetable.VehicleData) timetable.VehicleData {
			v.Pattern = o.data.Patterns.Subtract(v.Pattern, single)
			return v
		},
	)
	if touched == 0 {
		return fmt.Errorf("overlay: delete %s/%s: no matching vehicle (DeleteAbsentTrip)", tripID, date)
	}

	o.push(tripID, date, TripVersion{ImpactID: impactID, Source: source, Deleted: true})
	return nil
}

// Add inserts a new vehicle row for trip on date using schedule,
// pushing a Present version.
func (o *Overlay) Add(tripID, date string, schedule *StopTimes, impactID string, source Source) error {
	d, ok := parseDate(date)
	if !ok {
		return fmt.Errorf("overlay: add %s/%s: bad date", tripID, date)
	}
	_, err := o.data.InsertTrip(timetable.InsertRequest{
		TripID:      tripID,
		Stops:       schedule.Stops,
		Flows:       schedule.Flows,
		BoardLocal:  schedule.BoardLocal,
		DebarkLocal: schedule.DebarkLocal,
		ValidDates:  []time.Time{d},
		Timezone:    schedule.Timezone,
		LoadsByDate: map[string][]model.Load{date: schedule.Loads},
	})
	if err != nil {
		return fmt.Errorf("overlay: add %s/%s: %w", tripID, date, err)
	}
	o.push(tripID, date, TripVersion{ImpactID: impactID, Source: source, Schedule: schedule})
	return nil
}

// Modify combines Delete then Add atomically from the caller's point
// of view: both errors are collected and reported, but the add is
// attempted even if the delete found nothing to remove (the spec's
// "both removal and insertion errors are collected").
func (o *Overlay) Modify(tripID, date string, schedule *StopTimes, impactID string, source Source) error {
	delErr := o.Delete(tripID, date, impactID, source)
	addErr := o.Add(tripID, date, schedule, impactID, source)
	if delErr != nil && addErr != nil {
		return fmt.Errorf("overlay: modify %s/%s: delete: %v; add: %v", tripID, date, delErr, addErr)
	}
	if addErr != nil {
		return addErr
	}
	return delErr
}

// Cancel undoes every impact of one disruption: for each (trip, date)
// it touched, unlink the impact and, if no other alter-kind impact nor
// a Kirin modification remains, restore the base schedule.
func (o *Overlay) Cancel(disruptionID string) {
	for key, versions := range o.history {
		kept := versions[:0]
		removedAny := false
		for _, v := range versions {
			if v.ImpactID == disruptionID {
				removedAny = true
				continue
			}
			kept = append(kept, v)
		}
		if !removedAny {
			continue
		}
		o.history[key] = kept
		o.restoreIfNeeded(key.tripID, key.date, kept)
	}
}

// restoreIfNeeded re-applies the base schedule for (tripID, date) once
// no override remains, per spec §4.3's cancellation rule. A remaining
// Kirin version always wins and is left untouched.
func (o *Overlay) restoreIfNeeded(tripID, date string, remaining []TripVersion) {
	for _, v := range remaining {
		if v.Source == Kirin {
			return // Kirin modification always wins, nothing to restore over
		}
	}
	if len(remaining) > 0 {
		return // a Chaos override still applies
	}
	base, ok := o.baseSchedule[tripID]
	if !ok {
		return
	}
	_ = o.Modify(tripID, date, base, "", Chaos)
	// the restore's own history entry is immediately pruned: a
	// restored base trip has no active disruption.
	delete(o.history, tripDate{tripID, date})
}

func dayOffset(data *transitdata.Data, date string) (calendar.DaysSinceDatasetStart, bool) {
	t, ok := parseDate(date)
	if !ok {
		return 0, false
	}
	return data.Cal.DateToDaysSinceStart(t)
}

func parseDate(date string) (time.Time, bool) {
	t, err := time.Parse("20060102", date)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
