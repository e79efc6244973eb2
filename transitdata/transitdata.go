// Package transitdata composes Stops, Transfers, and the Timetables
// store into the single snapshot the engine queries, per spec §4.3.
// It owns no mutation logic of its own beyond what it forwards to
// timetable.Store; real-time updates go through the overlay package,
// which holds a *Data and mutates its Timetables store between
// queries.
package transitdata

import (
	"fmt"

	"github.com/transitway/raptor/calendar"
	"github.com/transitway/raptor/model"
	"github.com/transitway/raptor/timetable"
)

// Stop is one entry in the dense stop table: the originating feed
// identifier, every (mission, position) occurrence, and outgoing foot
// transfers.
type Stop struct {
	ExtID     string
	Occurs    []Occurrence
	Transfers []model.Transfer
}

// Occurrence is one (mission, position) pair where a stop appears.
type Occurrence struct {
	Mission  model.MissionIdx
	Position model.Position
}

// Data is the composed transit data snapshot: stops, transfers, and
// timetables, plus the calendar and day-pattern machinery they share.
type Data struct {
	Cal      *calendar.Calendar
	Patterns *calendar.DayPatternSet
	Timetables *timetable.Store

	stops      []Stop
	stopByExtID map[string]model.StopIdx
}

// New creates an empty snapshot over the given calendar. Stops are
// created on first reference and never destroyed during the engine's
// lifetime (spec §3).
func New(cal *calendar.Calendar) *Data {
	patterns := calendar.NewDayPatternSet(cal)
	return &Data{
		Cal:         cal,
		Patterns:    patterns,
		Timetables:  timetable.NewStore(cal, patterns),
		stopByExtID: map[string]model.StopIdx{},
	}
}

// StopByExtID returns the dense index for a feed stop identifier,
// creating a new entry if it has not been seen before.
func (d *Data) StopByExtID(extID string) model.StopIdx {
	if idx, ok := d.stopByExtID[extID]; ok {
		return idx
	}
	idx := model.StopIdx(len(d.stops))
	d.stops = append(d.stops, Stop{ExtID: extID})
	d.stopByExtID[extID] = idx
	return idx
}

// LookupStop resolves a feed stop identifier without creating one.
func (d *Data) LookupStop(extID string) (model.StopIdx, bool) {
	idx, ok := d.stopByExtID[extID]
	return idx, ok
}

// Stop returns the stop record at idx.
func (d *Data) Stop(idx model.StopIdx) *Stop { return &d.stops[idx] }

// NbStops returns the number of distinct stops in the snapshot.
func (d *Data) NbStops() int { return len(d.stops) }

// AddTransfer records a foot transfer from -> to with the given
// positive duration and external id, returning its index within
// from's transfer list.
func (d *Data) AddTransfer(from, to model.StopIdx, durationSeconds int32, extID string) (model.TransferIdx, error) {
	if durationSeconds <= 0 {
		return 0, fmt.Errorf("transitdata: transfer %s: duration must be positive, got %d", extID, durationSeconds)
	}
	idx := model.TransferIdx(len(d.stops[from].Transfers))
	d.stops[from].Transfers = append(d.stops[from].Transfers, model.Transfer{
		FromStop: from, ToStop: to, Duration: durationSeconds, ExtID: extID,
	})
	return idx, nil
}

// Transfer resolves a (stop, index) pair to its target, duration, and
// external id.
func (d *Data) Transfer(from model.StopIdx, idx model.TransferIdx) model.Transfer {
	return d.stops[from].Transfers[idx]
}

// TransfersAt returns every outgoing transfer from a stop.
func (d *Data) TransfersAt(from model.StopIdx) []model.Transfer {
	return d.stops[from].Transfers
}

// InsertTrip inserts a trip into the timetable store and records the
// resulting mission occurrences against each stop it touches.
func (d *Data) InsertTrip(req timetable.InsertRequest) ([]model.MissionIdx, error) {
	missions, err := d.Timetables.Insert(req)
	for _, m := range missions {
		d.recordOccurrences(m)
	}
	return missions, err
}

func (d *Data) recordOccurrences(m model.MissionIdx) {
	tt := d.Timetables.Mission(m)
nextPosition:
	for p, sf := range tt.StopFlow {
		stop := &d.stops[sf.Stop]
		occ := Occurrence{Mission: m, Position: model.Position(p)}
		for _, existing := range stop.Occurs {
			if existing == occ {
				continue nextPosition // already recorded
			}
		}
		stop.Occurs = append(stop.Occurs, occ)
	}
}

// MissionsAt returns a restartable iterator over every (mission,
// position) occurrence of a stop.
func (d *Data) MissionsAt(stop model.StopIdx) []Occurrence {
	return d.stops[stop].Occurs
}
