// Package loader builds a transit data snapshot (transitdata.Data,
// loads.Registry, overlay.Overlay) from a GTFS-shaped FeedSource, per
// spec §6's "base-model loader -> engine". It is a one-shot, read-once
// process: loading a feed produces a complete snapshot, after which
// all further updates flow through overlay.Overlay, never back through
// here.
package loader

import "github.com/transitway/raptor/loader/rawmodel"

// FeedSource supplies the rows of one GTFS feed. A FeedSource does not
// validate referential integrity across files, and neither does Load:
// it never reads Routes, so a trip's route_id is not checked, and a
// stop_id used in stop_times but absent from stops becomes a new stop.
type FeedSource interface {
	Agencies() ([]rawmodel.Agency, error)
	Stops() ([]rawmodel.Stop, error)
	Routes() ([]rawmodel.Route, error)
	Trips() ([]rawmodel.Trip, error)
	StopTimes() ([]rawmodel.StopTime, error)
	Calendars() ([]rawmodel.Calendar, error)
	CalendarDates() ([]rawmodel.CalendarDate, error)
	Transfers() ([]rawmodel.Transfer, error)
}
